package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Rule locates the answer text inside one known response envelope.
type Rule struct {
	Name string
	Path []interface{} // string keys and int indexes
}

// Rules is the ordered extraction list. Order is part of the contract: an
// OpenAI-style body that also carries "result" yields the OpenAI content.
var Rules = []Rule{
	{"openai", path("choices", 0, "message", "content")},
	{"openai_legacy", path("choices", 0, "text")},
	{"enterprise", path("Response", "Choices", 0, "Message", "Content")},
	{"result", path("result")},
	{"answer", path("answer")},
	{"response", path("response")},
	{"content", path("content")},
	{"message", path("message")},
	{"text", path("text")},
	{"generated_text", path("generated_text")},
	{"output_choices", path("output", "choices", 0, "message", "content")},
	{"output_text", path("output", "text")},
	{"data_content", path("data", "content")},
	{"data_text", path("data", "text")},
	{"data_list_content", path("data", 0, "content")},
}

func path(steps ...interface{}) []interface{} { return steps }

// Extract returns the first non-empty trimmed string any rule finds, or the
// body's JSON serialization when none applies. It never fails.
func Extract(body interface{}) string {
	if text, _, ok := Match(body); ok {
		return text
	}
	return serialize(body)
}

// Match reports which rule produced the answer.
func Match(body interface{}) (string, string, bool) {
	for _, r := range Rules {
		if text, ok := lookupString(body, r.Path); ok {
			return text, r.Name, true
		}
	}
	return "", "", false
}

// FromBytes decodes a raw response body and extracts from it. ok is false
// when the body is not JSON at all.
func FromBytes(raw []byte) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", false
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var body interface{}
	if err := dec.Decode(&body); err != nil {
		return "", false
	}

	return Extract(body), true
}

func lookupString(body interface{}, steps []interface{}) (string, bool) {
	cur := body
	for _, step := range steps {
		switch s := step.(type) {
		case string:
			obj, ok := cur.(map[string]interface{})
			if !ok {
				return "", false
			}
			if cur, ok = obj[s]; !ok {
				return "", false
			}
		case int:
			list, ok := cur.([]interface{})
			if !ok || s < 0 || s >= len(list) {
				return "", false
			}
			cur = list[s]
		default:
			return "", false
		}
	}

	text, ok := cur.(string)
	if !ok {
		return "", false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	return text, true
}

func serialize(body interface{}) string {
	if body == nil {
		return ""
	}
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Sprintf("%v", body)
	}
	return string(b)
}
