package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// jsonToken matches keys (with their colon), strings, literals and numbers.
var jsonToken = regexp.MustCompile(`("(\\u[a-zA-Z0-9]{4}|\\[^u]|[^\\"])*"(\s*:)?|\b(true|false|null)\b|-?\d+(?:\.\d*)?(?:[eE][+\-]?\d+)?)`)

// HighlightJSON colors a JSON document, minified or indented. Keys are
// blue, strings green, booleans yellow, null dim and numbers purple.
func HighlightJSON(doc string) string {
	if !Enabled() {
		return doc
	}
	return jsonToken.ReplaceAllStringFunc(doc, func(tok string) string {
		if strings.HasSuffix(tok, ":") {
			return Style(strings.TrimSuffix(tok, ":"), Blue) + ":"
		}
		return Style(tok, tokenColor(tok))
	})
}

func tokenColor(tok string) string {
	switch {
	case strings.HasPrefix(tok, `"`):
		return Green
	case tok == "true" || tok == "false":
		return Yellow
	case tok == "null":
		return DimCode
	default:
		return Purple
	}
}

// PrettyFormat renders v as indented, highlighted JSON. Strings and byte
// slices holding JSON are re-indented; any other text is returned as-is.
func PrettyFormat(v interface{}) string {
	var raw []byte
	switch t := v.(type) {
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%+v", v)
		}
		return HighlightJSON(string(b))
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return HighlightJSON(out.String())
}

// PrettyPrint writes PrettyFormat(v) and a newline to stdout.
func PrettyPrint(v interface{}) {
	fmt.Println(PrettyFormat(v))
}
