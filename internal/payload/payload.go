package payload

import (
	"errors"
	"fmt"
	"strings"
)

// TemplateType selects the payload shaping rules used for a provider.
type TemplateType string

const (
	// TemplateOpenAIVision is the plain OpenAI chat-completions vision shape.
	TemplateOpenAIVision TemplateType = "openai_vision_v1"
	// TemplateVisionNoThinking is the OpenAI shape with the provider's
	// reasoning pass switched off.
	TemplateVisionNoThinking TemplateType = "volcengine_vision_v1"
)

// ImageFormat is how the base64 image is carried inside image_url.url.
type ImageFormat string

const (
	DataURI    ImageFormat = "data_uri"
	PureBase64 ImageFormat = "pure_base64"
)

const (
	DefaultMaxTokens = 4000
	NoThinkingTokens = 4096
	dataURIPrefix    = "data:image/jpeg;base64,"
	base64Marker     = "base64,"
	thinkingDisabled = "disabled"
	contentTypeText  = "text"
	contentTypeImage = "image_url"
	roleUser         = "user"
)

var ErrUnknownTemplate = errors.New("unknown payload template")

// Options carries the per-strategy knobs the builder needs.
type Options struct {
	ImageFormat ImageFormat `json:"image_format"`
}

type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream"`
	Thinking  *Thinking `json:"thinking,omitempty"`
}

// Message content is either a string (text only) or a []ContentPart.
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type Thinking struct {
	Type string `json:"type"`
}

// Build constructs the request body for a prompt and an optional image.
// The image part always precedes the text part.
func Build(template TemplateType, modelID, image, prompt string, opts Options) (*ChatRequest, error) {
	if !Known(template) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, template)
	}

	cleanPrompt := strings.TrimSpace(prompt)

	if image == "" {
		return &ChatRequest{
			Model:     modelID,
			Messages:  []Message{{Role: roleUser, Content: cleanPrompt}},
			MaxTokens: DefaultMaxTokens,
		}, nil
	}

	req := &ChatRequest{
		Model: modelID,
		Messages: []Message{{
			Role: roleUser,
			Content: []ContentPart{
				{Type: contentTypeImage, ImageURL: &ImageURL{URL: EncodeImage(image, opts.ImageFormat)}},
				{Type: contentTypeText, Text: cleanPrompt},
			},
		}},
		MaxTokens: DefaultMaxTokens,
	}

	if template == TemplateVisionNoThinking {
		req.Thinking = &Thinking{Type: thinkingDisabled}
		req.MaxTokens = NoThinkingTokens
	}

	return req, nil
}

// Known reports whether the template type has builder rules.
func Known(template TemplateType) bool {
	switch template {
	case TemplateOpenAIVision, TemplateVisionNoThinking:
		return true
	default:
		return false
	}
}

// StripDataURI returns the pure base64 payload of an image string that may
// carry a "data:...;base64," prefix.
func StripDataURI(image string) string {
	if idx := strings.Index(image, base64Marker); idx != -1 {
		return image[idx+len(base64Marker):]
	}
	return image
}

// EncodeImage re-wraps an image for the given format. Anything other than
// PureBase64 is sent as a jpeg data URI.
func EncodeImage(image string, format ImageFormat) string {
	raw := StripDataURI(image)
	if format == PureBase64 {
		return raw
	}
	return dataURIPrefix + raw
}
