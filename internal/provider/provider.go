package provider

import (
	"github.com/nulzo/vision-grader/internal/payload"
)

// Tag names a known vendor, or one of the two fallback tags.
type Tag string

const (
	OpenAI     Tag = "openai"
	Azure      Tag = "azure"
	Baidu      Tag = "baidu"
	Zhipu      Tag = "zhipu"
	Aliyun     Tag = "aliyun"
	Volcengine Tag = "volcengine"
	Tencent    Tag = "tencent"
	Moonshot   Tag = "moonshot"
	DeepSeek   Tag = "deepseek"
	ZeroOneAI  Tag = "01ai"

	// OpenAICompatible is returned for unknown hosts whose path already
	// looks like an OpenAI chat-completions endpoint.
	OpenAICompatible Tag = "openai_like"
	// Standard is returned when nothing at all matched.
	Standard Tag = "standard"
)

type AuthMethod string

const (
	AuthBearer AuthMethod = "bearer"
	AuthAPIKey AuthMethod = "api_key"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	ContentTypeJSON     = "application/json"
)

// Profile is the static request convention of one provider.
type Profile struct {
	Tag          Tag                  `json:"tag"`
	TemplateType payload.TemplateType `json:"template_type"`
	AuthMethod   AuthMethod           `json:"auth_method"`
	AuthHeader   string               `json:"auth_header"`
	ExtraHeaders map[string]string    `json:"extra_headers,omitempty"`
	Status       string               `json:"status,omitempty"`
}

var profiles = map[Tag]Profile{
	OpenAI: {
		TemplateType: payload.TemplateOpenAIVision,
		AuthMethod:   AuthBearer,
		AuthHeader:   HeaderAuthorization,
	},
	Azure: {
		TemplateType: payload.TemplateOpenAIVision,
		AuthMethod:   AuthAPIKey,
		AuthHeader:   "api-key",
	},
	Baidu: {
		TemplateType: payload.TemplateOpenAIVision,
		AuthMethod:   AuthBearer,
		AuthHeader:   HeaderAuthorization,
		Status:       "stable_openai_compatible",
	},
	Zhipu: {
		TemplateType: payload.TemplateOpenAIVision,
		AuthMethod:   AuthBearer,
		AuthHeader:   HeaderAuthorization,
		Status:       "stable",
	},
	Aliyun: {
		TemplateType: payload.TemplateOpenAIVision,
		AuthMethod:   AuthBearer,
		AuthHeader:   HeaderAuthorization,
		Status:       "stable_openai_compatible",
	},
	// volcengine ark only accepts data URIs and reasons by default
	Volcengine: {
		TemplateType: payload.TemplateVisionNoThinking,
		AuthMethod:   AuthBearer,
		AuthHeader:   HeaderAuthorization,
		Status:       "stable",
	},
	Tencent: {
		TemplateType: payload.TemplateOpenAIVision,
		AuthMethod:   AuthBearer,
		AuthHeader:   HeaderAuthorization,
		Status:       "stable_openai_compatible",
	},
	Moonshot: {
		TemplateType: payload.TemplateOpenAIVision,
		AuthMethod:   AuthBearer,
		AuthHeader:   HeaderAuthorization,
	},
	DeepSeek: {
		TemplateType: payload.TemplateOpenAIVision,
		AuthMethod:   AuthBearer,
		AuthHeader:   HeaderAuthorization,
	},
	ZeroOneAI: {
		TemplateType: payload.TemplateOpenAIVision,
		AuthMethod:   AuthBearer,
		AuthHeader:   HeaderAuthorization,
	},
}

// Lookup returns the profile for a tag. Tags without an entry (including the
// two fallback tags) get the OpenAI-compatible bearer profile.
func Lookup(tag Tag) Profile {
	p, ok := profiles[tag]
	if !ok {
		p = Profile{
			TemplateType: payload.TemplateOpenAIVision,
			AuthMethod:   AuthBearer,
			AuthHeader:   HeaderAuthorization,
		}
	}
	p.Tag = tag
	return p
}

// Headers returns the request headers for this profile.
func (p Profile) Headers(apiKey string) map[string]string {
	return AuthHeaders(p.AuthMethod, p.AuthHeader, apiKey, p.ExtraHeaders)
}

// AuthHeaders builds the content-type, extra and auth headers for a request.
// An unknown auth method or empty header name sends no auth header.
func AuthHeaders(method AuthMethod, header, apiKey string, extra map[string]string) map[string]string {
	headers := map[string]string{
		HeaderContentType: ContentTypeJSON,
	}
	for k, v := range extra {
		headers[k] = v
	}

	if header == "" {
		return headers
	}

	switch method {
	case AuthBearer:
		headers[header] = "Bearer " + apiKey
	case AuthAPIKey:
		headers[header] = apiKey
	}

	return headers
}
