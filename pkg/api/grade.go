package api

import "time"

// EndpointOverride replaces the configured slot fields that are non-empty.
type EndpointOverride struct {
	BaseURL string `json:"base_url,omitempty" binding:"omitempty,url"`
	APIKey  string `json:"api_key,omitempty"`
	ModelID string `json:"model_id,omitempty"`
}

type GradeRequest struct {
	Prompt string `json:"prompt" binding:"required,max=100000"`
	// Image is base64, with or without a data URI prefix.
	Image    string            `json:"image,omitempty" binding:"omitempty,max=20000000"`
	Endpoint *EndpointOverride `json:"endpoint,omitempty"`
}

type GradeResponse struct {
	Object    string `json:"object"` // "grade"
	Slot      string `json:"slot"`
	Answer    string `json:"answer"`
	LatencyMS int64  `json:"latency_ms"`
}

type TestConnectionRequest struct {
	Endpoint *EndpointOverride `json:"endpoint,omitempty"`
}

type TestConnectionResponse struct {
	Object  string `json:"object"` // "connection_test"
	Slot    string `json:"slot"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type StrategyView struct {
	Slot         string            `json:"slot"`
	Provider     string            `json:"provider"`
	URL          string            `json:"url"`
	TemplateType string            `json:"template_type"`
	ImageFormat  string            `json:"image_format"`
	AuthMethod   string            `json:"auth_method"`
	AuthHeader   string            `json:"auth_header"`
	ExtraHeaders map[string]string `json:"extra_headers,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

type EngineStatus struct {
	Object  string `json:"object"` // "engine"
	Running bool   `json:"running"`
}

type ListResponse struct {
	Object string      `json:"object"` // "list"
	Data   interface{} `json:"data"`
}

func NewList(data interface{}) ListResponse {
	return ListResponse{Object: "list", Data: data}
}
