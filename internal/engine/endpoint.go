package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Endpoint is the caller-held configuration of one slot.
type Endpoint struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	ModelID string `json:"model_id"`
}

// Missing lists the names of the empty required fields.
func (e Endpoint) Missing() []string {
	var missing []string
	if strings.TrimSpace(e.BaseURL) == "" {
		missing = append(missing, "base_url")
	}
	if strings.TrimSpace(e.APIKey) == "" {
		missing = append(missing, "api_key")
	}
	if strings.TrimSpace(e.ModelID) == "" {
		missing = append(missing, "model_id")
	}
	return missing
}

func (e Endpoint) Complete() bool {
	return len(e.Missing()) == 0
}

// Fingerprint is a short digest of the whole endpoint configuration. Any
// edit to the URL, key or model changes it.
func (e Endpoint) Fingerprint() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%s",
		strings.TrimSpace(e.BaseURL), strings.TrimSpace(e.ModelID), e.APIKey)))
	return hex.EncodeToString(sum[:8])
}
