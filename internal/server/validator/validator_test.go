package validator

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Prompt string `json:"prompt" binding:"required"`
	Nested struct {
		BaseURL string `json:"base_url" binding:"omitempty,url"`
	} `json:"endpoint"`
}

func TestParseError_UsesJSONNames(t *testing.T) {
	v := New()

	var s sample
	s.Nested.BaseURL = "not a url"
	err := binding.Validator.ValidateStruct(&s)

	got := v.ParseError(err)
	assert.Contains(t, got, "prompt")
	assert.Contains(t, got, "endpoint.base_url")
	assert.Contains(t, got["prompt"], "required")
}

func TestParseError_NonValidationError(t *testing.T) {
	v := New()
	got := v.ParseError(errors.New("unexpected EOF"))
	assert.Equal(t, map[string]string{"body": "Invalid request body format. Please fix your payload."}, got)
}
