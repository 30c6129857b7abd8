package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nulzo/vision-grader/internal/payload"
	"github.com/nulzo/vision-grader/internal/provider"
)

// Slot names one of the two independently configured endpoints.
type Slot string

const (
	First  Slot = "first"
	Second Slot = "second"
)

// Slots lists every valid slot in display order.
var Slots = []Slot{First, Second}

var (
	ErrNotFound    = errors.New("strategy not found")
	ErrInvalidSlot = errors.New("invalid slot")
)

func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case First, Second:
		return Slot(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSlot, s)
}

// Strategy is a previously verified way of talking to one endpoint.
type Strategy struct {
	Provider     provider.Tag         `json:"provider"`
	URL          string               `json:"url"`
	TemplateType payload.TemplateType `json:"template_type"`
	ImageFormat  payload.ImageFormat  `json:"image_format"`
	AuthMethod   provider.AuthMethod  `json:"auth_method"`
	AuthHeader   string               `json:"auth_header"`
	ExtraHeaders map[string]string    `json:"extra_headers,omitempty"`
	// Fingerprint identifies the endpoint configuration the strategy was
	// discovered with. It never contains the API key itself.
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

// New builds a strategy from a provider profile and the probe that won.
func New(profile provider.Profile, url string, format payload.ImageFormat, fingerprint string) *Strategy {
	return &Strategy{
		Provider:     profile.Tag,
		URL:          url,
		TemplateType: profile.TemplateType,
		ImageFormat:  format,
		AuthMethod:   profile.AuthMethod,
		AuthHeader:   profile.AuthHeader,
		ExtraHeaders: profile.ExtraHeaders,
		Fingerprint:  fingerprint,
		CreatedAt:    time.Now().UTC(),
	}
}

func (s *Strategy) PayloadOptions() payload.Options {
	return payload.Options{ImageFormat: s.ImageFormat}
}

func (s *Strategy) Headers(apiKey string) map[string]string {
	return provider.AuthHeaders(s.AuthMethod, s.AuthHeader, apiKey, s.ExtraHeaders)
}

// Cache stores at most one strategy per slot.
type Cache interface {
	// Get returns ErrNotFound when the slot is empty.
	Get(ctx context.Context, slot Slot) (*Strategy, error)
	Put(ctx context.Context, slot Slot, s *Strategy) error
	Invalidate(ctx context.Context, slot Slot) error
	// Reset empties every slot.
	Reset(ctx context.Context) error
}
