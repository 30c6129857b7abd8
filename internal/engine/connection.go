package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/nulzo/vision-grader/internal/provider"
	"github.com/nulzo/vision-grader/internal/strategy"
)

// GreetingPrompt is the text-only prompt used to test a connection.
const GreetingPrompt = "Hello! Please introduce yourself in one sentence."

// TestConnection always probes the slot's endpoint with a text-only prompt,
// ignoring any cached strategy. A successful test overwrites the cache.
func (e *Engine) TestConnection(ctx context.Context, slot strategy.Slot, ep Endpoint) (string, error) {
	tag := provider.Classify(ep.BaseURL)

	_, err := e.run(ctx, slot, ep, "", GreetingPrompt, true)
	if err == nil {
		return fmt.Sprintf("Slot %s connected successfully (detected provider: %s)", slot, tag), nil
	}

	var ee *Error
	if !errors.As(err, &ee) {
		return "", err
	}

	switch ee.Kind {
	case KindConfigIncomplete, KindStopped:
		return "", ee
	}

	wrapped := *ee
	wrapped.Message = fmt.Sprintf("slot %s connection failed (detected provider: %s): %s", slot, tag, ee.Message)
	wrapped.Hint = ConnectionHint
	return "", &wrapped
}
