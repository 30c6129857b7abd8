package v1

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/vision-grader/internal/engine"
	"github.com/nulzo/vision-grader/internal/strategy"
	"github.com/nulzo/vision-grader/pkg/api"
)

// Grader is the slice of *engine.Engine the HTTP layer drives.
type Grader interface {
	Call(ctx context.Context, slot strategy.Slot, ep engine.Endpoint, image, prompt string) (string, error)
	TestConnection(ctx context.Context, slot strategy.Slot, ep engine.Endpoint) (string, error)
	Strategy(ctx context.Context, slot strategy.Slot) (*strategy.Strategy, error)
	Invalidate(ctx context.Context, slot strategy.Slot) error
	ConfigChanged(ctx context.Context) error
	Stop()
	Resume()
	Running() bool
}

// SlotResolver yields the configured endpoint of a slot.
type SlotResolver interface {
	Slot(slot strategy.Slot) (engine.Endpoint, error)
}

func slotParam(c *gin.Context) (strategy.Slot, bool) {
	slot, err := strategy.ParseSlot(c.Param("slot"))
	if err != nil {
		_ = c.Error(api.NotFoundError("unknown slot; expected one of first, second",
			api.WithExtension("slot", c.Param("slot"))))
		return "", false
	}
	return slot, true
}

// resolveEndpoint overlays the non-empty override fields on the configured
// endpoint of the slot.
func resolveEndpoint(slots SlotResolver, slot strategy.Slot, o *api.EndpointOverride) (engine.Endpoint, error) {
	ep, err := slots.Slot(slot)
	if err != nil {
		return engine.Endpoint{}, err
	}
	if o == nil {
		return ep, nil
	}
	if o.BaseURL != "" {
		ep.BaseURL = o.BaseURL
	}
	if o.APIKey != "" {
		ep.APIKey = o.APIKey
	}
	if o.ModelID != "" {
		ep.ModelID = o.ModelID
	}
	return ep, nil
}

// engineProblem maps an engine failure onto an HTTP problem.
func engineProblem(err error) *api.Problem {
	var ee *engine.Error
	if !errors.As(err, &ee) {
		return api.InternalError("grading failed", err)
	}

	opts := []api.ProblemOption{
		api.WithType("/problems/" + string(ee.Kind)),
		api.WithExtension("kind", string(ee.Kind)),
		api.WithExtension("slot", string(ee.Slot)),
	}
	if ee.Provider != "" {
		opts = append(opts, api.WithExtension("provider", string(ee.Provider)))
	}
	if ee.StatusCode != 0 {
		opts = append(opts, api.WithExtension("upstream_status", ee.StatusCode))
	}

	switch ee.Kind {
	case engine.KindConfigIncomplete:
		return api.BadRequestError(ee.Friendly(), opts...)
	case engine.KindStopped:
		return api.ConflictError(ee.Friendly(), opts...)
	default:
		return api.UpstreamError(ee.Friendly(), opts...)
	}
}
