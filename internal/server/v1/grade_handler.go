package v1

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/vision-grader/internal/payload"
	"github.com/nulzo/vision-grader/internal/server/validator"
	"github.com/nulzo/vision-grader/internal/strategy"
	"github.com/nulzo/vision-grader/pkg/api"
)

type GradeHandler struct {
	grader    Grader
	slots     SlotResolver
	validator *validator.Validator
}

func NewGradeHandler(grader Grader, slots SlotResolver, v *validator.Validator) *GradeHandler {
	return &GradeHandler{
		grader:    grader,
		slots:     slots,
		validator: v,
	}
}

// Grade sends an image and prompt through the engine.
//
// POST /v1/slots/:slot/grade
func (h *GradeHandler) Grade(c *gin.Context) {
	slot, ok := slotParam(c)
	if !ok {
		return
	}

	var req api.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(h.validator.ParseError(err)))
		return
	}
	if req.Image != "" {
		if _, err := base64.StdEncoding.DecodeString(payload.StripDataURI(req.Image)); err != nil {
			_ = c.Error(api.ValidationError(map[string]string{"image": "image must be base64 or a base64 data URI"}))
			return
		}
	}

	ep, err := resolveEndpoint(h.slots, slot, req.Endpoint)
	if err != nil {
		_ = c.Error(api.InternalError("failed to resolve slot", err))
		return
	}

	start := time.Now()
	answer, err := h.grader.Call(c.Request.Context(), slot, ep, req.Image, req.Prompt)
	if err != nil {
		_ = c.Error(engineProblem(err))
		return
	}

	c.JSON(http.StatusOK, api.GradeResponse{
		Object:    "grade",
		Slot:      string(slot),
		Answer:    answer,
		LatencyMS: time.Since(start).Milliseconds(),
	})
}

// Test runs a text-only connection test. Upstream failures are reported in
// the body with success=false; only unusable requests become problems.
//
// POST /v1/slots/:slot/test
func (h *GradeHandler) Test(c *gin.Context) {
	slot, ok := slotParam(c)
	if !ok {
		return
	}

	var req api.TestConnectionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(api.ValidationError(h.validator.ParseError(err)))
			return
		}
	}

	ep, err := resolveEndpoint(h.slots, slot, req.Endpoint)
	if err != nil {
		_ = c.Error(api.InternalError("failed to resolve slot", err))
		return
	}

	msg, err := h.grader.TestConnection(c.Request.Context(), slot, ep)
	if err != nil {
		p := engineProblem(err)
		if p.Status != http.StatusBadGateway {
			_ = c.Error(p)
			return
		}
		c.JSON(http.StatusOK, api.TestConnectionResponse{
			Object:  "connection_test",
			Slot:    string(slot),
			Success: false,
			Message: p.Detail,
		})
		return
	}

	c.JSON(http.StatusOK, api.TestConnectionResponse{
		Object:  "connection_test",
		Slot:    string(slot),
		Success: true,
		Message: msg,
	})
}

type StrategyHandler struct {
	grader Grader
}

func NewStrategyHandler(grader Grader) *StrategyHandler {
	return &StrategyHandler{grader: grader}
}

// Get returns the cached strategy of a slot.
//
// GET /v1/slots/:slot/strategy
func (h *StrategyHandler) Get(c *gin.Context) {
	slot, ok := slotParam(c)
	if !ok {
		return
	}

	s, err := h.grader.Strategy(c.Request.Context(), slot)
	if errors.Is(err, strategy.ErrNotFound) {
		_ = c.Error(api.NotFoundError("no strategy cached for this slot", api.WithExtension("slot", string(slot))))
		return
	}
	if err != nil {
		_ = c.Error(api.InternalError("failed to read strategy cache", err))
		return
	}

	c.JSON(http.StatusOK, api.StrategyView{
		Slot:         string(slot),
		Provider:     string(s.Provider),
		URL:          s.URL,
		TemplateType: string(s.TemplateType),
		ImageFormat:  string(s.ImageFormat),
		AuthMethod:   string(s.AuthMethod),
		AuthHeader:   s.AuthHeader,
		ExtraHeaders: s.ExtraHeaders,
		CreatedAt:    s.CreatedAt,
	})
}

// Delete forgets the cached strategy of a slot.
//
// DELETE /v1/slots/:slot/strategy
func (h *StrategyHandler) Delete(c *gin.Context) {
	slot, ok := slotParam(c)
	if !ok {
		return
	}
	if err := h.grader.Invalidate(c.Request.Context(), slot); err != nil {
		_ = c.Error(api.InternalError("failed to invalidate strategy", err))
		return
	}
	c.Status(http.StatusNoContent)
}
