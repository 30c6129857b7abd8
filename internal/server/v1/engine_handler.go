package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/vision-grader/pkg/api"
)

type EngineHandler struct {
	grader Grader
}

func NewEngineHandler(grader Grader) *EngineHandler {
	return &EngineHandler{grader: grader}
}

// Status reports whether calls are currently accepted.
//
// GET /v1/engine
func (h *EngineHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.status())
}

// Stop makes in-flight and new calls abort at their next checkpoint.
//
// POST /v1/engine/stop
func (h *EngineHandler) Stop(c *gin.Context) {
	h.grader.Stop()
	c.JSON(http.StatusOK, h.status())
}

// POST /v1/engine/resume
func (h *EngineHandler) Resume(c *gin.Context) {
	h.grader.Resume()
	c.JSON(http.StatusOK, h.status())
}

// ConfigChanged drops every cached strategy.
//
// POST /v1/engine/config-changed
func (h *EngineHandler) ConfigChanged(c *gin.Context) {
	if err := h.grader.ConfigChanged(c.Request.Context()); err != nil {
		_ = c.Error(api.InternalError("failed to reset strategy cache", err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EngineHandler) status() api.EngineStatus {
	return api.EngineStatus{Object: "engine", Running: h.grader.Running()}
}
