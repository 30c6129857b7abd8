package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	grader Grader
}

func NewHealthHandler(grader Grader) *HealthHandler {
	return &HealthHandler{grader: grader}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"running": h.grader.Running(),
	})
}
