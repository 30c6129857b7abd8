package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/vision-grader/internal/analytics"
	"github.com/nulzo/vision-grader/internal/strategy"
	"github.com/nulzo/vision-grader/pkg/api"
)

type AnalyticsHandler struct {
	service analytics.Service
}

func NewAnalyticsHandler(service analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
	}
}

// Calls lists recent engine calls, newest first.
//
// GET /v1/calls?slot=first&limit=50
func (h *AnalyticsHandler) Calls(c *gin.Context) {
	slot := c.Query("slot")
	if slot != "" {
		if _, err := strategy.ParseSlot(slot); err != nil {
			_ = c.Error(api.BadRequestError("Invalid 'slot' parameter"))
			return
		}
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		_ = c.Error(api.BadRequestError("Invalid 'limit' parameter"))
		return
	}

	calls, err := h.service.RecentCalls(c.Request.Context(), slot, limit)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to fetch calls", err))
		return
	}

	c.JSON(http.StatusOK, api.NewList(calls))
}

// Stats aggregates calls per slot and provider.
//
// GET /v1/calls/stats?days=7
func (h *AnalyticsHandler) Stats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil {
		_ = c.Error(api.BadRequestError("Invalid 'days' parameter"))
		return
	}

	stats, err := h.service.SlotStats(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to fetch analytics", err))
		return
	}

	c.JSON(http.StatusOK, api.NewList(stats))
}
