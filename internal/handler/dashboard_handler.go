package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cojovi/material-pricing-api/internal/service"
	"github.com/cojovi/material-pricing-api/pkg/response"
)

// DashboardHandler wires analytics endpoints to the dashboard service.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Stats godoc
// @Summary Dashboard statistics
// @Description Summary counts and 30-day average price change
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// RecentChanges godoc
// @Summary Recent price changes
// @Description Latest approved price changes with material identity
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max entries (default 10)"
// @Success 200 {object} response.Envelope
// @Router /price-changes/recent [get]
func (h *DashboardHandler) RecentChanges(c *gin.Context) {
	limit := parseLimit(c, 10)
	entries, err := h.service.RecentChanges(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// LocationPerformance godoc
// @Summary Location performance
// @Description 30-day average price movement per branch location
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/locations [get]
func (h *DashboardHandler) LocationPerformance(c *gin.Context) {
	rows, err := h.service.LocationPerformance(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// DistributorPerformance godoc
// @Summary Distributor performance
// @Description 30-day average price movement per distributor
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/distributors [get]
func (h *DashboardHandler) DistributorPerformance(c *gin.Context) {
	rows, err := h.service.DistributorPerformance(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Trending godoc
// @Summary Trending materials
// @Description Materials with the largest recent price movement
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max entries (default 5)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/trending [get]
func (h *DashboardHandler) Trending(c *gin.Context) {
	limit := parseLimit(c, 5)
	materials, err := h.service.Trending(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, materials, nil)
}

func parseLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
