package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ts-dashboard/internal/dashboard"
	"ts-dashboard/internal/gateway"
	"ts-dashboard/internal/nav"
)

// GetStations returns the navigation panel for the caller.
// GET /api/stations
func (h *Handler) GetStations(c *gin.Context) {
	sess := sessionOf(c)
	dir, err := h.src.Stations(gateway.WithUser(c.Request.Context(), sess.StationCode))
	if err != nil {
		h.log.Error("failed to load stations", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": dashboard.Message(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stations": dir,
		"nav":      nav.Build(sess, dir),
	})
}

// GetFilterOptions returns the filter option lists.
// GET /api/filter-options
func (h *Handler) GetFilterOptions(c *gin.Context) {
	sess := sessionOf(c)
	opts, err := h.src.FilterOptions(gateway.WithUser(c.Request.Context(), sess.StationCode))
	if err != nil {
		h.log.Error("failed to load filter options", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": dashboard.Message(err)})
		return
	}
	c.JSON(http.StatusOK, opts)
}
