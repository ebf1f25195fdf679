package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// GetInventory handles GET /api/inventory.
func (h *Handler) GetInventory(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "inventory is not configured"})
		return
	}
	miners, err := h.store.ListMiners(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("list inventory")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve inventory"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"miners": miners})
}

// Healthz reports liveness and the scan state.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"scanning": h.state.Scanning(),
		"version":  h.state.Version(),
	})
}
