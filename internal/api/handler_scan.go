package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// PostScan handles the HTML form trigger. It always redirects back to the index page,
// telling it whether the request was accepted.
func (h *Handler) PostScan(c *gin.Context) {
	outcome := "accepted"
	if !h.state.RequestScan() {
		outcome = "busy"
	}
	log.Info().Str("client", c.ClientIP()).Str("outcome", outcome).Msg("scan requested")
	c.Redirect(http.StatusSeeOther, "/?scan="+outcome)
}

// PostAPIScan handles POST /api/scan: 202 when a scan was queued, 409 while one runs.
func (h *Handler) PostAPIScan(c *gin.Context) {
	if !h.state.RequestScan() {
		c.JSON(http.StatusConflict, gin.H{"accepted": false, "error": "scan already in progress"})
		return
	}
	log.Info().Str("client", c.ClientIP()).Msg("scan requested")
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// ScanThrottled answers a form trigger from a client over its scan quota the same way
// a busy scanner does.
func (h *Handler) ScanThrottled(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/?scan=busy")
}

// APIScanThrottled answers a JSON trigger from a client over its scan quota.
func (h *Handler) APIScanThrottled(c *gin.Context) {
	c.Header("Retry-After", "5")
	c.JSON(http.StatusTooManyRequests, gin.H{"accepted": false, "error": "too many scan requests"})
}
