package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"miner-scanner/internal/model"
)

type indexPage struct {
	Miners    []model.DeviceRecord
	LastScan  string
	Scanning  bool
	LastError string
	Notice    string
}

// Index renders the HTML overview.
func (h *Handler) Index(c *gin.Context) {
	snap := h.state.Snapshot()

	var notice string
	switch c.Query("scan") {
	case "accepted":
		notice = "Scan started."
	case "busy":
		notice = "A scan is already running."
	}

	c.HTML(http.StatusOK, "index.html", indexPage{
		Miners:    snap.Records,
		LastScan:  formatLastScan(snap.LastScanAt),
		Scanning:  snap.Scanning,
		LastError: snap.LastError,
		Notice:    notice,
	})
}
