package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"miner-scanner/internal/model"
	"miner-scanner/internal/state"
)

// lastScanLayout is the wall clock form of the last scan time shown to users.
const lastScanLayout = "15:04:05"

// MinersResponse is the body of GET /api/miners.
type MinersResponse struct {
	Miners     []model.DeviceRecord `json:"miners"`
	LastScan   *string              `json:"last_scan"`
	Scanning   bool                 `json:"scanning"`
	LastScanAt *time.Time           `json:"last_scan_at"`
	Version    uint64               `json:"version"`
	LastError  string               `json:"last_error"`
}

func newMinersResponse(snap state.Snapshot) MinersResponse {
	resp := MinersResponse{
		Miners:     snap.Records,
		Scanning:   snap.Scanning,
		LastScanAt: snap.LastScanAt,
		Version:    snap.Version,
		LastError:  snap.LastError,
	}
	if resp.Miners == nil {
		resp.Miners = []model.DeviceRecord{}
	}
	if s := formatLastScan(snap.LastScanAt); s != "" {
		resp.LastScan = &s
	}
	return resp
}

func formatLastScan(at *time.Time) string {
	if at == nil {
		return ""
	}
	return at.Local().Format(lastScanLayout)
}

// GetMiners handles GET /api/miners.
func (h *Handler) GetMiners(c *gin.Context) {
	c.JSON(http.StatusOK, newMinersResponse(h.state.Snapshot()))
}
