package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"miner-scanner/internal/state"
	"miner-scanner/internal/store"
)

// ScanState is the part of the shared scan state the HTTP layer uses.
type ScanState interface {
	Snapshot() state.Snapshot
	RequestScan() bool
	Version() uint64
	Scanning() bool
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	state   ScanState
	store   store.Store
	webpush *webpush.Options
}

// NewHandler creates a new API handler. s may be nil when no database is configured.
func NewHandler(st ScanState, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		state:   st,
		store:   s,
		webpush: webpushOptions,
	}
}
