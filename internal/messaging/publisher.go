package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"miner-scanner/internal/model"
	"miner-scanner/internal/state"
)

const publishTimeout = 5 * time.Second

// Sender is the publishing side of Client.
type Sender interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// ScanSummary is the message published after every committed scan.
type ScanSummary struct {
	ScanID    string               `json:"scan_id"`
	ScannedAt *time.Time           `json:"scanned_at"`
	Devices   int                  `json:"devices"`
	Mining    int                  `json:"mining"`
	Error     string               `json:"error,omitempty"`
	Miners    []model.DeviceRecord `json:"miners"`
}

// NewScanSummary builds the summary of a committed snapshot.
func NewScanSummary(snap state.Snapshot) ScanSummary {
	s := ScanSummary{
		ScanID:    snap.ScanID,
		ScannedAt: snap.LastScanAt,
		Devices:   len(snap.Records),
		Error:     snap.LastError,
		Miners:    snap.Records,
	}
	for _, r := range snap.Records {
		if r.IsMining {
			s.Mining++
		}
	}
	return s
}

// Publisher forwards committed scans to a topic.
type Publisher struct {
	sender Sender
	topic  string
}

// NewPublisher creates a Publisher writing to topic through sender.
func NewPublisher(sender Sender, topic string) *Publisher {
	return &Publisher{sender: sender, topic: topic}
}

// OnCommit is a state subscriber. Failures are logged, never retried.
func (p *Publisher) OnCommit(snap state.Snapshot) {
	payload, err := json.Marshal(NewScanSummary(snap))
	if err != nil {
		log.Error().Err(err).Str("scan_id", snap.ScanID).Msg("encode scan summary")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.sender.Publish(ctx, p.topic, snap.ScanID, payload); err != nil {
		log.Warn().Err(err).Str("topic", p.topic).Str("scan_id", snap.ScanID).Msg("publish scan summary failed")
		return
	}
	log.Debug().Str("topic", p.topic).Int("bytes", len(payload)).Msg("scan summary published")
}
