// Package scanner turns a subnet into normalized device records and runs scans on
// request against the shared state.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"miner-scanner/internal/miner"
	"miner-scanner/internal/model"
)

// ErrInvalidSubnet is returned by Scan when the subnet cannot be enumerated.
var ErrInvalidSubnet = errors.New("invalid subnet")

// Discoverer finds devices and reads their telemetry. *miner.Discoverer implements it.
type Discoverer interface {
	Enumerate(ctx context.Context, subnet string) ([]*miner.Handle, error)
	Fetch(ctx context.Context, h *miner.Handle) (*miner.Telemetry, error)
}

// Scanner runs one discovery pass over a subnet.
type Scanner struct {
	discoverer Discoverer
	normalize  func(*miner.Telemetry) model.DeviceRecord
}

// New returns a Scanner that reads devices through d.
func New(d Discoverer) *Scanner {
	return &Scanner{discoverer: d, normalize: Normalize}
}

// Scan enumerates subnet, then fetches and normalizes every responding device
// concurrently. A device that fails in any way is left out; the result is never nil
// and is in completion order. The only error is a subnet that cannot be enumerated.
func (s *Scanner) Scan(ctx context.Context, subnet string) ([]model.DeviceRecord, error) {
	handles, err := s.discoverer.Enumerate(ctx, subnet)
	if err != nil {
		return []model.DeviceRecord{}, fmt.Errorf("%w: %w", ErrInvalidSubnet, err)
	}

	results := make(chan model.DeviceRecord, len(handles))
	var wg sync.WaitGroup
	for _, h := range handles {
		if h == nil {
			continue
		}
		wg.Add(1)
		go func(h *miner.Handle) {
			defer wg.Done()
			if rec, ok := s.scanDevice(ctx, h); ok {
				results <- rec
			}
		}(h)
	}
	wg.Wait()
	close(results)

	records := make([]model.DeviceRecord, 0, len(results))
	for rec := range results {
		records = append(records, rec)
	}
	log.Info().Str("subnet", subnet).Int("responding", countHandles(handles)).Int("devices", len(records)).Msg("scan finished")
	return records, nil
}

func (s *Scanner) scanDevice(ctx context.Context, h *miner.Handle) (rec model.DeviceRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("ip", h.Address).Interface("panic", r).Msg("device dropped after panic")
			ok = false
		}
	}()

	t, err := s.discoverer.Fetch(ctx, h)
	if err != nil {
		log.Debug().Err(err).Str("ip", h.Address).Msg("device dropped")
		return model.DeviceRecord{}, false
	}
	if t == nil {
		log.Debug().Str("ip", h.Address).Msg("device returned no telemetry")
		return model.DeviceRecord{}, false
	}
	return s.normalize(t), true
}

func countHandles(handles []*miner.Handle) int {
	n := 0
	for _, h := range handles {
		if h != nil {
			n++
		}
	}
	return n
}
