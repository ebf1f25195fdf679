package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"miner-scanner/config"
	"miner-scanner/internal/model"
	"miner-scanner/internal/state"
)

// Service is the scan scheduler. It waits for accepted scan requests on the shared
// state and runs them one at a time.
type Service struct {
	cfg     config.ScannerConfig
	state   *state.State
	scanner *Scanner
	now     func() time.Time
}

// NewService creates and initializes a new scheduler.
func NewService(cfg config.ScannerConfig, st *state.State, sc *Scanner) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Service{cfg: cfg, state: st, scanner: sc, now: time.Now}
}

// Run starts the scheduler loop and blocks until ctx is cancelled. Scans run on their
// own goroutine so the loop stays responsive; a scan in flight when ctx ends is
// cancelled through ctx and still commits.
func (s *Service) Run(ctx context.Context) {
	log.Info().Str("subnet", s.cfg.Subnet).Dur("auto_scan", s.cfg.AutoScanInterval).Msg("starting scan scheduler")

	if s.cfg.ScanOnStart {
		s.state.RequestScan()
	}

	poll := time.NewTicker(s.cfg.PollInterval)
	defer poll.Stop()

	var auto <-chan time.Time
	if s.cfg.AutoScanInterval > 0 {
		t := time.NewTicker(s.cfg.AutoScanInterval)
		defer t.Stop()
		auto = t.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scan scheduler shutting down")
			return
		case <-s.state.Wake():
			s.dispatch(ctx)
		case <-poll.C:
			s.dispatch(ctx)
		case <-auto:
			if !s.state.RequestScan() {
				log.Debug().Msg("auto scan skipped, scan in progress")
			}
			s.dispatch(ctx)
		}
	}
}

func (s *Service) dispatch(ctx context.Context) {
	if !s.state.ConsumeScanRequest() {
		return
	}
	go s.run(ctx)
}

// ScanOnce requests and performs one scan synchronously. It returns false without
// scanning when another scan is already in progress.
func (s *Service) ScanOnce(ctx context.Context) bool {
	s.state.RequestScan()
	if !s.state.ConsumeScanRequest() {
		return false
	}
	s.run(ctx)
	return true
}

// run executes a scan the caller has already claimed with ConsumeScanRequest. It
// always commits, so the state never stays Scanning.
func (s *Service) run(ctx context.Context) {
	id := uuid.NewString()
	started := s.now()
	log.Info().Str("scan_id", id).Str("subnet", s.cfg.Subnet).Msg("scan started")

	records, err := s.scan(ctx)
	if err != nil {
		log.Error().Err(err).Str("scan_id", id).Msg("scan failed")
		records = []model.DeviceRecord{}
	}

	s.state.Commit(state.Result{
		ScanID:     id,
		Records:    records,
		FinishedAt: s.now(),
		Err:        err,
	})
	log.Info().Str("scan_id", id).Int("devices", len(records)).Dur("took", s.now().Sub(started)).Msg("scan committed")
}

func (s *Service) scan(ctx context.Context) (records []model.DeviceRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("scan panicked: %v", r)
		}
	}()
	return s.scanner.Scan(ctx, s.cfg.Subnet)
}
