// Package state holds the most recent scan result and the Idle/Scanning state machine
// shared by the scheduler and every consumer.
package state

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"miner-scanner/internal/model"
)

// Snapshot is a consistent, caller-owned copy of the scan state.
type Snapshot struct {
	Records    []model.DeviceRecord
	LastScanAt *time.Time
	Scanning   bool
	// Version counts commits; it changes exactly when Records may have changed.
	Version uint64
	ScanID  string
	// LastError is set when the last run could not scan at all (e.g. a bad subnet).
	LastError string
}

// Result is what one scan run commits.
type Result struct {
	ScanID     string
	Records    []model.DeviceRecord
	FinishedAt time.Time
	Err        error
}

// SubscriberID identifies a listener registered with Subscribe.
type SubscriberID uint64

// State is safe for concurrent use. The zero value is not usable; call New.
type State struct {
	mu            sync.Mutex
	records       []model.DeviceRecord
	lastScanAt    *time.Time
	scanning      bool
	scanRequested bool
	version       uint64
	scanID        string
	lastError     string

	wake chan struct{}

	subMu  sync.RWMutex
	subs   map[SubscriberID]func(Snapshot)
	nextID SubscriberID

	// commits waiting for delivery, in version order
	deliverMu  sync.Mutex
	pending    []Snapshot
	delivering bool
}

// New returns an idle State with no results.
func New() *State {
	return &State{
		records: []model.DeviceRecord{},
		wake:    make(chan struct{}, 1),
		subs:    make(map[SubscriberID]func(Snapshot)),
	}
}

// RequestScan asks for a scan. It returns false while a scan is running. Requests made
// while one is already pending are accepted and coalesce into that run.
func (s *State) RequestScan() bool {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return false
	}
	s.scanRequested = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// ConsumeScanRequest clears a pending request and, if there was one, moves the state to
// Scanning. The caller that gets true owns the run and must Commit.
func (s *State) ConsumeScanRequest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.scanRequested || s.scanning {
		return false
	}
	s.scanRequested = false
	s.scanning = true
	return true
}

// Commit publishes the result of a run and returns to Idle. Subscribers are called
// afterwards with the committed snapshot, outside the lock.
func (s *State) Commit(r Result) {
	at := r.FinishedAt
	if at.IsZero() {
		at = time.Now()
	}
	records := model.CloneRecords(r.Records)

	s.mu.Lock()
	s.records = records
	s.lastScanAt = &at
	s.scanID = r.ScanID
	s.lastError = ""
	if r.Err != nil {
		s.lastError = r.Err.Error()
	}
	s.version++
	s.scanning = false
	snap := s.snapshotLocked()
	s.deliverMu.Lock()
	s.pending = append(s.pending, snap)
	s.deliverMu.Unlock()
	s.mu.Unlock()

	s.deliver()
}

// deliver hands queued commits to the subscribers one at a time, oldest first. When
// another goroutine is already delivering, the commit is left on the queue for it and
// deliver returns at once.
func (s *State) deliver() {
	s.deliverMu.Lock()
	if s.delivering {
		s.deliverMu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		snap := s.pending[0]
		s.pending[0] = Snapshot{}
		s.pending = s.pending[1:]
		s.deliverMu.Unlock()

		s.notify(snap)

		s.deliverMu.Lock()
	}
	s.delivering = false
	s.deliverMu.Unlock()
}

// Snapshot returns a deep copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		Records:   model.CloneRecords(s.records),
		Scanning:  s.scanning,
		Version:   s.version,
		ScanID:    s.scanID,
		LastError: s.lastError,
	}
	if s.lastScanAt != nil {
		at := *s.lastScanAt
		snap.LastScanAt = &at
	}
	return snap
}

// Scanning reports whether a run is in flight.
func (s *State) Scanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// Version returns the commit counter without copying records.
func (s *State) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Wake fires after an accepted RequestScan. It may coalesce several requests.
func (s *State) Wake() <-chan struct{} {
	return s.wake
}

// Subscribe registers fn to be called after every commit. Listeners receive commits
// one at a time in Version order; a commit made while an earlier one is still being
// delivered is queued and handed over by the goroutine already delivering.
func (s *State) Subscribe(fn func(Snapshot)) SubscriberID {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextID++
	s.subs[s.nextID] = fn
	return s.nextID
}

// Unsubscribe removes a listener. Unknown ids are ignored.
func (s *State) Unsubscribe(id SubscriberID) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	delete(s.subs, id)
}

func (s *State) notify(snap Snapshot) {
	s.subMu.RLock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		// each listener gets its own copy
		c := snap
		c.Records = model.CloneRecords(snap.Records)
		callListener(fn, c)
	}
}

func callListener(fn func(Snapshot), snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Uint64("version", snap.Version).Msg("scan listener panicked")
		}
	}()
	fn(snap)
}
