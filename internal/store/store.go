package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"miner-scanner/internal/model"
	"miner-scanner/internal/state"
)

// Store defines the interface for all database operations.
type Store interface {
	// SyncInventory records the latest scan and returns the alerts it implies.
	SyncInventory(ctx context.Context, now time.Time, records []model.DeviceRecord) ([]Alert, error)
	ListMiners(ctx context.Context) ([]model.Miner, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// ListMiners returns the inventory, most recently seen first.
func (s *gormStore) ListMiners(ctx context.Context) ([]model.Miner, error) {
	var miners []model.Miner
	if err := s.db.WithContext(ctx).Order("last_seen DESC").Order("address").Find(&miners).Error; err != nil {
		return nil, fmt.Errorf("failed to list miners: %w", err)
	}
	return miners, nil
}

// SyncInventory upserts every scanned miner and marks miners missing from the scan as
// offline, in one transaction. Alerts are only raised for transitions: a miner that
// was online and hashing and now is not.
func (s *gormStore) SyncInventory(ctx context.Context, now time.Time, records []model.DeviceRecord) ([]Alert, error) {
	existing, err := s.fetchAllMiners(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inventory: %w", err)
	}

	seen := make(map[string]bool, len(records))
	var upserts []model.Miner
	var alerts []Alert
	for _, rec := range records {
		if rec.Address == "" || seen[rec.Address] {
			continue
		}
		seen[rec.Address] = true

		prev, known := existing[rec.Address]
		upserts = append(upserts, prepareMiner(rec, prev, known, now))
		if known && prev.Online && prev.IsMining && !rec.IsMining {
			alerts = append(alerts, Alert{Address: rec.Address, Label: rec.Label(), Reason: AlertStoppedMining})
		}
	}

	var gone []string
	for addr, m := range existing {
		if !seen[addr] && m.Online {
			gone = append(gone, addr)
		}
	}
	sort.Strings(gone)
	for _, addr := range gone {
		alerts = append(alerts, Alert{Address: addr, Label: existing[addr].DisplayName(), Reason: AlertOffline})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(upserts) > 0 {
			if err := batchUpsertMiners(tx, upserts); err != nil {
				return fmt.Errorf("failed to upsert %d miners: %w", len(upserts), err)
			}
		}
		if len(gone) > 0 {
			if err := tx.Model(&model.Miner{}).Where("address IN ?", gone).Update("online", false).Error; err != nil {
				return fmt.Errorf("failed to mark %d miners offline: %w", len(gone), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Int("upserted", len(upserts)).Int("offline", len(gone)).Int("alerts", len(alerts)).Msg("inventory synced")
	return alerts, nil
}

func (s *gormStore) fetchAllMiners(ctx context.Context) (map[string]model.Miner, error) {
	var miners []model.Miner
	if err := s.db.WithContext(ctx).Find(&miners).Error; err != nil {
		return nil, err
	}
	minerMap := make(map[string]model.Miner, len(miners))
	for _, m := range miners {
		minerMap[m.Address] = m
	}
	return minerMap, nil
}

func prepareMiner(rec model.DeviceRecord, prev model.Miner, known bool, now time.Time) model.Miner {
	firstSeen := now
	if known && !prev.FirstSeen.IsZero() {
		firstSeen = prev.FirstSeen
	}
	return model.Miner{
		Address:   rec.Address,
		Hostname:  rec.Hostname,
		Make:      rec.Make,
		Model:     rec.Model,
		Firmware:  rec.Firmware,
		Hashrate:  rec.Hashrate,
		IsMining:  rec.IsMining,
		Online:    true,
		FirstSeen: firstSeen,
		LastSeen:  now,
	}
}

func batchUpsertMiners(tx *gorm.DB, miners []model.Miner) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"hostname", "make", "model", "firmware", "hashrate", "is_mining", "online", "last_seen", "updated_at"}),
	}).Create(&miners).Error
}

// SyncOnCommit returns a state subscriber that feeds each committed scan into the
// inventory and hands resulting alerts to dispatch. Runs that failed outright are
// skipped so a bad subnet does not mark the whole fleet offline.
func SyncOnCommit(ctx context.Context, s Store, dispatch func(Alert)) func(state.Snapshot) {
	return func(snap state.Snapshot) {
		if snap.LastError != "" {
			return
		}
		now := time.Now()
		if snap.LastScanAt != nil {
			now = *snap.LastScanAt
		}
		alerts, err := s.SyncInventory(ctx, now, snap.Records)
		if err != nil {
			log.Error().Err(err).Str("scan_id", snap.ScanID).Msg("inventory sync failed")
			return
		}
		for _, a := range alerts {
			dispatch(a)
		}
	}
}
