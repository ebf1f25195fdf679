package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miner-scanner/config"
	"miner-scanner/internal/model"
)

func TestInit_SQLiteMigrates(t *testing.T) {
	db, err := Init(&config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:?cache=shared"})
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&model.Miner{}))
	assert.True(t, db.Migrator().HasTable(&model.PushSubscription{}))
}

func TestInit_UnsupportedDriver(t *testing.T) {
	_, err := Init(&config.DatabaseConfig{Driver: "oracle", DSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}
