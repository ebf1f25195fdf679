package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeviceRecord_Placeholders(t *testing.T) {
	rec := NewDeviceRecord("10.0.0.5")

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	for _, key := range []string{
		"ip", "hostname", "model", "make", "firmware", "hashrate", "expected_hashrate",
		"wattage", "efficiency", "temperature_avg", "env_temp", "uptime", "is_mining",
		"fault_light", "hashboards", "fans", "workers", "errors",
	} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, true, fields["is_mining"])
	assert.Nil(t, fields["uptime"])
	assert.Nil(t, fields["fault_light"])
	assert.Equal(t, []any{}, fields["workers"])
	assert.Equal(t, []any{}, fields["hashboards"])
}

func TestDeviceRecord_CloneIsDeep(t *testing.T) {
	uptime := int64(42)
	light := true
	rec := NewDeviceRecord("10.0.0.5")
	rec.UptimeSeconds = &uptime
	rec.FaultLight = &light
	rec.Pools = append(rec.Pools, Pool{URL: "stratum+tcp://a", User: "w1"})
	rec.Errors = append(rec.Errors, "board 1: Dead")

	c := rec.Clone()
	*c.UptimeSeconds = 7
	*c.FaultLight = false
	c.Pools[0].User = "changed"
	c.Errors[0] = "changed"

	assert.Equal(t, int64(42), *rec.UptimeSeconds)
	assert.True(t, *rec.FaultLight)
	assert.Equal(t, "w1", rec.Pools[0].User)
	assert.Equal(t, "board 1: Dead", rec.Errors[0])
}

func TestDeviceRecord_Label(t *testing.T) {
	rec := NewDeviceRecord("10.0.0.5")
	assert.Equal(t, "10.0.0.5", rec.Label())
	rec.Hostname = "rack1-s19"
	assert.Equal(t, "rack1-s19", rec.Label())
}
