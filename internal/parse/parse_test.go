package parse

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHashRate(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  string
		expectErr bool
	}{
		{name: "Terahash with unit", raw: "95.2 TH/s", expected: "95.20 TH/s"},
		{name: "Short suffix", raw: "110T", expected: "110.00 TH/s"},
		{name: "Gigahash with separators", raw: "95,210 GH/s", expected: "95.21 TH/s"},
		{name: "Bare number is GH/s", raw: "13500", expected: "13.50 TH/s"},
		{name: "Megahash", raw: "98000000 MH/s", expected: "98.00 TH/s"},
		{name: "Petahash", raw: "1.5 PH/s", expected: "1500.00 TH/s"},
		{name: "Garbage", raw: "fast", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hr, err := ParseHashRate(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, hr.String())
		})
	}
}

func TestHashRate_IsZero(t *testing.T) {
	assert.True(t, HashRate{}.IsZero())
	assert.False(t, FromGH(1).IsZero())
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "stratum+tcp://pool", Text([]byte("stratum+tcp://pool\x00\x00")))
	assert.Equal(t, "worker�1", Text([]byte{'w', 'o', 'r', 'k', 'e', 'r', 0xff, '1'}))
	assert.Equal(t, "12.5", Text(json.Number("12.5")))
	assert.Equal(t, "95.00 TH/s", Text(HashRate{TH: 95}))
	assert.Equal(t, "7", Text(7))
}

func TestFloat(t *testing.T) {
	testCases := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{name: "float64", in: 1.5, want: 1.5, ok: true},
		{name: "json number", in: json.Number("3250"), want: 3250, ok: true},
		{name: "numeric string", in: " 13,500.5 ", want: 13500.5, ok: true},
		{name: "unit string", in: "3250 W", ok: false},
		{name: "empty string", in: "", ok: false},
		{name: "nil", in: nil, ok: false},
		{name: "bool", in: true, ok: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Float(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.InDelta(t, tc.want, got, 1e-9)
			}
		})
	}
}

func TestLeadingFloat(t *testing.T) {
	f, ok := LeadingFloat("3250 W")
	assert.True(t, ok)
	assert.Equal(t, 3250.0, f)

	_, ok = LeadingFloat("W 3250")
	assert.False(t, ok)
}

func TestNumbersAndInt(t *testing.T) {
	assert.Equal(t, []float64{58, 56, 72, 70}, Numbers("58-56-72-70"))
	assert.Empty(t, Numbers("n/a"))

	i, ok := Int(json.Number("86400"))
	assert.True(t, ok)
	assert.Equal(t, int64(86400), i)

	i, ok = Int("12.9")
	assert.True(t, ok)
	assert.Equal(t, int64(12), i)
}
