package parse

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var hashRateRe = regexp.MustCompile(`(?i)^\s*([0-9][0-9,]*(?:\.[0-9]+)?)\s*([kmgtpe]?)(?:h(?:/s)?|hs)?\s*$`)

// HashRate is a hashing speed normalized to terahashes per second.
type HashRate struct {
	TH float64
}

// FromHS builds a HashRate from hashes per second.
func FromHS(hs float64) HashRate { return HashRate{TH: hs / 1e12} }

// FromMH builds a HashRate from megahashes per second (btminer, cgminer "MHS").
func FromMH(mh float64) HashRate { return HashRate{TH: mh / 1e6} }

// FromGH builds a HashRate from gigahashes per second (bmminer "GHS").
func FromGH(gh float64) HashRate { return HashRate{TH: gh / 1e3} }

// String renders the rate with two decimals, e.g. "95.21 TH/s".
func (h HashRate) String() string {
	return strconv.FormatFloat(math.Round(h.TH*100)/100, 'f', 2, 64) + " TH/s"
}

// IsZero reports whether the device is hashing at all.
func (h HashRate) IsZero() bool {
	return h.TH <= 0
}

// ParseHashRate reads strings such as "95.2 TH/s", "110T", "95,210 GH/s" or a bare
// number, which is taken as GH/s.
func ParseHashRate(raw string) (HashRate, error) {
	m := hashRateRe.FindStringSubmatch(raw)
	if m == nil {
		return HashRate{}, fmt.Errorf("unable to parse hashrate: %q", raw)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return HashRate{}, fmt.Errorf("unable to parse hashrate %q: %w", raw, err)
	}

	switch strings.ToLower(m[2]) {
	case "":
		return FromGH(v), nil
	case "k":
		return FromHS(v * 1e3), nil
	case "m":
		return FromMH(v), nil
	case "g":
		return FromGH(v), nil
	case "t":
		return HashRate{TH: v}, nil
	case "p":
		return HashRate{TH: v * 1e3}, nil
	default: // e
		return HashRate{TH: v * 1e6}, nil
	}
}
