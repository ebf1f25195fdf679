package tui

import (
	"fmt"
	"strconv"
	"strings"

	"miner-scanner/internal/model"
)

const (
	maxPoolURL    = 50
	maxBoards     = 4
	maxErrors     = 5
	maxErrorWidth = 60
)

// DetailLines renders every field of rec as display lines. Long pool URLs and
// errors are cut, and only the first boards and errors are listed.
func DetailLines(rec model.DeviceRecord) []string {
	lines := []string{
		"IP: " + rec.Address,
		"Hostname: " + rec.Hostname,
		fmt.Sprintf("Model: %s (%s)", rec.Model, rec.Make),
		"Firmware: " + rec.Firmware,
		"Hashrate: " + rec.Hashrate,
		"Expected: " + rec.ExpectedHashrate,
		"Wattage: " + withUnit(rec.Wattage, "W"),
		"Efficiency: " + withUnit(rec.Efficiency, " J/TH"),
		"Temp avg: " + withUnit(rec.TemperatureAvg, "C"),
		"Env temp: " + withUnit(rec.EnvTemp, "C"),
		"Uptime: " + formatUptime(rec.UptimeSeconds),
		"Mining: " + strconv.FormatBool(rec.IsMining),
		"Fault light: " + formatOptionalBool(rec.FaultLight),
	}

	for i, p := range rec.Pools {
		user := p.User
		if user == "" {
			user = "(no worker)"
		}
		lines = append(lines, fmt.Sprintf("Pool %d: %s", i+1, user))
		if p.URL != "" {
			lines = append(lines, "  URL: "+truncate(p.URL, maxPoolURL))
		}
	}

	for i, hb := range rec.Hashboards {
		if i == maxBoards {
			break
		}
		lines = append(lines, fmt.Sprintf("Board %d: %s %s", i+1, orUnknown(hb.Hashrate), orUnknown(withUnit(hb.Temperature, "C"))))
	}

	if len(rec.Fans) > 0 {
		speeds := make([]string, len(rec.Fans))
		for i, f := range rec.Fans {
			speeds[i] = orUnknown(f.Speed)
		}
		lines = append(lines, "Fans: "+strings.Join(speeds, ", "))
	}

	if len(rec.Errors) > 0 {
		lines = append(lines, "Errors:")
		for i, e := range rec.Errors {
			if i == maxErrors {
				break
			}
			lines = append(lines, "  "+clip(e, maxErrorWidth))
		}
	}
	return lines
}

// truncate cuts s to n runes and marks the cut with "...".
func truncate(s string, n int) string {
	if c := clip(s, n); c != s {
		return c + "..."
	}
	return s
}

// clip cuts s to at most n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func withUnit(v, unit string) string {
	if v == "" {
		return ""
	}
	return v + unit
}

func orUnknown(v string) string {
	if v == "" {
		return "?"
	}
	return v
}

func formatUptime(s *int64) string {
	if s == nil {
		return ""
	}
	return strconv.FormatInt(*s, 10) + "s"
}

func formatOptionalBool(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
