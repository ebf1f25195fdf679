package parse

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var numberRe = regexp.MustCompile(`-?[0-9]+(?:\.[0-9]+)?`)

// Text decodes a loosely typed text value. Byte slices and invalid UTF-8 are decoded
// permissively, undecodable bytes become U+FFFD. nil yields "".
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(toValidUTF8(t))
	case []byte:
		return strings.TrimSpace(toValidUTF8(string(t)))
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func toValidUTF8(s string) string {
	s = strings.TrimRight(s, "\x00")
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

// Float extracts a number from a loosely typed value. Strings must be numeric apart
// from surrounding space and thousands separators.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	case []byte:
		return Float(string(t))
	default:
		return 0, false
	}
}

// LeadingFloat is Float with a fallback for values carrying a unit suffix, e.g. "3250 W".
func LeadingFloat(v any) (float64, bool) {
	if f, ok := Float(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	m := numberRe.FindString(strings.TrimSpace(s))
	if m == "" || !strings.HasPrefix(strings.TrimSpace(s), m) {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	return f, err == nil
}

// Numbers returns every number found in s, e.g. "58-56-72-70" -> [58 56 72 70].
func Numbers(s string) []float64 {
	var out []float64
	for _, m := range numberRe.FindAllString(strings.ReplaceAll(s, "-", " "), -1) {
		if f, err := strconv.ParseFloat(m, 64); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// Int extracts an integer from a loosely typed value, truncating fractions.
func Int(v any) (int64, bool) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	f, ok := Float(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
