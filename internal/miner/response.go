package miner

import "strings"

// Response is one decoded cgminer-style API reply, e.g.
// {"STATUS":[{"STATUS":"S",...}],"SUMMARY":[{...}],"id":1}.
// Vendors disagree on key names and value types, so it is kept untyped.
type Response map[string]any

// Rows returns the list-of-objects payload stored under section. Non-object
// entries are skipped; a missing or mistyped section yields nil.
func (r Response) Rows(section string) []map[string]any {
	if r == nil {
		return nil
	}
	raw, ok := r[section].([]any)
	if !ok {
		return nil
	}
	rows := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			rows = append(rows, m)
		}
	}
	return rows
}

// First returns the first row of section, or nil.
func (r Response) First(section string) map[string]any {
	rows := r.Rows(section)
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

// Has reports whether section is present at all, whatever its shape.
func (r Response) Has(section string) bool {
	if r == nil {
		return false
	}
	_, ok := r[section]
	return ok
}

// Msg returns the btminer style "Msg" object, or nil.
func (r Response) Msg() map[string]any {
	if r == nil {
		return nil
	}
	m, _ := r["Msg"].(map[string]any)
	return m
}

// Status returns the status code ("S", "I", "W", "E", "F") and message of the reply.
// cgminer sends a list under STATUS, btminer a bare string plus a top level Msg.
func (r Response) Status() (code, msg string) {
	if r == nil {
		return "", ""
	}
	switch s := r["STATUS"].(type) {
	case []any:
		if len(s) == 0 {
			return "", ""
		}
		row, _ := s[0].(map[string]any)
		code, _ = row["STATUS"].(string)
		msg, _ = row["Msg"].(string)
	case string:
		code = s
		msg, _ = r["Msg"].(string)
	}
	return strings.TrimSpace(code), strings.TrimSpace(msg)
}

// Failed reports an error or fatal status.
func (r Response) Failed() bool {
	code, _ := r.Status()
	return code == "E" || code == "F"
}
