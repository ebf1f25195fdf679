package model

import "time"

// Miner is the inventory row kept for every address a scan has ever returned.
// Only the latest observation is stored.
type Miner struct {
	Address   string    `gorm:"primaryKey;size:64" json:"ip"`
	Hostname  string    `gorm:"size:255" json:"hostname"`
	Make      string    `gorm:"size:64" json:"make"`
	Model     string    `gorm:"size:128" json:"model"`
	Firmware  string    `gorm:"size:128" json:"firmware"`
	Hashrate  string    `gorm:"size:64" json:"hashrate"`
	IsMining  bool      `gorm:"not null" json:"is_mining"`
	Online    bool      `gorm:"not null;index" json:"online"`
	FirstSeen time.Time `gorm:"not null" json:"first_seen"`
	LastSeen  time.Time `gorm:"not null;index" json:"last_seen"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName prefers the hostname and falls back to the address.
func (m Miner) DisplayName() string {
	if m.Hostname != "" {
		return m.Hostname
	}
	return m.Address
}
