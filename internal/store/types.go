package store

// AlertReason says why an alert was raised for a miner.
type AlertReason string

const (
	// AlertStoppedMining: the miner answered but reports no hashrate, after hashing
	// in the previous scan.
	AlertStoppedMining AlertReason = "stopped_mining"
	// AlertOffline: the miner answered the previous scan but not this one.
	AlertOffline AlertReason = "offline"
)

// Alert is one inventory change worth notifying subscribers about.
type Alert struct {
	Address string      `json:"ip"`
	Label   string      `json:"label"`
	Reason  AlertReason `json:"reason"`
}

// Message is the push notification text for the alert.
func (a Alert) Message() string {
	switch a.Reason {
	case AlertStoppedMining:
		return "Miner " + a.Label + " stopped mining"
	case AlertOffline:
		return "Miner " + a.Label + " is offline"
	default:
		return "Miner " + a.Label + ": " + string(a.Reason)
	}
}
