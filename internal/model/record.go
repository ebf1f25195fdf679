package model

// Hashboard is the per-board slice of a miner's telemetry.
type Hashboard struct {
	Hashrate    string `json:"hashrate"`
	Temperature string `json:"temp"`
	ChipCount   string `json:"chips"`
}

// Fan holds one fan reading as reported by the device.
type Fan struct {
	Speed string `json:"speed"`
}

// Pool is one configured mining pool. Order follows the device, pool 1 is primary.
type Pool struct {
	URL  string `json:"url"`
	User string `json:"user"`
}

// DeviceRecord is the normalized, vendor-independent view of one miner.
//
// Every field always carries a value: strings default to "", slices to empty,
// IsMining to true. UptimeSeconds and FaultLight are nil when the device did not
// report them and encode as JSON null.
type DeviceRecord struct {
	Address          string      `json:"ip"`
	Hostname         string      `json:"hostname"`
	Model            string      `json:"model"`
	Make             string      `json:"make"`
	Firmware         string      `json:"firmware"`
	Hashrate         string      `json:"hashrate"`
	ExpectedHashrate string      `json:"expected_hashrate"`
	Wattage          string      `json:"wattage"`
	Efficiency       string      `json:"efficiency"`
	TemperatureAvg   string      `json:"temperature_avg"`
	EnvTemp          string      `json:"env_temp"`
	UptimeSeconds    *int64      `json:"uptime"`
	IsMining         bool        `json:"is_mining"`
	FaultLight       *bool       `json:"fault_light"`
	Hashboards       []Hashboard `json:"hashboards"`
	Fans             []Fan       `json:"fans"`
	Pools            []Pool      `json:"workers"`
	Errors           []string    `json:"errors"`
}

// NewDeviceRecord returns a record for address with every field set to its placeholder.
func NewDeviceRecord(address string) DeviceRecord {
	return DeviceRecord{
		Address:    address,
		IsMining:   true,
		Hashboards: []Hashboard{},
		Fans:       []Fan{},
		Pools:      []Pool{},
		Errors:     []string{},
	}
}

// Clone returns a deep copy of the record.
func (r DeviceRecord) Clone() DeviceRecord {
	c := r
	if r.UptimeSeconds != nil {
		v := *r.UptimeSeconds
		c.UptimeSeconds = &v
	}
	if r.FaultLight != nil {
		v := *r.FaultLight
		c.FaultLight = &v
	}
	c.Hashboards = append(make([]Hashboard, 0, len(r.Hashboards)), r.Hashboards...)
	c.Fans = append(make([]Fan, 0, len(r.Fans)), r.Fans...)
	c.Pools = append(make([]Pool, 0, len(r.Pools)), r.Pools...)
	c.Errors = append(make([]string, 0, len(r.Errors)), r.Errors...)
	return c
}

// CloneRecords deep-copies a record list. The result is never nil.
func CloneRecords(records []DeviceRecord) []DeviceRecord {
	out := make([]DeviceRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// Label is the name shown for a miner in lists and alerts.
func (r DeviceRecord) Label() string {
	if r.Hostname != "" {
		return r.Hostname
	}
	return r.Address
}
