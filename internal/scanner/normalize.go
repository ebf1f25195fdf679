package scanner

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"miner-scanner/internal/miner"
	"miner-scanner/internal/model"
	"miner-scanner/internal/parse"
)

// maxChains bounds the bmminer chain_* key search; S9 era firmware reports 16 slots.
const maxChains = 16

// Normalize flattens one device's telemetry into a DeviceRecord. It never fails: each
// field is read through an ordered list of vendor shapes and falls back to its
// placeholder when none match.
func Normalize(t *miner.Telemetry) model.DeviceRecord {
	if t == nil {
		return model.NewDeviceRecord("")
	}
	rec := model.NewDeviceRecord(t.Address)
	rec.Make = t.Make

	summary := t.Summary.First("SUMMARY")
	chains := chainStats(t.Stats)
	version := t.Version.First("VERSION")

	rec.Hostname = parse.Text(lookup(t.System, "hostname"))
	rec.Model = firstText(
		lookup(version, "Type"),
		lookup(t.Stats.First("STATS"), "Type"),
		lookup(t.DevDetails.First("DEVDETAILS"), "Model"),
		lookup(t.System, "minertype"),
	)
	rec.Firmware = firstText(
		lookup(t.Version.Msg(), "fw_ver"),
		lookup(version, "CompileTime"),
		lookup(version, "LUXminer", "BOSminer", "BMMiner", "CGMiner"),
		lookup(t.System, "system_filesystem_version"),
	)

	hashrate, hashKnown := readHashRate(summary, chains)
	if hashKnown {
		rec.Hashrate = formatValue(hashrate)
	}
	if expected, ok := readExpectedHashRate(summary, chains); ok {
		rec.ExpectedHashrate = formatValue(expected)
	}

	watts, wattsKnown := parse.LeadingFloat(lookup(summary, "Power", "Power_RT", "power"))
	if !wattsKnown {
		watts, wattsKnown = parse.LeadingFloat(lookup(chains, "chain_power", "total_power"))
	}
	if wattsKnown {
		rec.Wattage = formatValue(watts)
	}
	if wattsKnown && hashKnown && !hashrate.IsZero() {
		rec.Efficiency = formatValue(watts / hashrate.TH)
	}

	rec.EnvTemp = formatNumber(lookup(summary, "Env Temp", "env_temp"))
	if up, ok := parse.Int(lookup(summary, "Elapsed")); ok {
		rec.UptimeSeconds = &up
	} else if up, ok := parse.Int(lookup(chains, "Elapsed")); ok {
		rec.UptimeSeconds = &up
	}

	rec.Hashboards = extractHashboards(t.Devs, chains)
	rec.TemperatureAvg = formatNumber(lookup(summary, "Temperature"))
	if rec.TemperatureAvg == "" {
		if avg, ok := averageBoardTemp(rec.Hashboards); ok {
			rec.TemperatureAvg = formatValue(avg)
		}
	}

	rec.Fans = extractFans(summary, chains)
	rec.Pools = extractPools(t)
	rec.Errors = extractErrors(t)
	rec.IsMining = isMining(hashrate, hashKnown, summary)
	if t.Blink != nil {
		v := *t.Blink
		rec.FaultLight = &v
	}
	return rec
}

// lookup returns the first non-nil value stored under any of keys.
func lookup(m map[string]any, keys ...string) any {
	if m == nil {
		return nil
	}
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstText(values ...any) string {
	for _, v := range values {
		if s := parse.Text(v); s != "" {
			return s
		}
	}
	return ""
}

// formatValue is the single stringification used for every measurement so that plain
// numbers and structured hashrates render alike.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case fmt.Stringer:
		return t.String()
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return strconv.FormatFloat(math.Round(t*100)/100, 'f', -1, 64)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return formatValue(f)
		}
		return t.String()
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	default:
		return parse.Text(t)
	}
}

// formatNumber renders numeric-looking values through formatValue and anything else
// as text.
func formatNumber(v any) string {
	if f, ok := parse.Float(v); ok {
		return formatValue(f)
	}
	return parse.Text(v)
}

// chainStats finds the bmminer STATS row that carries the chain_* and fan* keys.
func chainStats(stats miner.Response) map[string]any {
	for _, row := range stats.Rows("STATS") {
		for _, k := range []string{"chain_rate1", "chain_acn1", "fan_num", "GHS 5s", "total_rateideal"} {
			if _, ok := row[k]; ok {
				return row
			}
		}
	}
	return nil
}

func readHashRate(summary, chains map[string]any) (parse.HashRate, bool) {
	candidates := []struct {
		src  map[string]any
		key  string
		conv func(float64) parse.HashRate
	}{
		{summary, "GHS 5s", parse.FromGH},
		{summary, "GHS av", parse.FromGH},
		{summary, "MHS 5s", parse.FromMH},
		{summary, "MHS 1m", parse.FromMH},
		{summary, "MHS av", parse.FromMH},
		{chains, "GHS 5s", parse.FromGH},
		{chains, "GHS av", parse.FromGH},
	}
	for _, c := range candidates {
		if f, ok := parse.Float(lookup(c.src, c.key)); ok {
			return c.conv(f), true
		}
	}
	return parse.HashRate{}, false
}

func readExpectedHashRate(summary, chains map[string]any) (parse.HashRate, bool) {
	if f, ok := parse.Float(lookup(summary, "Factory GHS")); ok && f > 0 {
		return parse.FromGH(f), true
	}
	if f, ok := parse.Float(lookup(chains, "total_rateideal")); ok && f > 0 {
		return parse.FromGH(f), true
	}
	if s, ok := lookup(chains, "rate_ideal").(string); ok {
		if hr, err := parse.ParseHashRate(s); err == nil {
			return hr, true
		}
	}
	return parse.HashRate{}, false
}

// extractHashboards prefers bmminer chain_* keys, then per-board DEVS rows (btminer,
// cgminer). Board order is the device's.
func extractHashboards(devs miner.Response, chains map[string]any) []model.Hashboard {
	boards := []model.Hashboard{}

	for i := 1; i <= maxChains; i++ {
		n := strconv.Itoa(i)
		rate := lookup(chains, "chain_rate"+n)
		chips := lookup(chains, "chain_acn"+n)
		if rate == nil && chips == nil {
			continue
		}
		if c, ok := parse.Int(chips); ok && c == 0 && parse.Text(rate) == "" {
			continue
		}
		board := model.Hashboard{ChipCount: formatNumber(chips)}
		if f, ok := parse.Float(rate); ok {
			board.Hashrate = formatValue(parse.FromGH(f))
		}
		board.Temperature = boardTemp(chains, n)
		boards = append(boards, board)
	}
	if len(boards) > 0 {
		return boards
	}

	for _, row := range devs.Rows("DEVS") {
		board := model.Hashboard{
			Temperature: formatNumber(lookup(row, "Chip Temp Avg", "Temperature", "temp")),
			ChipCount:   formatNumber(lookup(row, "Effective Chips", "Chip Count", "chips")),
		}
		if f, ok := parse.Float(lookup(row, "MHS av", "MHS 5s")); ok {
			board.Hashrate = formatValue(parse.FromMH(f))
		} else if f, ok := parse.Float(lookup(row, "GHS av", "GHS 5s")); ok {
			board.Hashrate = formatValue(parse.FromGH(f))
		}
		boards = append(boards, board)
	}
	return boards
}

// boardTemp reads the chip temperature of chain n: temp2_n, then the hottest value of
// the dash separated temp_chip n list, then the PCB temp.
func boardTemp(chains map[string]any, n string) string {
	if f, ok := parse.Float(lookup(chains, "temp2_"+n)); ok && f > 0 {
		return formatValue(f)
	}
	if s, ok := lookup(chains, "temp_chip"+n).(string); ok {
		if nums := parse.Numbers(s); len(nums) > 0 {
			hottest := nums[0]
			for _, v := range nums[1:] {
				hottest = math.Max(hottest, v)
			}
			return formatValue(hottest)
		}
	}
	return formatNumber(lookup(chains, "temp"+n))
}

func averageBoardTemp(boards []model.Hashboard) (float64, bool) {
	var sum float64
	var n int
	for _, b := range boards {
		if f, ok := parse.Float(b.Temperature); ok && f > 0 {
			sum += f
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func extractFans(summary, chains map[string]any) []model.Fan {
	fans := []model.Fan{}

	if chains != nil {
		count, hasCount := parse.Int(lookup(chains, "fan_num"))
		for i := 1; i <= 8; i++ {
			v := lookup(chains, "fan"+strconv.Itoa(i))
			if v == nil {
				continue
			}
			if hasCount && int64(len(fans)) >= count {
				break
			}
			if speed, ok := parse.Int(v); ok && speed == 0 && !hasCount {
				continue
			}
			fans = append(fans, model.Fan{Speed: formatNumber(v)})
		}
		if len(fans) > 0 {
			return fans
		}
	}

	for _, k := range []string{"Fan Speed In", "Fan Speed Out"} {
		if v := lookup(summary, k); v != nil {
			fans = append(fans, model.Fan{Speed: formatNumber(v)})
		}
	}
	return fans
}

// extractPools reads the structured POOLS list. When the device sent no such list it
// falls back to any iterable "pools" value (web config, vendor extensions); if that
// fails too the record simply has no pools.
func extractPools(t *miner.Telemetry) []model.Pool {
	pools := []model.Pool{}

	if rows, ok := t.Pools["POOLS"].([]any); ok {
		for _, item := range rows {
			if p, ok := poolFromAny(item); ok {
				pools = append(pools, p)
			}
		}
		return pools
	}

	for _, src := range []map[string]any{t.System, t.Pools, t.Summary.First("SUMMARY"), t.Stats.First("STATS")} {
		raw, ok := lookup(src, "pools", "Pools").([]any)
		if !ok {
			continue
		}
		for _, item := range raw {
			if p, ok := poolFromAny(item); ok {
				pools = append(pools, p)
			}
		}
		return pools
	}
	return pools
}

func poolFromMap(m map[string]any) model.Pool {
	return model.Pool{
		URL:  firstText(lookup(m, "URL", "url", "Stratum URL", "stratum")),
		User: firstText(lookup(m, "User", "user", "username", "Worker", "worker")),
	}
}

func poolFromAny(item any) (model.Pool, bool) {
	switch v := item.(type) {
	case map[string]any:
		return poolFromMap(v), true
	case []any:
		var p model.Pool
		if len(v) > 0 {
			p.URL = parse.Text(v[0])
		}
		if len(v) > 1 {
			p.User = parse.Text(v[1])
		}
		return p, true
	case string, []byte, json.Number:
		return model.Pool{URL: parse.Text(v)}, true
	default:
		return model.Pool{}, false
	}
}

// extractErrors collects failed command statuses, btminer error codes and dead boards.
func extractErrors(t *miner.Telemetry) []string {
	errs := []string{}

	for _, r := range []miner.Response{t.Version, t.Summary, t.Pools, t.Devs, t.Stats, t.DevDetails} {
		if r.Failed() {
			_, msg := r.Status()
			if msg == "" {
				msg = "command failed"
			}
			errs = append(errs, msg)
		}
	}

	if codes, ok := lookup(t.Summary.Msg(), "error_code").([]any); ok {
		for _, c := range codes {
			switch v := c.(type) {
			case map[string]any:
				for code, when := range v {
					errs = append(errs, strings.TrimSpace(code+" "+parse.Text(when)))
				}
			default:
				if s := parse.Text(v); s != "" {
					errs = append(errs, s)
				}
			}
		}
	}

	for i, row := range t.Devs.Rows("DEVS") {
		status := parse.Text(lookup(row, "Status"))
		if status != "" && !strings.EqualFold(status, "Alive") {
			errs = append(errs, fmt.Sprintf("board %d: %s", i+1, status))
		}
	}
	return errs
}

// isMining defaults to true: without a hashrate or an explicit stop there is no
// evidence the device is idle.
func isMining(hashrate parse.HashRate, known bool, summary map[string]any) bool {
	if status, ok := lookup(summary, "Status", "status").(string); ok {
		switch strings.ToLower(status) {
		case "stopped", "dead", "idle":
			return false
		}
	}
	if known {
		return !hashrate.IsZero()
	}
	return true
}
