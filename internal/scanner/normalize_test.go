package scanner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miner-scanner/internal/miner"
	"miner-scanner/internal/model"
	"miner-scanner/internal/parse"
)

func decode(t *testing.T, raw string) miner.Response {
	t.Helper()
	resp, err := miner.DecodeResponse([]byte(raw))
	require.NoError(t, err)
	return resp
}

func antminerTelemetry(t *testing.T) *miner.Telemetry {
	blink := false
	return &miner.Telemetry{
		Address: "10.0.0.21",
		Make:    miner.MakeAntminer,
		Version: decode(t, `{"STATUS":[{"STATUS":"S"}],"VERSION":[{"BMMiner":"1.0.0","CompileTime":"Fri Dec 1 2023","Type":"Antminer S19"}]}`),
		Summary: decode(t, `{"STATUS":[{"STATUS":"S"}],"SUMMARY":[{"Elapsed":86400,"GHS 5s":"95123.45","GHS av":94000.1}]}`),
		Pools: decode(t, `{"STATUS":[{"STATUS":"S"}],"POOLS":[
			{"POOL":0,"URL":"stratum+tcp://pool.example:3333","User":"acct.worker1","Status":"Alive"},
			{"POOL":1,"URL":"stratum+tcp://backup.example:443","User":"acct.worker1","Status":"Alive"}]}`),
		Stats: decode(t, `{"STATUS":[{"STATUS":"S"}],"STATS":[{"BMMiner":"1.0.0","Type":"Antminer S19"},{
			"Elapsed":86400,"GHS 5s":"95123.45","total_rateideal":95000.0,"chain_power":"3250 W",
			"fan_num":4,"fan1":5400,"fan2":5460,"fan3":5520,"fan4":5580,"fan5":0,
			"temp2_1":65,"temp2_2":67,"temp2_3":66,
			"chain_rate1":"31700.12","chain_rate2":"31711.00","chain_rate3":"31712.33","chain_rate4":"",
			"chain_acn1":76,"chain_acn2":76,"chain_acn3":76,"chain_acn4":0}]}`),
		System: map[string]any{"hostname": "rig-01", "minertype": "Antminer S19"},
		Blink:  &blink,
	}
}

func TestNormalize_Antminer(t *testing.T) {
	rec := Normalize(antminerTelemetry(t))

	assert.Equal(t, "10.0.0.21", rec.Address)
	assert.Equal(t, "rig-01", rec.Hostname)
	assert.Equal(t, "Antminer S19", rec.Model)
	assert.Equal(t, miner.MakeAntminer, rec.Make)
	assert.Equal(t, "Fri Dec 1 2023", rec.Firmware)
	assert.Equal(t, "95.12 TH/s", rec.Hashrate)
	assert.Equal(t, "95.00 TH/s", rec.ExpectedHashrate)
	assert.Equal(t, "3250", rec.Wattage)
	assert.Equal(t, "34.17", rec.Efficiency)
	assert.Equal(t, "66", rec.TemperatureAvg, "falls back to mean board temperature")
	assert.Equal(t, "", rec.EnvTemp)
	require.NotNil(t, rec.UptimeSeconds)
	assert.Equal(t, int64(86400), *rec.UptimeSeconds)
	assert.True(t, rec.IsMining)
	require.NotNil(t, rec.FaultLight)
	assert.False(t, *rec.FaultLight)

	assert.Equal(t, []model.Hashboard{
		{Hashrate: "31.70 TH/s", Temperature: "65", ChipCount: "76"},
		{Hashrate: "31.71 TH/s", Temperature: "67", ChipCount: "76"},
		{Hashrate: "31.71 TH/s", Temperature: "66", ChipCount: "76"},
	}, rec.Hashboards)
	assert.Equal(t, []model.Fan{{Speed: "5400"}, {Speed: "5460"}, {Speed: "5520"}, {Speed: "5580"}}, rec.Fans)
	assert.Equal(t, []model.Pool{
		{URL: "stratum+tcp://pool.example:3333", User: "acct.worker1"},
		{URL: "stratum+tcp://backup.example:443", User: "acct.worker1"},
	}, rec.Pools)
	assert.Empty(t, rec.Errors)
	assert.NotNil(t, rec.Errors)
}

func TestNormalize_Whatsminer(t *testing.T) {
	tel := &miner.Telemetry{
		Address:    "10.0.0.22",
		Make:       miner.MakeWhatsminer,
		Version:    decode(t, `{"STATUS":"S","Msg":{"fw_ver":"20230911.12.Rel","api_ver":"2.0.5"}}`),
		Summary:    decode(t, `{"STATUS":[{"STATUS":"S"}],"SUMMARY":[{"Elapsed":3600,"MHS av":110000000.0,"Factory GHS":112000,"Power":3300,"Env Temp":25.5,"Temperature":70.25,"Fan Speed In":4500,"Fan Speed Out":4600}]}`),
		DevDetails: decode(t, `{"STATUS":[{"STATUS":"S"}],"DEVDETAILS":[{"Model":"M30S+VE40"}]}`),
		Devs: decode(t, `{"STATUS":[{"STATUS":"S"}],"DEVS":[
			{"ASC":0,"MHS av":36666666.67,"Chip Temp Avg":70.5,"Effective Chips":156,"Status":"Alive"},
			{"ASC":1,"MHS av":36666666.67,"Chip Temp Avg":71.25,"Effective Chips":156,"Status":"Alive"},
			{"ASC":2,"MHS av":0,"Temperature":69,"Effective Chips":0,"Status":"Dead"}]}`),
		Pools: decode(t, `{"STATUS":[{"STATUS":"S"}],"POOLS":[{"URL":"stratum+tcp://ws.example:3333","User":"acct.m30"}]}`),
	}

	rec := Normalize(tel)

	assert.Equal(t, "M30S+VE40", rec.Model)
	assert.Equal(t, "20230911.12.Rel", rec.Firmware)
	assert.Equal(t, "110.00 TH/s", rec.Hashrate)
	assert.Equal(t, "112.00 TH/s", rec.ExpectedHashrate)
	assert.Equal(t, "3300", rec.Wattage)
	assert.Equal(t, "30", rec.Efficiency)
	assert.Equal(t, "25.5", rec.EnvTemp)
	assert.Equal(t, "70.25", rec.TemperatureAvg)
	assert.Equal(t, "", rec.Hostname)
	assert.Nil(t, rec.FaultLight)
	assert.Equal(t, []model.Fan{{Speed: "4500"}, {Speed: "4600"}}, rec.Fans)
	require.Len(t, rec.Hashboards, 3)
	assert.Equal(t, model.Hashboard{Hashrate: "36.67 TH/s", Temperature: "70.5", ChipCount: "156"}, rec.Hashboards[0])
	assert.Equal(t, model.Hashboard{Hashrate: "0.00 TH/s", Temperature: "69", ChipCount: "0"}, rec.Hashboards[2])
	assert.Equal(t, []model.Pool{{URL: "stratum+tcp://ws.example:3333", User: "acct.m30"}}, rec.Pools)
	assert.Equal(t, []string{"board 3: Dead"}, rec.Errors)
}

func TestNormalize_SixBoardsNoPools(t *testing.T) {
	tel := &miner.Telemetry{
		Address: "10.0.0.30",
		Summary: decode(t, `{"STATUS":[{"STATUS":"S"}],"SUMMARY":[{"MHS av":150000000}]}`),
		Devs: decode(t, `{"STATUS":[{"STATUS":"S"}],"DEVS":[
			{"MHS av":25000000,"Temperature":60},{"MHS av":25000000,"Temperature":61},
			{"MHS av":25000000,"Temperature":62},{"MHS av":25000000,"Temperature":63},
			{"MHS av":25000000,"Temperature":64},{"MHS av":25000000,"Temperature":65}]}`),
	}

	rec := Normalize(tel)

	assert.Len(t, rec.Hashboards, 6)
	assert.NotNil(t, rec.Pools)
	assert.Empty(t, rec.Pools)
	assert.Equal(t, "62.5", rec.TemperatureAvg)
}

func TestNormalize_PoolsFallback(t *testing.T) {
	tel := &miner.Telemetry{
		Address: "10.0.0.31",
		System: map[string]any{"pools": []any{
			[]any{"stratum+tcp://a.example:3333", "w1"},
			map[string]any{"url": "stratum+tcp://b.example:3333", "username": "w2"},
			map[string]any{"Stratum URL": "stratum+tcp://c.example:3333", "Worker": "w3"},
			42.0,
		}},
	}

	rec := Normalize(tel)

	assert.Equal(t, []model.Pool{
		{URL: "stratum+tcp://a.example:3333", User: "w1"},
		{URL: "stratum+tcp://b.example:3333", User: "w2"},
		{URL: "stratum+tcp://c.example:3333", User: "w3"},
	}, rec.Pools)
}

func TestNormalize_EmptyPoolsSectionDoesNotFallBack(t *testing.T) {
	tel := &miner.Telemetry{
		Address: "10.0.0.32",
		Pools:   decode(t, `{"STATUS":[{"STATUS":"S"}],"POOLS":[]}`),
		System:  map[string]any{"pools": []any{[]any{"stratum+tcp://stale:3333", "old"}}},
	}

	rec := Normalize(tel)
	assert.Empty(t, rec.Pools)
}

func TestNormalize_PoolsSectionShapes(t *testing.T) {
	testCases := []struct {
		name     string
		pools    miner.Response
		system   map[string]any
		expected []model.Pool
	}{
		{
			name:  "pairs inside POOLS",
			pools: decode(t, `{"POOLS":[["stratum+tcp://a:3333","w1"],["stratum+tcp://b:3333","w2"]]}`),
			expected: []model.Pool{
				{URL: "stratum+tcp://a:3333", User: "w1"},
				{URL: "stratum+tcp://b:3333", User: "w2"},
			},
		},
		{
			name:     "POOLS as an object falls back to web config",
			pools:    decode(t, `{"POOLS":{"URL":"stratum+tcp://ignored:3333"}}`),
			system:   map[string]any{"pools": []any{[]any{"stratum+tcp://c:3333", "w3"}}},
			expected: []model.Pool{{URL: "stratum+tcp://c:3333", User: "w3"}},
		},
		{
			name:     "POOLS as a string falls back to web config",
			pools:    decode(t, `{"POOLS":"unavailable"}`),
			system:   map[string]any{"pools": []any{map[string]any{"url": "stratum+tcp://d:3333", "user": "w4"}}},
			expected: []model.Pool{{URL: "stratum+tcp://d:3333", User: "w4"}},
		},
		{
			name:     "mistyped POOLS and no fallback",
			pools:    decode(t, `{"POOLS":42}`),
			expected: []model.Pool{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := Normalize(&miner.Telemetry{Address: "10.0.0.33", Pools: tc.pools, System: tc.system})
			assert.Equal(t, tc.expected, rec.Pools)
		})
	}
}

func TestNormalize_PlaceholdersForMissingData(t *testing.T) {
	for name, tel := range map[string]*miner.Telemetry{
		"nil telemetry":   nil,
		"empty telemetry": {Address: "10.0.0.40"},
		"mistyped values": {
			Address: "10.0.0.40",
			Summary: miner.Response{"SUMMARY": "not a list"},
			Stats:   miner.Response{"STATS": []any{"x", 3.0}},
			Devs:    miner.Response{"DEVS": []any{map[string]any{"MHS av": []any{}}}},
			System:  map[string]any{"hostname": nil, "pools": "nope"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			rec := Normalize(tel)
			assert.True(t, rec.IsMining)
			assert.Nil(t, rec.UptimeSeconds)
			assert.Nil(t, rec.FaultLight)
			assert.Equal(t, "", rec.Hashrate)
			assert.Equal(t, "", rec.Efficiency)
			assert.NotNil(t, rec.Hashboards)
			assert.NotNil(t, rec.Fans)
			assert.NotNil(t, rec.Pools)
			assert.NotNil(t, rec.Errors)
			assert.Empty(t, rec.Pools)

			b, err := json.Marshal(rec)
			require.NoError(t, err)
			assert.Contains(t, string(b), `"workers":[]`)
			assert.Contains(t, string(b), `"uptime":null`)
		})
	}
}

func TestNormalize_ByteTextDecodedPermissively(t *testing.T) {
	tel := &miner.Telemetry{
		Address: "10.0.0.41",
		System:  map[string]any{"hostname": []byte("rig\xff01")},
	}

	rec := Normalize(tel)
	assert.Equal(t, "rig\uFFFD01", rec.Hostname)
}

func TestNormalize_IsMining(t *testing.T) {
	zero := &miner.Telemetry{Summary: decode(t, `{"SUMMARY":[{"GHS 5s":0}]}`)}
	assert.False(t, Normalize(zero).IsMining)

	hashing := &miner.Telemetry{Summary: decode(t, `{"SUMMARY":[{"GHS 5s":1200.5}]}`)}
	assert.True(t, Normalize(hashing).IsMining)

	stopped := &miner.Telemetry{Summary: decode(t, `{"SUMMARY":[{"GHS 5s":1200.5,"Status":"Stopped"}]}`)}
	assert.False(t, Normalize(stopped).IsMining)

	unknown := &miner.Telemetry{Summary: decode(t, `{"SUMMARY":[{"Elapsed":10}]}`)}
	assert.True(t, Normalize(unknown).IsMining)
}

func TestNormalize_Errors(t *testing.T) {
	tel := &miner.Telemetry{
		Address: "10.0.0.42",
		Summary: decode(t, `{"STATUS":"S","Msg":{"error_code":[{"329":"2024-01-01 10:00:00"},"2010"]}}`),
		Stats:   decode(t, `{"STATUS":[{"STATUS":"E","Msg":"Invalid command"}]}`),
		Pools:   decode(t, `{"STATUS":[{"STATUS":"F"}]}`),
	}

	rec := Normalize(tel)
	assert.Equal(t, []string{
		"command failed",
		"Invalid command",
		"329 2024-01-01 10:00:00",
		"2010",
	}, rec.Errors)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{parse.HashRate{TH: 104.456}, "104.46 TH/s"},
		{3250.0, "3250"},
		{34.16616, "34.17"},
		{0.5, "0.5"},
		{json.Number("71.125"), "71.13"},
		{int64(42), "42"},
		{7, "7"},
		{"  text  ", "text"},
		{[]byte("bytes"), "bytes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatValue(tt.in), "formatValue(%#v)", tt.in)
	}
}
