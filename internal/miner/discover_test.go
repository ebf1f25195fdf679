package miner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const antminerVersion = `{"STATUS":[{"STATUS":"S","Msg":"BMMiner versions"}],"VERSION":[{"BMMiner":"1.0.0","API":"3.1","Type":"Antminer S19j Pro","CompileTime":"Mon Jan 10 2022"}],"id":1}`

func TestDiscoverer_EnumerateAndFetch(t *testing.T) {
	port := startFakeMiner(t, map[string]string{
		"version": antminerVersion,
		"summary": `{"STATUS":[{"STATUS":"S"}],"SUMMARY":[{"Elapsed":3600,"GHS 5s":"100000.5"}],"id":1}`,
		"pools":   `{"STATUS":[{"STATUS":"S"}],"POOLS":[{"POOL":0,"URL":"stratum+tcp://a:3333","User":"acct.w1"}],"id":1}`,
	})
	d := NewDiscoverer(Options{Port: port, Timeout: time.Second, Concurrency: 4})

	handles, err := d.Enumerate(context.Background(), "127.0.0.1/32")
	require.NoError(t, err)
	require.Len(t, handles, 1)
	require.NotNil(t, handles[0])
	assert.Equal(t, "127.0.0.1", handles[0].Address)
	assert.Equal(t, MakeAntminer, handles[0].Make)

	tel, err := d.Fetch(context.Background(), handles[0])
	require.NoError(t, err)
	assert.NotNil(t, tel.Summary)
	assert.NotNil(t, tel.Pools)
	assert.Nil(t, tel.Devs, "unsupported commands leave their section nil")
	assert.Nil(t, tel.System, "web client is disabled without a user")
}

func TestDiscoverer_EnumerateUnresponsive(t *testing.T) {
	port := startFakeMiner(t, nil)
	d := NewDiscoverer(Options{Port: port, Timeout: 200 * time.Millisecond})

	handles, err := d.Enumerate(context.Background(), "127.0.0.1/32")
	require.NoError(t, err)
	assert.Equal(t, []*Handle{nil}, handles)
}

func TestDiscoverer_EnumerateMalformedSubnet(t *testing.T) {
	d := NewDiscoverer(Options{})
	_, err := d.Enumerate(context.Background(), "192.168.1.0/40")
	assert.Error(t, err)
}

func TestDiscoverer_FetchNothingAnswers(t *testing.T) {
	port := startFakeMiner(t, map[string]string{"version": antminerVersion})
	d := NewDiscoverer(Options{Port: port, Timeout: time.Second})

	_, err := d.Fetch(context.Background(), &Handle{Address: "127.0.0.1"})
	assert.ErrorIs(t, err, ErrNoResponse)

	_, err = d.Fetch(context.Background(), nil)
	assert.Error(t, err)
}

func TestDetectMake(t *testing.T) {
	testCases := []struct {
		name     string
		version  Response
		expected string
	}{
		{
			name:     "bmminer",
			version:  Response{"VERSION": []any{map[string]any{"BMMiner": "2.0.0"}}},
			expected: MakeAntminer,
		},
		{
			name:     "cgminer on antminer",
			version:  Response{"VERSION": []any{map[string]any{"CGMiner": "4.9", "Type": "Antminer L3+"}}},
			expected: MakeAntminer,
		},
		{
			name:     "btminer msg shape",
			version:  Response{"STATUS": "S", "Msg": map[string]any{"api_ver": "2.0.5", "fw_ver": "20230101"}},
			expected: MakeWhatsminer,
		},
		{
			name:     "luxos",
			version:  Response{"VERSION": []any{map[string]any{"LUXminer": "2024.1"}}},
			expected: MakeLuxOS,
		},
		{
			name:     "braiins",
			version:  Response{"VERSION": []any{map[string]any{"BOSminer": "0.2.0"}}},
			expected: MakeBraiins,
		},
		{
			name:     "avalon",
			version:  Response{"VERSION": []any{map[string]any{"PROD": "AvalonMiner 1246"}}},
			expected: MakeAvalon,
		},
		{
			name:     "plain cgminer",
			version:  Response{"VERSION": []any{map[string]any{"CGMiner": "4.11.1"}}},
			expected: "",
		},
		{
			name:     "empty",
			version:  nil,
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DetectMake(tc.version))
		})
	}
}
