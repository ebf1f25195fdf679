package miner

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponse(t *testing.T) {
	t.Run("trailing NUL bytes", func(t *testing.T) {
		resp, err := DecodeResponse([]byte(`{"STATUS":[{"STATUS":"S","Msg":"Summary"}],"SUMMARY":[{"Elapsed":10}]}` + "\x00"))
		require.NoError(t, err)
		assert.Equal(t, json.Number("10"), resp.First("SUMMARY")["Elapsed"])
	})

	t.Run("bmminer missing comma between stats objects", func(t *testing.T) {
		resp, err := DecodeResponse([]byte(`{"STATS":[{"BMMiner":"2.0.0","Type":"Antminer S9"}{"STATS":0,"fan1":6000}],"id":1}`))
		require.NoError(t, err)
		rows := resp.Rows("STATS")
		require.Len(t, rows, 2)
		assert.Equal(t, "Antminer S9", rows[0]["Type"])
	})

	t.Run("invalid utf-8 is replaced", func(t *testing.T) {
		resp, err := DecodeResponse([]byte("{\"POOLS\":[{\"User\":\"w\xff1\"}]}"))
		require.NoError(t, err)
		assert.Equal(t, "w�1", resp.First("POOLS")["User"])
	})

	t.Run("empty reply", func(t *testing.T) {
		_, err := DecodeResponse([]byte("\x00\x00"))
		assert.ErrorIs(t, err, ErrNoResponse)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeResponse([]byte("HTTP/1.1 400 Bad Request"))
		assert.Error(t, err)
	})
}

func TestResponse_Status(t *testing.T) {
	cg := Response{"STATUS": []any{map[string]any{"STATUS": "E", "Msg": "Invalid command"}}}
	code, msg := cg.Status()
	assert.Equal(t, "E", code)
	assert.Equal(t, "Invalid command", msg)
	assert.True(t, cg.Failed())

	bt := Response{"STATUS": "S", "Msg": map[string]any{"fw_ver": "20220101"}}
	code, _ = bt.Status()
	assert.Equal(t, "S", code)
	assert.False(t, bt.Failed())
	assert.NotNil(t, bt.Msg())

	var none Response
	assert.Nil(t, none.Rows("SUMMARY"))
	assert.False(t, none.Has("SUMMARY"))
}

func TestRPCClient_Command(t *testing.T) {
	port := startFakeMiner(t, map[string]string{
		"summary": `{"STATUS":[{"STATUS":"S"}],"SUMMARY":[{"GHS 5s":"13500.12"}],"id":1}`,
	})
	client := NewRPCClient(port, time.Second)

	resp, err := client.Command(context.Background(), "127.0.0.1", "summary")
	require.NoError(t, err)
	assert.Equal(t, "13500.12", resp.First("SUMMARY")["GHS 5s"])

	_, err = client.Command(context.Background(), "127.0.0.1", "pools")
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestRPCClient_CommandUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	client := NewRPCClient(port, 200*time.Millisecond)
	_, err = client.Command(context.Background(), "127.0.0.1", "version")
	assert.Error(t, err)
}
