package miner

import (
	"encoding/json"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// startFakeMiner serves canned cgminer replies on 127.0.0.1 and returns the port.
// Commands without a reply get the connection closed on them.
func startFakeMiner(t *testing.T, replies map[string]string) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				var req struct {
					Command string `json:"command"`
				}
				if err := json.NewDecoder(conn).Decode(&req); err != nil {
					return
				}
				if reply, ok := replies[req.Command]; ok {
					_, _ = io.WriteString(conn, reply)
				}
			}(conn)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}
