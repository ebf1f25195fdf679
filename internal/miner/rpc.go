package miner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// DefaultRPCPort is the cgminer API port shared by bmminer, btminer, BOSminer and LuxOS.
const DefaultRPCPort = 4028

const maxReplySize = 1 << 20

// RPCClient speaks the cgminer JSON API: one command per TCP connection, the device
// closes the socket after replying.
type RPCClient struct {
	Port    int
	Timeout time.Duration
}

// NewRPCClient returns a client with defaults filled in.
func NewRPCClient(port int, timeout time.Duration) *RPCClient {
	if port == 0 {
		port = DefaultRPCPort
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &RPCClient{Port: port, Timeout: timeout}
}

// Command sends command to the device at ip and decodes the reply.
func (c *RPCClient) Command(ctx context.Context, ip, command string) (Response, error) {
	probeCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(probeCtx, "tcp", net.JoinHostPort(ip, strconv.Itoa(c.Port)))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", ip, err)
	}
	defer conn.Close()

	if deadline, ok := probeCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	req, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command %q: %w", command, err)
	}
	if _, err := conn.Write(req); err != nil {
		return nil, fmt.Errorf("write %q to %s: %w", command, ip, err)
	}

	raw, err := io.ReadAll(io.LimitReader(conn, maxReplySize))
	if err != nil && len(raw) == 0 {
		return nil, fmt.Errorf("read %q from %s: %w", command, ip, err)
	}

	resp, err := DecodeResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%q from %s: %w", command, ip, err)
	}
	return resp, nil
}

// DecodeResponse parses a raw API reply leniently: trailing NULs are dropped, invalid
// UTF-8 is replaced and the bmminer "}{" missing-comma bug is repaired. Numbers are
// kept as json.Number.
func DecodeResponse(raw []byte) (Response, error) {
	raw = bytes.TrimRight(raw, "\x00\r\n\t ")
	if len(raw) == 0 {
		return nil, ErrNoResponse
	}

	s := strings.ToValidUTF8(string(raw), "�")
	s = strings.ReplaceAll(s, "}{", "},{")

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var resp Response
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode api response: %w", err)
	}
	if resp == nil {
		return nil, ErrNoResponse
	}
	return resp, nil
}
