package miner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/icholy/digest"
)

// WebClient reads JSON from the Antminer management web UI, which sits behind
// HTTP digest authentication.
type WebClient struct {
	Port   int
	User   string
	client *http.Client
}

// NewWebClient returns a WebClient for the given credential.
func NewWebClient(port int, user, password string, timeout time.Duration) *WebClient {
	if port == 0 {
		port = 80
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &WebClient{
		Port: port,
		User: user,
		client: &http.Client{
			Timeout: timeout,
			Transport: &digest.Transport{
				Username: user,
				Password: password,
			},
		},
	}
}

// GetJSON fetches path from the device at ip and decodes the body into out.
func (w *WebClient) GetJSON(ctx context.Context, ip, path string, out any) error {
	url := "http://" + net.JoinHostPort(ip, strconv.Itoa(w.Port)) + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s on %s: %w", path, ip, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("GET %s on %s: %w", path, ip, ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("GET %s on %s: received non-200 status code: %d", path, ip, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
