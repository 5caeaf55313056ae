// Package hass is a minimal client for the Home Assistant REST API,
// covering the two calls the publisher needs: a reachability probe and
// the core service restart.
package hass

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sproutops/hadeploy/internal/credentials"
)

// Client talks to the Home Assistant REST API with bearer-token auth.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger
	userAgent  string
}

// NewClient creates a client for the given credentials.
func NewClient(creds *credentials.Credentials, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
			},
			Timeout: 60 * time.Second,
		},
		baseURL:   strings.TrimRight(creds.BaseURL, "/"),
		token:     creds.Token,
		logger:    logger,
		userAgent: "hadeploy/1.0",
	}
}

// Ping checks that the API answers with the configured token.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError("GET /api/", resp)
	}
	return nil
}

// Restart issues the core restart service call. Success means the HTTP
// call was accepted; no further confirmation is read back and no retry
// is attempted.
func (c *Client) Restart(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/services/homeassistant/restart", []byte("{}"))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError("POST /api/services/homeassistant/restart", resp)
	}

	c.logger.Info("restart requested", "status", resp.StatusCode)
	return nil
}

func (c *Client) do(ctx context.Context, method, apiPath string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPath, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, apiPath, err)
	}
	return resp, nil
}

func apiError(call string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("%s: unexpected status %d", call, resp.StatusCode)
	}
	return fmt.Errorf("%s: unexpected status %d: %s", call, resp.StatusCode, msg)
}
