package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"prefsurvey/internal/logging"
)

// Placeholder is the endpoint value shipped in templates; it counts as "not
// configured".
const Placeholder = "YOUR_GOOGLE_APPS_SCRIPT_WEB_APP_URL_HERE"

// maxAckBytes bounds how much of an acknowledgement body is read.
const maxAckBytes = 64 << 10

// Dispatcher delivers payloads. The terminal client depends on this rather
// than on *Client so tests can script transport outcomes.
type Dispatcher interface {
	Ready() error
	Send(ctx context.Context, p Payload) error
}

// Ack is the endpoint's optional acknowledgement body.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client POSTs payloads to the persistence endpoint.
type Client struct {
	url    string
	client *http.Client
	log    *logging.Logger
}

// NewClient creates a client for endpoint. A zero timeout means none.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		url:    strings.TrimSpace(endpoint),
		client: &http.Client{Timeout: timeout},
		log:    logging.Get(logging.CategorySubmit),
	}
}

// URL returns the configured endpoint.
func (c *Client) URL() string { return c.url }

// Ready reports whether a dispatch can be attempted.
func (c *Client) Ready() error {
	return CheckEndpoint(c.url)
}

// CheckEndpoint validates an endpoint URL, returning *ConfigurationError.
func CheckEndpoint(endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case endpoint == "":
		return &ConfigurationError{Reason: "no endpoint URL set"}
	case endpoint == Placeholder:
		return &ConfigurationError{URL: endpoint, Reason: "endpoint URL is still the placeholder"}
	}
	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigurationError{URL: endpoint, Reason: "endpoint must be an absolute http(s) URL"}
	}
	return nil
}

// Send POSTs p as JSON. Any completed HTTP exchange counts as delivered,
// whatever the status or body; only failing to complete the exchange is an
// error (*TransportError).
func (c *Client) Send(ctx context.Context, p Payload) error {
	if err := c.Ready(); err != nil {
		return err
	}

	body, err := json.Marshal(p)
	if err != nil {
		return &TransportError{Op: "encode payload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("dispatch of %d rows failed after %v: %v", len(p.Responses), time.Since(start), err)
		return &TransportError{Op: "post responses", Err: err}
	}
	defer resp.Body.Close()

	c.inspect(resp, len(p.Responses), time.Since(start))
	return nil
}

// inspect decodes the acknowledgement for the log only.
func (c *Client) inspect(resp *http.Response, rows int, took time.Duration) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAckBytes))
	if err != nil {
		c.log.Debug("ack body unreadable: %v", err)
		return
	}
	var ack Ack
	if len(bytes.TrimSpace(data)) == 0 || json.Unmarshal(data, &ack) != nil {
		c.log.Info("delivered %d rows in %v (status %d, opaque ack)", rows, took, resp.StatusCode)
		return
	}
	if !ack.Success {
		c.log.Warn("endpoint reported failure for %d rows (status %d): %s", rows, resp.StatusCode, ack.Error)
		return
	}
	c.log.Info("delivered %d rows in %v: %s", rows, took, ack.Message)
}

// Describe renders err for the status line.
func Describe(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return fmt.Sprintf("could not reach the endpoint: %v", te.Err)
	}
	return err.Error()
}
