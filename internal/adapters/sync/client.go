// Package sync is the client side of the presign persistence
// collaborator: one POST exchanges the shared password for a pair of
// time-limited read/write URLs, and the snapshot document is moved
// through those URLs with plain GET and PUT.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxResponseBodyBytes limits decoded payload size for fail-closed
// response handling.
const maxResponseBodyBytes int64 = 8 << 20

// ErrUnauthorized reports a rejected password.
var ErrUnauthorized = errors.New("presign endpoint rejected the password")

// PresignRequest is the body sent to the presign endpoint.
type PresignRequest struct {
	Password string `json:"password"`
	Key      string `json:"key,omitempty"`
}

// Grant carries one pair of time-limited object-storage URLs.
type Grant struct {
	ReadURL   string `json:"readUrl"`
	WriteURL  string `json:"writeUrl"`
	ExpiresIn int    `json:"expiresIn"`
}

// Config holds configuration for the client.
type Config struct {
	Endpoint string
	Password string
	Key      string
	Timeout  time.Duration
}

// Client represents client data used by this package.
type Client struct {
	endpoint string
	password string
	key      string
	httpc    *http.Client
}

// NewClient constructs a new value for this package.
func NewClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("sync endpoint is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		password: cfg.Password,
		key:      strings.TrimSpace(cfg.Key),
		httpc:    &http.Client{Timeout: timeout},
	}, nil
}

// Presign exchanges the password for read/write URLs.
func (c *Client) Presign(ctx context.Context) (Grant, error) {
	body, err := json.Marshal(PresignRequest{Password: c.password, Key: c.key})
	if err != nil {
		return Grant{}, fmt.Errorf("encode presign request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Grant{}, fmt.Errorf("build presign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Grant{}, fmt.Errorf("presign request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return Grant{}, ErrUnauthorized
	default:
		return Grant{}, fmt.Errorf("presign endpoint returned %s", resp.Status)
	}

	var grant Grant
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodyBytes)).Decode(&grant); err != nil {
		return Grant{}, fmt.Errorf("decode presign response: %w", err)
	}
	if strings.TrimSpace(grant.ReadURL) == "" || strings.TrimSpace(grant.WriteURL) == "" {
		return Grant{}, errors.New("presign response missing read or write url")
	}
	return grant, nil
}

// Push uploads the snapshot payload through a freshly presigned write
// URL.
func (c *Client) Push(ctx context.Context, payload []byte) error {
	grant, err := c.Presign(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, grant.WriteURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload returned %s", resp.Status)
	}
	return nil
}

// Pull downloads the snapshot payload through a freshly presigned
// read URL.
func (c *Client) Pull(ctx context.Context) ([]byte, error) {
	grant, err := c.Presign(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, grant.ReadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download snapshot: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download returned %s", resp.Status)
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read snapshot body: %w", err)
	}
	return payload, nil
}
