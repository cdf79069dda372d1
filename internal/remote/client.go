// Package remote talks to the shared row store. The endpoint is a dumb
// key/value service: GET returns every row as one flat JSON object,
// POST replaces the whole set. All merge logic lives on this side.
package remote

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

	"github.com/sethvargo/go-retry"
)

// ErrEmpty reports that the remote store holds no trip yet. Callers
// seed defaults instead of treating it as a failure.
var ErrEmpty = errors.New("remote store is empty")

// ErrorKind classifies a remote failure for status reporting.
type ErrorKind string

const (
	// KindTransport covers network failures and non-2xx responses.
	KindTransport ErrorKind = "transport"
	// KindShape covers responses that are not the expected JSON, most
	// commonly an HTML sign-in page when the endpoint is not public.
	KindShape ErrorKind = "shape"
	// KindApplication covers well-formed error replies from the store.
	KindApplication ErrorKind = "application"
)

// Error is a classified remote failure.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("remote %s error: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("remote %s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Config holds row store connection settings.
type Config struct {
	// URL is the deployed endpoint. Must end in the execution path the
	// store hands out, see Check.
	URL string
	// FetchRetries is the number of extra attempts on transient fetch
	// failures. Zero means a sensible default.
	FetchRetries uint64
}

// Client is a row store client. Safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a row store client for the given endpoint.
func NewClient(cfg Config) *Client {
	if cfg.FetchRetries == 0 {
		cfg.FetchRetries = 3
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Fetch downloads the full row set. Transient transport failures are
// retried with fibonacci backoff; shape and application errors are not,
// since they indicate misconfiguration rather than a flaky network.
func (c *Client) Fetch(ctx context.Context) (map[string]string, error) {
	var rows map[string]string
	backoff := retry.WithMaxRetries(c.cfg.FetchRetries, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		rows, err = c.fetchOnce(ctx)
		var re *Error
		if errors.As(err, &re) && re.Kind == KindTransport {
			return retry.RetryableError(err)
		}
		return err
	})
	return rows, err
}

func (c *Client) fetchOnce(ctx context.Context) (map[string]string, error) {
	body, err := c.get(ctx, c.cfg.URL)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &Error{Kind: KindShape, Message: "response is not a JSON object", cause: err}
	}
	if status, ok := rawString(raw["status"]); ok {
		switch status {
		case "empty":
			return nil, ErrEmpty
		case "error":
			msg, _ := rawString(raw["message"])
			return nil, &Error{Kind: KindApplication, Message: msg}
		}
	}

	rows := make(map[string]string, len(raw))
	for k, v := range raw {
		rows[k] = string(v)
	}
	return rows, nil
}

// Save uploads the full row set, replacing whatever the store held.
func (c *Client) Save(ctx context.Context, rows map[string]string) error {
	payload := make(map[string]json.RawMessage, len(rows))
	for k, v := range rows {
		payload[k] = json.RawMessage(v)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal rows: %w", err)
	}
	return c.post(ctx, body)
}

// Archive asks the store to copy the current trip aside under the given
// name. The live rows are left in place.
func (c *Client) Archive(ctx context.Context, name string) error {
	body, err := json.Marshal(map[string]string{
		"action":      "archive",
		"archiveName": name,
	})
	if err != nil {
		return fmt.Errorf("marshal archive request: %w", err)
	}
	return c.post(ctx, body)
}

// Check verifies that url points at a reachable, correctly deployed
// row store. It validates the URL shape before touching the network so
// setup mistakes get a specific message.
func (c *Client) Check(ctx context.Context, url string) error {
	if url == "" {
		return &Error{Kind: KindShape, Message: "endpoint URL is empty"}
	}
	if !strings.Contains(url, "/exec") {
		return &Error{Kind: KindShape, Message: "endpoint URL must end in /exec"}
	}

	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	var probe struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return &Error{Kind: KindShape, Message: "response is not JSON", cause: err}
	}
	if probe.Status == "error" {
		return &Error{Kind: KindApplication, Message: probe.Message}
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "request failed", cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindTransport, Message: fmt.Sprintf("endpoint returned %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "read response", cause: err}
	}
	if looksLikeHTML(body) {
		// The store serves an HTML sign-in page when its deployment is
		// not set to public access.
		return nil, &Error{Kind: KindShape, Message: "endpoint returned HTML, check that the deployment allows anonymous access"}
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	// The store rejects preflighted content types, so it takes JSON as
	// plain text.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "request failed", cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{Kind: KindTransport, Message: fmt.Sprintf("endpoint returned %d", resp.StatusCode)}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "read response", cause: err}
	}
	var reply struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &reply); err != nil {
		if looksLikeHTML(respBody) {
			return &Error{Kind: KindShape, Message: "endpoint returned HTML, check that the deployment allows anonymous access"}
		}
		return &Error{Kind: KindShape, Message: "response is not JSON", cause: err}
	}
	if reply.Status == "error" {
		return &Error{Kind: KindApplication, Message: reply.Message}
	}
	return nil
}

func looksLikeHTML(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "<") || strings.Contains(trimmed, "<!DOCTYPE html>")
}

func rawString(raw json.RawMessage) (string, bool) {
	if raw == nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
