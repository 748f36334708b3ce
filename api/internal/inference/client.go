package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxReplyBytes = 4 << 20

// Solver sends one problem and returns the decoded reply.
// Transport failures come back as plain errors; a reply without an
// explanation comes back as *StatusError.
type Solver interface {
	Solve(ctx context.Context, p Payload) (Envelope, error)
}

// StatusError is an unsuccessful exchange: non-2xx status or no explanation.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference: status %d: %s", e.Code, e.Body)
}

// Message is the text shown to the user in place of an explanation.
func (e *StatusError) Message() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = http.StatusText(e.Code)
	}
	if r := []rune(body); len(r) > 500 {
		body = string(r[:500]) + "…"
	}
	return fmt.Sprintf("Error %d: %s", e.Code, body)
}

// Client posts payloads to a single JSON endpoint.
type Client struct {
	URL   string
	httpc *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		URL:   url,
		httpc: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Solve(ctx context.Context, p Payload) (Envelope, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return Envelope{}, fmt.Errorf("inference: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return Envelope{}, fmt.Errorf("inference: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Envelope{}, fmt.Errorf("inference: post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return Envelope{}, fmt.Errorf("inference: read reply: %w", err)
	}

	env, perr := Unwrap(body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || perr != nil || !env.OK() {
		return Envelope{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return env, nil
}
