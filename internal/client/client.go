// Package client talks to a running relay over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/querybee/querybee/internal/relay"
)

// DefaultURL is where `querybee server` listens by default.
const DefaultURL = "http://localhost:3000"

// Client is a relay API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the relay at baseURL. A nil httpClient gets a
// 60 second timeout, enough for the relay's own upstream deadline.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Error is a non-2xx reply from the relay.
type Error struct {
	Status int
	Body   relay.ErrorBody
}

func (e *Error) Error() string {
	msg := e.Body.Response
	if msg == "" {
		msg = e.Body.Error
	}
	if msg == "" {
		return fmt.Sprintf("relay returned status %d", e.Status)
	}
	return fmt.Sprintf("relay returned status %d: %s", e.Status, msg)
}

// Health is the /api/health body.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type askBody struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId,omitempty"`
}

// Ask posts one query. An empty sessionID lets the relay pick one.
func (c *Client) Ask(ctx context.Context, query, sessionID string) (*relay.Response, error) {
	payload, err := json.Marshal(askBody{Query: query, SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/dialogflow", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out relay.Response
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health calls /api/health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	var out Health
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		_ = json.Unmarshal(body, &apiErr.Body)
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshalling response: %w", err)
	}
	return nil
}
