// Package push wraps the managed push-notification gateway. The gateway
// accepts a batch of device tokens plus a payload and reports delivery
// outcome per token.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Gateway error codes that mark a device token as permanently dead.
const (
	ErrCodeInvalidToken  = "invalid-registration-token"
	ErrCodeUnregistered  = "registration-token-not-registered"
	ErrCodeInternalError = "internal-error"
)

// Notification is the visible part of a push payload.
type Notification struct {
	Title      string `json:"title"`
	Body       string `json:"body,omitempty"`
	BodyLocKey string `json:"body_loc_key,omitempty"`
	Sound      string `json:"sound,omitempty"`
	Badge      string `json:"badge,omitempty"`
}

// Payload is one dispatch request: tokens, the visible notification, and the
// opaque data map clients use to route taps into the right room.
type Payload struct {
	Tokens       []string          `json:"tokens"`
	Notification Notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

// Result reports the outcome for a single token, index-aligned with the
// request's token list.
type Result struct {
	Token     string `json:"token"`
	ErrorCode string `json:"error_code,omitempty"`
}

// Failed reports whether delivery to this token failed.
func (r Result) Failed() bool {
	return r.ErrorCode != ""
}

// Prunable reports whether the token should be removed from the user record.
func (r Result) Prunable() bool {
	return r.ErrorCode == ErrCodeInvalidToken || r.ErrorCode == ErrCodeUnregistered
}

// Gateway dispatches one payload to every token and reports per-token results.
type Gateway interface {
	Send(ctx context.Context, payload Payload) ([]Result, error)
}

// Config contains credentials required to talk to the push gateway.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements Gateway over the gateway's HTTP JSON API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

// New constructs a push gateway client instance.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("push gateway url must be provided")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "push_gateway").Logger(),
	}, nil
}

type sendResponse struct {
	Results []Result `json:"results"`
}

// Send submits the payload and decodes the per-token results.
func (c *Client) Send(ctx context.Context, payload Payload) ([]Result, error) {
	if len(payload.Tokens) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build push request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push gateway unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}

	var decoded sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode push response: %w", err)
	}

	c.logger.Debug().Int("tokens", len(payload.Tokens)).Int("results", len(decoded.Results)).Msg("push batch dispatched")

	return decoded.Results, nil
}
