// Package inference is the HTTP client of the remote legal inference API.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
var ErrMalformedResponse = errors.New("malformed inference response")

// RemoteError is a non-2xx reply of the inference API.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("inference api status %d", e.Status)
	}
	return fmt.Sprintf("inference api status %d: %s", e.Status, body)
}

// Retryable reports whether the request may succeed when repeated.
func (e *RemoteError) Retryable() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// Config configures Client.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  uint64
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Client talks to the inference API. Safe for concurrent use.
type Client struct {
	http *resty.Client
	cfg  Config
	log  zerolog.Logger
}

// New creates a Client.
func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 2 * time.Second
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)

	return &Client{
		http: c,
		cfg:  cfg,
		log:  logger.With().Str("component", "inference").Logger(),
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// Health pings the API.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, "health", func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/api/v1/health")
	})
	return err
}

// do runs send with exponential backoff. Transport errors and retryable
// statuses are retried; everything else fails immediately.
func (c *Client) do(ctx context.Context, op string, send func(*resty.Request) (*resty.Response, error)) ([]byte, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.BaseBackoff
	exp.MaxInterval = c.cfg.MaxBackoff
	exp.Multiplier = 2
	policy := backoff.WithMaxRetries(backoff.WithContext(exp, ctx), c.cfg.MaxRetries)

	var body []byte
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		resp, err := send(c.http.R().SetContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.log.Debug().Err(err).Str("op", op).Int("attempt", attempt).Msg("inference transport error")
			return fmt.Errorf("%s request: %w", op, err)
		}
		if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
			remote := &RemoteError{Status: resp.StatusCode(), Body: resp.String()}
			if remote.Retryable() {
				c.log.Debug().Int("status", remote.Status).Str("op", op).Int("attempt", attempt).Msg("inference retryable status")
				return remote
			}
			return backoff.Permanent(remote)
		}
		body = resp.Body()
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func decode(op string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, op, err)
	}
	return nil
}
