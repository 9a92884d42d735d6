// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"clarity-workers/internal/common/config"
	"clarity-workers/internal/common/logger"
)

// BreakerSettings configures the circuit breaker guarding one upstream.
type BreakerSettings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerSettings returns a breaker that trips once 60% of at least
// five requests in a minute have failed.
func DefaultBreakerSettings(name string) BreakerSettings {
	return BreakerSettings{
		Name:             name,
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// BreakerSettingsFromConfig overlays the non-zero fields of cfg on the
// defaults. Durations in cfg are milliseconds.
func BreakerSettingsFromConfig(name string, cfg config.BreakerConfig) BreakerSettings {
	s := DefaultBreakerSettings(name)
	if cfg.MaxRequests > 0 {
		s.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		s.Interval = time.Duration(cfg.Interval) * time.Millisecond
	}
	if cfg.Timeout > 0 {
		s.Timeout = time.Duration(cfg.Timeout) * time.Millisecond
	}
	if cfg.FailureThreshold > 0 {
		s.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.MinRequests > 0 {
		s.MinRequests = cfg.MinRequests
	}
	return s
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client is an HTTP client for JSON upstreams with a per-upstream circuit
// breaker and bounded retries on transport and 5xx failures.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

type Option func(*Client)

func WithRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

func NewClient(timeout time.Duration, breaker BreakerSettings, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"upstream": breaker.Name})

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		backoff:    100 * time.Millisecond,
		log:        log,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breaker.Name,
		MaxRequests: breaker.MaxRequests,
		Interval:    breaker.Interval,
		Timeout:     breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breaker.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= breaker.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State exposes the breaker state for readiness reporting.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// PostJSON posts body to url and decodes a 2xx JSON response into out.
// Non-2xx responses yield *StatusError; malformed JSON yields a decode error.
func (c *Client) PostJSON(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}

		raw, err := c.breaker.Execute(func() (interface{}, error) {
			return c.post(ctx, url, payload)
		})
		if err == nil {
			if err := json.Unmarshal(raw.([]byte), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}

		lastErr = err
		if !retryable(ctx, err) {
			break
		}
		c.log.Debug("Retrying upstream request", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}
	return true
}

// IsTimeout reports whether err came from a deadline or client timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
