// internal/common/http/client.go
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"inquiry-sync-workers/internal/common/config"
	"inquiry-sync-workers/internal/common/errors"
	"inquiry-sync-workers/internal/common/logger"
	"inquiry-sync-workers/internal/common/metrics"
)

// Doer executes a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestBuilder returns a fresh request for every attempt.
type RequestBuilder func() (*http.Request, error)

// Sleeper waits between attempts.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// TimerSleeper sleeps on a timer and returns early when ctx is done.
var TimerSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
})

// RetryPolicy bounds the attempts of one Do call.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// PolicyFromConfig converts the configured retry settings.
func PolicyFromConfig(rc config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:   rc.MaxRetries,
		InitialDelay: rc.InitialDelay(),
		MaxDelay:     rc.MaxDelay(),
		Multiplier:   rc.BackoffMultiplier,
	}
}

func (p RetryPolicy) next(delay time.Duration) time.Duration {
	grown := time.Duration(float64(delay) * p.Multiplier)
	if grown > p.MaxDelay || grown < delay {
		return p.MaxDelay
	}
	return grown
}

func (p RetryPolicy) cap(d time.Duration) time.Duration {
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// RateLimitError is returned when every attempt was answered with 429.
type RateLimitError struct {
	Attempts   int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: still receiving HTTP 429 after %d attempts", e.Attempts)
}

func (e *RateLimitError) ErrorCode() errors.ErrorCode {
	return errors.ErrCodeRateLimited
}

// RetryingClient retries rate limited responses and transport failures with
// capped exponential backoff. Any other response is returned as is.
type RetryingClient struct {
	doer    Doer
	policy  RetryPolicy
	sleeper Sleeper
	logger  logger.Logger
	now     func() time.Time
	target  string
}

type Option func(*RetryingClient)

// WithSleeper replaces the timer based sleeper.
func WithSleeper(s Sleeper) Option {
	return func(c *RetryingClient) { c.sleeper = s }
}

// WithClock sets the clock used to resolve HTTP-date Retry-After values.
func WithClock(now func() time.Time) Option {
	return func(c *RetryingClient) { c.now = now }
}

// WithTarget labels metrics and spans with the remote system name.
func WithTarget(name string) Option {
	return func(c *RetryingClient) { c.target = name }
}

func NewRetryingClient(doer Doer, policy RetryPolicy, log logger.Logger, opts ...Option) *RetryingClient {
	if doer == nil {
		doer = http.DefaultClient
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	c := &RetryingClient{
		doer:    doer,
		policy:  policy,
		sleeper: TimerSleeper,
		logger:  log,
		now:     time.Now,
		target:  "remote",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClient returns a standard client with the given timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Do runs the request built by build, attempting at most MaxRetries+1 times.
// When transport failures exhaust the attempts the last error is returned
// unchanged.
func (c *RetryingClient) Do(ctx context.Context, build RequestBuilder) (*http.Response, error) {
	ctx, span := otel.Tracer("inquiry-sync-workers/http").Start(ctx, "http.retrying_do")
	defer span.End()
	span.SetAttributes(attribute.String("http.target_system", c.target))

	delay := c.policy.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		remaining := attempt < c.policy.MaxRetries

		req, err := build()
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := c.doer.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			c.observe(attempt, "transport_error")
			if ctx.Err() != nil || !remaining {
				break
			}
			c.logger.Warn("Request failed, retrying", map[string]interface{}{
				"target":  c.target,
				"attempt": attempt + 1,
				"delayMs": delay.Milliseconds(),
				"error":   err.Error(),
			})
			if err := c.sleeper.Sleep(ctx, delay); err != nil {
				break
			}
			delay = c.policy.next(delay)
			continue
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			c.observe(attempt, outcomeOf(resp.StatusCode))
			span.SetAttributes(
				attribute.Int("http.status_code", resp.StatusCode),
				attribute.Int("http.attempts", attempt+1),
			)
			return resp, nil
		}

		wait := delay
		if ra, ok := parseRetryAfter(resp.Header.Get("Retry-After"), c.now()); ok {
			wait = ra
		}
		drain(resp)
		c.observe(attempt, "rate_limited")

		if !remaining {
			rlErr := &RateLimitError{Attempts: attempt + 1, RetryAfter: wait}
			span.RecordError(rlErr)
			span.SetStatus(codes.Error, rlErr.Error())
			return nil, rlErr
		}

		c.logger.Warn("Rate limited, backing off", map[string]interface{}{
			"target":  c.target,
			"attempt": attempt + 1,
			"waitMs":  c.policy.cap(wait).Milliseconds(),
		})
		if err := c.sleeper.Sleep(ctx, c.policy.cap(wait)); err != nil {
			lastErr = err
			break
		}
		delay = c.policy.next(delay)
	}

	if lastErr != nil {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, lastErr.Error())
	}
	return nil, lastErr
}

func (c *RetryingClient) observe(attempt int, outcome string) {
	metrics.CRMRequestAttempts.WithLabelValues(c.target, outcome).Inc()
	c.logger.Debug("Request attempt finished", map[string]interface{}{
		"target":  c.target,
		"attempt": attempt + 1,
		"outcome": outcome,
	})
}

func outcomeOf(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "success"
	case status >= 500:
		return "server_error"
	default:
		return "client_error"
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
