package http

import (
	"context"
	stderrors "errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inquiry-sync-workers/internal/common/config"
	"inquiry-sync-workers/internal/common/errors"
	"inquiry-sync-workers/internal/common/logger"
)

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func testPolicy() RetryPolicy {
	return PolicyFromConfig(config.RetryConfig{
		MaxRetries:        3,
		InitialDelayMs:    100,
		MaxDelayMs:        1000,
		BackoffMultiplier: 2,
	})
}

func getBuilder(url string) RequestBuilder {
	return func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	}
}

func TestDo_RateLimitedBackoff(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	sleeper := &recordingSleeper{}
	client := NewRetryingClient(server.Client(), testPolicy(), logger.NewTestLogger(t), WithSleeper(sleeper))

	resp, err := client.Do(context.Background(), getBuilder(server.URL))

	assert.Nil(t, resp)
	var rlErr *RateLimitError
	require.True(t, stderrors.As(err, &rlErr))
	assert.Equal(t, 4, rlErr.Attempts)
	assert.Equal(t, errors.ErrCodeRateLimited, errors.CodeOf(err))
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
	}, sleeper.waits)
}

func TestDo_RetryAfterHeaderIsCapped(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	sleeper := &recordingSleeper{}
	client := NewRetryingClient(server.Client(), testPolicy(), logger.NewNoOpLogger(), WithSleeper(sleeper))

	resp, err := client.Do(context.Background(), getBuilder(server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	// 30s is capped at the max delay; "0" falls back to the grown delay
	assert.Equal(t, []time.Duration{1000 * time.Millisecond, 200 * time.Millisecond}, sleeper.waits)
}

func TestDo_NonRetryableStatusReturnedImmediately(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError} {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(status)
		}))

		sleeper := &recordingSleeper{}
		client := NewRetryingClient(server.Client(), testPolicy(), nil, WithSleeper(sleeper))

		resp, err := client.Do(context.Background(), getBuilder(server.URL))
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, status, resp.StatusCode)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		assert.Empty(t, sleeper.waits)
		server.Close()
	}
}

type failingDoer struct {
	calls int
	err   error
}

func (d *failingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	return nil, d.err
}

func TestDo_TransportErrorExhaustsRetries(t *testing.T) {
	netErr := stderrors.New("dial tcp 10.0.0.1:443: connect: connection refused")
	doer := &failingDoer{err: netErr}
	sleeper := &recordingSleeper{}

	client := NewRetryingClient(doer, testPolicy(), logger.NewNoOpLogger(), WithSleeper(sleeper))

	resp, err := client.Do(context.Background(), getBuilder("http://crm.invalid/Leads"))

	assert.Nil(t, resp)
	assert.Same(t, netErr, err)
	assert.Equal(t, 4, doer.calls)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
	}, sleeper.waits)
}

func TestDo_DelayIsCapped(t *testing.T) {
	doer := &failingDoer{err: stderrors.New("reset")}
	sleeper := &recordingSleeper{}
	policy := RetryPolicy{MaxRetries: 5, InitialDelay: 300 * time.Millisecond, MaxDelay: time.Second, Multiplier: 3}

	client := NewRetryingClient(doer, policy, nil, WithSleeper(sleeper))
	_, err := client.Do(context.Background(), getBuilder("http://crm.invalid"))
	require.Error(t, err)

	assert.Equal(t, []time.Duration{
		300 * time.Millisecond,
		900 * time.Millisecond,
		time.Second,
		time.Second,
		time.Second,
	}, sleeper.waits)
	for i := 1; i < len(sleeper.waits); i++ {
		assert.GreaterOrEqual(t, sleeper.waits[i], sleeper.waits[i-1])
	}
}

func TestDo_BuildErrorIsNotRetried(t *testing.T) {
	doer := &failingDoer{}
	client := NewRetryingClient(doer, testPolicy(), nil)

	_, err := client.Do(context.Background(), func() (*http.Request, error) {
		return nil, stderrors.New("bad payload")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad payload")
	assert.Zero(t, doer.calls)
}

func TestDo_CancelledContextStopsRetrying(t *testing.T) {
	doer := &failingDoer{err: stderrors.New("timeout")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewRetryingClient(doer, testPolicy(), nil)
	_, err := client.Do(ctx, getBuilder("http://crm.invalid"))

	require.Error(t, err)
	assert.Equal(t, 1, doer.calls)
}

func TestTimerSleeper_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := TimerSleeper.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_HugeRetryAfterIsCapped(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "9300000000")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sleeper := &recordingSleeper{}
	client := NewRetryingClient(server.Client(), testPolicy(), logger.NewNoOpLogger(), WithSleeper(sleeper))

	resp, err := client.Do(context.Background(), getBuilder(server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []time.Duration{1000 * time.Millisecond}, sleeper.waits)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want time.Duration
		ok   bool
	}{
		{"5", 5 * time.Second, true},
		{" 2 ", 2 * time.Second, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"", 0, false},
		{"soon", 0, false},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second, true},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0, false},
		{"9300000000", time.Duration(math.MaxInt64), true},
		{"9223372036854775807", time.Duration(math.MaxInt64), true},
	}

	for _, tt := range tests {
		got, ok := parseRetryAfter(tt.raw, now)
		assert.Equal(t, tt.ok, ok, "raw %q", tt.raw)
		assert.Equal(t, tt.want, got, "raw %q", tt.raw)
	}
}
