package resilience_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/dosecast/internal/resilience"
)

func fastConfig(name string) resilience.ClientConfig {
	return resilience.ClientConfig{
		Name:            name,
		Timeout:         time.Second,
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("CDF\x01"))
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("test"))

	body, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("CDF\x01"), body)
	assert.Equal(t, "test", client.Name())
}

func TestClient_RetryOn5xx(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	cfg := fastConfig("test-retry")
	breaker := resilience.DefaultBreakerConfig("test-retry")
	breaker.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.Requests >= 100 }
	cfg.Breaker = &breaker
	client := resilience.NewClient(cfg)

	body, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), attempts.Load(), "should have retried until success")
}

func TestClient_MaxRetriesExceeded(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := fastConfig("test-exhaust")
	cfg.MaxRetries = 2
	breaker := resilience.DefaultBreakerConfig("test-exhaust")
	breaker.ReadyToTrip = func(counts gobreaker.Counts) bool { return false }
	cfg.Breaker = &breaker
	client := resilience.NewClient(cfg)

	_, err := client.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, resilience.ErrMaxRetriesExceeded)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_CircuitBreakerTrips(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := fastConfig("test-trip")
	cfg.Breaker = &resilience.BreakerConfig{
		Name:        "test-trip",
		MaxRequests: 1,
		Timeout:     time.Minute,
	}
	client := resilience.NewClient(cfg)

	// Four failing attempts: one request plus three retries.
	_, err := client.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateClosed, client.State())

	// The fifth failure trips the breaker, and the retry is rejected.
	_, err = client.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, gobreaker.StateOpen, client.State())
	assert.Equal(t, int32(5), attempts.Load())
}

func TestClient_4xxNotRetried(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("test-4xx"))

	_, err := client.Fetch(context.Background(), server.URL)
	var se *resilience.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.False(t, se.Retryable())
	assert.Equal(t, int32(1), attempts.Load(), "should not retry 4xx errors")
	assert.Equal(t, uint32(0), client.Counts().TotalFailures)
}

func TestClient_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("more than four bytes"))
	}))
	defer server.Close()

	cfg := fastConfig("test-large")
	cfg.MaxBytes = 4
	client := resilience.NewClient(cfg)

	_, err := client.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, resilience.ErrTooLarge)
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := fastConfig("test-timeout")
	cfg.Timeout = 20 * time.Millisecond
	cfg.MaxRetries = 1
	client := resilience.NewClient(cfg)

	_, err := client.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, resilience.ErrMaxRetriesExceeded)
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("test-cancel"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Fetch(ctx, server.URL)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, resilience.ErrMaxRetriesExceeded)
}

func TestTripOnFailureRatio(t *testing.T) {
	tests := []struct {
		name     string
		counts   gobreaker.Counts
		expected bool
	}{
		{"not enough requests", gobreaker.Counts{Requests: 4, TotalFailures: 4}, false},
		{"low failure rate", gobreaker.Counts{Requests: 10, TotalFailures: 4}, false},
		{"half failing", gobreaker.Counts{Requests: 10, TotalFailures: 5}, true},
		{"exactly 5 all failing", gobreaker.Counts{Requests: 5, TotalFailures: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resilience.TripOnFailureRatio(tt.counts))
		})
	}
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := resilience.DefaultClientConfig("cams")

	assert.Equal(t, "cams", cfg.Name)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, uint64(3), cfg.MaxRetries)
	assert.Equal(t, int64(1<<30), cfg.MaxBytes)
	require.NotNil(t, cfg.Breaker)
	assert.Equal(t, "cams", cfg.Breaker.Name)
}

func TestStatusError(t *testing.T) {
	err := &resilience.StatusError{StatusCode: http.StatusInternalServerError}
	assert.Contains(t, err.Error(), "Internal Server Error")
	assert.True(t, err.Retryable())
}
