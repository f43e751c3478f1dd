package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned when the circuit breaker rejects the download.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrMaxRetriesExceeded is returned when all retry attempts have been exhausted.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrTooLarge is returned when a response body exceeds MaxBytes.
	ErrTooLarge = errors.New("response body too large")
)

// ClientConfig holds configuration for the download client.
type ClientConfig struct {
	// Name identifies this client in health output and breaker state.
	Name string

	// Timeout bounds a single download attempt.
	// Default: 2 minutes
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts.
	// Default: 3
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval.
	// Default: 500ms
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval.
	// Default: 10 seconds
	MaxInterval time.Duration

	// MaxBytes caps the response body size.
	// Default: 1 GiB
	MaxBytes int64

	// Breaker is the circuit breaker configuration.
	// If nil, DefaultBreakerConfig is used.
	Breaker *BreakerConfig
}

// DefaultClientConfig returns defaults sized for forecast file downloads.
func DefaultClientConfig(name string) ClientConfig {
	breaker := DefaultBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         2 * time.Minute,
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxBytes:        1 << 30,
		Breaker:         &breaker,
	}
}

// Client downloads whole resources over HTTP with retries and a circuit breaker.
type Client struct {
	name       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	config     ClientConfig
}

// NewClient creates a new download client.
func NewClient(cfg ClientConfig) *Client {
	defaults := DefaultClientConfig(cfg.Name)
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = defaults.InitialInterval
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = defaults.MaxInterval
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = defaults.MaxBytes
	}
	if cfg.Breaker == nil {
		cfg.Breaker = defaults.Breaker
	}

	return &Client{
		name:       cfg.Name,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    newBreaker[[]byte](*cfg.Breaker),
		config:     cfg,
	}
}

// Name returns the client identifier.
func (c *Client) Name() string {
	return c.name
}

// Fetch downloads url and returns its body.
// Network errors and 5xx responses are retried with exponential backoff and
// count against the circuit breaker. Other non-2xx responses fail at once
// with a *StatusError. An open breaker fails with ErrCircuitOpen.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0 // retries are bounded by MaxRetries
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var body []byte
	operation := func() error {
		var clientErr error
		data, err := c.breaker.Execute(func() ([]byte, error) {
			data, err := c.get(ctx, url)
			var se *StatusError
			if errors.As(err, &se) && !se.Retryable() {
				// A rejected request says nothing about the remote's health.
				clientErr = err
				return nil, nil
			}
			return data, err
		})
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrCircuitOpen)
		case errors.Is(err, ErrTooLarge):
			return backoff.Permanent(err)
		case err != nil:
			return err
		case clientErr != nil:
			return backoff.Permanent(clientErr)
		}
		body = data
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		var se *StatusError
		if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooLarge) || ctx.Err() != nil ||
			(errors.As(err, &se) && !se.Retryable()) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.config.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, c.config.MaxBytes)
	}
	return data, nil
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Retryable reports whether the status is a server-side failure.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500
}

// State returns the current state of the circuit breaker.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the current counts of the circuit breaker.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}
