// Package tollapi talks to the remote toll and fuel price service.
//
// The Client turns a trip into a toll quote and a place into fuel prices.
// With no API key configured it serves built-in sample data so the rest of
// the system can run end to end without credentials.
package tollapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultTollURL = "https://api.leptonmaps.com/v1/toll"
	DefaultFuelURL = "https://api.leptonmaps.com/v1/fuel/prices"
	DefaultTimeout = 10 * time.Second
)

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 8 << 20

// Config configures a Client.
type Config struct {
	TollURL string
	FuelURL string
	APIKey  string
	Timeout time.Duration

	// RequestsPerSecond limits outbound calls; zero or less means unlimited.
	RequestsPerSecond float64
	Burst             int

	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client

	// Geocoder resolves free-text fuel locations. Nil disables geocoding.
	Geocoder Geocoder

	// Now is used for the fuel price date. Nil means time.Now.
	Now func() time.Time
}

// Client calls the toll and fuel endpoints.
type Client struct {
	cfg      Config
	http     *http.Client
	limiter  *rate.Limiter
	geocoder Geocoder
	now      func() time.Time
}

// LookupError is a failure reported by the remote service. Message is what
// the service said, or a fixed description when it said nothing usable.
type LookupError struct {
	Status  int
	Message string
}

func (e *LookupError) Error() string { return e.Message }

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.TollURL == "" {
		cfg.TollURL = DefaultTollURL
	}
	if cfg.FuelURL == "" {
		cfg.FuelURL = DefaultFuelURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		cfg:      cfg,
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, burst),
		geocoder: cfg.Geocoder,
		now:      now,
	}
}

// SampleMode reports whether the client serves built-in sample data
// because no API key is configured.
func (c *Client) SampleMode() bool {
	return c.cfg.APIKey == ""
}

// get performs a rate-limited GET and returns the status and body.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return 0, nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return 0, nil, &LookupError{Status: http.StatusGatewayTimeout, Message: "Request timed out"}
		}
		return 0, nil, fmt.Errorf("lookup service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("lookup service read failed: %w", err)
	}

	return resp.StatusCode, body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
