// Package httpclient provides the shared HTTP client used by the Vertex AI
// providers and the Home Assistant client. It adds connection pooling,
// retry with exponential backoff on retryable status codes, and Retry-After
// handling on top of net/http.
package httpclient

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"
)

// Config configures the HTTP client
type Config struct {
	Timeout   time.Duration     `json:"timeout,omitempty"`
	Backoff   BackoffConfig     `json:"-"`
	Headers   map[string]string `json:"headers,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`

	// Transport configuration
	MaxIdleConns        int           `json:"max_idle_conns,omitempty"`
	MaxIdleConnsPerHost int           `json:"max_idle_conns_per_host,omitempty"`
	IdleConnTimeout     time.Duration `json:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout time.Duration `json:"tls_handshake_timeout,omitempty"`
}

// Client is an HTTP client with retry logic shared by all upstream calls.
type Client struct {
	client *http.Client
	config Config
}

// New creates a new HTTP client with pooled transport and retry defaults.
func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.Backoff.MaxAttempts == 0 {
		config.Backoff = DefaultBackoffConfig()
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}
	if config.IdleConnTimeout == 0 {
		config.IdleConnTimeout = 90 * time.Second
	}
	if config.TLSHandshakeTimeout == 0 {
		config.TLSHandshakeTimeout = 10 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "assist-bridge/1.0"
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		TLSHandshakeTimeout: config.TLSHandshakeTimeout,
		ForceAttemptHTTP2:   true,
		Proxy:               http.ProxyFromEnvironment,
	}

	return &Client{
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		config: config,
	}
}

// HTTPClient returns the underlying *http.Client for callers that manage
// their own retries (e.g. the oauth2 token exchange).
func (c *Client) HTTPClient() *http.Client {
	return c.client
}

// Do executes an HTTP request, retrying retryable status codes with
// exponential backoff. The request must have GetBody set (true for requests
// built with bytes.Reader bodies) for retries to replay the payload.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	var resp *http.Response
	var err error

	maxAttempts := c.config.Backoff.MaxAttempts
	for attempt := 0; attempt <= maxAttempts; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(c.config.Backoff, attempt)
			if retryAfter := retryAfterDelay(resp); retryAfter > 0 {
				delay = retryAfter
			}
			log.Printf("httpclient: retrying %s %s in %v (attempt %d/%d)",
				req.Method, req.URL.Path, delay, attempt, maxAttempts)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}

			if req.GetBody != nil {
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return nil, fmt.Errorf("failed to rewind request body: %w", bodyErr)
				}
				req.Body = body
			} else if req.Body != nil {
				// Cannot replay the body, give up with the last result
				break
			}
		}

		resp, err = c.client.Do(req.WithContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		if !IsRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		// Drain and close so the connection can be reused before retrying
		if attempt < maxAttempts {
			_ = resp.Body.Close()
		}
	}

	if err != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", maxAttempts+1, err)
	}
	return resp, nil
}

// IsRetryableStatus reports whether a status code is worth retrying.
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfterDelay parses the Retry-After header of a response, if any.
func retryAfterDelay(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
