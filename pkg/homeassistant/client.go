package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vertex-home/assist-bridge/internal/httpclient"
)

// serviceCacheTTL bounds how long the service registry snapshot is reused
// for existence checks before it is refetched.
const serviceCacheTTL = 5 * time.Minute

// Config holds REST client configuration.
type Config struct {
	// BaseURL is the Home Assistant base URL (e.g. "http://homeassistant.local:8123")
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Token is a long-lived access token
	Token string `yaml:"token" json:"token"`

	// Timeout for individual API calls (0 = client default)
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.Token == "" {
		return fmt.Errorf("token is required")
	}
	return nil
}

// Client talks to the Home Assistant REST API.
type Client struct {
	config Config
	client *httpclient.Client

	mu          sync.Mutex
	services    map[string]map[string]struct{}
	servicesAge time.Time
}

// NewClient creates a new REST client.
func NewClient(config Config, client *httpclient.Client) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if client == nil {
		client = httpclient.New(httpclient.Config{Timeout: config.Timeout})
	}
	return &Client{
		config: config,
		client: client,
	}, nil
}

// HasService reports whether domain.service is registered, consulting a
// cached snapshot of GET /api/services.
func (c *Client) HasService(ctx context.Context, domain, service string) (bool, error) {
	c.mu.Lock()
	fresh := c.services != nil && time.Since(c.servicesAge) < serviceCacheTTL
	if fresh {
		_, ok := c.services[domain][service]
		c.mu.Unlock()
		return ok, nil
	}
	c.mu.Unlock()

	domains, err := c.Services(ctx)
	if err != nil {
		return false, err
	}

	snapshot := make(map[string]map[string]struct{}, len(domains))
	for _, d := range domains {
		names := make(map[string]struct{}, len(d.Services))
		for name := range d.Services {
			names[name] = struct{}{}
		}
		snapshot[d.Domain] = names
	}

	c.mu.Lock()
	c.services = snapshot
	c.servicesAge = time.Now()
	_, ok := c.services[domain][service]
	c.mu.Unlock()
	return ok, nil
}

// CallService invokes POST /api/services/{domain}/{service}. The REST API
// takes target fields inside the body, so data and target are merged.
func (c *Client) CallService(ctx context.Context, domain, service string, data, target map[string]interface{}) error {
	body := make(map[string]interface{}, len(data)+len(target))
	for k, v := range data {
		body[k] = v
	}
	for k, v := range target {
		body[k] = v
	}

	path := fmt.Sprintf("/api/services/%s/%s", domain, service)
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("service call %s.%s failed: status %d: %s", domain, service, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

// Services returns the service registry from GET /api/services.
func (c *Client) Services(ctx context.Context) ([]ServiceDomain, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/services", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list services: status %d", resp.StatusCode)
	}

	var domains []ServiceDomain
	if err := json.NewDecoder(resp.Body).Decode(&domains); err != nil {
		return nil, fmt.Errorf("failed to parse services response: %w", err)
	}
	return domains, nil
}

// States returns all entity states from GET /api/states.
func (c *Client) States(ctx context.Context) ([]State, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/states", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list states: status %d", resp.StatusCode)
	}

	var states []State
	if err := json.NewDecoder(resp.Body).Decode(&states); err != nil {
		return nil, fmt.Errorf("failed to parse states response: %w", err)
	}
	return states, nil
}

// Ping checks connectivity and token validity against GET /api/.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("authentication failed: invalid access token")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("home assistant request failed: %w", err)
	}
	return resp, nil
}
