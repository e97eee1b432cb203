package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsHandshakeTimeout bounds the auth exchange after dialing.
const wsHandshakeTimeout = 10 * time.Second

// wsMessage covers every frame shape the client sends or receives. Only
// the fields relevant to a given type are populated.
type wsMessage struct {
	ID          int                    `json:"id,omitempty"`
	Type        string                 `json:"type"`
	AccessToken string                 `json:"access_token,omitempty"`
	Domain      string                 `json:"domain,omitempty"`
	Service     string                 `json:"service,omitempty"`
	ServiceData map[string]interface{} `json:"service_data,omitempty"`
	Target      map[string]interface{} `json:"target,omitempty"`
	Success     *bool                  `json:"success,omitempty"`
	Result      json.RawMessage        `json:"result,omitempty"`
	Error       *wsError               `json:"error,omitempty"`
	HAVersion   string                 `json:"ha_version,omitempty"`
	Message     string                 `json:"message,omitempty"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WSClient talks to the Home Assistant WebSocket API. Commands are
// serialized; each command waits for its id-correlated result frame.
type WSClient struct {
	config Config

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID int
}

// NewWSClient creates a WebSocket client. The connection is established
// lazily on the first command.
func NewWSClient(config Config) (*WSClient, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &WSClient{config: config}, nil
}

// Connect dials the API and completes the auth handshake
// (auth_required, auth, auth_ok).
func (c *WSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *WSClient) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, wsHandshakeTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.wsURL(), nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	var hello wsMessage
	if err := conn.ReadJSON(&hello); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to read auth_required: %w", err)
	}
	if hello.Type != "auth_required" {
		_ = conn.Close()
		return fmt.Errorf("unexpected handshake message %q", hello.Type)
	}

	if err := conn.WriteJSON(wsMessage{Type: "auth", AccessToken: c.config.Token}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to send auth: %w", err)
	}

	var reply wsMessage
	if err := conn.ReadJSON(&reply); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to read auth reply: %w", err)
	}
	switch reply.Type {
	case "auth_ok":
		log.Printf("homeassistant: websocket authenticated (ha %s)", reply.HAVersion)
	case "auth_invalid":
		_ = conn.Close()
		return fmt.Errorf("authentication failed: %s", reply.Message)
	default:
		_ = conn.Close()
		return fmt.Errorf("unexpected auth reply %q", reply.Type)
	}

	c.conn = conn
	c.nextID = 0
	return nil
}

// Close shuts down the connection if open.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// CallService sends an id-correlated call_service command and waits for
// its result frame.
func (c *WSClient) CallService(ctx context.Context, domain, service string, data, target map[string]interface{}) error {
	msg := wsMessage{
		Type:        "call_service",
		Domain:      domain,
		Service:     service,
		ServiceData: data,
	}
	if len(target) > 0 {
		msg.Target = target
	}

	_, err := c.command(ctx, msg)
	if err != nil {
		return fmt.Errorf("service call %s.%s failed: %w", domain, service, err)
	}
	return nil
}

// HasService fetches the service registry via get_services and checks
// for domain.service.
func (c *WSClient) HasService(ctx context.Context, domain, service string) (bool, error) {
	result, err := c.command(ctx, wsMessage{Type: "get_services"})
	if err != nil {
		return false, fmt.Errorf("get_services failed: %w", err)
	}

	var registry map[string]map[string]json.RawMessage
	if err := json.Unmarshal(result, &registry); err != nil {
		return false, fmt.Errorf("failed to parse service registry: %w", err)
	}
	_, ok := registry[domain][service]
	return ok, nil
}

// command sends one frame and reads frames until the matching result
// arrives. Event frames for other subscriptions are skipped.
func (c *WSClient) command(ctx context.Context, msg wsMessage) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}

	c.nextID++
	msg.ID = c.nextID

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		_ = c.conn.SetReadDeadline(deadline)
	} else {
		_ = c.conn.SetWriteDeadline(time.Time{})
		_ = c.conn.SetReadDeadline(time.Time{})
	}

	if err := c.conn.WriteJSON(msg); err != nil {
		c.dropConn()
		return nil, fmt.Errorf("write failed: %w", err)
	}

	for {
		var reply wsMessage
		if err := c.conn.ReadJSON(&reply); err != nil {
			c.dropConn()
			return nil, fmt.Errorf("read failed: %w", err)
		}
		if reply.Type != "result" || reply.ID != msg.ID {
			continue
		}
		if reply.Success != nil && !*reply.Success {
			if reply.Error != nil {
				return nil, fmt.Errorf("%s: %s", reply.Error.Code, reply.Error.Message)
			}
			return nil, fmt.Errorf("command failed")
		}
		return reply.Result, nil
	}
}

func (c *WSClient) dropConn() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// wsURL derives the websocket endpoint from the configured base URL.
func (c *WSClient) wsURL() string {
	base := strings.TrimRight(c.config.BaseURL, "/")
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/api/websocket"
}
