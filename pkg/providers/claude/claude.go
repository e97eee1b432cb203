package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/vertex-home/assist-bridge/internal/httpclient"
	"github.com/vertex-home/assist-bridge/pkg/types"
)

const (
	// anthropicVersion is the API version Vertex AI expects in the body in
	// place of the model field.
	anthropicVersion = "vertex-2023-10-16"

	// defaultMaxTokens matches the integration default.
	defaultMaxTokens = 3000

	// defaultRequestsPerMinute bounds client-side request pacing.
	defaultRequestsPerMinute = 60
)

// Config holds Claude-on-Vertex provider configuration.
type Config struct {
	// ProjectID is the GCP project ID
	ProjectID string `json:"project_id"`

	// Region is the GCP region (e.g. "us-east5")
	Region string `json:"region"`

	// Model is the default model, in Anthropic or Vertex format
	Model string `json:"model,omitempty"`

	// MaxTokens is the default max_tokens when a request does not set one
	MaxTokens int `json:"max_tokens,omitempty"`

	// Endpoint overrides the default https://{region}-aiplatform.googleapis.com
	Endpoint string `json:"endpoint,omitempty"`

	// RequestsPerMinute caps client-side request pacing (0 = default)
	RequestsPerMinute int `json:"requests_per_minute,omitempty"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	return nil
}

// endpoint returns the Vertex AI endpoint URL
func (c *Config) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com", c.Region)
}

// Provider implements types.Provider for Claude models hosted on Vertex AI.
type Provider struct {
	config      Config
	tokenSource oauth2.TokenSource
	client      *httpclient.Client
	limiter     *rate.Limiter
}

// New creates a new Claude provider.
func New(config Config, tokenSource oauth2.TokenSource, client *httpclient.Client) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if tokenSource == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if client == nil {
		client = httpclient.New(httpclient.Config{})
	}

	rpm := config.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}

	return &Provider{
		config:      config,
		tokenSource: tokenSource,
		client:      client,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
	}, nil
}

// Name returns the display name of the provider.
func (p *Provider) Name() string {
	return "Claude (Vertex AI)"
}

// Type returns the provider type.
func (p *Provider) Type() types.ProviderType {
	return types.ProviderTypeClaude
}

// Generate performs a Messages API call through Vertex AI rawPredict.
func (p *Provider) Generate(ctx context.Context, req *types.GenerateRequest) (*types.GenerateResponse, error) {
	if len(req.Messages) == 0 {
		return nil, types.NewProviderError(p.Type(), types.ErrCodeInvalidRequest, "no messages to generate from").
			WithOperation("generate")
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = DefaultModel
	}
	vertexModel := NormalizeModelID(model)

	if !IsModelAvailableInRegion(vertexModel, p.config.Region) {
		regions := AvailableRegions(vertexModel)
		return nil, types.NewProviderError(p.Type(), types.ErrCodeRegionUnavailable,
			fmt.Sprintf("model %s is not available in region %s, available in: %s",
				vertexModel, p.config.Region, strings.Join(regions, ", "))).
			WithOperation("generate")
	}

	payload, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/anthropic/models/%s:rawPredict",
		p.config.endpoint(), p.config.ProjectID, p.config.Region, vertexModel)

	body, err := p.doJSON(ctx, url, payload)
	if err != nil {
		return nil, err
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, types.NewProviderError(p.Type(), types.ErrCodeServerError, "failed to parse response").
			WithOperation("generate").WithOriginalErr(err)
	}

	return p.toGenerateResponse(&resp, model), nil
}

// HealthCheck validates connectivity and credentials with a minimal message.
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Generate(ctx, &types.GenerateRequest{
		Messages:  []types.ChatMessage{{Role: types.RoleUser, Content: "test"}},
		MaxTokens: 10,
	})
	if err != nil {
		return fmt.Errorf("claude health check failed: %w", err)
	}
	return nil
}

// buildRequest converts a neutral request to the Anthropic wire format.
// System messages in the history are folded into the system field since the
// Messages API rejects them inline.
func (p *Provider) buildRequest(req *types.GenerateRequest) (*messagesRequest, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	var systemPrompts []string
	if req.System != "" {
		systemPrompts = append(systemPrompts, req.System)
	}

	messages := make([]wireMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role == types.RoleSystem {
			systemPrompts = append(systemPrompts, msg.Text())
			continue
		}
		wm, err := toWireMessage(msg)
		if err != nil {
			return nil, types.NewProviderError(p.Type(), types.ErrCodeInvalidRequest, err.Error()).
				WithOperation("generate")
		}
		messages = append(messages, wm)
	}

	payload := &messagesRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		System:           strings.Join(systemPrompts, "\n\n"),
		Messages:         messages,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		TopK:             req.TopK,
	}

	for _, tool := range req.Tools {
		payload.Tools = append(payload.Tools, wireTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	if req.ToolChoice != nil {
		payload.ToolChoice = &wireToolChoice{Type: req.ToolChoice.Type, Name: req.ToolChoice.Name}
	}

	return payload, nil
}

// toWireMessage converts a neutral message to the Anthropic format.
func toWireMessage(msg types.ChatMessage) (wireMessage, error) {
	if len(msg.Parts) == 0 {
		return wireMessage{Role: msg.Role, Content: msg.Content}, nil
	}

	blocks := make([]wireContentBlock, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		switch part.Type {
		case types.ContentTypeText:
			blocks = append(blocks, wireContentBlock{Type: "text", Text: part.Text})
		case types.ContentTypeToolUse:
			blocks = append(blocks, wireContentBlock{
				Type:  "tool_use",
				ID:    part.ID,
				Name:  part.Name,
				Input: part.Input,
			})
		case types.ContentTypeToolResult:
			blocks = append(blocks, wireContentBlock{
				Type:      "tool_result",
				ToolUseID: part.ToolUseID,
				Content:   part.Content,
			})
		default:
			return wireMessage{}, fmt.Errorf("unsupported content part type %q", part.Type)
		}
	}
	return wireMessage{Role: msg.Role, Content: blocks}, nil
}

// toGenerateResponse converts an Anthropic response to the neutral format.
// The configured model ID is restored since Vertex AI echoes its own form.
func (p *Provider) toGenerateResponse(resp *messagesResponse, model string) *types.GenerateResponse {
	out := &types.GenerateResponse{
		ID:         resp.ID,
		Model:      model,
		StopReason: resp.StopReason,
		Usage: types.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Content = append(out.Content, types.NewTextPart(block.Text))
		case "tool_use":
			out.Content = append(out.Content, types.ContentPart{
				Type:  types.ContentTypeToolUse,
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		default:
			log.Printf("claude: ignoring unsupported response block type %q", block.Type)
		}
	}

	return out
}

// doJSON posts a JSON payload with auth and returns the response body, or a
// classified provider error.
func (p *Provider) doJSON(ctx context.Context, url string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := p.tokenSource.Token()
	if err != nil {
		return nil, types.NewProviderError(p.Type(), types.ErrCodeAuthentication, "failed to get access token").
			WithOperation("generate").WithOriginalErr(err)
	}
	token.SetAuthHeader(req)

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, types.NewProviderError(p.Type(), types.ErrCodeNetwork, "request failed").
			WithOperation("generate").WithOriginalErr(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewProviderError(p.Type(), types.ErrCodeNetwork, "failed to read response").
			WithOperation("generate").WithOriginalErr(err)
	}

	if resp.StatusCode != http.StatusOK {
		clsErr := p.classifyError(resp.StatusCode, body)
		if resp.StatusCode == http.StatusTooManyRequests {
			if pe, ok := types.AsProviderError(clsErr); ok {
				if seconds, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil {
					pe.WithRetryAfter(seconds)
				}
			}
		}
		return nil, clsErr
	}

	return body, nil
}

// classifyError turns a non-200 response into a ProviderError. Both the
// Anthropic error envelope and the Google Cloud envelope appear in practice,
// depending on whether the request reached the model backend.
func (p *Provider) classifyError(statusCode int, body []byte) error {
	message := strings.TrimSpace(string(body))

	var anthropicErr errorResponse
	if err := json.Unmarshal(body, &anthropicErr); err == nil && anthropicErr.Error.Message != "" {
		message = anthropicErr.Error.Message
	} else {
		var googleErr googleErrorResponse
		if err := json.Unmarshal(body, &googleErr); err == nil && googleErr.Error.Message != "" {
			message = googleErr.Error.Message
			if googleErr.Error.Status == "RESOURCE_EXHAUSTED" {
				return types.NewProviderError(p.Type(), types.ErrCodeQuotaExceeded, message).
					WithOperation("generate").WithStatusCode(statusCode)
			}
		}
	}

	code := types.ClassifyHTTPStatus(statusCode)
	return types.NewProviderError(p.Type(), code, message).
		WithOperation("generate").WithStatusCode(statusCode)
}
