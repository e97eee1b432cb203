package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/vertex-home/assist-bridge/internal/httpclient"
	"github.com/vertex-home/assist-bridge/pkg/types"
)

const (
	// DefaultModel is the recommended Gemini chat model on Vertex AI.
	DefaultModel = "gemini-2.5-flash"

	// DefaultSpeechModel is the recommended TTS-capable model.
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"

	// DefaultRegion is the default Gemini serving region.
	DefaultRegion = "us-central1"

	// defaultMaxTokens matches the integration default.
	defaultMaxTokens = 3000

	// defaultRequestsPerMinute bounds client-side request pacing.
	defaultRequestsPerMinute = 60

	// DefaultVoice is used when a speech request names no voice.
	DefaultVoice = "Puck"
)

// Voices are the prebuilt Gemini TTS voices the bridge exposes.
var Voices = []string{"Puck", "Charon", "Kore", "Fenrir", "Aoede"}

// Config holds Gemini-on-Vertex provider configuration.
type Config struct {
	// ProjectID is the GCP project ID
	ProjectID string `json:"project_id"`

	// Region is the GCP region (e.g. "us-central1")
	Region string `json:"region"`

	// Model is the default chat/transcription model
	Model string `json:"model,omitempty"`

	// SpeechModel is the default speech synthesis model
	SpeechModel string `json:"speech_model,omitempty"`

	// MaxTokens is the default maxOutputTokens when a request does not set one
	MaxTokens int `json:"max_tokens,omitempty"`

	// HarmBlockThreshold applied across all harm categories
	HarmBlockThreshold string `json:"harm_block_threshold,omitempty"`

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
	if c.HarmBlockThreshold != "" {
		if err := ValidateHarmBlockThreshold(c.HarmBlockThreshold); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com", c.Region)
}

// Provider implements types.Provider, types.SpeechProvider and
// types.TranscriptionProvider for Gemini models hosted on Vertex AI.
type Provider struct {
	config      Config
	tokenSource oauth2.TokenSource
	client      *httpclient.Client
	limiter     *rate.Limiter
}

// New creates a new Gemini provider.
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
	return "Gemini (Vertex AI)"
}

// Type returns the provider type.
func (p *Provider) Type() types.ProviderType {
	return types.ProviderTypeGemini
}

// Generate performs a generateContent call.
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

	payload, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.generateContent(ctx, model, payload, "generate")
	if err != nil {
		return nil, err
	}

	return p.toGenerateResponse(resp, model)
}

// GenerateSpeech synthesizes audio from text using the audio response
// modality. The returned payload is raw PCM; MimeType describes it.
func (p *Provider) GenerateSpeech(ctx context.Context, req *types.SpeechRequest) (*types.SpeechResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, types.NewProviderError(p.Type(), types.ErrCodeInvalidRequest, "no text to synthesize").
			WithOperation("generate_speech")
	}

	model := req.Model
	if model == "" {
		model = p.config.SpeechModel
	}
	if model == "" {
		model = DefaultSpeechModel
	}

	voice := req.Voice
	if voice == "" {
		voice = DefaultVoice
	}

	payload := &generateContentRequest{
		Contents: []wireContent{{Role: "user", Parts: []wirePart{{Text: req.Text}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voice},
				},
			},
		},
	}

	resp, err := p.generateContent(ctx, model, payload, "generate_speech")
	if err != nil {
		return nil, err
	}

	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil {
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, types.NewProviderError(p.Type(), types.ErrCodeServerError, "failed to decode audio payload").
					WithOperation("generate_speech").WithOriginalErr(err)
			}
			return &types.SpeechResponse{Audio: audio, MimeType: part.InlineData.MimeType}, nil
		}
	}

	return nil, types.NewProviderError(p.Type(), types.ErrCodeServerError, "no audio data found in response").
		WithOperation("generate_speech")
}

// Transcribe converts audio to text. A language hint sharpens the prompt
// when provided.
func (p *Provider) Transcribe(ctx context.Context, req *types.TranscribeRequest) (*types.TranscribeResponse, error) {
	if len(req.Audio) == 0 {
		return nil, types.NewProviderError(p.Type(), types.ErrCodeInvalidRequest, "no audio to transcribe").
			WithOperation("transcribe")
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = DefaultModel
	}

	prompt := "Transcribe this audio."
	if req.Language != "" {
		prompt = fmt.Sprintf("Transcribe this audio in %s.", req.Language)
	}

	payload := &generateContentRequest{
		Contents: []wireContent{{
			Role: "user",
			Parts: []wirePart{
				{InlineData: &inlineData{
					MimeType: req.MimeType,
					Data:     base64.StdEncoding.EncodeToString(req.Audio),
				}},
				{Text: prompt},
			},
		}},
	}

	resp, err := p.generateContent(ctx, model, payload, "transcribe")
	if err != nil {
		return nil, err
	}

	out := &types.TranscribeResponse{}
	if resp.UsageMetadata != nil {
		out.Usage = types.Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			out.Text += part.Text
		}
	}
	return out, nil
}

// HealthCheck validates connectivity and credentials with a minimal call.
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Generate(ctx, &types.GenerateRequest{
		Messages:  []types.ChatMessage{{Role: types.RoleUser, Content: "test"}},
		MaxTokens: 10,
	})
	if err != nil {
		return fmt.Errorf("gemini health check failed: %w", err)
	}
	return nil
}

// buildRequest converts a neutral request to the generateContent format.
func (p *Provider) buildRequest(req *types.GenerateRequest) (*generateContentRequest, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	payload := &generateContentRequest{
		GenerationConfig: &generationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			TopK:            req.TopK,
			MaxOutputTokens: maxTokens,
		},
		SafetySettings: buildSafetySettings(p.config.HarmBlockThreshold),
	}

	if req.ResponseSchema != nil {
		payload.GenerationConfig.ResponseMimeType = "application/json"
		payload.GenerationConfig.ResponseSchema = req.ResponseSchema
	}

	var systemPrompts []string
	if req.System != "" {
		systemPrompts = append(systemPrompts, req.System)
	}

	for _, msg := range req.Messages {
		if msg.Role == types.RoleSystem {
			systemPrompts = append(systemPrompts, msg.Text())
			continue
		}
		content, err := toWireContent(msg)
		if err != nil {
			return nil, types.NewProviderError(p.Type(), types.ErrCodeInvalidRequest, err.Error()).
				WithOperation("generate")
		}
		payload.Contents = append(payload.Contents, content)
	}

	if len(systemPrompts) > 0 {
		payload.SystemInstruction = &wireContent{
			Parts: []wirePart{{Text: strings.Join(systemPrompts, "\n\n")}},
		}
	}

	if len(req.Tools) > 0 {
		set := wireToolSet{}
		for _, tool := range req.Tools {
			set.FunctionDeclarations = append(set.FunctionDeclarations, functionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			})
		}
		payload.Tools = []wireToolSet{set}
	}
	if req.ToolChoice != nil {
		payload.ToolConfig = toToolConfig(req.ToolChoice)
	}

	return payload, nil
}

// toToolConfig maps the neutral tool choice onto Gemini's calling modes.
func toToolConfig(choice *types.ToolChoice) *toolConfig {
	cfg := &toolConfig{FunctionCallingConfig: functionCallingConfig{Mode: "AUTO"}}
	switch choice.Type {
	case types.ToolChoiceAny:
		cfg.FunctionCallingConfig.Mode = "ANY"
	case types.ToolChoiceNone:
		cfg.FunctionCallingConfig.Mode = "NONE"
	case types.ToolChoiceTool:
		cfg.FunctionCallingConfig.Mode = "ANY"
		cfg.FunctionCallingConfig.AllowedFunctionNames = []string{choice.Name}
	}
	return cfg
}

// toWireContent converts a neutral message to Gemini content. Assistant
// messages map to the "model" role; tool results ride in user turns as
// functionResponse parts.
func toWireContent(msg types.ChatMessage) (wireContent, error) {
	role := "user"
	if msg.Role == types.RoleAssistant {
		role = "model"
	}

	if len(msg.Parts) == 0 {
		return wireContent{Role: role, Parts: []wirePart{{Text: msg.Content}}}, nil
	}

	parts := make([]wirePart, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		switch part.Type {
		case types.ContentTypeText:
			parts = append(parts, wirePart{Text: part.Text})
		case types.ContentTypeAudio:
			if part.Source == nil {
				return wireContent{}, fmt.Errorf("audio part has no source")
			}
			parts = append(parts, wirePart{InlineData: &inlineData{
				MimeType: part.Source.MediaType,
				Data:     part.Source.Data,
			}})
		case types.ContentTypeToolUse:
			parts = append(parts, wirePart{FunctionCall: &functionCall{
				Name: part.Name,
				Args: part.Input,
			}})
		case types.ContentTypeToolResult:
			name := part.Name
			if name == "" {
				name = part.ToolUseID
			}
			response, ok := part.Content.(map[string]interface{})
			if !ok {
				response = map[string]interface{}{"result": part.Content}
			}
			parts = append(parts, wirePart{FunctionResponse: &functionResponse{
				Name:     name,
				Response: response,
			}})
		default:
			return wireContent{}, fmt.Errorf("unsupported content part type %q", part.Type)
		}
	}
	return wireContent{Role: role, Parts: parts}, nil
}

// toGenerateResponse converts a generateContent response to the neutral
// format. Gemini function calls carry no IDs, so the function name doubles
// as the tool_use ID.
func (p *Provider) toGenerateResponse(resp *generateContentResponse, model string) (*types.GenerateResponse, error) {
	if len(resp.Candidates) == 0 {
		return nil, types.NewProviderError(p.Type(), types.ErrCodeServerError, "no valid response generated").
			WithOperation("generate")
	}

	out := &types.GenerateResponse{
		ID:         resp.ResponseID,
		Model:      model,
		StopReason: strings.ToLower(resp.Candidates[0].FinishReason),
	}
	if resp.UsageMetadata != nil {
		out.Usage = types.Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			out.Content = append(out.Content, types.ContentPart{
				Type:  types.ContentTypeToolUse,
				ID:    part.FunctionCall.Name,
				Name:  part.FunctionCall.Name,
				Input: part.FunctionCall.Args,
			})
		case part.InlineData != nil:
			out.Content = append(out.Content, types.NewAudioPart(part.InlineData.MimeType, part.InlineData.Data))
		case part.Text != "":
			out.Content = append(out.Content, types.NewTextPart(part.Text))
		}
	}

	return out, nil
}

// generateContent performs the HTTP call for one model invocation.
func (p *Provider) generateContent(ctx context.Context, model string, payload *generateContentRequest, operation string) (*generateContentResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		p.config.endpoint(), p.config.ProjectID, p.config.Region, model)

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
			WithOperation(operation).WithOriginalErr(err)
	}
	token.SetAuthHeader(req)

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, types.NewProviderError(p.Type(), types.ErrCodeNetwork, "request failed").
			WithOperation(operation).WithOriginalErr(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewProviderError(p.Type(), types.ErrCodeNetwork, "failed to read response").
			WithOperation(operation).WithOriginalErr(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.classifyError(operation, resp.StatusCode, body)
	}

	var out generateContentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, types.NewProviderError(p.Type(), types.ErrCodeServerError, "failed to parse response").
			WithOperation(operation).WithOriginalErr(err)
	}

	if out.ModelVersion != "" {
		log.Printf("gemini: %s served by %s", operation, out.ModelVersion)
	}

	return &out, nil
}

// classifyError turns a non-200 response into a ProviderError.
func (p *Provider) classifyError(operation string, statusCode int, body []byte) error {
	message := strings.TrimSpace(string(body))

	var googleErr googleErrorResponse
	if err := json.Unmarshal(body, &googleErr); err == nil && googleErr.Error.Message != "" {
		message = googleErr.Error.Message
		if googleErr.Error.Status == "RESOURCE_EXHAUSTED" {
			return types.NewProviderError(p.Type(), types.ErrCodeQuotaExceeded, message).
				WithOperation(operation).WithStatusCode(statusCode)
		}
	}

	code := types.ClassifyHTTPStatus(statusCode)
	return types.NewProviderError(p.Type(), code, message).
		WithOperation(operation).WithStatusCode(statusCode)
}
