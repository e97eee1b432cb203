package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertex-home/assist-bridge/pkg/assist"
	"github.com/vertex-home/assist-bridge/pkg/config"
	"github.com/vertex-home/assist-bridge/pkg/types"
)

type scriptedProvider struct {
	reply string
	err   error
}

func (p *scriptedProvider) Name() string                      { return "scripted" }
func (p *scriptedProvider) Type() types.ProviderType          { return types.ProviderTypeClaude }
func (p *scriptedProvider) HealthCheck(context.Context) error { return p.err }

func (p *scriptedProvider) Generate(ctx context.Context, req *types.GenerateRequest) (*types.GenerateResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &types.GenerateResponse{
		Content:    []types.ContentPart{types.NewTextPart(p.reply)},
		StopReason: "end_turn",
	}, nil
}

func (p *scriptedProvider) Transcribe(ctx context.Context, req *types.TranscribeRequest) (*types.TranscribeResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &types.TranscribeResponse{Text: p.reply}, nil
}

func newTestServer(t *testing.T, cfg *config.Config, provider types.Provider) *httptest.Server {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	}

	conversation, err := assist.NewConversation(provider, nil, nil, assist.NewSessionStore(0), assist.ConverseOptions{})
	require.NoError(t, err)
	task, err := assist.NewTask(provider, assist.ConverseOptions{})
	require.NoError(t, err)

	services := Services{
		Conversation: conversation,
		Task:         task,
		Providers:    map[string]types.Provider{"claude": provider},
	}
	if transcriber, ok := provider.(types.TranscriptionProvider); ok {
		services.STT, err = assist.NewSTT(transcriber)
		require.NoError(t, err)
	}

	server := NewServer(cfg, services)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decodeResponse(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, &scriptedProvider{reply: "hi"})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	body := decodeResponse(t, resp)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["request_id"])
}

func TestVersionEndpoint(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Server.Version = "2.3.4"
	ts := newTestServer(t, cfg, &scriptedProvider{reply: "hi"})

	resp, err := http.Get(ts.URL + "/version")
	require.NoError(t, err)

	body := decodeResponse(t, resp)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "2.3.4", data["version"])
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, &scriptedProvider{reply: "ok"})

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)

	body := decodeResponse(t, resp)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])

	providers := data["providers"].(map[string]interface{})
	claude := providers["claude"].(map[string]interface{})
	assert.Equal(t, true, claude["healthy"])
}

func TestConverseEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, &scriptedProvider{reply: "The lights are on."})

	payload, _ := json.Marshal(map[string]string{"text": "turn on the lights"})
	resp, err := http.Post(ts.URL+"/api/converse", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeResponse(t, resp)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "The lights are on.", data["text"])
	assert.NotEmpty(t, data["conversation_id"])
}

func TestConverseInvalidBody(t *testing.T) {
	ts := newTestServer(t, nil, &scriptedProvider{reply: "hi"})

	resp, err := http.Post(ts.URL+"/api/converse", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeResponse(t, resp)
	errInfo := body["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_REQUEST", errInfo["code"])
}

func TestConverseMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, nil, &scriptedProvider{reply: "hi"})

	resp, err := http.Get(ts.URL + "/api/converse")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestTaskEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, &scriptedProvider{reply: `{"answer": 42}`})

	payload, _ := json.Marshal(map[string]interface{}{
		"instructions": "compute the answer",
		"structure":    map[string]interface{}{"type": "object"},
	})
	resp, err := http.Post(ts.URL+"/api/task", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)

	body := decodeResponse(t, resp)
	data := body["data"].(map[string]interface{})
	inner := data["data"].(map[string]interface{})
	assert.Equal(t, float64(42), inner["answer"])
}

func TestToolsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, &scriptedProvider{reply: "hi"})

	resp, err := http.Get(ts.URL + "/api/tools")
	require.NoError(t, err)

	body := decodeResponse(t, resp)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["count"])
}

func TestSTTEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, &scriptedProvider{reply: "turn off the lights"})

	resp, err := http.Post(ts.URL+"/api/stt?format=wav", "audio/wav", bytes.NewReader([]byte{1, 2, 3}))
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeResponse(t, resp)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "turn off the lights", data["text"])
}

func TestSTTRejectsOversizeAudio(t *testing.T) {
	ts := newTestServer(t, nil, &scriptedProvider{reply: "never transcribed"})

	oversize := make([]byte, 20<<20+1)
	resp, err := http.Post(ts.URL+"/api/stt", "audio/wav", bytes.NewReader(oversize))
	require.NoError(t, err)

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	body := decodeResponse(t, resp)
	errInfo := body["error"].(map[string]interface{})
	assert.Equal(t, "PAYLOAD_TOO_LARGE", errInfo["code"])
}

func TestUnconfiguredServiceAnswers503(t *testing.T) {
	ts := newTestServer(t, nil, &scriptedProvider{reply: "hi"})

	payload, _ := json.Marshal(map[string]string{"text": "hello"})
	resp, err := http.Post(ts.URL+"/api/tts", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Auth.Enabled = true
	cfg.Auth.APIPassword = "sekrit"
	ts := newTestServer(t, cfg, &scriptedProvider{reply: "hi"})

	t.Run("PublicPathOpen", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("MissingToken", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/converse", "application/json", bytes.NewReader([]byte(`{"text":"hi"}`)))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("ValidToken", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/converse", bytes.NewReader([]byte(`{"text":"hi"}`)))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer sekrit")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRequestIDPropagation(t *testing.T) {
	ts := newTestServer(t, nil, &scriptedProvider{reply: "hi"})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "my-id-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	assert.Equal(t, "my-id-123", resp.Header.Get("X-Request-ID"))
	body := decodeResponse(t, resp)
	assert.Equal(t, "my-id-123", body["request_id"])
}
