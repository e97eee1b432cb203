package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/vertex-home/assist-bridge/pkg/types"
)

func testTokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"})
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := New(Config{
		ProjectID: "test-project",
		Region:    "us-central1",
		Endpoint:  server.URL,
	}, testTokenSource(), nil)
	require.NoError(t, err)
	return provider
}

func textResponse(text string) generateContentResponse {
	return generateContentResponse{
		Candidates: []candidate{{
			Content:      wireContent{Role: "model", Parts: []wirePart{{Text: text}}},
			FinishReason: "STOP",
		}},
		UsageMetadata: &usageMetadata{PromptTokenCount: 7, CandidatesTokenCount: 3, TotalTokenCount: 10},
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("BadThreshold", func(t *testing.T) {
		cfg := Config{ProjectID: "p", Region: "r", HarmBlockThreshold: "BLOCK_EVERYTHING"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("ValidThreshold", func(t *testing.T) {
		cfg := Config{ProjectID: "p", Region: "r", HarmBlockThreshold: BlockOnlyHigh}
		assert.NoError(t, cfg.Validate())
	})
}

func TestGenerate(t *testing.T) {
	var captured generateContentRequest
	var capturedPath string

	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(textResponse("It is 21 degrees."))
	})

	resp, err := provider.Generate(context.Background(), &types.GenerateRequest{
		System: "You are a voice assistant.",
		Messages: []types.ChatMessage{
			{Role: types.RoleUser, Content: "what's the temperature?"},
			{Role: types.RoleAssistant, Content: "Checking."},
			{Role: types.RoleUser, Content: "and now?"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/projects/test-project/locations/us-central1/publishers/google/models/gemini-2.5-flash:generateContent", capturedPath)

	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "You are a voice assistant.", captured.SystemInstruction.Parts[0].Text)

	require.Len(t, captured.Contents, 3)
	assert.Equal(t, "user", captured.Contents[0].Role)
	assert.Equal(t, "model", captured.Contents[1].Role)

	// All four harm categories covered with the default threshold
	require.Len(t, captured.SafetySettings, 4)
	for _, s := range captured.SafetySettings {
		assert.Equal(t, DefaultHarmBlockThreshold, s.Threshold)
	}
	assert.Equal(t, defaultMaxTokens, captured.GenerationConfig.MaxOutputTokens)

	assert.Equal(t, "It is 21 degrees.", resp.Text())
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
}

func TestGenerateStructuredOutput(t *testing.T) {
	var captured generateContentRequest
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(textResponse(`{"temperature": 21}`))
	})

	schema := map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"temperature": map[string]interface{}{"type": "number"}},
	}
	_, err := provider.Generate(context.Background(), &types.GenerateRequest{
		Messages:       []types.ChatMessage{{Role: types.RoleUser, Content: "report"}},
		ResponseSchema: schema,
	})
	require.NoError(t, err)

	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
	assert.Equal(t, schema, captured.GenerationConfig.ResponseSchema)
}

func TestGenerateFunctionCalling(t *testing.T) {
	var captured generateContentRequest
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(generateContentResponse{
			Candidates: []candidate{{
				Content: wireContent{Role: "model", Parts: []wirePart{
					{FunctionCall: &functionCall{Name: "set_scene", Args: map[string]interface{}{"scene": "movie"}}},
				}},
				FinishReason: "STOP",
			}},
		})
	})

	resp, err := provider.Generate(context.Background(), &types.GenerateRequest{
		Messages: []types.ChatMessage{{Role: types.RoleUser, Content: "movie time"}},
		Tools: []types.Tool{{
			Name:        "set_scene",
			Description: "Activate a scene",
			InputSchema: map[string]interface{}{"type": "object"},
		}},
		ToolChoice: &types.ToolChoice{Type: types.ToolChoiceAuto},
	})
	require.NoError(t, err)

	require.Len(t, captured.Tools, 1)
	require.Len(t, captured.Tools[0].FunctionDeclarations, 1)
	assert.Equal(t, "AUTO", captured.ToolConfig.FunctionCallingConfig.Mode)

	calls := resp.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "set_scene", calls[0].Name)
	assert.Equal(t, "movie", calls[0].Input["scene"])
}

func TestGenerateToolResultRoundTrip(t *testing.T) {
	var captured generateContentRequest
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(textResponse("Scene is set."))
	})

	_, err := provider.Generate(context.Background(), &types.GenerateRequest{
		Messages: []types.ChatMessage{
			{Role: types.RoleUser, Content: "movie time"},
			{Role: types.RoleAssistant, Parts: []types.ContentPart{
				{Type: types.ContentTypeToolUse, ID: "set_scene", Name: "set_scene", Input: map[string]interface{}{"scene": "movie"}},
			}},
			{Role: types.RoleUser, Parts: []types.ContentPart{
				{Type: types.ContentTypeToolResult, ToolUseID: "set_scene", Name: "set_scene", Content: map[string]interface{}{"success": true}},
			}},
		},
	})
	require.NoError(t, err)

	require.Len(t, captured.Contents, 3)
	require.NotNil(t, captured.Contents[1].Parts[0].FunctionCall)
	fr := captured.Contents[2].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "set_scene", fr.Name)
	assert.Equal(t, true, fr.Response["success"])
}

func TestGenerateSpeech(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	var captured generateContentRequest

	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(generateContentResponse{
			Candidates: []candidate{{
				Content: wireContent{Role: "model", Parts: []wirePart{
					{InlineData: &inlineData{
						MimeType: "audio/L16;codec=pcm;rate=24000",
						Data:     base64.StdEncoding.EncodeToString(pcm),
					}},
				}},
			}},
		})
	})

	resp, err := provider.GenerateSpeech(context.Background(), &types.SpeechRequest{
		Text:  "Welcome home.",
		Voice: "Kore",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"AUDIO"}, captured.GenerationConfig.ResponseModalities)
	assert.Equal(t, "Kore", captured.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
	assert.Equal(t, pcm, resp.Audio)
	assert.Contains(t, resp.MimeType, "audio/L16")
}

func TestGenerateSpeechErrors(t *testing.T) {
	t.Run("EmptyText", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {})
		_, err := provider.GenerateSpeech(context.Background(), &types.SpeechRequest{Text: "  "})
		pe, ok := types.AsProviderError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeInvalidRequest, pe.Code)
	})

	t.Run("NoAudioInResponse", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(textResponse("not audio"))
		})
		_, err := provider.GenerateSpeech(context.Background(), &types.SpeechRequest{Text: "hi"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no audio data")
	})
}

func TestTranscribe(t *testing.T) {
	var captured generateContentRequest
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(textResponse("turn off the bedroom lights"))
	})

	resp, err := provider.Transcribe(context.Background(), &types.TranscribeRequest{
		Audio:    []byte{0xAA, 0xBB},
		MimeType: "audio/wav",
		Language: "en-US",
	})
	require.NoError(t, err)

	require.Len(t, captured.Contents, 1)
	parts := captured.Contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "audio/wav", parts[0].InlineData.MimeType)
	assert.Equal(t, "Transcribe this audio in en-US.", parts[1].Text)

	assert.Equal(t, "turn off the bedroom lights", resp.Text)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
}

func TestTranscribeEmptyAudio(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := provider.Transcribe(context.Background(), &types.TranscribeRequest{MimeType: "audio/wav"})
	pe, ok := types.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeInvalidRequest, pe.Code)
}

func TestClassifyError(t *testing.T) {
	t.Run("QuotaExhausted", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
		})
		_, err := provider.Generate(context.Background(), &types.GenerateRequest{
			Messages: []types.ChatMessage{{Role: types.RoleUser, Content: "hi"}},
		})
		pe, ok := types.AsProviderError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeQuotaExceeded, pe.Code)
	})

	t.Run("PermissionDenied", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Permission denied on project","status":"PERMISSION_DENIED"}}`))
		})
		_, err := provider.Generate(context.Background(), &types.GenerateRequest{
			Messages: []types.ChatMessage{{Role: types.RoleUser, Content: "hi"}},
		})
		pe, ok := types.AsProviderError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeAuthentication, pe.Code)
		assert.Contains(t, pe.Message, "Permission denied")
	})
}

func TestBuildSafetySettingsFallback(t *testing.T) {
	settings := buildSafetySettings("NOT_A_THRESHOLD")
	require.Len(t, settings, 4)
	for _, s := range settings {
		assert.Equal(t, DefaultHarmBlockThreshold, s.Threshold)
	}
}
