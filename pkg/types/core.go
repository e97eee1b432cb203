// Package types defines the core types and interfaces shared across the
// bridge. It includes the provider-neutral message format, tool definitions,
// provider interfaces, and the standardized provider error taxonomy.
package types

// Message roles used across providers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage represents a single message in a conversation.
// Content carries plain text; Parts carries structured content
// (tool use, tool results, media) when a provider returns it.
type ChatMessage struct {
	Role    string        `json:"role"`
	Content string        `json:"content,omitempty"`
	Parts   []ContentPart `json:"parts,omitempty"`
}

// Text returns the concatenated text content of the message, preferring
// Parts when present.
func (m ChatMessage) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var out string
	for _, p := range m.Parts {
		if p.Type == ContentTypeText {
			out += p.Text
		}
	}
	return out
}

// GenerateRequest is the provider-neutral request for text generation.
type GenerateRequest struct {
	// Conversation content
	Messages []ChatMessage `json:"messages"`

	// System prompt, sent out-of-band for providers that require it
	System string `json:"system,omitempty"`

	// Model selection (provider model ID, e.g. "claude-sonnet-4-5@20250929")
	Model string `json:"model,omitempty"`

	// Generation parameters
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`

	// Tool support
	Tools      []Tool      `json:"tools,omitempty"`
	ToolChoice *ToolChoice `json:"tool_choice,omitempty"`

	// Structured output: when set, the provider is asked to return JSON
	// conforming to this JSON Schema.
	ResponseSchema map[string]interface{} `json:"response_schema,omitempty"`
}

// GenerateResponse is the provider-neutral response for text generation.
type GenerateResponse struct {
	ID         string        `json:"id"`
	Model      string        `json:"model"`
	Content    []ContentPart `json:"content"`
	StopReason string        `json:"stop_reason,omitempty"`
	Usage      Usage         `json:"usage"`
}

// Text returns the concatenated text blocks of the response.
func (r *GenerateResponse) Text() string {
	var out string
	for _, p := range r.Content {
		if p.Type == ContentTypeText {
			out += p.Text
		}
	}
	return out
}

// ToolCalls returns the tool_use blocks of the response, if any.
func (r *GenerateResponse) ToolCalls() []ContentPart {
	var calls []ContentPart
	for _, p := range r.Content {
		if p.Type == ContentTypeToolUse {
			calls = append(calls, p)
		}
	}
	return calls
}

// Usage represents token usage information for a single request.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// SpeechRequest asks a speech-capable provider to synthesize audio.
type SpeechRequest struct {
	Text     string `json:"text"`
	Model    string `json:"model,omitempty"`
	Voice    string `json:"voice,omitempty"`
	Language string `json:"language,omitempty"`
}

// SpeechResponse carries raw synthesized audio. The payload is whatever the
// provider produced; MimeType describes it (e.g. "audio/L16;rate=24000").
type SpeechResponse struct {
	Audio    []byte `json:"-"`
	MimeType string `json:"mime_type"`
}

// TranscribeRequest asks a transcription-capable provider to convert audio
// to text.
type TranscribeRequest struct {
	Audio    []byte `json:"-"`
	MimeType string `json:"mime_type"`
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
}

// TranscribeResponse carries the transcription result.
type TranscribeResponse struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}
