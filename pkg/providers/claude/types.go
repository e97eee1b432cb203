// Package claude provides the Anthropic Claude provider for Google Vertex AI.
// It speaks the Anthropic Messages API through the Vertex AI rawPredict
// endpoint, including tool use, and authenticates with GCP OAuth2 tokens.
package claude

// messagesRequest is the Anthropic Messages API payload as accepted by the
// Vertex AI rawPredict endpoint. The model is carried in the URL, not the
// body; anthropic_version takes its place.
type messagesRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []wireMessage   `json:"messages"`
	Tools            []wireTool      `json:"tools,omitempty"`
	ToolChoice       *wireToolChoice `json:"tool_choice,omitempty"`
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	TopK             *int            `json:"top_k,omitempty"`
	StopSequences    []string        `json:"stop_sequences,omitempty"`
}

// wireMessage represents a message in the conversation
type wireMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []wireContentBlock
}

// wireTool represents a tool definition
type wireTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// wireToolChoice controls tool selection
type wireToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// wireContentBlock represents a content block in a request or response
type wireContentBlock struct {
	Type      string                 `json:"type"` // "text", "tool_use", "tool_result"
	Text      string                 `json:"text,omitempty"`
	ID        string                 `json:"id,omitempty"`          // for tool_use
	Name      string                 `json:"name,omitempty"`        // for tool_use
	Input     map[string]interface{} `json:"input,omitempty"`       // for tool_use
	ToolUseID string                 `json:"tool_use_id,omitempty"` // for tool_result
	Content   interface{}            `json:"content,omitempty"`     // for tool_result
}

// messagesResponse is the Anthropic Messages API response
type messagesResponse struct {
	ID           string             `json:"id"`
	Type         string             `json:"type"`
	Role         string             `json:"role"`
	Content      []wireContentBlock `json:"content"`
	Model        string             `json:"model"`
	Usage        wireUsage          `json:"usage"`
	StopReason   string             `json:"stop_reason,omitempty"`
	StopSequence string             `json:"stop_sequence,omitempty"`
}

// wireUsage represents token usage information
type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// errorResponse is the Anthropic-format error envelope
type errorResponse struct {
	Type  string    `json:"type"`
	Error wireError `json:"error"`
}

// wireError represents an error in the response
type wireError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// googleErrorResponse is the Google Cloud error envelope returned when the
// request never reaches the Anthropic backend (auth, quota, bad region).
type googleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
