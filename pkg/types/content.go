package types

// ContentPart represents a single part of message content (text, audio,
// tool_use, tool_result).
type ContentPart struct {
	Type string `json:"type"`

	// Text content
	Text string `json:"text,omitempty"`

	// Media content (audio in/out)
	Source *MediaSource `json:"source,omitempty"`

	// Tool use (model calling a tool)
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	// Tool result (response to a tool call)
	ToolUseID string      `json:"tool_use_id,omitempty"`
	Content   interface{} `json:"content,omitempty"`
}

// MediaSource represents the source of media content.
type MediaSource struct {
	Type      string `json:"type"`                 // "base64"
	MediaType string `json:"media_type,omitempty"` // MIME type, e.g. "audio/wav"
	Data      string `json:"data,omitempty"`       // base64-encoded payload
}

// ContentType constants for the supported content part types.
const (
	ContentTypeText       = "text"
	ContentTypeAudio      = "audio"
	ContentTypeToolUse    = "tool_use"
	ContentTypeToolResult = "tool_result"
)

// MediaSourceBase64 is the only media source type the bridge produces.
const MediaSourceBase64 = "base64"

// NewTextPart creates a text content part.
func NewTextPart(text string) ContentPart {
	return ContentPart{Type: ContentTypeText, Text: text}
}

// NewAudioPart creates an audio content part from base64 data.
func NewAudioPart(mediaType, base64Data string) ContentPart {
	return ContentPart{
		Type: ContentTypeAudio,
		Source: &MediaSource{
			Type:      MediaSourceBase64,
			MediaType: mediaType,
			Data:      base64Data,
		},
	}
}

// NewToolResultPart creates a tool_result part answering the tool_use block
// with the given ID.
func NewToolResultPart(toolUseID string, content interface{}) ContentPart {
	return ContentPart{
		Type:      ContentTypeToolResult,
		ToolUseID: toolUseID,
		Content:   content,
	}
}

// IsText returns true if the content part is text.
func (c *ContentPart) IsText() bool {
	return c.Type == ContentTypeText
}

// IsToolRelated returns true if the content part is tool_use or tool_result.
func (c *ContentPart) IsToolRelated() bool {
	return c.Type == ContentTypeToolUse || c.Type == ContentTypeToolResult
}
