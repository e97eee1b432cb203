package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatMessageText(t *testing.T) {
	t.Run("PlainContent", func(t *testing.T) {
		msg := ChatMessage{Role: RoleUser, Content: "turn on the lights"}
		assert.Equal(t, "turn on the lights", msg.Text())
	})

	t.Run("PartsPreferred", func(t *testing.T) {
		msg := ChatMessage{
			Role:    RoleAssistant,
			Content: "ignored",
			Parts: []ContentPart{
				NewTextPart("hello "),
				{Type: ContentTypeToolUse, Name: "get_weather"},
				NewTextPart("world"),
			},
		}
		assert.Equal(t, "hello world", msg.Text())
	})
}

func TestGenerateResponseText(t *testing.T) {
	resp := &GenerateResponse{
		Content: []ContentPart{
			NewTextPart("The living room light is "),
			NewTextPart("on."),
		},
	}
	assert.Equal(t, "The living room light is on.", resp.Text())
}

func TestGenerateResponseToolCalls(t *testing.T) {
	t.Run("NoToolCalls", func(t *testing.T) {
		resp := &GenerateResponse{Content: []ContentPart{NewTextPart("done")}}
		assert.Empty(t, resp.ToolCalls())
	})

	t.Run("MixedContent", func(t *testing.T) {
		resp := &GenerateResponse{
			Content: []ContentPart{
				NewTextPart("calling tool"),
				{Type: ContentTypeToolUse, ID: "toolu_1", Name: "set_scene", Input: map[string]interface{}{"scene": "movie"}},
			},
		}
		calls := resp.ToolCalls()
		assert.Len(t, calls, 1)
		assert.Equal(t, "set_scene", calls[0].Name)
	})
}

func TestContentPartHelpers(t *testing.T) {
	audio := NewAudioPart("audio/wav", "AAAA")
	assert.Equal(t, ContentTypeAudio, audio.Type)
	assert.Equal(t, MediaSourceBase64, audio.Source.Type)
	assert.False(t, audio.IsText())

	result := NewToolResultPart("toolu_1", map[string]interface{}{"ok": true})
	assert.True(t, result.IsToolRelated())
	assert.Equal(t, "toolu_1", result.ToolUseID)
}
