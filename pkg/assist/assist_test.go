package assist

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertex-home/assist-bridge/pkg/customtools"
	"github.com/vertex-home/assist-bridge/pkg/types"
)

// fakeProvider replays scripted responses and records requests.
type fakeProvider struct {
	responses []*types.GenerateResponse
	requests  []*types.GenerateRequest
	err       error
}

func (f *fakeProvider) Name() string                      { return "fake" }
func (f *fakeProvider) Type() types.ProviderType          { return types.ProviderTypeClaude }
func (f *fakeProvider) HealthCheck(context.Context) error { return nil }

func (f *fakeProvider) Generate(ctx context.Context, req *types.GenerateRequest) (*types.GenerateResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.requests) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func textReply(text string) *types.GenerateResponse {
	return &types.GenerateResponse{
		Content:    []types.ContentPart{types.NewTextPart(text)},
		StopReason: "end_turn",
		Usage:      types.Usage{InputTokens: 5, OutputTokens: 5, TotalTokens: 10},
	}
}

func toolReply(name string, input map[string]interface{}) *types.GenerateResponse {
	return &types.GenerateResponse{
		Content: []types.ContentPart{
			{Type: types.ContentTypeToolUse, ID: "call_1", Name: name, Input: input},
		},
		StopReason: "tool_use",
	}
}

type allowAllCaller struct {
	calls []string
}

func (a *allowAllCaller) HasService(ctx context.Context, domain, service string) (bool, error) {
	return true, nil
}

func (a *allowAllCaller) CallService(ctx context.Context, domain, service string, data, target map[string]interface{}) error {
	a.calls = append(a.calls, domain+"."+service)
	return nil
}

func testTool(name string) *customtools.CustomTool {
	return &customtools.CustomTool{
		Name:        name,
		Description: "test tool",
		Parameters:  map[string]interface{}{"type": "object"},
		Sequence:    []customtools.ServiceStep{{Service: "light.turn_on"}},
	}
}

func TestConverse(t *testing.T) {
	provider := &fakeProvider{responses: []*types.GenerateResponse{textReply("The lights are on.")}}
	conv, err := NewConversation(provider, nil, nil, NewSessionStore(0), ConverseOptions{
		SystemPrompt: "You are a voice assistant.",
	})
	require.NoError(t, err)

	result, err := conv.Converse(context.Background(), &ConverseRequest{Text: "turn on the lights"})
	require.NoError(t, err)

	assert.Equal(t, "The lights are on.", result.Text)
	assert.NotEmpty(t, result.ConversationID)
	assert.False(t, result.Error)
	assert.Equal(t, 10, result.Usage.TotalTokens)

	require.Len(t, provider.requests, 1)
	assert.Equal(t, "You are a voice assistant.", provider.requests[0].System)
}

func TestConverseKeepsHistory(t *testing.T) {
	provider := &fakeProvider{responses: []*types.GenerateResponse{
		textReply("Twenty one degrees."),
		textReply("Still twenty one."),
	}}
	conv, err := NewConversation(provider, nil, nil, NewSessionStore(0), ConverseOptions{})
	require.NoError(t, err)

	first, err := conv.Converse(context.Background(), &ConverseRequest{Text: "temperature?"})
	require.NoError(t, err)

	_, err = conv.Converse(context.Background(), &ConverseRequest{
		Text:           "and now?",
		ConversationID: first.ConversationID,
	})
	require.NoError(t, err)

	// Second turn carries the first exchange plus the new input
	second := provider.requests[1]
	require.Len(t, second.Messages, 3)
	assert.Equal(t, "temperature?", second.Messages[0].Content)
	assert.Equal(t, "Twenty one degrees.", second.Messages[1].Content)
	assert.Equal(t, "and now?", second.Messages[2].Content)
}

func TestConverseToolLoop(t *testing.T) {
	provider := &fakeProvider{responses: []*types.GenerateResponse{
		toolReply("set_lights", map[string]interface{}{"on": true}),
		textReply("Done, lights are on."),
	}}
	caller := &allowAllCaller{}
	conv, err := NewConversation(provider, caller, []*customtools.CustomTool{testTool("set_lights")}, NewSessionStore(0), ConverseOptions{})
	require.NoError(t, err)

	result, err := conv.Converse(context.Background(), &ConverseRequest{Text: "lights on"})
	require.NoError(t, err)

	assert.Equal(t, "Done, lights are on.", result.Text)
	assert.Equal(t, []string{"light.turn_on"}, caller.calls)

	// First request advertises the tool, second carries the tool result turn
	require.Len(t, provider.requests, 2)
	require.Len(t, provider.requests[0].Tools, 1)
	assert.Equal(t, "set_lights", provider.requests[0].Tools[0].Name)

	followUp := provider.requests[1].Messages
	last := followUp[len(followUp)-1]
	require.Len(t, last.Parts, 1)
	assert.Equal(t, types.ContentTypeToolResult, last.Parts[0].Type)
	assert.Equal(t, "call_1", last.Parts[0].ToolUseID)
}

func TestConverseUnknownToolFeedsErrorBack(t *testing.T) {
	provider := &fakeProvider{responses: []*types.GenerateResponse{
		toolReply("not_configured", nil),
		textReply("I could not do that."),
	}}
	caller := &allowAllCaller{}
	conv, err := NewConversation(provider, caller, []*customtools.CustomTool{testTool("set_lights")}, NewSessionStore(0), ConverseOptions{})
	require.NoError(t, err)

	result, err := conv.Converse(context.Background(), &ConverseRequest{Text: "do the thing"})
	require.NoError(t, err)
	assert.Equal(t, "I could not do that.", result.Text)

	followUp := provider.requests[1].Messages
	last := followUp[len(followUp)-1]
	content, ok := last.Parts[0].Content.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, content["error"], "unknown tool")
}

func TestConverseToolLoopBounded(t *testing.T) {
	provider := &fakeProvider{responses: []*types.GenerateResponse{
		toolReply("set_lights", nil),
	}}
	caller := &allowAllCaller{}
	conv, err := NewConversation(provider, caller, []*customtools.CustomTool{testTool("set_lights")}, NewSessionStore(0), ConverseOptions{})
	require.NoError(t, err)

	_, err = conv.Converse(context.Background(), &ConverseRequest{Text: "loop forever"})
	require.NoError(t, err)
	assert.Len(t, provider.requests, maxToolIterations)
}

func TestConverseUpstreamFailure(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("upstream exploded")}
	conv, err := NewConversation(provider, nil, nil, NewSessionStore(0), ConverseOptions{})
	require.NoError(t, err)

	result, err := conv.Converse(context.Background(), &ConverseRequest{Text: "hello"})
	require.NoError(t, err)

	assert.True(t, result.Error)
	assert.Equal(t, apologyMessage, result.Text)
	// The failed exchange is not stored
	assert.Empty(t, conv.sessions.History(result.ConversationID))
}

func TestConverseEmptyText(t *testing.T) {
	provider := &fakeProvider{responses: []*types.GenerateResponse{textReply("hi")}}
	conv, err := NewConversation(provider, nil, nil, NewSessionStore(0), ConverseOptions{})
	require.NoError(t, err)

	_, err = conv.Converse(context.Background(), &ConverseRequest{})
	assert.Error(t, err)
}

func TestSessionStore(t *testing.T) {
	t.Run("GeneratesID", func(t *testing.T) {
		store := NewSessionStore(0)
		a := store.GetOrCreate("")
		b := store.GetOrCreate("")
		assert.NotEmpty(t, a.ID)
		assert.NotEqual(t, a.ID, b.ID)
		assert.Equal(t, 2, store.Len())
	})

	t.Run("PrunesHistory", func(t *testing.T) {
		store := NewSessionStore(4)
		session := store.GetOrCreate("conv")
		for i := 0; i < 6; i++ {
			store.Append(session.ID, types.ChatMessage{Role: types.RoleUser, Content: fmt.Sprintf("m%d", i)})
		}
		history := store.History(session.ID)
		require.Len(t, history, 4)
		assert.Equal(t, "m2", history[0].Content)
		assert.Equal(t, "m5", history[3].Content)
	})

	t.Run("Delete", func(t *testing.T) {
		store := NewSessionStore(0)
		session := store.GetOrCreate("gone")
		store.Delete(session.ID)
		assert.Nil(t, store.History("gone"))
		assert.Equal(t, 0, store.Len())
	})
}
