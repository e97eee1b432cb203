package assist

import (
	"context"
	"fmt"
	"log"

	"github.com/vertex-home/assist-bridge/pkg/customtools"
	"github.com/vertex-home/assist-bridge/pkg/types"
)

// maxToolIterations bounds the tool-use loop per conversation turn.
const maxToolIterations = 5

// apologyMessage is returned when the upstream call fails. The caller
// always gets a spoken reply, never an empty one.
const apologyMessage = "Sorry, I encountered an error while processing your request. Please try again."

// ConverseOptions carries the model parameters for conversation turns.
type ConverseOptions struct {
	SystemPrompt string
	Model        string
	MaxTokens    int
	Temperature  *float64
	TopP         *float64
	TopK         *int
}

// ConverseRequest is one user turn.
type ConverseRequest struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id,omitempty"`
	Language       string `json:"language,omitempty"`
}

// ConverseResult is the reply for one turn.
type ConverseResult struct {
	Text           string      `json:"text"`
	ConversationID string      `json:"conversation_id"`
	Language       string      `json:"language,omitempty"`
	Usage          types.Usage `json:"usage"`
	Error          bool        `json:"error,omitempty"`
}

// Conversation runs conversation turns against a provider, dispatching
// model tool calls to user-defined custom tools.
type Conversation struct {
	provider types.Provider
	caller   customtools.ServiceCaller
	tools    []*customtools.CustomTool
	sessions *SessionStore
	options  ConverseOptions
}

// NewConversation creates a conversation service. caller may be nil when
// no custom tools are configured.
func NewConversation(provider types.Provider, caller customtools.ServiceCaller, tools []*customtools.CustomTool, sessions *SessionStore, options ConverseOptions) (*Conversation, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if sessions == nil {
		sessions = NewSessionStore(0)
	}
	if len(tools) > 0 && caller == nil {
		return nil, fmt.Errorf("custom tools configured but no service caller provided")
	}
	return &Conversation{
		provider: provider,
		caller:   caller,
		tools:    tools,
		sessions: sessions,
		options:  options,
	}, nil
}

// Tools returns the loaded custom tool definitions.
func (c *Conversation) Tools() []*customtools.CustomTool {
	return c.tools
}

// Converse processes one user turn. Tool calls run through the dispatcher
// and their results feed back to the model until it answers in text or
// the iteration cap is reached. Upstream failures produce an apology
// reply with the error logged.
func (c *Conversation) Converse(ctx context.Context, req *ConverseRequest) (*ConverseResult, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("text is required")
	}

	session := c.sessions.GetOrCreate(req.ConversationID)
	history := c.sessions.History(session.ID)

	userMessage := types.ChatMessage{Role: types.RoleUser, Content: req.Text}
	messages := append(history, userMessage)

	genReq := &types.GenerateRequest{
		Messages:    messages,
		System:      c.options.SystemPrompt,
		Model:       c.options.Model,
		MaxTokens:   c.options.MaxTokens,
		Temperature: c.options.Temperature,
		TopP:        c.options.TopP,
		TopK:        c.options.TopK,
	}
	for _, tool := range c.tools {
		genReq.Tools = append(genReq.Tools, tool.Tool())
	}

	result := &ConverseResult{ConversationID: session.ID, Language: req.Language}

	var usage types.Usage
	for iteration := 0; ; iteration++ {
		resp, err := c.provider.Generate(ctx, genReq)
		if err != nil {
			log.Printf("assist: conversation %s: generation failed: %v", session.ID, err)
			result.Text = apologyMessage
			result.Error = true
			return result, nil
		}

		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		usage.TotalTokens += resp.Usage.TotalTokens

		calls := resp.ToolCalls()
		if len(calls) == 0 || iteration >= maxToolIterations-1 {
			result.Text = resp.Text()
			result.Usage = usage

			c.sessions.Append(session.ID,
				userMessage,
				types.ChatMessage{Role: types.RoleAssistant, Content: result.Text},
			)
			return result, nil
		}

		assistantTurn := types.ChatMessage{Role: types.RoleAssistant, Parts: resp.Content}
		toolTurn := types.ChatMessage{Role: types.RoleUser, Parts: c.dispatch(ctx, session.ID, calls)}

		genReq.Messages = append(genReq.Messages, assistantTurn, toolTurn)
	}
}

// dispatch runs every tool call and returns the tool_result parts for
// the follow-up turn. Failures become error payloads the model can see.
func (c *Conversation) dispatch(ctx context.Context, conversationID string, calls []types.ContentPart) []types.ContentPart {
	results := make([]types.ContentPart, 0, len(calls))
	for _, call := range calls {
		output, err := c.runTool(ctx, call)
		if err != nil {
			log.Printf("assist: conversation %s: tool %s failed: %v", conversationID, call.Name, err)
			output = map[string]interface{}{"error": err.Error()}
		}
		part := types.NewToolResultPart(call.ID, output)
		part.Name = call.Name
		results = append(results, part)
	}
	return results
}

func (c *Conversation) runTool(ctx context.Context, call types.ContentPart) (map[string]interface{}, error) {
	for _, tool := range c.tools {
		if tool.Name == call.Name {
			return tool.Call(ctx, c.caller, call.Input)
		}
	}
	return nil, fmt.Errorf("unknown tool %q", call.Name)
}
