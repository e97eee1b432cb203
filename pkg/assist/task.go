package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/vertex-home/assist-bridge/pkg/types"
)

// TaskRequest is a one-shot instruction, optionally with a JSON Schema the
// answer must conform to.
type TaskRequest struct {
	Instructions string                 `json:"instructions"`
	Structure    map[string]interface{} `json:"structure,omitempty"`
}

// TaskResult carries the generated data. Structured answers are decoded
// JSON; unstructured answers and unparsable output sit under "text".
type TaskResult struct {
	Data  interface{} `json:"data"`
	Usage types.Usage `json:"usage"`
}

// Task runs one-shot structured generation.
type Task struct {
	provider types.Provider
	options  ConverseOptions
}

// NewTask creates a task service. The conversation options supply the
// model parameters.
func NewTask(provider types.Provider, options ConverseOptions) (*Task, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	return &Task{provider: provider, options: options}, nil
}

// Run executes the instruction. When a structure schema is present the
// provider is asked for conforming JSON; responses that fail to parse
// degrade to {"text": raw} instead of erroring.
func (t *Task) Run(ctx context.Context, req *TaskRequest) (*TaskResult, error) {
	if req.Instructions == "" {
		return nil, fmt.Errorf("instructions are required")
	}

	genReq := &types.GenerateRequest{
		Messages:       []types.ChatMessage{{Role: types.RoleUser, Content: req.Instructions}},
		System:         t.options.SystemPrompt,
		Model:          t.options.Model,
		MaxTokens:      t.options.MaxTokens,
		Temperature:    t.options.Temperature,
		TopP:           t.options.TopP,
		TopK:           t.options.TopK,
		ResponseSchema: req.Structure,
	}

	resp, err := t.provider.Generate(ctx, genReq)
	if err != nil {
		return nil, fmt.Errorf("task generation failed: %w", err)
	}

	raw := resp.Text()
	result := &TaskResult{Usage: resp.Usage}

	if req.Structure == nil {
		result.Data = map[string]interface{}{"text": raw}
		return result, nil
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Printf("assist: task response is not valid JSON, returning raw text: %v", err)
		result.Data = map[string]interface{}{"text": raw}
		return result, nil
	}
	result.Data = parsed
	return result, nil
}
