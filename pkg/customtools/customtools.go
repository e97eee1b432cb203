// Package customtools loads user-authored tool definitions from YAML and
// dispatches tool calls as Home Assistant service sequences. Each tool
// exposes a JSON-Schema parameter block to the model; when the model invokes
// the tool, the configured sequence of service calls runs with the call
// arguments rendered into each step's data and target.
package customtools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vertex-home/assist-bridge/pkg/types"
)

// serviceCallTimeout bounds each individual service call in a sequence.
const serviceCallTimeout = 30 * time.Second

// reservedNames are tool names the bridge claims for itself. User tools
// with these names are rejected.
var reservedNames = map[string]struct{}{
	"web_search": {},
}

// ServiceCaller is the Home Assistant surface a tool sequence needs.
type ServiceCaller interface {
	// HasService reports whether domain.service is registered.
	HasService(ctx context.Context, domain, service string) (bool, error)

	// CallService invokes a service with the given data and target.
	CallService(ctx context.Context, domain, service string, data, target map[string]interface{}) error
}

// ServiceStep is one entry in a script-type tool sequence.
type ServiceStep struct {
	Service string                 `yaml:"service"`
	Data    map[string]interface{} `yaml:"data,omitempty"`
	Target  map[string]interface{} `yaml:"target,omitempty"`
}

// StepResult records the outcome of one service call in a sequence.
type StepResult struct {
	Service string `json:"service"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CustomTool is a user-defined tool backed by a service-call sequence.
type CustomTool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Sequence    []ServiceStep
}

// Tool converts the definition to the provider-neutral form.
func (t *CustomTool) Tool() types.Tool {
	return types.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.Parameters,
	}
}

// Call validates the arguments, then runs the sequence. Step failures are
// recorded per step and never abort the sequence. The returned map carries
// a "results" key listing every step outcome.
func (t *CustomTool) Call(ctx context.Context, caller ServiceCaller, args map[string]interface{}) (map[string]interface{}, error) {
	if err := ValidateArgs(args, t.Parameters); err != nil {
		return nil, fmt.Errorf("invalid arguments for tool %s: %w", t.Name, err)
	}

	results := make([]StepResult, 0, len(t.Sequence))
	for _, step := range t.Sequence {
		results = append(results, t.runStep(ctx, caller, step, args))
	}

	return map[string]interface{}{"results": results}, nil
}

func (t *CustomTool) runStep(ctx context.Context, caller ServiceCaller, step ServiceStep, args map[string]interface{}) StepResult {
	domain, service, err := splitService(step.Service)
	if err != nil {
		log.Printf("customtools: tool %s: %v", t.Name, err)
		return StepResult{Service: step.Service, Error: err.Error()}
	}

	exists, err := caller.HasService(ctx, domain, service)
	if err != nil {
		log.Printf("customtools: tool %s: service lookup failed: %v", t.Name, err)
		return StepResult{Service: step.Service, Error: err.Error()}
	}
	if !exists {
		log.Printf("customtools: tool %s: service %s.%s does not exist", t.Name, domain, service)
		return StepResult{Service: step.Service, Error: fmt.Sprintf("Service %s does not exist", step.Service)}
	}

	data := renderMap(step.Data, args)
	target := renderMap(step.Target, args)

	callCtx, cancel := context.WithTimeout(ctx, serviceCallTimeout)
	defer cancel()

	if err := caller.CallService(callCtx, domain, service, data, target); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("customtools: tool %s: service %s timed out", t.Name, step.Service)
			return StepResult{Service: step.Service, Error: "Service call timed out"}
		}
		log.Printf("customtools: tool %s: service %s failed: %v", t.Name, step.Service, err)
		return StepResult{Service: step.Service, Error: err.Error()}
	}

	return StepResult{Service: step.Service, Success: true}
}

// splitService accepts "domain.service" or "domain/service".
func splitService(full string) (domain, service string, err error) {
	var sep string
	switch {
	case strings.Contains(full, "/"):
		sep = "/"
	case strings.Contains(full, "."):
		sep = "."
	default:
		return "", "", fmt.Errorf("invalid service format: %q", full)
	}

	parts := strings.SplitN(full, sep, 2)
	if parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid service format: %q", full)
	}
	return parts[0], parts[1], nil
}
