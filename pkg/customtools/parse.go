package customtools

import (
	"fmt"
	"log"
	"strings"

	"gopkg.in/yaml.v3"
)

// toolEntry is one item of the user-authored YAML tool list.
type toolEntry struct {
	Spec struct {
		Name        string                 `yaml:"name"`
		Description string                 `yaml:"description"`
		Parameters  map[string]interface{} `yaml:"parameters"`
	} `yaml:"spec"`
	Function struct {
		Type     string        `yaml:"type"`
		Sequence []ServiceStep `yaml:"sequence"`
	} `yaml:"function"`
}

// Parse reads a YAML tool list. Individually invalid entries are skipped
// with a logged error; a document that does not parse at all returns an
// error and callers fall back to zero tools.
func Parse(yamlConfig string) ([]*CustomTool, error) {
	if strings.TrimSpace(yamlConfig) == "" {
		return nil, nil
	}

	var entries []toolEntry
	if err := yaml.Unmarshal([]byte(yamlConfig), &entries); err != nil {
		return nil, fmt.Errorf("invalid custom tools YAML: %w", err)
	}

	tools := make([]*CustomTool, 0, len(entries))
	seen := make(map[string]struct{})

	for i, entry := range entries {
		if err := validateEntry(entry); err != nil {
			log.Printf("customtools: skipping tool entry %d: %v", i, err)
			continue
		}

		name := entry.Spec.Name
		if _, reserved := reservedNames[name]; reserved {
			log.Printf("customtools: tool name %q is reserved and cannot be used", name)
			continue
		}
		if _, dup := seen[name]; dup {
			log.Printf("customtools: duplicate tool name %q found, skipping", name)
			continue
		}
		seen[name] = struct{}{}

		tools = append(tools, &CustomTool{
			Name:        name,
			Description: entry.Spec.Description,
			Parameters:  entry.Spec.Parameters,
			Sequence:    entry.Function.Sequence,
		})
	}

	log.Printf("customtools: loaded %d custom tool(s)", len(tools))
	return tools, nil
}

func validateEntry(entry toolEntry) error {
	if entry.Spec.Name == "" {
		return fmt.Errorf("spec.name is required")
	}
	if entry.Spec.Description == "" {
		return fmt.Errorf("spec.description is required")
	}
	if entry.Spec.Parameters == nil {
		return fmt.Errorf("spec.parameters is required")
	}
	if entry.Function.Type != "script" {
		return fmt.Errorf("unsupported function type %q", entry.Function.Type)
	}
	return nil
}
