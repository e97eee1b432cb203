package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vertex-home/assist-bridge/pkg/config"
	"github.com/vertex-home/assist-bridge/pkg/credentials"
	"github.com/vertex-home/assist-bridge/pkg/customtools"
	"github.com/vertex-home/assist-bridge/pkg/providers/claude"
	"github.com/vertex-home/assist-bridge/pkg/types"
)

// validateSetup checks the config file, the credential blob and the
// custom tools file without calling any remote API.
func validateSetup(ctx context.Context, configPath string) ([]string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	report := []string{fmt.Sprintf("config: ok (%s)", configPath)}

	blob, err := cfg.Credentials()
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		report = append(report, "credentials: none configured, application default credentials will be used")
	} else {
		info, err := credentials.Parse(blob)
		if err != nil {
			return nil, fmt.Errorf("credentials: %w", err)
		}
		report = append(report, fmt.Sprintf("credentials: ok (type %s)", info.Type))
		for key, value := range info.Diagnostics() {
			report = append(report, fmt.Sprintf("  %s: %v", key, value))
		}
	}

	report = append(report, fmt.Sprintf("conversation: %s %s in %s",
		cfg.Conversation.Provider, cfg.Conversation.Model, cfg.Conversation.Location))
	if cfg.Conversation.Provider == string(types.ProviderTypeClaude) {
		report = append(report, checkClaudeRegion(&cfg.Conversation)...)
	}
	report = append(report, fmt.Sprintf("tts: %s voice %s in %s",
		cfg.TTS.Model, cfg.TTS.Voice, cfg.TTS.Location))

	if cfg.CustomToolsFile != "" {
		tools, err := parseToolsFile(cfg.CustomToolsFile)
		if err != nil {
			return nil, err
		}
		report = append(report, fmt.Sprintf("custom tools: %d loaded from %s", len(tools), cfg.CustomToolsFile))
	} else {
		report = append(report, "custom tools: not configured")
	}

	return report, nil
}

// checkClaudeRegion warns about locations Claude is not served from. These
// are warnings rather than config errors since the published region tables
// lag new rollouts.
func checkClaudeRegion(m *config.ModelConfig) []string {
	regions := claude.SupportedRegions()
	sort.Strings(regions)

	known := false
	for _, region := range regions {
		if region == m.Location {
			known = true
			break
		}
	}
	if !known {
		return []string{fmt.Sprintf("warning: %s is not a known Claude region (known: %s)",
			m.Location, strings.Join(regions, ", "))}
	}

	vertexModel := claude.NormalizeModelID(m.Model)
	if !claude.IsModelAvailableInRegion(vertexModel, m.Location) {
		return []string{fmt.Sprintf("warning: %s is not served in %s (served in: %s)",
			vertexModel, m.Location, strings.Join(claude.AvailableRegions(vertexModel), ", "))}
	}
	return nil
}

// printTools dumps the parsed custom tool definitions.
func printTools(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.CustomToolsFile == "" {
		fmt.Println("No custom tools file configured")
		return nil
	}

	tools, err := parseToolsFile(cfg.CustomToolsFile)
	if err != nil {
		return err
	}

	for _, tool := range tools {
		fmt.Printf("%s: %s\n", tool.Name, tool.Description)
		for _, step := range tool.Sequence {
			fmt.Printf("  -> %s\n", step.Service)
		}
	}
	fmt.Printf("%d tool(s)\n", len(tools))
	return nil
}

func parseToolsFile(path string) ([]*customtools.CustomTool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read custom tools file: %w", err)
	}
	tools, err := customtools.Parse(string(raw))
	if err != nil {
		return nil, err
	}
	return tools, nil
}
