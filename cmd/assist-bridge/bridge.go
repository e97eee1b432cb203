package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/oauth2"

	"github.com/vertex-home/assist-bridge/internal/httpclient"
	"github.com/vertex-home/assist-bridge/pkg/assist"
	"github.com/vertex-home/assist-bridge/pkg/backend"
	"github.com/vertex-home/assist-bridge/pkg/config"
	"github.com/vertex-home/assist-bridge/pkg/credentials"
	"github.com/vertex-home/assist-bridge/pkg/customtools"
	"github.com/vertex-home/assist-bridge/pkg/homeassistant"
	"github.com/vertex-home/assist-bridge/pkg/providers/claude"
	"github.com/vertex-home/assist-bridge/pkg/providers/gemini"
	"github.com/vertex-home/assist-bridge/pkg/types"
)

// Bridge holds the fully wired server and its parts.
type Bridge struct {
	Config *config.Config
	Server *backend.Server
}

// buildBridge loads the config and wires providers, Home Assistant access,
// custom tools and the assist services into a server.
func buildBridge(ctx context.Context, configPath string) (*Bridge, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// One pooled client serves all Vertex AI calls, including the oauth2
	// token exchange.
	httpClient := httpclient.New(httpclient.Config{})
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient.HTTPClient())

	tokenSource, err := buildTokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	chatProvider, err := buildChatProvider(cfg, tokenSource, httpClient)
	if err != nil {
		return nil, err
	}

	speechProvider, err := gemini.New(speechProviderConfig(cfg), tokenSource, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to build tts provider: %w", err)
	}
	transcriber, err := gemini.New(transcribeProviderConfig(cfg), tokenSource, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to build stt provider: %w", err)
	}

	caller, err := buildServiceCaller(cfg)
	if err != nil {
		return nil, err
	}

	tools, err := loadCustomTools(cfg)
	if err != nil {
		return nil, err
	}

	conversation, err := assist.NewConversation(chatProvider, caller, tools, assist.NewSessionStore(0), converseOptions(&cfg.Conversation))
	if err != nil {
		return nil, err
	}
	tts, err := assist.NewTTS(speechProvider)
	if err != nil {
		return nil, err
	}
	stt, err := assist.NewSTT(transcriber)
	if err != nil {
		return nil, err
	}
	task, err := assist.NewTask(chatProvider, converseOptions(&cfg.Conversation))
	if err != nil {
		return nil, err
	}

	server := backend.NewServer(cfg, backend.Services{
		Conversation: conversation,
		TTS:          tts,
		STT:          stt,
		Task:         task,
		Providers: map[string]types.Provider{
			string(chatProvider.Type()): chatProvider,
			"gemini-tts":                speechProvider,
			"gemini-stt":                transcriber,
		},
	})

	return &Bridge{Config: cfg, Server: server}, nil
}

// speechProviderConfig builds the TTS provider from the tts config block.
func speechProviderConfig(cfg *config.Config) gemini.Config {
	return gemini.Config{
		ProjectID:          cfg.Google.ProjectID,
		Region:             cfg.TTS.Location,
		SpeechModel:        cfg.TTS.Model,
		MaxTokens:          cfg.TTS.MaxTokens,
		HarmBlockThreshold: cfg.TTS.HarmBlockThreshold,
	}
}

// transcribeProviderConfig builds the STT provider from the stt config block.
func transcribeProviderConfig(cfg *config.Config) gemini.Config {
	return gemini.Config{
		ProjectID:          cfg.Google.ProjectID,
		Region:             cfg.STT.Location,
		Model:              cfg.STT.Model,
		MaxTokens:          cfg.STT.MaxTokens,
		HarmBlockThreshold: cfg.STT.HarmBlockThreshold,
	}
}

func converseOptions(m *config.ModelConfig) assist.ConverseOptions {
	return assist.ConverseOptions{
		SystemPrompt: m.SystemPrompt,
		Model:        m.Model,
		MaxTokens:    m.MaxTokens,
		Temperature:  m.Temperature,
		TopP:         m.TopP,
		TopK:         m.TopK,
	}
}

func buildTokenSource(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, error) {
	blob, err := cfg.Credentials()
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		log.Println("No credentials configured, using application default credentials")
		return credentials.DefaultTokenSource(ctx)
	}

	info, err := credentials.Parse(blob)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}
	return info.TokenSource(ctx)
}

func buildChatProvider(cfg *config.Config, tokenSource oauth2.TokenSource, client *httpclient.Client) (types.Provider, error) {
	switch cfg.Conversation.Provider {
	case string(types.ProviderTypeClaude):
		return claude.New(claude.Config{
			ProjectID: cfg.Google.ProjectID,
			Region:    cfg.Conversation.Location,
			Model:     cfg.Conversation.Model,
			MaxTokens: cfg.Conversation.MaxTokens,
		}, tokenSource, client)
	case string(types.ProviderTypeGemini):
		return gemini.New(gemini.Config{
			ProjectID:          cfg.Google.ProjectID,
			Region:             cfg.Conversation.Location,
			Model:              cfg.Conversation.Model,
			MaxTokens:          cfg.Conversation.MaxTokens,
			HarmBlockThreshold: cfg.Conversation.HarmBlockThreshold,
		}, tokenSource, client)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Conversation.Provider)
	}
}

func buildServiceCaller(cfg *config.Config) (customtools.ServiceCaller, error) {
	if cfg.HomeAssistant.BaseURL == "" {
		return nil, nil
	}

	haConfig := homeassistant.Config{
		BaseURL: cfg.HomeAssistant.BaseURL,
		Token:   cfg.HomeAssistant.Token,
		Timeout: cfg.HomeAssistant.Timeout,
	}

	if cfg.HomeAssistant.Transport == "websocket" {
		return homeassistant.NewWSClient(haConfig)
	}
	return homeassistant.NewClient(haConfig, nil)
}

func loadCustomTools(cfg *config.Config) ([]*customtools.CustomTool, error) {
	if cfg.CustomToolsFile == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(cfg.CustomToolsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read custom tools file: %w", err)
	}

	tools, err := customtools.Parse(string(raw))
	if err != nil {
		// An invalid document degrades to zero tools
		log.Printf("Custom tools disabled: %v", err)
		return nil, nil
	}
	return tools, nil
}
