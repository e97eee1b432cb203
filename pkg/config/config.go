// Package config loads and validates the bridge configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vertex-home/assist-bridge/pkg/providers/claude"
	"github.com/vertex-home/assist-bridge/pkg/providers/gemini"
	"github.com/vertex-home/assist-bridge/pkg/types"
)

// Model parameter defaults, matching the recommended integration settings.
const (
	DefaultTemperature = 1.0
	DefaultTopP        = 0.95
	DefaultTopK        = 64
	DefaultMaxTokens   = 3000
)

// Config is the full bridge configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	CORS          CORSConfig          `yaml:"cors"`
	Google        GoogleConfig        `yaml:"google"`
	Conversation  ModelConfig         `yaml:"conversation"`
	TTS           SpeechConfig        `yaml:"tts"`
	STT           ModelConfig         `yaml:"stt"`
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`

	// CustomToolsFile points at a YAML tool list; empty means no custom tools
	CustomToolsFile string `yaml:"custom_tools_file"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Version         string        `yaml:"version"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type AuthConfig struct {
	Enabled     bool     `yaml:"enabled"`
	APIPassword string   `yaml:"api_password"`
	APIKeyEnv   string   `yaml:"api_key_env"`
	PublicPaths []string `yaml:"public_paths"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// GoogleConfig carries GCP project and credential settings. Credentials
// may be inline JSON or a file path; with neither set, application
// default credentials apply.
type GoogleConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsJSON string `yaml:"credentials_json"`
	CredentialsFile string `yaml:"credentials_file"`
}

// ModelConfig selects a provider and its generation parameters.
type ModelConfig struct {
	Provider     string   `yaml:"provider"` // "claude" or "gemini"
	Model        string   `yaml:"model"`
	Location     string   `yaml:"location"`
	Temperature  *float64 `yaml:"temperature"`
	TopP         *float64 `yaml:"top_p"`
	TopK         *int     `yaml:"top_k"`
	MaxTokens    int      `yaml:"max_tokens"`
	SystemPrompt string   `yaml:"system_prompt"`

	// HarmBlockThreshold applies to Gemini only
	HarmBlockThreshold string `yaml:"harm_block_threshold"`
}

// SpeechConfig extends ModelConfig with a synthesis voice.
type SpeechConfig struct {
	ModelConfig `yaml:",inline"`
	Voice       string `yaml:"voice"`
}

// HomeAssistantConfig points the bridge at a Home Assistant instance.
type HomeAssistantConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Token     string        `yaml:"token"`
	Transport string        `yaml:"transport"` // "rest" (default) or "websocket"
	Timeout   time.Duration `yaml:"timeout"`
}

// Load reads, defaults and validates a config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields with the recommended settings.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8098
	}
	if c.Server.Version == "" {
		c.Server.Version = "1.0.0"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 60 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if len(c.Auth.PublicPaths) == 0 {
		c.Auth.PublicPaths = []string{"/health", "/version"}
	}

	if c.Conversation.Provider == "" {
		c.Conversation.Provider = string(types.ProviderTypeClaude)
	}
	applyModelDefaults(&c.Conversation)

	c.TTS.Provider = string(types.ProviderTypeGemini)
	if c.TTS.Model == "" {
		c.TTS.Model = gemini.DefaultSpeechModel
	}
	if c.TTS.Voice == "" {
		c.TTS.Voice = gemini.DefaultVoice
	}
	applyModelDefaults(&c.TTS.ModelConfig)

	c.STT.Provider = string(types.ProviderTypeGemini)
	applyModelDefaults(&c.STT)

	if c.HomeAssistant.Transport == "" {
		c.HomeAssistant.Transport = "rest"
	}
	if c.HomeAssistant.Timeout == 0 {
		c.HomeAssistant.Timeout = 30 * time.Second
	}
}

func applyModelDefaults(m *ModelConfig) {
	switch m.Provider {
	case string(types.ProviderTypeClaude):
		if m.Model == "" {
			m.Model = claude.DefaultModel
		}
		if m.Location == "" {
			m.Location = claude.DefaultRegion
		}
	case string(types.ProviderTypeGemini):
		if m.Model == "" {
			m.Model = gemini.DefaultModel
		}
		if m.Location == "" {
			m.Location = gemini.DefaultRegion
		}
		if m.HarmBlockThreshold == "" {
			m.HarmBlockThreshold = gemini.DefaultHarmBlockThreshold
		}
	}

	if m.Temperature == nil {
		t := DefaultTemperature
		m.Temperature = &t
	}
	if m.TopP == nil {
		p := DefaultTopP
		m.TopP = &p
	}
	if m.TopK == nil {
		k := DefaultTopK
		m.TopK = &k
	}
	if m.MaxTokens == 0 {
		m.MaxTokens = DefaultMaxTokens
	}
}

// Validate checks the configuration and reports actionable errors.
func (c *Config) Validate() error {
	if c.Google.ProjectID == "" {
		return fmt.Errorf("google.project_id is required")
	}
	if c.Google.CredentialsJSON != "" && c.Google.CredentialsFile != "" {
		return fmt.Errorf("google.credentials_json and google.credentials_file are mutually exclusive")
	}

	switch c.Conversation.Provider {
	case string(types.ProviderTypeClaude), string(types.ProviderTypeGemini):
	default:
		return fmt.Errorf("conversation.provider must be %q or %q, got %q",
			types.ProviderTypeClaude, types.ProviderTypeGemini, c.Conversation.Provider)
	}

	for _, threshold := range []string{c.Conversation.HarmBlockThreshold, c.STT.HarmBlockThreshold, c.TTS.HarmBlockThreshold} {
		if threshold == "" {
			continue
		}
		if err := gemini.ValidateHarmBlockThreshold(threshold); err != nil {
			return fmt.Errorf("invalid harm block threshold: %w", err)
		}
	}

	switch c.HomeAssistant.Transport {
	case "rest", "websocket":
	default:
		return fmt.Errorf("home_assistant.transport must be \"rest\" or \"websocket\", got %q", c.HomeAssistant.Transport)
	}
	if c.HomeAssistant.BaseURL != "" && c.HomeAssistant.Token == "" {
		return fmt.Errorf("home_assistant.token is required when home_assistant.base_url is set")
	}

	if c.CustomToolsFile != "" && c.HomeAssistant.BaseURL == "" {
		return fmt.Errorf("custom_tools_file requires home_assistant.base_url")
	}

	return nil
}

// Credentials returns the configured credential JSON blob, reading the
// file when a path is configured. Empty output means ADC.
func (c *Config) Credentials() ([]byte, error) {
	if c.Google.CredentialsJSON != "" {
		return []byte(c.Google.CredentialsJSON), nil
	}
	if c.Google.CredentialsFile != "" {
		raw, err := os.ReadFile(c.Google.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return raw, nil
	}
	return nil, nil
}
