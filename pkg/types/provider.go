package types

import (
	"context"
	"time"
)

// ProviderType identifies a Vertex AI model publisher.
type ProviderType string

const (
	ProviderTypeClaude ProviderType = "claude"
	ProviderTypeGemini ProviderType = "gemini"
)

// Provider is the interface implemented by all model providers.
type Provider interface {
	// Name returns the display name of the provider
	Name() string

	// Type returns the provider type
	Type() ProviderType

	// Generate performs a text generation request
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// HealthCheck validates connectivity and credentials with a minimal
	// upstream call
	HealthCheck(ctx context.Context) error
}

// SpeechProvider is implemented by providers that can synthesize speech.
type SpeechProvider interface {
	Provider
	GenerateSpeech(ctx context.Context, req *SpeechRequest) (*SpeechResponse, error)
}

// TranscriptionProvider is implemented by providers that can transcribe audio.
type TranscriptionProvider interface {
	Provider
	Transcribe(ctx context.Context, req *TranscribeRequest) (*TranscribeResponse, error)
}

// HealthStatus represents the last observed health of a provider.
type HealthStatus struct {
	Healthy      bool      `json:"healthy"`
	LastChecked  time.Time `json:"last_checked"`
	Message      string    `json:"message"`
	ResponseTime float64   `json:"response_time"`
}
