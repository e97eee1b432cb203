package assist

import (
	"context"
	"fmt"
	"log"

	"github.com/vertex-home/assist-bridge/pkg/audio"
	"github.com/vertex-home/assist-bridge/pkg/providers/gemini"
	"github.com/vertex-home/assist-bridge/pkg/types"
)

// SupportedTTSLanguages are the languages speech synthesis accepts.
var SupportedTTSLanguages = []string{
	"en", "es", "fr", "de", "it", "pt", "nl",
	"pl", "ru", "ja", "ko", "zh", "ar", "hi",
}

// TTSRequest asks for synthesized speech.
type TTSRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice,omitempty"`
	Language string `json:"language,omitempty"`
}

// TTSResult carries a playable WAV file.
type TTSResult struct {
	Audio    []byte `json:"-"`
	MimeType string `json:"mime_type"`
}

// TTS synthesizes speech via a speech-capable provider and wraps the raw
// PCM output as WAV.
type TTS struct {
	provider types.SpeechProvider
}

// NewTTS creates a TTS service.
func NewTTS(provider types.SpeechProvider) (*TTS, error) {
	if provider == nil {
		return nil, fmt.Errorf("speech provider is required")
	}
	return &TTS{provider: provider}, nil
}

// Voices lists the available synthesis voices.
func (t *TTS) Voices() []string {
	return gemini.Voices
}

// SupportedLanguage reports whether language is accepted. An empty
// language is allowed and left to the model.
func (t *TTS) SupportedLanguage(language string) bool {
	if language == "" {
		return true
	}
	for _, l := range SupportedTTSLanguages {
		if l == language {
			return true
		}
	}
	return false
}

// Synthesize produces WAV audio for the given text.
func (t *TTS) Synthesize(ctx context.Context, req *TTSRequest) (*TTSResult, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("text is required")
	}
	if !t.SupportedLanguage(req.Language) {
		return nil, fmt.Errorf("unsupported language %q", req.Language)
	}

	resp, err := t.provider.GenerateSpeech(ctx, &types.SpeechRequest{
		Text:     req.Text,
		Voice:    req.Voice,
		Language: req.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("speech generation failed: %w", err)
	}

	wav, err := audio.WrapPCMFromMime(resp.Audio, resp.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap audio: %w", err)
	}

	log.Printf("assist: synthesized %d bytes of audio (%s)", len(wav), resp.MimeType)
	return &TTSResult{Audio: wav, MimeType: "audio/wav"}, nil
}
