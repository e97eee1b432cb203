package assist

import (
	"context"
	"fmt"
	"log"

	"github.com/vertex-home/assist-bridge/pkg/types"
)

// sttMimeTypes maps supported input formats to the MIME types the
// transcription model accepts.
var sttMimeTypes = map[string]string{
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"opus": "audio/ogg; codecs=opus",
	"flac": "audio/flac",
}

// STTRequest asks for a transcription.
type STTRequest struct {
	Audio    []byte `json:"-"`
	Format   string `json:"format"`
	Language string `json:"language,omitempty"`
}

// STTResult carries the transcription.
type STTResult struct {
	Text  string      `json:"text"`
	Usage types.Usage `json:"usage"`
}

// STT transcribes audio via a transcription-capable provider.
type STT struct {
	provider types.TranscriptionProvider
}

// NewSTT creates an STT service.
func NewSTT(provider types.TranscriptionProvider) (*STT, error) {
	if provider == nil {
		return nil, fmt.Errorf("transcription provider is required")
	}
	return &STT{provider: provider}, nil
}

// SupportedFormats lists the accepted audio input formats.
func (s *STT) SupportedFormats() []string {
	return []string{"wav", "ogg", "opus", "flac"}
}

// Transcribe converts collected audio to text. Empty audio is an error;
// unknown formats fall back to audio/wav.
func (s *STT) Transcribe(ctx context.Context, req *STTRequest) (*STTResult, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("no audio data received")
	}

	mimeType, ok := sttMimeTypes[req.Format]
	if !ok {
		log.Printf("assist: unknown audio format %q, defaulting to audio/wav", req.Format)
		mimeType = "audio/wav"
	}

	resp, err := s.provider.Transcribe(ctx, &types.TranscribeRequest{
		Audio:    req.Audio,
		MimeType: mimeType,
		Language: req.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	log.Printf("assist: transcribed %d bytes of %s audio", len(req.Audio), req.Format)
	return &STTResult{Text: resp.Text, Usage: resp.Usage}, nil
}
