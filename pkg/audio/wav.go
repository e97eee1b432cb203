// Package audio converts the raw PCM payloads Gemini speech synthesis
// returns into playable WAV files.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Defaults for Gemini TTS output when the MIME type omits parameters.
const (
	DefaultSampleRate    = 24000
	DefaultBitsPerSample = 16
)

// Format describes a linear PCM stream.
type Format struct {
	SampleRate    int
	BitsPerSample int
	Channels      int
}

// ParseMimeType extracts PCM parameters from a MIME type such as
// "audio/L16;codec=pcm;rate=24000". Missing or unparsable parameters
// fall back to the defaults; output is always treated as mono.
func ParseMimeType(mimeType string) Format {
	format := Format{
		SampleRate:    DefaultSampleRate,
		BitsPerSample: DefaultBitsPerSample,
		Channels:      1,
	}

	for _, part := range strings.Split(mimeType, ";") {
		part = strings.TrimSpace(part)

		if rate, ok := strings.CutPrefix(part, "rate="); ok {
			if v, err := strconv.Atoi(rate); err == nil && v > 0 {
				format.SampleRate = v
			}
			continue
		}

		// The subtype "L16" and friends encode the sample width
		if bits, ok := strings.CutPrefix(part, "audio/L"); ok {
			if v, err := strconv.Atoi(bits); err == nil && v > 0 {
				format.BitsPerSample = v
			}
		}
	}

	return format
}

// WrapPCM prepends a RIFF/WAV header to raw PCM data.
func WrapPCM(pcm []byte, format Format) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("no audio data to wrap")
	}
	if format.SampleRate <= 0 || format.BitsPerSample <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("invalid audio format %+v", format)
	}

	blockAlign := format.Channels * format.BitsPerSample / 8
	byteRate := format.SampleRate * blockAlign

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(format.Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(format.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(format.BitsPerSample))

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// WrapPCMFromMime wraps raw PCM using parameters parsed from its MIME type.
func WrapPCMFromMime(pcm []byte, mimeType string) ([]byte, error) {
	return WrapPCM(pcm, ParseMimeType(mimeType))
}
