// Package tts provides a unified interface for the text-to-speech providers
// that voice guidance commands.
//
// Cloud providers (OpenAI, Google Cloud Text-to-Speech) and the test Mock all
// implement Provider, and Chain falls back across them in order:
//
//	primary, _ := tts.NewOpenAI(tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	backup, _ := tts.NewGoogle(ctx, tts.WithAPIKey(os.Getenv("GOOGLE_API_KEY")))
//	chain, _ := tts.NewChain(primary, backup)
//	defer chain.Close()
//
//	result, _ := chain.Synthesize(ctx, "steer left, more space on the left.")
//	// result.Audio holds 16-bit little-endian mono PCM
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete buffer.
	// Guidance phrases are short, so there is no streaming variant.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is a complete synthesis result.
type AudioResult struct {
	// Audio holds raw PCM in Format.
	Audio []byte

	Format AudioFormat

	// Duration is the playback length derived from the PCM size.
	Duration time.Duration

	CharCount int

	// LatencyMs is the request round trip in milliseconds.
	LatencyMs int64
}

// AudioFormat describes raw PCM audio.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
	BitDepth   int
}

// BytesPerSecond returns the PCM data rate, or 0 if the format is incomplete.
func (f AudioFormat) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitDepth / 8
}

// DurationOf returns the playback length of n bytes in this format.
func (f AudioFormat) DurationOf(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}

// Encoding names a PCM layout.
type Encoding string

const (
	EncodingPCM16 Encoding = "pcm_16000" // 16kHz mono PCM16
	EncodingPCM22 Encoding = "pcm_22050" // 22.05kHz mono PCM16
	EncodingPCM24 Encoding = "pcm_24000" // 24kHz mono PCM16
)

// SampleRateFromEncoding returns the sample rate of enc, defaulting to 24kHz.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16:
		return 16000
	case EncodingPCM22:
		return 22050
	default:
		return 24000
	}
}

// PCMFormat returns the mono 16-bit format for enc.
func PCMFormat(enc Encoding) AudioFormat {
	return AudioFormat{
		Encoding:   enc,
		SampleRate: SampleRateFromEncoding(enc),
		Channels:   1,
		BitDepth:   16,
	}
}
