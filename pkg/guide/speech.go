package guide

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-sightguide/pkg/audio"
	"github.com/teslashibe/go-sightguide/pkg/tts"
)

// newProvider builds the TTS provider for c.TTS. It returns nil for TTSNone.
func newProvider(ctx context.Context, c Config, logger *slog.Logger) (tts.Provider, error) {
	opts := []tts.Option{tts.WithLogger(logger)}
	if c.Voice != "" {
		opts = append(opts, tts.WithVoice(c.Voice))
	}

	switch c.TTS {
	case TTSNone:
		return nil, nil
	case TTSMock:
		return tts.NewMock(), nil
	case TTSOpenAI:
		return tts.NewOpenAI(append(opts, tts.WithAPIKey(c.OpenAIKey))...)
	case TTSGoogle:
		return tts.NewGoogle(ctx, append(opts, tts.WithAPIKey(c.GoogleKey))...)
	}

	// Auto: chain every provider that has credentials.
	var providers []tts.Provider
	if c.OpenAIKey != "" {
		p, err := tts.NewOpenAI(append(opts, tts.WithAPIKey(c.OpenAIKey))...)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if c.GoogleKey != "" {
		p, err := tts.NewGoogle(ctx, append(opts, tts.WithAPIKey(c.GoogleKey))...)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	switch len(providers) {
	case 0:
		logger.Warn("no TTS credentials found, speech is silent", "hint", "set OPENAI_API_KEY or GOOGLE_API_KEY")
		return tts.NewMock(), nil
	case 1:
		return providers[0], nil
	default:
		return tts.NewChainWithLogger(logger, providers...)
	}
}

// newPlayer returns the audio player named by backend. An empty name picks
// the first player on PATH and falls back to discarding audio.
func newPlayer(backend string, logger *slog.Logger) (audio.Player, error) {
	switch backend {
	case AudioNone:
		return audio.Discard{}, nil
	case "":
		b, err := audio.DetectBackend()
		if err != nil {
			logger.Warn("no audio player found, speech will not be heard", "error", err)
			return audio.Discard{}, nil
		}
		return audio.NewCommandPlayer(b, logger), nil
	}

	for _, b := range audio.Backends {
		if b.Name == backend {
			return audio.NewCommandPlayer(b, logger), nil
		}
	}
	return nil, fmt.Errorf("%w: unknown audio backend %q", ErrInvalidConfig, backend)
}
