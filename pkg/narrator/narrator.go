// Package narrator speaks guidance commands aloud.
//
// A Speaker owns one background worker that synthesizes and plays phrases
// one at a time. SpeakAsync never blocks the caller: while the worker is busy
// only the most recent phrase is kept.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/teslashibe/go-sightguide/pkg/audio"
	"github.com/teslashibe/go-sightguide/pkg/tts"
)

// Narrator is the speech channel the pipeline talks to.
type Narrator interface {
	// SpeakAsync queues text for speech and returns immediately.
	SpeakAsync(text string)

	// IsOperational reports whether speech is ready and has not failed.
	IsOperational() bool

	// Reset clears a previous failure so speech resumes. A speaker that never
	// became ready checks provider health again.
	Reset()
}

// ErrNotReady is returned by Ready when the provider health check fails.
var ErrNotReady = errors.New("narrator: provider not ready")

// Config holds narrator tuning.
type Config struct {
	// Throttle is the minimum spacing between two utterances.
	Throttle time.Duration

	// SynthTimeout bounds a single Synthesize call.
	SynthTimeout time.Duration

	// HealthTimeout bounds the readiness check.
	HealthTimeout time.Duration
}

// DefaultConfig returns a 1s throttle with short provider timeouts.
func DefaultConfig() Config {
	return Config{
		Throttle:      time.Second,
		SynthTimeout:  5 * time.Second,
		HealthTimeout: 5 * time.Second,
	}
}

// Speaker is a Narrator backed by a TTS provider and an audio player.
type Speaker struct {
	provider tts.Provider
	player   audio.Player
	config   Config
	limiter  *rate.Limiter
	logger   *slog.Logger

	queue chan string
	retry chan struct{}

	ready  atomic.Bool
	failed atomic.Bool

	spoken  atomic.Int64
	dropped atomic.Int64
	errors  atomic.Int64
}

// NewSpeaker creates a speaker. Zero config fields take their defaults.
func NewSpeaker(provider tts.Provider, player audio.Player, cfg Config, logger *slog.Logger) *Speaker {
	def := DefaultConfig()
	if cfg.Throttle <= 0 {
		cfg.Throttle = def.Throttle
	}
	if cfg.SynthTimeout <= 0 {
		cfg.SynthTimeout = def.SynthTimeout
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = def.HealthTimeout
	}
	if player == nil {
		player = audio.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		provider: provider,
		player:   player,
		config:   cfg,
		limiter:  rate.NewLimiter(rate.Every(cfg.Throttle), 1),
		logger:   logger.With("component", "narrator"),
		queue:    make(chan string, 1),
		retry:    make(chan struct{}, 1),
	}
}

// SpeakAsync replaces any pending phrase with text.
// It is a no-op while the speaker is not operational.
func (s *Speaker) SpeakAsync(text string) {
	if text == "" || !s.IsOperational() {
		return
	}
	for {
		select {
		case s.queue <- text:
			return
		default:
		}
		select {
		case <-s.queue:
			s.dropped.Inc()
		default:
		}
	}
}

// IsOperational implements Narrator.
func (s *Speaker) IsOperational() bool {
	return s.ready.Load() && !s.failed.Load()
}

// Reset implements Narrator.
func (s *Speaker) Reset() {
	if s.failed.CompareAndSwap(true, false) {
		s.logger.Info("narrator reset")
	}
	if !s.ready.Load() {
		select {
		case s.retry <- struct{}{}:
		default:
		}
	}
}

// Ready checks provider health and marks the speaker ready on success.
func (s *Speaker) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.HealthTimeout)
	defer cancel()

	if err := s.provider.Health(ctx); err != nil {
		s.ready.Store(false)
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	s.ready.Store(true)
	return nil
}

// Run checks readiness and then speaks queued phrases until ctx is done.
// While the provider is unhealthy Run waits for Reset to check again.
// Failures while speaking only flip the operational flag.
func (s *Speaker) Run(ctx context.Context) error {
	for {
		err := s.Ready(ctx)
		if err == nil {
			break
		}
		s.logger.Warn("narrator unavailable, speech suppressed until reset", "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-s.retry:
		}
	}
	s.logger.Info("narrator ready", "throttle", s.config.Throttle)

	for {
		select {
		case <-ctx.Done():
			return nil
		case text := <-s.queue:
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
			// A newer phrase may have arrived while throttled.
			select {
			case newer := <-s.queue:
				s.dropped.Inc()
				text = newer
			default:
			}
			if !s.IsOperational() {
				continue
			}
			s.speak(ctx, text)
		}
	}
}

func (s *Speaker) speak(ctx context.Context, text string) {
	synthCtx, cancel := context.WithTimeout(ctx, s.config.SynthTimeout)
	result, err := s.provider.Synthesize(synthCtx, text)
	cancel()
	if err != nil {
		s.fail("synthesize", err)
		return
	}

	format := audio.Format{SampleRate: result.Format.SampleRate, Channels: result.Format.Channels}
	if err := s.player.Play(ctx, result.Audio, format); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.fail("play", err)
		return
	}

	s.spoken.Inc()
	s.logger.Debug("spoke", "text", text, "latency_ms", result.LatencyMs, "duration", result.Duration)
}

func (s *Speaker) fail(stage string, err error) {
	s.errors.Inc()
	s.failed.Store(true)
	s.logger.Warn("narrator failed, speech suppressed until reset", "stage", stage, "error", err)
}

// Stats is a snapshot of speaker counters.
type Stats struct {
	Spoken      int64 `json:"spoken"`
	Dropped     int64 `json:"dropped"`
	Errors      int64 `json:"errors"`
	Operational bool  `json:"operational"`
}

// Stats returns current counters.
func (s *Speaker) Stats() Stats {
	return Stats{
		Spoken:      s.spoken.Load(),
		Dropped:     s.dropped.Load(),
		Errors:      s.errors.Load(),
		Operational: s.IsOperational(),
	}
}

// Close closes the underlying provider.
func (s *Speaker) Close() error {
	return s.provider.Close()
}

var _ Narrator = (*Speaker)(nil)
