// Package audio plays synthesized speech on the local sound device by piping
// raw PCM into a command-line player.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
)

// Format describes mono or interleaved PCM16 little-endian audio.
type Format struct {
	SampleRate int
	Channels   int
}

// Player plays a complete PCM16 buffer and returns when playback ends.
type Player interface {
	Play(ctx context.Context, pcm []byte, format Format) error
}

// ErrNoPlayer is returned when no supported playback command is installed.
var ErrNoPlayer = errors.New("audio: no playback command found (install alsa-utils, pulseaudio-utils or ffmpeg)")

// Backend is a command-line PCM player.
type Backend struct {
	Name string
	// Args builds the argument list for a raw PCM16 stream on stdin.
	Args func(f Format) []string
}

// Backends are tried in order by DetectBackend.
var Backends = []Backend{
	{Name: "aplay", Args: func(f Format) []string {
		return []string{"-q", "-t", "raw", "-f", "S16_LE", "-r", strconv.Itoa(f.SampleRate), "-c", strconv.Itoa(f.Channels)}
	}},
	{Name: "paplay", Args: func(f Format) []string {
		return []string{"--raw", "--format=s16le", "--rate=" + strconv.Itoa(f.SampleRate), "--channels=" + strconv.Itoa(f.Channels)}
	}},
	{Name: "ffplay", Args: func(f Format) []string {
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-f", "s16le", "-ar", strconv.Itoa(f.SampleRate), "-ac", strconv.Itoa(f.Channels), "-i", "pipe:0"}
	}},
}

// DetectBackend returns the first backend found on PATH.
func DetectBackend() (Backend, error) {
	for _, b := range Backends {
		if _, err := exec.LookPath(b.Name); err == nil {
			return b, nil
		}
	}
	return Backend{}, ErrNoPlayer
}

// CommandPlayer plays PCM by writing it to a backend's stdin.
// Calls are serialized; one utterance plays at a time.
type CommandPlayer struct {
	backend Backend
	// OutputRate, if non-zero, resamples everything to this rate first.
	OutputRate int
	logger     *slog.Logger

	mu sync.Mutex

	// Callbacks
	OnPlaybackStart func()
	OnPlaybackEnd   func()
}

// NewCommandPlayer creates a player for backend.
func NewCommandPlayer(backend Backend, logger *slog.Logger) *CommandPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandPlayer{
		backend: backend,
		logger:  logger.With("component", "audio", "backend", backend.Name),
	}
}

// Play writes pcm to a fresh backend process and waits for it to exit.
// Cancelling ctx kills the process.
func (p *CommandPlayer) Play(ctx context.Context, pcm []byte, format Format) error {
	if len(pcm) == 0 {
		return nil
	}
	if format.Channels <= 0 {
		format.Channels = 1
	}
	if p.OutputRate > 0 && format.SampleRate != p.OutputRate && format.Channels == 1 {
		pcm = Int16ToPCM16(Resample(PCM16ToInt16(pcm), format.SampleRate, p.OutputRate))
		format.SampleRate = p.OutputRate
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cmd := exec.CommandContext(ctx, p.backend.Name, p.backend.Args(format)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.backend.Name, err)
	}

	if p.OnPlaybackStart != nil {
		p.OnPlaybackStart()
	}
	defer func() {
		if p.OnPlaybackEnd != nil {
			p.OnPlaybackEnd()
		}
	}()

	_, werr := stdin.Write(pcm)
	stdin.Close()
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s exited: %w", p.backend.Name, err)
	}
	if werr != nil {
		return fmt.Errorf("write pcm: %w", werr)
	}

	p.logger.Debug("played audio", "bytes", len(pcm), "rate", format.SampleRate)
	return nil
}

// Discard is a Player that drops audio. Useful for headless runs where only
// the dashboard shows commands.
type Discard struct{}

// Play implements Player.
func (Discard) Play(context.Context, []byte, Format) error { return nil }

// PCM16ToInt16 converts little-endian PCM16 bytes to samples.
func PCM16ToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// Int16ToPCM16 converts samples to little-endian PCM16 bytes.
func Int16ToPCM16(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}

// Resample converts mono samples from srcRate to dstRate by linear interpolation.
func Resample(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 || len(samples) == 0 {
		return samples
	}

	ratio := float64(dstRate) / float64(srcRate)
	out := make([]int16, int(float64(len(samples))*ratio))

	for i := range out {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int16(float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac)
	}
	return out
}

var (
	_ Player = (*CommandPlayer)(nil)
	_ Player = Discard{}
)
