// Package camera captures frames from a local camera or video stream with
// OpenCV and hands them to the guidance pipeline.
package camera

import (
	"fmt"
	"time"
)

// Config holds camera capture parameters.
type Config struct {
	// Device is a camera index ("0"), a device path ("/dev/video2"), a file
	// or a stream URL.
	Device string `json:"device"`

	// === Resolution ===
	Width     int `json:"width"`     // Requested frame width in pixels
	Height    int `json:"height"`    // Requested frame height in pixels
	Framerate int `json:"framerate"` // Requested FPS; 0 leaves the driver default

	// Mirror flips frames horizontally (front-facing cameras).
	Mirror bool `json:"mirror"`

	// === Recovery ===
	// MaxReadFailures consecutive failed reads trigger a reopen.
	MaxReadFailures int `json:"max_read_failures"`
	// ReopenDelay is the wait before reopening a failed device.
	ReopenDelay time.Duration `json:"reopen_delay"`
}

// Capture limits
const (
	MinWidth     = 160
	MinHeight    = 120
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns the recommended configuration: VGA at 30 fps keeps
// detector latency low on CPU-only devices.
func DefaultConfig() Config {
	return Config{
		Device:          "0",
		Width:           640,
		Height:          480,
		Framerate:       30,
		MaxReadFailures: 30,
		ReopenDelay:     time.Second,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string

	if c.Device == "" {
		errs = append(errs, "device is required")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errs = append(errs, fmt.Sprintf("width must be between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errs = append(errs, fmt.Sprintf("height must be between %d and %d", MinHeight, MaxHeight))
	}
	if c.Framerate < 0 || c.Framerate > MaxFramerate {
		errs = append(errs, fmt.Sprintf("framerate must be between 0 and %d", MaxFramerate))
	}
	if c.MaxReadFailures < 1 {
		errs = append(errs, "max_read_failures must be at least 1")
	}
	if c.ReopenDelay < 0 {
		errs = append(errs, "reopen_delay must not be negative")
	}

	return errs
}
