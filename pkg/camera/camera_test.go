package camera

import (
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("default config invalid: %v", errs)
	}
}

func TestPresetsAreValid(t *testing.T) {
	for name, cfg := range Presets() {
		t.Run(name, func(t *testing.T) {
			if errs := cfg.Validate(); len(errs) > 0 {
				t.Errorf("preset %s invalid: %v", name, errs)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"empty device", func(c *Config) { c.Device = "" }, "device"},
		{"tiny width", func(c *Config) { c.Width = 10 }, "width"},
		{"huge height", func(c *Config) { c.Height = 5000 }, "height"},
		{"negative fps", func(c *Config) { c.Framerate = -1 }, "framerate"},
		{"no failures allowed", func(c *Config) { c.MaxReadFailures = 0 }, "max_read_failures"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			errs := cfg.Validate()
			if len(errs) != 1 || !strings.Contains(errs[0], tc.want) {
				t.Errorf("expected one %q error, got %v", tc.want, errs)
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	if p := GetPreset(PresetLowPower); p == nil || p.Width != 320 {
		t.Errorf("unexpected lowpower preset: %+v", p)
	}
	if GetPreset("nope") != nil {
		t.Error("unknown preset should be nil")
	}
	names := PresetNames()
	if len(names) != len(Presets()) || names[0] != Preset1080p {
		t.Errorf("unexpected preset names: %v", names)
	}
}

func TestDeviceID(t *testing.T) {
	if id, ok := deviceID("2").(int); !ok || id != 2 {
		t.Errorf("numeric device should be an index, got %v", deviceID("2"))
	}
	if s, ok := deviceID("rtsp://cam/stream").(string); !ok || s != "rtsp://cam/stream" {
		t.Errorf("url should pass through, got %v", deviceID("rtsp://cam/stream"))
	}
}

func TestNewCapture_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 0
	if _, err := NewCapture(cfg, nil); err == nil {
		t.Error("expected error")
	}
}
