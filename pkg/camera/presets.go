package camera

import "sort"

// Preset names for common configurations
const (
	PresetDefault  = "default"
	PresetLowPower = "lowpower"
	Preset720p     = "720p"
	Preset1080p    = "1080p"
	PresetSelfie   = "selfie"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:  DefaultConfig(),
		PresetLowPower: LowPowerConfig(),
		Preset720p:     HD720Config(),
		Preset1080p:    HD1080Config(),
		PresetSelfie:   SelfieConfig(),
	}
}

// PresetNames returns the sorted list of available preset names.
func PresetNames() []string {
	names := make([]string, 0, len(Presets()))
	for name := range Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// LowPowerConfig trades resolution for battery life and CPU headroom.
func LowPowerConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	cfg.Framerate = 15
	return cfg
}

// HD720Config returns 720p HD configuration.
// Good balance of range and performance on GPU hosts.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p Full HD configuration.
// Small distant obstacles are detected earlier, at a higher cost per frame.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// SelfieConfig mirrors a front-facing camera so LEFT and RIGHT match the user.
func SelfieConfig() Config {
	cfg := DefaultConfig()
	cfg.Mirror = true
	return cfg
}
