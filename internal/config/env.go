// Package config provides configuration helpers for go-sightguide commands:
// environment lookups and the YAML tuning file.
package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variable names read by the commands.
const (
	EnvLogLevel   = "SIGHTGUIDE_LOG_LEVEL"
	EnvPort       = "SIGHTGUIDE_PORT"
	EnvCamera     = "SIGHTGUIDE_CAMERA"
	EnvTuningFile = "SIGHTGUIDE_TUNING"
	EnvModelDir   = "SIGHTGUIDE_MODEL_DIR"
	EnvOpenAIKey  = "OPENAI_API_KEY"
	EnvGoogleKey  = "GOOGLE_API_KEY"
)

// Defaults used when neither a flag nor an environment variable is set.
const (
	DefaultPort     = "8080"
	DefaultModelDir = "models"
)

// String returns the value of key, or def if unset or empty.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Int returns key parsed as an int, or def if unset or malformed.
func Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Bool returns key parsed with strconv.ParseBool, or def.
func Bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Duration returns key parsed with time.ParseDuration, or def.
func Duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
