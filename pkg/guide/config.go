// Package guide assembles the sight guide application: camera capture, the
// perception models, the guidance pipeline, speech and the dashboard.
package guide

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/teslashibe/go-sightguide/internal/config"
	"github.com/teslashibe/go-sightguide/pkg/camera"
	"github.com/teslashibe/go-sightguide/pkg/narrator"
	"github.com/teslashibe/go-sightguide/pkg/perception/detection"
	"github.com/teslashibe/go-sightguide/pkg/pipeline"
	"github.com/teslashibe/go-sightguide/pkg/web"
)

// TTS provider selection.
const (
	TTSAuto   = "auto"   // every provider with a key, in order, else mock
	TTSOpenAI = "openai" // OpenAI speech endpoint
	TTSGoogle = "google" // Google Cloud Text-to-Speech
	TTSMock   = "mock"   // silent synthesis, for demos without credentials
	TTSNone   = "none"   // no narrator
)

// Motion sources.
const (
	MotionWeb    = "web"    // browser accelerometer over /ws/motion
	MotionStatic = "static" // assume the device is held level
)

// AudioNone disables playback.
const AudioNone = "none"

// Default model file names, relative to ModelDir.
const (
	DefaultObjectModel = "yolov8n.onnx"
	DefaultHazardModel = "hazards.onnx"
	DefaultDepthModel  = "midas_v21_small_256.onnx"
)

var (
	ttsModes    = []string{TTSAuto, TTSOpenAI, TTSGoogle, TTSMock, TTSNone}
	motionModes = []string{MotionWeb, MotionStatic}
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("guide: invalid configuration")

// Config holds all configuration for the application.
// Flag parsing is done in cmd/sightguide; this struct is data only.
type Config struct {
	Camera camera.Config
	Web    web.Config

	// Models
	ModelDir    string
	ObjectModel string
	HazardModel string // empty disables the hazard detector
	DepthModel  string // empty disables depth estimation
	GPU         bool   // run models on the CUDA backend and use the GPU cadence

	Motion string

	// Speech
	TTS          string
	Voice        string // provider voice; empty uses the provider default
	AudioBackend string // aplay, paplay, ffplay, none; empty detects
	OpenAIKey    string
	GoogleKey    string
	Narrator     narrator.Config

	Pipeline pipeline.Config
}

// DefaultConfig returns the standard application configuration.
func DefaultConfig() Config {
	return Config{
		Camera:      camera.DefaultConfig(),
		Web:         web.DefaultConfig(),
		ModelDir:    config.DefaultModelDir,
		ObjectModel: DefaultObjectModel,
		HazardModel: DefaultHazardModel,
		DepthModel:  DefaultDepthModel,
		Motion:      MotionWeb,
		TTS:         TTSAuto,
		Narrator:    narrator.DefaultConfig(),
		Pipeline:    pipeline.DefaultConfig(),
	}
}

// LoadEnv applies SIGHTGUIDE_* overrides and API keys from the environment.
func (c *Config) LoadEnv() {
	if port := config.String(config.EnvPort, ""); port != "" {
		c.Web.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	c.Camera.Device = config.String(config.EnvCamera, c.Camera.Device)
	c.ModelDir = config.String(config.EnvModelDir, c.ModelDir)
	c.OpenAIKey = config.String(config.EnvOpenAIKey, c.OpenAIKey)
	c.GoogleKey = config.String(config.EnvGoogleKey, c.GoogleKey)
}

// ApplyTuning loads a YAML tuning file into the pipeline settings.
func (c *Config) ApplyTuning(path string) error {
	t, err := config.LoadTuning(path)
	if err != nil {
		return err
	}
	c.Pipeline = c.Pipeline.WithTuning(t)
	return nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var problems []string

	problems = append(problems, c.Camera.Validate()...)
	if c.ObjectModel == "" {
		problems = append(problems, "object model is required")
	}
	if !lo.Contains(ttsModes, c.TTS) {
		problems = append(problems, fmt.Sprintf("tts must be one of %s", strings.Join(ttsModes, ", ")))
	}
	if !lo.Contains(motionModes, c.Motion) {
		problems = append(problems, fmt.Sprintf("motion must be one of %s", strings.Join(motionModes, ", ")))
	}
	if c.TTS == TTSOpenAI && c.OpenAIKey == "" {
		problems = append(problems, config.EnvOpenAIKey+" is required for the openai provider")
	}
	if err := c.Pipeline.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// modelPath resolves a model file against ModelDir. Absolute paths are kept.
func (c Config) modelPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.ModelDir, name)
}

// objectConfig returns the detector settings for general obstacles.
func (c Config) objectConfig() detection.YOLOConfig {
	cfg := detection.DefaultObjectConfig()
	cfg.ModelPath = c.modelPath(c.ObjectModel)
	cfg.UseCUDA = c.GPU
	return cfg
}

// hazardConfig returns the detector settings for ground hazards.
func (c Config) hazardConfig() detection.YOLOConfig {
	cfg := detection.DefaultHazardConfig()
	cfg.ModelPath = c.modelPath(c.HazardModel)
	cfg.UseCUDA = c.GPU
	return cfg
}

// depthConfig returns the depth estimator settings.
func (c Config) depthConfig() detection.DepthConfig {
	cfg := detection.DefaultDepthConfig()
	cfg.ModelPath = c.modelPath(c.DepthModel)
	cfg.UseCUDA = c.GPU
	return cfg
}
