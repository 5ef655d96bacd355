// Sight Guide - spoken navigation guidance from a body-worn camera.
// Detects obstacles and hazards, tracks them, and announces short commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/teslashibe/go-sightguide/internal/config"
	"github.com/teslashibe/go-sightguide/internal/log"
	"github.com/teslashibe/go-sightguide/pkg/camera"
	"github.com/teslashibe/go-sightguide/pkg/guide"
)

func main() {
	cfg, logLevel, tuningFile := parseFlags()

	log.Init(logLevel)
	logger := log.L()

	if tuningFile != "" {
		if err := cfg.ApplyTuning(tuningFile); err != nil {
			fatal("tuning file", err)
		}
		logger.Info("tuning applied", "file", tuningFile)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := guide.New(ctx, cfg, logger)
	if err != nil {
		fatal("startup", err)
	}

	runErr := app.Run(ctx)
	if err := app.Close(); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	if runErr != nil {
		fatal("runtime", runErr)
	}
}

func fatal(stage string, err error) {
	log.Error("sight guide failed", "stage", stage, "error", err)
	os.Exit(1)
}

// parseFlags parses command line flags, then applies environment overrides
// for anything a flag did not set.
func parseFlags() (guide.Config, string, string) {
	cfg := guide.DefaultConfig()

	logLevel := flag.String("log-level", config.String(config.EnvLogLevel, "info"), "Log level: debug, info, warn, error")
	tuning := flag.String("tuning", config.String(config.EnvTuningFile, ""), "YAML tuning file")
	preset := flag.String("preset", camera.PresetDefault, "Camera preset: "+strings.Join(camera.PresetNames(), ", "))
	device := flag.String("camera", "", "Camera index, device path, file or stream URL (overrides "+config.EnvCamera+")")
	mirror := flag.Bool("mirror", false, "Mirror frames horizontally")
	port := flag.String("port", "", "Dashboard port (overrides "+config.EnvPort+")")
	modelDir := flag.String("models", "", "Model directory (overrides "+config.EnvModelDir+")")
	hazardModel := flag.String("hazard-model", cfg.HazardModel, "Hazard detector model; empty disables it")
	depthModel := flag.String("depth-model", cfg.DepthModel, "Depth model; empty disables it")
	gpu := flag.Bool("gpu", false, "Run models on CUDA and use the GPU cadence")
	motion := flag.String("motion", cfg.Motion, "Motion source: web (phone accelerometer) or static (level)")
	ttsMode := flag.String("tts", cfg.TTS, "TTS provider: auto, openai, google, mock, none")
	voice := flag.String("voice", "", "TTS voice (provider specific)")
	audioBackend := flag.String("audio", "", "Audio player: aplay, paplay, ffplay, none (default: detect)")
	flag.Parse()

	if p := camera.GetPreset(*preset); p != nil {
		cfg.Camera = *p
	} else {
		fmt.Fprintf(os.Stderr, "unknown camera preset %q, using %s\n", *preset, camera.PresetDefault)
	}

	cfg.LoadEnv()

	if *device != "" {
		cfg.Camera.Device = *device
	}
	if *mirror {
		cfg.Camera.Mirror = true
	}
	if *port != "" {
		cfg.Web.Addr = ":" + strings.TrimPrefix(*port, ":")
	}
	if *modelDir != "" {
		cfg.ModelDir = *modelDir
	}
	cfg.HazardModel, cfg.DepthModel = *hazardModel, *depthModel
	cfg.GPU, cfg.Motion, cfg.TTS = *gpu, *motion, *ttsMode
	cfg.Voice, cfg.AudioBackend = *voice, *audioBackend

	return cfg, *logLevel, *tuning
}
