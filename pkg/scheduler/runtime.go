// Package scheduler controls how much work each camera frame gets: it measures
// throughput, picks per-stage cadences, and admits at most one frame at a time
// to the processing worker.
package scheduler

import (
	"fmt"
	"runtime"
)

// Stage is a model-backed step that may be skipped on some frames.
type Stage int

const (
	StageObjects Stage = iota
	StageHazards
	StageDepth
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageObjects:
		return "objects"
	case StageHazards:
		return "hazards"
	case StageDepth:
		return "depth"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Cadence holds a run-every-N-frames interval per stage.
type Cadence struct {
	Objects int `json:"objects"`
	Hazards int `json:"hazards"`
	Depth   int `json:"depth"`
}

// Interval returns the interval for stage, never less than 1.
func (c Cadence) Interval(stage Stage) int {
	var n int
	switch stage {
	case StageObjects:
		n = c.Objects
	case StageHazards:
		n = c.Hazards
	case StageDepth:
		n = c.Depth
	}
	if n < 1 {
		return 1
	}
	return n
}

func (c Cadence) zipWith(o Cadence, f func(a, b int) int) Cadence {
	return Cadence{
		Objects: f(c.Objects, o.Objects),
		Hazards: f(c.Hazards, o.Hazards),
		Depth:   f(c.Depth, o.Depth),
	}
}

// Capabilities describes the inference hardware found at startup.
type Capabilities struct {
	GPU  bool
	CPUs int
}

// LocalCapabilities reports this host's CPU count; GPU is taken from the caller
// since it depends on how the model backend was built.
func LocalCapabilities(gpu bool) Capabilities {
	return Capabilities{GPU: gpu, CPUs: runtime.NumCPU()}
}

// RuntimeConfig is the read-only inference profile chosen at startup.
type RuntimeConfig struct {
	UsingGPU bool    `json:"usingGpu"`
	CPUOnly  bool    `json:"cpuOnly"`
	Cadence  Cadence `json:"cadence"`
	Threads  int     `json:"threads"`
}

// Mode returns "GPU" or "CPU" for display.
func (r RuntimeConfig) Mode() string {
	if r.UsingGPU {
		return "GPU"
	}
	return "CPU"
}

// Presets chosen by ProbeRuntime.
var (
	GPUCadence = Cadence{Objects: 1, Hazards: 1, Depth: 3}
	CPUCadence = Cadence{Objects: 3, Hazards: 5, Depth: 5}
)

// DefaultThreads is the inference thread count for every profile.
const DefaultThreads = 4

// ProbeRuntime picks the inference profile for caps.
func ProbeRuntime(caps Capabilities) RuntimeConfig {
	threads := DefaultThreads
	if caps.CPUs > 0 && caps.CPUs < threads {
		threads = caps.CPUs
	}
	if caps.GPU {
		return RuntimeConfig{UsingGPU: true, Cadence: GPUCadence, Threads: threads}
	}
	return RuntimeConfig{CPUOnly: true, Cadence: CPUCadence, Threads: threads}
}
