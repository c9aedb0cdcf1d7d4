package engine

import (
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer"
	"github.com/Carmen-Shannon/oxy-flex/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-flex/engine/window"
)

// EngineBuilderOption overrides part of what NewEngine would otherwise build from the configuration.
type EngineBuilderOption func(*engine)

// WithProfiling turns the per-second profiler report on or off regardless of cfg.Profiling.
//
// Parameters:
//   - enabled: true to log profiler reports
//
// Returns:
//   - EngineBuilderOption: the option
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithWindow hosts the wgpu backend in an existing window. Close leaves that window open.
//
// Parameters:
//   - w: the window
//
// Returns:
//   - EngineBuilderOption: the option
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithBackend supplies the graphics backend instead of creating one from the configuration.
// The engine does not release a backend it did not create.
//
// Parameters:
//   - b: the backend
//
// Returns:
//   - EngineBuilderOption: the option
func WithBackend(b renderer.GraphicsBackend) EngineBuilderOption {
	return func(e *engine) {
		e.backend = b
	}
}

// WithPoseEvaluator replaces the configured oscillator, e.g. with a keyframed clip.
//
// Parameters:
//   - pose: the pose evaluator
//
// Returns:
//   - EngineBuilderOption: the option
func WithPoseEvaluator(pose skeleton.Evaluator) EngineBuilderOption {
	return func(e *engine) {
		e.pose = pose
	}
}

// WithEngineFrameObserver registers a function called after every frame the engine draws.
//
// Parameters:
//   - observer: the function receiving the frame index, time, and pose
//
// Returns:
//   - EngineBuilderOption: the option
func WithEngineFrameObserver(observer func(FrameInfo)) EngineBuilderOption {
	return func(e *engine) {
		e.observers = append(e.observers, observer)
	}
}
