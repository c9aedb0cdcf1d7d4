package engine

import "github.com/Carmen-Shannon/oxy-flex/engine/renderer"

// RenderLoopOption is a functional option applied to a render loop by NewRenderLoop.
type RenderLoopOption func(*renderLoop)

// WithShaderSources replaces the built-in skinning program. The program must follow the attribute
// and uniform naming of the skinning package.
//
// Parameters:
//   - vertex: the vertex stage WGSL
//   - fragment: the fragment stage WGSL
//
// Returns:
//   - RenderLoopOption: a function that sets the shader sources
func WithShaderSources(vertex, fragment string) RenderLoopOption {
	return func(l *renderLoop) {
		l.vertexSource = vertex
		l.fragmentSource = fragment
	}
}

// WithFrameObserver registers a function called after every successful submit.
//
// Parameters:
//   - observer: the function receiving the frame index, time, and pose
//
// Returns:
//   - RenderLoopOption: a function that sets the observer
func WithFrameObserver(observer func(FrameInfo)) RenderLoopOption {
	return func(l *renderLoop) {
		l.observer = observer
	}
}

// WithFramePump sets the pump Run drives. Without one, Run pumps the backend if it is a
// FramePump and otherwise waits for an external host to deliver frames.
//
// Parameters:
//   - pump: the frame pump, usually the window hosting the surface
//
// Returns:
//   - RenderLoopOption: a function that sets the pump
func WithFramePump(pump renderer.FramePump) RenderLoopOption {
	return func(l *renderLoop) {
		l.pump = pump
	}
}

// WithMaxFrames stops the loop gracefully after n frames. Zero runs until the stop signal.
//
// Parameters:
//   - n: the frame limit
//
// Returns:
//   - RenderLoopOption: a function that sets the frame limit
func WithMaxFrames(n int) RenderLoopOption {
	return func(l *renderLoop) {
		l.maxFrames = n
	}
}
