package software_backend

import "github.com/Carmen-Shannon/oxy-flex/engine/skinning"

// BackendOption is a functional option applied to the software backend by NewBackend.
type BackendOption func(*softwareBackend)

// WithSupersample renders at factor times the output size and downsamples each frame.
//
// Parameters:
//   - factor: the per-axis supersample factor, 1 disables supersampling
//
// Returns:
//   - BackendOption: a function that sets the supersample factor
func WithSupersample(factor int) BackendOption {
	return func(b *softwareBackend) {
		b.supersample = factor
	}
}

// WithClearColor sets the color each frame is cleared to.
//
// Parameters:
//   - r, g, b, a: the clear color as 8-bit components
//
// Returns:
//   - BackendOption: a function that sets the clear color
func WithClearColor(r, g, b, a uint8) BackendOption {
	return func(sb *softwareBackend) {
		sb.clearColor = [4]uint8{r, g, b, a}
	}
}

// WithFrameRate sets the rate used to timestamp pumped frames; frame n runs at n/fps seconds.
//
// Parameters:
//   - fps: frames per second
//
// Returns:
//   - BackendOption: a function that sets the frame rate
func WithFrameRate(fps float64) BackendOption {
	return func(b *softwareBackend) {
		b.frameRate = fps
	}
}

// WithShaderValidation runs the WGSL front end over programs before reflecting them.
//
// Parameters:
//   - enabled: true to validate programs
//
// Returns:
//   - BackendOption: a function that enables validation
func WithShaderValidation(enabled bool) BackendOption {
	return func(b *softwareBackend) {
		b.validate = enabled
	}
}

// WithSkinner sets the skinner used to evaluate the vertex stage.
//
// Parameters:
//   - s: the skinner
//
// Returns:
//   - BackendOption: a function that sets the skinner
func WithSkinner(s skinning.Skinner) BackendOption {
	return func(b *softwareBackend) {
		b.skinner = s
	}
}

// WithFrameSink sets a function that receives every resolved frame.
//
// Parameters:
//   - sink: the frame consumer; an error from it fails the draw
//
// Returns:
//   - BackendOption: a function that sets the frame sink
func WithFrameSink(sink FrameSink) BackendOption {
	return func(b *softwareBackend) {
		b.sink = sink
	}
}
