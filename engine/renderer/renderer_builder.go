package renderer

import "github.com/cogentcore/webgpu/wgpu"

// RendererBuilderOption configures NewRenderer. Options are collected first and applied once the
// device exists.
type RendererBuilderOption func(*renderer)

// WithPresentMode selects how frames reach the display. PresentModeVSync waits for vertical
// blank; PresentModeUncapped presents immediately.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - RendererBuilderOption: the option
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the sample count of the colour and depth attachments. The default is MSAA4x;
// MSAAOff renders straight into the surface texture.
//
// Parameters:
//   - count: the sample count
//
// Returns:
//   - RendererBuilderOption: the option
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = &count
	}
}

// WithForceSoftwareRenderer requests the fallback adapter, which needs a CPU Vulkan driver such
// as lavapipe or SwiftShader. Useful on machines without a GPU.
//
// Parameters:
//   - force: true to request the fallback adapter
//
// Returns:
//   - RendererBuilderOption: the option
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithClearColor sets the colour behind the mesh. Components are in [0, 1].
//
// Parameters:
//   - red, green, blue, alpha: the colour components
//
// Returns:
//   - RendererBuilderOption: the option
func WithClearColor(red, green, blue, alpha float64) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingClearColor = &wgpu.Color{R: red, G: green, B: blue, A: alpha}
	}
}
