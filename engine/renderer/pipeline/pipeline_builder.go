package pipeline

import (
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithStages sets the reflected vertex and fragment stages the pipeline is created from.
//
// Parameters:
//   - vertex: the reflected vertex stage
//   - fragment: the reflected fragment stage
//
// Returns:
//   - PipelineBuilderOption: a function that sets both stages
func WithStages(vertex, fragment *shader.Reflection) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertex = vertex
		p.fragment = fragment
	}
}

// WithCullMode sets which faces are culled. A mesh that bends far enough to show its back needs
// wgpu.CullModeNone.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.CullMode = mode
	}
}

// WithDepth sets the depth test and depth write state.
//
// Parameters:
//   - test: true to reject fragments behind the stored depth
//   - write: true to store the depth of drawn fragments
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth state
func WithDepth(test, write bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.DepthTest = test
		p.state.DepthWrite = write
	}
}
