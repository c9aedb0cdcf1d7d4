package pipeline

import (
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-flex/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the reflected program stages and the render state used to create the GPU pipeline.
type pipeline struct {
	// label is the debug label for this pipeline, used for GPU object labels
	label string

	// vertex and fragment are the reflected stages; both are required before registration.
	vertex, fragment *shader.Reflection

	// renderPipeline is the GPU pipeline, nil until the backend registers this pipeline
	renderPipeline *wgpu.RenderPipeline

	state RenderState
}

// RenderState is the fixed-function state the GPU pipeline is created with. Skinned meshes are
// opaque, so colour writes always cover every channel and blending is never enabled.
type RenderState struct {
	DepthTest  bool
	DepthWrite bool
	CullMode   wgpu.CullMode
	Topology   wgpu.PrimitiveTopology
	FrontFace  wgpu.FrontFace
}

// Pipeline defines the interface for a render pipeline built from a reflected vertex and fragment
// program. Vertex buffer layouts and bind group layouts are derived from the reflection, so every
// vertex attribute is fed from its own buffer slot and every declared binding gets a layout entry.
type Pipeline interface {
	// Label returns the debug label of this pipeline.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Vertex returns the reflected vertex stage.
	//
	// Returns:
	//   - *shader.Reflection: the vertex stage, or nil if not set
	Vertex() *shader.Reflection

	// Fragment returns the reflected fragment stage.
	//
	// Returns:
	//   - *shader.Reflection: the fragment stage, or nil if not set
	Fragment() *shader.Reflection

	// VertexLayouts returns one buffer layout per vertex attribute, ordered by location.
	// The index of a layout is the vertex buffer slot it must be bound to.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the buffer layouts
	VertexLayouts() []wgpu.VertexBufferLayout

	// SlotForLocation maps an attribute location to its vertex buffer slot.
	//
	// Parameters:
	//   - location: the attribute location
	//
	// Returns:
	//   - int: the buffer slot
	//   - bool: false if no attribute is declared at location
	SlotForLocation(location int) (int, bool)

	// BindGroupLayoutDescriptors merges the bindings of both stages into layout descriptors
	// keyed by group index. A binding used by both stages is visible to both.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// State returns the fixed-function state.
	//
	// Returns:
	//   - RenderState: the state
	State() RenderState

	// RenderPipeline returns the GPU pipeline, or nil if the pipeline has not been registered.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the GPU pipeline
	RenderPipeline() *wgpu.RenderPipeline

	// SetRenderPipeline sets the GPU pipeline after registration.
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// Release releases the GPU pipeline if one was created.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a Pipeline for a reflected program. The default state draws counter-clockwise
// triangle lists with depth test and depth write on and back faces culled.
//
// Parameters:
//   - label: the debug label for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the pipeline, not yet registered with a backend
func NewPipeline(label string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		label: label,
		state: RenderState{
			DepthTest:  true,
			DepthWrite: true,
			CullMode:   wgpu.CullModeBack,
			Topology:   wgpu.PrimitiveTopologyTriangleList,
			FrontFace:  wgpu.FrontFaceCCW,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Label() string {
	return p.label
}

func (p *pipeline) Vertex() *shader.Reflection {
	return p.vertex
}

func (p *pipeline) Fragment() *shader.Reflection {
	return p.fragment
}

func (p *pipeline) VertexLayouts() []wgpu.VertexBufferLayout {
	if p.vertex == nil {
		return nil
	}
	layouts := make([]wgpu.VertexBufferLayout, 0, len(p.vertex.Attributes))
	for _, attr := range p.vertex.Attributes {
		layouts = append(layouts, wgpu.VertexBufferLayout{
			ArrayStride: uint64(attr.Components * 4),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{
					Format:         vertexFormat(attr.TypeName),
					Offset:         0,
					ShaderLocation: uint32(attr.Location),
				},
			},
		})
	}
	return layouts
}

func (p *pipeline) SlotForLocation(location int) (int, bool) {
	if p.vertex == nil {
		return 0, false
	}
	for slot, attr := range p.vertex.Attributes {
		if attr.Location == location {
			return slot, true
		}
	}
	return 0, false
}

func (p *pipeline) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	type entryKey struct{ group, binding int }
	entries := make(map[entryKey]wgpu.BindGroupLayoutEntry)
	collect := func(r *shader.Reflection, visibility wgpu.ShaderStage) {
		if r == nil {
			return
		}
		for _, u := range r.Uniforms {
			key := entryKey{u.Group, u.Binding}
			if existing, ok := entries[key]; ok {
				// same binding in both stages, OR the visibility
				existing.Visibility |= visibility
				entries[key] = existing
				continue
			}
			entries[key] = wgpu.BindGroupLayoutEntry{
				Binding:    uint32(u.Binding),
				Visibility: visibility,
				Buffer: wgpu.BufferBindingLayout{
					Type:           bufferBindingType(u.AddressSpace),
					MinBindingSize: u.Size,
				},
			}
		}
	}
	collect(p.vertex, wgpu.ShaderStageVertex)
	collect(p.fragment, wgpu.ShaderStageFragment)

	grouped := make(map[int][]wgpu.BindGroupLayoutEntry)
	for key, entry := range entries {
		grouped[key.group] = append(grouped[key.group], entry)
	}
	descriptors := make(map[int]wgpu.BindGroupLayoutDescriptor, len(grouped))
	for g, list := range grouped {
		// sort by binding for deterministic layout
		sort.Slice(list, func(i, j int) bool {
			return list[i].Binding < list[j].Binding
		})
		descriptors[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   p.label,
			Entries: list,
		}
	}
	return descriptors
}

func (p *pipeline) State() RenderState {
	return p.state
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}

// vertexFormat maps a canonical WGSL vertex input type to its WebGPU vertex format.
func vertexFormat(typeName string) wgpu.VertexFormat {
	switch typeName {
	case "f32":
		return wgpu.VertexFormatFloat32
	case "vec2f":
		return wgpu.VertexFormatFloat32x2
	case "vec3f":
		return wgpu.VertexFormatFloat32x3
	case "u32":
		return wgpu.VertexFormatUint32
	case "vec2u":
		return wgpu.VertexFormatUint32x2
	case "vec3u":
		return wgpu.VertexFormatUint32x3
	case "vec4u":
		return wgpu.VertexFormatUint32x4
	case "i32":
		return wgpu.VertexFormatSint32
	case "vec2i":
		return wgpu.VertexFormatSint32x2
	case "vec3i":
		return wgpu.VertexFormatSint32x3
	case "vec4i":
		return wgpu.VertexFormatSint32x4
	default:
		// vec4f; Reflect rejects anything that is not a scalar or vector input
		return wgpu.VertexFormatFloat32x4
	}
}

// bufferBindingType maps a reflected address space to the WebGPU buffer binding type.
func bufferBindingType(addressSpace string) wgpu.BufferBindingType {
	compact := strings.ReplaceAll(addressSpace, " ", "")
	switch compact {
	case "storage,read_write":
		return wgpu.BufferBindingTypeStorage
	case "storage", "storage,read":
		return wgpu.BufferBindingTypeReadOnlyStorage
	default:
		return wgpu.BufferBindingTypeUniform
	}
}
