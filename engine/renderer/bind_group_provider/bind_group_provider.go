package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

type bindGroupProvider struct {
	label string
	index int

	layout  *wgpu.BindGroupLayout
	group   *wgpu.BindGroup
	buffers map[int]*wgpu.Buffer
}

// BindGroupProvider holds the GPU side of one @group of a compiled program. The renderer fills
// it in through the Set methods when the program is compiled, stages uniform data against it as
// BufferWrite values, and binds it at Group() for every draw. Getters return nil before then.
type BindGroupProvider interface {
	// Label names the GPU objects created for the group.
	Label() string

	// Group is the @group index.
	Group() int

	BindGroup() *wgpu.BindGroup
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer backing a binding.
	//
	// Parameters:
	//   - binding: the @binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer, or nil if none was created
	Buffer(binding int) *wgpu.Buffer

	SetBindGroup(group *wgpu.BindGroup)
	SetBindGroupLayout(layout *wgpu.BindGroupLayout)
	SetBuffer(binding int, buf *wgpu.Buffer)

	// Release frees the buffers, then the group and its layout.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider for one group. Its GPU objects are created by
// the renderer when the owning program is compiled.
//
// Parameters:
//   - label: the debug label for GPU objects created for this provider
//   - group: the @group index the provider binds at
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, group int) BindGroupProvider {
	return &bindGroupProvider{
		label:   label,
		index:   group,
		buffers: make(map[int]*wgpu.Buffer),
	}
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Group() int {
	return p.index
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.group
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.layout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) SetBindGroup(group *wgpu.BindGroup) {
	p.group = group
}

func (p *bindGroupProvider) SetBindGroupLayout(layout *wgpu.BindGroupLayout) {
	p.layout = layout
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	if buf == nil {
		delete(p.buffers, binding)
		return
	}
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) Release() {
	for binding, buf := range p.buffers {
		buf.Release()
		delete(p.buffers, binding)
	}
	if p.group != nil {
		p.group.Release()
		p.group = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
}
