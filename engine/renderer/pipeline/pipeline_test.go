package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-flex/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-flex/engine/skinning"
	"github.com/cogentcore/webgpu/wgpu"
)

func skinningPipeline(t *testing.T, jointCount int) Pipeline {
	t.Helper()
	vsrc, fsrc, err := skinning.ShaderSources(jointCount)
	if err != nil {
		t.Fatalf("ShaderSources: %v", err)
	}
	vs, err := shader.Reflect(vsrc, shader.StageVertex)
	if err != nil {
		t.Fatalf("Reflect vertex: %v", err)
	}
	fs, err := shader.Reflect(fsrc, shader.StageFragment)
	if err != nil {
		t.Fatalf("Reflect fragment: %v", err)
	}
	return NewPipeline("skinning", WithStages(vs, fs))
}

func TestVertexLayouts(t *testing.T) {
	p := skinningPipeline(t, 2)
	layouts := p.VertexLayouts()
	want := []struct {
		location uint32
		stride   uint64
		format   wgpu.VertexFormat
	}{
		{0, 12, wgpu.VertexFormatFloat32x3},
		{1, 16, wgpu.VertexFormatFloat32x4},
		{2, 16, wgpu.VertexFormatFloat32x4},
	}
	if len(layouts) != len(want) {
		t.Fatalf("got %d layouts, want %d", len(layouts), len(want))
	}
	for slot, w := range want {
		l := layouts[slot]
		if l.ArrayStride != w.stride || len(l.Attributes) != 1 {
			t.Errorf("slot %d: stride %d attributes %d", slot, l.ArrayStride, len(l.Attributes))
			continue
		}
		if l.Attributes[0].ShaderLocation != w.location || l.Attributes[0].Format != w.format {
			t.Errorf("slot %d: attribute %+v", slot, l.Attributes[0])
		}
		if got, ok := p.SlotForLocation(int(w.location)); !ok || got != slot {
			t.Errorf("SlotForLocation(%d) = %d, %v", w.location, got, ok)
		}
	}
	if _, ok := p.SlotForLocation(7); ok {
		t.Error("SlotForLocation(7) found a slot")
	}
}

func TestBindGroupLayoutDescriptors(t *testing.T) {
	p := skinningPipeline(t, 3)
	descriptors := p.BindGroupLayoutDescriptors()
	if len(descriptors) != 1 {
		t.Fatalf("got %d groups, want 1", len(descriptors))
	}
	entries := descriptors[0].Entries
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Binding != 0 || entries[0].Buffer.MinBindingSize != 64 {
		t.Errorf("mvp entry = %+v", entries[0])
	}
	if entries[1].Binding != 1 || entries[1].Buffer.MinBindingSize != 3*64 {
		t.Errorf("jointMatrix entry = %+v", entries[1])
	}
	for _, e := range entries {
		if e.Buffer.Type != wgpu.BufferBindingTypeUniform || e.Visibility&wgpu.ShaderStageVertex == 0 {
			t.Errorf("binding %d: type %v visibility %v", e.Binding, e.Buffer.Type, e.Visibility)
		}
	}
}

func TestBufferBindingType(t *testing.T) {
	tests := map[string]wgpu.BufferBindingType{
		"uniform":             wgpu.BufferBindingTypeUniform,
		"storage, read":       wgpu.BufferBindingTypeReadOnlyStorage,
		"storage,read_write":  wgpu.BufferBindingTypeStorage,
		"storage":             wgpu.BufferBindingTypeReadOnlyStorage,
		"storage, read_write": wgpu.BufferBindingTypeStorage,
	}
	for space, want := range tests {
		if got := bufferBindingType(space); got != want {
			t.Errorf("bufferBindingType(%q) = %v, want %v", space, got, want)
		}
	}
}

func TestRenderState(t *testing.T) {
	defaults := NewPipeline("default").State()
	want := RenderState{
		DepthTest:  true,
		DepthWrite: true,
		CullMode:   wgpu.CullModeBack,
		Topology:   wgpu.PrimitiveTopologyTriangleList,
		FrontFace:  wgpu.FrontFaceCCW,
	}
	if defaults != want {
		t.Errorf("default state = %+v, want %+v", defaults, want)
	}

	got := NewPipeline("overlay", WithCullMode(wgpu.CullModeNone), WithDepth(false, false)).State()
	want.DepthTest, want.DepthWrite, want.CullMode = false, false, wgpu.CullModeNone
	if got != want {
		t.Errorf("state = %+v, want %+v", got, want)
	}
}
