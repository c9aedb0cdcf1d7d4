package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// program is a compiled program with its GPU pipeline, bind groups, and attribute bindings.
type program struct {
	pipeline  pipeline.Pipeline
	providers map[int]bind_group_provider.BindGroupProvider

	// uniforms are the resolved uniform slots; a uniform location is an index into this slice.
	uniforms []shader.UniformSlot

	// vertexBuffers are the bound attribute buffers, indexed by vertex buffer slot.
	vertexBuffers []*wgpu.Buffer
}

type gpuBuffer struct {
	buffer *wgpu.Buffer
	kind   BufferKind
	size   int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backend   wgpuRendererBackend
	scheduler FrameScheduler

	programs    map[ProgramHandle]*program
	current     *program
	nextProgram ProgramHandle

	buffers    map[BufferHandle]*gpuBuffer
	nextBuffer BufferHandle

	released bool

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	pendingClearColor    *wgpu.Color
}

// Renderer is the WebGPU GraphicsBackend. It draws into a window surface and delegates frame
// scheduling to the host that owns the surface.
//
// Programs are reflected before the GPU sees them, so attribute and uniform names resolve without a
// driver program object: every vertex attribute gets its own vertex buffer slot and every uniform
// resolves to a byte range of its group's uniform buffer.
type Renderer interface {
	GraphicsBackend

	// Resize reconfigures the surface for a new size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the surface attachments could not be recreated
	Resize(width, height int) error
}

var _ Renderer = &renderer{}

// NewRenderer creates the WebGPU device for a surface and configures it.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor, typically from wgpuglfw
//   - scheduler: the host frame scheduler, typically the window
//   - width: the initial surface width in pixels
//   - height: the initial surface height in pixels
//   - options: a variadic list of RendererBuilderOption functions
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if no adapter or device is available or the surface cannot be configured
func NewRenderer(surfaceDescriptor *wgpu.SurfaceDescriptor, scheduler FrameScheduler, width, height int, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:        &sync.Mutex{},
		scheduler: scheduler,
		programs:  make(map[ProgramHandle]*program),
		buffers:   make(map[BufferHandle]*gpuBuffer),
	}
	for _, option := range options {
		option(r)
	}

	sampleCount := MSAA4x
	if r.pendingMSAA != nil {
		sampleCount = *r.pendingMSAA
	}
	backend, err := newWGPURendererBackend(surfaceDescriptor, r.forceFallbackAdapter, sampleCount)
	if err != nil {
		return nil, err
	}
	r.backend = backend

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if r.pendingClearColor != nil {
		r.backend.SetClearColor(*r.pendingClearColor)
	}
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		r.backend.Release()
		return nil, err
	}
	return r, nil
}

func (r *renderer) CompileProgram(vertexSource, fragmentSource string) (ProgramHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return 0, common.AsDeviceLost("compile program", errors.New("renderer released"))
	}

	vs, err := shader.Reflect(vertexSource, shader.StageVertex)
	if err != nil {
		return 0, err
	}
	fs, err := shader.Reflect(fragmentSource, shader.StageFragment)
	if err != nil {
		return 0, err
	}
	if err := shader.Link(vs, fs); err != nil {
		return 0, err
	}

	r.nextProgram++
	handle := r.nextProgram
	label := fmt.Sprintf("Program %d", handle)
	prog := &program{
		pipeline: pipeline.NewPipeline(label,
			pipeline.WithStages(vs, fs),
			// a bent strip shows both faces
			pipeline.WithCullMode(wgpu.CullModeNone),
			pipeline.WithDepth(true, true),
		),
		providers:     make(map[int]bind_group_provider.BindGroupProvider),
		vertexBuffers: make([]*wgpu.Buffer, len(vs.Attributes)),
	}
	for g, descriptor := range prog.pipeline.BindGroupLayoutDescriptors() {
		provider := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("%s Group %d", label, g), g)
		if err := r.backend.InitBindGroup(provider, descriptor); err != nil {
			releaseProgram(prog)
			provider.Release()
			return 0, errors.Wrapf(err, "init bind group %d", g)
		}
		prog.providers[g] = provider
	}
	if err := r.backend.RegisterRenderPipeline(prog.pipeline, prog.providers); err != nil {
		releaseProgram(prog)
		return 0, err
	}

	r.programs[handle] = prog
	r.current = prog
	return handle, nil
}

func (r *renderer) AttributeLocation(handle ProgramHandle, name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prog, ok := r.programs[handle]
	if !ok {
		return 0, errors.Wrapf(common.ErrInvalidHandle, "program %d", handle)
	}
	attr, ok := prog.pipeline.Vertex().Attribute(name)
	if !ok {
		return 0, errors.Wrapf(common.ErrUnknownAttribute, "%q", name)
	}
	return attr.Location, nil
}

func (r *renderer) UniformLocation(handle ProgramHandle, name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prog, ok := r.programs[handle]
	if !ok {
		return 0, errors.Wrapf(common.ErrInvalidHandle, "program %d", handle)
	}
	slot, ok := prog.pipeline.Vertex().Uniform(name)
	if !ok {
		slot, ok = prog.pipeline.Fragment().Uniform(name)
	}
	if !ok {
		return 0, errors.Wrapf(common.ErrUnknownUniform, "%q", name)
	}
	for i, existing := range prog.uniforms {
		if existing == slot {
			return i, nil
		}
	}
	prog.uniforms = append(prog.uniforms, slot)
	return len(prog.uniforms) - 1, nil
}

func (r *renderer) CreateBuffer(kind BufferKind, data []byte) (BufferHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return 0, common.AsDeviceLost("create buffer", errors.New("renderer released"))
	}

	var usage wgpu.BufferUsage
	switch kind {
	case BufferKindVertex:
		usage = wgpu.BufferUsageVertex
	case BufferKindIndex:
		usage = wgpu.BufferUsageIndex
	default:
		return 0, errors.Errorf("unsupported buffer kind %d", kind)
	}

	r.nextBuffer++
	handle := r.nextBuffer
	buf, err := r.backend.CreateBuffer(fmt.Sprintf("%s Buffer %d", kind, handle), usage, data)
	if err != nil {
		return 0, common.AsDeviceLost("create buffer", err)
	}
	r.buffers[handle] = &gpuBuffer{buffer: buf, kind: kind, size: len(data)}
	return handle, nil
}

func (r *renderer) BindVertexAttribute(buffer BufferHandle, location, componentCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return errors.New("no current program")
	}
	buf, ok := r.buffers[buffer]
	if !ok || buf.kind != BufferKindVertex {
		return errors.Wrapf(common.ErrInvalidHandle, "vertex buffer %d", buffer)
	}
	slot, ok := r.current.pipeline.SlotForLocation(location)
	if !ok {
		return errors.Wrapf(common.ErrUnknownAttribute, "location %d", location)
	}
	if attr := r.current.pipeline.Vertex().Attributes[slot]; attr.Components != componentCount {
		return errors.Errorf("attribute %q has %d components, bound with %d", attr.Name, attr.Components, componentCount)
	}
	r.current.vertexBuffers[slot] = buf.buffer
	return nil
}

func (r *renderer) SetUniformMatrix(location int, m mgl32.Mat4) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return common.AsDeviceLost("set uniform", errors.New("renderer released"))
	}
	if r.current == nil {
		return errors.New("no current program")
	}
	if location < 0 || location >= len(r.current.uniforms) {
		return errors.Wrapf(common.ErrUnknownUniform, "location %d", location)
	}
	slot := r.current.uniforms[location]
	if slot.Size < 64 {
		return errors.Errorf("uniform %q is %s, not a 4x4 matrix", slot.Name, slot.TypeName)
	}
	provider, ok := r.current.providers[slot.Group]
	if !ok {
		return errors.Wrapf(common.ErrUnknownUniform, "group %d", slot.Group)
	}
	r.backend.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: provider,
		Binding:  slot.Binding,
		Offset:   slot.Offset,
		Data:     common.MatrixBytes(m),
	}})
	return nil
}

func (r *renderer) SubmitDraw(indexBuffer BufferHandle, primitiveCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return common.AsDeviceLost("submit draw", errors.New("renderer released"))
	}
	if r.current == nil {
		return errors.New("no current program")
	}
	if primitiveCount < 0 {
		return errors.Errorf("negative triangle count %d", primitiveCount)
	}
	buf, ok := r.buffers[indexBuffer]
	if !ok || buf.kind != BufferKindIndex {
		return errors.Wrapf(common.ErrInvalidHandle, "index buffer %d", indexBuffer)
	}
	if primitiveCount*3*4 > buf.size {
		return errors.Errorf("%d triangles exceed index buffer of %d bytes", primitiveCount, buf.size)
	}
	for slot, vb := range r.current.vertexBuffers {
		if vb == nil {
			return errors.Errorf("attribute %q has no bound buffer", r.current.pipeline.Vertex().Attributes[slot].Name)
		}
	}

	providers := make([]bind_group_provider.BindGroupProvider, 0, len(r.current.providers))
	for _, provider := range r.current.providers {
		providers = append(providers, provider)
	}

	if err := r.backend.BeginFrame(); err != nil {
		return common.AsDeviceLost("acquire surface texture", err)
	}
	r.backend.DrawCall(r.current.pipeline, providers, r.current.vertexBuffers, buf.buffer, uint32(primitiveCount*3))
	if err := r.backend.EndFrame(); err != nil {
		return common.AsDeviceLost("submit commands", err)
	}
	r.backend.Present()
	return nil
}

func (r *renderer) ScheduleNextFrame(callback FrameCallback) {
	r.scheduler.ScheduleNextFrame(callback)
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return nil
	}
	return r.backend.ConfigureSurface(width, height)
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return
	}
	r.released = true
	for handle, prog := range r.programs {
		releaseProgram(prog)
		delete(r.programs, handle)
	}
	r.current = nil
	for handle, buf := range r.buffers {
		buf.buffer.Release()
		delete(r.buffers, handle)
	}
	r.backend.Release()
}

func releaseProgram(prog *program) {
	prog.pipeline.Release()
	for _, provider := range prog.providers {
		provider.Release()
	}
}
