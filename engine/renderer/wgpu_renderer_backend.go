package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

const depthFormat = wgpu.TextureFormatDepth24Plus

// inFlightFrame is the GPU state between BeginFrame and Present.
type inFlightFrame struct {
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (f *inFlightFrame) release() {
	if f.encoder != nil {
		f.encoder.Release()
	}
	if f.view != nil {
		f.view.Release()
	}
	if f.texture != nil {
		f.texture.Release()
	}
}

type wgpuRendererBackendImpl struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	format      wgpu.TextureFormat
	configured  bool
	presentMode wgpu.PresentMode
	samples     MSAASampleCount
	clearColor  wgpu.Color

	// multisampled colour target, nil without MSAA
	colorView *wgpu.TextureView
	depthView *wgpu.TextureView

	frame *inFlightFrame
}

// wgpuRendererBackend wraps one WebGPU device and the surface it presents to. The renderer calls
// it with handles it has already validated.
type wgpuRendererBackend interface {
	// ConfigureSurface sizes the swapchain and recreates the colour and depth attachments.
	//
	// Parameters:
	//   - width, height: the surface size in pixels
	//
	// Returns:
	//   - error: error if an attachment could not be created
	ConfigureSurface(width, height int) error

	// SetPresentMode takes effect at the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// SetClearColor sets what the frame is cleared to before the draw.
	SetClearColor(c wgpu.Color)

	// RegisterRenderPipeline compiles both stages of p and creates its GPU pipeline against the
	// layouts held by providers, keyed by group index.
	//
	// Parameters:
	//   - p: the pipeline description
	//   - providers: the program's initialized bind group providers
	//
	// Returns:
	//   - error: *common.ShaderCompileError for a stage, *common.LinkError for the pipeline
	RegisterRenderPipeline(p pipeline.Pipeline, providers map[int]bind_group_provider.BindGroupProvider) error

	// CreateBuffer allocates a buffer padded to 4 bytes and fills it with data.
	//
	// Parameters:
	//   - label: the debug label
	//   - usage: the usage; CopyDst is added
	//   - data: the initial contents
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: error if allocation fails
	CreateBuffer(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error)

	// InitBindGroup gives provider a layout, one buffer per entry of descriptor, and the bind
	// group joining them. Objects the provider already holds are reused.
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// WriteBuffers queues the writes; writes to unallocated bindings are dropped.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the next surface texture and opens the render pass.
	BeginFrame() error

	// DrawCall records one indexed draw into the open pass.
	DrawCall(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider, vertexBuffers []*wgpu.Buffer, indexBuffer *wgpu.Buffer, indexCount uint32)

	// EndFrame closes the pass and submits it.
	EndFrame() error

	// Present shows the frame opened by BeginFrame.
	Present()

	// Release frees everything, attachments first and the instance last.
	Release()
}

var _ wgpuRendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, samples MSAASampleCount) (wgpuRendererBackend, error) {
	// surface calls must stay on the thread that owns the window
	runtime.LockOSThread()

	b := &wgpuRendererBackendImpl{
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		samples:     samples,
		clearColor:  wgpu.Color{A: 1},
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	var err error
	b.adapter, err = b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, errors.Wrap(err, "request adapter")
	}
	b.device, err = b.adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "Skinning Device"})
	if err != nil {
		b.Release()
		return nil, errors.Wrap(err, "request device")
	}
	b.queue = b.device.GetQueue()
	return b, nil
}

// attachment creates a single-mip 2D render target and returns its default view.
func (b *wgpuRendererBackendImpl) attachment(label string, format wgpu.TextureFormat, width, height int) (*wgpu.TextureView, error) {
	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   uint32(b.samples),
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", label)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, errors.Wrapf(err, "view %s", label)
	}
	return view, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		return errors.New("surface reports no formats")
	}
	b.format = capabilities.Formats[0]
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.configured = true

	drop(&b.colorView)
	drop(&b.depthView)

	var err error
	if b.samples > 1 {
		// resolved into the swapchain texture at the end of the pass
		if b.colorView, err = b.attachment("Multisampled Colour", b.format, width, height); err != nil {
			return err
		}
	}
	b.depthView, err = b.attachment("Depth", depthFormat, width, height)
	return err
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if mode == PresentModeVSync {
		b.presentMode = wgpu.PresentModeFifo
	} else {
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) SetClearColor(c wgpu.Color) {
	b.mu.Lock()
	b.clearColor = c
	b.mu.Unlock()
}

func (b *wgpuRendererBackendImpl) shaderModule(label string, stage *shader.Reflection) (*wgpu.ShaderModule, error) {
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label + " " + stage.Stage.String(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: stage.Source},
	})
	if err != nil {
		return nil, &common.ShaderCompileError{Stage: stage.Stage.String(), Diagnostic: err.Error()}
	}
	return module, nil
}

// groupLayouts lists one layout per group up to the highest used index. Gaps get an empty layout
// because WebGPU pipeline layouts cannot skip a group.
func (b *wgpuRendererBackendImpl) groupLayouts(label string, providers map[int]bind_group_provider.BindGroupProvider) ([]*wgpu.BindGroupLayout, error) {
	count := 0
	for group := range providers {
		count = max(count, group+1)
	}
	layouts := make([]*wgpu.BindGroupLayout, count)
	for group := range layouts {
		if provider, ok := providers[group]; ok && provider.BindGroupLayout() != nil {
			layouts[group] = provider.BindGroupLayout()
			continue
		}
		empty, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label: fmt.Sprintf("%s Unused Group %d", label, group),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "placeholder layout for group %d", group)
		}
		layouts[group] = empty
	}
	return layouts, nil
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline, providers map[int]bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vertex, fragment := p.Vertex(), p.Fragment()
	if vertex == nil || fragment == nil {
		return &common.LinkError{Diagnostic: "a render pipeline needs a vertex and a fragment stage"}
	}
	if !b.configured {
		return &common.LinkError{Diagnostic: "surface format unknown until the surface is configured"}
	}

	vs, err := b.shaderModule(p.Label(), vertex)
	if err != nil {
		return err
	}
	defer vs.Release()
	fs, err := b.shaderModule(p.Label(), fragment)
	if err != nil {
		return err
	}
	defer fs.Release()

	layouts, err := b.groupLayouts(p.Label(), providers)
	if err != nil {
		return err
	}
	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.Label(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return &common.LinkError{Diagnostic: err.Error()}
	}

	state := p.State()
	compare := wgpu.CompareFunctionAlways
	if state.DepthTest {
		compare = wgpu.CompareFunctionLess
	}
	stencil := wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.Label(),
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertex.EntryPoint,
			Buffers:    p.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragment.EntryPoint,
			Targets:    []wgpu.ColorTargetState{{Format: b.format, WriteMask: wgpu.ColorWriteMaskAll}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  state.Topology,
			FrontFace: state.FrontFace,
			CullMode:  state.CullMode,
		},
		Multisample: wgpu.MultisampleState{Count: uint32(b.samples), Mask: 0xFFFFFFFF},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: state.DepthWrite,
			DepthCompare:      compare,
			StencilFront:      stencil,
			StencilBack:       stencil,
		},
	})
	if err != nil {
		return &common.LinkError{Diagnostic: err.Error()}
	}
	p.SetRenderPipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// queue writes must be 4-byte multiples
	size := (len(data) + 3) &^ 3
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	if size > 0 {
		if size != len(data) {
			data = append(append(make([]byte, 0, size), data...), make([]byte, size-len(data))...)
		}
		b.queue.WriteBuffer(buf, 0, data)
	}
	return buf, nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if provider.BindGroupLayout() == nil {
		layout, err := b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return errors.Wrapf(err, "layout for %s", provider.Label())
		}
		provider.SetBindGroupLayout(layout)
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(descriptor.Entries))
	for _, entry := range descriptor.Entries {
		binding := int(entry.Binding)
		buf := provider.Buffer(binding)
		if buf == nil {
			usage := wgpu.BufferUsageUniform
			if t := entry.Buffer.Type; t == wgpu.BufferBindingTypeStorage || t == wgpu.BufferBindingTypeReadOnlyStorage {
				usage = wgpu.BufferUsageStorage
			}
			var err error
			buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: fmt.Sprintf("%s binding %d", provider.Label(), binding),
				Size:  entry.Buffer.MinBindingSize,
				Usage: usage | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return errors.Wrapf(err, "buffer for %s binding %d", provider.Label(), binding)
			}
			provider.SetBuffer(binding, buf)
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: entry.Binding, Buffer: buf, Size: wgpu.WholeSize})
	}

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label(),
		Layout:  provider.BindGroupLayout(),
		Entries: entries,
	})
	if err != nil {
		return errors.Wrapf(err, "bind group for %s", provider.Label())
	}
	provider.SetBindGroup(group)
	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		if buf := w.Provider.Buffer(w.Binding); buf != nil {
			b.queue.WriteBuffer(buf, w.Offset, w.Data)
		}
	}
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.frame != nil:
		return errors.New("previous frame was not presented")
	case !b.configured:
		return errors.New("surface not configured")
	}

	f := &inFlightFrame{}
	var err error
	if f.texture, err = b.surface.GetCurrentTexture(); err != nil {
		return errors.Wrap(err, "acquire surface texture")
	}
	if f.view, err = f.texture.CreateView(nil); err != nil {
		f.release()
		return errors.Wrap(err, "view surface texture")
	}
	if f.encoder, err = b.device.CreateCommandEncoder(nil); err != nil {
		f.release()
		return errors.Wrap(err, "create command encoder")
	}

	color := wgpu.RenderPassColorAttachment{
		View:       f.view,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: b.clearColor,
	}
	if b.colorView != nil {
		// the multisampled target is only needed until it is resolved
		color.View, color.ResolveTarget, color.StoreOp = b.colorView, f.view, wgpu.StoreOpDiscard
	}
	f.pass = f.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1,
		},
	})
	b.frame = f
	return nil
}

func (b *wgpuRendererBackendImpl) DrawCall(
	p pipeline.Pipeline,
	bindGroups []bind_group_provider.BindGroupProvider,
	vertexBuffers []*wgpu.Buffer,
	indexBuffer *wgpu.Buffer,
	indexCount uint32,
) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pass := b.frame.pass
	pass.SetPipeline(p.RenderPipeline())
	for _, provider := range bindGroups {
		pass.SetBindGroup(uint32(provider.Group()), provider.BindGroup(), nil)
	}
	for slot, buf := range vertexBuffers {
		pass.SetVertexBuffer(uint32(slot), buf, 0, wgpu.WholeSize)
	}
	pass.SetIndexBuffer(indexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(indexCount, 1, 0, 0, 0)
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	f := b.frame
	f.pass.End()
	f.pass = nil
	commands, err := f.encoder.Finish(nil)
	if err != nil {
		f.release()
		b.frame = nil
		return errors.Wrap(err, "finish command buffer")
	}
	b.queue.Submit(commands)
	commands.Release()
	f.encoder.Release()
	f.encoder = nil
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame == nil {
		return
	}
	b.surface.Present()
	b.frame.release()
	b.frame = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame != nil {
		b.frame.release()
		b.frame = nil
	}
	drop(&b.colorView)
	drop(&b.depthView)
	drop(&b.queue)
	drop(&b.device)
	drop(&b.surface)
	drop(&b.adapter)
	drop(&b.instance)
	b.configured = false
}

// drop releases the handle *h points to, if any, and clears it.
func drop[T any, P interface {
	*T
	Release()
}](h *P) {
	if *h != nil {
		(*h).Release()
		*h = nil
	}
}
