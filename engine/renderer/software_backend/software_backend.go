package software_backend

import (
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
	"time"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/Carmen-Shannon/oxy-flex/engine/mesh"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-flex/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-flex/engine/skinning"
	"github.com/HugoSmits86/nativewebp"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// errContextLost is the cause carried by every DeviceLostError after Lose or Release.
var errContextLost = errors.New("context lost")

// FrameSink receives each resolved frame after a draw.
type FrameSink func(frame int, img *image.NRGBA) error

type program struct {
	vertex, fragment *shader.Reflection
	jointCount       int

	// uniforms are the resolved uniform slots; a uniform location is an index into this slice.
	uniforms []shader.UniformSlot
}

type cpuBuffer struct {
	kind renderer.BufferKind
	data []byte
}

// slotKey addresses one matrix in the emulated uniform memory.
type slotKey struct {
	group, binding int
	offset         uint64
}

type binding struct {
	buffer     renderer.BufferHandle
	components int
}

type softwareBackend struct {
	width, height int
	supersample   int
	clearColor    [4]uint8
	frameRate     float64
	validate      bool
	skinner       skinning.Skinner
	sink          FrameSink

	programs    map[renderer.ProgramHandle]*program
	current     *program
	nextProgram renderer.ProgramHandle

	buffers    map[renderer.BufferHandle]*cpuBuffer
	nextBuffer renderer.BufferHandle

	bindings map[int]binding
	uniforms map[slotKey]mgl32.Mat4

	// cached is the mesh rebuilt from the bound buffers; it is dropped whenever a binding changes.
	cached      mesh.Mesh
	cachedIndex renderer.BufferHandle
	cachedCount int
	clip        []mgl32.Vec4

	fb        *frameBuffer
	lastFrame *image.NRGBA
	frames    int

	pending    renderer.FrameCallback
	frameIndex int

	lost bool
}

// SoftwareBackend is a GraphicsBackend that evaluates the skinning program on the CPU and
// rasterizes into an image. It is its own frame pump: each Pump runs the pending frame with a
// timestamp derived from the configured frame rate, so runs are deterministic.
//
// Only programs that follow the skinning naming contract can be compiled, because the vertex stage
// is evaluated natively instead of interpreted.
type SoftwareBackend interface {
	renderer.GraphicsBackend
	renderer.FramePump

	// LastFrame returns the most recently resolved frame.
	//
	// Returns:
	//   - *image.NRGBA: the frame, or nil before the first draw
	LastFrame() *image.NRGBA

	// Frames returns the number of frames drawn.
	//
	// Returns:
	//   - int: the frame count
	Frames() int

	// WriteWebP encodes the last frame as lossless WebP.
	//
	// Parameters:
	//   - w: the destination writer
	//
	// Returns:
	//   - error: an error if no frame was drawn or encoding fails
	WriteWebP(w io.Writer) error

	// Lose simulates losing the device: every later call fails with a *common.DeviceLostError.
	Lose()
}

var _ SoftwareBackend = &softwareBackend{}

// NewBackend creates a software backend rendering width x height frames.
//
// Parameters:
//   - width: the output width in pixels
//   - height: the output height in pixels
//   - options: functional options such as WithSupersample
//
// Returns:
//   - SoftwareBackend: the backend
//   - error: an error if the size or an option value is invalid
func NewBackend(width, height int, options ...BackendOption) (SoftwareBackend, error) {
	b := &softwareBackend{
		width:       width,
		height:      height,
		supersample: 1,
		clearColor:  [4]uint8{0, 0, 0, 255},
		frameRate:   60,
		programs:    make(map[renderer.ProgramHandle]*program),
		buffers:     make(map[renderer.BufferHandle]*cpuBuffer),
		bindings:    make(map[int]binding),
		uniforms:    make(map[slotKey]mgl32.Mat4),
	}
	for _, option := range options {
		option(b)
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("frame size must be positive, got %dx%d", width, height)
	}
	if b.supersample < 1 {
		return nil, errors.Errorf("supersample factor must be at least 1, got %d", b.supersample)
	}
	if !(b.frameRate > 0) {
		return nil, errors.Errorf("frame rate must be positive, got %v", b.frameRate)
	}
	if b.skinner == nil {
		b.skinner = skinning.NewSkinner()
	}
	b.fb = newFrameBuffer(width*b.supersample, height*b.supersample)
	return b, nil
}

func (b *softwareBackend) CompileProgram(vertexSource, fragmentSource string) (renderer.ProgramHandle, error) {
	if b.lost {
		return 0, &common.DeviceLostError{Op: "compile program", Err: errContextLost}
	}
	if b.validate {
		if err := shader.Validate(vertexSource, shader.StageVertex); err != nil {
			return 0, err
		}
		if err := shader.Validate(fragmentSource, shader.StageFragment); err != nil {
			return 0, err
		}
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
	jointCount, err := checkSkinningContract(vs)
	if err != nil {
		return 0, err
	}

	b.nextProgram++
	prog := &program{vertex: vs, fragment: fs, jointCount: jointCount}
	b.programs[b.nextProgram] = prog
	b.current = prog
	b.invalidate()
	return b.nextProgram, nil
}

// checkSkinningContract verifies that the vertex stage declares the attributes and uniforms the
// CPU evaluator reads.
func checkSkinningContract(vs *shader.Reflection) (int, error) {
	attributes := []struct {
		name       string
		components int
	}{
		{mesh.AttributePosition, 3},
		{mesh.AttributeJointIndex, mesh.MaxInfluences},
		{mesh.AttributeWeight, mesh.MaxInfluences},
	}
	for _, want := range attributes {
		attr, ok := vs.Attribute(want.name)
		if !ok || attr.Components != want.components || attr.TypeName[len(attr.TypeName)-1] != 'f' {
			return 0, &common.LinkError{Diagnostic: fmt.Sprintf("software backend requires float attribute %s with %d components", want.name, want.components)}
		}
	}
	mvp, ok := vs.Uniform(skinning.UniformMVP)
	if !ok || mvp.TypeName != "mat4x4f" {
		return 0, &common.LinkError{Diagnostic: fmt.Sprintf("software backend requires uniform %s of type mat4x4f", skinning.UniformMVP)}
	}
	for _, u := range vs.Uniforms {
		if u.Name == skinning.UniformJointMatrix && u.ArrayLength > 0 && u.TypeName == fmt.Sprintf("array<mat4x4f,%d>", u.ArrayLength) {
			return u.ArrayLength, nil
		}
	}
	return 0, &common.LinkError{Diagnostic: fmt.Sprintf("software backend requires uniform %s of type array<mat4x4f, N>", skinning.UniformJointMatrix)}
}

func (b *softwareBackend) AttributeLocation(handle renderer.ProgramHandle, name string) (int, error) {
	prog, ok := b.programs[handle]
	if !ok {
		return 0, errors.Wrapf(common.ErrInvalidHandle, "program %d", handle)
	}
	attr, ok := prog.vertex.Attribute(name)
	if !ok {
		return 0, errors.Wrapf(common.ErrUnknownAttribute, "%q", name)
	}
	return attr.Location, nil
}

func (b *softwareBackend) UniformLocation(handle renderer.ProgramHandle, name string) (int, error) {
	prog, ok := b.programs[handle]
	if !ok {
		return 0, errors.Wrapf(common.ErrInvalidHandle, "program %d", handle)
	}
	slot, ok := prog.vertex.Uniform(name)
	if !ok {
		slot, ok = prog.fragment.Uniform(name)
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

func (b *softwareBackend) CreateBuffer(kind renderer.BufferKind, data []byte) (renderer.BufferHandle, error) {
	if b.lost {
		return 0, &common.DeviceLostError{Op: "create buffer", Err: errContextLost}
	}
	switch kind {
	case renderer.BufferKindVertex, renderer.BufferKindIndex:
	default:
		return 0, errors.Errorf("unsupported buffer kind %d", kind)
	}
	b.nextBuffer++
	b.buffers[b.nextBuffer] = &cpuBuffer{kind: kind, data: append([]byte(nil), data...)}
	return b.nextBuffer, nil
}

func (b *softwareBackend) BindVertexAttribute(buffer renderer.BufferHandle, location, componentCount int) error {
	if b.lost {
		return &common.DeviceLostError{Op: "bind vertex attribute", Err: errContextLost}
	}
	if b.current == nil {
		return errors.New("no current program")
	}
	buf, ok := b.buffers[buffer]
	if !ok || buf.kind != renderer.BufferKindVertex {
		return errors.Wrapf(common.ErrInvalidHandle, "vertex buffer %d", buffer)
	}
	for _, attr := range b.current.vertex.Attributes {
		if attr.Location != location {
			continue
		}
		if attr.Components != componentCount {
			return errors.Errorf("attribute %q has %d components, bound with %d", attr.Name, attr.Components, componentCount)
		}
		b.bindings[location] = binding{buffer: buffer, components: componentCount}
		b.invalidate()
		return nil
	}
	return errors.Wrapf(common.ErrUnknownAttribute, "location %d", location)
}

func (b *softwareBackend) SetUniformMatrix(location int, m mgl32.Mat4) error {
	if b.lost {
		return &common.DeviceLostError{Op: "set uniform", Err: errContextLost}
	}
	if b.current == nil {
		return errors.New("no current program")
	}
	if location < 0 || location >= len(b.current.uniforms) {
		return errors.Wrapf(common.ErrUnknownUniform, "location %d", location)
	}
	slot := b.current.uniforms[location]
	if slot.TypeName != "mat4x4f" {
		return errors.Errorf("uniform %q is %s, not a 4x4 matrix", slot.Name, slot.TypeName)
	}
	b.uniforms[slotKey{slot.Group, slot.Binding, slot.Offset}] = m
	return nil
}

func (b *softwareBackend) SubmitDraw(indexBuffer renderer.BufferHandle, primitiveCount int) error {
	if b.lost {
		return &common.DeviceLostError{Op: "submit draw", Err: errContextLost}
	}
	if b.current == nil {
		return errors.New("no current program")
	}
	if primitiveCount < 0 {
		return errors.Errorf("negative triangle count %d", primitiveCount)
	}
	m, err := b.boundMesh(indexBuffer, primitiveCount)
	if err != nil {
		return err
	}

	mvp := b.matrix(skinning.UniformMVP)
	pose := make(skeleton.Pose, b.current.jointCount)
	for i := range pose {
		pose[i] = b.matrix(skinning.JointUniformName(i))
	}
	if cap(b.clip) < m.VertexCount() {
		b.clip = make([]mgl32.Vec4, m.VertexCount())
	}
	clip := b.clip[:m.VertexCount()]
	if err := b.skinner.Skin(m, pose, &mvp, clip); err != nil {
		return errors.Wrap(err, "skin")
	}

	b.fb.clear(b.clearColor)
	for _, tri := range m.Triangles() {
		var sv [3]screenVertex
		visible := true
		for k, vi := range tri {
			var ok bool
			sv[k], ok = toScreen(clip[vi], m.Vertex(int(vi)).Weights[1], b.fb.width, b.fb.height)
			visible = visible && ok
		}
		// triangles touching the eye plane are dropped rather than clipped
		if !visible {
			continue
		}
		rasterizeTriangle(b.fb, sv[0], sv[1], sv[2], skinning.RootColor, skinning.TipColor)
	}

	b.lastFrame = resolve(b.fb, b.width, b.height)
	b.frames++
	if b.sink != nil {
		if err := b.sink(b.frames-1, b.lastFrame); err != nil {
			return errors.Wrapf(err, "frame sink at frame %d", b.frames-1)
		}
	}
	return nil
}

// matrix reads a matrix uniform of the current program. Unwritten uniforms read as zero, like
// freshly allocated device memory.
func (b *softwareBackend) matrix(name string) mgl32.Mat4 {
	slot, ok := b.current.vertex.Uniform(name)
	if !ok {
		return mgl32.Mat4{}
	}
	return b.uniforms[slotKey{slot.Group, slot.Binding, slot.Offset}]
}

// boundMesh rebuilds a validated mesh from the bound attribute buffers and the index buffer.
// The result is cached until a binding or the draw range changes.
func (b *softwareBackend) boundMesh(indexBuffer renderer.BufferHandle, primitiveCount int) (mesh.Mesh, error) {
	if b.cached != nil && b.cachedIndex == indexBuffer && b.cachedCount == primitiveCount {
		return b.cached, nil
	}
	ib, ok := b.buffers[indexBuffer]
	if !ok || ib.kind != renderer.BufferKindIndex {
		return nil, errors.Wrapf(common.ErrInvalidHandle, "index buffer %d", indexBuffer)
	}
	if primitiveCount*3*4 > len(ib.data) {
		return nil, errors.Errorf("%d triangles exceed index buffer of %d bytes", primitiveCount, len(ib.data))
	}
	indices := make([]uint32, primitiveCount*3)
	for i := range indices {
		indices[i] = binary.LittleEndian.Uint32(ib.data[i*4:])
	}

	positions, err := b.attribute(mesh.AttributePosition)
	if err != nil {
		return nil, err
	}
	joints, err := b.attribute(mesh.AttributeJointIndex)
	if err != nil {
		return nil, err
	}
	weights, err := b.attribute(mesh.AttributeWeight)
	if err != nil {
		return nil, err
	}
	n := min(len(positions)/3, len(joints)/mesh.MaxInfluences, len(weights)/mesh.MaxInfluences)

	p := make([][3]float32, n)
	j := make([][mesh.MaxInfluences]uint32, n)
	w := make([][mesh.MaxInfluences]float32, n)
	for i := 0; i < n; i++ {
		copy(p[i][:], positions[i*3:i*3+3])
		for k := 0; k < mesh.MaxInfluences; k++ {
			ji := joints[i*mesh.MaxInfluences+k]
			if ji < 0 || math.IsNaN(float64(ji)) {
				// out of range on purpose so validation reports it
				ji = float32(b.current.jointCount)
			}
			j[i][k] = uint32(math.Round(float64(ji)))
			w[i][k] = weights[i*mesh.MaxInfluences+k]
		}
	}

	m, err := mesh.Load(p, indices, j, w, mesh.WithJointCount(b.current.jointCount), mesh.WithLabel("bound attributes"))
	if err != nil {
		return nil, err
	}
	b.cached, b.cachedIndex, b.cachedCount = m, indexBuffer, primitiveCount
	return m, nil
}

// attribute decodes the float32 buffer bound to the named attribute of the current program.
func (b *softwareBackend) attribute(name string) ([]float32, error) {
	attr, ok := b.current.vertex.Attribute(name)
	if !ok {
		return nil, errors.Wrapf(common.ErrUnknownAttribute, "%q", name)
	}
	bound, ok := b.bindings[attr.Location]
	if !ok {
		return nil, errors.Errorf("attribute %q has no bound buffer", name)
	}
	buf, ok := b.buffers[bound.buffer]
	if !ok {
		return nil, errors.Wrapf(common.ErrInvalidHandle, "vertex buffer %d", bound.buffer)
	}
	out := make([]float32, len(buf.data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf.data[i*4:]))
	}
	return out, nil
}

func (b *softwareBackend) invalidate() {
	b.cached = nil
}

func (b *softwareBackend) ScheduleNextFrame(callback renderer.FrameCallback) {
	b.pending = callback
}

func (b *softwareBackend) Pump() bool {
	if b.pending == nil {
		return false
	}
	callback := b.pending
	b.pending = nil
	now := time.Duration(float64(b.frameIndex) / b.frameRate * float64(time.Second))
	b.frameIndex++
	callback(now)
	return true
}

func (b *softwareBackend) LastFrame() *image.NRGBA {
	return b.lastFrame
}

func (b *softwareBackend) Frames() int {
	return b.frames
}

func (b *softwareBackend) WriteWebP(w io.Writer) error {
	if b.lastFrame == nil {
		return errors.New("no frame has been drawn")
	}
	if err := nativewebp.Encode(w, b.lastFrame, nil); err != nil {
		return errors.Wrap(err, "webp encode")
	}
	return nil
}

func (b *softwareBackend) Lose() {
	b.lost = true
}

func (b *softwareBackend) Release() {
	b.lost = true
	b.pending = nil
	b.programs = make(map[renderer.ProgramHandle]*program)
	b.buffers = make(map[renderer.BufferHandle]*cpuBuffer)
	b.current = nil
	b.cached = nil
}
