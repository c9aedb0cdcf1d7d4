package renderer

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4; higher values are adapter-dependent.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// ProgramHandle identifies a compiled and linked shader program owned by a backend.
type ProgramHandle uint32

// BufferHandle identifies a device buffer owned by a backend.
type BufferHandle uint32

// BufferKind selects what a buffer is bound as.
type BufferKind int

const (
	// BufferKindVertex holds tightly packed float32 vertex attribute data.
	BufferKindVertex BufferKind = iota

	// BufferKindIndex holds uint32 triangle indices.
	BufferKindIndex
)

func (k BufferKind) String() string {
	switch k {
	case BufferKindVertex:
		return "vertex"
	case BufferKindIndex:
		return "index"
	default:
		return "unknown"
	}
}

// FrameCallback is invoked once per display frame with the host's monotonic timestamp.
type FrameCallback func(now time.Duration)

// FrameScheduler arranges for a callback to run on the next display frame.
type FrameScheduler interface {
	// ScheduleNextFrame registers the callback for the next frame. Only the most recently
	// scheduled callback runs; it runs once.
	//
	// Parameters:
	//   - callback: the function to invoke with the frame timestamp
	ScheduleNextFrame(callback FrameCallback)
}

// FramePump is a FrameScheduler driven by its owner instead of a display.
type FramePump interface {
	FrameScheduler

	// Pump runs the pending frame callback, if any.
	//
	// Returns:
	//   - bool: true if a callback ran
	Pump() bool
}

// GraphicsBackend is the device-facing surface the render loop draws through.
// All methods are called from the scheduler's thread. Handles are only valid on the backend that
// created them. Any error other than a compile or link error is treated as fatal by callers.
type GraphicsBackend interface {
	FrameScheduler

	// CompileProgram compiles and links a vertex and fragment program and makes it current.
	//
	// Parameters:
	//   - vertexSource: the WGSL vertex stage source
	//   - fragmentSource: the WGSL fragment stage source
	//
	// Returns:
	//   - ProgramHandle: the linked program
	//   - error: a *common.ShaderCompileError or *common.LinkError on failure
	CompileProgram(vertexSource, fragmentSource string) (ProgramHandle, error)

	// AttributeLocation resolves a vertex attribute by name.
	//
	// Parameters:
	//   - program: the program to query
	//   - name: the attribute name, such as "position"
	//
	// Returns:
	//   - int: the attribute location
	//   - error: common.ErrUnknownAttribute if the program does not declare it
	AttributeLocation(program ProgramHandle, name string) (int, error)

	// UniformLocation resolves a uniform by name. Array elements are addressed as "name[i]".
	//
	// Parameters:
	//   - program: the program to query
	//   - name: the uniform name, such as "mvp" or "jointMatrix[1]"
	//
	// Returns:
	//   - int: an opaque uniform location for SetUniformMatrix
	//   - error: common.ErrUnknownUniform if the program does not declare it
	UniformLocation(program ProgramHandle, name string) (int, error)

	// CreateBuffer uploads data into a new device buffer.
	//
	// Parameters:
	//   - kind: whether the buffer holds vertex or index data
	//   - data: the little-endian buffer contents
	//
	// Returns:
	//   - BufferHandle: the created buffer
	//   - error: an error if the buffer could not be created
	CreateBuffer(kind BufferKind, data []byte) (BufferHandle, error)

	// BindVertexAttribute feeds a vertex buffer to an attribute location of the current program.
	//
	// Parameters:
	//   - buffer: a vertex buffer created by CreateBuffer
	//   - location: the attribute location from AttributeLocation
	//   - componentCount: float32 components per vertex
	//
	// Returns:
	//   - error: an error if the buffer or location is invalid
	BindVertexAttribute(buffer BufferHandle, location, componentCount int) error

	// SetUniformMatrix writes a 4x4 matrix uniform of the current program.
	//
	// Parameters:
	//   - location: the uniform location from UniformLocation
	//   - m: the column-major matrix
	//
	// Returns:
	//   - error: an error if the write fails
	SetUniformMatrix(location int, m mgl32.Mat4) error

	// SubmitDraw draws indexed triangles with the current program and bindings.
	//
	// Parameters:
	//   - indexBuffer: an index buffer created by CreateBuffer
	//   - primitiveCount: the number of triangles to draw
	//
	// Returns:
	//   - error: an error if the draw fails, typically a *common.DeviceLostError
	SubmitDraw(indexBuffer BufferHandle, primitiveCount int) error

	// Release frees every device resource held by the backend.
	Release()
}
