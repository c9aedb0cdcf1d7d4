package window

import (
	"time"

	"github.com/Carmen-Shannon/oxy-flex/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window hosts the GPU surface and is the interactive FramePump: a scheduled frame runs on the
// next Pump after pending events are handled, stamped with the host clock.
type Window interface {
	renderer.FramePump

	// SetResizeCallback registers the handler for framebuffer size changes. Minimizing does not
	// call it.
	//
	// Parameters:
	//   - callback: receives the new size in pixels
	SetResizeCallback(callback func(width, height int))

	// SurfaceDescriptor describes the native window for wgpu.Instance.CreateSurface.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil once the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is open and no close was requested.
	IsRunning() bool

	// Close destroys the window.
	//
	// Returns:
	//   - error: error if the window was already closed
	Close() error

	// Width and Height are the framebuffer size in pixels, which on high-DPI displays differs
	// from the size asked for.
	Width() int
	Height() int
}

type engineWindow struct {
	title         string
	width, height int

	// nil once closed
	handle *glfw.Window

	onResize func(width, height int)
	pending  renderer.FrameCallback
}

var _ Window = &engineWindow{}

// NewWindow opens a window, 800x600 and titled "oxy-flex" unless options say otherwise. It must be
// called from the goroutine that will Pump it.
//
// Parameters:
//   - options: overrides such as WithTitle
//
// Returns:
//   - Window: the open window
//   - error: error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{title: "oxy-flex", width: 800, height: 600}
	for _, opt := range options {
		opt(w)
	}
	if err := openPlatformWindow(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) ScheduleNextFrame(callback renderer.FrameCallback) {
	w.pending = callback
}

func (w *engineWindow) Pump() bool {
	pollPlatformEvents(w)
	if !w.IsRunning() {
		return false
	}
	if callback := w.pending; callback != nil {
		w.pending = nil
		callback(time.Duration(platformClock() * float64(time.Second)))
	}
	return w.IsRunning()
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformOpen(w)
}

func (w *engineWindow) Close() error {
	w.pending = nil
	return closePlatformWindow(w)
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
