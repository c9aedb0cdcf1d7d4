package window

import (
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
)

// openPlatformWindow opens a GLFW window without a client API and stores it on w.
// GLFW must be driven from the thread that created it, so the calling goroutine stays locked to
// its OS thread; every Pump has to happen on that goroutine.
//
// Reference: https://www.glfw.org/docs/latest/window_guide.html
func openPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "initialize GLFW")
	}

	// the surface is created by WebGPU, not by an OpenGL context
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	handle, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return errors.Wrap(err, "create GLFW window")
	}
	w.handle = handle

	handle.SetKeyCallback(func(win *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			win.SetShouldClose(true)
		}
	})

	// Framebuffer size, not window size: the two differ on high-DPI displays and the surface is
	// configured in pixels.
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if width == 0 || height == 0 {
			// minimized; a zero-sized surface cannot be configured
			return
		}
		w.width, w.height = width, height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})

	w.width, w.height = handle.GetFramebufferSize()
	return nil
}

// platformSurfaceDescriptor hands the native handle (Win32, X11, Wayland or Cocoa) to WebGPU.
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func platformSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	if w.handle == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.handle)
}

func platformOpen(w *engineWindow) bool {
	return w.handle != nil && !w.handle.ShouldClose()
}

func closePlatformWindow(w *engineWindow) error {
	if w.handle == nil {
		return errors.New("window is not open")
	}
	w.handle.Destroy()
	w.handle = nil
	glfw.Terminate()
	return nil
}

// pollPlatformEvents runs pending input and resize callbacks without blocking. GLFW is already
// terminated once the window is closed, so nothing is polled then.
func pollPlatformEvents(w *engineWindow) {
	if w.handle != nil {
		glfw.PollEvents()
	}
}

// platformClock returns seconds since GLFW was initialized.
func platformClock() float64 {
	return glfw.GetTime()
}
