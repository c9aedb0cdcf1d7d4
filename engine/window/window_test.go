package window

import (
	"testing"
	"time"
)

// A closed window never touches GLFW, so these run without a display.
func TestClosedWindow(t *testing.T) {
	w := &engineWindow{title: "closed", width: 32, height: 16}
	ran := false
	w.ScheduleNextFrame(func(time.Duration) { ran = true })

	if w.IsRunning() {
		t.Error("closed window reports running")
	}
	if w.Pump() {
		t.Error("Pump on a closed window returned true")
	}
	if ran {
		t.Error("frame ran on a closed window")
	}
	if w.SurfaceDescriptor() != nil {
		t.Error("closed window has a surface descriptor")
	}
	if err := w.Close(); err == nil {
		t.Error("Close on a closed window succeeded")
	}
	if w.pending != nil {
		t.Error("Close kept the pending frame")
	}
}

func TestBuilderOptions(t *testing.T) {
	w := &engineWindow{}
	for _, opt := range []WindowBuilderOption{WithTitle("bend"), WithWidth(640), WithHeight(480)} {
		opt(w)
	}
	if w.title != "bend" || w.Width() != 640 || w.Height() != 480 {
		t.Errorf("window = %q %dx%d", w.title, w.Width(), w.Height())
	}
}
