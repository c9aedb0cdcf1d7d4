package renderer

import (
	"strings"
	"sync"
	"testing"
)

func TestBuilderOptions(t *testing.T) {
	r := &renderer{}
	for _, opt := range []RendererBuilderOption{
		WithForceSoftwareRenderer(true),
		WithMSAA(MSAAOff),
		WithPresentMode(PresentModeUncapped),
		WithClearColor(0.1, 0.2, 0.3, 1),
	} {
		opt(r)
	}
	if !r.forceFallbackAdapter {
		t.Error("fallback adapter not requested")
	}
	if r.pendingMSAA == nil || *r.pendingMSAA != MSAAOff {
		t.Errorf("msaa = %v", r.pendingMSAA)
	}
	if r.pendingPresentMode == nil || *r.pendingPresentMode != PresentModeUncapped {
		t.Errorf("present mode = %v", r.pendingPresentMode)
	}
	if c := r.pendingClearColor; c == nil || c.G != 0.2 || c.A != 1 {
		t.Errorf("clear color = %+v", c)
	}
}

func TestSubmitDrawRejectsNegativeCount(t *testing.T) {
	r := &renderer{
		mu:      &sync.Mutex{},
		current: &program{},
		buffers: map[BufferHandle]*gpuBuffer{1: {kind: BufferKindIndex, size: 96}},
	}
	err := r.SubmitDraw(1, -1)
	if err == nil || !strings.Contains(err.Error(), "negative") {
		t.Errorf("SubmitDraw(-1) = %v", err)
	}
}
