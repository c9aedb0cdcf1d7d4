package profiler

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"
)

func TestTickReportsFrameRate(t *testing.T) {
	var out bytes.Buffer
	p := NewProfiler(time.Second, log.New(&out, "", 0))

	frame := 40 * time.Millisecond
	var stats Stats
	reported := 0
	for i := 0; i <= 50; i++ {
		if s, ok := p.Tick(time.Duration(i) * frame); ok {
			stats = s
			reported++
		}
	}
	if reported != 2 {
		t.Fatalf("reported %d times, want 2", reported)
	}
	if stats.Frames != 25 || stats.FPS < 24.9 || stats.FPS > 25.1 {
		t.Errorf("stats = %+v, want 25 frames at 25 FPS", stats)
	}
	if !strings.Contains(out.String(), "[Profiler] FPS: 25.00") {
		t.Errorf("log output = %q", out.String())
	}
}

func TestTickFirstFrameOnlyStarts(t *testing.T) {
	p := NewProfiler(0, log.New(&bytes.Buffer{}, "", 0))
	if _, ok := p.Tick(10 * time.Second); ok {
		t.Error("first tick reported")
	}
	if _, ok := p.Tick(10*time.Second + 500*time.Millisecond); ok {
		t.Error("tick inside the default interval reported")
	}
	if _, ok := p.Tick(11 * time.Second); !ok {
		t.Error("tick at the interval did not report")
	}
}
