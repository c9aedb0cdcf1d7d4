package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/Carmen-Shannon/oxy-flex/engine/config"
	"github.com/Carmen-Shannon/oxy-flex/engine/skeleton"
	"golang.org/x/image/webp"
)

func headlessConfig(t *testing.T, frames int) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Backend = config.BackendSoftware
	cfg.Window.Width, cfg.Window.Height = 48, 32
	cfg.Headless.Frames = &frames
	cfg.Headless.FPS = 10
	return cfg
}

func TestEngineHeadlessWritesFrames(t *testing.T) {
	cfg := headlessConfig(t, 3)
	cfg.Headless.OutputDir = filepath.Join(t.TempDir(), "frames")
	cfg.Workers = 2

	var times []time.Duration
	e, err := NewEngine(cfg, WithEngineFrameObserver(func(info FrameInfo) {
		times = append(times, info.Time)
	}))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()

	if e.Window() != nil {
		t.Error("headless engine opened a window")
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.Frames() != 3 {
		t.Errorf("frames = %d, want 3", e.Frames())
	}
	if len(times) != 3 || times[2] != 200*time.Millisecond {
		t.Errorf("frame times = %v", times)
	}

	for i := 0; i < 3; i++ {
		path := filepath.Join(cfg.Headless.OutputDir, fmt.Sprintf("frame_%04d.webp", i))
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		img, err := webp.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		if img.Bounds().Dx() != 48 || img.Bounds().Dy() != 32 {
			t.Errorf("%s bounds = %v", path, img.Bounds())
		}
	}

	if err := e.Run(context.Background()); !errors.Is(err, common.ErrLoopStarted) {
		t.Errorf("second Run = %v, want ErrLoopStarted", err)
	}
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cfg := headlessConfig(t, 1)
	cfg.Backend = "metal"
	var verr *common.ValidationError
	if _, err := NewEngine(cfg); !errors.As(err, &verr) {
		t.Errorf("NewEngine = %v, want ValidationError", err)
	}
}

func TestEngineInjectedBackendAndPose(t *testing.T) {
	cfg := headlessConfig(t, 2)
	backend := newRecordingBackend(time.Second)
	e, err := NewEngine(cfg, WithBackend(backend), WithPoseEvaluator(skeleton.NewRestPose(2)))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(backend.draws) != 2 {
		t.Errorf("draws = %d, want 2", len(backend.draws))
	}
	for _, m := range backend.matrices["jointMatrix[1]"] {
		if m != common.Identity() {
			t.Errorf("rest pose uploaded %v", m)
		}
	}
	if err := e.Close(); err != nil || backend.released {
		t.Errorf("Close = %v, released %v: an injected backend must not be released", err, backend.released)
	}
}

func TestEngineStopsOnCancel(t *testing.T) {
	cfg := headlessConfig(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	e, err := NewEngine(cfg, WithEngineFrameObserver(func(info FrameInfo) {
		if info.Index == 4 {
			cancel()
		}
	}))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.Frames() != 5 {
		t.Errorf("frames = %d, want 5", e.Frames())
	}
}
