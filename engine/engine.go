package engine

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/Carmen-Shannon/oxy-flex/engine/camera"
	"github.com/Carmen-Shannon/oxy-flex/engine/config"
	"github.com/Carmen-Shannon/oxy-flex/engine/mesh"
	"github.com/Carmen-Shannon/oxy-flex/engine/profiler"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer/software_backend"
	"github.com/Carmen-Shannon/oxy-flex/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-flex/engine/skinning"
	"github.com/Carmen-Shannon/oxy-flex/engine/window"
	"github.com/HugoSmits86/nativewebp"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// engine implements the Engine interface.
type engine struct {
	cfg config.Config

	window      window.Window
	ownsWindow  bool
	backend     renderer.GraphicsBackend
	ownsBackend bool

	mesh   mesh.Mesh
	pose   skeleton.Evaluator
	camera camera.Camera

	profiler         *profiler.Profiler
	profilingEnabled bool
	observers        []func(FrameInfo)

	loop RenderLoop
}

// Engine is the main entry point. It wires the strip mesh, the pose evaluator, and the camera to a
// graphics backend and its host, and drives them with a RenderLoop.
type Engine interface {
	// Window returns the window hosting the surface.
	//
	// Returns:
	//   - window.Window: the window, or nil when rendering headless
	Window() window.Window

	// Backend returns the graphics backend frames are submitted to.
	//
	// Returns:
	//   - renderer.GraphicsBackend: the backend
	Backend() renderer.GraphicsBackend

	// Mesh returns the skinned mesh being drawn.
	//
	// Returns:
	//   - mesh.Mesh: the mesh
	Mesh() mesh.Mesh

	// Pose returns the pose evaluator driving the joints.
	//
	// Returns:
	//   - skeleton.Evaluator: the evaluator
	Pose() skeleton.Evaluator

	// Camera returns the camera the scene transform is taken from.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// Run renders until ctx is done, the window closes, the headless frame count is reached, or
	// the backend fails. Run may be called once.
	//
	// Parameters:
	//   - ctx: the stop signal
	//
	// Returns:
	//   - error: nil on a graceful stop, otherwise the setup error or a *common.DeviceLostError
	Run(ctx context.Context) error

	// Frames returns the number of frames drawn by Run.
	//
	// Returns:
	//   - int: the frame count
	Frames() int

	// Close releases the backend and the window the engine created.
	//
	// Returns:
	//   - error: error if closing the window fails
	Close() error
}

var _ Engine = &engine{}

// NewEngine creates an Engine from a resolved configuration.
// The backend is created according to cfg.Backend unless WithBackend supplies one; the wgpu
// backend opens a window unless WithWindow supplies one.
//
// Parameters:
//   - cfg: the resolved configuration
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if the configuration is invalid or the backend cannot be created
func NewEngine(cfg config.Config, options ...EngineBuilderOption) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &engine{
		cfg:              cfg,
		profiler:         profiler.NewProfiler(0, nil),
		profilingEnabled: cfg.Profiling,
	}
	for _, opt := range options {
		opt(e)
	}

	m, err := mesh.NewStrip(
		mesh.WithRows(cfg.Strip.Rows),
		mesh.WithWidth(cfg.Strip.Width),
		mesh.WithHeight(cfg.Strip.Height),
		mesh.WithOrigin(mgl32.Vec3(cfg.Strip.Origin)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "build strip")
	}
	e.mesh = m
	if e.pose == nil {
		e.pose = skeleton.NewOscillator(m.JointCount(),
			skeleton.WithAmplitude(*cfg.Animation.Amplitude),
			skeleton.WithFrequency(cfg.Animation.Frequency),
			skeleton.WithAxis(mgl32.Vec3(cfg.Animation.Axis)),
		)
	}

	if e.backend == nil {
		if err := e.createBackend(); err != nil {
			e.Close()
			return nil, err
		}
	}

	width, height := cfg.Window.Width, cfg.Window.Height
	if e.window != nil {
		width, height = e.window.Width(), e.window.Height()
	}
	e.camera = camera.NewCamera(
		camera.WithLookAt(mgl32.Vec3(cfg.Camera.Eye), mgl32.Vec3(cfg.Camera.Target), mgl32.Vec3(cfg.Camera.Up)),
		camera.WithPerspective(cfg.Camera.Fov, cfg.Camera.Near, cfg.Camera.Far),
		camera.WithAspect(float32(width)/float32(height)),
	)
	return e, nil
}

// createBackend builds the backend named by the configuration, opening a window for wgpu.
func (e *engine) createBackend() error {
	var skinnerOptions []skinning.SkinnerOption
	if e.cfg.Workers > 0 {
		skinnerOptions = append(skinnerOptions, skinning.WithWorkers(e.cfg.Workers))
	}

	switch e.cfg.Backend {
	case config.BackendSoftware:
		options := []software_backend.BackendOption{
			software_backend.WithSupersample(e.cfg.Headless.Supersample),
			software_backend.WithFrameRate(e.cfg.Headless.FPS),
			software_backend.WithShaderValidation(e.cfg.Headless.ValidateShaders),
			software_backend.WithSkinner(skinning.NewSkinner(skinnerOptions...)),
		}
		if dir := e.cfg.Headless.OutputDir; dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.Wrapf(err, "create %s", dir)
			}
			options = append(options, software_backend.WithFrameSink(webpSink(dir)))
		}
		b, err := software_backend.NewBackend(e.cfg.Window.Width, e.cfg.Window.Height, options...)
		if err != nil {
			return errors.Wrap(err, "software backend")
		}
		e.backend, e.ownsBackend = b, true

	case config.BackendWGPU:
		if e.window == nil {
			w, err := window.NewWindow(
				window.WithTitle(e.cfg.Window.Title),
				window.WithWidth(e.cfg.Window.Width),
				window.WithHeight(e.cfg.Window.Height),
			)
			if err != nil {
				return errors.Wrap(err, "open window")
			}
			e.window, e.ownsWindow = w, true
		}
		presentMode := renderer.PresentModeVSync
		if e.cfg.Window.PresentMode == config.PresentModeUncapped {
			presentMode = renderer.PresentModeUncapped
		}
		r, err := renderer.NewRenderer(e.window.SurfaceDescriptor(), e.window, e.window.Width(), e.window.Height(),
			renderer.WithPresentMode(presentMode),
			renderer.WithMSAA(renderer.MSAASampleCount(e.cfg.Window.MSAA)),
			renderer.WithForceSoftwareRenderer(e.cfg.Window.SoftwareAdapter),
		)
		if err != nil {
			return errors.Wrap(err, "wgpu backend")
		}
		e.backend, e.ownsBackend = r, true
		e.window.SetResizeCallback(func(width, height int) {
			if err := r.Resize(width, height); err != nil {
				log.Printf("resize to %dx%d failed: %v", width, height, err)
			}
		})

	default:
		return errors.Errorf("unknown backend %q", e.cfg.Backend)
	}
	return nil
}

// webpSink writes each frame to dir as frame_%04d.webp.
func webpSink(dir string) software_backend.FrameSink {
	return func(frame int, img *image.NRGBA) error {
		path := filepath.Join(dir, fmt.Sprintf("frame_%04d.webp", frame))
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrapf(err, "create %s", path)
		}
		if err := nativewebp.Encode(f, img, nil); err != nil {
			f.Close()
			return errors.Wrapf(err, "encode %s", path)
		}
		return errors.Wrapf(f.Close(), "close %s", path)
	}
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Backend() renderer.GraphicsBackend {
	return e.backend
}

func (e *engine) Mesh() mesh.Mesh {
	return e.mesh
}

func (e *engine) Pose() skeleton.Evaluator {
	return e.pose
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) Run(ctx context.Context) error {
	if e.loop != nil {
		return common.ErrLoopStarted
	}
	transform, err := camera.NewSceneTransform(e.camera, common.Identity())
	if err != nil {
		return err
	}

	options := []RenderLoopOption{WithFrameObserver(e.observe)}
	if e.window != nil {
		options = append(options, WithFramePump(e.window))
	}
	if e.cfg.Backend == config.BackendSoftware {
		options = append(options, WithMaxFrames(*e.cfg.Headless.Frames))
	}
	e.loop = NewRenderLoop(e.backend, e.mesh, e.pose, transform, options...)
	return e.loop.Run(ctx)
}

// observe runs on the scheduler thread after every submitted frame.
func (e *engine) observe(info FrameInfo) {
	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick(info.Time)
	}
	for _, observer := range e.observers {
		observer(info)
	}
}

func (e *engine) Frames() int {
	if e.loop == nil {
		return 0
	}
	return e.loop.Frames()
}

func (e *engine) Close() error {
	if e.ownsBackend && e.backend != nil {
		e.backend.Release()
		e.backend = nil
	}
	if e.ownsWindow && e.window != nil {
		err := e.window.Close()
		e.window = nil
		return err
	}
	return nil
}
