package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/Carmen-Shannon/oxy-flex/engine/camera"
	"github.com/Carmen-Shannon/oxy-flex/engine/mesh"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer"
	"github.com/Carmen-Shannon/oxy-flex/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-flex/engine/skinning"
	"github.com/pkg/errors"
)

// LoopState is the lifecycle state of a RenderLoop.
type LoopState int

const (
	LoopStateIdle LoopState = iota
	LoopStateRunning
	LoopStateStopped
)

func (s LoopState) String() string {
	switch s {
	case LoopStateIdle:
		return "idle"
	case LoopStateRunning:
		return "running"
	case LoopStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// FrameInfo describes one frame that was submitted successfully.
type FrameInfo struct {
	Index int
	Time  time.Duration
	Pose  skeleton.Pose
}

// renderLoop implements the RenderLoop interface.
type renderLoop struct {
	backend   renderer.GraphicsBackend
	mesh      mesh.Mesh
	pose      skeleton.Evaluator
	transform camera.SceneTransform

	vertexSource, fragmentSource string
	observer                     func(FrameInfo)
	pump                         renderer.FramePump
	maxFrames                    int

	ctx            context.Context
	indexBuffer    renderer.BufferHandle
	triangleCount  int
	jointLocations []int

	mu     sync.Mutex
	state  LoopState
	frames int
	err    error
	done   chan struct{}
}

// RenderLoop drives the per-frame cycle: evaluate the pose at the frame time, upload the joint
// matrices, and submit the draw. Mesh buffers and the model-view-projection matrix are uploaded
// once at Start. Frames run on the backend's scheduler, one callback per frame, so every backend
// call happens on the scheduler's thread.
type RenderLoop interface {
	// Start compiles the program, uploads the static resources, and schedules the first frame.
	// The loop stops gracefully at the first frame after ctx is done.
	//
	// Parameters:
	//   - ctx: the stop signal
	//
	// Returns:
	//   - error: ErrLoopStarted if the loop already left Idle, a *common.ValidationError if the pose
	//     has fewer joints than the mesh, or the compile, link, or backend error that failed setup
	Start(ctx context.Context) error

	// Run starts the loop and blocks until it stops. When a frame pump is available, Run pumps it
	// on the calling goroutine; a pump that reports the host has closed stops the loop gracefully.
	//
	// Parameters:
	//   - ctx: the stop signal
	//
	// Returns:
	//   - error: the Start error, or Err once the loop has stopped
	Run(ctx context.Context) error

	// State returns the current lifecycle state.
	//
	// Returns:
	//   - LoopState: Idle, Running, or Stopped
	State() LoopState

	// Err returns the error that stopped the loop.
	//
	// Returns:
	//   - error: nil while running or after a graceful stop, otherwise a *common.DeviceLostError
	//     or the setup error
	Err() error

	// Done returns a channel that is closed when the loop enters Stopped.
	//
	// Returns:
	//   - <-chan struct{}: the done channel
	Done() <-chan struct{}

	// Frames returns the number of frames submitted successfully.
	//
	// Returns:
	//   - int: the frame count
	Frames() int
}

var _ RenderLoop = &renderLoop{}

// NewRenderLoop creates an idle render loop for one skinned mesh.
//
// Parameters:
//   - backend: the graphics backend that receives every call
//   - m: the mesh to draw
//   - pose: the pose evaluator, with at least m.JointCount() joints
//   - transform: the fixed scene transform composed into the MVP at Start
//   - options: functional options such as WithFrameObserver
//
// Returns:
//   - RenderLoop: the idle loop
func NewRenderLoop(backend renderer.GraphicsBackend, m mesh.Mesh, pose skeleton.Evaluator, transform camera.SceneTransform, options ...RenderLoopOption) RenderLoop {
	l := &renderLoop{
		backend:   backend,
		mesh:      m,
		pose:      pose,
		transform: transform,
		state:     LoopStateIdle,
		done:      make(chan struct{}),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *renderLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.state != LoopStateIdle {
		l.mu.Unlock()
		return common.ErrLoopStarted
	}
	l.state = LoopStateRunning
	l.mu.Unlock()

	if err := l.setup(ctx); err != nil {
		l.stop(err)
		return err
	}
	l.backend.ScheduleNextFrame(l.frame)
	return nil
}

// setup resolves the program and uploads everything that does not change per frame.
func (l *renderLoop) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	l.ctx = ctx

	jointCount := l.pose.JointCount()
	if jointCount < l.mesh.JointCount() {
		verr := common.NewValidationError("pose")
		verr.Add("evaluator has %d joints, mesh %q references %d", jointCount, l.mesh.Label(), l.mesh.JointCount())
		return verr
	}

	vertexSource, fragmentSource := l.vertexSource, l.fragmentSource
	if vertexSource == "" || fragmentSource == "" {
		var err error
		if vertexSource, fragmentSource, err = skinning.ShaderSources(jointCount); err != nil {
			return err
		}
	}
	prog, err := l.backend.CompileProgram(vertexSource, fragmentSource)
	if err != nil {
		return err
	}

	mvpLocation, err := l.backend.UniformLocation(prog, skinning.UniformMVP)
	if err != nil {
		return err
	}
	l.jointLocations = make([]int, jointCount)
	for i := range l.jointLocations {
		if l.jointLocations[i], err = l.backend.UniformLocation(prog, skinning.JointUniformName(i)); err != nil {
			return err
		}
	}

	for _, attr := range l.mesh.Attributes() {
		location, err := l.backend.AttributeLocation(prog, attr.Name)
		if err != nil {
			return err
		}
		buffer, err := l.backend.CreateBuffer(renderer.BufferKindVertex, attr.Bytes())
		if err != nil {
			return errors.Wrapf(err, "create %s buffer", attr.Name)
		}
		if err := l.backend.BindVertexAttribute(buffer, location, attr.Components); err != nil {
			return errors.Wrapf(err, "bind %s", attr.Name)
		}
	}
	if l.indexBuffer, err = l.backend.CreateBuffer(renderer.BufferKindIndex, common.SliceToBytes(l.mesh.IndexData())); err != nil {
		return errors.Wrap(err, "create index buffer")
	}
	l.triangleCount = l.mesh.TriangleCount()

	if err := l.backend.SetUniformMatrix(mvpLocation, l.transform.MVP()); err != nil {
		return errors.Wrap(err, "upload mvp")
	}
	return nil
}

// frame is the scheduler callback for one cycle.
func (l *renderLoop) frame(now time.Duration) {
	// Recover from panics inside the frame to stop the loop instead of crashing the host.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render loop recovered from panic: %v", r)
			l.stop(errors.Errorf("panic in frame: %v", r))
		}
	}()

	if l.State() != LoopStateRunning {
		return
	}
	if l.ctx.Err() != nil {
		l.stop(nil)
		return
	}

	pose := l.pose.Evaluate(now.Seconds())
	for i, location := range l.jointLocations {
		if err := l.backend.SetUniformMatrix(location, pose[i]); err != nil {
			l.stop(common.AsDeviceLost("set joint matrix", err))
			return
		}
	}
	if err := l.backend.SubmitDraw(l.indexBuffer, l.triangleCount); err != nil {
		l.stop(common.AsDeviceLost("submit draw", err))
		return
	}

	l.mu.Lock()
	index := l.frames
	l.frames++
	l.mu.Unlock()

	if l.observer != nil {
		l.observer(FrameInfo{Index: index, Time: now, Pose: pose})
	}
	if l.maxFrames > 0 && index+1 >= l.maxFrames {
		l.stop(nil)
		return
	}
	l.backend.ScheduleNextFrame(l.frame)
}

// stop enters Stopped once; later calls are no-ops.
func (l *renderLoop) stop(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == LoopStateStopped {
		return
	}
	l.state = LoopStateStopped
	l.err = err
	close(l.done)
}

func (l *renderLoop) Run(ctx context.Context) error {
	if err := l.Start(ctx); err != nil {
		return err
	}
	pump := l.pump
	if pump == nil {
		pump, _ = l.backend.(renderer.FramePump)
	}
	if pump != nil {
		for l.State() == LoopStateRunning {
			if !pump.Pump() {
				l.stop(nil)
			}
		}
	}
	<-l.done
	return l.Err()
}

func (l *renderLoop) State() LoopState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *renderLoop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *renderLoop) Done() <-chan struct{} {
	return l.done
}

func (l *renderLoop) Frames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}
