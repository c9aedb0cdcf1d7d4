package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/Carmen-Shannon/oxy-flex/engine/camera"
	"github.com/Carmen-Shannon/oxy-flex/engine/mesh"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer/software_backend"
	"github.com/Carmen-Shannon/oxy-flex/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-flex/engine/skinning"
	"github.com/go-gl/mathgl/mgl32"
)

// manualScheduler holds at most one pending frame and runs it when pumped, advancing its clock
// by step each time.
type manualScheduler struct {
	pending   renderer.FrameCallback
	now       time.Duration
	step      time.Duration
	scheduled int
}

func (s *manualScheduler) ScheduleNextFrame(callback renderer.FrameCallback) {
	s.pending = callback
	s.scheduled++
}

func (s *manualScheduler) Pump() bool {
	if s.pending == nil {
		return false
	}
	callback := s.pending
	s.pending = nil
	now := s.now
	s.now += s.step
	callback(now)
	return true
}

// recordingBackend records every GraphicsBackend call and can be told to fail.
type recordingBackend struct {
	*manualScheduler

	compileErr error
	drawErr    error
	failDrawAt int

	compiled   []string
	created    []renderer.BufferKind
	bound      map[string]int
	uniforms   []string
	matrices   map[string][]mgl32.Mat4
	draws      []int
	drawBuffer renderer.BufferHandle
	released   bool
}

func newRecordingBackend(step time.Duration) *recordingBackend {
	return &recordingBackend{
		manualScheduler: &manualScheduler{step: step},
		bound:           make(map[string]int),
		matrices:        make(map[string][]mgl32.Mat4),
	}
}

var attributeLocations = map[string]int{
	mesh.AttributePosition:   0,
	mesh.AttributeJointIndex: 1,
	mesh.AttributeWeight:     2,
}

func (b *recordingBackend) CompileProgram(vertexSource, fragmentSource string) (renderer.ProgramHandle, error) {
	if b.compileErr != nil {
		return 0, b.compileErr
	}
	b.compiled = append(b.compiled, vertexSource)
	return 1, nil
}

func (b *recordingBackend) AttributeLocation(program renderer.ProgramHandle, name string) (int, error) {
	location, ok := attributeLocations[name]
	if !ok {
		return 0, common.ErrUnknownAttribute
	}
	return location, nil
}

func (b *recordingBackend) UniformLocation(program renderer.ProgramHandle, name string) (int, error) {
	for i, existing := range b.uniforms {
		if existing == name {
			return i, nil
		}
	}
	b.uniforms = append(b.uniforms, name)
	return len(b.uniforms) - 1, nil
}

func (b *recordingBackend) CreateBuffer(kind renderer.BufferKind, data []byte) (renderer.BufferHandle, error) {
	b.created = append(b.created, kind)
	return renderer.BufferHandle(len(b.created)), nil
}

func (b *recordingBackend) BindVertexAttribute(buffer renderer.BufferHandle, location, componentCount int) error {
	for name, l := range attributeLocations {
		if l == location {
			b.bound[name] = componentCount
		}
	}
	return nil
}

func (b *recordingBackend) SetUniformMatrix(location int, m mgl32.Mat4) error {
	name := b.uniforms[location]
	b.matrices[name] = append(b.matrices[name], m)
	return nil
}

func (b *recordingBackend) SubmitDraw(indexBuffer renderer.BufferHandle, primitiveCount int) error {
	if b.drawErr != nil && len(b.draws)+1 >= b.failDrawAt {
		return b.drawErr
	}
	b.drawBuffer = indexBuffer
	b.draws = append(b.draws, primitiveCount)
	return nil
}

func (b *recordingBackend) Release() {
	b.released = true
}

func stripScene(t *testing.T) (mesh.Mesh, camera.SceneTransform) {
	t.Helper()
	m, err := mesh.NewStrip()
	if err != nil {
		t.Fatalf("NewStrip: %v", err)
	}
	transform, err := camera.NewSceneTransform(camera.NewCamera(), common.Identity())
	if err != nil {
		t.Fatalf("NewSceneTransform: %v", err)
	}
	return m, transform
}

func TestRenderLoopUploadsStaticResourcesOnce(t *testing.T) {
	m, transform := stripScene(t)
	backend := newRecordingBackend(time.Second / 60)
	loop := NewRenderLoop(backend, m, skeleton.NewOscillator(2), transform, WithMaxFrames(5))

	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if loop.State() != LoopStateStopped || loop.Frames() != 5 {
		t.Fatalf("state %v frames %d, want stopped after 5", loop.State(), loop.Frames())
	}

	var vertexBuffers, indexBuffers int
	for _, kind := range backend.created {
		switch kind {
		case renderer.BufferKindVertex:
			vertexBuffers++
		case renderer.BufferKindIndex:
			indexBuffers++
		}
	}
	if vertexBuffers != 3 || indexBuffers != 1 {
		t.Errorf("created %d vertex and %d index buffers, want 3 and 1", vertexBuffers, indexBuffers)
	}
	wantComponents := map[string]int{mesh.AttributePosition: 3, mesh.AttributeJointIndex: 4, mesh.AttributeWeight: 4}
	for name, want := range wantComponents {
		if got := backend.bound[name]; got != want {
			t.Errorf("%s bound with %d components, want %d", name, got, want)
		}
	}

	mvps := backend.matrices[skinning.UniformMVP]
	if len(mvps) != 1 || mvps[0] != transform.MVP() {
		t.Errorf("mvp uploads = %d, want exactly one of the scene MVP", len(mvps))
	}
	for i := 0; i < 2; i++ {
		if got := len(backend.matrices[skinning.JointUniformName(i)]); got != 5 {
			t.Errorf("joint %d uploaded %d times, want 5", i, got)
		}
	}
	if len(backend.draws) != 5 || backend.draws[0] != m.TriangleCount() {
		t.Errorf("draws = %v", backend.draws)
	}
	if backend.drawBuffer != 4 {
		t.Errorf("drew with buffer %d, want the index buffer 4", backend.drawBuffer)
	}
	if backend.pending != nil {
		t.Error("a frame is still scheduled after the loop stopped")
	}
}

func TestRenderLoopStopsOnCancel(t *testing.T) {
	m, transform := stripScene(t)
	backend := newRecordingBackend(time.Millisecond)
	loop := NewRenderLoop(backend, m, skeleton.NewOscillator(2), transform)

	ctx, cancel := context.WithCancel(context.Background())
	if err := loop.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	backend.Pump()
	backend.Pump()
	cancel()
	scheduled := backend.scheduled
	if !backend.Pump() {
		t.Fatal("no frame pending after cancel")
	}

	select {
	case <-loop.Done():
	default:
		t.Fatal("Done not closed after cancel")
	}
	if loop.Err() != nil || loop.State() != LoopStateStopped {
		t.Errorf("state %v err %v, want graceful stop", loop.State(), loop.Err())
	}
	if backend.scheduled != scheduled || backend.pending != nil {
		t.Error("loop scheduled another frame after cancel")
	}
	if len(backend.draws) != 2 || loop.Frames() != 2 {
		t.Errorf("draws %d frames %d, want 2", len(backend.draws), loop.Frames())
	}
}

func TestRenderLoopBackendFailure(t *testing.T) {
	lost := &common.DeviceLostError{Op: "present", Err: errors.New("surface outdated")}
	tests := []struct {
		name    string
		drawErr error
		same    bool
	}{
		{"plain error is wrapped", errors.New("queue submit failed"), false},
		{"device lost passes through", lost, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, transform := stripScene(t)
			backend := newRecordingBackend(time.Millisecond)
			backend.drawErr, backend.failDrawAt = tc.drawErr, 3
			loop := NewRenderLoop(backend, m, skeleton.NewOscillator(2), transform)

			err := loop.Run(context.Background())
			var deviceLost *common.DeviceLostError
			if !errors.As(err, &deviceLost) {
				t.Fatalf("Run = %v, want DeviceLostError", err)
			}
			if tc.same && err != tc.drawErr {
				t.Errorf("Run = %v, want the backend's error unchanged", err)
			}
			if !errors.Is(err, tc.drawErr) && !tc.same {
				t.Errorf("Run = %v does not wrap %v", err, tc.drawErr)
			}
			if loop.Frames() != 2 || backend.pending != nil {
				t.Errorf("frames %d pending %v, want 2 and nothing scheduled", loop.Frames(), backend.pending != nil)
			}
		})
	}
}

func TestRenderLoopStartErrors(t *testing.T) {
	m, transform := stripScene(t)

	compile := &common.ShaderCompileError{Stage: "vertex", Diagnostic: "unexpected token"}
	backend := newRecordingBackend(time.Millisecond)
	backend.compileErr = compile
	loop := NewRenderLoop(backend, m, skeleton.NewOscillator(2), transform)
	if err := loop.Start(context.Background()); err != compile {
		t.Errorf("Start = %v, want the compile error unchanged", err)
	}
	if loop.State() != LoopStateStopped || loop.Err() != compile {
		t.Errorf("state %v err %v after failed start", loop.State(), loop.Err())
	}
	if err := loop.Start(context.Background()); !errors.Is(err, common.ErrLoopStarted) {
		t.Errorf("second Start = %v, want ErrLoopStarted", err)
	}

	backend = newRecordingBackend(time.Millisecond)
	loop = NewRenderLoop(backend, m, skeleton.NewOscillator(1), transform)
	var verr *common.ValidationError
	if err := loop.Start(context.Background()); !errors.As(err, &verr) {
		t.Errorf("Start with a one-joint pose = %v, want ValidationError", err)
	}
	if len(backend.compiled) != 0 {
		t.Error("program compiled despite the joint count mismatch")
	}
}

func TestRenderLoopStartTwice(t *testing.T) {
	m, transform := stripScene(t)
	backend := newRecordingBackend(time.Millisecond)
	loop := NewRenderLoop(backend, m, skeleton.NewOscillator(2), transform)
	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := loop.Start(context.Background()); !errors.Is(err, common.ErrLoopStarted) {
		t.Errorf("second Start = %v, want ErrLoopStarted", err)
	}
	if len(backend.compiled) != 1 {
		t.Errorf("compiled %d programs, want 1", len(backend.compiled))
	}
}

func TestRenderLoopPoseFollowsFrameTime(t *testing.T) {
	m, transform := stripScene(t)
	backend := newRecordingBackend(250 * time.Millisecond)
	pose := skeleton.NewOscillator(2)
	var seen []FrameInfo
	loop := NewRenderLoop(backend, m, pose, transform,
		WithMaxFrames(3),
		WithFrameObserver(func(info FrameInfo) { seen = append(seen, info) }),
		WithShaderSources("vertex", "fragment"),
	)
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(backend.compiled) != 1 || backend.compiled[0] != "vertex" {
		t.Errorf("compiled %v, want the supplied sources", backend.compiled)
	}
	if len(seen) != 3 {
		t.Fatalf("observer saw %d frames, want 3", len(seen))
	}
	uploads := backend.matrices[skinning.JointUniformName(1)]
	for i, info := range seen {
		if info.Index != i || info.Time != time.Duration(i)*250*time.Millisecond {
			t.Errorf("frame %d: info %+v", i, info)
		}
		want := pose.Evaluate(info.Time.Seconds())
		if info.Pose[1] != want[1] || uploads[i] != want[1] {
			t.Errorf("frame %d: joint 1 differs from the evaluated pose", i)
		}
	}
	// sin(0.5) * pi/4 about +Z at the third frame
	angle := math.Atan2(float64(uploads[2].At(1, 0)), float64(uploads[2].At(0, 0)))
	if want := math.Pi / 4 * math.Sin(0.5); math.Abs(angle-want) > 1e-5 {
		t.Errorf("joint 1 angle = %v, want %v", angle, want)
	}
}

func TestRenderLoopSoftwareBackend(t *testing.T) {
	m, transform := stripScene(t)
	backend, err := software_backend.NewBackend(32, 32, software_backend.WithFrameRate(30))
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	defer backend.Release()

	loop := NewRenderLoop(backend, m, skeleton.NewOscillator(2), transform, WithMaxFrames(4))
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if backend.Frames() != 4 || loop.Frames() != 4 {
		t.Errorf("backend frames %d loop frames %d, want 4", backend.Frames(), loop.Frames())
	}
	if backend.LastFrame() == nil {
		t.Error("no frame rendered")
	}
}

func TestRenderLoopSoftwareContextLoss(t *testing.T) {
	m, transform := stripScene(t)
	backend, err := software_backend.NewBackend(16, 16)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	loop := NewRenderLoop(backend, m, skeleton.NewOscillator(2), transform, WithFrameObserver(func(info FrameInfo) {
		if info.Index == 1 {
			backend.Lose()
		}
	}))
	err = loop.Run(context.Background())
	var lost *common.DeviceLostError
	if !errors.As(err, &lost) {
		t.Fatalf("Run = %v, want DeviceLostError", err)
	}
	if loop.Frames() != 2 {
		t.Errorf("frames = %d, want 2", loop.Frames())
	}
}
