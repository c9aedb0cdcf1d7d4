package skinning

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-flex/engine/mesh"
	"github.com/Carmen-Shannon/oxy-flex/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// skinner is the implementation of the Skinner interface.
type skinner struct {
	workers   int
	chunkSize int

	poolOnce sync.Once
	pool     worker.DynamicWorkerPool
}

// Skinner defines the interface for skinning whole meshes on the CPU.
// Large meshes are split into chunks evaluated on a reusable worker pool; the call returns only
// after every chunk is written, so callers observe a synchronous operation.
type Skinner interface {
	// Skin evaluates every vertex of the mesh under the pose, optionally followed by the mvp transform.
	//
	// Parameters:
	//   - m: the mesh to skin
	//   - pose: the joint matrices; must cover the mesh's joint count
	//   - mvp: the clip transform, or nil to leave positions in model space
	//   - out: destination slice with at least m.VertexCount() elements
	//
	// Returns:
	//   - error: an error if out is too short or the pose has too few joints
	Skin(m mesh.Mesh, pose skeleton.Pose, mvp *mgl32.Mat4, out []mgl32.Vec4) error
}

var _ Skinner = &skinner{}

// NewSkinner creates a new Skinner. Defaults: one worker per CPU, 1024 vertices per chunk.
//
// Parameters:
//   - options: functional options such as WithWorkers
//
// Returns:
//   - Skinner: the skinner
func NewSkinner(options ...SkinnerOption) Skinner {
	s := &skinner{
		workers:   runtime.NumCPU(),
		chunkSize: 1024,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *skinner) Skin(m mesh.Mesh, pose skeleton.Pose, mvp *mgl32.Mat4, out []mgl32.Vec4) error {
	n := m.VertexCount()
	if len(out) < n {
		return errors.Errorf("skin output holds %d positions, mesh has %d vertices", len(out), n)
	}
	if len(pose) < m.JointCount() {
		return errors.Errorf("pose has %d joints, mesh references %d", len(pose), m.JointCount())
	}

	skinRange := func(start, end int) {
		for i := start; i < end; i++ {
			p := SkinVertex(m.Vertex(i), pose)
			if mvp != nil {
				p = ClipPosition(*mvp, p)
			}
			out[i] = p
		}
	}

	if s.workers <= 1 || n <= s.chunkSize {
		skinRange(0, n)
		return nil
	}

	s.poolOnce.Do(func() {
		s.pool = worker.NewDynamicWorkerPool(s.workers, 256, 1*time.Second)
	})

	// A WaitGroup provides the barrier; the pool's own Wait blocks until workers idle-exit.
	var wg sync.WaitGroup
	taskID := 0
	for start := 0; start < n; start += s.chunkSize {
		end := min(start+s.chunkSize, n)
		wg.Add(1)
		s.pool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				skinRange(start, end)
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()
	return nil
}
