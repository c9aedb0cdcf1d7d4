package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Lens is a snapshot of a camera's placement and perspective settings.
type Lens struct {
	Eye, Target, Up mgl32.Vec3

	// Fov is the vertical field of view in radians.
	Fov       float32
	Aspect    float32
	Near, Far float32
}

type cameraImpl struct {
	mu   sync.Mutex
	lens Lens
}

// Camera is a fixed look-at perspective camera. Matrices are derived on request and validated,
// so a degenerate setting surfaces as an error instead of a non-finite matrix.
type Camera interface {
	// Lens returns the current settings.
	//
	// Returns:
	//   - Lens: a copy of the settings
	Lens() Lens

	// ProjectionMatrix computes the perspective projection (GL clip convention).
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	//   - error: common.ErrDegenerateProjection if the perspective settings are degenerate
	ProjectionMatrix() (mgl32.Mat4, error)

	// ViewMatrix computes the look-at view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	//   - error: common.ErrDegenerateView if the placement is degenerate
	ViewMatrix() (mgl32.Mat4, error)

	// SetAspect replaces the aspect ratio, usually after the surface was resized.
	//
	// Parameters:
	//   - aspect: width / height
	SetAspect(aspect float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera at (0, 0, -4) looking at the origin with +Y up, a 45 degree field of
// view, aspect 1, and planes at 0.1 and 10.
//
// Parameters:
//   - options: overrides such as WithPerspective
//
// Returns:
//   - Camera: the camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{lens: Lens{
		Eye:    mgl32.Vec3{0, 0, -4},
		Up:     mgl32.Vec3{0, 1, 0},
		Fov:    math.Pi / 4,
		Aspect: 1,
		Near:   0.1,
		Far:    10,
	}}
	for _, option := range options {
		option(&c.lens)
	}
	return c
}

func (c *cameraImpl) Lens() Lens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lens
}

func (c *cameraImpl) ProjectionMatrix() (mgl32.Mat4, error) {
	l := c.Lens()
	return common.Perspective(l.Fov, l.Aspect, l.Near, l.Far)
}

func (c *cameraImpl) ViewMatrix() (mgl32.Mat4, error) {
	l := c.Lens()
	return common.LookAt(l.Eye, l.Target, l.Up)
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	c.lens.Aspect = aspect
	c.mu.Unlock()
}
