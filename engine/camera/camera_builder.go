package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption adjusts the Lens a new camera starts with.
type CameraBuilderOption func(*Lens)

// WithLookAt places the camera.
//
// Parameters:
//   - eye: the camera position in world space
//   - target: the point looked at
//   - up: the world direction that appears upward
//
// Returns:
//   - CameraBuilderOption: the option
func WithLookAt(eye, target, up mgl32.Vec3) CameraBuilderOption {
	return func(l *Lens) {
		l.Eye, l.Target, l.Up = eye, target, up
	}
}

// WithPerspective sets the frustum. Validity is checked when matrices are derived.
//
// Parameters:
//   - fov: vertical field of view in radians
//   - near, far: clip plane distances
//
// Returns:
//   - CameraBuilderOption: the option
func WithPerspective(fov, near, far float32) CameraBuilderOption {
	return func(l *Lens) {
		l.Fov, l.Near, l.Far = fov, near, far
	}
}

// WithAspect sets the starting aspect ratio. The engine derives it from the surface size.
//
// Parameters:
//   - aspect: width / height
//
// Returns:
//   - CameraBuilderOption: the option
func WithAspect(aspect float32) CameraBuilderOption {
	return func(l *Lens) {
		l.Aspect = aspect
	}
}
