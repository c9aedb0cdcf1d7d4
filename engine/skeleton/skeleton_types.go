package skeleton

import (
	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Pose is the set of joint matrices active at a given time, index-aligned with joint indices.
// A Pose is transient: evaluators build a fresh one per call and the caller owns it.
type Pose []mgl32.Mat4

// Bytes serializes the pose as consecutive column-major mat4x4<f32> values for uniform upload.
//
// Returns:
//   - []byte: 64 bytes per joint
func (p Pose) Bytes() []byte {
	return common.MatrixBytes(p...)
}

// Key is one sample of a joint property on a timeline.
type Key[T any] struct {
	Time  float32 // seconds from the start of the clip
	Value T
}

// JointTrack animates one joint. A property without keys stays at rest: zero translation,
// identity rotation, unit scale. Keys must be in non-decreasing time order.
type JointTrack struct {
	Joint       int
	Translation []Key[mgl32.Vec3]
	Rotation    []Key[mgl32.Quat]
	Scale       []Key[mgl32.Vec3]
}

// Animation is a keyframed clip over a flat set of joints.
type Animation struct {
	Name string
	// Duration in seconds; zero means the time of the last key of any track.
	Duration float32
	Tracks   []JointTrack
}
