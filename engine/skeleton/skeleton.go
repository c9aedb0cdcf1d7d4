package skeleton

import (
	"math"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Evaluator defines the interface for computing a skeleton pose as a pure function of time.
// Implementations never read a clock and hold no per-call state, so evaluating the same time twice
// yields bit-identical matrices.
type Evaluator interface {
	// JointCount returns the number of matrices in every Pose produced by Evaluate.
	//
	// Returns:
	//   - int: the joint count
	JointCount() int

	// Evaluate computes the joint matrices at time t.
	//
	// Parameters:
	//   - t: the animation time in seconds, supplied by the caller
	//
	// Returns:
	//   - Pose: one matrix per joint
	Evaluate(t float64) Pose
}

// oscillator is the implementation of the sinusoidal Evaluator.
type oscillator struct {
	jointCount int
	amplitude  float64
	frequency  float64
	axis       mgl32.Vec3
}

var _ Evaluator = &oscillator{}

// NewOscillator creates an Evaluator that holds joint 0 at identity and swings every other joint
// about a fixed axis by amplitude * sin(t * frequency).
// Defaults: amplitude pi/4, frequency 1 rad/s, axis +Z; the period is 2*pi / frequency.
//
// Parameters:
//   - jointCount: the number of joints in the pose
//   - options: functional options such as WithAmplitude
//
// Returns:
//   - Evaluator: the oscillating pose evaluator
func NewOscillator(jointCount int, options ...OscillatorOption) Evaluator {
	o := &oscillator{
		jointCount: max(jointCount, 1),
		amplitude:  math.Pi / 4,
		frequency:  1,
		axis:       mgl32.Vec3{0, 0, 1},
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

func (o *oscillator) JointCount() int {
	return o.jointCount
}

func (o *oscillator) Evaluate(t float64) Pose {
	angle := float32(o.amplitude * math.Sin(t*o.frequency))
	pose := make(Pose, o.jointCount)
	pose[0] = common.Identity()
	for i := 1; i < o.jointCount; i++ {
		pose[i] = common.Rotate(common.Identity(), angle, o.axis)
	}
	return pose
}

// restPose is an Evaluator that always returns identity matrices.
type restPose struct {
	jointCount int
}

var _ Evaluator = &restPose{}

// NewRestPose creates an Evaluator whose every joint stays at identity, leaving vertices at rest.
//
// Parameters:
//   - jointCount: the number of joints in the pose
//
// Returns:
//   - Evaluator: the rest pose evaluator
func NewRestPose(jointCount int) Evaluator {
	return &restPose{jointCount: max(jointCount, 1)}
}

func (r *restPose) JointCount() int {
	return r.jointCount
}

func (r *restPose) Evaluate(float64) Pose {
	pose := make(Pose, r.jointCount)
	for i := range pose {
		pose[i] = common.Identity()
	}
	return pose
}
