package skeleton

import "github.com/go-gl/mathgl/mgl32"

// OscillatorOption is a functional option for configuring an Evaluator via NewOscillator.
type OscillatorOption func(*oscillator)

// WithAmplitude is an option builder that sets the peak swing angle.
//
// Parameters:
//   - radians: the amplitude in radians
//
// Returns:
//   - OscillatorOption: a function that applies the amplitude option
func WithAmplitude(radians float64) OscillatorOption {
	return func(o *oscillator) {
		o.amplitude = radians
	}
}

// WithFrequency is an option builder that sets the angular frequency of the swing.
//
// Parameters:
//   - radiansPerSecond: the angular frequency
//
// Returns:
//   - OscillatorOption: a function that applies the frequency option
func WithFrequency(radiansPerSecond float64) OscillatorOption {
	return func(o *oscillator) {
		o.frequency = radiansPerSecond
	}
}

// WithAxis is an option builder that sets the rotation axis. A zero axis is ignored.
//
// Parameters:
//   - axis: the rotation axis, normalized when applied
//
// Returns:
//   - OscillatorOption: a function that applies the axis option
func WithAxis(axis mgl32.Vec3) OscillatorOption {
	return func(o *oscillator) {
		if axis.Len() > 0 {
			o.axis = axis
		}
	}
}

// ClipOption is a functional option for configuring an Evaluator via NewClip.
type ClipOption func(*clip)

// WithLoop is an option builder that sets whether clip time wraps around its duration.
// When false, time is clamped to [0, duration].
//
// Parameters:
//   - loop: true to wrap time
//
// Returns:
//   - ClipOption: a function that applies the loop option
func WithLoop(loop bool) ClipOption {
	return func(c *clip) {
		c.loop = loop
	}
}
