package skeleton

import (
	"math"
	"sort"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/go-gl/mathgl/mgl32"
)

// clip is the keyframed implementation of Evaluator.
type clip struct {
	jointCount int
	duration   float64
	loop       bool
	tracks     []*JointTrack // indexed by joint, nil when the joint is not animated
}

var _ Evaluator = &clip{}

// NewClip creates an Evaluator that samples an Animation.
// Translations and scales are interpolated linearly and rotations with spherical interpolation.
// Joints without a track stay at identity. Clips loop by default.
//
// Parameters:
//   - jointCount: the number of joints in the pose
//   - animation: the clip to sample; it is not copied and must not be modified afterwards
//   - options: functional options such as WithLoop
//
// Returns:
//   - Evaluator: the clip evaluator
//   - error: a *common.ValidationError if a track targets a missing joint or has unordered keys
func NewClip(jointCount int, animation *Animation, options ...ClipOption) (Evaluator, error) {
	c := &clip{
		jointCount: max(jointCount, 1),
		loop:       true,
		duration:   float64(animation.Duration),
	}
	for _, opt := range options {
		opt(c)
	}
	c.tracks = make([]*JointTrack, c.jointCount)

	verr := common.NewValidationError("animation " + animation.Name)
	var last float32
	for i := range animation.Tracks {
		track := &animation.Tracks[i]
		if track.Joint < 0 || track.Joint >= c.jointCount {
			verr.Add("track %d targets joint %d outside [0, %d)", i, track.Joint, c.jointCount)
			continue
		}
		if c.tracks[track.Joint] != nil {
			verr.Add("track %d duplicates joint %d", i, track.Joint)
			continue
		}
		c.tracks[track.Joint] = track
		last = max(last,
			checkKeys(verr, i, "translation", track.Translation),
			checkKeys(verr, i, "rotation", track.Rotation),
			checkKeys(verr, i, "scale", track.Scale),
		)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if c.duration <= 0 {
		c.duration = float64(last)
	}
	return c, nil
}

// checkKeys reports keys that go back in time and returns the time of the last key.
func checkKeys[T any](verr *common.ValidationError, track int, property string, keys []Key[T]) float32 {
	var last float32
	for k, key := range keys {
		if key.Time < 0 || key.Time < last || math.IsNaN(float64(key.Time)) {
			verr.Add("track %d %s key %d at %v is out of order", track, property, k, key.Time)
		}
		last = max(last, key.Time)
	}
	return last
}

func (c *clip) JointCount() int {
	return c.jointCount
}

func (c *clip) Evaluate(t float64) Pose {
	local := float32(c.localTime(t))
	pose := make(Pose, c.jointCount)
	for i, track := range c.tracks {
		if track == nil {
			pose[i] = common.Identity()
			continue
		}
		translation := sample(track.Translation, local, mgl32.Vec3{}, lerp)
		rotation := sample(track.Rotation, local, mgl32.QuatIdent(), slerp)
		scale := sample(track.Scale, local, mgl32.Vec3{1, 1, 1}, lerp)
		m := common.Translate(common.Identity(), translation)
		m = common.Multiply(m, rotation.Mat4())
		pose[i] = common.Scale(m, scale)
	}
	return pose
}

func (c *clip) localTime(t float64) float64 {
	if c.duration <= 0 || math.IsNaN(t) {
		return 0
	}
	if c.loop {
		t = math.Mod(t, c.duration)
		if t < 0 {
			t += c.duration
		}
		return t
	}
	return math.Max(0, math.Min(t, c.duration))
}

// sample interpolates the keys at t, holding the first and last values outside their range.
func sample[T any](keys []Key[T], t float32, rest T, interpolate func(a, b T, f float32) T) T {
	if len(keys) == 0 {
		return rest
	}
	i := sort.Search(len(keys), func(k int) bool { return keys[k].Time > t }) - 1
	switch {
	case i < 0:
		return interpolate(keys[0].Value, keys[0].Value, 0)
	case i >= len(keys)-1:
		return interpolate(keys[i].Value, keys[i].Value, 0)
	}
	span := keys[i+1].Time - keys[i].Time
	if span <= 0 {
		return interpolate(keys[i+1].Value, keys[i+1].Value, 0)
	}
	return interpolate(keys[i].Value, keys[i+1].Value, (t-keys[i].Time)/span)
}

func lerp(a, b mgl32.Vec3, f float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(f))
}

// slerp normalizes both ends, so keys need not be unit quaternions. A zero quaternion reads as identity.
func slerp(a, b mgl32.Quat, f float32) mgl32.Quat {
	return mgl32.QuatSlerp(unit(a), unit(b), f)
}

func unit(q mgl32.Quat) mgl32.Quat {
	if q.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return q.Normalize()
}
