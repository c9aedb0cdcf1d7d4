package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// strip holds the parameters of a procedurally generated two-joint strip.
type strip struct {
	rows   int
	width  float64
	height float64
	origin mgl32.Vec3
}

// StripOption is a functional option for configuring the strip built by NewStrip.
type StripOption func(*strip)

// WithRows is an option builder that sets the number of vertex rows along the strip's height.
//
// Parameters:
//   - rows: the row count, at least 2
//
// Returns:
//   - StripOption: a function that applies the rows option
func WithRows(rows int) StripOption {
	return func(s *strip) {
		s.rows = rows
	}
}

// WithWidth is an option builder that sets the strip width along X.
//
// Parameters:
//   - width: the width in model units
//
// Returns:
//   - StripOption: a function that applies the width option
func WithWidth(width float64) StripOption {
	return func(s *strip) {
		s.width = width
	}
}

// WithHeight is an option builder that sets the strip height along Y.
//
// Parameters:
//   - height: the height in model units
//
// Returns:
//   - StripOption: a function that applies the height option
func WithHeight(height float64) StripOption {
	return func(s *strip) {
		s.height = height
	}
}

// WithOrigin is an option builder that sets the centre of the strip's bottom edge.
//
// Parameters:
//   - origin: the bottom centre in model space
//
// Returns:
//   - StripOption: a function that applies the origin option
func WithOrigin(origin mgl32.Vec3) StripOption {
	return func(s *strip) {
		s.origin = origin
	}
}

// NewStrip builds a vertical plank of two-vertex rows bound to joints 0 and 1.
// The influence of joint 1 grows linearly from 0 on the bottom row to 1 on the top row.
// With default options the result is the 10-vertex, 8-triangle plank (width 1, height 0.8, 5 rows).
//
// Parameters:
//   - options: functional options such as WithRows and WithHeight
//
// Returns:
//   - Mesh: the strip mesh with a joint count of 2
//   - error: an error if the options describe a degenerate strip
func NewStrip(options ...StripOption) (Mesh, error) {
	s := &strip{rows: 5, width: 1, height: 0.8}
	for _, opt := range options {
		opt(s)
	}
	if s.rows < 2 {
		return nil, errors.Errorf("strip needs at least 2 rows, got %d", s.rows)
	}
	if s.width <= 0 || s.height <= 0 {
		return nil, errors.Errorf("strip dimensions must be positive, got %vx%v", s.width, s.height)
	}

	n := s.rows * 2
	positions := make([][3]float32, 0, n)
	joints := make([][MaxInfluences]uint32, 0, n)
	weights := make([][MaxInfluences]float32, 0, n)
	half := s.width / 2
	for r := range s.rows {
		y := float64(r) * s.height / float64(s.rows-1)
		w1 := float32(r) / float32(s.rows-1)
		w0 := 1 - w1
		j := [MaxInfluences]uint32{}
		if w1 > 0 {
			j[1] = 1
		}
		for _, x := range [2]float64{-half, half} {
			positions = append(positions, [3]float32{
				s.origin.X() + float32(x),
				s.origin.Y() + float32(y),
				s.origin.Z(),
			})
			joints = append(joints, j)
			weights = append(weights, [MaxInfluences]float32{w0, w1, 0, 0})
		}
	}

	indices := make([]uint32, 0, (s.rows-1)*6)
	for r := range s.rows - 1 {
		a := uint32(r * 2)
		b, c, d := a+1, a+2, a+3
		indices = append(indices, a, b, d, a, d, c)
	}

	return Load(positions, indices, joints, weights, WithJointCount(2), WithLabel("strip"))
}
