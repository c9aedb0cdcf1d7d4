package common

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// parallelEpsilon is the minimum squared cross product length accepted between the view
// direction and the up vector in LookAt.
const parallelEpsilon = 1e-12

// Identity returns the 4x4 identity matrix.
//
// Returns:
//   - mgl32.Mat4: the identity matrix
func Identity() mgl32.Mat4 {
	return mgl32.Ident4()
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// MatrixBytes serializes matrices back to back in column-major little-endian float32 order,
// matching the mat4x4<f32> uniform layout.
//
// Parameters:
//   - ms: the matrices to serialize
//
// Returns:
//   - []byte: 64 bytes per matrix
func MatrixBytes(ms ...mgl32.Mat4) []byte {
	buf := make([]byte, 0, len(ms)*64)
	for _, m := range ms {
		for _, v := range m {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	return buf
}

// Multiply returns a * b. Neither input is modified.
//
// Parameters:
//   - a: left-hand matrix
//   - b: right-hand matrix
//
// Returns:
//   - mgl32.Mat4: the product a * b
func Multiply(a, b mgl32.Mat4) mgl32.Mat4 {
	return a.Mul4(b)
}

// ComposeMVP builds the model-view-projection matrix as projection * view * model.
// A model-space point p maps to clip space as projection * (view * (model * p)).
//
// Parameters:
//   - projection: the camera projection matrix
//   - view: the camera view matrix
//   - model: the object placement matrix
//
// Returns:
//   - mgl32.Mat4: the composed transform
func ComposeMVP(projection, view, model mgl32.Mat4) mgl32.Mat4 {
	return projection.Mul4(view).Mul4(model)
}

// Perspective creates a perspective projection matrix using the GL clip convention (z in [-1, 1]).
//
// Parameters:
//   - fovY: vertical field of view in radians, in (0, pi)
//   - aspect: viewport aspect ratio, non-zero
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must differ from near)
//
// Returns:
//   - mgl32.Mat4: the projection matrix
//   - error: ErrDegenerateProjection if the parameters would produce a non-finite matrix
func Perspective(fovY, aspect, near, far float32) (mgl32.Mat4, error) {
	switch {
	case isNaN32(fovY), isNaN32(aspect), isNaN32(near), isNaN32(far):
		return mgl32.Mat4{}, errors.Wrapf(ErrDegenerateProjection, "NaN parameter")
	case fovY <= 0 || float64(fovY) >= math.Pi:
		return mgl32.Mat4{}, errors.Wrapf(ErrDegenerateProjection, "fovY %v out of range", fovY)
	case aspect == 0:
		return mgl32.Mat4{}, errors.Wrapf(ErrDegenerateProjection, "zero aspect ratio")
	case near <= 0:
		return mgl32.Mat4{}, errors.Wrapf(ErrDegenerateProjection, "near plane %v must be positive", near)
	case near == far:
		return mgl32.Mat4{}, errors.Wrapf(ErrDegenerateProjection, "near and far planes coincide at %v", near)
	}
	return mgl32.Perspective(fovY, aspect, near, far), nil
}

// LookAt creates a view matrix that positions and orients the camera.
// The resulting matrix transforms world coordinates to view/camera space.
//
// Parameters:
//   - eye: camera position in world space
//   - target: point the camera looks at
//   - up: up vector defining camera orientation (typically 0,1,0)
//
// Returns:
//   - mgl32.Mat4: the view matrix
//   - error: ErrDegenerateView if eye equals target or up is zero or parallel to the view direction
func LookAt(eye, target, up mgl32.Vec3) (mgl32.Mat4, error) {
	forward := target.Sub(eye)
	if forward.Len() == 0 {
		return mgl32.Mat4{}, errors.Wrapf(ErrDegenerateView, "eye and target coincide at %v", eye)
	}
	if up.Len() == 0 {
		return mgl32.Mat4{}, errors.Wrapf(ErrDegenerateView, "zero up vector")
	}
	cross := forward.Normalize().Cross(up.Normalize())
	if float64(cross.Dot(cross)) < parallelEpsilon {
		return mgl32.Mat4{}, errors.Wrapf(ErrDegenerateView, "up %v is parallel to view direction", up)
	}
	return mgl32.LookAtV(eye, target, up), nil
}

// Translate returns m * T(v).
//
// Parameters:
//   - m: the matrix to post-multiply
//   - v: translation vector
//
// Returns:
//   - mgl32.Mat4: the translated matrix
func Translate(m mgl32.Mat4, v mgl32.Vec3) mgl32.Mat4 {
	return m.Mul4(mgl32.Translate3D(v.X(), v.Y(), v.Z()))
}

// Scale returns m * S(v).
//
// Parameters:
//   - m: the matrix to post-multiply
//   - v: per-axis scale factors
//
// Returns:
//   - mgl32.Mat4: the scaled matrix
func Scale(m mgl32.Mat4, v mgl32.Vec3) mgl32.Mat4 {
	return m.Mul4(mgl32.Scale3D(v.X(), v.Y(), v.Z()))
}

// Rotate returns m * R(angle, axis). The axis is normalized; a zero-length axis leaves m unchanged.
//
// Parameters:
//   - m: the matrix to post-multiply
//   - angle: rotation angle in radians (right-handed)
//   - axis: rotation axis
//
// Returns:
//   - mgl32.Mat4: the rotated matrix
func Rotate(m mgl32.Mat4, angle float32, axis mgl32.Vec3) mgl32.Mat4 {
	if axis.Len() == 0 {
		return m
	}
	return m.Mul4(mgl32.HomogRotate3D(angle, axis.Normalize()))
}

// TransformPoint applies m to the point p (w = 1) and returns the homogeneous result.
//
// Parameters:
//   - m: the transform
//   - p: the point
//
// Returns:
//   - mgl32.Vec4: m * (p, 1)
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec4 {
	return m.Mul4x1(p.Vec4(1))
}

func isNaN32(f float32) bool {
	return f != f
}
