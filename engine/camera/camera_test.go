package camera

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/go-gl/mathgl/mgl32"
)

func TestSceneTransformDefaults(t *testing.T) {
	st, err := NewSceneTransform(NewCamera(), ModelMatrix(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}))
	if err != nil {
		t.Fatalf("NewSceneTransform: %v", err)
	}
	if st.Model != mgl32.Ident4() {
		t.Errorf("model = %v, want identity", st.Model)
	}
	want := mgl32.Perspective(math.Pi/4, 1, 0.1, 10).Mul4(mgl32.LookAtV(mgl32.Vec3{0, 0, -4}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}))
	if !st.MVP().ApproxEqualThreshold(want, 1e-6) {
		t.Errorf("MVP = %v, want %v", st.MVP(), want)
	}
}

func TestMVPOrder(t *testing.T) {
	st := SceneTransform{
		Projection: mgl32.Perspective(1, 1.5, 0.1, 10),
		View:       mgl32.Translate3D(0, 0, -5),
		Model:      mgl32.HomogRotate3DY(0.7).Mul4(mgl32.Translate3D(1, 0, 0)),
	}
	p := mgl32.Vec4{0.2, 0.4, 0.1, 1}
	want := st.Projection.Mul4x1(st.View.Mul4x1(st.Model.Mul4x1(p)))
	if got := st.MVP().Mul4x1(p); !got.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("MVP * p = %v, want P(V(M p)) = %v", got, want)
	}
	swapped := common.ComposeMVP(st.Model, st.View, st.Projection)
	if swapped.ApproxEqualThreshold(st.MVP(), 1e-3) {
		t.Error("reversed composition unexpectedly equals P*V*M")
	}
}

func TestDegenerateCamera(t *testing.T) {
	tests := []struct {
		name    string
		options []CameraBuilderOption
		want    error
	}{
		{"near equals far", []CameraBuilderOption{WithPerspective(1, 1, 1)}, common.ErrDegenerateProjection},
		{"zero aspect", []CameraBuilderOption{WithAspect(0)}, common.ErrDegenerateProjection},
		{"zero fov", []CameraBuilderOption{WithPerspective(0, 0.1, 10)}, common.ErrDegenerateProjection},
		{"eye at target", []CameraBuilderOption{WithLookAt(mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})}, common.ErrDegenerateView},
		{"up parallel", []CameraBuilderOption{WithLookAt(mgl32.Vec3{0, 0, -4}, mgl32.Vec3{}, mgl32.Vec3{0, 0, 1})}, common.ErrDegenerateView},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSceneTransform(NewCamera(tt.options...), mgl32.Ident4())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSetAspect(t *testing.T) {
	c := NewCamera()
	c.SetAspect(2)
	if got := c.Lens().Aspect; got != 2 {
		t.Errorf("aspect = %v, want 2", got)
	}
	p, err := c.ProjectionMatrix()
	if err != nil {
		t.Fatalf("ProjectionMatrix: %v", err)
	}
	if math.Abs(float64(p[0]*2-p[5])) > 1e-6 {
		t.Errorf("x scale %v should be half of y scale %v", p[0], p[5])
	}
}
