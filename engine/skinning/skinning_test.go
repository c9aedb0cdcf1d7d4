package skinning

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/Carmen-Shannon/oxy-flex/engine/mesh"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-flex/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

func TestSkinPositionSingleInfluenceIsExact(t *testing.T) {
	rest := mgl32.Vec3{0.3, -0.7, 0.25}
	j0 := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DY(0.4))
	others := []mgl32.Mat4{
		mgl32.Ident4(),
		mgl32.Scale3D(5, 5, 5),
		{},
	}
	want := j0.Mul4x1(rest.Vec4(1))
	for _, j1 := range others {
		got := SkinPosition(rest, [4]uint32{0, 1, 0, 0}, [4]float32{1, 0, 0, 0}, skeleton.Pose{j0, j1})
		if got != want {
			t.Errorf("with jointMatrix[1]=%v got %v, want %v", j1, got, want)
		}
	}
}

func TestSkinPositionZeroWeightIgnoresNaN(t *testing.T) {
	nan := float32(math.NaN())
	var poisoned mgl32.Mat4
	for i := range poisoned {
		poisoned[i] = nan
	}
	rest := mgl32.Vec3{-0.5, 0, 0}
	got := SkinPosition(rest, [4]uint32{0, 1, 0, 0}, [4]float32{1, 0, 0, 0}, skeleton.Pose{mgl32.Ident4(), poisoned})
	if got != rest.Vec4(1) {
		t.Errorf("got %v, want rest position %v", got, rest.Vec4(1))
	}
}

func TestSkinPositionBlendsPositionsNotMatrices(t *testing.T) {
	rest := mgl32.Vec3{1, 0, 0}
	a := mgl32.HomogRotate3DZ(math.Pi / 2)
	b := mgl32.HomogRotate3DZ(-math.Pi / 2)
	got := SkinPosition(rest, [4]uint32{0, 1, 0, 0}, [4]float32{0.5, 0.5, 0, 0}, skeleton.Pose{a, b})
	want := a.Mul4x1(rest.Vec4(1)).Mul(0.5).Add(b.Mul4x1(rest.Vec4(1)).Mul(0.5))
	if !got.ApproxEqualThreshold(want, 1e-6) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestStripEndToEnd(t *testing.T) {
	m, err := mesh.NewStrip()
	if err != nil {
		t.Fatalf("NewStrip: %v", err)
	}
	ev := skeleton.NewOscillator(2)

	rest := ev.Evaluate(0)
	for i, v := range m.Vertices() {
		got := SkinVertex(v, rest)
		if !got.ApproxEqualThreshold(mgl32.Vec3(v.Position).Vec4(1), 1e-6) {
			t.Errorf("vertex %d at angle 0 = %v, want rest %v", i, got, v.Position)
		}
	}

	// t = pi/2 gives angle pi/4 for joint 1.
	bent := ev.Evaluate(math.Pi / 2)
	rot := mgl32.HomogRotate3DZ(math.Pi / 4)
	for _, i := range []int{8, 9} {
		v := m.Vertex(i)
		got := SkinVertex(v, bent)
		want := rot.Mul4x1(mgl32.Vec3(v.Position).Vec4(1))
		if !got.ApproxEqualThreshold(want, 1e-3) {
			t.Errorf("top vertex %d = %v, want %v", i, got, want)
		}
	}
	for _, i := range []int{0, 1} {
		v := m.Vertex(i)
		if got := SkinVertex(v, bent); got != mgl32.Vec3(v.Position).Vec4(1) {
			t.Errorf("root vertex %d moved to %v", i, got)
		}
	}
}

func TestClipPositionUsesMVP(t *testing.T) {
	proj, err := common.Perspective(math.Pi/4, 1, 0.1, 10)
	if err != nil {
		t.Fatalf("Perspective: %v", err)
	}
	view, err := common.LookAt(mgl32.Vec3{0, 0, -4}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	if err != nil {
		t.Fatalf("LookAt: %v", err)
	}
	mvp := common.ComposeMVP(proj, view, mgl32.Ident4())
	clip := ClipPosition(mvp, mgl32.Vec4{0, 0, 0, 1})
	ndc := clip.Vec3().Mul(1 / clip.W())
	if math.Abs(float64(ndc.X())) > 1e-6 || math.Abs(float64(ndc.Y())) > 1e-6 {
		t.Errorf("origin should project to the viewport centre, got %v", ndc)
	}
	if ndc.Z() <= -1 || ndc.Z() >= 1 {
		t.Errorf("origin depth %v outside clip range", ndc.Z())
	}
}

func TestSkinnerMatchesReference(t *testing.T) {
	m, err := mesh.NewStrip(mesh.WithRows(200))
	if err != nil {
		t.Fatalf("NewStrip: %v", err)
	}
	pose := skeleton.NewOscillator(2).Evaluate(1.1)
	mvp := mgl32.Perspective(0.8, 1, 0.1, 10)

	for _, tt := range []struct {
		name    string
		options []SkinnerOption
	}{
		{"inline", []SkinnerOption{WithWorkers(1)}},
		{"pooled", []SkinnerOption{WithWorkers(4), WithChunkSize(16)}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSkinner(tt.options...)
			out := make([]mgl32.Vec4, m.VertexCount())
			if err := s.Skin(m, pose, &mvp, out); err != nil {
				t.Fatalf("Skin: %v", err)
			}
			for i, v := range m.Vertices() {
				if want := ClipPosition(mvp, SkinVertex(v, pose)); out[i] != want {
					t.Fatalf("vertex %d = %v, want %v", i, out[i], want)
				}
			}
		})
	}
}

func TestSkinnerRejectsShortInputs(t *testing.T) {
	m, err := mesh.NewStrip()
	if err != nil {
		t.Fatalf("NewStrip: %v", err)
	}
	s := NewSkinner()
	if err := s.Skin(m, skeleton.NewRestPose(2).Evaluate(0), nil, make([]mgl32.Vec4, 3)); err == nil {
		t.Error("short output accepted")
	}
	if err := s.Skin(m, skeleton.NewRestPose(1).Evaluate(0), nil, make([]mgl32.Vec4, 10)); err == nil {
		t.Error("short pose accepted")
	}
}

func TestShaderSourcesHonourNamingContract(t *testing.T) {
	vs, fs, err := ShaderSources(2)
	if err != nil {
		t.Fatalf("ShaderSources: %v", err)
	}
	if strings.Contains(vs, "${") || strings.Contains(fs, "${") {
		t.Fatal("unresolved placeholder in program")
	}
	vr, err := shader.Reflect(vs, shader.StageVertex)
	if err != nil {
		t.Fatalf("Reflect vertex: %v", err)
	}
	fr, err := shader.Reflect(fs, shader.StageFragment)
	if err != nil {
		t.Fatalf("Reflect fragment: %v", err)
	}
	if err := shader.Link(vr, fr); err != nil {
		t.Fatalf("Link: %v", err)
	}

	for name, components := range map[string]int{
		mesh.AttributePosition:   3,
		mesh.AttributeJointIndex: 4,
		mesh.AttributeWeight:     4,
	} {
		a, ok := vr.Attribute(name)
		if !ok || a.Components != components {
			t.Errorf("attribute %s = %+v (found %v)", name, a, ok)
		}
	}
	if _, ok := vr.Uniform(UniformMVP); !ok {
		t.Error("mvp uniform missing")
	}
	last, ok := vr.Uniform(JointUniformName(1))
	if !ok || last.Offset != 64 || last.Size != 64 {
		t.Errorf("jointMatrix[1] = %+v (found %v)", last, ok)
	}
	if _, ok := vr.Uniform(JointUniformName(2)); ok {
		t.Error("jointMatrix[2] resolved for a two-joint program")
	}

	_, _, err = ShaderSources(0)
	if err == nil {
		t.Fatal("zero joints accepted")
	}
	if trace := fmt.Sprintf("%+v", err); !strings.Contains(trace, "gpu_types.go") {
		t.Errorf("error carries no stack trace:\n%s", trace)
	}
}

func TestShaderSourcesRequiresJointPalette(t *testing.T) {
	saved := vertexSource
	t.Cleanup(func() { vertexSource = saved })

	var kept []string
	for _, line := range strings.Split(saved, "\n") {
		if !strings.Contains(line, "@oxy:group") || !strings.Contains(line, UniformJointMatrix) {
			kept = append(kept, line)
		}
	}
	vertexSource = strings.Join(kept, "\n")

	_, _, err := ShaderSources(2)
	if err == nil || !strings.Contains(err.Error(), UniformJointMatrix) {
		t.Errorf("ShaderSources without the palette = %v", err)
	}
}
