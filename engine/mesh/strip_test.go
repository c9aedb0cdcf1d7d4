package mesh

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNewStripDefaultMatchesPlank(t *testing.T) {
	m, err := NewStrip()
	if err != nil {
		t.Fatalf("NewStrip: %v", err)
	}

	wantPositions := [][3]float32{
		{-0.5, 0, 0}, {0.5, 0, 0},
		{-0.5, 0.2, 0}, {0.5, 0.2, 0},
		{-0.5, 0.4, 0}, {0.5, 0.4, 0},
		{-0.5, 0.6, 0}, {0.5, 0.6, 0},
		{-0.5, 0.8, 0}, {0.5, 0.8, 0},
	}
	wantIndices := []uint32{0, 1, 3, 0, 3, 2, 2, 3, 5, 2, 5, 4, 4, 5, 7, 4, 7, 6, 6, 7, 9, 6, 9, 8}
	wantRowWeights := [][4]float32{{1, 0, 0, 0}, {0.75, 0.25, 0, 0}, {0.5, 0.5, 0, 0}, {0.25, 0.75, 0, 0}, {0, 1, 0, 0}}

	if m.VertexCount() != 10 || m.TriangleCount() != 8 || m.JointCount() != 2 {
		t.Fatalf("counts = %d vertices, %d triangles, %d joints", m.VertexCount(), m.TriangleCount(), m.JointCount())
	}
	for i, v := range m.Vertices() {
		for c := range 3 {
			if math.Abs(float64(v.Position[c]-wantPositions[i][c])) > 1e-6 {
				t.Errorf("vertex %d position = %v, want %v", i, v.Position, wantPositions[i])
				break
			}
		}
		if v.Weights != wantRowWeights[i/2] {
			t.Errorf("vertex %d weights = %v, want %v", i, v.Weights, wantRowWeights[i/2])
		}
		wantJoints := [4]uint32{0, 1, 0, 0}
		if i < 2 {
			wantJoints = [4]uint32{}
		}
		if v.JointIndices != wantJoints {
			t.Errorf("vertex %d joints = %v, want %v", i, v.JointIndices, wantJoints)
		}
	}
	got := m.IndexData()
	if len(got) != len(wantIndices) {
		t.Fatalf("index count = %d, want %d", len(got), len(wantIndices))
	}
	for i := range got {
		if got[i] != wantIndices[i] {
			t.Fatalf("indices = %v, want %v", got, wantIndices)
		}
	}
}

func TestNewStripOptions(t *testing.T) {
	m, err := NewStrip(WithRows(3), WithWidth(2), WithHeight(1))
	if err != nil {
		t.Fatalf("NewStrip: %v", err)
	}
	if m.VertexCount() != 6 || m.TriangleCount() != 4 {
		t.Fatalf("counts = %d/%d, want 6/4", m.VertexCount(), m.TriangleCount())
	}
	top := m.Vertex(5)
	if top.Position != [3]float32{1, 1, 0} {
		t.Errorf("top right = %v", top.Position)
	}
	if mid := m.Vertex(2).Weights; mid != [4]float32{0.5, 0.5, 0, 0} {
		t.Errorf("middle row weights = %v", mid)
	}

	for _, opts := range [][]StripOption{{WithRows(1)}, {WithHeight(0)}, {WithWidth(-1)}} {
		_, err := NewStrip(opts...)
		if err == nil {
			t.Error("degenerate strip accepted")
			continue
		}
		if trace := fmt.Sprintf("%+v", err); !strings.Contains(trace, "strip.go") {
			t.Errorf("error carries no stack trace:\n%s", trace)
		}
	}
}

func TestNewStripOrigin(t *testing.T) {
	m, err := NewStrip(WithOrigin(mgl32.Vec3{1, -0.4, 2}))
	if err != nil {
		t.Fatalf("NewStrip: %v", err)
	}
	if got := m.Vertex(0).Position; got != [3]float32{0.5, -0.4, 2} {
		t.Errorf("bottom left = %v, want (0.5, -0.4, 2)", got)
	}
	if got := m.Vertex(9).Position; math.Abs(float64(got[1]-0.4)) > 1e-6 || got[0] != 1.5 {
		t.Errorf("top right = %v, want (1.5, 0.4, 2)", got)
	}
}
