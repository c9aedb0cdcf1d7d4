package mesh

import (
	"iter"
	"math"

	"github.com/Carmen-Shannon/oxy-flex/common"
)

// mesh is the implementation of the Mesh interface.
type mesh struct {
	label           string
	jointCount      int
	weightTolerance float64
	vertices        []Vertex
	triangles       []Triangle
}

// Mesh defines the interface for an immutable skinned triangle mesh.
// A Mesh binds rest-pose geometry to per-vertex joint influences and is validated when it is loaded,
// so every accessor can assume the partition-of-unity and index-range invariants hold.
type Mesh interface {
	// Label retrieves the debug label of the mesh.
	//
	// Returns:
	//   - string: the mesh label
	Label() string

	// VertexCount returns the number of vertices in the mesh.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// TriangleCount returns the number of triangles in the mesh.
	//
	// Returns:
	//   - int: the triangle count
	TriangleCount() int

	// JointCount returns the number of joints the mesh may reference.
	// Every joint index in the mesh is less than this value.
	//
	// Returns:
	//   - int: the joint count
	JointCount() int

	// Vertex retrieves a copy of the vertex at index i.
	//
	// Parameters:
	//   - i: the vertex index, in [0, VertexCount())
	//
	// Returns:
	//   - Vertex: the vertex attributes
	Vertex(i int) Vertex

	// Triangle retrieves the vertex indices of triangle i.
	//
	// Parameters:
	//   - i: the triangle index, in [0, TriangleCount())
	//
	// Returns:
	//   - Triangle: the three vertex indices
	Triangle(i int) Triangle

	// Vertices iterates over the vertices in order.
	//
	// Returns:
	//   - iter.Seq2[int, Vertex]: index and vertex pairs
	Vertices() iter.Seq2[int, Vertex]

	// Triangles iterates over the triangles in order.
	//
	// Returns:
	//   - iter.Seq2[int, Triangle]: index and triangle pairs
	Triangles() iter.Seq2[int, Triangle]

	// Attributes flattens the vertex data into one packed stream per attribute,
	// in the order position, jointIndex, weight.
	//
	// Returns:
	//   - []Attribute: the attribute streams
	Attributes() []Attribute

	// IndexData returns the flattened triangle indices.
	//
	// Returns:
	//   - []uint32: three indices per triangle
	IndexData() []uint32
}

var _ Mesh = &mesh{}

// Load validates raw attribute arrays and builds an immutable Mesh from them.
// All slices are copied; the caller may reuse them afterwards.
//
// Validation checks that the attribute slices share a length, that indices form whole triangles
// referencing existing vertices, that weights are finite, non-negative, and sum to 1 within the
// weight tolerance, and that every joint index is below the joint count.
//
// Parameters:
//   - positions: rest-pose positions in model space
//   - indices: triangle vertex indices, three per triangle
//   - jointIndices: up to four influencing joints per vertex
//   - weights: the influence weight of each joint slot
//   - options: functional options such as WithJointCount
//
// Returns:
//   - Mesh: the loaded mesh
//   - error: a *common.ValidationError listing every offending vertex and triangle
func Load(positions [][3]float32, indices []uint32, jointIndices [][MaxInfluences]uint32, weights [][MaxInfluences]float32, options ...MeshBuilderOption) (Mesh, error) {
	m := &mesh{
		label:           "mesh",
		weightTolerance: DefaultWeightTolerance,
	}
	for _, opt := range options {
		opt(m)
	}

	verr := common.NewValidationError("invalid mesh " + m.label)
	if len(positions) == 0 {
		verr.Add("mesh has no vertices")
	}
	if len(jointIndices) != len(positions) || len(weights) != len(positions) {
		verr.Add("attribute length mismatch: %d positions, %d joint indices, %d weights",
			len(positions), len(jointIndices), len(weights))
		return nil, verr
	}
	if len(indices)%3 != 0 {
		verr.Add("index count %d is not a multiple of 3", len(indices))
	}

	if m.jointCount <= 0 {
		for _, joints := range jointIndices {
			for _, j := range joints {
				m.jointCount = max(m.jointCount, int(j)+1)
			}
		}
	}

	m.vertices = make([]Vertex, len(positions))
	for i := range positions {
		v := Vertex{Position: positions[i], JointIndices: jointIndices[i], Weights: weights[i]}
		m.validateVertex(i, v, verr)
		m.vertices[i] = v
	}

	m.triangles = make([]Triangle, len(indices)/3)
	for t := range m.triangles {
		tri := Triangle{indices[t*3], indices[t*3+1], indices[t*3+2]}
		for _, idx := range tri {
			if int(idx) >= len(positions) {
				verr.AddTriangle(t, "index %d out of range for %d vertices", idx, len(positions))
			}
		}
		m.triangles[t] = tri
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *mesh) validateVertex(i int, v Vertex, verr *common.ValidationError) {
	var sum float64
	for k, w := range v.Weights {
		f := float64(w)
		switch {
		case math.IsNaN(f) || math.IsInf(f, 0):
			verr.AddVertex(i, "weight %d is not finite", k)
			return
		case f < 0:
			verr.AddVertex(i, "weight %d is negative (%v)", k, w)
		}
		sum += f
		if int(v.JointIndices[k]) >= m.jointCount {
			verr.AddVertex(i, "joint index %d in slot %d exceeds joint count %d", v.JointIndices[k], k, m.jointCount)
		}
	}
	if math.Abs(sum-1) > m.weightTolerance {
		verr.AddVertex(i, "weights sum to %v, want 1", sum)
	}
}

func (m *mesh) Label() string {
	return m.label
}

func (m *mesh) VertexCount() int {
	return len(m.vertices)
}

func (m *mesh) TriangleCount() int {
	return len(m.triangles)
}

func (m *mesh) JointCount() int {
	return m.jointCount
}

func (m *mesh) Vertex(i int) Vertex {
	return m.vertices[i]
}

func (m *mesh) Triangle(i int) Triangle {
	return m.triangles[i]
}

func (m *mesh) Vertices() iter.Seq2[int, Vertex] {
	return func(yield func(int, Vertex) bool) {
		for i, v := range m.vertices {
			if !yield(i, v) {
				return
			}
		}
	}
}

func (m *mesh) Triangles() iter.Seq2[int, Triangle] {
	return func(yield func(int, Triangle) bool) {
		for i, t := range m.triangles {
			if !yield(i, t) {
				return
			}
		}
	}
}

func (m *mesh) Attributes() []Attribute {
	n := len(m.vertices)
	position := Attribute{Name: AttributePosition, Components: 3, Data: make([]float32, 0, n*3)}
	joint := Attribute{Name: AttributeJointIndex, Components: MaxInfluences, Data: make([]float32, 0, n*MaxInfluences)}
	weight := Attribute{Name: AttributeWeight, Components: MaxInfluences, Data: make([]float32, 0, n*MaxInfluences)}
	for _, v := range m.vertices {
		position.Data = append(position.Data, v.Position[:]...)
		for k := range MaxInfluences {
			joint.Data = append(joint.Data, float32(v.JointIndices[k]))
		}
		weight.Data = append(weight.Data, v.Weights[:]...)
	}
	return []Attribute{position, joint, weight}
}

func (m *mesh) IndexData() []uint32 {
	out := make([]uint32, 0, len(m.triangles)*3)
	for _, t := range m.triangles {
		out = append(out, t[:]...)
	}
	return out
}
