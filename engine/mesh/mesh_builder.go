package mesh

// MeshBuilderOption is a functional option for configuring a Mesh via Load.
type MeshBuilderOption func(*mesh)

// WithLabel is an option builder that sets the debug label of the Mesh.
//
// Parameters:
//   - label: the mesh label used in logs and validation errors
//
// Returns:
//   - MeshBuilderOption: a function that applies the label option to a mesh
func WithLabel(label string) MeshBuilderOption {
	return func(m *mesh) {
		m.label = label
	}
}

// WithJointCount is an option builder that fixes the number of joints the Mesh may reference.
// Without it the joint count is inferred as the largest referenced joint index plus one.
//
// Parameters:
//   - count: the joint count
//
// Returns:
//   - MeshBuilderOption: a function that applies the joint count option to a mesh
func WithJointCount(count int) MeshBuilderOption {
	return func(m *mesh) {
		m.jointCount = count
	}
}

// WithWeightTolerance is an option builder that overrides the allowed deviation of a vertex's weight sum from 1.
//
// Parameters:
//   - tolerance: the allowed absolute deviation
//
// Returns:
//   - MeshBuilderOption: a function that applies the tolerance option to a mesh
func WithWeightTolerance(tolerance float64) MeshBuilderOption {
	return func(m *mesh) {
		if tolerance > 0 {
			m.weightTolerance = tolerance
		}
	}
}
