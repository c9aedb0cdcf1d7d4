package mesh

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-flex/common"
)

// GPUSkinnedVertexSource is the canonical WGSL definition of the VertexInput struct for skinned meshes.
// Each field is fed from its own vertex buffer; see Mesh.Attributes.
//
//go:embed assets/skinned_vertex.wgsl
var GPUSkinnedVertexSource string

// Vertex attribute names shared by the mesh, the render loop, and the skinning shader program.
const (
	AttributePosition   = "position"
	AttributeJointIndex = "jointIndex"
	AttributeWeight     = "weight"
)

// Attribute is one tightly packed float32 vertex stream ready for upload into its own buffer.
// Joint indices are encoded as floats so every stream shares the float32x* vertex formats.
type Attribute struct {
	Name       string
	Components int
	Data       []float32
}

// Bytes returns a little-endian byte view of the attribute data suitable for GPU upload.
//
// Returns:
//   - []byte: the attribute data as bytes (shares memory with Data)
func (a Attribute) Bytes() []byte {
	return common.SliceToBytes(a.Data)
}

// Stride returns the size in bytes of one element of the attribute.
//
// Returns:
//   - int: Components * 4
func (a Attribute) Stride() int {
	return a.Components * 4
}
