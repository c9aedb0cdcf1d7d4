package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-flex/engine/mesh"
	"github.com/Carmen-Shannon/oxy-flex/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-flex/engine/skinning"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Node names written by Document.
const (
	NodeSkinned = "skinned"
	NodeBaked   = "baked"
)

// JointNodeName returns the name of the node carrying joint i.
func JointNodeName(i int) string {
	return fmt.Sprintf("joint%d", i)
}

// Document builds a glTF document holding a posed snapshot of the mesh.
//
// The document has two mesh nodes. NodeSkinned carries the rest geometry with JOINTS_0/WEIGHTS_0
// bound to a skin whose joint nodes hold the pose matrices, so a glTF viewer reproduces the
// deformation; the inverse bind matrices are identity because rest positions are already in model
// space. NodeBaked carries the positions skinned on the CPU, for viewers without skin support.
//
// Parameters:
//   - m: the mesh
//   - pose: the joint matrices, at least m.JointCount() of them
//
// Returns:
//   - *gltf.Document: the document
//   - error: an error if the pose has too few joints
func Document(m mesh.Mesh, pose skeleton.Pose) (*gltf.Document, error) {
	if len(pose) < m.JointCount() {
		return nil, errors.Errorf("pose has %d joints, mesh %q references %d", len(pose), m.Label(), m.JointCount())
	}

	n := m.VertexCount()
	rest := make([][3]float32, n)
	baked := make([][3]float32, n)
	joints := make([][4]uint16, n)
	weights := make([][4]float32, n)
	for i, v := range m.Vertices() {
		rest[i] = v.Position
		s := skinning.SkinVertex(v, pose)
		baked[i] = [3]float32{s.X(), s.Y(), s.Z()}
		weights[i] = v.Weights
		for k, j := range v.JointIndices {
			// zero-weight slots point at joint 0 so viewers never touch an unused joint
			if v.Weights[k] != 0 {
				joints[i][k] = uint16(j)
			}
		}
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = "oxy-flex"

	indices := modeler.WriteIndices(doc, m.IndexData())
	skinnedMesh := &gltf.Mesh{
		Name: m.Label(),
		Primitives: []*gltf.Primitive{
			{
				Indices: gltf.Index(indices),
				Attributes: map[string]uint32{
					"POSITION":  modeler.WritePosition(doc, rest),
					"JOINTS_0":  modeler.WriteJoints(doc, joints),
					"WEIGHTS_0": modeler.WriteWeights(doc, weights),
				},
			},
		},
	}
	bakedMesh := &gltf.Mesh{
		Name: m.Label() + " baked",
		Primitives: []*gltf.Primitive{
			{
				Indices: gltf.Index(indices),
				Attributes: map[string]uint32{
					"POSITION": modeler.WritePosition(doc, baked),
				},
			},
		},
	}
	doc.Meshes = append(doc.Meshes, skinnedMesh, bakedMesh)

	skin := &gltf.Skin{Name: "pose"}
	for i, matrix := range pose {
		skin.Joints = append(skin.Joints, uint32(len(doc.Nodes)))
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name:   JointNodeName(i),
			Matrix: [16]float32(matrix),
		})
	}
	doc.Skins = append(doc.Skins, skin)

	doc.Nodes = append(doc.Nodes,
		&gltf.Node{Name: NodeSkinned, Mesh: gltf.Index(0), Skin: gltf.Index(0)},
		&gltf.Node{Name: NodeBaked, Mesh: gltf.Index(1)},
	)
	for iNode := range doc.Nodes {
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(iNode))
	}
	return doc, nil
}

// WriteGLB encodes a posed snapshot of the mesh as binary glTF.
//
// Parameters:
//   - w: the destination
//   - m: the mesh
//   - pose: the joint matrices
//
// Returns:
//   - error: an error if the document cannot be built or encoded
func WriteGLB(w io.Writer, m mesh.Mesh, pose skeleton.Pose) error {
	doc, err := Document(m, pose)
	if err != nil {
		return err
	}
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	if err := encoder.Encode(doc); err != nil {
		return errors.Wrap(err, "encode glb")
	}
	return nil
}

// SaveGLB evaluates the pose at time t and writes the snapshot to path, creating parent
// directories as needed.
//
// Parameters:
//   - path: the output file
//   - m: the mesh
//   - evaluator: the pose evaluator
//   - t: the animation time in seconds
//
// Returns:
//   - error: an error if the file cannot be written
func SaveGLB(path string, m mesh.Mesh, evaluator skeleton.Evaluator, t float64) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteGLB(f, m, evaluator.Evaluate(t)); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
