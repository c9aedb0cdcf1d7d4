package skinning

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/Carmen-Shannon/oxy-flex/engine/mesh"
	"github.com/Carmen-Shannon/oxy-flex/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// Uniform names shared by the render loop and the skinning shader program.
const (
	UniformMVP         = "mvp"
	UniformJointMatrix = "jointMatrix"
)

// JointUniformName returns the uniform name addressing joint i of the joint matrix array.
//
// Parameters:
//   - i: the joint index
//
// Returns:
//   - string: the element name, e.g. "jointMatrix[1]"
func JointUniformName(i int) string {
	return fmt.Sprintf("%s[%d]", UniformJointMatrix, i)
}

// SkinPosition evaluates linear blend skinning for one vertex:
//
//	sum over k of weights[k] * (pose[joints[k]] * (rest, 1))
//
// Slots with a zero weight are skipped entirely, so an unused or non-finite joint matrix cannot
// perturb the result. A vertex with a single full weight yields exactly pose[j] * rest.
//
// Parameters:
//   - rest: the rest position in model space
//   - joints: the influencing joint indices
//   - weights: the weight of each slot
//   - pose: the joint matrices; every joint index with a non-zero weight must be in range
//
// Returns:
//   - mgl32.Vec4: the skinned homogeneous position
func SkinPosition(rest mgl32.Vec3, joints [mesh.MaxInfluences]uint32, weights [mesh.MaxInfluences]float32, pose skeleton.Pose) mgl32.Vec4 {
	var skinned mgl32.Vec4
	for k, w := range weights {
		if w == 0 {
			continue
		}
		skinned = skinned.Add(common.TransformPoint(pose[joints[k]], rest).Mul(w))
	}
	return skinned
}

// ClipPosition maps a skinned model-space position to clip space.
//
// Parameters:
//   - mvp: the model-view-projection matrix
//   - skinned: the skinned homogeneous position
//
// Returns:
//   - mgl32.Vec4: the clip-space position
func ClipPosition(mvp mgl32.Mat4, skinned mgl32.Vec4) mgl32.Vec4 {
	return mvp.Mul4x1(skinned)
}

// SkinVertex applies SkinPosition to a mesh vertex.
//
// Parameters:
//   - v: the vertex
//   - pose: the joint matrices
//
// Returns:
//   - mgl32.Vec4: the skinned homogeneous position
func SkinVertex(v mesh.Vertex, pose skeleton.Pose) mgl32.Vec4 {
	return SkinPosition(mgl32.Vec3(v.Position), v.JointIndices, v.Weights, pose)
}
