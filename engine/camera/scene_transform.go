package camera

import (
	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// SceneTransform is the fixed transform state of a scene with a single object: the camera
// projection and view, and the object's model matrix. It is set up once and composed into the
// model-view-projection matrix once.
type SceneTransform struct {
	Projection mgl32.Mat4
	View       mgl32.Mat4
	Model      mgl32.Mat4
}

// NewSceneTransform captures the camera's current matrices together with a model matrix.
//
// Parameters:
//   - cam: the camera providing projection and view
//   - model: the object placement matrix
//
// Returns:
//   - SceneTransform: the transform state
//   - error: an error if the camera configuration is degenerate
func NewSceneTransform(cam Camera, model mgl32.Mat4) (SceneTransform, error) {
	projection, err := cam.ProjectionMatrix()
	if err != nil {
		return SceneTransform{}, errors.Wrap(err, "camera projection")
	}
	view, err := cam.ViewMatrix()
	if err != nil {
		return SceneTransform{}, errors.Wrap(err, "camera view")
	}
	return SceneTransform{Projection: projection, View: view, Model: model}, nil
}

// ModelMatrix builds a placement matrix as T(translation) * S(scale).
//
// Parameters:
//   - translation: the object position
//   - scale: per-axis scale
//
// Returns:
//   - mgl32.Mat4: the model matrix
func ModelMatrix(translation, scale mgl32.Vec3) mgl32.Mat4 {
	return common.Scale(common.Translate(common.Identity(), translation), scale)
}

// MVP composes Projection * View * Model.
func (s SceneTransform) MVP() mgl32.Mat4 {
	return common.ComposeMVP(s.Projection, s.View, s.Model)
}
