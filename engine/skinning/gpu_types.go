package skinning

import (
	_ "embed"
	"fmt"
	"strconv"

	"github.com/Carmen-Shannon/oxy-flex/engine/mesh"
	"github.com/Carmen-Shannon/oxy-flex/engine/renderer/shader"
	"github.com/pkg/errors"
)

// vertexSource is the skinning vertex stage before pre-processing.
//
//go:embed assets/skinning_vertex.wgsl
var vertexSource string

// fragmentSource is the weight-gradient fragment stage before pre-processing.
//
//go:embed assets/skinning_fragment.wgsl
var fragmentSource string

// RootColor and TipColor are the linear RGB endpoints of the fragment gradient, blended by the
// influence of joint 1. The software backend shades with the same values.
var (
	RootColor = [3]float32{0.95, 0.55, 0.15}
	TipColor  = [3]float32{0.2, 0.45, 0.95}
)

// ShaderSources returns the skinning program with the joint matrix array sized for jointCount.
//
// Parameters:
//   - jointCount: the number of joint matrices the program declares, at least 1
//
// Returns:
//   - vertex: the vertex stage WGSL
//   - fragment: the fragment stage WGSL
//   - err: an error if jointCount is not positive or pre-processing fails
func ShaderSources(jointCount int) (vertex, fragment string, err error) {
	if jointCount < 1 {
		return "", "", errors.Errorf("joint count must be positive, got %d", jointCount)
	}
	pp := shader.NewPreProcessor(
		shader.WithInclude("skinned_vertex", mesh.GPUSkinnedVertexSource),
		shader.WithDefine("JOINT_COUNT", strconv.Itoa(jointCount)),
		shader.WithDefine("ROOT_COLOR", wgslVec3(RootColor)),
		shader.WithDefine("TIP_COLOR", wgslVec3(TipColor)),
	)
	if vertex, err = pp.Process(vertexSource); err != nil {
		return "", "", errors.Wrap(err, "pre-process vertex shader")
	}
	if !declaresUniforms(pp.Declarations(), UniformMVP, UniformJointMatrix) {
		return "", "", errors.Errorf("vertex shader must declare %s and %s", UniformMVP, UniformJointMatrix)
	}
	if fragment, err = pp.Process(fragmentSource); err != nil {
		return "", "", errors.Wrap(err, "pre-process fragment shader")
	}
	return vertex, fragment, nil
}

// declaresUniforms reports whether every name has a uniform group directive.
func declaresUniforms(directives []shader.Directive, names ...string) bool {
	declared := make(map[string]bool, len(directives))
	for _, d := range directives {
		if d.Space == "uniform" {
			declared[d.Name] = true
		}
	}
	for _, name := range names {
		if !declared[name] {
			return false
		}
	}
	return true
}

func wgslVec3(c [3]float32) string {
	f := func(v float32) string { return strconv.FormatFloat(float64(v), 'f', -1, 32) }
	return fmt.Sprintf("%s, %s, %s", f(c[0]), f(c[1]), f(c[2]))
}
