package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-flex/common"
)

const testVertex = `
struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) color: vec4f,
};

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) color: vec4<f32>,
};

/* block comment with @group(9) @binding(9) var<uniform> ghost: f32; */
@group(0) @binding(0) var<uniform> mvp: mat4x4<f32>;
@group(0) @binding(1) var<uniform> palette: array<mat4x4<f32>, 3>;

@vertex
fn main_vs(input: VertexInput, @builtin(vertex_index) idx: u32) -> VertexOutput {
    var output: VertexOutput;
    output.clip = mvp * vec4<f32>(input.position, 1.0);
    output.color = input.color;
    return output;
}
`

const testFragment = `
@fragment
fn main_fs(@location(0) color: vec4<f32>) -> @location(0) vec4<f32> {
    return color;
}
`

func TestReflectVertex(t *testing.T) {
	r, err := Reflect(testVertex, StageVertex)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if r.EntryPoint != "main_vs" {
		t.Errorf("entry point = %q", r.EntryPoint)
	}
	if len(r.Attributes) != 2 {
		t.Fatalf("attributes = %+v", r.Attributes)
	}
	pos, ok := r.Attribute("position")
	if !ok || pos.Location != 0 || pos.Components != 3 || pos.TypeName != "vec3f" {
		t.Errorf("position = %+v", pos)
	}
	if len(r.Outputs) != 1 || r.Outputs[0].Location != 0 || r.Outputs[0].TypeName != "vec4f" {
		t.Errorf("outputs = %+v", r.Outputs)
	}
	if len(r.Uniforms) != 2 {
		t.Fatalf("uniforms = %+v", r.Uniforms)
	}
	if r.Uniforms[1].ArrayLength != 3 || r.Uniforms[1].Size != 192 || r.Uniforms[1].Stride != 64 {
		t.Errorf("palette binding = %+v", r.Uniforms[1])
	}
}

func TestReflectUniformLookup(t *testing.T) {
	r, err := Reflect(testVertex, StageVertex)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	tests := []struct {
		name    string
		ok      bool
		binding int
		offset  uint64
	}{
		{"mvp", true, 0, 0},
		{"palette", true, 1, 0},
		{"palette[0]", true, 1, 0},
		{"palette[2]", true, 1, 128},
		{"palette[3]", false, 0, 0},
		{"mvp[1]", false, 0, 0},
		{"ghost", false, 0, 0},
		{"palette[x]", false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, ok := r.Uniform(tt.name)
			if ok != tt.ok {
				t.Fatalf("found = %v, want %v", ok, tt.ok)
			}
			if ok && (slot.Binding != tt.binding || slot.Offset != tt.offset || slot.Size != 64) {
				t.Errorf("slot = %+v", slot)
			}
		})
	}
}

func TestLink(t *testing.T) {
	vs, err := Reflect(testVertex, StageVertex)
	if err != nil {
		t.Fatalf("Reflect vertex: %v", err)
	}
	fs, err := Reflect(testFragment, StageFragment)
	if err != nil {
		t.Fatalf("Reflect fragment: %v", err)
	}
	if err := Link(vs, fs); err != nil {
		t.Fatalf("Link: %v", err)
	}

	mismatched, err := Reflect(strings.Replace(testFragment, "@location(0) color: vec4<f32>", "@location(1) color: vec4<f32>", 1), StageFragment)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	var linkErr *common.LinkError
	if err := Link(vs, mismatched); !errors.As(err, &linkErr) {
		t.Errorf("Link with missing varying = %v, want *common.LinkError", err)
	}

	retyped, err := Reflect(strings.Replace(testFragment, "color: vec4<f32>", "color: vec3<f32>", 1), StageFragment)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if err := Link(vs, retyped); !errors.As(err, &linkErr) {
		t.Errorf("Link with type mismatch = %v, want *common.LinkError", err)
	}

	if err := Link(fs, vs); !errors.As(err, &linkErr) {
		t.Errorf("Link with swapped stages = %v, want *common.LinkError", err)
	}
}

func TestReflectErrors(t *testing.T) {
	var compileErr *common.ShaderCompileError
	if _, err := Reflect(testFragment, StageVertex); !errors.As(err, &compileErr) {
		t.Errorf("missing entry point = %v, want *common.ShaderCompileError", err)
	}
	bad := strings.Replace(testVertex, "color: vec4f", "color: mat4x4<f32>", 1)
	if _, err := Reflect(bad, StageVertex); !errors.As(err, &compileErr) {
		t.Errorf("matrix vertex input = %v, want *common.ShaderCompileError", err)
	}
	dup := strings.Replace(testVertex, "@location(1) color: vec4f", "@location(0) color: vec4f", 1)
	if _, err := Reflect(dup, StageVertex); !errors.As(err, &compileErr) {
		t.Errorf("duplicate location = %v, want *common.ShaderCompileError", err)
	}
}

func TestValidateRejectsSyntaxErrors(t *testing.T) {
	var compileErr *common.ShaderCompileError
	err := Validate("@vertex fn vs_main( -> vec4<f32> { return }", StageVertex)
	if !errors.As(err, &compileErr) {
		t.Fatalf("Validate = %v, want *common.ShaderCompileError", err)
	}
	if compileErr.Stage != StageVertex.String() || compileErr.Diagnostic == "" {
		t.Errorf("compile error = %+v", compileErr)
	}
}

func TestPreProcessor(t *testing.T) {
	pp := NewPreProcessor(
		WithInclude("vertex", "struct VertexInput { @location(0) position: vec3<f32>, };"),
		WithDefine("N", "4"),
	)
	src := strings.Join([]string{
		"//@oxy:include vertex",
		"//@oxy:group 0 1 uniform palette array<mat4x4<f32>,${N}>",
		"// ordinary comment",
	}, "\n")
	out, err := pp.Process(src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(out, "struct VertexInput") {
		t.Errorf("include not expanded:\n%s", out)
	}
	if !strings.Contains(out, "@group(0) @binding(1) var<uniform> palette: array<mat4x4<f32>,4>;") {
		t.Errorf("group not generated:\n%s", out)
	}
	if d := pp.Declarations(); len(d) != 1 || d[0].Binding != 1 || d[0].Name != "palette" || d[0].Type != "array<mat4x4<f32>,${N}>" {
		t.Errorf("declarations = %+v", d)
	}

	for _, bad := range []string{
		"//@oxy:include missing",
		"//@oxy:group 0 x uniform a f32",
		"//@oxy:group 0 0 private a f32",
		"//@oxy:unknown",
		"let x = ${UNDEFINED};",
	} {
		if _, err := pp.Process(bad); err == nil {
			t.Errorf("Process(%q) succeeded", bad)
		}
	}
}

func TestCanonicalType(t *testing.T) {
	tests := map[string]string{
		"vec4<f32>":              "vec4f",
		"vec3f":                  "vec3f",
		"mat4x4<f32>":            "mat4x4f",
		"array<mat4x4<f32>, 12>": "array<mat4x4f,12>",
		"array< vec2<u32> >":     "array<vec2u>",
	}
	for in, want := range tests {
		if got := canonicalType(in); got != want {
			t.Errorf("canonicalType(%q) = %q, want %q", in, got, want)
		}
	}
}
