package shader

import (
	"fmt"
	"strconv"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/gogpu/naga"
)

// Reflection is the interface of one shader stage as recovered from its WGSL source:
// the entry point, the vertex attributes it consumes, the interstage varyings it reads or writes,
// and the resource bindings it declares. Backends use it to resolve attribute and uniform locations
// by name without a driver-side program object.
type Reflection struct {
	Stage      Stage
	EntryPoint string
	Source     string

	// Attributes are the vertex inputs, sorted by location. Empty for fragment stages.
	Attributes []Attribute

	// Inputs are the fragment stage's interstage inputs. Empty for vertex stages.
	Inputs []Varying

	// Outputs are the vertex stage's interstage outputs. Empty for fragment stages.
	Outputs []Varying

	// Uniforms are the declared resource bindings, sorted by group and binding.
	Uniforms []UniformBinding
}

// Reflect parses WGSL source for the given stage.
//
// Parameters:
//   - source: the WGSL source, already pre-processed
//   - stage: the stage whose entry point to reflect
//
// Returns:
//   - *Reflection: the reflected stage interface
//   - error: a *common.ShaderCompileError if the entry point is missing or malformed
func Reflect(source string, stage Stage) (*Reflection, error) {
	cleaned := stripComments(source)
	sig, ok := parseEntrySignature(cleaned, stage)
	if !ok {
		return nil, &common.ShaderCompileError{Stage: stage.String(), Diagnostic: fmt.Sprintf("no well-formed @%s entry point", stage)}
	}

	parsed := parseStructBlocks(cleaned)
	structs := make(map[string]parsedStruct, len(parsed))
	for _, ps := range parsed {
		structs[ps.name] = ps
	}

	r := &Reflection{
		Stage:      stage,
		EntryPoint: sig.name,
		Source:     source,
		Uniforms:   parseUniformBindings(cleaned, parsed),
	}

	var params []parsedField
	for _, p := range parseFields(sig.params) {
		params = append(params, locatedFields(p, structs)...)
	}

	switch stage {
	case StageVertex:
		for _, f := range params {
			components, known := wgslVertexComponentMap[canonicalType(f.typeName)]
			if !known {
				return nil, &common.ShaderCompileError{
					Stage:      stage.String(),
					Diagnostic: fmt.Sprintf("vertex input %q has unsupported type %s", f.name, f.typeName),
				}
			}
			r.Attributes = append(r.Attributes, Attribute{
				Name:       f.name,
				Location:   f.location,
				TypeName:   canonicalType(f.typeName),
				Components: components,
			})
		}
		for _, f := range parseReturnFields(sig.returnType, structs) {
			r.Outputs = append(r.Outputs, Varying{Name: f.name, Location: f.location, TypeName: canonicalType(f.typeName)})
		}
	case StageFragment:
		for _, f := range params {
			r.Inputs = append(r.Inputs, Varying{Name: f.name, Location: f.location, TypeName: canonicalType(f.typeName)})
		}
	}

	seen := make(map[int]string, len(r.Attributes))
	for _, a := range r.Attributes {
		if prev, dup := seen[a.Location]; dup {
			return nil, &common.ShaderCompileError{
				Stage:      stage.String(),
				Diagnostic: fmt.Sprintf("attributes %q and %q share location %d", prev, a.Name, a.Location),
			}
		}
		seen[a.Location] = a.Name
	}
	return r, nil
}

// Attribute looks up a vertex input by name.
//
// Parameters:
//   - name: the attribute name as declared in WGSL
//
// Returns:
//   - Attribute: the attribute
//   - bool: false if the stage declares no such attribute
func (r *Reflection) Attribute(name string) (Attribute, bool) {
	for _, a := range r.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Uniform looks up a uniform value by name. Array elements are addressed as "name[i]";
// a bare array name addresses element 0.
//
// Parameters:
//   - name: the uniform name, optionally with an element index
//
// Returns:
//   - UniformSlot: the binding and byte range of the value
//   - bool: false if the name is unknown or the index is out of range
func (r *Reflection) Uniform(name string) (UniformSlot, bool) {
	m := uniformNameRegex.FindStringSubmatch(name)
	if m == nil {
		return UniformSlot{}, false
	}
	for _, b := range r.Uniforms {
		if b.Name != m[1] {
			continue
		}
		slot := UniformSlot{Name: name, Group: b.Group, Binding: b.Binding, Size: b.ElementSize, TypeName: b.TypeName}
		if elem, _, isArray := splitArrayType(b.TypeName); isArray {
			slot.TypeName = elem
		}
		if m[2] == "" {
			return slot, true
		}
		idx, err := strconv.Atoi(m[2])
		if err != nil || b.ArrayLength == 0 || idx >= b.ArrayLength {
			return UniformSlot{}, false
		}
		slot.Offset = uint64(idx) * b.Stride
		return slot, true
	}
	return UniformSlot{}, false
}

// Link checks that a vertex and a fragment stage form a valid program: every fragment input must be
// written by the vertex stage at the same location with the same type, and bindings declared by both
// stages at the same group and binding must agree on name and type.
//
// Parameters:
//   - vs: the reflected vertex stage
//   - fs: the reflected fragment stage
//
// Returns:
//   - error: a *common.LinkError describing the first mismatch, or nil
func Link(vs, fs *Reflection) error {
	if vs.Stage != StageVertex || fs.Stage != StageFragment {
		return &common.LinkError{Diagnostic: fmt.Sprintf("expected vertex and fragment stages, got %s and %s", vs.Stage, fs.Stage)}
	}
	outputs := make(map[int]Varying, len(vs.Outputs))
	for _, o := range vs.Outputs {
		outputs[o.Location] = o
	}
	for _, in := range fs.Inputs {
		out, ok := outputs[in.Location]
		if !ok {
			return &common.LinkError{Diagnostic: fmt.Sprintf("fragment input %q at location %d is not written by the vertex stage", in.Name, in.Location)}
		}
		if out.TypeName != in.TypeName {
			return &common.LinkError{Diagnostic: fmt.Sprintf("location %d is %s in the vertex stage but %s in the fragment stage", in.Location, out.TypeName, in.TypeName)}
		}
	}
	for _, fu := range fs.Uniforms {
		for _, vu := range vs.Uniforms {
			if vu.Group == fu.Group && vu.Binding == fu.Binding && (vu.Name != fu.Name || vu.TypeName != fu.TypeName) {
				return &common.LinkError{Diagnostic: fmt.Sprintf("binding (%d, %d) is %s %s in the vertex stage but %s %s in the fragment stage",
					vu.Group, vu.Binding, vu.Name, vu.TypeName, fu.Name, fu.TypeName)}
			}
		}
	}
	return nil
}

// Validate runs the WGSL front end over the source, reporting syntax and type errors the
// reflection pass does not detect.
//
// Parameters:
//   - source: the WGSL source, already pre-processed
//   - stage: the stage the source is compiled for, used in the error
//
// Returns:
//   - error: a *common.ShaderCompileError carrying the compiler diagnostic, or nil
func Validate(source string, stage Stage) error {
	if _, err := naga.Compile(source); err != nil {
		return &common.ShaderCompileError{Stage: stage.String(), Diagnostic: err.Error()}
	}
	return nil
}
