package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field or parameter: optional attributes, name, colon, type.
	fieldRegex = regexp.MustCompile(`^(?:@\w+(?:\([^)]*\))?\s*)*(\w+)\s*:\s*(.+)$`)

	// vertexEntryRegex matches the start of a @vertex function up to its opening parenthesis
	vertexEntryRegex = regexp.MustCompile(`@vertex\s+fn\s+(\w+)\s*\(`)

	// fragmentEntryRegex matches the start of a @fragment function up to its opening parenthesis
	fragmentEntryRegex = regexp.MustCompile(`@fragment\s+fn\s+(\w+)\s*\(`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> mvp: mat4x4<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	// uniformNameRegex splits a uniform lookup name such as "jointMatrix[3]" into base and index
	uniformNameRegex = regexp.MustCompile(`^(\w+)(?:\[(\d+)\])?$`)
)

// entrySignature is the parsed signature of a shader entry point.
type entrySignature struct {
	name       string
	params     string
	returnType string
}

// parseEntrySignature locates the entry point for the stage in comment-free source and extracts
// its parameter list and return type. Parameter lists may contain attribute parentheses.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//   - stage: the stage whose entry point to find
//
// Returns:
//   - entrySignature: the parsed signature
//   - bool: false if no entry point exists or its parameter list is unbalanced
func parseEntrySignature(source string, stage Stage) (entrySignature, bool) {
	re := vertexEntryRegex
	if stage == StageFragment {
		re = fragmentEntryRegex
	}
	loc := re.FindStringSubmatchIndex(source)
	if loc == nil {
		return entrySignature{}, false
	}
	sig := entrySignature{name: source[loc[2]:loc[3]]}

	start, depth, i := loc[1], 1, loc[1]
	for ; i < len(source) && depth > 0; i++ {
		switch source[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	if depth != 0 {
		return entrySignature{}, false
	}
	sig.params = source[start : i-1]

	rest := source[i:]
	brace := strings.IndexByte(rest, '{')
	if brace < 0 {
		return entrySignature{}, false
	}
	ret := strings.TrimSpace(rest[:brace])
	if after, ok := strings.CutPrefix(ret, "->"); ok {
		sig.returnType = strings.TrimSpace(after)
	}
	return sig, true
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseFields(match[2]),
		})
	}
	return structs
}

// parseFields parses a comma-separated list of struct members or function parameters,
// extracting @location and @builtin attributes along with the name and type
//
// Parameters:
//   - body: the member or parameter list
//
// Returns:
//   - []parsedField: all fields found
func parseFields(body string) []parsedField {
	items := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(items))
	for _, item := range items {
		fm := fieldRegex.FindStringSubmatch(item)
		if fm == nil {
			continue
		}
		field := parsedField{
			name:      fm[1],
			typeName:  strings.TrimSpace(fm[2]),
			location:  -1,
			isBuiltin: builtinRegex.MatchString(item),
		}
		if locMatch := locationRegex.FindStringSubmatch(item); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}
		fields = append(fields, field)
	}
	return fields
}

// locatedFields expands a parameter or return value into the @location fields it carries.
// Struct-typed values contribute their @location members; builtins contribute nothing.
func locatedFields(f parsedField, structs map[string]parsedStruct) []parsedField {
	if f.isBuiltin {
		return nil
	}
	if f.location >= 0 {
		return []parsedField{f}
	}
	ps, ok := structs[canonicalType(f.typeName)]
	if !ok {
		return nil
	}
	var out []parsedField
	for _, member := range ps.fields {
		if !member.isBuiltin && member.location >= 0 {
			out = append(out, member)
		}
	}
	return out
}

// parseReturnFields resolves the located values written by an entry point's return type.
// Attributed return types (e.g. "@builtin(position) vec4f") are treated as unnamed values.
func parseReturnFields(returnType string, structs map[string]parsedStruct) []parsedField {
	if returnType == "" {
		return nil
	}
	f := parsedField{name: "", typeName: returnType, location: -1}
	if builtinRegex.MatchString(returnType) {
		return nil
	}
	if locMatch := locationRegex.FindStringSubmatch(returnType); locMatch != nil {
		f.location, _ = strconv.Atoi(locMatch[1])
		f.typeName = strings.TrimSpace(returnType[strings.LastIndex(returnType, ")")+1:])
	}
	return locatedFields(f, structs)
}

// parseUniformBindings extracts all @group(N) @binding(M) resource declarations from WGSL
// source, resolving byte sizes for buffer bindings and element strides for fixed-size arrays.
// Bindings are sorted by group then binding index.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//   - structs: all parsed struct blocks of the source
//
// Returns:
//   - []UniformBinding: the declared bindings
func parseUniformBindings(source string, structs []parsedStruct) []UniformBinding {
	structSizes := computeStructSizes(structs)
	matches := bindGroupDeclRegex.FindAllStringSubmatch(source, -1)
	bindings := make([]UniformBinding, 0, len(matches))
	for _, match := range matches {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		b := UniformBinding{
			Name:         match[4],
			Group:        group,
			Binding:      binding,
			AddressSpace: strings.TrimSpace(match[3]),
			TypeName:     canonicalType(match[5]),
		}
		if layout, ok := resolveTypeLayout(b.TypeName, structSizes); ok {
			b.Size = layout.size
			b.ElementSize = layout.size
			b.Stride = layout.size
		}
		if elem, count, ok := splitArrayType(b.TypeName); ok && count > 0 {
			if el, found := resolveTypeLayout(elem, structSizes); found {
				b.ArrayLength = count
				b.ElementSize = el.size
				b.Stride = roundUpAlign(el.align, el.size)
			}
		}
		bindings = append(bindings, b)
	}
	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].Group != bindings[j].Group {
			return bindings[i].Group < bindings[j].Group
		}
		return bindings[i].Binding < bindings[j].Binding
	})
	return bindings
}
