package shader

import (
	"regexp"
	"strconv"
	"strings"
)

// wgslPrimitiveLayoutMap holds size and alignment of the host-shareable built-in types.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"f16":  {2, 2},
	"bool": {4, 4},

	"vec2f": {8, 8},
	"vec3f": {12, 16},
	"vec4f": {16, 16},
	"vec2i": {8, 8},
	"vec3i": {12, 16},
	"vec4i": {16, 16},
	"vec2u": {8, 8},
	"vec3u": {12, 16},
	"vec4u": {16, 16},
	"vec2h": {4, 4},
	"vec4h": {8, 8},

	"mat2x2f": {16, 8},
	"mat3x3f": {48, 16},
	"mat3x4f": {48, 16},
	"mat4x3f": {64, 16},
	"mat4x4f": {64, 16},
}

// wgslVertexComponentMap lists the types a vertex attribute may have, with their lane counts.
var wgslVertexComponentMap = map[string]int{
	"f32": 1, "vec2f": 2, "vec3f": 3, "vec4f": 4,
	"i32": 1, "vec2i": 2, "vec3i": 3, "vec4i": 4,
	"u32": 1, "vec2u": 2, "vec3u": 3, "vec4u": 4,
}

var (
	// vec4<f32>, mat4x4<f32> and the like
	genericVectorRegex = regexp.MustCompile(`\b(vec[234]|mat[234]x[234])<(f32|i32|u32|f16)>`)
	whitespaceRegex    = regexp.MustCompile(`\s+`)
)

// canonicalType spells a type the way the layout tables do: no whitespace and the short alias for
// generic vectors and matrices, so "array<mat4x4<f32>, 2>" becomes "array<mat4x4f,2>".
func canonicalType(typeName string) string {
	t := whitespaceRegex.ReplaceAllString(typeName, "")
	return genericVectorRegex.ReplaceAllStringFunc(t, func(m string) string {
		sub := genericVectorRegex.FindStringSubmatch(m)
		return sub[1] + sub[2][:1]
	})
}

// roundUpAlign rounds value up to a multiple of alignment, a power of two.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// splitArrayType splits "array<T,N>" into its element type and count.
// The count is 0 for runtime-sized arrays; ok is false for non-array types.
func splitArrayType(typeName string) (elem string, count int, ok bool) {
	t := canonicalType(typeName)
	if !strings.HasPrefix(t, "array<") || !strings.HasSuffix(t, ">") {
		return "", 0, false
	}
	parts := splitAtTopLevelCommas(t[6 : len(t)-1])
	elem = parts[0]
	if len(parts) == 2 {
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return "", 0, false
		}
		count = n
	}
	return elem, count, true
}

// resolveTypeLayout looks typeName up among the built-ins and the structs laid out so far.
// A fixed-size array takes its element's alignment and count times the rounded element stride.
// Runtime-sized arrays have no layout.
func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	t := canonicalType(typeName)
	if layout, ok := wgslPrimitiveLayoutMap[t]; ok {
		return layout, true
	}
	if layout, ok := knownTypes[t]; ok {
		return layout, true
	}
	elem, count, ok := splitArrayType(t)
	if !ok || count == 0 {
		return wgslTypeLayout{}, false
	}
	elemLayout, ok := resolveTypeLayout(elem, knownTypes)
	if !ok {
		return wgslTypeLayout{}, false
	}
	stride := roundUpAlign(elemLayout.align, elemLayout.size)
	return wgslTypeLayout{uint64(count) * stride, elemLayout.align}, true
}

// computeStructSizes lays out every struct whose fields can be resolved, repeating passes until
// nested structs settle. @builtin fields take no space. Structs that never resolve are absent.
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)

	for len(remaining) > 0 {
		progress := false
		next := remaining[:0]
		for _, ps := range remaining {
			offset, maxAlign, ok := uint64(0), uint64(1), true
			for _, field := range ps.fields {
				if field.isBuiltin {
					continue
				}
				fl, found := resolveTypeLayout(field.typeName, resolved)
				if !found {
					ok = false
					break
				}
				offset = roundUpAlign(fl.align, offset) + fl.size
				maxAlign = max(maxAlign, fl.align)
			}
			if ok {
				resolved[ps.name] = wgslTypeLayout{roundUpAlign(maxAlign, offset), maxAlign}
				progress = true
			} else {
				next = append(next, ps)
			}
		}
		remaining = next
		if !progress {
			break
		}
	}
	return resolved
}

// stripComments drops line comments and nested block comments.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i++
				continue
			}
			if source[i] == '*' && source[i+1] == '/' && depth > 0 {
				depth--
				i++
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// splitAtTopLevelCommas splits a struct body or parameter list on commas outside <> and (), so
// array<T, N> and @interpolate(flat, either) stay whole. Parts come back trimmed, empties dropped.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	flush := func(end int) {
		if p := strings.TrimSpace(s[start:end]); p != "" {
			parts = append(parts, p)
		}
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(s))
	return parts
}
