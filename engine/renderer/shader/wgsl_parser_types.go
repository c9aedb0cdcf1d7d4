package shader

// Stage identifies the pipeline stage a WGSL source is reflected for.
type Stage int

const (
	// StageVertex is the vertex stage, which consumes vertex attributes and writes interstage varyings.
	StageVertex Stage = iota

	// StageFragment is the fragment stage, which consumes the interstage varyings written by the vertex stage.
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// Attribute is a vertex stage input declared with @location.
type Attribute struct {
	Name       string
	Location   int
	TypeName   string
	Components int
}

// Varying is an interstage value declared with @location on a vertex output or fragment input.
type Varying struct {
	Name     string
	Location int
	TypeName string
}

// UniformBinding is a module-scope resource variable declared with @group and @binding.
type UniformBinding struct {
	Name         string
	Group        int
	Binding      int
	AddressSpace string
	TypeName     string

	// Size is the byte size of the whole binding, or 0 if the type could not be resolved.
	Size uint64

	// ArrayLength is the element count of a fixed-size array binding, 0 otherwise.
	ArrayLength int

	// ElementSize and Stride describe one array element; for non-array bindings they equal Size.
	ElementSize uint64
	Stride      uint64
}

// UniformSlot addresses a single uniform value, which may be one element of an array binding.
type UniformSlot struct {
	Name     string
	Group    int
	Binding  int
	Offset   uint64
	Size     uint64
	TypeName string
}

// wgslTypeLayout is the byte size and alignment of a host-shareable WGSL type.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field or parameter extracted from WGSL source during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}
