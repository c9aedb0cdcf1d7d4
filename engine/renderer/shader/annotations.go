package shader

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Directives live in line comments so an unprocessed shader is still valid WGSL:
//
//	//@oxy:include <key>
//	//@oxy:group <group> <binding> <space> <name> <type>
//
// The group type may use ${NAME} placeholders but no spaces, e.g.
//
//	//@oxy:group 0 1 uniform jointMatrix array<mat4x4<f32>,${JOINT_COUNT}>
const directivePrefix = "@oxy:"

// DirectiveKind is the word following the prefix.
type DirectiveKind string

const (
	DirectiveInclude DirectiveKind = "include"
	DirectiveGroup   DirectiveKind = "group"
)

// addressSpaces maps the space argument of a group directive to its WGSL spelling.
var addressSpaces = map[string]string{
	"uniform":    "var<uniform>",
	"read":       "var<storage, read>",
	"read_write": "var<storage, read_write>",
}

// Directive is one parsed @oxy: comment.
type Directive struct {
	Kind DirectiveKind
	Line int

	// Key names the registered fragment of an include.
	Key string

	// Group directive fields; Type still holds unexpanded placeholders.
	Group, Binding int
	Space          string
	Name           string
	Type           string
}

// Declaration renders a group directive as a WGSL variable declaration.
func (d Directive) Declaration() string {
	return "@group(" + strconv.Itoa(d.Group) + ") @binding(" + strconv.Itoa(d.Binding) + ") " +
		addressSpaces[d.Space] + " " + d.Name + ": " + d.Type + ";"
}

// parseDirective reads one source line. Lines that are not @oxy: comments give (nil, nil).
func parseDirective(line string, lineNum int) (*Directive, error) {
	comment, ok := strings.CutPrefix(strings.TrimSpace(line), "//")
	if !ok {
		return nil, nil
	}
	_, rest, ok := strings.Cut(comment, directivePrefix)
	if !ok {
		return nil, nil
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, errors.Errorf("line %d: @oxy: without a directive", lineNum)
	}

	d := &Directive{Kind: DirectiveKind(fields[0]), Line: lineNum}
	args := fields[1:]
	switch d.Kind {
	case DirectiveInclude:
		if len(args) != 1 {
			return nil, errors.Errorf("line %d: include takes one key, got %d arguments", lineNum, len(args))
		}
		d.Key = args[0]

	case DirectiveGroup:
		if len(args) != 5 {
			return nil, errors.Errorf("line %d: group takes <group> <binding> <space> <name> <type>, got %d arguments", lineNum, len(args))
		}
		var err error
		if d.Group, err = strconv.Atoi(args[0]); err != nil {
			return nil, errors.Wrapf(err, "line %d: group index", lineNum)
		}
		if d.Binding, err = strconv.Atoi(args[1]); err != nil {
			return nil, errors.Wrapf(err, "line %d: binding index", lineNum)
		}
		if _, known := addressSpaces[args[2]]; !known {
			return nil, errors.Errorf("line %d: address space %q is not one of uniform, read, read_write", lineNum, args[2])
		}
		d.Space, d.Name, d.Type = args[2], args[3], args[4]

	default:
		return nil, errors.Errorf("line %d: unknown directive %q", lineNum, fields[0])
	}
	return d, nil
}
