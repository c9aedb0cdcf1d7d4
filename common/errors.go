package common

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrDegenerateProjection is returned when projection parameters cannot produce a finite matrix.
	ErrDegenerateProjection = errors.New("degenerate projection")
	// ErrDegenerateView is returned when look-at parameters cannot produce an orthonormal basis.
	ErrDegenerateView = errors.New("degenerate view")
	// ErrLoopStarted is returned when Start is called on a render loop that has already left Idle.
	ErrLoopStarted = errors.New("render loop already started")
	// ErrUnknownAttribute is returned when a program does not declare a requested vertex attribute.
	ErrUnknownAttribute = errors.New("unknown vertex attribute")
	// ErrUnknownUniform is returned when a program does not declare a requested uniform.
	ErrUnknownUniform = errors.New("unknown uniform")
	// ErrInvalidHandle is returned when a backend receives a handle it did not create.
	ErrInvalidHandle = errors.New("invalid handle")
)

// ValidationIssue describes one offending element found while validating input data.
// Vertex and Triangle are -1 when the issue is not tied to that kind of element.
type ValidationIssue struct {
	Vertex   int
	Triangle int
	Reason   string
}

func (i ValidationIssue) String() string {
	switch {
	case i.Vertex >= 0:
		return fmt.Sprintf("vertex %d: %s", i.Vertex, i.Reason)
	case i.Triangle >= 0:
		return fmt.Sprintf("triangle %d: %s", i.Triangle, i.Reason)
	default:
		return i.Reason
	}
}

// ValidationError reports malformed mesh, weight, or animation data at load time.
type ValidationError struct {
	Subject string
	Issues  []ValidationIssue
}

// NewValidationError creates an empty ValidationError for the given subject.
// Issues are added with AddVertex, AddTriangle, and Add; OrNil converts it to an error.
//
// Parameters:
//   - subject: what is being validated, used as the message prefix
//
// Returns:
//   - *ValidationError: the empty error
func NewValidationError(subject string) *ValidationError {
	return &ValidationError{Subject: subject}
}

func (e *ValidationError) AddVertex(vertex int, format string, args ...any) {
	e.Issues = append(e.Issues, ValidationIssue{Vertex: vertex, Triangle: -1, Reason: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) AddTriangle(triangle int, format string, args ...any) {
	e.Issues = append(e.Issues, ValidationIssue{Vertex: -1, Triangle: triangle, Reason: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) Add(format string, args ...any) {
	e.Issues = append(e.Issues, ValidationIssue{Vertex: -1, Triangle: -1, Reason: fmt.Sprintf(format, args...)})
}

// OrNil returns e as an error when it holds issues, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Subject)
	b.WriteString(": ")
	const maxListed = 8
	for i, issue := range e.Issues {
		if i == maxListed {
			fmt.Fprintf(&b, "; and %d more", len(e.Issues)-maxListed)
			break
		}
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(issue.String())
	}
	return b.String()
}

// ShaderCompileError reports a shader stage that failed to compile.
type ShaderCompileError struct {
	Stage      string
	Diagnostic string
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("failed to compile %s shader: %s", e.Stage, e.Diagnostic)
}

// LinkError reports a program whose stages compiled but could not be linked together.
type LinkError struct {
	Diagnostic string
}

func (e *LinkError) Error() string {
	return "failed to link program: " + e.Diagnostic
}

// DeviceLostError reports an unrecoverable graphics device failure. It is fatal to the render loop.
type DeviceLostError struct {
	Op  string
	Err error
}

func (e *DeviceLostError) Error() string {
	if e.Err == nil {
		return "device lost during " + e.Op
	}
	return fmt.Sprintf("device lost during %s: %v", e.Op, e.Err)
}

func (e *DeviceLostError) Unwrap() error {
	return e.Err
}

// AsDeviceLost returns err unchanged if it already carries a DeviceLostError, or wraps it in one.
//
// Parameters:
//   - op: the operation that failed
//   - err: the failure cause
//
// Returns:
//   - error: nil if err is nil, otherwise an error matching *DeviceLostError with errors.As
func AsDeviceLost(op string, err error) error {
	if err == nil {
		return nil
	}
	var lost *DeviceLostError
	if errors.As(err, &lost) {
		return err
	}
	return &DeviceLostError{Op: op, Err: errors.WithStack(err)}
}
