package shader

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var placeholder = regexp.MustCompile(`\$\{(\w+)\}`)

type preProcessor struct {
	includes map[string]string
	defines  map[string]string

	// group directives seen by the last Process
	groups []Directive
}

// PreProcessor turns shader assets written with @oxy: directives and ${NAME} placeholders into
// plain WGSL. Directives are expanded first, so included fragments may use placeholders too.
type PreProcessor interface {
	// Process expands the directives in source and then substitutes every placeholder.
	//
	// Parameters:
	//   - source: the annotated WGSL
	//
	// Returns:
	//   - string: plain WGSL
	//   - error: error naming the line of a bad directive or unknown include, or listing the
	//     placeholders that have no define
	Process(source string) (string, error)

	// Declarations returns the group directives of the last Process call in source order.
	Declarations() []Directive
}

var _ PreProcessor = &preProcessor{}

// PreProcessorOption registers includes and defines on a new PreProcessor.
type PreProcessorOption func(*preProcessor)

// WithInclude makes source available to //@oxy:include key.
//
// Parameters:
//   - key: the include key
//   - source: the WGSL fragment
//
// Returns:
//   - PreProcessorOption: the option
func WithInclude(key, source string) PreProcessorOption {
	return func(p *preProcessor) {
		p.includes[key] = source
	}
}

// WithDefine sets the text substituted for ${name}.
func WithDefine(name, value string) PreProcessorOption {
	return func(p *preProcessor) {
		p.defines[name] = value
	}
}

func NewPreProcessor(options ...PreProcessorOption) PreProcessor {
	p := &preProcessor{
		includes: map[string]string{},
		defines:  map[string]string{},
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *preProcessor) Process(source string) (string, error) {
	p.groups = nil

	var b strings.Builder
	for i, line := range strings.Split(source, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		d, err := parseDirective(line, i+1)
		if err != nil {
			return "", err
		}
		switch {
		case d == nil:
			b.WriteString(line)
		case d.Kind == DirectiveInclude:
			fragment, ok := p.includes[d.Key]
			if !ok {
				return "", errors.Errorf("line %d: nothing registered for include %q", d.Line, d.Key)
			}
			b.WriteString(fragment)
		default:
			b.WriteString(d.Declaration())
			p.groups = append(p.groups, *d)
		}
	}

	var missing []string
	out := placeholder.ReplaceAllStringFunc(b.String(), func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := p.defines[name]; ok {
			return v
		}
		missing = append(missing, name)
		return m
	})
	if missing != nil {
		return "", errors.Errorf("no define for %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func (p *preProcessor) Declarations() []Directive {
	return p.groups
}
