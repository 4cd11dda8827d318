// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader
// source code for @oxy: annotations, replaces them with generated WGSL declarations
// or injected include source, evaluates conditional blocks against a define list and
// collects a declarations list of generated bindings.
//
// The pre-processor maintains two registries:
//   - includeRegistry: maps include names to WGSL source and the type name they declare.
//     Used by @oxy:include (to inject the source) and @oxy:group (to resolve the WGSL
//     type name in the generated declaration).
//   - addressSpaceRegistry: maps address space argument keys to WGSL var<> syntax strings.
package shader

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ErrUnbalancedConditional is returned when @oxy:if / else / endif annotations do not nest.
var ErrUnbalancedConditional = errors.New("shader: unbalanced @oxy conditional")

// defineNameRegex matches names that can be emitted as WGSL constants.
var defineNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// registryEntry pairs a WGSL source snippet with the type name it declares.
type registryEntry struct {
	// Source is the raw WGSL text injected by @oxy:include.
	Source string

	// Type is the WGSL type name emitted in @oxy:group declarations. May be empty for
	// includes that only declare functions.
	Type string
}

// conditional is one open @oxy:if block.
type conditional struct {
	line      int
	taken     bool
	sawElse   bool
	parentOff bool
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	includeRegistry      map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string
	defines              map[string]string

	// declarations accumulates group annotations during a Process call. Reset at the start
	// of each Process invocation.
	declarations []Annotation
}

// PreProcessor processes raw WGSL shader source code containing @oxy: annotations,
// replacing them with generated declarations, injected include sources and define
// constants, and dropping the branches of conditional blocks not selected by the defines.
type PreProcessor interface {
	// Process pre-processes source. Annotations inside a discarded conditional branch are
	// ignored except for nesting. The declarations list is reset at the start of each call.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing annotations to be processed
	//
	// Returns:
	//   - string: the processed WGSL shader source code with annotations replaced
	//   - error: an error if any annotation is malformed, references an unknown include,
	//     or conditionals are unbalanced
	Process(source string) (string, error)

	// Declarations returns the group annotations collected during the most recent call to
	// Process, in source order.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation

	// Defines returns a copy of the define list used for conditional evaluation.
	//
	// Returns:
	//   - map[string]string: the defines
	Defines() map[string]string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with the address space mappings pre-populated.
// Includes and defines are supplied through options.
//
// Parameters:
//   - options: functional options registering includes and defines
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(options ...PreProcessorBuilderOption) PreProcessor {
	p := &preProcessor{
		includeRegistry: make(map[AnnotationArg]registryEntry),
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
		defines: make(map[string]string),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *preProcessor) Defines() map[string]string {
	return maps.Clone(p.defines)
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	var stack []conditional

	active := func() bool {
		if len(stack) == 0 {
			return true
		}
		top := stack[len(stack)-1]
		return !top.parentOff && top.taken
	}

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			if active() {
				out = append(out, line)
			}
			continue
		}

		// conditionals are tracked even inside discarded branches so nesting stays balanced
		switch a.Type {
		case annotationTypeIf:
			stack = append(stack, conditional{
				line:      a.Line,
				taken:     p.evaluate(string(a.Args[0])),
				parentOff: !active(),
			})
			continue
		case annotationTypeElse:
			if len(stack) == 0 || stack[len(stack)-1].sawElse {
				return "", fmt.Errorf("line %d: %w: stray else", a.Line, ErrUnbalancedConditional)
			}
			stack[len(stack)-1].taken = !stack[len(stack)-1].taken
			stack[len(stack)-1].sawElse = true
			continue
		case annotationTypeEndif:
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: %w: stray endif", a.Line, ErrUnbalancedConditional)
			}
			stack = stack[:len(stack)-1]
			continue
		}

		if !active() {
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.includeRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", a.Line, a.Args[0])
			}
			out = append(out, entry.Source)
		case AnnotationTypeBindingGroup:
			decl, err := p.bindingDeclaration(a)
			if err != nil {
				return "", err
			}
			out = append(out, decl)
			p.declarations = append(p.declarations, *a)
		case annotationTypeDefines:
			consts, err := p.defineConstants(a.Line)
			if err != nil {
				return "", err
			}
			out = append(out, consts...)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", a.Line, a.Type)
		}
	}

	if len(stack) > 0 {
		return "", fmt.Errorf("line %d: %w: missing endif", stack[len(stack)-1].line, ErrUnbalancedConditional)
	}
	return strings.Join(out, "\n"), nil
}

// evaluate reports whether a conditional argument selects its block.
func (p *preProcessor) evaluate(arg string) bool {
	name, negated := strings.CutPrefix(arg, "!")
	v, ok := p.defines[name]
	truthy := ok && v != "" && v != "0"
	return truthy != negated
}

// bindingDeclaration builds the @group/@binding declaration for a group annotation.
func (p *preProcessor) bindingDeclaration(a *Annotation) (string, error) {
	addrSpace := p.addressSpaceRegistry[a.Args[0]]
	varName := string(a.Args[1])

	typeArg := string(a.Args[2])
	inner, isArray := strings.CutPrefix(typeArg, "array<")
	if isArray {
		inner = strings.TrimSuffix(inner, ">")
	} else {
		inner = typeArg
	}
	entry, ok := p.includeRegistry[AnnotationArg(inner)]
	if !ok || entry.Type == "" {
		return "", fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", a.Line, inner)
	}
	wgslType := entry.Type
	if isArray {
		wgslType = fmt.Sprintf("array<%s>", entry.Type)
	}
	return fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, varName, wgslType), nil
}

// defineConstants renders every define as a WGSL constant, sorted by name. Unsigned integer
// values become u32 constants and true/false become bool constants.
func (p *preProcessor) defineConstants(line int) ([]string, error) {
	names := slices.Sorted(maps.Keys(p.defines))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !defineNameRegex.MatchString(name) {
			return nil, fmt.Errorf("line %d: define %q is not a valid WGSL identifier", line, name)
		}
		value := p.defines[name]
		switch value {
		case "true", "false":
			out = append(out, fmt.Sprintf("const %s: bool = %s;", name, value))
			continue
		}
		if _, err := strconv.ParseUint(value, 10, 32); err != nil {
			return nil, fmt.Errorf("line %d: define %s=%q is not an unsigned integer or bool", line, name, value)
		}
		out = append(out, fmt.Sprintf("const %s: u32 = %su;", name, value))
	}
	return out, nil
}
