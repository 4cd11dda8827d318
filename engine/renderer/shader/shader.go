package shader

import (
	"errors"
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrNoEntryPoint is returned when a source has no @compute entry point, or not the requested one.
	ErrNoEntryPoint = errors.New("shader: compute entry point not found")

	// ErrEmptySource is returned when a shader is created from empty source.
	ErrEmptySource = errors.New("shader: empty source")
)

// Binding locates a kernel variable in the bind group layout.
type Binding struct {
	Group   int
	Binding int
	Entry   wgpu.BindGroupLayoutEntry
}

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for pipeline creation and resource binding.
type shader struct {
	key                        string
	source                     string
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	workGroupSize              [3]uint32
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor

	pp PreProcessor
}

// Shader is a pre-processed and parsed WGSL compute shader. It exposes the shader's unique key,
// processed source, entry point, bind group layout descriptors and workgroup size needed for
// pipeline creation and resource binding.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code after pre-processing
	Source() string

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors keyed by
	// group index. Entries are sorted by binding index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarNames retrieves all variable names for all bind groups.
	//
	// Returns:
	//   - map[int]map[int]string: variable names keyed by group and binding index
	BindGroupVarNames() map[int]map[int]string

	// Lookup finds the binding of a kernel variable by name.
	//
	// Parameters:
	//   - varName: the kernel variable name
	//
	// Returns:
	//   - Binding: the group, binding and layout entry of the variable
	//   - bool: true if the variable is declared
	Lookup(varName string) (Binding, bool)

	// EntryPoint returns the compute entry point name.
	//
	// Returns:
	//   - string: the entry point name (e.g. "main")
	EntryPoint() string

	// WorkgroupSize returns the workgroup size dimensions. Omitted dimensions are 1.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the wgpu.ShaderModuleDescriptor built from the processed source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the group annotations the pre-processor generated bindings for.
	//
	// Returns:
	//   - []Annotation: the generated binding declarations
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and parses a WGSL compute shader.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - source: the raw WGSL source
//   - entryPoint: the required compute entry point, or empty to accept the first one found
//   - options: pre-processor options (includes and defines)
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if pre-processing fails or the entry point is missing
func NewShader(key, source, entryPoint string, options ...PreProcessorBuilderOption) (Shader, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, key)
	}
	s := &shader{
		key: key,
		pp:  NewPreProcessor(options...),
	}
	if err := s.parseSource(source, entryPoint); err != nil {
		return nil, fmt.Errorf("shader: %s: %w", key, err)
	}
	return s, nil
}

// NewShaderFromPath reads source from path and calls NewShader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - path: the file path to read WGSL source from
//   - entryPoint: the required compute entry point, or empty for the first one found
//   - options: pre-processor options
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if the file cannot be read or the shader cannot be parsed
func NewShaderFromPath(key, path, entryPoint string, options ...PreProcessorBuilderOption) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to read source file %q: %w", path, err)
	}
	return NewShader(key, string(data), entryPoint, options...)
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarNames() map[int]map[int]string {
	return s.bindingVarNames
}

func (s *shader) Lookup(varName string) (Binding, bool) {
	for group, names := range s.bindingVarNames {
		for binding, name := range names {
			if name != varName {
				continue
			}
			for _, e := range s.bindGroupLayoutDescriptors[group].Entries {
				if int(e.Binding) == binding {
					return Binding{Group: group, Binding: binding, Entry: e}, true
				}
			}
		}
	}
	return Binding{}, false
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Declarations() []Annotation {
	return s.pp.Declarations()
}

// parseSource pre-processes the WGSL source, builds the shader module descriptor and extracts
// the entry point, workgroup size and bind group layouts.
func (s *shader) parseSource(raw, entryPoint string) error {
	processed, err := s.pp.Process(raw)
	if err != nil {
		return fmt.Errorf("failed to pre-process shader source: %w", err)
	}
	s.source = processed

	found := parseComputeEntryPoints(s.source)
	switch {
	case len(found) == 0:
		return ErrNoEntryPoint
	case entryPoint == "":
		s.entryPoint = found[0]
	default:
		for _, name := range found {
			if name == entryPoint {
				s.entryPoint = name
			}
		}
		if s.entryPoint == "" {
			return fmt.Errorf("%w: %q (have %v)", ErrNoEntryPoint, entryPoint, found)
		}
	}

	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	s.workGroupSize = parseWorkgroupSize(s.source)
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(s.source, wgpu.ShaderStageCompute)
	return nil
}
