package render_graph

import "github.com/Carmen-Shannon/oxy-restir/common"

// TextureDesc describes a 2D texture allocation.
type TextureDesc struct {
	Label       string
	Width       uint32
	Height      uint32
	Format      ResourceFormat
	MipLevels   uint32
	SampleCount uint32
	BindFlags   BindFlags
}

// ProgramDesc describes a compute program to compile.
type ProgramDesc struct {
	// Key is a unique label for the program, used for caching and debugging.
	Key string
	// Source is the kernel source before pre-processing.
	Source string
	// EntryPoint is the compute entry point name.
	EntryPoint string
	// Defines are the compile-time values handed to the pre-processor.
	Defines DefineList
	// Includes are additional named sources the kernel may pull in with an include annotation.
	Includes []Include
}

// Include is a named source snippet a kernel can include, together with the type name it declares.
type Include struct {
	Name   string
	Type   string
	Source string
}

// UniformBlock is a CPU-side value that can be serialized into a kernel constant block.
type UniformBlock interface {
	// Marshal serializes the value into its GPU layout.
	//
	// Returns:
	//   - []byte: the GPU-ready bytes
	Marshal() []byte
}

// Texture is a 2D GPU resource handle.
type Texture interface {
	// Label returns the debug label the texture was created with.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Width returns the texture width in texels.
	//
	// Returns:
	//   - uint32: the width
	Width() uint32

	// Height returns the texture height in texels.
	//
	// Returns:
	//   - uint32: the height
	Height() uint32

	// Format returns the texel format.
	//
	// Returns:
	//   - ResourceFormat: the format
	Format() ResourceFormat

	// Release frees the GPU resource. The handle must not be used afterwards.
	Release()
}

// Program is a compiled compute kernel.
type Program interface {
	// Key returns the program key it was compiled under.
	//
	// Returns:
	//   - string: the key
	Key() string

	// EntryPoint returns the compute entry point.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// ThreadGroupSize returns the kernel's declared thread-group shape.
	//
	// Returns:
	//   - common.Uint3: the thread-group shape, every component at least 1
	ThreadGroupSize() common.Uint3

	// Defines returns the define list the program was compiled with.
	//
	// Returns:
	//   - DefineList: the defines
	Defines() DefineList

	// CreateVars allocates a binding context for the program.
	//
	// Returns:
	//   - ProgramVars: the binding context
	//   - error: an error if the context could not be allocated
	CreateVars() (ProgramVars, error)

	// Release frees the compiled program.
	Release()
}

// ProgramVars is the binding context of a program: the set of resources and constants bound
// to its variables. It is created once and rebound every frame.
type ProgramVars interface {
	// SetTexture binds a texture to the named kernel variable.
	//
	// Parameters:
	//   - name: the kernel variable name
	//   - tex: the texture to bind
	//
	// Returns:
	//   - error: an error if the variable does not exist or is not a texture
	SetTexture(name string, tex Texture) error

	// SetUniform writes a constant block to the named kernel variable.
	//
	// Parameters:
	//   - name: the kernel variable name
	//   - block: the value to serialize
	//
	// Returns:
	//   - error: an error if the variable does not exist or is not a uniform buffer
	SetUniform(name string, block UniformBlock) error

	// Release frees every GPU object owned by the binding context.
	Release()
}

// Device allocates GPU resources and compiles programs.
type Device interface {
	// CreateTexture2D allocates a 2D texture.
	//
	// Parameters:
	//   - desc: the texture description
	//
	// Returns:
	//   - Texture: the allocated texture
	//   - error: an error if allocation fails
	CreateTexture2D(desc TextureDesc) (Texture, error)

	// CreateComputeProgram pre-processes and compiles a compute program.
	//
	// Parameters:
	//   - desc: the program description
	//
	// Returns:
	//   - Program: the compiled program
	//   - error: an error if pre-processing or compilation fails
	CreateComputeProgram(desc ProgramDesc) (Program, error)
}

// RenderContext records GPU commands for the current frame.
type RenderContext interface {
	// ClearTexture fills every texel of tex with value.
	//
	// Parameters:
	//   - tex: the texture to clear
	//   - value: the clear value
	//
	// Returns:
	//   - error: an error if the clear could not be recorded
	ClearTexture(tex Texture, value common.Float4) error

	// Dispatch records one compute dispatch.
	//
	// Parameters:
	//   - program: the program to run
	//   - vars: the binding context to run it with
	//   - groups: the number of thread groups in each dimension
	//
	// Returns:
	//   - error: an error if the dispatch could not be recorded
	Dispatch(program Program, vars ProgramVars, groups common.Uint3) error
}
