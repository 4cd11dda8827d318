// Package sample_generator provides the deterministic per-pixel random stream used by compute
// kernels. The stream is a pure function of the seed, the frame index and the pixel, so a frame
// can be reproduced exactly. The Go functions mirror the WGSL in GPUStateSource bit for bit.
package sample_generator

import (
	"fmt"
	"strconv"

	"github.com/Carmen-Shannon/oxy-restir/common"
	"github.com/Carmen-Shannon/oxy-restir/engine/render_graph"
)

// Type identifies a sample generator implementation. Kernels select code paths on the
// SAMPLE_GENERATOR_TYPE define.
type Type uint32

const (
	// TypeTinyUniform is a small-state uniform generator. Reserved, not implemented.
	TypeTinyUniform Type = iota

	// TypeUniform is the hash-based uniform generator.
	TypeUniform
)

const (
	// DefineType is the define carrying the generator type.
	DefineType = "SAMPLE_GENERATOR_TYPE"

	// IncludeName is the include name kernels use to pull in the generator source.
	IncludeName = "sample_generator"

	// StateTypeName is the WGSL type of the generator uniform.
	StateTypeName = "SampleGeneratorState"

	// VarName is the kernel variable the generator state is bound to.
	VarName = "gSampleGenerator"
)

// sampleGenerator is the implementation of the SampleGenerator interface.
type sampleGenerator struct {
	generatorType Type
	state         GPUState
}

// SampleGenerator supplies a kernel with the defines, the include source and the uniform state
// of a per-pixel random stream.
type SampleGenerator interface {
	// Type returns the generator type.
	Type() Type

	// Seed returns the stream seed.
	Seed() uint32

	// Defines returns the defines a kernel using the generator must be compiled with.
	//
	// Returns:
	//   - render_graph.DefineList: the generator defines
	Defines() render_graph.DefineList

	// Include returns the WGSL include carrying the generator struct and functions.
	//
	// Returns:
	//   - render_graph.Include: the include registered under IncludeName
	Include() render_graph.Include

	// BindShaderData writes the generator state into the kernel variable VarName.
	//
	// Parameters:
	//   - vars: the kernel binding context
	//
	// Returns:
	//   - error: an error if the kernel does not declare the variable
	BindShaderData(vars render_graph.ProgramVars) error
}

var _ SampleGenerator = &sampleGenerator{}

// NewSampleGenerator creates a SampleGenerator of the given type. Panics on unsupported types.
//
// Parameters:
//   - t: the generator type, only TypeUniform is supported
//   - seed: the stream seed
//
// Returns:
//   - SampleGenerator: the generator
func NewSampleGenerator(t Type, seed uint32) SampleGenerator {
	if t != TypeUniform {
		panic(fmt.Sprintf("sample_generator: unsupported type %d", t))
	}
	return &sampleGenerator{
		generatorType: t,
		state:         GPUState{Seed: seed},
	}
}

func (g *sampleGenerator) Type() Type {
	return g.generatorType
}

func (g *sampleGenerator) Seed() uint32 {
	return g.state.Seed
}

func (g *sampleGenerator) Defines() render_graph.DefineList {
	return render_graph.DefineList{}.Add(DefineType, strconv.FormatUint(uint64(g.generatorType), 10))
}

func (g *sampleGenerator) Include() render_graph.Include {
	return render_graph.Include{
		Name:   IncludeName,
		Type:   StateTypeName,
		Source: GPUStateSource,
	}
}

func (g *sampleGenerator) BindShaderData(vars render_graph.ProgramVars) error {
	if err := vars.SetUniform(VarName, &g.state); err != nil {
		return fmt.Errorf("sample_generator: bind state: %w", err)
	}
	return nil
}

// Hash is the integer hash behind the stream (sg_hash in WGSL).
//
// Parameters:
//   - x: the value to hash
//
// Returns:
//   - uint32: the hashed value
func Hash(x uint32) uint32 {
	x ^= x >> 17
	x *= 0xed5ad4bb
	x ^= x >> 11
	x *= 0xac4c1b51
	x ^= x >> 15
	x *= 0x31848bab
	x ^= x >> 14
	return x
}

// InitialState returns the stream state of a pixel in a frame (sg_init in WGSL).
//
// Parameters:
//   - seed: the generator seed
//   - pixel: the pixel coordinate
//   - frame: the frame index
//
// Returns:
//   - uint32: the initial state
func InitialState(seed uint32, pixel common.Uint2, frame uint32) uint32 {
	return Hash((pixel.X * 1973) ^ (pixel.Y * 9277) ^ Hash(frame^seed))
}

// Next advances state and returns a uniform sample in [0, 1) (sg_next in WGSL).
//
// Parameters:
//   - state: the stream state, advanced in place
//
// Returns:
//   - float32: the sample
func Next(state *uint32) float32 {
	*state = Hash(*state)
	return float32(*state>>8) * (1.0 / 16777216.0)
}
