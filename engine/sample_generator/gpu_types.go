package sample_generator

import (
	_ "embed"
	"encoding/binary"
	"unsafe"
)

// GPUStateSource is the canonical WGSL definition of the SampleGeneratorState struct together
// with the sg_hash, sg_init and sg_next functions. The functions read the seed from a uniform
// named gSampleGenerator, which the including kernel declares.
//
//go:embed assets/sample_generator.wgsl
var GPUStateSource string

// GPUState is the GPU-aligned uniform carrying the generator seed.
// Matches the WGSL SampleGeneratorState struct layout exactly (see GPUStateSource).
// Size: 16 bytes (four u32, std140 aligned).
type GPUState struct {
	Seed uint32    // offset 0: stream seed mixed into every pixel's initial state
	_    [3]uint32 // offset 4: padding to 16 bytes
}

// Size returns the size of the GPUState struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUState) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUState struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUState) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], g.Seed)
	return buf
}
