package reservoirs_reuse

import (
	_ "embed"
	"encoding/binary"
	"unsafe"
)

//go:embed assets/reservoirs_reuse.wgsl
var kernelSource string

// GPUConstantsSource is the canonical WGSL definition of the ReservoirsReuseConstants struct.
// Matches GPUConstants layout exactly (24 bytes, std140 aligned).
//
//go:embed assets/reservoirs_reuse_constants.wgsl
var GPUConstantsSource string

// GPUConstants is the GPU-aligned constant block bound to the kernel variable CB every frame.
// Matches the WGSL ReservoirsReuseConstants struct layout exactly (see GPUConstantsSource).
// Size: 24 bytes (vec2<u32> forces 8 byte alignment).
type GPUConstants struct {
	FrameCount         uint32    // offset 0: frames accumulated since the last reset
	_                  uint32    // offset 4: padding for vec2 alignment
	Resolution         [2]uint32 // offset 8: frame width and height
	SpatialSampleCount uint32    // offset 16: neighbours resampled per pixel
	_                  uint32    // offset 20: padding to struct alignment
}

// Size returns the size of the GPUConstants struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUConstants) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUConstants struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 24-byte buffer ready for GPU upload.
func (g *GPUConstants) Marshal() []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint32(buf[0:4], g.FrameCount)
	binary.LittleEndian.PutUint32(buf[8:12], g.Resolution[0])
	binary.LittleEndian.PutUint32(buf[12:16], g.Resolution[1])
	binary.LittleEndian.PutUint32(buf[16:20], g.SpatialSampleCount)
	return buf
}

// UnmarshalGPUConstants decodes a constant block written by Marshal.
//
// Parameters:
//   - buf: at least 24 bytes
//
// Returns:
//   - GPUConstants: the decoded block
//   - bool: false if buf is too short
func UnmarshalGPUConstants(buf []byte) (GPUConstants, bool) {
	if len(buf) < 24 {
		return GPUConstants{}, false
	}
	return GPUConstants{
		FrameCount:         binary.LittleEndian.Uint32(buf[0:4]),
		Resolution:         [2]uint32{binary.LittleEndian.Uint32(buf[8:12]), binary.LittleEndian.Uint32(buf[12:16])},
		SpatialSampleCount: binary.LittleEndian.Uint32(buf[16:20]),
	}, true
}
