package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-restir/common"
	"github.com/Carmen-Shannon/oxy-restir/engine/render_graph"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrUnsupportedFormat is returned for resource formats the WebGPU backend cannot allocate.
	ErrUnsupportedFormat = errors.New("renderer: unsupported resource format")

	// ErrUnsupportedClear is returned when a clear value cannot be encoded in a texture's format.
	ErrUnsupportedClear = errors.New("renderer: clear value not representable in format")
)

// copyRowAlignment is the WebGPU requirement on bytesPerRow for texture to buffer copies.
const copyRowAlignment = 256

// textureFormat maps a graph resource format to its WebGPU texture format.
func textureFormat(f render_graph.ResourceFormat) (wgpu.TextureFormat, error) {
	switch f {
	case render_graph.ResourceFormatRGBA32Float:
		return wgpu.TextureFormatRGBA32Float, nil
	case render_graph.ResourceFormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float, nil
	case render_graph.ResourceFormatR32Float:
		return wgpu.TextureFormatR32Float, nil
	case render_graph.ResourceFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, nil
	default:
		return wgpu.TextureFormatUndefined, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

// textureUsage maps graph bind flags to WebGPU texture usage bits.
func textureUsage(flags render_graph.BindFlags) wgpu.TextureUsage {
	var usage wgpu.TextureUsage
	if flags.Has(render_graph.BindFlagShaderResource) {
		usage |= wgpu.TextureUsageTextureBinding
	}
	if flags.Has(render_graph.BindFlagUnorderedAccess) {
		usage |= wgpu.TextureUsageStorageBinding
	}
	if flags.Has(render_graph.BindFlagCopySrc) {
		usage |= wgpu.TextureUsageCopySrc
	}
	if flags.Has(render_graph.BindFlagCopyDst) {
		usage |= wgpu.TextureUsageCopyDst
	}
	return usage
}

// clearTexel encodes value as one texel of format f.
func clearTexel(f render_graph.ResourceFormat, value common.Float4) ([]byte, error) {
	switch f {
	case render_graph.ResourceFormatRGBA32Float:
		out := make([]byte, 16)
		for i, c := range [4]float32{value.X, value.Y, value.Z, value.W} {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(c))
		}
		return out, nil
	case render_graph.ResourceFormatR32Float:
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, math.Float32bits(value.X))
		return out, nil
	case render_graph.ResourceFormatRGBA8Unorm:
		out := make([]byte, 4)
		for i, c := range [4]float32{value.X, value.Y, value.Z, value.W} {
			out[i] = uint8(common.Clamp(c, 0, 1)*255 + 0.5)
		}
		return out, nil
	case render_graph.ResourceFormatRGBA16Float:
		if value != (common.Float4{}) {
			return nil, fmt.Errorf("%w: %s only clears to zero", ErrUnsupportedClear, f)
		}
		return make([]byte, 8), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

// fillTexels returns width*height copies of texel.
func fillTexels(texel []byte, width, height uint32) []byte {
	out := make([]byte, len(texel)*int(width)*int(height))
	for i := 0; i < len(out); i += len(texel) {
		copy(out[i:], texel)
	}
	return out
}

// paddedBytesPerRow returns the row pitch used for readback copies.
func paddedBytesPerRow(width, bytesPerPixel uint32) uint32 {
	return common.AlignUp(copyRowAlignment, width*bytesPerPixel)
}

// unpadRows copies rows out of a padded readback buffer into a tightly packed slice.
func unpadRows(padded []byte, width, height, bytesPerPixel uint32) []byte {
	tight := width * bytesPerPixel
	pitch := paddedBytesPerRow(width, bytesPerPixel)
	out := make([]byte, int(tight)*int(height))
	for y := uint32(0); y < height; y++ {
		copy(out[y*tight:(y+1)*tight], padded[y*pitch:y*pitch+tight])
	}
	return out
}
