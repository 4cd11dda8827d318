package main

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-restir/common"
	"github.com/Carmen-Shannon/oxy-restir/engine/passes/reservoirs_reuse"
	"github.com/Carmen-Shannon/oxy-restir/engine/sample_generator"
)

// syntheticInput builds RGBA32F texels standing in for the upstream lighting passes. The
// color input is a gradient; reservoirs hold a random radiance in rgb and a random weight in
// w, with roughly one pixel in four left empty.
func syntheticInput(channel string, width, height, seed uint32) []byte {
	const bpp = 16
	buf := make([]byte, int(width)*int(height)*bpp)
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			var texel [4]float32
			switch channel {
			case reservoirs_reuse.ChannelReservoirsIn:
				state := sample_generator.InitialState(seed, common.Uint2{X: x, Y: y}, 0)
				texel = [4]float32{sample_generator.Next(&state), sample_generator.Next(&state), sample_generator.Next(&state), sample_generator.Next(&state)}
				if texel[3] < 0.25 {
					texel[3] = 0
				}
			default:
				texel = [4]float32{float32(x) / float32(width), float32(y) / float32(height), 0.25, 1}
			}
			off := (int(y)*int(width) + int(x)) * bpp
			for i, v := range texel {
				binary.LittleEndian.PutUint32(buf[off+4*i:], math.Float32bits(v))
			}
		}
	}
	return buf
}
