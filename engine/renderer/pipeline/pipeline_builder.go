package pipeline

import (
	"maps"

	"github.com/Carmen-Shannon/oxy-restir/engine/renderer/shader"
)

// PipelineBuilderOption is a functional option for configuring a Pipeline.
type PipelineBuilderOption func(*pipeline)

// WithComputeShader sets the compute shader of the pipeline.
//
// Parameters:
//   - s: the parsed compute shader
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.computeShader = s
	}
}

// WithDefines records the defines the shader was specialized with.
//
// Parameters:
//   - defines: the define name to value map
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithDefines(defines map[string]string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.defines = maps.Clone(defines)
		if p.defines == nil {
			p.defines = map[string]string{}
		}
	}
}
