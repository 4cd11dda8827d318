package pipeline

import (
	"github.com/Carmen-Shannon/oxy-restir/common"
	"github.com/Carmen-Shannon/oxy-restir/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineKey string
	defines     map[string]string

	computeShader shader.Shader

	computePipeline  *wgpu.ComputePipeline
	pipelineLayout   *wgpu.PipelineLayout
	bindGroupLayouts []*wgpu.BindGroupLayout
	module           *wgpu.ShaderModule
}

// Pipeline is a compiled compute program: the parsed shader, the defines it was specialized
// with, and the GPU objects created from it by the renderer.
type Pipeline interface {
	// PipelineKey returns the pipeline's unique key.
	PipelineKey() string

	// Shader returns the compute shader.
	Shader() shader.Shader

	// Defines returns the defines the shader was pre-processed with.
	Defines() map[string]string

	// ThreadGroupSize returns the shader's workgroup size.
	//
	// Returns:
	//   - common.Uint3: the workgroup size, each component at least 1
	ThreadGroupSize() common.Uint3

	// Pipeline returns the GPU compute pipeline, or nil before registration.
	Pipeline() *wgpu.ComputePipeline

	// BindGroupLayout returns the layout of a bind group, or nil.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout, or nil if the group is not declared
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// BindGroupCount returns the number of bind group slots in the pipeline layout.
	BindGroupCount() int

	// SetComputePipeline records the GPU objects created for this pipeline. Ownership moves to the pipeline.
	//
	// Parameters:
	//   - module: the shader module
	//   - layouts: the bind group layouts indexed by group
	//   - layout: the pipeline layout
	//   - p: the compute pipeline
	SetComputePipeline(module *wgpu.ShaderModule, layouts []*wgpu.BindGroupLayout, layout *wgpu.PipelineLayout, p *wgpu.ComputePipeline)

	// Release frees every GPU object owned by the pipeline.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a new compute Pipeline. Panics if no compute shader is supplied.
//
// Parameters:
//   - pipelineKey: the unique key of the pipeline
//   - opts: functional options for pipeline configuration
//
// Returns:
//   - Pipeline: the new pipeline, without GPU objects until registered
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey: pipelineKey,
		defines:     map[string]string{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.computeShader == nil {
		panic("pipeline: " + pipelineKey + " requires a compute shader")
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.computeShader
}

func (p *pipeline) Defines() map[string]string {
	return p.defines
}

func (p *pipeline) ThreadGroupSize() common.Uint3 {
	size := p.computeShader.WorkgroupSize()
	return common.Uint3{
		X: max(size[0], 1),
		Y: max(size[1], 1),
		Z: max(size[2], 1),
	}
}

func (p *pipeline) Pipeline() *wgpu.ComputePipeline {
	return p.computePipeline
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(p.bindGroupLayouts) {
		return nil
	}
	return p.bindGroupLayouts[group]
}

func (p *pipeline) BindGroupCount() int {
	return len(p.bindGroupLayouts)
}

func (p *pipeline) SetComputePipeline(module *wgpu.ShaderModule, layouts []*wgpu.BindGroupLayout, layout *wgpu.PipelineLayout, cp *wgpu.ComputePipeline) {
	p.module = module
	p.bindGroupLayouts = layouts
	p.pipelineLayout = layout
	p.computePipeline = cp
}

func (p *pipeline) Release() {
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	for _, l := range p.bindGroupLayouts {
		if l != nil {
			l.Release()
		}
	}
	p.bindGroupLayouts = nil
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}
