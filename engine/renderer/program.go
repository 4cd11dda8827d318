package renderer

import (
	"fmt"
	"maps"

	"github.com/Carmen-Shannon/oxy-restir/common"
	"github.com/Carmen-Shannon/oxy-restir/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-restir/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-restir/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// uniformAlignment is the size granularity of uniform buffers.
const uniformAlignment = 16

// computeProgram is the WebGPU implementation of render_graph.Program.
type computeProgram struct {
	renderer *renderer
	pipeline pipeline.Pipeline
	defines  render_graph.DefineList
	released bool
}

var _ render_graph.Program = &computeProgram{}

func (p *computeProgram) Key() string {
	return p.pipeline.PipelineKey()
}

func (p *computeProgram) EntryPoint() string {
	return p.pipeline.Shader().EntryPoint()
}

func (p *computeProgram) ThreadGroupSize() common.Uint3 {
	return p.pipeline.ThreadGroupSize()
}

func (p *computeProgram) Defines() render_graph.DefineList {
	return maps.Clone(p.defines)
}

func (p *computeProgram) CreateVars() (render_graph.ProgramVars, error) {
	if p.released {
		return nil, fmt.Errorf("%w: program %q", ErrReleased, p.Key())
	}
	descriptors := p.pipeline.Shader().BindGroupLayoutDescriptors()
	providers := make([]bind_group_provider.BindGroupProvider, p.pipeline.BindGroupCount())
	for g := range providers {
		if len(descriptors[g].Entries) == 0 {
			continue
		}
		providers[g] = bind_group_provider.NewBindGroupProvider(
			fmt.Sprintf("%s Group %d", p.Key(), g),
			g,
			bind_group_provider.WithBindGroupLayout(p.pipeline.BindGroupLayout(g)),
		)
	}
	return &programVars{
		program:     p,
		providers:   providers,
		bufferSizes: make(map[[2]int]uint64),
	}, nil
}

func (p *computeProgram) Release() {
	if p.released {
		return
	}
	p.released = true
	p.renderer.evict(p.pipeline)
	p.pipeline.Release()
}

// programVars is the WebGPU implementation of render_graph.ProgramVars. Each bind group of the
// program is served by one provider; uniform writes are queued and flushed on dispatch.
type programVars struct {
	program     *computeProgram
	providers   []bind_group_provider.BindGroupProvider
	bufferSizes map[[2]int]uint64
	pending     []bind_group_provider.BufferWrite
}

var _ render_graph.ProgramVars = &programVars{}

func (v *programVars) SetTexture(name string, tex render_graph.Texture) error {
	b, ok := v.program.pipeline.Shader().Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q in %q", ErrUnknownVariable, name, v.program.Key())
	}
	storage := b.Entry.StorageTexture.Access != wgpu.StorageTextureAccessUndefined
	if b.Entry.Texture.SampleType == wgpu.TextureSampleTypeUndefined && !storage {
		return fmt.Errorf("%w: %q is not a texture", ErrBindingKind, name)
	}

	t, ok := tex.(*texture)
	if !ok || t == nil {
		return fmt.Errorf("%w: texture %T bound to %q", ErrForeignResource, tex, name)
	}
	if t.released {
		return fmt.Errorf("%w: texture %q bound to %q", ErrReleased, t.desc.Label, name)
	}
	if storage {
		if !t.desc.BindFlags.Has(render_graph.BindFlagUnorderedAccess) {
			return fmt.Errorf("%w: %q needs unordered access on %q", ErrMissingUsage, name, t.desc.Label)
		}
		if format, err := textureFormat(t.desc.Format); err != nil || format != b.Entry.StorageTexture.Format {
			return fmt.Errorf("%w: %q format %s does not match storage binding", ErrBindingKind, t.desc.Label, t.desc.Format)
		}
	} else if !t.desc.BindFlags.Has(render_graph.BindFlagShaderResource) {
		return fmt.Errorf("%w: %q needs shader resource on %q", ErrMissingUsage, name, t.desc.Label)
	}

	v.providers[b.Group].SetTextureView(b.Binding, t.view)
	return nil
}

func (v *programVars) SetUniform(name string, block render_graph.UniformBlock) error {
	b, ok := v.program.pipeline.Shader().Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q in %q", ErrUnknownVariable, name, v.program.Key())
	}
	if b.Entry.Buffer.Type != wgpu.BufferBindingTypeUniform {
		return fmt.Errorf("%w: %q is not a uniform buffer", ErrBindingKind, name)
	}

	data := block.Marshal()
	size := uint64(common.AlignUp(uniformAlignment, uint32(len(data))))
	size = max(size, b.Entry.Buffer.MinBindingSize)

	provider := v.providers[b.Group]
	key := [2]int{b.Group, b.Binding}
	if provider.Buffer(b.Binding) == nil || v.bufferSizes[key] < size {
		buf, err := v.program.renderer.backend.CreateUniformBuffer(fmt.Sprintf("%s %s", v.program.Key(), name), size)
		if err != nil {
			return fmt.Errorf("renderer: uniform %q: %w", name, err)
		}
		provider.SetBuffer(b.Binding, buf)
		v.bufferSizes[key] = size
	}

	padded := make([]byte, common.AlignUp(4, uint32(len(data))))
	copy(padded, data)
	v.pending = append(v.pending, bind_group_provider.BufferWrite{
		Provider: provider,
		Binding:  b.Binding,
		Offset:   0,
		Data:     padded,
	})
	return nil
}

func (v *programVars) Release() {
	for _, provider := range v.providers {
		if provider != nil {
			provider.Release()
		}
	}
	v.pending = nil
	clear(v.bufferSizes)
}
