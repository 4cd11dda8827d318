package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the implementation of the BindGroupProvider interface.
type bindGroupProvider struct {
	label string
	group int

	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout
	buffers         map[int]*wgpu.Buffer
	textureViews    map[int]*wgpu.TextureView

	// dirty is set whenever a bound resource changes identity and cleared once the bind
	// group has been rebuilt.
	dirty   bool
	rebuilt int
}

// BindGroupProvider owns the GPU objects bound to one bind group of a compute program: its
// layout, the uniform buffers it allocated, the texture views borrowed from graph resources,
// and the bind group built over them. The bind group is rebuilt only when a bound resource
// changes identity.
type BindGroupProvider interface {
	// Release frees the bind group and the owned buffers. Borrowed texture views and the
	// layout are not released.
	Release()

	// Label returns the provider's debug label.
	Label() string

	// Group returns the bind group index this provider serves.
	Group() int

	// BindGroup returns the current bind group, or nil before the first build.
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the layout the bind group is built against.
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer at binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer, or nil if none is set
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view at binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the view, or nil if none is set
	TextureView(binding int) *wgpu.TextureView

	// SetBindGroup replaces the bind group, releasing the previous one, and clears the dirty flag.
	//
	// Parameters:
	//   - bg: the rebuilt bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout sets the layout and marks the provider dirty.
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer sets the buffer at binding. Setting a different buffer marks the provider dirty.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer, owned by the provider from now on
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView sets the view at binding. Setting a different view marks the provider dirty.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the borrowed view
	//
	// Returns:
	//   - bool: true if the binding changed
	SetTextureView(binding int, tv *wgpu.TextureView) bool

	// Dirty reports whether the bind group must be rebuilt before the next dispatch.
	Dirty() bool

	// Rebuilds returns how many times the bind group was replaced.
	Rebuilds() int
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider for a bind group index.
//
// Parameters:
//   - label: the debug label
//   - group: the bind group index
//   - options: functional options for provider configuration
//
// Returns:
//   - BindGroupProvider: the new provider, dirty until its first bind group is set
func NewBindGroupProvider(label string, group int, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		group:        group,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		dirty:        true,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Group() int {
	return p.group
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	if p.bindGroup != nil && p.bindGroup != bg {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
	p.dirty = false
	p.rebuilt++
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
	p.dirty = true
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	if prev := p.buffers[binding]; prev == buf {
		return
	} else if prev != nil {
		prev.Release()
	}
	p.buffers[binding] = buf
	p.dirty = true
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) bool {
	if prev, ok := p.textureViews[binding]; ok && prev == tv {
		return false
	}
	p.textureViews[binding] = tv
	p.dirty = true
	return true
}

func (p *bindGroupProvider) Dirty() bool {
	return p.dirty
}

func (p *bindGroupProvider) Rebuilds() int {
	return p.rebuilt
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	for binding, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, binding)
	}
	clear(p.textureViews)
	p.dirty = true
}
