package renderer

import (
	"github.com/Carmen-Shannon/oxy-restir/engine/render_graph"
	"github.com/cogentcore/webgpu/wgpu"
)

// texture is the WebGPU implementation of render_graph.Texture.
type texture struct {
	desc     render_graph.TextureDesc
	tex      *wgpu.Texture
	view     *wgpu.TextureView
	released bool
}

var _ render_graph.Texture = &texture{}

func (t *texture) Label() string {
	return t.desc.Label
}

func (t *texture) Width() uint32 {
	return t.desc.Width
}

func (t *texture) Height() uint32 {
	return t.desc.Height
}

func (t *texture) Format() render_graph.ResourceFormat {
	return t.desc.Format
}

func (t *texture) Release() {
	if t.released {
		return
	}
	t.released = true
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}
