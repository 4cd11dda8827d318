package render_graph

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-restir/common"
	"github.com/Carmen-Shannon/oxy-restir/engine/gui"
	"github.com/Carmen-Shannon/oxy-restir/engine/scene"
)

var (
	// ErrDuplicatePass is returned when a pass name is registered twice.
	ErrDuplicatePass = errors.New("render_graph: duplicate pass name")

	// ErrFormatMismatch is returned when two passes declare the same channel with different formats.
	ErrFormatMismatch = errors.New("render_graph: channel format mismatch")

	// ErrNoDimensions is returned when a graph is executed before its resolution is set.
	ErrNoDimensions = errors.New("render_graph: default texture dimensions not set")
)

// graphNode is a named pass together with its last reflection.
type graphNode struct {
	name       string
	pass       RenderPass
	reflection Reflection
}

// graph implements the Graph interface.
type graph struct {
	mu     *sync.Mutex
	device Device
	logger *slog.Logger

	nodes       []*graphNode
	dims        common.Uint2
	allocated   common.Uint2
	compiled    bool
	resources   map[string]Texture
	descs       map[string]TextureDesc
	lastDict    Dictionary
	frameIndex  uint64
	activeScene scene.Scene
}

// Graph is a linear render graph host. It owns every resource declared by its passes,
// allocating them at the default resolution and reallocating on resize, and executes the
// passes in registration order with one shared dictionary per frame.
type Graph interface {
	// AddPass appends a pass to the execution order.
	//
	// Parameters:
	//   - name: the unique pass name
	//   - pass: the pass
	//
	// Returns:
	//   - error: ErrDuplicatePass if name is already used
	AddPass(name string, pass RenderPass) error

	// Pass looks up a pass by name.
	//
	// Parameters:
	//   - name: the pass name
	//
	// Returns:
	//   - RenderPass: the pass, or nil if not registered
	Pass(name string) RenderPass

	// SetDefaultDims sets the resolution resources are allocated at. A change takes effect on
	// the next Execute, which reallocates every graph-owned resource.
	//
	// Parameters:
	//   - dims: the new resolution
	SetDefaultDims(dims common.Uint2)

	// DefaultDims returns the current default resolution.
	DefaultDims() common.Uint2

	// Compile reflects every pass and allocates the declared resources.
	//
	// Returns:
	//   - error: an error if reflection is inconsistent or allocation fails
	Compile() error

	// Execute runs one frame: compile if needed, then Execute every pass in order.
	//
	// Parameters:
	//   - ctx: the render context to record into
	//
	// Returns:
	//   - Dictionary: the dictionary shared by the passes this frame
	//   - error: the first pass error, wrapped with the pass name
	Execute(ctx RenderContext) (Dictionary, error)

	// RenderUI draws the options of every pass in order.
	//
	// Parameters:
	//   - widgets: the widget surface
	RenderUI(widgets gui.Widgets)

	// SetScene forwards a scene change to every pass.
	//
	// Parameters:
	//   - ctx: the render context
	//   - s: the new scene
	SetScene(ctx RenderContext, s scene.Scene)

	// Scene returns the scene last set on the graph.
	Scene() scene.Scene

	// Resource returns the graph-owned resource bound to a channel name.
	//
	// Parameters:
	//   - name: the channel name
	//
	// Returns:
	//   - Texture: the resource, or nil if not allocated
	Resource(name string) Texture

	// FrameIndex returns the number of frames executed successfully.
	FrameIndex() uint64

	// Release frees every graph-owned resource and releases every pass that owns GPU state.
	Release()
}

// releaser is implemented by passes that own GPU objects of their own.
type releaser interface {
	Release()
}

var _ Graph = &graph{}

// NewGraph creates an empty Graph allocating through device. Panics if device is nil.
//
// Parameters:
//   - device: the device resources are allocated on
//   - options: functional options for graph configuration
//
// Returns:
//   - Graph: the new graph
func NewGraph(device Device, options ...GraphBuilderOption) Graph {
	if device == nil {
		panic("render_graph: NewGraph requires a device")
	}
	g := &graph{
		mu:        &sync.Mutex{},
		device:    device,
		logger:    slog.New(slog.DiscardHandler),
		resources: make(map[string]Texture),
		descs:     make(map[string]TextureDesc),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *graph) AddPass(name string, pass RenderPass) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		if n.name == name {
			return fmt.Errorf("%w: %q", ErrDuplicatePass, name)
		}
	}
	g.nodes = append(g.nodes, &graphNode{name: name, pass: pass})
	g.compiled = false
	return nil
}

func (g *graph) Pass(name string) RenderPass {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		if n.name == name {
			return n.pass
		}
	}
	return nil
}

func (g *graph) SetDefaultDims(dims common.Uint2) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dims = dims
}

func (g *graph) DefaultDims() common.Uint2 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dims
}

func (g *graph) Compile() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.compile()
}

// compile reflects every pass, merges the declared fields per channel and (re)allocates
// resources whose description changed. Callers must hold g.mu.
func (g *graph) compile() error {
	if g.dims.IsZero() {
		return ErrNoDimensions
	}

	compileData := CompileData{DefaultTexDims: g.dims}
	wanted := make(map[string]TextureDesc)
	var order []string
	for _, n := range g.nodes {
		n.reflection = n.pass.Reflect(compileData)
		for _, f := range n.reflection.Fields() {
			desc, seen := wanted[f.Name]
			if !seen {
				desc = TextureDesc{
					Label:       f.Name,
					Width:       g.dims.X,
					Height:      g.dims.Y,
					Format:      common.Coalesce(f.Format, ResourceFormatRGBA32Float),
					MipLevels:   1,
					SampleCount: 1,
				}
				order = append(order, f.Name)
			} else if f.Format != ResourceFormatUnknown && desc.Format != f.Format {
				return fmt.Errorf("%w: %q is %s and %s", ErrFormatMismatch, f.Name, desc.Format, f.Format)
			}
			desc.BindFlags |= fieldUsage(f)
			wanted[f.Name] = desc
		}
	}

	for name, tex := range g.resources {
		if _, ok := wanted[name]; !ok {
			tex.Release()
			delete(g.resources, name)
			delete(g.descs, name)
		}
	}
	for _, name := range order {
		desc := wanted[name]
		if _, ok := g.resources[name]; ok && g.descs[name] == desc {
			continue
		}
		if tex, ok := g.resources[name]; ok {
			tex.Release()
			delete(g.resources, name)
		}
		tex, err := g.device.CreateTexture2D(desc)
		if err != nil {
			return fmt.Errorf("render_graph: allocate %q: %w", name, err)
		}
		g.resources[name] = tex
		g.descs[name] = desc
		g.logger.Debug("allocated graph resource", "channel", name, "dims", g.dims.String(), "format", desc.Format.String())
	}

	g.allocated = g.dims
	g.compiled = true
	return nil
}

// fieldUsage returns the bind flags the graph allocates a field with. Inputs are written by the
// host through queue uploads and outputs are read back, on top of what the pass requested.
func fieldUsage(f Field) BindFlags {
	switch f.Visibility {
	case FieldVisibilityOutput:
		return f.BindFlags | BindFlagUnorderedAccess | BindFlagShaderResource | BindFlagCopySrc
	default:
		return f.BindFlags | BindFlagShaderResource | BindFlagCopyDst
	}
}

func (g *graph) Execute(ctx RenderContext) (Dictionary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.compiled || g.allocated != g.dims {
		if err := g.compile(); err != nil {
			return nil, err
		}
	}

	dict := Dictionary{}
	for _, n := range g.nodes {
		resources := make(map[string]Texture)
		for _, f := range n.reflection.Fields() {
			if tex, ok := g.resources[f.Name]; ok {
				resources[f.Name] = tex
			}
		}
		data := NewRenderData(resources, dict, g.dims)
		if err := n.pass.Execute(ctx, data); err != nil {
			return dict, fmt.Errorf("render_graph: pass %q: %w", n.name, err)
		}
	}

	g.lastDict = dict
	g.frameIndex++
	return dict, nil
}

func (g *graph) RenderUI(widgets gui.Widgets) {
	g.mu.Lock()
	nodes := append([]*graphNode(nil), g.nodes...)
	g.mu.Unlock()
	for _, n := range nodes {
		n.pass.RenderUI(widgets)
	}
}

func (g *graph) SetScene(ctx RenderContext, s scene.Scene) {
	g.mu.Lock()
	g.activeScene = s
	nodes := append([]*graphNode(nil), g.nodes...)
	g.mu.Unlock()
	g.logger.Info("scene changed", "scene", sceneName(s))
	for _, n := range nodes {
		n.pass.SetScene(ctx, s)
	}
}

func (g *graph) Scene() scene.Scene {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeScene
}

func (g *graph) Resource(name string) Texture {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resources[name]
}

func (g *graph) FrameIndex() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frameIndex
}

func (g *graph) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		if r, ok := n.pass.(releaser); ok {
			r.Release()
		}
	}
	for name, tex := range g.resources {
		tex.Release()
		delete(g.resources, name)
		delete(g.descs, name)
	}
	g.compiled = false
	g.allocated = common.Uint2{}
}

func sceneName(s scene.Scene) string {
	if s == nil {
		return "<none>"
	}
	return s.String()
}
