package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/Carmen-Shannon/oxy-restir/common"
	"github.com/Carmen-Shannon/oxy-restir/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-restir/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-restir/engine/renderer/shader"
)

var (
	// ErrFrameInProgress is returned when an operation needs the queue drained while a batched frame is open.
	ErrFrameInProgress = errors.New("renderer: compute frame in progress")

	// ErrForeignResource is returned for textures, programs or vars not created by this renderer.
	ErrForeignResource = errors.New("renderer: resource not owned by this renderer")

	// ErrReleased is returned when a released texture or program is used.
	ErrReleased = errors.New("renderer: resource released")

	// ErrUnknownVariable is returned when a kernel variable name has no binding.
	ErrUnknownVariable = errors.New("renderer: unknown kernel variable")

	// ErrBindingKind is returned when a resource is bound to a variable of another kind.
	ErrBindingKind = errors.New("renderer: binding kind mismatch")

	// ErrMissingUsage is returned when a texture lacks the usage an operation needs.
	ErrMissingUsage = errors.New("renderer: texture usage missing")

	// ErrInvalidTexture is returned for texture descriptions the backend cannot allocate.
	ErrInvalidTexture = errors.New("renderer: invalid texture description")
)

// RendererStats counts the work a renderer has done since creation.
type RendererStats struct {
	TexturesCreated   int
	ProgramsCompiled  int
	Dispatches        int
	Clears            int
	Uploads           int
	Readbacks         int
	BindGroupRebuilds int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	validate             bool
	includes             []render_graph.Include
	logger               *slog.Logger

	stats RendererStats
}

// Renderer is a headless compute device. It allocates textures, compiles WGSL compute programs
// through the shader pre-processor, and records dispatches either one submission at a time or
// batched between BeginFrame and EndFrame.
type Renderer interface {
	render_graph.Device
	render_graph.RenderContext

	// Pipeline retrieves the live Pipeline compiled under the given program key.
	// If no such program exists, this will return nil.
	//
	// Parameters:
	//   - key: the program key
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves a copy of the live pipeline cache.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of program keys to their Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// BeginFrame opens a command encoder that batches every dispatch until EndFrame.
	//
	// Returns:
	//   - error: ErrFrameInProgress if a frame is already open, or an encoder error
	BeginFrame() error

	// EndFrame finishes the batched encoder and submits it to the queue.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndFrame() error

	// Upload writes tightly packed texel data covering the whole texture.
	//
	// Parameters:
	//   - tex: the destination texture, created with BindFlagCopyDst
	//   - pixels: row-major texel data of exactly Width*Height*BytesPerPixel bytes
	//
	// Returns:
	//   - error: an error if the texture is foreign, lacks CopyDst, or the data size is wrong
	Upload(tex render_graph.Texture, pixels []byte) error

	// Readback copies a texture back to the CPU and waits for the GPU to finish.
	//
	// Parameters:
	//   - tex: the source texture, created with BindFlagCopySrc
	//
	// Returns:
	//   - common.TextureStagingData: the tightly packed texel data
	//   - error: ErrFrameInProgress inside a batched frame, or a copy error
	Readback(tex render_graph.Texture) (common.TextureStagingData, error)

	// Stats returns a snapshot of the renderer's work counters.
	//
	// Returns:
	//   - RendererStats: the counters
	Stats() RendererStats

	// BackendType returns the backend the renderer was created with.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Release frees every cached pipeline and the GPU device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new headless Renderer on the requested backend.
//
// Parameters:
//   - backendType: the type of GPU backend to use (e.g., WGPU)
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if no adapter or device could be acquired
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		logger:        slog.New(slog.DiscardHandler),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		backend, err := newWGPURendererBackend(r.forceFallbackAdapter)
		if err != nil {
			return nil, err
		}
		r.backend = backend
	}

	r.logger.Info("renderer ready", "backend", backendType, "fallback", r.forceFallbackAdapter, "validate", r.validate)
	return r, nil
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.pipelineCache)
}

func (r *renderer) Stats() RendererStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) CreateTexture2D(desc render_graph.TextureDesc) (render_graph.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: %q has zero extent %dx%d", ErrInvalidTexture, desc.Label, desc.Width, desc.Height)
	}
	if desc.MipLevels > 1 || desc.SampleCount > 1 {
		return nil, fmt.Errorf("%w: %q mips=%d samples=%d, only single level single sample textures are supported",
			ErrInvalidTexture, desc.Label, desc.MipLevels, desc.SampleCount)
	}
	format, err := textureFormat(desc.Format)
	if err != nil {
		return nil, err
	}

	tex, view, err := r.backend.CreateTexture(desc.Label, desc.Width, desc.Height, format, textureUsage(desc.BindFlags))
	if err != nil {
		return nil, fmt.Errorf("renderer: create texture %q: %w", desc.Label, err)
	}

	r.mu.Lock()
	r.stats.TexturesCreated++
	r.mu.Unlock()

	r.logger.Debug("texture created", "label", desc.Label, "size", common.Uint2{X: desc.Width, Y: desc.Height}, "format", desc.Format)
	return &texture{desc: desc, tex: tex, view: view}, nil
}

func (r *renderer) CreateComputeProgram(desc render_graph.ProgramDesc) (render_graph.Program, error) {
	opts := []shader.PreProcessorBuilderOption{shader.WithDefines(desc.Defines)}
	for _, inc := range append(append([]render_graph.Include{}, r.includes...), desc.Includes...) {
		opts = append(opts, shader.WithInclude(inc.Name, inc.Type, inc.Source))
	}

	s, err := shader.NewShader(desc.Key, desc.Source, desc.EntryPoint, opts...)
	if err != nil {
		return nil, err
	}
	if r.validate {
		if _, err := shader.Validate(s); err != nil {
			return nil, err
		}
	}

	p := pipeline.NewPipeline(desc.Key, pipeline.WithComputeShader(s), pipeline.WithDefines(desc.Defines))
	if err := r.backend.RegisterComputePipeline(p); err != nil {
		p.Release()
		return nil, fmt.Errorf("renderer: register program %q: %w", desc.Key, err)
	}

	r.mu.Lock()
	r.pipelineCache[desc.Key] = p
	r.stats.ProgramsCompiled++
	r.mu.Unlock()

	r.logger.Debug("program compiled", "key", desc.Key, "entry", s.EntryPoint(), "group", p.ThreadGroupSize(), "defines", len(desc.Defines))
	return &computeProgram{renderer: r, pipeline: p, defines: maps.Clone(desc.Defines)}, nil
}

func (r *renderer) ClearTexture(tex render_graph.Texture, value common.Float4) error {
	t, err := r.ownTexture(tex, render_graph.BindFlagCopyDst)
	if err != nil {
		return err
	}
	texel, err := clearTexel(t.desc.Format, value)
	if err != nil {
		return err
	}
	r.backend.WriteTexture(t.tex, common.TextureStagingData{
		Pixels:        fillTexels(texel, t.desc.Width, t.desc.Height),
		Width:         t.desc.Width,
		Height:        t.desc.Height,
		BytesPerPixel: uint32(len(texel)),
	})

	r.mu.Lock()
	r.stats.Clears++
	r.mu.Unlock()
	return nil
}

func (r *renderer) Dispatch(program render_graph.Program, vars render_graph.ProgramVars, groups common.Uint3) error {
	p, ok := program.(*computeProgram)
	if !ok || p.renderer != r {
		return fmt.Errorf("%w: program %T", ErrForeignResource, program)
	}
	if p.released {
		return fmt.Errorf("%w: program %q", ErrReleased, p.Key())
	}
	v, ok := vars.(*programVars)
	if !ok || v.program != p {
		return fmt.Errorf("%w: vars do not belong to program %q", ErrForeignResource, p.Key())
	}

	if len(v.pending) > 0 {
		r.backend.WriteBuffers(v.pending)
		v.pending = v.pending[:0]
	}

	descriptors := p.pipeline.Shader().BindGroupLayoutDescriptors()
	rebuilt := 0
	for g, provider := range v.providers {
		if provider == nil || !provider.Dirty() {
			continue
		}
		if err := r.backend.BuildBindGroup(provider, descriptors[g]); err != nil {
			return fmt.Errorf("renderer: program %q: %w", p.Key(), err)
		}
		rebuilt++
	}

	if err := r.backend.DispatchCompute(p.pipeline, v.providers, [3]uint32{groups.X, groups.Y, groups.Z}); err != nil {
		return fmt.Errorf("renderer: dispatch %q: %w", p.Key(), err)
	}

	r.mu.Lock()
	r.stats.Dispatches++
	r.stats.BindGroupRebuilds += rebuilt
	r.mu.Unlock()
	return nil
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) EndFrame() error {
	return r.backend.EndComputeFrame()
}

func (r *renderer) Upload(tex render_graph.Texture, pixels []byte) error {
	t, err := r.ownTexture(tex, render_graph.BindFlagCopyDst)
	if err != nil {
		return err
	}
	staging := common.TextureStagingData{
		Pixels:        pixels,
		Width:         t.desc.Width,
		Height:        t.desc.Height,
		BytesPerPixel: t.desc.Format.BytesPerPixel(),
	}
	if want := int(staging.BytesPerRow()) * int(staging.Height); len(pixels) != want {
		return fmt.Errorf("renderer: upload %q: got %d bytes, want %d", t.desc.Label, len(pixels), want)
	}
	r.backend.WriteTexture(t.tex, staging)

	r.mu.Lock()
	r.stats.Uploads++
	r.mu.Unlock()
	return nil
}

func (r *renderer) Readback(tex render_graph.Texture) (common.TextureStagingData, error) {
	t, err := r.ownTexture(tex, render_graph.BindFlagCopySrc)
	if err != nil {
		return common.TextureStagingData{}, err
	}
	if r.backend.InComputeFrame() {
		return common.TextureStagingData{}, ErrFrameInProgress
	}

	bpp := t.desc.Format.BytesPerPixel()
	pixels, err := r.backend.ReadTexture(t.tex, t.desc.Width, t.desc.Height, bpp)
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("renderer: readback %q: %w", t.desc.Label, err)
	}

	r.mu.Lock()
	r.stats.Readbacks++
	r.mu.Unlock()

	return common.TextureStagingData{
		Pixels:        pixels,
		Width:         t.desc.Width,
		Height:        t.desc.Height,
		BytesPerPixel: bpp,
	}, nil
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	if r.backend != nil {
		r.backend.Release()
		r.backend = nil
	}
}

// ownTexture checks that tex was created by this renderer, is still alive and carries usage.
func (r *renderer) ownTexture(tex render_graph.Texture, usage render_graph.BindFlags) (*texture, error) {
	t, ok := tex.(*texture)
	if !ok {
		return nil, fmt.Errorf("%w: texture %T", ErrForeignResource, tex)
	}
	if t.released {
		return nil, fmt.Errorf("%w: texture %q", ErrReleased, t.desc.Label)
	}
	if !t.desc.BindFlags.Has(usage) {
		return nil, fmt.Errorf("%w: texture %q", ErrMissingUsage, t.desc.Label)
	}
	return t, nil
}

// evict drops p from the pipeline cache if it is still the live pipeline for its key.
func (r *renderer) evict(p pipeline.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pipelineCache[p.PipelineKey()] == p {
		delete(r.pipelineCache, p.PipelineKey())
	}
}
