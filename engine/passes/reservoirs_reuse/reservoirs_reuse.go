// Package reservoirs_reuse implements the spatial reservoir reuse stage: a compute pass that
// resamples each pixel's light-sampling reservoir against random neighbours and writes an
// updated color buffer.
//
// The pass owns the compiled kernel, a temporal frame counter and an accumulation buffer, and
// keeps them coherent across resolution, option and scene changes:
//   - the frame counter resets to 0 whenever the output resolution changes, the accumulation
//     buffer is reallocated, or the scene changes
//   - the accumulation buffer is cleared to zero on every frame that observes a counter of 0
//   - the kernel is compiled at most once per scene
package reservoirs_reuse

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/Carmen-Shannon/oxy-restir/common"
	"github.com/Carmen-Shannon/oxy-restir/engine/gui"
	"github.com/Carmen-Shannon/oxy-restir/engine/plugin"
	"github.com/Carmen-Shannon/oxy-restir/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-restir/engine/sample_generator"
	"github.com/Carmen-Shannon/oxy-restir/engine/scene"
)

const (
	// ClassName is the plugin class name of the pass.
	ClassName = "ReservoirsReuse"

	// DefaultSpatialReuseSampleCount is the number of neighbours resampled per pixel until edited.
	DefaultSpatialReuseSampleCount uint32 = 4

	// MaxSpatialReuseSampleCount is the upper bound of the editable sample count.
	MaxSpatialReuseSampleCount uint32 = 1 << 16

	// SpatialReuseLabel is the widget label of the sample count.
	SpatialReuseLabel = "Spatial Reuse Number"

	// SpatialReuseTooltip is the widget tooltip of the sample count.
	SpatialReuseTooltip = "The number of spatial reuse sample."

	// ChannelColorIn is the input color channel.
	ChannelColorIn = "colorin"

	// ChannelReservoirsIn is the input reservoir channel.
	ChannelReservoirsIn = "reservoirsin"

	// ChannelColorOut is the output color channel.
	ChannelColorOut = "colorout"

	programKey          = "ReservoirsReuse"
	entryPoint          = "main"
	constantsVar        = "CB"
	constantsInclude    = "reservoirs_reuse_constants"
	constantsType       = "ReservoirsReuseConstants"
	accumulationVar     = "gReservoirsOut"
	accumulationLabel   = "ReservoirsReuse.reservoirsOut"
	accumulationFormat  = render_graph.ResourceFormatRGBA32Float
	accumulationBinding = render_graph.BindFlagShaderResource | render_graph.BindFlagUnorderedAccess | render_graph.BindFlagCopyDst
)

var (
	inputChannels = render_graph.ChannelList{
		{Name: ChannelColorIn, TexName: "gOutputColor", Desc: "Output color (sum of direct and indirect)", Format: render_graph.ResourceFormatRGBA32Float},
		{Name: ChannelReservoirsIn, TexName: "gReservoirsIn", Desc: "ReSTIR reservoirs", Format: render_graph.ResourceFormatRGBA32Float},
	}

	outputChannels = render_graph.ChannelList{
		{Name: ChannelColorOut, TexName: "gOutputColor2", Desc: "Output color (sum of direct and indirect)", Format: render_graph.ResourceFormatRGBA32Float},
	}
)

// Stats counts the GPU work the pass has recorded.
type Stats struct {
	Compiles      uint64
	Reallocations uint64
	Clears        uint64
	Dispatches    uint64
}

// reservoirsReuse is the implementation of the ReservoirsReuse interface.
type reservoirsReuse struct {
	device          render_graph.Device
	logger          *slog.Logger
	sampleGenerator sample_generator.SampleGenerator
	seed            uint32
	source          string

	frameDim       common.Uint2
	frameCount     uint32
	spatialSamples uint32
	optionsChanged bool

	program       render_graph.Program
	vars          render_graph.ProgramVars
	reservoirsOut render_graph.Texture

	stats Stats
}

// ReservoirsReuse is the spatial reservoir reuse render pass.
type ReservoirsReuse interface {
	render_graph.RenderPass

	// FrameCount returns the number of frames accumulated since the last reset.
	FrameCount() uint32

	// FrameDimensions returns the resolution observed on the last executed frame.
	FrameDimensions() common.Uint2

	// SpatialReuseSampleCount returns the current number of neighbours resampled per pixel.
	SpatialReuseSampleCount() uint32

	// OptionsChanged reports whether a UI edit is waiting to be signalled to the graph.
	OptionsChanged() bool

	// Compiled reports whether the kernel is compiled for the current scene.
	Compiled() bool

	// AccumulationBuffer returns the owned accumulation buffer, or nil before the first frame.
	AccumulationBuffer() render_graph.Texture

	// Stats returns the pass's work counters.
	//
	// Returns:
	//   - Stats: the counters
	Stats() Stats

	// Release frees the kernel and the accumulation buffer.
	Release()
}

var _ ReservoirsReuse = &reservoirsReuse{}

// New creates the pass. No GPU objects are created until the first Execute. Panics if device is nil.
//
// Parameters:
//   - device: the device programs and buffers are created on
//   - props: the pass properties, currently unused
//   - options: functional options for pass configuration
//
// Returns:
//   - ReservoirsReuse: the pass
func New(device render_graph.Device, props render_graph.Properties, options ...ReservoirsReuseBuilderOption) ReservoirsReuse {
	if device == nil {
		panic("reservoirs_reuse: device is required")
	}
	p := &reservoirsReuse{
		device:         device,
		logger:         slog.New(slog.DiscardHandler),
		source:         kernelSource,
		spatialSamples: DefaultSpatialReuseSampleCount,
	}
	for _, opt := range options {
		opt(p)
	}
	p.sampleGenerator = sample_generator.NewSampleGenerator(sample_generator.TypeUniform, p.seed)
	if len(props) > 0 {
		p.logger.Warn("ignoring pass properties", "count", len(props))
	}
	return p
}

// RegisterPlugin registers the pass class with a plugin registry.
//
// Parameters:
//   - registry: the registry to extend
//   - options: options applied to every pass the factory creates
//
// Returns:
//   - error: plugin.ErrDuplicateClass if the class is already registered
func RegisterPlugin(registry plugin.Registry, options ...ReservoirsReuseBuilderOption) error {
	return registry.RegisterClass(plugin.ClassInfo{
		Name:        ClassName,
		Description: "Spatial reuse of ReSTIR reservoirs",
		Factory: func(device render_graph.Device, props render_graph.Properties) (render_graph.RenderPass, error) {
			return New(device, props, options...), nil
		},
	})
}

func (p *reservoirsReuse) Properties() render_graph.Properties {
	return render_graph.Properties{}
}

func (p *reservoirsReuse) Reflect(render_graph.CompileData) render_graph.Reflection {
	var r render_graph.Reflection
	render_graph.AddRenderPassInputs(&r, inputChannels)
	render_graph.AddRenderPassOutputs(&r, outputChannels)
	return r
}

func (p *reservoirsReuse) Execute(ctx render_graph.RenderContext, data render_graph.RenderData) error {
	dst := data.Texture(outputChannels[0].Name)
	if dst == nil {
		panic(fmt.Sprintf("reservoirs_reuse: output %q is not bound", outputChannels[0].Name))
	}
	resolution := common.Uint2{X: dst.Width(), Y: dst.Height()}
	if resolution.IsZero() {
		panic(fmt.Sprintf("reservoirs_reuse: output %q has zero size %s", outputChannels[0].Name, resolution))
	}

	if resolution != p.frameDim {
		p.logger.Debug("resolution changed", "from", p.frameDim, "to", resolution)
		p.frameDim = resolution
		p.frameCount = 0
	}

	if p.optionsChanged {
		data.Dictionary().MergeRefreshFlags(render_graph.RefreshFlagsRenderOptionsChanged)
		p.optionsChanged = false
	}

	if p.program == nil {
		if err := p.compile(data); err != nil {
			return err
		}
	}

	constants := GPUConstants{
		FrameCount:         p.frameCount,
		Resolution:         [2]uint32{p.frameDim.X, p.frameDim.Y},
		SpatialSampleCount: p.spatialSamples,
	}
	if err := p.vars.SetUniform(constantsVar, &constants); err != nil {
		return fmt.Errorf("reservoirs_reuse: bind %s: %w", constantsVar, err)
	}

	if err := p.prepareAccumulation(ctx, p.frameDim.X, p.frameDim.Y); err != nil {
		return err
	}
	if err := p.vars.SetTexture(accumulationVar, p.reservoirsOut); err != nil {
		return fmt.Errorf("reservoirs_reuse: bind %s: %w", accumulationVar, err)
	}

	// resources may be swapped by the graph between frames
	for _, c := range slices.Concat(inputChannels, outputChannels) {
		if c.TexName == "" {
			continue
		}
		tex := data.Texture(c.Name)
		if tex == nil {
			if !c.Optional {
				panic(fmt.Sprintf("reservoirs_reuse: required channel %q is not bound", c.Name))
			}
			continue
		}
		if err := p.vars.SetTexture(c.TexName, tex); err != nil {
			return fmt.Errorf("reservoirs_reuse: bind %s: %w", c.TexName, err)
		}
	}

	groups := common.DivRoundUp(p.frameDim.Extend(1), p.program.ThreadGroupSize())
	if err := ctx.Dispatch(p.program, p.vars, groups); err != nil {
		return fmt.Errorf("reservoirs_reuse: dispatch %s: %w", groups, err)
	}
	p.stats.Dispatches++
	p.frameCount++
	return nil
}

func (p *reservoirsReuse) RenderUI(widgets gui.Widgets) {
	dirty := widgets.Var(SpatialReuseLabel, &p.spatialSamples, 0, MaxSpatialReuseSampleCount)
	widgets.Tooltip(SpatialReuseTooltip)

	if dirty {
		p.optionsChanged = true
	}
}

func (p *reservoirsReuse) SetScene(_ render_graph.RenderContext, s scene.Scene) {
	p.releaseProgram()
	p.frameCount = 0

	name := "<none>"
	if s != nil {
		name = s.String()
	}
	p.logger.Info("scene changed, kernel dropped", "scene", name)
}

func (p *reservoirsReuse) FrameCount() uint32 {
	return p.frameCount
}

func (p *reservoirsReuse) FrameDimensions() common.Uint2 {
	return p.frameDim
}

func (p *reservoirsReuse) SpatialReuseSampleCount() uint32 {
	return p.spatialSamples
}

func (p *reservoirsReuse) OptionsChanged() bool {
	return p.optionsChanged
}

func (p *reservoirsReuse) Compiled() bool {
	return p.program != nil
}

func (p *reservoirsReuse) AccumulationBuffer() render_graph.Texture {
	return p.reservoirsOut
}

func (p *reservoirsReuse) Stats() Stats {
	return p.stats
}

func (p *reservoirsReuse) Release() {
	p.releaseProgram()
	if p.reservoirsOut != nil {
		p.reservoirsOut.Release()
		p.reservoirsOut = nil
	}
	p.frameCount = 0
}

// compile builds the kernel with availability and sample generator defines, creates its
// binding context and binds the sample generator state once.
func (p *reservoirsReuse) compile(data render_graph.RenderData) error {
	defines := render_graph.DefineList{}.
		Merge(render_graph.ValidResourceDefines(inputChannels, data)).
		Merge(render_graph.ValidResourceDefines(outputChannels, data)).
		Merge(p.sampleGenerator.Defines())

	program, err := p.device.CreateComputeProgram(render_graph.ProgramDesc{
		Key:        programKey,
		Source:     p.source,
		EntryPoint: entryPoint,
		Defines:    defines,
		Includes: []render_graph.Include{
			{Name: constantsInclude, Type: constantsType, Source: GPUConstantsSource},
			p.sampleGenerator.Include(),
		},
	})
	if err != nil {
		return fmt.Errorf("reservoirs_reuse: compile kernel: %w", err)
	}

	vars, err := program.CreateVars()
	if err != nil {
		program.Release()
		return fmt.Errorf("reservoirs_reuse: create vars: %w", err)
	}
	if err := p.sampleGenerator.BindShaderData(vars); err != nil {
		vars.Release()
		program.Release()
		return fmt.Errorf("reservoirs_reuse: %w", err)
	}

	p.program = program
	p.vars = vars
	p.stats.Compiles++
	p.logger.Debug("kernel compiled", "key", programKey, "group", program.ThreadGroupSize(), "defines", len(defines))
	return nil
}

// prepareAccumulation keeps the accumulation buffer sized to width x height. A new buffer resets
// the frame counter, and any frame with a counter of 0 clears the buffer.
func (p *reservoirsReuse) prepareAccumulation(ctx render_graph.RenderContext, width, height uint32) error {
	if p.reservoirsOut == nil || p.reservoirsOut.Width() != width || p.reservoirsOut.Height() != height {
		tex, err := p.device.CreateTexture2D(render_graph.TextureDesc{
			Label:       accumulationLabel,
			Width:       width,
			Height:      height,
			Format:      accumulationFormat,
			MipLevels:   1,
			SampleCount: 1,
			BindFlags:   accumulationBinding,
		})
		if err != nil {
			return fmt.Errorf("reservoirs_reuse: allocate accumulation buffer %dx%d: %w", width, height, err)
		}
		if p.reservoirsOut != nil {
			p.reservoirsOut.Release()
		}
		p.reservoirsOut = tex
		p.frameCount = 0
		p.stats.Reallocations++
		p.logger.Debug("accumulation buffer allocated", "size", common.Uint2{X: width, Y: height})
	}

	if p.frameCount == 0 {
		if err := ctx.ClearTexture(p.reservoirsOut, common.Float4{}); err != nil {
			return fmt.Errorf("reservoirs_reuse: clear accumulation buffer: %w", err)
		}
		p.stats.Clears++
	}
	return nil
}

// releaseProgram drops the kernel and its binding context.
func (p *reservoirsReuse) releaseProgram() {
	if p.vars != nil {
		p.vars.Release()
		p.vars = nil
	}
	if p.program != nil {
		p.program.Release()
		p.program = nil
	}
}
