package reservoirs_reuse

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-restir/common"
	"github.com/Carmen-Shannon/oxy-restir/engine/gui"
	"github.com/Carmen-Shannon/oxy-restir/engine/plugin"
	"github.com/Carmen-Shannon/oxy-restir/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-restir/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-restir/engine/sample_generator"
	"github.com/Carmen-Shannon/oxy-restir/engine/scene"
	"github.com/Carmen-Shannon/oxy-restir/internal/gputest"
	"github.com/google/go-cmp/cmp"
)

// frame holds the borrowed resources of one Execute call.
type frame struct {
	colorIn, reservoirsIn, colorOut *gputest.Texture
	dict                            render_graph.Dictionary
}

func newFrame(width, height uint32) *frame {
	return &frame{
		colorIn:      gputest.NewTexture("colorin", width, height),
		reservoirsIn: gputest.NewTexture("reservoirsin", width, height),
		colorOut:     gputest.NewTexture("colorout", width, height),
		dict:         render_graph.Dictionary{},
	}
}

func (f *frame) data() render_graph.RenderData {
	return render_graph.NewRenderData(map[string]render_graph.Texture{
		"colorin":      f.colorIn,
		"reservoirsin": f.reservoirsIn,
		"colorout":     f.colorOut,
	}, f.dict, common.Uint2{X: f.colorOut.Width(), Y: f.colorOut.Height()})
}

type harness struct {
	dev  *gputest.Device
	ctx  *gputest.Context
	pass ReservoirsReuse
}

func newHarness() *harness {
	dev := gputest.NewDevice()
	return &harness{
		dev:  dev,
		ctx:  gputest.NewContext(dev.Log),
		pass: New(dev, nil),
	}
}

func (h *harness) execute(t *testing.T, f *frame) {
	t.Helper()
	if err := h.pass.Execute(h.ctx, f.data()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

// observedConstants decodes the block bound to CB by the last Execute.
func (h *harness) observedConstants(t *testing.T) GPUConstants {
	t.Helper()
	prog := h.dev.LastProgram()
	if prog == nil || len(prog.Vars) == 0 {
		t.Fatal("no program vars recorded")
	}
	vars := prog.Vars[len(prog.Vars)-1]
	c, ok := UnmarshalGPUConstants(vars.Bindings[constantsVar].Uniform)
	if !ok {
		t.Fatalf("CB binding = %v", vars.Bindings[constantsVar].Uniform)
	}
	return c
}

func lastDispatch(t *testing.T, log *gputest.Log) gputest.Event {
	t.Helper()
	events := log.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Op == "Dispatch" {
			return events[i]
		}
	}
	t.Fatal("no dispatch recorded")
	return gputest.Event{}
}

func TestReflect(t *testing.T) {
	p := New(gputest.NewDevice(), nil)
	r := p.Reflect(render_graph.CompileData{})

	type field struct {
		Name, Desc string
		Optional   bool
		Format     render_graph.ResourceFormat
	}
	simplify := func(fs []render_graph.Field) []field {
		var out []field
		for _, f := range fs {
			out = append(out, field{f.Name, f.Desc, f.Optional, f.Format})
		}
		return out
	}

	wantIn := []field{
		{"colorin", "Output color (sum of direct and indirect)", false, render_graph.ResourceFormatRGBA32Float},
		{"reservoirsin", "ReSTIR reservoirs", false, render_graph.ResourceFormatRGBA32Float},
	}
	wantOut := []field{
		{"colorout", "Output color (sum of direct and indirect)", false, render_graph.ResourceFormatRGBA32Float},
	}
	if diff := cmp.Diff(wantIn, simplify(r.Inputs())); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantOut, simplify(r.Outputs())); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
	if _, ok := r.Field("reservoirsout"); ok {
		t.Error("reservoirsout must not be declared")
	}

	// reflecting does not touch the device or the pass state
	if p.Compiled() || p.FrameCount() != 0 || p.AccumulationBuffer() != nil {
		t.Error("Reflect changed the pass")
	}
}

func TestFirstExecute(t *testing.T) {
	h := newHarness()
	f := newFrame(1920, 1080)
	h.execute(t, f)

	wantOps := []string{
		"CreateProgram", "CreateVars", "SetUniform", // sample generator
		"SetUniform",                   // CB
		"CreateTexture", "Clear",       // accumulation buffer
		"SetTexture",                   // gReservoirsOut
		"SetTexture", "SetTexture", "SetTexture", // channels
		"Dispatch",
	}
	if diff := cmp.Diff(wantOps, h.dev.Log.Ops()); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}

	c := h.observedConstants(t)
	want := GPUConstants{FrameCount: 0, Resolution: [2]uint32{1920, 1080}, SpatialSampleCount: DefaultSpatialReuseSampleCount}
	if c != want {
		t.Errorf("CB = %+v, want %+v", c, want)
	}
	if got := lastDispatch(t, h.dev.Log).Groups; got != (common.Uint3{X: 120, Y: 68, Z: 1}) {
		t.Errorf("groups = %s, want (120, 68, 1)", got)
	}
	if h.pass.FrameCount() != 1 {
		t.Errorf("FrameCount = %d, want 1", h.pass.FrameCount())
	}

	acc := h.pass.AccumulationBuffer().(*gputest.Texture)
	if acc.Width() != 1920 || acc.Height() != 1080 || acc.Format() != render_graph.ResourceFormatRGBA32Float {
		t.Errorf("accumulation buffer = %dx%d %s", acc.Width(), acc.Height(), acc.Format())
	}
	if acc.Desc.MipLevels != 1 || acc.Desc.SampleCount != 1 ||
		!acc.Desc.BindFlags.Has(render_graph.BindFlagShaderResource|render_graph.BindFlagUnorderedAccess) {
		t.Errorf("accumulation desc = %+v", acc.Desc)
	}

	vars := h.dev.LastProgram().Vars[0]
	for name, want := range map[string]render_graph.Texture{
		"gOutputColor":   f.colorIn,
		"gReservoirsIn":  f.reservoirsIn,
		"gOutputColor2":  f.colorOut,
		"gReservoirsOut": acc,
	} {
		if vars.Bindings[name].Texture != want {
			t.Errorf("%s bound to %v", name, vars.Bindings[name].Texture)
		}
	}
	if _, ok := vars.Bindings[sample_generator.VarName]; !ok {
		t.Error("sample generator state not bound")
	}
}

func TestProgramDescription(t *testing.T) {
	h := newHarness()
	h.execute(t, newFrame(64, 64))

	desc := h.dev.LastProgram().Desc
	if desc.Key != programKey || desc.EntryPoint != "main" {
		t.Errorf("program %q entry %q", desc.Key, desc.EntryPoint)
	}
	want := render_graph.DefineList{
		"is_valid_gOutputColor":  "1",
		"is_valid_gReservoirsIn": "1",
		"is_valid_gOutputColor2": "1",
		"SAMPLE_GENERATOR_TYPE":  "1",
	}
	if diff := cmp.Diff(want, desc.Defines); diff != "" {
		t.Errorf("defines mismatch (-want +got):\n%s", diff)
	}
	var names []string
	for _, inc := range desc.Includes {
		names = append(names, inc.Name)
	}
	if diff := cmp.Diff([]string{constantsInclude, sample_generator.IncludeName}, names); diff != "" {
		t.Errorf("includes mismatch (-want +got):\n%s", diff)
	}
}

func TestSecondExecuteReusesState(t *testing.T) {
	h := newHarness()
	f := newFrame(1920, 1080)
	h.execute(t, f)
	h.dev.Log.Reset()
	h.execute(t, f)

	for _, op := range []string{"CreateProgram", "CreateVars", "CreateTexture", "Clear"} {
		if n := h.dev.Log.Count(op); n != 0 {
			t.Errorf("%s recorded %d times on the second frame", op, n)
		}
	}
	if c := h.observedConstants(t); c.FrameCount != 1 {
		t.Errorf("observed frame count = %d, want 1", c.FrameCount)
	}
	if h.pass.FrameCount() != 2 {
		t.Errorf("FrameCount = %d, want 2", h.pass.FrameCount())
	}
	// bindings are refreshed every frame
	if n := h.dev.Log.Count("SetTexture"); n != 4 {
		t.Errorf("SetTexture = %d, want 4", n)
	}
}

func TestResolutionChangeReallocatesAndClears(t *testing.T) {
	h := newHarness()
	h.execute(t, newFrame(1920, 1080))
	h.execute(t, newFrame(1920, 1080))
	first := h.pass.AccumulationBuffer().(*gputest.Texture)
	h.dev.Log.Reset()

	h.execute(t, newFrame(1280, 720))

	acc := h.pass.AccumulationBuffer().(*gputest.Texture)
	if acc == first || !first.Released {
		t.Error("accumulation buffer not replaced")
	}
	if acc.Width() != 1280 || acc.Height() != 720 {
		t.Errorf("accumulation buffer = %dx%d", acc.Width(), acc.Height())
	}
	if c := h.observedConstants(t); c.FrameCount != 0 || c.Resolution != [2]uint32{1280, 720} {
		t.Errorf("CB = %+v", c)
	}
	if h.dev.Log.Count("Clear") != 1 || h.dev.Log.Count("CreateProgram") != 0 {
		t.Errorf("ops = %v", h.dev.Log.Ops())
	}
	if h.pass.FrameDimensions() != (common.Uint2{X: 1280, Y: 720}) {
		t.Errorf("FrameDimensions = %s", h.pass.FrameDimensions())
	}
}

func TestFrameCountResetsExactlyOnResolutionChange(t *testing.T) {
	h := newHarness()
	sizes := []common.Uint2{
		{X: 64, Y: 64}, {X: 64, Y: 64}, {X: 64, Y: 64},
		{X: 32, Y: 64}, {X: 32, Y: 64},
		{X: 32, Y: 65},
		{X: 64, Y: 64}, {X: 64, Y: 64}, {X: 64, Y: 64}, {X: 64, Y: 64},
	}
	var prev common.Uint2
	var expected uint32
	for i, s := range sizes {
		if s != prev {
			expected = 0
		}
		h.dev.Log.Reset()
		h.execute(t, newFrame(s.X, s.Y))

		got := h.observedConstants(t).FrameCount
		if got != expected {
			t.Fatalf("frame %d (%s): observed frame count %d, want %d", i, s, got, expected)
		}
		cleared := h.dev.Log.Count("Clear") == 1
		if cleared != (expected == 0) {
			t.Fatalf("frame %d: cleared = %v with frame count %d", i, cleared, expected)
		}
		expected++
		prev = s
	}
}

func TestClearPrecedesDispatchWithZero(t *testing.T) {
	h := newHarness()
	h.execute(t, newFrame(16, 16))

	clearAt, dispatchAt := -1, -1
	for i, e := range h.dev.Log.Events() {
		switch e.Op {
		case "Clear":
			clearAt = i
			if e.Value != (common.Float4{}) || e.Target != accumulationLabel {
				t.Errorf("clear = %+v", e)
			}
		case "Dispatch":
			dispatchAt = i
		}
	}
	if clearAt < 0 || dispatchAt < 0 || clearAt > dispatchAt {
		t.Errorf("clear at %d, dispatch at %d", clearAt, dispatchAt)
	}
}

func TestUIEditSignalsOnce(t *testing.T) {
	h := newHarness()
	w := gui.NewScriptedWidgets()
	f := newFrame(32, 32)
	h.execute(t, f)

	h.pass.RenderUI(w)
	if h.pass.OptionsChanged() {
		t.Fatal("RenderUI without an edit set the flag")
	}
	if got := w.TooltipFor(SpatialReuseLabel); got != SpatialReuseTooltip {
		t.Errorf("tooltip = %q", got)
	}

	w.Queue(SpatialReuseLabel, 8)
	h.pass.RenderUI(w)
	if !h.pass.OptionsChanged() || h.pass.SpatialReuseSampleCount() != 8 {
		t.Fatalf("after edit: changed=%v count=%d", h.pass.OptionsChanged(), h.pass.SpatialReuseSampleCount())
	}

	f.dict = render_graph.Dictionary{}
	f.dict.MergeRefreshFlags(render_graph.RefreshFlagsLightingChanged)
	h.execute(t, f)
	want := render_graph.RefreshFlagsLightingChanged | render_graph.RefreshFlagsRenderOptionsChanged
	if got := f.dict.RefreshFlags(); got != want {
		t.Errorf("refresh flags = %s, want %s", got, want)
	}
	if h.pass.OptionsChanged() {
		t.Error("flag not cleared after Execute")
	}
	if c := h.observedConstants(t); c.SpatialSampleCount != 8 {
		t.Errorf("CB spatial samples = %d, want 8", c.SpatialSampleCount)
	}

	f.dict = render_graph.Dictionary{}
	h.execute(t, f)
	if got := f.dict.RefreshFlags(); got != render_graph.RefreshFlagsNone {
		t.Errorf("refresh flags on the following frame = %s", got)
	}
}

func TestUIEditClampsAndIgnoresSameValue(t *testing.T) {
	h := newHarness()
	w := gui.NewScriptedWidgets()

	w.Queue(SpatialReuseLabel, DefaultSpatialReuseSampleCount)
	h.pass.RenderUI(w)
	if h.pass.OptionsChanged() {
		t.Error("unchanged value set the flag")
	}

	w.Queue(SpatialReuseLabel, 1<<20)
	h.pass.RenderUI(w)
	if h.pass.SpatialReuseSampleCount() != MaxSpatialReuseSampleCount {
		t.Errorf("count = %d, want clamp to %d", h.pass.SpatialReuseSampleCount(), MaxSpatialReuseSampleCount)
	}
}

func TestSetSceneRecompiles(t *testing.T) {
	h := newHarness()
	f := newFrame(128, 64)
	h.execute(t, f)
	h.execute(t, f)
	h.execute(t, f)
	first := h.dev.LastProgram()

	h.pass.SetScene(h.ctx, scene.NewScene("cornell"))
	if h.pass.Compiled() || h.pass.FrameCount() != 0 {
		t.Fatalf("after SetScene: compiled=%v frameCount=%d", h.pass.Compiled(), h.pass.FrameCount())
	}
	if !first.Released || !first.Vars[0].Released {
		t.Error("program and vars not released")
	}

	h.dev.Log.Reset()
	h.execute(t, f)
	if h.dev.Log.Count("CreateProgram") != 1 || h.dev.Log.Count("Clear") != 1 || h.dev.Log.Count("CreateTexture") != 0 {
		t.Errorf("ops after scene change = %v", h.dev.Log.Ops())
	}
	if c := h.observedConstants(t); c.FrameCount != 0 {
		t.Errorf("observed frame count = %d, want 0", c.FrameCount)
	}
	if len(h.dev.Programs) != 2 || h.pass.Stats().Compiles != 2 {
		t.Errorf("programs = %d, compiles = %d", len(h.dev.Programs), h.pass.Stats().Compiles)
	}

	// nil scene is accepted
	h.pass.SetScene(h.ctx, nil)
	if h.pass.Compiled() {
		t.Error("kernel survived a nil scene change")
	}
}

func TestCompileAtMostOncePerScene(t *testing.T) {
	h := newHarness()
	for i := 0; i < 10; i++ {
		h.execute(t, newFrame(uint32(16+i), 16))
	}
	if n := len(h.dev.Programs); n != 1 {
		t.Errorf("compiled %d times, want 1", n)
	}
}

func TestCompileFailureIsReturned(t *testing.T) {
	h := newHarness()
	boom := errors.New("syntax error")
	h.dev.CompileErr = boom

	err := h.pass.Execute(h.ctx, newFrame(8, 8).data())
	if !errors.Is(err, boom) {
		t.Fatalf("Execute = %v, want compile error", err)
	}
	if h.dev.Log.Count("Dispatch") != 0 || h.pass.FrameCount() != 0 || h.pass.Compiled() {
		t.Error("failed compile still dispatched or advanced")
	}

	h.dev.CompileErr = nil
	h.execute(t, newFrame(8, 8))
	if !h.pass.Compiled() || h.pass.FrameCount() != 1 {
		t.Error("pass did not recover on the next frame")
	}
}

func TestAllocationFailureIsReturned(t *testing.T) {
	h := newHarness()
	boom := errors.New("out of memory")
	h.dev.AllocErr = boom

	if err := h.pass.Execute(h.ctx, newFrame(8, 8).data()); !errors.Is(err, boom) {
		t.Fatalf("Execute = %v, want allocation error", err)
	}
	if h.dev.Log.Count("Dispatch") != 0 || h.pass.AccumulationBuffer() != nil {
		t.Error("failed allocation still dispatched")
	}
}

func TestPreconditionViolationsPanic(t *testing.T) {
	tests := []struct {
		name string
		data func() render_graph.RenderData
	}{
		{name: "missing output", data: func() render_graph.RenderData {
			return render_graph.NewRenderData(map[string]render_graph.Texture{
				"colorin":      gputest.NewTexture("colorin", 8, 8),
				"reservoirsin": gputest.NewTexture("reservoirsin", 8, 8),
			}, nil, common.Uint2{X: 8, Y: 8})
		}},
		{name: "zero size output", data: func() render_graph.RenderData {
			return newFrame(0, 8).data()
		}},
		{name: "missing required input", data: func() render_graph.RenderData {
			return render_graph.NewRenderData(map[string]render_graph.Texture{
				"colorin":  gputest.NewTexture("colorin", 8, 8),
				"colorout": gputest.NewTexture("colorout", 8, 8),
			}, nil, common.Uint2{X: 8, Y: 8})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			_ = h.pass.Execute(h.ctx, tt.data())
		})
	}
}

func TestNewPanicsWithoutDevice(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New(nil, nil)
}

func TestDispatchGroups(t *testing.T) {
	tests := []struct {
		width, height uint32
		group         common.Uint3
		want          common.Uint3
	}{
		{1920, 1080, common.Uint3{X: 8, Y: 8, Z: 1}, common.Uint3{X: 240, Y: 135, Z: 1}},
		{1921, 1080, common.Uint3{X: 8, Y: 8, Z: 1}, common.Uint3{X: 241, Y: 135, Z: 1}},
		{1, 1, common.Uint3{X: 16, Y: 16, Z: 1}, common.Uint3{X: 1, Y: 1, Z: 1}},
		{17, 33, common.Uint3{X: 16, Y: 16, Z: 1}, common.Uint3{X: 2, Y: 3, Z: 1}},
		{1280, 720, common.Uint3{X: 32, Y: 4, Z: 2}, common.Uint3{X: 40, Y: 180, Z: 1}},
	}
	for _, tt := range tests {
		t.Run(common.Uint2{X: tt.width, Y: tt.height}.String(), func(t *testing.T) {
			h := newHarness()
			h.dev.GroupSize = tt.group
			h.execute(t, newFrame(tt.width, tt.height))
			if got := lastDispatch(t, h.dev.Log).Groups; got != tt.want {
				t.Errorf("groups = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPropertiesEmpty(t *testing.T) {
	p := New(gputest.NewDevice(), render_graph.Properties{"unused": true})
	if props := p.Properties(); props == nil || len(props) != 0 {
		t.Errorf("Properties = %v", props)
	}
}

func TestReleaseFreesOwnedState(t *testing.T) {
	h := newHarness()
	h.execute(t, newFrame(8, 8))
	acc := h.pass.AccumulationBuffer().(*gputest.Texture)
	prog := h.dev.LastProgram()

	h.pass.Release()
	if !acc.Released || !prog.Released || h.pass.AccumulationBuffer() != nil || h.pass.Compiled() {
		t.Error("Release left GPU state behind")
	}
}

func TestExecuteAfterReleaseRestartsAccumulation(t *testing.T) {
	h := newHarness()
	f := newFrame(16, 16)
	for i := 0; i < 3; i++ {
		h.execute(t, f)
	}

	h.pass.Release()
	if h.pass.FrameCount() != 0 {
		t.Errorf("FrameCount after Release = %d, want 0", h.pass.FrameCount())
	}

	h.dev.Log.Reset()
	h.execute(t, f)
	if c := h.observedConstants(t); c.FrameCount != 0 {
		t.Errorf("observed frame count = %d, want 0", c.FrameCount)
	}
	if h.dev.Log.Count("CreateTexture") != 1 || h.dev.Log.Count("Clear") != 1 || h.dev.Log.Count("CreateProgram") != 1 {
		t.Errorf("ops after Release = %v", h.dev.Log.Ops())
	}
	if h.pass.FrameCount() != 1 {
		t.Errorf("FrameCount = %d, want 1", h.pass.FrameCount())
	}
}

func TestRegisterPlugin(t *testing.T) {
	r := plugin.NewRegistry()
	if err := RegisterPlugin(r, WithSeed(3)); err != nil {
		t.Fatal(err)
	}
	pass, err := r.Create(ClassName, gputest.NewDevice(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := pass.(ReservoirsReuse); !ok {
		t.Errorf("Create returned %T", pass)
	}
	if err := RegisterPlugin(r); !errors.Is(err, plugin.ErrDuplicateClass) {
		t.Errorf("second RegisterPlugin = %v", err)
	}
}

func TestGraphRunsPass(t *testing.T) {
	dev := gputest.NewDevice()
	g := render_graph.NewGraph(dev, render_graph.WithDefaultDims(common.Uint2{X: 40, Y: 20}))
	pass := New(dev, nil)
	if err := g.AddPass(ClassName, pass); err != nil {
		t.Fatal(err)
	}
	ctx := gputest.NewContext(dev.Log)

	for i := 0; i < 3; i++ {
		if _, err := g.Execute(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if pass.FrameCount() != 3 || pass.FrameDimensions() != (common.Uint2{X: 40, Y: 20}) {
		t.Errorf("frameCount=%d dims=%s", pass.FrameCount(), pass.FrameDimensions())
	}

	g.SetDefaultDims(common.Uint2{X: 10, Y: 10})
	if _, err := g.Execute(ctx); err != nil {
		t.Fatal(err)
	}
	if pass.FrameCount() != 1 {
		t.Errorf("frameCount after resize = %d, want 1", pass.FrameCount())
	}

	g.Release()
	if pass.AccumulationBuffer() != nil {
		t.Error("graph Release did not release the pass")
	}
}

func TestKernelParses(t *testing.T) {
	sg := sample_generator.NewSampleGenerator(sample_generator.TypeUniform, 0)
	defines := render_graph.DefineList{
		"is_valid_gOutputColor":  "1",
		"is_valid_gReservoirsIn": "1",
		"is_valid_gOutputColor2": "1",
	}.Merge(sg.Defines())

	s, err := shader.NewShader(programKey, kernelSource, entryPoint,
		shader.WithDefines(defines),
		shader.WithInclude(constantsInclude, constantsType, GPUConstantsSource),
		shader.WithInclude(sg.Include().Name, sg.Include().Type, sg.Include().Source),
	)
	if err != nil {
		t.Fatal(err)
	}
	if s.WorkgroupSize() != [3]uint32{16, 16, 1} {
		t.Errorf("WorkgroupSize = %v", s.WorkgroupSize())
	}
	cb, ok := s.Lookup(constantsVar)
	if !ok || cb.Entry.Buffer.MinBindingSize != uint64((&GPUConstants{}).Size()) {
		t.Errorf("CB binding = %+v, %v", cb, ok)
	}
	for _, c := range append(append(render_graph.ChannelList{}, inputChannels...), outputChannels...) {
		if _, ok := s.Lookup(c.TexName); !ok {
			t.Errorf("kernel does not declare %s", c.TexName)
		}
	}
	if _, ok := s.Lookup(accumulationVar); !ok {
		t.Errorf("kernel does not declare %s", accumulationVar)
	}
	if !strings.Contains(s.Source(), "var rng = sg_init") {
		t.Error("reservoir branch not selected")
	}

	defines["is_valid_gReservoirsIn"] = "0"
	s, err = shader.NewShader(programKey, kernelSource, entryPoint,
		shader.WithDefines(defines),
		shader.WithInclude(constantsInclude, constantsType, GPUConstantsSource),
		shader.WithInclude(sg.Include().Name, sg.Include().Type, sg.Include().Source),
	)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(s.Source(), "var rng = sg_init") {
		t.Error("reservoir branch kept without reservoirs")
	}
}

func TestKernelValidates(t *testing.T) {
	sg := sample_generator.NewSampleGenerator(sample_generator.TypeUniform, 0)
	s, err := shader.NewShader(programKey, kernelSource, entryPoint,
		shader.WithDefines(render_graph.DefineList{"is_valid_gReservoirsIn": "1"}.Merge(sg.Defines())),
		shader.WithInclude(constantsInclude, constantsType, GPUConstantsSource),
		shader.WithInclude(sg.Include().Name, sg.Include().Type, sg.Include().Source),
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := shader.Validate(s); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") || strings.Contains(msg, "unsupported") {
			t.Skipf("naga cannot compile this kernel yet: %v", err)
		}
		t.Fatalf("Validate: %v", err)
	}
}

func TestGPUConstantsLayout(t *testing.T) {
	c := GPUConstants{FrameCount: 7, Resolution: [2]uint32{3, 4}, SpatialSampleCount: 9}
	if c.Size() != 24 || len(c.Marshal()) != 24 {
		t.Fatalf("Size = %d, Marshal len = %d", c.Size(), len(c.Marshal()))
	}
	got, ok := UnmarshalGPUConstants(c.Marshal())
	if !ok || got != c {
		t.Errorf("round trip = %+v", got)
	}
	if _, ok := UnmarshalGPUConstants(make([]byte, 8)); ok {
		t.Error("short buffer decoded")
	}
}
