package renderer

import (
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-restir/common"
	"github.com/Carmen-Shannon/oxy-restir/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-restir/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-restir/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/go-cmp/cmp"
)

const copyKernel = `
struct Constants {
    frameCount: u32,
    resolution: vec2<u32>,
    count: u32,
}

//@oxy:group 0 0 storage_uniform CB constants
@group(0) @binding(1) var gInput: texture_2d<f32>;
@group(0) @binding(2) var gOutput: texture_storage_2d<rgba32float, write>;

@compute @workgroup_size(16, 16, 1)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    textureStore(gOutput, id.xy, textureLoad(gInput, id.xy, 0));
}
`

// fakeBackend records backend calls without touching a GPU.
type fakeBackend struct {
	mu         sync.Mutex
	calls      []string
	writes     []bind_group_provider.BufferWrite
	textures   []common.TextureStagingData
	readback   []byte
	inFrame    bool
	registerFn func(p pipeline.Pipeline) error
}

var _ RendererBackend = &fakeBackend{}

func (f *fakeBackend) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeBackend) Device() *wgpu.Device {
	return nil
}

func (f *fakeBackend) Queue() *wgpu.Queue {
	return nil
}

func (f *fakeBackend) CreateTexture(label string, width, height uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error) {
	f.record("CreateTexture")
	return nil, nil, nil
}

func (f *fakeBackend) WriteTexture(tex *wgpu.Texture, data common.TextureStagingData) {
	f.record("WriteTexture")
	f.textures = append(f.textures, data)
}

func (f *fakeBackend) ReadTexture(tex *wgpu.Texture, width, height, bytesPerPixel uint32) ([]byte, error) {
	f.record("ReadTexture")
	return f.readback, nil
}

func (f *fakeBackend) CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	f.record("CreateUniformBuffer")
	return nil, nil
}

func (f *fakeBackend) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	f.record("WriteBuffers")
	f.writes = append(f.writes, writes...)
}

func (f *fakeBackend) RegisterComputePipeline(p pipeline.Pipeline) error {
	f.record("RegisterComputePipeline")
	if f.registerFn != nil {
		return f.registerFn(p)
	}
	n := len(p.Shader().BindGroupLayoutDescriptors())
	p.SetComputePipeline(nil, make([]*wgpu.BindGroupLayout, n), nil, nil)
	return nil
}

func (f *fakeBackend) BuildBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	f.record("BuildBindGroup")
	provider.SetBindGroup(nil)
	return nil
}

func (f *fakeBackend) BeginComputeFrame() error {
	f.record("BeginComputeFrame")
	if f.inFrame {
		return ErrFrameInProgress
	}
	f.inFrame = true
	return nil
}

func (f *fakeBackend) EndComputeFrame() error {
	f.record("EndComputeFrame")
	f.inFrame = false
	return nil
}

func (f *fakeBackend) InComputeFrame() bool {
	return f.inFrame
}

func (f *fakeBackend) DispatchCompute(p pipeline.Pipeline, providers []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	f.record("DispatchCompute")
	return nil
}

func (f *fakeBackend) Release() {
	f.record("Release")
}

func newTestRenderer(backend *fakeBackend) *renderer {
	return &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backend:       backend,
		logger:        slog.New(slog.DiscardHandler),
	}
}

type rawBlock []byte

func (b rawBlock) Marshal() []byte {
	return b
}

func copyProgramDesc() render_graph.ProgramDesc {
	return render_graph.ProgramDesc{
		Key:        "copy",
		Source:     copyKernel,
		EntryPoint: "main",
		Defines:    render_graph.DefineList{"MODE": "1"},
		Includes:   []render_graph.Include{{Name: "constants", Type: "Constants"}},
	}
}

func rwTexture(t *testing.T, r *renderer, label string) render_graph.Texture {
	t.Helper()
	tex, err := r.CreateTexture2D(render_graph.TextureDesc{
		Label:  label,
		Width:  4,
		Height: 2,
		Format: render_graph.ResourceFormatRGBA32Float,
		BindFlags: render_graph.BindFlagShaderResource | render_graph.BindFlagUnorderedAccess |
			render_graph.BindFlagCopySrc | render_graph.BindFlagCopyDst,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tex
}

func TestCreateTexture2DValidates(t *testing.T) {
	r := newTestRenderer(&fakeBackend{})
	tests := []struct {
		name string
		desc render_graph.TextureDesc
		want error
	}{
		{name: "zero width", desc: render_graph.TextureDesc{Height: 1, Format: render_graph.ResourceFormatRGBA32Float}, want: ErrInvalidTexture},
		{name: "mips", desc: render_graph.TextureDesc{Width: 1, Height: 1, MipLevels: 2, Format: render_graph.ResourceFormatRGBA32Float}, want: ErrInvalidTexture},
		{name: "unknown format", desc: render_graph.TextureDesc{Width: 1, Height: 1}, want: ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.CreateTexture2D(tt.desc); !errors.Is(err, tt.want) {
				t.Errorf("CreateTexture2D = %v, want %v", err, tt.want)
			}
		})
	}
	if got := r.Stats().TexturesCreated; got != 0 {
		t.Errorf("TexturesCreated = %d, want 0", got)
	}
}

func TestCreateComputeProgram(t *testing.T) {
	r := newTestRenderer(&fakeBackend{})
	prog, err := r.CreateComputeProgram(copyProgramDesc())
	if err != nil {
		t.Fatal(err)
	}
	if prog.Key() != "copy" || prog.EntryPoint() != "main" {
		t.Errorf("program = %q/%q", prog.Key(), prog.EntryPoint())
	}
	if prog.ThreadGroupSize() != (common.Uint3{X: 16, Y: 16, Z: 1}) {
		t.Errorf("ThreadGroupSize = %s", prog.ThreadGroupSize())
	}
	if diff := cmp.Diff(render_graph.DefineList{"MODE": "1"}, prog.Defines()); diff != "" {
		t.Errorf("Defines mismatch (-want +got):\n%s", diff)
	}
	if r.Pipeline("copy") == nil {
		t.Fatal("program missing from the pipeline cache")
	}

	prog.Release()
	prog.Release()
	if r.Pipeline("copy") != nil {
		t.Error("released program still cached")
	}
	if _, err := prog.CreateVars(); !errors.Is(err, ErrReleased) {
		t.Errorf("CreateVars after release = %v", err)
	}
}

func TestCreateComputeProgramRegisterFailure(t *testing.T) {
	boom := errors.New("boom")
	r := newTestRenderer(&fakeBackend{registerFn: func(pipeline.Pipeline) error { return boom }})
	if _, err := r.CreateComputeProgram(copyProgramDesc()); !errors.Is(err, boom) {
		t.Fatalf("CreateComputeProgram = %v, want boom", err)
	}
	if len(r.Pipelines()) != 0 || r.Stats().ProgramsCompiled != 0 {
		t.Error("failed program was cached")
	}
}

func TestProgramVarsBindingErrors(t *testing.T) {
	r := newTestRenderer(&fakeBackend{})
	prog, err := r.CreateComputeProgram(copyProgramDesc())
	if err != nil {
		t.Fatal(err)
	}
	vars, err := prog.CreateVars()
	if err != nil {
		t.Fatal(err)
	}
	tex := rwTexture(t, r, "tex")
	readOnly, err := r.CreateTexture2D(render_graph.TextureDesc{
		Label:     "readonly",
		Width:     4,
		Height:    2,
		Format:    render_graph.ResourceFormatRGBA32Float,
		BindFlags: render_graph.BindFlagShaderResource,
	})
	if err != nil {
		t.Fatal(err)
	}
	halfTex, err := r.CreateTexture2D(render_graph.TextureDesc{
		Label:     "half",
		Width:     4,
		Height:    2,
		Format:    render_graph.ResourceFormatRGBA16Float,
		BindFlags: render_graph.BindFlagUnorderedAccess,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := vars.SetTexture("missing", tex); !errors.Is(err, ErrUnknownVariable) {
		t.Errorf("unknown variable = %v", err)
	}
	if err := vars.SetTexture("CB", tex); !errors.Is(err, ErrBindingKind) {
		t.Errorf("texture on uniform = %v", err)
	}
	if err := vars.SetUniform("gInput", rawBlock{1}); !errors.Is(err, ErrBindingKind) {
		t.Errorf("uniform on texture = %v", err)
	}
	if err := vars.SetTexture("gOutput", readOnly); !errors.Is(err, ErrMissingUsage) {
		t.Errorf("storage without UA = %v", err)
	}
	if err := vars.SetTexture("gOutput", halfTex); !errors.Is(err, ErrBindingKind) {
		t.Errorf("storage format mismatch = %v", err)
	}
	if err := vars.SetTexture("gInput", readOnly); err != nil {
		t.Errorf("sampled bind = %v", err)
	}
	var nilTex *texture
	if err := vars.SetTexture("gInput", nilTex); !errors.Is(err, ErrForeignResource) {
		t.Errorf("typed nil texture = %v", err)
	}
	tex.Release()
	if err := vars.SetTexture("gInput", tex); !errors.Is(err, ErrReleased) {
		t.Errorf("released texture = %v", err)
	}
}

func TestDispatchFlushesUniformsAndRebuildsOnChange(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(backend)
	prog, err := r.CreateComputeProgram(copyProgramDesc())
	if err != nil {
		t.Fatal(err)
	}
	vars, err := prog.CreateVars()
	if err != nil {
		t.Fatal(err)
	}
	in, out := rwTexture(t, r, "in"), rwTexture(t, r, "out")

	bind := func() {
		t.Helper()
		if err := vars.SetTexture("gInput", in); err != nil {
			t.Fatal(err)
		}
		if err := vars.SetTexture("gOutput", out); err != nil {
			t.Fatal(err)
		}
		if err := vars.SetUniform("CB", rawBlock{1, 2, 3, 4, 5}); err != nil {
			t.Fatal(err)
		}
	}

	bind()
	if err := r.Dispatch(prog, vars, common.Uint3{X: 1, Y: 1, Z: 1}); err != nil {
		t.Fatal(err)
	}
	bind()
	if err := r.Dispatch(prog, vars, common.Uint3{X: 1, Y: 1, Z: 1}); err != nil {
		t.Fatal(err)
	}

	stats := r.Stats()
	if stats.Dispatches != 2 || stats.BindGroupRebuilds != 1 {
		t.Errorf("stats = %+v, want 2 dispatches and 1 rebuild", stats)
	}
	if len(backend.writes) != 2 {
		t.Fatalf("writes = %d, want 2", len(backend.writes))
	}
	if got := backend.writes[0].Data; len(got) != 8 || got[4] != 5 {
		t.Errorf("uniform write not padded to 4 bytes: %v", got)
	}

	// A different view forces a rebuild.
	vp := vars.(*programVars)
	vp.providers[0].SetTextureView(1, &wgpu.TextureView{})
	if err := r.Dispatch(prog, vars, common.Uint3{X: 1, Y: 1, Z: 1}); err != nil {
		t.Fatal(err)
	}
	if got := r.Stats().BindGroupRebuilds; got != 2 {
		t.Errorf("BindGroupRebuilds = %d, want 2", got)
	}
}

func TestDispatchRejectsForeignVars(t *testing.T) {
	r := newTestRenderer(&fakeBackend{})
	a, err := r.CreateComputeProgram(copyProgramDesc())
	if err != nil {
		t.Fatal(err)
	}
	desc := copyProgramDesc()
	desc.Key = "copy2"
	b, err := r.CreateComputeProgram(desc)
	if err != nil {
		t.Fatal(err)
	}
	vars, err := b.CreateVars()
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Dispatch(a, vars, common.Uint3{X: 1, Y: 1, Z: 1}); !errors.Is(err, ErrForeignResource) {
		t.Errorf("Dispatch with foreign vars = %v", err)
	}
	a.Release()
	if err := r.Dispatch(a, vars, common.Uint3{X: 1, Y: 1, Z: 1}); !errors.Is(err, ErrReleased) {
		t.Errorf("Dispatch of released program = %v", err)
	}
}

func TestClearTextureFillsEveryTexel(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(backend)
	tex := rwTexture(t, r, "acc")

	if err := r.ClearTexture(tex, common.Float4{X: 1}); err != nil {
		t.Fatal(err)
	}
	if len(backend.textures) != 1 {
		t.Fatalf("texture writes = %d", len(backend.textures))
	}
	w := backend.textures[0]
	if w.Width != 4 || w.Height != 2 || w.BytesPerPixel != 16 || len(w.Pixels) != 4*2*16 {
		t.Fatalf("clear staging = %dx%d bpp %d len %d", w.Width, w.Height, w.BytesPerPixel, len(w.Pixels))
	}
	for i := 0; i < len(w.Pixels); i += 16 {
		if w.Pixels[i+3] != 0x3f || w.Pixels[i+2] != 0x80 {
			t.Fatalf("texel %d not 1.0: %v", i/16, w.Pixels[i:i+4])
		}
	}

	noCopy, err := r.CreateTexture2D(render_graph.TextureDesc{
		Label:     "nocopy",
		Width:     1,
		Height:    1,
		Format:    render_graph.ResourceFormatRGBA32Float,
		BindFlags: render_graph.BindFlagShaderResource,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.ClearTexture(noCopy, common.Float4{}); !errors.Is(err, ErrMissingUsage) {
		t.Errorf("ClearTexture without CopyDst = %v", err)
	}
	if err := r.ClearTexture(nil, common.Float4{}); !errors.Is(err, ErrForeignResource) {
		t.Errorf("ClearTexture(nil) = %v", err)
	}
}

func TestUploadAndReadback(t *testing.T) {
	backend := &fakeBackend{readback: make([]byte, 4*2*16)}
	r := newTestRenderer(backend)
	tex := rwTexture(t, r, "io")

	if err := r.Upload(tex, make([]byte, 10)); err == nil {
		t.Error("Upload with wrong size succeeded")
	}
	if err := r.Upload(tex, make([]byte, 4*2*16)); err != nil {
		t.Fatal(err)
	}

	if err := r.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Readback(tex); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("Readback inside frame = %v", err)
	}
	if err := r.EndFrame(); err != nil {
		t.Fatal(err)
	}

	data, err := r.Readback(tex)
	if err != nil {
		t.Fatal(err)
	}
	if data.Width != 4 || data.Height != 2 || data.BytesPerPixel != 16 || len(data.Pixels) != 128 {
		t.Errorf("Readback = %dx%d bpp %d len %d", data.Width, data.Height, data.BytesPerPixel, len(data.Pixels))
	}
	if s := r.Stats(); s.Uploads != 1 || s.Readbacks != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestRendererRelease(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(backend)
	if _, err := r.CreateComputeProgram(copyProgramDesc()); err != nil {
		t.Fatal(err)
	}
	r.Release()
	if len(r.Pipelines()) != 0 {
		t.Error("pipelines survived Release")
	}
	if backend.calls[len(backend.calls)-1] != "Release" {
		t.Errorf("last backend call = %q, want Release", backend.calls[len(backend.calls)-1])
	}
}
