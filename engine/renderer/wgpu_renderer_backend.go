package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-restir/common"
	"github.com/Carmen-Shannon/oxy-restir/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-restir/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrMapFailed is returned when a readback staging buffer cannot be mapped.
var ErrMapFailed = errors.New("renderer: failed to map readback buffer")

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter

	// Compute frame state for batching all compute dispatches into a single GPU submission
	computeFrameEncoder *wgpu.CommandEncoder
}

type wgpuRendererBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue

	// CreateTexture allocates a 2D texture and its default view.
	//
	// Parameters:
	//   - label: the debug label
	//   - width: the width in texels
	//   - height: the height in texels
	//   - format: the texel format
	//   - usage: the usage bits
	//
	// Returns:
	//   - *wgpu.Texture: the texture
	//   - *wgpu.TextureView: its default view
	//   - error: an error if either object could not be created
	CreateTexture(label string, width, height uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error)

	// WriteTexture queues a write of tightly packed texel data covering the whole texture.
	//
	// Parameters:
	//   - tex: the destination texture
	//   - data: the staging data
	WriteTexture(tex *wgpu.Texture, data common.TextureStagingData)

	// ReadTexture copies a whole texture into a mappable buffer, waits for the GPU and returns
	// the tightly packed texel data.
	//
	// Parameters:
	//   - tex: the source texture, created with CopySrc usage
	//   - width: the width in texels
	//   - height: the height in texels
	//   - bytesPerPixel: the size of one texel
	//
	// Returns:
	//   - []byte: the texel data, row-major without padding
	//   - error: an error if the copy or the map fails
	ReadTexture(tex *wgpu.Texture, width, height, bytesPerPixel uint32) ([]byte, error)

	// CreateUniformBuffer allocates a uniform buffer that can be written from the CPU.
	//
	// Parameters:
	//   - label: the debug label
	//   - size: the size in bytes
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: an error if the buffer could not be created
	CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error)

	// WriteBuffers flushes pending buffer writes to the GPU queue.
	//
	// Parameters:
	//   - writes: the writes to perform in order
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// RegisterComputePipeline creates the shader module, bind group layouts, pipeline layout and
	// compute pipeline for p and hands them to p.
	//
	// Parameters:
	//   - p: the pipeline to register
	//
	// Returns:
	//   - error: an error if any GPU object could not be created
	RegisterComputePipeline(p pipeline.Pipeline) error

	// BuildBindGroup rebuilds the bind group of provider from its current buffers and texture views.
	//
	// Parameters:
	//   - provider: the provider to rebuild
	//   - descriptor: the layout descriptor listing every binding of the group
	//
	// Returns:
	//   - error: an error if a binding is unset or the bind group could not be created
	BuildBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// BeginComputeFrame creates a single command encoder for batching all compute dispatches
	// within a frame into one GPU submission. Must be paired with EndComputeFrame.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// EndComputeFrame finishes the batched compute command encoder and submits the resulting
	// command buffer to the GPU queue.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndComputeFrame() error

	// InComputeFrame reports whether a batched compute frame is open.
	InComputeFrame() bool

	// DispatchCompute encodes a compute pass. Inside a batched frame the pass is appended to the
	// frame encoder, otherwise it is encoded and submitted on its own.
	//
	// Parameters:
	//   - p: the registered pipeline
	//   - providers: the bind group providers indexed by group
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	//
	// Returns:
	//   - error: an error if the pass could not be encoded or submitted
	DispatchCompute(p pipeline.Pipeline, providers []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// Release frees the device and every object the backend created to reach it.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(forceFallbackAdapter bool) (wgpuRendererBackend, error) {
	w := &wgpuRendererBackendImpl{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		PowerPreference:      wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		w.instance.Release()
		return nil, fmt.Errorf("renderer: request adapter: %w", err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Compute Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		a.Release()
		w.instance.Release()
		return nil, fmt.Errorf("renderer: request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w, nil
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) CreateTexture(label string, width, height uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     usage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}
	return tex, view, nil
}

func (b *wgpuRendererBackendImpl) WriteTexture(tex *wgpu.Texture, data common.TextureStagingData) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: 0, Y: 0, Z: 0},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.BytesPerRow(),
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)
}

func (b *wgpuRendererBackendImpl) ReadTexture(tex *wgpu.Texture, width, height, bytesPerPixel uint32) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pitch := paddedBytesPerRow(width, bytesPerPixel)
	size := uint64(pitch) * uint64(height)

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback Staging Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()

	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: 0, Y: 0, Z: 0},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  pitch,
				RowsPerImage: height,
			},
			Buffer: staging,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	b.queue.Submit(cmd)
	cmd.Release()
	b.device.Poll(true, nil)

	mapped := false
	var status wgpu.BufferMapAsyncStatus
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		mapped = s == wgpu.BufferMapAsyncStatusSuccess
	})
	b.device.Poll(true, nil)
	if !mapped {
		return nil, fmt.Errorf("%w: status %v", ErrMapFailed, status)
	}
	defer staging.Unmap()

	return unpadRows(staging.GetMappedRange(0, uint(size)), width, height, bytesPerPixel), nil
}

func (b *wgpuRendererBackendImpl) CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	computeShader := p.Shader()
	module, err := b.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return err
	}

	descriptors := computeShader.BindGroupLayoutDescriptors()
	maxGroup := -1
	for g := range descriptors {
		if g > maxGroup {
			maxGroup = g
		}
	}
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	release := func() {
		for _, l := range bindGroupLayouts {
			if l != nil {
				l.Release()
			}
		}
		module.Release()
	}
	for g := range bindGroupLayouts {
		desc, ok := descriptors[g]
		if !ok {
			desc = wgpu.BindGroupLayoutDescriptor{Label: fmt.Sprintf("%s Empty Group %d", p.PipelineKey(), g)}
		}
		bgl, bglErr := b.device.CreateBindGroupLayout(&desc)
		if bglErr != nil {
			release()
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, bglErr)
		}
		bindGroupLayouts[g] = bgl
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		release()
		return err
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		layout.Release()
		release()
		return err
	}

	p.SetComputePipeline(module, bindGroupLayouts, layout, created)
	return nil
}

func (b *wgpuRendererBackendImpl) BuildBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	layout := provider.BindGroupLayout()
	if layout == nil {
		return fmt.Errorf("renderer: %s has no bind group layout", provider.Label())
	}

	entries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined ||
			entry.StorageTexture.Access != wgpu.StorageTextureAccessUndefined

		if isTexture {
			tv := provider.TextureView(binding)
			if tv == nil {
				return fmt.Errorf("renderer: %s binding %d has no texture bound", provider.Label(), binding)
			}
			entries[i] = wgpu.BindGroupEntry{
				Binding:     entry.Binding,
				TextureView: tv,
			}
			continue
		}

		buf := provider.Buffer(binding)
		if buf == nil {
			return fmt.Errorf("renderer: %s binding %d has no buffer bound", provider.Label(), binding)
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: entry.Binding,
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)
	return nil
}

func (b *wgpuRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder != nil {
		return ErrFrameInProgress
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.computeFrameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return nil
	}
	defer func() {
		b.computeFrameEncoder.Release()
		b.computeFrameEncoder = nil
	}()

	commandBuffer, err := b.computeFrameEncoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) InComputeFrame() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.computeFrameEncoder != nil
}

func (b *wgpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	providers []bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder := b.computeFrameEncoder
	immediate := encoder == nil
	if immediate {
		var err error
		encoder, err = b.device.CreateCommandEncoder(nil)
		if err != nil {
			return err
		}
		defer encoder.Release()
	}

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.Pipeline())
	for _, provider := range providers {
		if provider == nil || provider.BindGroup() == nil {
			continue
		}
		pass.SetBindGroup(uint32(provider.Group()), provider.BindGroup(), nil)
	}
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
	pass.Release()

	if !immediate {
		return nil
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(cmd)
	cmd.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder != nil {
		b.computeFrameEncoder.Release()
		b.computeFrameEncoder = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
