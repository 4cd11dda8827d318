package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-restir/common"
	"github.com/Carmen-Shannon/oxy-restir/engine/config"
	"github.com/Carmen-Shannon/oxy-restir/engine/gui"
	"github.com/Carmen-Shannon/oxy-restir/engine/passes/reservoirs_reuse"
	"github.com/Carmen-Shannon/oxy-restir/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-restir/engine/scene"
)

// device is the part of the renderer the host drives directly.
type device interface {
	render_graph.Device
	render_graph.RenderContext
	BeginFrame() error
	EndFrame() error
	Upload(tex render_graph.Texture, pixels []byte) error
	Readback(tex render_graph.Texture) (common.TextureStagingData, error)
}

// host runs the frame schedule of a config against a graph.
type host struct {
	cfg     config.Config
	dev     device
	graph   render_graph.Graph
	widgets gui.ScriptedWidgets
	writer  *imageWriter
	logger  *slog.Logger

	dims     common.Uint2
	uploaded map[string]render_graph.Texture
}

func newHost(cfg config.Config, dev device, graph render_graph.Graph, logger *slog.Logger) *host {
	h := &host{
		cfg:      cfg,
		dev:      dev,
		graph:    graph,
		widgets:  gui.NewScriptedWidgets(),
		logger:   logger,
		uploaded: make(map[string]render_graph.Texture),
	}
	if cfg.Output.Dir != "" {
		h.writer = newImageWriter(cfg.Output.Workers, logger)
	}
	return h
}

// Frame applies the events scheduled for frame, executes the graph and reads back the output
// when the frame is due.
func (h *host) Frame(frame uint64, _ float32) error {
	f := int(frame)

	for _, sc := range h.cfg.ScenesAt(f) {
		h.graph.SetScene(h.dev, scene.NewScene(sc.Scene))
	}
	if edits := h.cfg.EditsAt(f); len(edits) > 0 {
		for _, e := range edits {
			h.widgets.Queue(e.Label, e.Value)
		}
		// each pass consumes one queued value per label per call
		for range edits {
			h.graph.RenderUI(h.widgets)
		}
	}

	if dims := h.cfg.ResolutionAt(f); dims != h.dims {
		h.graph.SetDefaultDims(dims)
		if err := h.graph.Compile(); err != nil {
			return err
		}
		h.dims = dims
	}
	if err := h.uploadInputs(frame); err != nil {
		return err
	}

	if err := h.dev.BeginFrame(); err != nil {
		return fmt.Errorf("frame %d: %w", frame, err)
	}
	_, execErr := h.graph.Execute(h.dev)
	if err := errors.Join(execErr, h.dev.EndFrame()); err != nil {
		return fmt.Errorf("frame %d: %w", frame, err)
	}

	if h.writer != nil && h.cfg.ShouldWrite(f) {
		data, err := h.dev.Readback(h.graph.Resource(reservoirs_reuse.ChannelColorOut))
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		h.writer.Submit(filepath.Join(h.cfg.Output.Dir, fmt.Sprintf("frame_%05d.png", frame)), data)
	}
	return nil
}

// uploadInputs fills every freshly allocated input resource with synthetic content.
func (h *host) uploadInputs(frame uint64) error {
	for _, name := range []string{reservoirs_reuse.ChannelColorIn, reservoirs_reuse.ChannelReservoirsIn} {
		tex := h.graph.Resource(name)
		if tex == nil {
			return fmt.Errorf("graph has no %q resource", name)
		}
		if h.uploaded[name] == tex {
			continue
		}
		if err := h.dev.Upload(tex, syntheticInput(name, tex.Width(), tex.Height(), h.cfg.Seed)); err != nil {
			return err
		}
		h.uploaded[name] = tex
		h.logger.Debug("uploaded synthetic input", "channel", name, "frame", frame)
	}
	return nil
}

// Close waits for pending image writes.
func (h *host) Close() error {
	if h.writer == nil {
		return nil
	}
	return h.writer.Wait()
}
