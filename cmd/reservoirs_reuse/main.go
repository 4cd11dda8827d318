package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-restir/engine"
	"github.com/Carmen-Shannon/oxy-restir/engine/config"
	"github.com/Carmen-Shannon/oxy-restir/engine/gui"
	"github.com/Carmen-Shannon/oxy-restir/engine/passes/reservoirs_reuse"
	"github.com/Carmen-Shannon/oxy-restir/engine/plugin"
	"github.com/Carmen-Shannon/oxy-restir/engine/profiler"
	"github.com/Carmen-Shannon/oxy-restir/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-restir/engine/renderer"
	"github.com/Carmen-Shannon/oxy-restir/engine/scene"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML run description (defaults are used when empty)")
	outDir := flag.String("out", "", "directory for PNG readbacks, overrides the config")
	software := flag.Bool("software", false, "force the software (fallback) adapter")
	interactive := flag.Bool("interactive", false, "prompt for the pass options on the terminal before rendering")
	verbose := flag.Bool("v", false, "log debug output")
	flag.Parse()

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalln("config error:", err)
		}
		cfg = loaded
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *software {
		cfg.Device.ForceSoftware = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalln("config error:", err)
	}
	log.Printf("run: frames=%d first=%s seed=%d out=%q", cfg.TotalFrames(), cfg.ResolutionAt(0), cfg.Seed, cfg.Output.Dir)

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(cfg, *interactive, logger); err != nil {
		log.Println("render error:", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, interactive bool, logger *slog.Logger) error {
	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU,
		renderer.WithForceSoftwareRenderer(cfg.Device.ForceSoftware),
		renderer.WithValidation(cfg.Device.Validate),
		renderer.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer r.Release()

	registry := plugin.NewRegistry()
	if err := reservoirs_reuse.RegisterPlugin(registry,
		reservoirs_reuse.WithSeed(cfg.Seed),
		reservoirs_reuse.WithLogger(logger),
	); err != nil {
		return err
	}
	pass, err := registry.Create(reservoirs_reuse.ClassName, r, nil)
	if err != nil {
		return err
	}

	graph := render_graph.NewGraph(r,
		render_graph.WithDefaultDims(cfg.ResolutionAt(0)),
		render_graph.WithLogger(logger),
	)
	defer graph.Release()
	if err := graph.AddPass(reservoirs_reuse.ClassName, pass); err != nil {
		return err
	}
	graph.SetScene(r, scene.NewScene("default"))

	if interactive {
		collect := gui.NewScriptedWidgets()
		graph.RenderUI(collect)
		widgets := gui.NewTerminalWidgets(gui.WithTooltips(collect.Tooltips()))
		graph.RenderUI(widgets)
		if err := widgets.Err(); err != nil {
			return err
		}
	}

	h := newHost(cfg, r, graph, logger)
	defer func() {
		if err := h.Close(); err != nil {
			log.Println("image writer:", err)
		}
	}()

	stage := pass.(reservoirs_reuse.ReservoirsReuse)
	p := profiler.NewProfiler(
		profiler.WithInterval(cfg.Profiler.Interval),
		profiler.WithCounters(func() []profiler.Counter {
			return stageCounters(stage.Stats(), r.Stats())
		}),
	)
	e := engine.NewEngine(
		engine.WithProfiler(p),
		engine.WithProfiling(cfg.Profiler.Enabled),
		engine.WithMaxFrames(uint64(cfg.TotalFrames())),
		engine.WithFrameCallback(h.Frame),
	)
	if err := e.Run(); err != nil {
		return err
	}
	log.Printf("done: %d frames, stage %+v", e.Frames(), stage.Stats())
	return nil
}

// stageCounters flattens the pass and renderer statistics for the profiler.
func stageCounters(s reservoirs_reuse.Stats, r renderer.RendererStats) []profiler.Counter {
	return []profiler.Counter{
		{Name: "compiles", Value: s.Compiles},
		{Name: "reallocations", Value: s.Reallocations},
		{Name: "clears", Value: s.Clears},
		{Name: "dispatches", Value: s.Dispatches},
		{Name: "bindGroupRebuilds", Value: uint64(r.BindGroupRebuilds)},
		{Name: "uploads", Value: uint64(r.Uploads)},
		{Name: "readbacks", Value: uint64(r.Readbacks)},
	}
}
