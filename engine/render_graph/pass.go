package render_graph

import (
	"github.com/Carmen-Shannon/oxy-restir/engine/gui"
	"github.com/Carmen-Shannon/oxy-restir/engine/scene"
)

// Properties is the serializable configuration of a pass.
type Properties map[string]any

// RenderPass is one stage of a render graph. The graph drives a pass through Reflect once per
// compile, then Execute once per frame; RenderUI and SetScene may be called between frames.
// Lifecycle calls are never made concurrently.
type RenderPass interface {
	// Reflect declares the resources the pass reads and writes. Must not mutate the pass.
	//
	// Parameters:
	//   - compileData: graph-wide compile information
	//
	// Returns:
	//   - Reflection: the declared resource requirements
	Reflect(compileData CompileData) Reflection

	// Execute records the pass's GPU work for one frame.
	//
	// Parameters:
	//   - ctx: the render context to record into
	//   - data: the frame's resources and shared dictionary
	//
	// Returns:
	//   - error: an error if the frame could not be recorded
	Execute(ctx RenderContext, data RenderData) error

	// RenderUI draws the pass's editable options.
	//
	// Parameters:
	//   - widgets: the widget surface to draw on
	RenderUI(widgets gui.Widgets)

	// SetScene notifies the pass that the scene was replaced.
	//
	// Parameters:
	//   - ctx: the render context
	//   - s: the new scene, possibly nil
	SetScene(ctx RenderContext, s scene.Scene)

	// Properties returns the pass's serializable configuration.
	//
	// Returns:
	//   - Properties: the configuration, never nil
	Properties() Properties
}
