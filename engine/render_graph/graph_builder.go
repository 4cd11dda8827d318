package render_graph

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-restir/common"
)

// GraphBuilderOption is a functional option for configuring a Graph.
type GraphBuilderOption func(g *graph)

// WithDefaultDims sets the initial resolution resources are allocated at.
//
// Parameters:
//   - dims: the resolution
//
// Returns:
//   - GraphBuilderOption: option function to apply
func WithDefaultDims(dims common.Uint2) GraphBuilderOption {
	return func(g *graph) {
		g.dims = dims
	}
}

// WithLogger sets the logger used for allocation and scene events. A nil logger is ignored.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - GraphBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) GraphBuilderOption {
	return func(g *graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}
