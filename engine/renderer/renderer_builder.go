package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-restir/engine/render_graph"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithForceSoftwareRenderer forces the renderer to request a fallback (software) adapter.
//
// Parameters:
//   - force: true to request the fallback adapter
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithValidation compiles every program with naga before handing it to the driver, so front-end
// errors are reported with naga's diagnostics.
//
// Parameters:
//   - validate: true to enable validation
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithValidation(validate bool) RendererBuilderOption {
	return func(r *renderer) {
		r.validate = validate
	}
}

// WithIncludes registers WGSL snippets every program can include, in addition to the program's own.
//
// Parameters:
//   - includes: the snippets to register
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithIncludes(includes ...render_graph.Include) RendererBuilderOption {
	return func(r *renderer) {
		r.includes = append(r.includes, includes...)
	}
}

// WithLogger sets the structured logger. A nil logger is ignored.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}
