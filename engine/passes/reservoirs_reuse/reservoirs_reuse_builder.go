package reservoirs_reuse

import "log/slog"

// ReservoirsReuseBuilderOption is a functional option for configuring the pass.
type ReservoirsReuseBuilderOption func(*reservoirsReuse)

// WithLogger sets the structured logger. A nil logger is ignored.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ReservoirsReuseBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) ReservoirsReuseBuilderOption {
	return func(p *reservoirsReuse) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSeed sets the sample generator seed.
//
// Parameters:
//   - seed: the seed
//
// Returns:
//   - ReservoirsReuseBuilderOption: option function to apply
func WithSeed(seed uint32) ReservoirsReuseBuilderOption {
	return func(p *reservoirsReuse) {
		p.seed = seed
	}
}

// WithKernelSource replaces the embedded kernel. The source must keep the variable names,
// entry point and includes of the embedded one.
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - ReservoirsReuseBuilderOption: option function to apply
func WithKernelSource(source string) ReservoirsReuseBuilderOption {
	return func(p *reservoirsReuse) {
		if source != "" {
			p.source = source
		}
	}
}
