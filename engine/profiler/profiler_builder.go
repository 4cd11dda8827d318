package profiler

import (
	"log"
	"time"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often statistics are logged. Values <= 0 log on every tick.
//
// Parameters:
//   - interval: the logging interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = max(interval, 0)
	}
}

// WithCounters sets the source of the counters appended to every report.
//
// Parameters:
//   - source: called once per report
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithCounters(source func() []Counter) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.counters = source
	}
}

// WithLogger sets the logger reports are written to. A nil logger is ignored.
//
// Parameters:
//   - logger: the destination logger
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithLogger(logger *log.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}
