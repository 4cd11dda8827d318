package gui

// TerminalWidgetsBuilderOption is a functional option for configuring a TerminalWidgets.
type TerminalWidgetsBuilderOption func(*terminalWidgets)

// WithTooltips preloads help text by widget label, typically collected from a ScriptedWidgets
// the passes were rendered into beforehand.
//
// Parameters:
//   - tooltips: help text keyed by widget label
//
// Returns:
//   - TerminalWidgetsBuilderOption: option function to apply
func WithTooltips(tooltips map[string]string) TerminalWidgetsBuilderOption {
	return func(w *terminalWidgets) {
		for label, text := range tooltips {
			w.tooltips[label] = text
		}
	}
}
