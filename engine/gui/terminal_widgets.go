package gui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

// ErrOutOfRange is returned by the terminal validator for values outside a widget's range.
var ErrOutOfRange = errors.New("gui: value out of range")

// askFunc matches survey.AskOne so prompts can be replaced in tests.
type askFunc func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error

// terminalWidgets is a Widgets implementation that prompts on the terminal.
type terminalWidgets struct {
	ask      askFunc
	tooltips map[string]string
	last     string
	err      error
}

// TerminalWidgets prompts for every widget on the terminal using survey. Prompt failures
// (for example an interrupted terminal) leave values untouched and are reported by Err.
type TerminalWidgets interface {
	Widgets

	// Err returns the first prompt error encountered, if any.
	//
	// Returns:
	//   - error: the first prompt error, or nil
	Err() error
}

var _ TerminalWidgets = &terminalWidgets{}

// NewTerminalWidgets creates a TerminalWidgets backed by survey.AskOne. A pass attaches its
// tooltip after presenting the widget, so help text shown in the first prompt for a label
// must be supplied up front with WithTooltips.
//
// Parameters:
//   - options: functional options for the terminal surface
//
// Returns:
//   - TerminalWidgets: the terminal widget surface
func NewTerminalWidgets(options ...TerminalWidgetsBuilderOption) TerminalWidgets {
	w := &terminalWidgets{
		ask:      survey.AskOne,
		tooltips: make(map[string]string),
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *terminalWidgets) Var(label string, value *uint32, minValue, maxValue uint32) bool {
	w.last = label

	prompt := &survey.Input{
		Message: fmt.Sprintf("%s [%d-%d]:", label, minValue, maxValue),
		Default: strconv.FormatUint(uint64(*value), 10),
		Help:    w.tooltips[label],
	}

	var out string
	if err := w.ask(prompt, &out, survey.WithValidator(rangeValidator(minValue, maxValue))); err != nil {
		if w.err == nil {
			w.err = fmt.Errorf("gui: prompt %q: %w", label, err)
		}
		return false
	}

	parsed, err := parseUint32(out)
	if err != nil {
		return false
	}
	if parsed == *value {
		return false
	}
	*value = parsed
	return true
}

func (w *terminalWidgets) Tooltip(text string) {
	if w.last != "" {
		w.tooltips[w.last] = text
	}
}

func (w *terminalWidgets) Err() error {
	return w.err
}

// rangeValidator builds a survey validator accepting unsigned integers in [minValue, maxValue].
func rangeValidator(minValue, maxValue uint32) survey.Validator {
	return func(ans interface{}) error {
		s, ok := ans.(string)
		if !ok {
			return fmt.Errorf("gui: unexpected answer type %T", ans)
		}
		v, err := parseUint32(s)
		if err != nil {
			return err
		}
		if v < minValue || v > maxValue {
			return fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, v, minValue, maxValue)
		}
		return nil
	}
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("gui: %q is not an unsigned integer: %w", s, err)
	}
	return uint32(v), nil
}
