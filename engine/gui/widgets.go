// Package gui provides the widget surface passes draw their editable options on. A pass never
// knows whether it is driven by a terminal, a scripted schedule or a test; it only asks for
// values and learns whether they changed.
package gui

import (
	"maps"
	"sync"

	"github.com/Carmen-Shannon/oxy-restir/common"
)

// Widgets is the immediate-mode widget surface handed to a pass's RenderUI.
type Widgets interface {
	// Var presents an editable unsigned integer bounded to [minValue, maxValue]. The value is
	// updated in place and clamped to the range.
	//
	// Parameters:
	//   - label: the widget label, also used as the widget identity
	//   - value: the value to display and edit
	//   - minValue: the inclusive lower bound
	//   - maxValue: the inclusive upper bound
	//
	// Returns:
	//   - bool: true if the value was changed by this call
	Var(label string, value *uint32, minValue, maxValue uint32) bool

	// Tooltip attaches help text to the most recently presented widget.
	//
	// Parameters:
	//   - text: the help text
	Tooltip(text string)
}

// scriptedWidgets is the implementation of the ScriptedWidgets interface.
type scriptedWidgets struct {
	mu       *sync.Mutex
	pending  map[string][]uint32
	tooltips map[string]string
	last     string
}

// ScriptedWidgets replays queued edits. Each queued value is applied by exactly one Var call
// for its label, in queue order; with nothing queued Var leaves the value untouched.
type ScriptedWidgets interface {
	Widgets

	// Queue schedules a value to be applied on the next Var call for label.
	//
	// Parameters:
	//   - label: the widget label
	//   - value: the value to apply
	Queue(label string, value uint32)

	// Pending returns the number of queued edits for label.
	//
	// Parameters:
	//   - label: the widget label
	//
	// Returns:
	//   - int: the number of edits not yet applied
	Pending(label string) int

	// TooltipFor returns the tooltip attached to label, if any.
	//
	// Parameters:
	//   - label: the widget label
	//
	// Returns:
	//   - string: the tooltip text, empty if none was attached
	TooltipFor(label string) string

	// Tooltips returns a copy of every tooltip attached so far, keyed by label.
	//
	// Returns:
	//   - map[string]string: the attached tooltips
	Tooltips() map[string]string
}

var _ ScriptedWidgets = &scriptedWidgets{}

// NewScriptedWidgets creates an empty ScriptedWidgets.
//
// Returns:
//   - ScriptedWidgets: a widget surface with no queued edits
func NewScriptedWidgets() ScriptedWidgets {
	return &scriptedWidgets{
		mu:       &sync.Mutex{},
		pending:  make(map[string][]uint32),
		tooltips: make(map[string]string),
	}
}

func (w *scriptedWidgets) Queue(label string, value uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[label] = append(w.pending[label], value)
}

func (w *scriptedWidgets) Pending(label string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending[label])
}

func (w *scriptedWidgets) TooltipFor(label string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tooltips[label]
}

func (w *scriptedWidgets) Tooltips() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return maps.Clone(w.tooltips)
}

func (w *scriptedWidgets) Var(label string, value *uint32, minValue, maxValue uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.last = label
	queue := w.pending[label]
	if len(queue) == 0 {
		return false
	}
	next := common.Clamp(queue[0], minValue, maxValue)
	w.pending[label] = queue[1:]

	if next == *value {
		return false
	}
	*value = next
	return true
}

func (w *scriptedWidgets) Tooltip(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last != "" {
		w.tooltips[w.last] = text
	}
}
