// Package plugin maps render pass class names to factories so hosts can instantiate passes by
// name, the way a graph script does.
package plugin

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-restir/engine/render_graph"
)

var (
	// ErrDuplicateClass is returned when a class name is registered twice.
	ErrDuplicateClass = errors.New("plugin: class already registered")

	// ErrUnknownClass is returned when creating a class that was never registered.
	ErrUnknownClass = errors.New("plugin: unknown class")
)

// Factory creates a render pass from a device and its serialized properties.
type Factory func(device render_graph.Device, props render_graph.Properties) (render_graph.RenderPass, error)

// ClassInfo describes a registered render pass class.
type ClassInfo struct {
	Name        string
	Description string
	Factory     Factory
}

// registry is the implementation of the Registry interface.
type registry struct {
	mu      *sync.RWMutex
	classes map[string]ClassInfo
}

// Registry stores render pass classes by name.
type Registry interface {
	// RegisterClass adds a class. Panics if the name is empty or the factory is nil.
	//
	// Parameters:
	//   - info: the class description
	//
	// Returns:
	//   - error: ErrDuplicateClass if the name is taken
	RegisterClass(info ClassInfo) error

	// Create instantiates a registered class.
	//
	// Parameters:
	//   - name: the class name
	//   - device: the device handed to the factory
	//   - props: the properties handed to the factory
	//
	// Returns:
	//   - render_graph.RenderPass: the new pass
	//   - error: ErrUnknownClass, or the factory's error
	Create(name string, device render_graph.Device, props render_graph.Properties) (render_graph.RenderPass, error)

	// Has reports whether a class is registered.
	Has(name string) bool

	// Classes returns every registered class sorted by name.
	//
	// Returns:
	//   - []ClassInfo: the classes
	Classes() []ClassInfo
}

var _ Registry = &registry{}

// NewRegistry creates an empty Registry.
//
// Returns:
//   - Registry: the registry
func NewRegistry() Registry {
	return &registry{
		mu:      &sync.RWMutex{},
		classes: make(map[string]ClassInfo),
	}
}

func (r *registry) RegisterClass(info ClassInfo) error {
	if info.Name == "" || info.Factory == nil {
		panic("plugin: class requires a name and a factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.classes[info.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateClass, info.Name)
	}
	r.classes[info.Name] = info
	return nil
}

func (r *registry) Create(name string, device render_graph.Device, props render_graph.Properties) (render_graph.RenderPass, error) {
	r.mu.RLock()
	info, ok := r.classes[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, name)
	}
	pass, err := info.Factory(device, props)
	if err != nil {
		return nil, fmt.Errorf("plugin: create %q: %w", name, err)
	}
	return pass, nil
}

func (r *registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.classes[name]
	return ok
}

func (r *registry) Classes() []ClassInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ClassInfo, 0, len(r.classes))
	for _, info := range r.classes {
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b ClassInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
