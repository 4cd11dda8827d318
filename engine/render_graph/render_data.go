package render_graph

import "github.com/Carmen-Shannon/oxy-restir/common"

// Dictionary is the per-frame key/value store shared by every pass of a graph execution.
// The graph creates one per frame and hands the same instance to each pass in order.
type Dictionary map[string]any

// DictionaryValue reads key from d as a T, returning fallback when the key is absent or holds another type.
//
// Parameters:
//   - d: the dictionary to read
//   - key: the entry key
//   - fallback: the value returned when the entry is missing
//
// Returns:
//   - T: the stored value or fallback
func DictionaryValue[T any](d Dictionary, key string, fallback T) T {
	if v, ok := d[key].(T); ok {
		return v
	}
	return fallback
}

// renderData is the implementation of the RenderData interface.
type renderData struct {
	resources   map[string]Texture
	dictionary  Dictionary
	defaultDims common.Uint2
}

// RenderData is the per-frame view a pass gets of the graph: the resources bound to its
// channels, the shared dictionary and the graph's default resolution. Resources are borrowed
// for the duration of a single Execute call.
type RenderData interface {
	// Texture returns the resource bound to the named channel this frame.
	//
	// Parameters:
	//   - name: the channel name
	//
	// Returns:
	//   - Texture: the bound resource, or nil if the channel is unbound
	Texture(name string) Texture

	// Dictionary returns the dictionary shared by all passes of this frame.
	//
	// Returns:
	//   - Dictionary: the shared dictionary
	Dictionary() Dictionary

	// DefaultTextureDims returns the resolution the graph allocated its resources at.
	//
	// Returns:
	//   - common.Uint2: the default resolution
	DefaultTextureDims() common.Uint2
}

var _ RenderData = &renderData{}

// NewRenderData creates a RenderData over a resource table. A nil dictionary is replaced by an empty one.
//
// Parameters:
//   - resources: the channel name to resource table for this frame
//   - dictionary: the shared per-frame dictionary
//   - defaultDims: the graph's default resolution
//
// Returns:
//   - RenderData: the per-frame render data
func NewRenderData(resources map[string]Texture, dictionary Dictionary, defaultDims common.Uint2) RenderData {
	if dictionary == nil {
		dictionary = Dictionary{}
	}
	return &renderData{
		resources:   resources,
		dictionary:  dictionary,
		defaultDims: defaultDims,
	}
}

func (d *renderData) Texture(name string) Texture {
	tex, ok := d.resources[name]
	if !ok || tex == nil {
		return nil
	}
	return tex
}

func (d *renderData) Dictionary() Dictionary {
	return d.dictionary
}

func (d *renderData) DefaultTextureDims() common.Uint2 {
	return d.defaultDims
}
