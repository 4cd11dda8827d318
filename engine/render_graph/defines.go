package render_graph

import (
	"maps"
	"slices"
)

// validResourcePrefix prefixes the per-channel availability defines handed to kernels.
const validResourcePrefix = "is_valid_"

// DefineList is a set of named compile-time values passed to a kernel's pre-processor.
type DefineList map[string]string

// Add sets name to value, creating the list if needed, and returns it for chaining.
//
// Parameters:
//   - name: the define name
//   - value: the define value
//
// Returns:
//   - DefineList: the list with the define set
func (l DefineList) Add(name, value string) DefineList {
	if l == nil {
		l = DefineList{}
	}
	l[name] = value
	return l
}

// Merge copies every define of other into l, overwriting duplicates, and returns l.
//
// Parameters:
//   - other: the defines to copy
//
// Returns:
//   - DefineList: the merged list
func (l DefineList) Merge(other DefineList) DefineList {
	if l == nil {
		l = DefineList{}
	}
	maps.Copy(l, other)
	return l
}

// Defined reports whether name is defined to anything other than "" or "0".
//
// Parameters:
//   - name: the define name
//
// Returns:
//   - bool: true if the define is present and truthy
func (l DefineList) Defined(name string) bool {
	v, ok := l[name]
	return ok && v != "" && v != "0"
}

// Names returns the define names sorted, for deterministic code generation.
func (l DefineList) Names() []string {
	return slices.Sorted(maps.Keys(l))
}

// ValidResourceDefineName returns the availability define for a kernel variable.
//
// Parameters:
//   - texName: the kernel variable name
//
// Returns:
//   - string: "is_valid_" + texName
func ValidResourceDefineName(texName string) string {
	return validResourcePrefix + texName
}

// ValidResourceDefines produces one "is_valid_<texName>" define per channel with a kernel binding,
// set to "1" when the render data holds a resource for the channel this frame and "0" otherwise.
//
// Parameters:
//   - channels: the channel list to inspect
//   - data: the current frame's render data
//
// Returns:
//   - DefineList: the availability defines
func ValidResourceDefines(channels ChannelList, data RenderData) DefineList {
	defines := DefineList{}
	for _, c := range channels {
		if c.TexName == "" {
			continue
		}
		value := "0"
		if data.Texture(c.Name) != nil {
			value = "1"
		}
		defines.Add(ValidResourceDefineName(c.TexName), value)
	}
	return defines
}
