package render_graph

import "fmt"

// ResourceFormat identifies the texel format of a graph resource.
type ResourceFormat int

const (
	// ResourceFormatUnknown is the zero value and is never valid for allocation.
	ResourceFormatUnknown ResourceFormat = iota

	// ResourceFormatRGBA32Float is four 32-bit float channels, 16 bytes per texel.
	ResourceFormatRGBA32Float

	// ResourceFormatRGBA16Float is four 16-bit float channels, 8 bytes per texel.
	ResourceFormatRGBA16Float

	// ResourceFormatR32Float is a single 32-bit float channel, 4 bytes per texel.
	ResourceFormatR32Float

	// ResourceFormatRGBA8Unorm is four normalized 8-bit channels, 4 bytes per texel.
	ResourceFormatRGBA8Unorm
)

// BytesPerPixel returns the size of a single texel in bytes, or 0 for ResourceFormatUnknown.
//
// Returns:
//   - uint32: the texel size in bytes
func (f ResourceFormat) BytesPerPixel() uint32 {
	switch f {
	case ResourceFormatRGBA32Float:
		return 16
	case ResourceFormatRGBA16Float:
		return 8
	case ResourceFormatR32Float, ResourceFormatRGBA8Unorm:
		return 4
	default:
		return 0
	}
}

func (f ResourceFormat) String() string {
	switch f {
	case ResourceFormatRGBA32Float:
		return "RGBA32Float"
	case ResourceFormatRGBA16Float:
		return "RGBA16Float"
	case ResourceFormatR32Float:
		return "R32Float"
	case ResourceFormatRGBA8Unorm:
		return "RGBA8Unorm"
	default:
		return fmt.Sprintf("ResourceFormat(%d)", int(f))
	}
}

// BindFlags describes how a resource may be bound by a kernel or used by copies.
type BindFlags uint32

const (
	// BindFlagShaderResource allows the resource to be read by a kernel.
	BindFlagShaderResource BindFlags = 1 << iota

	// BindFlagUnorderedAccess allows the resource to be written by a kernel.
	BindFlagUnorderedAccess

	// BindFlagCopySrc allows the resource to be read back or copied from.
	BindFlagCopySrc

	// BindFlagCopyDst allows the resource to be uploaded to or cleared by a queue write.
	BindFlagCopyDst
)

// Has reports whether every bit of flag is set on f.
func (f BindFlags) Has(flag BindFlags) bool {
	return f&flag == flag
}

// ChannelDesc describes one named resource channel of a pass: the graph-facing name, the
// kernel variable it binds to, and its required format.
type ChannelDesc struct {
	// Name is the channel name used in reflection and in the render data resource table.
	Name string
	// TexName is the kernel variable the resource binds to. An empty TexName means the
	// channel is declared to the graph but never bound to the kernel.
	TexName string
	// Desc is a human readable description shown by graph tooling.
	Desc string
	// Optional marks channels the graph may leave unbound.
	Optional bool
	// Format is the required texel format.
	Format ResourceFormat
}

// ChannelList is an ordered list of channel descriptors.
type ChannelList []ChannelDesc

// Names returns the channel names in declaration order.
//
// Returns:
//   - []string: the channel names
func (l ChannelList) Names() []string {
	names := make([]string, len(l))
	for i, c := range l {
		names[i] = c.Name
	}
	return names
}
