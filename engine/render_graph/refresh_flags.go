package render_graph

import "strings"

// KeyRenderPassRefreshFlags is the well-known dictionary entry passes use to tell each other
// that temporal data must be refreshed.
const KeyRenderPassRefreshFlags = "_refreshFlags"

// RefreshFlags is a set of bits signalling downstream passes that accumulated data is stale.
// Passes only ever OR bits in; no pass clears bits set by another.
type RefreshFlags uint32

const (
	// RefreshFlagsNone signals nothing.
	RefreshFlagsNone RefreshFlags = 0

	// RefreshFlagsLightingChanged signals that lighting inputs changed.
	RefreshFlagsLightingChanged RefreshFlags = 1 << 0

	// RefreshFlagsRenderOptionsChanged signals that a user-facing render option changed.
	RefreshFlagsRenderOptionsChanged RefreshFlags = 1 << 1
)

// Has reports whether every bit of flag is set on f.
func (f RefreshFlags) Has(flag RefreshFlags) bool {
	return f&flag == flag
}

func (f RefreshFlags) String() string {
	if f == RefreshFlagsNone {
		return "None"
	}
	var parts []string
	if f.Has(RefreshFlagsLightingChanged) {
		parts = append(parts, "LightingChanged")
	}
	if f.Has(RefreshFlagsRenderOptionsChanged) {
		parts = append(parts, "RenderOptionsChanged")
	}
	if rest := f &^ (RefreshFlagsLightingChanged | RefreshFlagsRenderOptionsChanged); rest != 0 {
		parts = append(parts, "Unknown")
	}
	return strings.Join(parts, "|")
}

// RefreshFlags reads the shared refresh flags entry, returning RefreshFlagsNone when absent.
//
// Returns:
//   - RefreshFlags: the current flags
func (d Dictionary) RefreshFlags() RefreshFlags {
	return DictionaryValue(d, KeyRenderPassRefreshFlags, RefreshFlagsNone)
}

// MergeRefreshFlags ORs flags into the shared refresh flags entry and writes the result back.
// Bits already set by other passes in the same frame are preserved.
//
// Parameters:
//   - flags: the bits to add
//
// Returns:
//   - RefreshFlags: the merged value now stored in the dictionary
func (d Dictionary) MergeRefreshFlags(flags RefreshFlags) RefreshFlags {
	merged := d.RefreshFlags() | flags
	d[KeyRenderPassRefreshFlags] = merged
	return merged
}
