// package common contains common types that are used throughout this module. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import "fmt"

// Uint2 is a two component unsigned vector, used for frame resolutions and pixel coordinates.
type Uint2 struct {
	X, Y uint32
}

// Uint3 is a three component unsigned vector, used for thread-group shapes and dispatch group counts.
type Uint3 struct {
	X, Y, Z uint32
}

// Float4 is a four component float vector, used for clear values of RGBA32Float resources.
type Float4 struct {
	X, Y, Z, W float32
}

// String implements fmt.Stringer as "WxH".
func (u Uint2) String() string {
	return fmt.Sprintf("%dx%d", u.X, u.Y)
}

// IsZero reports whether either component of u is zero, i.e. whether u describes an empty area.
//
// Returns:
//   - bool: true if X or Y is zero
func (u Uint2) IsZero() bool {
	return u.X == 0 || u.Y == 0
}

// Area returns X*Y as a uint64 so large resolutions do not overflow.
//
// Returns:
//   - uint64: the number of elements covered by u
func (u Uint2) Area() uint64 {
	return uint64(u.X) * uint64(u.Y)
}

// Extend widens u into a Uint3 with the provided Z component.
//
// Parameters:
//   - z: the third component
//
// Returns:
//   - Uint3: {u.X, u.Y, z}
func (u Uint2) Extend(z uint32) Uint3 {
	return Uint3{X: u.X, Y: u.Y, Z: z}
}

// String implements fmt.Stringer as "(x, y, z)".
func (u Uint3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", u.X, u.Y, u.Z)
}

// Total returns X*Y*Z as a uint64.
//
// Returns:
//   - uint64: the product of all three components
func (u Uint3) Total() uint64 {
	return uint64(u.X) * uint64(u.Y) * uint64(u.Z)
}

// DivRoundUp returns the element-wise ceiling division of a by b. Each component of b must be non-zero,
// a zero divisor is a programming error and panics.
//
// Parameters:
//   - a: the dividend, typically the dispatch domain (width, height, 1)
//   - b: the divisor, typically a kernel's thread-group shape
//
// Returns:
//   - Uint3: ceil(a.X/b.X), ceil(a.Y/b.Y), ceil(a.Z/b.Z)
func DivRoundUp(a, b Uint3) Uint3 {
	if b.X == 0 || b.Y == 0 || b.Z == 0 {
		panic(fmt.Sprintf("common: DivRoundUp divisor %s has a zero component", b))
	}
	return Uint3{
		X: (a.X + b.X - 1) / b.X,
		Y: (a.Y + b.Y - 1) / b.Y,
		Z: (a.Z + b.Z - 1) / b.Z,
	}
}

// TextureStagingData holds raw texel data pending upload into a 2D texture.
type TextureStagingData struct {
	// Pixels is the tightly packed, row-major texel data.
	Pixels []byte
	// Width is the width of the texture in texels.
	Width uint32
	// Height is the height of the texture in texels.
	Height uint32
	// BytesPerPixel is the size of one texel, 16 for RGBA32Float.
	BytesPerPixel uint32
}

// BytesPerRow returns the tightly packed row pitch of the staging data.
//
// Returns:
//   - uint32: Width * BytesPerPixel
func (s TextureStagingData) BytesPerRow() uint32 {
	return s.Width * s.BytesPerPixel
}
