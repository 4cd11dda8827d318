package shader

import (
	"fmt"

	"github.com/gogpu/naga"
)

// Validate compiles the processed source of s with naga and reports front-end errors before
// the source reaches the driver.
//
// Parameters:
//   - s: the shader to validate
//
// Returns:
//   - int: the size of the SPIR-V produced, in bytes
//   - error: the compilation error, if any
func Validate(s Shader) (int, error) {
	spirv, err := naga.Compile(s.Source())
	if err != nil {
		return 0, fmt.Errorf("shader: %s failed validation: %w", s.Key(), err)
	}
	return len(spirv), nil
}
