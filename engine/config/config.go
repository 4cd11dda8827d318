// Package config loads the YAML run description of the headless host: device options, the
// frame schedule (resolution segments, scene changes and scripted option edits), readback
// output and profiling.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/Carmen-Shannon/oxy-restir/common"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoFrames is returned when the schedule contains no frames.
	ErrNoFrames = errors.New("config: schedule has no frames")

	// ErrZeroResolution is returned when a segment has a zero width or height.
	ErrZeroResolution = errors.New("config: segment resolution must be non-zero")

	// ErrFrameOutOfRange is returned when an event is scheduled past the last frame.
	ErrFrameOutOfRange = errors.New("config: event scheduled outside the frame range")

	// ErrInvalidOutput is returned for an unusable output section.
	ErrInvalidOutput = errors.New("config: invalid output")
)

// Config is a complete run description.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Seed     uint32         `yaml:"seed"`
	Segments []Segment      `yaml:"segments"`
	Scenes   []SceneChange  `yaml:"scenes"`
	Edits    []Edit         `yaml:"edits"`
	Output   OutputConfig   `yaml:"output"`
	Profiler ProfilerConfig `yaml:"profiler"`
}

// DeviceConfig selects the GPU adapter and kernel validation.
type DeviceConfig struct {
	// ForceSoftware requests the fallback (software) adapter.
	ForceSoftware bool `yaml:"forceSoftware"`
	// Validate compiles every kernel with naga before handing it to the driver.
	Validate bool `yaml:"validate"`
}

// Segment is a run of consecutive frames rendered at one resolution.
type Segment struct {
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
	Frames int    `yaml:"frames"`
}

// SceneChange switches the active scene before the given frame executes.
type SceneChange struct {
	Frame int    `yaml:"frame"`
	Scene string `yaml:"scene"`
}

// Edit applies a widget value before the given frame executes.
type Edit struct {
	Frame int    `yaml:"frame"`
	Label string `yaml:"label"`
	Value uint32 `yaml:"value"`
}

// OutputConfig controls periodic readback of the output color to PNG files.
type OutputConfig struct {
	// Dir is the directory images are written to. Empty disables readback.
	Dir string `yaml:"dir"`
	// Every writes an image after every Every-th frame.
	Every int `yaml:"every"`
	// Workers is the number of concurrent PNG encoders.
	Workers int `yaml:"workers"`
}

// ProfilerConfig controls periodic frame-rate logging.
type ProfilerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Defaults returns the run description used when no file is given: 120 frames at 1280x720
// with no events and no output.
//
// Returns:
//   - Config: the default configuration
func Defaults() Config {
	return Config{
		Segments: []Segment{{Width: 1280, Height: 720, Frames: 120}},
		Output:   OutputConfig{Every: 30, Workers: 2},
		Profiler: ProfilerConfig{Interval: time.Second},
	}
}

// Load reads and validates a YAML run description. Fields missing from the file keep their defaults.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the loaded configuration
//   - error: an error if the file cannot be read, parsed or validated
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML run description. Unknown keys are rejected.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - Config: the decoded configuration
//   - error: an error if the document cannot be parsed or validated
func Parse(data []byte) (Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the schedule and output sections.
//
// Returns:
//   - error: the first problem found, or nil
func (c Config) Validate() error {
	total := c.TotalFrames()
	if total == 0 {
		return ErrNoFrames
	}
	for i, s := range c.Segments {
		if s.Width == 0 || s.Height == 0 {
			return fmt.Errorf("%w: segment %d is %dx%d", ErrZeroResolution, i, s.Width, s.Height)
		}
		if s.Frames < 0 {
			return fmt.Errorf("config: segment %d has %d frames", i, s.Frames)
		}
	}
	for _, sc := range c.Scenes {
		if sc.Frame < 0 || sc.Frame >= total {
			return fmt.Errorf("%w: scene %q at frame %d of %d", ErrFrameOutOfRange, sc.Scene, sc.Frame, total)
		}
		if sc.Scene == "" {
			return fmt.Errorf("config: scene change at frame %d has no name", sc.Frame)
		}
	}
	for _, e := range c.Edits {
		if e.Frame < 0 || e.Frame >= total {
			return fmt.Errorf("%w: edit %q at frame %d of %d", ErrFrameOutOfRange, e.Label, e.Frame, total)
		}
		if e.Label == "" {
			return fmt.Errorf("config: edit at frame %d has no label", e.Frame)
		}
	}
	if c.Output.Dir != "" {
		if c.Output.Every <= 0 {
			return fmt.Errorf("%w: every must be positive, got %d", ErrInvalidOutput, c.Output.Every)
		}
		if c.Output.Workers <= 0 {
			return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidOutput, c.Output.Workers)
		}
	}
	if c.Profiler.Interval < 0 {
		return fmt.Errorf("config: negative profiler interval %s", c.Profiler.Interval)
	}
	return nil
}

// TotalFrames returns the number of frames across all segments.
//
// Returns:
//   - int: the frame count
func (c Config) TotalFrames() int {
	total := 0
	for _, s := range c.Segments {
		total += max(s.Frames, 0)
	}
	return total
}

// ResolutionAt returns the resolution of the segment containing frame. Frames past the end
// keep the last segment's resolution.
//
// Parameters:
//   - frame: the zero-based frame index
//
// Returns:
//   - common.Uint2: the resolution, zero if there are no segments
func (c Config) ResolutionAt(frame int) common.Uint2 {
	var last common.Uint2
	for _, s := range c.Segments {
		last = common.Uint2{X: s.Width, Y: s.Height}
		if frame < s.Frames {
			return last
		}
		frame -= max(s.Frames, 0)
	}
	return last
}

// ScenesAt returns the scene changes scheduled before frame, in file order.
//
// Parameters:
//   - frame: the zero-based frame index
//
// Returns:
//   - []SceneChange: the scheduled changes
func (c Config) ScenesAt(frame int) []SceneChange {
	return filterFrame(c.Scenes, frame, func(s SceneChange) int { return s.Frame })
}

// EditsAt returns the widget edits scheduled before frame, in file order.
//
// Parameters:
//   - frame: the zero-based frame index
//
// Returns:
//   - []Edit: the scheduled edits
func (c Config) EditsAt(frame int) []Edit {
	return filterFrame(c.Edits, frame, func(e Edit) int { return e.Frame })
}

// ShouldWrite reports whether the output of frame is read back.
//
// Parameters:
//   - frame: the zero-based frame index
//
// Returns:
//   - bool: true if output is enabled and frame closes an Every-sized window
func (c Config) ShouldWrite(frame int) bool {
	return c.Output.Dir != "" && c.Output.Every > 0 && (frame+1)%c.Output.Every == 0
}

func filterFrame[T any](items []T, frame int, at func(T) int) []T {
	var out []T
	for _, item := range items {
		if at(item) == frame {
			out = append(out, item)
		}
	}
	return slices.Clip(out)
}
