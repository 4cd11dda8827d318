package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-restir/common"
)

// ErrUnsupportedTexels is returned for staging data that is neither RGBA32F nor RGBA8.
var ErrUnsupportedTexels = errors.New("unsupported texel size")

// imageWriter encodes readbacks to PNG files on a worker pool.
type imageWriter struct {
	pool   worker.DynamicWorkerPool
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.Mutex
	nextID int
	errs   []error
}

func newImageWriter(workers int, logger *slog.Logger) *imageWriter {
	return &imageWriter{
		pool:   worker.NewDynamicWorkerPool(max(workers, 1), 256, time.Second),
		logger: logger,
	}
}

// Submit queues data to be written to path.
func (w *imageWriter) Submit(path string, data common.TextureStagingData) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.mu.Unlock()

	w.wg.Add(1)
	w.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer w.wg.Done()
			err := writePNG(path, data)
			if err != nil {
				w.mu.Lock()
				w.errs = append(w.errs, err)
				w.mu.Unlock()
				return nil, err
			}
			w.logger.Info("wrote readback", "path", path)
			return path, nil
		},
	})
}

// Wait blocks until every submitted image is written and returns the write errors.
func (w *imageWriter) Wait() error {
	w.wg.Wait()
	w.mu.Lock()
	defer w.mu.Unlock()
	return errors.Join(w.errs...)
}

func writePNG(path string, data common.TextureStagingData) error {
	img, err := toImage(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// toImage converts staging texels to an opaque 8-bit image. Float texels are treated as linear
// and encoded to sRGB.
func toImage(data common.TextureStagingData) (*image.NRGBA, error) {
	if want := int(data.BytesPerRow()) * int(data.Height); len(data.Pixels) < want {
		return nil, fmt.Errorf("staging data has %d bytes, want %d", len(data.Pixels), want)
	}
	img := image.NewNRGBA(image.Rect(0, 0, int(data.Width), int(data.Height)))
	for y := 0; y < int(data.Height); y++ {
		for x := 0; x < int(data.Width); x++ {
			off := y*int(data.BytesPerRow()) + x*int(data.BytesPerPixel)
			px := data.Pixels[off:]
			switch data.BytesPerPixel {
			case 16:
				img.SetNRGBA(x, y, color.NRGBA{
					R: linearToSRGB8(math.Float32frombits(binary.LittleEndian.Uint32(px[0:]))),
					G: linearToSRGB8(math.Float32frombits(binary.LittleEndian.Uint32(px[4:]))),
					B: linearToSRGB8(math.Float32frombits(binary.LittleEndian.Uint32(px[8:]))),
					A: 255,
				})
			case 4:
				img.SetNRGBA(x, y, color.NRGBA{R: px[0], G: px[1], B: px[2], A: 255})
			default:
				return nil, fmt.Errorf("%w: %d bytes", ErrUnsupportedTexels, data.BytesPerPixel)
			}
		}
	}
	return img, nil
}

func linearToSRGB8(v float32) uint8 {
	c := float64(v)
	if math.IsNaN(c) {
		return 0
	}
	c = common.Clamp(c, 0, 1)
	if c <= 0.0031308 {
		c *= 12.92
	} else {
		c = 1.055*math.Pow(c, 1/2.4) - 0.055
	}
	return uint8(math.Round(c * 255))
}
