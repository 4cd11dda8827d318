package engine

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-restir/engine/profiler"
)

// ErrStop may be returned by a frame callback to end the run without an error.
var ErrStop = errors.New("engine: stop requested")

// FrameCallback renders one frame. Returning ErrStop ends the run cleanly; any other error
// ends it and is returned from Run.
type FrameCallback func(frame uint64, deltaTime float32) error

// engine implements the Engine interface.
// Coordinates the tick and frame goroutines.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	errMu sync.Mutex
	err   error

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	frameCallback  FrameCallback

	frames    atomic.Uint64
	maxFrames uint64 // 0 = run until Quit

	frameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the headless frame loop driving a render graph.
// A frame goroutine calls the frame callback back to back (optionally capped), while a
// separate goroutine fires the tick callback at a fixed rate.
type Engine interface {
	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick. The tick goroutine only
	// runs when a callback is registered before Run.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetFrameCallback registers the function called each frame.
	//
	// Parameters:
	//   - callback: the frame function
	SetFrameCallback(callback FrameCallback)

	// SetFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the frame loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetFrameLimit(fps float64)

	// Frames returns the number of frames completed so far.
	//
	// Returns:
	//   - uint64: the completed frame count
	Frames() uint64

	// Run starts the engine goroutines and blocks until the frame budget is spent, a callback
	// stops the run, or Quit is called. A panic in the frame callback is recovered and returned.
	//
	// Returns:
	//   - error: the error that ended the run, nil for a clean stop
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, frame budget, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}

	return e
}

func (e *engine) Run() error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine: already running")
	}
	e.handle()
	e.wg.Wait()

	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// fail records the first error ending the run and signals quit.
func (e *engine) fail(err error) {
	e.errMu.Lock()
	if e.err == nil && !errors.Is(err, ErrStop) {
		e.err = err
	}
	e.errMu.Unlock()
	e.signalQuit()
}

// handle launches the frame and quit goroutines, plus the tick goroutine when a tick callback is set.
func (e *engine) handle() {
	if e.tickCallback != nil {
		e.wg.Add(1)
		go e.handleEngine()
	}
	e.wg.Add(2)
	go e.handleFrames()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate tick loop until the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleFrames runs the frame loop on a locked OS thread so every GPU call of the run is
// recorded from the same thread. Panics in the callback are recovered and end the run.
func (e *engine) handleFrames() {
	defer e.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("frame goroutine recovered from panic: %v", r)
			e.fail(fmt.Errorf("engine: frame %d panicked: %v", e.frames.Load(), r))
		}
	}()

	lastFrame := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		if e.maxFrames > 0 && e.frames.Load() >= e.maxFrames {
			e.signalQuit()
			return
		}

		now := time.Now()
		dt := float32(now.Sub(lastFrame).Seconds())
		lastFrame = now

		if e.frameCallback != nil {
			if err := e.frameCallback(e.frames.Load(), dt); err != nil {
				e.fail(err)
				return
			}
		}
		e.frames.Add(1)

		if e.profilingEnabled.Load() {
			e.profiler.Tick()
		}

		if e.frameLimit > 0 {
			if remaining := e.frameLimit - time.Since(lastFrame); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := interval(fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// replace a pending update rather than block
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetFrameCallback(callback FrameCallback) {
	e.frameCallback = callback
}

func (e *engine) SetFrameLimit(fps float64) {
	if fps <= 0 {
		e.frameLimit = 0
		return
	}
	e.frameLimit = interval(fps)
}

func (e *engine) Frames() uint64 {
	return e.frames.Load()
}

// interval converts a rate in events per second to the duration between events.
func interval(fps float64) time.Duration {
	return time.Duration(float64(time.Second) / fps)
}
