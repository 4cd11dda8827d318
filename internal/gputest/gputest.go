// Package gputest provides recording fakes of the render_graph device abstractions for tests.
package gputest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-restir/common"
	"github.com/Carmen-Shannon/oxy-restir/engine/render_graph"
)

// Event is one recorded device or context call.
type Event struct {
	Op     string
	Target string
	Groups common.Uint3
	Value  common.Float4
}

// Log is an ordered, shared record of fake GPU calls.
type Log struct {
	mu     sync.Mutex
	events []Event
}

func (l *Log) add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// Events returns a copy of the recorded events.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// Ops returns the op names of the recorded events, for compact ordering checks.
func (l *Log) Ops() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ops := make([]string, len(l.events))
	for i, e := range l.events {
		ops[i] = e.Op
	}
	return ops
}

// Count returns how many recorded events have op.
func (l *Log) Count(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Op == op {
			n++
		}
	}
	return n
}

// Reset drops every recorded event.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// Texture is a fake render_graph.Texture.
type Texture struct {
	Desc     render_graph.TextureDesc
	Released bool
	log      *Log
}

var _ render_graph.Texture = &Texture{}

// NewTexture creates a standalone fake texture with the given label and size.
func NewTexture(label string, width, height uint32) *Texture {
	return &Texture{Desc: render_graph.TextureDesc{
		Label:     label,
		Width:     width,
		Height:    height,
		Format:    render_graph.ResourceFormatRGBA32Float,
		MipLevels: 1,
	}}
}

func (t *Texture) Label() string                       { return t.Desc.Label }
func (t *Texture) Width() uint32                       { return t.Desc.Width }
func (t *Texture) Height() uint32                      { return t.Desc.Height }
func (t *Texture) Format() render_graph.ResourceFormat { return t.Desc.Format }

func (t *Texture) Release() {
	t.Released = true
	if t.log != nil {
		t.log.add(Event{Op: "ReleaseTexture", Target: t.Desc.Label})
	}
}

// Binding is the value recorded by Vars for one variable.
type Binding struct {
	Texture render_graph.Texture
	Uniform []byte
}

// Vars is a fake render_graph.ProgramVars that records bindings by variable name.
type Vars struct {
	Bindings map[string]Binding
	SetCalls map[string]int
	// Known restricts accepted variable names when non-nil.
	Known    map[string]bool
	Released bool
	log      *Log
}

var _ render_graph.ProgramVars = &Vars{}

func (v *Vars) check(name string) error {
	if v.Known != nil && !v.Known[name] {
		return fmt.Errorf("gputest: unknown variable %q", name)
	}
	return nil
}

func (v *Vars) SetTexture(name string, tex render_graph.Texture) error {
	if err := v.check(name); err != nil {
		return err
	}
	v.Bindings[name] = Binding{Texture: tex}
	v.SetCalls[name]++
	v.log.add(Event{Op: "SetTexture", Target: name})
	return nil
}

func (v *Vars) SetUniform(name string, block render_graph.UniformBlock) error {
	if err := v.check(name); err != nil {
		return err
	}
	v.Bindings[name] = Binding{Uniform: block.Marshal()}
	v.SetCalls[name]++
	v.log.add(Event{Op: "SetUniform", Target: name})
	return nil
}

func (v *Vars) Release() { v.Released = true }

// Program is a fake render_graph.Program.
type Program struct {
	Desc      render_graph.ProgramDesc
	GroupSize common.Uint3
	Vars      []*Vars
	Released  bool
	known     map[string]bool
	log       *Log
}

var _ render_graph.Program = &Program{}

func (p *Program) Key() string                      { return p.Desc.Key }
func (p *Program) EntryPoint() string               { return p.Desc.EntryPoint }
func (p *Program) ThreadGroupSize() common.Uint3    { return p.GroupSize }
func (p *Program) Defines() render_graph.DefineList { return p.Desc.Defines }
func (p *Program) Release()                         { p.Released = true }

func (p *Program) CreateVars() (render_graph.ProgramVars, error) {
	v := &Vars{
		Bindings: make(map[string]Binding),
		SetCalls: make(map[string]int),
		Known:    p.known,
		log:      p.log,
	}
	p.Vars = append(p.Vars, v)
	p.log.add(Event{Op: "CreateVars", Target: p.Desc.Key})
	return v, nil
}

// Device is a fake render_graph.Device. Set the Err fields to inject failures.
type Device struct {
	Log        *Log
	GroupSize  common.Uint3
	KnownVars  map[string]bool
	Textures   []*Texture
	Programs   []*Program
	CompileErr error
	AllocErr   error
}

var _ render_graph.Device = &Device{}

// NewDevice creates a fake device whose programs report a 16x16x1 thread group.
func NewDevice() *Device {
	return &Device{
		Log:       &Log{},
		GroupSize: common.Uint3{X: 16, Y: 16, Z: 1},
	}
}

func (d *Device) CreateTexture2D(desc render_graph.TextureDesc) (render_graph.Texture, error) {
	if d.AllocErr != nil {
		return nil, d.AllocErr
	}
	t := &Texture{Desc: desc, log: d.Log}
	d.Textures = append(d.Textures, t)
	d.Log.add(Event{Op: "CreateTexture", Target: desc.Label})
	return t, nil
}

func (d *Device) CreateComputeProgram(desc render_graph.ProgramDesc) (render_graph.Program, error) {
	if d.CompileErr != nil {
		return nil, d.CompileErr
	}
	p := &Program{Desc: desc, GroupSize: d.GroupSize, known: d.KnownVars, log: d.Log}
	d.Programs = append(d.Programs, p)
	d.Log.add(Event{Op: "CreateProgram", Target: desc.Key})
	return p, nil
}

// LastProgram returns the most recently compiled program, or nil.
func (d *Device) LastProgram() *Program {
	if len(d.Programs) == 0 {
		return nil
	}
	return d.Programs[len(d.Programs)-1]
}

// Context is a fake render_graph.RenderContext.
type Context struct {
	Log *Log
}

var _ render_graph.RenderContext = &Context{}

// NewContext creates a fake context recording into log.
func NewContext(log *Log) *Context {
	return &Context{Log: log}
}

func (c *Context) ClearTexture(tex render_graph.Texture, value common.Float4) error {
	c.Log.add(Event{Op: "Clear", Target: tex.Label(), Value: value})
	return nil
}

func (c *Context) Dispatch(program render_graph.Program, vars render_graph.ProgramVars, groups common.Uint3) error {
	c.Log.add(Event{Op: "Dispatch", Target: program.Key(), Groups: groups})
	return nil
}
