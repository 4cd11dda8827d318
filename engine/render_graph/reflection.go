package render_graph

import "github.com/Carmen-Shannon/oxy-restir/common"

// FieldVisibility tells whether a reflected field is consumed or produced by a pass.
type FieldVisibility int

const (
	// FieldVisibilityInput marks a resource the pass reads.
	FieldVisibilityInput FieldVisibility = iota

	// FieldVisibilityOutput marks a resource the pass writes.
	FieldVisibilityOutput
)

// CompileData carries the graph-wide information a pass may use when reflecting.
type CompileData struct {
	// DefaultTexDims is the resolution the graph allocates resources at.
	DefaultTexDims common.Uint2
}

// Field is a single reflected resource requirement.
type Field struct {
	Name       string
	Desc       string
	Visibility FieldVisibility
	Optional   bool
	Format     ResourceFormat
	BindFlags  BindFlags
}

// Reflection is the ordered list of resource requirements a pass declares to the graph.
type Reflection struct {
	fields []Field
}

// AddInput declares a resource the pass reads.
//
// Parameters:
//   - name: the channel name
//   - desc: a human readable description
//
// Returns:
//   - *Field: the added field, which the caller may further adjust
func (r *Reflection) AddInput(name, desc string) *Field {
	return r.add(Field{
		Name:       name,
		Desc:       desc,
		Visibility: FieldVisibilityInput,
		BindFlags:  BindFlagShaderResource,
	})
}

// AddOutput declares a resource the pass writes.
//
// Parameters:
//   - name: the channel name
//   - desc: a human readable description
//
// Returns:
//   - *Field: the added field, which the caller may further adjust
func (r *Reflection) AddOutput(name, desc string) *Field {
	return r.add(Field{
		Name:       name,
		Desc:       desc,
		Visibility: FieldVisibilityOutput,
		BindFlags:  BindFlagUnorderedAccess | BindFlagShaderResource,
	})
}

func (r *Reflection) add(f Field) *Field {
	r.fields = append(r.fields, f)
	return &r.fields[len(r.fields)-1]
}

// Fields returns a copy of every declared field in declaration order.
func (r Reflection) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Inputs returns the declared input fields.
func (r Reflection) Inputs() []Field {
	return r.filter(FieldVisibilityInput)
}

// Outputs returns the declared output fields.
func (r Reflection) Outputs() []Field {
	return r.filter(FieldVisibilityOutput)
}

// Field looks up a declared field by name.
//
// Parameters:
//   - name: the channel name
//
// Returns:
//   - Field: the field, zero valued if absent
//   - bool: true if a field with that name was declared
func (r Reflection) Field(name string) (Field, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (r Reflection) filter(v FieldVisibility) []Field {
	var out []Field
	for _, f := range r.fields {
		if f.Visibility == v {
			out = append(out, f)
		}
	}
	return out
}

// SetFormat sets the required texel format.
func (f *Field) SetFormat(format ResourceFormat) *Field {
	f.Format = format
	return f
}

// SetOptional marks the field as optional.
func (f *Field) SetOptional(optional bool) *Field {
	f.Optional = optional
	return f
}

// AddRenderPassInputs declares every channel in channels as an input of r.
//
// Parameters:
//   - r: the reflection to extend
//   - channels: the input channels
func AddRenderPassInputs(r *Reflection, channels ChannelList) {
	for _, c := range channels {
		r.AddInput(c.Name, c.Desc).SetFormat(c.Format).SetOptional(c.Optional)
	}
}

// AddRenderPassOutputs declares every channel in channels as an output of r.
//
// Parameters:
//   - r: the reflection to extend
//   - channels: the output channels
func AddRenderPassOutputs(r *Reflection, channels ChannelList) {
	for _, c := range channels {
		r.AddOutput(c.Name, c.Desc).SetFormat(c.Format).SetOptional(c.Optional)
	}
}
