package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const constantsInclude = `struct Constants {
    frameCount: u32,
}`

func TestPreProcessorIncludeAndGroup(t *testing.T) {
	pp := NewPreProcessor(WithInclude("constants", "Constants", constantsInclude))
	src := strings.Join([]string{
		"//@oxy:include constants",
		"//@oxy:group 0 0 storage_uniform CB constants",
		"fn f() {}",
	}, "\n")

	got, err := pp.Process(src)
	if err != nil {
		t.Fatal(err)
	}
	want := constantsInclude + "\n@group(0) @binding(0) var<uniform> CB: Constants;\nfn f() {}"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Process mismatch (-want +got):\n%s", diff)
	}
	decls := pp.Declarations()
	if len(decls) != 1 || *decls[0].Group != 0 || *decls[0].Binding != 0 || decls[0].Args[1] != "CB" {
		t.Errorf("Declarations = %+v", decls)
	}
}

func TestPreProcessorConditionals(t *testing.T) {
	src := strings.Join([]string{
		"a",
		"//@oxy:if is_valid_gAux",
		"b",
		"//@oxy:if !NESTED",
		"c",
		"//@oxy:endif",
		"//@oxy:else",
		"d",
		"//@oxy:endif",
		"e",
	}, "\n")

	tests := []struct {
		name    string
		defines map[string]string
		want    string
	}{
		{name: "taken", defines: map[string]string{"is_valid_gAux": "1"}, want: "a\nb\nc\ne"},
		{name: "taken nested off", defines: map[string]string{"is_valid_gAux": "1", "NESTED": "1"}, want: "a\nb\ne"},
		{name: "zero is false", defines: map[string]string{"is_valid_gAux": "0"}, want: "a\nd\ne"},
		{name: "absent is false", want: "a\nd\ne"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPreProcessor(WithDefines(tt.defines)).Process(src)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Process mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPreProcessorDefines(t *testing.T) {
	pp := NewPreProcessor(WithDefines(map[string]string{
		"SAMPLE_GENERATOR_TYPE": "1",
		"is_valid_gOutputColor": "1",
		"USE_FLAG":              "true",
	}))
	got, err := pp.Process("//@oxy:defines")
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"const SAMPLE_GENERATOR_TYPE: u32 = 1u;",
		"const USE_FLAG: bool = true;",
		"const is_valid_gOutputColor: u32 = 1u;",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Process mismatch (-want +got):\n%s", diff)
	}
}

func TestPreProcessorErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		defines map[string]string
		wantErr error
	}{
		{name: "missing endif", src: "//@oxy:if A\nx", wantErr: ErrUnbalancedConditional},
		{name: "stray endif", src: "//@oxy:endif", wantErr: ErrUnbalancedConditional},
		{name: "double else", src: "//@oxy:if A\n//@oxy:else\n//@oxy:else\n//@oxy:endif", wantErr: ErrUnbalancedConditional},
		{name: "unknown include", src: "//@oxy:include nope"},
		{name: "unknown group type", src: "//@oxy:group 0 0 storage_uniform CB nope"},
		{name: "bad address space", src: "//@oxy:group 0 0 private CB nope"},
		{name: "unknown annotation", src: "//@oxy:pragma"},
		{name: "non numeric define", src: "//@oxy:defines", defines: map[string]string{"A": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPreProcessor(WithDefines(tt.defines)).Process(tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPreProcessorIgnoresDiscardedIncludes(t *testing.T) {
	got, err := NewPreProcessor().Process("//@oxy:if MISSING\n//@oxy:include nope\n//@oxy:endif\nok")
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok" {
		t.Errorf("Process = %q", got)
	}
}
