package effectchain

import (
	"errors"
	"slices"
	"testing"
)

func TestDefaultCatalogOrderAndRanges(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()

	want := []string{EffectEQ, EffectCompressor, EffectDelay, EffectReverb}
	if got := c.IDs(); !slices.Equal(got, want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}

	tests := []struct {
		name     string
		effect   string
		param    string
		min, max float64
		def      float64
	}{
		{name: "eq low", effect: EffectEQ, param: "lowGain", min: -24, max: 24, def: 0},
		{name: "compressor ratio", effect: EffectCompressor, param: "ratio", min: 1, max: 20, def: 4},
		{name: "compressor release", effect: EffectCompressor, param: "release", min: 0.01, max: 1, def: 0.25},
		{name: "delay time", effect: EffectDelay, param: "time", min: 0.01, max: 1, def: 0.3},
		{name: "delay feedback", effect: EffectDelay, param: "feedback", min: 0, max: 0.9, def: 0.4},
		{name: "reverb decay", effect: EffectReverb, param: "decay", min: 0.5, max: 5, def: 2},
	}

	for _, tt := range tests {
		d, err := c.Describe(tt.effect)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}

		p, ok := d.Parameter(tt.param)
		if !ok {
			t.Fatalf("%s: parameter missing", tt.name)
		}

		if p.Min != tt.min || p.Max != tt.max || p.Default != tt.def {
			t.Fatalf("%s: got [%v, %v] default %v", tt.name, p.Min, p.Max, p.Default)
		}
	}
}

func TestDescribeUnknown(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()

	if _, err := c.Describe("chorus"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	if c.Has("chorus") || !c.Has(EffectDelay) {
		t.Fatal("Has reports wrong membership")
	}
}

func TestDescribeReturnsCopy(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()

	d, err := c.Describe(EffectDelay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d.Parameters[0].Max = 100

	again, err := c.Describe(EffectDelay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if again.Parameters[0].Max != 1 {
		t.Fatal("catalog was mutated through a returned descriptor")
	}
}

func TestNewCatalogValidation(t *testing.T) {
	t.Parallel()

	valid := ParameterSpec{ID: "p", Min: 0, Max: 1, Default: 0.5, Step: 0.1}

	tests := []struct {
		name string
		desc []EffectDescriptor
	}{
		{name: "empty id", desc: []EffectDescriptor{{ID: ""}}},
		{name: "duplicate effect", desc: []EffectDescriptor{{ID: "a"}, {ID: "a"}}},
		{
			name: "default below min",
			desc: []EffectDescriptor{{ID: "a", Parameters: []ParameterSpec{{ID: "p", Min: 0, Max: 1, Default: -1, Step: 1}}}},
		},
		{
			name: "zero step",
			desc: []EffectDescriptor{{ID: "a", Parameters: []ParameterSpec{{ID: "p", Min: 0, Max: 1, Default: 0, Step: 0}}}},
		},
		{
			name: "duplicate parameter",
			desc: []EffectDescriptor{{ID: "a", Parameters: []ParameterSpec{valid, valid}}},
		},
		{
			name: "empty parameter id",
			desc: []EffectDescriptor{{ID: "a", Parameters: []ParameterSpec{{Min: 0, Max: 1, Step: 1}}}},
		},
	}

	for _, tt := range tests {
		if _, err := NewCatalog(tt.desc...); !errors.Is(err, ErrInvalidDescriptor) {
			t.Fatalf("%s: error = %v, want ErrInvalidDescriptor", tt.name, err)
		}
	}

	if _, err := NewCatalog(EffectDescriptor{ID: "a", Parameters: []ParameterSpec{valid}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
