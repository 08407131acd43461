package effectchain

import (
	"fmt"
	"math"
)

// Effect ids of the default catalog.
const (
	EffectEQ         = "eq"
	EffectCompressor = "compressor"
	EffectDelay      = "delay"
	EffectReverb     = "reverb"
)

// ParameterSpec describes one numeric control of an effect.
type ParameterSpec struct {
	ID      string
	Name    string
	Min     float64
	Max     float64
	Default float64
	Step    float64
	Unit    string
}

// Contains reports whether v lies in [Min, Max].
func (p ParameterSpec) Contains(v float64) bool {
	return !math.IsNaN(v) && v >= p.Min && v <= p.Max
}

func (p ParameterSpec) validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("%w: empty parameter id", ErrInvalidDescriptor)
	case math.IsNaN(p.Min) || math.IsNaN(p.Max) || math.IsNaN(p.Default):
		return fmt.Errorf("%w: %s: NaN bound", ErrInvalidDescriptor, p.ID)
	case !(p.Min <= p.Default && p.Default <= p.Max):
		return fmt.Errorf("%w: %s: default %v outside [%v, %v]", ErrInvalidDescriptor, p.ID, p.Default, p.Min, p.Max)
	case !(p.Step > 0):
		return fmt.Errorf("%w: %s: step %v", ErrInvalidDescriptor, p.ID, p.Step)
	}

	return nil
}

// EffectDescriptor describes an effect type. Descriptors are values and
// the catalog never hands out its internal state.
type EffectDescriptor struct {
	ID          string
	DisplayName string
	// Parameters in declaration order.
	Parameters []ParameterSpec
}

// Parameter returns the spec for paramID.
func (d EffectDescriptor) Parameter(paramID string) (ParameterSpec, bool) {
	for _, p := range d.Parameters {
		if p.ID == paramID {
			return p, true
		}
	}

	return ParameterSpec{}, false
}

// Defaults returns a fresh map of every parameter at its default.
func (d EffectDescriptor) Defaults() map[string]float64 {
	values := make(map[string]float64, len(d.Parameters))
	for _, p := range d.Parameters {
		values[p.ID] = p.Default
	}

	return values
}

func (d EffectDescriptor) clone() EffectDescriptor {
	d.Parameters = append([]ParameterSpec(nil), d.Parameters...)

	return d
}

// Catalog is an immutable set of effect descriptors in a stable order.
// It is safe for concurrent use.
type Catalog struct {
	order []string
	byID  map[string]EffectDescriptor
}

// NewCatalog validates and indexes descriptors. Ids must be unique, and so
// must parameter ids within one descriptor.
func NewCatalog(descriptors ...EffectDescriptor) (*Catalog, error) {
	c := &Catalog{
		order: make([]string, 0, len(descriptors)),
		byID:  make(map[string]EffectDescriptor, len(descriptors)),
	}

	for _, d := range descriptors {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: empty effect id", ErrInvalidDescriptor)
		}

		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate effect %q", ErrInvalidDescriptor, d.ID)
		}

		seen := make(map[string]bool, len(d.Parameters))
		for _, p := range d.Parameters {
			if err := p.validate(); err != nil {
				return nil, fmt.Errorf("%s: %w", d.ID, err)
			}

			if seen[p.ID] {
				return nil, fmt.Errorf("%w: %s: duplicate parameter %q", ErrInvalidDescriptor, d.ID, p.ID)
			}

			seen[p.ID] = true
		}

		c.order = append(c.order, d.ID)
		c.byID[d.ID] = d.clone()
	}

	return c, nil
}

// MustCatalog is like NewCatalog but panics on error.
func MustCatalog(descriptors ...EffectDescriptor) *Catalog {
	c, err := NewCatalog(descriptors...)
	if err != nil {
		panic("effectchain catalog: " + err.Error())
	}

	return c
}

// DefaultCatalog returns the built-in effects: eq, compressor, delay and
// reverb.
func DefaultCatalog() *Catalog {
	return MustCatalog(
		EffectDescriptor{
			ID:          EffectEQ,
			DisplayName: "Parametric EQ",
			Parameters: []ParameterSpec{
				{ID: "lowGain", Name: "Low Gain", Min: -24, Max: 24, Default: 0, Step: 0.1, Unit: "dB"},
				{ID: "midGain", Name: "Mid Gain", Min: -24, Max: 24, Default: 0, Step: 0.1, Unit: "dB"},
				{ID: "highGain", Name: "High Gain", Min: -24, Max: 24, Default: 0, Step: 0.1, Unit: "dB"},
			},
		},
		EffectDescriptor{
			ID:          EffectCompressor,
			DisplayName: "Compressor",
			Parameters: []ParameterSpec{
				{ID: "threshold", Name: "Threshold", Min: -60, Max: 0, Default: -24, Step: 1, Unit: "dB"},
				{ID: "ratio", Name: "Ratio", Min: 1, Max: 20, Default: 4, Step: 0.1, Unit: ":1"},
				{ID: "attack", Name: "Attack", Min: 0, Max: 1, Default: 0.003, Step: 0.001, Unit: "s"},
				{ID: "release", Name: "Release", Min: 0.01, Max: 1, Default: 0.25, Step: 0.001, Unit: "s"},
			},
		},
		EffectDescriptor{
			ID:          EffectDelay,
			DisplayName: "Stereo Delay",
			Parameters: []ParameterSpec{
				{ID: "time", Name: "Time", Min: 0.01, Max: 1, Default: 0.3, Step: 0.01, Unit: "s"},
				{ID: "feedback", Name: "Feedback", Min: 0, Max: 0.9, Default: 0.4, Step: 0.01, Unit: "%"},
				{ID: "mix", Name: "Mix", Min: 0, Max: 1, Default: 0.4, Step: 0.01, Unit: "%"},
			},
		},
		EffectDescriptor{
			ID:          EffectReverb,
			DisplayName: "Reverb",
			Parameters: []ParameterSpec{
				{ID: "mix", Name: "Mix", Min: 0, Max: 1, Default: 0.3, Step: 0.01, Unit: "%"},
				{ID: "decay", Name: "Decay", Min: 0.5, Max: 5, Default: 2, Step: 0.1, Unit: "s"},
			},
		},
	)
}

// Describe returns the descriptor for effectID.
func (c *Catalog) Describe(effectID string) (EffectDescriptor, error) {
	d, ok := c.byID[effectID]
	if !ok {
		return EffectDescriptor{}, fmt.Errorf("%w: %q", ErrNotFound, effectID)
	}

	return d.clone(), nil
}

// Has reports whether effectID is in the catalog.
func (c *Catalog) Has(effectID string) bool {
	_, ok := c.byID[effectID]

	return ok
}

// IDs returns the effect ids in catalog order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of effects.
func (c *Catalog) Len() int {
	return len(c.order)
}
