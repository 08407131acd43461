package effectchain

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func defaultChain() *Chain {
	c := DefaultCatalog()

	return NewChain(c, c.IDs())
}

func TestNewChainDropsUnknownAndRepeatedIDs(t *testing.T) {
	t.Parallel()

	c := NewChain(DefaultCatalog(), []string{"reverb", "chorus", "eq", "reverb", ""})

	if got := c.Order(); !slices.Equal(got, []string{"reverb", "eq"}) {
		t.Fatalf("Order() = %v, want [reverb eq]", got)
	}

	inst, ok := c.Instance("reverb")
	if !ok {
		t.Fatal("reverb instance missing")
	}

	if inst.Bypassed || inst.Values["mix"] != 0.3 || inst.Values["decay"] != 2 {
		t.Fatalf("reverb instance = %+v, want defaults", inst)
	}

	if _, ok := c.Instance("delay"); ok {
		t.Fatal("delay should not be in the chain")
	}
}

func TestSetParameter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		effect string
		param  string
		value  float64
		want   error
	}{
		{name: "in range", effect: "delay", param: "time", value: 0.5},
		{name: "at min", effect: "delay", param: "time", value: 0.01},
		{name: "at max", effect: "delay", param: "time", value: 1},
		{name: "above max", effect: "delay", param: "time", value: 5.0, want: ErrOutOfRange},
		{name: "below min", effect: "reverb", param: "decay", value: 0.1, want: ErrOutOfRange},
		{name: "nan", effect: "eq", param: "midGain", value: math.NaN(), want: ErrOutOfRange},
		{name: "unknown effect", effect: "chorus", param: "rate", value: 1, want: ErrInvalidParameter},
		{name: "undeclared parameter", effect: "eq", param: "q", value: 1, want: ErrInvalidParameter},
	}

	for _, tt := range tests {
		c := defaultChain()

		before, _ := c.Instance(tt.effect)
		prior := before.Value(tt.param, math.NaN())

		err := c.SetParameter(tt.effect, tt.param, tt.value)

		if tt.want != nil {
			if !errors.Is(err, tt.want) {
				t.Fatalf("%s: error = %v, want %v", tt.name, err, tt.want)
			}

			after, _ := c.Instance(tt.effect)
			if got := after.Value(tt.param, math.NaN()); got != prior && !(math.IsNaN(got) && math.IsNaN(prior)) {
				t.Fatalf("%s: value changed to %v after rejection", tt.name, got)
			}

			continue
		}

		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}

		after, _ := c.Instance(tt.effect)
		if got := after.Values[tt.param]; got != tt.value {
			t.Fatalf("%s: value = %v, want %v", tt.name, got, tt.value)
		}
	}
}

func TestSetParameterRejectsEffectOutsideChain(t *testing.T) {
	t.Parallel()

	c := NewChain(DefaultCatalog(), []string{"eq"})

	if err := c.SetParameter("delay", "time", 0.5); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("error = %v, want ErrInvalidParameter", err)
	}

	if err := c.SetBypass("delay", true); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("SetBypass error = %v, want ErrInvalidParameter", err)
	}
}

func TestDelayTimeOutOfRangeKeepsPriorValue(t *testing.T) {
	t.Parallel()

	c := defaultChain()

	if err := c.SetParameter("delay", "time", 0.7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.SetParameter("delay", "time", 5.0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("error = %v, want ErrOutOfRange", err)
	}

	inst, _ := c.Instance("delay")
	if inst.Values["time"] != 0.7 {
		t.Fatalf("delay.time = %v, want 0.7", inst.Values["time"])
	}
}

func permutations(ids []string) [][]string {
	if len(ids) <= 1 {
		return [][]string{slices.Clone(ids)}
	}

	var out [][]string

	for i := range ids {
		rest := make([]string, 0, len(ids)-1)
		rest = append(rest, ids[:i]...)
		rest = append(rest, ids[i+1:]...)

		for _, p := range permutations(rest) {
			out = append(out, append([]string{ids[i]}, p...))
		}
	}

	return out
}

func TestReorderAcceptsEveryPermutation(t *testing.T) {
	t.Parallel()

	perms := permutations(DefaultCatalog().IDs())
	if len(perms) != 24 {
		t.Fatalf("got %d permutations, want 24", len(perms))
	}

	for _, p := range perms {
		c := defaultChain()

		if err := c.Reorder(p); err != nil {
			t.Fatalf("Reorder(%v): %v", p, err)
		}

		if got := c.Order(); !slices.Equal(got, p) {
			t.Fatalf("Order() = %v, want %v", got, p)
		}
	}
}

func TestReorderRejectsNonPermutations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		order []string
	}{
		{name: "missing id", order: []string{"eq", "compressor", "delay"}},
		{name: "extra id", order: []string{"eq", "compressor", "delay", "reverb", "chorus"}},
		{name: "duplicate id", order: []string{"eq", "eq", "delay", "reverb"}},
		{name: "foreign id", order: []string{"eq", "compressor", "delay", "chorus"}},
		{name: "empty", order: nil},
	}

	for _, tt := range tests {
		c := defaultChain()
		before := c.Order()

		if err := c.Reorder(tt.order); !errors.Is(err, ErrInvalidOrder) {
			t.Fatalf("%s: error = %v, want ErrInvalidOrder", tt.name, err)
		}

		if got := c.Order(); !slices.Equal(got, before) {
			t.Fatalf("%s: order changed to %v", tt.name, got)
		}
	}
}

func TestReorderDoesNotAliasCaller(t *testing.T) {
	t.Parallel()

	c := defaultChain()
	order := []string{"reverb", "delay", "compressor", "eq"}

	if err := c.Reorder(order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order[0] = "eq"

	if c.Order()[0] != "reverb" {
		t.Fatal("chain shares the caller's slice")
	}
}

func TestResetAll(t *testing.T) {
	t.Parallel()

	c := defaultChain()
	custom := []string{"delay", "reverb", "eq", "compressor"}

	steps := []struct {
		effect, param string
		value         float64
	}{
		{"eq", "lowGain", 12},
		{"compressor", "threshold", -50},
		{"delay", "mix", 1},
		{"reverb", "decay", 4.5},
	}

	for _, s := range steps {
		if err := c.SetParameter(s.effect, s.param, s.value); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	for _, id := range c.Order() {
		if err := c.SetBypass(id, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := c.Reorder(custom); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.ResetAll()

	if got := c.Order(); !slices.Equal(got, custom) {
		t.Fatalf("order = %v, want %v preserved", got, custom)
	}

	for _, inst := range c.Instances() {
		if inst.Bypassed {
			t.Fatalf("%s still bypassed", inst.EffectID)
		}

		d, err := c.Catalog().Describe(inst.EffectID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, p := range d.Parameters {
			if inst.Values[p.ID] != p.Default {
				t.Fatalf("%s.%s = %v, want %v", inst.EffectID, p.ID, inst.Values[p.ID], p.Default)
			}
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	c := defaultChain()
	cp := c.Clone()

	if err := c.SetParameter("reverb", "mix", 0.9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.Reorder([]string{"reverb", "delay", "compressor", "eq"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inst, _ := cp.Instance("reverb")
	if inst.Values["mix"] != 0.3 {
		t.Fatalf("clone saw mix = %v", inst.Values["mix"])
	}

	if cp.Order()[0] != "eq" {
		t.Fatalf("clone saw order %v", cp.Order())
	}
}

func TestInstanceReturnsCopy(t *testing.T) {
	t.Parallel()

	c := defaultChain()

	inst, _ := c.Instance("eq")
	inst.Values["lowGain"] = 99

	again, _ := c.Instance("eq")
	if again.Values["lowGain"] != 0 {
		t.Fatal("chain mutated through a returned instance")
	}
}

func TestOrderRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := MarshalOrder([]string{"reverb", "eq"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(data) != `["reverb","eq"]` {
		t.Fatalf("encoded = %s", data)
	}

	order, err := ParseOrder(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(order, []string{"reverb", "eq"}) {
		t.Fatalf("decoded = %v", order)
	}

	for _, bad := range []string{"", "null", "{}", `["eq",1]`, "not json"} {
		if _, err := ParseOrder([]byte(bad)); err == nil {
			t.Fatalf("ParseOrder(%q) should fail", bad)
		}
	}

	empty, err := MarshalOrder(nil)
	if err != nil || string(empty) != "[]" {
		t.Fatalf("MarshalOrder(nil) = %s, %v", empty, err)
	}
}
