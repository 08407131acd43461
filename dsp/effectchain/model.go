package effectchain

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// InstanceState is the parameter state of one effect in the chain.
type InstanceState struct {
	EffectID string
	Bypassed bool
	Values   map[string]float64
}

// Value returns the value of paramID, or def if it is missing or not
// finite.
func (s InstanceState) Value(paramID string, def float64) float64 {
	if s.Values == nil {
		return def
	}

	v, ok := s.Values[paramID]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}

	return v
}

func (s InstanceState) clone() InstanceState {
	s.Values = maps.Clone(s.Values)

	return s
}

// Chain is the ordered list of effect instances and their parameters. It
// is the single source of truth that built units are synced from; it never
// touches a processing context.
//
// Chain is not safe for concurrent use.
type Chain struct {
	catalog   *Catalog
	order     []string
	instances map[string]*InstanceState
}

// NewChain builds a chain from a persisted order. Ids missing from the
// catalog and repeated ids are dropped. Every instance starts active with
// default values.
func NewChain(catalog *Catalog, persistedOrder []string) *Chain {
	c := &Chain{
		catalog:   catalog,
		order:     make([]string, 0, len(persistedOrder)),
		instances: make(map[string]*InstanceState, len(persistedOrder)),
	}

	for _, id := range persistedOrder {
		if _, dup := c.instances[id]; dup {
			continue
		}

		d, err := catalog.Describe(id)
		if err != nil {
			continue
		}

		c.order = append(c.order, id)
		c.instances[id] = &InstanceState{EffectID: id, Values: d.Defaults()}
	}

	return c
}

// Catalog returns the catalog the chain validates against.
func (c *Chain) Catalog() *Catalog { return c.catalog }

// Order returns a copy of the current order.
func (c *Chain) Order() []string {
	return slices.Clone(c.order)
}

// Len returns the number of instances.
func (c *Chain) Len() int { return len(c.order) }

// Contains reports whether effectID is in the chain.
func (c *Chain) Contains(effectID string) bool {
	_, ok := c.instances[effectID]

	return ok
}

// Instance returns a copy of the state of effectID.
func (c *Chain) Instance(effectID string) (InstanceState, bool) {
	s, ok := c.instances[effectID]
	if !ok {
		return InstanceState{}, false
	}

	return s.clone(), true
}

// Instances returns copies of every instance in chain order.
func (c *Chain) Instances() []InstanceState {
	out := make([]InstanceState, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.instances[id].clone())
	}

	return out
}

// SetParameter sets one parameter. Unknown effects, effects outside the
// chain and undeclared parameters fail with ErrInvalidParameter; values
// outside the declared range fail with ErrOutOfRange. A failed call leaves
// the chain untouched.
func (c *Chain) SetParameter(effectID, paramID string, value float64) error {
	s, ok := c.instances[effectID]
	if !ok {
		return fmt.Errorf("%w: effect %q not in chain", ErrInvalidParameter, effectID)
	}

	d, err := c.catalog.Describe(effectID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	spec, ok := d.Parameter(paramID)
	if !ok {
		return fmt.Errorf("%w: %s has no parameter %q", ErrInvalidParameter, effectID, paramID)
	}

	if !spec.Contains(value) {
		return fmt.Errorf("%w: %s.%s = %v, want [%v, %v]", ErrOutOfRange, effectID, paramID, value, spec.Min, spec.Max)
	}

	s.Values[paramID] = value

	return nil
}

// SetBypass sets the bypass flag of effectID.
func (c *Chain) SetBypass(effectID string, bypassed bool) error {
	s, ok := c.instances[effectID]
	if !ok {
		return fmt.Errorf("%w: effect %q not in chain", ErrInvalidParameter, effectID)
	}

	s.Bypassed = bypassed

	return nil
}

// Reorder replaces the order with a permutation of it.
func (c *Chain) Reorder(newOrder []string) error {
	if len(newOrder) != len(c.order) {
		return fmt.Errorf("%w: got %d ids, want %d", ErrInvalidOrder, len(newOrder), len(c.order))
	}

	seen := make(map[string]bool, len(newOrder))
	for _, id := range newOrder {
		if _, ok := c.instances[id]; !ok {
			return fmt.Errorf("%w: %q not in chain", ErrInvalidOrder, id)
		}

		if seen[id] {
			return fmt.Errorf("%w: %q repeated", ErrInvalidOrder, id)
		}

		seen[id] = true
	}

	c.order = slices.Clone(newOrder)

	return nil
}

// ResetAll restores defaults and clears bypass on every instance. The
// order is kept.
func (c *Chain) ResetAll() {
	for _, id := range c.order {
		s := c.instances[id]
		s.Bypassed = false

		d, err := c.catalog.Describe(id)
		if err != nil {
			continue
		}

		s.Values = d.Defaults()
	}
}

// Clone returns an independent copy sharing the immutable catalog.
func (c *Chain) Clone() *Chain {
	out := &Chain{
		catalog:   c.catalog,
		order:     slices.Clone(c.order),
		instances: make(map[string]*InstanceState, len(c.instances)),
	}

	for id, s := range c.instances {
		cp := s.clone()
		out.instances[id] = &cp
	}

	return out
}
