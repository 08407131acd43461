package effectchain

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-fxchain/dsp/graph"
	"github.com/cwbudde/algo-fxchain/dsp/param"
	"github.com/cwbudde/algo-fxchain/dsp/reverb"
)

const (
	// DefaultImpulseDecay shapes the impulse a reverb unit starts with.
	DefaultImpulseDecay = 2.0

	// DefaultImpulseSeed seeds the default impulse cache.
	DefaultImpulseSeed = 0x5eed
)

// Runtime is the effect-specific part of a built unit.
type Runtime interface {
	// Apply pushes one parameter value onto the unit's nodes.
	Apply(a Automation, paramID string, value float64) error
}

// Env is handed to a Factory. The factory wires its nodes from In to Out.
type Env struct {
	Context    *graph.Context
	Descriptor EffectDescriptor
	Impulses   *reverb.Cache

	// InitialDecay shapes the impulse reverbs start with; it is both the
	// duration in seconds and the decay exponent.
	InitialDecay float64

	// In is the processing head, after the bypass gain. Out is the unit's
	// output merge node.
	In  graph.NodeID
	Out graph.NodeID
}

// Factory builds the processing path of one effect type.
type Factory func(env Env) (Runtime, error)

// Unit is one effect built against one context. Input and Output are the
// unit's merge nodes; the processing path hangs off an active gain and a
// thru gain carries the input to the output while bypassed.
type Unit struct {
	EffectID string
	Input    graph.NodeID
	Output   graph.NodeID

	active  *graph.GainNode
	thru    *graph.GainNode
	runtime Runtime
}

// Active returns the gain feeding the processing path.
func (u *Unit) Active() *param.Param { return u.active.Gain }

// Thru returns the gain of the bypass path.
func (u *Unit) Thru() *param.Param { return u.thru.Gain }

// Runtime returns the effect-specific part of the unit.
func (u *Unit) Runtime() Runtime { return u.runtime }

// Units maps effect ids to units built against one context.
type Units map[string]*Unit

var errDuplicateFactory = errors.New("effectchain: duplicate factory")

type builderConfig struct {
	impulses     *reverb.Cache
	initialDecay float64
}

// BuilderOption configures a Builder.
type BuilderOption func(*builderConfig)

// WithImpulses shares an impulse cache between builders.
func WithImpulses(c *reverb.Cache) BuilderOption {
	return func(cfg *builderConfig) { cfg.impulses = c }
}

// WithInitialDecay sets the decay of the impulse a reverb unit starts
// with. Non-positive values are ignored.
func WithInitialDecay(decay float64) BuilderOption {
	return func(cfg *builderConfig) {
		if decay > 0 {
			cfg.initialDecay = decay
		}
	}
}

// Builder instantiates units for the effects of a catalog.
type Builder struct {
	catalog   *Catalog
	factories map[string]Factory
	cfg       builderConfig
}

// NewBuilder returns a builder with factories for the default effects.
func NewBuilder(catalog *Catalog, opts ...BuilderOption) *Builder {
	cfg := builderConfig{
		initialDecay: DefaultImpulseDecay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.impulses == nil {
		cfg.impulses = reverb.NewCache(DefaultImpulseSeed)
	}

	b := &Builder{
		catalog:   catalog,
		factories: make(map[string]Factory),
		cfg:       cfg,
	}

	b.MustRegister(EffectEQ, newEQ)
	b.MustRegister(EffectCompressor, newCompressor)
	b.MustRegister(EffectDelay, newDelay)
	b.MustRegister(EffectReverb, newReverb)

	return b
}

// Register adds a factory for effectID.
func (b *Builder) Register(effectID string, factory Factory) error {
	if effectID == "" {
		return errors.New("effectchain: empty effect id")
	}

	if factory == nil {
		return errors.New("effectchain: nil factory")
	}

	if _, exists := b.factories[effectID]; exists {
		return fmt.Errorf("%w: %s", errDuplicateFactory, effectID)
	}

	b.factories[effectID] = factory

	return nil
}

// MustRegister is like Register but panics on error.
func (b *Builder) MustRegister(effectID string, factory Factory) {
	err := b.Register(effectID, factory)
	if err != nil {
		panic("effectchain builder: " + err.Error())
	}
}

// Impulses returns the impulse cache shared by built reverbs.
func (b *Builder) Impulses() *reverb.Cache { return b.cfg.impulses }

// Build creates the unit for effectID in ctx. Ids without a catalog entry
// or a factory fail with ErrInternalInconsistency.
func (b *Builder) Build(effectID string, ctx *graph.Context) (*Unit, error) {
	d, err := b.catalog.Describe(effectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInternalInconsistency, err)
	}

	factory, ok := b.factories[effectID]
	if !ok {
		return nil, fmt.Errorf("%w: no factory for %q", ErrInternalInconsistency, effectID)
	}

	input := ctx.CreateGain(1)
	active := ctx.CreateGain(1)
	thru := ctx.CreateGain(0)
	output := ctx.CreateGain(1)

	for _, edge := range [][2]graph.NodeID{
		{input.ID(), active.ID()},
		{input.ID(), thru.ID()},
		{thru.ID(), output.ID()},
	} {
		if err := ctx.Connect(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("effectchain: build %s: %w", effectID, err)
		}
	}

	rt, err := factory(Env{
		Context:      ctx,
		Descriptor:   d,
		Impulses:     b.cfg.impulses,
		InitialDecay: b.cfg.initialDecay,
		In:           active.ID(),
		Out:          output.ID(),
	})
	if err != nil {
		return nil, fmt.Errorf("effectchain: build %s: %w", effectID, err)
	}

	return &Unit{
		EffectID: effectID,
		Input:    input.ID(),
		Output:   output.ID(),
		active:   active,
		thru:     thru,
		runtime:  rt,
	}, nil
}

// BuildAll builds one unit per catalog effect.
func (b *Builder) BuildAll(ctx *graph.Context) (Units, error) {
	units := make(Units, b.catalog.Len())

	for _, id := range b.catalog.IDs() {
		u, err := b.Build(id, ctx)
		if err != nil {
			return nil, err
		}

		units[id] = u
	}

	return units, nil
}

// connectPath connects consecutive nodes.
func connectPath(ctx *graph.Context, ids ...graph.NodeID) error {
	for i := 0; i+1 < len(ids); i++ {
		err := ctx.Connect(ids[i], ids[i+1])
		if err != nil {
			return err
		}
	}

	return nil
}

func unknownParameter(effectID, paramID string) error {
	return fmt.Errorf("%w: %s has no parameter %q", ErrInvalidParameter, effectID, paramID)
}
