package effectchain

import (
	"fmt"

	"github.com/cwbudde/algo-fxchain/dsp/graph"
	"github.com/cwbudde/algo-fxchain/dsp/reverb"
)

// reverbRuntime handles the "reverb" effect:
//
//	in → dry → out
//	in → convolver → wet → out
//
// The impulse response is synthetic, with duration and exponent both
// equal to the decay. It is regenerated for a changed decay only while
// the context has not rendered; a running graph keeps its cached impulse.
type reverbRuntime struct {
	mixGains

	ctx      *graph.Context
	conv     *graph.ConvolverNode
	impulses *reverb.Cache
	rate     float64
	decay    float64
}

func newReverb(env Env) (Runtime, error) {
	ctx := env.Context

	r := &reverbRuntime{
		mixGains: mixGains{dry: ctx.CreateGain(1), wet: ctx.CreateGain(0)},
		ctx:      ctx,
		conv:     ctx.CreateConvolver(),
		impulses: env.Impulses,
		rate:     ctx.SampleRate(),
	}

	err := r.load(env.InitialDecay)
	if err != nil {
		return nil, err
	}

	paths := [][]graph.NodeID{
		{env.In, r.dry.ID(), env.Out},
		{env.In, r.conv.ID(), r.wet.ID(), env.Out},
	}

	for _, p := range paths {
		if err := connectPath(ctx, p...); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *reverbRuntime) load(decay float64) error {
	ir, err := r.impulses.Impulse(r.rate, decay, decay)
	if err != nil {
		return fmt.Errorf("reverb impulse: %w", err)
	}

	err = r.conv.SetBuffer(ir, true)
	if err != nil {
		return fmt.Errorf("reverb impulse: %w", err)
	}

	r.decay = decay

	return nil
}

// Decay returns the decay the current impulse was generated with.
func (r *reverbRuntime) Decay() float64 { return r.decay }

func (r *reverbRuntime) Apply(a Automation, paramID string, value float64) error {
	switch paramID {
	case "mix":
		r.apply(a, value)
	case "decay":
		if value == r.decay || r.ctx.Started() {
			return nil
		}

		return r.load(value)
	default:
		return unknownParameter(EffectReverb, paramID)
	}

	return nil
}
