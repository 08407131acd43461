package effectchain

import (
	"github.com/cwbudde/algo-fxchain/dsp/filter/design"
	"github.com/cwbudde/algo-fxchain/dsp/graph"
)

// EQ band centre frequencies in Hz.
const (
	eqLowFreq  = 320.0
	eqMidFreq  = 1000.0
	eqHighFreq = 3200.0
	eqMidQ     = 1.0
)

// eqRuntime handles the "eq" effect: low shelf → peak → high shelf.
type eqRuntime struct {
	low, mid, high *graph.BiquadNode
}

func newEQ(env Env) (Runtime, error) {
	ctx := env.Context

	r := &eqRuntime{
		low:  ctx.CreateBiquad(design.LowShelf, eqLowFreq, design.ShelfQ, 0),
		mid:  ctx.CreateBiquad(design.Peaking, eqMidFreq, eqMidQ, 0),
		high: ctx.CreateBiquad(design.HighShelf, eqHighFreq, design.ShelfQ, 0),
	}

	err := connectPath(ctx, env.In, r.low.ID(), r.mid.ID(), r.high.ID(), env.Out)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (r *eqRuntime) Apply(a Automation, paramID string, value float64) error {
	switch paramID {
	case "lowGain":
		a.Gain(r.low.Gain, value)
	case "midGain":
		a.Gain(r.mid.Gain, value)
	case "highGain":
		a.Gain(r.high.Gain, value)
	default:
		return unknownParameter(EffectEQ, paramID)
	}

	return nil
}
