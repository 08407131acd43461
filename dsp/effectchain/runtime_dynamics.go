package effectchain

import "github.com/cwbudde/algo-fxchain/dsp/graph"

// compressorRuntime handles the "compressor" effect. Knee and makeup gain
// stay at the node defaults.
type compressorRuntime struct {
	comp *graph.CompressorNode
}

func newCompressor(env Env) (Runtime, error) {
	comp, err := env.Context.CreateCompressor()
	if err != nil {
		return nil, err
	}

	err = connectPath(env.Context, env.In, comp.ID(), env.Out)
	if err != nil {
		return nil, err
	}

	return &compressorRuntime{comp: comp}, nil
}

func (r *compressorRuntime) Apply(a Automation, paramID string, value float64) error {
	switch paramID {
	case "threshold":
		a.Gain(r.comp.Threshold, value)
	case "ratio":
		a.Gain(r.comp.Ratio, value)
	case "attack":
		a.Gain(r.comp.Attack, value)
	case "release":
		a.Gain(r.comp.Release, value)
	default:
		return unknownParameter(EffectCompressor, paramID)
	}

	return nil
}

// GainReduction returns the compressor's current gain reduction in dB
// (zero or negative). ok is false for units without a compressor.
func (u *Unit) GainReduction() (db float64, ok bool) {
	r, ok := u.runtime.(*compressorRuntime)
	if !ok {
		return 0, false
	}

	return r.comp.Reduction(), true
}
