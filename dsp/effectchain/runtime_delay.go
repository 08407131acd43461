package effectchain

import "github.com/cwbudde/algo-fxchain/dsp/graph"

// maxDelaySeconds is the capacity of the delay line.
const maxDelaySeconds = 2.0

// mixGains holds a dry/wet pair driven by one mix value.
type mixGains struct {
	dry, wet *graph.GainNode
}

func (m mixGains) apply(a Automation, mix float64) {
	a.Gain(m.dry.Gain, 1-mix)
	a.Gain(m.wet.Gain, mix)
}

// DryWet returns the current dry and wet gain values.
func (m mixGains) DryWet() (dry, wet float64) {
	return m.dry.Gain.Target(), m.wet.Gain.Target()
}

// delayRuntime handles the "delay" effect:
//
//	in → dry → out
//	in → delay → wet → out
//	delay → feedback → delay
type delayRuntime struct {
	mixGains

	delay    *graph.DelayNode
	feedback *graph.GainNode
}

func newDelay(env Env) (Runtime, error) {
	ctx := env.Context

	d, err := ctx.CreateDelay(maxDelaySeconds)
	if err != nil {
		return nil, err
	}

	r := &delayRuntime{
		mixGains: mixGains{dry: ctx.CreateGain(1), wet: ctx.CreateGain(0)},
		delay:    d,
		feedback: ctx.CreateGain(0),
	}

	paths := [][]graph.NodeID{
		{env.In, r.dry.ID(), env.Out},
		{env.In, d.ID(), r.wet.ID(), env.Out},
		{d.ID(), r.feedback.ID(), d.ID()},
	}

	for _, p := range paths {
		if err := connectPath(ctx, p...); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *delayRuntime) Apply(a Automation, paramID string, value float64) error {
	switch paramID {
	case "time":
		a.DelayTime(r.delay.DelayTime, value)
	case "feedback":
		a.Gain(r.feedback.Gain, value)
	case "mix":
		r.apply(a, value)
	default:
		return unknownParameter(EffectDelay, paramID)
	}

	return nil
}
