package effectchain

import (
	"fmt"

	"github.com/cwbudde/algo-fxchain/dsp/graph"
	"github.com/cwbudde/algo-fxchain/dsp/param"
)

// Smoothing holds the time constants, in seconds, used when values change
// on a context that is already sounding.
type Smoothing struct {
	Bypass    float64
	Gain      float64
	DelayTime float64
}

// DefaultSmoothing returns 20 ms for bypass, 10 ms for gain-type values and
// 100 ms for delay time.
func DefaultSmoothing() Smoothing {
	return Smoothing{Bypass: 0.02, Gain: 0.01, DelayTime: 0.1}
}

// Automation schedules value changes against one context clock.
type Automation struct {
	now       float64
	instant   bool
	smoothing Smoothing
}

// Now returns the context time changes are scheduled at.
func (a Automation) Now() float64 { return a.now }

// Instant reports whether values are set without smoothing.
func (a Automation) Instant() bool { return a.instant }

// Gain moves a gain-type param towards v.
func (a Automation) Gain(p *param.Param, v float64) {
	a.set(p, v, a.smoothing.Gain)
}

// DelayTime moves a delay-time param towards v.
func (a Automation) DelayTime(p *param.Param, v float64) {
	a.set(p, v, a.smoothing.DelayTime)
}

// Bypass moves a bypass gain towards v.
func (a Automation) Bypass(p *param.Param, v float64) {
	a.set(p, v, a.smoothing.Bypass)
}

func (a Automation) set(p *param.Param, v, timeConstant float64) {
	if a.instant || timeConstant <= 0 {
		p.SetValue(v)

		return
	}

	p.CancelScheduledValues(a.now)
	p.SetTargetAtTime(v, a.now, timeConstant)
}

// Syncer pushes chain state onto built units. The same logic serves live
// and offline contexts: a context that has not rendered yet gets values
// set instantly, a sounding one gets smoothed ramps.
type Syncer struct {
	smoothing Smoothing
}

// NewSyncer returns a syncer with the given time constants.
func NewSyncer(s Smoothing) *Syncer {
	return &Syncer{smoothing: s}
}

// Smoothing returns the time constants in use.
func (s *Syncer) Smoothing() Smoothing { return s.smoothing }

// Automation returns the scheduling policy for ctx at its current time.
func (s *Syncer) Automation(ctx *graph.Context) Automation {
	return Automation{
		now:       ctx.CurrentTime(),
		instant:   !ctx.Started(),
		smoothing: s.smoothing,
	}
}

// ApplyBypass ramps the active and thru gains of u.
func (s *Syncer) ApplyBypass(ctx *graph.Context, u *Unit, bypassed bool) {
	a := s.Automation(ctx)

	active, thru := 1.0, 0.0
	if bypassed {
		active, thru = 0, 1
	}

	a.Bypass(u.Active(), active)
	a.Bypass(u.Thru(), thru)
}

// ApplyParameter pushes one value onto u.
func (s *Syncer) ApplyParameter(ctx *graph.Context, u *Unit, paramID string, value float64) error {
	err := u.runtime.Apply(s.Automation(ctx), paramID, value)
	if err != nil {
		return fmt.Errorf("effectchain: apply %s.%s: %w", u.EffectID, paramID, err)
	}

	return nil
}

// ApplyAll pushes bypass and every parameter of every instance in chain
// onto units. An instance without a unit fails with
// ErrInternalInconsistency.
func (s *Syncer) ApplyAll(ctx *graph.Context, chain *Chain, units Units) error {
	for _, inst := range chain.Instances() {
		u, ok := units[inst.EffectID]
		if !ok || u == nil {
			return fmt.Errorf("%w: no unit for %q", ErrInternalInconsistency, inst.EffectID)
		}

		d, err := chain.Catalog().Describe(inst.EffectID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInternalInconsistency, err)
		}

		s.ApplyBypass(ctx, u, inst.Bypassed)

		for _, p := range d.Parameters {
			err := s.ApplyParameter(ctx, u, p.ID, inst.Value(p.ID, p.Default))
			if err != nil {
				return err
			}
		}
	}

	return nil
}
