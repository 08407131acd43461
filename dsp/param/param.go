// Package param implements automatable control values that are evaluated
// per sample on a context clock.
//
// A Param holds a current value plus a time-ordered list of scheduled
// events. SetValueAtTime jumps at the given time; SetTargetAtTime starts an
// exponential approach toward a target with the given time constant, the
// one-pole smoothing used to change gains and delay times without clicks.
package param

import (
	"math"
	"slices"

	"github.com/cwbudde/algo-fxchain/dsp/core"
)

// settleEpsilon is the distance below which an exponential approach
// snaps onto its target.
const settleEpsilon = 1e-7

type eventKind int

const (
	kindSet eventKind = iota
	kindTarget
)

type event struct {
	kind         eventKind
	time         float64
	value        float64
	timeConstant float64
}

// Param is a single automatable value. It is not safe for concurrent use;
// the owning graph serializes access.
type Param struct {
	value    float64
	def      float64
	min, max float64

	events []event

	targeting bool
	target    float64
	tau       float64
	coeff     float64
	coeffRate float64
}

// New returns a Param at def, clamped to the nominal range [min, max].
func New(def, min, max float64) *Param {
	if min > max {
		min, max = max, min
	}

	def = core.Clamp(def, min, max)

	return &Param{value: def, def: def, min: min, max: max}
}

// Value returns the value reached at the end of the last processed block.
func (p *Param) Value() float64 {
	return p.value
}

// Default returns the initial value.
func (p *Param) Default() float64 {
	return p.def
}

// Range returns the nominal range.
func (p *Param) Range() (min, max float64) {
	return p.min, p.max
}

// Target returns the value the param is heading to: the last scheduled
// event value, the active target, or the current value.
func (p *Param) Target() float64 {
	if n := len(p.events); n > 0 {
		return p.events[n-1].value
	}

	if p.targeting {
		return p.target
	}

	return p.value
}

// SetValue cancels all automation and jumps to v.
func (p *Param) SetValue(v float64) {
	if !core.IsFinite(v) {
		return
	}

	p.events = p.events[:0]
	p.targeting = false
	p.value = core.Clamp(v, p.min, p.max)
}

// SetValueAtTime schedules a jump to v at time t (seconds on the context clock).
func (p *Param) SetValueAtTime(v, t float64) {
	if !core.IsFinite(v) || !core.IsFinite(t) {
		return
	}

	p.insert(event{kind: kindSet, time: t, value: v})
}

// SetTargetAtTime schedules an exponential approach to target starting at
// time t. A non-positive time constant degrades to SetValueAtTime.
func (p *Param) SetTargetAtTime(target, t, timeConstant float64) {
	if !core.IsFinite(target) || !core.IsFinite(t) {
		return
	}

	if timeConstant <= 0 || !core.IsFinite(timeConstant) {
		p.SetValueAtTime(target, t)
		return
	}

	p.insert(event{kind: kindTarget, time: t, value: target, timeConstant: timeConstant})
}

// CancelScheduledValues drops every event scheduled at or after t.
// An approach already in progress keeps running.
func (p *Param) CancelScheduledValues(t float64) {
	p.events = slices.DeleteFunc(p.events, func(e event) bool {
		return e.time >= t
	})
}

// Automating reports whether events are pending or an approach is running.
func (p *Param) Automating() bool {
	return p.targeting || len(p.events) > 0
}

func (p *Param) insert(e event) {
	e.value = core.Clamp(e.value, p.min, p.max)

	// Events at the same time keep insertion order.
	i := len(p.events)
	for i > 0 && p.events[i-1].time > e.time {
		i--
	}

	p.events = slices.Insert(p.events, i, e)
}

// Process writes one value per sample into dst for samples starting at
// startTime and advances the param. It reports whether every written value
// is identical, so callers can take a scalar fast path.
func (p *Param) Process(startTime, sampleRate float64, dst []float64) bool {
	if len(dst) == 0 {
		return true
	}

	endTime := startTime + float64(len(dst)-1)/sampleRate
	if !p.targeting && (len(p.events) == 0 || p.events[0].time > endTime) {
		for i := range dst {
			dst[i] = p.value
		}

		return true
	}

	constant := true

	for i := range dst {
		t := startTime + float64(i)/sampleRate

		if p.targeting {
			p.step(sampleRate)
		}

		for len(p.events) > 0 && p.events[0].time <= t {
			p.apply(p.events[0])
			p.events = p.events[1:]
		}

		dst[i] = p.value
		if dst[i] != dst[0] {
			constant = false
		}
	}

	return constant
}

func (p *Param) apply(e event) {
	switch e.kind {
	case kindSet:
		p.targeting = false
		p.value = e.value
	case kindTarget:
		p.targeting = true
		p.target = e.value
		p.tau = e.timeConstant
		p.coeffRate = 0
	}
}

func (p *Param) step(sampleRate float64) {
	if p.coeffRate != sampleRate {
		p.coeff = core.OnePoleCoeff(p.tau, sampleRate)
		p.coeffRate = sampleRate
	}

	p.value = p.target + (p.value-p.target)*p.coeff
	if math.Abs(p.value-p.target) <= settleEpsilon {
		p.value = p.target
		p.targeting = false
	}
}
