package analysis

import (
	"math"
	"time"
)

const (
	// MeterFloorDB is the default bottom of the meter display range.
	MeterFloorDB = -60.0

	meterFloor  = 0.0001
	meterStride = 4
	peakHold    = time.Second
	peakDecay   = 0.95
)

// Reading is one meter update.
type Reading struct {
	// RMSDB is the RMS level of the window in dBFS, floored at -80 dB.
	RMSDB float64
	// PeakDB is the held peak in dBFS.
	PeakDB float64
	// Level and Peak map [floor, 0] dB onto [0, 1].
	Level float64
	Peak  float64
}

// Meter turns time-domain snapshots into RMS and peak-hold readings. The
// peak is held for a second and then decays by 5 % per update.
type Meter struct {
	floorDB  float64
	peak     float64
	peakTime time.Time
}

// MeterOption configures a Meter.
type MeterOption func(*Meter)

// WithFloorDB sets the level mapped to 0 in Reading.Level and
// Reading.Peak. Non-negative values are ignored.
func WithFloorDB(db float64) MeterOption {
	return func(m *Meter) {
		if db < 0 && !math.IsInf(db, 0) {
			m.floorDB = db
		}
	}
}

// NewMeter returns a meter with no held peak.
func NewMeter(opts ...MeterOption) *Meter {
	m := &Meter{floorDB: MeterFloorDB}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// FloorDB returns the bottom of the display range.
func (m *Meter) FloorDB() float64 { return m.floorDB }

// Update measures a snapshot taken at now. Every fourth sample is read.
func (m *Meter) Update(samples []float64, now time.Time) Reading {
	sum, peak := 0.0, 0.0
	count := 0

	for i := 0; i < len(samples); i += meterStride {
		x := samples[i]
		sum += x * x
		count++

		if a := math.Abs(x); a > peak {
			peak = a
		}
	}

	rms := 0.0
	if count > 0 {
		rms = math.Sqrt(sum / float64(count))
	}

	switch {
	case peak > m.peak:
		m.peak = peak
		m.peakTime = now
	case now.Sub(m.peakTime) > peakHold:
		m.peak *= peakDecay
	}

	rmsDB := levelDB(rms)
	peakDB := levelDB(m.peak)

	return Reading{
		RMSDB:  rmsDB,
		PeakDB: peakDB,
		Level:  m.normalize(rmsDB),
		Peak:   m.normalize(peakDB),
	}
}

// Reset drops the held peak.
func (m *Meter) Reset() {
	m.peak = 0
	m.peakTime = time.Time{}
}

func levelDB(v float64) float64 {
	if v <= 0 {
		v = meterFloor
	}

	return 20 * math.Log10(v)
}

func (m *Meter) normalize(db float64) float64 {
	return math.Min(1, math.Max(0, (db-m.floorDB)/-m.floorDB))
}
