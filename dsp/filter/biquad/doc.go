// Package biquad provides the second-order IIR section used by the EQ
// stages.
//
// A [Section] implements Direct Form II Transposed processing for
// [Coefficients]. Coefficient design lives in dsp/filter/design.
package biquad
