// Package geom provides the geometric vocabulary of the layout engine:
// absolute lengths, ratios, fractions, sizes, points, sides and alignments.
// All absolute values are kept in typographic points.
package geom

import (
	"fmt"
	"math"
)

// Abs is an absolute length in points.
type Abs float64

const (
	// Eps is the tolerance used when comparing layout results. Accumulated
	// floating point drift below this threshold is not observable in output.
	Eps Abs = 1e-6
)

func Pt(v float64) Abs { return Abs(v) }
func Mm(v float64) Abs { return Abs(v * 72.0 / 25.4) }
func Cm(v float64) Abs { return Abs(v * 72.0 / 2.54) }
func In(v float64) Abs { return Abs(v * 72.0) }

// AbsInf is the infinite length used for unbounded regions.
func AbsInf() Abs { return Abs(math.Inf(1)) }

func (a Abs) Pt() float64      { return float64(a) }
func (a Abs) IsInf() bool      { return math.IsInf(float64(a), 0) }
func (a Abs) IsZero() bool     { return a.ApproxEq(0) }
func (a Abs) Abs() Abs         { return Abs(math.Abs(float64(a))) }
func (a Abs) Neg() Abs         { return -a }
func (a Abs) Min(b Abs) Abs    { return Abs(math.Min(float64(a), float64(b))) }
func (a Abs) Max(b Abs) Abs    { return Abs(math.Max(float64(a), float64(b))) }
func (a Abs) NonNeg() Abs      { return a.Max(0) }
func (a Abs) ApproxEq(b Abs) bool {
	if a.IsInf() || b.IsInf() {
		return a == b
	}
	return Abs(math.Abs(float64(a-b))) <= Eps
}

// Fits reports whether a piece of extent a fits into available space b,
// allowing for comparison tolerance.
func (a Abs) Fits(b Abs) bool { return a-Eps <= b }

func (a Abs) String() string { return fmt.Sprintf("%gpt", float64(a)) }
