package geom

import "fmt"

// Fr is a fraction of the free space left in a region after absolute
// content is placed. Fractions on the same axis share the remainder
// proportionally to their weight.
type Fr float64

func (f Fr) IsZero() bool { return f == 0 }

// Share resolves the fraction against the remaining space given the total
// fractional weight on the axis.
func (f Fr) Share(total Fr, remaining Abs) Abs {
	if total <= 0 || remaining <= 0 {
		return 0
	}
	return Abs(float64(f) / float64(total) * float64(remaining))
}

func (f Fr) String() string { return fmt.Sprintf("%gfr", float64(f)) }

// Ratio is a value relative to some known length, 1.0 being 100%.
type Ratio float64

func (r Ratio) Of(length Abs) Abs { return Abs(float64(r) * float64(length)) }

func (r Ratio) String() string { return fmt.Sprintf("%g%%", float64(r)*100) }

// Rel combines an absolute part with a part relative to a not yet known
// length, resolved once the base is available.
type Rel struct {
	Rel Ratio
	Abs Abs
}

func RelAbs(a Abs) Rel     { return Rel{Abs: a} }
func RelRatio(r Ratio) Rel { return Rel{Rel: r} }

func (r Rel) Resolve(base Abs) Abs { return r.Rel.Of(base) + r.Abs }
func (r Rel) IsZero() bool         { return r.Rel == 0 && r.Abs == 0 }
