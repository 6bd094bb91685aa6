package geom

import "fmt"

// Point is a position inside a frame, measured from the top-left corner.
type Point struct {
	X, Y Abs
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

func (p Point) String() string { return fmt.Sprintf("(%s, %s)", p.X, p.Y) }

// Size is a width/height pair.
type Size struct {
	W, H Abs
}

func (s Size) IsZero() bool { return s.W.IsZero() && s.H.IsZero() }

// Fits reports whether target fits into s on both axes.
func (s Size) Fits(target Size) bool { return target.W.Fits(s.W) && target.H.Fits(s.H) }

func (s Size) ApproxEq(t Size) bool { return s.W.ApproxEq(t.W) && s.H.ApproxEq(t.H) }

func (s Size) String() string { return fmt.Sprintf("%s x %s", s.W, s.H) }

// Sides carries one value per frame side.
type Sides struct {
	Left, Top, Right, Bottom Abs
}

// Uniform returns identical values on all sides.
func Uniform(v Abs) Sides { return Sides{v, v, v, v} }

func (s Sides) SumX() Abs { return s.Left + s.Right }
func (s Sides) SumY() Abs { return s.Top + s.Bottom }

// Inset shrinks the size by the given sides, never below zero.
func (sz Size) Inset(s Sides) Size {
	return Size{(sz.W - s.SumX()).NonNeg(), (sz.H - s.SumY()).NonNeg()}
}
