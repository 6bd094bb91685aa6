package geom

// Align is a horizontal alignment inside a region.
type Align int

const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
)

// Position returns the offset of an inner extent aligned inside an outer one.
func (a Align) Position(outer, inner Abs) Abs {
	switch a {
	case AlignCenter:
		return ((outer - inner) / 2).NonNeg()
	case AlignEnd:
		return (outer - inner).NonNeg()
	default:
		return 0
	}
}

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignEnd:
		return "end"
	default:
		return "start"
	}
}
