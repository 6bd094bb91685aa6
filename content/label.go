package content

// Label is a user-assigned name attached to at most one field of an element.
// The empty label means unlabeled.
type Label string

const NoLabel Label = ""

func (l Label) IsZero() bool { return len(l) == 0 }

func (l Label) String() string { return "<" + string(l) + ">" }

// Location is an opaque identifier assigned to a locatable element once a
// layout pass has placed it. Equal locations refer to the same element
// across passes. The zero value means "not assigned yet".
type Location Hash128

func (l Location) IsZero() bool { return Hash128(l).IsZero() }

// Variant derives a related location, used for values that need several
// distinct positions tied to one element (page counter steps).
func (l Location) Variant(n int) Location {
	l.Lo ^= uint64(n)*0x9e3779b97f4a7c15 + 1
	return l
}

func (l Location) String() string {
	if l.IsZero() {
		return "loc(unassigned)"
	}
	return "loc(" + Hash128(l).String()[:8] + ")"
}
