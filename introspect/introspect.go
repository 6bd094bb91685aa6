// Package introspect provides the queryable snapshot of a finished layout
// pass: which locatable elements exist, in what document order, where each
// one landed on which page, and what every counter and state value is at
// any point of the document. A snapshot is immutable once built; the next
// compilation pass reads it while producing its own.
package introspect

import (
	"sync"

	"dtc/content"
	"dtc/diag"
	"dtc/geom"
)

// Position is the physical place a located element ended up at.
type Position struct {
	Page int // 1-based
	X    geom.Abs
	Y    geom.Abs
}

// Introspector answers document-order queries over one finished pass.
// The zero snapshot from New reports an empty document; realization against
// it yields the placeholders of pass zero.
type Introspector struct {
	elems      []*content.Node
	positions  []Position
	order      map[content.Location]int
	labels     map[content.Label][]int
	pages      int
	numberings []string

	mu    sync.Mutex
	cache map[string][]*content.Node
}

// New returns an empty snapshot.
func New() *Introspector {
	return &Introspector{
		order:  make(map[content.Location]int),
		labels: make(map[content.Label][]int),
		cache:  make(map[string][]*content.Node),
	}
}

// Builder accumulates a snapshot while the driver walks finished pages.
// Tags must be visited in document order: page by page, top to bottom.
type Builder struct {
	in *Introspector
}

func NewBuilder() *Builder {
	return &Builder{in: New()}
}

// StartPage opens the next physical page and returns its 1-based number.
// The numbering pattern is the page style active on that page; it may be
// empty.
func (b *Builder) StartPage(numbering string) int {
	b.in.pages++
	b.in.numberings = append(b.in.numberings, numbering)
	return b.in.pages
}

// Visit records one tag at its resolved page position. Only start tags
// register an element; end tags close the range and are ignored here. The
// first start tag wins if an element's tag surfaces more than once.
func (b *Builder) Visit(tag content.Tag, x, y geom.Abs) {
	if tag.End || tag.Elem == nil {
		return
	}
	if _, dup := b.in.order[tag.Loc]; dup {
		return
	}
	idx := len(b.in.elems)
	b.in.order[tag.Loc] = idx
	b.in.elems = append(b.in.elems, tag.Elem)
	b.in.positions = append(b.in.positions, Position{Page: b.in.pages, X: x, Y: y})
	if l := tag.Elem.Label(); !l.IsZero() {
		b.in.labels[l] = append(b.in.labels[l], idx)
	}
}

// Finish seals and returns the snapshot. The builder must not be used
// afterwards.
func (b *Builder) Finish() *Introspector {
	in := b.in
	b.in = nil
	return in
}

// Len returns the number of located elements.
func (in *Introspector) Len() int { return len(in.elems) }

// Pages returns the number of physical pages.
func (in *Introspector) Pages() int { return in.pages }

// All returns the located elements in document order. Callers must not
// modify the slice.
func (in *Introspector) All() []*content.Node { return in.elems }

// Query returns the elements matched by sel in document order. Results are
// cached per selector, which keeps repeated context evaluations across a
// pass cheap.
func (in *Introspector) Query(sel content.Selector) []*content.Node {
	key := sel.String()
	in.mu.Lock()
	if hit, ok := in.cache[key]; ok {
		in.mu.Unlock()
		return hit
	}
	in.mu.Unlock()

	out := in.query(sel)

	in.mu.Lock()
	in.cache[key] = out
	in.mu.Unlock()
	return out
}

func (in *Introspector) query(sel content.Selector) []*content.Node {
	switch sel.Variant() {
	case content.SelLocation:
		if i, ok := in.order[sel.TargetLocation()]; ok {
			return []*content.Node{in.elems[i]}
		}
		return nil

	case content.SelLabel:
		idxs := in.labels[sel.TargetLabel()]
		out := make([]*content.Node, 0, len(idxs))
		for _, i := range idxs {
			out = append(out, in.elems[i])
		}
		return out

	case content.SelBefore:
		base, ref, inclusive := sel.Split()
		cut, ok := in.firstMatch(ref)
		if !ok {
			return in.query(base)
		}
		limit := cut
		if inclusive {
			limit++
		}
		return in.scan(base, 0, limit)

	case content.SelAfter:
		base, ref, inclusive := sel.Split()
		cut, ok := in.firstMatch(ref)
		if !ok {
			return nil
		}
		start := cut + 1
		if inclusive {
			start = cut
		}
		return in.scan(base, start, len(in.elems))

	default:
		return in.scan(sel, 0, len(in.elems))
	}
}

// scan collects matches of a position-free selector over elems[from:to).
func (in *Introspector) scan(sel content.Selector, from, to int) []*content.Node {
	var out []*content.Node
	for i := from; i < to && i < len(in.elems); i++ {
		if sel.Matches(in.elems[i]) {
			out = append(out, in.elems[i])
		}
	}
	return out
}

// firstMatch returns the document index of the first element matched by
// sel.
func (in *Introspector) firstMatch(sel content.Selector) (int, bool) {
	if sel.Variant() == content.SelLocation {
		i, ok := in.order[sel.TargetLocation()]
		return i, ok
	}
	matches := in.query(sel)
	if len(matches) == 0 {
		return 0, false
	}
	loc, ok := matches[0].Location()
	if !ok {
		return 0, false
	}
	i, ok := in.order[loc]
	return i, ok
}

// QueryFirst returns the first match of sel in document order.
func (in *Introspector) QueryFirst(sel content.Selector) (*content.Node, bool) {
	matches := in.Query(sel)
	if len(matches) == 0 {
		return nil, false
	}
	return matches[0], true
}

// QueryLabel returns the unique element carrying the label. Zero or several
// carriers are both fatal: references need exactly one target.
func (in *Introspector) QueryLabel(l content.Label) (*content.Node, error) {
	idxs := in.labels[l]
	switch len(idxs) {
	case 0:
		return nil, diag.MissingLabel(string(l))
	case 1:
		return in.elems[idxs[0]], nil
	default:
		return nil, diag.AmbiguousLabel(string(l))
	}
}

// PageOf returns the 1-based page an element landed on.
func (in *Introspector) PageOf(loc content.Location) (int, bool) {
	i, ok := in.order[loc]
	if !ok {
		return 0, false
	}
	return in.positions[i].Page, true
}

// PositionOf returns the physical position of an element.
func (in *Introspector) PositionOf(loc content.Location) (Position, bool) {
	i, ok := in.order[loc]
	if !ok {
		return Position{}, false
	}
	return in.positions[i], true
}

// PageNumberingOf returns the page numbering pattern active on the page the
// element landed on, or the empty string.
func (in *Introspector) PageNumberingOf(loc content.Location) string {
	page, ok := in.PageOf(loc)
	if !ok || page < 1 || page > len(in.numberings) {
		return ""
	}
	return in.numberings[page-1]
}

// Ordinal returns the element's 1-based position among located elements of
// the same kind, or 0 when the location is unknown.
func (in *Introspector) Ordinal(loc content.Location) int {
	i, ok := in.order[loc]
	if !ok {
		return 0
	}
	kind := in.elems[i].Kind()
	n := 0
	for j := 0; j <= i; j++ {
		if in.elems[j].Kind() == kind {
			n++
		}
	}
	return n
}

// Locations returns the recorded locations in document order, used by the
// driver to compare consecutive passes.
func (in *Introspector) Locations() []content.Location {
	out := make([]content.Location, len(in.elems))
	for loc, i := range in.order {
		out[i] = loc
	}
	return out
}
