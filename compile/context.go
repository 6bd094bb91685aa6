package compile

import (
	"time"

	"github.com/google/uuid"

	"dtc/content"
	"dtc/geom"
	"dtc/layout"
	"dtc/realize"
)

// Ctx is handed to deferred context closures. Accessors answer from the
// previous pass's snapshot; on the first pass that snapshot is empty, so
// positions read as unknown and counters as unset until the next pass
// substitutes real values.
type Ctx struct {
	res    *resolver
	elem   *content.Node
	styles *content.Chain
}

// Here returns the location of the context element itself.
func (x *Ctx) Here() content.Location {
	loc, _ := x.elem.Location()
	return loc
}

// Page returns the 1-based page this context landed on, or 0 while the
// snapshot does not know it yet.
func (x *Ctx) Page() int {
	p, _ := x.res.snap.PageOf(x.Here())
	return p
}

// Pages returns the total number of physical pages.
func (x *Ctx) Pages() int { return x.res.snap.Pages() }

// PageNumbering returns the page numbering pattern active on this page.
func (x *Ctx) PageNumbering() string { return x.res.snap.PageNumberingOf(x.Here()) }

// Query returns the elements the selector matches, in document order.
func (x *Ctx) Query(sel content.Selector) []*content.Node { return x.res.snap.Query(sel) }

// Counter returns the counter state just before this context.
func (x *Ctx) Counter(key content.CounterKey) []int {
	return x.res.snap.CounterAt(key, x.Here())
}

// CounterFinal returns the counter state at the end of the document.
func (x *Ctx) CounterFinal(key content.CounterKey) []int {
	return x.res.snap.CounterFinal(key)
}

// State returns the state value just before this context.
func (x *Ctx) State(key string) any { return x.res.snap.StateAt(key, x.Here()) }

// StateFinal returns the state value at the end of the document.
func (x *Ctx) StateFinal(key string) any { return x.res.snap.StateFinal(key) }

// Now returns the timestamp sampled once at compilation start. It does not
// change between passes.
func (x *Ctx) Now() time.Time { return x.res.now }

// DocumentID returns the UUID sampled once at compilation start.
func (x *Ctx) DocumentID() uuid.UUID { return x.res.id }

// Styles returns the style chain active at the context element.
func (x *Ctx) Styles() *content.Chain { return x.styles }

// Measure lays fragment out in a disposable nested pass and reports its
// natural size at the current column width. The nested pass locates
// content through a branched locator: measured content sees the same
// locations the real content would get, but registers nothing into the
// document, and its warnings are discarded.
func (x *Ctx) Measure(fragment *content.Node) (geom.Size, error) {
	scratch := &resolver{
		c:       x.res.c,
		snap:    x.res.snap,
		locator: x.res.locator.Branch(),
		now:     x.res.now,
		id:      x.res.id,
		memo:    x.res.memo,
	}
	r := &realize.Realizer{Resolver: scratch, Locator: scratch.locator}
	eng := layout.NewEngine(r, x.res.c.Measurer, x.res.c.Images, nil, x.res.c.Log)
	return eng.Measure(fragment, x.styles, layout.ColumnWidth(x.styles))
}
