// Package compile runs the fixed point loop that turns a content tree into
// a paginated document. Every pass realizes the tree against the previous
// pass's introspector snapshot, lays the result out and rebuilds the
// snapshot from the finished pages. Realization is a pure function of the
// tree, the styles and the snapshot, so once a pass reproduces the snapshot
// it consumed, another pass would change nothing and the loop stops.
package compile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"dtc/assets"
	"dtc/content"
	"dtc/diag"
	"dtc/geom"
	"dtc/introspect"
	"dtc/layout"
	"dtc/realize"
	"dtc/text"
)

// Compiler bundles the environment a compilation needs. One Compiler may
// serve any number of Compile calls.
type Compiler struct {
	Measurer *text.Measurer
	Images   *assets.Loader
	Log      *zap.Logger

	// Clock supplies the timestamp sampled once per compilation. Nil means
	// time.Now.
	Clock func() time.Time

	// Seed is the snapshot the first pass realizes against. Nil means an
	// empty one. Seeding with the Info of a finished compilation lets an
	// already converged document compile in a single pass.
	Seed *introspect.Introspector
}

func New(m *text.Measurer, images *assets.Loader, log *zap.Logger) *Compiler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Compiler{Measurer: m, Images: images, Log: log}
}

// Result is a finished compilation.
type Result struct {
	Document *layout.Document
	Info     *introspect.Introspector
	Warnings []diag.Warning
	Passes   int

	// ID and CreatedAt are sampled once at compilation start, so every
	// pass and every context closure sees the same values.
	ID        uuid.UUID
	CreatedAt time.Time
}

// Metadata returns the values of metadata markers in document order.
func (r *Result) Metadata() []any {
	var out []any
	for _, el := range r.Info.Query(content.SelectKind(content.KindMetadata)) {
		if v, ok := el.Field("value"); ok {
			out = append(out, v)
		}
	}
	return out
}

// Compile realizes and lays out the document until it stabilizes. The pass
// bound comes from document.max-passes; exceeding it is fatal and reports
// the locations that were still changing. Cancellation is honored between
// passes, and a canceled or failed compilation surfaces no partial state.
func (c *Compiler) Compile(ctx context.Context, root *content.Node, styles *content.Chain) (*Result, error) {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now()
	if c.Clock != nil {
		now = c.Clock()
	}
	id := uuid.New()

	maxPasses, _ := styles.ResolveKind(content.KindDocument, "max-passes").(int)
	if maxPasses < 1 {
		maxPasses = 1
	}

	snap := c.Seed
	if snap == nil {
		snap = introspect.New()
	}
	prev := snapshotRecords(snap)

	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		p, err := c.runPass(root, styles, snap, now, id)
		if err != nil {
			return nil, err
		}
		next := snapshotRecords(p.snap)
		log.Debug("compilation pass finished",
			zap.Int("pass", pass),
			zap.Int("pages", p.snap.Pages()),
			zap.Int("elements", p.snap.Len()),
			zap.Duration("took", time.Since(start)))

		if snap.Pages() == p.snap.Pages() && recordsEqual(prev, next) {
			if err := multierr.Combine(p.res.misses...); err != nil {
				return nil, err
			}
			return &Result{
				Document:  p.doc,
				Info:      p.snap,
				Warnings:  p.sink.Take(),
				Passes:    pass,
				ID:        id,
				CreatedAt: now,
			}, nil
		}
		if pass == maxPasses {
			return nil, diag.Convergence(pass, changedLocations(prev, next))
		}
		snap, prev = p.snap, next
	}
}

type passResult struct {
	doc  *layout.Document
	snap *introspect.Introspector
	sink *diag.Sink
	res  *resolver
}

func (c *Compiler) runPass(root *content.Node, styles *content.Chain, snap *introspect.Introspector, now time.Time, id uuid.UUID) (*passResult, error) {
	sink := &diag.Sink{}
	loc := introspect.NewLocator()
	res := &resolver{
		c:       c,
		snap:    snap,
		locator: loc,
		now:     now,
		id:      id,
		memo:    make(map[memoKey]*content.Node),
	}
	r := &realize.Realizer{Resolver: res, Locator: loc, Warnings: sink}
	eng := layout.NewEngine(r, c.Measurer, c.Images, sink, c.Log)

	pairs, err := r.Flow(root, styles)
	if err != nil {
		return nil, err
	}
	doc, err := eng.Document(pairs, styles)
	if err != nil {
		return nil, err
	}
	return &passResult{doc: doc, snap: snapshotOf(doc), sink: sink, res: res}, nil
}

// snapshotOf walks the finished pages and records every tag in paint
// order: document order, except that floated content surfaces where it was
// placed rather than where it was referenced.
func snapshotOf(doc *layout.Document) *introspect.Introspector {
	b := introspect.NewBuilder()
	for _, p := range doc.Pages {
		b.StartPage(p.Numbering)
		p.Frame.WalkTags(func(t content.Tag, at geom.Point) {
			b.Visit(t, at.X, at.Y)
		})
	}
	return b.Finish()
}

// locRecord captures everything the introspector reports about one located
// element. Two passes whose records agree element by element answer every
// query identically, so realizing against either gives the same tree.
type locRecord struct {
	loc  content.Location
	desc string
}

func snapshotRecords(in *introspect.Introspector) []locRecord {
	els := in.All()
	out := make([]locRecord, 0, len(els))
	for _, el := range els {
		loc, _ := el.Location()
		pos, _ := in.PositionOf(loc)
		out = append(out, locRecord{
			loc: loc,
			desc: fmt.Sprintf("%s|p%d|%g,%g|%s",
				el.Hash(), pos.Page, pos.X.Pt(), pos.Y.Pt(), in.PageNumberingOf(loc)),
		})
	}
	return out
}

func recordsEqual(a, b []locRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].loc != b[i].loc || a[i].desc != b[i].desc {
			return false
		}
	}
	return true
}

// changedLocations lists the locations whose records differ between the
// last two snapshots, capped to keep the diagnostic readable.
func changedLocations(prev, next []locRecord) []string {
	old := make(map[content.Location]string, len(prev))
	for _, r := range prev {
		old[r.loc] = r.desc
	}
	var out []string
	for _, r := range next {
		if desc, ok := old[r.loc]; !ok || desc != r.desc {
			out = append(out, r.loc.String())
		}
		delete(old, r.loc)
	}
	for _, r := range prev {
		if _, stillThere := old[r.loc]; stillThere {
			out = append(out, r.loc.String())
		}
	}
	const maxListed = 8
	if len(out) > maxListed {
		out = append(out[:maxListed], fmt.Sprintf("%d more", len(out)-maxListed))
	}
	return out
}
