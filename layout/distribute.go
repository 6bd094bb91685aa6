package layout

import (
	"dtc/content"
	"dtc/geom"
)

// Regions describes the vertical space a flow may fill: the first region's
// height, then the height of every region after it, at a shared width.
type Regions struct {
	Width geom.Abs
	First geom.Abs
	Rest  geom.Abs
}

// Footnote separator: a short rule between the content band and the
// entries, with a little air on both sides.
var (
	sepAbove     = geom.Pt(8)
	sepThickness = geom.Pt(0.5)
	sepBelow     = geom.Pt(4)
	sepRatio     = geom.Ratio(0.3)
)

func sepHeight() geom.Abs { return sepAbove + sepThickness + sepBelow }

// stagedItem is a frame committed to the current region but not yet
// composed, so trailing sticky runs can still move to the next region.
type stagedItem struct {
	y       geom.Abs
	gap     geom.Abs
	frame   *Frame
	sticky  bool
	tags    []content.Tag
	entries []*Frame
	entryH  geom.Abs
}

type frShare struct {
	before int
	fr     geom.Fr
}

type placedFloat struct {
	frame     *Frame
	clearance geom.Abs
}

// distributor fills one region after another with flow children. In
// gatherEntries mode (nested, unbounded flows) footnote entries are not
// composed but reported back to the caller, whose page region hosts them.
type distributor struct {
	e             *Engine
	regions       Regions
	gatherEntries bool

	frames  []*Frame
	escaped []*Frame

	open        bool
	regionH     geom.Abs
	y           geom.Abs
	seen        bool
	afterStrong bool
	staged      []stagedItem
	pending     *spacingChild
	pendingTags []content.Tag
	frs         []frShare
	frTotal     geom.Fr
	stickyFrom  int
	topFloats   []placedFloat
	topH        geom.Abs
	botFloats   []placedFloat
	botH        geom.Abs
	queue       []floatChild
	entries     []*Frame
	entryH      geom.Abs
}

func (d *distributor) run(children []child) ([]*Frame, []*Frame) {
	for _, ch := range children {
		switch c := ch.(type) {
		case tagChild:
			d.pendingTags = append(d.pendingTags, c.tag)
		case spacingChild:
			d.spacing(c)
		case frameChild:
			d.frame(c)
		case floatChild:
			d.openRegion()
			if !d.tryFloat(c, false) {
				d.queue = append(d.queue, c)
			}
		case colbreakChild:
			if c.weak && !d.seen {
				continue
			}
			d.openRegion()
			d.finishRegion()
		case flushChild:
			d.openRegion()
			for len(d.queue) > 0 {
				d.finishRegion()
				d.openRegion()
			}
		}
	}

	d.openRegion()
	for len(d.queue) > 0 {
		d.finishRegion()
		d.openRegion()
	}
	if len(d.pendingTags) > 0 {
		carrier := NewFrame(geom.Size{W: d.regions.Width})
		d.staged = append(d.staged, stagedItem{y: d.y, frame: carrier, tags: d.pendingTags})
		d.pendingTags = nil
	}
	d.finishRegion()
	return d.frames, d.escaped
}

func (d *distributor) openRegion() {
	if d.open {
		return
	}
	d.open = true
	d.regionH = d.regions.First
	d.y = 0
	d.seen = false
	d.afterStrong = false
	d.staged = nil
	d.pending = nil
	d.frs, d.frTotal = nil, 0
	d.stickyFrom = -1
	d.topFloats, d.topH = nil, 0
	d.botFloats, d.botH = nil, 0
	d.entries, d.entryH = nil, 0

	// queued floats take the fresh region before its content does; the
	// first one is placed unconditionally so the queue always drains
	q := d.queue
	d.queue = nil
	for i, f := range q {
		if !d.tryFloat(f, i == 0) {
			d.queue = append(d.queue, f)
		}
	}
}

// remaining is the unclaimed height of the current region.
func (d *distributor) remaining() geom.Abs {
	return d.regionH - d.topH - d.botH - d.y - d.footArea()
}

func (d *distributor) footArea() geom.Abs {
	if d.gatherEntries || d.entryH.IsZero() {
		return 0
	}
	return d.entryH + sepHeight()
}

// entryNeed is the extra height committing these footnote entries would
// claim, including the separator when they are the region's first.
func (d *distributor) entryNeed(entries []*Frame) geom.Abs {
	if d.gatherEntries || len(entries) == 0 {
		return 0
	}
	var n geom.Abs
	for _, f := range entries {
		n += f.Height()
	}
	if d.entryH.IsZero() {
		n += sepHeight()
	}
	return n
}

func (d *distributor) spacing(c spacingChild) {
	if c.weak {
		if d.afterStrong {
			return
		}
		d.pending = mergeWeak(d.pending, c)
		return
	}
	d.openRegion()
	d.pending = nil
	d.afterStrong = true
	if c.fr > 0 {
		d.frs = append(d.frs, frShare{before: len(d.staged), fr: c.fr})
		d.frTotal += c.fr
		return
	}
	d.y += c.amount
}

// mergeWeak collapses adjacent weak spacing to the strongest request:
// fractional beats absolute, larger beats smaller.
func mergeWeak(a *spacingChild, b spacingChild) *spacingChild {
	if a == nil {
		return &b
	}
	if a.fr > 0 || b.fr > 0 {
		if b.fr > a.fr {
			return &b
		}
		return a
	}
	if b.amount > a.amount {
		return &b
	}
	return a
}

func (d *distributor) frame(c frameChild) {
	d.openRegion()

	// a frame with nothing visible only ferries tags; let them migrate
	// with whatever content follows
	if c.frame.Height().IsZero() && !c.frame.HasVisibleItems() {
		c.frame.WalkTags(func(t content.Tag, _ geom.Point) {
			d.pendingTags = append(d.pendingTags, t)
		})
		return
	}

	for {
		var pend geom.Abs
		if d.pending != nil && d.seen && d.pending.fr == 0 {
			pend = d.pending.amount
		}
		need := pend + c.frame.Height() + d.entryNeed(c.entries)
		if need.Fits(d.remaining()) {
			d.commit(c, pend)
			return
		}
		if !d.breakHelps() {
			d.e.Warnings.Warnf(c.span, "content of height %s overflows its region", c.frame.Height())
			d.commit(c, pend)
			return
		}
		re := d.rewindSticky()
		d.finishRegion()
		d.openRegion()
		d.restage(re)
	}
}

// breakHelps reports whether moving to the next region could free space.
func (d *distributor) breakHelps() bool {
	return d.seen || len(d.staged) > 0 || d.topH > 0 || d.botH > 0 || d.entryH > 0
}

func (d *distributor) commit(c frameChild, pend geom.Abs) {
	if d.pending != nil {
		if d.seen {
			if d.pending.fr > 0 {
				d.frs = append(d.frs, frShare{before: len(d.staged), fr: d.pending.fr})
				d.frTotal += d.pending.fr
			} else {
				d.y += pend
			}
		}
		d.pending = nil
	}
	d.staged = append(d.staged, stagedItem{
		y:       d.y,
		gap:     pend,
		frame:   c.frame,
		sticky:  c.sticky,
		tags:    d.pendingTags,
		entries: c.entries,
		entryH:  d.commitEntries(c.entries),
	})
	d.pendingTags = nil
	d.y += c.frame.Height()
	d.seen = true
	d.afterStrong = false
	if c.sticky {
		if d.stickyFrom < 0 {
			d.stickyFrom = len(d.staged) - 1
		}
	} else {
		d.stickyFrom = -1
	}
}

func (d *distributor) commitEntries(entries []*Frame) geom.Abs {
	if d.gatherEntries {
		d.escaped = append(d.escaped, entries...)
		return 0
	}
	var h geom.Abs
	for _, f := range entries {
		d.entries = append(d.entries, f)
		h += f.Height()
	}
	d.entryH += h
	return h
}

func (d *distributor) tryFloat(c floatChild, force bool) bool {
	need := c.frame.Height() + c.clearance + d.entryNeed(c.entries)
	fits := need.Fits(d.remaining())
	if !fits {
		if !force {
			return false
		}
		d.e.Warnings.Warnf(c.span, "placed content of height %s overflows its region", c.frame.Height())
	}

	pl := c.placement
	if pl == "" || pl == "auto" {
		pl = "top"
		if !d.regionH.IsInf() && (d.topH+d.y).Pt() > 0.5*d.regionH.Pt() {
			pl = "bottom"
		}
	}
	f := placedFloat{frame: c.frame, clearance: c.clearance}
	if pl == "bottom" {
		d.botFloats = append(d.botFloats, f)
		d.botH += c.frame.Height() + c.clearance
	} else {
		d.topFloats = append(d.topFloats, f)
		d.topH += c.frame.Height() + c.clearance
	}
	d.commitEntries(c.entries)
	return true
}

// rewindSticky takes a trailing sticky run off the region so it can move
// to the next one together with the frame that did not fit. The run stays
// put when it already sits at the top of an otherwise empty region.
func (d *distributor) rewindSticky() []stagedItem {
	i := d.stickyFrom
	if i < 0 {
		return nil
	}
	if i == 0 && d.topH.IsZero() && d.botH.IsZero() && d.entryH.IsZero() {
		return nil
	}

	tail := make([]stagedItem, len(d.staged)-i)
	copy(tail, d.staged[i:])
	d.staged = d.staged[:i]
	d.stickyFrom = -1
	d.y = tail[0].y - tail[0].gap
	d.seen = len(d.staged) > 0

	// give back the footnote entries the run had claimed
	drop := make(map[*Frame]bool)
	for _, it := range tail {
		for _, f := range it.entries {
			drop[f] = true
		}
		d.entryH -= it.entryH
	}
	if len(drop) > 0 {
		kept := d.entries[:0]
		for _, f := range d.entries {
			if !drop[f] {
				kept = append(kept, f)
			}
		}
		d.entries = kept
	}
	for j := range d.frs {
		if d.frs[j].before > i {
			d.frs[j].before = i
		}
	}
	return tail
}

func (d *distributor) restage(items []stagedItem) {
	for k, it := range items {
		if k > 0 {
			d.y += it.gap
		}
		it.y = d.y
		it.entryH = d.commitEntries(it.entries)
		d.staged = append(d.staged, it)
		d.y += it.frame.Height()
		d.seen = true
		if d.stickyFrom < 0 {
			d.stickyFrom = len(d.staged) - 1
		}
	}
}

func (d *distributor) finishRegion() {
	if !d.open {
		return
	}
	d.open = false

	band := d.y
	foot := d.footArea()
	h := d.regionH
	if h.IsInf() {
		h = d.topH + band + d.botH + foot
	}
	frame := NewFrame(geom.Size{W: d.regions.Width, H: h})

	cursor := geom.Abs(0)
	for _, f := range d.topFloats {
		frame.PushFrame(geom.Point{Y: cursor}, f.frame)
		cursor += f.frame.Height() + f.clearance
	}
	contentTop := cursor

	var leftover geom.Abs
	if !d.regionH.IsInf() && d.frTotal > 0 {
		leftover = (d.regionH - d.topH - band - d.botH - foot).NonNeg()
	}
	var shift geom.Abs
	next := 0
	for i, it := range d.staged {
		for next < len(d.frs) && d.frs[next].before <= i {
			shift += d.frs[next].fr.Share(d.frTotal, leftover)
			next++
		}
		at := geom.Point{Y: contentTop + it.y + shift}
		for _, t := range it.tags {
			frame.Push(at, TagItem{Tag: t})
		}
		frame.PushFrame(at, it.frame)
	}

	yBot := h - foot
	for _, f := range d.botFloats {
		yBot -= f.frame.Height()
		frame.PushFrame(geom.Point{Y: yBot}, f.frame)
		yBot -= f.clearance
	}

	if foot > 0 {
		frame.Push(
			geom.Point{Y: h - d.entryH - sepBelow - sepThickness},
			RuleItem{Length: sepRatio.Of(d.regions.Width), Thickness: sepThickness},
		)
		ey := h - d.entryH
		for _, f := range d.entries {
			frame.PushFrame(geom.Point{Y: ey}, f)
			ey += f.Height()
		}
	}

	d.frames = append(d.frames, frame)
	d.regions.First = d.regions.Rest
}
