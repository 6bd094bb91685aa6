package layout

import (
	"go.uber.org/zap"

	"dtc/content"
	"dtc/diag"
	"dtc/geom"
	"dtc/realize"
)

// child is one unit of vertical composition inside a region flow.
type child interface {
	isChild()
}

// tagChild carries an introspection tag between visible children.
type tagChild struct {
	tag content.Tag
}

// spacingChild is vertical space. Weak spacing collapses with adjacent weak
// spacing and vanishes at region boundaries; fractional spacing shares the
// region's leftover height.
type spacingChild struct {
	amount geom.Abs
	fr     geom.Fr
	weak   bool
}

// frameChild is an atomic piece of content: a paragraph line, an
// unbreakable block, a rule or an image. Footnote entries referenced by it
// must end up in the same region.
type frameChild struct {
	frame   *Frame
	sticky  bool
	entries []*Frame
	span    diag.Span
}

// floatChild is placed content detached from the flow.
type floatChild struct {
	frame     *Frame
	placement string
	clearance geom.Abs
	entries   []*Frame
	span      diag.Span
}

// colbreakChild forces the flow into the next region.
type colbreakChild struct {
	weak bool
}

// flushChild stalls the flow until every queued float found a region.
type flushChild struct{}

func (tagChild) isChild()      {}
func (spacingChild) isChild()  {}
func (frameChild) isChild()    {}
func (floatChild) isChild()    {}
func (colbreakChild) isChild() {}
func (flushChild) isChild()    {}

// collector translates realized pairs into flow children for one region
// width. Paragraphs are broken into lines here, and footnotes are numbered
// in the order the collector meets them.
type collector struct {
	e     *Engine
	width geom.Abs
	fullH geom.Abs
	fn    *int
	out   []child
}

func (e *Engine) collectChildren(pairs []realize.Pair, width, fullH geom.Abs, fn *int) ([]child, error) {
	c := &collector{e: e, width: width, fullH: fullH, fn: fn}
	for _, p := range pairs {
		if err := c.pair(p); err != nil {
			return nil, err
		}
	}
	return c.out, nil
}

func (c *collector) nextFootnote() int {
	*c.fn++
	return *c.fn
}

func (c *collector) pair(p realize.Pair) error {
	n := p.Node
	if n.IsTag() {
		c.out = append(c.out, tagChild{tag: n.Tag()})
		return nil
	}

	switch n.Kind() {
	case content.KindPar:
		return c.par(n, p.Styles)
	case content.KindBlock:
		return c.block(n, p.Styles)
	case content.KindVSpace:
		amount := resolveElemAbs(n, p.Styles, "amount")
		fr, _ := p.Styles.Resolve(n, "fr").(geom.Fr)
		weak, _ := p.Styles.Resolve(n, "weak").(bool)
		c.out = append(c.out, spacingChild{amount: amount, fr: fr, weak: weak})
	case content.KindColbreak:
		weak, _ := p.Styles.Resolve(n, "weak").(bool)
		c.out = append(c.out, colbreakChild{weak: weak})
	case content.KindPagebreak:
		// page runs were already split; a pagebreak surviving to here sits
		// inside a container, where pages do not exist
		c.e.Warnings.Warnf(n.Span(), "pagebreak inside a container has no effect")
	case content.KindLine:
		c.rule(n, p.Styles)
	case content.KindImage:
		c.image(n, p.Styles)
	case content.KindPlace:
		return c.place(n, p.Styles)
	case content.KindFlush:
		c.out = append(c.out, flushChild{})
	default:
		c.e.Log.Debug("skipping unexpected flow primitive", zap.Stringer("kind", n.Kind()))
	}
	return nil
}

// par emits a paragraph as its lines, with leading between them and the
// paragraph spacing as weak space around.
func (c *collector) par(elem *content.Node, styles *content.Chain) error {
	lines, ps, err := c.layoutPar(elem, styles)
	if err != nil {
		return err
	}
	c.out = append(c.out, spacingChild{amount: ps.spacing, weak: true})
	for i, l := range lines {
		if i > 0 {
			c.out = append(c.out, spacingChild{amount: ps.leading, weak: true})
		}
		c.out = append(c.out, frameChild{frame: l.frame, entries: l.entries, span: elem.Span()})
	}
	c.out = append(c.out, spacingChild{amount: ps.spacing, weak: true})
	return nil
}

func (c *collector) block(elem *content.Node, styles *content.Chain) error {
	bs := blockStyleFrom(elem, styles)
	parSpacing := resolveAbs(styles, content.KindPar, "spacing")
	above, below := bs.above, bs.below
	if above < 0 {
		above = parSpacing
	}
	if below < 0 {
		below = parSpacing
	}

	c.out = append(c.out, spacingChild{amount: above, weak: true})
	defer func() {
		c.out = append(c.out, spacingChild{amount: below, weak: true})
	}()

	body, _ := elem.Field("body")
	inner, _ := body.(*content.Node)
	if inner == nil {
		return nil
	}
	pairs, err := c.e.Realizer.ContainerFlow(inner, styles)
	if err != nil {
		return err
	}

	if bs.breakable {
		// a breakable block dissolves into the parent flow and splits
		// wherever its own children allow
		for _, p := range pairs {
			if err := c.pair(p); err != nil {
				return err
			}
		}
		return nil
	}

	frame, entries, err := c.e.flowFrame(pairs, c.width, c.fullH, c.fn)
	if err != nil {
		return err
	}
	c.out = append(c.out, frameChild{frame: frame, sticky: bs.sticky, entries: entries, span: elem.Span()})
	return nil
}

func (c *collector) rule(elem *content.Node, styles *content.Chain) {
	length, _ := styles.Resolve(elem, "length").(geom.Ratio)
	thickness := resolveElemAbs(elem, styles, "thickness")

	frame := NewFrame(geom.Size{W: c.width, H: thickness})
	frame.Push(geom.Point{}, RuleItem{Length: length.Of(c.width), Thickness: thickness})
	c.out = append(c.out, frameChild{frame: frame, span: elem.Span()})
}

func (c *collector) image(elem *content.Node, styles *content.Chain) {
	source, _ := styles.Resolve(elem, "source").(string)
	alt, _ := styles.Resolve(elem, "alt").(string)
	want := geom.Size{
		W: resolveElemAbs(elem, styles, "width"),
		H: resolveElemAbs(elem, styles, "height"),
	}

	size := fitImage(c.e.Images.Measure(source), want, c.width)
	frame := NewFrame(size)
	frame.Push(geom.Point{}, ImageItem{Source: source, Alt: alt, Size: size})
	c.out = append(c.out, frameChild{frame: frame, span: elem.Span()})
}

// fitImage scales an intrinsic image size to explicit dimensions, keeping
// the aspect ratio when only one is given, and never wider than the region.
func fitImage(intrinsic, want geom.Size, maxWidth geom.Abs) geom.Size {
	size := intrinsic
	switch {
	case want.W > 0 && want.H > 0:
		size = want
	case want.W > 0:
		size = geom.Size{W: want.W, H: scaleSide(intrinsic.H, intrinsic.W, want.W)}
	case want.H > 0:
		size = geom.Size{W: scaleSide(intrinsic.W, intrinsic.H, want.H), H: want.H}
	}
	if size.W > maxWidth && size.W > 0 {
		size = geom.Size{W: maxWidth, H: scaleSide(size.H, size.W, maxWidth)}
	}
	return size
}

func scaleSide(side, from, to geom.Abs) geom.Abs {
	if from.IsZero() {
		return side
	}
	return geom.Abs(float64(side) * float64(to) / float64(from))
}

func (c *collector) place(elem *content.Node, styles *content.Chain) error {
	placement, _ := styles.Resolve(elem, "placement").(string)
	clearance := resolveElemAbs(elem, styles, "clearance")

	body, _ := elem.Field("body")
	inner, _ := body.(*content.Node)
	if inner == nil {
		return nil
	}
	pairs, err := c.e.Realizer.ContainerFlow(inner, styles)
	if err != nil {
		return err
	}
	frame, entries, err := c.e.flowFrame(pairs, c.width, c.fullH, c.fn)
	if err != nil {
		return err
	}
	c.out = append(c.out, floatChild{
		frame:     frame,
		placement: placement,
		clearance: clearance,
		entries:   entries,
		span:      elem.Span(),
	})
	return nil
}

// layoutFootnoteEntry lays out one footnote entry at region width: the
// rendered marker joins the entry body's first paragraph. Footnotes nested
// inside the entry stack below it rather than migrating further.
func (c *collector) layoutFootnoteEntry(elem *content.Node, ch *content.Chain, marker string, _ textOpts) (*Frame, error) {
	body, _ := elem.Field("body")
	inner, _ := body.(*content.Node)
	if inner == nil {
		inner = content.Empty()
	}
	seq := content.Seq(content.Text(marker+" "), inner)

	pairs, err := c.e.Realizer.ContainerFlow(seq, ch)
	if err != nil {
		return nil, err
	}
	frame, nested, err := c.e.flowFrame(pairs, c.width, c.fullH, c.fn)
	if err != nil {
		return nil, err
	}
	if len(nested) == 0 {
		return frame, nil
	}

	stacked := NewFrame(geom.Size{W: frame.Width()})
	y := geom.Abs(0)
	for _, f := range append([]*Frame{frame}, nested...) {
		stacked.PushFrame(geom.Point{Y: y}, f)
		y += f.Height()
		stacked.Resize(geom.Size{W: f.Width(), H: y})
	}
	return stacked, nil
}

// flowFrame lays pairs into a single unbounded region and reports the
// footnote entries referenced inside, which belong to the enclosing page
// region.
func (e *Engine) flowFrame(pairs []realize.Pair, width, fullH geom.Abs, fn *int) (*Frame, []*Frame, error) {
	children, err := e.collectChildren(pairs, width, fullH, fn)
	if err != nil {
		return nil, nil, err
	}
	d := &distributor{
		e:             e,
		regions:       Regions{Width: width, First: geom.AbsInf(), Rest: geom.AbsInf()},
		gatherEntries: true,
	}
	frames, escaped := d.run(children)
	return frames[0], escaped, nil
}

// Measure realizes root as a container body, lays it into a single
// unbounded region of the given width and reports the natural size. The
// frames are discarded; footnote entries referenced inside do not count
// towards the size.
func (e *Engine) Measure(root *content.Node, styles *content.Chain, width geom.Abs) (geom.Size, error) {
	pairs, err := e.Realizer.ContainerFlow(root, styles)
	if err != nil {
		return geom.Size{}, err
	}
	fn := 0
	frame, _, err := e.flowFrame(pairs, width, geom.AbsInf(), &fn)
	if err != nil {
		return geom.Size{}, err
	}
	return frame.Size(), nil
}
