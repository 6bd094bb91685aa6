package layout

import (
	"dtc/content"
	"dtc/geom"
	"dtc/realize"
)

// Document is the fully laid out page sequence of one compilation pass.
type Document struct {
	Pages []*Page
}

// Page is a finished physical page. Number counts physical pages from one;
// the displayed number comes from the page counter and Numbering.
type Page struct {
	Number    int
	Size      geom.Size
	Numbering string
	Frame     *Frame
}

// pageRun is a maximal stretch of flow children sharing one page setup,
// ended by a pagebreak or a page set-rule boundary.
type pageRun struct {
	styles *content.Chain
	style  pageStyle
	pairs  []realize.Pair
	brk    *pageBreak
}

type pageBreak struct {
	weak   bool
	parity string
	styles *content.Chain
}

func (r *pageRun) hasContent() bool {
	for _, p := range r.pairs {
		if !p.Node.IsTag() {
			return true
		}
	}
	return false
}

// Document lays out realized top-level pairs into pages.
func (e *Engine) Document(pairs []realize.Pair, styles *content.Chain) (*Document, error) {
	doc := &Document{}
	fn := 0

	runs := splitRuns(pairs, styles)
	for i, run := range runs {
		lastRun := i == len(runs)-1

		if !run.hasContent() {
			// an empty run between two breaks: a weak break collapses,
			// a strong one stages a deliberately blank page
			switch {
			case run.brk != nil && run.brk.weak:
				// keep stray tags from vanishing with the skipped page
				merged := append([]realize.Pair{}, run.pairs...)
				runs[i+1].pairs = append(merged, runs[i+1].pairs...)
				continue
			case run.brk == nil && lastRun && len(doc.Pages) > 0:
				continue
			default:
				if err := e.appendPage(doc, run, nil); err != nil {
					return nil, err
				}
			}
		} else {
			cols, colW, colH := run.style.contentArea()
			children, err := e.collectChildren(run.pairs, colW, colH, &fn)
			if err != nil {
				return nil, err
			}
			d := &distributor{e: e, regions: Regions{Width: colW, First: colH, Rest: colH}}
			frames, _ := d.run(children)
			for len(frames) > 0 {
				n := cols
				if n > len(frames) {
					n = len(frames)
				}
				if err := e.appendPage(doc, run, frames[:n]); err != nil {
					return nil, err
				}
				frames = frames[n:]
			}
		}

		if run.brk != nil && run.brk.parity != "" {
			next := len(doc.Pages) + 1
			odd := next%2 == 1
			if (run.brk.parity == "odd" && !odd) || (run.brk.parity == "even" && odd) {
				blank := pageRun{styles: run.brk.styles, style: pageStyleFrom(run.brk.styles)}
				if err := e.appendPage(doc, blank, nil); err != nil {
					return nil, err
				}
			}
		}
	}
	return doc, nil
}

// splitRuns cuts the flow at pagebreaks and wherever the resolved page
// setup changes. A run adopts the styles of its first retained child.
func splitRuns(pairs []realize.Pair, base *content.Chain) []pageRun {
	var runs []pageRun
	cur := pageRun{styles: base, style: pageStyleFrom(base)}
	started := false

	flush := func(brk *pageBreak) {
		cur.brk = brk
		runs = append(runs, cur)
		cur = pageRun{styles: base, style: pageStyleFrom(base)}
		started = false
	}

	for _, p := range pairs {
		if p.Node.Kind() == content.KindPagebreak {
			weak, _ := p.Styles.Resolve(p.Node, "weak").(bool)
			parity, _ := p.Styles.Resolve(p.Node, "to").(string)
			flush(&pageBreak{weak: weak, parity: parity, styles: p.Styles})
			continue
		}
		ps := pageStyleFrom(p.Styles)
		if !started {
			cur.styles, cur.style, started = p.Styles, ps, true
		} else if !cur.style.same(ps) {
			flush(nil)
			cur.styles, cur.style, started = p.Styles, ps, true
		}
		cur.pairs = append(cur.pairs, p)
	}
	runs = append(runs, cur)
	return runs
}

// appendPage adds one physical page holding the given column frames, or a
// blank page when there are none.
func (e *Engine) appendPage(doc *Document, run pageRun, cols []*Frame) error {
	st := run.style
	number := len(doc.Pages) + 1

	page := NewFrame(st.size)
	_, colW, _ := st.contentArea()
	x := st.margin
	for _, f := range cols {
		page.PushFrame(geom.Point{X: x, Y: st.margin}, f)
		x += colW + st.gutter
	}

	if err := e.pageStrip(page, run, st.header, 0); err != nil {
		return err
	}
	footer := st.footer
	if footer == nil && st.numbering != "" {
		footer = content.DisplayCounter(content.PageCounter(), st.numbering)
	}
	if err := e.pageStrip(page, run, footer, st.size.H-st.margin); err != nil {
		return err
	}

	doc.Pages = append(doc.Pages, &Page{
		Number:    number,
		Size:      st.size,
		Numbering: st.numbering,
		Frame:     page,
	})
	return nil
}

// pageStrip realizes a header or footer into the margin band starting at
// bandTop. The node is realized fresh for every page, so its content gets a
// distinct location each time and can show the page counter.
func (e *Engine) pageStrip(page *Frame, run pageRun, node *content.Node, bandTop geom.Abs) error {
	if node == nil {
		return nil
	}
	st := run.style
	inner := st.size.Inset(geom.Uniform(st.margin))

	pairs, err := e.Realizer.ContainerFlow(node, run.styles)
	if err != nil {
		return err
	}
	fnStrip := 0
	frame, escaped, err := e.flowFrame(pairs, inner.W, st.margin, &fnStrip)
	if err != nil {
		return err
	}
	if len(escaped) > 0 {
		e.Log.Debug("dropping footnotes referenced in a page strip")
	}

	y := bandTop + ((st.margin - frame.Height()) / 2).NonNeg()
	page.PushFrame(geom.Point{X: st.margin, Y: y}, frame)
	return nil
}
