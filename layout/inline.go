package layout

import (
	"strings"
	"unicode"

	"dtc/content"
	"dtc/geom"
	"dtc/introspect"
	"dtc/text"
)

// line is one finished line of a paragraph together with the footnote
// entries referenced on it.
type line struct {
	frame   *Frame
	entries []*Frame
}

type segKind uint8

const (
	segWord segKind = iota
	segSpace
	segTag
)

type segment struct {
	kind  segKind
	text  string
	width geom.Abs
	opts  textOpts
	rise  geom.Abs // baseline shift, used by footnote markers
	tag   content.Tag
}

// inliner performs greedy line breaking over a paragraph body.
type inliner struct {
	e       *Engine
	c       *collector
	width   geom.Abs
	justify bool

	segs  []segment
	lines []line

	entries []*Frame // footnote entries referenced since the last commit
	err     error
}

// layoutPar breaks a realized paragraph into lines. Footnote references
// encountered inline are numbered and their entries laid out here, so their
// numbers follow document order.
func (c *collector) layoutPar(elem *content.Node, styles *content.Chain) ([]line, parStyle, error) {
	ps := parStyleFrom(elem, styles)
	il := &inliner{e: c.e, c: c, width: c.width, justify: ps.justify}

	body, _ := elem.Field("body")
	if b, ok := body.(*content.Node); ok && b != nil {
		il.walk(b, styles)
	}
	if il.err != nil {
		return nil, ps, il.err
	}
	il.commit(true)
	return il.lines, ps, nil
}

func (il *inliner) walk(n *content.Node, ch *content.Chain) {
	if n == nil || il.err != nil {
		return
	}
	switch n.Op() {
	case content.OpSeq:
		for _, c := range n.Children() {
			il.walk(c, ch)
		}
	case content.OpStyled:
		inner, entries := n.StyledInner()
		il.walk(inner, ch.Push(entries...))
	case content.OpTag:
		il.segs = append(il.segs, segment{kind: segTag, tag: n.Tag()})
	case content.OpText:
		il.text(n.Text(), textOptsFrom(ch))
	case content.OpElem:
		if n.Kind() == content.KindFootnote {
			il.footnote(n, ch)
		}
	}
}

// text tokenizes a run into words and spaces, hyphenating words when the
// style asks for it.
func (il *inliner) text(s string, opts textOpts) {
	if opts.hyphenate {
		if h := il.e.hyphenator(opts.lang); h != nil {
			s = h.Hyphenate(s)
		}
	}

	word := strings.Builder{}
	flush := func() {
		if word.Len() == 0 {
			return
		}
		il.word(word.String(), opts)
		word.Reset()
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			flush()
			il.space(opts)
			continue
		}
		word.WriteRune(r)
	}
	flush()
}

func (il *inliner) space(opts textOpts) {
	if len(il.segs) == 0 || il.segs[len(il.segs)-1].kind == segSpace {
		return
	}
	il.segs = append(il.segs, segment{kind: segSpace, width: il.e.Measurer.SpaceWidth(opts.style), opts: opts})
}

// word appends one word, breaking the line first if it cannot fit. A word
// carrying soft hyphens may split, leaving the remainder for the next line.
func (il *inliner) word(w string, opts textOpts) {
	width := il.e.Measurer.Advance(w, opts.style)
	if il.lineWidth()+width <= il.width+geom.Eps {
		il.segs = append(il.segs, segment{kind: segWord, text: w, width: width, opts: opts})
		return
	}

	if head, rest, ok := il.hyphenBreak(w, opts); ok {
		il.segs = append(il.segs, segment{kind: segWord, text: head, width: il.e.Measurer.Advance(head, opts.style), opts: opts})
		il.commit(false)
		il.word(rest, opts)
		return
	}

	if il.hasWords() {
		il.commit(false)
		il.word(w, opts)
		return
	}

	// a single word wider than the region: place it and let it overflow
	il.segs = append(il.segs, segment{kind: segWord, text: w, width: width, opts: opts})
}

// hyphenBreak finds the longest prefix of a soft-hyphenated word that still
// fits on the current line, with a visible hyphen appended.
func (il *inliner) hyphenBreak(w string, opts textOpts) (head, rest string, ok bool) {
	if !strings.Contains(w, text.SOFTHYPHEN) {
		return "", "", false
	}
	parts := strings.Split(w, text.SOFTHYPHEN)
	for k := len(parts) - 1; k > 0; k-- {
		head = strings.Join(parts[:k], "") + "-"
		if il.lineWidth()+il.e.Measurer.Advance(head, opts.style) <= il.width+geom.Eps {
			return head, strings.Join(parts[k:], text.SOFTHYPHEN), true
		}
	}
	return "", "", false
}

// footnote numbers the reference, renders its superscript marker and lays
// out the entry the marker points at.
func (il *inliner) footnote(elem *content.Node, ch *content.Chain) {
	n := il.c.nextFootnote()
	pattern, _ := ch.Resolve(elem, "numbering").(string)
	marker := introspect.FormatNumbering(pattern, n)

	opts := textOptsFrom(ch)
	opts.style.Size = geom.Pt(opts.style.Size.Pt() * 0.7)
	rise := geom.Pt(opts.style.Size.Pt() * 0.5)

	width := il.e.Measurer.Advance(marker, opts.style)
	if il.lineWidth()+width > il.width+geom.Eps && il.hasWords() {
		il.commit(false)
	}
	il.segs = append(il.segs, segment{kind: segWord, text: marker, width: width, opts: opts, rise: rise})

	entry, err := il.c.layoutFootnoteEntry(elem, ch, marker, opts)
	if err != nil {
		il.err = err
		return
	}
	il.entries = append(il.entries, entry)
}

func (il *inliner) lineWidth() geom.Abs {
	var w geom.Abs
	for _, s := range il.segs {
		w += s.width
	}
	return w
}

func (il *inliner) hasWords() bool {
	for _, s := range il.segs {
		if s.kind == segWord {
			return true
		}
	}
	return false
}

// commit finishes the current line. Trailing spaces are dropped, the frame
// height comes from the tallest style on the line, and unless this is the
// last line a justified paragraph stretches its spaces to the full width.
func (il *inliner) commit(last bool) {
	segs := il.segs
	il.segs = nil
	for len(segs) > 0 && segs[len(segs)-1].kind == segSpace {
		segs = segs[:len(segs)-1]
	}
	if len(segs) == 0 {
		if last {
			il.flushEntries()
		}
		return
	}

	var ascent, descent, natural geom.Abs
	spaces := 0
	hasWord := false
	for _, s := range segs {
		natural += s.width
		switch s.kind {
		case segWord:
			hasWord = true
			m := il.e.Measurer.Line(s.opts.style)
			ascent = ascent.Max(m.Ascent + s.rise)
			descent = descent.Max(m.Descent)
		case segSpace:
			spaces++
		}
	}
	if !hasWord {
		// tags only: zero-height carrier line
		frame := NewFrame(geom.Size{})
		for _, s := range segs {
			if s.kind == segTag {
				frame.Push(geom.Point{}, TagItem{Tag: s.tag})
			}
		}
		il.lines = append(il.lines, line{frame: frame, entries: il.takeEntries()})
		return
	}

	lineW := natural
	var stretch geom.Abs
	if il.justify && !last && spaces > 0 && natural < il.width {
		stretch = (il.width - natural) / geom.Abs(spaces)
		lineW = il.width
	}

	frame := NewFrame(geom.Size{W: lineW, H: ascent + descent})
	frame.SetBaseline(ascent)
	x := geom.Abs(0)
	for _, s := range segs {
		switch s.kind {
		case segWord:
			frame.Push(geom.Point{X: x, Y: ascent - s.rise}, TextItem{Text: s.text, Style: s.opts.style, Width: s.width})
			x += s.width
		case segSpace:
			x += s.width + stretch
		case segTag:
			frame.Push(geom.Point{X: x, Y: ascent}, TagItem{Tag: s.tag})
		}
	}

	il.lines = append(il.lines, line{frame: frame, entries: il.takeEntries()})
}

func (il *inliner) takeEntries() []*Frame {
	entries := il.entries
	il.entries = nil
	return entries
}

// flushEntries attaches entries that arrived after the final visible line
// to a zero-height trailing line so they are not lost.
func (il *inliner) flushEntries() {
	if len(il.entries) == 0 {
		return
	}
	il.lines = append(il.lines, line{frame: NewFrame(geom.Size{}), entries: il.takeEntries()})
}
