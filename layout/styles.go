package layout

import (
	"dtc/content"
	"dtc/geom"
	"dtc/text"
)

// Resolved style bundles. Layout reads chains once per element and works
// with plain values afterwards.

type pageStyle struct {
	size      geom.Size
	margin    geom.Abs
	columns   int
	gutter    geom.Abs
	header    *content.Node
	footer    *content.Node
	numbering string
}

func pageStyleFrom(ch *content.Chain) pageStyle {
	s := pageStyle{
		size: geom.Size{
			W: resolveAbs(ch, content.KindPage, "width"),
			H: resolveAbs(ch, content.KindPage, "height"),
		},
		margin: resolveAbs(ch, content.KindPage, "margin"),
		gutter: resolveAbs(ch, content.KindPage, "gutter"),
	}
	s.columns, _ = ch.ResolveKind(content.KindPage, "columns").(int)
	if s.columns < 1 {
		s.columns = 1
	}
	s.header, _ = ch.ResolveKind(content.KindPage, "header").(*content.Node)
	s.footer, _ = ch.ResolveKind(content.KindPage, "footer").(*content.Node)
	s.numbering, _ = ch.ResolveKind(content.KindPage, "numbering").(string)
	return s
}

// same reports whether two consecutive flow children can share a page run.
// Header and footer compare by identity: distinct set rules always start a
// new run even when the content happens to be equal.
func (s pageStyle) same(o pageStyle) bool {
	return s.size.ApproxEq(o.size) &&
		s.margin.ApproxEq(o.margin) &&
		s.columns == o.columns &&
		s.gutter.ApproxEq(o.gutter) &&
		s.header == o.header &&
		s.footer == o.footer &&
		s.numbering == o.numbering
}

// ColumnWidth reports the width one page column offers to flow content
// under the given styles.
func ColumnWidth(ch *content.Chain) geom.Abs {
	_, w, _ := pageStyleFrom(ch).contentArea()
	return w
}

// contentArea returns the region grid inside the margins.
func (s pageStyle) contentArea() (cols int, colWidth, colHeight geom.Abs) {
	inner := s.size.Inset(geom.Uniform(s.margin))
	cols = s.columns
	gutters := geom.Abs(0)
	if cols > 1 {
		gutters = s.gutter * geom.Abs(cols-1)
	}
	colWidth = ((inner.W - gutters) / geom.Abs(cols)).NonNeg()
	colHeight = inner.H.NonNeg()
	return cols, colWidth, colHeight
}

type parStyle struct {
	leading geom.Abs
	spacing geom.Abs
	justify bool
}

func parStyleFrom(elem *content.Node, ch *content.Chain) parStyle {
	s := parStyle{
		leading: resolveElemAbs(elem, ch, "leading"),
		spacing: resolveElemAbs(elem, ch, "spacing"),
	}
	s.justify, _ = ch.Resolve(elem, "justify").(bool)
	return s
}

type blockStyle struct {
	breakable bool
	sticky    bool
	above     geom.Abs // negative means inherit paragraph spacing
	below     geom.Abs
}

func blockStyleFrom(elem *content.Node, ch *content.Chain) blockStyle {
	s := blockStyle{
		above: resolveElemAbs(elem, ch, "above"),
		below: resolveElemAbs(elem, ch, "below"),
	}
	s.breakable, _ = ch.Resolve(elem, "breakable").(bool)
	s.sticky, _ = ch.Resolve(elem, "sticky").(bool)
	return s
}

// textOpts is the text style plus the language options that drive
// hyphenation.
type textOpts struct {
	style     text.Style
	lang      string
	hyphenate bool
}

func textOptsFrom(ch *content.Chain) textOpts {
	o := textOpts{}
	o.style.Size = resolveAbs(ch, content.KindText, "size")
	delta, _ := ch.ResolveKind(content.KindText, "weight-delta").(int)
	o.style.Weight = 400 + delta
	o.style.Italic, _ = ch.ResolveKind(content.KindText, "italic").(bool)
	o.lang, _ = ch.ResolveKind(content.KindText, "lang").(string)
	o.hyphenate, _ = ch.ResolveKind(content.KindText, "hyphenate").(bool)
	return o
}

func resolveAbs(ch *content.Chain, kind content.Kind, name string) geom.Abs {
	v, _ := ch.ResolveKind(kind, name).(geom.Abs)
	return v
}

func resolveElemAbs(elem *content.Node, ch *content.Chain, name string) geom.Abs {
	v, _ := ch.Resolve(elem, name).(geom.Abs)
	return v
}
