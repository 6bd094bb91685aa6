package export

import (
	"bytes"
	"sort"
	"time"

	"github.com/amazon-ion/ion-go/ion"
	"github.com/gosimple/slug"
	"github.com/maruel/natural"

	"dtc/content"
	"dtc/geom"
	"dtc/layout"
)

// docAnnotation marks the top level value of the document datagram. It is
// part of the bundle format and does not follow binary renames.
const docAnnotation = "dtc_document"

type ionDocument struct {
	ID      string     `ion:"id"`
	Title   string     `ion:"title,omitempty"`
	Author  string     `ion:"author,omitempty"`
	Created time.Time  `ion:"created"`
	Passes  int        `ion:"passes"`
	Pages   []ionPage  `ion:"pages"`
	Labels  []ionLabel `ion:"labels,omitempty"`
}

type ionPage struct {
	Number    int       `ion:"number"`
	Numbering string    `ion:"numbering,omitempty"`
	Width     float64   `ion:"width"`
	Height    float64   `ion:"height"`
	Items     []ionItem `ion:"items,omitempty"`
}

// ionItem is one placed frame item. Type discriminates which of the
// optional fields are meaningful.
type ionItem struct {
	Type string  `ion:"type,symbol"`
	X    float64 `ion:"x"`
	Y    float64 `ion:"y"`

	Text   string  `ion:"text,omitempty"`
	Size   float64 `ion:"size,omitempty"`
	Weight int     `ion:"weight,omitempty"`
	Italic bool    `ion:"italic,omitempty"`
	Width  float64 `ion:"width,omitempty"`

	Length    float64 `ion:"length,omitempty"`
	Thickness float64 `ion:"thickness,omitempty"`

	Source string  `ion:"source,omitempty"`
	Alt    string  `ion:"alt,omitempty"`
	Height float64 `ion:"height,omitempty"`

	Kind     string `ion:"kind,symbol,omitempty"`
	End      bool   `ion:"end,omitempty"`
	Location string `ion:"location,omitempty"`
	Label    string `ion:"label,symbol,omitempty"`
}

type ionLabel struct {
	Label string `ion:"label,symbol"`
	Slug  string `ion:"slug"`
	Page  int    `ion:"page"`
	Kind  string `ion:"kind,symbol"`
}

// anchor is a labeled element resolved to its final page, used for the
// datagram label list and the bundle manifest.
type anchor struct {
	label content.Label
	slug  string
	page  int
	kind  content.Kind
}

// documentAnchors collects labeled elements in document order. Duplicate
// labels keep the first occurrence, matching what label queries resolve to.
func documentAnchors(d *Doc) []anchor {
	var out []anchor
	seen := make(map[content.Label]struct{})
	for _, n := range d.result.Info.All() {
		l := n.Label()
		if l == content.NoLabel {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		a := anchor{label: l, slug: slug.Make(string(l)), kind: n.Kind()}
		if loc, ok := n.Location(); ok {
			if page, ok := d.result.Info.PageOf(loc); ok {
				a.page = page
			}
		}
		out = append(out, a)
	}
	return out
}

// ionSymbolSet lists every symbol the datagram may use, in an order that
// does not depend on page content, so identical documents produce identical
// local symbol tables.
func ionSymbolSet(anchors []anchor) []string {
	symbols := []string{docAnnotation, "text", "rule", "image", "tag"}
	symbols = append(symbols, content.KindNames()...)

	labels := make([]string, 0, len(anchors))
	for _, a := range anchors {
		labels = append(labels, string(a.label))
	}
	sort.Sort(natural.StringSlice(labels))
	return append(symbols, labels...)
}

// marshalIon encodes the laid out document as a single annotated binary Ion
// datagram with an embedded local symbol table.
func marshalIon(d *Doc) ([]byte, error) {
	anchors := documentAnchors(d)

	doc := ionDocument{
		ID:      d.refID.String(),
		Title:   d.loaded.Meta("title"),
		Author:  d.loaded.Meta("author"),
		Created: d.result.CreatedAt,
		Passes:  d.result.Passes,
		Pages:   make([]ionPage, 0, len(d.result.Document.Pages)),
	}
	for _, p := range d.result.Document.Pages {
		page := ionPage{
			Number:    p.Number,
			Numbering: p.Numbering,
			Width:     p.Size.W.Pt(),
			Height:    p.Size.H.Pt(),
		}
		p.Frame.Walk(func(at geom.Point, it layout.Item) {
			page.Items = append(page.Items, ionItemOf(at, it))
		})
		doc.Pages = append(doc.Pages, page)
	}
	for _, a := range anchors {
		doc.Labels = append(doc.Labels, ionLabel{
			Label: string(a.label),
			Slug:  a.slug,
			Page:  a.page,
			Kind:  a.kind.Name(),
		})
	}

	lstb := ion.NewSymbolTableBuilder()
	for _, s := range ionSymbolSet(anchors) {
		_, _ = lstb.Add(s)
	}
	lst := lstb.Build()

	buf := bytes.Buffer{}
	w := ion.NewBinaryWriterLST(&buf, lst)
	if err := w.Annotations(ion.NewSymbolTokenFromString(docAnnotation)); err != nil {
		return nil, err
	}
	if err := ion.MarshalTo(w, doc); err != nil {
		return nil, err
	}
	if err := w.Finish(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ionItemOf(at geom.Point, it layout.Item) ionItem {
	item := ionItem{X: at.X.Pt(), Y: at.Y.Pt()}
	switch v := it.(type) {
	case layout.TextItem:
		item.Type = "text"
		item.Text = v.Text
		item.Size = v.Style.Size.Pt()
		item.Weight = v.Style.Weight
		item.Italic = v.Style.Italic
		item.Width = v.Width.Pt()
	case layout.RuleItem:
		item.Type = "rule"
		item.Length = v.Length.Pt()
		item.Thickness = v.Thickness.Pt()
	case layout.ImageItem:
		item.Type = "image"
		item.Source = v.Source
		item.Alt = v.Alt
		item.Width = v.Size.W.Pt()
		item.Height = v.Size.H.Pt()
	case layout.TagItem:
		item.Type = "tag"
		item.Kind = v.Tag.Elem.Kind().Name()
		item.End = v.Tag.End
		item.Location = v.Tag.Loc.String()
		item.Label = string(v.Tag.Elem.Label())
	}
	return item
}
