package export

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"dtc/geom"
	"dtc/layout"
)

// renderWriter builds the positioned text dump. Indentation tracks the
// document / page / item nesting.
type renderWriter struct {
	w strings.Builder
}

func (rw *renderWriter) Line(depth int, format string, args ...any) {
	for range depth {
		rw.w.WriteString("  ")
	}
	fmt.Fprintf(&rw.w, format, args...)
	rw.w.WriteByte('\n')
}

func (rw *renderWriter) TextBlock(depth int, label, value string) {
	for range depth {
		rw.w.WriteString("  ")
	}
	rw.w.WriteString(label)
	rw.w.WriteString(": ")
	if value != "" {
		value = strconv.Quote(value)
	}
	rw.w.WriteString(value)
	rw.w.WriteByte('\n')
}

func (rw *renderWriter) Bytes() []byte {
	return []byte(rw.w.String())
}

// renderText produces a readable dump of the laid out document with every
// placed item at its absolute page position. It exists for inspection and
// regression comparison, nothing parses it back.
func renderText(d *Doc) []byte {
	rw := &renderWriter{}

	rw.Line(0, "Document[%s] pages[%d] passes[%d]", d.refID, len(d.result.Document.Pages), d.result.Passes)
	if title := d.loaded.Meta("title"); title != "" {
		rw.TextBlock(1, "Title", title)
	}
	if author := d.loaded.Meta("author"); author != "" {
		rw.TextBlock(1, "Author", author)
	}

	for _, p := range d.result.Document.Pages {
		rw.Line(0, "Page[%d] size[%sx%s] numbering[%q]", p.Number, fmtAbs(p.Size.W), fmtAbs(p.Size.H), p.Numbering)
		p.Frame.Walk(func(at geom.Point, it layout.Item) {
			renderItem(rw, at, it)
		})
	}
	return rw.Bytes()
}

func renderItem(rw *renderWriter, at geom.Point, it layout.Item) {
	pos := fmt.Sprintf("[%s,%s]", fmtAbs(at.X), fmtAbs(at.Y))
	switch v := it.(type) {
	case layout.TextItem:
		style := fmt.Sprintf("size[%s] weight[%d]", fmtAbs(v.Style.Size), v.Style.Weight)
		if v.Style.Italic {
			style += " italic"
		}
		rw.Line(1, "Text %s width[%s] %s", pos, fmtAbs(v.Width), style)
		rw.TextBlock(2, "Run", v.Text)
	case layout.RuleItem:
		rw.Line(1, "Rule %s length[%s] thickness[%s]", pos, fmtAbs(v.Length), fmtAbs(v.Thickness))
	case layout.ImageItem:
		rw.Line(1, "Image %s size[%sx%s] source[%q] alt[%q]", pos, fmtAbs(v.Size.W), fmtAbs(v.Size.H), v.Source, v.Alt)
	case layout.TagItem:
		side := "open"
		if v.Tag.End {
			side = "close"
		}
		line := fmt.Sprintf("Tag %s %s kind[%s] %s", pos, side, v.Tag.Elem.Kind(), v.Tag.Loc)
		if l := v.Tag.Elem.Label(); l != "" {
			line += fmt.Sprintf(" label[%s]", string(l))
		}
		rw.Line(1, "%s", line)
	}
}

// fmtAbs prints lengths with fixed precision so dumps compare cleanly
// between runs.
func fmtAbs(a geom.Abs) string {
	return strconv.FormatFloat(a.Pt(), 'f', 2, 64) + "pt"
}

func (d *Doc) writeTextRender(outputPath string) error {
	if err := os.WriteFile(outputPath, renderText(d), 0644); err != nil {
		return fmt.Errorf("unable to write text render (%s): %w", outputPath, err)
	}
	return nil
}
