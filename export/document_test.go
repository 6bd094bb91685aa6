package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/language"

	"dtc/compile"
	"dtc/config"
	"dtc/content"
	"dtc/diag"
	"dtc/geom"
	"dtc/input"
	"dtc/introspect"
	"dtc/layout"
	"dtc/text"
)

const testDocID = "8a7b6c5d-4e3f-4a2b-9c1d-0e9f8a7b6c5d"

func tagOf(n *content.Node, end bool) layout.TagItem {
	loc, _ := n.Location()
	return layout.TagItem{Tag: content.Tag{Elem: n, Loc: loc, End: end}}
}

func at(x, y float64) geom.Point {
	return geom.Point{X: geom.Pt(x), Y: geom.Pt(y)}
}

// buildTestDoc assembles a compiled document by hand with fixed identifiers
// and positions, so writer output can be checked against known values without
// running the compiler.
func buildTestDoc(t *testing.T) *Doc {
	t.Helper()

	root := content.Seq(
		content.Heading(1, content.Text("Opening words")).Labeled("intro"),
		content.Par(content.Text("First sentence here. Second one follows.")),
		content.Par(
			content.Text("Grounding for a note."),
			content.Footnote(content.Text("Aside remark.")),
		),
		content.ListOf(
			content.Text("First item entry."),
			content.Text("Second item entry."),
		),
	)

	loc := introspect.NewLocator()
	prep := func(n *content.Node) *content.Node { return n.Prepare(loc.Next(n)) }

	h1 := prep(content.Heading(1, content.Text("Opening words")).Labeled("intro"))
	cu := prep(content.UpdateCounter(content.NamedCounter("note"), content.CounterSet(5)))
	cd := prep(content.DisplayCounter(content.NamedCounter("note"), "1"))
	fn := prep(content.Footnote(content.Text("Aside remark.")))
	h2 := prep(content.Heading(2, content.Text("Closing words")).Labeled("wrap"))

	b := introspect.NewBuilder()
	b.StartPage("1")
	for _, e := range []struct {
		elem *content.Node
		x, y float64
	}{
		{h1, 10, 20}, {cu, 10, 75}, {cd, 10, 78}, {fn, 10, 260},
	} {
		l, _ := e.elem.Location()
		b.Visit(content.Tag{Elem: e.elem, Loc: l}, geom.Pt(e.x), geom.Pt(e.y))
	}
	b.StartPage("i")
	l2, _ := h2.Location()
	b.Visit(content.Tag{Elem: h2, Loc: l2}, geom.Pt(10), geom.Pt(30))
	info := b.Finish()

	pageSize := geom.Size{W: geom.Pt(200), H: geom.Pt(300)}

	page1 := layout.NewFrame(pageSize)
	page1.Push(at(10, 20), tagOf(h1, false))
	page1.Push(at(10, 20), layout.TextItem{
		Text:  "Opening words",
		Style: text.Style{Size: geom.Pt(14), Weight: 300},
		Width: geom.Pt(120),
	})
	page1.Push(at(10, 34), tagOf(h1, true))
	page1.Push(at(10, 40), layout.RuleItem{Length: geom.Pt(180), Thickness: geom.Pt(0.5)})
	grouped := layout.NewFrame(geom.Size{W: geom.Pt(100), H: geom.Pt(50)})
	grouped.Push(at(5, 10), layout.TextItem{
		Text:  "grouped run",
		Style: text.Style{Size: geom.Pt(11)},
		Width: geom.Pt(60),
	})
	page1.PushFrame(at(20, 100), grouped)
	page1.Push(at(10, 75), tagOf(cu, false))
	page1.Push(at(10, 78), tagOf(cd, false))
	page1.Push(at(10, 260), tagOf(fn, false))
	page1.Push(at(10, 260), layout.TextItem{
		Text:  "Aside remark.",
		Style: text.Style{Size: geom.Pt(9), Italic: true},
		Width: geom.Pt(70),
	})

	page2 := layout.NewFrame(pageSize)
	page2.Push(at(10, 30), tagOf(h2, false))
	page2.Push(at(10, 30), layout.TextItem{
		Text:  "Closing words",
		Style: text.Style{Size: geom.Pt(12), Weight: 300},
		Width: geom.Pt(100),
	})
	page2.Push(at(10, 120), layout.ImageItem{
		Source: "figs/map.png",
		Alt:    "Map",
		Size:   geom.Size{W: geom.Pt(80), H: geom.Pt(60)},
	})

	d := &Doc{
		srcName: "notes.xml",
		refID:   uuid.MustParse(testDocID),
		loaded: &input.Document{
			Root: root,
			Styles: []content.Entry{
				content.Set(content.KindDocument, "title", "Field Notes"),
				content.Set(content.KindDocument, "author", "J. Tester"),
			},
			Name: "notes.xml",
		},
		styles: content.NewChain(content.Set(content.KindText, "lang", "en")),
		sheet:  []byte("text { font-size: 11pt }\n"),
		result: &compile.Result{
			Document: &layout.Document{Pages: []*layout.Page{
				{Number: 1, Size: pageSize, Numbering: "1", Frame: page1},
				{Number: 2, Size: pageSize, Numbering: "i", Frame: page2},
			}},
			Info:      info,
			Passes:    3,
			ID:        uuid.MustParse(testDocID),
			CreatedAt: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
		},
		tmpDir: t.TempDir(),
	}
	d.stats = collectStats(d, zaptest.NewLogger(t))
	return d
}

func TestPrepareDocument(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	log := zaptest.NewLogger(t)

	d, err := prepareDocument(ctx, strings.NewReader(sampleDoc), "sample.xml", log)
	if err != nil {
		t.Fatalf("prepareDocument() error = %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(d.tmpDir) })

	if d.srcName != "sample.xml" {
		t.Errorf("srcName = %q, want sample.xml", d.srcName)
	}
	if got := d.loaded.Meta("title"); got != "Sample Pages" {
		t.Errorf("title = %q, want Sample Pages", got)
	}
	if d.refID == uuid.Nil {
		t.Error("no reference id assigned")
	}
	if len(d.result.Document.Pages) == 0 {
		t.Fatal("no pages laid out")
	}
	if d.stats.Paragraphs != 2 {
		t.Errorf("paragraphs = %d, want 2", d.stats.Paragraphs)
	}
	if d.stats.Headings != 1 {
		t.Errorf("headings = %d, want 1", d.stats.Headings)
	}

	// the effective stylesheet lands next to the logs for the report archiver
	if _, err := os.Stat(filepath.Join(d.tmpDir, "sample.xml.css")); err != nil {
		t.Errorf("stylesheet dump missing: %v", err)
	}
}

func TestPrepareDocumentDeclaredID(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	log := zaptest.NewLogger(t)

	declared := "123e4567-e89b-42d3-a456-426614174000"
	src := `<document id="` + declared + `"><par>Body text.</par></document>`
	d, err := prepareDocument(ctx, strings.NewReader(src), "with-id.xml", log)
	if err != nil {
		t.Fatalf("prepareDocument() error = %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(d.tmpDir) })

	if got := d.refID.String(); got != declared {
		t.Errorf("refID = %s, want the declared id %s", got, declared)
	}
}

func TestPrepareDocumentInvalidDeclaredID(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	log := zaptest.NewLogger(t)

	src := `<document id="not-a-uuid"><par>Body text.</par></document>`
	d, err := prepareDocument(ctx, strings.NewReader(src), "bad-id.xml", log)
	if err != nil {
		t.Fatalf("prepareDocument() error = %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(d.tmpDir) })

	if d.refID == uuid.Nil {
		t.Error("invalid declared id should fall back to the generated one")
	}
}

func TestPrepareDocumentBadSource(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	log := zaptest.NewLogger(t)

	if _, err := prepareDocument(ctx, strings.NewReader("<book>nope</book>"), "bad.xml", log); err == nil {
		t.Error("prepareDocument() = nil error, want one for a foreign root element")
	}
}

func TestWriteToCancelledContext(t *testing.T) {
	d := buildTestDoc(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.WriteTo(ctx, config.OutputFmtText, filepath.Join(t.TempDir(), "out.txt"), zaptest.NewLogger(t))
	if err != context.Canceled {
		t.Errorf("WriteTo() error = %v, want context.Canceled", err)
	}
}

func TestDocumentLanguage(t *testing.T) {
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	styles := content.NewChain(content.Set(content.KindText, "lang", "en"))

	if got := documentLanguage(cfg, styles); got != "en" {
		t.Errorf("documentLanguage() = %q, want en", got)
	}

	cfg.Document.Hyphenation.Language = "ru"
	if got := documentLanguage(cfg, styles); got != "ru" {
		t.Errorf("documentLanguage() with override = %q, want ru", got)
	}
}

func TestHyphenateNodeInsertsSoftHyphens(t *testing.T) {
	h := text.NewHyphenator(language.English, zaptest.NewLogger(t))
	if h == nil {
		t.Fatal("no English hyphenation dictionary")
	}

	span := diag.Span{File: "doc.xml", Line: 3}
	par := content.Par(content.Text("hyphenation practice").At(span).Labeled("run"))

	got := hyphenateNode(par, h, false)
	if got == par {
		t.Fatal("hyphenateNode() returned the input unchanged")
	}

	body, ok := got.Field("body")
	if !ok {
		t.Fatal("rebuilt paragraph lost its body")
	}
	run := body.(*content.Node)
	if !strings.Contains(run.Text(), text.SOFTHYPHEN) {
		t.Errorf("text = %q, want soft hyphens inserted", run.Text())
	}
	if run.Label() != "run" {
		t.Errorf("label = %v, want run", run.Label())
	}
	if run.Span() != span {
		t.Errorf("span = %v, want %v", run.Span(), span)
	}
}

func TestHyphenateNodeSkipsHeadings(t *testing.T) {
	h := text.NewHyphenator(language.English, zaptest.NewLogger(t))
	if h == nil {
		t.Fatal("no English hyphenation dictionary")
	}

	root := content.Seq(
		content.Heading(1, content.Text("hyphenation")),
		content.Par(content.Text("hyphenation")),
	)
	got := hyphenateNode(root, h, false)
	if got == root {
		t.Fatal("paragraph under the sequence should have changed")
	}

	if got.Children()[0] != root.Children()[0] {
		t.Error("untouched heading subtree was rebuilt")
	}
	body, _ := got.Children()[1].Field("body")
	if !strings.Contains(body.(*content.Node).Text(), text.SOFTHYPHEN) {
		t.Error("paragraph text has no soft hyphens")
	}
}

func TestHyphenateNodeStyledWrapper(t *testing.T) {
	h := text.NewHyphenator(language.English, zaptest.NewLogger(t))
	if h == nil {
		t.Fatal("no English hyphenation dictionary")
	}

	styled := content.Styled(content.Text("hyphenation"), content.Set(content.KindText, "size", geom.Pt(9)))
	got := hyphenateNode(styled, h, false)
	if got == styled {
		t.Fatal("styled wrapper content should have changed")
	}
	if !got.IsStyled() {
		t.Fatalf("rebuilt node op = %v, want styled", got.Op())
	}
	inner, entries := got.StyledInner()
	if !strings.Contains(inner.Text(), text.SOFTHYPHEN) {
		t.Error("inner text has no soft hyphens")
	}
	if len(entries) != 1 {
		t.Errorf("rebuilt wrapper has %d entries, want 1", len(entries))
	}
}

func TestHyphenateTreeBadLanguage(t *testing.T) {
	root := content.Par(content.Text("hyphenation"))

	if got := hyphenateTree(root, "!!!", zaptest.NewLogger(t)); got != root {
		t.Error("unparsable language should leave the tree alone")
	}
}

func TestHyphenateTreeUnsupportedLanguage(t *testing.T) {
	root := content.Par(content.Text("hyphenation"))

	if got := hyphenateTree(root, "zu", zaptest.NewLogger(t)); got != root {
		t.Error("language without a dictionary should leave the tree alone")
	}
}
