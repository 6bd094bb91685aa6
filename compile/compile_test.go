package compile

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"dtc/assets"
	"dtc/content"
	"dtc/diag"
	"dtc/geom"
	"dtc/layout"
	"dtc/text"
)

func newTestCompiler(t *testing.T) *Compiler {
	t.Helper()
	m, err := text.NewMeasurer()
	if err != nil {
		t.Fatalf("NewMeasurer() failed: %v", err)
	}
	log := zaptest.NewLogger(t)
	return New(m, assets.NewLoader(t.TempDir(), log), log)
}

func compileDoc(t *testing.T, root *content.Node, styles *content.Chain) *Result {
	t.Helper()
	res, err := newTestCompiler(t).Compile(context.Background(), root, styles)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	return res
}

func smallPage(extra ...content.Entry) *content.Chain {
	entries := []content.Entry{
		content.Set(content.KindPage, "width", geom.Pt(200)),
		content.Set(content.KindPage, "height", geom.Pt(150)),
		content.Set(content.KindPage, "margin", geom.Pt(10)),
	}
	return content.NewChain(append(entries, extra...)...)
}

type placedText struct {
	text string
	x, y float64
}

func pageTexts(f *layout.Frame) []placedText {
	var out []placedText
	f.Walk(func(at geom.Point, it layout.Item) {
		if v, ok := it.(layout.TextItem); ok {
			out = append(out, placedText{text: v.Text, x: at.X.Pt(), y: at.Y.Pt()})
		}
	})
	return out
}

func hasText(ts []placedText, s string) bool {
	for _, pt := range ts {
		if pt.text == s {
			return true
		}
	}
	return false
}

func TestPlainDocumentConvergesInTwoPasses(t *testing.T) {
	res := compileDoc(t, content.Par(content.Text("hello")), smallPage())

	if got := len(res.Document.Pages); got != 1 {
		t.Fatalf("got %d pages, want 1", got)
	}
	if !hasText(pageTexts(res.Document.Pages[0].Frame), "hello") {
		t.Error("body text missing from the page")
	}
	// pass one discovers the page, pass two confirms nothing moved
	if res.Passes != 2 {
		t.Errorf("Passes = %d, want 2", res.Passes)
	}
}

func TestFooterPageNumbersConverge(t *testing.T) {
	root := content.Seq(
		content.Par(content.Text("alpha")),
		content.Pagebreak(false),
		content.Par(content.Text("beta")),
	)
	res := compileDoc(t, root, smallPage(content.Set(content.KindPage, "numbering", "1")))

	if got := len(res.Document.Pages); got != 2 {
		t.Fatalf("got %d pages, want 2", got)
	}
	first := pageTexts(res.Document.Pages[0].Frame)
	second := pageTexts(res.Document.Pages[1].Frame)
	if !hasText(first, "alpha") || !hasText(first, "1") {
		t.Errorf("page 1 texts = %v, want body and footer number", first)
	}
	if !hasText(second, "beta") || !hasText(second, "2") {
		t.Errorf("page 2 texts = %v, want body and footer number", second)
	}
	if hasText(second, "1") {
		t.Errorf("page 2 still shows the footer number of page 1")
	}
	if res.Passes < 2 || res.Passes > 4 {
		t.Errorf("Passes = %d, want between 2 and 4", res.Passes)
	}
}

func TestSeededCompilationConvergesImmediately(t *testing.T) {
	root := content.Seq(
		content.Par(content.Text("alpha")),
		content.Pagebreak(false),
		content.Par(content.Text("beta")),
	)
	styles := smallPage(content.Set(content.KindPage, "numbering", "1"))
	first := compileDoc(t, root, styles)

	c := newTestCompiler(t)
	c.Seed = first.Info
	res, err := c.Compile(context.Background(), root, styles)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if res.Passes != 1 {
		t.Errorf("seeded compilation took %d passes, want 1", res.Passes)
	}
	if got, want := len(res.Document.Pages), len(first.Document.Pages); got != want {
		t.Fatalf("got %d pages, want %d", got, want)
	}
	for i := range res.Document.Pages {
		got := pageTexts(res.Document.Pages[i].Frame)
		want := pageTexts(first.Document.Pages[i].Frame)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("page %d: texts = %v, want %v", i+1, got, want)
		}
	}
}

func TestRefResolvesHeadingNumber(t *testing.T) {
	root := content.Seq(
		content.Heading(1, content.Text("Intro")).Labeled("intro"),
		content.Par(content.Text("see"), content.Text(" "), content.Ref("intro")),
	)
	res := compileDoc(t, root, smallPage(
		content.Set(content.KindHeading, "numbering", "1."),
	))

	count := 0
	for _, pt := range pageTexts(res.Document.Pages[0].Frame) {
		if pt.text == "1." {
			count++
		}
	}
	// once in the heading itself, once in the reference
	if count != 2 {
		t.Errorf("found %d runs of the heading number, want 2", count)
	}
}

func TestRefSupplementPrecedesNumber(t *testing.T) {
	ref := content.New(content.KindRef,
		content.F("target", content.Label("intro")),
		content.F("supplement", "Section"),
	)
	root := content.Seq(
		content.Heading(1, content.Text("Intro")).Labeled("intro"),
		content.Par(ref),
	)
	res := compileDoc(t, root, smallPage(
		content.Set(content.KindHeading, "numbering", "1."),
	))

	ts := pageTexts(res.Document.Pages[0].Frame)
	if !hasText(ts, "Section") {
		t.Errorf("texts = %v, want the supplement word", ts)
	}
}

func TestMissingRefLabelFails(t *testing.T) {
	root := content.Par(content.Text("see"), content.Text(" "), content.Ref("nowhere"))
	res, err := newTestCompiler(t).Compile(context.Background(), root, smallPage())
	if err == nil {
		t.Fatal("Compile() succeeded, want missing label error")
	}
	if res != nil {
		t.Error("got a result alongside the error")
	}
	var de *diag.Error
	if !errors.As(err, &de) {
		t.Fatalf("error type = %T, want *diag.Error", err)
	}
	if de.Code != diag.CodeIntrospection {
		t.Errorf("Code = %v, want introspection", de.Code)
	}
	if !strings.Contains(de.Message, "does not exist") {
		t.Errorf("Message = %q, want a missing label message", de.Message)
	}
}

func TestContextReadsStateAtItsPosition(t *testing.T) {
	show := content.Context(func(ctx *Ctx) (*content.Node, error) {
		v, _ := ctx.State("author").(string)
		return content.Text(v), nil
	})
	root := content.Seq(
		content.UpdateState("author", content.StateSet("bierce")),
		content.Par(content.Text("by"), content.Text(" "), show),
	)
	res := compileDoc(t, root, smallPage())

	if ts := pageTexts(res.Document.Pages[0].Frame); !hasText(ts, "bierce") {
		t.Errorf("texts = %v, want the state value", ts)
	}
}

func TestCounterDisplayShowsRunningValue(t *testing.T) {
	fig := content.NamedCounter("figure")
	root := content.Par(
		content.UpdateCounter(fig, content.CounterStep(1)),
		content.DisplayCounter(fig, "1"),
		content.Text(" "),
		content.UpdateCounter(fig, content.CounterStep(1)),
		content.DisplayCounter(fig, "1"),
	)
	res := compileDoc(t, root, smallPage())

	ts := pageTexts(res.Document.Pages[0].Frame)
	if !hasText(ts, "1") || !hasText(ts, "2") {
		t.Errorf("texts = %v, want both running counter values", ts)
	}
}

func TestFooterContextShowsPageOfTotal(t *testing.T) {
	footer := content.Context(func(ctx *Ctx) (*content.Node, error) {
		return content.Text(fmt.Sprintf("%d/%d", ctx.Page(), ctx.Pages())), nil
	})
	root := content.Seq(
		content.Par(content.Text("alpha")),
		content.Pagebreak(false),
		content.Par(content.Text("beta")),
	)
	res := compileDoc(t, root, smallPage(content.Set(content.KindPage, "footer", footer)))

	if got := len(res.Document.Pages); got != 2 {
		t.Fatalf("got %d pages, want 2", got)
	}
	if ts := pageTexts(res.Document.Pages[0].Frame); !hasText(ts, "1/2") {
		t.Errorf("page 1 texts = %v, want 1/2", ts)
	}
	if ts := pageTexts(res.Document.Pages[1].Frame); !hasText(ts, "2/2") {
		t.Errorf("page 2 texts = %v, want 2/2", ts)
	}
}

func TestSelfGrowingQueryFailsToConverge(t *testing.T) {
	grow := func(ctx *Ctx) (*content.Node, error) {
		n := len(ctx.Query(content.SelectKind(content.KindMetadata)))
		parts := []*content.Node{content.Text(strconv.Itoa(n))}
		for i := 0; i <= n; i++ {
			parts = append(parts, content.Metadata(i))
		}
		return content.Seq(parts...), nil
	}

	t.Run("default bound", func(t *testing.T) {
		root := content.Par(content.Context(grow))
		res, err := newTestCompiler(t).Compile(context.Background(), root, smallPage())
		if err == nil {
			t.Fatal("Compile() succeeded, want convergence error")
		}
		if res != nil {
			t.Error("got a result alongside the error")
		}
		var de *diag.Error
		if !errors.As(err, &de) {
			t.Fatalf("error type = %T, want *diag.Error", err)
		}
		if de.Code != diag.CodeConvergence {
			t.Errorf("Code = %v, want convergence", de.Code)
		}
		if !strings.Contains(de.Message, "5 attempts") {
			t.Errorf("Message = %q, want the default pass bound", de.Message)
		}
	})

	t.Run("max-passes lowers the bound", func(t *testing.T) {
		root := content.Par(content.Context(grow))
		styles := smallPage(content.Set(content.KindDocument, "max-passes", 2))
		_, err := newTestCompiler(t).Compile(context.Background(), root, styles)
		if err == nil {
			t.Fatal("Compile() succeeded, want convergence error")
		}
		if !strings.Contains(err.Error(), "2 attempts") {
			t.Errorf("error = %v, want the configured pass bound", err)
		}
	})
}

func TestCancellationStopsBetweenPasses(t *testing.T) {
	t.Run("canceled before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestCompiler(t).Compile(ctx, content.Par(content.Text("x")), smallPage())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})

	t.Run("canceled during a pass", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		seen := 0
		show := content.Context(func(*Ctx) (*content.Node, error) {
			seen++
			cancel()
			return content.Text("x"), nil
		})
		res, err := newTestCompiler(t).Compile(ctx, content.Par(show), smallPage())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if res != nil {
			t.Error("got a result from a canceled compilation")
		}
		if seen != 1 {
			t.Errorf("closure ran %d times, want 1 (first pass only)", seen)
		}
	})
}

func TestMeasureStaysOutOfDocument(t *testing.T) {
	var measured geom.Size
	show := content.Context(func(ctx *Ctx) (*content.Node, error) {
		size, err := ctx.Measure(content.Seq(
			content.Metadata("ghost"),
			content.Par(content.Text("sample")),
		))
		if err != nil {
			return nil, err
		}
		measured = size
		return content.Text("measured"), nil
	})
	root := content.Seq(
		content.Par(show),
		content.Metadata("real"),
	)
	res := compileDoc(t, root, smallPage())

	if !hasText(pageTexts(res.Document.Pages[0].Frame), "measured") {
		t.Error("context output missing from the page")
	}
	if measured.H <= 0 {
		t.Errorf("measured height = %v, want positive", measured.H)
	}
	// 200pt page minus 10pt margins
	if got := measured.W.Pt(); got < 179.9 || got > 180.1 {
		t.Errorf("measured width = %g, want the column width 180", got)
	}
	if got := res.Metadata(); !reflect.DeepEqual(got, []any{"real"}) {
		t.Errorf("Metadata() = %v, want only the marker outside the measurement", got)
	}
}

func TestMetadataCollectedInOrder(t *testing.T) {
	root := content.Seq(
		content.Metadata("alpha"),
		content.Par(content.Text("body")),
		content.Metadata(42),
	)
	res := compileDoc(t, root, smallPage())

	if got := res.Metadata(); !reflect.DeepEqual(got, []any{"alpha", 42}) {
		t.Errorf("Metadata() = %v, want [alpha 42]", got)
	}
}

func TestTimestampAndIDSampledOncePerCompilation(t *testing.T) {
	fixed := time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC)
	var stamps []time.Time
	var ids []uuid.UUID
	show := content.Context(func(ctx *Ctx) (*content.Node, error) {
		stamps = append(stamps, ctx.Now())
		ids = append(ids, ctx.DocumentID())
		return content.Text("x"), nil
	})

	c := newTestCompiler(t)
	c.Clock = func() time.Time { return fixed }
	res, err := c.Compile(context.Background(), content.Par(show), smallPage())
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if res.CreatedAt != fixed {
		t.Errorf("CreatedAt = %v, want the clock value", res.CreatedAt)
	}
	if len(stamps) < 2 {
		t.Fatalf("closure ran %d times, want at least 2 passes", len(stamps))
	}
	for i, s := range stamps {
		if s != fixed {
			t.Errorf("pass %d saw timestamp %v, want %v", i+1, s, fixed)
		}
	}
	for i, id := range ids {
		if id != res.ID {
			t.Errorf("pass %d saw document id %v, want %v", i+1, id, res.ID)
		}
	}
}
