package layout

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"dtc/content"
	"dtc/diag"
	"dtc/geom"
)

func testDistributor(first, rest geom.Abs) (*distributor, *diag.Sink) {
	sink := &diag.Sink{}
	e := &Engine{Warnings: sink, Log: zap.NewNop()}
	return &distributor{e: e, regions: Regions{Width: geom.Pt(100), First: first, Rest: rest}}, sink
}

func boxFrame(h float64) *Frame {
	f := NewFrame(geom.Size{W: geom.Pt(100), H: geom.Pt(h)})
	f.Push(geom.Point{}, RuleItem{Length: geom.Pt(100), Thickness: geom.Pt(h)})
	return f
}

func box(h float64) frameChild {
	return frameChild{frame: boxFrame(h)}
}

func weakSpace(amount float64) spacingChild {
	return spacingChild{amount: geom.Pt(amount), weak: true}
}

func floatOf(h float64, placement string, clearance float64) floatChild {
	return floatChild{frame: boxFrame(h), placement: placement, clearance: geom.Pt(clearance)}
}

// groupYs lists the vertical offsets of nested frames in push order.
func groupYs(f *Frame) []float64 {
	var ys []float64
	for _, it := range f.Items() {
		if _, ok := it.Item.(GroupItem); ok {
			ys = append(ys, it.At.Y.Pt())
		}
	}
	return ys
}

func wantYs(t *testing.T, f *Frame, want ...float64) {
	t.Helper()
	got := groupYs(f)
	if len(got) != len(want) {
		t.Fatalf("got %d groups at %v, want %d at %v", len(got), got, len(want), want)
	}
	for i := range want {
		if d := got[i] - want[i]; d > 0.01 || d < -0.01 {
			t.Errorf("group %d at %g, want %g", i, got[i], want[i])
		}
	}
}

func TestWeakSpacingCollapsesToStrongest(t *testing.T) {
	d, _ := testDistributor(geom.Pt(1000), geom.Pt(1000))
	frames, _ := d.run([]child{box(10), weakSpace(20), weakSpace(30), box(10)})
	if len(frames) != 1 {
		t.Fatalf("got %d regions, want 1", len(frames))
	}
	wantYs(t, frames[0], 0, 40)
}

func TestWeakSpacingVanishesAtRegionBounds(t *testing.T) {
	d, _ := testDistributor(geom.AbsInf(), geom.AbsInf())
	frames, _ := d.run([]child{weakSpace(30), box(10), weakSpace(30)})
	if len(frames) != 1 {
		t.Fatalf("got %d regions, want 1", len(frames))
	}
	if got := frames[0].Height(); !got.ApproxEq(geom.Pt(10)) {
		t.Errorf("natural height = %v, want 10pt", got)
	}
	wantYs(t, frames[0], 0)
}

func TestFractionalWeakBeatsAbsolute(t *testing.T) {
	d, _ := testDistributor(geom.Pt(100), geom.Pt(100))
	frames, _ := d.run([]child{
		box(10),
		spacingChild{fr: 1, weak: true},
		weakSpace(40),
		box(10),
	})
	if len(frames) != 1 {
		t.Fatalf("got %d regions, want 1", len(frames))
	}
	wantYs(t, frames[0], 0, 90)
}

func TestStrongSpacingSurvivesWeakAdjacency(t *testing.T) {
	t.Run("weak after strong", func(t *testing.T) {
		d, _ := testDistributor(geom.Pt(1000), geom.Pt(1000))
		frames, _ := d.run([]child{box(10), spacingChild{amount: geom.Pt(20)}, weakSpace(50), box(10)})
		wantYs(t, frames[0], 0, 30)
	})
	t.Run("weak before strong", func(t *testing.T) {
		d, _ := testDistributor(geom.Pt(1000), geom.Pt(1000))
		frames, _ := d.run([]child{box(10), weakSpace(50), spacingChild{amount: geom.Pt(20)}, box(10)})
		wantYs(t, frames[0], 0, 30)
	})
}

func TestFractionalSpacingSharesLeftover(t *testing.T) {
	d, _ := testDistributor(geom.Pt(90), geom.Pt(90))
	frames, _ := d.run([]child{
		box(10),
		spacingChild{fr: 1},
		box(10),
		spacingChild{fr: 1},
		box(10),
	})
	if len(frames) != 1 {
		t.Fatalf("got %d regions, want 1", len(frames))
	}
	wantYs(t, frames[0], 0, 40, 80)
}

func TestFractionalSpacingInertInUnboundedRegion(t *testing.T) {
	d, _ := testDistributor(geom.AbsInf(), geom.AbsInf())
	frames, _ := d.run([]child{box(10), spacingChild{fr: 1}, box(10)})
	if got := frames[0].Height(); !got.ApproxEq(geom.Pt(20)) {
		t.Errorf("natural height = %v, want 20pt", got)
	}
	wantYs(t, frames[0], 0, 10)
}

func TestContentBreaksAcrossRegions(t *testing.T) {
	d, _ := testDistributor(geom.Pt(25), geom.Pt(25))
	frames, _ := d.run([]child{box(10), box(10), box(10)})
	if len(frames) != 2 {
		t.Fatalf("got %d regions, want 2", len(frames))
	}
	wantYs(t, frames[0], 0, 10)
	wantYs(t, frames[1], 0)
}

func TestStickyRunMovesToNextRegion(t *testing.T) {
	d, _ := testDistributor(geom.Pt(50), geom.Pt(50))
	frames, _ := d.run([]child{
		box(20),
		frameChild{frame: boxFrame(10), sticky: true},
		box(30),
	})
	if len(frames) != 2 {
		t.Fatalf("got %d regions, want 2", len(frames))
	}
	wantYs(t, frames[0], 0)
	wantYs(t, frames[1], 0, 10)
}

func TestStickyAloneAtRegionTopStaysPut(t *testing.T) {
	d, sink := testDistributor(geom.Pt(50), geom.Pt(50))
	frames, _ := d.run([]child{
		frameChild{frame: boxFrame(10), sticky: true},
		box(100),
	})
	if len(frames) != 2 {
		t.Fatalf("got %d regions, want 2", len(frames))
	}
	wantYs(t, frames[0], 0)
	wantYs(t, frames[1], 0)
	if sink.Len() != 1 {
		t.Errorf("got %d warnings, want 1 overflow warning", sink.Len())
	}
}

func TestOversizedContentWarnsAndOverflows(t *testing.T) {
	d, sink := testDistributor(geom.Pt(50), geom.Pt(50))
	frames, _ := d.run([]child{box(80)})
	if len(frames) != 1 {
		t.Fatalf("got %d regions, want 1", len(frames))
	}
	ws := sink.Take()
	if len(ws) != 1 {
		t.Fatalf("got %d warnings, want 1", len(ws))
	}
	if !strings.Contains(ws[0].Message, "overflows its region") {
		t.Errorf("warning %q should mention the overflow", ws[0].Message)
	}
}

func TestFloatAutoPlacement(t *testing.T) {
	t.Run("upper half goes to the top", func(t *testing.T) {
		d, _ := testDistributor(geom.Pt(100), geom.Pt(100))
		frames, _ := d.run([]child{box(10), floatOf(20, "auto", 5), box(10)})
		if len(frames) != 1 {
			t.Fatalf("got %d regions, want 1", len(frames))
		}
		// float first at the very top, content shifted below it
		wantYs(t, frames[0], 0, 25, 35)
	})
	t.Run("lower half goes to the bottom", func(t *testing.T) {
		d, _ := testDistributor(geom.Pt(100), geom.Pt(100))
		frames, _ := d.run([]child{box(60), floatOf(20, "auto", 5), box(10)})
		if len(frames) != 1 {
			t.Fatalf("got %d regions, want 1", len(frames))
		}
		wantYs(t, frames[0], 0, 60, 80)
	})
}

func TestFloatQueuesToLaterRegionWhenFull(t *testing.T) {
	d, _ := testDistributor(geom.Pt(50), geom.Pt(50))
	frames, _ := d.run([]child{
		box(30),
		floatOf(30, "auto", 0),
		box(10),
		colbreakChild{},
		box(5),
	})
	if len(frames) != 2 {
		t.Fatalf("got %d regions, want 2", len(frames))
	}
	// first region keeps only the flow content
	wantYs(t, frames[0], 0, 30)
	// the float heads the next region, content after it
	wantYs(t, frames[1], 0, 30)
}

func TestFlushDrainsQueuedFloats(t *testing.T) {
	d, _ := testDistributor(geom.Pt(50), geom.Pt(50))
	frames, _ := d.run([]child{
		box(30),
		floatOf(30, "auto", 0),
		flushChild{},
		box(10),
	})
	if len(frames) != 2 {
		t.Fatalf("got %d regions, want 2", len(frames))
	}
	wantYs(t, frames[0], 0)
	wantYs(t, frames[1], 0, 30)
}

func TestFootnoteEntriesStayWithReference(t *testing.T) {
	d, _ := testDistributor(geom.Pt(100), geom.Pt(100))
	entry := boxFrame(20)
	frames, _ := d.run([]child{frameChild{frame: boxFrame(10), entries: []*Frame{entry}}})
	if len(frames) != 1 {
		t.Fatalf("got %d regions, want 1", len(frames))
	}
	// content at the top, entry pinned to the region bottom
	wantYs(t, frames[0], 0, 80)

	var sepY float64 = -1
	for _, it := range frames[0].Items() {
		if _, ok := it.Item.(RuleItem); ok {
			sepY = it.At.Y.Pt()
		}
	}
	if sepY < 0 {
		t.Fatal("no separator rule above the footnote area")
	}
	if sepY > 80 || sepY < 70 {
		t.Errorf("separator at %g, want between entry and content", sepY)
	}
}

func TestFootnoteForcedWithWarningWhenTooTall(t *testing.T) {
	d, sink := testDistributor(geom.Pt(50), geom.Pt(50))
	frames, _ := d.run([]child{
		box(30),
		frameChild{frame: boxFrame(10), entries: []*Frame{boxFrame(60)}},
	})
	if len(frames) != 2 {
		t.Fatalf("got %d regions, want 2", len(frames))
	}
	if sink.Len() != 1 {
		t.Errorf("got %d warnings, want 1", sink.Len())
	}
	// the reference and its oversized entry still share the final region
	if got := len(groupYs(frames[1])); got != 2 {
		t.Errorf("final region has %d groups, want reference and entry", got)
	}
}

func TestWeakColbreakSkipsWhenNothingSinceLast(t *testing.T) {
	d, _ := testDistributor(geom.Pt(100), geom.Pt(100))
	frames, _ := d.run([]child{
		colbreakChild{weak: true},
		box(10),
		colbreakChild{weak: true},
		colbreakChild{weak: true},
		box(10),
	})
	if len(frames) != 2 {
		t.Fatalf("got %d regions, want 2", len(frames))
	}
}

func TestTagsRideWithFollowingContent(t *testing.T) {
	elem := content.Heading(1, content.Text("h"))
	tag := content.Tag{Elem: elem, Loc: content.Location{Hi: 1, Lo: 2}}

	d, _ := testDistributor(geom.Pt(50), geom.Pt(50))
	frames, _ := d.run([]child{
		box(10),
		tagChild{tag: tag},
		colbreakChild{},
		box(10),
	})
	if len(frames) != 2 {
		t.Fatalf("got %d regions, want 2", len(frames))
	}

	count := func(f *Frame) int {
		n := 0
		f.WalkTags(func(content.Tag, geom.Point) { n++ })
		return n
	}
	if got := count(frames[0]); got != 0 {
		t.Errorf("first region holds %d tags, want 0", got)
	}
	if got := count(frames[1]); got != 1 {
		t.Errorf("second region holds %d tags, want 1", got)
	}
}
