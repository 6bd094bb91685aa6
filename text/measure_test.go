package text

import (
	"testing"

	"dtc/geom"
)

func TestMeasurerAdvance(t *testing.T) {
	m, err := NewMeasurer()
	if err != nil {
		t.Fatalf("NewMeasurer() failed: %v", err)
	}
	style := Style{Size: geom.Pt(11), Weight: 400}

	if empty := m.Advance("", style); !empty.IsZero() {
		t.Errorf("empty string advance = %v, want 0", empty)
	}

	one := m.Advance("m", style)
	two := m.Advance("mm", style)
	if one <= 0 {
		t.Errorf("advance of %q = %v, want > 0", "m", one)
	}
	if two <= one {
		t.Errorf("advance %v of %q should exceed %v of %q", two, "mm", one, "m")
	}
}

func TestMeasurerAdvanceScalesWithSize(t *testing.T) {
	m, err := NewMeasurer()
	if err != nil {
		t.Fatalf("NewMeasurer() failed: %v", err)
	}

	small := m.Advance("word", Style{Size: geom.Pt(10)})
	large := m.Advance("word", Style{Size: geom.Pt(20)})
	if large <= small {
		t.Errorf("20pt advance %v should exceed 10pt advance %v", large, small)
	}
}

func TestMeasurerSkipsSoftHyphens(t *testing.T) {
	m, err := NewMeasurer()
	if err != nil {
		t.Fatalf("NewMeasurer() failed: %v", err)
	}
	style := Style{Size: geom.Pt(11)}

	plain := m.Advance("computer", style)
	soft := m.Advance("com"+SOFTHYPHEN+"puter", style)
	if !plain.ApproxEq(soft) {
		t.Errorf("soft hyphen changed advance: %v vs %v", soft, plain)
	}
}

func TestMeasurerLineMetrics(t *testing.T) {
	m, err := NewMeasurer()
	if err != nil {
		t.Fatalf("NewMeasurer() failed: %v", err)
	}

	lm := m.Line(Style{Size: geom.Pt(11)})
	if lm.Ascent <= 0 || lm.Descent <= 0 {
		t.Errorf("metrics = %+v, want positive ascent and descent", lm)
	}
	if lm.Ascent <= lm.Descent {
		t.Errorf("ascent %v should exceed descent %v", lm.Ascent, lm.Descent)
	}
	if lm.Height() != lm.Ascent+lm.Descent {
		t.Errorf("Height() = %v", lm.Height())
	}

	if bigger := m.Line(Style{Size: geom.Pt(22)}); bigger.Height() <= lm.Height() {
		t.Errorf("22pt line %v should be taller than 11pt line %v", bigger.Height(), lm.Height())
	}
}

func TestMeasurerFaceSelection(t *testing.T) {
	if (Style{Weight: 400}).Bold() {
		t.Error("weight 400 should not be bold")
	}
	if !(Style{Weight: 700}).Bold() {
		t.Error("weight 700 should be bold")
	}
	if !(Style{Weight: 600}).Bold() {
		t.Error("weight 600 starts the bold range")
	}
}

func TestMeasurerSpaceWidth(t *testing.T) {
	m, err := NewMeasurer()
	if err != nil {
		t.Fatalf("NewMeasurer() failed: %v", err)
	}
	if w := m.SpaceWidth(Style{Size: geom.Pt(11)}); w <= 0 {
		t.Errorf("space width = %v, want > 0", w)
	}
}
