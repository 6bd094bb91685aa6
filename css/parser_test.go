package css_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"dtc/content"
	"dtc/css"
	"dtc/diag"
	"dtc/geom"
)

func parseSheet(t *testing.T, src string) *css.Sheet {
	t.Helper()
	sheet, err := css.NewParser(zaptest.NewLogger(t)).Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return sheet
}

func TestDeclarationsBecomeSetEntries(t *testing.T) {
	sheet := parseSheet(t, `
		text { font-size: 12pt; lang: "de"; hyphens: auto }
		par { line-height: 14pt; text-align: justify }
		heading { numbering: "1." }
	`)

	want := []content.Entry{
		content.Set(content.KindText, "size", geom.Pt(12)),
		content.Set(content.KindText, "lang", "de"),
		content.Set(content.KindText, "hyphenate", true),
		content.Set(content.KindPar, "leading", geom.Pt(14)),
		content.Set(content.KindPar, "justify", true),
		content.Set(content.KindHeading, "numbering", "1."),
	}
	if !reflect.DeepEqual(sheet.Entries, want) {
		t.Errorf("entries = %+v, want %+v", sheet.Entries, want)
	}
	if len(sheet.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", sheet.Warnings)
	}
}

func TestLaterRuleWinsOnTheChain(t *testing.T) {
	sheet := parseSheet(t, `
		text { font-size: 12pt }
		text { font-size: 14pt }
	`)

	got, ok := sheet.Chain().Get(content.KindText, "size")
	if !ok {
		t.Fatal("size not found on the chain")
	}
	if got != geom.Pt(14) {
		t.Errorf("size = %v, want %v", got, geom.Pt(14))
	}
}

func TestGroupedSelectorsShareDeclarations(t *testing.T) {
	sheet := parseSheet(t, `par, block { margin-bottom: 8pt }`)

	want := []content.Entry{
		content.Set(content.KindPar, "spacing", geom.Pt(8)),
		content.Set(content.KindBlock, "below", geom.Pt(8)),
	}
	if !reflect.DeepEqual(sheet.Entries, want) {
		t.Errorf("entries = %+v, want %+v", sheet.Entries, want)
	}
}

func TestLabelRuleBecomesShowSet(t *testing.T) {
	sheet := parseSheet(t, `#intro { font-style: italic; margin-bottom: 6pt }`)

	if len(sheet.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(sheet.Entries))
	}
	rec, ok := sheet.Entries[0].(content.Recipe)
	if !ok {
		t.Fatalf("entry is %T, want a recipe", sheet.Entries[0])
	}
	if rec.Sel.Variant() != content.SelLabel || rec.Sel.TargetLabel() != "intro" {
		t.Errorf("selector = %s, want label intro", rec.Sel)
	}
	if rec.Transform.Kind() != content.TransformSet {
		t.Fatalf("transform kind = %v, want show-set", rec.Transform.Kind())
	}
	want := []content.Property{
		content.Set(content.KindText, "italic", true),
		content.Set(content.KindPar, "spacing", geom.Pt(6)),
	}
	if got := rec.Transform.SetProps(); !reflect.DeepEqual(got, want) {
		t.Errorf("props = %+v, want %+v", got, want)
	}
}

func TestPageAtRule(t *testing.T) {
	sheet := parseSheet(t, `@page {
		width: 150mm;
		height: 200mm;
		margin: 15mm;
		column-count: 2;
	}`)

	want := []content.Entry{
		content.Set(content.KindPage, "width", geom.Mm(150)),
		content.Set(content.KindPage, "height", geom.Mm(200)),
		content.Set(content.KindPage, "margin", geom.Mm(15)),
		content.Set(content.KindPage, "columns", 2),
	}
	if !reflect.DeepEqual(sheet.Entries, want) {
		t.Errorf("entries = %+v, want %+v", sheet.Entries, want)
	}
}

func TestFontWeightMapsToDelta(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want int
	}{
		{"bold", `text { font-weight: bold }`, 300},
		{"normal", `text { font-weight: normal }`, 0},
		{"numeric", `text { font-weight: 600 }`, 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sheet := parseSheet(t, tc.src)
			got, ok := sheet.Chain().Get(content.KindText, "weight-delta")
			if !ok {
				t.Fatal("weight-delta not found on the chain")
			}
			if got != tc.want {
				t.Errorf("weight-delta = %v, want %d", got, tc.want)
			}
		})
	}
}

func TestSchemaViolationsAreStyleErrors(t *testing.T) {
	cases := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{"unknown property", `text { colour: red }`, `"colour" cannot be set on text`},
		{"unknown kind", `chapter { font-size: 10pt }`, `selector "chapter" does not name an element kind`},
		{"bad value", `par { line-height: red }`, `want a length`},
		{"required field", `par { body: "x" }`, `"body" cannot be set on par`},
		{"unsupported unit", `text { font-size: 2em }`, `unit "em" is not supported`},
		{"fractional weight", `text { font-weight: 650.5 }`, `not supported`},
	}
	p := css.NewParser(zaptest.NewLogger(t))
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Parse([]byte(tc.src))
			if err == nil {
				t.Fatal("Parse succeeded, want a style error")
			}
			var styleErr *diag.Error
			if !errors.As(err, &styleErr) {
				t.Fatalf("error is %T, want *diag.Error", err)
			}
			if styleErr.Code != diag.CodeStyle {
				t.Errorf("code = %v, want %v", styleErr.Code, diag.CodeStyle)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tc.wantMsg)
			}
		})
	}
}

func TestValidDeclarationsSurviveAnError(t *testing.T) {
	sheet, err := css.NewParser(zaptest.NewLogger(t)).Parse([]byte(
		`text { font-size: 12pt; colour: red }`,
	))
	if err == nil {
		t.Fatal("Parse succeeded, want a style error")
	}

	want := []content.Entry{content.Set(content.KindText, "size", geom.Pt(12))}
	if !reflect.DeepEqual(sheet.Entries, want) {
		t.Errorf("entries = %+v, want %+v", sheet.Entries, want)
	}
}

func TestUnsupportedSelectorsWarn(t *testing.T) {
	sheet := parseSheet(t, `
		p > code { font-size: 1pt }
		.note { font-size: 1pt }
		text:hover { font-size: 1pt }
		text#x { font-size: 1pt }
	`)

	if len(sheet.Entries) != 0 {
		t.Errorf("entries = %+v, want none", sheet.Entries)
	}
	if len(sheet.Warnings) != 4 {
		t.Fatalf("warnings = %d, want 4: %v", len(sheet.Warnings), sheet.Warnings)
	}
	for _, w := range sheet.Warnings {
		if !strings.Contains(w.Message, "unsupported selector") {
			t.Errorf("warning %q does not mention the selector", w)
		}
	}
}

func TestUnknownAtRulesAreSkipped(t *testing.T) {
	sheet := parseSheet(t, `
		/* reader chrome */
		@media print { text { font-size: 8pt } }
		@font-face { font-family: "Gentium"; src: url(gentium.ttf) }
		text { font-size: 10pt }
	`)

	want := []content.Entry{content.Set(content.KindText, "size", geom.Pt(10))}
	if !reflect.DeepEqual(sheet.Entries, want) {
		t.Errorf("entries = %+v, want %+v", sheet.Entries, want)
	}
	if len(sheet.Warnings) != 2 {
		t.Errorf("warnings = %d, want 2: %v", len(sheet.Warnings), sheet.Warnings)
	}
}

func TestSourceNameLandsInSpans(t *testing.T) {
	p := css.NewParser(zaptest.NewLogger(t))

	sheet, err := p.Parse([]byte(`text { font-size: 12pt; colour: red }`), "styles.css")
	if err == nil {
		t.Fatal("Parse succeeded, want a style error")
	}
	var styleErr *diag.Error
	if !errors.As(err, &styleErr) {
		t.Fatalf("error is %T, want *diag.Error", err)
	}
	if styleErr.Span.File != "styles.css" {
		t.Errorf("span file = %q, want styles.css", styleErr.Span.File)
	}
	if !strings.Contains(err.Error(), "(at styles.css)") {
		t.Errorf("error %q does not carry the source name", err)
	}

	prop, ok := sheet.Entries[0].(content.Property)
	if !ok {
		t.Fatalf("entry is %T, want a property", sheet.Entries[0])
	}
	if prop.Span != (diag.Span{File: "styles.css"}) {
		t.Errorf("entry span = %v, want styles.css", prop.Span)
	}
}
