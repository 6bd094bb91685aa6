package content

import "dtc/geom"

// Built-in element kinds. The registry stays open: loaders may register
// additional kinds, including open ones accepting arbitrary fields.
var (
	// KindText styles raw text runs. Text nodes have no fields of their own;
	// these are resolved through the style chain. The weight delta and
	// italic toggle fold, so nested strong/emph scopes combine the way
	// nested emphasis should: doubled strong grows bolder, doubled emphasis
	// cancels out.
	KindText = RegisterKind(KindInfo{
		Name: "text",
		Fields: []FieldSpec{
			{Name: "size", Default: geom.Pt(11)},
			{Name: "weight-delta", Default: 0, Fold: foldSum},
			{Name: "italic", Default: false, Fold: foldToggle},
			{Name: "lang", Default: "en"},
			{Name: "hyphenate", Default: false},
		},
	})

	// KindDocument is set-only: document metadata comes from set rules on it.
	KindDocument = RegisterKind(KindInfo{
		Name:    "document",
		SetOnly: true,
		Fields: []FieldSpec{
			{Name: "title", Default: ""},
			{Name: "author", Default: ""},
			{Name: "id", Default: ""},
			{Name: "max-passes", Default: 5},
		},
	})

	// KindPage is set-only page configuration. Set rules on it at flow scope
	// introduce page boundaries.
	KindPage = RegisterKind(KindInfo{
		Name:    "page",
		SetOnly: true,
		Fields: []FieldSpec{
			{Name: "width", Default: geom.Mm(210)},
			{Name: "height", Default: geom.Mm(297)},
			{Name: "margin", Default: geom.Cm(2.5)},
			{Name: "columns", Default: 1},
			{Name: "gutter", Default: geom.Pt(12)},
			{Name: "header", Default: (*Node)(nil)},
			{Name: "footer", Default: (*Node)(nil)},
			{Name: "numbering", Default: ""},
		},
	})

	KindPar = RegisterKind(KindInfo{
		Name:  "par",
		Block: true,
		Fields: []FieldSpec{
			{Name: "body", Required: true},
			{Name: "leading", Default: geom.Pt(7)},
			{Name: "spacing", Default: geom.Pt(12)},
			{Name: "justify", Default: false},
		},
	})

	KindParbreak = RegisterKind(KindInfo{Name: "parbreak", Block: true})

	KindHeading = RegisterKind(KindInfo{
		Name:      "heading",
		Block:     true,
		Locatable: true,
		Fields: []FieldSpec{
			{Name: "body", Required: true},
			{Name: "level", Default: 1},
			{Name: "numbering", Default: ""},
		},
	})

	KindStrong = RegisterKind(KindInfo{
		Name: "strong",
		Fields: []FieldSpec{
			{Name: "body", Required: true},
			{Name: "delta", Default: 300},
		},
	})

	KindEmph = RegisterKind(KindInfo{
		Name:   "emph",
		Fields: []FieldSpec{{Name: "body", Required: true}},
	})

	KindList = RegisterKind(KindInfo{
		Name:  "list",
		Block: true,
		Fields: []FieldSpec{
			{Name: "items", Required: true},
			{Name: "marker", Default: "•"},
			{Name: "indent", Default: geom.Pt(12)},
		},
	})

	KindBlock = RegisterKind(KindInfo{
		Name:  "block",
		Block: true,
		Fields: []FieldSpec{
			{Name: "body", Default: (*Node)(nil)},
			{Name: "breakable", Default: true},
			{Name: "sticky", Default: false},
			{Name: "above", Default: geom.Pt(-1)},
			{Name: "below", Default: geom.Pt(-1)},
		},
	})

	KindVSpace = RegisterKind(KindInfo{
		Name:  "v",
		Block: true,
		Fields: []FieldSpec{
			{Name: "amount", Default: geom.Pt(0)},
			{Name: "fr", Default: geom.Fr(0)},
			{Name: "weak", Default: false},
		},
	})

	KindPagebreak = RegisterKind(KindInfo{
		Name:  "pagebreak",
		Block: true,
		Fields: []FieldSpec{
			{Name: "weak", Default: false},
			{Name: "to", Default: ""},
		},
	})

	KindColbreak = RegisterKind(KindInfo{
		Name:   "colbreak",
		Block:  true,
		Fields: []FieldSpec{{Name: "weak", Default: false}},
	})

	KindLine = RegisterKind(KindInfo{
		Name:  "line",
		Block: true,
		Fields: []FieldSpec{
			{Name: "length", Default: geom.Ratio(1)},
			{Name: "thickness", Default: geom.Pt(1)},
		},
	})

	KindImage = RegisterKind(KindInfo{
		Name:      "image",
		Block:     true,
		Locatable: true,
		Fields: []FieldSpec{
			{Name: "source", Required: true},
			{Name: "width", Default: geom.Pt(0)},
			{Name: "height", Default: geom.Pt(0)},
			{Name: "alt", Default: ""},
		},
	})

	KindFootnote = RegisterKind(KindInfo{
		Name:      "footnote",
		Locatable: true,
		Fields: []FieldSpec{
			{Name: "body", Required: true},
			{Name: "numbering", Default: "1"},
		},
	})

	KindPlace = RegisterKind(KindInfo{
		Name:      "place",
		Block:     true,
		Locatable: true,
		Fields: []FieldSpec{
			{Name: "body", Required: true},
			{Name: "placement", Default: "auto"},
			{Name: "scope", Default: "column"},
			{Name: "clearance", Default: geom.Pt(12)},
		},
	})

	KindFlush = RegisterKind(KindInfo{Name: "flush", Block: true})

	KindCounterUpdate = RegisterKind(KindInfo{
		Name:      "counter-update",
		Locatable: true,
		Fields: []FieldSpec{
			{Name: "key", Required: true},
			{Name: "update", Required: true},
		},
	})

	KindCounterDisplay = RegisterKind(KindInfo{
		Name:      "counter-display",
		Locatable: true,
		Fields: []FieldSpec{
			{Name: "key", Required: true},
			{Name: "pattern", Default: "1"},
			{Name: "final", Default: false},
		},
	})

	KindStateUpdate = RegisterKind(KindInfo{
		Name:      "state-update",
		Locatable: true,
		Fields: []FieldSpec{
			{Name: "key", Required: true},
			{Name: "update", Required: true},
		},
	})

	KindContext = RegisterKind(KindInfo{
		Name:      "context",
		Locatable: true,
		Fields:    []FieldSpec{{Name: "func", Required: true}},
	})

	KindMetadata = RegisterKind(KindInfo{
		Name:      "metadata",
		Locatable: true,
		Fields:    []FieldSpec{{Name: "value", Required: true}},
	})

	KindRef = RegisterKind(KindInfo{
		Name:      "ref",
		Locatable: true,
		Fields: []FieldSpec{
			{Name: "target", Required: true},
			{Name: "supplement", Default: ""},
		},
	})

	// KindGeneric is the registry fallback for loaded content whose tag is
	// not a registered kind. It is open so the source tag and every
	// attribute survive as fields for show rules to match on; its default
	// look dissolves into the body.
	KindGeneric = RegisterKind(KindInfo{
		Name: "generic",
		Open: true,
		Fields: []FieldSpec{
			{Name: "tag", Default: ""},
			{Name: "body", Default: (*Node)(nil)},
		},
	})
)

func foldSum(inner, outer any) any {
	return inner.(int) + outer.(int)
}

func foldToggle(inner, outer any) any {
	return inner.(bool) != outer.(bool)
}

// Convenience constructors for built-in elements.

func Heading(level int, body *Node) *Node {
	return New(KindHeading, F("body", body), F("level", level))
}

func Par(children ...*Node) *Node {
	return New(KindPar, F("body", Seq(children...)))
}

func Strong(body *Node) *Node { return New(KindStrong, F("body", body)) }

func Emph(body *Node) *Node { return New(KindEmph, F("body", body)) }

func ListOf(items ...*Node) *Node {
	return New(KindList, F("items", items))
}

func BlockOf(body *Node) *Node { return New(KindBlock, F("body", body)) }

func VSpace(amount geom.Abs) *Node {
	return New(KindVSpace, F("amount", amount))
}

func VSpaceWeak(amount geom.Abs) *Node {
	return New(KindVSpace, F("amount", amount), F("weak", true))
}

func VFr(fr geom.Fr) *Node {
	return New(KindVSpace, F("fr", fr))
}

func Parbreak() *Node { return New(KindParbreak) }

func Pagebreak(weak bool) *Node {
	return New(KindPagebreak, F("weak", weak))
}

// PagebreakTo breaks to the next page of the given parity, "odd" or "even".
func PagebreakTo(parity string) *Node {
	return New(KindPagebreak, F("to", parity))
}

func Colbreak(weak bool) *Node {
	return New(KindColbreak, F("weak", weak))
}

func LineRule() *Node { return New(KindLine) }

func Image(source string) *Node {
	return New(KindImage, F("source", source))
}

func Footnote(body *Node) *Node {
	return New(KindFootnote, F("body", body))
}

func Place(body *Node, placement string) *Node {
	return New(KindPlace, F("body", body), F("placement", placement))
}

func Flush() *Node { return New(KindFlush) }

func UpdateCounter(key CounterKey, u CounterUpdate) *Node {
	return New(KindCounterUpdate, F("key", key), F("update", u))
}

func DisplayCounter(key CounterKey, pattern string) *Node {
	return New(KindCounterDisplay, F("key", key), F("pattern", pattern))
}

func UpdateState(key string, u StateUpdate) *Node {
	return New(KindStateUpdate, F("key", key), F("update", u))
}

// Context defers realization until an introspector snapshot exists. The
// function value's signature is owned by the driver package.
func Context(fn any) *Node {
	return New(KindContext, F("func", fn))
}

func Metadata(value any) *Node {
	return New(KindMetadata, F("value", value))
}

func Ref(target Label) *Node {
	return New(KindRef, F("target", target))
}
