package css

import (
	"fmt"
	"math"

	"dtc/content"
	"dtc/diag"
	"dtc/geom"
)

// Sheet is a parsed stylesheet: an ordered list of style entries ready to
// be pushed onto a chain, plus the non-fatal warnings collected while
// reading. Entry order follows the source, so a later rule overrides an
// earlier one exactly like a later Set call would.
type Sheet struct {
	Entries  []content.Entry
	Warnings []diag.Warning

	span diag.Span
	errs []error
}

// Chain builds a root style chain from the sheet's entries.
func (s *Sheet) Chain() *content.Chain {
	return content.NewChain(s.Entries...)
}

func (s *Sheet) warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, diag.Warning{Span: s.span, Message: fmt.Sprintf(format, args...)})
}

func (s *Sheet) errorf(format string, args ...any) {
	s.errs = append(s.errs, diag.Errorf(diag.CodeStyle, s.span, format, args...))
}

// valueForm discriminates what a declaration value was tokenized as.
type valueForm uint8

const (
	formNone valueForm = iota
	formNumber
	formDimension
	formPercent
	formIdent
	formString
	// formOther covers functions, hashes and multi-token values, which no
	// field accepts. The raw text survives for the error message.
	formOther
)

// value is one declaration value, reduced from the token stream.
type value struct {
	form    valueForm
	raw     string  // whitespace-normalized source text
	keyword string  // lowercased ident, or unquoted string
	num     float64 // number, dimension or percentage magnitude
	unit    string  // dimension unit, lowercased
}

// declaration is one `property: value` pair of a rule body.
type declaration struct {
	prop string
	val  value
}

// alias maps a conventional CSS spelling onto a schema field, with an
// optional value translation where the CSS vocabulary differs from the
// field's own.
type alias struct {
	field string
	conv  func(v value) (any, error)
}

// cssNames holds the CSS spellings accepted per kind on top of the direct
// field names.
var cssNames = map[content.Kind]map[string]alias{
	content.KindText: {
		"font-size":   {field: "size"},
		"font-style":  {field: "italic", conv: fontStyle},
		"font-weight": {field: "weight-delta", conv: fontWeight},
		"hyphens":     {field: "hyphenate", conv: hyphens},
	},
	content.KindPar: {
		"line-height":   {field: "leading"},
		"margin-bottom": {field: "spacing"},
		"text-align":    {field: "justify", conv: textAlign},
	},
	content.KindBlock: {
		"margin-top":    {field: "above"},
		"margin-bottom": {field: "below"},
		"break-inside":  {field: "breakable", conv: breakInside},
	},
	content.KindPage: {
		"column-count": {field: "columns"},
		"column-gap":   {field: "gutter"},
	},
}

// labelKinds is the search order for declarations in label rules, where no
// element selector pins the schema. The first kind that knows the property
// claims it.
var labelKinds = []content.Kind{
	content.KindText,
	content.KindPar,
	content.KindHeading,
	content.KindList,
	content.KindBlock,
}

// resolveProp translates one declaration against a single kind. ok is
// false when the kind has no field answering to the property name; err
// reports a field that rejected the value.
func resolveProp(kind content.Kind, prop string, v value) (content.Property, bool, error) {
	if a, found := cssNames[kind][prop]; found {
		val, err := convert(kind, a, v)
		if err != nil {
			return content.Property{}, true, err
		}
		return content.Set(kind, a.field, val), true, nil
	}
	if kind.Settable(prop) {
		spec, _ := kind.Field(prop)
		val, err := coerce(spec, v)
		if err != nil {
			return content.Property{}, true, err
		}
		return content.Set(kind, prop, val), true, nil
	}
	return content.Property{}, false, nil
}

// resolveAny resolves a declaration for a label rule by searching
// labelKinds in order.
func resolveAny(prop string, v value) (content.Property, error) {
	for _, kind := range labelKinds {
		p, ok, err := resolveProp(kind, prop, v)
		if err != nil {
			return content.Property{}, err
		}
		if ok {
			return p, nil
		}
	}
	return content.Property{}, fmt.Errorf("unknown property %q", prop)
}

func convert(kind content.Kind, a alias, v value) (any, error) {
	if a.conv != nil {
		return a.conv(v)
	}
	spec, _ := kind.Field(a.field)
	return coerce(spec, v)
}

// coerce converts a declaration value into the Go type of a schema field,
// with the field default as the type witness.
func coerce(spec content.FieldSpec, v value) (any, error) {
	switch spec.Default.(type) {
	case geom.Abs:
		return toLength(v)
	case geom.Ratio:
		if v.form == formPercent {
			return geom.Ratio(v.num / 100), nil
		}
		return nil, fmt.Errorf("want a percentage, got %q", v.raw)
	case geom.Fr:
		if v.form == formDimension && v.unit == "fr" {
			return geom.Fr(v.num), nil
		}
		return nil, fmt.Errorf("want a fraction like 1fr, got %q", v.raw)
	case int:
		if v.form == formNumber && v.num == math.Trunc(v.num) {
			return int(v.num), nil
		}
		return nil, fmt.Errorf("want an integer, got %q", v.raw)
	case bool:
		switch v.keyword {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("want true or false, got %q", v.raw)
	case string:
		if v.form == formString || v.form == formIdent {
			return v.keyword, nil
		}
		return nil, fmt.Errorf("want a quoted string, got %q", v.raw)
	}
	return nil, fmt.Errorf("field cannot be styled from a stylesheet")
}

// toLength accepts absolute lengths. Unitless zero passes, like in CSS.
func toLength(v value) (any, error) {
	if v.form == formNumber && v.num == 0 {
		return geom.Abs(0), nil
	}
	if v.form != formDimension {
		return nil, fmt.Errorf("want a length, got %q", v.raw)
	}
	switch v.unit {
	case "pt":
		return geom.Pt(v.num), nil
	case "mm":
		return geom.Mm(v.num), nil
	case "cm":
		return geom.Cm(v.num), nil
	case "in":
		return geom.In(v.num), nil
	}
	return nil, fmt.Errorf("unit %q is not supported, use pt, mm, cm or in", v.unit)
}

// fontStyle folds the italic axis onto the italic toggle.
func fontStyle(v value) (any, error) {
	switch v.keyword {
	case "italic", "oblique":
		return true, nil
	case "normal":
		return false, nil
	}
	return nil, fmt.Errorf("font-style %q is not supported", v.raw)
}

// fontWeight maps onto the weight delta, relative to the regular 400.
func fontWeight(v value) (any, error) {
	if v.form == formNumber && v.num == math.Trunc(v.num) {
		return int(v.num) - 400, nil
	}
	switch v.keyword {
	case "bold":
		return 300, nil
	case "normal":
		return 0, nil
	}
	return nil, fmt.Errorf("font-weight %q is not supported", v.raw)
}

func hyphens(v value) (any, error) {
	switch v.keyword {
	case "auto":
		return true, nil
	case "none", "manual":
		return false, nil
	}
	return nil, fmt.Errorf("hyphens %q is not supported", v.raw)
}

// textAlign only distinguishes justified from ragged-right; centered and
// right-aligned paragraphs are not part of the model.
func textAlign(v value) (any, error) {
	switch v.keyword {
	case "justify":
		return true, nil
	case "left", "start":
		return false, nil
	}
	return nil, fmt.Errorf("text-align %q is not supported", v.raw)
}

func breakInside(v value) (any, error) {
	switch v.keyword {
	case "avoid":
		return false, nil
	case "auto":
		return true, nil
	}
	return nil, fmt.Errorf("break-inside %q is not supported", v.raw)
}
