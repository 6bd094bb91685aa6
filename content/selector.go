package content

import (
	"fmt"
	"regexp"
	"strings"
)

// SelectorKind discriminates selector variants.
type SelectorKind uint8

const (
	// SelKind matches elements of one kind.
	SelKind SelectorKind = iota
	// SelWhere matches elements of one kind with the listed field values.
	SelWhere
	// SelText matches text runs equal to a literal.
	SelText
	// SelRegex matches text runs containing a regexp match.
	SelRegex
	// SelLabel matches the element carrying a label.
	SelLabel
	// SelLocation matches the element at an exact location.
	SelLocation
	// SelOr matches when any branch matches.
	SelOr
	// SelAnd matches when all branches match.
	SelAnd
	// SelBefore restricts matches of the base selector to document positions
	// before the reference selector's first match.
	SelBefore
	// SelAfter restricts matches of the base selector to document positions
	// after the reference selector's first match.
	SelAfter
)

// Selector is a predicate over content nodes. Kind, field, text, regex and
// label variants (and their or/and combinations) can be evaluated against a
// single node and may drive show rules. Location, before and after variants
// need document order and are only valid in queries.
type Selector struct {
	kind      SelectorKind
	elem      Kind
	fields    []FieldVal
	text      string
	re        *regexp.Regexp
	label     Label
	loc       Location
	list      []Selector
	base, ref *Selector
	inclusive bool
}

func SelectKind(k Kind) Selector { return Selector{kind: SelKind, elem: k} }

// SelectWhere matches elements of the kind whose listed fields equal the
// given values.
func SelectWhere(k Kind, fields ...FieldVal) Selector {
	return Selector{kind: SelWhere, elem: k, fields: fields}
}

func SelectText(text string) Selector { return Selector{kind: SelText, text: text} }

func SelectRegex(re *regexp.Regexp) Selector { return Selector{kind: SelRegex, re: re} }

func SelectLabel(l Label) Selector { return Selector{kind: SelLabel, label: l} }

func SelectLocation(loc Location) Selector { return Selector{kind: SelLocation, loc: loc} }

func Or(sels ...Selector) Selector { return Selector{kind: SelOr, list: sels} }

func And(sels ...Selector) Selector { return Selector{kind: SelAnd, list: sels} }

// Before restricts base to matches positioned before the first match of ref.
// When inclusive, the boundary element itself still matches. The default for
// rule syntax is inclusive.
func Before(base, ref Selector, inclusive bool) Selector {
	return Selector{kind: SelBefore, base: &base, ref: &ref, inclusive: inclusive}
}

// After restricts base to matches positioned after the first match of ref.
func After(base, ref Selector, inclusive bool) Selector {
	return Selector{kind: SelAfter, base: &base, ref: &ref, inclusive: inclusive}
}

func (s Selector) Variant() SelectorKind { return s.kind }

// Split returns the parts of a before/after selector.
func (s Selector) Split() (base, ref Selector, inclusive bool) {
	return *s.base, *s.ref, s.inclusive
}

// ElemKind returns the kind targeted by kind and where selectors.
func (s Selector) ElemKind() Kind { return s.elem }

// TargetLabel returns the label of a label selector.
func (s Selector) TargetLabel() Label { return s.label }

// TargetLocation returns the location of a location selector.
func (s Selector) TargetLocation() Location { return s.loc }

// Matches evaluates the selector against a single node. Position-dependent
// variants (location, before, after) always return false here; they are
// resolved by the introspector which knows document order.
func (s Selector) Matches(n *Node) bool {
	switch s.kind {
	case SelKind:
		return n.Kind() == s.elem
	case SelWhere:
		if n.Kind() != s.elem {
			return false
		}
		for _, want := range s.fields {
			got, ok := n.Field(want.Name)
			if !ok || !valueEqual(got, want.Value) {
				return false
			}
		}
		return true
	case SelText:
		return n.IsText() && n.Text() == s.text
	case SelRegex:
		return n.IsText() && s.re.MatchString(n.Text())
	case SelLabel:
		return n.Label() == s.label
	case SelOr:
		for _, sub := range s.list {
			if sub.Matches(n) {
				return true
			}
		}
		return false
	case SelAnd:
		for _, sub := range s.list {
			if !sub.Matches(n) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Realizable reports whether the selector may drive a show rule. Selectors
// that need the introspector cannot: rules run before document order exists.
func (s Selector) Realizable() bool {
	switch s.kind {
	case SelLocation, SelBefore, SelAfter:
		return false
	case SelOr, SelAnd:
		for _, sub := range s.list {
			if !sub.Realizable() {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (s Selector) String() string {
	switch s.kind {
	case SelKind:
		return s.elem.Name()
	case SelWhere:
		parts := make([]string, 0, len(s.fields))
		for _, f := range s.fields {
			parts = append(parts, fmt.Sprintf("%s: %v", f.Name, f.Value))
		}
		return fmt.Sprintf("%s.where(%s)", s.elem.Name(), strings.Join(parts, ", "))
	case SelText:
		return fmt.Sprintf("%q", s.text)
	case SelRegex:
		return "regex(" + s.re.String() + ")"
	case SelLabel:
		return s.label.String()
	case SelLocation:
		return s.loc.String()
	case SelOr:
		return joinSelectors(s.list, ".or(")
	case SelAnd:
		return joinSelectors(s.list, ".and(")
	case SelBefore:
		return fmt.Sprintf("%s.before(%s, inclusive: %v)", s.base, s.ref, s.inclusive)
	case SelAfter:
		return fmt.Sprintf("%s.after(%s, inclusive: %v)", s.base, s.ref, s.inclusive)
	}
	return "selector(?)"
}

func joinSelectors(list []Selector, sep string) string {
	if len(list) == 0 {
		return "selector()"
	}
	out := list[0].String()
	for _, s := range list[1:] {
		out += sep + s.String() + ")"
	}
	return out
}
