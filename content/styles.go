package content

import (
	"fmt"

	"dtc/diag"
)

// Entry is one unit of styling: either a property assignment (set rule) or a
// show recipe. The variant set is closed.
type Entry interface {
	hashEntry() Hash128
	entryString() string
}

// Property assigns a value to an optional parameter of an element kind.
type Property struct {
	Kind  Kind
	Name  string
	Value any
	Span  diag.Span
}

// Set builds a property entry. Assigning a required or unknown field is a
// programmer error here; rule loaders validate user input against the
// schema and report a style error instead.
func Set(kind Kind, name string, value any) Property {
	if !kind.Settable(name) {
		panic(fmt.Sprintf("content: field %q of %q cannot be set", name, kind.Name()))
	}
	return Property{Kind: kind, Name: name, Value: value}
}

func (p Property) At(span diag.Span) Property {
	p.Span = span
	return p
}

func (p Property) hashEntry() Hash128 {
	w := newHasher()
	w.byteVal('p')
	w.i64(int64(p.Kind))
	w.str(p.Name)
	w.hashValue(p.Value)
	return w.sum()
}

func (p Property) entryString() string {
	return fmt.Sprintf("set %s(%s: %v)", p.Kind.Name(), p.Name, p.Value)
}

// TransformKind discriminates show rule transforms.
type TransformKind uint8

const (
	// TransformLiteral substitutes matched content with fixed content.
	TransformLiteral TransformKind = iota
	// TransformFunc maps matched content through a function.
	TransformFunc
	// TransformSet applies properties to the matched element's subtree
	// (show-set rule).
	TransformSet
)

// Transform is the replacement side of a show rule.
type Transform struct {
	kind    TransformKind
	literal *Node
	fn      func(*Node) (*Node, error)
	props   []Property
}

func WithContent(n *Node) Transform {
	return Transform{kind: TransformLiteral, literal: n}
}

func WithFunc(f func(*Node) (*Node, error)) Transform {
	if f == nil {
		panic("content: nil show transform")
	}
	return Transform{kind: TransformFunc, fn: f}
}

func WithSet(props ...Property) Transform {
	return Transform{kind: TransformSet, props: props}
}

func (t Transform) Kind() TransformKind { return t.kind }

// Literal returns the substitution content of a literal transform.
func (t Transform) Literal() *Node { return t.literal }

// Apply runs a function transform.
func (t Transform) Apply(n *Node) (*Node, error) { return t.fn(n) }

// SetProps returns the properties of a show-set transform.
func (t Transform) SetProps() []Property { return t.props }

// Recipe is a show rule: content matching the selector realizes through the
// transform instead of its default look.
type Recipe struct {
	Sel       Selector
	Transform Transform
	Span      diag.Span
}

// Show builds a show rule entry.
func Show(sel Selector, t Transform) Recipe {
	return Recipe{Sel: sel, Transform: t}
}

func (r Recipe) At(span diag.Span) Recipe {
	r.Span = span
	return r
}

func (r Recipe) hashEntry() Hash128 {
	w := newHasher()
	w.byteVal('r')
	w.str(r.Sel.String())
	w.byteVal(byte(r.Transform.kind))
	switch r.Transform.kind {
	case TransformLiteral:
		w.hashValue(r.Transform.literal)
	case TransformFunc:
		w.hashValue(r.Transform.fn)
	case TransformSet:
		for _, p := range r.Transform.props {
			w.hash128(p.hashEntry())
		}
	}
	return w.sum()
}

func (r Recipe) entryString() string {
	return "show " + r.Sel.String()
}
