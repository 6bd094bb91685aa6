// Package content defines the immutable content tree the compiler operates
// on: element nodes with typed fields, text runs, styled scopes, the style
// chain and the selector language. Trees are built once and shared by
// reference between passes; every "mutation" returns a copy.
package content

import (
	"fmt"
	"sort"
	"strings"

	"dtc/diag"
)

// Op discriminates the content node variants.
type Op uint8

const (
	// OpSeq is an ordered sequence of children.
	OpSeq Op = iota
	// OpStyled wraps a subtree with style entries scoped to it.
	OpStyled
	// OpElem is an element instance of a registered kind.
	OpElem
	// OpText is a raw text run.
	OpText
	// OpTag is an introspection marker emitted by the realizer around
	// locatable elements. It never appears in input trees.
	OpTag
)

// FieldVal is a named field value. Fields of a node are kept sorted by name
// so that hashing and comparison are deterministic.
type FieldVal struct {
	Name  string
	Value any
}

// F is shorthand for constructing a field value.
func F(name string, value any) FieldVal { return FieldVal{Name: name, Value: value} }

// Node is one vertex of the content tree. Nodes are immutable after
// construction; all With* methods return copies. Structural identity is
// captured by a 128-bit hash maintained on every construction path.
type Node struct {
	op       Op
	kind     Kind
	fields   []FieldVal
	label    Label
	text     string
	children []*Node
	styles   []Entry
	tag      *Tag
	span     diag.Span

	// prepared and loc are stamped by the realizer on its private copy:
	// input trees never carry them.
	prepared bool
	loc      Location

	hash Hash128
}

// Tag marks the start or end of a locatable element in realized flow and in
// frames. The introspector is built from these markers.
type Tag struct {
	End  bool
	Elem *Node
	Loc  Location
}

// Text creates a text run.
func Text(s string) *Node {
	n := &Node{op: OpText, text: s}
	n.rehash()
	return n
}

// New creates an element instance of the given kind with the listed fields.
// Unknown fields on closed kinds are a programmer error; loader code must
// validate against the schema first.
func New(kind Kind, fields ...FieldVal) *Node {
	if !kind.valid() {
		panic("content: element of unregistered kind")
	}
	if kind.SetOnly() {
		panic(fmt.Sprintf("content: kind %q cannot be instantiated", kind.Name()))
	}
	n := &Node{op: OpElem, kind: kind}
	for _, f := range fields {
		if _, ok := kind.Field(f.Name); !ok {
			panic(fmt.Sprintf("content: kind %q has no field %q", kind.Name(), f.Name))
		}
		n.fields = insertField(n.fields, f)
	}
	n.rehash()
	return n
}

// Seq builds a sequence node. Nil children elide and nested sequences
// flatten, so joining content never deepens the tree needlessly. A sequence
// of exactly one node collapses to that node.
func Seq(children ...*Node) *Node {
	flat := make([]*Node, 0, len(children))
	for _, c := range children {
		switch {
		case c == nil:
			// none elides under join
		case c.op == OpSeq && c.label.IsZero():
			flat = append(flat, c.children...)
		default:
			flat = append(flat, c)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	n := &Node{op: OpSeq, children: flat}
	n.rehash()
	return n
}

// Empty returns an empty sequence.
func Empty() *Node { return Seq() }

// Styled wraps content with style entries active for that subtree only.
func Styled(inner *Node, entries ...Entry) *Node {
	if len(entries) == 0 {
		return inner
	}
	if inner == nil {
		inner = Empty()
	}
	n := &Node{op: OpStyled, children: []*Node{inner}, styles: entries}
	n.rehash()
	return n
}

// TagNode wraps a tag marker as content so it can travel through flows and
// frames.
func TagNode(t Tag) *Node {
	n := &Node{op: OpTag, tag: &t}
	n.rehash()
	return n
}

func (n *Node) Op() Op { return n.op }

// Kind returns the element kind. Text runs report the built-in text kind so
// that selectors can target them uniformly; other non-element nodes report
// KindNone.
func (n *Node) Kind() Kind {
	switch n.op {
	case OpElem:
		return n.kind
	case OpText:
		return KindText
	default:
		return KindNone
	}
}

func (n *Node) IsText() bool     { return n.op == OpText }
func (n *Node) IsSequence() bool { return n.op == OpSeq }
func (n *Node) IsStyled() bool   { return n.op == OpStyled }
func (n *Node) IsTag() bool      { return n.op == OpTag }

// IsEmpty reports an empty sequence.
func (n *Node) IsEmpty() bool { return n.op == OpSeq && len(n.children) == 0 }

func (n *Node) Text() string { return n.text }

func (n *Node) Tag() Tag {
	if n.tag == nil {
		return Tag{}
	}
	return *n.tag
}

// Children returns the child list of sequences. Callers must not modify it.
func (n *Node) Children() []*Node { return n.children }

// StyledInner returns the wrapped subtree and entries of a styled node.
func (n *Node) StyledInner() (*Node, []Entry) {
	if n.op != OpStyled {
		return nil, nil
	}
	return n.children[0], n.styles
}

func (n *Node) Label() Label { return n.label }

func (n *Node) Span() diag.Span { return n.span }

// Hash returns the structural hash. Preparation state, labels and spans are
// included; locations are not, so hashes stay stable across passes.
func (n *Node) Hash() Hash128 { return n.hash }

// Field returns the element's own value for the field, without consulting
// styles or defaults.
func (n *Node) Field(name string) (any, bool) {
	i := sort.Search(len(n.fields), func(i int) bool { return n.fields[i].Name >= name })
	if i < len(n.fields) && n.fields[i].Name == name {
		return n.fields[i].Value, true
	}
	return nil, false
}

// Fields returns the element's explicit fields in name order. Callers must
// not modify the slice.
func (n *Node) Fields() []FieldVal { return n.fields }

// WithField returns a copy with the field set.
func (n *Node) WithField(name string, value any) *Node {
	if n.op != OpElem {
		panic("content: fields only exist on elements")
	}
	if _, ok := n.kind.Field(name); !ok {
		panic(fmt.Sprintf("content: kind %q has no field %q", n.kind.Name(), name))
	}
	c := n.clone()
	c.fields = insertField(c.fields, FieldVal{Name: name, Value: value})
	c.rehash()
	return c
}

// Labeled returns a copy carrying the label.
func (n *Node) Labeled(l Label) *Node {
	c := n.clone()
	c.label = l
	c.rehash()
	return c
}

// At returns a copy carrying the source span.
func (n *Node) At(span diag.Span) *Node {
	c := n.clone()
	c.span = span
	c.rehash()
	return c
}

// Prepare returns a copy flagged as prepared with the given location.
// The realizer calls this exactly once per materialized element; preparing
// twice is a bug in rule application.
func (n *Node) Prepare(loc Location) *Node {
	if n.prepared {
		panic("content: element prepared twice")
	}
	c := n.clone()
	c.prepared = true
	c.loc = loc
	c.rehash()
	return c
}

func (n *Node) IsPrepared() bool { return n.prepared }

// Location returns the location stamped during realization, if any.
func (n *Node) Location() (Location, bool) { return n.loc, !n.loc.IsZero() }

// PlainText flattens the subtree into its raw text content.
func (n *Node) PlainText() string {
	var sb strings.Builder
	n.plainText(&sb)
	return sb.String()
}

func (n *Node) plainText(sb *strings.Builder) {
	switch n.op {
	case OpText:
		sb.WriteString(n.text)
	case OpSeq, OpStyled:
		for _, c := range n.children {
			c.plainText(sb)
		}
	case OpElem:
		for _, f := range n.fields {
			if b, ok := f.Value.(*Node); ok && b != nil {
				b.plainText(sb)
			}
		}
	}
}

func (n *Node) clone() *Node {
	c := *n
	if len(n.fields) > 0 {
		c.fields = append([]FieldVal(nil), n.fields...)
	}
	return &c
}

func insertField(fields []FieldVal, f FieldVal) []FieldVal {
	i := sort.Search(len(fields), func(i int) bool { return fields[i].Name >= f.Name })
	if i < len(fields) && fields[i].Name == f.Name {
		fields[i] = f
		return fields
	}
	fields = append(fields, FieldVal{})
	copy(fields[i+1:], fields[i:])
	fields[i] = f
	return fields
}

func (n *Node) rehash() {
	w := newHasher()
	w.byteVal(byte(n.op))
	switch n.op {
	case OpText:
		w.str(n.text)
	case OpElem:
		w.i64(int64(n.kind))
		for _, f := range n.fields {
			w.str(f.Name)
			w.hashValue(f.Value)
		}
	case OpSeq, OpStyled:
		for _, c := range n.children {
			w.hash128(c.hash)
		}
		for _, e := range n.styles {
			w.hash128(e.hashEntry())
		}
	case OpTag:
		w.boolVal(n.tag.End)
		w.hash128(Hash128(n.tag.Loc))
		if n.tag.Elem != nil {
			w.hash128(n.tag.Elem.hash)
		}
	}
	if !n.label.IsZero() {
		w.str(string(n.label))
	}
	w.boolVal(n.prepared)
	if !n.span.IsZero() {
		w.str(n.span.String())
	}
	n.hash = w.sum()
}

// String renders a compact debug form of the tree.
func (n *Node) String() string {
	var sb strings.Builder
	n.debug(&sb)
	return sb.String()
}

func (n *Node) debug(sb *strings.Builder) {
	switch n.op {
	case OpText:
		fmt.Fprintf(sb, "%q", n.text)
	case OpSeq:
		sb.WriteString("[")
		for i, c := range n.children {
			if i > 0 {
				sb.WriteString(" ")
			}
			c.debug(sb)
		}
		sb.WriteString("]")
	case OpStyled:
		sb.WriteString("styled(")
		n.children[0].debug(sb)
		fmt.Fprintf(sb, ", %d entries)", len(n.styles))
	case OpElem:
		sb.WriteString(n.kind.Name())
		if len(n.fields) > 0 {
			sb.WriteString("(")
			for i, f := range n.fields {
				if i > 0 {
					sb.WriteString(", ")
				}
				if b, ok := f.Value.(*Node); ok && b != nil {
					fmt.Fprintf(sb, "%s: ", f.Name)
					b.debug(sb)
				} else {
					fmt.Fprintf(sb, "%s: %v", f.Name, f.Value)
				}
			}
			sb.WriteString(")")
		}
	case OpTag:
		if n.tag.End {
			sb.WriteString("</tag>")
		} else {
			sb.WriteString("<tag>")
		}
	}
	if !n.label.IsZero() {
		sb.WriteString(n.label.String())
	}
}
