// Package input loads structured XML documents into content trees. The
// format follows the element registry directly: tags name kinds, attributes
// name fields typed per the kind schema, a label attribute labels the
// element. <set> and <show> children introduce style rules scoped to their
// following siblings, so a document can restyle itself mid-flow the same
// way programmatic styled scopes do.
package input

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"dtc/content"
	"dtc/diag"
)

// Document is the loaded form of one source: the content tree plus the
// style entries collected from the document element's attributes.
type Document struct {
	Root   *content.Node
	Styles []content.Entry
	Name   string
}

// Meta returns the value of a document set entry collected from the root
// element, the last one wins. Missing entries answer with an empty string.
func (d *Document) Meta(name string) string {
	var out string
	for _, e := range d.Styles {
		p, ok := e.(content.Property)
		if !ok || p.Kind != content.KindDocument || p.Name != name {
			continue
		}
		if s, ok := p.Value.(string); ok {
			out = s
		}
	}
	return out
}

// Read parses a document from r. Encodings declared in the XML prolog are
// honored through the html charset reader, so legacy single-byte sources
// load without re-encoding.
func Read(r io.Reader, srcName string, log *zap.Logger) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
	}
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%s: unable to read document: %w", srcName, err)
	}
	return Parse(doc, srcName, log)
}

// ReadFile loads a document from disk. Diagnostics use the base name.
func ReadFile(path string, log *zap.Logger) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open document: %w", err)
	}
	defer f.Close()
	return Read(f, filepath.Base(path), log)
}

// Parse walks an already-read etree DOM and builds the content tree.
func Parse(doc *etree.Document, srcName string, log *zap.Logger) (*Document, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if doc == nil {
		return nil, fmt.Errorf("%s: nil document", srcName)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%s: document has no root element", srcName)
	}
	if root.Tag != "document" {
		return nil, fmt.Errorf("%s: unexpected root element %q", srcName, root.Tag)
	}

	ld := &loader{src: srcName, log: log}

	entries, err := ld.documentEntries(root)
	if err != nil {
		return nil, err
	}
	body, err := ld.sequence(root.Child, root.Tag)
	if err != nil {
		return nil, err
	}
	return &Document{Root: body, Styles: entries, Name: srcName}, nil
}

type loader struct {
	src string
	log *zap.Logger
}

func (ld *loader) span() diag.Span { return diag.Span{File: ld.src} }

// documentEntries maps the root element's attributes onto document set
// rules: <document title="..."> styles the whole tree.
func (ld *loader) documentEntries(root *etree.Element) ([]content.Entry, error) {
	var entries []content.Entry
	for _, attr := range root.Attr {
		if attr.Space != "" {
			continue
		}
		if !content.KindDocument.Settable(attr.Key) {
			ld.log.Warn("Unexpected attribute on document, ignoring", zap.String("attr", attr.Key))
			continue
		}
		spec, _ := content.KindDocument.Field(attr.Key)
		v, err := attrValue(spec, attr.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: document %s: %w", ld.src, attr.Key, err)
		}
		entries = append(entries, content.Set(content.KindDocument, attr.Key, v).At(ld.span()))
	}
	return entries, nil
}

// sequence converts a run of XML child tokens into a content sequence.
// Whitespace collapses: a whitespace-only run separates inline siblings
// with a single space and vanishes everywhere else. A <set> or <show>
// child wraps everything after it in a styled scope.
func (ld *loader) sequence(tokens []etree.Token, parentTag string) (*content.Node, error) {
	var parts []*content.Node
	pending := false // separator space waiting for inline content
	for i, tok := range tokens {
		switch t := tok.(type) {
		case *etree.CharData:
			text := collapseSpace(t.Data)
			if text == "" {
				pending = pending || endsInline(parts)
				continue
			}
			if pending || (leadingSpace(t.Data) && endsInline(parts)) {
				text = " " + text
			}
			parts = append(parts, content.Text(text))
			pending = trailingSpace(t.Data)

		case *etree.Element:
			if t.Tag == "set" || t.Tag == "show" {
				entries, err := ld.styleEntries(t)
				if err != nil {
					return nil, err
				}
				rest, err := ld.sequence(tokens[i+1:], parentTag)
				if err != nil {
					return nil, err
				}
				parts = append(parts, content.Styled(rest, entries...))
				return content.Seq(parts...), nil
			}
			n, err := ld.element(t, parentTag)
			if err != nil {
				return nil, err
			}
			if n == nil {
				continue
			}
			if n.Kind().Block() {
				pending = false
			} else if pending {
				parts = append(parts, content.Text(" "))
				pending = false
			}
			parts = append(parts, n)
		}
	}
	return content.Seq(parts...), nil
}

// element builds one content node. A nil node with a nil error means the
// element was diagnosed and skipped.
func (ld *loader) element(el *etree.Element, parentTag string) (*content.Node, error) {
	kind, ok := content.KindByName(el.Tag)
	if !ok {
		return ld.generic(el, parentTag)
	}
	if kind.SetOnly() {
		ld.log.Warn("Element kind is configuration only, ignoring", zap.String("parent", parentTag), zap.String("tag", el.Tag))
		return nil, nil
	}

	switch kind {
	case content.KindList:
		return ld.list(el)
	case content.KindRef:
		return ld.ref(el)
	case content.KindCounterUpdate:
		return ld.counterUpdate(el)
	case content.KindCounterDisplay:
		return ld.counterDisplay(el)
	case content.KindStateUpdate:
		return ld.stateUpdate(el)
	case content.KindMetadata:
		value := strings.TrimSpace(el.Text())
		return ld.finish(el, content.Metadata(value)), nil
	case content.KindContext:
		// context functions are program values, markup cannot carry them
		ld.log.Warn("Unexpected tag, ignoring", zap.String("parent", parentTag), zap.String("tag", el.Tag))
		return nil, nil
	}

	fields, err := ld.fields(el, kind)
	if err != nil {
		return nil, err
	}
	if spec, hasBody := kind.Field("body"); hasBody {
		body, err := ld.sequence(el.Child, el.Tag)
		if err != nil {
			return nil, err
		}
		if spec.Required || !body.IsEmpty() {
			fields = append(fields, content.F("body", body))
		}
	} else if hasContent(el) {
		ld.log.Warn("Element does not take content, ignoring children", zap.String("tag", el.Tag))
	}
	return ld.finish(el, content.New(kind, fields...)), nil
}

// fields maps the element's attributes onto schema fields. An unknown
// attribute is dropped with a warning so documents stay loadable across
// schema changes; a value the field rejects is fatal.
func (ld *loader) fields(el *etree.Element, kind content.Kind) ([]content.FieldVal, error) {
	var fields []content.FieldVal
	for _, attr := range el.Attr {
		if attr.Space != "" || attr.Key == "label" {
			continue
		}
		if contentField(attr.Key) {
			ld.log.Warn("Field takes element content, not an attribute, ignoring", zap.String("tag", el.Tag), zap.String("attr", attr.Key))
			continue
		}
		spec, ok := kind.Field(attr.Key)
		if !ok {
			ld.log.Warn("Unexpected attribute, ignoring", zap.String("tag", el.Tag), zap.String("attr", attr.Key))
			continue
		}
		v, err := attrValue(spec, attr.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: <%s> %s: %w", ld.src, el.Tag, attr.Key, err)
		}
		fields = append(fields, content.F(attr.Key, v))
	}
	return fields, nil
}

// contentField names fields that are built from element children and must
// not appear as attributes.
func contentField(name string) bool {
	return name == "body" || name == "items"
}

// finish stamps the source span and the label attribute onto a built node.
func (ld *loader) finish(el *etree.Element, n *content.Node) *content.Node {
	n = n.At(ld.span())
	if l := el.SelectAttrValue("label", ""); l != "" {
		n = n.Labeled(content.Label(l))
	}
	return n
}

// list assembles a list from its item children.
func (ld *loader) list(el *etree.Element) (*content.Node, error) {
	fields, err := ld.fields(el, content.KindList)
	if err != nil {
		return nil, err
	}
	items := []*content.Node{}
	for _, child := range el.ChildElements() {
		if child.Tag != "item" {
			ld.log.Warn("Unexpected tag in list, ignoring", zap.String("tag", child.Tag))
			continue
		}
		body, err := ld.sequence(child.Child, child.Tag)
		if err != nil {
			return nil, err
		}
		items = append(items, body)
	}
	fields = append(fields, content.F("items", items))
	return ld.finish(el, content.New(content.KindList, fields...)), nil
}

// ref resolves the target attribute into a label reference.
func (ld *loader) ref(el *etree.Element) (*content.Node, error) {
	target := el.SelectAttrValue("target", "")
	if target == "" {
		return nil, fmt.Errorf("%s: <ref> needs a target attribute", ld.src)
	}
	n := content.Ref(content.Label(target))
	if sup := el.SelectAttrValue("supplement", ""); sup != "" {
		n = n.WithField("supplement", sup)
	}
	return ld.finish(el, n), nil
}

// counterUpdate maps set and step attributes onto counter operations:
// <counter-update counter="page" set="1"/> restarts page numbering,
// <counter-update counter="heading" step="2"/> advances at level two.
// Without either attribute the counter steps at level one.
func (ld *loader) counterUpdate(el *etree.Element) (*content.Node, error) {
	name := el.SelectAttrValue("counter", "")
	if name == "" {
		return nil, fmt.Errorf("%s: <counter-update> needs a counter attribute", ld.src)
	}
	key := counterKey(name)

	if raw := el.SelectAttrValue("set", ""); raw != "" {
		values, err := intList(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: <counter-update> set: %w", ld.src, err)
		}
		return ld.finish(el, content.UpdateCounter(key, content.CounterSet(values...))), nil
	}
	level := 1
	if raw := el.SelectAttrValue("step", ""); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: <counter-update> step: %w", ld.src, err)
		}
		level = v
	}
	return ld.finish(el, content.UpdateCounter(key, content.CounterStep(level))), nil
}

func (ld *loader) counterDisplay(el *etree.Element) (*content.Node, error) {
	name := el.SelectAttrValue("counter", "")
	if name == "" {
		return nil, fmt.Errorf("%s: <counter-display> needs a counter attribute", ld.src)
	}
	n := content.DisplayCounter(counterKey(name), el.SelectAttrValue("pattern", "1"))
	if raw := el.SelectAttrValue("final", ""); raw != "" {
		v, err := parseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: <counter-display> final: %w", ld.src, err)
		}
		n = n.WithField("final", v)
	}
	return ld.finish(el, n), nil
}

// stateUpdate only supports plain set operations; function updates have no
// markup form.
func (ld *loader) stateUpdate(el *etree.Element) (*content.Node, error) {
	key := el.SelectAttrValue("key", "")
	if key == "" {
		return nil, fmt.Errorf("%s: <state-update> needs a key attribute", ld.src)
	}
	value := el.SelectAttrValue("value", "")
	return ld.finish(el, content.UpdateState(key, content.StateSet(value))), nil
}

// generic keeps an element without a registered kind loadable: the tag and
// attributes become fields on the open fallback kind, the children its
// body.
func (ld *loader) generic(el *etree.Element, parentTag string) (*content.Node, error) {
	ld.log.Debug("Unknown element, keeping as generic", zap.String("parent", parentTag), zap.String("tag", el.Tag))
	fields := []content.FieldVal{content.F("tag", el.Tag)}
	for _, attr := range el.Attr {
		if attr.Space != "" || attr.Key == "label" || attr.Key == "tag" || contentField(attr.Key) {
			continue
		}
		fields = append(fields, content.F(attr.Key, attr.Value))
	}
	body, err := ld.sequence(el.Child, el.Tag)
	if err != nil {
		return nil, err
	}
	if !body.IsEmpty() {
		fields = append(fields, content.F("body", body))
	}
	return ld.finish(el, content.New(content.KindGeneric, fields...)), nil
}

// counterKey resolves a counter name: "page" is the physical page counter,
// a kind name counts elements of that kind, anything else is a free named
// counter.
func counterKey(name string) content.CounterKey {
	if name == "page" {
		return content.PageCounter()
	}
	if k, ok := content.KindByName(name); ok {
		return content.KindCounter(k)
	}
	return content.NamedCounter(name)
}

func intList(raw string) ([]int, error) {
	var out []int
	for _, f := range strings.Fields(raw) {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// hasContent reports element children or non-whitespace text.
func hasContent(el *etree.Element) bool {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			return true
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				return true
			}
		}
	}
	return false
}

// collapseSpace folds runs of XML whitespace into single spaces and trims
// the ends; the caller decides whether edge spaces separate anything.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func leadingSpace(s string) bool { return s != strings.TrimLeftFunc(s, unicode.IsSpace) }

func trailingSpace(s string) bool { return s != strings.TrimRightFunc(s, unicode.IsSpace) }

// endsInline reports whether the last built part is a text run or an
// inline element, so a separator space before the next sibling survives.
func endsInline(parts []*content.Node) bool {
	if len(parts) == 0 {
		return false
	}
	last := parts[len(parts)-1]
	if last.IsText() {
		return true
	}
	return last.Op() == content.OpElem && !last.Kind().Block()
}
