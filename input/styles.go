package input

import (
	"fmt"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"dtc/content"
)

// labelKinds is the search order for show-set attributes, where no element
// kind pins the schema. The first kind that knows the field claims it.
var labelKinds = []content.Kind{
	content.KindText,
	content.KindPar,
	content.KindHeading,
	content.KindList,
	content.KindBlock,
}

// styleEntries parses a <set> or <show> element. Both scope over their
// following siblings; the caller wraps those in a styled node. An empty
// entry list with a nil error means the rule was diagnosed and dropped.
func (ld *loader) styleEntries(el *etree.Element) ([]content.Entry, error) {
	if el.Tag == "set" {
		return ld.setEntries(el)
	}
	return ld.showEntries(el)
}

// setEntries turns <set kind="text" size="12pt"/> into one property per
// attribute, validated against the kind's schema.
func (ld *loader) setEntries(el *etree.Element) ([]content.Entry, error) {
	name := el.SelectAttrValue("kind", "")
	if name == "" {
		ld.log.Warn("Set rule without a kind, ignoring")
		return nil, nil
	}
	kind, ok := content.KindByName(name)
	if !ok {
		ld.log.Warn("Set rule for unknown kind, ignoring", zap.String("kind", name))
		return nil, nil
	}
	if hasContent(el) {
		ld.log.Warn("Set rule does not take content, ignoring children", zap.String("kind", name))
	}

	var entries []content.Entry
	for _, attr := range el.Attr {
		if attr.Space != "" || attr.Key == "kind" {
			continue
		}
		if !kind.Settable(attr.Key) {
			ld.log.Warn("Field is not settable, ignoring", zap.String("kind", name), zap.String("field", attr.Key))
			continue
		}
		spec, _ := kind.Field(attr.Key)
		v, err := attrValue(spec, attr.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: set %s.%s: %w", ld.src, name, attr.Key, err)
		}
		entries = append(entries, content.Set(kind, attr.Key, v).At(ld.span()))
	}
	return entries, nil
}

// showEntries turns <show sel="..."> into one recipe. Element content
// becomes a literal replacement for every match; without content the
// remaining attributes become show-set properties styling the matched
// subtree.
func (ld *loader) showEntries(el *etree.Element) ([]content.Entry, error) {
	raw := el.SelectAttrValue("sel", "")
	if raw == "" {
		ld.log.Warn("Show rule without a selector, ignoring")
		return nil, nil
	}
	sel, ok := ld.selector(raw)
	if !ok {
		return nil, nil
	}

	if hasContent(el) {
		if len(el.Attr) > 1 {
			ld.log.Warn("Show rule with a replacement ignores its attributes", zap.String("sel", raw))
		}
		body, err := ld.sequence(el.Child, el.Tag)
		if err != nil {
			return nil, err
		}
		return []content.Entry{content.Show(sel, content.WithContent(body)).At(ld.span())}, nil
	}

	var props []content.Property
	for _, attr := range el.Attr {
		if attr.Space != "" || attr.Key == "sel" {
			continue
		}
		p, ok, err := ld.showProp(attr)
		if err != nil {
			return nil, err
		}
		if ok {
			props = append(props, p)
		}
	}
	if len(props) == 0 {
		ld.log.Warn("Show rule without any effect, ignoring", zap.String("sel", raw))
		return nil, nil
	}
	return []content.Entry{content.Show(sel, content.WithSet(props...)).At(ld.span())}, nil
}

// selector parses the sel attribute: a kind name matches elements of that
// kind, #name matches the labeled element.
func (ld *loader) selector(raw string) (content.Selector, bool) {
	if name, found := cutLabel(raw); found {
		if name == "" {
			ld.log.Warn("Show rule with an empty label selector, ignoring")
			return content.Selector{}, false
		}
		return content.SelectLabel(content.Label(name)), true
	}
	kind, ok := content.KindByName(raw)
	if !ok {
		ld.log.Warn("Show rule selector matches no kind, ignoring", zap.String("sel", raw))
		return content.Selector{}, false
	}
	return content.SelectKind(kind), true
}

func cutLabel(raw string) (string, bool) {
	if len(raw) > 0 && raw[0] == '#' {
		return raw[1:], true
	}
	return "", false
}

// showProp resolves one show-set attribute through the kind search order.
func (ld *loader) showProp(attr etree.Attr) (content.Property, bool, error) {
	for _, kind := range labelKinds {
		if !kind.Settable(attr.Key) {
			continue
		}
		spec, _ := kind.Field(attr.Key)
		v, err := attrValue(spec, attr.Value)
		if err != nil {
			return content.Property{}, false, fmt.Errorf("%s: show %s: %w", ld.src, attr.Key, err)
		}
		return content.Set(kind, attr.Key, v).At(ld.span()), true, nil
	}
	ld.log.Warn("Show rule field matches nothing, ignoring", zap.String("field", attr.Key))
	return content.Property{}, false, nil
}
