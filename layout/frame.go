// Package layout turns realized flow primitives into paginated frames. It
// implements region breaking, weak spacing collapse, sticky blocks, floats,
// footnote placement and line breaking with hyphenation.
package layout

import (
	"dtc/content"
	"dtc/geom"
	"dtc/text"
)

// Frame is a finished rectangle of placed items. Positions are relative to
// the frame's top-left corner; nesting happens through group items.
type Frame struct {
	size     geom.Size
	baseline geom.Abs
	items    []PlacedItem
}

// PlacedItem is one item at its position inside a frame.
type PlacedItem struct {
	At   geom.Point
	Item Item
}

// Item is a drawable or metadata primitive inside a frame.
type Item interface {
	isItem()
}

// TextItem is a shaped run of text. The position marks its baseline start.
type TextItem struct {
	Text  string
	Style text.Style
	Width geom.Abs
}

// RuleItem is a horizontal stroke.
type RuleItem struct {
	Length    geom.Abs
	Thickness geom.Abs
}

// ImageItem is a raster or vector image placed at its final size.
type ImageItem struct {
	Source string
	Alt    string
	Size   geom.Size
}

// TagItem carries an introspection tag through to the finished document.
type TagItem struct {
	Tag content.Tag
}

// GroupItem nests a finished frame.
type GroupItem struct {
	Frame *Frame
}

func (TextItem) isItem()  {}
func (RuleItem) isItem()  {}
func (ImageItem) isItem() {}
func (TagItem) isItem()   {}
func (GroupItem) isItem() {}

// NewFrame returns an empty frame of the given size.
func NewFrame(size geom.Size) *Frame {
	return &Frame{size: size}
}

func (f *Frame) Size() geom.Size     { return f.size }
func (f *Frame) Width() geom.Abs     { return f.size.W }
func (f *Frame) Height() geom.Abs    { return f.size.H }
func (f *Frame) Baseline() geom.Abs  { return f.baseline }
func (f *Frame) Items() []PlacedItem { return f.items }

// Push places an item.
func (f *Frame) Push(at geom.Point, item Item) {
	f.items = append(f.items, PlacedItem{At: at, Item: item})
}

// PushFrame places a nested frame.
func (f *Frame) PushFrame(at geom.Point, sub *Frame) {
	if sub == nil {
		return
	}
	f.items = append(f.items, PlacedItem{At: at, Item: GroupItem{Frame: sub}})
}

// Translate shifts every item. Used when content already placed in a region
// has to make room for a float above it.
func (f *Frame) Translate(d geom.Point) {
	for i := range f.items {
		f.items[i].At = f.items[i].At.Add(d)
	}
}

// Resize grows the frame to at least the given size.
func (f *Frame) Resize(size geom.Size) {
	f.size.W = f.size.W.Max(size.W)
	f.size.H = f.size.H.Max(size.H)
}

// SetBaseline fixes the baseline used when the frame participates in a
// line.
func (f *Frame) SetBaseline(b geom.Abs) { f.baseline = b }

// IsEmpty reports a frame with no items.
func (f *Frame) IsEmpty() bool { return len(f.items) == 0 }

// HasVisibleItems reports whether anything other than tags was placed.
func (f *Frame) HasVisibleItems() bool {
	for _, it := range f.items {
		switch sub := it.Item.(type) {
		case TagItem:
			continue
		case GroupItem:
			if sub.Frame.HasVisibleItems() {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// Walk visits every leaf item in the frame tree in paint order with its
// absolute position relative to the receiver. Group frames are entered,
// not reported.
func (f *Frame) Walk(fn func(at geom.Point, it Item)) {
	f.walk(geom.Point{}, fn)
}

func (f *Frame) walk(origin geom.Point, fn func(geom.Point, Item)) {
	for _, it := range f.items {
		at := origin.Add(it.At)
		if g, ok := it.Item.(GroupItem); ok {
			g.Frame.walk(at, fn)
			continue
		}
		fn(at, it.Item)
	}
}

// WalkTags visits every tag in the frame tree in placement order, passing
// the tag's absolute position relative to the receiver.
func (f *Frame) WalkTags(fn func(tag content.Tag, at geom.Point)) {
	f.walkTags(geom.Point{}, fn)
}

func (f *Frame) walkTags(origin geom.Point, fn func(content.Tag, geom.Point)) {
	for _, it := range f.items {
		at := origin.Add(it.At)
		switch sub := it.Item.(type) {
		case TagItem:
			fn(sub.Tag, at)
		case GroupItem:
			sub.Frame.walkTags(at, fn)
		}
	}
}
