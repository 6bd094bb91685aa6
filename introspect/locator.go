package introspect

import "dtc/content"

// Locator hands out locations during realization. A location is derived
// from the element's content hash plus a disambiguation ordinal, so two
// identical headings still get distinct locations while the same document
// realized twice in the same order reproduces the same locations. That
// stability is what lets introspector lookups carry over between passes.
type Locator struct {
	base content.Hash128
	used map[content.Hash128]int
}

func NewLocator() *Locator {
	return &Locator{used: make(map[content.Hash128]int)}
}

// Next assigns the next location for elem.
func (l *Locator) Next(elem *content.Node) content.Location {
	h := l.base.Combine(elem.Hash())
	n := l.used[h]
	l.used[h] = n + 1

	loc := content.Location(h)
	if n > 0 {
		loc.Hi ^= uint64(n)*0xbf58476d1ce4e5b9 + uint64(n)
	}
	return loc
}

// Branch returns an independent locator seeded with the current state.
// Disposable nested passes (measurement) locate content through a branch so
// they cannot shift the ordinals of the real document.
func (l *Locator) Branch() *Locator {
	used := make(map[content.Hash128]int, len(l.used))
	for k, v := range l.used {
		used[k] = v
	}
	return &Locator{base: l.base, used: used}
}
