package content

import (
	"fmt"
	"sort"
)

// Kind identifies a registered element kind. Kinds form a closed registry:
// built-ins are registered by this package, user-defined kinds through
// RegisterKind. The zero value is invalid.
type Kind int

// KindNone marks nodes that are not element instances (sequences, styled
// wrappers, raw text before realization assigns it the text kind).
const KindNone Kind = 0

// FieldSpec describes one field of an element kind.
type FieldSpec struct {
	Name     string
	Required bool
	// Default is the value used when neither the element nor the style chain
	// provides one. Only meaningful for optional fields.
	Default any
	// Fold combines a nearer style chain value with a farther one. Nil for
	// ordinary "nearest wins" properties.
	Fold func(inner, outer any) any
}

// KindInfo describes an element kind.
type KindInfo struct {
	Name   string
	Fields []FieldSpec
	// Locatable elements receive a location during realization and are
	// visible to the introspector.
	Locatable bool
	// Block elements interrupt paragraph grouping.
	Block bool
	// Open kinds accept arbitrary fields (generic fallback for user content).
	Open bool
	// SetOnly kinds exist purely as set rule targets and cannot be
	// instantiated (page configuration).
	SetOnly bool
}

type kindEntry struct {
	info   KindInfo
	byName map[string]int
}

var (
	kinds  = []kindEntry{{info: KindInfo{Name: "!none"}}}
	byName = map[string]Kind{}
)

// RegisterKind adds a kind to the registry and returns its handle.
// Registering the same name twice is a programmer error.
func RegisterKind(info KindInfo) Kind {
	if len(info.Name) == 0 {
		panic("content: kind must be named")
	}
	if _, dup := byName[info.Name]; dup {
		panic(fmt.Sprintf("content: kind %q registered twice", info.Name))
	}
	fields := make(map[string]int, len(info.Fields))
	for i, f := range info.Fields {
		if _, dup := fields[f.Name]; dup {
			panic(fmt.Sprintf("content: kind %q declares field %q twice", info.Name, f.Name))
		}
		fields[f.Name] = i
	}
	k := Kind(len(kinds))
	kinds = append(kinds, kindEntry{info: info, byName: fields})
	byName[info.Name] = k
	return k
}

// KindByName resolves a kind by its registered name.
func KindByName(name string) (Kind, bool) {
	k, ok := byName[name]
	return k, ok
}

// KindNames lists all registered kind names, sorted.
func KindNames() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (k Kind) valid() bool {
	return k > 0 && int(k) < len(kinds)
}

func (k Kind) Name() string {
	if !k.valid() {
		return "none"
	}
	return kinds[k].info.Name
}

func (k Kind) Info() KindInfo {
	if !k.valid() {
		return KindInfo{}
	}
	return kinds[k].info
}

func (k Kind) Locatable() bool { return k.valid() && kinds[k].info.Locatable }
func (k Kind) Block() bool     { return k.valid() && kinds[k].info.Block }
func (k Kind) SetOnly() bool   { return k.valid() && kinds[k].info.SetOnly }

// Field returns the FieldSpec for a named field. Open kinds synthesize an
// optional one for unknown names.
func (k Kind) Field(name string) (FieldSpec, bool) {
	if !k.valid() {
		return FieldSpec{}, false
	}
	e := kinds[k]
	if i, ok := e.byName[name]; ok {
		return e.info.Fields[i], true
	}
	if e.info.Open {
		return FieldSpec{Name: name}, true
	}
	return FieldSpec{}, false
}

// Settable reports whether the field may be assigned through a set rule:
// it must exist and be optional.
func (k Kind) Settable(name string) bool {
	f, ok := k.Field(name)
	return ok && !f.Required
}

func (k Kind) String() string { return k.Name() }
