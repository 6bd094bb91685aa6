package content

import "fmt"

// CounterKey identifies a counter: the physical page counter, a counter
// backed by a selector over queryable elements, or a free-standing named
// counter.
type CounterKey struct {
	page bool
	sel  *Selector
	name string
}

func PageCounter() CounterKey { return CounterKey{page: true} }

// SelectorCounter counts elements matched by a realizable selector
// (typically a kind selector). Counting follows the element's update
// entries, not raw match counting.
func SelectorCounter(sel Selector) CounterKey {
	if !sel.Realizable() {
		panic("content: counter selector must not depend on the introspector")
	}
	return CounterKey{sel: &sel}
}

func KindCounter(k Kind) CounterKey { return SelectorCounter(SelectKind(k)) }

func NamedCounter(name string) CounterKey { return CounterKey{name: name} }

func (k CounterKey) IsPage() bool { return k.page }

// Selector returns the backing selector of a selector counter.
func (k CounterKey) Selector() (Selector, bool) {
	if k.sel == nil {
		return Selector{}, false
	}
	return *k.sel, true
}

// ID returns a canonical identifier usable as a map key.
func (k CounterKey) ID() string {
	switch {
	case k.page:
		return "page"
	case k.sel != nil:
		return "sel:" + k.sel.String()
	default:
		return "name:" + k.name
	}
}

func (k CounterKey) String() string { return "counter(" + k.ID() + ")" }

// CounterUpdateKind discriminates counter update operations.
type CounterUpdateKind uint8

const (
	// CounterSetOp replaces the counter state.
	CounterSetOp CounterUpdateKind = iota
	// CounterStepOp advances the counter at a level: deeper levels reset.
	CounterStepOp
	// CounterFuncOp maps the state through a function.
	CounterFuncOp
)

// CounterUpdate is one entry of a counter's append-only operation log.
type CounterUpdate struct {
	kind  CounterUpdateKind
	set   []int
	level int
	fn    func([]int) []int
}

func CounterSet(values ...int) CounterUpdate {
	return CounterUpdate{kind: CounterSetOp, set: values}
}

// CounterStep advances the counter at the given 1-based level.
func CounterStep(level int) CounterUpdate {
	if level < 1 {
		level = 1
	}
	return CounterUpdate{kind: CounterStepOp, level: level}
}

func CounterFunc(f func([]int) []int) CounterUpdate {
	if f == nil {
		panic("content: nil counter update function")
	}
	return CounterUpdate{kind: CounterFuncOp, fn: f}
}

func (u CounterUpdate) Kind() CounterUpdateKind { return u.kind }

// Apply folds the update into a counter state. The state is a slice of
// level values; stepping at level n pads the state to n levels, increments
// level n and truncates deeper levels.
func (u CounterUpdate) Apply(state []int) []int {
	switch u.kind {
	case CounterSetOp:
		return append([]int(nil), u.set...)
	case CounterStepOp:
		next := append([]int(nil), state...)
		for len(next) < u.level {
			next = append(next, 0)
		}
		next[u.level-1]++
		return next[:u.level]
	case CounterFuncOp:
		return u.fn(append([]int(nil), state...))
	}
	return state
}

func (u CounterUpdate) String() string {
	switch u.kind {
	case CounterSetOp:
		return fmt.Sprintf("set(%v)", u.set)
	case CounterStepOp:
		return fmt.Sprintf("step(%d)", u.level)
	default:
		return "update(fn)"
	}
}

// StateUpdate is one entry of a state value's operation log.
type StateUpdate struct {
	set   any
	fn    func(any) any
	isSet bool
}

func StateSet(v any) StateUpdate { return StateUpdate{set: v, isSet: true} }

func StateFunc(f func(any) any) StateUpdate {
	if f == nil {
		panic("content: nil state update function")
	}
	return StateUpdate{fn: f}
}

func (u StateUpdate) Apply(v any) any {
	if u.isSet {
		return u.set
	}
	return u.fn(v)
}
