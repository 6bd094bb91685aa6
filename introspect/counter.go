package introspect

import "dtc/content"

// Counter and state values are not stored anywhere: they are folds over the
// update elements recorded in document order. The page counter additionally
// takes an implicit step at every physical page start, interleaved with
// manual updates by position.

// CounterAt returns the counter state folded over all updates strictly
// before loc. The page start of loc's own page counts as before it. An
// unknown location reports the empty state.
func (in *Introspector) CounterAt(key content.CounterKey, loc content.Location) []int {
	i, ok := in.order[loc]
	if !ok {
		return nil
	}
	return in.foldCounter(key, i, in.positions[i].Page)
}

// CounterFinal returns the counter state after every update in the
// document, including the implicit steps of trailing empty pages.
func (in *Introspector) CounterFinal(key content.CounterKey) []int {
	return in.foldCounter(key, len(in.elems), in.pages)
}

func (in *Introspector) foldCounter(key content.CounterKey, limit, throughPage int) []int {
	var state []int
	page := 0
	for i := 0; i < limit && i < len(in.elems); i++ {
		if key.IsPage() {
			for page < in.positions[i].Page {
				page++
				state = content.CounterStep(1).Apply(state)
			}
		}
		if u, ok := counterUpdateOf(in.elems[i], key); ok {
			state = u.Apply(state)
		}
	}
	if key.IsPage() {
		for page < throughPage {
			page++
			state = content.CounterStep(1).Apply(state)
		}
	}
	return state
}

func counterUpdateOf(elem *content.Node, key content.CounterKey) (content.CounterUpdate, bool) {
	if elem.Kind() != content.KindCounterUpdate {
		return content.CounterUpdate{}, false
	}
	k, ok := elem.Field("key")
	if !ok {
		return content.CounterUpdate{}, false
	}
	ck, ok := k.(content.CounterKey)
	if !ok || ck.ID() != key.ID() {
		return content.CounterUpdate{}, false
	}
	u, ok := elem.Field("update")
	if !ok {
		return content.CounterUpdate{}, false
	}
	update, ok := u.(content.CounterUpdate)
	return update, ok
}

// StateAt returns the state value folded over all updates strictly before
// loc. The zero state is nil.
func (in *Introspector) StateAt(key string, loc content.Location) any {
	i, ok := in.order[loc]
	if !ok {
		return nil
	}
	return in.foldState(key, i)
}

// StateFinal returns the state value after every update in the document.
func (in *Introspector) StateFinal(key string) any {
	return in.foldState(key, len(in.elems))
}

func (in *Introspector) foldState(key string, limit int) any {
	var v any
	for i := 0; i < limit && i < len(in.elems); i++ {
		elem := in.elems[i]
		if elem.Kind() != content.KindStateUpdate {
			continue
		}
		k, ok := elem.Field("key")
		if !ok || k != key {
			continue
		}
		u, ok := elem.Field("update")
		if !ok {
			continue
		}
		if update, isUpdate := u.(content.StateUpdate); isUpdate {
			v = update.Apply(v)
		}
	}
	return v
}
