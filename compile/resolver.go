package compile

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"dtc/content"
	"dtc/diag"
	"dtc/introspect"
)

// resolver implements the deferred hooks realization calls back into.
// Every answer comes from the previous pass's snapshot; on the first pass
// that snapshot is empty and the answers are placeholders, which the fixed
// point loop corrects on the next pass.
type resolver struct {
	c       *Compiler
	snap    *introspect.Introspector
	locator *introspect.Locator
	now     time.Time
	id      uuid.UUID

	memo   map[memoKey]*content.Node
	misses []error
}

// memoKey identifies one context evaluation within a pass: the location
// pins the element instance, the chain pointer its style environment.
type memoKey struct {
	loc   content.Location
	chain *content.Chain
}

// ContextFunc is the signature of deferred context bodies. The closure runs
// once per pass per instance and its output is realized in place of the
// context element.
type ContextFunc func(*Ctx) (*content.Node, error)

func (r *resolver) ResolveContext(elem *content.Node, styles *content.Chain) (*content.Node, error) {
	v, _ := elem.Field("func")
	fn, ok := v.(func(*Ctx) (*content.Node, error))
	if !ok {
		named, okNamed := v.(ContextFunc)
		if !okNamed {
			return nil, diag.Errorf(diag.CodeStyle, elem.Span(), "context body is %T, want compile.ContextFunc", v)
		}
		fn = named
	}

	loc, _ := elem.Location()
	key := memoKey{loc: loc, chain: styles}
	if out, hit := r.memo[key]; hit {
		return out, nil
	}
	out, err := fn(&Ctx{res: r, elem: elem, styles: styles})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = content.Empty()
	}
	r.memo[key] = out
	return out, nil
}

func (r *resolver) ResolveCounterDisplay(elem *content.Node, styles *content.Chain) (*content.Node, error) {
	v, _ := elem.Field("key")
	key, ok := v.(content.CounterKey)
	if !ok {
		return nil, diag.Errorf(diag.CodeStyle, elem.Span(), "counter display key is %T, want content.CounterKey", v)
	}
	pattern, _ := styles.Resolve(elem, "pattern").(string)
	final, _ := styles.Resolve(elem, "final").(bool)

	var values []int
	if final {
		values = r.snap.CounterFinal(key)
	} else if loc, located := elem.Location(); located {
		values = r.snap.CounterAt(key, loc)
	}
	return content.Text(introspect.FormatNumbering(pattern, values...)), nil
}

func (r *resolver) ResolveRef(elem *content.Node, styles *content.Chain) (*content.Node, error) {
	v, _ := elem.Field("target")
	label, ok := v.(content.Label)
	if !ok {
		s, isString := v.(string)
		if !isString {
			return nil, diag.Errorf(diag.CodeStyle, elem.Span(), "ref target is %T, want content.Label", v)
		}
		label = content.Label(s)
	}

	target, err := r.snap.QueryLabel(label)
	if err != nil {
		// Misses are expected while the snapshot is still catching up;
		// they turn fatal only when the converged pass still reports them.
		r.misses = append(r.misses, err)
		return content.Text("?"), nil
	}

	text := r.refText(target, styles)
	if supplement, _ := styles.Resolve(elem, "supplement").(string); supplement != "" {
		text = supplement + " " + text
	}
	return content.Text(text), nil
}

// refText renders the reference body: the target's own counter value under
// its numbering when it has one, otherwise its ordinal among located
// elements of the same kind. The counter fold stops just before the
// target, so the target's own step is applied on top.
func (r *resolver) refText(target *content.Node, styles *content.Chain) string {
	loc, located := target.Location()
	if !located {
		return "?"
	}
	if target.Kind() == content.KindHeading {
		pattern, _ := styles.Resolve(target, "numbering").(string)
		if pattern != "" {
			level, _ := styles.Resolve(target, "level").(int)
			values := content.CounterStep(level).
				Apply(r.snap.CounterAt(content.KindCounter(content.KindHeading), loc))
			return introspect.FormatNumbering(pattern, values...)
		}
	}
	if n := r.snap.Ordinal(loc); n > 0 {
		return strconv.Itoa(n)
	}
	return "?"
}
