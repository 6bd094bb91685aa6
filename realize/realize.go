// Package realize rewrites raw content into flow primitives by applying
// scoped set and show rules. The output is a flat list of primitives the
// layout engine consumes: paragraphs, blocks, spacing, breaks, placed
// content and invisible location tags.
package realize

import (
	"fmt"
	"strings"

	"dtc/content"
	"dtc/diag"
)

// Resolver evaluates content whose value depends on a completed layout
// pass: context blocks, counter displays and label references. During the
// first pass implementations answer with placeholders.
type Resolver interface {
	ResolveContext(elem *content.Node, styles *content.Chain) (*content.Node, error)
	ResolveCounterDisplay(elem *content.Node, styles *content.Chain) (*content.Node, error)
	ResolveRef(elem *content.Node, styles *content.Chain) (*content.Node, error)
}

// Locator hands out locations for elements as they are prepared. Locations
// must be stable across passes for unchanged content.
type Locator interface {
	Next(elem *content.Node) content.Location
}

// Pair is one realized flow primitive together with the styles active at
// its position.
type Pair struct {
	Node   *content.Node
	Styles *content.Chain
}

// Realizer drives rule application. One Realizer serves a whole compilation
// pass; layout starts nested runs through it for container bodies.
type Realizer struct {
	Resolver Resolver
	Locator  Locator
	Warnings *diag.Sink
}

// Flow realizes a top-level content subtree. Page and document set rules
// are admitted here; they configure the page run the content lands on.
func (r *Realizer) Flow(root *content.Node, styles *content.Chain) ([]Pair, error) {
	return r.realize(root, styles, false)
}

// ContainerFlow realizes the body of a container (block, float, footnote
// entry, header or footer). Page and document set rules are rejected.
func (r *Realizer) ContainerFlow(root *content.Node, styles *content.Chain) ([]Pair, error) {
	return r.realize(root, styles, true)
}

func (r *Realizer) realize(root *content.Node, styles *content.Chain, container bool) ([]Pair, error) {
	v := &run{r: r, container: container, applied: make(map[int]int)}
	if err := v.visit(root, styles); err != nil {
		return nil, err
	}
	v.flushPar()
	return v.out, nil
}

// run is the state of one realization descent.
type run struct {
	r         *Realizer
	container bool
	seen      bool        // visible content emitted; document set rules must precede it
	applied   map[int]int // active transform applications per recipe depth
	out       []Pair
	par       []Pair // pending inline content for paragraph grouping
}

func (v *run) visit(n *content.Node, ch *content.Chain) error {
	if n == nil {
		return nil
	}
	switch n.Op() {
	case content.OpSeq:
		for _, child := range n.Children() {
			if err := v.visit(child, ch); err != nil {
				return err
			}
		}
		return nil
	case content.OpStyled:
		inner, entries := n.StyledInner()
		if err := v.checkScope(entries); err != nil {
			return err
		}
		return v.visit(inner, ch.Push(entries...))
	case content.OpTag:
		v.emit(n, ch)
		return nil
	case content.OpText, content.OpElem:
		return v.prepareAndProcess(n, ch)
	default:
		return fmt.Errorf("realize: unknown node op %d", n.Op())
	}
}

// checkScope rejects style entries that only make sense at the top level of
// the document flow.
func (v *run) checkScope(entries []content.Entry) error {
	for _, e := range entries {
		p, ok := e.(content.Property)
		if !ok {
			continue
		}
		switch p.Kind {
		case content.KindPage:
			if v.container {
				return diag.Errorf(diag.CodeStyle, p.Span, "page configuration is not allowed inside of containers")
			}
		case content.KindDocument:
			if v.container {
				return diag.Errorf(diag.CodeStyle, p.Span, "document set rules are not allowed inside of containers")
			}
			if v.seen {
				return diag.Errorf(diag.CodeStyle, p.Span, "document set rules must appear before any content")
			}
		}
	}
	return nil
}

// prepareAndProcess assigns a location to a locatable or labeled element the
// first time it passes through and surrounds its realized output with tags,
// then applies the matching rules.
func (v *run) prepareAndProcess(n *content.Node, ch *content.Chain) error {
	if n.Op() == content.OpElem && !n.IsPrepared() && needsLocation(n) {
		prepared := n.Prepare(v.r.Locator.Next(n))
		loc, _ := prepared.Location()

		v.emit(content.TagNode(content.Tag{Elem: prepared, Loc: loc}), ch)
		if err := v.process(prepared, ch); err != nil {
			return err
		}
		v.emit(content.TagNode(content.Tag{End: true, Elem: prepared, Loc: loc}), ch)
		return nil
	}
	return v.process(n, ch)
}

func needsLocation(n *content.Node) bool {
	return n.Kind().Locatable() || !n.Label().IsZero()
}

// process scans the chain nearest-first for show rules matching the node.
// Show-set styles accumulate until a transforming rule wins; the first
// transform is applied under its recursion permit and its output realized
// in place. Without a transform the node keeps its default look.
func (v *run) process(n *content.Node, ch *content.Chain) error {
	var setGroups [][]content.Property
	for _, ref := range ch.Recipes() {
		if !ref.Recipe.Sel.Realizable() || !ref.Recipe.Sel.Matches(n) {
			continue
		}
		t := ref.Recipe.Transform
		if t.Kind() == content.TransformSet {
			setGroups = append(setGroups, t.SetProps())
			continue
		}

		// a transform may re-match content it just produced exactly
		// once more, after that the rule is feeding on its own output
		if v.applied[ref.Depth] >= 2 {
			return diag.Recursion(ref.Recipe.Span, ref.Recipe.Sel.String())
		}

		replacement, err := applyTransform(t, n)
		if err != nil {
			return err
		}
		v.applied[ref.Depth]++
		err = v.visit(replacement, ch.Push(flattenSets(setGroups)...))
		v.applied[ref.Depth]--
		return err
	}
	return v.defaultLook(n, ch.Push(flattenSets(setGroups)...))
}

// flattenSets orders collected show-set properties so the nearest rule ends
// up nearest on the chain after a single Push.
func flattenSets(groups [][]content.Property) []content.Entry {
	if len(groups) == 0 {
		return nil
	}
	var out []content.Entry
	for i := len(groups) - 1; i >= 0; i-- {
		for _, p := range groups[i] {
			out = append(out, p)
		}
	}
	return out
}

func applyTransform(t content.Transform, n *content.Node) (*content.Node, error) {
	if t.Kind() == content.TransformLiteral {
		return t.Literal(), nil
	}
	return t.Apply(n)
}

// defaultLook realizes an element through its built-in rule. Composite
// kinds rewrite into simpler content that is realized again; primitive
// kinds emit directly. Deferred kinds ask the resolver.
func (v *run) defaultLook(n *content.Node, ch *content.Chain) error {
	if n.Op() == content.OpText {
		v.emit(n, ch)
		return nil
	}

	switch n.Kind() {
	case content.KindHeading:
		return v.visit(headingLook(n, ch), ch)
	case content.KindStrong:
		return v.visit(strongLook(n, ch), ch)
	case content.KindEmph:
		return v.visit(emphLook(n), ch)
	case content.KindList:
		return v.visit(listLook(n, ch), ch)

	case content.KindRef:
		out, err := v.r.Resolver.ResolveRef(n, ch)
		if err != nil {
			return err
		}
		return v.visit(out, ch)
	case content.KindContext:
		out, err := v.r.Resolver.ResolveContext(n, ch)
		if err != nil {
			return err
		}
		return v.visit(out, ch)
	case content.KindCounterDisplay:
		out, err := v.r.Resolver.ResolveCounterDisplay(n, ch)
		if err != nil {
			return err
		}
		return v.visit(out, ch)

	case content.KindPar:
		// an explicit paragraph dissolves into its runs, so inline
		// elements inside it still get realized, then regroups
		v.flushPar()
		if err := v.visit(fieldContent(n, "body"), ch); err != nil {
			return err
		}
		v.flushPar()
		return nil
	case content.KindParbreak:
		v.flushPar()
		return nil
	case content.KindCounterUpdate, content.KindStateUpdate, content.KindMetadata:
		// invisible; only the surrounding tags carry their payload
		return nil
	case content.KindGeneric:
		// fallback content from a loader has no look of its own
		return v.visit(fieldContent(n, "body"), ch)

	default:
		v.emit(n, ch)
		return nil
	}
}

// emit routes one realized primitive. Inline content collects into the
// pending paragraph; block content closes it. Tags attach to the paragraph
// when one is open so they stay with the line they annotate.
func (v *run) emit(n *content.Node, ch *content.Chain) {
	switch {
	case n.IsTag():
		if len(v.par) > 0 {
			v.par = append(v.par, Pair{Node: n, Styles: ch})
		} else {
			v.out = append(v.out, Pair{Node: n, Styles: ch})
		}
	case isInline(n):
		v.seen = true
		v.par = append(v.par, Pair{Node: n, Styles: ch})
	default:
		v.seen = true
		v.flushPar()
		v.out = append(v.out, Pair{Node: n, Styles: ch})
	}
}

func isInline(n *content.Node) bool {
	if n.IsText() {
		return true
	}
	return n.Op() == content.OpElem && !n.Kind().Block()
}

// flushPar closes the pending paragraph. Runs are joined, the paragraph is
// styled at the deepest scope shared by all its content, and per-run style
// suffixes are re-wrapped inside the body. A paragraph of nothing but white
// space dissolves; its tags survive at block level.
func (v *run) flushPar() {
	if len(v.par) == 0 {
		return
	}
	pairs := v.par
	v.par = nil

	visible := false
	for _, p := range pairs {
		if p.Node.IsTag() {
			continue
		}
		if p.Node.IsText() && strings.TrimSpace(p.Node.Text()) == "" {
			continue
		}
		visible = true
		break
	}
	if !visible {
		for _, p := range pairs {
			if p.Node.IsTag() {
				v.out = append(v.out, p)
			}
		}
		return
	}

	// join adjacent text runs that share a style scope
	merged := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if p.Node.IsText() && len(merged) > 0 {
			last := &merged[len(merged)-1]
			if last.Node.IsText() && last.Styles == p.Styles {
				last.Node = content.Text(last.Node.Text() + p.Node.Text()).At(last.Node.Span())
				continue
			}
		}
		merged = append(merged, p)
	}

	chains := make([]*content.Chain, len(merged))
	for i, p := range merged {
		chains[i] = p.Styles
	}
	trunk := content.Trunk(chains...)

	body := make([]*content.Node, 0, len(merged))
	for _, p := range merged {
		node := p.Node
		if suffix := p.Styles.Suffix(trunk); len(suffix) > 0 {
			node = content.Styled(node, suffix...)
		}
		body = append(body, node)
	}
	v.out = append(v.out, Pair{Node: content.Par(body...), Styles: trunk})
}
