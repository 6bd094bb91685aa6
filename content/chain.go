package content

import "strings"

// Chain is a persistent stack of style entries. Pushing shares the parent
// without copying, so chains built during recursive descent cost one link
// each and fall out of scope with their stack frame. A nil *Chain is the
// empty chain. Chains are never mutated once another chain links to them.
type Chain struct {
	head []Entry
	tail *Chain
}

// NewChain creates a root chain from the given entries.
func NewChain(entries ...Entry) *Chain {
	if len(entries) == 0 {
		return nil
	}
	return &Chain{head: entries}
}

// Push returns a child chain with the entries scoped nearer than everything
// already on the receiver.
func (c *Chain) Push(entries ...Entry) *Chain {
	if len(entries) == 0 {
		return c
	}
	return &Chain{head: entries, tail: c}
}

// walk visits entries from nearest to farthest. Entries pushed later in one
// link are nearer than earlier ones. Returns false if fn stopped the walk.
func (c *Chain) walk(fn func(Entry) bool) bool {
	for link := c; link != nil; link = link.tail {
		for i := len(link.head) - 1; i >= 0; i-- {
			if !fn(link.head[i]) {
				return false
			}
		}
	}
	return true
}

// Count returns the total number of entries on the chain.
func (c *Chain) Count() int {
	n := 0
	for link := c; link != nil; link = link.tail {
		n += len(link.head)
	}
	return n
}

// links returns the number of chain links.
func (c *Chain) links() int {
	n := 0
	for link := c; link != nil; link = link.tail {
		n++
	}
	return n
}

// Get returns the nearest property value for (kind, name).
func (c *Chain) Get(kind Kind, name string) (any, bool) {
	var found any
	ok := false
	c.walk(func(e Entry) bool {
		if p, isProp := e.(Property); isProp && p.Kind == kind && p.Name == name {
			found, ok = p.Value, true
			return false
		}
		return true
	})
	return found, ok
}

// GetOr returns the nearest property value or the fallback.
func (c *Chain) GetOr(kind Kind, name string, fallback any) any {
	if v, ok := c.Get(kind, name); ok {
		return v
	}
	return fallback
}

// Resolve returns the effective value of an optional field for an element:
// the element's own value if present, otherwise the chain value (folded for
// foldable properties), otherwise the schema default.
func (c *Chain) Resolve(elem *Node, name string) any {
	kind := elem.Kind()
	spec, ok := kind.Field(name)
	if !ok {
		return nil
	}
	if v, ok := elem.Field(name); ok {
		if spec.Fold != nil {
			return spec.Fold(v, c.fold(kind, spec))
		}
		return v
	}
	if spec.Fold != nil {
		return c.fold(kind, spec)
	}
	return c.GetOr(kind, name, spec.Default)
}

// ResolveKind returns the effective value of an optional field for a kind
// with no element instance at hand (set-only kinds such as page settings).
func (c *Chain) ResolveKind(kind Kind, name string) any {
	spec, ok := kind.Field(name)
	if !ok {
		return nil
	}
	if spec.Fold != nil {
		return c.fold(kind, spec)
	}
	return c.GetOr(kind, name, spec.Default)
}

// fold combines all chain values for a foldable property, nearer entries
// folding over farther ones, starting from the schema default.
func (c *Chain) fold(kind Kind, spec FieldSpec) any {
	var matches []any
	c.walk(func(e Entry) bool {
		if p, isProp := e.(Property); isProp && p.Kind == kind && p.Name == spec.Name {
			matches = append(matches, p.Value)
		}
		return true
	})
	acc := spec.Default
	for i := len(matches) - 1; i >= 0; i-- {
		acc = spec.Fold(matches[i], acc)
	}
	return acc
}

// RecipeRef is a show rule found on a chain together with its depth counted
// from the chain root. The depth stays stable as the chain grows towards the
// leaves, so it identifies the rule during one realization pass.
type RecipeRef struct {
	Recipe Recipe
	Depth  int
}

// Recipes returns the show rules on the chain, nearest first.
func (c *Chain) Recipes() []RecipeRef {
	total := c.Count()
	var out []RecipeRef
	i := 0
	c.walk(func(e Entry) bool {
		if r, isRecipe := e.(Recipe); isRecipe {
			out = append(out, RecipeRef{Recipe: r, Depth: total - i})
		}
		i++
		return true
	})
	return out
}

// Suffix returns the entries pushed onto c since ancestor, outermost first,
// so pushing them onto ancestor in order reproduces c's scoping. Returns nil
// when ancestor is not on the chain.
func (c *Chain) Suffix(ancestor *Chain) []Entry {
	var links []*Chain
	for link := c; link != ancestor; link = link.tail {
		if link == nil {
			return nil
		}
		links = append(links, link)
	}
	var out []Entry
	for i := len(links) - 1; i >= 0; i-- {
		out = append(out, links[i].head...)
	}
	return out
}

// Trunk returns the longest chain shared by all given chains: the entries
// that were active when realization of all of them began. Used to style
// grouped content at the deepest common scope.
func Trunk(chains ...*Chain) *Chain {
	if len(chains) == 0 {
		return nil
	}
	trunk := chains[0]
	depth := trunk.links()
	for _, c := range chains[1:] {
		cd := c.links()
		for depth > cd {
			trunk = trunk.tail
			depth--
		}
		for cd > depth {
			c = c.tail
			cd--
		}
		for trunk != c {
			trunk = trunk.tail
			c = c.tail
			depth--
		}
	}
	return trunk
}

func (c *Chain) String() string {
	var parts []string
	c.walk(func(e Entry) bool {
		parts = append(parts, e.entryString())
		return true
	})
	return "chain[" + strings.Join(parts, "; ") + "]"
}
