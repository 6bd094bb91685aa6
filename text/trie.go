package text

// patternTrie stores TeX-style hyphenation patterns keyed by rune. Each
// terminal node carries the numeric inter-letter levels parsed out of the
// pattern it terminates.
type patternTrie struct {
	levels   []int
	children map[rune]*patternTrie
}

func newPatternTrie() *patternTrie {
	return &patternTrie{children: make(map[rune]*patternTrie)}
}

// insert adds a pattern such as ".hy2p" or "a1bc3d". A digit annotates the
// gap before the following letter, a letter without a preceding digit gets
// an implied zero. The stored level slice therefore has one entry more than
// the pattern has letters.
func (p *patternTrie) insert(pattern string) {
	letters := make([]rune, 0, len(pattern))
	levels := make([]int, 0, len(pattern)+1)

	pending := 0
	for _, r := range pattern {
		if r >= '0' && r <= '9' {
			pending = int(r - '0')
			continue
		}
		levels = append(levels, pending)
		letters = append(letters, r)
		pending = 0
	}
	levels = append(levels, pending)

	node := p
	for _, r := range letters {
		child := node.children[r]
		if child == nil {
			child = newPatternTrie()
			node.children[r] = child
		}
		node = child
	}
	node.levels = levels
}

// apply merges into levels the level vectors of every pattern matching word
// at position start. levels[i] guards the gap before word[i] and keeps the
// maximum over all matches.
func (p *patternTrie) apply(word []rune, start int, levels []int) {
	node := p
	for i := start; i < len(word); i++ {
		node = node.children[word[i]]
		if node == nil {
			return
		}
		for j, v := range node.levels {
			if idx := start + j; idx < len(levels) && v > levels[idx] {
				levels[idx] = v
			}
		}
	}
}

// size counts all nodes of the trie, not including the root.
func (p *patternTrie) size() int {
	n := len(p.children)
	for _, child := range p.children {
		n += child.size()
	}
	return n
}
