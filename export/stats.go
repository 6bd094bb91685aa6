package export

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"dtc/content"
	"dtc/text"
)

// Stats aggregates document counts reported by the stat command and recorded
// in the bundle manifest.
type Stats struct {
	Pages      int `yaml:"pages"`
	Passes     int `yaml:"passes"`
	Paragraphs int `yaml:"paragraphs"`
	Headings   int `yaml:"headings"`
	Footnotes  int `yaml:"footnotes"`
	Sentences  int `yaml:"sentences"`
	Words      int `yaml:"words"`
}

func (s Stats) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "pages:      %d\n", s.Pages)
	fmt.Fprintf(&sb, "passes:     %d\n", s.Passes)
	fmt.Fprintf(&sb, "paragraphs: %d\n", s.Paragraphs)
	fmt.Fprintf(&sb, "headings:   %d\n", s.Headings)
	fmt.Fprintf(&sb, "footnotes:  %d\n", s.Footnotes)
	fmt.Fprintf(&sb, "sentences:  %d\n", s.Sentences)
	fmt.Fprintf(&sb, "words:      %d\n", s.Words)
	return sb.String()
}

// collectStats counts realized elements through the introspector and running
// text by walking the source tree. Paragraphs are not locatable, so text
// counts cannot come from introspection.
func collectStats(d *Doc, log *zap.Logger) Stats {
	s := Stats{
		Pages:  len(d.result.Document.Pages),
		Passes: d.result.Passes,
	}
	s.Headings = len(d.result.Info.Query(content.SelectKind(content.KindHeading)))
	s.Footnotes = len(d.result.Info.Query(content.SelectKind(content.KindFootnote)))

	split := statSplitter(d, log)
	walkNodes(d.loaded.Root, func(n *content.Node) {
		if n.Op() != content.OpElem {
			return
		}
		switch n.Kind() {
		case content.KindPar:
			s.Paragraphs++
			t := blockTextOf(n, "body")
			s.Words += countWords(split, t)
			s.Sentences += countSentences(split, t)
		case content.KindHeading:
			s.Words += countWords(split, blockTextOf(n, "body"))
		case content.KindFootnote:
			t := blockTextOf(n, "body")
			s.Words += countWords(split, t)
			s.Sentences += countSentences(split, t)
		case content.KindList:
			if items, ok := n.Field("items"); ok {
				for _, item := range items.([]*content.Node) {
					var sb strings.Builder
					blockText(item, &sb)
					t := sb.String()
					s.Words += countWords(split, t)
					s.Sentences += countSentences(split, t)
				}
			}
		}
	})
	return s
}

func statSplitter(d *Doc, log *zap.Logger) *text.Splitter {
	lang, _ := d.styles.ResolveKind(content.KindText, "lang").(string)
	tag, err := language.Parse(lang)
	if err != nil {
		log.Warn("Unable to parse document language, sentence splitting is off",
			zap.String("language", lang), zap.Error(err))
		return nil
	}
	return text.NewSplitter(tag, log)
}

// countedSeparately reports element kinds whose text is attributed to the
// element itself rather than to the enclosing block.
func countedSeparately(k content.Kind) bool {
	switch k {
	case content.KindPar, content.KindHeading, content.KindFootnote, content.KindList:
		return true
	}
	return false
}

func blockTextOf(n *content.Node, field string) string {
	body, ok := n.Field(field)
	if !ok {
		return ""
	}
	inner, ok := body.(*content.Node)
	if !ok || inner == nil {
		return ""
	}
	var sb strings.Builder
	blockText(inner, &sb)
	return sb.String()
}

// blockText flattens the inline content of one block. Nested blocks are
// skipped here and picked up by the walk on their own.
func blockText(n *content.Node, sb *strings.Builder) {
	if n == nil {
		return
	}
	switch {
	case n.IsText():
		sb.WriteString(n.Text())
	case n.IsSequence():
		for _, c := range n.Children() {
			blockText(c, sb)
		}
	case n.IsStyled():
		inner, _ := n.StyledInner()
		blockText(inner, sb)
	case n.Op() == content.OpElem:
		if countedSeparately(n.Kind()) {
			return
		}
		for _, f := range n.Fields() {
			if b, ok := f.Value.(*content.Node); ok && b != nil {
				blockText(b, sb)
			}
		}
	}
}

func countWords(split *text.Splitter, in string) int {
	n := 0
	for w := range split.Words(in, true) {
		if w != "" {
			n++
		}
	}
	return n
}

func countSentences(split *text.Splitter, in string) int {
	if strings.TrimSpace(in) == "" {
		return 0
	}
	n := 0
	for s := range split.Sentences(in) {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

// walkNodes visits every node of the tree in document order, including
// element fields holding nested content.
func walkNodes(n *content.Node, fn func(*content.Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch {
	case n.IsSequence():
		for _, c := range n.Children() {
			walkNodes(c, fn)
		}
	case n.IsStyled():
		inner, _ := n.StyledInner()
		walkNodes(inner, fn)
	case n.Op() == content.OpElem:
		for _, f := range n.Fields() {
			switch v := f.Value.(type) {
			case *content.Node:
				walkNodes(v, fn)
			case []*content.Node:
				for _, c := range v {
					walkNodes(c, fn)
				}
			}
		}
	}
}
