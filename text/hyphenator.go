package text

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"embed"
	"io"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// SOFTHYPHEN is inserted at discovered break points so the line breaker can
// split words without changing the visible text.
const SOFTHYPHEN = "­"

//go:embed dict/*.gz
var dictFiles embed.FS

// hyph implements Knuth-Liang hyphenation over a TeX pattern dictionary.
type hyph struct {
	language   string
	patterns   *patternTrie
	exceptions map[string][]int
	leftMin    int
	rightMin   int
}

func getCompressedDictionary(name string) ([]byte, error) {
	data, err := dictFiles.ReadFile(name)
	if err != nil {
		return nil, err
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func tryLoadDictionary(lang, kind string) ([]byte, error) {
	return getCompressedDictionary("dict/" + lang + "." + kind + ".txt.gz")
}

// loadDictionary reads a pattern list and an optional exception list. Lines
// starting with '%' are comments. Reloading the same language keeps the
// already built tables.
func (h *hyph) loadDictionary(lang string, patterns, exceptions io.Reader) error {
	if h.language == lang && h.patterns != nil {
		return nil
	}
	h.language = lang
	h.patterns = newPatternTrie()
	h.exceptions = make(map[string][]int)
	h.leftMin, h.rightMin = 2, 2

	scan := bufio.NewScanner(patterns)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		h.patterns.insert(strings.ToLower(line))
	}
	if err := scan.Err(); err != nil {
		return err
	}

	scan = bufio.NewScanner(exceptions)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		// exception entries carry explicit hyphens: "ta-ble". An entry
		// without hyphens pins the word as unbreakable.
		var breaks []int
		pos := 0
		for _, r := range strings.ToLower(line) {
			if r == '-' {
				breaks = append(breaks, pos)
				continue
			}
			pos++
		}
		word := strings.ReplaceAll(strings.ToLower(line), "-", "")
		h.exceptions[word] = breaks
	}
	return scan.Err()
}

// breakpoints returns the rune offsets inside word where a hyphen may go.
// The word must already be lower-cased.
func (h *hyph) breakpoints(word []rune) []int {
	if len(word) < h.leftMin+h.rightMin {
		return nil
	}
	if b, ok := h.exceptions[string(word)]; ok {
		return b
	}

	padded := make([]rune, 0, len(word)+2)
	padded = append(padded, '.')
	padded = append(padded, word...)
	padded = append(padded, '.')

	levels := make([]int, len(padded)+1)
	for start := range padded {
		h.patterns.apply(padded, start, levels)
	}

	// the gap before word[i] is levels[i+1]; odd means break allowed
	var breaks []int
	for i := h.leftMin; i <= len(word)-h.rightMin; i++ {
		if levels[i+1]%2 == 1 {
			breaks = append(breaks, i)
		}
	}
	return breaks
}

func (h *hyph) hyphWord(word, hyphen string) string {
	runes := []rune(word)
	breaks := h.breakpoints([]rune(strings.ToLower(word)))
	if len(breaks) == 0 {
		return word
	}
	var b strings.Builder
	prev := 0
	for _, at := range breaks {
		b.WriteString(string(runes[prev:at]))
		b.WriteString(hyphen)
		prev = at
	}
	b.WriteString(string(runes[prev:]))
	return b.String()
}

// hyphString hyphenates every letter run in text, passing all other symbols
// through untouched.
func (h *hyph) hyphString(text, hyphen string) string {
	var (
		b    strings.Builder
		word []rune
	)
	flush := func() {
		if len(word) > 0 {
			b.WriteString(h.hyphWord(string(word), hyphen))
			word = word[:0]
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) {
			word = append(word, r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}

// Hyphenator inserts soft hyphens into text using language-specific
// hyphenation patterns.
type Hyphenator struct {
	inner *hyph
}

// Regional variants share the base dictionary (de-DE, de-AT -> de).
var dictNames = map[string]string{
	"en": "en-us",
	"ru": "ru",
	"de": "de",
}

func NewHyphenator(lang language.Tag, log *zap.Logger) *Hyphenator {
	base, confidence := lang.Base()
	if confidence == language.No {
		log.Warn("Unable to determine language base, turning off hyphenation", zap.Stringer("tag", lang))
		return nil
	}
	name, ok := dictNames[base.String()]
	if !ok {
		log.Warn("No hyphenation dictionary for language, turning off hyphenation", zap.Stringer("tag", lang))
		return nil
	}

	dataPatterns, err := tryLoadDictionary(name, "pat")
	if err != nil {
		log.Warn("Unable to load hyphenation patterns", zap.String("dictionary", name), zap.Error(err))
		return nil
	}
	dataExceptions, err := tryLoadDictionary(name, "hyp")
	if err != nil {
		dataExceptions = []byte{}
	}

	h := new(hyph)
	if err := h.loadDictionary(name, bytes.NewReader(dataPatterns), bytes.NewReader(dataExceptions)); err != nil {
		log.Warn("Unable to parse hyphenation dictionary", zap.String("dictionary", name), zap.Error(err))
		return nil
	}
	return &Hyphenator{inner: h}
}

// Hyphenate returns text with soft hyphens inserted at legal break points.
func (h *Hyphenator) Hyphenate(text string) string {
	if h == nil {
		return text
	}
	return h.inner.hyphString(text, SOFTHYPHEN)
}
