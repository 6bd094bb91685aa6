package introspect

import (
	"strconv"
	"strings"
)

// Counting symbols a numbering pattern may contain. Every other rune
// separates or decorates them.
const countingSymbols = "1aAiI"

// FormatNumbering renders counter values through a pattern like "1.1" or
// "(a)". Each counting symbol consumes one value; surplus values repeat the
// last symbol together with its preceding separator, so "1.1" fits any
// depth. Text after the last symbol is a suffix. A pattern without any
// counting symbol is returned unchanged.
func FormatNumbering(pattern string, values ...int) string {
	prefixes, symbols, suffix := parseNumbering(pattern)
	if len(symbols) == 0 {
		return pattern
	}

	var sb strings.Builder
	for i, v := range values {
		j := i
		if j >= len(symbols) {
			j = len(symbols) - 1
		}
		sb.WriteString(prefixes[j])
		sb.WriteString(formatSymbol(symbols[j], v))
	}
	sb.WriteString(suffix)
	return sb.String()
}

func parseNumbering(pattern string) (prefixes []string, symbols []rune, suffix string) {
	var sep strings.Builder
	for _, r := range pattern {
		if strings.ContainsRune(countingSymbols, r) {
			prefixes = append(prefixes, sep.String())
			symbols = append(symbols, r)
			sep.Reset()
			continue
		}
		sep.WriteRune(r)
	}
	return prefixes, symbols, sep.String()
}

func formatSymbol(symbol rune, v int) string {
	switch symbol {
	case 'a':
		return alphabetic(v)
	case 'A':
		return strings.ToUpper(alphabetic(v))
	case 'i':
		return roman(v)
	case 'I':
		return strings.ToUpper(roman(v))
	default:
		return strconv.Itoa(v)
	}
}

// alphabetic renders 1 as "a", 26 as "z" and 27 as "aa", the bijective
// base-26 used for appendix and sub-item numbering.
func alphabetic(v int) string {
	if v < 1 {
		return strconv.Itoa(v)
	}
	var buf []byte
	for v > 0 {
		v--
		buf = append(buf, byte('a'+v%26))
		v /= 26
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

var romanPairs = []struct {
	value  int
	letter string
}{
	{1000, "m"}, {900, "cm"}, {500, "d"}, {400, "cd"},
	{100, "c"}, {90, "xc"}, {50, "l"}, {40, "xl"},
	{10, "x"}, {9, "ix"}, {5, "v"}, {4, "iv"}, {1, "i"},
}

func roman(v int) string {
	if v < 1 {
		return strconv.Itoa(v)
	}
	var sb strings.Builder
	for _, p := range romanPairs {
		for v >= p.value {
			sb.WriteString(p.letter)
			v -= p.value
		}
	}
	return sb.String()
}
