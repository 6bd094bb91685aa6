//go:build !windows

package config

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// CleanFileName makes a string usable as a single path segment. Separator
// characters are removed and leading dots trimmed, an empty result is
// replaced with a placeholder.
func CleanFileName(in string) string {
	out := strings.Map(func(r rune) rune {
		if r == os.PathSeparator || r == os.PathListSeparator {
			return -1
		}
		return r
	}, in)
	out = strings.TrimLeft(out, ".")
	if out == "" {
		out = "unnamed"
	}
	return out
}

// EnableColorOutput reports whether stream is an interactive terminal
// able to display colorized log output.
func EnableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
