//go:build windows

package config

import (
	"os"
	"strings"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
	"golang.org/x/term"
)

// CleanFileName makes a string usable as a single path segment. Characters
// Windows refuses in file names are removed along with separators, an
// empty result is replaced with a placeholder.
func CleanFileName(in string) string {
	const reserved = `<>":/\|?*`
	out := strings.Map(func(r rune) rune {
		if r == 0 || r == os.PathSeparator || r == os.PathListSeparator || strings.ContainsRune(reserved, r) {
			return -1
		}
		return r
	}, in)
	if out == "" {
		out = "unnamed"
	}
	return out
}

// EnableColorOutput reports whether stream can display colorized log
// output. Windows consoles honor ANSI color sequences only with virtual
// terminal processing switched on, which requires Windows 10, so the
// console mode is adjusted here as well.
func EnableColorOutput(stream *os.File) bool {
	if !windowsSupportsVT() {
		return false
	}
	if !term.IsTerminal(int(stream.Fd())) {
		return false
	}

	h := windows.Handle(stream.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return false
	}
	if err := windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING); err != nil {
		return false
	}
	return true
}

// windowsSupportsVT reports whether the running Windows build is new
// enough to understand virtual terminal sequences.
func windowsSupportsVT() bool {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows NT\CurrentVersion`, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	defer k.Close()

	major, _, err := k.GetIntegerValue("CurrentMajorVersionNumber")
	if err != nil {
		return false
	}
	return major >= 10
}
