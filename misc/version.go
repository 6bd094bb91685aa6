// Package misc provides program identification helpers shared by the CLI and
// the debug reporter.
package misc

import (
	"runtime/debug"
	"strings"
)

const appName = "dtc"

// GetAppName returns short program name used for logs, reports and temporary files.
func GetAppName() string {
	return appName
}

// GetVersion returns module version recorded in build info, if any.
func GetVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || len(bi.Main.Version) == 0 || bi.Main.Version == "(devel)" {
		return "development"
	}
	return bi.Main.Version
}

// GetGitHash returns VCS revision recorded in build info, shortened to 12
// characters the way git does it.
func GetGitHash() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	var rev, modified string
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				modified = "*"
			}
		}
	}
	if len(rev) == 0 {
		return "unknown"
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return rev + modified
}

// GetEnvironment returns printable build settings for debug output.
func GetEnvironment() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var sb strings.Builder
	for _, s := range bi.Settings {
		if strings.HasPrefix(s.Key, "-") || strings.HasPrefix(s.Key, "GO") || s.Key == "CGO_ENABLED" {
			sb.WriteString(s.Key)
			sb.WriteByte('=')
			sb.WriteString(s.Value)
			sb.WriteByte(' ')
		}
	}
	return strings.TrimSpace(sb.String())
}
