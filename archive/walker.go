// Package archive holds the zip plumbing shared by the exporters: Walk for
// scanning source archives and Rewrite for producing stable result bundles.
package archive

import (
	"archive/zip"
	"errors"
	"path"
	"strings"
)

// WalkFunc is called by Walk for every matched entry. The archive argument
// is the path Walk was given, entry is the matched file. Returning an error
// stops the walk and surfaces the error to the caller.
type WalkFunc func(archive string, entry *zip.File) error

// Walk visits the regular file entries of a zip archive whose names start
// with prefix, in archive order. Matching is done on slash-normalized names,
// so archives written with backslash separators still match. Entries with
// absolute names or ".." components are skipped, they never reach fn.
func Walk(archive, prefix string, fn WalkFunc) error {

	r, err := zip.OpenReader(archive)
	if err != nil {
		// The reader is still usable when only entry names are suspect;
		// such entries are skipped below.
		if r == nil || !errors.Is(err, zip.ErrInsecurePath) {
			return err
		}
	}
	defer r.Close()

	prefix = strings.ReplaceAll(prefix, `\`, "/")
	for _, f := range r.File {
		name := strings.ReplaceAll(f.FileHeader.Name, `\`, "/")
		if !entryIsSafe(name) {
			continue
		}
		if f.FileInfo().IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := fn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

// entryIsSafe rejects entry names that could escape an extraction
// directory.
func entryIsSafe(name string) bool {
	if name == "" || path.IsAbs(name) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
