package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/multierr"

	"dtc/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare opens the report destination. When the configured path cannot be
// created the report goes to a temporary file instead, the caller learns the
// actual location from Name.
func (conf *ReporterConfig) Prepare() (*Report, error) {

	rpt := &Report{entries: make(map[string]entry)}

	f, err := os.Create(conf.Destination)
	if err != nil {
		f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to create report: %w", err)
	}
	rpt.file = f
	return rpt, nil
}

// entry is a single item scheduled for the report archive. Either data is
// set, or resolved points at a file or directory on disk.
type entry struct {
	source   string
	resolved string
	stamp    time.Time
	data     []byte
}

// Report collects files, directories and raw data during a run and zips
// everything up on Close. Every method tolerates a nil receiver, a nil
// report means none was requested. Not safe for concurrent use.
type Report struct {
	entries map[string]entry
	file    *os.File
}

// Name returns the absolute path of the report archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if abs, err := filepath.Abs(r.file.Name()); err == nil {
		return abs
	}
	return r.file.Name()
}

// Store schedules a file or directory for the report. The path is read at
// Close time, not now. Directories are treated as transient working copies
// and are removed after archiving. Registering a different path under an
// already taken name is a programming error.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}

	if old, ok := r.entries[name]; ok && old.source != path {
		panic(fmt.Sprintf("report entry %q already holds %s, refusing %s", name, old.source, path))
	}

	e := entry{source: path, resolved: path}
	if abs, err := filepath.Abs(path); err == nil {
		e.resolved = abs
	}
	r.entries[name] = e
}

// StoreData schedules raw bytes for the report under the given name.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}

	if _, ok := r.entries[name]; ok {
		panic(fmt.Sprintf("report entry %q registered twice", name))
	}
	r.entries[name] = entry{data: data, stamp: time.Now()}
}

// StoreCopy snapshots a file or directory into a temporary location right
// away, later changes to the original do not show up in the report. A name
// that is already taken gets a timestamp suffix, storing the same content
// repeatedly is fine.
func (r *Report) StoreCopy(name, path string) error {
	if r == nil {
		return nil
	}

	e := entry{source: path, stamp: time.Now()}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	e.resolved = abs

	if _, ok := r.entries[name]; ok {
		name = fmt.Sprintf("%s-%d", name, e.stamp.UnixNano())
	}

	tmp, err := os.MkdirTemp("", "dtc-r-")
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	switch {
	case info.Mode().IsRegular():
		where, err := snapshotFile(tmp, abs, info.ModTime())
		if err != nil {
			return err
		}
		e.resolved = where
	case info.Mode().IsDir():
		if err := snapshotTree(tmp, abs); err != nil {
			return err
		}
		e.resolved = tmp
	}

	r.entries[name] = e
	return nil
}

// Close writes the archive and removes the transient directories that were
// stored. Safe to call when no report was requested.
func (r *Report) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	defer r.file.Close()

	if err := r.archive(); err != nil {
		return err
	}
	return r.removeSnapshots()
}

func (r *Report) removeSnapshots() error {
	var errs error
	for _, e := range r.entries {
		info, err := os.Stat(e.resolved)
		if err != nil || !info.Mode().IsDir() {
			continue
		}
		errs = multierr.Append(errs, os.RemoveAll(e.resolved))
	}
	return errs
}

// archive writes the MANIFEST first and then every entry in manifest order.
func (r *Report) archive() error {

	zw := zip.NewWriter(r.file)
	defer zw.Close()

	names, manifest := r.manifest()
	if err := addFile(zw, "MANIFEST", time.Now(), manifest); err != nil {
		return err
	}

	for _, name := range names {
		e := r.entries[name]
		if len(e.data) > 0 {
			if err := addFile(zw, name, e.stamp, bytes.NewReader(e.data)); err != nil {
				return err
			}
			continue
		}

		info, err := os.Stat(e.resolved)
		if err != nil {
			// stored paths can vanish before Close, skip them
			continue
		}
		switch {
		case info.Mode().IsRegular():
			if err := addDiskFile(zw, name, e.resolved, info.ModTime()); err != nil {
				return err
			}
		case info.Mode().IsDir():
			if err := addTree(zw, name, e.resolved); err != nil {
				return err
			}
		}
	}
	return nil
}

// manifest renders the entry listing and returns the names in listing order.
func (r *Report) manifest() ([]string, *bytes.Buffer) {

	buf := new(bytes.Buffer)
	if len(r.entries) == 0 {
		return nil, buf
	}

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	now := time.Now()
	for _, name := range names {
		e := r.entries[name]
		stamp := e.stamp
		if stamp.IsZero() {
			stamp = now
		}
		fmt.Fprintf(buf, "%s\t%s\t%s -> %s\n", stamp.UTC().Format(time.UnixDate), name, e.source, e.resolved)
	}
	return names, buf
}

func addFile(zw *zip.Writer, name string, stamp time.Time, src io.Reader) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: stamp})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func addDiskFile(zw *zip.Writer, name, path string, stamp time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return addFile(zw, name, stamp, f)
}

func addTree(zw *zip.Writer, name, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			// links, sockets and the like do not belong in a report
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return addDiskFile(zw, filepath.ToSlash(filepath.Join(name, rel)), path, info.ModTime())
	})
}

// snapshotFile copies src into dstDir keeping the base name and mtime.
func snapshotFile(dstDir, src string, mtime time.Time) (string, error) {
	if err := os.MkdirAll(dstDir, 0o700); err != nil {
		return "", err
	}

	dst := filepath.Join(dstDir, filepath.Base(src))

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	if err := os.Chtimes(dst, mtime, mtime); err != nil {
		return "", err
	}
	return dst, nil
}

// snapshotTree copies the regular files under src into dstDir preserving
// relative layout.
func snapshotTree(dstDir, src string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		_, err = snapshotFile(filepath.Dir(filepath.Join(dstDir, rel)), path, info.ModTime())
		return err
	})
}
