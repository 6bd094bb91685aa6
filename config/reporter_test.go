package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestReport(t *testing.T) *Report {
	t.Helper()

	f, err := os.Create(filepath.Join(t.TempDir(), "report.zip"))
	if err != nil {
		t.Fatalf("create report file: %v", err)
	}
	return &Report{entries: make(map[string]entry), file: f}
}

func readReportArchive(t *testing.T, path string) map[string]string {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open report archive: %v", err)
	}
	defer zr.Close()

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestReportArchiveContents(t *testing.T) {
	r := newTestReport(t)
	name := r.Name()

	work := t.TempDir()
	if err := os.WriteFile(filepath.Join(work, "pass1.txt"), []byte("first pass"), 0o644); err != nil {
		t.Fatalf("write work file: %v", err)
	}

	single := filepath.Join(t.TempDir(), "final.log")
	if err := os.WriteFile(single, []byte("log lines"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	r.Store("workdir", work)
	r.Store("final.log", single)
	r.StoreData("config/actual.yaml", []byte("document:\n"))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got := readReportArchive(t, name)
	if _, ok := got["MANIFEST"]; !ok {
		t.Error("archive has no MANIFEST entry")
	}
	if got["workdir/pass1.txt"] != "first pass" {
		t.Errorf("workdir/pass1.txt = %q, want %q", got["workdir/pass1.txt"], "first pass")
	}
	if got["final.log"] != "log lines" {
		t.Errorf("final.log = %q, want %q", got["final.log"], "log lines")
	}
	if got["config/actual.yaml"] != "document:\n" {
		t.Errorf("config/actual.yaml = %q, want %q", got["config/actual.yaml"], "document:\n")
	}
}

func TestReportCloseRemovesStoredDirs(t *testing.T) {
	r := newTestReport(t)

	work := filepath.Join(t.TempDir(), "work")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatalf("make work dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(work, "dump.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write work file: %v", err)
	}

	kept := filepath.Join(t.TempDir(), "kept.txt")
	if err := os.WriteFile(kept, []byte("stay"), 0o644); err != nil {
		t.Fatalf("write kept file: %v", err)
	}

	r.Store("workdir", work)
	r.Store("kept.txt", kept)

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(work); !os.IsNotExist(err) {
		t.Error("stored directory survived Close")
	}
	if _, err := os.Stat(kept); err != nil {
		t.Errorf("stored file was removed: %v", err)
	}
}

func TestReportStoreCopyIsolatesContent(t *testing.T) {
	r := newTestReport(t)
	name := r.Name()

	src := filepath.Join(t.TempDir(), "style.css")
	if err := os.WriteFile(src, []byte("original"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if err := r.StoreCopy("style.css", src); err != nil {
		t.Fatalf("StoreCopy() error = %v", err)
	}

	// mutate the original after the snapshot
	if err := os.WriteFile(src, []byte("mutated"), 0o644); err != nil {
		t.Fatalf("rewrite source: %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got := readReportArchive(t, name)
	if got["style.css"] != "original" {
		t.Errorf("snapshot content = %q, want %q", got["style.css"], "original")
	}
}

func TestReportStoreConflictPanics(t *testing.T) {
	r := newTestReport(t)
	r.Store("same", "/tmp/a")

	defer func() {
		if recover() == nil {
			t.Error("Store with a conflicting path did not panic")
		}
	}()
	r.Store("same", "/tmp/b")
}

func TestReportNilReceiver(t *testing.T) {
	var r *Report

	r.Store("a", "/tmp/a")
	r.StoreData("b", []byte("x"))
	if err := r.StoreCopy("c", "/tmp/c"); err != nil {
		t.Errorf("StoreCopy() on nil report error = %v", err)
	}
	if got := r.Name(); got != "" {
		t.Errorf("Name() on nil report = %q, want empty", got)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() on nil report error = %v", err)
	}
}

func TestReportCloseWithoutFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close() without a file error = %v", err)
	}
}
