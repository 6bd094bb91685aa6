package export

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/amazon-ion/ion-go/ion"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"
)

const zipFlagDataDescriptor = 0x8

func readBundleEntry(t *testing.T, f *zip.File) []byte {
	t.Helper()
	r, err := f.Open()
	if err != nil {
		t.Fatalf("open entry %s: %v", f.Name, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read entry %s: %v", f.Name, err)
	}
	return data
}

func TestWriteBundle(t *testing.T) {
	d := buildTestDoc(t)

	out := filepath.Join(t.TempDir(), "notes.zip")
	if err := d.writeBundle(out, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("writeBundle() error = %v", err)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	defer zr.Close()

	wantNames := []string{payloadEntry, manifestEntry, renderEntry, styleEntry}
	if len(zr.File) != len(wantNames) {
		t.Fatalf("bundle holds %d entries, want %d", len(zr.File), len(wantNames))
	}
	for i, f := range zr.File {
		if f.Name != wantNames[i] {
			t.Errorf("entry %d = %q, want %q", i, f.Name, wantNames[i])
		}
		if f.Flags&zipFlagDataDescriptor != 0 {
			t.Errorf("entry %s still has the data descriptor flag", f.Name)
		}
	}

	entries := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = readBundleEntry(t, f)
	}

	if string(entries[styleEntry]) != string(d.sheet) {
		t.Error("style entry differs from the effective stylesheet")
	}
	if string(entries[renderEntry]) != string(renderText(d)) {
		t.Error("render entry differs from the text render")
	}

	var man manifest
	if err := yaml.Unmarshal(entries[manifestEntry], &man); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if man.ID != testDocID {
		t.Errorf("manifest ID = %q, want %q", man.ID, testDocID)
	}
	if man.Title != "Field Notes" {
		t.Errorf("manifest Title = %q, want Field Notes", man.Title)
	}
	if man.Passes != 3 {
		t.Errorf("manifest Passes = %d, want 3", man.Passes)
	}
	if man.Generator == "" {
		t.Error("manifest Generator is empty")
	}
	if len(man.Pages) != 2 {
		t.Fatalf("manifest pages = %d, want 2", len(man.Pages))
	}
	if man.Pages[0].Width != "200.00pt" || man.Pages[0].Height != "300.00pt" {
		t.Errorf("manifest page 1 size = %sx%s, want 200.00ptx300.00pt", man.Pages[0].Width, man.Pages[0].Height)
	}
	if len(man.Anchors) != 2 {
		t.Errorf("manifest anchors = %d, want 2", len(man.Anchors))
	}
	if man.Stats != d.stats {
		t.Errorf("manifest stats = %+v, want %+v", man.Stats, d.stats)
	}

	var payload ionDocument
	if err := ion.Unmarshal(entries[payloadEntry], &payload); err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.ID != testDocID {
		t.Errorf("payload ID = %q, want %q", payload.ID, testDocID)
	}
}

func TestWriteBundle_Deterministic(t *testing.T) {
	d := buildTestDoc(t)
	log := zaptest.NewLogger(t)

	first := filepath.Join(t.TempDir(), "notes.zip")
	if err := d.writeBundle(first, log); err != nil {
		t.Fatalf("writeBundle() first error = %v", err)
	}
	second := filepath.Join(t.TempDir(), "notes.zip")
	if err := d.writeBundle(second, log); err != nil {
		t.Fatalf("writeBundle() second error = %v", err)
	}

	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read first bundle: %v", err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("read second bundle: %v", err)
	}
	if string(a) != string(b) {
		t.Error("building the same document twice produced different bundles")
	}
}

func TestWriteBundle_BadTarget(t *testing.T) {
	d := buildTestDoc(t)

	out := filepath.Join(t.TempDir(), "missing", "notes.zip")
	if err := d.writeBundle(out, zaptest.NewLogger(t)); err == nil {
		t.Error("writeBundle() to a missing directory should fail")
	}
}
