package export

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/maruel/natural"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"dtc/archive"
	"dtc/misc"
)

const (
	manifestEntry = "manifest.yaml"
	payloadEntry  = "document.ion"
	renderEntry   = "render.txt"
	styleEntry    = "style.css"
)

type manifestPage struct {
	Number    int    `yaml:"number"`
	Numbering string `yaml:"numbering,omitempty"`
	Width     string `yaml:"width"`
	Height    string `yaml:"height"`
}

type manifestAnchor struct {
	Label string `yaml:"label"`
	Slug  string `yaml:"slug"`
	Page  int    `yaml:"page"`
	Kind  string `yaml:"kind"`
}

type manifest struct {
	ID        string           `yaml:"id"`
	Title     string           `yaml:"title,omitempty"`
	Author    string           `yaml:"author,omitempty"`
	Created   time.Time        `yaml:"created"`
	Generator string           `yaml:"generator"`
	Passes    int              `yaml:"passes"`
	Pages     []manifestPage   `yaml:"pages"`
	Anchors   []manifestAnchor `yaml:"anchors,omitempty"`
	Stats     Stats            `yaml:"stats"`
}

func (d *Doc) buildManifest() ([]byte, error) {
	man := manifest{
		ID:        d.refID.String(),
		Title:     d.loaded.Meta("title"),
		Author:    d.loaded.Meta("author"),
		Created:   d.result.CreatedAt,
		Generator: misc.GetAppName() + " " + misc.GetVersion(),
		Passes:    d.result.Passes,
		Stats:     d.stats,
	}
	for _, p := range d.result.Document.Pages {
		man.Pages = append(man.Pages, manifestPage{
			Number:    p.Number,
			Numbering: p.Numbering,
			Width:     fmtAbs(p.Size.W),
			Height:    fmtAbs(p.Size.H),
		})
	}
	for _, a := range documentAnchors(d) {
		man.Anchors = append(man.Anchors, manifestAnchor{
			Label: string(a.label),
			Slug:  a.slug,
			Page:  a.page,
			Kind:  a.kind.Name(),
		})
	}
	return yaml.Marshal(man)
}

// writeBundle packs the manifest, the Ion payload, the text render and the
// effective stylesheet into a zip archive. Entry timestamps come from the
// compilation clock, so the same input produces the same archive.
func (d *Doc) writeBundle(outputPath string, log *zap.Logger) error {

	log.Info("Generating bundle", zap.String("output", outputPath))

	payload, err := marshalIon(d)
	if err != nil {
		return fmt.Errorf("unable to marshal document payload: %w", err)
	}
	man, err := d.buildManifest()
	if err != nil {
		return fmt.Errorf("unable to marshal manifest: %w", err)
	}

	entries := map[string][]byte{
		manifestEntry: man,
		payloadEntry:  payload,
		renderEntry:   renderText(d),
		styleEntry:    d.sheet,
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))

	_, tmpName := filepath.Split(outputPath)
	tmpName = filepath.Join(d.tmpDir, tmpName)

	f, err := os.Create(tmpName)
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	for _, name := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: d.result.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("unable to create archive entry (%s): %w", name, err)
		}
		if _, err := w.Write(entries[name]); err != nil {
			return fmt.Errorf("unable to write archive entry (%s): %w", name, err)
		}
	}

	// make sure buffers are flushed before continuing
	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to close output archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to finalize output file: %w", err)
	}
	// clean temporary file
	defer os.Remove(tmpName)

	return archive.Rewrite(tmpName, outputPath)
}
