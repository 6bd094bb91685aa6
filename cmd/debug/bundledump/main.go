// bundledump inspects result bundles produced by "dtc build".
//
// A bundle is a ZIP container holding a binary Ion payload (document.ion), a
// YAML manifest (manifest.yaml), a plain text rendering (render.txt) and the
// effective stylesheet (style.css). The Ion payload is rewritten as Ion text
// before writing so it can be read and diffed; the remaining entries are
// extracted as is.
package main

import (
	"archive/zip"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amazon-ion/ion-go/ion"
)

const (
	payloadEntry  = "document.ion"
	manifestEntry = "manifest.yaml"
	renderEntry   = "render.txt"
	styleEntry    = "style.css"
)

func main() {
	all := flag.Bool("all", false, "enable all dump flags (-payload, -manifest, -render, -style)")
	payload := flag.Bool("payload", false, "rewrite document.ion as Ion text into <file>-document.txt")
	manifest := flag.Bool("manifest", false, "extract manifest.yaml into <file>-manifest.yaml")
	render := flag.Bool("render", false, "extract render.txt into <file>-render.txt")
	style := flag.Bool("style", false, "extract style.css into <file>-style.css")
	overwrite := flag.Bool("overwrite", false, "overwrite existing output")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: bundledump [-all] [-payload] [-manifest] [-render] [-style] [-overwrite] <file.zip> [outdir]\n\n")
		fmt.Fprintf(os.Stderr, "Reads result bundles produced by \"dtc build\" and extracts entries for inspection.\n")
		fmt.Fprintf(os.Stderr, "The binary Ion payload is rewritten as Ion text before writing.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(2)
	}

	if *all {
		*payload = true
		*manifest = true
		*render = true
		*style = true
	}

	if !*payload && !*manifest && !*render && !*style {
		flag.Usage()
		os.Exit(2)
	}

	defer func(startedAt time.Time) {
		fmt.Fprintf(os.Stderr, "\nExecution time: %s\n", time.Since(startedAt))
	}(time.Now())

	inPath := flag.Arg(0)
	outDir := ""
	if flag.NArg() == 2 {
		outDir = flag.Arg(1)
	}

	entries, err := readBundle(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", inPath, err)
		os.Exit(1)
	}

	if *payload {
		text, err := payloadText(entries[payloadEntry])
		if err != nil {
			fmt.Fprintf(os.Stderr, "decode %s: %v\n", payloadEntry, err)
			os.Exit(1)
		}
		if err := writeOutput(inPath, outDir, "-document.txt", text, *overwrite); err != nil {
			fmt.Fprintf(os.Stderr, "dump payload: %v\n", err)
			os.Exit(1)
		}
	}

	if *manifest {
		if err := extractEntry(entries, manifestEntry, inPath, outDir, "-manifest.yaml", *overwrite); err != nil {
			fmt.Fprintf(os.Stderr, "dump manifest: %v\n", err)
			os.Exit(1)
		}
	}

	if *render {
		if err := extractEntry(entries, renderEntry, inPath, outDir, "-render.txt", *overwrite); err != nil {
			fmt.Fprintf(os.Stderr, "dump render: %v\n", err)
			os.Exit(1)
		}
	}

	if *style {
		if err := extractEntry(entries, styleEntry, inPath, outDir, "-style.css", *overwrite); err != nil {
			fmt.Fprintf(os.Stderr, "dump style: %v\n", err)
			os.Exit(1)
		}
	}
}

// readBundle opens the ZIP container and returns its entries keyed by name.
func readBundle(path string) (map[string][]byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	entries := make(map[string][]byte, len(r.File))
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		entries[f.Name] = data
	}
	return entries, nil
}

// payloadText decodes the binary Ion payload and renders it as Ion text. The
// decoder drops top level annotations, so they are reported on a leading
// comment line.
func payloadText(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("bundle has no %s entry", payloadEntry)
	}

	var buf bytes.Buffer

	r := ion.NewReaderBytes(data)
	if r.Next() {
		ann, err := r.Annotations()
		if err == nil && len(ann) > 0 {
			names := make([]string, 0, len(ann))
			for _, a := range ann {
				if a.Text != nil {
					names = append(names, *a.Text)
				}
			}
			if len(names) > 0 {
				fmt.Fprintf(&buf, "// annotation: %s\n", strings.Join(names, ", "))
			}
		}
	}

	dec := ion.NewDecoder(ion.NewReader(bytes.NewReader(data)))
	for {
		var v any
		if err := dec.DecodeTo(&v); err != nil {
			if err == ion.ErrNoInput {
				break
			}
			return nil, err
		}
		text, err := ion.MarshalText(v)
		if err != nil {
			return nil, err
		}
		buf.Write(text)
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

// extractEntry writes a bundle entry out unchanged.
func extractEntry(entries map[string][]byte, name, inPath, outDir, suffix string, overwrite bool) error {
	data, ok := entries[name]
	if !ok {
		return fmt.Errorf("bundle has no %s entry", name)
	}
	return writeOutput(inPath, outDir, suffix, data, overwrite)
}

// writeOutput writes data to <stem><suffix> in either the input file's directory or outDir.
func writeOutput(inPath, outDir, suffix string, data []byte, overwrite bool) error {
	base := filepath.Base(inPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dir := filepath.Dir(inPath)
	if outDir != "" {
		dir = outDir
	}
	outPath := filepath.Join(dir, stem+suffix)

	if _, err := os.Stat(outPath); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s (use -overwrite)", outPath)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", outPath)
	return nil
}
