// Package assets resolves image sources referenced by a document and
// answers size and pixel questions about them.
package assets

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"dtc/geom"
)

// pixels are interpreted at 96 dpi, the usual raster baseline
const pixelsPerInch = 96

// Loader resolves image sources to their intrinsic point sizes.
// Decoded dimensions are cached; a missing or unreadable image falls back
// to a placeholder box so layout can continue.
type Loader struct {
	base  string
	log   *zap.Logger
	sizes map[string]geom.Size
}

func NewLoader(base string, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{base: base, log: log, sizes: make(map[string]geom.Size)}
}

// placeholderSize stands in for images that cannot be read.
func placeholderSize() geom.Size {
	return geom.Size{W: geom.Pt(120), H: geom.Pt(90)}
}

// File returns the path a source resolves to. Relative sources are joined
// to the loader's base directory.
func (l *Loader) File(source string) string {
	if l == nil || filepath.IsAbs(source) {
		return source
	}
	return filepath.Join(l.base, source)
}

// Measure returns the intrinsic size of the image in points.
func (l *Loader) Measure(source string) geom.Size {
	if l == nil {
		return placeholderSize()
	}
	if s, ok := l.sizes[source]; ok {
		return s
	}
	s, err := l.measure(source)
	if err != nil {
		l.log.Warn("unable to read image, using placeholder size",
			zap.String("source", source),
			zap.Error(err))
		s = placeholderSize()
	}
	l.sizes[source] = s
	return s
}

func (l *Loader) measure(source string) (geom.Size, error) {
	path := l.File(source)

	head, err := readHead(path)
	if err != nil {
		return geom.Size{}, err
	}
	if !filetype.IsImage(head) {
		// filetype knows raster formats only, vector sources need a parse
		if IsVector(head) {
			data, err := os.ReadFile(path)
			if err != nil {
				return geom.Size{}, err
			}
			return SVGSize(data)
		}
		kind, _ := filetype.Match(head)
		return geom.Size{}, fmt.Errorf("%s is not an image (detected %q)", path, kind.MIME.Value)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return geom.Size{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	bounds := img.Bounds()
	return geom.Size{
		W: geom.In(float64(bounds.Dx()) / pixelsPerInch),
		H: geom.In(float64(bounds.Dy()) / pixelsPerInch),
	}, nil
}

// Raster returns decoded pixels for a source, rasterizing vector images at
// their intrinsic size.
func (l *Loader) Raster(source string) (image.Image, error) {
	path := l.File(source)

	head, err := readHead(path)
	if err != nil {
		return nil, err
	}
	if IsVector(head) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return RasterizeSVG(data, 0, 0)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// IsVector reports whether data starts an SVG document.
func IsVector(head []byte) bool {
	if filetype.IsImage(head) {
		return false
	}
	return bytes.Contains(head, []byte("<svg")) || (bytes.Contains(head, []byte("<?xml")) && bytes.Contains(head, []byte("svg")))
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if n == 0 && err != nil {
		return nil, err
	}
	return head[:n], nil
}
