package text

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"dtc/geom"
)

// Style is the resolved set of text properties a run is shaped with.
type Style struct {
	Size   geom.Abs
	Weight int
	Italic bool
}

// Bold reports whether the resolved weight selects the bold face.
func (s Style) Bold() bool { return s.Weight >= 600 }

// Metrics describes the vertical extent of a line set in one style.
type Metrics struct {
	Ascent  geom.Abs
	Descent geom.Abs
}

// Height is the distance between the top and the bottom of the line.
func (m Metrics) Height() geom.Abs { return m.Ascent + m.Descent }

type faceKey struct {
	milliSize int64
	bold      bool
	italic    bool
}

// Measurer reports advance widths and line metrics for the bundled font
// family. Faces are instantiated per size and cached; a size that fails to
// instantiate measures with the default face instead.
type Measurer struct {
	regular    *opentype.Font
	bold       *opentype.Font
	italic     *opentype.Font
	boldItalic *opentype.Font
	fallback   font.Face

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

func NewMeasurer() (*Measurer, error) {
	m := &Measurer{faces: make(map[faceKey]font.Face)}

	for _, f := range []struct {
		data []byte
		dst  **opentype.Font
		name string
	}{
		{goregular.TTF, &m.regular, "regular"},
		{gobold.TTF, &m.bold, "bold"},
		{goitalic.TTF, &m.italic, "italic"},
		{gobolditalic.TTF, &m.boldItalic, "bold italic"},
	} {
		parsed, err := opentype.Parse(f.data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s font: %w", f.name, err)
		}
		*f.dst = parsed
	}

	fb, err := opentype.NewFace(m.regular, &opentype.FaceOptions{
		Size:    11,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("instantiating default face: %w", err)
	}
	m.fallback = fb
	return m, nil
}

func (m *Measurer) face(style Style) font.Face {
	key := faceKey{milliSize: int64(style.Size.Pt() * 1000), bold: style.Bold(), italic: style.Italic}

	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.faces[key]; ok {
		return f
	}

	src := m.regular
	switch {
	case key.bold && key.italic:
		src = m.boldItalic
	case key.bold:
		src = m.bold
	case key.italic:
		src = m.italic
	}

	// at 72 DPI one pixel is one point, so fixed-point units divide out
	// to points directly
	f, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    style.Size.Pt(),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		f = m.fallback
	}
	m.faces[key] = f
	return f
}

// Advance returns the width of s set in the given style. Soft hyphens do
// not advance the pen and are skipped.
func (m *Measurer) Advance(s string, style Style) geom.Abs {
	s = strings.ReplaceAll(s, SOFTHYPHEN, "")
	adv := font.MeasureString(m.face(style), s)
	return geom.Pt(float64(adv) / 64)
}

// Line returns the vertical metrics of a line set in the given style.
func (m *Measurer) Line(style Style) Metrics {
	fm := m.face(style).Metrics()
	return Metrics{
		Ascent:  geom.Pt(float64(fm.Ascent) / 64),
		Descent: geom.Pt(float64(fm.Descent) / 64),
	}
}

// SpaceWidth returns the advance of a single space in the given style.
func (m *Measurer) SpaceWidth(style Style) geom.Abs {
	return m.Advance(" ", style)
}
