package layout

import (
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"dtc/assets"
	"dtc/diag"
	"dtc/realize"
	"dtc/text"
)

// Engine lays realized flow primitives into paginated frames. It calls back
// into the realizer for container bodies (blocks, floats, footnote entries,
// headers and footers), which keeps rule scoping and location assignment in
// one place.
type Engine struct {
	Realizer *realize.Realizer
	Measurer *text.Measurer
	Images   *assets.Loader
	Warnings *diag.Sink
	Log      *zap.Logger

	hyphens map[string]*text.Hyphenator
}

func NewEngine(r *realize.Realizer, m *text.Measurer, images *assets.Loader, warnings *diag.Sink, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		Realizer: r,
		Measurer: m,
		Images:   images,
		Warnings: warnings,
		Log:      log,
		hyphens:  make(map[string]*text.Hyphenator),
	}
}

// hyphenator returns the cached hyphenator for a language. Languages
// without dictionaries cache nil, which disables hyphenation for them.
func (e *Engine) hyphenator(lang string) *text.Hyphenator {
	if h, ok := e.hyphens[lang]; ok {
		return h
	}
	h := text.NewHyphenator(language.Make(lang), e.Log)
	e.hyphens[lang] = h
	return h
}
