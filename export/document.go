package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"dtc/assets"
	"dtc/compile"
	"dtc/config"
	"dtc/content"
	"dtc/css"
	"dtc/input"
	"dtc/misc"
	"dtc/state"
	"dtc/text"
)

// Doc carries a single compiled document through the export stage. It is
// produced by prepareDocument and consumed by the format writers.
type Doc struct {
	srcName string
	refID   uuid.UUID

	loaded *input.Document
	styles *content.Chain
	sheet  []byte
	result *compile.Result
	stats  Stats

	tmpDir string
}

// WriteTo generates requested output format.
func (d *Doc) WriteTo(ctx context.Context, format config.OutputFmt, outputPath string, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch format {
	case config.OutputFmtBundle:
		return d.writeBundle(outputPath, log)
	case config.OutputFmtText:
		return d.writeTextRender(outputPath)
	case config.OutputFmtDb:
		return d.writeDatabase(ctx, outputPath)
	}
	return nil
}

// prepareDocument reads the source, compiles it and collects everything the
// format writers will need.
func prepareDocument(ctx context.Context, r io.Reader, srcName string, log *zap.Logger) (*Doc, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env := state.EnvFromContext(ctx)

	doc, err := input.Read(r, filepath.Base(srcName), log)
	if err != nil {
		return nil, err
	}

	styleName := "default.css"
	if env.Cfg.Document.StylesheetPath != "" {
		styleName = filepath.Base(env.Cfg.Document.StylesheetPath)
	}
	sheet, err := css.NewParser(log).Parse(env.DefaultStyle, styleName)
	if err != nil {
		return nil, fmt.Errorf("unable to parse stylesheet: %w", err)
	}
	for _, w := range sheet.Warnings {
		log.Warn("Problem in stylesheet", zap.Stringer("details", w))
	}

	// Stylesheet entries sit at the far end of the chain, configuration
	// overrides in the middle and attributes from the document itself
	// nearest, so the source always wins.
	styles := content.NewChain(sheet.Entries...).
		Push(content.Set(content.KindDocument, "max-passes", env.Cfg.Document.MaxPasses)).
		Push(doc.Styles...)

	root := doc.Root
	hyphenate, _ := styles.ResolveKind(content.KindText, "hyphenate").(bool)
	if env.Cfg.Document.Hyphenation.Enable || hyphenate {
		root = hyphenateTree(root, documentLanguage(env.Cfg, styles), log)
	}

	m, err := text.NewMeasurer()
	if err != nil {
		return nil, fmt.Errorf("unable to prepare text measurer: %w", err)
	}
	images := assets.NewLoader(env.Cfg.Document.Images.Dir, log)

	res, err := compile.New(m, images, log).Compile(ctx, root, styles)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		log.Warn("Problem during compilation", zap.Stringer("details", w))
	}
	log.Debug("Document compiled",
		zap.Int("passes", res.Passes),
		zap.Int("pages", len(res.Document.Pages)))

	refID := res.ID
	if declared := doc.Meta("id"); declared != "" {
		if parsed, err := uuid.Parse(declared); err == nil {
			refID = parsed
		} else {
			log.Warn("Document has invalid id, using generated one",
				zap.String("old_id", declared),
				zap.Stringer("new_id", refID))
		}
	}

	tmpDir, err := os.MkdirTemp("", misc.GetAppName()+"-")
	if err != nil {
		return nil, fmt.Errorf("unable to create temporary directory: %w", err)
	}
	env.Rpt.Store(fmt.Sprintf("%s-%s", misc.GetAppName(), refID), tmpDir)

	d := &Doc{
		srcName: srcName,
		refID:   refID,
		loaded:  doc,
		styles:  styles,
		sheet:   append([]byte(nil), env.DefaultStyle...),
		result:  res,
		tmpDir:  tmpDir,
	}
	d.stats = collectStats(d, log)

	// Keep intermediate results next to the logs, report archiver picks
	// the whole directory up on failure.
	base := filepath.Base(srcName)
	if err := os.WriteFile(filepath.Join(tmpDir, base+".css"), d.sheet, 0644); err != nil {
		return nil, fmt.Errorf("unable to save effective stylesheet: %w", err)
	}
	if env.Cfg.Document.Dumps.TextRender {
		if err := os.WriteFile(filepath.Join(tmpDir, base+".render.txt"), renderText(d), 0644); err != nil {
			return nil, fmt.Errorf("unable to save text render: %w", err)
		}
	}
	return d, nil
}

// documentLanguage picks the language for hyphenation and sentence splitting.
// Configuration overrides whatever the style chain resolved.
func documentLanguage(cfg *config.Config, styles *content.Chain) string {
	if l := cfg.Document.Hyphenation.Language; l != "" {
		return l
	}
	lang, _ := styles.ResolveKind(content.KindText, "lang").(string)
	return lang
}

// hyphenateTree rebuilds the content tree with soft hyphens inserted into
// text runs so line breaking has more candidate positions to work with.
func hyphenateTree(root *content.Node, lang string, log *zap.Logger) *content.Node {
	tag, err := language.Parse(lang)
	if err != nil {
		log.Warn("Unable to parse document language, hyphenation is off",
			zap.String("language", lang), zap.Error(err))
		return root
	}
	h := text.NewHyphenator(tag, log)
	if h == nil {
		return root
	}
	if out := hyphenateNode(root, h, false); out != nil {
		return out
	}
	return root
}

// hyphenateNode returns a copy of n with hyphenated text, or n itself when
// nothing underneath changed. Headings are left alone, soft hyphens inside
// titles leak into bookmarks and anchors.
func hyphenateNode(n *content.Node, h *text.Hyphenator, skip bool) *content.Node {
	if n == nil {
		return nil
	}
	switch {
	case n.IsText():
		if skip {
			return n
		}
		hyphenated := h.Hyphenate(n.Text())
		if hyphenated == n.Text() {
			return n
		}
		out := content.Text(hyphenated)
		if l := n.Label(); l != content.NoLabel {
			out = out.Labeled(l)
		}
		if sp := n.Span(); !sp.IsZero() {
			out = out.At(sp)
		}
		return out
	case n.IsSequence():
		children := n.Children()
		var rebuilt []*content.Node
		for i, c := range children {
			next := hyphenateNode(c, h, skip)
			if next != c && rebuilt == nil {
				rebuilt = append(rebuilt, children[:i]...)
			}
			if rebuilt != nil {
				rebuilt = append(rebuilt, next)
			}
		}
		if rebuilt == nil {
			return n
		}
		out := content.Seq(rebuilt...)
		if l := n.Label(); l != content.NoLabel {
			out = out.Labeled(l)
		}
		if sp := n.Span(); !sp.IsZero() {
			out = out.At(sp)
		}
		return out
	case n.IsStyled():
		inner, entries := n.StyledInner()
		next := hyphenateNode(inner, h, skip)
		if next == inner {
			return n
		}
		out := content.Styled(next, entries...)
		if l := n.Label(); l != content.NoLabel {
			out = out.Labeled(l)
		}
		if sp := n.Span(); !sp.IsZero() {
			out = out.At(sp)
		}
		return out
	case n.Op() == content.OpElem:
		if n.Kind() == content.KindHeading {
			skip = true
		}
		out := n
		for _, f := range n.Fields() {
			switch v := f.Value.(type) {
			case *content.Node:
				if next := hyphenateNode(v, h, skip); next != v {
					out = out.WithField(f.Name, next)
				}
			case []*content.Node:
				var rebuilt []*content.Node
				for i, c := range v {
					next := hyphenateNode(c, h, skip)
					if next != c && rebuilt == nil {
						rebuilt = append(rebuilt, v[:i]...)
					}
					if rebuilt != nil {
						rebuilt = append(rebuilt, next)
					}
				}
				if rebuilt != nil {
					out = out.WithField(f.Name, rebuilt)
				}
			}
		}
		return out
	}
	return n
}
