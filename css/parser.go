// Package css loads CSS-flavored stylesheets into style entries. Element
// selectors name registered element kinds and declarations set their
// optional fields, either by the field name itself or by the conventional
// CSS spelling (font-size, line-height, margin-top). A `#label` selector
// becomes a show-set recipe scoped to the labeled subtree, and an @page
// block configures the page kind. The resulting entries behave exactly
// like the equivalent programmatic Set calls.
package css

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"unicode"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"dtc/content"
	"dtc/diag"
)

// Parser parses stylesheets into sheets of style entries.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a stylesheet parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Sheet. The optional source parameter
// identifies what is being parsed, for logging and error spans.
//
// Unsupported selector forms are skipped with a warning on the sheet.
// Declarations that violate the schema of their kind are style errors and
// come back combined, together with the entries that did parse.
func (p *Parser) Parse(data []byte, source ...string) (*Sheet, error) {
	sheet := &Sheet{}
	if len(source) > 0 && source[0] != "" {
		sheet.span = diag.Span{File: source[0]}
		p.log.Debug("parsing stylesheet", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	// Comma-separated selectors may arrive as qualified-rule tokens before
	// the ruleset opens, so they accumulate until the body is parsed.
	var pending []string

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && err != io.EOF {
				p.log.Debug("stylesheet parse error", zap.Error(err))
				sheet.warnf("stylesheet truncated: %v", err)
			}
			return sheet, multierr.Combine(sheet.errs...)

		case css.BeginAtRuleGrammar:
			atRule := string(data)
			if atRule == "@page" {
				p.parsePageRule(parser, sheet)
			} else {
				p.skipAtRuleBlock(parser)
				p.log.Debug("skipping at-rule", zap.String("rule", atRule))
				sheet.warnf("unsupported at-rule %s", atRule)
			}

		case css.AtRuleGrammar:
			atRule := string(data)
			p.log.Debug("skipping at-rule", zap.String("rule", atRule))
			if atRule == "@import" {
				sheet.warnf("@import is not resolved, inline the rules instead")
			}

		case css.QualifiedRuleGrammar:
			pending = append(pending, p.parseSelectors(data, parser.Values())...)

		case css.BeginRulesetGrammar:
			selectors := append(pending, p.parseSelectors(data, parser.Values())...)
			pending = nil
			decls := p.parseDeclarations(parser)
			for _, sel := range selectors {
				p.applyRule(sel, decls, sheet)
			}
		}
	}
}

// parseSelectors extracts selector strings from token data.
func (p *Parser) parseSelectors(data []byte, values []css.Token) []string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}

	var selectors []string
	for s := range strings.SplitSeq(sb.String(), ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			selectors = append(selectors, s)
		}
	}
	return selectors
}

// parseDeclarations parses property declarations until the ruleset ends.
func (p *Parser) parseDeclarations(parser *css.Parser) []declaration {
	var decls []declaration

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar:
			return decls

		case css.DeclarationGrammar:
			prop := strings.ToLower(string(data))
			if values := parser.Values(); len(values) > 0 {
				decls = append(decls, declaration{prop: prop, val: p.parsePropertyValue(values)})
			}

		case css.CustomPropertyGrammar:
			// custom properties have no schema field to land on
			continue
		}
	}
}

// applyRule turns one selector and its declarations into sheet entries.
func (p *Parser) applyRule(sel string, decls []declaration, sheet *Sheet) {
	switch {
	case strings.ContainsAny(sel, " \t\n+>~"):
		sheet.warnf("unsupported selector %q: combinators are not supported", sel)
		p.log.Debug("skipping combinator selector", zap.String("selector", sel))
	case strings.ContainsAny(sel, "[.:*"):
		sheet.warnf("unsupported selector %q: only kind and #label selectors are supported", sel)
		p.log.Debug("skipping selector", zap.String("selector", sel))
	case strings.HasPrefix(sel, "#"):
		p.applyLabelRule(sel[1:], decls, sheet)
	case strings.Contains(sel, "#"):
		sheet.warnf("unsupported selector %q: a label selector stands alone", sel)
	default:
		p.applyKindRule(sel, decls, sheet)
	}
}

// applyKindRule emits one property entry per declaration, validated
// against the kind's schema.
func (p *Parser) applyKindRule(name string, decls []declaration, sheet *Sheet) {
	kind, ok := content.KindByName(name)
	if !ok {
		sheet.errorf("selector %q does not name an element kind", name)
		return
	}
	for _, d := range decls {
		p.applyDecl(kind, name, d, sheet)
	}
}

func (p *Parser) applyDecl(kind content.Kind, name string, d declaration, sheet *Sheet) {
	prop, ok, err := resolveProp(kind, d.prop, d.val)
	if err != nil {
		sheet.errorf("%s of %s: %v", d.prop, name, err)
		return
	}
	if !ok {
		sheet.errorf("%q cannot be set on %s", d.prop, name)
		return
	}
	sheet.Entries = append(sheet.Entries, prop.At(sheet.span))
}

// applyLabelRule wraps the declarations in a show-set recipe on the label,
// so they style the labeled element's subtree only.
func (p *Parser) applyLabelRule(label string, decls []declaration, sheet *Sheet) {
	if label == "" {
		sheet.warnf("unsupported selector %q", "#")
		return
	}
	var props []content.Property
	for _, d := range decls {
		prop, err := resolveAny(d.prop, d.val)
		if err != nil {
			sheet.errorf("%s of #%s: %v", d.prop, label, err)
			continue
		}
		props = append(props, prop)
	}
	if len(props) == 0 {
		return
	}
	recipe := content.Show(content.SelectLabel(content.Label(label)), content.WithSet(props...))
	sheet.Entries = append(sheet.Entries, recipe.At(sheet.span))
}

// parsePageRule reads the declarations of an @page block into page set
// entries. The parser surfaces them directly between the at-rule begin
// and end, there is no nested ruleset.
func (p *Parser) parsePageRule(parser *css.Parser, sheet *Sheet) {
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndAtRuleGrammar:
			return

		case css.DeclarationGrammar:
			prop := strings.ToLower(string(data))
			if values := parser.Values(); len(values) > 0 {
				d := declaration{prop: prop, val: p.parsePropertyValue(values)}
				p.applyDecl(content.KindPage, "page", d, sheet)
			}
		}
	}
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// parsePropertyValue reduces the value tokens of one declaration.
func (p *Parser) parsePropertyValue(tokens []css.Token) value {
	var rawParts []string
	var toks []css.Token
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			rawParts = append(rawParts, string(t.Data))
			toks = append(toks, t)
		} else if len(rawParts) > 0 {
			rawParts = append(rawParts, " ")
		}
	}
	v := value{raw: strings.TrimSpace(strings.Join(rawParts, ""))}

	if len(toks) != 1 {
		v.form = formOther
		return v
	}

	t := toks[0]
	switch t.TokenType {
	case css.DimensionToken:
		v.form = formDimension
		v.num, v.unit = parseDimension(string(t.Data))
	case css.PercentageToken:
		v.form = formPercent
		v.num, _ = strconv.ParseFloat(strings.TrimSuffix(string(t.Data), "%"), 64)
	case css.NumberToken:
		v.form = formNumber
		v.num, _ = strconv.ParseFloat(string(t.Data), 64)
	case css.IdentToken:
		v.form = formIdent
		v.keyword = strings.ToLower(string(t.Data))
	case css.StringToken:
		v.form = formString
		v.keyword = unquote(string(t.Data))
	default:
		v.form = formOther
	}
	return v
}

// parseDimension extracts the numeric value and unit from a dimension
// token.
func parseDimension(s string) (float64, string) {
	numEnd := 0
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == '-' || r == '+' {
			numEnd = i + 1
		} else {
			break
		}
	}

	if numEnd == 0 {
		return 0, ""
	}

	num, _ := strconv.ParseFloat(s[:numEnd], 64)
	unit := strings.ToLower(s[numEnd:])
	return num, unit
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
