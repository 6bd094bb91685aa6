// Package diag defines structured errors and warnings produced by the
// compilation pipeline. Every fatal condition carries enough context (code,
// source span, hints) to be shown directly to an end user.
package diag

import (
	"fmt"
	"strings"
)

// Span points into the loaded source document. The zero value means the
// position is unknown (content built programmatically).
type Span struct {
	File string
	Line int
	Col  int
}

func (s Span) IsZero() bool {
	return s == Span{}
}

func (s Span) String() string {
	if s.IsZero() {
		return ""
	}
	if s.Line == 0 {
		return s.File
	}
	if s.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// Error is a fatal diagnostic.
type Error struct {
	Code    Code
	Span    Span
	Message string
	Hints   []string
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if !e.Span.IsZero() {
		sb.WriteString(" (at ")
		sb.WriteString(e.Span.String())
		sb.WriteString(")")
	}
	for _, h := range e.Hints {
		sb.WriteString("\n  hint: ")
		sb.WriteString(h)
	}
	return sb.String()
}

// WithHint attaches a user-facing hint and returns the error for chaining.
func (e *Error) WithHint(format string, args ...any) *Error {
	e.Hints = append(e.Hints, fmt.Sprintf(format, args...))
	return e
}

// Errorf creates a fatal diagnostic with the given code and span.
func Errorf(code Code, span Span, format string, args ...any) *Error {
	return &Error{Code: code, Span: span, Message: fmt.Sprintf(format, args...)}
}

// Recursion reports a show rule that exceeded its self-match permit.
func Recursion(span Span, selector string) *Error {
	return Errorf(CodeRecursion, span, "show rule for %s keeps matching its own output", selector).
		WithHint("make the transform produce different content or guard it with a where() filter")
}

// Convergence reports that the fixed point iteration did not stabilize.
// The locations whose introspector-visible values still differed between the
// last two passes are listed in the message.
func Convergence(attempts int, locations []string) *Error {
	msg := fmt.Sprintf("layout did not converge within %d attempts", attempts)
	if len(locations) > 0 {
		msg += ": still changing at " + strings.Join(locations, ", ")
	}
	return Errorf(CodeConvergence, Span{}, "%s", msg).
		WithHint("check if any states or queries are updating themselves")
}

// MissingLabel reports a label lookup that found nothing.
func MissingLabel(label string) *Error {
	return Errorf(CodeIntrospection, Span{}, "label `%s` does not exist in the document", label).
		WithHint("use query() or a show rule to operate on optional matches")
}

// AmbiguousLabel reports a label lookup that found more than one element.
func AmbiguousLabel(label string) *Error {
	return Errorf(CodeIntrospection, Span{}, "label `%s` occurs multiple times in the document", label).
		WithHint("use query() or a show rule to operate on all matches")
}

// Warning is a non-fatal diagnostic.
type Warning struct {
	Span    Span
	Message string
	Hints   []string
}

func (w Warning) String() string {
	if w.Span.IsZero() {
		return w.Message
	}
	return w.Message + " (at " + w.Span.String() + ")"
}

// Sink accumulates warnings over a compilation. The zero value is ready to
// use; a nil sink discards everything so callers do not have to check.
type Sink struct {
	warnings []Warning
}

func (s *Sink) Warnf(span Span, format string, args ...any) {
	if s == nil {
		return
	}
	s.warnings = append(s.warnings, Warning{Span: span, Message: fmt.Sprintf(format, args...)})
}

// Take returns accumulated warnings and resets the sink.
func (s *Sink) Take() []Warning {
	if s == nil {
		return nil
	}
	w := s.warnings
	s.warnings = nil
	return w
}

func (s *Sink) Len() int {
	if s == nil {
		return 0
	}
	return len(s.warnings)
}
