// Package diagnostic renders parse/semantic/type/runtime faults as
// structured Diagnostics: exactly one primary label, zero or more secondary
// labels, zero or more notes, and a stable error code an IDE can key off
// of. The Rust/Clang-style code frame follows the same "--> line:col" /
// source line / caret snippet rendering used for parser errors elsewhere
// in this lineage of tools.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/logbie/wfl-sub001/internal/invariant"
	"github.com/logbie/wfl-sub001/internal/source"
)

// Severity of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Code is a stable diagnostic identifier, category + number.
type Code string

const (
	// E1xxx syntax
	E1001UnexpectedToken  Code = "E1001"
	E1002UnclosedBlock    Code = "E1002"
	E1003MissingConnective Code = "E1003"
	E1101InvalidPattern   Code = "E1101"

	// E2xxx semantic
	E2001Undefined         Code = "E2001"
	E2002DuplicateDefinition Code = "E2002"
	E2003Shadowing         Code = "E2003"

	// E3xxx type
	E3001Mismatch           Code = "E3001"
	E3002NotCallable        Code = "E3002"
	E3003HeterogeneousList  Code = "E3003"
	E3004MissingReturn      Code = "E3004"

	// E4xxx runtime
	E4001DivisionByZero Code = "E4001"
	E4002IndexOutOfBounds Code = "E4002"
	E4003Timeout        Code = "E4003"
	E4004FileNotFound   Code = "E4004"
	E4005NetworkError   Code = "E4005"
	E4006LoopLimitExceeded Code = "E4006"
	E4007UncaughtPatternError Code = "E4007"
	E4008HandleInUse    Code = "E4008"
	E4009MalformedPayload Code = "E4009"
)

// Label attaches a message to a Span.
type Label struct {
	Span    source.Span
	Message string
}

// Diagnostic is one reported fault.
type Diagnostic struct {
	Severity  Severity
	Code      Code
	Message   string
	Primary   Label
	Secondary []Label
	Notes     []string
}

// New creates an error-severity Diagnostic with the given primary label.
func New(code Code, message string, primary Label) *Diagnostic {
	return &Diagnostic{Severity: SeverityError, Code: code, Message: message, Primary: primary}
}

// Warn creates a warning-severity Diagnostic.
func Warn(code Code, message string, primary Label) *Diagnostic {
	d := New(code, message, primary)
	d.Severity = SeverityWarning
	return d
}

// WithSecondary appends a secondary label and returns the receiver for chaining.
func (d *Diagnostic) WithSecondary(sp source.Span, message string) *Diagnostic {
	d.Secondary = append(d.Secondary, Label{Span: sp, Message: message})
	return d
}

// WithNote appends a freeform note and returns the receiver for chaining.
func (d *Diagnostic) WithNote(note string) *Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s[%s]: %s", d.Severity, d.Code, d.Message)
}

// Reporter renders Diagnostics against a source.Registry, in the
// "--> line:col" / source line / caret snippet style.
type Reporter struct {
	Files *source.Registry
}

// NewReporter creates a Reporter over the given file registry.
func NewReporter(files *source.Registry) *Reporter {
	invariant.NotNil(files, "files")
	return &Reporter{Files: files}
}

// Render produces the full human-readable text of one Diagnostic: a header
// line, the primary code frame, then any secondary frames and notes.
func (r *Reporter) Render(d *Diagnostic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]: %s\n", d.Severity, d.Code, d.Message)
	b.WriteString(r.Files.Snippet(d.Primary.Span, 2))
	if d.Primary.Message != "" {
		fmt.Fprintf(&b, "\n  %s", d.Primary.Message)
	}
	for _, sec := range d.Secondary {
		b.WriteString("\n\nnote: ")
		b.WriteString(sec.Message)
		b.WriteString(r.Files.Snippet(sec.Span, 1))
	}
	for _, n := range d.Notes {
		b.WriteString("\n\nnote: ")
		b.WriteString(n)
	}
	return b.String()
}

// RenderAll renders a batch of Diagnostics (used by the syntax/semantic/type
// phases, which each accumulate every fault found in one pass rather than
// stopping at the first).
func (r *Reporter) RenderAll(ds []*Diagnostic) string {
	var b strings.Builder
	for i, d := range ds {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.Render(d))
	}
	return b.String()
}
