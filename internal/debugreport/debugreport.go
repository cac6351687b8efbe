// Package debugreport renders the plain-UTF-8 crash report written beside a
// failing script: an Error Summary, a deepest-first Stack Trace, a Code
// Snippet around the fault, the Enclosing Action Body when the fault
// happened inside a call, and Local Variables printed with the canonical
// value printer (value.Value.String, which quotes Text). Section
// layout reuses the same code-frame renderer that formats parse errors,
// applied here to crash reports instead.
package debugreport

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/logbie/wfl-sub001/internal/diagnostic"
	"github.com/logbie/wfl-sub001/internal/source"
	"github.com/logbie/wfl-sub001/internal/value"
)

// Frame is one call-stack entry, deepest call last in the slice passed to
// Render (Render itself prints deepest-first).
type Frame struct {
	ActionName string
	Locals     map[string]*value.Value
}

// Render builds the full debug report text for diag, which crashed with
// the given call stack (outermost first) and optional enclosing action
// source text.
func Render(files *source.Registry, diag *diagnostic.Diagnostic, stack []Frame, actionBody string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Error Summary\n")
	fmt.Fprintf(&b, "  %s: %s\n", diag.Code, diag.Message)
	fmt.Fprintf(&b, "  Fault ID: %s\n\n", faultID(diag.Code, stack))

	fmt.Fprintf(&b, "Stack Trace\n")
	for i := len(stack) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "  at %s\n", stack[i].ActionName)
	}
	if len(stack) == 0 {
		fmt.Fprintf(&b, "  at top level\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Code Snippet\n")
	b.WriteString(files.Snippet(diag.Primary.Span, 2))
	b.WriteString("\n\n")

	if actionBody != "" {
		fmt.Fprintf(&b, "Enclosing Action Body\n")
		for _, line := range strings.Split(actionBody, "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Local Variables\n")
	if len(stack) == 0 || len(stack[len(stack)-1].Locals) == 0 {
		b.WriteString("  (none)\n")
	} else {
		locals := stack[len(stack)-1].Locals
		names := make([]string, 0, len(locals))
		for name := range locals {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %s = %s\n", name, locals[name].String())
		}
	}

	return b.String()
}

// faultID hashes the diagnostic code and the call chain's action names (not
// their locals, which vary run to run) into a short stable identifier, so
// two crashes at the same site - even across separate processes - report
// the same Fault ID and are easy to deduplicate in a bug tracker.
func faultID(code diagnostic.Code, stack []Frame) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%s", code)
	for _, f := range stack {
		fmt.Fprintf(h, "|%s", f.ActionName)
	}
	return hex.EncodeToString(h.Sum(nil)[:6])
}
