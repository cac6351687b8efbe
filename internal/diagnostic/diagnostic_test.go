package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logbie/wfl-sub001/internal/source"
)

func TestNewIsErrorSeverity(t *testing.T) {
	d := New(E1001UnexpectedToken, "boom", Label{})
	assert.Equal(t, SeverityError, d.Severity)
	assert.Equal(t, "error", d.Severity.String())
}

func TestWarnIsWarningSeverity(t *testing.T) {
	d := Warn(E2003Shadowing, "shadowed", Label{})
	assert.Equal(t, SeverityWarning, d.Severity)
	assert.Equal(t, "warning", d.Severity.String())
}

func TestWithNoteAndWithSecondaryChain(t *testing.T) {
	d := New(E2001Undefined, "undefined `x`", Label{Message: "here"}).
		WithNote("did you mean `y`?").
		WithSecondary(source.Span{}, "defined near here")
	require.Len(t, d.Notes, 1)
	assert.Equal(t, "did you mean `y`?", d.Notes[0])
	require.Len(t, d.Secondary, 1)
	assert.Equal(t, "defined near here", d.Secondary[0].Message)
}

func TestErrorStringIncludesSeverityCodeAndMessage(t *testing.T) {
	d := New(E4001DivisionByZero, "division by zero", Label{})
	assert.Equal(t, "error[E4001]: division by zero", d.Error())
}

func TestReporterRenderIncludesCodeFrame(t *testing.T) {
	reg := source.NewRegistry()
	f := reg.Add("main.wfl", "store x as 1\nstore y as 0\n")
	sp := source.Span{FileID: f.ID, Start: 6, End: 7} // "x"

	r := NewReporter(reg)
	d := New(E2002DuplicateDefinition, "`x` is already defined", Label{Span: sp, Message: "duplicate"})
	out := r.Render(d)

	assert.Contains(t, out, "error[E2002]")
	assert.Contains(t, out, "already defined")
	assert.Contains(t, out, "store x as 1")
	assert.Contains(t, out, "duplicate")
}

func TestReporterRenderAllJoinsMultipleDiagnostics(t *testing.T) {
	reg := source.NewRegistry()
	f := reg.Add("main.wfl", "store x as 1\n")
	sp := source.Span{FileID: f.ID, Start: 0, End: 5}

	r := NewReporter(reg)
	d1 := New(E1001UnexpectedToken, "first", Label{Span: sp})
	d2 := New(E1002UnclosedBlock, "second", Label{Span: sp})
	out := r.RenderAll([]*Diagnostic{d1, d2})

	assert.Contains(t, out, "first")
	assert.Contains(t, out, "second")
}
