package debugreport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logbie/wfl-sub001/internal/diagnostic"
	"github.com/logbie/wfl-sub001/internal/source"
	"github.com/logbie/wfl-sub001/internal/value"
)

func TestRenderTopLevelFaultHasNoStackFrames(t *testing.T) {
	reg := source.NewRegistry()
	f := reg.Add("main.wfl", "store x as 1 divided by 0\n")
	sp := source.Span{FileID: f.ID, Start: 9, End: 26}
	diag := diagnostic.New(diagnostic.E4001DivisionByZero, "division by zero", diagnostic.Label{Span: sp})

	out := Render(reg, diag, nil, "")

	assert.Contains(t, out, "Error Summary")
	assert.Contains(t, out, "E4001: division by zero")
	assert.Contains(t, out, "at top level")
	assert.Contains(t, out, "(none)")
}

func TestRenderIncludesDeepestFrameFirstAndLocals(t *testing.T) {
	reg := source.NewRegistry()
	f := reg.Add("main.wfl", "give back n divided by 0\n")
	sp := source.Span{FileID: f.ID, Start: 0, End: 10}
	diag := diagnostic.New(diagnostic.E4001DivisionByZero, "division by zero", diagnostic.Label{Span: sp})

	stack := []Frame{
		{ActionName: "main", Locals: nil},
		{ActionName: "scaled", Locals: map[string]*value.Value{
			"n": value.NumberVal(4),
			"a": value.TextVal("hi"),
		}},
	}

	out := Render(reg, diag, stack, "give back n times multiplier")

	atMain := indexOf(out, "at main")
	atScaled := indexOf(out, "at scaled")
	assert := assert.New(t)
	assert.True(atScaled < atMain, "deepest frame (scaled) must print before main")
	assert.Contains(out, "Enclosing Action Body")
	assert.Contains(out, "give back n times multiplier")
	assert.Contains(out, `a = "hi"`)
	assert.Contains(out, "n = 4")
}

// TestRenderFaultIDIsStableAcrossIdenticalStacksButDiffersAcrossSites checks
// the dedup hash: two crashes with the same code and call chain hash the
// same, and a different call chain hashes differently.
func TestRenderFaultIDIsStableAcrossIdenticalStacksButDiffersAcrossSites(t *testing.T) {
	reg := source.NewRegistry()
	f := reg.Add("main.wfl", "give back n divided by 0\n")
	sp := source.Span{FileID: f.ID, Start: 0, End: 10}
	diag := diagnostic.New(diagnostic.E4001DivisionByZero, "division by zero", diagnostic.Label{Span: sp})

	stackA := []Frame{{ActionName: "main"}, {ActionName: "scaled"}}
	stackB := []Frame{{ActionName: "main"}, {ActionName: "other"}}

	first := Render(reg, diag, stackA, "")
	second := Render(reg, diag, stackA, "")
	third := Render(reg, diag, stackB, "")

	idA := extractFaultID(t, first)
	idA2 := extractFaultID(t, second)
	idB := extractFaultID(t, third)

	assert.Equal(t, idA, idA2, "same code and call chain must hash the same")
	assert.NotEqual(t, idA, idB, "a different call chain must hash differently")
}

func extractFaultID(t *testing.T, report string) string {
	t.Helper()
	idx := indexOf(report, "Fault ID: ")
	require.NotEqual(t, -1, idx, "report:\n%s", report)
	line := report[idx+len("Fault ID: "):]
	if nl := indexOf(line, "\n"); nl != -1 {
		line = line[:nl]
	}
	return line
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
