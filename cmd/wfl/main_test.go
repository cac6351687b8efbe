package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunNestedActionFaultProducesOrderedDebugReport drives a divide-by-zero
// fault through two levels of nested action calls via run, the same
// entry point the CLI uses, and checks that the written debug report's
// Stack Trace lists the deepest (failing) call first and that Local
// Variables reflects that deepest call's own locals, not the outermost
// caller's.
func TestRunNestedActionFaultProducesOrderedDebugReport(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "nested_fault.wfl")
	reportPath := filepath.Join(dir, "nested_fault.debug.txt")

	script := `
define action inner needs n as Number:
	give back n divided by 0
end action

define action outer needs n as Number:
	give back perform inner with n as n times 2
end action

display perform outer with n as 5
`
	require.NoError(t, os.WriteFile(scriptPath, []byte(script), 0o644))

	exitCode, err := run(scriptPath, "", reportPath)
	require.NoError(t, err)
	assert.Equal(t, 1, exitCode)

	report, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	text := string(report)

	innerIdx := strings.Index(text, "at inner")
	outerIdx := strings.Index(text, "at outer")
	require.NotEqual(t, -1, innerIdx, "report:\n%s", text)
	require.NotEqual(t, -1, outerIdx, "report:\n%s", text)
	assert.Less(t, innerIdx, outerIdx, "deepest call (inner) must print before the outermost (outer)")

	localsIdx := strings.Index(text, "Local Variables")
	require.NotEqual(t, -1, localsIdx)
	locals := text[localsIdx:]
	assert.Contains(t, locals, "n = 10", "locals must belong to inner, the call that actually faulted")
}
