package interp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logbie/wfl-sub001/internal/lexer"
	"github.com/logbie/wfl-sub001/internal/merger"
	"github.com/logbie/wfl-sub001/internal/parser"
	"github.com/logbie/wfl-sub001/internal/sema"
	"github.com/logbie/wfl-sub001/internal/types"
	"github.com/logbie/wfl-sub001/internal/wflcfg"
)

// runScript compiles and runs src through the full front end, returning
// what it printed and the interpreter's terminal error, if any.
func runScript(t *testing.T, src string) (string, error) {
	t.Helper()

	toks := lexer.New(0, src).Lex()
	toks = merger.Merge(toks)

	prog, diags := parser.Parse(toks, 0)
	require.Empty(t, diags, "parse diagnostics: %v", diags)

	diags = sema.Analyze(prog)
	require.Empty(t, diags, "sema diagnostics: %v", diags)

	diags = types.Check(prog)
	require.Empty(t, diags, "type diagnostics: %v", diags)

	in := New(Config{TimeoutSeconds: 5, MaxLoopIterations: 10_000})
	defer in.Close()

	var out bytes.Buffer
	in.Out = &out
	err := in.Run(prog)
	return out.String(), err
}

func TestDisplayMultiWordIdentifierAndBoolean(t *testing.T) {
	out, err := runScript(t, `
store account holder as yes
display account holder
`)
	require.NoError(t, err)
	assert.Equal(t, "yes\n", out)
}

func TestCountLoop(t *testing.T) {
	out, err := runScript(t, `
count from 1 to 3:
	display count
end count
`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestCountLoopDownBySteps(t *testing.T) {
	out, err := runScript(t, `
count from 10 down to 0 by 5:
	display count
end count
`)
	require.NoError(t, err)
	assert.Equal(t, "10\n5\n0\n", out)
}

func TestCheckOtherwiseBranch(t *testing.T) {
	out, err := runScript(t, `
store amount as 2
check if amount is greater than 3:
	display "big"
otherwise:
	display "small"
end check
`)
	require.NoError(t, err)
	assert.Equal(t, "small\n", out)
}

func TestActionCallWithDefaultedParameter(t *testing.T) {
	out, err := runScript(t, `
define action greet needs name as Text and punctuation as Text default "!":
	display "hello " with name with punctuation
end action

perform greet with name as "Ada"
`)
	require.NoError(t, err)
	assert.Equal(t, `hello Ada!`+"\n", out)
}

// TestActionClosureOutlivesDefiningScope exercises the weak-parent
// environment design: an action defined inside one count-loop iteration's
// child scope must still be callable afterward, because ActionValue keeps
// a strong reference to its defining environment even though
// Environment.parent itself is weak.
func TestActionClosureOutlivesDefiningScope(t *testing.T) {
	out, err := runScript(t, `
store multiplier as 10

count from 1 to 1:
	define action scaled needs n as Number:
		give back n times multiplier
	end action
end count

display perform scaled with n as 4
`)
	require.NoError(t, err)
	assert.Equal(t, "40\n", out)
}

func TestBreakAndSkip(t *testing.T) {
	out, err := runScript(t, `
count from 1 to 5:
	check if count is equal to 2:
		skip
	end check
	check if count is equal to 4:
		break
	end check
	display count
end count
`)
	require.NoError(t, err)
	assert.Equal(t, "1\n3\n", out)
}

// TestExitLoopUnwindsOneLevelAboveInnermost nests three count loops and
// checks `exit loop`'s documented contract: it terminates the innermost
// loop *and* re-raises as a break in the loop one level above it, but no
// further - the outermost loop keeps running its remaining iterations.
func TestExitLoopUnwindsOneLevelAboveInnermost(t *testing.T) {
	out, err := runScript(t, `
count from 1 to 2:
	display "outer"
	count from 1 to 3:
		display "middle"
		count from 1 to 3:
			check if count is equal to 2:
				exit loop
			end check
			display "inner"
		end count
	end count
end count
`)
	require.NoError(t, err)
	assert.Equal(t, "outer\nmiddle\ninner\nouter\nmiddle\ninner\n", out)
}

func TestTryWhenHandlesRuntimeFault(t *testing.T) {
	out, err := runScript(t, `
try:
	store x as 1 divided by 0
when DivByZero:
	display "caught"
end try
`)
	require.NoError(t, err)
	assert.Equal(t, "caught\n", out)
}

// TestRetryReRunsTryBodyUntilItSucceeds checks that `retry` inside a when
// branch re-executes the try's protected body from the top rather than just
// resuming the when branch, and that state changed on earlier attempts
// (here, the outer `attempts` counter) survives across retries.
func TestRetryReRunsTryBodyUntilItSucceeds(t *testing.T) {
	out, err := runScript(t, `
store attempts as 0
try:
	change attempts to attempts plus 1
	check if attempts is less than 3:
		store x as 1 divided by 0
	end check
	display attempts
when DivByZero:
	retry
end try
`)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestUncaughtRuntimeFaultPropagates(t *testing.T) {
	_, err := runScript(t, `store x as 1 divided by 0`)
	require.Error(t, err)
	diag, ok := AsDiagnostic(err)
	require.True(t, ok)
	assert.Equal(t, "E4001", string(diag.Code))
}

// TestFaultFramesAreOrderedDeepestLast drives a fault through two levels of
// nested action calls and checks FaultFrames() against its own documented
// contract: outermost call first, deepest (innermost, actually-failing)
// call last, with that innermost frame's locals intact.
func TestFaultFramesAreOrderedDeepestLast(t *testing.T) {
	src := `
define action inner needs n as Number:
	give back n divided by 0
end action

define action outer needs n as Number:
	give back perform inner with n as n times 2
end action

display perform outer with n as 5
`
	toks := merger.Merge(lexer.New(0, src).Lex())
	prog, diags := parser.Parse(toks, 0)
	require.Empty(t, diags)
	diags = sema.Analyze(prog)
	require.Empty(t, diags)
	diags = types.Check(prog)
	require.Empty(t, diags)

	in := New(Config{TimeoutSeconds: 5, MaxLoopIterations: 10_000})
	defer in.Close()
	in.Out = &bytes.Buffer{}

	err := in.Run(prog)
	require.Error(t, err)

	frames := in.FaultFrames()
	require.Len(t, frames, 2)
	assert.Equal(t, "outer", frames[0].ActionName, "outermost call must be first")
	assert.Equal(t, "inner", frames[1].ActionName, "deepest (failing) call must be last")
	assert.Equal(t, float64(10), frames[1].Locals["n"].Number, "deepest frame's locals belong to the call that actually faulted")
	assert.Equal(t, float64(5), frames[0].Locals["n"].Number)
}

func TestAsyncActionsRunConcurrentlyUnderWaitFor(t *testing.T) {
	out, err := runScript(t, `
define async action doubled needs n as Number:
	give back n times 2
end action

wait for: perform doubled with n as 3 and perform doubled with n as 4 end wait
display "done"
`)
	require.NoError(t, err)
	assert.Equal(t, "done\n", out)
}

func TestListLiteralAndForEachReversed(t *testing.T) {
	out, err := runScript(t, `
store numbers as [1, 2, 3]
for each n in numbers reversed:
	display n
end for
`)
	require.NoError(t, err)
	assert.Equal(t, "3\n2\n1\n", out)
}

func TestFindAndReplacePatternExpressions(t *testing.T) {
	out, err := runScript(t, `
store message as "order user-42 done"
store found as find pattern pattern "\"user-\" {id}" in message
display found

store cleaned as replace pattern pattern "one or more digit greedy" with "#" in message
display cleaned
`)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{id: "4"}`, lines[0])
	assert.Equal(t, `order user-# done`, lines[1])
}

func TestRecordDeclAndFieldAccess(t *testing.T) {
	out, err := runScript(t, `
create point as record:
	x is 1
	y is 2
end record

display point's x
`)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestLoopIterationBudgetStopsRunaway(t *testing.T) {
	toks := lexer.New(0, `
repeat forever:
	display "x"
end repeat
`).Lex()
	toks = merger.Merge(toks)
	prog, diags := parser.Parse(toks, 0)
	require.Empty(t, diags)
	diags = sema.Analyze(prog)
	require.Empty(t, diags)
	diags = types.Check(prog)
	require.Empty(t, diags)

	cfg := wflcfg.Default()
	cfg.MaxLoopIterations = 10
	in := New(Config{TimeoutSeconds: cfg.TimeoutSeconds, MaxLoopIterations: cfg.MaxLoopIterations})
	defer in.Close()
	in.Out = &bytes.Buffer{}

	err := in.Run(prog)
	require.Error(t, err)
	diag, ok := AsDiagnostic(err)
	require.True(t, ok)
	assert.Equal(t, "E4006", string(diag.Code))
}
