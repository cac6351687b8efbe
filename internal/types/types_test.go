package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logbie/wfl-sub001/internal/ast"
	"github.com/logbie/wfl-sub001/internal/lexer"
	"github.com/logbie/wfl-sub001/internal/merger"
	"github.com/logbie/wfl-sub001/internal/parser"
	"github.com/logbie/wfl-sub001/internal/sema"
)

func mustResolve(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks := merger.Merge(lexer.New(0, src).Lex())
	prog, diags := parser.Parse(toks, 0)
	require.Empty(t, diags, "parse diagnostics: %v", diags)
	diags = sema.Analyze(prog)
	require.Empty(t, diags, "sema diagnostics: %v", diags)
	return prog
}

func TestCheckWellTypedProgramHasNoDiagnostics(t *testing.T) {
	prog := mustResolve(t, `
store total as 1 plus 2
display total
`)
	assert.Empty(t, Check(prog))
}

func TestCheckArithmeticOnTextReportsE3001(t *testing.T) {
	prog := mustResolve(t, `store total as "x" plus 1`)
	diags := Check(prog)
	require.NotEmpty(t, diags)
	assert.Equal(t, "E3001", string(diags[0].Code))
}

func TestCheckHeterogeneousListReportsE3003(t *testing.T) {
	prog := mustResolve(t, `store mixed as [1, "two"]`)
	diags := Check(prog)
	require.NotEmpty(t, diags)
	assert.Equal(t, "E3003", string(diags[0].Code))
}

// TestCheckActionMissingReturnReportsE3004 exercises the boundary case
// where an action declares a return type but every control path falls off
// the end without a `give back`.
func TestCheckActionMissingReturnReportsE3004(t *testing.T) {
	prog := mustResolve(t, `
define action greet needs name as Text give back Text:
	display name
end action
`)
	diags := Check(prog)
	require.NotEmpty(t, diags)
	assert.Equal(t, "E3004", string(diags[0].Code))
}

func TestCheckActionWithReturnOnOneBranchIsAccepted(t *testing.T) {
	prog := mustResolve(t, `
define action greet needs name as Text give back Text:
	give back name
end action
`)
	assert.Empty(t, Check(prog))
}

// TestCheckActionReturningFromEveryCheckBranchIsAccepted exercises the case
// the flat top-level scan used to miss: a `give back` nested one level
// inside each arm of a check/otherwise still satisfies the return
// requirement, because control can't fall off the end of the action either
// way.
func TestCheckActionReturningFromEveryCheckBranchIsAccepted(t *testing.T) {
	prog := mustResolve(t, `
define action classify needs x as Text give back Text:
	check if x is "a":
		give back "yes"
	otherwise:
		give back "no"
	end check
end action
`)
	assert.Empty(t, Check(prog))
}

// TestCheckActionReturningFromOnlyOneCheckBranchReportsE3004 is the negative
// case alongside TestCheckActionReturningFromEveryCheckBranchIsAccepted: when
// the otherwise branch falls through without a `give back`, the action can
// still reach the end without returning.
func TestCheckActionReturningFromOnlyOneCheckBranchReportsE3004(t *testing.T) {
	prog := mustResolve(t, `
define action classify needs x as Text give back Text:
	check if x is "a":
		give back "yes"
	otherwise:
		display "unmatched"
	end check
end action
`)
	diags := Check(prog)
	require.NotEmpty(t, diags)
	assert.Equal(t, "E3004", string(diags[0].Code))
}

// TestCheckActionReturningFromEveryTryBranchIsAccepted covers the same
// recursion for try/when/otherwise.
func TestCheckActionReturningFromEveryTryBranchIsAccepted(t *testing.T) {
	prog := mustResolve(t, `
define action safeDivide needs a as Number and b as Number give back Number:
	try:
		give back a divided by b
	when DivByZero:
		give back 0
	end try
end action
`)
	assert.Empty(t, Check(prog))
}

func TestCheckCondOnNonBooleanReportsE3001(t *testing.T) {
	prog := mustResolve(t, `
check if 1:
	display "no"
end check
`)
	diags := Check(prog)
	require.NotEmpty(t, diags)
	assert.Equal(t, "E3001", string(diags[0].Code))
}

func TestCheckCountLoopVariableIsNumber(t *testing.T) {
	prog := mustResolve(t, `
count from 1 to 3:
	store doubled as count plus count
end count
`)
	assert.Empty(t, Check(prog))
}

func TestTypeStringRendersCompositeKinds(t *testing.T) {
	assert.Equal(t, "Number", Number.String())
	assert.Equal(t, "List<Text>", List(Text).String())
	assert.Equal(t, "Map<Text, Number>", Map(Text, Number).String())
}

func TestEqualComparesStructurally(t *testing.T) {
	assert.True(t, Equal(List(Text), List(Text)))
	assert.False(t, Equal(List(Text), List(Number)))
	assert.True(t, Equal(Number, Number))
}

func TestJoinUnifiesMatchingElementTypesOnly(t *testing.T) {
	joined, ok := Join(nil, Number)
	require.True(t, ok)
	assert.True(t, Equal(joined, Number))

	joined, ok = Join(Number, Number)
	require.True(t, ok)
	assert.True(t, Equal(joined, Number))

	_, ok = Join(Number, Text)
	assert.False(t, ok)
}
