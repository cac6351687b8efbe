package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logbie/wfl-sub001/internal/ast"
	"github.com/logbie/wfl-sub001/internal/lexer"
	"github.com/logbie/wfl-sub001/internal/merger"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks := merger.Merge(lexer.New(0, src).Lex())
	prog, diags := Parse(toks, 0)
	require.Empty(t, diags, "unexpected diagnostics: %v", diags)
	return prog
}

func TestParseStoreDecl(t *testing.T) {
	prog := mustParse(t, `store total as 5`)
	require.Len(t, prog.Statements, 1)
	decl, ok := prog.Statements[0].(*ast.VariableDecl)
	require.True(t, ok)
	assert.Equal(t, "total", decl.Name)
	assert.Equal(t, ast.DeclStore, decl.Kind)
}

// TestMissingConnectiveReportsE1003 exercises the seed scenario where a
// required connective word between two constructs is dropped: `store
// greeting 42` is missing the `as` that separates the name from the value.
func TestMissingConnectiveReportsE1003(t *testing.T) {
	toks := merger.Merge(lexer.New(0, `store greeting 42`).Lex())
	_, diags := Parse(toks, 0)
	require.NotEmpty(t, diags)
	assert.Equal(t, "E1003", string(diags[0].Code))
}

func TestParsePossessiveFieldAccess(t *testing.T) {
	prog := mustParse(t, `display point's x`)
	require.Len(t, prog.Statements, 1)
	disp, ok := prog.Statements[0].(*ast.DisplayStmt)
	require.True(t, ok)

	access, ok := disp.Value.(*ast.RecordFieldAccess)
	require.True(t, ok, "expected a RecordFieldAccess, got %T", disp.Value)
	assert.Equal(t, "x", access.Field)

	ident, ok := access.Record.(*ast.Identifier)
	require.True(t, ok)
	assert.Equal(t, "point", ident.Name)
}

func TestParsePossessiveFieldAccessChains(t *testing.T) {
	prog := mustParse(t, `display a's b's c`)
	require.Len(t, prog.Statements, 1)
	disp := prog.Statements[0].(*ast.DisplayStmt)

	outer, ok := disp.Value.(*ast.RecordFieldAccess)
	require.True(t, ok)
	assert.Equal(t, "c", outer.Field)

	inner, ok := outer.Record.(*ast.RecordFieldAccess)
	require.True(t, ok)
	assert.Equal(t, "b", inner.Field)

	ident, ok := inner.Record.(*ast.Identifier)
	require.True(t, ok)
	assert.Equal(t, "a", ident.Name)
}

func TestParseCountInExpressionPosition(t *testing.T) {
	prog := mustParse(t, "count from 1 to 3:\n\tdisplay count\nend count")
	require.Len(t, prog.Statements, 1)
	loop, ok := prog.Statements[0].(*ast.CountLoop)
	require.True(t, ok)
	assert.Equal(t, "count", loop.Var)
}

func TestParseListLiteral(t *testing.T) {
	prog := mustParse(t, `store nums as [1, 2, 3]`)
	decl := prog.Statements[0].(*ast.VariableDecl)
	list, ok := decl.Value.(*ast.ListLiteral)
	require.True(t, ok)
	assert.Len(t, list.Elements, 3)
}

// TestParseRecordDeclStructuralEquality checks the whole parsed statement
// tree for a record declaration against a hand-built expectation with
// cmp.Diff, ignoring source.Span since positions aren't worth hand-computing
// here - only the decoded structure matters.
func TestParseRecordDeclStructuralEquality(t *testing.T) {
	prog := mustParse(t, `
create point as record:
	x is 1
	y is 2
end record
`)

	want := []ast.Statement{
		&ast.RecordDecl{
			Name: "point",
			Fields: []ast.RecordField{
				{Name: "x", Value: &ast.NumberLiteral{Value: 1, Raw: "1"}},
				{Name: "y", Value: &ast.NumberLiteral{Value: 2, Raw: "2"}},
			},
		},
	}

	opts := cmp.Options{
		cmpopts.IgnoreFields(ast.Base{}, "Sp"),
	}
	if diff := cmp.Diff(want, prog.Statements, opts); diff != "" {
		t.Errorf("parsed record decl mismatch (-want +got):\n%s", diff)
	}
}
