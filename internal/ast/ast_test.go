package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiteralStringRendering(t *testing.T) {
	assert.Equal(t, "42", (&NumberLiteral{Raw: "42"}).String())
	assert.Equal(t, `"hi"`, (&TextLiteral{Value: "hi"}).String())
	assert.Equal(t, "yes", (&BoolLiteral{Value: true}).String())
	assert.Equal(t, "no", (&BoolLiteral{Value: false}).String())
	assert.Equal(t, "nothing", (&NullLiteral{}).String())
	assert.Equal(t, `pattern "one or more digit"`, (&PatternLiteral{Phrase: "one or more digit"}).String())
}

func TestListLiteralStringJoinsElements(t *testing.T) {
	l := &ListLiteral{Elements: []Expression{
		&NumberLiteral{Raw: "1"},
		&NumberLiteral{Raw: "2"},
	}}
	assert.Equal(t, "[1, 2]", l.String())
}

func TestBinaryExprStringIsFullyParenthesized(t *testing.T) {
	b := &BinaryExpr{
		Op:    OpPlus,
		Left:  &Identifier{Name: "x"},
		Right: &NumberLiteral{Raw: "1"},
	}
	assert.Equal(t, "(x plus 1)", b.String())
}

func TestCallExprStringOmitsWithWhenNoArgs(t *testing.T) {
	assert.Equal(t, "perform greet", (&CallExpr{Callee: "greet"}).String())

	call := &CallExpr{
		Callee: "greet",
		Args:   []Arg{{Name: "name", Value: &TextLiteral{Value: "Ada"}}},
	}
	assert.Equal(t, `perform greet with name as "Ada"`, call.String())
}

func TestRecordFieldAccessStringUsesPossessiveForm(t *testing.T) {
	access := &RecordFieldAccess{Record: &Identifier{Name: "point"}, Field: "x"}
	assert.Equal(t, "point's x", access.String())
}

func TestMaybeCallOrConcatStringJoinsPartsWithAnd(t *testing.T) {
	m := &MaybeCallOrConcat{
		Name: "greeting",
		Parts: []Expression{
			&TextLiteral{Value: "there"},
			&Identifier{Name: "name"},
		},
	}
	assert.Equal(t, `greeting with "there" and name`, m.String())
}
