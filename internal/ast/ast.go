// Package ast defines the typed AST produced by package parser. Every node
// embeds Base, carrying the byte-precise Span covering its first through
// last constituent token, and implements String() so a parsed tree can be
// pretty-printed and re-parsed back into a structurally equal tree. Node
// shape (an interface exposing Span/String, embedded in every concrete
// statement/expression) follows the common shape for a hand-rolled AST:
// one small interface every concrete node satisfies via an embedded base
// struct.
package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/logbie/wfl-sub001/internal/source"
)

// Node is any AST node, statement or expression.
type Node interface {
	Span() source.Span
	String() string
}

// Statement is any top-level or block-level statement node.
type Statement interface {
	Node
	statementNode()
}

// Expression is any expression node.
type Expression interface {
	Node
	expressionNode()
}

// Base carries the span common to every node; embed it first in every
// concrete node type so Span() comes for free.
type Base struct {
	Sp source.Span
}

func (b Base) Span() source.Span { return b.Sp }

// ---------------------------------------------------------------- Program

// Program is the root of a parsed WFL file.
type Program struct {
	Base
	Statements []Statement
}

func (p *Program) String() string {
	var parts []string
	for _, s := range p.Statements {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, "\n")
}

// -------------------------------------------------------------- Literals

type NumberLiteral struct {
	Base
	Value float64
	Raw   string
}

func (n *NumberLiteral) expressionNode() {}
func (n *NumberLiteral) String() string  { return n.Raw }

type TextLiteral struct {
	Base
	Value string
}

func (t *TextLiteral) expressionNode() {}
func (t *TextLiteral) String() string  { return strconv.Quote(t.Value) }

type BoolLiteral struct {
	Base
	Value bool
}

func (b *BoolLiteral) expressionNode() {}
func (b *BoolLiteral) String() string {
	if b.Value {
		return "yes"
	}
	return "no"
}

type NullLiteral struct {
	Base
}

func (n *NullLiteral) expressionNode() {}
func (n *NullLiteral) String() string  { return "nothing" }

// ListLiteral gives List<T> values concrete surface syntax: `[e1, e2, e3]`.
type ListLiteral struct {
	Base
	Elements []Expression
}

func (l *ListLiteral) expressionNode() {}
func (l *ListLiteral) String() string {
	var parts []string
	for _, e := range l.Elements {
		parts = append(parts, e.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// PatternLiteral is `pattern "<phrase>"`, compiled lazily by package pattern.
type PatternLiteral struct {
	Base
	Phrase string
}

func (p *PatternLiteral) expressionNode() {}
func (p *PatternLiteral) String() string  { return fmt.Sprintf("pattern %s", strconv.Quote(p.Phrase)) }

// ----------------------------------------------------------- Identifiers

// Identifier is a (possibly multi-word) name reference.
type Identifier struct {
	Base
	Name string
}

func (i *Identifier) expressionNode() {}
func (i *Identifier) String() string  { return i.Name }

// ------------------------------------------------------------- Operators

type BinaryOp string

const (
	OpPlus    BinaryOp = "plus"
	OpMinus   BinaryOp = "minus"
	OpTimes   BinaryOp = "times"
	OpDivide  BinaryOp = "divided by"
	OpWith    BinaryOp = "with" // text concatenation
	OpAnd     BinaryOp = "and"
	OpOr      BinaryOp = "or"
	OpEq      BinaryOp = "is"
	OpGreater BinaryOp = "is greater than"
	OpLess    BinaryOp = "is less than"
	OpAtLeast BinaryOp = "is at least"
	OpAtMost  BinaryOp = "is at most"
	OpContains BinaryOp = "contains"
)

type BinaryExpr struct {
	Base
	Op    BinaryOp
	Left  Expression
	Right Expression
}

func (b *BinaryExpr) expressionNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left.String(), b.Op, b.Right.String())
}

type UnaryOp string

const OpNot UnaryOp = "not"

type UnaryExpr struct {
	Base
	Op      UnaryOp
	Operand Expression
}

func (u *UnaryExpr) expressionNode() {}
func (u *UnaryExpr) String() string  { return fmt.Sprintf("(%s %s)", u.Op, u.Operand.String()) }

// ParenExpr is an explicit grouping, `(expr)`.
type ParenExpr struct {
	Base
	Inner Expression
}

func (p *ParenExpr) expressionNode() {}
func (p *ParenExpr) String() string  { return "(" + p.Inner.String() + ")" }

// ConvertExpr is the explicit `convert <expr> to <type>` expression used
// for Number<->Text conversion.
type ConvertExpr struct {
	Base
	Value    Expression
	ToType   string
}

func (c *ConvertExpr) expressionNode() {}
func (c *ConvertExpr) String() string {
	return fmt.Sprintf("convert %s to %s", c.Value.String(), c.ToType)
}

// ------------------------------------------------------------- Call args

// Arg is one `with <name> as <expr>` call argument.
type Arg struct {
	Name  string
	Value Expression
}

// CallExpr is `perform <name> [with name1 as expr1 and name2 as expr2 ...]`
// or the bare `name with args` form.
type CallExpr struct {
	Base
	Callee string
	Args   []Arg
}

func (c *CallExpr) expressionNode() {}
func (c *CallExpr) String() string {
	var parts []string
	for _, a := range c.Args {
		parts = append(parts, fmt.Sprintf("%s as %s", a.Name, a.Value.String()))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("perform %s", c.Callee)
	}
	return fmt.Sprintf("perform %s with %s", c.Callee, strings.Join(parts, " and "))
}

// MaybeCallOrConcat is the ambiguity node for `name with args`: it could be
// an action call or text concatenation depending on what name resolves to.
// Resolved by package sema during name resolution, which rewrites this node
// in place into either a *CallExpr or a *BinaryExpr(OpWith).
type MaybeCallOrConcat struct {
	Base
	Name  string
	Parts []Expression
}

func (m *MaybeCallOrConcat) expressionNode() {}
func (m *MaybeCallOrConcat) String() string {
	var parts []string
	for _, p := range m.Parts {
		parts = append(parts, p.String())
	}
	return fmt.Sprintf("%s with %s", m.Name, strings.Join(parts, " and "))
}

// RecordFieldAccess is `<name>'s <field>` access on a Record value. No
// `<field> of <name>` form is parsed.
type RecordFieldAccess struct {
	Base
	Record Expression
	Field  string
}

func (r *RecordFieldAccess) expressionNode() {}
func (r *RecordFieldAccess) String() string {
	return fmt.Sprintf("%s's %s", r.Record.String(), r.Field)
}

// FindPatternExpr is `find pattern p in t`.
type FindPatternExpr struct {
	Base
	Pattern Expression
	Text    Expression
}

func (f *FindPatternExpr) expressionNode() {}
func (f *FindPatternExpr) String() string {
	return fmt.Sprintf("find %s in %s", f.Pattern.String(), f.Text.String())
}

// MatchesPatternExpr is `t matches pattern p` / `t contains pattern p`.
type MatchesPatternExpr struct {
	Base
	Text    Expression
	Pattern Expression
	Search  bool // true => "contains pattern" (search), false => "matches pattern" (full match)
}

func (m *MatchesPatternExpr) expressionNode() {}
func (m *MatchesPatternExpr) String() string {
	verb := "matches"
	if m.Search {
		verb = "contains"
	}
	return fmt.Sprintf("%s %s pattern %s", m.Text.String(), verb, m.Pattern.String())
}

// ReplacePatternExpr is `replace pattern p with r in t`.
type ReplacePatternExpr struct {
	Base
	Pattern     Expression
	Replacement Expression
	Text        Expression
}

func (r *ReplacePatternExpr) expressionNode() {}
func (r *ReplacePatternExpr) String() string {
	return fmt.Sprintf("replace pattern %s with %s in %s", r.Pattern.String(), r.Replacement.String(), r.Text.String())
}

// SplitPatternExpr is `split t by pattern p`.
type SplitPatternExpr struct {
	Base
	Text    Expression
	Pattern Expression
}

func (s *SplitPatternExpr) expressionNode() {}
func (s *SplitPatternExpr) String() string {
	return fmt.Sprintf("split %s by pattern %s", s.Text.String(), s.Pattern.String())
}
