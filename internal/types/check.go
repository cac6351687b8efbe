package types

import (
	"fmt"

	"github.com/logbie/wfl-sub001/internal/ast"
	"github.com/logbie/wfl-sub001/internal/diagnostic"
	"github.com/logbie/wfl-sub001/internal/source"
)

// env is a block-scoped chain of variable types, mirroring package sema's
// scope tree but carrying Types instead of Symbols - kept separate because
// the type checker runs as its own pass over the (already name-resolved)
// tree rather than sharing sema's bookkeeping.
type env struct {
	parent *env
	vars   map[string]*Type
}

func newEnv(parent *env) *env {
	return &env{parent: parent, vars: make(map[string]*Type)}
}

func (e *env) define(name string, t *Type) {
	e.vars[name] = t
}

func (e *env) lookup(name string) (*Type, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Checker infers and checks types over a resolved Program.
type Checker struct {
	diags   []*diagnostic.Diagnostic
	actions map[string]*Type
}

// Check runs type inference/checking over prog (which must already have
// been through package sema) and returns any E3xxx diagnostics found.
func Check(prog *ast.Program) []*diagnostic.Diagnostic {
	c := &Checker{actions: make(map[string]*Type)}
	c.hoistActionSignatures(prog.Statements)
	root := newEnv(nil)
	for _, s := range prog.Statements {
		c.checkStmt(s, root)
	}
	return c.diags
}

func (c *Checker) hoistActionSignatures(stmts []ast.Statement) {
	for _, s := range stmts {
		decl, ok := s.(*ast.ActionDecl)
		if !ok {
			continue
		}
		c.actions[decl.Name] = c.signatureOf(decl)
	}
}

func (c *Checker) signatureOf(decl *ast.ActionDecl) *Type {
	var params []*Type
	for _, p := range decl.Params {
		pt, ok := FromName(p.Type)
		if !ok {
			pt = Unknown
		}
		params = append(params, pt)
	}
	var ret *Type
	if decl.ReturnType != "" {
		if rt, ok := FromName(decl.ReturnType); ok {
			ret = rt
		}
	}
	return Action(params, ret)
}

// ------------------------------------------------------------- statements

func (c *Checker) checkStmt(s ast.Statement, e *env) {
	switch n := s.(type) {
	case *ast.VariableDecl:
		t := c.infer(n.Value, e)
		e.define(n.Name, t)

	case *ast.RecordDecl:
		fields := make(map[string]*Type, len(n.Fields))
		for _, f := range n.Fields {
			fields[f.Name] = c.infer(f.Value, e)
		}
		e.define(n.Name, Record(fields))

	case *ast.DisplayStmt:
		c.infer(n.Value, e)

	case *ast.CheckStmt:
		condT := c.infer(n.Condition, e)
		c.expectType(condT, Boolean, n.Condition.Span(), "check condition")
		thenEnv := newEnv(e)
		for _, st := range n.Then {
			c.checkStmt(st, thenEnv)
		}
		if n.Otherwise != nil {
			elseEnv := newEnv(e)
			for _, st := range n.Otherwise {
				c.checkStmt(st, elseEnv)
			}
		}

	case *ast.CountLoop:
		c.expectType(c.infer(n.From, e), Number, n.From.Span(), "count from")
		c.expectType(c.infer(n.To, e), Number, n.To.Span(), "count to")
		if n.Step != nil {
			c.expectType(c.infer(n.Step, e), Number, n.Step.Span(), "count by")
		}
		body := newEnv(e)
		body.define(n.Var, Number)
		for _, st := range n.Body {
			c.checkStmt(st, body)
		}

	case *ast.ForEachLoop:
		collT := c.infer(n.Coll, e)
		elemT := Unknown
		if collT != nil && collT.Kind == KindList {
			elemT = collT.Elem
		}
		body := newEnv(e)
		body.define(n.Var, elemT)
		for _, st := range n.Body {
			c.checkStmt(st, body)
		}

	case *ast.RepeatLoop:
		if n.Condition != nil {
			c.expectType(c.infer(n.Condition, e), Boolean, n.Condition.Span(), "repeat condition")
		}
		body := newEnv(e)
		for _, st := range n.Body {
			c.checkStmt(st, body)
		}

	case *ast.ActionDecl:
		actionEnv := newEnv(e)
		for _, p := range n.Params {
			pt, ok := FromName(p.Type)
			if !ok {
				pt = Unknown
			}
			actionEnv.define(p.Name, pt)
			if p.Default != nil {
				c.expectType(c.infer(p.Default, e), pt, p.Default.Span(), "parameter default")
			}
		}
		for _, st := range n.Body {
			c.checkStmt(st, actionEnv)
		}
		if n.ReturnType != "" && !allPathsReturn(n.Body) {
			d := diagnostic.New(diagnostic.E3004MissingReturn,
				fmt.Sprintf("action `%s` declares a return type but has no `give back`", n.Name),
				diagnostic.Label{Span: n.Span(), Message: "missing return"})
			c.diags = append(c.diags, d)
		}

	case *ast.ReturnStmt:
		if n.Value != nil {
			c.infer(n.Value, e)
		}

	case *ast.ExprStmt:
		c.infer(n.Value, e)

	case *ast.OpenStmt:
		c.infer(n.Target, e)
		if n.Method != nil {
			c.infer(n.Method, e)
		}
		if n.ReqBody != nil {
			c.infer(n.ReqBody, e)
		}
		if n.Headers != nil {
			c.infer(n.Headers, e)
		}
		e.define(n.Handle, Unknown) // handle values are an opaque runtime kind

	case *ast.CloseStmt:
		// handle existence already checked by sema

	case *ast.WriteStmt:
		c.expectType(c.infer(n.Value, e), Text, n.Value.Span(), "write value")

	case *ast.TryStmt:
		tryEnv := newEnv(e)
		for _, st := range n.Body {
			c.checkStmt(st, tryEnv)
		}
		for _, w := range n.Whens {
			whenEnv := newEnv(e)
			for _, st := range w.Body {
				c.checkStmt(st, whenEnv)
			}
		}
		if n.Otherwise != nil {
			otherEnv := newEnv(e)
			for _, st := range n.Otherwise {
				c.checkStmt(st, otherEnv)
			}
		}

	case *ast.WaitForStmt:
		for _, t := range n.Targets {
			c.infer(t, e)
		}
	}
}

// allPathsReturn reports whether every control path through stmts ends in a
// `give back`, recursing into check/otherwise and try/when/otherwise
// branches rather than only looking at top-level statements. A loop body is
// never treated as guaranteeing a return, since its controlling condition
// may skip the body entirely.
func allPathsReturn(stmts []ast.Statement) bool {
	for _, st := range stmts {
		if stmtAlwaysReturns(st) {
			return true
		}
	}
	return false
}

func stmtAlwaysReturns(s ast.Statement) bool {
	switch n := s.(type) {
	case *ast.ReturnStmt:
		return true

	case *ast.CheckStmt:
		// Without an otherwise branch the condition might be false and fall
		// through, so only a check with both arms covered can guarantee a
		// return.
		return n.Otherwise != nil && allPathsReturn(n.Then) && allPathsReturn(n.Otherwise)

	case *ast.TryStmt:
		if !allPathsReturn(n.Body) {
			return false
		}
		for _, w := range n.Whens {
			if !allPathsReturn(w.Body) {
				return false
			}
		}
		return n.Otherwise == nil || allPathsReturn(n.Otherwise)

	default:
		return false
	}
}

// ------------------------------------------------------------ expressions

func (c *Checker) infer(ex ast.Expression, e *env) *Type {
	if ex == nil {
		return Unknown
	}
	switch n := ex.(type) {
	case *ast.NumberLiteral:
		return Number
	case *ast.TextLiteral:
		return Text
	case *ast.BoolLiteral:
		return Boolean
	case *ast.NullLiteral:
		return Nothing
	case *ast.PatternLiteral:
		return Pattern

	case *ast.ListLiteral:
		var elem *Type
		for _, el := range n.Elements {
			t := c.infer(el, e)
			joined, ok := Join(elem, t)
			if !ok {
				d := diagnostic.New(diagnostic.E3003HeterogeneousList,
					fmt.Sprintf("list elements must share a type; got `%s` after `%s`", t, elem),
					diagnostic.Label{Span: el.Span(), Message: "inconsistent element type"})
				c.diags = append(c.diags, d)
				continue
			}
			elem = joined
		}
		if elem == nil {
			elem = Unknown
		}
		return List(elem)

	case *ast.Identifier:
		if t, ok := e.lookup(n.Name); ok {
			return t
		}
		return Unknown

	case *ast.BinaryExpr:
		return c.inferBinary(n, e)

	case *ast.UnaryExpr:
		t := c.infer(n.Operand, e)
		c.expectType(t, Boolean, n.Operand.Span(), "not operand")
		return Boolean

	case *ast.ParenExpr:
		return c.infer(n.Inner, e)

	case *ast.ConvertExpr:
		c.infer(n.Value, e)
		t, ok := FromName(n.ToType)
		if !ok {
			return Unknown
		}
		return t

	case *ast.CallExpr:
		return c.inferCall(n, e)

	case *ast.RecordFieldAccess:
		rt := c.infer(n.Record, e)
		if rt != nil && rt.Kind == KindRecord {
			if ft, ok := rt.Fields[n.Field]; ok {
				return ft
			}
		}
		return Unknown

	case *ast.ReadExpr:
		if n.Kind == ast.ReadResponse {
			// Decoded JSON can be either an object or an array, and its
			// field shape isn't known until the request actually runs.
			return Unknown
		}
		return Text

	case *ast.QueryExpr:
		c.infer(n.SQL, e)
		return List(Record(nil))

	case *ast.FindPatternExpr:
		c.infer(n.Pattern, e)
		c.infer(n.Text, e)
		return Map(Text, Text)

	case *ast.MatchesPatternExpr:
		c.infer(n.Text, e)
		c.infer(n.Pattern, e)
		return Boolean

	case *ast.ReplacePatternExpr:
		c.infer(n.Pattern, e)
		c.infer(n.Replacement, e)
		c.infer(n.Text, e)
		return Text

	case *ast.SplitPatternExpr:
		c.infer(n.Text, e)
		c.infer(n.Pattern, e)
		return List(Text)

	default:
		return Unknown
	}
}

func (c *Checker) inferBinary(n *ast.BinaryExpr, e *env) *Type {
	lt := c.infer(n.Left, e)
	rt := c.infer(n.Right, e)

	switch n.Op {
	case ast.OpPlus, ast.OpMinus, ast.OpTimes, ast.OpDivide:
		c.expectType(lt, Number, n.Left.Span(), "arithmetic operand")
		c.expectType(rt, Number, n.Right.Span(), "arithmetic operand")
		return Number

	case ast.OpWith:
		c.expectType(lt, Text, n.Left.Span(), "`with` operand")
		c.expectType(rt, Text, n.Right.Span(), "`with` operand")
		return Text

	case ast.OpAnd, ast.OpOr:
		c.expectType(lt, Boolean, n.Left.Span(), "boolean operand")
		c.expectType(rt, Boolean, n.Right.Span(), "boolean operand")
		return Boolean

	case ast.OpContains:
		// Text-contains-substring and List-contains-element both type as
		// Boolean regardless of element type, so no operand check here.
		return Boolean

	case ast.OpEq, ast.OpGreater, ast.OpLess, ast.OpAtLeast, ast.OpAtMost:
		if lt != nil && rt != nil && lt.Kind != KindUnknown && rt.Kind != KindUnknown && !Equal(lt, rt) {
			d := diagnostic.New(diagnostic.E3001Mismatch,
				fmt.Sprintf("cannot compare `%s` with `%s`", lt, rt),
				diagnostic.Label{Span: n.Span(), Message: "type mismatch"})
			c.diags = append(c.diags, d)
		}
		return Boolean

	default:
		return Unknown
	}
}

func (c *Checker) inferCall(n *ast.CallExpr, e *env) *Type {
	sig, ok := c.actions[n.Callee]
	if !ok {
		for _, a := range n.Args {
			c.infer(a.Value, e)
		}
		return Unknown
	}
	for _, a := range n.Args {
		c.infer(a.Value, e)
	}
	if len(n.Args) != len(sig.Params) {
		d := diagnostic.New(diagnostic.E3001Mismatch,
			fmt.Sprintf("`%s` expects %d argument(s), got %d", n.Callee, len(sig.Params), len(n.Args)),
			diagnostic.Label{Span: n.Span(), Message: "argument count mismatch"})
		c.diags = append(c.diags, d)
	}
	if sig.Return != nil {
		return sig.Return
	}
	return Nothing
}

// expectType reports E3001 if got doesn't match want, skipping the check
// when got is Unknown (an earlier error already fired for that subtree).
func (c *Checker) expectType(got, want *Type, sp source.Span, what string) {
	if got == nil || got.Kind == KindUnknown {
		return
	}
	if Equal(got, want) {
		return
	}
	d := diagnostic.New(diagnostic.E3001Mismatch,
		fmt.Sprintf("%s must be %s, found %s", what, want, got),
		diagnostic.Label{Span: sp, Message: fmt.Sprintf("expected %s", want)})
	c.diags = append(c.diags, d)
}
