// Package sema resolves names against a global/shared/action-local/
// block-local scope tree, flags duplicate and unknown bindings, and
// resolves the parser's MaybeCallOrConcat ambiguity node into either a
// CallExpr or a text-concatenation BinaryExpr before package types ever
// sees the tree. Scope-tree shape and the duplicate/unknown-name checks
// mirror the planner/resolver scope-leak-vs-scope-isolation split found
// elsewhere in this lineage, adapted here into a genuine nested lexical
// scope chain since WFL blocks execute rather than get flattened at plan
// time.
package sema

import (
	"fmt"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/logbie/wfl-sub001/internal/ast"
	"github.com/logbie/wfl-sub001/internal/diagnostic"
	"github.com/logbie/wfl-sub001/internal/source"
)

// Analyzer walks one Program, accumulating diagnostics and rewriting
// ambiguous nodes in place.
type Analyzer struct {
	global *Scope
	diags  []*diagnostic.Diagnostic
}

// Analyze resolves names in prog and returns any E2xxx diagnostics found.
// It mutates prog: MaybeCallOrConcat nodes are replaced by CallExpr or
// BinaryExpr nodes wherever the parent field allows it.
func Analyze(prog *ast.Program) []*diagnostic.Diagnostic {
	a := &Analyzer{global: newScope(nil, "global")}
	a.hoistActions(prog.Statements, a.global)
	a.walkStatements(prog.Statements, a.global)
	return a.diags
}

// hoistActions pre-registers every top-level action name in scope before
// the main walk, so actions may call one another regardless of textual
// order (store/create bindings are not hoisted: they must precede use).
func (a *Analyzer) hoistActions(stmts []ast.Statement, scope *Scope) {
	for _, s := range stmts {
		decl, ok := s.(*ast.ActionDecl)
		if !ok {
			continue
		}
		sym := &Symbol{Name: decl.Name, Kind: SymAction, Decl: decl}
		if !scope.define(sym) {
			a.errDuplicate(decl.Name, decl.Span())
		}
	}
}

// -------------------------------------------------------------- statements

func (a *Analyzer) walkStatements(stmts []ast.Statement, scope *Scope) {
	for _, s := range stmts {
		a.walkStatement(s, scope)
	}
}

func (a *Analyzer) walkStatement(s ast.Statement, scope *Scope) {
	switch n := s.(type) {
	case *ast.VariableDecl:
		n.Value = a.resolveExpr(n.Value, scope)
		a.defineVar(n.Name, n.Kind, n, scope)

	case *ast.RecordDecl:
		for i := range n.Fields {
			n.Fields[i].Value = a.resolveExpr(n.Fields[i].Value, scope)
		}
		a.defineVar(n.Name, ast.DeclCreate, n, scope)

	case *ast.DisplayStmt:
		n.Value = a.resolveExpr(n.Value, scope)

	case *ast.CheckStmt:
		n.Condition = a.resolveExpr(n.Condition, scope)
		thenScope := newScope(scope, "block")
		a.walkStatements(n.Then, thenScope)
		if n.Otherwise != nil {
			elseScope := newScope(scope, "block")
			a.walkStatements(n.Otherwise, elseScope)
		}

	case *ast.CountLoop:
		n.From = a.resolveExpr(n.From, scope)
		n.To = a.resolveExpr(n.To, scope)
		if n.Step != nil {
			n.Step = a.resolveExpr(n.Step, scope)
		}
		body := newScope(scope, "block")
		body.define(&Symbol{Name: n.Var, Kind: SymVar, Decl: n})
		a.walkStatements(n.Body, body)

	case *ast.ForEachLoop:
		n.Coll = a.resolveExpr(n.Coll, scope)
		body := newScope(scope, "block")
		body.define(&Symbol{Name: n.Var, Kind: SymVar, Decl: n})
		a.walkStatements(n.Body, body)

	case *ast.RepeatLoop:
		if n.Condition != nil {
			n.Condition = a.resolveExpr(n.Condition, scope)
		}
		body := newScope(scope, "block")
		a.walkStatements(n.Body, body)

	case *ast.LoopControlStmt:
		// no names to resolve

	case *ast.ActionDecl:
		if scope.Kind != "global" {
			// Nested action declarations (closures) bind in their own
			// enclosing scope; top-level actions were already hoisted.
			if !scope.define(&Symbol{Name: n.Name, Kind: SymAction, Decl: n}) {
				a.errDuplicate(n.Name, n.Span())
			}
		}
		for i := range n.Params {
			if n.Params[i].Default != nil {
				n.Params[i].Default = a.resolveExpr(n.Params[i].Default, scope)
			}
		}
		actionScope := newScope(scope, "action")
		for _, p := range n.Params {
			actionScope.define(&Symbol{Name: p.Name, Kind: SymParam, Decl: n})
		}
		a.walkStatements(n.Body, actionScope)

	case *ast.ReturnStmt:
		if n.Value != nil {
			n.Value = a.resolveExpr(n.Value, scope)
		}

	case *ast.ExprStmt:
		n.Value = a.resolveExpr(n.Value, scope)

	case *ast.OpenStmt:
		n.Target = a.resolveExpr(n.Target, scope)
		if n.Method != nil {
			n.Method = a.resolveExpr(n.Method, scope)
		}
		if n.ReqBody != nil {
			n.ReqBody = a.resolveExpr(n.ReqBody, scope)
		}
		if n.Headers != nil {
			n.Headers = a.resolveExpr(n.Headers, scope)
		}
		scope.define(&Symbol{Name: n.Handle, Kind: SymVar, Decl: n})

	case *ast.CloseStmt:
		a.checkDefined(n.Handle, n.Span(), scope, "handle")

	case *ast.WriteStmt:
		n.Value = a.resolveExpr(n.Value, scope)
		a.checkDefined(n.Handle, n.Span(), scope, "handle")

	case *ast.TryStmt:
		tryScope := newScope(scope, "block")
		a.walkStatements(n.Body, tryScope)
		for i := range n.Whens {
			whenScope := newScope(scope, "block")
			a.walkStatements(n.Whens[i].Body, whenScope)
		}
		if n.Otherwise != nil {
			otherScope := newScope(scope, "block")
			a.walkStatements(n.Otherwise, otherScope)
		}

	case *ast.WaitForStmt:
		for i := range n.Targets {
			n.Targets[i] = a.resolveExpr(n.Targets[i], scope)
		}
	}
}

func (a *Analyzer) defineVar(name string, kind ast.DeclKind, decl ast.Node, scope *Scope) {
	if kind == ast.DeclChange {
		a.checkDefined(name, decl.Span(), scope, "variable")
		return
	}
	if scope.shadows(name) {
		a.warn(diagnostic.E2003Shadowing, fmt.Sprintf("`%s` shadows a binding from an enclosing scope", name), decl.Span())
	}
	if !scope.define(&Symbol{Name: name, Kind: SymVar, Decl: decl}) {
		a.errDuplicate(name, decl.Span())
	}
}

func (a *Analyzer) checkDefined(name string, sp source.Span, scope *Scope, what string) {
	if _, _, found := scope.resolve(name); !found {
		a.undefinedErr(name, sp, scope, what)
	}
}

// -------------------------------------------------------------- expressions

// resolveExpr recurses into e, resolving identifiers and rewriting
// MaybeCallOrConcat nodes, and returns the (possibly replaced) expression
// the caller should store back into its own field.
func (a *Analyzer) resolveExpr(e ast.Expression, scope *Scope) ast.Expression {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *ast.Identifier:
		a.checkDefined(n.Name, n.Span(), scope, "name")
		return n

	case *ast.BinaryExpr:
		n.Left = a.resolveExpr(n.Left, scope)
		n.Right = a.resolveExpr(n.Right, scope)
		return n

	case *ast.UnaryExpr:
		n.Operand = a.resolveExpr(n.Operand, scope)
		return n

	case *ast.ParenExpr:
		n.Inner = a.resolveExpr(n.Inner, scope)
		return n

	case *ast.ConvertExpr:
		n.Value = a.resolveExpr(n.Value, scope)
		return n

	case *ast.ListLiteral:
		for i := range n.Elements {
			n.Elements[i] = a.resolveExpr(n.Elements[i], scope)
		}
		return n

	case *ast.CallExpr:
		a.checkDefined(n.Callee, n.Span(), scope, "action")
		for i := range n.Args {
			n.Args[i].Value = a.resolveExpr(n.Args[i].Value, scope)
		}
		return n

	case *ast.MaybeCallOrConcat:
		return a.resolveMaybeCall(n, scope)

	case *ast.RecordFieldAccess:
		n.Record = a.resolveExpr(n.Record, scope)
		return n

	case *ast.ReadExpr:
		a.checkDefined(n.Handle, n.Span(), scope, "handle")
		return n

	case *ast.QueryExpr:
		n.SQL = a.resolveExpr(n.SQL, scope)
		a.checkDefined(n.Handle, n.Span(), scope, "handle")
		return n

	case *ast.FindPatternExpr:
		n.Pattern = a.resolveExpr(n.Pattern, scope)
		n.Text = a.resolveExpr(n.Text, scope)
		return n

	case *ast.MatchesPatternExpr:
		n.Text = a.resolveExpr(n.Text, scope)
		n.Pattern = a.resolveExpr(n.Pattern, scope)
		return n

	case *ast.ReplacePatternExpr:
		n.Pattern = a.resolveExpr(n.Pattern, scope)
		n.Replacement = a.resolveExpr(n.Replacement, scope)
		n.Text = a.resolveExpr(n.Text, scope)
		return n

	case *ast.SplitPatternExpr:
		n.Text = a.resolveExpr(n.Text, scope)
		n.Pattern = a.resolveExpr(n.Pattern, scope)
		return n

	default:
		// Literals (Number/Text/Bool/Null/Pattern) carry no names.
		return e
	}
}

// resolveMaybeCall decides whether `name with a and b...` is an action call
// or text concatenation: if name resolves to an action bound with exactly
// len(Parts) parameters, rewrite to a CallExpr with parameter names filled
// in positionally; otherwise treat it as concatenation of name's value with
// each part.
func (a *Analyzer) resolveMaybeCall(n *ast.MaybeCallOrConcat, scope *Scope) ast.Expression {
	for i := range n.Parts {
		n.Parts[i] = a.resolveExpr(n.Parts[i], scope)
	}

	sym, _, found := scope.resolve(n.Name)
	if found && sym.Kind == SymAction {
		if decl, ok := sym.Decl.(*ast.ActionDecl); ok && len(decl.Params) == len(n.Parts) {
			call := &ast.CallExpr{Base: ast.Base{Sp: n.Span()}, Callee: n.Name}
			for i, part := range n.Parts {
				call.Args = append(call.Args, ast.Arg{Name: decl.Params[i].Name, Value: part})
			}
			return call
		}
	}

	a.checkDefined(n.Name, n.Span(), scope, "name")
	var result ast.Expression = &ast.Identifier{Base: ast.Base{Sp: n.Span()}, Name: n.Name}
	for _, part := range n.Parts {
		result = &ast.BinaryExpr{Base: ast.Base{Sp: n.Span()}, Op: ast.OpWith, Left: result, Right: part}
	}
	return result
}

// --------------------------------------------------------------- reporting

func (a *Analyzer) errDuplicate(name string, sp source.Span) {
	d := diagnostic.New(diagnostic.E2002DuplicateDefinition,
		fmt.Sprintf("`%s` is already defined in this scope", name),
		diagnostic.Label{Span: sp, Message: "duplicate definition"})
	a.diags = append(a.diags, d)
}

func (a *Analyzer) warn(code diagnostic.Code, msg string, sp source.Span) {
	d := diagnostic.Warn(code, msg, diagnostic.Label{Span: sp, Message: msg})
	a.diags = append(a.diags, d)
}

// undefinedErr reports E2001 for an unresolved name, suggesting the closest
// visible name by Levenshtein distance when one is reasonably close.
func (a *Analyzer) undefinedErr(name string, sp source.Span, scope *Scope, what string) {
	msg := fmt.Sprintf("%s `%s` is not defined", what, name)
	d := diagnostic.New(diagnostic.E2001Undefined, msg,
		diagnostic.Label{Span: sp, Message: "undefined " + what})

	if suggestion, ok := nearestName(name, scope.names()); ok {
		d.WithNote(fmt.Sprintf("did you mean `%s`?", suggestion))
	}
	a.diags = append(a.diags, d)
}

// nearestName returns the closest candidate to name by edit distance, or
// false if candidates is empty or nothing is reasonably close.
func nearestName(name string, candidates []string) (string, bool) {
	best, bestDist := "", -1
	for _, c := range candidates {
		d := fuzzy.LevenshteinDistance(name, c)
		if bestDist < 0 || d < bestDist || (d == bestDist && c < best) {
			best, bestDist = c, d
		}
	}
	if bestDist < 0 || bestDist > len(name)/2+2 {
		return "", false
	}
	return best, true
}
