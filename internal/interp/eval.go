package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/logbie/wfl-sub001/internal/ast"
	"github.com/logbie/wfl-sub001/internal/diagnostic"
	"github.com/logbie/wfl-sub001/internal/pattern"
	"github.com/logbie/wfl-sub001/internal/source"
	"github.com/logbie/wfl-sub001/internal/value"
)

// patternCache is process-wide rather than per-Interpreter: compiled
// patterns have no dependency on any one script's environment, so every
// Interpreter sharing a process shares one compile cache, keyed by content
// hash rather than by caller.
var patternCache = pattern.NewCache()

// LoadPatternCache restores previously dumped pattern compilations into the
// process-wide cache, letting a host warm-start without recompiling phrases
// it already saw in an earlier run.
func LoadPatternCache(data []byte) error {
	return patternCache.LoadCache(data)
}

// DumpPatternCache serializes every pattern compilation the process-wide
// cache currently holds, for a host to persist between runs.
func DumpPatternCache() ([]byte, error) {
	return patternCache.DumpCache()
}

// eval evaluates ex in env, returning the first runtime fault encountered.
func (in *Interpreter) eval(ex ast.Expression, env *value.Environment) (*value.Value, error) {
	switch n := ex.(type) {
	case *ast.NumberLiteral:
		return value.NumberVal(n.Value), nil

	case *ast.TextLiteral:
		return value.TextVal(n.Value), nil

	case *ast.BoolLiteral:
		return value.BoolVal(n.Value), nil

	case *ast.NullLiteral:
		return value.Nothing, nil

	case *ast.PatternLiteral:
		cp, err := patternCache.Get(n.Phrase)
		if err != nil {
			return nil, runtimeErr(diagnostic.E1101InvalidPattern, err.Error(), n.Span())
		}
		return &value.Value{Kind: value.KindPattern, Pattern: &value.CompiledPattern{Phrase: n.Phrase, Compiled: cp}}, nil

	case *ast.ListLiteral:
		elems := make([]*value.Value, len(n.Elements))
		for i, e := range n.Elements {
			v, err := in.eval(e, env)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return value.NewList(elems), nil

	case *ast.Identifier:
		v, ok := env.Get(n.Name)
		if !ok {
			return nil, runtimeErr(diagnostic.E2001Undefined, fmt.Sprintf("`%s` is not defined", n.Name), n.Span())
		}
		return v, nil

	case *ast.BinaryExpr:
		return in.evalBinary(n, env)

	case *ast.UnaryExpr:
		v, err := in.eval(n.Operand, env)
		if err != nil {
			return nil, err
		}
		return value.BoolVal(!v.Truthy()), nil

	case *ast.ParenExpr:
		return in.eval(n.Inner, env)

	case *ast.ConvertExpr:
		return in.evalConvert(n, env)

	case *ast.CallExpr:
		return in.evalCall(n, env)

	case *ast.MaybeCallOrConcat:
		// sema rewrites every MaybeCallOrConcat into a CallExpr or
		// BinaryExpr(OpWith) before the interpreter ever runs; reaching
		// here means semantic analysis was skipped.
		return nil, runtimeErr(diagnostic.E2001Undefined, fmt.Sprintf("`%s` was never resolved", n.Name), n.Span())

	case *ast.RecordFieldAccess:
		rv, err := in.eval(n.Record, env)
		if err != nil {
			return nil, err
		}
		if rv.Kind != value.KindRecord {
			return nil, runtimeErr(diagnostic.E3001Mismatch, fmt.Sprintf("`%s` is not a record", n.Record.String()), n.Span())
		}
		fv, ok := rv.Record[n.Field]
		if !ok {
			return nil, runtimeErr(diagnostic.E2001Undefined, fmt.Sprintf("record has no field `%s`", n.Field), n.Span())
		}
		return fv, nil

	case *ast.ReadExpr:
		return in.readHandle(n)

	case *ast.QueryExpr:
		return in.execQuery(n, env)

	case *ast.FindPatternExpr:
		return in.evalFindPattern(n, env)

	case *ast.MatchesPatternExpr:
		return in.evalMatchesPattern(n, env)

	case *ast.ReplacePatternExpr:
		return in.evalReplacePattern(n, env)

	case *ast.SplitPatternExpr:
		return in.evalSplitPattern(n, env)
	}
	return nil, runtimeErr(diagnostic.E3001Mismatch, fmt.Sprintf("cannot evaluate %T", ex), ex.Span())
}

func (in *Interpreter) evalBinary(n *ast.BinaryExpr, env *value.Environment) (*value.Value, error) {
	left, err := in.eval(n.Left, env)
	if err != nil {
		return nil, err
	}

	// and/or short-circuit, so the right operand is only evaluated when
	// needed.
	switch n.Op {
	case ast.OpAnd:
		if !left.Truthy() {
			return value.False, nil
		}
		right, err := in.eval(n.Right, env)
		if err != nil {
			return nil, err
		}
		return value.BoolVal(right.Truthy()), nil
	case ast.OpOr:
		if left.Truthy() {
			return value.True, nil
		}
		right, err := in.eval(n.Right, env)
		if err != nil {
			return nil, err
		}
		return value.BoolVal(right.Truthy()), nil
	}

	right, err := in.eval(n.Right, env)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.OpPlus:
		return value.NumberVal(left.Number + right.Number), nil
	case ast.OpMinus:
		return value.NumberVal(left.Number - right.Number), nil
	case ast.OpTimes:
		return value.NumberVal(left.Number * right.Number), nil
	case ast.OpDivide:
		if right.Number == 0 {
			return nil, runtimeErr(diagnostic.E4001DivisionByZero, "division by zero", n.Span())
		}
		return value.NumberVal(left.Number / right.Number), nil
	case ast.OpWith:
		return value.TextVal(left.TextValue() + right.TextValue()), nil
	case ast.OpEq:
		return value.BoolVal(valuesEqual(left, right)), nil
	case ast.OpGreater:
		return value.BoolVal(left.Number > right.Number), nil
	case ast.OpLess:
		return value.BoolVal(left.Number < right.Number), nil
	case ast.OpAtLeast:
		return value.BoolVal(left.Number >= right.Number), nil
	case ast.OpAtMost:
		return value.BoolVal(left.Number <= right.Number), nil
	case ast.OpContains:
		return evalContains(left, right), nil
	}
	return nil, runtimeErr(diagnostic.E3001Mismatch, fmt.Sprintf("unsupported operator %q", n.Op), n.Span())
}

func valuesEqual(a, b *value.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case value.KindNumber:
		return a.Number == b.Number
	case value.KindText:
		return a.Text == b.Text
	case value.KindBoolean:
		return a.Bool == b.Bool
	case value.KindNothing:
		return true
	default:
		return a == b
	}
}

func evalContains(left, right *value.Value) *value.Value {
	switch left.Kind {
	case value.KindText:
		return value.BoolVal(strings.Contains(left.Text, right.TextValue()))
	case value.KindList:
		for _, e := range left.List {
			if valuesEqual(e, right) {
				return value.True
			}
		}
		return value.False
	default:
		return value.False
	}
}

func (in *Interpreter) evalConvert(n *ast.ConvertExpr, env *value.Environment) (*value.Value, error) {
	v, err := in.eval(n.Value, env)
	if err != nil {
		return nil, err
	}
	switch n.ToType {
	case "Text":
		return value.TextVal(v.TextValue()), nil
	case "Number":
		if v.Kind == value.KindNumber {
			return v, nil
		}
		f, perr := strconv.ParseFloat(strings.TrimSpace(v.TextValue()), 64)
		if perr != nil {
			return nil, runtimeErr(diagnostic.E3001Mismatch, fmt.Sprintf("cannot convert %q to Number", v.TextValue()), n.Span())
		}
		return value.NumberVal(f), nil
	case "Boolean":
		if v.Kind == value.KindBoolean {
			return v, nil
		}
		return nil, runtimeErr(diagnostic.E3001Mismatch, "only Boolean values convert to Boolean", n.Span())
	}
	return nil, runtimeErr(diagnostic.E3001Mismatch, fmt.Sprintf("unknown conversion target %q", n.ToType), n.Span())
}

// -------------------------------------------------------------- pattern ops

func (in *Interpreter) compilePattern(ex ast.Expression, env *value.Environment) (*pattern.Compiled, error) {
	v, err := in.eval(ex, env)
	if err != nil {
		return nil, err
	}
	if v.Kind != value.KindPattern {
		return nil, runtimeErr(diagnostic.E3001Mismatch, "expected a Pattern value", ex.Span())
	}
	cp, ok := v.Pattern.Compiled.(*pattern.Compiled)
	if !ok {
		return nil, runtimeErr(diagnostic.E4007UncaughtPatternError, "pattern value was never compiled", ex.Span())
	}
	return cp, nil
}

func (in *Interpreter) evalFindPattern(n *ast.FindPatternExpr, env *value.Environment) (*value.Value, error) {
	cp, err := in.compilePattern(n.Pattern, env)
	if err != nil {
		return nil, err
	}
	tv, err := in.eval(n.Text, env)
	if err != nil {
		return nil, err
	}
	caps, ok := cp.Find(tv.TextValue())
	if !ok {
		return value.Nothing, nil
	}
	m := value.NewMap()
	for k, v := range caps {
		m.MapSet(k, value.TextVal(v))
	}
	return m, nil
}

func (in *Interpreter) evalMatchesPattern(n *ast.MatchesPatternExpr, env *value.Environment) (*value.Value, error) {
	cp, err := in.compilePattern(n.Pattern, env)
	if err != nil {
		return nil, err
	}
	tv, err := in.eval(n.Text, env)
	if err != nil {
		return nil, err
	}
	if n.Search {
		return value.BoolVal(cp.Contains(tv.TextValue())), nil
	}
	return value.BoolVal(cp.FullMatch(tv.TextValue())), nil
}

func (in *Interpreter) evalReplacePattern(n *ast.ReplacePatternExpr, env *value.Environment) (*value.Value, error) {
	cp, err := in.compilePattern(n.Pattern, env)
	if err != nil {
		return nil, err
	}
	rv, err := in.eval(n.Replacement, env)
	if err != nil {
		return nil, err
	}
	tv, err := in.eval(n.Text, env)
	if err != nil {
		return nil, err
	}
	return value.TextVal(cp.ReplaceAll(tv.TextValue(), rv.TextValue())), nil
}

func (in *Interpreter) evalSplitPattern(n *ast.SplitPatternExpr, env *value.Environment) (*value.Value, error) {
	cp, err := in.compilePattern(n.Pattern, env)
	if err != nil {
		return nil, err
	}
	tv, err := in.eval(n.Text, env)
	if err != nil {
		return nil, err
	}
	parts := cp.Split(tv.TextValue())
	elems := make([]*value.Value, len(parts))
	for i, p := range parts {
		elems[i] = value.TextVal(p)
	}
	return value.NewList(elems), nil
}

// ----------------------------------------------------------------- actions

func (in *Interpreter) evalCall(n *ast.CallExpr, env *value.Environment) (*value.Value, error) {
	calleeV, ok := env.Get(n.Callee)
	if !ok || calleeV.Kind != value.KindAction {
		return nil, runtimeErr(diagnostic.E3002NotCallable, fmt.Sprintf("`%s` is not an action", n.Callee), n.Span())
	}
	action := calleeV.Action

	callEnv := value.NewChildEnvironment(action.DefiningEnv)
	for _, p := range action.Params {
		var av *value.Value
		found := false
		for _, a := range n.Args {
			if a.Name == p.Name {
				v, err := in.eval(a.Value, env)
				if err != nil {
					return nil, err
				}
				av = v
				found = true
				break
			}
		}
		if !found && p.Default != nil {
			v, err := in.eval(p.Default, callEnv)
			if err != nil {
				return nil, err
			}
			av = v
			found = true
		}
		if !found {
			return nil, runtimeErr(diagnostic.E3001Mismatch, fmt.Sprintf("missing argument `%s` for `%s`", p.Name, n.Callee), n.Span())
		}
		callEnv.Define(p.Name, av)
	}

	if action.Async {
		task := value.NewTask()
		go func() {
			v, err := in.callAction(action, callEnv, n)
			task.Resolve(v, err)
		}()
		return &value.Value{Kind: value.KindTask, Task: task}, nil
	}
	return in.callAction(action, callEnv, n)
}

// callAction runs action's body in callEnv, pushing/popping a CallFrame for
// stack traces and snapshotting its locals if a fault propagates out.
func (in *Interpreter) callAction(action *value.ActionValue, callEnv *value.Environment, site ast.Node) (*value.Value, error) {
	frame := &value.CallFrame{ActionName: action.Name, CallSite: site, BodySpan: bodySpan(action.Body), Env: callEnv}
	in.stackMu.Lock()
	in.callStack = append(in.callStack, frame)
	in.stackMu.Unlock()
	defer func() {
		in.stackMu.Lock()
		in.callStack = in.callStack[:len(in.callStack)-1]
		in.stackMu.Unlock()
	}()

	_, err := in.execBlock(action.Body, callEnv)
	if err != nil {
		if ctl, ok := err.(*control); ok && ctl.isReturn {
			return ctl.retVal, nil
		}
		if _, ok := err.(*control); !ok {
			frame.Snapshot()
			in.stackMu.Lock()
			// Each enclosing callAction appends its own frame as the fault
			// unwinds through it, so the innermost (deepest) frame is always
			// recorded first; prepend here to keep faultFrames in the
			// documented outermost-first, deepest-last order.
			in.faultFrames = append([]*value.CallFrame{frame}, in.faultFrames...)
			in.stackMu.Unlock()
		}
		return nil, err
	}
	return value.Nothing, nil
}

// bodySpan returns the span covering every statement in body, for printing
// the enclosing action's source text in a debug report.
func bodySpan(body []ast.Statement) source.Span {
	if len(body) == 0 {
		return source.Span{}
	}
	sp := body[0].Span()
	for _, s := range body[1:] {
		sp = source.Join(sp, s.Span())
	}
	return sp
}
