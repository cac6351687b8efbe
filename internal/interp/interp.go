// Package interp is the tree-walking evaluator: statement execution,
// expression evaluation, action calls with weak-parent environment
// chaining, loop runaway/timeout protection, and cooperative async via
// goroutines synchronized through value.TaskValue. Structure (a single
// Interpreter context threading the call stack, deadline, and iteration
// budget through every eval call, rather than any package-level mutable
// state) follows a single-Context execution model; the
// goroutine+channel+context.WithTimeout concurrency plumbing for
// `wait for: A and B end wait` mirrors the standard fan-out/fan-in plus
// deadline pattern for bounded parallel work in Go.
package interp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/logbie/wfl-sub001/internal/ast"
	"github.com/logbie/wfl-sub001/internal/diagnostic"
	"github.com/logbie/wfl-sub001/internal/invariant"
	"github.com/logbie/wfl-sub001/internal/source"
	"github.com/logbie/wfl-sub001/internal/value"
)

// Interpreter is the single execution context holding what would otherwise
// be global mutable state: call stack, deadline, iteration budget, output
// sink, and file-handle table all live here instead of as package-level
// state.
type Interpreter struct {
	Global *value.Environment
	Out    io.Writer

	ctx           context.Context
	cancel        context.CancelFunc
	maxIterations int64
	iterCount     int64

	// stackMu guards callStack and faultFrames: concurrent async action
	// calls each run callAction from their own goroutine.
	stackMu     sync.Mutex
	callStack   []*value.CallFrame
	faultFrames []*value.CallFrame // snapshotted call chain for the fault Run returned, deepest last

	handles   map[string]*value.Handle
	handlesMu sync.Mutex

	log *slog.Logger
}

// Config is the subset of wflcfg.Config the interpreter needs to run.
type Config struct {
	TimeoutSeconds   uint64
	MaxLoopIterations uint64
}

// New creates an Interpreter with a fresh global environment and a
// deadline derived from cfg.TimeoutSeconds.
func New(cfg Config) *Interpreter {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.TimeoutSeconds)*time.Second)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if os.Getenv("WFL_DEBUG_INTERP") != "" {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return &Interpreter{
		Global:        value.NewGlobalEnvironment(),
		Out:           os.Stdout,
		ctx:           ctx,
		cancel:        cancel,
		maxIterations: int64(cfg.MaxLoopIterations),
		handles:       make(map[string]*value.Handle),
		log:           logger,
	}
}

// Close releases the interpreter's deadline timer.
func (in *Interpreter) Close() { in.cancel() }

// FaultFrames returns the call chain captured when Run's returned error
// propagated out of the deepest failing action, deepest call last. Empty if
// the fault happened at top level or Run succeeded.
func (in *Interpreter) FaultFrames() []*value.CallFrame { return in.faultFrames }

// wflError carries a structured Diagnostic through Go's normal error
// propagation, the way package wflerr's Error wraps a category + cause;
// the interpreter's own runtime faults use diagnostic codes directly since
// they need a Span, which wflerr.Error has no room for.
type wflError struct {
	diag *diagnostic.Diagnostic
}

func (e *wflError) Error() string { return e.diag.Error() }

func runtimeErr(code diagnostic.Code, msg string, sp source.Span) error {
	return &wflError{diag: diagnostic.New(code, msg, diagnostic.Label{Span: sp, Message: msg})}
}

// AsDiagnostic extracts the Diagnostic from an interpreter error, if any.
func AsDiagnostic(err error) (*diagnostic.Diagnostic, bool) {
	if we, ok := err.(*wflError); ok {
		return we.diag, true
	}
	return nil, false
}

// control is a non-error sentinel used to unwind loop-control/return
// statements out of the recursive statement walk without allocating a
// Diagnostic for what isn't a fault.
type control struct {
	kind ast.LoopControlKind
	isReturn bool
	retVal   *value.Value
}

func (c *control) Error() string { return "control flow (internal, never surfaced)" }

// Run executes every top-level statement of prog against the interpreter's
// global environment.
func (in *Interpreter) Run(prog *ast.Program) error {
	_, err := in.execBlock(prog.Statements, in.Global)
	if err != nil {
		if _, isCtl := err.(*control); isCtl {
			return nil // a stray top-level `give back`/`break` ends the script
		}
		return err
	}
	return nil
}

// checkSuspend is called at every cooperative suspension point (loop
// iteration boundary, I/O, await) to enforce the wall-clock deadline.
func (in *Interpreter) checkSuspend(sp source.Span) error {
	select {
	case <-in.ctx.Done():
		return runtimeErr(diagnostic.E4003Timeout, "execution exceeded the configured time budget", sp)
	default:
		return nil
	}
}

func (in *Interpreter) tickIteration(sp source.Span) error {
	n := atomic.AddInt64(&in.iterCount, 1)
	if in.maxIterations > 0 && n > in.maxIterations {
		return runtimeErr(diagnostic.E4006LoopLimitExceeded, "loop exceeded the maximum iteration budget", sp)
	}
	return in.checkSuspend(sp)
}

// ------------------------------------------------------------- statements

// execBlock runs stmts in env, returning the first non-nil error (including
// *control sentinels the caller is responsible for interpreting).
func (in *Interpreter) execBlock(stmts []ast.Statement, env *value.Environment) (*value.Value, error) {
	for _, s := range stmts {
		v, err := in.execStmt(s, env)
		if err != nil {
			return v, err
		}
	}
	return value.Nothing, nil
}

func (in *Interpreter) execStmt(s ast.Statement, env *value.Environment) (*value.Value, error) {
	switch n := s.(type) {
	case *ast.VariableDecl:
		v, err := in.eval(n.Value, env)
		if err != nil {
			return nil, err
		}
		if n.Kind == ast.DeclChange {
			if !env.Set(n.Name, v) {
				env.Define(n.Name, v)
			}
		} else {
			env.Define(n.Name, v)
		}
		return value.Nothing, nil

	case *ast.RecordDecl:
		fields := make(map[string]*value.Value, len(n.Fields))
		for _, f := range n.Fields {
			fv, err := in.eval(f.Value, env)
			if err != nil {
				return nil, err
			}
			fields[f.Name] = fv
		}
		env.Define(n.Name, value.NewRecord(fields))
		return value.Nothing, nil

	case *ast.DisplayStmt:
		v, err := in.eval(n.Value, env)
		if err != nil {
			return nil, err
		}
		fmt.Fprintln(in.Out, displayString(v))
		return value.Nothing, nil

	case *ast.CheckStmt:
		cond, err := in.eval(n.Condition, env)
		if err != nil {
			return nil, err
		}
		if cond.Truthy() {
			return in.execBlock(n.Then, value.NewChildEnvironment(env))
		} else if n.Otherwise != nil {
			return in.execBlock(n.Otherwise, value.NewChildEnvironment(env))
		}
		return value.Nothing, nil

	case *ast.CountLoop:
		return in.execCount(n, env)

	case *ast.ForEachLoop:
		return in.execForEach(n, env)

	case *ast.RepeatLoop:
		return in.execRepeat(n, env)

	case *ast.LoopControlStmt:
		return nil, &control{kind: n.Kind}

	case *ast.ActionDecl:
		env.Define(n.Name, &value.Value{Kind: value.KindAction, Action: &value.ActionValue{
			Name: n.Name, Params: n.Params, ReturnType: n.ReturnType, Async: n.Async,
			Body: n.Body, DefiningEnv: env,
		}})
		return value.Nothing, nil

	case *ast.ReturnStmt:
		var rv *value.Value = value.Nothing
		if n.Value != nil {
			v, err := in.eval(n.Value, env)
			if err != nil {
				return nil, err
			}
			rv = v
		}
		return nil, &control{isReturn: true, retVal: rv}

	case *ast.ExprStmt:
		v, err := in.eval(n.Value, env)
		return v, err

	case *ast.OpenStmt:
		return value.Nothing, in.execOpen(n, env)

	case *ast.CloseStmt:
		return value.Nothing, in.closeHandle(n.Handle, n.Span())

	case *ast.WriteStmt:
		v, err := in.eval(n.Value, env)
		if err != nil {
			return nil, err
		}
		return value.Nothing, in.writeHandle(n.Handle, v.TextValue(), n.Span())

	case *ast.TryStmt:
		return in.execTry(n, env)

	case *ast.WaitForStmt:
		return in.execWaitFor(n, env)

	default:
		invariant.Invariant(false, "unhandled statement type %T", s)
		return value.Nothing, nil
	}
}

func displayString(v *value.Value) string {
	if v.Kind == value.KindText {
		return v.Text
	}
	return v.String()
}

// ------------------------------------------------------------------ loops

func (in *Interpreter) execCount(n *ast.CountLoop, env *value.Environment) (*value.Value, error) {
	fromV, err := in.eval(n.From, env)
	if err != nil {
		return nil, err
	}
	toV, err := in.eval(n.To, env)
	if err != nil {
		return nil, err
	}
	step := 1.0
	if n.Step != nil {
		sv, err := in.eval(n.Step, env)
		if err != nil {
			return nil, err
		}
		step = sv.Number
	}
	if n.Down {
		step = -step
	}

	for cur := fromV.Number; (step > 0 && cur <= toV.Number) || (step < 0 && cur >= toV.Number); cur += step {
		if err := in.tickIteration(n.Span()); err != nil {
			return nil, err
		}
		body := value.NewChildEnvironment(env)
		body.Define(n.Var, value.NumberVal(cur))
		_, err := in.execBlock(n.Body, body)
		if stop, retErr := handleLoopControl(err); stop {
			return nil, retErr
		} else if err != nil && retErr == nil {
			// skip/continue: fall through to next iteration
		}
	}
	return value.Nothing, nil
}

func (in *Interpreter) execForEach(n *ast.ForEachLoop, env *value.Environment) (*value.Value, error) {
	collV, err := in.eval(n.Coll, env)
	if err != nil {
		return nil, err
	}
	items := collV.List
	if n.Reversed {
		rev := make([]*value.Value, len(items))
		for i, it := range items {
			rev[len(items)-1-i] = it
		}
		items = rev
	}
	for _, item := range items {
		if err := in.tickIteration(n.Span()); err != nil {
			return nil, err
		}
		body := value.NewChildEnvironment(env)
		body.Define(n.Var, item)
		_, err := in.execBlock(n.Body, body)
		if stop, retErr := handleLoopControl(err); stop {
			return nil, retErr
		}
	}
	return value.Nothing, nil
}

func (in *Interpreter) execRepeat(n *ast.RepeatLoop, env *value.Environment) (*value.Value, error) {
	for {
		if n.Condition != nil {
			cond, err := in.eval(n.Condition, env)
			if err != nil {
				return nil, err
			}
			if n.Kind == ast.RepeatWhile && !cond.Truthy() {
				break
			}
			if n.Kind == ast.RepeatUntil && cond.Truthy() {
				break
			}
		}
		if err := in.tickIteration(n.Span()); err != nil {
			return nil, err
		}
		body := value.NewChildEnvironment(env)
		_, err := in.execBlock(n.Body, body)
		if stop, retErr := handleLoopControl(err); stop {
			return nil, retErr
		}
	}
	return value.Nothing, nil
}

// handleLoopControl interprets the error returned from one loop-body
// execution: (true, err) means "stop running this loop and propagate err"
// (nil for `break`, a break control for `exit loop` so the enclosing loop
// stops too, the return control itself for `give back`); (false, nil)
// means "this was `skip`, proceed to the next iteration".
func handleLoopControl(err error) (stop bool, propagate error) {
	if err == nil {
		return false, nil
	}
	ctl, ok := err.(*control)
	if !ok {
		return true, err // a genuine runtime fault: stop and propagate
	}
	if ctl.isReturn {
		return true, ctl
	}
	switch ctl.kind {
	case ast.CtrlBreak:
		return true, nil
	case ast.CtrlSkip:
		return false, nil
	case ast.CtrlExitLoop:
		// Exits one level up: this loop also stops, but re-raises the
		// control so the *enclosing* loop's handleLoopControl sees it and
		// itself stops (without re-raising further).
		return true, &control{kind: ast.CtrlBreak}
	default:
		return true, ctl
	}
}

// ----------------------------------------------------------------- try

// execTry runs n's protected body, dispatching a fault to the first matching
// when (or otherwise, if none match) the way execBlock's other branches do.
// A `retry` inside a when/otherwise branch re-runs the protected body from
// the top, so the whole thing loops rather than recursing.
func (in *Interpreter) execTry(n *ast.TryStmt, env *value.Environment) (*value.Value, error) {
	for {
		if err := in.tickIteration(n.Span()); err != nil {
			return nil, err
		}

		tryEnv := value.NewChildEnvironment(env)
		v, err := in.execBlock(n.Body, tryEnv)
		if err == nil {
			return v, nil
		}
		if _, isCtl := err.(*control); isCtl {
			return v, err
		}

		diag, _ := AsDiagnostic(err)
		kind := ""
		if diag != nil {
			kind = string(diag.Code)
		}

		handled := false
		var hv *value.Value
		var herr error
		for _, w := range n.Whens {
			if w.ErrKind == "" || matchesErrKind(w.ErrKind, kind) {
				whenEnv := value.NewChildEnvironment(env)
				hv, herr = in.execBlock(w.Body, whenEnv)
				handled = true
				break
			}
		}
		if !handled && n.Otherwise != nil {
			otherEnv := value.NewChildEnvironment(env)
			hv, herr = in.execBlock(n.Otherwise, otherEnv)
			handled = true
		}
		if !handled {
			return nil, err
		}
		if ctl, isCtl := herr.(*control); isCtl && ctl.kind == ast.CtrlRetry {
			continue
		}
		return hv, herr
	}
}

func matchesErrKind(clause, code string) bool {
	kinds := map[string]string{
		"DivByZero": string(diagnostic.E4001DivisionByZero),
		"IndexOOB": string(diagnostic.E4002IndexOutOfBounds),
		"Timeout": string(diagnostic.E4003Timeout),
		"FileNotFound": string(diagnostic.E4004FileNotFound),
		"NetworkError": string(diagnostic.E4005NetworkError),
		"LoopLimitExceeded": string(diagnostic.E4006LoopLimitExceeded),
		"PatternError": string(diagnostic.E4007UncaughtPatternError),
		"HandleInUse": string(diagnostic.E4008HandleInUse),
		"MalformedPayload": string(diagnostic.E4009MalformedPayload),
	}
	return kinds[clause] == code
}
