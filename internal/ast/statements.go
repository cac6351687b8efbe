package ast

import (
	"fmt"
	"strings"
)

// DeclKind distinguishes store/create/change, which share a shape (name +
// value expression) but differ in semantics: store/create introduce a
// binding, change requires one to already exist.
type DeclKind string

const (
	DeclStore  DeclKind = "store"
	DeclCreate DeclKind = "create"
	DeclChange DeclKind = "change"
)

// VariableDecl is `store/create/change <name> as/to <expr>`, optionally
// `shared` (module-level scope).
type VariableDecl struct {
	Base
	Kind   DeclKind
	Name   string
	Value  Expression
	Shared bool
}

func (v *VariableDecl) statementNode() {}
func (v *VariableDecl) String() string {
	verb := "as"
	if v.Kind == DeclChange {
		verb = "to"
	}
	prefix := ""
	if v.Shared {
		prefix = "shared "
	}
	return fmt.Sprintf("%s%s %s %s %s", prefix, v.Kind, v.Name, verb, v.Value.String())
}

// RecordDecl is the `create <name> as record: field is expr ... end record`
// literal.
type RecordDecl struct {
	Base
	Name   string
	Fields []RecordField
}

type RecordField struct {
	Name  string
	Value Expression
}

func (r *RecordDecl) statementNode() {}
func (r *RecordDecl) String() string {
	var parts []string
	for _, f := range r.Fields {
		parts = append(parts, fmt.Sprintf("%s is %s", f.Name, f.Value.String()))
	}
	return fmt.Sprintf("create %s as record:\n  %s\nend record", r.Name, strings.Join(parts, "\n  "))
}

// DisplayStmt is `display <expr>`.
type DisplayStmt struct {
	Base
	Value Expression
}

func (d *DisplayStmt) statementNode() {}
func (d *DisplayStmt) String() string { return "display " + d.Value.String() }

// CheckStmt is `check if <cond>:` ... [`otherwise:` ...] `end check`.
type CheckStmt struct {
	Base
	Condition Expression
	Then      []Statement
	Otherwise []Statement // nil if no otherwise branch
}

func (c *CheckStmt) statementNode() {}
func (c *CheckStmt) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "check if %s:\n", c.Condition.String())
	for _, s := range c.Then {
		fmt.Fprintf(&b, "  %s\n", s.String())
	}
	if c.Otherwise != nil {
		b.WriteString("otherwise:\n")
		for _, s := range c.Otherwise {
			fmt.Fprintf(&b, "  %s\n", s.String())
		}
	}
	b.WriteString("end check")
	return b.String()
}

// CountLoop is `count from A to B [by S]` / `count from A down to B`.
type CountLoop struct {
	Base
	Var     string // loop variable name, defaults to "count"
	From    Expression
	To      Expression
	Step    Expression // nil => 1
	Down    bool
	Body    []Statement
}

func (c *CountLoop) statementNode() {}
func (c *CountLoop) String() string {
	dir := "to"
	if c.Down {
		dir = "down to"
	}
	return fmt.Sprintf("count from %s %s %s:\n...\nend count", c.From.String(), dir, c.To.String())
}

// ForEachLoop is `for each X in Coll [reversed]`.
type ForEachLoop struct {
	Base
	Var      string
	Coll     Expression
	Reversed bool
	Body     []Statement
}

func (f *ForEachLoop) statementNode() {}
func (f *ForEachLoop) String() string {
	suffix := ""
	if f.Reversed {
		suffix = " reversed"
	}
	return fmt.Sprintf("for each %s in %s%s:\n...\nend for", f.Var, f.Coll.String(), suffix)
}

// RepeatKind distinguishes the three `repeat` forms.
type RepeatKind string

const (
	RepeatWhile   RepeatKind = "while"
	RepeatUntil   RepeatKind = "until"
	RepeatForever RepeatKind = "forever"
)

// RepeatLoop is `repeat while/until <cond>` or `repeat forever`.
type RepeatLoop struct {
	Base
	Kind      RepeatKind
	Condition Expression // nil when Kind == RepeatForever
	Body      []Statement
}

func (r *RepeatLoop) statementNode() {}
func (r *RepeatLoop) String() string {
	if r.Kind == RepeatForever {
		return "repeat forever:\n...\nend repeat"
	}
	return fmt.Sprintf("repeat %s %s:\n...\nend repeat", r.Kind, r.Condition.String())
}

// LoopControlKind is break/skip/continue/exit loop/retry.
type LoopControlKind string

const (
	CtrlBreak    LoopControlKind = "break"
	CtrlSkip     LoopControlKind = "skip"
	CtrlExitLoop LoopControlKind = "exit loop"
	// CtrlRetry is only meaningful inside a try statement's when/otherwise
	// branch: it re-executes the try's protected body.
	CtrlRetry LoopControlKind = "retry"
)

type LoopControlStmt struct {
	Base
	Kind LoopControlKind
}

func (l *LoopControlStmt) statementNode() {}
func (l *LoopControlStmt) String() string { return string(l.Kind) }

// Param is one action parameter: `needs <name> as <type> [default <expr>]`.
type Param struct {
	Name    string
	Type    string
	Default Expression // nil if no default
}

// ActionDecl is `define [async] action <name> [needs ...] [give back <type>]:`
// ... `end action`.
type ActionDecl struct {
	Base
	Name       string
	Params     []Param
	ReturnType string // "" if no declared return type (inferred)
	Async      bool
	Body       []Statement
}

func (a *ActionDecl) statementNode() {}
func (a *ActionDecl) String() string {
	var parts []string
	for _, p := range a.Params {
		parts = append(parts, fmt.Sprintf("%s as %s", p.Name, p.Type))
	}
	prefix := ""
	if a.Async {
		prefix = "async "
	}
	return fmt.Sprintf("define %saction %s needs %s:\n...\nend action", prefix, a.Name, strings.Join(parts, " and "))
}

// ReturnStmt is `give back <expr>` / `return <expr>`.
type ReturnStmt struct {
	Base
	Value Expression // nil => returns nothing
}

func (r *ReturnStmt) statementNode() {}
func (r *ReturnStmt) String() string {
	if r.Value == nil {
		return "give back"
	}
	return "give back " + r.Value.String()
}

// ExprStmt wraps an expression used as a statement (a bare call).
type ExprStmt struct {
	Base
	Value Expression
}

func (e *ExprStmt) statementNode() {}
func (e *ExprStmt) String() string { return e.Value.String() }

// ------------------------------------------------------------------- I/O

type OpenKind string

const (
	OpenFile     OpenKind = "file"
	OpenURL      OpenKind = "url"
	OpenDatabase OpenKind = "database"
)

type FileMode string

const (
	ModeReading   FileMode = "reading"
	ModeWriting   FileMode = "writing"
	ModeAppending FileMode = "appending"
)

// OpenStmt is `open file/url/database at <expr> [for <mode>] [with ...] as <handle>`.
type OpenStmt struct {
	Base
	Kind    OpenKind
	Target  Expression
	Mode    FileMode // only meaningful for OpenFile
	Method  Expression
	ReqBody Expression
	Headers Expression
	Handle  string
}

func (o *OpenStmt) statementNode() {}
func (o *OpenStmt) String() string {
	return fmt.Sprintf("open %s at %s as %s", o.Kind, o.Target.String(), o.Handle)
}

// CloseStmt is `close <handle>`.
type CloseStmt struct {
	Base
	Handle string
}

func (c *CloseStmt) statementNode() {}
func (c *CloseStmt) String() string { return "close " + c.Handle }

// ReadKind distinguishes the read forms.
type ReadKind string

const (
	ReadContent  ReadKind = "content"
	ReadLine     ReadKind = "line"
	ReadResponse ReadKind = "response"
)

// ReadExpr is `read content/line from <h>` or `read response from <h>`.
type ReadExpr struct {
	Base
	Kind   ReadKind
	Handle string
}

func (r *ReadExpr) expressionNode() {}
func (r *ReadExpr) String() string { return fmt.Sprintf("read %s from %s", r.Kind, r.Handle) }

// WriteStmt is `write <expr> to <h>`.
type WriteStmt struct {
	Base
	Value  Expression
	Handle string
}

func (w *WriteStmt) statementNode() {}
func (w *WriteStmt) String() string { return fmt.Sprintf("write %s to %s", w.Value.String(), w.Handle) }

// QueryExpr is `perform query "<sql>" on <h>`.
type QueryExpr struct {
	Base
	SQL    Expression
	Handle string
}

func (q *QueryExpr) expressionNode() {}
func (q *QueryExpr) String() string {
	return fmt.Sprintf("perform query %s on %s", q.SQL.String(), q.Handle)
}

// --------------------------------------------------------------- try/when

// WhenClause is one `when <kind>:` arm of a try; ErrKind names the error
// kind it catches, or "" for a catch-all clause.
type WhenClause struct {
	ErrKind string // "" matches any error
	Body    []Statement
}

// TryStmt is `try: ... when <kind>: ... otherwise: ... end try`.
type TryStmt struct {
	Base
	Body      []Statement
	Whens     []WhenClause
	Otherwise []Statement
}

func (t *TryStmt) statementNode() {}
func (t *TryStmt) String() string { return "try:\n...\nend try" }

// ----------------------------------------------------------------- async

// WaitForStmt is `wait for <expr>` (await a single task handle) or the
// parallel form `wait for: <expr1> and <expr2> ... end wait`.
type WaitForStmt struct {
	Base
	Targets []Expression // len 1 for the single form
	Bind    []string     // optional `as <name>` bindings, same length as Targets or nil
}

func (w *WaitForStmt) statementNode() {}
func (w *WaitForStmt) String() string {
	if len(w.Targets) == 1 {
		return "wait for " + w.Targets[0].String()
	}
	var parts []string
	for _, t := range w.Targets {
		parts = append(parts, t.String())
	}
	return "wait for: " + strings.Join(parts, " and ") + " end wait"
}
