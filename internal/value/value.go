// Package value defines WFL's runtime value representation: Number/Text/
// Boolean/Nothing/List/Map/Record/Action/Pattern/Task values, plus the
// Environment and CallFrame machinery the interpreter threads through
// evaluation. Environment.parent is a weak.Pointer (Go 1.24's weak package)
// rather than a strong *Environment, mirroring a reference-counted
// weak-parent design intended to keep closures from holding their whole
// enclosing scope chain alive forever; ActionValue.DefiningEnv is the one
// strong link that keeps a closure's captured scope reachable.
// Kind enum + String() follows the same iota-plus-stringer style used for
// lexer.TokenType elsewhere in this module.
package value

import (
	"fmt"
	"strconv"
	"strings"
	"weak"

	"github.com/logbie/wfl-sub001/internal/ast"
	"github.com/logbie/wfl-sub001/internal/invariant"
	"github.com/logbie/wfl-sub001/internal/source"
)

// Kind tags a Value's runtime type.
type Kind int

const (
	KindNumber Kind = iota
	KindText
	KindBoolean
	KindNothing
	KindList
	KindMap
	KindRecord
	KindAction
	KindPattern
	KindTask
	KindHandle
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "Number"
	case KindText:
		return "Text"
	case KindBoolean:
		return "Boolean"
	case KindNothing:
		return "Nothing"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	case KindRecord:
		return "Record"
	case KindAction:
		return "Action"
	case KindPattern:
		return "Pattern"
	case KindTask:
		return "Task"
	case KindHandle:
		return "Handle"
	default:
		return "Unknown"
	}
}

// Value is any WFL runtime value. Lists/Maps/Records/Actions/Tasks are
// reference types in the sense that copying a Value copies the pointer, not
// the backing data - aliasing is intentional ("shared ownership" semantics),
// and Go's tracing GC reclaims them (and any reference cycles among them)
// without needing the weak-parent trick that a reference-counted runtime
// would require for Environment links specifically.
type Value struct {
	Kind Kind

	Number float64
	Text   string
	Bool   bool

	List    []*Value
	MapKeys []string // insertion order
	Map     map[string]*Value
	Record  map[string]*Value

	Action  *ActionValue
	Task    *TaskValue
	Pattern *CompiledPattern
	Handle  *Handle
}

// CompiledPattern is an opaque forward declaration satisfied by package
// pattern's compiler; kept here (rather than imported) to avoid a value<->
// pattern import cycle, since pattern literals are compiled lazily by the
// interpreter calling into package pattern.
type CompiledPattern struct {
	Phrase   string
	Compiled any
}

// Handle is an open file/url/database resource bound to a WFL name.
type Handle struct {
	Kind   string // "file", "url", "database"
	Name   string
	InUse  bool
	Closer func() error
	Reader any
	Writer any
	Extra  map[string]any
}

var (
	Nothing = &Value{Kind: KindNothing}
	True    = &Value{Kind: KindBoolean, Bool: true}
	False   = &Value{Kind: KindBoolean, Bool: false}
)

func NumberVal(n float64) *Value { return &Value{Kind: KindNumber, Number: n} }
func TextVal(s string) *Value    { return &Value{Kind: KindText, Text: s} }
func BoolVal(b bool) *Value {
	if b {
		return True
	}
	return False
}

func NewList(elems []*Value) *Value { return &Value{Kind: KindList, List: elems} }

func NewMap() *Value {
	return &Value{Kind: KindMap, Map: make(map[string]*Value)}
}

func (v *Value) MapSet(key string, val *Value) {
	invariant.Precondition(v.Kind == KindMap, "MapSet on non-Map value")
	if _, exists := v.Map[key]; !exists {
		v.MapKeys = append(v.MapKeys, key)
	}
	v.Map[key] = val
}

func NewRecord(fields map[string]*Value) *Value {
	return &Value{Kind: KindRecord, Record: fields}
}

// Truthy reports whether v is usable where a Boolean is required. Only
// Boolean values are truthy in WFL - there is no implicit Number/Text/List
// truthiness; `and`/`or` require both operands to already be Boolean.
func (v *Value) Truthy() bool {
	return v.Kind == KindBoolean && v.Bool
}

// String renders v using the canonical value printer used for debug
// reports: Text in quotes, Lists as `[a, b, c]`, Maps as `{k: v, ...}`,
// Nothing as `nothing`.
func (v *Value) String() string {
	if v == nil {
		return "nothing"
	}
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case KindText:
		return strconv.Quote(v.Text)
	case KindBoolean:
		if v.Bool {
			return "yes"
		}
		return "no"
	case KindNothing:
		return "nothing"
	case KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		parts := make([]string, 0, len(v.MapKeys))
		for _, k := range v.MapKeys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, v.Map[k].String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindRecord:
		parts := make([]string, 0, len(v.Record))
		for k, fv := range v.Record {
			parts = append(parts, fmt.Sprintf("%s: %s", k, fv.String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindAction:
		return fmt.Sprintf("<action %s>", v.Action.Name)
	case KindPattern:
		return fmt.Sprintf("pattern %q", v.Pattern.Phrase)
	case KindTask:
		return "<task>"
	case KindHandle:
		return fmt.Sprintf("<handle %s>", v.Handle.Name)
	default:
		return "<unknown>"
	}
}

// TextValue converts v's Number/Text to Text for `convert ... to Text`; it
// never implicitly applies - only package interp's explicit ConvertExpr
// evaluation calls this.
func (v *Value) TextValue() string {
	if v.Kind == KindText {
		return v.Text
	}
	return v.String()
}

// ------------------------------------------------------------- ActionValue

// ActionValue is a closure: an action's parameter list, body, and a strong
// reference to the environment it was defined in.
type ActionValue struct {
	Name        string
	Params      []ast.Param
	ReturnType  string
	Async       bool
	Body        []ast.Statement
	DefiningEnv *Environment // strong: keeps the closed-over scope alive
}

// TaskValue is the handle returned by an async action call, awaited with
// `wait for`/`await`. result and err are set exactly once, guarded by the
// close of done.
type TaskValue struct {
	done   chan struct{}
	result *Value
	err    error
}

func NewTask() *TaskValue {
	return &TaskValue{done: make(chan struct{})}
}

// Resolve completes the task exactly once; later calls are no-ops, matching
// the single-assignment future semantics `wait for` relies on.
func (t *TaskValue) Resolve(v *Value, err error) {
	select {
	case <-t.done:
		return
	default:
	}
	t.result = v
	t.err = err
	close(t.done)
}

func (t *TaskValue) Wait() (*Value, error) {
	<-t.done
	return t.result, t.err
}

func (t *TaskValue) Done() <-chan struct{} { return t.done }

// ------------------------------------------------------------- Environment

// Environment is one lexical scope. parent is a weak reference: an
// Environment never keeps its enclosing scope alive by itself. What does
// keep a chain of enclosing scopes alive is whatever (a CallFrame, an
// ActionValue) holds a strong *Environment into it.
type Environment struct {
	values map[string]*Value
	parent weak.Pointer[Environment]
}

// NewGlobalEnvironment creates the root environment, with no parent.
func NewGlobalEnvironment() *Environment {
	return &Environment{values: make(map[string]*Value)}
}

// NewChildEnvironment creates a scope whose parent is a weak reference to
// parent. The caller is responsible for keeping parent alive for as long as
// lookups through the child need to succeed (normally: the call frame or
// the ActionValue that owns parent).
func NewChildEnvironment(parent *Environment) *Environment {
	invariant.NotNil(parent, "parent")
	return &Environment{values: make(map[string]*Value), parent: weak.Make(parent)}
}

// Define binds name to v in this environment, shadowing any outer binding.
func (e *Environment) Define(name string, v *Value) {
	e.values[name] = v
}

// Get walks the parent chain (via weak.Pointer.Value) for name.
func (e *Environment) Get(name string) (*Value, bool) {
	for cur := e; cur != nil; {
		if v, ok := cur.values[name]; ok {
			return v, true
		}
		cur = cur.parent.Value()
	}
	return nil, false
}

// Set updates an existing binding for name wherever in the chain it lives
// (used by `change`), returning false if no such binding exists.
func (e *Environment) Set(name string, v *Value) bool {
	for cur := e; cur != nil; {
		if _, ok := cur.values[name]; ok {
			cur.values[name] = v
			return true
		}
		cur = cur.parent.Value()
	}
	return false
}

// ------------------------------------------------------------- CallFrame

// CallFrame records one in-flight action call for stack traces and debug
// reports. On error, the interpreter snapshots the local environment's
// values into Locals and propagates the error without popping the frame,
// so a debug report can show the state that produced the fault.
type CallFrame struct {
	ActionName string
	CallSite   ast.Node
	BodySpan   source.Span // covers the called action's body, for debug reports
	Env        *Environment
	Locals     map[string]*Value // populated only once an error snapshots it
}

func (f *CallFrame) Snapshot() {
	if f.Locals != nil {
		return
	}
	f.Locals = make(map[string]*Value, len(f.Env.values))
	for k, v := range f.Env.values {
		f.Locals[k] = v
	}
}
