// Handle management: open/close/read/write over files, URLs, and databases.
// File and URL handles wrap os.File and net/http.Client behind a small
// handle table; no database driver ships in this module's dependency set,
// so database handles surface a clear E4005NetworkError rather than
// silently no-opping (see DESIGN.md).
package interp

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/logbie/wfl-sub001/internal/ast"
	"github.com/logbie/wfl-sub001/internal/diagnostic"
	"github.com/logbie/wfl-sub001/internal/source"
	"github.com/logbie/wfl-sub001/internal/value"
)

// responseSchema is the shape `read response from` requires before a decoded
// payload is lifted into a WFL Record/List: a JSON object or array, never a
// bare scalar. Malformed or unexpectedly-shaped bodies become a catalogued
// E4009MalformedPayload fault instead of a panic deeper in jsonToValue.
var responseSchema = compileResponseSchema()

func compileResponseSchema() *jsonschema.Schema {
	const doc = `{"type": ["object", "array"]}`
	c := jsonschema.NewCompiler()
	if err := c.AddResource("response.json", strings.NewReader(doc)); err != nil {
		panic(err)
	}
	s, err := c.Compile("response.json")
	if err != nil {
		panic(err)
	}
	return s
}

func (in *Interpreter) execOpen(n *ast.OpenStmt, env *value.Environment) error {
	in.handlesMu.Lock()
	existing, ok := in.handles[n.Handle]
	in.handlesMu.Unlock()
	if ok && existing.InUse {
		return runtimeErr(diagnostic.E4008HandleInUse, fmt.Sprintf("handle `%s` is already open", n.Handle), n.Span())
	}

	targetV, err := in.eval(n.Target, env)
	if err != nil {
		return err
	}
	target := targetV.TextValue()

	var h *value.Handle
	switch n.Kind {
	case ast.OpenFile:
		h, err = in.openFile(target, n.Mode, n.Span())
	case ast.OpenURL:
		h, err = in.openURL(n, target, env)
	case ast.OpenDatabase:
		h, err = in.openDatabase(target, n.Span())
	default:
		return runtimeErr(diagnostic.E3001Mismatch, fmt.Sprintf("unknown open kind %q", n.Kind), n.Span())
	}
	if err != nil {
		return err
	}
	h.Name = n.Handle
	h.InUse = true
	in.handlesMu.Lock()
	in.handles[n.Handle] = h
	in.handlesMu.Unlock()
	return nil
}

func (in *Interpreter) openFile(path string, mode ast.FileMode, sp source.Span) (*value.Handle, error) {
	var f *os.File
	var err error
	switch mode {
	case ast.ModeWriting:
		f, err = os.Create(path)
	case ast.ModeAppending:
		f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	default:
		f, err = os.Open(path)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, runtimeErr(diagnostic.E4004FileNotFound, fmt.Sprintf("file not found: %s", path), sp)
		}
		return nil, runtimeErr(diagnostic.E4004FileNotFound, err.Error(), sp)
	}
	h := &value.Handle{Kind: "file", Closer: f.Close}
	if mode == ast.ModeWriting || mode == ast.ModeAppending {
		h.Writer = f
	} else {
		h.Reader = bufio.NewReader(f)
	}
	h.Extra = map[string]any{"file": f}
	return h, nil
}

func (in *Interpreter) openURL(n *ast.OpenStmt, target string, env *value.Environment) (*value.Handle, error) {
	method := "GET"
	if n.Method != nil {
		mv, err := in.eval(n.Method, env)
		if err != nil {
			return nil, err
		}
		method = strings.ToUpper(mv.TextValue())
	}
	var body io.Reader
	if n.ReqBody != nil {
		bv, err := in.eval(n.ReqBody, env)
		if err != nil {
			return nil, err
		}
		body = strings.NewReader(bv.TextValue())
	}
	req, err := http.NewRequestWithContext(in.ctx, method, target, body)
	if err != nil {
		return nil, runtimeErr(diagnostic.E4005NetworkError, err.Error(), n.Span())
	}
	if n.Headers != nil {
		hv, err := in.eval(n.Headers, env)
		if err != nil {
			return nil, err
		}
		if hv.Kind == value.KindMap {
			for _, k := range hv.MapKeys {
				req.Header.Set(k, hv.Map[k].TextValue())
			}
		}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, runtimeErr(diagnostic.E4005NetworkError, err.Error(), n.Span())
	}
	h := &value.Handle{Kind: "url", Reader: bufio.NewReader(resp.Body), Closer: resp.Body.Close,
		Extra: map[string]any{"response": resp}}
	return h, nil
}

func (in *Interpreter) openDatabase(dsn string, sp source.Span) (*value.Handle, error) {
	driver := "postgres"
	if idx := strings.Index(dsn, "://"); idx > 0 {
		driver = dsn[:idx]
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, runtimeErr(diagnostic.E4005NetworkError,
			fmt.Sprintf("no database driver registered for %q: %v", driver, err), sp)
	}
	if err := db.PingContext(in.ctx); err != nil {
		return nil, runtimeErr(diagnostic.E4005NetworkError, err.Error(), sp)
	}
	return &value.Handle{Kind: "database", Closer: db.Close, Extra: map[string]any{"db": db}}, nil
}

func (in *Interpreter) closeHandle(name string, sp source.Span) error {
	in.handlesMu.Lock()
	h, ok := in.handles[name]
	if ok {
		delete(in.handles, name)
	}
	in.handlesMu.Unlock()
	if !ok {
		return runtimeErr(diagnostic.E2001Undefined, fmt.Sprintf("no open handle named `%s`", name), sp)
	}
	h.InUse = false
	if h.Closer != nil {
		return h.Closer()
	}
	return nil
}

func (in *Interpreter) writeHandle(name, text string, sp source.Span) error {
	in.handlesMu.Lock()
	h, ok := in.handles[name]
	in.handlesMu.Unlock()
	if !ok {
		return runtimeErr(diagnostic.E2001Undefined, fmt.Sprintf("no open handle named `%s`", name), sp)
	}
	w, ok := h.Writer.(io.Writer)
	if !ok {
		return runtimeErr(diagnostic.E4004FileNotFound, fmt.Sprintf("handle `%s` is not open for writing", name), sp)
	}
	_, err := io.WriteString(w, text)
	if err != nil {
		return runtimeErr(diagnostic.E4004FileNotFound, err.Error(), sp)
	}
	return nil
}

func (in *Interpreter) readHandle(n *ast.ReadExpr) (*value.Value, error) {
	in.handlesMu.Lock()
	h, ok := in.handles[n.Handle]
	in.handlesMu.Unlock()
	if !ok {
		return nil, runtimeErr(diagnostic.E2001Undefined, fmt.Sprintf("no open handle named `%s`", n.Handle), n.Span())
	}
	r, ok := h.Reader.(*bufio.Reader)
	if !ok {
		return nil, runtimeErr(diagnostic.E4004FileNotFound, fmt.Sprintf("handle `%s` is not open for reading", n.Handle), n.Span())
	}

	switch n.Kind {
	case ast.ReadLine:
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, runtimeErr(diagnostic.E4004FileNotFound, err.Error(), n.Span())
		}
		return value.TextVal(strings.TrimRight(line, "\r\n")), nil

	case ast.ReadContent:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, runtimeErr(diagnostic.E4004FileNotFound, err.Error(), n.Span())
		}
		return value.TextVal(string(data)), nil

	case ast.ReadResponse:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, runtimeErr(diagnostic.E4004FileNotFound, err.Error(), n.Span())
		}
		return decodeJSONResponse(data, n.Span())
	}
	return value.Nothing, nil
}

// decodeJSONResponse validates data against responseSchema and lifts it into
// a Record (JSON object) or List (JSON array) Value, turning a malformed or
// wrongly-shaped external payload into E4009MalformedPayload rather than a
// decode panic further down the line.
func decodeJSONResponse(data []byte, sp source.Span) (*value.Value, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, runtimeErr(diagnostic.E4009MalformedPayload, fmt.Sprintf("response body is not valid JSON: %v", err), sp)
	}
	if err := responseSchema.Validate(doc); err != nil {
		return nil, runtimeErr(diagnostic.E4009MalformedPayload, fmt.Sprintf("response body does not match the expected shape: %v", err), sp)
	}
	return jsonToValue(doc), nil
}

func jsonToValue(doc any) *value.Value {
	switch x := doc.(type) {
	case nil:
		return value.Nothing
	case bool:
		return value.BoolVal(x)
	case float64:
		return value.NumberVal(x)
	case string:
		return value.TextVal(x)
	case []any:
		elems := make([]*value.Value, len(x))
		for i, e := range x {
			elems[i] = jsonToValue(e)
		}
		return value.NewList(elems)
	case map[string]any:
		fields := make(map[string]*value.Value, len(x))
		for k, v := range x {
			fields[k] = jsonToValue(v)
		}
		return value.NewRecord(fields)
	default:
		return value.Nothing
	}
}

func (in *Interpreter) execQuery(n *ast.QueryExpr, env *value.Environment) (*value.Value, error) {
	in.handlesMu.Lock()
	h, ok := in.handles[n.Handle]
	in.handlesMu.Unlock()
	if !ok {
		return nil, runtimeErr(diagnostic.E2001Undefined, fmt.Sprintf("no open handle named `%s`", n.Handle), n.Span())
	}
	db, ok := h.Extra["db"].(*sql.DB)
	if !ok {
		return nil, runtimeErr(diagnostic.E4005NetworkError, fmt.Sprintf("handle `%s` is not a database handle", n.Handle), n.Span())
	}
	sqlV, err := in.eval(n.SQL, env)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(in.ctx, sqlV.TextValue())
	if err != nil {
		return nil, runtimeErr(diagnostic.E4005NetworkError, err.Error(), n.Span())
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, runtimeErr(diagnostic.E4005NetworkError, err.Error(), n.Span())
	}

	var results []*value.Value
	for rows.Next() {
		ptrs := make([]any, len(cols))
		vals := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, runtimeErr(diagnostic.E4005NetworkError, err.Error(), n.Span())
		}
		rec := make(map[string]*value.Value, len(cols))
		for i, c := range cols {
			rec[c] = scanValue(vals[i])
		}
		results = append(results, value.NewRecord(rec))
	}
	return value.NewList(results), nil
}

func scanValue(v any) *value.Value {
	switch x := v.(type) {
	case nil:
		return value.Nothing
	case []byte:
		return value.TextVal(string(x))
	case string:
		return value.TextVal(x)
	case int64:
		return value.NumberVal(float64(x))
	case float64:
		return value.NumberVal(x)
	case bool:
		return value.BoolVal(x)
	default:
		return value.TextVal(fmt.Sprintf("%v", x))
	}
}
