// Cooperative async: `wait for <expr>` awaits one task, `wait for: A and B
// ... end wait` awaits several concurrently. Every async action call
// (package eval.go's evalCall) already started its own goroutine and
// value.TaskValue before execWaitFor ever runs, so waiting here only blocks
// on the tasks' completion channels - a plain fan-out-then-join shape,
// built on goroutines + channels rather than an external job-queue
// library.
package interp

import (
	"github.com/logbie/wfl-sub001/internal/ast"
	"github.com/logbie/wfl-sub001/internal/diagnostic"
	"github.com/logbie/wfl-sub001/internal/source"
	"github.com/logbie/wfl-sub001/internal/value"
)

func (in *Interpreter) execWaitFor(n *ast.WaitForStmt, env *value.Environment) (*value.Value, error) {
	results := make([]*value.Value, len(n.Targets))
	for i, t := range n.Targets {
		v, err := in.eval(t, env)
		if err != nil {
			return nil, err
		}
		results[i] = v
	}

	for i, v := range results {
		resolved, err := in.awaitValue(v, n.Span())
		if err != nil {
			return nil, err
		}
		results[i] = resolved
		if i < len(n.Bind) && n.Bind[i] != "" {
			env.Define(n.Bind[i], resolved)
		}
	}

	if len(results) == 1 {
		return results[0], nil
	}
	return value.Nothing, nil
}

// awaitValue blocks until v (a Task) resolves, or until the interpreter's
// deadline expires, whichever comes first. Non-Task values pass through
// unchanged - `wait for` on an already-evaluated expression is a no-op.
func (in *Interpreter) awaitValue(v *value.Value, sp source.Span) (*value.Value, error) {
	if v.Kind != value.KindTask {
		return v, nil
	}
	select {
	case <-v.Task.Done():
		return v.Task.Wait()
	case <-in.ctx.Done():
		return nil, runtimeErr(diagnostic.E4003Timeout, "execution exceeded the configured time budget while awaiting a task", sp)
	}
}
