// Package parser builds a typed AST from the merged token stream: recursive
// descent with one-token lookahead, statements dispatched on a leading
// keyword, expressions via a Pratt-style precedence climb over
// word-operators. Structure (dispatch-on-keyword statement parsing,
// diagnostic-accumulating error recovery) follows the same shape as a
// hand-written recursive-descent command parser.
package parser

import (
	"strconv"

	"github.com/logbie/wfl-sub001/internal/ast"
	"github.com/logbie/wfl-sub001/internal/diagnostic"
	"github.com/logbie/wfl-sub001/internal/lexer"
	"github.com/logbie/wfl-sub001/internal/source"
)

// Parser holds parse state over one merged token stream.
type Parser struct {
	toks   []lexer.Token
	pos    int
	fileID int
	diags  []*diagnostic.Diagnostic
	blocks []blockOpen
}

// Parse builds a *ast.Program from a merged token stream. It never returns
// a nil Program, even when diags is non-empty, so callers can still inspect
// the partial AST error-recovery produced.
func Parse(toks []lexer.Token, fileID int) (*ast.Program, []*diagnostic.Diagnostic) {
	p := &Parser{toks: toks, fileID: fileID}
	prog := &ast.Program{}
	var stmts []ast.Statement
	start := p.current().Span

	for p.current().Type != lexer.EOF {
		s := p.parseStatement()
		if s != nil {
			stmts = append(stmts, s)
		}
	}

	prog.Statements = stmts
	end := p.current().Span
	prog.Sp = source.Join(start, end)
	return prog, p.diags
}

// ---------------------------------------------------------------- cursor

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peek(n int) lexer.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.toks[idx]
}

func (p *Parser) advance() lexer.Token {
	t := p.current()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) atKeyword(word string) bool {
	t := p.current()
	return t.Type == lexer.Keyword && t.Value == word
}

func (p *Parser) peekKeyword(n int, word string) bool {
	t := p.peek(n)
	return t.Type == lexer.Keyword && t.Value == word
}

// ------------------------------------------------------------ statements

func (p *Parser) parseStatement() ast.Statement {
	t := p.current()

	if t.Type != lexer.Keyword {
		// Not a recognized statement-start keyword: only a bare call/expr
		// statement is legal here.
		s := p.parseExprStatement()
		if s == nil {
			p.unexpected("a statement")
			p.recover()
		}
		return s
	}

	switch t.Value {
	case "shared":
		p.advance()
		if !p.atKeyword("store") && !p.atKeyword("create") {
			p.unexpected("`store` or `create`")
			p.recover()
			return nil
		}
		return p.parseVariableDecl(true)
	case "store", "create":
		return p.parseVariableDecl(false)
	case "change":
		return p.parseChangeDecl()
	case "display":
		return p.parseDisplay()
	case "check", "if":
		return p.parseCheck()
	case "count":
		return p.parseCount()
	case "for":
		return p.parseForEach()
	case "repeat":
		return p.parseRepeat()
	case "break":
		p.advance()
		return &ast.LoopControlStmt{Base: ast.Base{Sp: t.Span}, Kind: ast.CtrlBreak}
	case "skip", "continue":
		p.advance()
		return &ast.LoopControlStmt{Base: ast.Base{Sp: t.Span}, Kind: ast.CtrlSkip}
	case "exit":
		p.advance()
		p.expectKeyword("loop")
		return &ast.LoopControlStmt{Base: ast.Base{Sp: t.Span}, Kind: ast.CtrlExitLoop}
	case "retry":
		p.advance()
		return &ast.LoopControlStmt{Base: ast.Base{Sp: t.Span}, Kind: ast.CtrlRetry}
	case "define":
		return p.parseActionDecl()
	case "give", "return":
		return p.parseReturn()
	case "open":
		return p.parseOpen()
	case "close":
		p.advance()
		h, _ := p.expect(lexer.Ident, "a handle name")
		return &ast.CloseStmt{Base: ast.Base{Sp: source.Join(t.Span, h.Span)}, Handle: h.Value}
	case "write":
		return p.parseWrite()
	case "try":
		return p.parseTry()
	case "wait":
		return p.parseWaitFor()
	default:
		s := p.parseExprStatement()
		if s == nil {
			p.unexpected("a statement")
			p.recover()
		}
		return s
	}
}

func (p *Parser) parseExprStatement() ast.Statement {
	start := p.current().Span
	e := p.parseExpression()
	if e == nil {
		return nil
	}
	return &ast.ExprStmt{Base: ast.Base{Sp: source.Join(start, e.Span())}, Value: e}
}

func (p *Parser) parseVariableDecl(shared bool) ast.Statement {
	start := p.current()
	kind := ast.DeclStore
	if start.Value == "create" {
		kind = ast.DeclCreate
	}
	p.advance()

	name, ok := p.expect(lexer.Ident, "a name")
	if !ok {
		p.recover()
		return nil
	}

	// Supplemented record literal: `create X as record: ... end record`.
	if kind == ast.DeclCreate && p.atKeyword("as") && p.peekKeyword(1, "record") {
		p.advance() // as
		p.advance() // record
		if !p.expect2(lexer.Colon) {
			p.recover()
			return nil
		}
		p.pushBlock("record", start)
		var fields []ast.RecordField
		for !p.atKeyword("end") && p.current().Type != lexer.EOF {
			fname, ok := p.expect(lexer.Ident, "a field name")
			if !ok {
				p.recover()
				break
			}
			if !p.expectKeyword("is") {
				p.recover()
				continue
			}
			val := p.parseExpression()
			if val == nil {
				p.recover()
				continue
			}
			fields = append(fields, ast.RecordField{Name: fname.Value, Value: val})
		}
		p.expectEnd("record")
		return &ast.RecordDecl{Base: ast.Base{Sp: source.Join(start.Span, name.Span)}, Name: name.Value, Fields: fields}
	}

	if !p.expectConnective("as", "store greeting as 42") {
		p.recover()
		return nil
	}
	val := p.parseExpression()
	if val == nil {
		p.recover()
		return nil
	}
	return &ast.VariableDecl{
		Base: ast.Base{Sp: source.Join(start.Span, val.Span())},
		Kind: kind, Name: name.Value, Value: val, Shared: shared,
	}
}

func (p *Parser) parseChangeDecl() ast.Statement {
	start := p.advance()
	name, ok := p.expect(lexer.Ident, "a name")
	if !ok {
		p.recover()
		return nil
	}
	if !p.expectConnective("to", "change count to 5") {
		p.recover()
		return nil
	}
	val := p.parseExpression()
	if val == nil {
		p.recover()
		return nil
	}
	return &ast.VariableDecl{
		Base: ast.Base{Sp: source.Join(start.Span, val.Span())},
		Kind: ast.DeclChange, Name: name.Value, Value: val,
	}
}

func (p *Parser) parseDisplay() ast.Statement {
	start := p.advance()
	val := p.parseExpression()
	if val == nil {
		p.recover()
		return nil
	}
	return &ast.DisplayStmt{Base: ast.Base{Sp: source.Join(start.Span, val.Span())}, Value: val}
}

func (p *Parser) parseCheck() ast.Statement {
	start := p.advance() // "check" or "if"
	if start.Value == "check" {
		p.expectKeyword("if")
	}
	cond := p.parseExpression()
	if cond == nil {
		p.recover()
		return nil
	}
	if !p.expect2(lexer.Colon) {
		p.recover()
		return nil
	}
	p.pushBlock("check", start)
	then := p.parseBlockBody("otherwise", "end")
	var other []ast.Statement
	if p.atKeyword("otherwise") {
		p.advance()
		p.expect2(lexer.Colon)
		other = p.parseBlockBody("end")
	}
	p.expectEnd("check")
	return &ast.CheckStmt{Base: ast.Base{Sp: start.Span}, Condition: cond, Then: then, Otherwise: other}
}

// parseBlockBody parses statements until a keyword in stop (or EOF) is seen,
// without consuming the stop keyword.
func (p *Parser) parseBlockBody(stop ...string) []ast.Statement {
	var stmts []ast.Statement
	for {
		t := p.current()
		if t.Type == lexer.EOF {
			return stmts
		}
		if t.Type == lexer.Keyword {
			for _, s := range stop {
				if t.Value == s {
					return stmts
				}
			}
		}
		s := p.parseStatement()
		if s != nil {
			stmts = append(stmts, s)
		}
	}
}

func (p *Parser) parseCount() ast.Statement {
	start := p.advance() // "count"
	p.expectKeyword("from")
	from := p.parseAdditive()
	if from == nil {
		p.recover()
		return nil
	}
	down := false
	if p.atKeyword("down") {
		p.advance()
		down = true
	}
	p.expectKeyword("to")
	to := p.parseAdditive()
	var step ast.Expression
	if p.atKeyword("by") {
		p.advance()
		step = p.parseAdditive()
	}
	if !p.expect2(lexer.Colon) {
		p.recover()
		return nil
	}
	p.pushBlock("count", start)
	body := p.parseBlockBody("end")
	p.expectEnd("count")
	return &ast.CountLoop{Base: ast.Base{Sp: start.Span}, Var: "count", From: from, To: to, Step: step, Down: down, Body: body}
}

func (p *Parser) parseForEach() ast.Statement {
	start := p.advance() // "for"
	p.expectKeyword("each")
	name, _ := p.expect(lexer.Ident, "a variable name")
	p.expectKeyword("in")
	coll := p.parseAdditive()
	reversed := false
	if p.atKeyword("reversed") {
		p.advance()
		reversed = true
	}
	if !p.expect2(lexer.Colon) {
		p.recover()
		return nil
	}
	p.pushBlock("for", start)
	body := p.parseBlockBody("end")
	p.expectEnd("for")
	return &ast.ForEachLoop{Base: ast.Base{Sp: start.Span}, Var: name.Value, Coll: coll, Reversed: reversed, Body: body}
}

func (p *Parser) parseRepeat() ast.Statement {
	start := p.advance() // "repeat"
	var kind ast.RepeatKind
	var cond ast.Expression
	switch {
	case p.atKeyword("while"):
		p.advance()
		kind = ast.RepeatWhile
		cond = p.parseExpression()
	case p.atKeyword("until"):
		p.advance()
		kind = ast.RepeatUntil
		cond = p.parseExpression()
	case p.atKeyword("forever"):
		p.advance()
		kind = ast.RepeatForever
	default:
		p.unexpected("`while`, `until`, or `forever`")
	}
	if !p.expect2(lexer.Colon) {
		p.recover()
		return nil
	}
	p.pushBlock("repeat", start)
	body := p.parseBlockBody("end")
	p.expectEnd("repeat")
	return &ast.RepeatLoop{Base: ast.Base{Sp: start.Span}, Kind: kind, Condition: cond, Body: body}
}

func (p *Parser) parseActionDecl() ast.Statement {
	start := p.advance() // "define"
	async := false
	if p.atKeyword("async") {
		p.advance()
		async = true
	}
	p.expectKeyword("action")
	name, _ := p.expect(lexer.Ident, "an action name")

	var params []ast.Param
	if p.atKeyword("needs") {
		p.advance()
		for {
			pname, ok := p.expect(lexer.Ident, "a parameter name")
			if !ok {
				break
			}
			p.expectConnective("as", "needs amount as Number")
			ptype, _ := p.expect(lexer.Ident, "a type name")
			var def ast.Expression
			if p.atKeyword("default") {
				p.advance()
				def = p.parseAdditive()
			}
			params = append(params, ast.Param{Name: pname.Value, Type: ptype.Value, Default: def})
			if p.atKeyword("and") {
				p.advance()
				continue
			}
			break
		}
	}

	retType := ""
	if p.atKeyword("give") {
		p.advance()
		p.expectKeyword("back")
		rt, ok := p.expect(lexer.Ident, "a return type")
		if ok {
			retType = rt.Value
		}
	}

	if !p.expect2(lexer.Colon) {
		p.recover()
		return nil
	}
	p.pushBlock("action", start)
	body := p.parseBlockBody("end")
	p.expectEnd("action")

	return &ast.ActionDecl{
		Base: ast.Base{Sp: start.Span}, Name: name.Value, Params: params,
		ReturnType: retType, Async: async, Body: body,
	}
}

func (p *Parser) parseReturn() ast.Statement {
	start := p.advance() // "give" or "return"
	if start.Value == "give" {
		p.expectKeyword("back")
	}
	// Return value is optional: a bare `give back`/`return` yields nothing.
	if p.atEndOfStatement() {
		return &ast.ReturnStmt{Base: ast.Base{Sp: start.Span}}
	}
	val := p.parseExpression()
	return &ast.ReturnStmt{Base: ast.Base{Sp: start.Span}, Value: val}
}

// atEndOfStatement reports whether the current token cannot begin an
// expression, used to detect a bare `give back`/`return`.
func (p *Parser) atEndOfStatement() bool {
	t := p.current()
	if t.Type == lexer.EOF {
		return true
	}
	if t.Type == lexer.Keyword && (statementStartKeywords[t.Value] || t.Value == "end" || t.Value == "otherwise" || t.Value == "when") {
		return true
	}
	return false
}

func (p *Parser) parseOpen() ast.Statement {
	start := p.advance() // "open"
	var kind ast.OpenKind
	switch {
	case p.atKeyword("file"):
		kind = ast.OpenFile
	case p.atKeyword("url"):
		kind = ast.OpenURL
	case p.atKeyword("database"):
		kind = ast.OpenDatabase
	default:
		p.unexpected("`file`, `url`, or `database`")
		p.recover()
		return nil
	}
	p.advance()
	p.expectKeyword("at")
	target := p.parseAdditive()

	mode := ast.ModeReading
	if p.atKeyword("for") {
		p.advance()
		switch {
		case p.atKeyword("reading"):
			mode = ast.ModeReading
		case p.atKeyword("writing"):
			mode = ast.ModeWriting
		case p.atKeyword("appending"):
			mode = ast.ModeAppending
		}
		p.advance()
	}

	var method, body, headers ast.Expression
	if p.atKeyword("with") {
		p.advance()
	withAttrs:
		for {
			switch {
			case p.atKeyword("method"):
				p.advance()
				method = p.parseAdditive()
			case p.atKeyword("body"):
				p.advance()
				body = p.parseAdditive()
			case p.atKeyword("headers"):
				p.advance()
				headers = p.parseAdditive()
			default:
				break withAttrs
			}
			if p.atKeyword("and") {
				p.advance()
				continue
			}
			break
		}
	}

	p.expectConnective("as", "open file at path as h")
	handle, _ := p.expect(lexer.Ident, "a handle name")

	return &ast.OpenStmt{
		Base: ast.Base{Sp: start.Span}, Kind: kind, Target: target, Mode: mode,
		Method: method, ReqBody: body, Headers: headers, Handle: handle.Value,
	}
}

func (p *Parser) parseWrite() ast.Statement {
	start := p.advance() // "write"
	val := p.parseAdditive()
	p.expectConnective("to", "write greeting to h")
	handle, _ := p.expect(lexer.Ident, "a handle name")
	return &ast.WriteStmt{Base: ast.Base{Sp: start.Span}, Value: val, Handle: handle.Value}
}

func (p *Parser) parseTry() ast.Statement {
	start := p.advance() // "try"
	p.expect2(lexer.Colon)
	p.pushBlock("try", start)
	body := p.parseBlockBody("when", "otherwise", "end")

	var whens []ast.WhenClause
	for p.atKeyword("when") {
		p.advance()
		kindTok := p.current()
		kind := ""
		if kindTok.Type == lexer.Ident || kindTok.Type == lexer.Keyword {
			kind = kindTok.Value
			p.advance()
		}
		p.expect2(lexer.Colon)
		wb := p.parseBlockBody("when", "otherwise", "end")
		whens = append(whens, ast.WhenClause{ErrKind: kind, Body: wb})
	}

	var other []ast.Statement
	if p.atKeyword("otherwise") {
		p.advance()
		p.expect2(lexer.Colon)
		other = p.parseBlockBody("end")
	}
	p.expectEnd("try")
	return &ast.TryStmt{Base: ast.Base{Sp: start.Span}, Body: body, Whens: whens, Otherwise: other}
}

func (p *Parser) parseWaitFor() ast.Statement {
	start := p.advance() // "wait"
	p.expectKeyword("for")

	if p.current().Type == lexer.Colon {
		p.advance()
		var targets []ast.Expression
		for {
			e := p.parseAdditive()
			if e == nil {
				break
			}
			targets = append(targets, e)
			if p.atKeyword("and") {
				p.advance()
				continue
			}
			break
		}
		p.expectKeyword("end")
		p.expectKeyword("wait")
		return &ast.WaitForStmt{Base: ast.Base{Sp: start.Span}, Targets: targets}
	}

	e := p.parseExpression()
	return &ast.WaitForStmt{Base: ast.Base{Sp: start.Span}, Targets: []ast.Expression{e}}
}

// expect2 consumes a non-keyword token type such as Colon, emitting E1001.
func (p *Parser) expect2(tt lexer.TokenType) bool {
	_, ok := p.expect(tt, tt.String())
	return ok
}

// ----------------------------------------------------------- expressions

func (p *Parser) parseExpression() ast.Expression {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Expression {
	left := p.parseAnd()
	for p.atKeyword("or") {
		op := p.advance()
		right := p.parseAnd()
		if left == nil || right == nil {
			return left
		}
		left = &ast.BinaryExpr{Base: ast.Base{Sp: source.Join(left.Span(), right.Span())}, Op: ast.OpOr, Left: left, Right: right}
		_ = op
	}
	return left
}

func (p *Parser) parseAnd() ast.Expression {
	left := p.parseNot()
	for p.atKeyword("and") {
		p.advance()
		right := p.parseNot()
		if left == nil || right == nil {
			return left
		}
		left = &ast.BinaryExpr{Base: ast.Base{Sp: source.Join(left.Span(), right.Span())}, Op: ast.OpAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseNot() ast.Expression {
	if p.atKeyword("not") {
		start := p.advance()
		operand := p.parseNot()
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{Base: ast.Base{Sp: source.Join(start.Span, operand.Span())}, Op: ast.OpNot, Operand: operand}
	}
	return p.parseComparison()
}

// tryComparisonOp peeks a multi-word comparison operator starting at the
// current token (which must be "is" or "contains"), consuming its words on
// match and returning ("", false) otherwise.
func (p *Parser) tryComparisonOp() (ast.BinaryOp, bool) {
	if p.atKeyword("contains") {
		p.advance()
		return ast.OpContains, true
	}
	if !p.atKeyword("is") {
		return "", false
	}
	// "is" alone, or "is" + one of: equal to / greater than / less than /
	// above / below / at least / at most.
	save := p.pos
	p.advance() // "is"
	switch {
	case p.atKeyword("equal"):
		p.advance()
		p.expectKeyword("to")
		return ast.OpEq, true
	case p.atKeyword("greater"):
		p.advance()
		p.expectKeyword("than")
		return ast.OpGreater, true
	case p.atKeyword("less"):
		p.advance()
		p.expectKeyword("than")
		return ast.OpLess, true
	case p.atKeyword("above"):
		p.advance()
		return ast.OpGreater, true
	case p.atKeyword("below"):
		p.advance()
		return ast.OpLess, true
	case p.atKeyword("at") && p.peekKeyword(1, "least"):
		p.advance()
		p.advance()
		return ast.OpAtLeast, true
	case p.atKeyword("at") && p.peekKeyword(1, "most"):
		p.advance()
		p.advance()
		return ast.OpAtMost, true
	default:
		// Bare "is" is equality.
		p.pos = save + 1
		return ast.OpEq, true
	}
}

func (p *Parser) parseComparison() ast.Expression {
	left := p.parseAdditive()
	if left == nil {
		return nil
	}
	if p.atKeyword("is") || p.atKeyword("contains") {
		op, ok := p.tryComparisonOp()
		if !ok {
			return left
		}
		right := p.parseAdditive()
		if right == nil {
			return left
		}
		cmp := &ast.BinaryExpr{Base: ast.Base{Sp: source.Join(left.Span(), right.Span())}, Op: op, Left: left, Right: right}

		// Reject comparison chaining ("a is greater than b is less than c")
		// with a diagnostic rather than silently nesting.
		if p.atKeyword("is") || p.atKeyword("contains") {
			d := diagnostic.New(diagnostic.E1001UnexpectedToken,
				"comparisons cannot be chained; use `and`/`or` to combine them",
				diagnostic.Label{Span: p.current().Span, Message: "unexpected second comparison"})
			p.diags = append(p.diags, d)
			// Recovery: consume and discard the chained comparison so parsing
			// of the rest of the statement can continue.
			p.tryComparisonOp()
			p.parseAdditive()
		}
		return cmp
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for p.atKeyword("plus") || p.atKeyword("minus") {
		op := ast.OpPlus
		if p.current().Value == "minus" {
			op = ast.OpMinus
		}
		p.advance()
		right := p.parseMultiplicative()
		if left == nil || right == nil {
			return left
		}
		left = &ast.BinaryExpr{Base: ast.Base{Sp: source.Join(left.Span(), right.Span())}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parseWith()
	for p.atKeyword("times") || p.atKeyword("divided") {
		op := ast.OpTimes
		if p.current().Value == "divided" {
			p.advance()
			p.expectKeyword("by")
			right := p.parseWith()
			if left == nil || right == nil {
				return left
			}
			left = &ast.BinaryExpr{Base: ast.Base{Sp: source.Join(left.Span(), right.Span())}, Op: ast.OpDivide, Left: left, Right: right}
			continue
		}
		p.advance()
		right := p.parseWith()
		if left == nil || right == nil {
			return left
		}
		left = &ast.BinaryExpr{Base: ast.Base{Sp: source.Join(left.Span(), right.Span())}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseWith() ast.Expression {
	left := p.parsePrimary()
	for p.atKeyword("with") {
		// Ambiguous with call-argument "with": only treat as concatenation
		// once we're past primary-call parsing, which already consumes its
		// own "with ... and ..." argument list. Here, "with" at expression
		// level means text concatenation.
		p.advance()
		right := p.parsePrimary()
		if left == nil || right == nil {
			return left
		}
		left = &ast.BinaryExpr{Base: ast.Base{Sp: source.Join(left.Span(), right.Span())}, Op: ast.OpWith, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parsePrimary() ast.Expression {
	t := p.current()
	switch t.Type {
	case lexer.Int:
		p.advance()
		v, _ := strconv.ParseFloat(t.Value, 64)
		return &ast.NumberLiteral{Base: ast.Base{Sp: t.Span}, Value: v, Raw: t.Value}
	case lexer.Float:
		p.advance()
		v, _ := strconv.ParseFloat(t.Value, 64)
		return &ast.NumberLiteral{Base: ast.Base{Sp: t.Span}, Value: v, Raw: t.Value}
	case lexer.String:
		p.advance()
		return &ast.TextLiteral{Base: ast.Base{Sp: t.Span}, Value: t.Value}
	case lexer.Bool:
		p.advance()
		return &ast.BoolLiteral{Base: ast.Base{Sp: t.Span}, Value: t.Value == "true"}
	case lexer.Null:
		p.advance()
		return &ast.NullLiteral{Base: ast.Base{Sp: t.Span}}
	case lexer.LParen:
		p.advance()
		inner := p.parseExpression()
		closeTok, _ := p.expect(lexer.RParen, "`)`")
		sp := t.Span
		if inner != nil {
			sp = source.Join(t.Span, closeTok.Span)
		}
		return &ast.ParenExpr{Base: ast.Base{Sp: sp}, Inner: inner}
	case lexer.LBracket:
		return p.parseListLiteral()
	case lexer.Ident:
		return p.parseIdentOrCall()
	case lexer.Keyword:
		switch t.Value {
		case "not":
			return p.parseNot()
		case "pattern":
			return p.parsePatternLiteral()
		case "convert":
			return p.parseConvert()
		case "perform":
			return p.parsePerform()
		case "read":
			return p.parseReadExpr()
		case "find":
			return p.parseFindExpr()
		case "replace":
			return p.parseReplaceExpr()
		case "split":
			return p.parseSplitExpr()
		case "count":
			// The implicit count-loop variable: "count" is reserved so its
			// loop-header spelling (`count from A to B`) is unambiguous at
			// statement start, but inside an expression - e.g. `display
			// count` - the same token must read back as a value reference
			// rather than fail to parse.
			p.advance()
			return &ast.Identifier{Base: ast.Base{Sp: t.Span}, Name: "count"}
		}
	}
	p.unexpected("an expression")
	return nil
}

func (p *Parser) parseListLiteral() ast.Expression {
	start := p.advance() // "["
	var elems []ast.Expression
	for p.current().Type != lexer.RBracket && p.current().Type != lexer.EOF {
		e := p.parseExpression()
		if e == nil {
			break
		}
		elems = append(elems, e)
		if p.current().Type == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	end, _ := p.expect(lexer.RBracket, "`]`")
	return &ast.ListLiteral{Base: ast.Base{Sp: source.Join(start.Span, end.Span)}, Elements: elems}
}

func (p *Parser) parsePatternLiteral() ast.Expression {
	start := p.advance() // "pattern"
	str, ok := p.expect(lexer.String, "a pattern phrase")
	if !ok {
		return nil
	}
	return &ast.PatternLiteral{Base: ast.Base{Sp: source.Join(start.Span, str.Span)}, Phrase: str.Value}
}

func (p *Parser) parseConvert() ast.Expression {
	start := p.advance() // "convert"
	val := p.parseAdditive()
	p.expectConnective("to", "convert amount to Text")
	typeTok, _ := p.expect(lexer.Ident, "a type name")
	return &ast.ConvertExpr{Base: ast.Base{Sp: start.Span}, Value: val, ToType: typeTok.Value}
}

// parseIdentOrCall parses a bare identifier, a record field access
// (`name's field`), or the ambiguous `name with args` form, left for
// package sema to resolve into a CallExpr or text-concatenation BinaryExpr.
func (p *Parser) parseIdentOrCall() ast.Expression {
	name := p.advance()
	ident := ast.Expression(&ast.Identifier{Base: ast.Base{Sp: name.Span}, Name: name.Value})

	if p.current().Type == lexer.Possessive {
		return p.parsePossessiveChain(ident)
	}
	if p.atKeyword("with") {
		return p.parseBareWith(name)
	}
	return ident
}

// parsePossessiveChain parses one or more `'s <field>` suffixes on record,
// left-associatively: `a's b's c` reads as `(a's b)'s c`.
func (p *Parser) parsePossessiveChain(record ast.Expression) ast.Expression {
	for p.current().Type == lexer.Possessive {
		p.advance()
		field, ok := p.expect(lexer.Ident, "a field name")
		if !ok {
			return record
		}
		record = &ast.RecordFieldAccess{
			Base:   ast.Base{Sp: source.Join(record.Span(), field.Span)},
			Record: record,
			Field:  field.Value,
		}
	}
	return record
}

func (p *Parser) parseBareWith(name lexer.Token) ast.Expression {
	p.advance() // "with"
	var parts []ast.Expression
	for {
		e := p.parseAdditive()
		if e == nil {
			break
		}
		parts = append(parts, e)
		if p.atKeyword("and") {
			p.advance()
			continue
		}
		break
	}
	sp := name.Span
	if len(parts) > 0 {
		sp = source.Join(name.Span, parts[len(parts)-1].Span())
	}
	return &ast.MaybeCallOrConcat{Base: ast.Base{Sp: sp}, Name: name.Value, Parts: parts}
}

func (p *Parser) parsePerform() ast.Expression {
	start := p.advance() // "perform"

	if p.atKeyword("query") {
		p.advance()
		sql := p.parsePrimary()
		p.expectKeyword("on")
		handle, _ := p.expect(lexer.Ident, "a handle name")
		return &ast.QueryExpr{Base: ast.Base{Sp: start.Span}, SQL: sql, Handle: handle.Value}
	}

	callee, _ := p.expect(lexer.Ident, "an action name")
	var args []ast.Arg
	if p.atKeyword("with") {
		p.advance()
		for {
			pname, ok := p.expect(lexer.Ident, "a parameter name")
			if !ok {
				break
			}
			p.expectConnective("as", "perform greet with name as \"Ada\"")
			val := p.parseAdditive()
			args = append(args, ast.Arg{Name: pname.Value, Value: val})
			// Only `and <param> as` continues the argument list; any other
			// `and` (e.g. between `wait for:` operands) belongs to the caller.
			if p.atKeyword("and") && p.peek(1).Type == lexer.Ident && p.peekKeyword(2, "as") {
				p.advance()
				continue
			}
			break
		}
	}
	return &ast.CallExpr{Base: ast.Base{Sp: start.Span}, Callee: callee.Value, Args: args}
}

func (p *Parser) parseReadExpr() ast.Expression {
	start := p.advance() // "read"
	var kind ast.ReadKind
	switch {
	case p.atKeyword("content"):
		kind = ast.ReadContent
	case p.atKeyword("line"):
		kind = ast.ReadLine
	case p.atKeyword("response"):
		kind = ast.ReadResponse
	default:
		p.unexpected("`content`, `line`, or `response`")
		return nil
	}
	p.advance()
	p.expectKeyword("from")
	handle, _ := p.expect(lexer.Ident, "a handle name")
	return &ast.ReadExpr{Base: ast.Base{Sp: start.Span}, Kind: kind, Handle: handle.Value}
}

func (p *Parser) parseFindExpr() ast.Expression {
	start := p.advance() // "find"
	p.expectKeyword("pattern")
	pat := p.parsePrimary()
	p.expectKeyword("in")
	text := p.parseAdditive()
	return &ast.FindPatternExpr{Base: ast.Base{Sp: start.Span}, Pattern: pat, Text: text}
}

func (p *Parser) parseReplaceExpr() ast.Expression {
	start := p.advance() // "replace"
	p.expectKeyword("pattern")
	pat := p.parsePrimary()
	p.expectKeyword("with")
	repl := p.parseAdditive()
	p.expectKeyword("in")
	text := p.parseAdditive()
	return &ast.ReplacePatternExpr{Base: ast.Base{Sp: start.Span}, Pattern: pat, Replacement: repl, Text: text}
}

func (p *Parser) parseSplitExpr() ast.Expression {
	start := p.advance() // "split"
	text := p.parseAdditive()
	p.expectKeyword("by")
	p.expectKeyword("pattern")
	pat := p.parsePrimary()
	return &ast.SplitPatternExpr{Base: ast.Base{Sp: start.Span}, Text: text, Pattern: pat}
}
