package parser

import (
	"fmt"

	"github.com/logbie/wfl-sub001/internal/diagnostic"
	"github.com/logbie/wfl-sub001/internal/lexer"
	"github.com/logbie/wfl-sub001/internal/source"
)

// blockOpen tracks one opened `<header>:` block awaiting its `end <kind>`,
// the same bracket-tracker shape used to match parens/braces elsewhere,
// specialized here since WFL's only "bracket" is the header/end-kind pair -
// a single stack of expected end-kinds rather than a token-type stack.
type blockOpen struct {
	kind    string // expected word after "end", e.g. "check", "count", "action"
	openTok lexer.Token
}

func (p *Parser) pushBlock(kind string, openTok lexer.Token) {
	p.blocks = append(p.blocks, blockOpen{kind: kind, openTok: openTok})
}

// expectEnd consumes `end <kind>`, reporting E1002 both when `end` itself
// is missing and when the word after it isn't the kind the parser expected.
func (p *Parser) expectEnd(kind string) {
	if len(p.blocks) == 0 || p.blocks[len(p.blocks)-1].kind != kind {
		// Recovery: still try to consume, but note the mismatch.
	} else {
		p.blocks = p.blocks[:len(p.blocks)-1]
	}

	if !p.atKeyword("end") {
		d := diagnostic.New(diagnostic.E1002UnclosedBlock,
			fmt.Sprintf("expected `end %s` to close this block", kind),
			diagnostic.Label{Span: p.current().Span, Message: fmt.Sprintf("expected `end %s` here", kind)}).
			WithSecondary(p.blockOpenSpan(kind), "block opened here")
		p.diags = append(p.diags, d)
		return
	}
	p.advance() // "end"
	if !p.atKeyword(kind) {
		got := p.current().Value
		d := diagnostic.New(diagnostic.E1002UnclosedBlock,
			fmt.Sprintf("expected `end %s`, found `end %s`", kind, got),
			diagnostic.Label{Span: p.current().Span, Message: "mismatched block end"}).
			WithSecondary(p.blockOpenSpan(kind), "block opened here")
		p.diags = append(p.diags, d)
		// Don't consume the wrong kind word; let the caller's own expectEnd
		// (if any) see it and unwind on the mismatch in turn.
		return
	}
	p.advance() // kind word
}

func (p *Parser) blockOpenSpan(kind string) source.Span {
	for i := len(p.blocks) - 1; i >= 0; i-- {
		if p.blocks[i].kind == kind {
			return p.blocks[i].openTok.Span
		}
	}
	return p.current().Span
}

// expect consumes one token of tt, or records E1001 and returns false.
func (p *Parser) expect(tt lexer.TokenType, what string) (lexer.Token, bool) {
	if p.current().Type != tt {
		p.unexpected(what)
		return p.current(), false
	}
	t := p.current()
	p.advance()
	return t, true
}

// expectKeyword consumes a specific keyword word, or records E1001.
func (p *Parser) expectKeyword(word string) bool {
	if !p.atKeyword(word) {
		p.unexpected("`" + word + "`")
		return false
	}
	p.advance()
	return true
}

// expectConnective consumes a connective keyword (as/to/from/with/by/at/
// into/in) required to separate two constructs, emitting the more specific
// E1003 rather than the generic E1001 so the diagnostic can suggest the
// missing connective directly.
func (p *Parser) expectConnective(word, example string) bool {
	if !p.atKeyword(word) {
		d := diagnostic.New(diagnostic.E1003MissingConnective,
			fmt.Sprintf("I expected `%s` here", word),
			diagnostic.Label{Span: p.current().Span, Message: fmt.Sprintf("expected `%s`", word)})
		if example != "" {
			d.WithNote(fmt.Sprintf("Did you forget `%s`? For example: `%s`.", word, example))
		}
		p.diags = append(p.diags, d)
		return false
	}
	p.advance()
	return true
}

func (p *Parser) unexpected(what string) {
	got := p.current()
	msg := fmt.Sprintf("expected %s, found %s", what, describe(got))
	d := diagnostic.New(diagnostic.E1001UnexpectedToken, msg,
		diagnostic.Label{Span: got.Span, Message: "unexpected token"})
	p.diags = append(p.diags, d)
}

func describe(t lexer.Token) string {
	switch t.Type {
	case lexer.EOF:
		return "end of file"
	case lexer.Keyword:
		return "`" + t.Value + "`"
	case lexer.Ident:
		return fmt.Sprintf("identifier `%s`", t.Value)
	default:
		return t.Type.String()
	}
}

// recover advances to the next statement-start keyword or block boundary
// so one bad statement doesn't stop the whole file from being diagnosed.
func (p *Parser) recover() {
	for {
		t := p.current()
		if t.Type == lexer.EOF {
			return
		}
		if t.Type == lexer.Keyword && (statementStartKeywords[t.Value] || t.Value == "end") {
			return
		}
		p.advance()
	}
}

var statementStartKeywords = map[string]bool{
	"store": true, "create": true, "change": true, "display": true,
	"check": true, "if": true, "count": true, "for": true, "repeat": true,
	"define": true, "open": true, "close": true, "write": true, "try": true,
	"wait": true, "give": true, "return": true, "break": true, "skip": true,
	"continue": true, "exit": true, "perform": true, "shared": true,
}
