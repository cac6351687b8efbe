package lexer

import "github.com/logbie/wfl-sub001/internal/source"

// TokenType classifies a lexical unit. Unlike a lexer with one TokenType
// constant per punctuation/operator symbol, WFL keywords share a single
// Keyword TokenType and are distinguished by Value, because the
// reserved-word list is large and every keyword is a plain lowercase word,
// not a symbol.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	Keyword    // any reserved word, canonical lowercase in Value
	Ident      // identifier fragment before merging; multi-word Identifier after
	Int        // [0-9]+
	Float      // [0-9]+.[0-9]+
	String     // "..." with \" and \\ escapes, Value already unescaped
	Bool       // yes/true -> "true", no/false -> "false" (canonical in Value)
	Null       // nothing/missing/undefined

	Colon      // ':' opens a block header
	LParen     // '('
	RParen     // ')'
	LBracket   // '[' list literal
	RBracket   // ']'
	Comma      // ',' list literal separator
	Possessive // "'s" - record field access, `name's field`
)

func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case ILLEGAL:
		return "ILLEGAL"
	case Keyword:
		return "Keyword"
	case Ident:
		return "Identifier"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case String:
		return "String"
	case Bool:
		return "Bool"
	case Null:
		return "Null"
	case Colon:
		return "Colon"
	case LParen:
		return "LParen"
	case RParen:
		return "RParen"
	case LBracket:
		return "LBracket"
	case RBracket:
		return "RBracket"
	case Comma:
		return "Comma"
	case Possessive:
		return "Possessive"
	default:
		return "Unknown"
	}
}

// Token is one lexical unit with its byte-precise span. Value holds the
// token's payload: the keyword word for Keyword, the fragment text for
// Ident, the unescaped content for String, "true"/"false" for Bool.
type Token struct {
	Type  TokenType
	Span  source.Span
	Value string
}

// Keywords is the canonical lowercase reserved-word set.
// Case-insensitive match: the lexer lowercases an identifier-shaped run
// before checking membership here, so "Store", "STORE", and "store" all
// resolve to the same Keyword token.
var Keywords = map[string]bool{
	"store": true, "create": true, "change": true, "display": true,
	"if": true, "check": true, "then": true, "otherwise": true, "end": true,
	"as": true, "to": true, "from": true, "with": true, "by": true, "at": true,
	"into": true, "in": true,
	"and": true, "or": true, "not": true, "is": true,
	"count": true, "for": true, "each": true, "reversed": true,
	"repeat": true, "while": true, "until": true, "forever": true,
	"skip": true, "continue": true, "break": true, "exit": true, "loop": true,
	"define": true, "action": true, "needs": true, "give": true, "back": true,
	"return": true, "async": true, "await": true, "wait": true,
	"open": true, "close": true, "file": true, "url": true, "database": true,
	"read": true, "write": true, "content": true,
	"plus": true, "minus": true, "times": true, "divided": true,
	"contains": true, "above": true, "below": true, "equal": true,
	"greater": true, "less": true, "than": true,
	"yes": true, "no": true, "true": true, "false": true,
	"nothing": true, "missing": true, "undefined": true,
	"pattern": true, "matches": true, "find": true, "replace": true, "split": true,
	"least": true, "most": true,
	// Convert expressions, record literals, retry inside try/when, list
	// literals.
	"convert": true, "record": true, "retry": true, "try": true, "when": true,
	"list": true, "perform": true, "line": true, "response": true, "query": true, "on": true,
	"method": true, "body": true, "headers": true, "reading": true, "writing": true,
	"appending": true, "down": true, "shared": true, "default": true,
}

// BoolWords maps the surface spelling to the canonical Bool token value.
var BoolWords = map[string]string{
	"yes": "true", "true": "true",
	"no": "false", "false": "false",
}

// NullWords are the words that lex to the Null token.
var NullWords = map[string]bool{"nothing": true, "missing": true, "undefined": true}
