package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokExp is an expected token stripped of its byte span, since tests care
// about classification and text, not exact offsets.
type tokExp struct {
	Type  TokenType
	Value string
}

func assertTokens(t *testing.T, input string, want []tokExp) {
	t.Helper()
	toks := New(0, input).Lex()
	require.Equal(t, EOF, toks[len(toks)-1].Type, "Lex must always end in EOF")

	got := make([]tokExp, 0, len(toks)-1)
	for _, tok := range toks[:len(toks)-1] {
		got = append(got, tokExp{Type: tok.Type, Value: tok.Value})
	}
	assert.Equal(t, want, got)
}

func TestLexKeywordsAreCaseInsensitive(t *testing.T) {
	assertTokens(t, "Store Create STORE", []tokExp{
		{Keyword, "store"},
		{Keyword, "create"},
		{Keyword, "store"},
	})
}

func TestLexIdentifierFragment(t *testing.T) {
	assertTokens(t, "user name", []tokExp{
		{Ident, "user"},
		{Ident, "name"},
	})
}

func TestLexBooleanWords(t *testing.T) {
	assertTokens(t, "yes no true false", []tokExp{
		{Bool, "true"},
		{Bool, "false"},
		{Bool, "true"},
		{Bool, "false"},
	})
}

func TestLexNullWords(t *testing.T) {
	assertTokens(t, "nothing missing undefined", []tokExp{
		{Null, "nothing"},
		{Null, "missing"},
		{Null, "undefined"},
	})
}

func TestLexNumbers(t *testing.T) {
	assertTokens(t, "42 3.14", []tokExp{
		{Int, "42"},
		{Float, "3.14"},
	})
}

func TestLexStringEscapes(t *testing.T) {
	assertTokens(t, `"hello \"world\" \\ done"`, []tokExp{
		{String, `hello "world" \ done`},
	})
}

func TestLexUnterminatedStringIsIllegal(t *testing.T) {
	assertTokens(t, `"unterminated`, []tokExp{
		{ILLEGAL, "unterminated"},
	})
}

func TestLexPunctuation(t *testing.T) {
	assertTokens(t, "(a, [b]): end", []tokExp{
		{LParen, "("},
		{Ident, "a"},
		{Comma, ","},
		{LBracket, "["},
		{Ident, "b"},
		{RBracket, "]"},
		{RParen, ")"},
		{Colon, ":"},
		{Keyword, "end"},
	})
}

func TestLexLineCommentIsSkipped(t *testing.T) {
	assertTokens(t, "store x // this is dropped\nas 5", []tokExp{
		{Keyword, "store"},
		{Ident, "x"},
		{Keyword, "as"},
		{Int, "5"},
	})
}

func TestLexIllegalByte(t *testing.T) {
	assertTokens(t, "a # b", []tokExp{
		{Ident, "a"},
		{ILLEGAL, "#"},
		{Ident, "b"},
	})
}

func TestLexSpansAreByteAccurate(t *testing.T) {
	toks := New(3, "  store").Lex()
	require.Len(t, toks, 2) // Keyword + EOF
	assert.Equal(t, 3, toks[0].Span.FileID)
	assert.Equal(t, 2, toks[0].Span.Start)
	assert.Equal(t, 7, toks[0].Span.End)
}

func TestLexPossessiveSuffix(t *testing.T) {
	assertTokens(t, "point's x", []tokExp{
		{Ident, "point"},
		{Possessive, "'s"},
		{Ident, "x"},
	})
}

func TestLexApostropheNotFollowedBySIsIllegal(t *testing.T) {
	assertTokens(t, "o'clock", []tokExp{
		{Ident, "o"},
		{ILLEGAL, "'"},
		{Ident, "clock"},
	})
}

func TestLexApostropheBeforeLongerWordIsIllegal(t *testing.T) {
	// "'s" only marks field access when the "s" stands alone; "'sam" is not
	// a valid possessive suffix since "s" isn't a whole word fragment here.
	assertTokens(t, "x'sam", []tokExp{
		{Ident, "x"},
		{ILLEGAL, "'"},
		{Ident, "sam"},
	})
}

func TestLexEmptyInputIsJustEOF(t *testing.T) {
	toks := New(0, "").Lex()
	require.Len(t, toks, 1)
	assert.Equal(t, EOF, toks[0].Type)
}
