package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logbie/wfl-sub001/internal/lexer"
)

func TestMergeFoldsConsecutiveIdents(t *testing.T) {
	toks := lexer.New(0, "user full name").Lex()
	merged := Merge(toks)

	require.Len(t, merged, 2) // Identifier + EOF
	assert.Equal(t, lexer.Ident, merged[0].Type)
	assert.Equal(t, "user full name", merged[0].Value)
	assert.Equal(t, 0, merged[0].Span.Start)
	assert.Equal(t, len("user full name"), merged[0].Span.End)
}

func TestMergeFlushesOnKeyword(t *testing.T) {
	toks := lexer.New(0, "store user name as 5").Lex()
	merged := Merge(toks)

	var types []lexer.TokenType
	var values []string
	for _, tok := range merged {
		types = append(types, tok.Type)
		values = append(values, tok.Value)
	}

	assert.Equal(t, []lexer.TokenType{
		lexer.Keyword, lexer.Ident, lexer.Keyword, lexer.Int, lexer.EOF,
	}, types)
	assert.Equal(t, []string{"store", "user name", "as", "5", ""}, values)
}

func TestMergeLeavesNonIdentTokensAlone(t *testing.T) {
	toks := lexer.New(0, "(5, 6)").Lex()
	merged := Merge(toks)
	assert.Equal(t, toks, merged)
}

func TestMergeSingleIdentIsUnaffected(t *testing.T) {
	toks := lexer.New(0, "x").Lex()
	merged := Merge(toks)
	require.Len(t, merged, 2)
	assert.Equal(t, "x", merged[0].Value)
}

func TestMergeEmptyInput(t *testing.T) {
	merged := Merge(nil)
	assert.Empty(t, merged)
}
