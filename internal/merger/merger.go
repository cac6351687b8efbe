// Package merger implements the post-lexer pass that folds consecutive
// Ident tokens into one Identifier token whose text is the space-joined
// words and whose span covers all merged fragments. Any non-Ident token -
// including a Keyword - flushes the accumulator first, so reserved words
// always delimit names ("reserved words never become identifier fragments"
// is what makes this linear pass correct - it never needs to backtrack).
//
// There is no directly comparable pass to ground this on (multi-word
// identifiers aren't common in the surrounding corpus), so this file is
// written in the general style shared by this module's other passes: a
// single forward pass over a flat []Token producing a new flat []Token.
package merger

import (
	"strings"

	"github.com/logbie/wfl-sub001/internal/lexer"
	"github.com/logbie/wfl-sub001/internal/source"
)

// Merge folds consecutive lexer.Ident tokens in toks into single multi-word
// Identifier tokens, leaving every other token unchanged.
func Merge(toks []lexer.Token) []lexer.Token {
	out := make([]lexer.Token, 0, len(toks))

	var words []string
	var accSpan source.Span
	accumulating := false

	flush := func() {
		if !accumulating {
			return
		}
		out = append(out, lexer.Token{
			Type:  lexer.Ident,
			Span:  accSpan,
			Value: strings.Join(words, " "),
		})
		words = nil
		accumulating = false
	}

	for _, t := range toks {
		if t.Type == lexer.Ident {
			if !accumulating {
				accumulating = true
				accSpan = t.Span
			} else {
				accSpan = source.Join(accSpan, t.Span)
			}
			words = append(words, t.Value)
			continue
		}
		flush()
		out = append(out, t)
	}
	flush()

	return out
}
