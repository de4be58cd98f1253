package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tokens(src string) []Token {
	l := New(src, "test.gx")
	var out []Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == EOF {
			return out
		}
	}
}

func typesOf(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestArithmeticTokens(t *testing.T) {
	toks := tokens("1 + 2 * 3")
	require.Equal(t, []TokenType{INT, PLUS, INT, STAR, INT, EOF}, typesOf(toks))
}

func TestKeywordsAndCasing(t *testing.T) {
	toks := tokens("let rec Number foo")
	require.Equal(t, LET, toks[0].Type)
	require.Equal(t, REC, toks[1].Type)
	require.Equal(t, TYNAME, toks[2].Type)
	require.Equal(t, IDENT, toks[3].Type)
}

func TestConnectAndSample(t *testing.T) {
	toks := tokens("x <- y ~ z")
	require.Equal(t, []TokenType{IDENT, LARROW, IDENT, TILDE, IDENT, EOF}, typesOf(toks))
}

func TestDocCommentCollected(t *testing.T) {
	toks := tokens("/// doc\nlet x = 1")
	require.Equal(t, DOCCOMMENT, toks[0].Type)
	require.Equal(t, "doc", toks[0].Literal)
}

func TestInterpolatedStringRaw(t *testing.T) {
	toks := tokens(`"hi [name]!"`)
	require.Equal(t, STRING, toks[0].Type)
	require.Equal(t, "hi [name]!", toks[0].Literal)
}
