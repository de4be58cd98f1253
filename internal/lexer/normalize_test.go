package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeStripsBOM(t *testing.T) {
	require.Equal(t, "let x = 5", Normalize("\ufefflet x = 5"))
}

func TestNormalizeComposesNFD(t *testing.T) {
	// 'e' + combining acute (NFD) composes to the precomposed rune (NFC).
	require.Equal(t, "caf\u00e9", Normalize("cafe\u0301"))
}

func TestNormalizeLeavesASCIIUntouched(t *testing.T) {
	src := "let v = (((1+1)*2)/2) - 1"
	require.Equal(t, src, Normalize(src))
}

func TestLexerNormalizesInput(t *testing.T) {
	// The same identifier in NFD and NFC must tokenize identically.
	a := tokens("let cafe\u0301 = 1")
	b := tokens("let café = 1")
	require.Equal(t, typesOf(a), typesOf(b))
	require.Equal(t, a[1].Literal, b[1].Literal)
}

func TestLexerStripsBOMBeforeFirstToken(t *testing.T) {
	toks := tokens("\ufefflet x = 5")
	require.Equal(t, LET, toks[0].Type)
	require.Equal(t, 1, toks[0].Line)
}
