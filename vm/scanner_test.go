package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	s := NewScanner(src)
	var toks []Token
	for {
		tok, err := s.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == TOK_EOF {
			return toks
		}
	}
}

func TestScannerKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "if else end while function return x1")
	kinds := make([]TokenKind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	require.Equal(t, []TokenKind{
		TOK_IF, TOK_ELSE, TOK_END, TOK_WHILE, TOK_FUNCTION, TOK_RETURN, TOK_IDENTIFIER, TOK_EOF,
	}, kinds)
}

func TestScannerNumberAndString(t *testing.T) {
	toks := scanAll(t, `3.5 "hi\n"`)
	require.Equal(t, TOK_NUMBER, toks[0].Kind)
	require.Equal(t, 3.5, toks[0].Num)
	require.Equal(t, TOK_STRING, toks[1].Kind)
	require.Equal(t, "hi\n", toks[1].Text)
}

func TestScannerLogicLiterals(t *testing.T) {
	toks := scanAll(t, "true false")
	require.Equal(t, TOK_LOGIC, toks[0].Kind)
	require.True(t, toks[0].Bool)
	require.Equal(t, TOK_LOGIC, toks[1].Kind)
	require.False(t, toks[1].Bool)
}

func TestScannerPushback(t *testing.T) {
	s := NewScanner("a b")
	first, err := s.Next()
	require.NoError(t, err)
	s.ReturnToken(first)
	again, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, first, again)
}

func TestScannerUnterminatedStringIsLexicalError(t *testing.T) {
	s := NewScanner(`"abc`)
	_, err := s.Next()
	require.Error(t, err)
	require.Equal(t, KindLexical, KindOf(err))
}

func TestScannerOperators(t *testing.T) {
	toks := scanAll(t, "== <= >= != < > = + - * / ^")
	kinds := make([]TokenKind, 0, len(toks)-1)
	for _, tok := range toks[:len(toks)-1] {
		kinds = append(kinds, tok.Kind)
	}
	require.Equal(t, []TokenKind{
		TOK_EQUAL, TOK_LESSEQ, TOK_GREATEREQ, TOK_NOTEQ, TOK_LESS, TOK_GREATER,
		TOK_ASSIGN, TOK_PLUS, TOK_MINUS, TOK_STAR, TOK_SLASH, TOK_CARET,
	}, kinds)
}

func TestScannerSkipsCommentsAndTracksLines(t *testing.T) {
	toks := scanAll(t, "x # comment\ny")
	require.Equal(t, TOK_IDENTIFIER, toks[0].Kind)
	require.Equal(t, 1, toks[0].Line)
	require.Equal(t, TOK_EOL, toks[1].Kind)
	require.Equal(t, TOK_IDENTIFIER, toks[2].Kind)
	require.Equal(t, 2, toks[2].Line)
}
