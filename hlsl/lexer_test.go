package hlsl

import (
	"testing"
)

func lex(t *testing.T, src string) []Token {
	t.Helper()
	l := NewLexer("test.hlsl", src, Keywords())
	toks, errs := l.Tokenize()
	if len(errs) > 0 {
		t.Fatalf("lexer errors: %v", errs)
	}
	return toks
}

func kinds(toks []Token) []TokenKind {
	ks := make([]TokenKind, len(toks))
	for i, tok := range toks {
		ks[i] = tok.Kind
	}
	return ks
}

func TestLexSimpleFunction(t *testing.T) {
	toks := lex(t, "float4 main() : SV_Target { return x; }")

	want := []TokenKind{
		TokenVectorType, TokenIdent, TokenLeftParen, TokenRightParen,
		TokenColon, TokenIdent, TokenLeftBrace, TokenReturn, TokenIdent,
		TokenSemicolon, TokenRightBrace, TokenEOF,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d: %v", len(got), len(want), toks)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v (%q), want %v", i, got[i], toks[i].Lexeme, want[i])
		}
	}
}

func TestLexKeywordClasses(t *testing.T) {
	cases := []struct {
		src  string
		kind TokenKind
	}{
		{"float", TokenScalarType},
		{"uint", TokenScalarType},
		{"float3", TokenVectorType},
		{"int4", TokenVectorType},
		{"float4x4", TokenMatrixType},
		{"bool2x3", TokenMatrixType},
		{"Texture2D", TokenBufferType},
		{"RWStructuredBuffer", TokenBufferType},
		{"SamplerState", TokenSamplerType},
		{"cbuffer", TokenUniformBuffer},
		{"in", TokenInputModifier},
		{"centroid", TokenInterpModifier},
		{"row_major", TokenTypeModifier},
		{"static", TokenStorageClass},
		{"discard", TokenCtrlTransfer},
		{"register", TokenRegister},
		{"true", TokenBoolLiteral},
		{"template", TokenReserved},
		{"class", TokenUnsupported},
	}
	for _, c := range cases {
		toks := lex(t, c.src)
		if toks[0].Kind != c.kind {
			t.Errorf("%q lexed as %v, want %v", c.src, toks[0].Kind, c.kind)
		}
	}
}

func TestLexNumbers(t *testing.T) {
	cases := []struct {
		src  string
		kind TokenKind
	}{
		{"0", TokenIntLiteral},
		{"42", TokenIntLiteral},
		{"42u", TokenIntLiteral},
		{"0x1F", TokenIntLiteral},
		{"0xABu", TokenIntLiteral},
		{"1.0", TokenFloatLiteral},
		{"1.", TokenFloatLiteral},
		{".5", TokenFloatLiteral},
		{"1.0f", TokenFloatLiteral},
		{"2.5h", TokenFloatLiteral},
		{"1e10", TokenFloatLiteral},
		{"1.5e-3f", TokenFloatLiteral},
		{"1f", TokenFloatLiteral},
	}
	for _, c := range cases {
		toks := lex(t, c.src)
		if toks[0].Kind != c.kind {
			t.Errorf("%q lexed as %v, want %v", c.src, toks[0].Kind, c.kind)
		}
		if toks[0].Lexeme != c.src {
			t.Errorf("%q lexeme = %q", c.src, toks[0].Lexeme)
		}
	}
}

func TestLexMemberOnIntLiteral(t *testing.T) {
	toks := lex(t, "1.x")
	if toks[0].Kind != TokenIntLiteral || toks[1].Kind != TokenDot || toks[2].Kind != TokenIdent {
		t.Errorf("1.x lexed as %v", toks)
	}
}

func TestLexOperators(t *testing.T) {
	toks := lex(t, "a += b << 2 && c != d")
	want := []TokenKind{
		TokenIdent, TokenPlusAssign, TokenIdent, TokenShl, TokenIntLiteral,
		TokenAndAnd, TokenIdent, TokenNotEqual, TokenIdent, TokenEOF,
	}
	got := kinds(toks)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLexDirectiveTokens(t *testing.T) {
	toks := lex(t, "# ##")
	if toks[0].Kind != TokenDirective || toks[1].Kind != TokenDirectiveConcat {
		t.Errorf("directive tokens lexed as %v", toks)
	}
}

func TestLexCommentsSkipped(t *testing.T) {
	toks := lex(t, "a // comment\n/* block\ncomment */ b")
	if len(toks) != 3 || toks[0].Lexeme != "a" || toks[1].Lexeme != "b" {
		t.Errorf("comments not skipped: %v", toks)
	}
}

func TestLexCommentsPreserved(t *testing.T) {
	l := NewLexer("t", "// the variable\nfloat x;", Keywords())
	l.PreserveComments = true
	toks, errs := l.Tokenize()
	if len(errs) > 0 {
		t.Fatalf("lexer errors: %v", errs)
	}
	if toks[0].Comment != "the variable" {
		t.Errorf("comment not attached: %q", toks[0].Comment)
	}
}

func TestLexErrorRecovery(t *testing.T) {
	l := NewLexer("t", "int a; $ int b;", Keywords())
	toks, errs := l.Tokenize()
	if len(errs) != 1 {
		t.Fatalf("error count = %d, want 1: %v", len(errs), errs)
	}
	// the lexer resynchronizes and keeps going
	found := false
	for _, tok := range toks {
		if tok.Lexeme == "b" {
			found = true
		}
	}
	if !found {
		t.Error("lexer did not recover after stray character")
	}
}

func TestLexUnterminatedString(t *testing.T) {
	l := NewLexer("t", `"abc`, Keywords())
	_, errs := l.Tokenize()
	if len(errs) == 0 {
		t.Fatal("unterminated string not reported")
	}
}

func TestLexStringAndChar(t *testing.T) {
	toks := lex(t, `"hello" 'c'`)
	if toks[0].Kind != TokenStringLiteral || toks[1].Kind != TokenCharLiteral {
		t.Errorf("literals lexed as %v", toks)
	}
}

func TestLexPositions(t *testing.T) {
	toks := lex(t, "a\n  b")
	if toks[0].Pos.Line != 1 || toks[0].Pos.Column != 1 {
		t.Errorf("a at %v", toks[0].Pos)
	}
	if toks[1].Pos.Line != 2 || toks[1].Pos.Column != 3 {
		t.Errorf("b at %v", toks[1].Pos)
	}
}
