package hlsl

import (
	"fmt"

	"github.com/gogpu/xshade/source"
)

// TokenKind classifies a token. Keyword classes (scalar type, input
// modifier, storage class, ...) share one kind; the lexeme distinguishes
// the member.
type TokenKind int

const (
	TokenError TokenKind = iota
	TokenEOF

	TokenIdent

	// Literals
	TokenBoolLiteral
	TokenIntLiteral
	TokenFloatLiteral
	TokenStringLiteral
	TokenCharLiteral

	// Punctuation
	TokenLeftParen
	TokenRightParen
	TokenLeftBrace
	TokenRightBrace
	TokenLeftBracket
	TokenRightBracket
	TokenComma
	TokenDot
	TokenColon
	TokenColonColon
	TokenSemicolon
	TokenQuestion

	// Operators
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent
	TokenPlusPlus
	TokenMinusMinus
	TokenAssign
	TokenPlusAssign
	TokenMinusAssign
	TokenStarAssign
	TokenSlashAssign
	TokenPercentAssign
	TokenAmpAssign
	TokenPipeAssign
	TokenCaretAssign
	TokenShlAssign
	TokenShrAssign
	TokenEqual
	TokenNotEqual
	TokenLess
	TokenGreater
	TokenLessEqual
	TokenGreaterEqual
	TokenAndAnd
	TokenOrOr
	TokenBang
	TokenAmp
	TokenPipe
	TokenCaret
	TokenTilde
	TokenShl
	TokenShr

	// Preprocessor introducers. The lexer tags these; it never
	// interprets them.
	TokenDirective
	TokenDirectiveConcat

	// Type keywords
	TokenVoid
	TokenScalarType    // bool, int, uint, dword, half, float, double
	TokenVectorType    // e.g. float4
	TokenMatrixType    // e.g. float4x4
	TokenVectorGeneric // vector<T, N>
	TokenMatrixGeneric // matrix<T, R, C>
	TokenSamplerType   // sampler*, SamplerState, SamplerComparisonState
	TokenBufferType    // Texture*, RWTexture*, *Buffer
	TokenUniformBuffer // cbuffer, tbuffer
	TokenStringType    // string

	// Statement keywords
	TokenDo
	TokenWhile
	TokenFor
	TokenIf
	TokenElse
	TokenSwitch
	TokenCase
	TokenDefault
	TokenTypedef
	TokenStruct
	TokenRegister
	TokenPackOffset
	TokenCtrlTransfer // break, continue, discard
	TokenReturn
	TokenInline

	// Declaration modifiers
	TokenInputModifier  // in, out, inout, uniform
	TokenInterpModifier // linear, centroid, nointerpolation, noperspective, sample
	TokenTypeModifier   // const, row_major, column_major, snorm, unorm
	TokenStorageClass   // extern, precise, shared, groupshared, static, volatile

	// Reserved for future use, and known-but-unsupported keywords.
	TokenReserved
	TokenUnsupported
)

// Token is one lexical unit of HLSL source.
type Token struct {
	Kind    TokenKind
	Lexeme  string
	Pos     source.Position
	Comment string // preserved comment attached to this token, if any
}

// Span returns the source range covered by the token.
func (t Token) Span() source.Span {
	end := t.Pos
	end.Column += len(t.Lexeme)
	return source.Span{Start: t.Pos, End: end}
}

// String returns a short description used in diagnostics.
func (t Token) String() string {
	switch t.Kind {
	case TokenEOF:
		return "end of stream"
	case TokenIdent:
		return fmt.Sprintf("identifier %q", t.Lexeme)
	default:
		return fmt.Sprintf("%q", t.Lexeme)
	}
}

// IsAssignOp reports whether the token kind is an assignment operator.
func (k TokenKind) IsAssignOp() bool {
	return k >= TokenAssign && k <= TokenShrAssign
}

// IsTypeStart reports whether the token kind can begin a type specifier.
func (k TokenKind) IsTypeStart() bool {
	switch k {
	case TokenVoid, TokenScalarType, TokenVectorType, TokenMatrixType,
		TokenVectorGeneric, TokenMatrixGeneric, TokenSamplerType,
		TokenBufferType, TokenStringType, TokenStruct:
		return true
	}
	return false
}
