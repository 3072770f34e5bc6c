// Package pp implements the C-style preprocessor of the compiler:
// object- and function-like macros with rescanning, the full
// conditional directive family with a constant-expression evaluator,
// file inclusion through an include handler, #pragma, #line, #error
// and #warning.
//
// The preprocessor is re-entrant: include files are pushed onto the
// source buffer and processed by the same directive loop.
package pp

import (
	"strings"

	"github.com/gogpu/xshade/source"
)

// tokKind classifies preprocessor tokens. The preprocessor has its own
// sub-lexer because, unlike the main lexer, it is newline- and
// whitespace-sensitive.
type tokKind int

const (
	tokEOF tokKind = iota
	tokNewline
	tokIdent
	tokNumber
	tokString
	tokChar
	tokPunct
	tokHash     // #
	tokHashHash // ##
	tokEllipsis // ...
	tokComment
	tokOther
)

// tok is one preprocessor token. ws records whether whitespace
// preceded the token, which matters for emission and for
// distinguishing "#define F(x)" from "#define F (x)".
type tok struct {
	kind tokKind
	text string
	pos  source.Position
	ws   bool
}

// scanner reads preprocessor tokens from a source buffer.
type scanner struct {
	src *source.SourceCode
}

func newScanner(src *source.SourceCode) *scanner {
	return &scanner{src: src}
}

// unget pushes a token's spelling back into the source buffer; the
// next call to next re-reads it.
func (s *scanner) unget(t tok) {
	if t.ws {
		s.src.PushBack(" " + t.text)
		return
	}
	s.src.PushBack(t.text)
}

// next returns the next token, swallowing horizontal whitespace and
// line continuations into the ws flag of the following token.
func (s *scanner) next() tok {
	ws := false
	for {
		r := s.src.Peek()
		switch r {
		case ' ', '\t', '\r':
			s.src.Next()
			ws = true
			continue
		case '\\':
			// line continuation
			if s.src.PeekNext() == '\n' {
				s.src.Next()
				s.src.Next()
				ws = true
				continue
			}
			if s.src.PeekNext() == '\r' {
				s.src.Next()
				s.src.Next()
				if s.src.Peek() == '\n' {
					s.src.Next()
				}
				ws = true
				continue
			}
		}
		break
	}

	pos := s.src.Pos()
	r := s.src.Peek()

	switch {
	case r == 0:
		return tok{kind: tokEOF, pos: pos, ws: ws}

	case r == '\n':
		s.src.Next()
		return tok{kind: tokNewline, text: "\n", pos: pos, ws: ws}

	case r == '/' && s.src.PeekNext() == '/':
		var sb strings.Builder
		for s.src.Peek() != '\n' && s.src.Peek() != 0 {
			sb.WriteRune(s.src.Next())
		}
		return tok{kind: tokComment, text: sb.String(), pos: pos, ws: ws}

	case r == '/' && s.src.PeekNext() == '*':
		var sb strings.Builder
		sb.WriteRune(s.src.Next())
		sb.WriteRune(s.src.Next())
		for {
			c := s.src.Next()
			if c == 0 {
				break
			}
			sb.WriteRune(c)
			if c == '*' && s.src.Peek() == '/' {
				sb.WriteRune(s.src.Next())
				break
			}
		}
		return tok{kind: tokComment, text: sb.String(), pos: pos, ws: ws}

	case r == '#':
		s.src.Next()
		if s.src.Peek() == '#' {
			s.src.Next()
			return tok{kind: tokHashHash, text: "##", pos: pos, ws: ws}
		}
		return tok{kind: tokHash, text: "#", pos: pos, ws: ws}

	case r == '"':
		return tok{kind: tokString, text: s.scanQuoted('"'), pos: pos, ws: ws}

	case r == '\'':
		return tok{kind: tokChar, text: s.scanQuoted('\''), pos: pos, ws: ws}

	case isIdentStart(r):
		var sb strings.Builder
		for isIdentPart(s.src.Peek()) {
			sb.WriteRune(s.src.Next())
		}
		return tok{kind: tokIdent, text: sb.String(), pos: pos, ws: ws}

	case r >= '0' && r <= '9':
		return tok{kind: tokNumber, text: s.scanNumber(), pos: pos, ws: ws}

	case r == '.':
		if n := s.src.PeekNext(); n >= '0' && n <= '9' {
			return tok{kind: tokNumber, text: s.scanNumber(), pos: pos, ws: ws}
		}
		s.src.Next()
		if s.src.Peek() == '.' && s.src.PeekNext() == '.' {
			s.src.Next()
			s.src.Next()
			return tok{kind: tokEllipsis, text: "...", pos: pos, ws: ws}
		}
		return tok{kind: tokPunct, text: ".", pos: pos, ws: ws}

	default:
		return tok{kind: tokPunct, text: s.scanPunct(), pos: pos, ws: ws}
	}
}

func (s *scanner) scanQuoted(quote rune) string {
	var sb strings.Builder
	sb.WriteRune(s.src.Next())
	for {
		c := s.src.Peek()
		if c == 0 || c == '\n' {
			break
		}
		s.src.Next()
		sb.WriteRune(c)
		if c == '\\' {
			if e := s.src.Peek(); e != 0 && e != '\n' {
				sb.WriteRune(s.src.Next())
			}
			continue
		}
		if c == quote {
			break
		}
	}
	return sb.String()
}

func (s *scanner) scanNumber() string {
	var sb strings.Builder
	// leading dot or digits
	for {
		c := s.src.Peek()
		if isIdentPart(c) || c == '.' {
			sb.WriteRune(s.src.Next())
			// exponent sign
			if (c == 'e' || c == 'E') && (s.src.Peek() == '+' || s.src.Peek() == '-') {
				sb.WriteRune(s.src.Next())
			}
			continue
		}
		break
	}
	return sb.String()
}

// multi-char operators the evaluator and passthrough care about
var punct2 = map[string]bool{
	"<<": true, ">>": true, "<=": true, ">=": true, "==": true, "!=": true,
	"&&": true, "||": true, "+=": true, "-=": true, "*=": true, "/=": true,
	"%=": true, "&=": true, "|=": true, "^=": true, "::": true, "->": true,
	"++": true, "--": true,
}

func (s *scanner) scanPunct() string {
	a := s.src.Next()
	b := s.src.Peek()
	two := string(a) + string(b)
	if punct2[two] {
		s.src.Next()
		if (two == "<<" || two == ">>") && s.src.Peek() == '=' {
			s.src.Next()
			return two + "="
		}
		return two
	}
	return string(a)
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
