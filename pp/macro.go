package pp

import (
	"strconv"
	"strings"

	"github.com/gogpu/xshade/source"
)

// macro is one preprocessor definition.
type macro struct {
	name     string
	funcLike bool
	params   []string
	variadic bool
	body     []tok

	// expanding is the being-expanded marker: while the substituted
	// body of a macro is rescanned the macro is masked so it cannot
	// re-expand inside itself.
	expanding bool
}

// paramIndex returns the parameter position of name, or -1.
func (m *macro) paramIndex(name string) int {
	for i, p := range m.params {
		if p == name {
			return i
		}
	}
	return -1
}

// sameDefinition reports whether two definitions are identical
// (used for the benign-redefinition warning).
func (m *macro) sameDefinition(o *macro) bool {
	if m.funcLike != o.funcLike || m.variadic != o.variadic || len(m.params) != len(o.params) || len(m.body) != len(o.body) {
		return false
	}
	for i := range m.params {
		if m.params[i] != o.params[i] {
			return false
		}
	}
	for i := range m.body {
		if m.body[i].text != o.body[i].text {
			return false
		}
	}
	return true
}

// expandTokens macro-expands a token slice. Arguments of function-like
// macros are substituted as tokenized at the call site (they are not
// eagerly expanded before substitution); the substituted body is then
// rescanned with the invoked macro masked.
func (p *PreProcessor) expandTokens(toks []tok) []tok {
	var out []tok

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind != tokIdent {
			out = append(out, t)
			continue
		}

		// built-in macros honor #line adjustment
		switch t.text {
		case "__FILE__":
			out = append(out, tok{kind: tokString, text: `"` + t.pos.File + `"`, pos: t.pos, ws: t.ws})
			continue
		case "__LINE__":
			out = append(out, tok{kind: tokNumber, text: strconv.Itoa(t.pos.Line), pos: t.pos, ws: t.ws})
			continue
		}

		m := p.macros[t.text]
		if m == nil || m.expanding {
			out = append(out, t)
			continue
		}

		if !m.funcLike {
			body := p.substitute(m, nil, t)
			m.expanding = true
			body = p.expandTokens(body)
			m.expanding = false
			out = append(out, markWS(body, t.ws)...)
			continue
		}

		// Function-like macros require a parenthesized invocation; a
		// bare occurrence of the name is left alone.
		j := i + 1
		for j < len(toks) && toks[j].kind == tokComment {
			j++
		}
		if j >= len(toks) || toks[j].text != "(" {
			out = append(out, t)
			continue
		}

		args, next, ok := p.collectArgs(toks, j, t.pos)
		if !ok {
			out = append(out, t)
			continue
		}
		i = next

		if !m.variadic && len(args) != len(m.params) {
			// f() with one empty argument matches zero parameters
			if !(len(m.params) == 0 && len(args) == 1 && len(args[0]) == 0) {
				p.errorAt(t.pos, "macro %q expects %d argument(s), got %d", m.name, len(m.params), len(args))
				continue
			}
			args = nil
		}
		if m.variadic && len(args) < len(m.params) {
			p.errorAt(t.pos, "macro %q expects at least %d argument(s), got %d", m.name, len(m.params), len(args))
			continue
		}

		body := p.substitute(m, args, t)
		m.expanding = true
		body = p.expandTokens(body)
		m.expanding = false
		out = append(out, markWS(body, t.ws)...)
	}

	return out
}

// markWS transfers the whitespace flag of the replaced token to the
// first expansion token so spacing survives substitution.
func markWS(body []tok, ws bool) []tok {
	if len(body) > 0 {
		body[0].ws = ws
	}
	return body
}

// collectArgs tokenizes the invocation arguments starting at the
// opening parenthesis, tracking balanced parens. It returns the
// argument token slices and the index of the closing parenthesis.
func (p *PreProcessor) collectArgs(toks []tok, open int, at source.Position) (args [][]tok, end int, ok bool) {
	depth := 0
	var cur []tok
	for i := open; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.text == "(" && t.kind == tokPunct:
			depth++
			if depth > 1 {
				cur = append(cur, t)
			}
		case t.text == ")" && t.kind == tokPunct:
			depth--
			if depth == 0 {
				args = append(args, cur)
				return args, i, true
			}
			cur = append(cur, t)
		case t.text == "," && t.kind == tokPunct && depth == 1:
			args = append(args, cur)
			cur = nil
		case t.kind == tokComment:
			// comments vanish inside invocations
		default:
			cur = append(cur, t)
		}
	}
	p.errorAt(at, "unterminated macro invocation")
	return nil, len(toks) - 1, false
}

// substitute produces the replacement body of one invocation:
// parameters are replaced by their raw call-site tokens, '#' stringizes
// without expansion, and '##' concatenates adjacent tokens into a
// single re-tokenized token.
func (p *PreProcessor) substitute(m *macro, args [][]tok, at tok) []tok {
	var out []tok

	argFor := func(t tok) ([]tok, bool) {
		if t.kind != tokIdent {
			return nil, false
		}
		if m.variadic && t.text == "__VA_ARGS__" {
			var va []tok
			for k := len(m.params); k < len(args); k++ {
				if k > len(m.params) {
					va = append(va, tok{kind: tokPunct, text: ","})
				}
				va = append(va, args[k]...)
			}
			return va, true
		}
		if idx := m.paramIndex(t.text); idx >= 0 && idx < len(args) {
			return args[idx], true
		}
		return nil, false
	}

	for i := 0; i < len(m.body); i++ {
		t := m.body[i]

		// '#' operator: stringize the following parameter
		if t.kind == tokHash && i+1 < len(m.body) {
			if arg, ok := argFor(m.body[i+1]); ok {
				out = append(out, tok{
					kind: tokString,
					text: `"` + stringize(arg) + `"`,
					pos:  t.pos,
					ws:   t.ws,
				})
				i++
				continue
			}
		}

		// '##' operator: paste previous and next token
		if t.kind == tokHashHash {
			if len(out) == 0 || i+1 >= len(m.body) {
				p.errorAt(t.pos, "'##' cannot appear at either end of a macro body")
				continue
			}
			var rhs []tok
			if arg, ok := argFor(m.body[i+1]); ok {
				rhs = arg
			} else {
				rhs = []tok{m.body[i+1]}
			}
			i++
			if len(rhs) == 0 {
				continue
			}
			lhs := out[len(out)-1]
			out = out[:len(out)-1]
			pasted := p.paste(lhs, rhs[0])
			out = append(out, pasted)
			out = append(out, rhs[1:]...)
			continue
		}

		if arg, ok := argFor(t); ok {
			// look ahead: operand of '##' substitutes unexpanded as-is
			sub := make([]tok, len(arg))
			copy(sub, arg)
			out = append(out, markWS(sub, t.ws)...)
			continue
		}

		nt := t
		out = append(out, nt)
	}

	return out
}

// paste concatenates two token spellings and re-tokenizes the result
// into a single token.
func (p *PreProcessor) paste(a, b tok) tok {
	text := a.text + b.text
	sc := newScanner(source.New("<paste>", text))
	t := sc.next()
	rest := sc.next()
	if rest.kind != tokEOF {
		p.errorAt(a.pos, "pasting %q and %q does not form a valid token", a.text, b.text)
		return tok{kind: tokOther, text: text, pos: a.pos, ws: a.ws}
	}
	t.pos = a.pos
	t.ws = a.ws
	return t
}

// stringize renders argument tokens as the '#' operator requires:
// spellings joined by single spaces, without macro expansion.
func stringize(arg []tok) string {
	var sb strings.Builder
	for i, t := range arg {
		if i > 0 && t.ws {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.ReplaceAll(t.text, `"`, `\"`))
	}
	return sb.String()
}
