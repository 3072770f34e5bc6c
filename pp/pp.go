package pp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/xshade/report"
	"github.com/gogpu/xshade/source"
)

// condLevel is one entry of the conditional stack. A level whose
// parent is inactive is skipped entirely: its controlling expressions
// are parsed for structure only and never evaluated.
type condLevel struct {
	parentActive bool
	active       bool
	taken        bool
	seenElse     bool
	pos          source.Position
}

// PreProcessor drives the directive loop and the macro engine.
type PreProcessor struct {
	include source.IncludeHandler
	log     report.Log

	// WarnEnabled gates preprocessor warnings.
	WarnEnabled bool

	// MaxIncludeDepth bounds nested includes (default 64).
	MaxIncludeDepth int

	macros       map[string]*macro
	definedEver  []string
	definedSeen  map[string]struct{}
	onceFiles    map[string]struct{}

	src  *source.SourceCode
	scan *scanner
	out  strings.Builder

	conds  []condLevel
	failed bool
}

// New creates a preprocessor using the given include handler and log.
// Both may be nil.
func New(include source.IncludeHandler, log report.Log) *PreProcessor {
	return &PreProcessor{
		include:         include,
		log:             log,
		MaxIncludeDepth: 64,
		macros:          make(map[string]*macro),
		definedSeen:     make(map[string]struct{}),
		onceFiles:       make(map[string]struct{}),
	}
}

// Define installs an object-like macro before processing, as if by
// "#define name body".
func (p *PreProcessor) Define(name, body string) {
	sc := newScanner(source.New("<predefined>", body))
	var toks []tok
	for {
		t := sc.next()
		if t.kind == tokEOF || t.kind == tokNewline {
			break
		}
		toks = append(toks, t)
	}
	p.register(&macro{name: name, body: toks}, source.Position{})
}

// DefinedMacros returns the identifiers of all macros that were ever
// defined during processing, in first-definition order.
func (p *PreProcessor) DefinedMacros() []string {
	return p.definedEver
}

// Process runs the preprocessor over src and returns the resulting
// character stream. It reports false if any error was submitted.
func (p *PreProcessor) Process(src *source.SourceCode) (string, bool) {
	p.src = src
	p.scan = newScanner(src)
	p.out.Grow(1024)

	atLineStart := true
	for {
		t := p.scan.next()
		switch {
		case t.kind == tokEOF:
			for _, c := range p.conds {
				p.errorAt(c.pos, "unterminated conditional directive")
			}
			return p.out.String(), !p.failed

		case t.kind == tokNewline:
			p.out.WriteByte('\n')
			atLineStart = true

		case t.kind == tokHash && atLineStart:
			p.directive()
			atLineStart = true

		default:
			if p.active() {
				p.contentLine(t)
			} else {
				p.skipLine()
			}
			atLineStart = true
		}
	}
}

func (p *PreProcessor) active() bool {
	for _, c := range p.conds {
		if !c.active {
			return false
		}
	}
	return true
}

/* ----- content lines ----- */

// contentLine expands and emits one logical line. When a function-like
// macro invocation leaves parentheses unbalanced at the line end, the
// following lines are folded into the invocation.
func (p *PreProcessor) contentLine(first tok) {
	line := []tok{first}
	newlines := 0
	terminated := false

	for {
		t := p.scan.next()
		if t.kind == tokEOF {
			break
		}
		if t.kind == tokNewline {
			if p.openInvocation(line) {
				newlines++
				continue
			}
			terminated = true
			break
		}
		line = append(line, t)
	}

	p.emitToks(p.expandTokens(line))
	for i := 0; i < newlines; i++ {
		p.out.WriteByte('\n')
	}
	if terminated {
		p.out.WriteByte('\n')
	}
}

// openInvocation reports whether the line ends inside the argument
// list of a function-like macro invocation.
func (p *PreProcessor) openInvocation(line []tok) bool {
	depth := 0
	open := false
	for i, t := range line {
		if t.kind == tokPunct && t.text == "(" {
			depth++
			if depth == 1 {
				open = false
				if i > 0 && line[i-1].kind == tokIdent {
					if m := p.macros[line[i-1].text]; m != nil && m.funcLike {
						open = true
					}
				}
			}
		} else if t.kind == tokPunct && t.text == ")" {
			if depth > 0 {
				depth--
			}
		}
	}
	return open && depth > 0
}

func (p *PreProcessor) skipLine() {
	for {
		t := p.scan.next()
		if t.kind == tokEOF {
			return
		}
		if t.kind == tokNewline {
			p.out.WriteByte('\n')
			return
		}
	}
}

// emitToks writes tokens with normalized spacing. A separating space is
// inserted where gluing two tokens would form a different token.
func (p *PreProcessor) emitToks(toks []tok) {
	prev := ""
	for i, t := range toks {
		if t.kind == tokComment && !strings.HasPrefix(t.text, "//") && strings.Contains(t.text, "\n") {
			// block comments keep their own layout
			p.out.WriteString(t.text)
			prev = ""
			continue
		}
		if i > 0 && (t.ws || needSep(prev, t.text)) {
			p.out.WriteByte(' ')
		}
		p.out.WriteString(t.text)
		prev = t.text
	}
}

func needSep(prev, cur string) bool {
	if prev == "" || cur == "" {
		return false
	}
	a := rune(prev[len(prev)-1])
	b := rune(cur[0])
	if isIdentPart(a) && isIdentPart(b) {
		return true
	}
	// avoid accidental operator pasting like '+' '+' -> "++"
	if strings.ContainsRune("+-<>&|=*/%^!", a) && strings.ContainsRune("+-<>&|=", b) {
		return true
	}
	return false
}

/* ----- directives ----- */

// restOfLine consumes tokens through the end of the line, dropping
// comments. The newline itself is consumed and reflected by one '\n'
// written by the caller.
func (p *PreProcessor) restOfLine() []tok {
	var toks []tok
	for {
		t := p.scan.next()
		switch t.kind {
		case tokEOF, tokNewline:
			return toks
		case tokComment:
			// dropped
		default:
			toks = append(toks, t)
		}
	}
}

func (p *PreProcessor) directive() {
	name := p.scan.next()
	if name.kind == tokNewline || name.kind == tokEOF {
		// null directive
		if name.kind == tokNewline {
			p.out.WriteByte('\n')
		}
		return
	}
	if name.kind != tokIdent {
		if p.active() {
			p.errorAt(name.pos, "invalid preprocessor directive %q", name.text)
		}
		p.restOfLine()
		p.out.WriteByte('\n')
		return
	}

	switch name.text {
	case "define":
		if p.active() {
			p.parseDefine(name.pos)
		} else {
			p.restOfLine()
		}
	case "undef":
		toks := p.restOfLine()
		if p.active() {
			if len(toks) != 1 || toks[0].kind != tokIdent {
				p.errorAt(name.pos, "#undef expects a single identifier")
			} else {
				delete(p.macros, toks[0].text)
			}
		}
	case "if":
		toks := p.restOfLine()
		pa := p.active()
		taken := false
		if pa {
			v, err := p.evalCondition(toks, name.pos)
			if err != nil {
				p.errorAt(name.pos, "%s", err.Error())
			}
			taken = v
		}
		p.conds = append(p.conds, condLevel{parentActive: pa, active: pa && taken, taken: taken, pos: name.pos})
	case "ifdef", "ifndef":
		toks := p.restOfLine()
		pa := p.active()
		taken := false
		if pa {
			if len(toks) != 1 || toks[0].kind != tokIdent {
				p.errorAt(name.pos, "#%s expects a single identifier", name.text)
			} else {
				_, defined := p.macros[toks[0].text]
				taken = defined == (name.text == "ifdef")
			}
		}
		p.conds = append(p.conds, condLevel{parentActive: pa, active: pa && taken, taken: taken, pos: name.pos})
	case "elif":
		toks := p.restOfLine()
		if len(p.conds) == 0 {
			p.errorAt(name.pos, "#elif without matching #if")
			break
		}
		lvl := &p.conds[len(p.conds)-1]
		if lvl.seenElse {
			p.errorAt(name.pos, "#elif after #else")
			break
		}
		lvl.active = false
		if lvl.parentActive && !lvl.taken {
			v, err := p.evalCondition(toks, name.pos)
			if err != nil {
				p.errorAt(name.pos, "%s", err.Error())
			}
			lvl.active = v
			lvl.taken = v
		}
	case "else":
		p.restOfLine()
		if len(p.conds) == 0 {
			p.errorAt(name.pos, "#else without matching #if")
			break
		}
		lvl := &p.conds[len(p.conds)-1]
		if lvl.seenElse {
			p.errorAt(name.pos, "duplicate #else")
			break
		}
		lvl.active = lvl.parentActive && !lvl.taken
		lvl.taken = true
		lvl.seenElse = true
	case "endif":
		p.restOfLine()
		if len(p.conds) == 0 {
			p.errorAt(name.pos, "#endif without matching #if")
			break
		}
		p.conds = p.conds[:len(p.conds)-1]
	case "include":
		toks := p.restOfLine()
		if p.active() {
			p.handleInclude(toks, name.pos)
		}
	case "pragma":
		toks := p.restOfLine()
		if p.active() {
			p.handlePragma(toks, name.pos)
		}
	case "line":
		toks := p.restOfLine()
		if p.active() {
			p.handleLine(toks, name.pos)
			p.out.WriteByte('\n')
			return
		}
	case "error":
		toks := p.restOfLine()
		if p.active() {
			p.errorAt(name.pos, "#error: %s", spellToks(toks))
		}
	case "warning":
		toks := p.restOfLine()
		if p.active() {
			p.warnAt(name.pos, "#warning: %s", spellToks(toks))
		}
	default:
		p.restOfLine()
		if p.active() {
			p.errorAt(name.pos, "unknown preprocessor directive #%s", name.text)
		}
	}

	p.out.WriteByte('\n')
}

func (p *PreProcessor) parseDefine(at source.Position) {
	name := p.scan.next()
	if name.kind != tokIdent {
		p.errorAt(at, "#define expects a macro name")
		p.restOfLine()
		return
	}

	m := &macro{name: name.text}

	// A '(' with no preceding whitespace opens a parameter list.
	t := p.scan.next()
	if t.kind == tokPunct && t.text == "(" && !t.ws {
		m.funcLike = true
		for {
			t = p.scan.next()
			if t.kind == tokPunct && t.text == ")" {
				break
			}
			if t.kind == tokEllipsis {
				m.variadic = true
				continue
			}
			if t.kind == tokIdent {
				m.params = append(m.params, t.text)
				continue
			}
			if t.kind == tokPunct && t.text == "," {
				continue
			}
			p.errorAt(t.pos, "invalid macro parameter list")
			p.restOfLine()
			return
		}
	} else {
		p.scan.unget(t)
	}

	for {
		t = p.scan.next()
		if t.kind == tokNewline || t.kind == tokEOF {
			break
		}
		if t.kind != tokComment {
			m.body = append(m.body, t)
		}
	}
	if len(m.body) > 0 {
		m.body[0].ws = false
	}

	p.register(m, at)
}

func (p *PreProcessor) register(m *macro, at source.Position) {
	if prev, ok := p.macros[m.name]; ok && !prev.sameDefinition(m) {
		p.warnAt(at, "redefinition of macro %q", m.name)
	}
	p.macros[m.name] = m
	if _, seen := p.definedSeen[m.name]; !seen {
		p.definedSeen[m.name] = struct{}{}
		p.definedEver = append(p.definedEver, m.name)
	}
}

func (p *PreProcessor) handleInclude(toks []tok, at source.Position) {
	toks = p.expandTokens(toks)
	if len(toks) == 0 {
		p.errorAt(at, "#include expects a file name")
		return
	}

	var path string
	system := false
	switch {
	case toks[0].kind == tokString:
		path = strings.Trim(toks[0].text, `"`)
	case toks[0].kind == tokPunct && toks[0].text == "<":
		system = true
		var sb strings.Builder
		closed := false
		for _, t := range toks[1:] {
			if t.kind == tokPunct && t.text == ">" {
				closed = true
				break
			}
			if t.ws && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(t.text)
		}
		if !closed {
			p.errorAt(at, "missing '>' in #include directive")
			return
		}
		path = sb.String()
	default:
		p.errorAt(at, "#include expects \"file\" or <file>")
		return
	}

	if p.src.IncludeDepth() >= p.MaxIncludeDepth {
		p.errorAt(at, "maximum include depth (%d) exceeded; recursive include of %q?", p.MaxIncludeDepth, path)
		return
	}
	if p.include == nil {
		p.errorAt(at, "no include handler set; cannot resolve %q", path)
		return
	}

	inc, err := p.include.Resolve(path, system)
	if err != nil {
		p.errorAt(at, "%s", err.Error())
		return
	}
	if _, once := p.onceFiles[inc.Name()]; once {
		return
	}
	p.src.PushInclude(inc.Name(), inc.Text())
}

func (p *PreProcessor) handlePragma(toks []tok, at source.Position) {
	if len(toks) == 1 && toks[0].kind == tokIdent && toks[0].text == "once" {
		p.onceFiles[p.src.Name()] = struct{}{}
		return
	}
	p.warnAt(at, "unknown #pragma: %s", spellToks(toks))
}

func (p *PreProcessor) handleLine(toks []tok, at source.Position) {
	toks = p.expandTokens(toks)
	if len(toks) == 0 || toks[0].kind != tokNumber {
		p.errorAt(at, "#line expects a line number")
		return
	}
	line, err := strconv.Atoi(toks[0].text)
	if err != nil || line < 0 {
		p.errorAt(at, "invalid line number %q in #line directive", toks[0].text)
		return
	}
	file := ""
	if len(toks) > 1 {
		if toks[1].kind != tokString {
			p.errorAt(at, "#line expects an optional file name string")
			return
		}
		file = strings.Trim(toks[1].text, `"`)
	}
	p.src.SetLine(line, file)
}

func spellToks(toks []tok) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && t.ws {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.text)
	}
	return sb.String()
}

/* ----- diagnostics ----- */

func (p *PreProcessor) errorAt(pos source.Position, format string, args ...any) {
	p.failed = true
	if p.log == nil {
		return
	}
	p.log.Submit(report.Report{
		Kind:    report.Error,
		Code:    report.CodePreprocess,
		Message: fmt.Sprintf(format, args...),
		Span:    source.At(pos),
	})
}

func (p *PreProcessor) warnAt(pos source.Position, format string, args ...any) {
	if p.log == nil || !p.WarnEnabled {
		return
	}
	p.log.Submit(report.Report{
		Kind:    report.Warning,
		Code:    report.CodePreprocess,
		Message: fmt.Sprintf(format, args...),
		Span:    source.At(pos),
	})
}
