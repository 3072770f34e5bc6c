package hlsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/xshade/ast"
	"github.com/gogpu/xshade/source"
)

// SyntaxError is a parsing error. The parser reports one per
// synchronized region and never produces a partial AST past a fatal
// error.
type SyntaxError struct {
	Message string
	Tok     Token
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tok.Pos, e.Message)
}

// Parser parses HLSL tokens into an AST program.
type Parser struct {
	tokens  []Token
	current int
	errs    []*SyntaxError

	// typeNames is the lexical-only set of known type names, populated
	// as struct and typedef declarations are parsed. It disambiguates
	// type specifiers from expression starts.
	typeNames map[string]struct{}
}

// NewParser creates a parser for the given token stream.
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens:    tokens,
		typeNames: make(map[string]struct{}),
	}
}

// ParseProgram parses the token stream into a program. All syntax
// errors encountered are returned; the program is only meaningful when
// the error slice is empty.
func (p *Parser) ParseProgram() (*ast.Program, []*SyntaxError) {
	prog := &ast.Program{}

	for !p.isAtEnd() {
		if p.check(TokenSemicolon) {
			p.advance()
			continue
		}
		comment := p.peek().Comment
		decl, err := p.globalDecl()
		if err != nil {
			p.errs = append(p.errs, err)
			p.synchronize()
			continue
		}
		if decl != nil {
			attachComment(decl, comment)
			prog.Decls = append(prog.Decls, decl)
		}
	}

	return prog, p.errs
}

// attachComment stores a preserved source comment on the declaration
// it precedes.
func attachComment(d ast.Decl, comment string) {
	if comment == "" {
		return
	}
	switch x := d.(type) {
	case *ast.FunctionDecl:
		x.Comment = comment
	case *ast.VarDeclStmt:
		x.Comment = comment
	case *ast.StructDecl:
		x.Comment = comment
	case *ast.BufferDecl:
		x.Comment = comment
	case *ast.SamplerDecl:
		x.Comment = comment
	case *ast.UniformBufferDecl:
		x.Comment = comment
	}
}

/* ----- declarations ----- */

func (p *Parser) globalDecl() (ast.Decl, *SyntaxError) {
	attribs, err := p.attributes()
	if err != nil {
		return nil, err
	}

	switch {
	case p.check(TokenStruct):
		return p.structDeclOrVar()

	case p.check(TokenTypedef):
		return p.aliasDecl()

	case p.check(TokenUniformBuffer):
		return p.uniformBufferDecl()

	case p.check(TokenSamplerType):
		return p.samplerDecl()

	case p.check(TokenBufferType):
		return p.bufferDecl()

	case p.checkTypeStart() || p.checkModifier() || p.check(TokenInline):
		return p.functionOrVarDecl(attribs)

	case p.check(TokenReserved):
		return nil, p.errorHere("keyword %s is reserved", p.peek())

	case p.check(TokenUnsupported):
		return nil, p.errorHere("keyword %s is not supported", p.peek())

	default:
		return nil, p.errorHere("unexpected %s, expected declaration", p.peek())
	}
}

// checkModifier reports whether the current token is a declaration
// modifier (storage class, interpolation, type modifier, input
// modifier).
func (p *Parser) checkModifier() bool {
	switch p.peek().Kind {
	case TokenStorageClass, TokenInterpModifier, TokenTypeModifier, TokenInputModifier:
		return true
	}
	return false
}

// checkTypeStart reports whether the current token can begin a type
// specifier, consulting the known-type-name set for identifiers.
func (p *Parser) checkTypeStart() bool {
	t := p.peek()
	if t.Kind.IsTypeStart() {
		return true
	}
	if t.Kind == TokenIdent {
		_, known := p.typeNames[t.Lexeme]
		return known
	}
	return false
}

// structDeclOrVar parses "struct S { ... };" or
// "struct S { ... } name;" (struct used as a variable's type).
func (p *Parser) structDeclOrVar() (ast.Decl, *SyntaxError) {
	sd, err := p.structDecl()
	if err != nil {
		return nil, err
	}
	if p.check(TokenSemicolon) {
		p.advance()
		return sd, nil
	}
	// trailing declarators
	ts := &ast.TypeSpecifier{Span: sd.Span, StructDecl: sd, Den: sd.Den()}
	return p.varDeclStmtTail(ts)
}

func (p *Parser) structDecl() (*ast.StructDecl, *SyntaxError) {
	start := p.expect(TokenStruct)

	sd := &ast.StructDecl{Span: source.At(start.Pos)}
	if p.check(TokenIdent) {
		sd.Name = p.advance().Lexeme
		p.typeNames[sd.Name] = struct{}{}
	}

	if err := p.consume(TokenLeftBrace); err != nil {
		return nil, err
	}
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		ts, err := p.typeSpecifier()
		if err != nil {
			return nil, err
		}
		member, err := p.varDeclStmtTailStmt(ts)
		if err != nil {
			return nil, err
		}
		sd.Members = append(sd.Members, member)
	}
	if err := p.consume(TokenRightBrace); err != nil {
		return nil, err
	}
	return sd, nil
}

func (p *Parser) aliasDecl() (ast.Decl, *SyntaxError) {
	start := p.expect(TokenTypedef)
	ts, err := p.typeSpecifier()
	if err != nil {
		return nil, err
	}
	name := p.peek()
	if name.Kind != TokenIdent {
		return nil, p.errorHere("expected typedef name, got %s", name)
	}
	p.advance()
	p.typeNames[name.Lexeme] = struct{}{}
	if err := p.consume(TokenSemicolon); err != nil {
		return nil, err
	}
	return &ast.AliasDecl{
		Span: source.At(start.Pos),
		Name: name.Lexeme,
		Type: ts,
	}, nil
}

func (p *Parser) uniformBufferDecl() (ast.Decl, *SyntaxError) {
	kw := p.advance()
	name := p.peek()
	if name.Kind != TokenIdent {
		return nil, p.errorHere("expected %s name, got %s", kw.Lexeme, name)
	}
	p.advance()

	d := &ast.UniformBufferDecl{
		Span:    source.At(kw.Pos),
		Keyword: kw.Lexeme,
		Name:    name.Lexeme,
	}

	for p.check(TokenColon) {
		p.advance()
		reg, _, _, err := p.declDecorator()
		if err != nil {
			return nil, err
		}
		if reg != nil {
			d.Register = reg
		}
	}

	if err := p.consume(TokenLeftBrace); err != nil {
		return nil, err
	}
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		ts, err := p.typeSpecifier()
		if err != nil {
			return nil, err
		}
		member, err := p.varDeclStmtTailStmt(ts)
		if err != nil {
			return nil, err
		}
		d.Members = append(d.Members, member)
	}
	if err := p.consume(TokenRightBrace); err != nil {
		return nil, err
	}
	if p.check(TokenSemicolon) {
		p.advance()
	}
	return d, nil
}

func (p *Parser) samplerDecl() (ast.Decl, *SyntaxError) {
	kw := p.advance()
	name := p.peek()
	if name.Kind != TokenIdent {
		return nil, p.errorHere("expected sampler name, got %s", name)
	}
	p.advance()

	d := &ast.SamplerDecl{
		Span: source.At(kw.Pos),
		Name: name.Lexeme,
		Type: &ast.SamplerType{
			Name:       kw.Lexeme,
			Comparison: kw.Lexeme == "SamplerComparisonState",
		},
	}

	for p.check(TokenColon) {
		p.advance()
		reg, _, _, err := p.declDecorator()
		if err != nil {
			return nil, err
		}
		if reg != nil {
			d.Register = reg
		}
	}

	// legacy sampler_state block
	if p.check(TokenLeftBrace) {
		p.advance()
		depth := 1
		var sb strings.Builder
		for depth > 0 && !p.isAtEnd() {
			t := p.advance()
			switch t.Kind {
			case TokenLeftBrace:
				depth++
			case TokenRightBrace:
				depth--
				continue
			}
			if depth > 0 {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t.Lexeme)
				if t.Kind == TokenSemicolon {
					d.StateValues = append(d.StateValues, strings.TrimSuffix(strings.TrimSpace(sb.String()), ";"))
					sb.Reset()
				}
			}
		}
	}

	if err := p.consume(TokenSemicolon); err != nil {
		return nil, err
	}
	return d, nil
}

func (p *Parser) bufferDecl() (ast.Decl, *SyntaxError) {
	kw := p.advance()

	bt := &ast.BufferType{Kind: kw.Lexeme}
	// Generic brackets are only legal immediately after a buffer type
	// keyword; elsewhere '<' is the less-than operator.
	if p.check(TokenLess) {
		p.advance()
		ts, err := p.typeSpecifier()
		if err != nil {
			return nil, err
		}
		bt.Generic = ts.Den
		if bt.Generic == nil && ts.Name != "" {
			bt.Generic = &ast.AliasType{Name: ts.Name}
		}
		if err := p.consume(TokenGreater); err != nil {
			return nil, err
		}
	}

	name := p.peek()
	if name.Kind != TokenIdent {
		return nil, p.errorHere("expected buffer name, got %s", name)
	}
	p.advance()

	d := &ast.BufferDecl{
		Span: source.At(kw.Pos),
		Name: name.Lexeme,
		Type: bt,
	}

	dims, err := p.arrayDims()
	if err != nil {
		return nil, err
	}
	d.ArrayDims = dims

	for p.check(TokenColon) {
		p.advance()
		reg, _, _, err := p.declDecorator()
		if err != nil {
			return nil, err
		}
		if reg != nil {
			d.Register = reg
		}
	}

	if err := p.consume(TokenSemicolon); err != nil {
		return nil, err
	}
	return d, nil
}

// functionOrVarDecl parses a declaration that begins with a type
// specifier: either a function (type name '(') or a variable
// declaration statement.
func (p *Parser) functionOrVarDecl(attribs []*ast.Attribute) (ast.Decl, *SyntaxError) {
	if p.check(TokenInline) {
		p.advance()
	}
	ts, err := p.typeSpecifier()
	if err != nil {
		return nil, err
	}

	if p.check(TokenIdent) && p.peekAt(1).Kind == TokenLeftParen {
		return p.functionDecl(ts, attribs)
	}
	return p.varDeclStmtTail(ts)
}

func (p *Parser) functionDecl(ts *ast.TypeSpecifier, attribs []*ast.Attribute) (ast.Decl, *SyntaxError) {
	name := p.advance()
	p.expect(TokenLeftParen)

	fn := &ast.FunctionDecl{
		Span:       source.At(name.Pos),
		Name:       name.Lexeme,
		ReturnType: ts,
		Attribs:    attribs,
	}

	for !p.check(TokenRightParen) && !p.isAtEnd() {
		param, err := p.parameter()
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, param)
		if !p.check(TokenComma) {
			break
		}
		p.advance()
	}
	if err := p.consume(TokenRightParen); err != nil {
		return nil, err
	}

	if p.check(TokenColon) {
		p.advance()
		_, sem, _, err := p.declDecorator()
		if err != nil {
			return nil, err
		}
		fn.Semantic = sem
	}

	if p.check(TokenSemicolon) {
		p.advance()
		return fn, nil
	}

	body, err := p.codeBlock()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (p *Parser) parameter() (*ast.VarDecl, *SyntaxError) {
	ts, err := p.typeSpecifier()
	if err != nil {
		return nil, err
	}
	name := p.peek()
	if name.Kind != TokenIdent {
		return nil, p.errorHere("expected parameter name, got %s", name)
	}
	p.advance()

	v := &ast.VarDecl{
		Span:  source.At(name.Pos),
		Name:  name.Lexeme,
		Param: ts,
	}

	dims, err := p.arrayDims()
	if err != nil {
		return nil, err
	}
	v.ArrayDims = dims

	if p.check(TokenColon) {
		p.advance()
		_, sem, _, err := p.declDecorator()
		if err != nil {
			return nil, err
		}
		v.Semantic = sem
	}

	if p.check(TokenAssign) {
		p.advance()
		init, err := p.initializer()
		if err != nil {
			return nil, err
		}
		v.Init = init
	}
	return v, nil
}

// varDeclStmtTail parses the declarator list after the type specifier
// and the terminating semicolon.
func (p *Parser) varDeclStmtTail(ts *ast.TypeSpecifier) (*ast.VarDeclStmt, *SyntaxError) {
	return p.varDeclStmtTailStmt(ts)
}

func (p *Parser) varDeclStmtTailStmt(ts *ast.TypeSpecifier) (*ast.VarDeclStmt, *SyntaxError) {
	stmt := &ast.VarDeclStmt{Span: ts.Span, Type: ts}

	for {
		name := p.peek()
		if name.Kind != TokenIdent {
			return nil, p.errorHere("expected variable name, got %s", name)
		}
		p.advance()

		v := &ast.VarDecl{
			Span:     source.At(name.Pos),
			Name:     name.Lexeme,
			DeclStmt: stmt,
		}

		dims, err := p.arrayDims()
		if err != nil {
			return nil, err
		}
		v.ArrayDims = dims

		for p.check(TokenColon) {
			p.advance()
			reg, sem, pack, err := p.declDecorator()
			if err != nil {
				return nil, err
			}
			switch {
			case reg != nil:
				v.Register = reg
			case pack != "":
				v.PackOffset = pack
			default:
				v.Semantic = sem
			}
		}

		// annotations are parsed and dropped
		if p.check(TokenLess) {
			if err := p.skipAnnotation(); err != nil {
				return nil, err
			}
		}

		if p.check(TokenAssign) {
			p.advance()
			init, err := p.initializer()
			if err != nil {
				return nil, err
			}
			v.Init = init
		}

		stmt.Vars = append(stmt.Vars, v)

		if !p.check(TokenComma) {
			break
		}
		p.advance()
	}

	if err := p.consume(TokenSemicolon); err != nil {
		return nil, err
	}
	return stmt, nil
}

// declDecorator parses one trailing decorator after ':' — a register,
// a packoffset, or a semantic.
func (p *Parser) declDecorator() (*ast.Register, ast.Semantic, string, *SyntaxError) {
	switch p.peek().Kind {
	case TokenRegister:
		start := p.advance()
		if err := p.consume(TokenLeftParen); err != nil {
			return nil, "", "", err
		}
		slot := p.peek()
		if slot.Kind != TokenIdent {
			return nil, "", "", p.errorHere("expected register slot, got %s", slot)
		}
		p.advance()
		// skip optional shader profile prefix: register(ps_5_0, t0)
		if p.check(TokenComma) {
			p.advance()
			slot = p.peek()
			if slot.Kind != TokenIdent {
				return nil, "", "", p.errorHere("expected register slot, got %s", slot)
			}
			p.advance()
		}
		if err := p.consume(TokenRightParen); err != nil {
			return nil, "", "", err
		}
		reg := &ast.Register{Span: source.At(start.Pos)}
		if len(slot.Lexeme) >= 2 {
			reg.Class = rune(slot.Lexeme[0])
			if n, err := strconv.Atoi(slot.Lexeme[1:]); err == nil {
				reg.Slot = n
			}
		}
		return reg, "", "", nil

	case TokenPackOffset:
		p.advance()
		if err := p.consume(TokenLeftParen); err != nil {
			return nil, "", "", err
		}
		var sb strings.Builder
		for !p.check(TokenRightParen) && !p.isAtEnd() {
			sb.WriteString(p.advance().Lexeme)
		}
		if err := p.consume(TokenRightParen); err != nil {
			return nil, "", "", err
		}
		return nil, "", sb.String(), nil

	default:
		t := p.peek()
		if t.Kind != TokenIdent {
			return nil, "", "", p.errorHere("expected semantic, register or packoffset, got %s", t)
		}
		p.advance()
		return nil, ast.Semantic(t.Lexeme), "", nil
	}
}

func (p *Parser) skipAnnotation() *SyntaxError {
	p.expect(TokenLess)
	depth := 1
	for depth > 0 && !p.isAtEnd() {
		switch p.advance().Kind {
		case TokenLess:
			depth++
		case TokenGreater:
			depth--
		}
	}
	if depth > 0 {
		return p.errorHere("unterminated annotation")
	}
	return nil
}

func (p *Parser) arrayDims() ([]*ast.ArrayDimension, *SyntaxError) {
	var dims []*ast.ArrayDimension
	for p.check(TokenLeftBracket) {
		start := p.advance()
		dim := &ast.ArrayDimension{Span: source.At(start.Pos), Size: -1}
		if !p.check(TokenRightBracket) {
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			dim.Expr = expr
		}
		if err := p.consume(TokenRightBracket); err != nil {
			return nil, err
		}
		dims = append(dims, dim)
	}
	return dims, nil
}

// attributes parses a list of bracketed attributes:
// [numthreads(8, 8, 1)], [unroll], ...
func (p *Parser) attributes() ([]*ast.Attribute, *SyntaxError) {
	var attribs []*ast.Attribute
	for p.check(TokenLeftBracket) {
		// do not confuse with array access in a following expression:
		// attributes only ever precede declarations and statements, and
		// always start with an identifier
		if p.peekAt(1).Kind != TokenIdent && p.peekAt(1).Kind != TokenCtrlTransfer {
			break
		}
		start := p.advance()
		name := p.advance()
		a := &ast.Attribute{Span: source.At(start.Pos), Name: name.Lexeme}
		if p.check(TokenLeftParen) {
			p.advance()
			for !p.check(TokenRightParen) && !p.isAtEnd() {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				a.Args = append(a.Args, arg)
				if !p.check(TokenComma) {
					break
				}
				p.advance()
			}
			if err := p.consume(TokenRightParen); err != nil {
				return nil, err
			}
		}
		if err := p.consume(TokenRightBracket); err != nil {
			return nil, err
		}
		attribs = append(attribs, a)
	}
	return attribs, nil
}

/* ----- type specifiers ----- */

// typeSpecifier parses modifiers followed by a base type.
func (p *Parser) typeSpecifier() (*ast.TypeSpecifier, *SyntaxError) {
	start := p.peek()
	ts := &ast.TypeSpecifier{Span: source.At(start.Pos)}

	for {
		t := p.peek()
		switch t.Kind {
		case TokenStorageClass:
			ts.StorageClasses = append(ts.StorageClasses, t.Lexeme)
		case TokenInterpModifier:
			ts.InterpModifiers = append(ts.InterpModifiers, t.Lexeme)
		case TokenTypeModifier:
			ts.TypeModifiers = append(ts.TypeModifiers, t.Lexeme)
		case TokenInputModifier:
			ts.InputModifier = t.Lexeme
		default:
			goto base
		}
		p.advance()
	}

base:
	t := p.peek()
	switch t.Kind {
	case TokenVoid:
		p.advance()
		ts.Den = &ast.VoidType{}

	case TokenScalarType, TokenVectorType, TokenMatrixType:
		p.advance()
		ts.Den = dataTypeFromName(t.Lexeme)

	case TokenVectorGeneric:
		p.advance()
		den, err := p.genericVector()
		if err != nil {
			return nil, err
		}
		ts.Den = den

	case TokenMatrixGeneric:
		p.advance()
		den, err := p.genericMatrix()
		if err != nil {
			return nil, err
		}
		ts.Den = den

	case TokenSamplerType:
		p.advance()
		ts.Den = &ast.SamplerType{Name: t.Lexeme, Comparison: t.Lexeme == "SamplerComparisonState"}

	case TokenBufferType:
		p.advance()
		bt := &ast.BufferType{Kind: t.Lexeme}
		if p.check(TokenLess) {
			p.advance()
			sub, err := p.typeSpecifier()
			if err != nil {
				return nil, err
			}
			bt.Generic = sub.Den
			if bt.Generic == nil && sub.Name != "" {
				bt.Generic = &ast.AliasType{Name: sub.Name}
			}
			if err := p.consume(TokenGreater); err != nil {
				return nil, err
			}
		}
		ts.Den = bt

	case TokenStruct:
		sd, err := p.structDecl()
		if err != nil {
			return nil, err
		}
		ts.StructDecl = sd
		ts.Den = sd.Den()

	case TokenIdent:
		p.advance()
		ts.Name = t.Lexeme

	default:
		return nil, p.errorHere("expected type, got %s", t)
	}

	return ts, nil
}

func (p *Parser) genericVector() (*ast.BaseType, *SyntaxError) {
	if err := p.consume(TokenLess); err != nil {
		return nil, err
	}
	scalar := p.peek()
	if scalar.Kind != TokenScalarType {
		return nil, p.errorHere("expected scalar type in vector<>, got %s", scalar)
	}
	p.advance()
	if err := p.consume(TokenComma); err != nil {
		return nil, err
	}
	size := p.peek()
	if size.Kind != TokenIntLiteral {
		return nil, p.errorHere("expected vector dimension, got %s", size)
	}
	p.advance()
	if err := p.consume(TokenGreater); err != nil {
		return nil, err
	}
	n, _ := strconv.Atoi(size.Lexeme)
	base := dataTypeFromName(scalar.Lexeme)
	return ast.Vector(base.Scalar, n), nil
}

func (p *Parser) genericMatrix() (*ast.BaseType, *SyntaxError) {
	if err := p.consume(TokenLess); err != nil {
		return nil, err
	}
	scalar := p.peek()
	if scalar.Kind != TokenScalarType {
		return nil, p.errorHere("expected scalar type in matrix<>, got %s", scalar)
	}
	p.advance()
	if err := p.consume(TokenComma); err != nil {
		return nil, err
	}
	rows := p.peek()
	if rows.Kind != TokenIntLiteral {
		return nil, p.errorHere("expected matrix rows, got %s", rows)
	}
	p.advance()
	if err := p.consume(TokenComma); err != nil {
		return nil, err
	}
	cols := p.peek()
	if cols.Kind != TokenIntLiteral {
		return nil, p.errorHere("expected matrix columns, got %s", cols)
	}
	p.advance()
	if err := p.consume(TokenGreater); err != nil {
		return nil, err
	}
	r, _ := strconv.Atoi(rows.Lexeme)
	c, _ := strconv.Atoi(cols.Lexeme)
	base := dataTypeFromName(scalar.Lexeme)
	return ast.Matrix(base.Scalar, r, c), nil
}

// dataTypeFromName decodes "float", "float3" or "float3x4" into a base
// type denoter.
func dataTypeFromName(name string) *ast.BaseType {
	scalars := []struct {
		prefix string
		kind   ast.ScalarKind
	}{
		{"double", ast.ScalarDouble},
		{"float", ast.ScalarFloat},
		{"dword", ast.ScalarUInt},
		{"bool", ast.ScalarBool},
		{"uint", ast.ScalarUInt},
		{"half", ast.ScalarHalf},
		{"int", ast.ScalarInt},
	}
	for _, s := range scalars {
		if !strings.HasPrefix(name, s.prefix) {
			continue
		}
		rest := name[len(s.prefix):]
		switch len(rest) {
		case 0:
			return ast.Scalar(s.kind)
		case 1:
			n := int(rest[0] - '0')
			return ast.Vector(s.kind, n)
		case 3:
			if rest[1] == 'x' {
				r := int(rest[0] - '0')
				c := int(rest[2] - '0')
				return ast.Matrix(s.kind, r, c)
			}
		}
	}
	return ast.Scalar(ast.ScalarFloat)
}

/* ----- statements ----- */

func (p *Parser) codeBlock() (*ast.CodeBlock, *SyntaxError) {
	start := p.peek()
	if err := p.consume(TokenLeftBrace); err != nil {
		return nil, err
	}
	block := &ast.CodeBlock{Span: source.At(start.Pos)}
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	if err := p.consume(TokenRightBrace); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) statement() (ast.Stmt, *SyntaxError) {
	// statement attributes ([unroll], [branch], ...) are parsed and
	// dropped
	if p.check(TokenLeftBracket) && p.peekAt(1).Kind == TokenIdent {
		if _, err := p.attributes(); err != nil {
			return nil, err
		}
	}

	t := p.peek()
	switch t.Kind {
	case TokenSemicolon:
		p.advance()
		return &ast.NullStmt{Span: source.At(t.Pos)}, nil

	case TokenLeftBrace:
		return p.codeBlock()

	case TokenIf:
		return p.ifStmt()

	case TokenFor:
		return p.forStmt()

	case TokenWhile:
		return p.whileStmt()

	case TokenDo:
		return p.doWhileStmt()

	case TokenSwitch:
		return p.switchStmt()

	case TokenReturn:
		p.advance()
		stmt := &ast.ReturnStmt{Span: source.At(t.Pos)}
		if !p.check(TokenSemicolon) {
			expr, err := p.parseSequence()
			if err != nil {
				return nil, err
			}
			stmt.Expr = expr
		}
		if err := p.consume(TokenSemicolon); err != nil {
			return nil, err
		}
		return stmt, nil

	case TokenCtrlTransfer:
		p.advance()
		if err := p.consume(TokenSemicolon); err != nil {
			return nil, err
		}
		return &ast.CtrlTransferStmt{Span: source.At(t.Pos), Transfer: t.Lexeme}, nil

	case TokenStruct:
		d, err := p.structDeclOrVar()
		if err != nil {
			return nil, err
		}
		if s, ok := d.(ast.Stmt); ok {
			return s, nil
		}
		return nil, p.errorHere("invalid struct declaration in statement context")

	case TokenTypedef:
		d, err := p.aliasDecl()
		if err != nil {
			return nil, err
		}
		return d.(*ast.AliasDecl), nil
	}

	// variable declaration vs expression statement: try a declaration
	// when a type can start here, falling back to an expression.
	if p.checkTypeStart() || p.checkModifier() {
		mark := p.current
		if stmt, err := p.tryVarDeclStmt(); err == nil {
			return stmt, nil
		}
		p.current = mark
	}

	expr, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if err := p.consume(TokenSemicolon); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Span: expr.Pos(), Expr: expr}, nil
}

func (p *Parser) tryVarDeclStmt() (*ast.VarDeclStmt, *SyntaxError) {
	ts, err := p.typeSpecifier()
	if err != nil {
		return nil, err
	}
	if !p.check(TokenIdent) {
		return nil, p.errorHere("not a declaration")
	}
	return p.varDeclStmtTailStmt(ts)
}

func (p *Parser) ifStmt() (ast.Stmt, *SyntaxError) {
	start := p.expect(TokenIf)
	if err := p.consume(TokenLeftParen); err != nil {
		return nil, err
	}
	cond, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if err := p.consume(TokenRightParen); err != nil {
		return nil, err
	}
	then, err := p.statement()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Span: source.At(start.Pos), Cond: cond, Then: then}
	if p.check(TokenElse) {
		p.advance()
		els, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmt.Else = els
	}
	return stmt, nil
}

func (p *Parser) forStmt() (ast.Stmt, *SyntaxError) {
	start := p.expect(TokenFor)
	if err := p.consume(TokenLeftParen); err != nil {
		return nil, err
	}

	stmt := &ast.ForStmt{Span: source.At(start.Pos)}

	// init: declaration, expression or empty
	if p.check(TokenSemicolon) {
		p.advance()
	} else if p.checkTypeStart() || p.checkModifier() {
		mark := p.current
		init, err := p.tryVarDeclStmt()
		if err != nil {
			p.current = mark
			expr, err2 := p.parseSequence()
			if err2 != nil {
				return nil, err2
			}
			if err3 := p.consume(TokenSemicolon); err3 != nil {
				return nil, err3
			}
			stmt.Init = &ast.ExprStmt{Span: expr.Pos(), Expr: expr}
		} else {
			stmt.Init = init
		}
	} else {
		expr, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		if err := p.consume(TokenSemicolon); err != nil {
			return nil, err
		}
		stmt.Init = &ast.ExprStmt{Span: expr.Pos(), Expr: expr}
	}

	if !p.check(TokenSemicolon) {
		cond, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		stmt.Cond = cond
	}
	if err := p.consume(TokenSemicolon); err != nil {
		return nil, err
	}

	if !p.check(TokenRightParen) {
		iter, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		stmt.Iter = iter
	}
	if err := p.consume(TokenRightParen); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	stmt.Body = body
	return stmt, nil
}

func (p *Parser) whileStmt() (ast.Stmt, *SyntaxError) {
	start := p.expect(TokenWhile)
	if err := p.consume(TokenLeftParen); err != nil {
		return nil, err
	}
	cond, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if err := p.consume(TokenRightParen); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Span: source.At(start.Pos), Cond: cond, Body: body}, nil
}

func (p *Parser) doWhileStmt() (ast.Stmt, *SyntaxError) {
	start := p.expect(TokenDo)
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	if err := p.consume(TokenWhile); err != nil {
		return nil, err
	}
	if err := p.consume(TokenLeftParen); err != nil {
		return nil, err
	}
	cond, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if err := p.consume(TokenRightParen); err != nil {
		return nil, err
	}
	if err := p.consume(TokenSemicolon); err != nil {
		return nil, err
	}
	return &ast.DoWhileStmt{Span: source.At(start.Pos), Body: body, Cond: cond}, nil
}

func (p *Parser) switchStmt() (ast.Stmt, *SyntaxError) {
	start := p.expect(TokenSwitch)
	if err := p.consume(TokenLeftParen); err != nil {
		return nil, err
	}
	sel, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if err := p.consume(TokenRightParen); err != nil {
		return nil, err
	}
	if err := p.consume(TokenLeftBrace); err != nil {
		return nil, err
	}

	stmt := &ast.SwitchStmt{Span: source.At(start.Pos), Selector: sel}

	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		c := &ast.SwitchCase{Span: source.At(p.peek().Pos)}
		switch p.peek().Kind {
		case TokenCase:
			p.advance()
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			c.Exprs = append(c.Exprs, expr)
			if err := p.consume(TokenColon); err != nil {
				return nil, err
			}
			// fold consecutive case labels into one clause
			for p.check(TokenCase) {
				p.advance()
				expr, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				c.Exprs = append(c.Exprs, expr)
				if err := p.consume(TokenColon); err != nil {
					return nil, err
				}
			}
		case TokenDefault:
			p.advance()
			if err := p.consume(TokenColon); err != nil {
				return nil, err
			}
		default:
			return nil, p.errorHere("expected 'case' or 'default', got %s", p.peek())
		}

		for !p.check(TokenCase) && !p.check(TokenDefault) && !p.check(TokenRightBrace) && !p.isAtEnd() {
			s, err := p.statement()
			if err != nil {
				return nil, err
			}
			c.Stmts = append(c.Stmts, s)
		}
		stmt.Cases = append(stmt.Cases, c)
	}
	if err := p.consume(TokenRightBrace); err != nil {
		return nil, err
	}
	return stmt, nil
}

/* ----- expressions ----- */

// initializer parses either a braced initializer list or an expression.
func (p *Parser) initializer() (ast.Expr, *SyntaxError) {
	if !p.check(TokenLeftBrace) {
		return p.parseExpr()
	}
	start := p.advance()
	init := &ast.InitializerExpr{Span: source.At(start.Pos)}
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		e, err := p.initializer()
		if err != nil {
			return nil, err
		}
		init.Exprs = append(init.Exprs, e)
		if !p.check(TokenComma) {
			break
		}
		p.advance()
	}
	if err := p.consume(TokenRightBrace); err != nil {
		return nil, err
	}
	return init, nil
}

// parseSequence parses a comma expression sequence.
func (p *Parser) parseSequence() (ast.Expr, *SyntaxError) {
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.check(TokenComma) {
		return first, nil
	}
	seq := &ast.SequenceExpr{Span: first.Pos(), Exprs: []ast.Expr{first}}
	for p.check(TokenComma) {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		seq.Exprs = append(seq.Exprs, e)
	}
	return seq, nil
}

// parseExpr parses an assignment expression.
func (p *Parser) parseExpr() (ast.Expr, *SyntaxError) {
	lhs, err := p.ternaryExpr()
	if err != nil {
		return nil, err
	}
	op := p.peek()
	if !op.Kind.IsAssignOp() {
		return lhs, nil
	}
	p.advance()
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.AssignExpr{
		Span:   lhs.Pos(),
		LValue: lhs,
		Op:     op.Lexeme,
		Value:  rhs,
	}, nil
}

func (p *Parser) ternaryExpr() (ast.Expr, *SyntaxError) {
	cond, err := p.binaryExpr(0)
	if err != nil {
		return nil, err
	}
	if !p.check(TokenQuestion) {
		return cond, nil
	}
	p.advance()
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.consume(TokenColon); err != nil {
		return nil, err
	}
	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.TernaryExpr{Span: cond.Pos(), Cond: cond, Then: then, Else: els}, nil
}

// binary operator precedence levels, loosest first
var binaryLevels = [][]TokenKind{
	{TokenOrOr},
	{TokenAndAnd},
	{TokenPipe},
	{TokenCaret},
	{TokenAmp},
	{TokenEqual, TokenNotEqual},
	{TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual},
	{TokenShl, TokenShr},
	{TokenPlus, TokenMinus},
	{TokenStar, TokenSlash, TokenPercent},
}

func (p *Parser) binaryExpr(level int) (ast.Expr, *SyntaxError) {
	if level >= len(binaryLevels) {
		return p.unaryExpr()
	}
	lhs, err := p.binaryExpr(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		matched := false
		for _, k := range binaryLevels[level] {
			if op.Kind == k {
				matched = true
				break
			}
		}
		if !matched {
			return lhs, nil
		}
		p.advance()
		rhs, err := p.binaryExpr(level + 1)
		if err != nil {
			return nil, err
		}
		lhs = &ast.BinaryExpr{Span: lhs.Pos(), Left: lhs, Op: op.Lexeme, Right: rhs}
	}
}

func (p *Parser) unaryExpr() (ast.Expr, *SyntaxError) {
	t := p.peek()
	switch t.Kind {
	case TokenBang, TokenTilde, TokenPlus, TokenMinus, TokenPlusPlus, TokenMinusMinus:
		p.advance()
		expr, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Span: source.At(t.Pos), Op: t.Lexeme, Expr: expr}, nil
	}
	return p.postfixExpr()
}

func (p *Parser) postfixExpr() (ast.Expr, *SyntaxError) {
	expr, err := p.primaryExpr()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()
		switch t.Kind {
		case TokenDot:
			p.advance()
			name := p.peek()
			if name.Kind != TokenIdent && name.Kind != TokenInterpModifier {
				return nil, p.errorHere("expected member name, got %s", name)
			}
			p.advance()
			if p.check(TokenLeftParen) {
				call, err := p.callTail(name.Lexeme, expr, name.Pos)
				if err != nil {
					return nil, err
				}
				expr = call
			} else {
				expr = &ast.ObjectExpr{Span: source.At(name.Pos), Prefix: expr, Name: name.Lexeme}
			}

		case TokenLeftBracket:
			start := p.advance()
			idx, err := p.parseSequence()
			if err != nil {
				return nil, err
			}
			if err := p.consume(TokenRightBracket); err != nil {
				return nil, err
			}
			if arr, ok := expr.(*ast.ArrayExpr); ok {
				arr.Indices = append(arr.Indices, idx)
			} else {
				expr = &ast.ArrayExpr{Span: source.At(start.Pos), Prefix: expr, Indices: []ast.Expr{idx}}
			}

		case TokenPlusPlus, TokenMinusMinus:
			p.advance()
			expr = &ast.PostUnaryExpr{Span: expr.Pos(), Expr: expr, Op: t.Lexeme}

		default:
			return expr, nil
		}
	}
}

// callTail parses the argument list of a call whose name (and optional
// receiver) are already consumed.
func (p *Parser) callTail(name string, prefix ast.Expr, pos source.Position) (*ast.CallExpr, *SyntaxError) {
	p.expect(TokenLeftParen)
	call := &ast.CallExpr{Span: source.At(pos), Prefix: prefix, Name: name}
	for !p.check(TokenRightParen) && !p.isAtEnd() {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if !p.check(TokenComma) {
			break
		}
		p.advance()
	}
	if err := p.consume(TokenRightParen); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) primaryExpr() (ast.Expr, *SyntaxError) {
	t := p.peek()
	switch t.Kind {
	case TokenBoolLiteral:
		p.advance()
		return &ast.LiteralExpr{Span: source.At(t.Pos), Kind: ast.LiteralBool, Value: t.Lexeme}, nil
	case TokenIntLiteral:
		p.advance()
		return &ast.LiteralExpr{Span: source.At(t.Pos), Kind: ast.LiteralInt, Value: t.Lexeme}, nil
	case TokenFloatLiteral:
		p.advance()
		return &ast.LiteralExpr{Span: source.At(t.Pos), Kind: ast.LiteralFloat, Value: t.Lexeme}, nil
	case TokenStringLiteral:
		p.advance()
		return &ast.LiteralExpr{Span: source.At(t.Pos), Kind: ast.LiteralString, Value: t.Lexeme}, nil
	case TokenCharLiteral:
		p.advance()
		return &ast.LiteralExpr{Span: source.At(t.Pos), Kind: ast.LiteralChar, Value: t.Lexeme}, nil

	case TokenScalarType, TokenVectorType, TokenMatrixType:
		// type constructor call: float4(...)
		p.advance()
		if !p.check(TokenLeftParen) {
			return nil, p.errorHere("expected '(' after type %q in expression", t.Lexeme)
		}
		call, err := p.callTail(t.Lexeme, nil, t.Pos)
		if err != nil {
			return nil, err
		}
		call.TypeCtor = dataTypeFromName(t.Lexeme)
		return call, nil

	case TokenLeftParen:
		return p.castOrBracketExpr()

	case TokenIdent:
		p.advance()
		if p.check(TokenLeftParen) {
			return p.callTail(t.Lexeme, nil, t.Pos)
		}
		return &ast.ObjectExpr{Span: source.At(t.Pos), Name: t.Lexeme}, nil
	}

	return nil, p.errorHere("unexpected %s in expression", t)
}

// castOrBracketExpr disambiguates "(type) expr" from "(expr)" with a
// speculative type-specifier parse backed by the known-type-name set.
func (p *Parser) castOrBracketExpr() (ast.Expr, *SyntaxError) {
	start := p.expect(TokenLeftParen)
	mark := p.current

	if p.checkTypeStart() {
		ts, err := p.typeSpecifier()
		if err == nil && p.check(TokenRightParen) {
			p.advance()
			if p.startsUnaryExpr() {
				expr, err := p.unaryExpr()
				if err != nil {
					return nil, err
				}
				return &ast.CastExpr{Span: source.At(start.Pos), Type: ts, Expr: expr}, nil
			}
		}
		p.current = mark
	}

	inner, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if err := p.consume(TokenRightParen); err != nil {
		return nil, err
	}
	return &ast.BracketExpr{Span: source.At(start.Pos), Expr: inner}, nil
}

func (p *Parser) startsUnaryExpr() bool {
	switch p.peek().Kind {
	case TokenBang, TokenTilde, TokenPlusPlus, TokenMinusMinus,
		TokenBoolLiteral, TokenIntLiteral, TokenFloatLiteral,
		TokenStringLiteral, TokenCharLiteral, TokenIdent, TokenLeftParen,
		TokenScalarType, TokenVectorType, TokenMatrixType:
		return true
	}
	return false
}

/* ----- plumbing ----- */

func (p *Parser) synchronize() {
	depth := 0
	for !p.isAtEnd() {
		switch p.advance().Kind {
		case TokenSemicolon:
			if depth == 0 {
				return
			}
		case TokenLeftBrace:
			depth++
		case TokenRightBrace:
			if depth > 0 {
				depth--
			}
			if depth == 0 {
				return
			}
		}
	}
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) peekAt(offset int) Token {
	i := p.current + offset
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) advance() Token {
	t := p.tokens[p.current]
	if p.current < len(p.tokens)-1 {
		p.current++
	}
	return t
}

func (p *Parser) check(kind TokenKind) bool {
	return p.peek().Kind == kind
}

// expect consumes the current token, which the caller already verified.
func (p *Parser) expect(kind TokenKind) Token {
	return p.advance()
}

// consume advances over a required token or reports a syntax error.
func (p *Parser) consume(kind TokenKind) *SyntaxError {
	if p.check(kind) {
		p.advance()
		return nil
	}
	return p.errorHere("expected %s, got %s", tokenKindName(kind), p.peek())
}

func (p *Parser) errorHere(format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Message: fmt.Sprintf(format, args...),
		Tok:     p.peek(),
	}
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == TokenEOF
}

func tokenKindName(kind TokenKind) string {
	switch kind {
	case TokenLeftParen:
		return "'('"
	case TokenRightParen:
		return "')'"
	case TokenLeftBrace:
		return "'{'"
	case TokenRightBrace:
		return "'}'"
	case TokenLeftBracket:
		return "'['"
	case TokenRightBracket:
		return "']'"
	case TokenSemicolon:
		return "';'"
	case TokenColon:
		return "':'"
	case TokenComma:
		return "','"
	case TokenLess:
		return "'<'"
	case TokenGreater:
		return "'>'"
	case TokenWhile:
		return "'while'"
	case TokenIdent:
		return "identifier"
	default:
		return fmt.Sprintf("token %d", kind)
	}
}
