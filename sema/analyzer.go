package sema

import (
	"fmt"
	"strings"

	"github.com/gogpu/xshade/ast"
	"github.com/gogpu/xshade/report"
	"github.com/gogpu/xshade/source"
)

// Options configures one analysis run.
type Options struct {
	EntryPoint          string
	SecondaryEntryPoint string
	Target              ast.ShaderTarget
	OutputVersion       ast.OutputVersion
	WarnEnabled         bool
}

// Analyzer decorates a parsed program: it binds names, computes type
// denoters, resolves overloads, processes the entry point and performs
// target legality checks. It collects as many errors as it can and
// reports failure at the end.
type Analyzer struct {
	log    report.Log
	symtab *SymbolTable
	prog   *ast.Program
	opts   Options

	currentFn *ast.FunctionDecl
	errs      int
}

// NewAnalyzer creates an analyzer reporting into log (which may be nil).
func NewAnalyzer(log report.Log) *Analyzer {
	return &Analyzer{log: log}
}

// Decorate runs the analysis over prog. It returns false when any
// semantic error was reported; code generation must then be skipped.
func (a *Analyzer) Decorate(prog *ast.Program, opts Options) bool {
	a.prog = prog
	a.opts = opts
	a.symtab = NewSymbolTable()
	prog.Target = opts.Target

	a.registerGlobals()
	a.resolveEntryPoints()

	for _, d := range prog.Decls {
		if fn, ok := d.(*ast.FunctionDecl); ok && fn.Body != nil {
			a.analyzeFunction(fn)
		}
	}

	a.checkControlPaths()

	if a.prog.EntryPoint != nil {
		a.collectStageLayout(a.prog.EntryPoint)
		if !opts.OutputVersion.IsHLSL() {
			a.flattenEntryPointIO(a.prog.EntryPoint)
		}
	}

	return a.errs == 0
}

/* ----- global registration ----- */

func (a *Analyzer) registerGlobals() {
	for _, d := range a.prog.Decls {
		switch x := d.(type) {
		case *ast.FunctionDecl:
			a.resolveTypeSpec(x.ReturnType)
			for _, p := range x.Params {
				a.resolveTypeSpec(p.Param)
				a.checkParam(p)
			}
			a.registerFunction(x)

		case *ast.VarDeclStmt:
			a.resolveTypeSpec(x.Type)
			for _, v := range x.Vars {
				a.resolveArrayDims(v)
				// global variables without 'static' are uniform inputs
				if !x.Type.HasStorageClass("static") && !x.Type.HasStorageClass("groupshared") {
					v.Flags.Set(ast.FlagImmutable)
				}
				if x.Type.IsConst() {
					v.Flags.Set(ast.FlagImmutable)
				}
				a.register(v.Name, v, v.Span)
				if v.Init != nil {
					a.typeOf(v.Init)
				}
			}

		case *ast.StructDecl:
			a.resolveStruct(x)
			a.register(x.Name, x, x.Span)

		case *ast.AliasDecl:
			a.resolveTypeSpec(x.Type)
			a.register(x.Name, x, x.Span)

		case *ast.BufferDecl:
			a.resolveBufferGeneric(x.Type, x.Span)
			a.resolveArrayDimsOf(x.ArrayDims)
			a.register(x.Name, x, x.Span)

		case *ast.SamplerDecl:
			a.register(x.Name, x, x.Span)

		case *ast.UniformBufferDecl:
			a.register(x.Name, x, x.Span)
			for _, m := range x.Members {
				a.resolveTypeSpec(m.Type)
				for _, v := range m.Vars {
					a.resolveArrayDims(v)
					v.Flags.Set(ast.FlagImmutable)
					a.register(v.Name, v, v.Span)
				}
			}
		}
	}
}

// registerFunction adds an overload, linking prototypes to their
// definitions and rejecting duplicate definitions.
func (a *Analyzer) registerFunction(fn *ast.FunctionDecl) {
	for _, d := range a.symtab.FindAll(fn.Name) {
		prev, ok := d.(*ast.FunctionDecl)
		if !ok || !sameSignature(prev, fn) {
			continue
		}
		switch {
		case prev.IsPrototype() && !fn.IsPrototype():
			prev.Definition = fn
		case !prev.IsPrototype() && fn.IsPrototype():
			fn.Definition = prev
		case !prev.IsPrototype() && !fn.IsPrototype():
			a.errorAt(fn.Span, "function %q is already defined with this signature", fn.Name)
		}
	}
	err := a.symtab.Register(fn.Name, fn, func(prev, next ast.Decl) error {
		if _, ok := prev.(*ast.FunctionDecl); ok {
			return nil
		}
		return fmt.Errorf("identifier %q already declared as a non-function", fn.Name)
	})
	if err != nil {
		a.errorAt(fn.Span, "%s", err.Error())
	}
}

func sameSignature(a, b *ast.FunctionDecl) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		pa, pb := a.Params[i].Den(), b.Params[i].Den()
		if pa == nil || pb == nil || !ast.TypesEqual(pa, pb) {
			return false
		}
	}
	return true
}

func (a *Analyzer) register(name string, d ast.Decl, span source.Span) {
	if err := a.symtab.Register(name, d, nil); err != nil {
		a.errorAt(span, "%s", err.Error())
	}
}

/* ----- type specifier resolution ----- */

func (a *Analyzer) resolveTypeSpec(ts *ast.TypeSpecifier) {
	if ts == nil {
		return
	}
	if ts.StructDecl != nil {
		a.resolveStruct(ts.StructDecl)
		if ts.StructDecl.Name != "" {
			a.register(ts.StructDecl.Name, ts.StructDecl, ts.StructDecl.Span)
		}
	}
	if ts.Den == nil && ts.Name != "" {
		ts.Den = a.resolveNamedType(ts.Name, ts.Span)
	}
	if bt, ok := ts.Den.(*ast.BufferType); ok {
		a.resolveBufferGeneric(bt, ts.Span)
	}
	a.checkTargetType(ts.Den, ts.Span)
}

func (a *Analyzer) resolveNamedType(name string, span source.Span) ast.TypeDenoter {
	d, _ := a.symtab.Find(name)
	switch x := d.(type) {
	case *ast.StructDecl:
		return x.Den()
	case *ast.AliasDecl:
		return &ast.AliasType{Name: name, Ref: x}
	}
	a.errorAt(span, "undefined type %q", name)
	return nil
}

func (a *Analyzer) resolveBufferGeneric(bt *ast.BufferType, span source.Span) {
	if al, ok := bt.Generic.(*ast.AliasType); ok && al.Ref == nil {
		bt.Generic = a.resolveNamedType(al.Name, span)
	}
}

func (a *Analyzer) resolveStruct(sd *ast.StructDecl) {
	for _, m := range sd.Members {
		a.resolveTypeSpec(m.Type)
		for _, v := range m.Vars {
			a.resolveArrayDims(v)
		}
	}
}

func (a *Analyzer) resolveArrayDims(v *ast.VarDecl) {
	a.resolveArrayDimsOf(v.ArrayDims)
}

func (a *Analyzer) resolveArrayDimsOf(dims []*ast.ArrayDimension) {
	for _, d := range dims {
		if d.Expr == nil {
			continue
		}
		if n, ok := a.evalInt(d.Expr); ok {
			if n <= 0 {
				a.errorAt(d.Span, "array dimension must be positive, got %d", n)
				continue
			}
			d.Size = int(n)
		} else {
			a.errorAt(d.Span, "array dimension must be a constant expression")
		}
	}
}

// checkTargetType rejects types the chosen output dialect cannot
// express.
func (a *Analyzer) checkTargetType(den ast.TypeDenoter, span source.Span) {
	bt, ok := ast.Aliased(den).(*ast.BaseType)
	if !ok {
		return
	}
	if bt.Scalar == ast.ScalarDouble && a.opts.OutputVersion.IsESSL() && a.opts.OutputVersion.Number() < 320 {
		a.targetError(span, "double-precision types are not supported for ESSL %d", a.opts.OutputVersion.Number())
	}
}

func (a *Analyzer) checkParam(p *ast.VarDecl) {
	ts := p.Param
	if ts == nil {
		return
	}
	if ts.HasStorageClass("static") {
		a.errorAt(p.Span, "storage class 'static' is not allowed on parameter %q", p.Name)
	}
	if ts.HasStorageClass("extern") {
		a.errorAt(p.Span, "storage class 'extern' is not allowed on parameter %q", p.Name)
	}
}

/* ----- function bodies ----- */

func (a *Analyzer) analyzeFunction(fn *ast.FunctionDecl) {
	a.currentFn = fn
	a.symtab.Open(ScopeFunction)
	for _, p := range fn.Params {
		a.register(p.Name, p, p.Span)
		if p.Init != nil {
			a.typeOf(p.Init)
		}
	}
	a.analyzeBlock(fn.Body)
	a.symtab.Close()
	a.currentFn = nil
}

func (a *Analyzer) analyzeBlock(b *ast.CodeBlock) {
	a.symtab.Open(ScopeBlock)
	for _, s := range b.Stmts {
		a.analyzeStmt(s)
	}
	a.symtab.Close()
}

func (a *Analyzer) analyzeStmt(s ast.Stmt) {
	switch x := s.(type) {
	case *ast.CodeBlock:
		a.analyzeBlock(x)

	case *ast.VarDeclStmt:
		a.resolveTypeSpec(x.Type)
		if len(x.Type.InterpModifiers) > 0 {
			a.errorAt(x.Span, "interpolation modifier %q is only allowed on shader input and output", x.Type.InterpModifiers[0])
		}
		for _, v := range x.Vars {
			a.resolveArrayDims(v)
			if x.Type.IsConst() {
				v.Flags.Set(ast.FlagImmutable)
			}
			a.register(v.Name, v, v.Span)
			if v.Init != nil {
				initDen := a.typeOf(v.Init)
				varDen := v.Den()
				if initDen != nil && varDen != nil && !isInitializer(v.Init) && !ast.CastableTo(initDen, varDen) {
					a.errorAt(v.Span, "cannot initialize %q of type %s with a value of type %s", v.Name, varDen, initDen)
				}
			}
		}

	case *ast.StructDecl:
		a.resolveStruct(x)
		a.register(x.Name, x, x.Span)

	case *ast.AliasDecl:
		a.resolveTypeSpec(x.Type)
		a.register(x.Name, x, x.Span)

	case *ast.ForStmt:
		a.symtab.Open(ScopeForInit)
		if x.Init != nil {
			a.analyzeStmt(x.Init)
		}
		if x.Cond != nil {
			a.typeOf(x.Cond)
		}
		if x.Iter != nil {
			a.typeOf(x.Iter)
		}
		a.analyzeStmt(x.Body)
		a.symtab.Close()

	case *ast.WhileStmt:
		a.typeOf(x.Cond)
		a.analyzeStmt(x.Body)

	case *ast.DoWhileStmt:
		a.analyzeStmt(x.Body)
		a.typeOf(x.Cond)

	case *ast.IfStmt:
		a.typeOf(x.Cond)
		a.analyzeStmt(x.Then)
		if x.Else != nil {
			a.analyzeStmt(x.Else)
		}

	case *ast.SwitchStmt:
		a.typeOf(x.Selector)
		a.symtab.Open(ScopeBlock)
		for _, c := range x.Cases {
			for _, e := range c.Exprs {
				a.typeOf(e)
			}
			for _, s := range c.Stmts {
				a.analyzeStmt(s)
			}
		}
		a.symtab.Close()

	case *ast.ReturnStmt:
		var den ast.TypeDenoter
		if x.Expr != nil {
			den = a.typeOf(x.Expr)
		}
		if a.currentFn != nil && a.currentFn.ReturnType != nil {
			ret := a.currentFn.ReturnType.Den
			if ret != nil {
				_, isVoid := ast.Aliased(ret).(*ast.VoidType)
				switch {
				case isVoid && x.Expr != nil:
					a.errorAt(x.Span, "void function %q cannot return a value", a.currentFn.Name)
				case !isVoid && x.Expr == nil:
					a.errorAt(x.Span, "function %q must return a value of type %s", a.currentFn.Name, ret)
				case den != nil && !isVoid && !ast.CastableTo(den, ret):
					a.errorAt(x.Span, "cannot convert return value of type %s to %s", den, ret)
				}
			}
		}

	case *ast.ExprStmt:
		a.typeOf(x.Expr)
	}
}

/* ----- expression typing ----- */

// typeOf computes (and caches) the type denoter of an expression
// bottom-up, binding name use-sites to their declarations.
func (a *Analyzer) typeOf(e ast.Expr) ast.TypeDenoter {
	if e == nil {
		return nil
	}
	// casts carry a parser-set denoter but their operand still needs
	// binding, so they bypass the cache
	if _, isCast := e.(*ast.CastExpr); !isCast {
		if den := e.TypeDen(); den != nil {
			return den
		}
	}

	switch x := e.(type) {
	case *ast.LiteralExpr:
		x.Den = literalDen(x)
		return x.Den

	case *ast.SequenceExpr:
		var den ast.TypeDenoter
		for _, sub := range x.Exprs {
			den = a.typeOf(sub)
		}
		x.Den = den
		return den

	case *ast.BracketExpr:
		return a.typeOf(x.Expr)

	case *ast.UnaryExpr:
		den := a.typeOf(x.Expr)
		if x.Op == "!" {
			x.Den = ast.Scalar(ast.ScalarBool)
		} else {
			x.Den = den
		}
		return x.Den

	case *ast.PostUnaryExpr:
		x.Den = a.typeOf(x.Expr)
		return x.Den

	case *ast.BinaryExpr:
		x.Den = a.binaryDen(x)
		return x.Den

	case *ast.TernaryExpr:
		a.typeOf(x.Cond)
		thenDen := a.typeOf(x.Then)
		elseDen := a.typeOf(x.Else)
		x.Den = a.commonDen(thenDen, elseDen, x.Span)
		return x.Den

	case *ast.ObjectExpr:
		x.Den = a.objectDen(x)
		return x.Den

	case *ast.ArrayExpr:
		x.Den = a.arrayDen(x)
		return x.Den

	case *ast.CastExpr:
		a.resolveTypeSpec(x.Type)
		a.typeOf(x.Expr)
		return x.Type.Den

	case *ast.AssignExpr:
		lv := a.typeOf(x.LValue)
		rv := a.typeOf(x.Value)
		a.checkAssignable(x.LValue)
		if lv != nil && rv != nil && !ast.CastableTo(rv, lv) {
			a.errorAt(x.Span, "cannot assign value of type %s to %s", rv, lv)
		}
		x.Den = lv
		return lv

	case *ast.CallExpr:
		x.Den = a.callDen(x)
		return x.Den

	case *ast.InitializerExpr:
		var den ast.TypeDenoter
		for _, sub := range x.Exprs {
			d := a.typeOf(sub)
			if den == nil {
				den = d
			}
		}
		x.Den = den
		return den
	}
	return nil
}

func literalDen(x *ast.LiteralExpr) ast.TypeDenoter {
	switch x.Kind {
	case ast.LiteralBool:
		return ast.Scalar(ast.ScalarBool)
	case ast.LiteralInt:
		if strings.ContainsAny(x.Value, "uU") {
			return ast.Scalar(ast.ScalarUInt)
		}
		return ast.Scalar(ast.ScalarInt)
	case ast.LiteralFloat:
		if strings.ContainsAny(x.Value, "hH") {
			return ast.Scalar(ast.ScalarHalf)
		}
		return ast.Scalar(ast.ScalarFloat)
	case ast.LiteralString, ast.LiteralChar:
		return nil
	}
	return nil
}

func (a *Analyzer) binaryDen(x *ast.BinaryExpr) ast.TypeDenoter {
	lhs := a.typeOf(x.Left)
	rhs := a.typeOf(x.Right)

	switch x.Op {
	case "&&", "||":
		return ast.Scalar(ast.ScalarBool)
	case "==", "!=", "<", ">", "<=", ">=":
		common := a.commonDen(lhs, rhs, x.Span)
		if bt, ok := ast.Aliased(common).(*ast.BaseType); ok && bt.IsVector() {
			return ast.Vector(ast.ScalarBool, bt.Cols)
		}
		return ast.Scalar(ast.ScalarBool)
	default:
		return a.commonDen(lhs, rhs, x.Span)
	}
}

// commonDen applies the promotion table: scalars widen to vectors,
// scalar kinds promote to the higher rank, matrix shapes must agree.
func (a *Analyzer) commonDen(lhs, rhs ast.TypeDenoter, span source.Span) ast.TypeDenoter {
	if lhs == nil {
		return rhs
	}
	if rhs == nil {
		return lhs
	}
	l, okL := ast.Aliased(lhs).(*ast.BaseType)
	r, okR := ast.Aliased(rhs).(*ast.BaseType)
	if !okL || !okR {
		if ast.TypesEqual(lhs, rhs) {
			return lhs
		}
		a.errorAt(span, "no common type for %s and %s", lhs, rhs)
		return nil
	}

	kind := l.Scalar
	if r.Scalar > kind {
		kind = r.Scalar
	}

	switch {
	case l.IsScalar() && r.IsScalar():
		return ast.Scalar(kind)
	case l.IsScalar():
		return &ast.BaseType{Scalar: kind, Rows: r.Rows, Cols: r.Cols}
	case r.IsScalar():
		return &ast.BaseType{Scalar: kind, Rows: l.Rows, Cols: l.Cols}
	case l.IsVector() && r.IsVector():
		if l.Cols != r.Cols {
			a.errorAt(span, "vector dimension mismatch: %s and %s", lhs, rhs)
			return nil
		}
		return ast.Vector(kind, l.Cols)
	case l.IsMatrix() && r.IsMatrix():
		if l.Rows != r.Rows || l.Cols != r.Cols {
			a.errorAt(span, "matrix dimension mismatch: %s and %s", lhs, rhs)
			return nil
		}
		return ast.Matrix(kind, l.Rows, l.Cols)
	default:
		a.errorAt(span, "no common type for %s and %s", lhs, rhs)
		return nil
	}
}

func (a *Analyzer) objectDen(x *ast.ObjectExpr) ast.TypeDenoter {
	if x.Prefix == nil {
		d, _ := a.symtab.Find(x.Name)
		if d == nil {
			a.errorAt(x.Span, "undefined symbol %q", x.Name)
			return nil
		}
		x.SymbolRef = d
		switch ref := d.(type) {
		case *ast.VarDecl:
			return ref.Den()
		case *ast.BufferDecl:
			return ref.Type
		case *ast.SamplerDecl:
			return ref.Type
		case *ast.FunctionDecl:
			a.errorAt(x.Span, "function %q used as a value", x.Name)
			return nil
		default:
			a.errorAt(x.Span, "%q does not name a value", x.Name)
			return nil
		}
	}

	prefixDen := a.typeOf(x.Prefix)
	if prefixDen == nil {
		return nil
	}
	switch pd := ast.Aliased(prefixDen).(type) {
	case *ast.StructType:
		member := pd.Ref.FindMember(x.Name)
		if member == nil {
			a.errorAt(x.Span, "struct %q has no member %q", pd.Ref.Name, x.Name)
			return nil
		}
		x.SymbolRef = member
		return member.Den()

	case *ast.BaseType:
		return a.swizzleDen(pd, x)

	default:
		a.errorAt(x.Span, "type %s has no member %q", prefixDen, x.Name)
		return nil
	}
}

// swizzleDen types a vector (or scalar) swizzle like v.xyz or c.rgba.
func (a *Analyzer) swizzleDen(bt *ast.BaseType, x *ast.ObjectExpr) ast.TypeDenoter {
	if bt.IsMatrix() {
		a.errorAt(x.Span, "matrix types have no member %q", x.Name)
		return nil
	}
	name := x.Name
	if len(name) == 0 || len(name) > 4 {
		a.errorAt(x.Span, "invalid vector swizzle %q", name)
		return nil
	}
	size := bt.VectorSize()
	for _, c := range name {
		idx := swizzleIndex(c)
		if idx < 0 || idx >= size {
			a.errorAt(x.Span, "swizzle component %q out of range for %s", string(c), bt)
			return nil
		}
	}
	if len(name) == 1 {
		return ast.Scalar(bt.Scalar)
	}
	return ast.Vector(bt.Scalar, len(name))
}

func swizzleIndex(c rune) int {
	switch c {
	case 'x', 'r':
		return 0
	case 'y', 'g':
		return 1
	case 'z', 'b':
		return 2
	case 'w', 'a':
		return 3
	}
	return -1
}

func (a *Analyzer) arrayDen(x *ast.ArrayExpr) ast.TypeDenoter {
	prefixDen := a.typeOf(x.Prefix)
	for _, idx := range x.Indices {
		a.typeOf(idx)
	}
	if prefixDen == nil {
		return nil
	}

	den := ast.Aliased(prefixDen)
	for range x.Indices {
		switch pd := den.(type) {
		case *ast.ArrayType:
			if len(pd.Dims) > 1 {
				den = &ast.ArrayType{Base: pd.Base, Dims: pd.Dims[1:]}
			} else {
				den = ast.Aliased(pd.Base)
			}
		case *ast.BaseType:
			switch {
			case pd.IsMatrix():
				den = ast.Vector(pd.Scalar, pd.Cols)
			case pd.IsVector():
				den = ast.Scalar(pd.Scalar)
			default:
				a.errorAt(x.Span, "cannot index a value of type %s", pd)
				return nil
			}
		case *ast.BufferType:
			if pd.Generic != nil {
				den = ast.Aliased(pd.Generic)
			} else {
				den = float4Den()
			}
		default:
			a.errorAt(x.Span, "cannot index a value of type %s", den)
			return nil
		}
	}
	return den
}

func (a *Analyzer) checkAssignable(lv ast.Expr) {
	// follow swizzles and indices down to the base object
	for {
		switch x := lv.(type) {
		case *ast.ObjectExpr:
			if x.SymbolRef != nil {
				if v, ok := x.SymbolRef.(*ast.VarDecl); ok && v.Flags.Has(ast.FlagImmutable) {
					a.errorAt(x.Span, "cannot assign to immutable variable %q", v.Name)
				}
				return
			}
			if x.Prefix == nil {
				return
			}
			lv = x.Prefix
		case *ast.ArrayExpr:
			lv = x.Prefix
		case *ast.BracketExpr:
			lv = x.Expr
		default:
			return
		}
	}
}

/* ----- call resolution ----- */

func (a *Analyzer) callDen(x *ast.CallExpr) ast.TypeDenoter {
	argDens := make([]ast.TypeDenoter, len(x.Args))
	for i, arg := range x.Args {
		argDens[i] = a.typeOf(arg)
	}

	// type constructor: float4(...)
	if x.TypeCtor != nil {
		return x.TypeCtor
	}

	// method call on a texture/buffer object
	if x.Prefix != nil {
		prefixDen := a.typeOf(x.Prefix)
		bt, ok := ast.Aliased(prefixDen).(*ast.BufferType)
		if !ok {
			a.errorAt(x.Span, "type %s has no method %q", prefixDen, x.Name)
			return nil
		}
		if !bufferMethods[x.Name] {
			a.errorAt(x.Span, "unknown method %q on type %s", x.Name, bt)
			return nil
		}
		x.Intrinsic = x.Name
		switch x.Name {
		case "GetDimensions", "Append":
			return &ast.VoidType{}
		default:
			if bt.Generic != nil {
				return bt.Generic
			}
			return float4Den()
		}
	}

	// user-defined functions take precedence over intrinsics
	var candidates []*ast.FunctionDecl
	for _, d := range a.symtab.FindAll(x.Name) {
		if fn, ok := d.(*ast.FunctionDecl); ok {
			candidates = append(candidates, fn)
		}
	}
	if len(candidates) > 0 {
		fn := a.resolveOverload(x, candidates, argDens)
		if fn == nil {
			return nil
		}
		x.FuncRef = fn
		if fn.ReturnType != nil {
			return fn.ReturnType.Den
		}
		return nil
	}

	// intrinsic
	in, ok := intrinsics[x.Name]
	if !ok {
		a.errorAt(x.Span, "undefined function %q", x.Name)
		return nil
	}
	if len(x.Args) < in.minArgs || len(x.Args) > in.maxArgs {
		a.errorAt(x.Span, "intrinsic %q expects %d argument(s), got %d", x.Name, in.minArgs, len(x.Args))
		return nil
	}
	x.Intrinsic = x.Name
	return a.intrinsicDen(x, in, argDens)
}

func (a *Analyzer) intrinsicDen(x *ast.CallExpr, in intrinsic, argDens []ast.TypeDenoter) ast.TypeDenoter {
	arg0 := func() *ast.BaseType {
		if len(argDens) == 0 || argDens[0] == nil {
			return nil
		}
		bt, _ := ast.Aliased(argDens[0]).(*ast.BaseType)
		return bt
	}

	switch in.rule {
	case typeSameAsArg0:
		if len(argDens) > 0 {
			return argDens[0]
		}
		return nil
	case typeScalarOfArg0:
		if bt := arg0(); bt != nil {
			return ast.Scalar(bt.Scalar)
		}
		return ast.Scalar(ast.ScalarFloat)
	case typeBoolOfArg0:
		return ast.Scalar(ast.ScalarBool)
	case typeFloat3:
		return ast.Vector(ast.ScalarFloat, 3)
	case typeFloat4:
		return float4Den()
	case typeVoid:
		return &ast.VoidType{}
	case typeSpecial:
		return a.specialIntrinsicDen(x, argDens)
	}
	return nil
}

// specialIntrinsicDen handles mul and transpose, whose result shapes
// depend on the argument shapes.
func (a *Analyzer) specialIntrinsicDen(x *ast.CallExpr, argDens []ast.TypeDenoter) ast.TypeDenoter {
	base := func(i int) *ast.BaseType {
		if i >= len(argDens) || argDens[i] == nil {
			return nil
		}
		bt, _ := ast.Aliased(argDens[i]).(*ast.BaseType)
		return bt
	}

	switch x.Name {
	case "transpose":
		if m := base(0); m != nil && m.IsMatrix() {
			return ast.Matrix(m.Scalar, m.Cols, m.Rows)
		}
		return nil

	case "mul":
		l, r := base(0), base(1)
		if l == nil || r == nil {
			return nil
		}
		switch {
		case l.IsMatrix() && r.IsVector():
			return ast.Vector(r.Scalar, l.Rows)
		case l.IsVector() && r.IsMatrix():
			return ast.Vector(l.Scalar, r.Cols)
		case l.IsMatrix() && r.IsMatrix():
			return ast.Matrix(l.Scalar, l.Rows, r.Cols)
		case l.IsScalar():
			return r
		case r.IsScalar():
			return l
		default:
			return a.commonDen(l, r, x.Span)
		}
	}
	return nil
}

/* ----- overload resolution ----- */

// conversion cost classes, best first
const (
	convExact     = 0
	convPromotion = 1
	convStandard  = 2
	convNone      = -1
)

func conversionCost(from, to ast.TypeDenoter) int {
	if from == nil || to == nil {
		return convStandard
	}
	if ast.TypesEqual(from, to) {
		return convExact
	}
	f, okF := ast.Aliased(from).(*ast.BaseType)
	t, okT := ast.Aliased(to).(*ast.BaseType)
	if okF && okT && f.Rows == t.Rows && f.Cols == t.Cols {
		return convPromotion
	}
	if ast.CastableTo(from, to) {
		return convStandard
	}
	return convNone
}

// resolveOverload ranks candidates by their implicit-conversion cost
// vector (count of standard conversions, then promotions) and picks the
// minimum. Equal minimal vectors are an ambiguity error, never a silent
// pick.
func (a *Analyzer) resolveOverload(x *ast.CallExpr, candidates []*ast.FunctionDecl, argDens []ast.TypeDenoter) *ast.FunctionDecl {
	type ranked struct {
		fn   *ast.FunctionDecl
		cost [2]int // [standard, promotion]
	}
	var feasible []ranked

	for _, fn := range candidates {
		if len(argDens) > len(fn.Params) {
			continue
		}
		// trailing parameters must have default arguments
		if len(argDens) < len(fn.Params) && fn.Params[len(argDens)].Init == nil {
			continue
		}
		cost := [2]int{}
		ok := true
		for i, argDen := range argDens {
			c := conversionCost(argDen, fn.Params[i].Den())
			switch c {
			case convNone:
				ok = false
			case convPromotion:
				cost[1]++
			case convStandard:
				cost[0]++
			}
			if !ok {
				break
			}
		}
		if ok {
			feasible = append(feasible, ranked{fn: fn, cost: cost})
		}
	}

	if len(feasible) == 0 {
		a.errorAt(x.Span, "no matching overload for call to %q with %d argument(s)", x.Name, len(argDens))
		return nil
	}

	best := feasible[0]
	ambiguous := false
	for _, r := range feasible[1:] {
		switch compareCost(r.cost, best.cost) {
		case -1:
			best = r
			ambiguous = false
		case 0:
			ambiguous = true
		}
	}
	if ambiguous {
		a.errorAt(x.Span, "ambiguous call to overloaded function %q", x.Name)
		return nil
	}

	if best.fn.IsPrototype() && best.fn.Definition != nil {
		return best.fn.Definition
	}
	return best.fn
}

func compareCost(a, b [2]int) int {
	for i := range a {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

func isInitializer(e ast.Expr) bool {
	_, ok := e.(*ast.InitializerExpr)
	return ok
}

/* ----- diagnostics ----- */

func (a *Analyzer) errorAt(span source.Span, format string, args ...any) {
	a.errs++
	if a.log == nil {
		return
	}
	a.log.Submit(report.Report{
		Kind:    report.Error,
		Code:    report.CodeSemantic,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	})
}

func (a *Analyzer) targetError(span source.Span, format string, args ...any) {
	a.errs++
	if a.log == nil {
		return
	}
	a.log.Submit(report.Report{
		Kind:    report.Error,
		Code:    report.CodeTarget,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	})
}

func (a *Analyzer) warnAt(span source.Span, format string, args ...any) {
	if a.log == nil || !a.opts.WarnEnabled {
		return
	}
	a.log.Submit(report.Report{
		Kind:    report.Warning,
		Code:    report.CodeSemantic,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	})
}
