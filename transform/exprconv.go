package transform

import (
	"github.com/gogpu/xshade/ast"
)

// ExprConverter rewrites expressions that have no direct equivalent in
// the GLSL family: mul() becomes the matrix '*' operator, saturate()
// becomes a clamp(), and implicit scalar-to-vector broadcasts are made
// explicit constructor calls. The converter mutates the decorated AST
// in place; intrinsic spelling differences (frac/fract, lerp/mix, ...)
// are left to the code generator's keyword tables.
type ExprConverter struct{}

// ConvertExpressions runs the expression conversion over all reachable
// function bodies.
func ConvertExpressions(prog *ast.Program) {
	c := &ExprConverter{}
	for _, d := range prog.Decls {
		fn, ok := d.(*ast.FunctionDecl)
		if !ok || fn.Body == nil || !fn.Flags.Has(ast.FlagReachable) {
			continue
		}
		c.convertBlock(fn.Body, fn)
	}
}

func (c *ExprConverter) convertBlock(b *ast.CodeBlock, fn *ast.FunctionDecl) {
	for _, s := range b.Stmts {
		c.convertStmt(s, fn)
	}
}

func (c *ExprConverter) convertStmt(s ast.Stmt, fn *ast.FunctionDecl) {
	switch x := s.(type) {
	case *ast.CodeBlock:
		c.convertBlock(x, fn)

	case *ast.VarDeclStmt:
		for _, v := range x.Vars {
			if v.Init == nil {
				continue
			}
			v.Init = c.convertExpr(v.Init)
			v.Init = broadcast(v.Init, v.Den())
		}

	case *ast.ForStmt:
		if x.Init != nil {
			c.convertStmt(x.Init, fn)
		}
		x.Cond = c.convertOpt(x.Cond)
		x.Iter = c.convertOpt(x.Iter)
		c.convertStmt(x.Body, fn)

	case *ast.WhileStmt:
		x.Cond = c.convertExpr(x.Cond)
		c.convertStmt(x.Body, fn)

	case *ast.DoWhileStmt:
		c.convertStmt(x.Body, fn)
		x.Cond = c.convertExpr(x.Cond)

	case *ast.IfStmt:
		x.Cond = c.convertExpr(x.Cond)
		c.convertStmt(x.Then, fn)
		if x.Else != nil {
			c.convertStmt(x.Else, fn)
		}

	case *ast.SwitchStmt:
		x.Selector = c.convertExpr(x.Selector)
		for _, cs := range x.Cases {
			for i, e := range cs.Exprs {
				cs.Exprs[i] = c.convertExpr(e)
			}
			for _, st := range cs.Stmts {
				c.convertStmt(st, fn)
			}
		}

	case *ast.ReturnStmt:
		if x.Expr != nil {
			x.Expr = c.convertExpr(x.Expr)
			if fn.ReturnType != nil {
				x.Expr = broadcast(x.Expr, fn.ReturnType.Den)
			}
		}

	case *ast.ExprStmt:
		x.Expr = c.convertExpr(x.Expr)
	}
}

func (c *ExprConverter) convertOpt(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	return c.convertExpr(e)
}

func (c *ExprConverter) convertExpr(e ast.Expr) ast.Expr {
	switch x := e.(type) {
	case *ast.SequenceExpr:
		for i, sub := range x.Exprs {
			x.Exprs[i] = c.convertExpr(sub)
		}

	case *ast.BinaryExpr:
		x.Left = c.convertExpr(x.Left)
		x.Right = c.convertExpr(x.Right)

	case *ast.UnaryExpr:
		x.Expr = c.convertExpr(x.Expr)

	case *ast.PostUnaryExpr:
		x.Expr = c.convertExpr(x.Expr)

	case *ast.TernaryExpr:
		x.Cond = c.convertExpr(x.Cond)
		x.Then = c.convertExpr(x.Then)
		x.Else = c.convertExpr(x.Else)

	case *ast.BracketExpr:
		x.Expr = c.convertExpr(x.Expr)

	case *ast.ArrayExpr:
		x.Prefix = c.convertExpr(x.Prefix)
		for i, idx := range x.Indices {
			x.Indices[i] = c.convertExpr(idx)
		}

	case *ast.ObjectExpr:
		if x.Prefix != nil {
			x.Prefix = c.convertExpr(x.Prefix)
		}

	case *ast.CastExpr:
		x.Expr = c.convertExpr(x.Expr)

	case *ast.AssignExpr:
		x.LValue = c.convertExpr(x.LValue)
		x.Value = c.convertExpr(x.Value)
		if x.Op == "=" {
			x.Value = broadcast(x.Value, x.LValue.TypeDen())
		}

	case *ast.InitializerExpr:
		for i, sub := range x.Exprs {
			x.Exprs[i] = c.convertExpr(sub)
		}

	case *ast.CallExpr:
		if x.Prefix != nil {
			x.Prefix = c.convertExpr(x.Prefix)
		}
		for i, arg := range x.Args {
			x.Args[i] = c.convertExpr(arg)
		}
		return c.convertCall(x)
	}
	return e
}

func (c *ExprConverter) convertCall(x *ast.CallExpr) ast.Expr {
	switch x.Intrinsic {
	case "mul":
		// matrix multiplication maps onto the '*' operator; operand
		// order is preserved, matrices are expected in the layout the
		// rowMajorAlignment option selects
		if len(x.Args) == 2 {
			return &ast.BinaryExpr{
				Span:  x.Span,
				Left:  bracketed(x.Args[0]),
				Op:    "*",
				Right: bracketed(x.Args[1]),
				Den:   x.Den,
			}
		}

	case "saturate":
		if len(x.Args) == 1 {
			zero := &ast.LiteralExpr{Span: x.Span, Kind: ast.LiteralFloat, Value: "0.0", Den: ast.Scalar(ast.ScalarFloat)}
			one := &ast.LiteralExpr{Span: x.Span, Kind: ast.LiteralFloat, Value: "1.0", Den: ast.Scalar(ast.ScalarFloat)}
			return &ast.CallExpr{
				Span:      x.Span,
				Name:      "clamp",
				Intrinsic: "clamp",
				Args:      []ast.Expr{x.Args[0], zero, one},
				Den:       x.Den,
			}
		}
	}
	return x
}

func bracketed(e ast.Expr) ast.Expr {
	switch e.(type) {
	case *ast.ObjectExpr, *ast.LiteralExpr, *ast.BracketExpr, *ast.CallExpr:
		return e
	}
	return &ast.BracketExpr{Span: e.Pos(), Expr: e}
}

// broadcast wraps a scalar expression in a constructor call when it
// initializes a vector or matrix, making the implicit HLSL broadcast
// explicit for the target.
func broadcast(e ast.Expr, target ast.TypeDenoter) ast.Expr {
	if e == nil || target == nil {
		return e
	}
	tb, ok := ast.Aliased(target).(*ast.BaseType)
	if !ok || tb.IsScalar() {
		return e
	}
	eb, ok := ast.Aliased(e.TypeDen()).(*ast.BaseType)
	if !ok || !eb.IsScalar() {
		return e
	}
	return &ast.CallExpr{
		Span:     e.Pos(),
		Name:     tb.String(),
		TypeCtor: tb,
		Args:     []ast.Expr{e},
		Den:      tb,
	}
}
