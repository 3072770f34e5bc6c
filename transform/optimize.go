package transform

import (
	"strconv"
	"strings"

	"github.com/gogpu/xshade/ast"
)

// Optimize performs the trivial AST-level optimizations: integer
// constant folding in expressions and removal of null statements.
// Anything beyond that is out of scope; dead declarations are already
// pruned by reachability.
func Optimize(prog *ast.Program) {
	for _, d := range prog.Decls {
		fn, ok := d.(*ast.FunctionDecl)
		if !ok || fn.Body == nil {
			continue
		}
		optimizeBlock(fn.Body)
	}
}

func optimizeBlock(b *ast.CodeBlock) {
	out := b.Stmts[:0]
	for _, s := range b.Stmts {
		if _, null := s.(*ast.NullStmt); null {
			continue
		}
		optimizeStmt(s)
		out = append(out, s)
	}
	b.Stmts = out
}

func optimizeStmt(s ast.Stmt) {
	switch x := s.(type) {
	case *ast.CodeBlock:
		optimizeBlock(x)
	case *ast.VarDeclStmt:
		for _, v := range x.Vars {
			if v.Init != nil {
				v.Init = fold(v.Init)
			}
		}
	case *ast.ForStmt:
		if x.Init != nil {
			optimizeStmt(x.Init)
		}
		x.Cond = foldOpt(x.Cond)
		x.Iter = foldOpt(x.Iter)
		optimizeStmt(x.Body)
	case *ast.WhileStmt:
		x.Cond = fold(x.Cond)
		optimizeStmt(x.Body)
	case *ast.DoWhileStmt:
		optimizeStmt(x.Body)
		x.Cond = fold(x.Cond)
	case *ast.IfStmt:
		x.Cond = fold(x.Cond)
		optimizeStmt(x.Then)
		if x.Else != nil {
			optimizeStmt(x.Else)
		}
	case *ast.SwitchStmt:
		x.Selector = fold(x.Selector)
		for _, c := range x.Cases {
			for _, cs := range c.Stmts {
				optimizeStmt(cs)
			}
		}
	case *ast.ReturnStmt:
		x.Expr = foldOpt(x.Expr)
	case *ast.ExprStmt:
		x.Expr = fold(x.Expr)
	}
}

func foldOpt(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	return fold(e)
}

// fold reduces integer-literal binary expressions bottom-up.
func fold(e ast.Expr) ast.Expr {
	switch x := e.(type) {
	case *ast.BinaryExpr:
		x.Left = fold(x.Left)
		x.Right = fold(x.Right)
		l, okL := intLiteral(x.Left)
		r, okR := intLiteral(x.Right)
		if !okL || !okR {
			return x
		}
		var v int64
		switch x.Op {
		case "+":
			v = l + r
		case "-":
			v = l - r
		case "*":
			v = l * r
		case "/":
			if r == 0 {
				return x
			}
			v = l / r
		case "%":
			if r == 0 {
				return x
			}
			v = l % r
		default:
			return x
		}
		return &ast.LiteralExpr{
			Span:  x.Span,
			Kind:  ast.LiteralInt,
			Value: strconv.FormatInt(v, 10),
			Den:   x.Den,
		}

	case *ast.UnaryExpr:
		x.Expr = fold(x.Expr)
		if v, ok := intLiteral(x.Expr); ok && x.Op == "-" {
			return &ast.LiteralExpr{
				Span:  x.Span,
				Kind:  ast.LiteralInt,
				Value: strconv.FormatInt(-v, 10),
				Den:   x.Den,
			}
		}
		return x

	case *ast.BracketExpr:
		x.Expr = fold(x.Expr)
		if _, ok := intLiteral(x.Expr); ok {
			return x.Expr
		}
		return x

	case *ast.AssignExpr:
		x.Value = fold(x.Value)
		return x

	case *ast.CallExpr:
		for i, arg := range x.Args {
			x.Args[i] = fold(arg)
		}
		return x
	}
	return e
}

func intLiteral(e ast.Expr) (int64, bool) {
	lit, ok := e.(*ast.LiteralExpr)
	if !ok || lit.Kind != ast.LiteralInt || strings.ContainsAny(lit.Value, "uUlL") {
		return 0, false
	}
	v, err := strconv.ParseInt(lit.Value, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
