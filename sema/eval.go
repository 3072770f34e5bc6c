package sema

import (
	"strconv"
	"strings"

	"github.com/gogpu/xshade/ast"
)

// evalInt evaluates a constant integer expression (trivial constant
// folding): literals, unary and binary integer arithmetic, and
// references to immutable variables with constant initializers.
func (a *Analyzer) evalInt(e ast.Expr) (int64, bool) {
	switch x := e.(type) {
	case *ast.LiteralExpr:
		switch x.Kind {
		case ast.LiteralInt:
			s := strings.TrimRight(x.Value, "uUlL")
			v, err := strconv.ParseInt(s, 0, 64)
			if err != nil {
				return 0, false
			}
			return v, true
		case ast.LiteralBool:
			if x.Value == "true" {
				return 1, true
			}
			return 0, true
		}
		return 0, false

	case *ast.BracketExpr:
		return a.evalInt(x.Expr)

	case *ast.UnaryExpr:
		v, ok := a.evalInt(x.Expr)
		if !ok {
			return 0, false
		}
		switch x.Op {
		case "-":
			return -v, true
		case "+":
			return v, true
		case "~":
			return ^v, true
		case "!":
			if v == 0 {
				return 1, true
			}
			return 0, true
		}
		return 0, false

	case *ast.BinaryExpr:
		l, okL := a.evalInt(x.Left)
		r, okR := a.evalInt(x.Right)
		if !okL || !okR {
			return 0, false
		}
		switch x.Op {
		case "+":
			return l + r, true
		case "-":
			return l - r, true
		case "*":
			return l * r, true
		case "/":
			if r == 0 {
				return 0, false
			}
			return l / r, true
		case "%":
			if r == 0 {
				return 0, false
			}
			return l % r, true
		case "<<":
			return l << uint64(r), true
		case ">>":
			return l >> uint64(r), true
		case "&":
			return l & r, true
		case "|":
			return l | r, true
		case "^":
			return l ^ r, true
		}
		return 0, false

	case *ast.ObjectExpr:
		if x.Prefix != nil {
			return 0, false
		}
		d, _ := a.symtab.Find(x.Name)
		if v, ok := d.(*ast.VarDecl); ok && v.Flags.Has(ast.FlagImmutable) && v.Init != nil {
			return a.evalInt(v.Init)
		}
		return 0, false

	case *ast.CastExpr:
		return a.evalInt(x.Expr)
	}
	return 0, false
}

// evalFloat evaluates a constant floating-point expression.
func (a *Analyzer) evalFloat(e ast.Expr) (float64, bool) {
	switch x := e.(type) {
	case *ast.LiteralExpr:
		switch x.Kind {
		case ast.LiteralFloat:
			s := strings.TrimRight(x.Value, "fFhH")
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, false
			}
			return v, true
		case ast.LiteralInt:
			v, ok := a.evalInt(e)
			return float64(v), ok
		}
		return 0, false
	case *ast.UnaryExpr:
		v, ok := a.evalFloat(x.Expr)
		if ok && x.Op == "-" {
			return -v, true
		}
		return v, ok
	case *ast.BracketExpr:
		return a.evalFloat(x.Expr)
	}
	if v, ok := a.evalInt(e); ok {
		return float64(v), true
	}
	return 0, false
}
