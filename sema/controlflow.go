package sema

import "github.com/gogpu/xshade/ast"

// checkControlPaths computes hasNonReturnControlPath for every defined
// non-void function: a join over the statement tree where a path only
// counts as returning when every terminal choice ends in a return.
func (a *Analyzer) checkControlPaths() {
	for _, d := range a.prog.Decls {
		fn, ok := d.(*ast.FunctionDecl)
		if !ok || fn.Body == nil || fn.ReturnType == nil || fn.ReturnType.Den == nil {
			continue
		}
		if _, isVoid := ast.Aliased(fn.ReturnType.Den).(*ast.VoidType); isVoid {
			continue
		}
		if !stmtsReturn(fn.Body.Stmts) {
			fn.Flags.Set(ast.FlagHasNonReturnPath)
			a.warnAt(fn.Span, "not all control paths of function %q return a value", fn.Name)
		}
	}
}

func stmtsReturn(stmts []ast.Stmt) bool {
	for _, s := range stmts {
		if stmtReturns(s) {
			return true
		}
	}
	return false
}

func stmtReturns(s ast.Stmt) bool {
	switch x := s.(type) {
	case *ast.ReturnStmt:
		return true

	case *ast.CodeBlock:
		return stmtsReturn(x.Stmts)

	case *ast.IfStmt:
		// both branches must return; an if without else never
		// guarantees a return
		return x.Else != nil && stmtReturns(x.Then) && stmtReturns(x.Else)

	case *ast.SwitchStmt:
		hasDefault := false
		for _, c := range x.Cases {
			if c.IsDefault() {
				hasDefault = true
			}
			if !stmtsReturn(c.Stmts) {
				return false
			}
		}
		return hasDefault && len(x.Cases) > 0

	case *ast.CtrlTransferStmt:
		// discard terminates the invocation
		return x.Transfer == "discard"
	}
	return false
}
