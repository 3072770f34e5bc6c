package ast

// Visitor is implemented by AST traversals. Visit is called for each
// node; returning false prunes the node's children.
type Visitor interface {
	Visit(n Node) bool
}

// Walk traverses the tree rooted at n in depth-first source order,
// dispatching over the concrete node type.
func Walk(v Visitor, n Node) {
	if n == nil || !v.Visit(n) {
		return
	}

	switch x := n.(type) {
	case *FunctionDecl:
		walkTypeSpec(v, x.ReturnType)
		for _, p := range x.Params {
			Walk(v, p)
		}
		for _, a := range x.Attribs {
			for _, arg := range a.Args {
				Walk(v, arg)
			}
		}
		if x.Body != nil {
			Walk(v, x.Body)
		}

	case *VarDecl:
		if x.Param != nil {
			walkTypeSpec(v, x.Param)
		}
		for _, d := range x.ArrayDims {
			if d.Expr != nil {
				Walk(v, d.Expr)
			}
		}
		if x.Init != nil {
			Walk(v, x.Init)
		}

	case *VarDeclStmt:
		walkTypeSpec(v, x.Type)
		for _, d := range x.Vars {
			Walk(v, d)
		}

	case *StructDecl:
		for _, m := range x.Members {
			Walk(v, m)
		}

	case *AliasDecl:
		walkTypeSpec(v, x.Type)

	case *BufferDecl:
		for _, d := range x.ArrayDims {
			if d.Expr != nil {
				Walk(v, d.Expr)
			}
		}

	case *SamplerDecl:
		// no children

	case *UniformBufferDecl:
		for _, m := range x.Members {
			Walk(v, m)
		}

	case *CodeBlock:
		for _, s := range x.Stmts {
			Walk(v, s)
		}

	case *ForStmt:
		if x.Init != nil {
			Walk(v, x.Init)
		}
		if x.Cond != nil {
			Walk(v, x.Cond)
		}
		if x.Iter != nil {
			Walk(v, x.Iter)
		}
		Walk(v, x.Body)

	case *WhileStmt:
		Walk(v, x.Cond)
		Walk(v, x.Body)

	case *DoWhileStmt:
		Walk(v, x.Body)
		Walk(v, x.Cond)

	case *IfStmt:
		Walk(v, x.Cond)
		Walk(v, x.Then)
		if x.Else != nil {
			Walk(v, x.Else)
		}

	case *SwitchStmt:
		Walk(v, x.Selector)
		for _, c := range x.Cases {
			for _, e := range c.Exprs {
				Walk(v, e)
			}
			for _, s := range c.Stmts {
				Walk(v, s)
			}
		}

	case *ReturnStmt:
		if x.Expr != nil {
			Walk(v, x.Expr)
		}

	case *ExprStmt:
		Walk(v, x.Expr)

	case *SequenceExpr:
		for _, e := range x.Exprs {
			Walk(v, e)
		}

	case *BinaryExpr:
		Walk(v, x.Left)
		Walk(v, x.Right)

	case *UnaryExpr:
		Walk(v, x.Expr)

	case *PostUnaryExpr:
		Walk(v, x.Expr)

	case *TernaryExpr:
		Walk(v, x.Cond)
		Walk(v, x.Then)
		Walk(v, x.Else)

	case *CallExpr:
		if x.Prefix != nil {
			Walk(v, x.Prefix)
		}
		for _, a := range x.Args {
			Walk(v, a)
		}

	case *BracketExpr:
		Walk(v, x.Expr)

	case *ObjectExpr:
		if x.Prefix != nil {
			Walk(v, x.Prefix)
		}

	case *ArrayExpr:
		Walk(v, x.Prefix)
		for _, i := range x.Indices {
			Walk(v, i)
		}

	case *CastExpr:
		walkTypeSpec(v, x.Type)
		Walk(v, x.Expr)

	case *AssignExpr:
		Walk(v, x.LValue)
		Walk(v, x.Value)

	case *InitializerExpr:
		for _, e := range x.Exprs {
			Walk(v, e)
		}
	}
}

func walkTypeSpec(v Visitor, ts *TypeSpecifier) {
	if ts == nil {
		return
	}
	if ts.StructDecl != nil {
		Walk(v, ts.StructDecl)
	}
}

// WalkProgram traverses all global declarations of a program.
func WalkProgram(v Visitor, p *Program) {
	for _, d := range p.Decls {
		Walk(v, d)
	}
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(n Node) bool

// Visit implements Visitor.
func (f VisitorFunc) Visit(n Node) bool { return f(n) }
