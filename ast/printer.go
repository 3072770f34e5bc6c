package ast

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes an indented dump of the program's declarations to w.
// The dump is diagnostic output; it is not valid source.
func Fprint(w io.Writer, p *Program) {
	pr := &printer{w: w}
	for _, d := range p.Decls {
		pr.print(d)
	}
}

// Sprint returns the dump as a string.
func Sprint(p *Program) string {
	var sb strings.Builder
	Fprint(&sb, p)
	return sb.String()
}

type printer struct {
	w     io.Writer
	depth int
}

func (pr *printer) print(root Node) {
	Walk(&dumpVisitor{pr: pr}, root)
}

type dumpVisitor struct {
	pr *printer
}

func (v *dumpVisitor) Visit(n Node) bool {
	pr := v.pr
	indent := strings.Repeat("  ", pr.depth)

	label := nodeLabel(n)
	pos := n.Pos().Start
	if pos.IsValid() {
		fmt.Fprintf(pr.w, "%s%s (%d:%d)\n", indent, label, pos.Line, pos.Column)
	} else {
		fmt.Fprintf(pr.w, "%s%s\n", indent, label)
	}

	// children print one level deeper; Walk re-enters this visitor
	pr.depth++
	walkChildren(v, n)
	pr.depth--
	return false
}

// walkChildren dispatches Walk on n with the visitor accepting
// children, bypassing the parent re-visit.
func walkChildren(v *dumpVisitor, n Node) {
	Walk(childVisitor{v: v, skip: n}, n)
}

type childVisitor struct {
	v    *dumpVisitor
	skip Node
}

func (c childVisitor) Visit(n Node) bool {
	if n == c.skip {
		return true
	}
	return c.v.Visit(n)
}

func nodeLabel(n Node) string {
	switch x := n.(type) {
	case *FunctionDecl:
		return fmt.Sprintf("FunctionDecl %q", x.Name)
	case *VarDecl:
		if x.Semantic != "" {
			return fmt.Sprintf("VarDecl %q : %s", x.Name, x.Semantic)
		}
		return fmt.Sprintf("VarDecl %q", x.Name)
	case *VarDeclStmt:
		return "VarDeclStmt"
	case *StructDecl:
		return fmt.Sprintf("StructDecl %q", x.Name)
	case *AliasDecl:
		return fmt.Sprintf("AliasDecl %q", x.Name)
	case *BufferDecl:
		return fmt.Sprintf("BufferDecl %q %s", x.Name, x.Type)
	case *SamplerDecl:
		return fmt.Sprintf("SamplerDecl %q", x.Name)
	case *UniformBufferDecl:
		return fmt.Sprintf("UniformBufferDecl %q", x.Name)
	case *CodeBlock:
		return "CodeBlock"
	case *ForStmt:
		return "ForStmt"
	case *WhileStmt:
		return "WhileStmt"
	case *DoWhileStmt:
		return "DoWhileStmt"
	case *IfStmt:
		return "IfStmt"
	case *SwitchStmt:
		return "SwitchStmt"
	case *ReturnStmt:
		return "ReturnStmt"
	case *CtrlTransferStmt:
		return fmt.Sprintf("CtrlTransferStmt %q", x.Transfer)
	case *ExprStmt:
		return "ExprStmt"
	case *NullStmt:
		return "NullStmt"
	case *LiteralExpr:
		return fmt.Sprintf("LiteralExpr %q", x.Value)
	case *SequenceExpr:
		return "SequenceExpr"
	case *BinaryExpr:
		return fmt.Sprintf("BinaryExpr %q", x.Op)
	case *UnaryExpr:
		return fmt.Sprintf("UnaryExpr %q", x.Op)
	case *PostUnaryExpr:
		return fmt.Sprintf("PostUnaryExpr %q", x.Op)
	case *TernaryExpr:
		return "TernaryExpr"
	case *CallExpr:
		return fmt.Sprintf("CallExpr %q", x.Name)
	case *BracketExpr:
		return "BracketExpr"
	case *ObjectExpr:
		return fmt.Sprintf("ObjectExpr %q", x.Name)
	case *ArrayExpr:
		return "ArrayExpr"
	case *CastExpr:
		return "CastExpr"
	case *AssignExpr:
		return fmt.Sprintf("AssignExpr %q", x.Op)
	case *InitializerExpr:
		return "InitializerExpr"
	}
	return fmt.Sprintf("%T", n)
}
