// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/xshade/ast"
)

// Formatting controls the emitted source layout.
type Formatting struct {
	Indent             string
	LineMarks          bool
	CompactWrappers    bool
	AlwaysBracedScopes bool
}

// WriterOptions configures HLSL re-emission.
type WriterOptions struct {
	Formatting       Formatting
	PreserveComments bool
}

// Writer re-emits HLSL source from a decorated program. Emission is
// canonical: re-compiling the output reproduces it byte for byte.
type Writer struct {
	prog *ast.Program
	opts WriterOptions

	out    strings.Builder
	indent int
}

// Generate emits HLSL source for the program. Reachability gates
// declaration-level emission.
func Generate(prog *ast.Program, opts WriterOptions) (string, error) {
	if opts.Formatting.Indent == "" {
		opts.Formatting.Indent = "    "
	}
	w := &Writer{prog: prog, opts: opts}
	w.writeModule()
	return w.out.String(), nil
}

func (w *Writer) writeModule() {
	for _, d := range w.prog.Decls {
		if !d.DeclFlags().Has(ast.FlagReachable) {
			continue
		}
		switch x := d.(type) {
		case *ast.StructDecl:
			w.writeStructDecl(x)
			w.writeLine("")
		case *ast.AliasDecl:
			w.writeLine("typedef %s %s;", typeName(x.Type.Den), x.Name)
		case *ast.UniformBufferDecl:
			w.writeUniformBuffer(x)
			w.writeLine("")
		case *ast.BufferDecl:
			w.writeBufferDecl(x)
		case *ast.SamplerDecl:
			w.writeSamplerDecl(x)
		case *ast.VarDeclStmt:
			w.writeVarDeclStmt(x, true)
		case *ast.FunctionDecl:
			w.writeFunction(x)
			if x.Body != nil {
				w.writeLine("")
			}
		}
	}
}

func typeName(den ast.TypeDenoter) string {
	if den == nil {
		return "void"
	}
	return den.String()
}

func (w *Writer) writeStructDecl(sd *ast.StructDecl) {
	w.comment(sd.Comment)
	w.writeLine("struct %s", sd.Name)
	w.writeLine("{")
	w.indent++
	for _, m := range sd.Members {
		for _, v := range m.Vars {
			w.writeIndent()
			w.writeMemberVar(m.Type, v)
			w.out.WriteString(";\n")
		}
	}
	w.indent--
	w.writeLine("};")
}

func (w *Writer) writeMemberVar(ts *ast.TypeSpecifier, v *ast.VarDecl) {
	w.writeTypeSpecifier(ts)
	w.out.WriteByte(' ')
	w.out.WriteString(v.Name)
	w.writeArraySuffix(v.ArrayDims)
	if v.Semantic != "" {
		fmt.Fprintf(&w.out, " : %s", v.Semantic)
	}
	if v.PackOffset != "" {
		fmt.Fprintf(&w.out, " : packoffset(%s)", v.PackOffset)
	}
	if v.Register != nil {
		w.writeRegister(v.Register)
	}
}

func (w *Writer) writeTypeSpecifier(ts *ast.TypeSpecifier) {
	for _, sc := range ts.StorageClasses {
		w.out.WriteString(sc)
		w.out.WriteByte(' ')
	}
	for _, im := range ts.InterpModifiers {
		w.out.WriteString(im)
		w.out.WriteByte(' ')
	}
	for _, tm := range ts.TypeModifiers {
		w.out.WriteString(tm)
		w.out.WriteByte(' ')
	}
	if ts.InputModifier != "" {
		w.out.WriteString(ts.InputModifier)
		w.out.WriteByte(' ')
	}
	if ts.StructDecl != nil {
		w.writeInlineStruct(ts.StructDecl)
		return
	}
	w.out.WriteString(typeName(ts.Den))
}

// writeInlineStruct emits a struct declared inside a variable
// declaration.
func (w *Writer) writeInlineStruct(sd *ast.StructDecl) {
	w.out.WriteString("struct ")
	if sd.Name != "" {
		w.out.WriteString(sd.Name)
		w.out.WriteByte(' ')
	}
	w.out.WriteString("{ ")
	for _, m := range sd.Members {
		for _, v := range m.Vars {
			w.writeMemberVar(m.Type, v)
			w.out.WriteString("; ")
		}
	}
	w.out.WriteByte('}')
}

func (w *Writer) writeUniformBuffer(ub *ast.UniformBufferDecl) {
	w.comment(ub.Comment)
	w.writeIndent()
	fmt.Fprintf(&w.out, "%s %s", ub.Keyword, ub.Name)
	if ub.Register != nil {
		w.writeRegister(ub.Register)
	}
	w.out.WriteByte('\n')
	w.writeLine("{")
	w.indent++
	for _, m := range ub.Members {
		for _, v := range m.Vars {
			w.writeIndent()
			w.writeMemberVar(m.Type, v)
			w.out.WriteString(";\n")
		}
	}
	w.indent--
	w.writeLine("};")
}

func (w *Writer) writeBufferDecl(x *ast.BufferDecl) {
	w.comment(x.Comment)
	w.writeIndent()
	w.out.WriteString(x.Type.String())
	w.out.WriteByte(' ')
	w.out.WriteString(x.Name)
	w.writeArraySuffix(x.ArrayDims)
	if x.Register != nil {
		w.writeRegister(x.Register)
	}
	w.out.WriteString(";\n")
}

func (w *Writer) writeSamplerDecl(x *ast.SamplerDecl) {
	w.comment(x.Comment)
	w.writeIndent()
	w.out.WriteString(x.Type.Name)
	w.out.WriteByte(' ')
	w.out.WriteString(x.Name)
	if x.Register != nil {
		w.writeRegister(x.Register)
	}
	w.out.WriteString(";\n")
}

func (w *Writer) writeRegister(r *ast.Register) {
	fmt.Fprintf(&w.out, " : register(%c%d)", r.Class, r.Slot)
}

func (w *Writer) writeVarDeclStmt(x *ast.VarDeclStmt, global bool) {
	w.comment(x.Comment)
	for _, v := range x.Vars {
		if global && !v.Flags.Has(ast.FlagReachable) {
			continue
		}
		w.writeIndent()
		w.writeTypeSpecifier(x.Type)
		w.out.WriteByte(' ')
		w.out.WriteString(v.Name)
		w.writeArraySuffix(v.ArrayDims)
		if v.Semantic != "" {
			fmt.Fprintf(&w.out, " : %s", v.Semantic)
		}
		if v.Register != nil {
			w.writeRegister(v.Register)
		}
		if v.Init != nil {
			w.out.WriteString(" = ")
			w.writeExpr(v.Init)
		}
		w.out.WriteString(";\n")
	}
}

func (w *Writer) writeFunction(fn *ast.FunctionDecl) {
	w.comment(fn.Comment)
	for _, a := range fn.Attribs {
		w.writeAttribute(a)
	}
	w.writeIndent()
	w.out.WriteString(typeName(fn.ReturnType.Den))
	w.out.WriteByte(' ')
	w.out.WriteString(fn.Name)
	w.out.WriteByte('(')
	for i, p := range fn.Params {
		if i > 0 {
			w.out.WriteString(", ")
		}
		w.writeTypeSpecifier(p.Param)
		w.out.WriteByte(' ')
		w.out.WriteString(p.Name)
		w.writeArraySuffix(p.ArrayDims)
		if p.Semantic != "" {
			fmt.Fprintf(&w.out, " : %s", p.Semantic)
		}
		if p.Init != nil {
			w.out.WriteString(" = ")
			w.writeExpr(p.Init)
		}
	}
	w.out.WriteByte(')')
	if fn.Semantic != "" {
		fmt.Fprintf(&w.out, " : %s", fn.Semantic)
	}
	if fn.Body == nil {
		w.out.WriteString(";\n")
		return
	}
	w.out.WriteByte('\n')
	w.writeBlock(fn.Body)
}

func (w *Writer) writeAttribute(a *ast.Attribute) {
	w.writeIndent()
	w.out.WriteByte('[')
	w.out.WriteString(a.Name)
	if len(a.Args) > 0 {
		w.out.WriteByte('(')
		for i, arg := range a.Args {
			if i > 0 {
				w.out.WriteString(", ")
			}
			w.writeExpr(arg)
		}
		w.out.WriteByte(')')
	}
	w.out.WriteString("]\n")
}

/* ----- statements ----- */

func (w *Writer) writeBlock(b *ast.CodeBlock) {
	w.writeLine("{")
	w.indent++
	for _, s := range b.Stmts {
		w.writeStmt(s)
	}
	w.indent--
	w.writeLine("}")
}

func (w *Writer) writeScoped(s ast.Stmt) {
	if blk, ok := s.(*ast.CodeBlock); ok {
		w.writeBlock(blk)
		return
	}
	if w.opts.Formatting.AlwaysBracedScopes {
		w.writeLine("{")
		w.indent++
		w.writeStmt(s)
		w.indent--
		w.writeLine("}")
		return
	}
	w.indent++
	w.writeStmt(s)
	w.indent--
}

func (w *Writer) writeStmt(s ast.Stmt) {
	switch x := s.(type) {
	case *ast.CodeBlock:
		w.writeBlock(x)

	case *ast.NullStmt:
		w.writeLine(";")

	case *ast.VarDeclStmt:
		w.writeVarDeclStmt(x, false)

	case *ast.StructDecl:
		w.writeStructDecl(x)

	case *ast.AliasDecl:
		w.writeLine("typedef %s %s;", typeName(x.Type.Den), x.Name)

	case *ast.IfStmt:
		w.writeIndent()
		w.out.WriteString("if (")
		w.writeExpr(x.Cond)
		w.out.WriteString(")\n")
		w.writeScoped(x.Then)
		if x.Else != nil {
			if elif, ok := x.Else.(*ast.IfStmt); ok {
				w.writeIndent()
				w.out.WriteString("else ")
				w.writeElseIf(elif)
			} else {
				w.writeLine("else")
				w.writeScoped(x.Else)
			}
		}

	case *ast.ForStmt:
		w.writeIndent()
		w.out.WriteString("for (")
		w.writeForInit(x.Init)
		w.out.WriteString("; ")
		if x.Cond != nil {
			w.writeExpr(x.Cond)
		}
		w.out.WriteString("; ")
		if x.Iter != nil {
			w.writeExpr(x.Iter)
		}
		w.out.WriteString(")\n")
		w.writeScoped(x.Body)

	case *ast.WhileStmt:
		w.writeIndent()
		w.out.WriteString("while (")
		w.writeExpr(x.Cond)
		w.out.WriteString(")\n")
		w.writeScoped(x.Body)

	case *ast.DoWhileStmt:
		w.writeLine("do")
		w.writeScoped(x.Body)
		w.writeIndent()
		w.out.WriteString("while (")
		w.writeExpr(x.Cond)
		w.out.WriteString(");\n")

	case *ast.SwitchStmt:
		w.writeIndent()
		w.out.WriteString("switch (")
		w.writeExpr(x.Selector)
		w.out.WriteString(")\n")
		w.writeLine("{")
		for _, c := range x.Cases {
			if c.IsDefault() {
				w.writeLine("default:")
			} else {
				for _, e := range c.Exprs {
					w.writeIndent()
					w.out.WriteString("case ")
					w.writeExpr(e)
					w.out.WriteString(":\n")
				}
			}
			w.indent++
			for _, cs := range c.Stmts {
				w.writeStmt(cs)
			}
			w.indent--
		}
		w.writeLine("}")

	case *ast.ReturnStmt:
		if x.Expr == nil {
			w.writeLine("return;")
		} else {
			w.writeIndent()
			w.out.WriteString("return ")
			w.writeExpr(x.Expr)
			w.out.WriteString(";\n")
		}

	case *ast.CtrlTransferStmt:
		w.writeLine("%s;", x.Transfer)

	case *ast.ExprStmt:
		w.writeIndent()
		w.writeExpr(x.Expr)
		w.out.WriteString(";\n")
	}
}

func (w *Writer) writeElseIf(x *ast.IfStmt) {
	w.out.WriteString("if (")
	w.writeExpr(x.Cond)
	w.out.WriteString(")\n")
	w.writeScoped(x.Then)
	if x.Else != nil {
		if elif, ok := x.Else.(*ast.IfStmt); ok {
			w.writeIndent()
			w.out.WriteString("else ")
			w.writeElseIf(elif)
		} else {
			w.writeLine("else")
			w.writeScoped(x.Else)
		}
	}
}

func (w *Writer) writeForInit(s ast.Stmt) {
	switch x := s.(type) {
	case nil:
	case *ast.VarDeclStmt:
		for i, v := range x.Vars {
			if i > 0 {
				w.out.WriteString(", ")
			}
			if i == 0 {
				w.writeTypeSpecifier(x.Type)
				w.out.WriteByte(' ')
			}
			w.out.WriteString(v.Name)
			if v.Init != nil {
				w.out.WriteString(" = ")
				w.writeExpr(v.Init)
			}
		}
	case *ast.ExprStmt:
		w.writeExpr(x.Expr)
	}
}

/* ----- expressions ----- */

func (w *Writer) writeExpr(e ast.Expr) {
	switch x := e.(type) {
	case *ast.LiteralExpr:
		w.out.WriteString(x.Value)

	case *ast.SequenceExpr:
		for i, sub := range x.Exprs {
			if i > 0 {
				w.out.WriteString(", ")
			}
			w.writeExpr(sub)
		}

	case *ast.BinaryExpr:
		w.writeExpr(x.Left)
		fmt.Fprintf(&w.out, " %s ", x.Op)
		w.writeExpr(x.Right)

	case *ast.UnaryExpr:
		w.out.WriteString(x.Op)
		w.writeExpr(x.Expr)

	case *ast.PostUnaryExpr:
		w.writeExpr(x.Expr)
		w.out.WriteString(x.Op)

	case *ast.TernaryExpr:
		w.writeExpr(x.Cond)
		w.out.WriteString(" ? ")
		w.writeExpr(x.Then)
		w.out.WriteString(" : ")
		w.writeExpr(x.Else)

	case *ast.CallExpr:
		if x.Prefix != nil {
			w.writeExpr(x.Prefix)
			w.out.WriteByte('.')
		}
		name := x.Name
		if x.FuncRef != nil {
			name = x.FuncRef.Name
		}
		w.out.WriteString(name)
		w.out.WriteByte('(')
		for i, arg := range x.Args {
			if i > 0 {
				w.out.WriteString(", ")
			}
			w.writeExpr(arg)
		}
		w.out.WriteByte(')')

	case *ast.BracketExpr:
		w.out.WriteByte('(')
		w.writeExpr(x.Expr)
		w.out.WriteByte(')')

	case *ast.ObjectExpr:
		if x.Prefix != nil {
			w.writeExpr(x.Prefix)
			w.out.WriteByte('.')
		}
		if v, ok := x.SymbolRef.(*ast.VarDecl); ok {
			w.out.WriteString(v.Name)
		} else {
			w.out.WriteString(x.Name)
		}

	case *ast.ArrayExpr:
		w.writeExpr(x.Prefix)
		for _, idx := range x.Indices {
			w.out.WriteByte('[')
			w.writeExpr(idx)
			w.out.WriteByte(']')
		}

	case *ast.CastExpr:
		w.out.WriteByte('(')
		w.out.WriteString(typeName(x.Type.Den))
		w.out.WriteByte(')')
		w.writeExpr(x.Expr)

	case *ast.AssignExpr:
		w.writeExpr(x.LValue)
		fmt.Fprintf(&w.out, " %s ", x.Op)
		w.writeExpr(x.Value)

	case *ast.InitializerExpr:
		w.out.WriteString("{ ")
		for i, sub := range x.Exprs {
			if i > 0 {
				w.out.WriteString(", ")
			}
			w.writeExpr(sub)
		}
		w.out.WriteString(" }")
	}
}

/* ----- plumbing ----- */

func (w *Writer) writeArraySuffix(dims []*ast.ArrayDimension) {
	for _, d := range dims {
		switch {
		case d.Size > 0:
			fmt.Fprintf(&w.out, "[%d]", d.Size)
		case d.Expr != nil:
			w.out.WriteByte('[')
			w.writeExpr(d.Expr)
			w.out.WriteByte(']')
		default:
			w.out.WriteString("[]")
		}
	}
}

func (w *Writer) writeLine(format string, args ...any) {
	if format == "" {
		if !w.opts.Formatting.CompactWrappers {
			w.out.WriteByte('\n')
		}
		return
	}
	w.writeIndent()
	fmt.Fprintf(&w.out, format, args...)
	w.out.WriteByte('\n')
}

func (w *Writer) writeIndent() {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString(w.opts.Formatting.Indent)
	}
}

func (w *Writer) comment(text string) {
	if !w.opts.PreserveComments || text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		w.writeLine("// %s", line)
	}
}
