// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glsl generates GLSL, ESSL and Vulkan-style GLSL source from a
// decorated and transformed AST program.
package glsl

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

// Options configures GLSL code generation.
type Options struct {
	Version ast.OutputVersion

	Formatting Formatting

	PreserveComments  bool
	AllowExtensions   bool
	ExplicitBinding   bool
	AutoBinding       bool
	RowMajorAlignment bool
	SeparateShaders   bool

	// TempPrefix names compiler-introduced temporaries.
	TempPrefix string

	// SemanticLocations pins IO locations for explicit semantics
	// (from the vertex/fragment semantic binding tables).
	SemanticLocations map[string]int
}

// DefaultOptions returns sensible defaults for GLSL 4.50 output.
func DefaultOptions() Options {
	return Options{
		Version:    ast.OutputGLSL450,
		Formatting: Formatting{Indent: "    "},
		TempPrefix: "xst_",
	}
}

// Writer generates GLSL source from a program.
type Writer struct {
	prog *ast.Program
	opts Options

	out    strings.Builder
	indent int

	inEntry bool
	err     error

	// auto-binding counters
	nextTexSlot int
	nextBufSlot int
	nextInLoc   int
	nextOutLoc  int
}

// Generate emits target source for the given program.
func Generate(prog *ast.Program, opts Options) (string, error) {
	if opts.Formatting.Indent == "" {
		opts.Formatting.Indent = "    "
	}
	if opts.TempPrefix == "" {
		opts.TempPrefix = "xst_"
	}
	w := &Writer{prog: prog, opts: opts}
	w.writeModule()
	return w.out.String(), w.err
}

func (w *Writer) writeModule() {
	w.writeVersionDirective()
	w.writePrecisionQualifiers()
	w.writeStageLayouts()

	w.writeStructs()
	w.writeUniformBuffers()
	w.writeResources()
	w.writeGlobals()
	w.writeIOVariables()
	w.writeFunctions()
}

func (w *Writer) writeVersionDirective() {
	if w.opts.Version.IsESSL() {
		w.writeLine("#version %d es", w.opts.Version.Number())
	} else {
		w.writeLine("#version %d", w.opts.Version.Number())
	}
	if w.opts.AllowExtensions && w.opts.Version.IsVKSL() {
		w.writeLine("#extension GL_KHR_vulkan_glsl : enable")
	}
	if w.opts.AllowExtensions && w.opts.SeparateShaders && w.opts.Version.IsGLSL() {
		w.writeLine("#extension GL_ARB_separate_shader_objects : enable")
	}
	w.blank()
}

func (w *Writer) writePrecisionQualifiers() {
	if !w.opts.Version.IsESSL() {
		return
	}
	w.writeLine("precision highp float;")
	w.writeLine("precision highp int;")
	w.blank()
}

func (w *Writer) writeStageLayouts() {
	switch w.prog.Target {
	case ast.TargetCompute:
		nt := w.prog.Compute.NumThreads
		x, y, z := nt[0], nt[1], nt[2]
		if x == 0 {
			x, y, z = 1, 1, 1
		}
		w.writeLine("layout(local_size_x = %d, local_size_y = %d, local_size_z = %d) in;", x, y, z)
		w.blank()
	case ast.TargetFragment:
		if w.prog.Fragment.EarlyDepthStencil {
			w.writeLine("layout(early_fragment_tests) in;")
			w.blank()
		}
	case ast.TargetGeometry:
		if w.prog.Geometry.MaxVertices > 0 {
			topology := w.prog.Geometry.OutputTopology
			if topology == "" {
				topology = "triangle_strip"
			}
			w.writeLine("layout(%s, max_vertices = %d) out;", topology, w.prog.Geometry.MaxVertices)
			w.blank()
		}
	}
}

/* ----- declarations ----- */

func (w *Writer) writeStructs() {
	wrote := false
	for _, d := range w.prog.Decls {
		sd, ok := d.(*ast.StructDecl)
		if !ok || !sd.Flags.Has(ast.FlagReachable) || !sd.Flags.Has(ast.FlagNominalStruct) {
			continue
		}
		w.writeStructDecl(sd)
		wrote = true
	}
	if wrote {
		w.blank()
	}
}

func (w *Writer) writeStructDecl(sd *ast.StructDecl) {
	w.lineMark(sd.Span.Start.Line)
	w.comment(sd.Comment)
	w.writeLine("struct %s", sd.Name)
	w.writeLine("{")
	w.indent++
	for _, m := range sd.Members {
		for _, v := range m.Vars {
			w.writeIndent()
			w.out.WriteString(TypeName(m.Type.Den))
			w.out.WriteByte(' ')
			w.out.WriteString(v.Name)
			w.writeArraySuffix(v.ArrayDims)
			w.out.WriteString(";\n")
		}
	}
	w.indent--
	w.writeLine("};")
}

func (w *Writer) writeUniformBuffers() {
	wrote := false
	for _, d := range w.prog.Decls {
		ub, ok := d.(*ast.UniformBufferDecl)
		if !ok || !ub.Flags.Has(ast.FlagReachable) {
			continue
		}
		w.lineMark(ub.Span.Start.Line)
		w.comment(ub.Comment)

		quals := []string{"std140"}
		if w.opts.RowMajorAlignment {
			quals = append(quals, "row_major")
		}
		if slot, ok := w.bindingSlot(ub.Register, &w.nextBufSlot); ok {
			quals = append(quals, fmt.Sprintf("binding = %d", slot))
		}
		w.writeLine("layout(%s) uniform %s", strings.Join(quals, ", "), ub.Name)
		w.writeLine("{")
		w.indent++
		for _, m := range ub.Members {
			for _, v := range m.Vars {
				w.writeIndent()
				w.out.WriteString(TypeName(m.Type.Den))
				w.out.WriteByte(' ')
				w.out.WriteString(v.Name)
				w.writeArraySuffix(v.ArrayDims)
				w.out.WriteString(";\n")
			}
		}
		w.indent--
		w.writeLine("};")
		wrote = true
	}
	if wrote {
		w.blank()
	}
}

func (w *Writer) writeResources() {
	wrote := false
	for _, d := range w.prog.Decls {
		switch x := d.(type) {
		case *ast.BufferDecl:
			if !x.Flags.Has(ast.FlagReachable) {
				continue
			}
			w.writeBufferDecl(x)
			wrote = true
		case *ast.SamplerDecl:
			// separate sampler states fold into the combined GLSL
			// sampler; nothing is emitted for them
			continue
		}
	}
	if wrote {
		w.blank()
	}
}

func (w *Writer) writeBufferDecl(x *ast.BufferDecl) {
	w.lineMark(x.Span.Start.Line)
	w.comment(x.Comment)

	if strings.Contains(x.Type.Kind, "StructuredBuffer") || strings.Contains(x.Type.Kind, "ByteAddressBuffer") {
		quals := []string{"std430"}
		if slot, ok := w.bindingSlot(x.Register, &w.nextBufSlot); ok {
			quals = append(quals, fmt.Sprintf("binding = %d", slot))
		}
		access := "readonly "
		if x.Type.IsRW() {
			access = ""
		}
		elem := "uint"
		if x.Type.Generic != nil {
			elem = TypeName(x.Type.Generic)
		}
		w.writeLine("layout(%s) %sbuffer %s_block", strings.Join(quals, ", "), access, x.Name)
		w.writeLine("{")
		w.indent++
		w.writeLine("%s %s[];", elem, x.Name)
		w.indent--
		w.writeLine("};")
		return
	}

	w.writeIndent()
	if slot, ok := w.bindingSlot(x.Register, &w.nextTexSlot); ok {
		fmt.Fprintf(&w.out, "layout(binding = %d) ", slot)
	}
	w.out.WriteString("uniform ")
	w.out.WriteString(textureTypeName(x.Type))
	w.out.WriteByte(' ')
	w.out.WriteString(x.Name)
	w.writeArraySuffix(x.ArrayDims)
	w.out.WriteString(";\n")
}

// bindingSlot returns the explicit or auto-assigned binding slot, and
// whether a layout qualifier should be emitted at all.
func (w *Writer) bindingSlot(reg *ast.Register, next *int) (int, bool) {
	if !w.opts.ExplicitBinding {
		return 0, false
	}
	if reg != nil {
		if reg.Slot >= *next {
			*next = reg.Slot + 1
		}
		return reg.Slot, true
	}
	if !w.opts.AutoBinding {
		return 0, false
	}
	slot := *next
	*next++
	return slot, true
}

func (w *Writer) writeGlobals() {
	wrote := false
	for _, d := range w.prog.Decls {
		vds, ok := d.(*ast.VarDeclStmt)
		if !ok || !vds.Flags.Has(ast.FlagReachable) {
			continue
		}
		w.lineMark(vds.Span.Start.Line)
		w.comment(vds.Comment)
		for _, v := range vds.Vars {
			if !v.Flags.Has(ast.FlagReachable) {
				continue
			}
			w.writeIndent()
			switch {
			case vds.Type.IsConst():
				w.out.WriteString("const ")
			case !vds.Type.HasStorageClass("static") && !vds.Type.HasStorageClass("groupshared"):
				w.out.WriteString("uniform ")
			case vds.Type.HasStorageClass("groupshared"):
				w.out.WriteString("shared ")
			}
			w.writeVarType(vds.Type)
			w.out.WriteByte(' ')
			w.out.WriteString(v.Name)
			w.writeArraySuffix(v.ArrayDims)
			if v.Init != nil {
				w.out.WriteString(" = ")
				w.writeInitExpr(v.Init, vds.Type.Den)
			}
			w.out.WriteString(";\n")
			wrote = true
		}
	}
	if wrote {
		w.blank()
	}
}

func (w *Writer) writeIOVariables() {
	wrote := false
	seen := make(map[*ast.VarDecl]bool)

	for _, v := range w.prog.Inputs {
		if seen[v] || builtinName(v.Semantic, w.prog.Target, false) != "" {
			continue
		}
		seen[v] = true
		w.writeIOVariable(v, "in", &w.nextInLoc)
		wrote = true
	}
	for _, v := range w.prog.Outputs {
		if seen[v] || builtinName(v.Semantic, w.prog.Target, true) != "" {
			continue
		}
		seen[v] = true
		w.writeIOVariable(v, "out", &w.nextOutLoc)
		wrote = true
	}
	if wrote {
		w.blank()
	}
}

func (w *Writer) writeIOVariable(v *ast.VarDecl, dir string, nextLoc *int) {
	w.writeIndent()
	if loc, pinned := w.opts.SemanticLocations[string(v.Semantic)]; pinned {
		fmt.Fprintf(&w.out, "layout(location = %d) ", loc)
	} else if w.opts.ExplicitBinding {
		fmt.Fprintf(&w.out, "layout(location = %d) ", *nextLoc)
		*nextLoc++
	}
	ts := v.TypeSpec()
	if ts != nil {
		for _, im := range ts.InterpModifiers {
			switch im {
			case "nointerpolation":
				w.out.WriteString("flat ")
			case "noperspective":
				w.out.WriteString("noperspective ")
			case "centroid":
				w.out.WriteString("centroid ")
			}
		}
	}
	w.out.WriteString(dir)
	w.out.WriteByte(' ')
	w.out.WriteString(TypeName(v.TypeSpec().Den))
	w.out.WriteByte(' ')
	w.out.WriteString(v.Name)
	w.writeArraySuffix(v.ArrayDims)
	w.out.WriteString(";\n")
}

func (w *Writer) writeFunctions() {
	for _, d := range w.prog.Decls {
		fn, ok := d.(*ast.FunctionDecl)
		if !ok || !fn.Flags.Has(ast.FlagReachable) {
			continue
		}
		if fn.IsPrototype() {
			continue
		}
		if fn.Flags.Has(ast.FlagEntryPoint) {
			w.writeEntryPoint(fn)
		} else {
			w.writeFunction(fn)
		}
		w.blank()
	}
}

func (w *Writer) writeFunction(fn *ast.FunctionDecl) {
	w.lineMark(fn.Span.Start.Line)
	w.comment(fn.Comment)

	w.writeIndent()
	w.out.WriteString(TypeName(fn.ReturnType.Den))
	w.out.WriteByte(' ')
	w.out.WriteString(fn.Name)
	w.out.WriteByte('(')
	for i, p := range fn.Params {
		if i > 0 {
			w.out.WriteString(", ")
		}
		if ts := p.Param; ts != nil {
			switch ts.InputModifier {
			case "out":
				w.out.WriteString("out ")
			case "inout":
				w.out.WriteString("inout ")
			}
			if ts.IsConst() {
				w.out.WriteString("const ")
			}
		}
		w.out.WriteString(TypeName(p.Param.Den))
		w.out.WriteByte(' ')
		w.out.WriteString(p.Name)
		w.writeArraySuffix(p.ArrayDims)
	}
	w.out.WriteString(")\n")
	w.writeBlock(fn.Body)
}

func (w *Writer) writeEntryPoint(fn *ast.FunctionDecl) {
	w.lineMark(fn.Span.Start.Line)
	w.comment(fn.Comment)
	w.inEntry = true
	w.writeLine("void main()")
	w.writeBlock(fn.Body)
	w.inEntry = false
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

// writeScoped writes a dependent statement, honoring the always-braced
// scopes option.
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
		w.comment(x.Comment)
		for _, v := range x.Vars {
			w.writeIndent()
			if x.Type.IsConst() {
				w.out.WriteString("const ")
			}
			w.writeVarType(x.Type)
			w.out.WriteByte(' ')
			w.out.WriteString(v.Name)
			w.writeArraySuffix(v.ArrayDims)
			if v.Init != nil {
				w.out.WriteString(" = ")
				w.writeInitExpr(v.Init, v.Den())
			}
			w.out.WriteString(";\n")
		}

	case *ast.StructDecl:
		w.writeStructDecl(x)

	case *ast.AliasDecl:
		// typedefs are resolved structurally; nothing to emit

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
		w.writeReturn(x)

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
				w.out.WriteString(TypeName(x.Type.Den))
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

// writeReturn rewrites entry-point returns into output assignments
// followed by a bare return.
func (w *Writer) writeReturn(x *ast.ReturnStmt) {
	if !w.inEntry || x.Expr == nil {
		if x.Expr == nil {
			w.writeLine("return;")
			return
		}
		w.writeIndent()
		w.out.WriteString("return ")
		w.writeExpr(x.Expr)
		w.out.WriteString(";\n")
		return
	}

	// struct return: evaluate into a temporary, then assign each
	// flattened output
	if st, ok := ast.Aliased(x.Expr.TypeDen()).(*ast.StructType); ok {
		tmp := w.opts.TempPrefix + "output"
		w.writeIndent()
		fmt.Fprintf(&w.out, "%s %s = ", TypeName(st), tmp)
		w.writeExpr(x.Expr)
		w.out.WriteString(";\n")
		for _, m := range st.Ref.Members {
			for _, v := range m.Vars {
				w.writeIndent()
				fmt.Fprintf(&w.out, "%s = %s.%s;\n", w.ioVarName(v, true), tmp, v.Name)
			}
		}
		w.writeLine("return;")
		return
	}

	// scalar/vector return: assign the synthesized output variable
	if out := w.generatedOutput(); out != nil {
		w.writeIndent()
		fmt.Fprintf(&w.out, "%s = ", w.ioVarName(out, true))
		w.writeInitExpr(x.Expr, out.Den())
		w.out.WriteString(";\n")
	}
	w.writeLine("return;")
}

func (w *Writer) generatedOutput() *ast.VarDecl {
	for _, v := range w.prog.Outputs {
		if v.Flags.Has(ast.FlagGenerated) {
			return v
		}
	}
	return nil
}

/* ----- expressions ----- */

func (w *Writer) writeExpr(e ast.Expr) {
	switch x := e.(type) {
	case *ast.LiteralExpr:
		w.writeLiteral(x, false)

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
		w.writeCall(x)

	case *ast.BracketExpr:
		w.out.WriteByte('(')
		w.writeExpr(x.Expr)
		w.out.WriteByte(')')

	case *ast.ObjectExpr:
		w.writeObject(x)

	case *ast.ArrayExpr:
		w.writeExpr(x.Prefix)
		for _, idx := range x.Indices {
			w.out.WriteByte('[')
			w.writeExpr(idx)
			w.out.WriteByte(']')
		}

	case *ast.CastExpr:
		w.out.WriteString(TypeName(x.Type.Den))
		w.out.WriteByte('(')
		w.writeExpr(x.Expr)
		w.out.WriteByte(')')

	case *ast.AssignExpr:
		w.writeExpr(x.LValue)
		fmt.Fprintf(&w.out, " %s ", x.Op)
		w.writeExpr(x.Value)

	case *ast.InitializerExpr:
		// array initializers emit as constructor lists
		w.out.WriteByte('(')
		for i, sub := range x.Exprs {
			if i > 0 {
				w.out.WriteString(", ")
			}
			w.writeExpr(sub)
		}
		w.out.WriteByte(')')
	}
}

// writeInitExpr writes an initializer, formatting integer literals as
// reals when the target type is floating point and expanding array
// initializers per line.
func (w *Writer) writeInitExpr(e ast.Expr, target ast.TypeDenoter) {
	if init, ok := e.(*ast.InitializerExpr); ok {
		if at, isArr := ast.Aliased(target).(*ast.ArrayType); isArr {
			// per-line initializers for array-typed bindings
			w.out.WriteString(TypeName(at.Base))
			w.out.WriteString("[](\n")
			w.indent++
			for i, sub := range init.Exprs {
				w.writeIndent()
				w.writeInitExpr(sub, at.Base)
				if i < len(init.Exprs)-1 {
					w.out.WriteByte(',')
				}
				w.out.WriteByte('\n')
			}
			w.indent--
			w.writeIndent()
			w.out.WriteByte(')')
			return
		}
	}
	if lit, ok := e.(*ast.LiteralExpr); ok {
		if bt, isBase := ast.Aliased(target).(*ast.BaseType); isBase && bt.Scalar.IsReal() {
			w.writeLiteral(lit, true)
			return
		}
	}
	w.writeExpr(e)
}

func (w *Writer) writeLiteral(x *ast.LiteralExpr, forceReal bool) {
	switch x.Kind {
	case ast.LiteralFloat:
		w.out.WriteString(w.formatFloat(x.Value))
	case ast.LiteralInt:
		if forceReal {
			w.out.WriteString(w.formatFloat(x.Value))
			return
		}
		w.out.WriteString(x.Value)
	default:
		w.out.WriteString(x.Value)
	}
}

// formatFloat ensures float literals carry a decimal point and the 'f'
// suffix (except for ESSL 1.00, which forbids suffixes).
func (w *Writer) formatFloat(v string) string {
	s := strings.TrimRight(v, "fFhHuUlL")
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	if w.opts.Version == ast.OutputESSL100 {
		return s
	}
	return s + "f"
}

func (w *Writer) writeObject(x *ast.ObjectExpr) {
	if name, ok := w.ioReplacement(x); ok {
		w.out.WriteString(name)
		return
	}
	if x.Prefix != nil {
		w.writeExpr(x.Prefix)
		w.out.WriteByte('.')
	}
	if v, ok := x.SymbolRef.(*ast.VarDecl); ok {
		w.out.WriteString(v.Name)
		return
	}
	w.out.WriteString(x.Name)
}

// ioReplacement maps references to flattened entry-point IO variables
// (direct parameter references, and member access through entry-point
// struct parameters) to their global or built-in names.
func (w *Writer) ioReplacement(x *ast.ObjectExpr) (string, bool) {
	if !w.inEntry {
		return "", false
	}
	v, ok := x.SymbolRef.(*ast.VarDecl)
	if !ok || !v.Flags.Has(ast.FlagShaderInput) && !v.Flags.Has(ast.FlagShaderOutput) {
		return "", false
	}

	output := v.Flags.Has(ast.FlagShaderOutput)
	if x.Prefix == nil {
		if !w.isEntryParam(v) {
			return "", false
		}
		return w.ioVarName(v, output), true
	}

	obj, ok := x.Prefix.(*ast.ObjectExpr)
	if !ok {
		return "", false
	}
	pv, ok := obj.SymbolRef.(*ast.VarDecl)
	if !ok || !w.isEntryParam(pv) {
		return "", false
	}
	return w.ioVarName(v, output), true
}

func (w *Writer) isEntryParam(v *ast.VarDecl) bool {
	if w.prog.EntryPoint == nil {
		return false
	}
	for _, p := range w.prog.EntryPoint.Params {
		if p == v {
			return true
		}
	}
	return false
}

func (w *Writer) ioVarName(v *ast.VarDecl, output bool) string {
	if b := builtinName(v.Semantic, w.prog.Target, output); b != "" {
		return b
	}
	return v.Name
}

func (w *Writer) writeCall(x *ast.CallExpr) {
	// type constructor
	if x.TypeCtor != nil {
		w.out.WriteString(TypeName(x.TypeCtor))
		w.out.WriteByte('(')
		wantReal := false
		if bt, ok := ast.Aliased(x.TypeCtor).(*ast.BaseType); ok && bt.Scalar.IsReal() {
			wantReal = true
		}
		for i, arg := range x.Args {
			if i > 0 {
				w.out.WriteString(", ")
			}
			if lit, ok := arg.(*ast.LiteralExpr); ok && wantReal {
				w.writeLiteral(lit, true)
			} else {
				w.writeExpr(arg)
			}
		}
		w.out.WriteByte(')')
		return
	}

	// texture method call: tex.Sample(s, uv) -> texture(tex, uv)
	if x.Prefix != nil {
		w.writeTextureCall(x)
		return
	}

	// rcp has no GLSL counterpart
	if x.Intrinsic == "rcp" && len(x.Args) == 1 {
		w.out.WriteString("(1.0f / (")
		w.writeExpr(x.Args[0])
		w.out.WriteString("))")
		return
	}

	name := x.Name
	if x.Intrinsic != "" {
		name = IntrinsicName(x.Intrinsic)
	} else if x.FuncRef != nil {
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
}

func (w *Writer) writeTextureCall(x *ast.CallExpr) {
	write := func(name string, args []ast.Expr) {
		w.out.WriteString(name)
		w.out.WriteByte('(')
		w.writeExpr(x.Prefix)
		for _, arg := range args {
			w.out.WriteString(", ")
			w.writeExpr(arg)
		}
		w.out.WriteByte(')')
	}

	switch x.Intrinsic {
	case "Sample", "SampleBias", "SampleCmp", "SampleGrad":
		// drop the sampler-state argument; GLSL samplers are combined
		write("texture", x.Args[1:])
	case "SampleLevel":
		write("textureLod", x.Args[1:])
	case "Load":
		write("texelFetch", x.Args)
	case "Gather":
		write("textureGather", x.Args[1:])
	case "GetDimensions":
		w.fail("GetDimensions has no direct GLSL equivalent; use textureSize")
		write("textureSize", nil)
	default:
		// structured-buffer style method on the block array
		w.writeExpr(x.Prefix)
		w.out.WriteByte('.')
		w.out.WriteString(x.Name)
		w.out.WriteByte('(')
		for i, arg := range x.Args {
			if i > 0 {
				w.out.WriteString(", ")
			}
			w.writeExpr(arg)
		}
		w.out.WriteByte(')')
	}
}

// writeVarType writes the type part of a variable declaration. A
// struct declared inline inside the declaration is emitted in place.
func (w *Writer) writeVarType(ts *ast.TypeSpecifier) {
	if ts.StructDecl == nil {
		w.out.WriteString(TypeName(ts.Den))
		return
	}
	w.out.WriteString("struct ")
	if ts.StructDecl.Name != "" {
		w.out.WriteString(ts.StructDecl.Name)
		w.out.WriteByte(' ')
	}
	w.out.WriteString("{ ")
	for _, m := range ts.StructDecl.Members {
		for _, v := range m.Vars {
			w.out.WriteString(TypeName(m.Type.Den))
			w.out.WriteByte(' ')
			w.out.WriteString(v.Name)
			w.writeArraySuffix(v.ArrayDims)
			w.out.WriteString("; ")
		}
	}
	w.out.WriteByte('}')
}

/* ----- plumbing ----- */

func (w *Writer) writeArraySuffix(dims []*ast.ArrayDimension) {
	for _, d := range dims {
		if d.Size > 0 {
			fmt.Fprintf(&w.out, "[%d]", d.Size)
		} else {
			w.out.WriteString("[]")
		}
	}
}

func (w *Writer) writeLine(format string, args ...any) {
	w.writeIndent()
	fmt.Fprintf(&w.out, format, args...)
	w.out.WriteByte('\n')
}

func (w *Writer) writeIndent() {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString(w.opts.Formatting.Indent)
	}
}

func (w *Writer) blank() {
	if !w.opts.Formatting.CompactWrappers {
		w.out.WriteByte('\n')
	}
}

func (w *Writer) lineMark(line int) {
	if w.opts.Formatting.LineMarks && line > 0 {
		w.writeLine("#line %d", line)
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

func (w *Writer) fail(format string, args ...any) {
	if w.err == nil {
		w.err = fmt.Errorf(format, args...)
	}
}
