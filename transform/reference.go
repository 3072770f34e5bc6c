// Package transform contains the AST rewriters that run between
// semantic analysis and code generation: reference reachability
// marking, struct-parameter analysis, function-name mangling and
// expression conversion. All transformers operate in place on the
// decorated AST.
package transform

import "github.com/gogpu/xshade/ast"

// ReferenceAnalyzer transitively marks every declaration reachable
// from the entry point through calls, type uses and member access.
// Unmarked declarations are skipped during emission.
type ReferenceAnalyzer struct {
	prog    *ast.Program
	visited map[*ast.FunctionDecl]bool

	// bufferOwner maps cbuffer member variables to their owning
	// declaration so touching a member marks the buffer.
	bufferOwner map[*ast.VarDecl]*ast.UniformBufferDecl
}

// MarkReachable runs the reference analysis over prog.
func MarkReachable(prog *ast.Program) {
	r := &ReferenceAnalyzer{
		prog:        prog,
		visited:     make(map[*ast.FunctionDecl]bool),
		bufferOwner: make(map[*ast.VarDecl]*ast.UniformBufferDecl),
	}
	for _, d := range prog.Decls {
		if ub, ok := d.(*ast.UniformBufferDecl); ok {
			for _, m := range ub.Members {
				for _, v := range m.Vars {
					r.bufferOwner[v] = ub
				}
			}
		}
	}

	if prog.EntryPoint != nil {
		r.visitFunction(prog.EntryPoint)
	}
	if prog.SecondaryEntryPoint != nil {
		r.visitFunction(prog.SecondaryEntryPoint)
	}
}

func (r *ReferenceAnalyzer) visitFunction(fn *ast.FunctionDecl) {
	if r.visited[fn] {
		return
	}
	r.visited[fn] = true
	fn.Flags.Set(ast.FlagReachable)
	if fn.Definition != nil && !r.visited[fn.Definition] {
		r.visitFunction(fn.Definition)
	}

	r.markTypeSpec(fn.ReturnType)
	for _, p := range fn.Params {
		r.markTypeSpec(p.Param)
		r.markDen(p.Den())
	}
	if fn.Body == nil {
		return
	}

	ast.Walk(ast.VisitorFunc(func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.CallExpr:
			if x.FuncRef != nil {
				r.visitFunction(x.FuncRef)
			}
		case *ast.ObjectExpr:
			r.markSymbol(x.SymbolRef)
		case *ast.VarDeclStmt:
			r.markTypeSpec(x.Type)
		case *ast.CastExpr:
			r.markTypeSpec(x.Type)
		}
		return true
	}), fn.Body)
}

func (r *ReferenceAnalyzer) markSymbol(d ast.Decl) {
	switch x := d.(type) {
	case *ast.VarDecl:
		x.Flags.Set(ast.FlagReachable)
		if x.DeclStmt != nil {
			x.DeclStmt.Flags.Set(ast.FlagReachable)
			r.markTypeSpec(x.DeclStmt.Type)
		}
		r.markDen(x.Den())
		if owner, ok := r.bufferOwner[x]; ok {
			owner.Flags.Set(ast.FlagReachable)
		}
	case *ast.BufferDecl:
		x.Flags.Set(ast.FlagReachable)
		r.markDen(x.Type)
	case *ast.SamplerDecl:
		x.Flags.Set(ast.FlagReachable)
	case *ast.StructDecl:
		r.markStruct(x)
	case *ast.UniformBufferDecl:
		x.Flags.Set(ast.FlagReachable)
	}
}

func (r *ReferenceAnalyzer) markTypeSpec(ts *ast.TypeSpecifier) {
	if ts == nil {
		return
	}
	if ts.StructDecl != nil {
		r.markStruct(ts.StructDecl)
	}
	r.markDen(ts.Den)
}

func (r *ReferenceAnalyzer) markDen(den ast.TypeDenoter) {
	if den == nil {
		return
	}
	switch x := ast.Aliased(den).(type) {
	case *ast.StructType:
		if x.Ref != nil {
			r.markStruct(x.Ref)
		}
	case *ast.ArrayType:
		r.markDen(x.Base)
	case *ast.BufferType:
		r.markDen(x.Generic)
	}
	if al, ok := den.(*ast.AliasType); ok && al.Ref != nil {
		al.Ref.Flags.Set(ast.FlagReachable)
	}
}

func (r *ReferenceAnalyzer) markStruct(sd *ast.StructDecl) {
	if sd.Flags.Has(ast.FlagReachable) {
		return
	}
	sd.Flags.Set(ast.FlagReachable)
	for _, m := range sd.Members {
		m.Flags.Set(ast.FlagReachable)
		r.markTypeSpec(m.Type)
		for _, v := range m.Vars {
			v.Flags.Set(ast.FlagReachable)
			r.markDen(v.Den())
		}
	}
}
