package transform

import "github.com/gogpu/xshade/ast"

// AnalyzeStructParameters marks structs that are used for purposes
// other than entry-point IO with FlagNominalStruct; only those survive
// as nominal types in the output. Structs that appear solely as the
// entry point's parameter or return types are flattened away.
func AnalyzeStructParameters(prog *ast.Program) {
	entry := prog.EntryPoint

	for _, d := range prog.Decls {
		switch x := d.(type) {
		case *ast.FunctionDecl:
			if x == entry {
				continue
			}
			markNominalTypeSpec(x.ReturnType)
			for _, p := range x.Params {
				markNominalDen(p.Den())
			}
			if x.Body != nil {
				markNominalInBody(x.Body)
			}

		case *ast.VarDeclStmt:
			markNominalTypeSpec(x.Type)

		case *ast.UniformBufferDecl:
			for _, m := range x.Members {
				markNominalTypeSpec(m.Type)
			}

		case *ast.BufferDecl:
			// StructuredBuffer<S> keeps S nominal
			markNominalDen(x.Type.Generic)
		}
	}

	// local declarations inside the entry point still need the type
	if entry != nil && entry.Body != nil {
		markNominalInBody(entry.Body)
	}
}

func markNominalInBody(body *ast.CodeBlock) {
	ast.Walk(ast.VisitorFunc(func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.VarDeclStmt:
			markNominalTypeSpec(x.Type)
		case *ast.CastExpr:
			markNominalTypeSpec(x.Type)
		}
		return true
	}), body)
}

func markNominalTypeSpec(ts *ast.TypeSpecifier) {
	if ts == nil {
		return
	}
	markNominalDen(ts.Den)
}

func markNominalDen(den ast.TypeDenoter) {
	if den == nil {
		return
	}
	switch x := ast.Aliased(den).(type) {
	case *ast.StructType:
		if x.Ref != nil && !x.Ref.Flags.Has(ast.FlagNominalStruct) {
			x.Ref.Flags.Set(ast.FlagNominalStruct)
			for _, m := range x.Ref.Members {
				markNominalTypeSpec(m.Type)
			}
		}
	case *ast.ArrayType:
		markNominalDen(x.Base)
	}
}
