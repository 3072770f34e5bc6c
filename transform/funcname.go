package transform

import (
	"fmt"

	"github.com/gogpu/xshade/ast"
)

// NameMangling carries the renaming prefixes used by the converters.
// The prefixes come from the output descriptor; validation (pairwise
// distinct, reserved/temporary non-empty) happens at the API boundary.
type NameMangling struct {
	InputPrefix        string
	OutputPrefix       string
	ReservedWordPrefix string
	TemporaryPrefix    string
	NamespacePrefix    string
}

// ConvertFuncNames uniquifies overloaded function names so output
// dialects without overloading can tell them apart, and renames
// declarations that collide with reserved words of the target.
//
// The entry point is never renamed; it becomes the target's main.
func ConvertFuncNames(prog *ast.Program, mangling NameMangling, reserved map[string]bool) {
	// group reachable function definitions by name
	groups := make(map[string][]*ast.FunctionDecl)
	var order []string
	for _, d := range prog.Decls {
		fn, ok := d.(*ast.FunctionDecl)
		if !ok || fn.IsPrototype() || !fn.Flags.Has(ast.FlagReachable) {
			continue
		}
		if _, seen := groups[fn.Name]; !seen {
			order = append(order, fn.Name)
		}
		groups[fn.Name] = append(groups[fn.Name], fn)
	}

	for _, name := range order {
		fns := groups[name]
		if len(fns) < 2 {
			continue
		}
		for i, fn := range fns {
			if fn.Flags.Has(ast.FlagEntryPoint) {
				continue
			}
			fn.Name = fmt.Sprintf("%s%s_%d", mangling.NamespacePrefix, fn.Name, i+1)
		}
	}

	if reserved == nil {
		return
	}

	renameReserved := func(name string) string {
		if reserved[name] {
			return mangling.ReservedWordPrefix + name
		}
		return name
	}

	for _, d := range prog.Decls {
		switch x := d.(type) {
		case *ast.FunctionDecl:
			if !x.Flags.Has(ast.FlagEntryPoint) {
				x.Name = renameReserved(x.Name)
			}
			for _, p := range x.Params {
				p.Name = renameReserved(p.Name)
			}
			if x.Body != nil {
				renameReservedInBody(x.Body, renameReserved)
			}
		case *ast.VarDeclStmt:
			for _, v := range x.Vars {
				v.Name = renameReserved(v.Name)
			}
		case *ast.StructDecl:
			x.Name = renameReserved(x.Name)
		case *ast.BufferDecl:
			x.Name = renameReserved(x.Name)
		case *ast.SamplerDecl:
			x.Name = renameReserved(x.Name)
		case *ast.UniformBufferDecl:
			for _, m := range x.Members {
				for _, v := range m.Vars {
					v.Name = renameReserved(v.Name)
				}
			}
		}
	}
}

func renameReservedInBody(body *ast.CodeBlock, rename func(string) string) {
	ast.Walk(ast.VisitorFunc(func(n ast.Node) bool {
		if vds, ok := n.(*ast.VarDeclStmt); ok {
			for _, v := range vds.Vars {
				v.Name = rename(v.Name)
			}
		}
		return true
	}), body)
}

// MangleIONames applies the input/output prefixes to the flattened
// entry-point IO variables. Variables with a system-value semantic keep
// their names, whether they map to a target built-in or, like
// SV_Target, are declared as ordinary output variables.
func MangleIONames(prog *ast.Program, mangling NameMangling) {
	seen := make(map[*ast.VarDecl]bool)
	for _, v := range prog.Outputs {
		if !v.Semantic.IsSystemValue() && !seen[v] {
			seen[v] = true
			v.Name = mangling.OutputPrefix + v.Name
		}
	}
	for _, v := range prog.Inputs {
		if !v.Semantic.IsSystemValue() && !seen[v] {
			seen[v] = true
			v.Name = mangling.InputPrefix + v.Name
		}
	}
}
