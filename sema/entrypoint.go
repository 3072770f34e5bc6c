package sema

import (
	"strconv"
	"strings"

	"github.com/gogpu/xshade/ast"
	"github.com/gogpu/xshade/source"
)

// resolveEntryPoints locates and flags the entry-point function named
// by the input descriptor (and the optional secondary entry point).
func (a *Analyzer) resolveEntryPoints() {
	name := a.opts.EntryPoint
	if name == "" {
		name = "main"
	}

	entry := a.findDefinedFunction(name)
	if entry == nil {
		a.errorAt(source.Span{}, "entry point %q not found", name)
		return
	}
	entry.Flags.Set(ast.FlagEntryPoint)
	a.prog.EntryPoint = entry

	if sec := a.opts.SecondaryEntryPoint; sec != "" {
		if fn := a.findDefinedFunction(sec); fn != nil {
			fn.Flags.Set(ast.FlagSecondaryEntryPoint)
			a.prog.SecondaryEntryPoint = fn
		} else {
			a.errorAt(source.Span{}, "secondary entry point %q not found", sec)
		}
	}
}

func (a *Analyzer) findDefinedFunction(name string) *ast.FunctionDecl {
	for _, fn := range a.prog.FindFunctions(name) {
		if fn.Body != nil {
			return fn
		}
	}
	return nil
}

// collectStageLayout extracts per-stage layout records from the
// entry-point attributes.
func (a *Analyzer) collectStageLayout(fn *ast.FunctionDecl) {
	for _, attr := range fn.Attribs {
		switch strings.ToLower(attr.Name) {
		case "numthreads":
			if len(attr.Args) != 3 {
				a.errorAt(attr.Span, "[numthreads] expects three arguments")
				continue
			}
			for i, arg := range attr.Args {
				if n, ok := a.evalInt(arg); ok && n > 0 {
					a.prog.Compute.NumThreads[i] = int(n)
				} else {
					a.errorAt(attr.Span, "[numthreads] arguments must be positive constants")
				}
			}

		case "maxvertexcount":
			if len(attr.Args) == 1 {
				if n, ok := a.evalInt(attr.Args[0]); ok {
					a.prog.Geometry.MaxVertices = int(n)
				}
			}

		case "earlydepthstencil":
			a.prog.Fragment.EarlyDepthStencil = true

		case "domain":
			if s, ok := attrString(attr); ok {
				a.prog.TessControl.Domain = s
				a.prog.TessEvaluation.Domain = s
			}

		case "partitioning":
			if s, ok := attrString(attr); ok {
				a.prog.TessControl.Partitioning = s
			}

		case "outputtopology":
			if s, ok := attrString(attr); ok {
				a.prog.TessControl.OutputTopology = s
				a.prog.Geometry.OutputTopology = s
			}

		case "outputcontrolpoints":
			if len(attr.Args) == 1 {
				if n, ok := a.evalInt(attr.Args[0]); ok {
					a.prog.TessControl.OutputControlPoints = int(n)
				}
			}

		case "maxtessfactor":
			if len(attr.Args) == 1 {
				if f, ok := a.evalFloat(attr.Args[0]); ok {
					a.prog.TessControl.MaxTessFactor = f
				}
			}
		}
	}
}

func attrString(attr *ast.Attribute) (string, bool) {
	if len(attr.Args) != 1 {
		return "", false
	}
	lit, ok := attr.Args[0].(*ast.LiteralExpr)
	if !ok || lit.Kind != ast.LiteralString {
		return "", false
	}
	return strings.Trim(lit.Value, `"`), true
}

// flattenEntryPointIO flattens the entry point's parameters and return
// value into global IO variables for output dialects that do not carry
// semantics on parameters. Struct parameters contribute one IO variable
// per member.
func (a *Analyzer) flattenEntryPointIO(fn *ast.FunctionDecl) {
	for _, p := range fn.Params {
		out := p.Param != nil && (p.Param.InputModifier == "out" || p.Param.InputModifier == "inout")
		a.flattenIOVar(p, out)
		if p.Param != nil && p.Param.InputModifier == "inout" {
			a.flattenIOVar(p, false)
		}
	}

	if fn.ReturnType == nil || fn.ReturnType.Den == nil {
		return
	}
	if _, isVoid := ast.Aliased(fn.ReturnType.Den).(*ast.VoidType); isVoid {
		return
	}

	if st, ok := ast.Aliased(fn.ReturnType.Den).(*ast.StructType); ok {
		for _, m := range st.Ref.Members {
			for _, v := range m.Vars {
				a.addIOVar(v, true)
			}
		}
		return
	}

	// synthesize an output variable for the return-value semantic
	sem := fn.Semantic
	if sem == "" {
		a.errorAt(fn.Span, "entry point %q needs an output semantic on its return value", fn.Name)
		return
	}
	ret := &ast.VarDecl{
		Span:     fn.Span,
		Name:     ioVarNameFor(sem),
		Semantic: sem,
		Param:    &ast.TypeSpecifier{Span: fn.Span, Den: fn.ReturnType.Den},
	}
	ret.Flags.Set(ast.FlagGenerated)
	a.addIOVar(ret, true)
}

func (a *Analyzer) flattenIOVar(p *ast.VarDecl, output bool) {
	den := p.Den()
	if st, ok := ast.Aliased(den).(*ast.StructType); ok {
		for _, m := range st.Ref.Members {
			for _, v := range m.Vars {
				a.addIOVar(v, output)
			}
		}
		return
	}
	if p.Semantic == "" {
		a.errorAt(p.Span, "entry-point parameter %q needs a semantic", p.Name)
		return
	}
	a.addIOVar(p, output)
}

func (a *Analyzer) addIOVar(v *ast.VarDecl, output bool) {
	if output {
		v.Flags.Set(ast.FlagShaderOutput)
		a.prog.Outputs = append(a.prog.Outputs, v)
	} else {
		v.Flags.Set(ast.FlagShaderInput)
		a.prog.Inputs = append(a.prog.Inputs, v)
	}
	if v.Semantic.IsSystemValue() {
		v.Flags.Set(ast.FlagSystemValue)
	}
}

// ioVarNameFor derives a variable name from a semantic:
// SV_Target -> target0, TEXCOORD2 -> texcoord2.
func ioVarNameFor(sem ast.Semantic) string {
	base, index := sem.Base()
	base = strings.ToLower(strings.TrimPrefix(base, "SV_"))
	if base == "" {
		base = "var"
	}
	return base + strconv.Itoa(index)
}
