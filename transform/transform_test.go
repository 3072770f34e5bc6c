package transform

import (
	"testing"

	"github.com/gogpu/xshade/ast"
	"github.com/gogpu/xshade/hlsl"
	"github.com/gogpu/xshade/report"
	"github.com/gogpu/xshade/sema"
)

// decorate parses and analyzes src for a GLSL 4.50 fragment target.
func decorate(t *testing.T, src string, target ast.ShaderTarget) *ast.Program {
	t.Helper()
	l := hlsl.NewLexer("test.hlsl", src, hlsl.Keywords())
	toks, lexErrs := l.Tokenize()
	if len(lexErrs) > 0 {
		t.Fatalf("lexer errors: %v", lexErrs)
	}
	prog, synErrs := hlsl.NewParser(toks).ParseProgram()
	if len(synErrs) > 0 {
		t.Fatalf("parse errors: %v", synErrs)
	}
	log := &report.Collector{}
	if !sema.NewAnalyzer(log).Decorate(prog, sema.Options{
		EntryPoint:    "main",
		Target:        target,
		OutputVersion: ast.OutputGLSL450,
	}) {
		t.Fatalf("analysis failed: %v", log.Reports)
	}
	return prog
}

func TestReachabilityMarking(t *testing.T) {
	// property 6: everything flagged reachable is reachable from the
	// entry point; unreachable declarations stay unflagged
	src := `float used(float x) { return x * 2.0; }
float unused(float x) { return x; }
float alsoUsed(float x) { return used(x); }
cbuffer UsedBuf { float4 tint; };
cbuffer UnusedBuf { float4 nope; };
float4 main() : SV_Target
{
    return tint * alsoUsed(1.0);
}`
	prog := decorate(t, src, ast.TargetFragment)
	MarkReachable(prog)

	flags := map[string]bool{}
	for _, d := range prog.Decls {
		switch x := d.(type) {
		case *ast.FunctionDecl:
			flags[x.Name] = x.Flags.Has(ast.FlagReachable)
		case *ast.UniformBufferDecl:
			flags[x.Name] = x.Flags.Has(ast.FlagReachable)
		}
	}

	for name, want := range map[string]bool{
		"main": true, "used": true, "alsoUsed": true, "unused": false,
		"UsedBuf": true, "UnusedBuf": false,
	} {
		if flags[name] != want {
			t.Errorf("reachable[%s] = %v, want %v", name, flags[name], want)
		}
	}
}

func TestReachabilityThroughTypes(t *testing.T) {
	src := `struct Payload
{
    float4 color;
};
struct Unused
{
    float4 junk;
};
Payload make() { Payload p; p.color = float4(1, 0, 0, 1); return p; }
float4 main() : SV_Target
{
    return make().color;
}`
	prog := decorate(t, src, ast.TargetFragment)
	MarkReachable(prog)

	for _, d := range prog.Decls {
		if sd, ok := d.(*ast.StructDecl); ok {
			want := sd.Name == "Payload"
			if sd.Flags.Has(ast.FlagReachable) != want {
				t.Errorf("struct %s reachable = %v, want %v", sd.Name, sd.Flags.Has(ast.FlagReachable), want)
			}
		}
	}
}

func TestStructParameterAnalysis(t *testing.T) {
	src := `struct VSOut
{
    float4 pos : SV_Position;
};
struct Material
{
    float4 base;
};
Material defaultMaterial()
{
    Material m;
    m.base = float4(1, 1, 1, 1);
    return m;
}
VSOut main(float3 p : POSITION)
{
    VSOut o;
    o.pos = float4(p, 1.0) * defaultMaterial().base;
    return o;
}`
	prog := decorate(t, src, ast.TargetVertex)
	MarkReachable(prog)
	AnalyzeStructParameters(prog)

	for _, d := range prog.Decls {
		sd, ok := d.(*ast.StructDecl)
		if !ok {
			continue
		}
		nominal := sd.Flags.Has(ast.FlagNominalStruct)
		switch sd.Name {
		case "Material":
			if !nominal {
				t.Error("Material used outside entry IO must stay nominal")
			}
		case "VSOut":
			// used as a local inside the entry point, so it survives too
			if !nominal {
				t.Error("VSOut used as local type must stay nominal")
			}
		}
	}
}

func TestFuncNameConversion(t *testing.T) {
	// S3 second half: after conversion the emitted names are distinct
	src := `float f(float x) { return x; }
float f(int x) { return 1.0; }
float4 main() : SV_Target
{
    return float4(f(1), f(1.5), 0, 0);
}`
	prog := decorate(t, src, ast.TargetFragment)
	MarkReachable(prog)
	ConvertFuncNames(prog, NameMangling{ReservedWordPrefix: "xsr_", TemporaryPrefix: "xst_"}, nil)

	fns := prog.Functions()
	names := map[string]int{}
	for _, fn := range fns {
		if fn.Flags.Has(ast.FlagEntryPoint) {
			continue
		}
		names[fn.Name]++
	}
	if len(names) != 2 {
		t.Fatalf("overloads not uniquified: %v", names)
	}
	for name, n := range names {
		if n != 1 {
			t.Errorf("name %q used %d times", name, n)
		}
	}
}

func TestReservedWordRenaming(t *testing.T) {
	src := `static float input = 1.0;
float4 main() : SV_Target
{
    return float4(input, 0, 0, 0);
}`
	prog := decorate(t, src, ast.TargetFragment)
	MarkReachable(prog)
	ConvertFuncNames(prog, NameMangling{ReservedWordPrefix: "xsr_", TemporaryPrefix: "xst_"}, map[string]bool{"input": true})

	found := false
	for _, d := range prog.Decls {
		if vds, ok := d.(*ast.VarDeclStmt); ok {
			for _, v := range vds.Vars {
				if v.Name == "xsr_input" {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("reserved word not renamed")
	}
}

func TestMulBecomesOperator(t *testing.T) {
	src := `cbuffer C { float4x4 m; };
float4 main() : SV_Target
{
    float4 v = float4(1, 2, 3, 4);
    return mul(m, v);
}`
	prog := decorate(t, src, ast.TargetFragment)
	MarkReachable(prog)
	ConvertExpressions(prog)

	ret := lastReturn(t, prog.EntryPoint)
	bin, ok := ret.Expr.(*ast.BinaryExpr)
	if !ok || bin.Op != "*" {
		t.Fatalf("mul not rewritten, return expr = %T", ret.Expr)
	}
}

func TestSaturateBecomesClamp(t *testing.T) {
	src := `float4 main() : SV_Target
{
    return float4(saturate(2.0), 0, 0, 0);
}`
	prog := decorate(t, src, ast.TargetFragment)
	MarkReachable(prog)
	ConvertExpressions(prog)

	var clamp *ast.CallExpr
	ast.Walk(ast.VisitorFunc(func(n ast.Node) bool {
		if c, ok := n.(*ast.CallExpr); ok && c.Intrinsic == "clamp" {
			clamp = c
		}
		return true
	}), prog.EntryPoint.Body)

	if clamp == nil || len(clamp.Args) != 3 {
		t.Fatal("saturate not rewritten to clamp(x, 0, 1)")
	}
}

func TestScalarBroadcastMadeExplicit(t *testing.T) {
	src := `float4 main() : SV_Target
{
    float4 v = 1.0;
    return v;
}`
	prog := decorate(t, src, ast.TargetFragment)
	MarkReachable(prog)
	ConvertExpressions(prog)

	decl := prog.EntryPoint.Body.Stmts[0].(*ast.VarDeclStmt)
	ctor, ok := decl.Vars[0].Init.(*ast.CallExpr)
	if !ok || ctor.TypeCtor == nil {
		t.Fatalf("broadcast not made explicit: %T", decl.Vars[0].Init)
	}
}

func TestOptimizeFoldsConstants(t *testing.T) {
	src := `float4 main() : SV_Target
{
    int x = 2 + 3 * 4;
    return float4(x, 0, 0, 0);
}`
	prog := decorate(t, src, ast.TargetFragment)
	Optimize(prog)

	decl := prog.EntryPoint.Body.Stmts[0].(*ast.VarDeclStmt)
	lit, ok := decl.Vars[0].Init.(*ast.LiteralExpr)
	if !ok || lit.Value != "14" {
		t.Fatalf("constant not folded: %v", decl.Vars[0].Init)
	}
}

func lastReturn(t *testing.T, fn *ast.FunctionDecl) *ast.ReturnStmt {
	t.Helper()
	var ret *ast.ReturnStmt
	ast.Walk(ast.VisitorFunc(func(n ast.Node) bool {
		if r, ok := n.(*ast.ReturnStmt); ok {
			ret = r
		}
		return true
	}), fn.Body)
	if ret == nil {
		t.Fatal("no return statement")
	}
	return ret
}
