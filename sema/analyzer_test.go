package sema

import (
	"strings"
	"testing"

	"github.com/gogpu/xshade/ast"
	"github.com/gogpu/xshade/hlsl"
	"github.com/gogpu/xshade/report"
)

func analyze(t *testing.T, src string, opts Options) (*ast.Program, *report.Collector, bool) {
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
	ok := NewAnalyzer(log).Decorate(prog, opts)
	return prog, log, ok
}

func fragOpts() Options {
	return Options{
		EntryPoint:    "main",
		Target:        ast.TargetFragment,
		OutputVersion: ast.OutputGLSL450,
	}
}

func TestEntryPointResolved(t *testing.T) {
	prog, log, ok := analyze(t, `float4 main() : SV_Target { return float4(0, 0, 0, 0); }`, fragOpts())
	if !ok {
		t.Fatalf("analysis failed: %v", log.Reports)
	}
	if prog.EntryPoint == nil || prog.EntryPoint.Name != "main" {
		t.Fatal("entry point not resolved")
	}
	if !prog.EntryPoint.Flags.Has(ast.FlagEntryPoint) {
		t.Error("entry point not flagged")
	}
}

func TestEntryPointMissing(t *testing.T) {
	_, log, ok := analyze(t, `float4 other() : SV_Target { return float4(0, 0, 0, 0); }`, fragOpts())
	if ok || !log.HasErrors() {
		t.Fatal("missing entry point not reported")
	}
}

func TestUndefinedSymbol(t *testing.T) {
	_, log, ok := analyze(t, `float4 main() : SV_Target { return missing; }`, fragOpts())
	if ok {
		t.Fatal("undefined symbol accepted")
	}
	found := false
	for _, r := range log.Reports {
		if strings.Contains(r.Message, "missing") {
			found = true
		}
	}
	if !found {
		t.Errorf("no diagnostic names the symbol: %v", log.Reports)
	}
}

func TestAnalyzerCollectsMultipleErrors(t *testing.T) {
	src := `float4 main() : SV_Target
{
    float a = missing1;
    float b = missing2;
    return float4(a, b, 0, 0);
}`
	_, log, ok := analyze(t, src, fragOpts())
	if ok {
		t.Fatal("errors accepted")
	}
	if log.Errors() < 2 {
		t.Errorf("error count = %d, want at least 2 (analyzer keeps going)", log.Errors())
	}
}

func TestOverloadPicksExactMatch(t *testing.T) {
	// S3: f(1) picks the int overload
	src := `float f(float x) { return x; }
float f(int x) { return 1.0; }
float4 main() : SV_Target
{
    return float4(f(1), 0, 0, 0);
}`
	prog, log, ok := analyze(t, src, fragOpts())
	if !ok {
		t.Fatalf("analysis failed: %v", log.Reports)
	}

	var call *ast.CallExpr
	ast.Walk(ast.VisitorFunc(func(n ast.Node) bool {
		if c, isCall := n.(*ast.CallExpr); isCall && c.Name == "f" {
			call = c
		}
		return true
	}), prog.EntryPoint.Body)

	if call == nil || call.FuncRef == nil {
		t.Fatal("call not resolved")
	}
	bt, isBase := call.FuncRef.Params[0].Param.Den.(*ast.BaseType)
	if !isBase || bt.Scalar != ast.ScalarInt {
		t.Errorf("resolved overload takes %v, want int", call.FuncRef.Params[0].Param.Den)
	}
}

func TestOverloadAmbiguity(t *testing.T) {
	// property 5: equal cost vectors are an error, never a silent pick
	src := `float f(float x) { return x; }
float f(uint x) { return 1.0; }
float4 main() : SV_Target
{
    return float4(f(1), 0, 0, 0);
}`
	_, log, ok := analyze(t, src, fragOpts())
	if ok {
		t.Fatal("ambiguous call accepted")
	}
	found := false
	for _, r := range log.Reports {
		if strings.Contains(r.Message, "ambiguous") {
			found = true
		}
	}
	if !found {
		t.Errorf("no ambiguity diagnostic: %v", log.Reports)
	}
}

func TestSwizzleTyping(t *testing.T) {
	src := `float4 main() : SV_Target
{
    float4 v = float4(1, 2, 3, 4);
    float3 a = v.xyz;
    float s = v.w;
    return float4(a, s);
}`
	_, log, ok := analyze(t, src, fragOpts())
	if !ok {
		t.Fatalf("analysis failed: %v", log.Reports)
	}
}

func TestSwizzleOutOfRange(t *testing.T) {
	src := `float4 main() : SV_Target
{
    float2 v = float2(1, 2);
    return float4(v.xyzw, 0, 0, 0);
}`
	_, _, ok := analyze(t, src, fragOpts())
	if ok {
		t.Fatal("out-of-range swizzle accepted")
	}
}

func TestImmutableAssignment(t *testing.T) {
	src := `cbuffer C { float4 tint; };
float4 main() : SV_Target
{
    tint = float4(0, 0, 0, 0);
    return tint;
}`
	_, log, ok := analyze(t, src, fragOpts())
	if ok {
		t.Fatal("assignment to cbuffer member accepted")
	}
	found := false
	for _, r := range log.Reports {
		if strings.Contains(r.Message, "immutable") {
			found = true
		}
	}
	if !found {
		t.Errorf("no immutability diagnostic: %v", log.Reports)
	}
}

func TestStaticOnParameterRejected(t *testing.T) {
	src := `float f(static float x) { return x; }
float4 main() : SV_Target { return float4(f(1.0), 0, 0, 0); }`
	_, _, ok := analyze(t, src, fragOpts())
	if ok {
		t.Fatal("static parameter accepted")
	}
}

func TestInterpModifierOnLocalRejected(t *testing.T) {
	src := `float4 main() : SV_Target
{
    centroid float x = 1.0;
    return float4(x, 0, 0, 0);
}`
	_, _, ok := analyze(t, src, fragOpts())
	if ok {
		t.Fatal("interpolation modifier on local accepted")
	}
}

func TestNonReturnControlPath(t *testing.T) {
	src := `float f(float x)
{
    if (x > 0.0)
        return x;
}
float4 main() : SV_Target { return float4(f(1.0), 0, 0, 0); }`
	prog, log, ok := analyze(t, src, fragOpts())
	if !ok {
		t.Fatalf("analysis failed: %v", log.Reports)
	}
	fn := prog.FindFunctions("f")[0]
	if !fn.Flags.Has(ast.FlagHasNonReturnPath) {
		t.Error("hasNonReturnControlPath not set")
	}
}

func TestAllPathsReturn(t *testing.T) {
	src := `float f(float x)
{
    if (x > 0.0)
        return x;
    else
        return -x;
}
float4 main() : SV_Target { return float4(f(1.0), 0, 0, 0); }`
	prog, log, ok := analyze(t, src, fragOpts())
	if !ok {
		t.Fatalf("analysis failed: %v", log.Reports)
	}
	fn := prog.FindFunctions("f")[0]
	if fn.Flags.Has(ast.FlagHasNonReturnPath) {
		t.Error("hasNonReturnControlPath set despite full coverage")
	}
}

func TestEntryPointIOFlattening(t *testing.T) {
	src := `struct VSIn
{
    float3 pos : POSITION;
    float2 uv : TEXCOORD0;
};
struct VSOut
{
    float4 pos : SV_Position;
    float2 uv : TEXCOORD0;
};
VSOut main(VSIn i)
{
    VSOut o;
    o.pos = float4(i.pos, 1.0);
    o.uv = i.uv;
    return o;
}`
	prog, log, ok := analyze(t, src, Options{
		EntryPoint:    "main",
		Target:        ast.TargetVertex,
		OutputVersion: ast.OutputGLSL450,
	})
	if !ok {
		t.Fatalf("analysis failed: %v", log.Reports)
	}
	if len(prog.Inputs) != 2 {
		t.Errorf("flattened inputs = %d, want 2", len(prog.Inputs))
	}
	if len(prog.Outputs) != 2 {
		t.Errorf("flattened outputs = %d, want 2", len(prog.Outputs))
	}
	for _, v := range prog.Outputs {
		if v.Semantic == "SV_Position" && !v.Flags.Has(ast.FlagSystemValue) {
			t.Error("system value not flagged")
		}
	}
}

func TestReturnSemanticFlattening(t *testing.T) {
	prog, log, ok := analyze(t, `float4 main() : SV_Target { return float4(0, 0, 0, 0); }`, fragOpts())
	if !ok {
		t.Fatalf("analysis failed: %v", log.Reports)
	}
	if len(prog.Outputs) != 1 {
		t.Fatalf("outputs = %d, want 1", len(prog.Outputs))
	}
	out := prog.Outputs[0]
	if out.Semantic != "SV_Target" || !out.Flags.Has(ast.FlagGenerated) {
		t.Errorf("generated output = %+v", out)
	}
}

func TestHLSLOutputSkipsFlattening(t *testing.T) {
	prog, log, ok := analyze(t, `float4 main() : SV_Target { return float4(0, 0, 0, 0); }`, Options{
		EntryPoint:    "main",
		Target:        ast.TargetFragment,
		OutputVersion: ast.OutputHLSL5,
	})
	if !ok {
		t.Fatalf("analysis failed: %v", log.Reports)
	}
	if len(prog.Outputs) != 0 {
		t.Errorf("HLSL output should not flatten IO, got %d outputs", len(prog.Outputs))
	}
}

func TestNumThreadsLayout(t *testing.T) {
	src := `[numthreads(8, 4, 1)]
void main(uint3 id : SV_DispatchThreadID)
{
}`
	prog, log, ok := analyze(t, src, Options{
		EntryPoint:    "main",
		Target:        ast.TargetCompute,
		OutputVersion: ast.OutputGLSL450,
	})
	if !ok {
		t.Fatalf("analysis failed: %v", log.Reports)
	}
	if prog.Compute.NumThreads != [3]int{8, 4, 1} {
		t.Errorf("NumThreads = %v", prog.Compute.NumThreads)
	}
}

func TestDoubleOnESSLRejected(t *testing.T) {
	src := `double4 main() : SV_Target { return double4(0, 0, 0, 0); }`
	_, log, ok := analyze(t, src, Options{
		EntryPoint:    "main",
		Target:        ast.TargetFragment,
		OutputVersion: ast.OutputESSL310,
	})
	if ok {
		t.Fatal("double on ESSL310 accepted")
	}
	found := false
	for _, r := range log.Reports {
		if r.Code == report.CodeTarget {
			found = true
		}
	}
	if !found {
		t.Errorf("no target diagnostic: %v", log.Reports)
	}
}

func TestArrayDimensionConstant(t *testing.T) {
	src := `static const int N = 4;
static float vals[N * 2];
float4 main() : SV_Target { return float4(vals[0], 0, 0, 0); }`
	prog, log, ok := analyze(t, src, fragOpts())
	if !ok {
		t.Fatalf("analysis failed: %v", log.Reports)
	}
	var dims []*ast.ArrayDimension
	for _, d := range prog.Decls {
		if vds, isVar := d.(*ast.VarDeclStmt); isVar && vds.Vars[0].Name == "vals" {
			dims = vds.Vars[0].ArrayDims
		}
	}
	if len(dims) != 1 || dims[0].Size != 8 {
		t.Errorf("array dimension = %+v, want size 8", dims)
	}
}

func TestMulTyping(t *testing.T) {
	src := `cbuffer C { float4x4 m; };
float4 main() : SV_Target
{
    float4 v = float4(1, 2, 3, 4);
    return mul(m, v);
}`
	_, log, ok := analyze(t, src, fragOpts())
	if !ok {
		t.Fatalf("analysis failed: %v", log.Reports)
	}
}

func TestTextureSampleTyping(t *testing.T) {
	src := `Texture2D<float4> tex : register(t0);
SamplerState samp : register(s0);
float4 main(float2 uv : TEXCOORD0) : SV_Target
{
    return tex.Sample(samp, uv);
}`
	prog, log, ok := analyze(t, src, fragOpts())
	if !ok {
		t.Fatalf("analysis failed: %v", log.Reports)
	}

	var call *ast.CallExpr
	ast.Walk(ast.VisitorFunc(func(n ast.Node) bool {
		if c, isCall := n.(*ast.CallExpr); isCall && c.Name == "Sample" {
			call = c
		}
		return true
	}), prog.EntryPoint.Body)
	if call == nil || call.Intrinsic != "Sample" {
		t.Fatal("Sample method not resolved as intrinsic")
	}
	bt, isBase := ast.Aliased(call.Den).(*ast.BaseType)
	if !isBase || bt.Cols != 4 {
		t.Errorf("Sample result type = %v, want float4", call.Den)
	}
}
