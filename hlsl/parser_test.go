package hlsl

import (
	"testing"

	"github.com/gogpu/xshade/ast"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	l := NewLexer("test.hlsl", src, Keywords())
	toks, lexErrs := l.Tokenize()
	if len(lexErrs) > 0 {
		t.Fatalf("lexer errors: %v", lexErrs)
	}
	prog, errs := NewParser(toks).ParseProgram()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return prog
}

func tryParse(t *testing.T, src string) (*ast.Program, []*SyntaxError) {
	t.Helper()
	l := NewLexer("test.hlsl", src, Keywords())
	toks, _ := l.Tokenize()
	return NewParser(toks).ParseProgram()
}

func TestParseSimpleFragmentShader(t *testing.T) {
	prog := parse(t, `float4 main() : SV_Target
{
    return float4(1, 0, 0, 1);
}`)

	fns := prog.Functions()
	if len(fns) != 1 {
		t.Fatalf("function count = %d, want 1", len(fns))
	}
	fn := fns[0]
	if fn.Name != "main" {
		t.Errorf("name = %q, want main", fn.Name)
	}
	if fn.Semantic != "SV_Target" {
		t.Errorf("semantic = %q, want SV_Target", fn.Semantic)
	}
	if fn.Body == nil || len(fn.Body.Stmts) != 1 {
		t.Fatal("body missing")
	}
	ret, ok := fn.Body.Stmts[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("statement is %T, want ReturnStmt", fn.Body.Stmts[0])
	}
	call, ok := ret.Expr.(*ast.CallExpr)
	if !ok || call.Name != "float4" || len(call.Args) != 4 {
		t.Fatalf("return value is %T %v", ret.Expr, ret.Expr)
	}
	if call.TypeCtor == nil {
		t.Error("type constructor not recognized")
	}
}

func TestParseParametersWithSemantics(t *testing.T) {
	prog := parse(t, `float4 main(float3 pos : POSITION, float2 uv : TEXCOORD0) : SV_Target
{
    return float4(pos, 1.0);
}`)
	fn := prog.Functions()[0]
	if len(fn.Params) != 2 {
		t.Fatalf("param count = %d", len(fn.Params))
	}
	if fn.Params[0].Semantic != "POSITION" || fn.Params[1].Semantic != "TEXCOORD0" {
		t.Errorf("semantics = %q, %q", fn.Params[0].Semantic, fn.Params[1].Semantic)
	}
	bt, ok := fn.Params[0].Param.Den.(*ast.BaseType)
	if !ok || !bt.IsVector() || bt.Cols != 3 {
		t.Errorf("param type = %v", fn.Params[0].Param.Den)
	}
}

func TestParseStructAndUsage(t *testing.T) {
	prog := parse(t, `struct VSOut
{
    float4 pos : SV_Position;
    float2 uv : TEXCOORD0;
};

VSOut main(float3 p : POSITION)
{
    VSOut o;
    o.pos = float4(p, 1.0);
    return o;
}`)
	sd, ok := prog.Decls[0].(*ast.StructDecl)
	if !ok || sd.Name != "VSOut" {
		t.Fatalf("first decl = %T", prog.Decls[0])
	}
	if len(sd.Members) != 2 {
		t.Fatalf("member count = %d", len(sd.Members))
	}
	if sd.Members[0].Vars[0].Semantic != "SV_Position" {
		t.Errorf("member semantic = %q", sd.Members[0].Vars[0].Semantic)
	}

	// the struct name must have entered the known-type-name set so the
	// return type and local declaration parse as types
	fn := prog.Functions()[0]
	if fn.ReturnType.Name != "VSOut" {
		t.Errorf("return type name = %q", fn.ReturnType.Name)
	}
	if _, ok := fn.Body.Stmts[0].(*ast.VarDeclStmt); !ok {
		t.Errorf("local struct declaration parsed as %T", fn.Body.Stmts[0])
	}
}

func TestParseCBuffer(t *testing.T) {
	prog := parse(t, `cbuffer Globals : register(b2)
{
    float4x4 worldViewProj;
    float4 tint;
};`)
	ub, ok := prog.Decls[0].(*ast.UniformBufferDecl)
	if !ok {
		t.Fatalf("decl = %T", prog.Decls[0])
	}
	if ub.Name != "Globals" || ub.Keyword != "cbuffer" {
		t.Errorf("name/keyword = %q %q", ub.Name, ub.Keyword)
	}
	if ub.Register == nil || ub.Register.Class != 'b' || ub.Register.Slot != 2 {
		t.Errorf("register = %+v", ub.Register)
	}
	if len(ub.Members) != 2 {
		t.Errorf("member count = %d", len(ub.Members))
	}
}

func TestParseTextureAndSampler(t *testing.T) {
	prog := parse(t, `Texture2D<float4> colorMap : register(t0);
SamplerState linearSampler : register(s0);`)

	bd, ok := prog.Decls[0].(*ast.BufferDecl)
	if !ok {
		t.Fatalf("decl 0 = %T", prog.Decls[0])
	}
	if bd.Type.Kind != "Texture2D" || bd.Register.Class != 't' {
		t.Errorf("buffer = %+v", bd)
	}
	if g, ok := bd.Type.Generic.(*ast.BaseType); !ok || g.Cols != 4 {
		t.Errorf("generic = %v", bd.Type.Generic)
	}

	sd, ok := prog.Decls[1].(*ast.SamplerDecl)
	if !ok {
		t.Fatalf("decl 1 = %T", prog.Decls[1])
	}
	if sd.Type.Name != "SamplerState" || sd.Register.Slot != 0 {
		t.Errorf("sampler = %+v", sd)
	}
}

func TestParseOverloadsRecordedNotResolved(t *testing.T) {
	prog := parse(t, `float f(float x) { return x; }
float f(int x) { return 1.0; }`)
	fns := prog.FindFunctions("f")
	if len(fns) != 2 {
		t.Fatalf("overload count = %d, want 2", len(fns))
	}
}

func TestParseControlFlow(t *testing.T) {
	prog := parse(t, `int main()
{
    int acc = 0;
    for (int i = 0; i < 4; ++i)
    {
        acc += i;
    }
    while (acc > 10)
        acc--;
    do { acc++; } while (acc < 5);
    if (acc == 3)
        return acc;
    else if (acc == 4)
        return 0;
    switch (acc)
    {
    case 1:
    case 2:
        return 2;
    default:
        break;
    }
    return acc;
}`)
	body := prog.Functions()[0].Body
	if len(body.Stmts) != 7 {
		t.Fatalf("statement count = %d, want 7", len(body.Stmts))
	}
	if _, ok := body.Stmts[1].(*ast.ForStmt); !ok {
		t.Errorf("stmt 1 = %T", body.Stmts[1])
	}
	sw, ok := body.Stmts[5].(*ast.SwitchStmt)
	if !ok {
		t.Fatalf("stmt 5 = %T", body.Stmts[5])
	}
	if len(sw.Cases) != 2 {
		t.Errorf("case clauses = %d, want 2 (folded labels + default)", len(sw.Cases))
	}
	if len(sw.Cases[0].Exprs) != 2 {
		t.Errorf("folded case labels = %d, want 2", len(sw.Cases[0].Exprs))
	}
	if !sw.Cases[1].IsDefault() {
		t.Error("default clause not recognized")
	}
}

func TestParseCastVsBracket(t *testing.T) {
	prog := parse(t, `float main()
{
    float a = (float)1;
    float b = (a);
    return a + b;
}`)
	body := prog.Functions()[0].Body
	declA := body.Stmts[0].(*ast.VarDeclStmt)
	if _, ok := declA.Vars[0].Init.(*ast.CastExpr); !ok {
		t.Errorf("(float)1 parsed as %T, want CastExpr", declA.Vars[0].Init)
	}
	declB := body.Stmts[1].(*ast.VarDeclStmt)
	if _, ok := declB.Vars[0].Init.(*ast.BracketExpr); !ok {
		t.Errorf("(a) parsed as %T, want BracketExpr", declB.Vars[0].Init)
	}
}

func TestParseUserTypeCast(t *testing.T) {
	prog := parse(t, `typedef float2 uv_t;
float main()
{
    uv_t v = (uv_t)0;
    return v.x;
}`)
	body := prog.Functions()[0].Body
	decl := body.Stmts[0].(*ast.VarDeclStmt)
	if _, ok := decl.Vars[0].Init.(*ast.CastExpr); !ok {
		t.Errorf("(uv_t)0 parsed as %T, want CastExpr", decl.Vars[0].Init)
	}
}

func TestParseMethodCallAndSwizzle(t *testing.T) {
	prog := parse(t, `Texture2D tex;
SamplerState samp;
float4 main(float2 uv : TEXCOORD0) : SV_Target
{
    return tex.Sample(samp, uv).rgba;
}`)
	fn := prog.Functions()[0]
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	obj, ok := ret.Expr.(*ast.ObjectExpr)
	if !ok || obj.Name != "rgba" {
		t.Fatalf("return expr = %T", ret.Expr)
	}
	call, ok := obj.Prefix.(*ast.CallExpr)
	if !ok || call.Name != "Sample" || call.Prefix == nil {
		t.Fatalf("swizzle prefix = %T", obj.Prefix)
	}
}

func TestParseArrayDimsAndInitializer(t *testing.T) {
	prog := parse(t, `static const float weights[3] = { 0.25, 0.5, 0.25 };`)
	vds := prog.Decls[0].(*ast.VarDeclStmt)
	v := vds.Vars[0]
	if len(v.ArrayDims) != 1 || v.ArrayDims[0].Expr == nil {
		t.Fatalf("array dims = %+v", v.ArrayDims)
	}
	init, ok := v.Init.(*ast.InitializerExpr)
	if !ok || len(init.Exprs) != 3 {
		t.Fatalf("initializer = %T", v.Init)
	}
	if !vds.Type.HasStorageClass("static") || !vds.Type.IsConst() {
		t.Errorf("modifiers lost: %+v", vds.Type)
	}
}

func TestParseAttributes(t *testing.T) {
	prog := parse(t, `[numthreads(8, 8, 1)]
void main(uint3 id : SV_DispatchThreadID)
{
}`)
	fn := prog.Functions()[0]
	if len(fn.Attribs) != 1 || fn.Attribs[0].Name != "numthreads" {
		t.Fatalf("attribs = %+v", fn.Attribs)
	}
	if len(fn.Attribs[0].Args) != 3 {
		t.Errorf("attrib args = %d", len(fn.Attribs[0].Args))
	}
}

func TestParseErrorRecovery(t *testing.T) {
	_, errs := tryParse(t, `float bad bad bad;
float4 ok() : SV_Target { return float4(0, 0, 0, 0); }
int also broken here;`)
	if len(errs) != 2 {
		t.Fatalf("error count = %d, want 2 (one per synchronized region): %v", len(errs), errs)
	}
}

func TestParsePrototype(t *testing.T) {
	prog := parse(t, `float helper(float x);
float helper(float x) { return x * 2.0; }`)
	fns := prog.FindFunctions("helper")
	if len(fns) != 2 {
		t.Fatalf("decl count = %d", len(fns))
	}
	if !fns[0].IsPrototype() || fns[1].IsPrototype() {
		t.Error("prototype flags wrong")
	}
}

func TestParseGenericVectorAndMatrix(t *testing.T) {
	prog := parse(t, `vector<float, 3> v;
matrix<float, 4, 4> m;`)
	v := prog.Decls[0].(*ast.VarDeclStmt)
	bt := v.Type.Den.(*ast.BaseType)
	if !bt.IsVector() || bt.Cols != 3 {
		t.Errorf("vector<float,3> = %v", bt)
	}
	m := prog.Decls[1].(*ast.VarDeclStmt)
	mt := m.Type.Den.(*ast.BaseType)
	if !mt.IsMatrix() || mt.Rows != 4 || mt.Cols != 4 {
		t.Errorf("matrix<float,4,4> = %v", mt)
	}
}
