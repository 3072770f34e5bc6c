// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"strings"
	"testing"

	"github.com/gogpu/xshade/ast"
)

// emit parses src and re-emits it as HLSL. Reachability is forced on
// every declaration so the writer is tested in isolation from the
// reference analyzer.
func emit(t *testing.T, src string) string {
	t.Helper()
	prog := parse(t, src)
	markAll(prog)
	out, err := Generate(prog, WriterOptions{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return out
}

func markAll(prog *ast.Program) {
	for _, d := range prog.Decls {
		d.DeclFlags().Set(ast.FlagReachable)
		if vds, ok := d.(*ast.VarDeclStmt); ok {
			for _, v := range vds.Vars {
				v.Flags.Set(ast.FlagReachable)
			}
		}
	}
}

func reparse(t *testing.T, src string) string {
	t.Helper()
	return emit(t, src)
}

func TestWriteSimpleFunction(t *testing.T) {
	out := emit(t, `float4 main() : SV_Target
{
    return float4(1.0f, 0.0f, 0.0f, 1.0f);
}`)
	if !strings.Contains(out, "float4 main() : SV_Target") {
		t.Errorf("signature wrong:\n%s", out)
	}
	if !strings.Contains(out, "return float4(1.0f, 0.0f, 0.0f, 1.0f);") {
		t.Errorf("return wrong:\n%s", out)
	}
}

func TestWriteRegistersAndSemantics(t *testing.T) {
	out := emit(t, `Texture2D<float4> tex : register(t2);
SamplerState samp : register(s1);
cbuffer C : register(b0)
{
    float4x4 mvp;
};`)
	for _, want := range []string{
		"Texture2D<float4> tex : register(t2);",
		"SamplerState samp : register(s1);",
		"cbuffer C : register(b0)",
		"float4x4 mvp;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteAttributes(t *testing.T) {
	out := emit(t, `[numthreads(8, 8, 1)]
void main(uint3 id : SV_DispatchThreadID)
{
}`)
	if !strings.Contains(out, "[numthreads(8, 8, 1)]") {
		t.Errorf("attribute lost:\n%s", out)
	}
	if !strings.Contains(out, "uint3 id : SV_DispatchThreadID") {
		t.Errorf("parameter semantic lost:\n%s", out)
	}
}

// TestRoundTripIdempotence checks that emitting, re-parsing and
// emitting again reproduces the output byte for byte.
func TestRoundTripIdempotence(t *testing.T) {
	sources := []string{
		`float4 main() : SV_Target
{
    return float4(1.0f, 0.0f, 0.0f, 1.0f);
}`,
		`struct VSOut
{
    float4 pos : SV_Position;
};
cbuffer Globals : register(b0)
{
    float4x4 mvp;
};
VSOut main(float3 p : POSITION)
{
    VSOut o;
    o.pos = mul(mvp, float4(p, 1.0f));
    return o;
}`,
		`static const float weights[3] = { 0.25f, 0.5f, 0.25f };
float blurred(float x)
{
    float acc = 0.0f;
    for (int i = 0; i < 3; ++i)
    {
        acc += weights[i] * x;
    }
    return acc;
}
float4 main() : SV_Target
{
    return float4(blurred(0.5f), 0.0f, 0.0f, 1.0f);
}`,
	}

	for i, src := range sources {
		first := reparse(t, src)
		second := reparse(t, first)
		if first != second {
			t.Errorf("case %d: round trip not byte-identical:\n--- first ---\n%s\n--- second ---\n%s", i, first, second)
		}
	}
}

func TestWriteControlFlow(t *testing.T) {
	out := emit(t, `int pick(int v)
{
    switch (v)
    {
    case 0:
        return 1;
    default:
        break;
    }
    do { v--; } while (v > 10);
    if (v > 2)
        return v;
    else
        return -v;
}`)
	for _, want := range []string{"switch (v)", "case 0:", "default:", "do", "while (v > 10);", "else"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestUnreachableGated(t *testing.T) {
	prog := parse(t, `float used() { return 1.0f; }
float unused() { return 2.0f; }`)
	// only mark the first function
	prog.Decls[0].DeclFlags().Set(ast.FlagReachable)

	out, err := Generate(prog, WriterOptions{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "used") || strings.Contains(out, "unused") {
		t.Errorf("reachability gating wrong:\n%s", out)
	}
}
