package pp

import (
	"strings"
	"testing"

	"github.com/gogpu/xshade/report"
	"github.com/gogpu/xshade/source"
)

// process runs the preprocessor over src with an optional include map.
func process(t *testing.T, src string, includes map[string]string) (string, *report.Collector, bool) {
	t.Helper()
	log := &report.Collector{}
	var handler source.IncludeHandler
	if includes != nil {
		handler = source.MapIncludeHandler(includes)
	}
	p := New(handler, log)
	p.WarnEnabled = true
	out, ok := p.Process(source.New("test.hlsl", src))
	return out, log, ok
}

// normalize collapses whitespace for idempotence comparison.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func TestIdempotenceWithoutDirectives(t *testing.T) {
	src := "float4 main() : SV_Target\n{\n    return float4(1, 0, 0, 1);\n}\n"
	out, log, ok := process(t, src, nil)
	if !ok {
		t.Fatalf("preprocessing failed: %v", log.Reports)
	}
	if normalize(out) != normalize(src) {
		t.Errorf("output differs beyond whitespace:\n in: %q\nout: %q", src, out)
	}
}

func TestObjectMacro(t *testing.T) {
	out, _, ok := process(t, "#define N 4\nfloat x[N];\n", nil)
	if !ok {
		t.Fatal("preprocessing failed")
	}
	if !strings.Contains(out, "float x[4]") {
		t.Errorf("macro not expanded: %q", out)
	}
}

func TestFunctionMacroArgumentsNotPreExpanded(t *testing.T) {
	// S2: arguments substitute as tokenized, parentheses preserved
	out, _, ok := process(t, "#define SQR(x) ((x)*(x))\nSQR(1+2)\n", nil)
	if !ok {
		t.Fatal("preprocessing failed")
	}
	if !strings.Contains(out, "((1+2)*(1+2))") {
		t.Errorf("SQR(1+2) expanded to %q, want ((1+2)*(1+2))", out)
	}
}

func TestMacroSelfRecursion(t *testing.T) {
	// the blue-paint rule: A expands to the token A and no further
	out, log, ok := process(t, "#define A A\nA\n", nil)
	if !ok {
		t.Fatalf("preprocessing failed: %v", log.Reports)
	}
	if normalize(out) != "A" {
		t.Errorf("self-recursive macro expanded to %q, want A", out)
	}
}

func TestMutualRecursion(t *testing.T) {
	out, _, ok := process(t, "#define A B\n#define B A\nA\n", nil)
	if !ok {
		t.Fatal("preprocessing failed")
	}
	// A -> B -> A, where the inner A is masked
	if normalize(out) != "A" {
		t.Errorf("mutual recursion expanded to %q, want A", out)
	}
}

func TestFunctionMacroBareNameNotExpanded(t *testing.T) {
	out, _, ok := process(t, "#define F(x) x\nint F;\n", nil)
	if !ok {
		t.Fatal("preprocessing failed")
	}
	if !strings.Contains(out, "int F;") {
		t.Errorf("bare function-macro name mangled: %q", out)
	}
}

func TestStringize(t *testing.T) {
	out, _, ok := process(t, "#define STR(x) #x\nSTR(a + b)\n", nil)
	if !ok {
		t.Fatal("preprocessing failed")
	}
	if !strings.Contains(out, `"a + b"`) {
		t.Errorf("stringize produced %q", out)
	}
}

func TestTokenPaste(t *testing.T) {
	out, _, ok := process(t, "#define GLUE(a, b) a##b\nint GLUE(foo, bar);\n", nil)
	if !ok {
		t.Fatal("preprocessing failed")
	}
	if !strings.Contains(out, "foobar") {
		t.Errorf("paste produced %q", out)
	}
}

func TestVariadicMacro(t *testing.T) {
	out, _, ok := process(t, "#define CALL(f, ...) f(__VA_ARGS__)\nCALL(max, 1, 2)\n", nil)
	if !ok {
		t.Fatal("preprocessing failed")
	}
	if !strings.Contains(normalize(out), "max(1,2)") && !strings.Contains(normalize(out), "max(1, 2)") {
		t.Errorf("variadic expansion produced %q", out)
	}
}

func TestConditionals(t *testing.T) {
	src := `#define MODE 2
#if MODE == 1
int a;
#elif MODE == 2
int b;
#else
int c;
#endif
`
	out, _, ok := process(t, src, nil)
	if !ok {
		t.Fatal("preprocessing failed")
	}
	if !strings.Contains(out, "int b;") {
		t.Errorf("wrong branch taken: %q", out)
	}
	if strings.Contains(out, "int a;") || strings.Contains(out, "int c;") {
		t.Errorf("skipped branch emitted: %q", out)
	}
}

func TestSkippedRegionNestedConditionsNotEvaluated(t *testing.T) {
	// undefined identifiers in controlling expressions of nested
	// conditionals inside a skipped region must not produce errors
	src := `#if 0
#if UNDEFINED_THING(1 / 0)
int x;
#endif
#endif
int y;
`
	out, log, ok := process(t, src, nil)
	if !ok {
		t.Fatalf("preprocessing failed: %v", log.Reports)
	}
	if log.HasErrors() {
		t.Fatalf("skipped region produced errors: %v", log.Reports)
	}
	if strings.Contains(out, "int x;") {
		t.Errorf("skipped content emitted: %q", out)
	}
	if !strings.Contains(out, "int y;") {
		t.Errorf("content after region missing: %q", out)
	}
}

func TestIfdefAndDefined(t *testing.T) {
	src := `#define FOO 1
#ifdef FOO
int a;
#endif
#ifndef FOO
int b;
#endif
#if defined(FOO) && !defined(BAR)
int c;
#endif
`
	out, _, ok := process(t, src, nil)
	if !ok {
		t.Fatal("preprocessing failed")
	}
	if !strings.Contains(out, "int a;") || !strings.Contains(out, "int c;") {
		t.Errorf("defined() handling wrong: %q", out)
	}
	if strings.Contains(out, "int b;") {
		t.Errorf("ifndef misfired: %q", out)
	}
}

func TestUndef(t *testing.T) {
	src := "#define X 1\n#undef X\n#ifdef X\nint a;\n#endif\n"
	out, _, ok := process(t, src, nil)
	if !ok {
		t.Fatal("preprocessing failed")
	}
	if strings.Contains(out, "int a;") {
		t.Errorf("undef did not remove macro: %q", out)
	}
}

func TestElseAfterElseIsError(t *testing.T) {
	_, log, ok := process(t, "#if 0\n#else\n#else\n#endif\n", nil)
	if ok || !log.HasErrors() {
		t.Fatal("duplicate #else not reported")
	}
}

func TestUnterminatedConditional(t *testing.T) {
	_, log, ok := process(t, "#if 1\nint x;\n", nil)
	if ok || !log.HasErrors() {
		t.Fatal("unterminated #if not reported")
	}
}

func TestInclude(t *testing.T) {
	out, _, ok := process(t, "#include \"common.hlsl\"\nint after;\n", map[string]string{
		"common.hlsl": "int included;\n",
	})
	if !ok {
		t.Fatal("preprocessing failed")
	}
	if !strings.Contains(out, "int included;") || !strings.Contains(out, "int after;") {
		t.Errorf("include content wrong: %q", out)
	}
}

func TestIncludeNotFound(t *testing.T) {
	_, log, ok := process(t, "#include \"missing.hlsl\"\n", map[string]string{})
	if ok || !log.HasErrors() {
		t.Fatal("missing include not reported")
	}
}

func TestPragmaOnce(t *testing.T) {
	// property 4: a file with #pragma once included transitively is
	// processed exactly once
	includes := map[string]string{
		"guard.hlsl": "#pragma once\nint guarded;\n",
		"mid.hlsl":   "#include \"guard.hlsl\"\n",
	}
	src := "#include \"guard.hlsl\"\n#include \"mid.hlsl\"\n#include \"guard.hlsl\"\n"
	out, log, ok := process(t, src, includes)
	if !ok {
		t.Fatalf("preprocessing failed: %v", log.Reports)
	}
	if got := strings.Count(out, "int guarded;"); got != 1 {
		t.Errorf("guarded content appeared %d times, want 1:\n%q", got, out)
	}
}

func TestIncludeDepthLimit(t *testing.T) {
	log := &report.Collector{}
	p := New(source.MapIncludeHandler{"self.hlsl": "#include \"self.hlsl\"\n"}, log)
	p.MaxIncludeDepth = 8
	_, ok := p.Process(source.New("test.hlsl", "#include \"self.hlsl\"\n"))
	if ok || !log.HasErrors() {
		t.Fatal("recursive include not reported")
	}
}

func TestLineAndFileMacros(t *testing.T) {
	out, _, ok := process(t, "int a = __LINE__;\nconst char f = __FILE__;\n", nil)
	if !ok {
		t.Fatal("preprocessing failed")
	}
	if !strings.Contains(out, "int a = 1;") {
		t.Errorf("__LINE__ wrong: %q", out)
	}
	if !strings.Contains(out, `"test.hlsl"`) {
		t.Errorf("__FILE__ wrong: %q", out)
	}
}

func TestLineDirective(t *testing.T) {
	out, _, ok := process(t, "#line 40 \"other.hlsl\"\nint a = __LINE__;\n", nil)
	if !ok {
		t.Fatal("preprocessing failed")
	}
	if !strings.Contains(out, "int a = 40;") {
		t.Errorf("#line did not adjust __LINE__: %q", out)
	}
}

func TestErrorDirective(t *testing.T) {
	_, log, ok := process(t, "#error something broke\n", nil)
	if ok || !log.HasErrors() {
		t.Fatal("#error not reported")
	}
	found := false
	for _, r := range log.Reports {
		if strings.Contains(r.Message, "something broke") {
			found = true
		}
	}
	if !found {
		t.Errorf("#error message lost: %v", log.Reports)
	}
}

func TestWarningDirective(t *testing.T) {
	_, log, ok := process(t, "#warning heads up\nint x;\n", nil)
	if !ok {
		t.Fatal("#warning must not fail the run")
	}
	if log.HasErrors() {
		t.Fatal("#warning reported as error")
	}
	if len(log.Reports) == 0 {
		t.Fatal("#warning not reported")
	}
}

func TestUnknownDirective(t *testing.T) {
	_, log, ok := process(t, "#frobnicate\n", nil)
	if ok || !log.HasErrors() {
		t.Fatal("unknown directive not reported")
	}
}

func TestUnknownPragmaWarns(t *testing.T) {
	_, log, ok := process(t, "#pragma pack_matrix(row_major)\nint x;\n", nil)
	if !ok {
		t.Fatal("unknown pragma must not fail the run")
	}
	if log.HasErrors() || len(log.Reports) == 0 {
		t.Fatalf("unknown pragma should warn: %v", log.Reports)
	}
}

func TestDefinedMacroList(t *testing.T) {
	log := &report.Collector{}
	p := New(nil, log)
	_, ok := p.Process(source.New("t", "#define A 1\n#define B 2\n#undef A\n"))
	if !ok {
		t.Fatal("preprocessing failed")
	}
	macros := p.DefinedMacros()
	if len(macros) != 2 || macros[0] != "A" || macros[1] != "B" {
		t.Errorf("DefinedMacros = %v, want [A B]", macros)
	}
}

func TestLineContinuation(t *testing.T) {
	out, _, ok := process(t, "#define LONG 1 + \\\n2\nint x = LONG;\n", nil)
	if !ok {
		t.Fatal("preprocessing failed")
	}
	if !strings.Contains(normalize(out), "int x = 1 + 2;") {
		t.Errorf("line continuation wrong: %q", out)
	}
}

func TestRedefinitionWarns(t *testing.T) {
	_, log, ok := process(t, "#define X 1\n#define X 2\n", nil)
	if !ok {
		t.Fatal("redefinition must not fail")
	}
	if len(log.Reports) == 0 {
		t.Error("redefinition should warn")
	}
}
