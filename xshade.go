// Package xshade is a source-to-source shader cross-compiler. It
// translates HLSL (Shader Model 3-5) into GLSL, ESSL, Vulkan-style
// GLSL, or re-emitted HLSL.
//
// The compilation pipeline is strictly linear:
//
//	preprocess -> parse -> analyze -> transform -> generate -> reflect
//
// Each stage consumes the previous stage's output; all diagnostics are
// delivered through the Log sink and a failed compilation returns
// false. A compiler invocation is single-threaded and synchronous;
// callers must not share descriptors across concurrent calls.
//
// Example:
//
//	in := &xshade.ShaderInput{
//	    SourceCode: strings.NewReader(src),
//	    EntryPoint: "main",
//	    Target:     ast.TargetFragment,
//	}
//	out := &xshade.ShaderOutput{
//	    SourceCode: &buf,
//	    Version:    ast.OutputGLSL450,
//	}
//	ok := xshade.CompileShader(in, out, log, nil)
package xshade

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/gogpu/xshade/ast"
	"github.com/gogpu/xshade/glsl"
	"github.com/gogpu/xshade/hlsl"
	"github.com/gogpu/xshade/pp"
	"github.com/gogpu/xshade/reflection"
	"github.com/gogpu/xshade/report"
	"github.com/gogpu/xshade/sema"
	"github.com/gogpu/xshade/source"
	"github.com/gogpu/xshade/transform"
)

// Warnings is a bitmask enabling warning classes.
type Warnings uint32

const (
	WarnPreProcessor Warnings = 1 << iota
	WarnSyntax
	WarnSemantics

	WarnAll = WarnPreProcessor | WarnSyntax | WarnSemantics
)

// Options are the output option flags. AutoBinding implies
// ExplicitBinding; ValidateOnly replaces the output sink with a null
// sink.
type Options struct {
	PreprocessOnly    bool
	ValidateOnly      bool
	Optimize          bool
	PreserveComments  bool
	AllowExtensions   bool
	SeparateShaders   bool
	AutoBinding       bool
	ExplicitBinding   bool
	RowMajorAlignment bool
	ShowAST           bool
}

// Formatting controls the emitted source layout.
type Formatting struct {
	Indent             string
	LineMarks          bool
	CompactWrappers    bool
	AlwaysBracedScopes bool
}

// NameMangling carries the renaming prefixes. The five prefixes must be
// pairwise distinct, and ReservedWordPrefix and TemporaryPrefix must be
// non-empty; violations are argument errors.
type NameMangling struct {
	InputPrefix        string
	OutputPrefix       string
	ReservedWordPrefix string
	TemporaryPrefix    string
	NamespacePrefix    string
}

// DefaultNameMangling returns the default prefix set.
func DefaultNameMangling() NameMangling {
	return NameMangling{
		InputPrefix:        "xsv_",
		OutputPrefix:       "xso_",
		ReservedWordPrefix: "xsr_",
		TemporaryPrefix:    "xst_",
	}
}

// SemanticBinding pins a vertex or fragment semantic to an explicit
// location.
type SemanticBinding struct {
	Semantic string
	Location int
}

// ShaderInput describes the source being compiled.
type ShaderInput struct {
	Filename            string
	SourceCode          io.Reader
	EntryPoint          string
	SecondaryEntryPoint string
	Target              ast.ShaderTarget
	Version             ast.InputVersion
	IncludeHandler      source.IncludeHandler
	Warnings            Warnings
	Extensions          uint32
}

// ShaderOutput describes the requested output.
type ShaderOutput struct {
	SourceCode io.Writer
	Version    ast.OutputVersion

	Options    Options
	Formatting Formatting

	NameMangling NameMangling

	VertexSemantics   []SemanticBinding
	FragmentSemantics []SemanticBinding
}

// CompileShader runs the full pipeline. It returns false when any
// error was reported; all diagnostics are delivered into log (which
// may be nil).
func CompileShader(in *ShaderInput, out *ShaderOutput, log report.Log, refl *reflection.Data) (ok bool) {
	c := &compiler{log: log}

	// invariant violations abort with a single internal diagnostic
	defer func() {
		if r := recover(); r != nil {
			c.submit(report.Report{
				Kind:    report.Error,
				Code:    report.CodeInternal,
				Message: fmt.Sprintf("internal error: %v", r),
			})
			ok = false
		}
	}()

	return c.compile(in, out, refl)
}

type compiler struct {
	log    report.Log
	failed bool
}

func (c *compiler) compile(in *ShaderInput, out *ShaderOutput, refl *reflection.Data) bool {
	if !c.validateArguments(in, out) {
		return false
	}

	// copy the output descriptor so validation can run without an
	// output stream
	opts := out.Options
	sink := out.SourceCode
	if opts.ValidateOnly {
		sink = io.Discard
	}
	if opts.AutoBinding {
		opts.ExplicitBinding = true
	}

	mangling := out.NameMangling
	if mangling.ReservedWordPrefix == "" {
		mangling = DefaultNameMangling()
	}

	/* ----- pre-processing ----- */

	text, err := io.ReadAll(in.SourceCode)
	if err != nil {
		return c.argumentError("%s", errors.Wrap(err, "reading input stream").Error())
	}

	include := in.IncludeHandler
	if include == nil {
		include = &source.FileIncludeHandler{Base: filepath.Dir(in.Filename)}
	}

	preprocessor := pp.New(include, c.log)
	preprocessor.WarnEnabled = in.Warnings&WarnPreProcessor != 0

	processed, ppOK := preprocessor.Process(source.New(in.Filename, string(text)))
	macros := preprocessor.DefinedMacros()
	if !ppOK {
		return false
	}

	if opts.PreprocessOnly {
		if _, err := io.WriteString(sink, processed); err != nil {
			return c.argumentError("%s", errors.Wrap(err, "writing output stream").Error())
		}
		return true
	}

	/* ----- parsing ----- */

	lexer := hlsl.NewLexer(in.Filename, processed, hlsl.Keywords())
	lexer.PreserveComments = opts.PreserveComments
	tokens, lexErrs := lexer.Tokenize()
	for _, e := range lexErrs {
		c.submit(report.Report{
			Kind:    report.Error,
			Code:    report.CodeLex,
			Message: e.Message,
			Span:    source.At(e.Pos),
			Context: report.ContextString(processed, e.Pos),
		})
	}

	parser := hlsl.NewParser(tokens)
	prog, synErrs := parser.ParseProgram()
	for _, e := range synErrs {
		c.submit(report.Report{
			Kind:    report.Error,
			Code:    report.CodeSyntax,
			Message: e.Message,
			Span:    e.Tok.Span(),
			Context: report.ContextString(processed, e.Tok.Pos),
		})
	}
	if len(lexErrs) > 0 || len(synErrs) > 0 {
		return false
	}
	prog.DefinedMacros = macros

	/* ----- context analysis ----- */

	analyzer := sema.NewAnalyzer(c.log)
	analyzed := analyzer.Decorate(prog, sema.Options{
		EntryPoint:          in.EntryPoint,
		SecondaryEntryPoint: in.SecondaryEntryPoint,
		Target:              in.Target,
		OutputVersion:       out.Version,
		WarnEnabled:         in.Warnings&WarnSemantics != 0,
	})

	if opts.ShowAST {
		c.submit(report.Report{
			Kind:    report.Info,
			Message: "abstract syntax tree:\n" + ast.Sprint(prog),
		})
	}

	if !analyzed {
		return false
	}

	/* ----- transformation ----- */

	transform.MarkReachable(prog)
	transform.AnalyzeStructParameters(prog)
	if opts.Optimize {
		transform.Optimize(prog)
	}

	if !out.Version.IsHLSL() {
		tm := transform.NameMangling{
			InputPrefix:        mangling.InputPrefix,
			OutputPrefix:       mangling.OutputPrefix,
			ReservedWordPrefix: mangling.ReservedWordPrefix,
			TemporaryPrefix:    mangling.TemporaryPrefix,
			NamespacePrefix:    mangling.NamespacePrefix,
		}
		transform.ConvertFuncNames(prog, tm, glsl.ReservedWords)
		transform.MangleIONames(prog, tm)
		transform.ConvertExpressions(prog)
	}

	/* ----- code generation ----- */

	generated := c.generate(prog, out, opts, mangling, sink)

	/* ----- code reflection ----- */

	// reflection still runs when generation failed; the data depends
	// only on the analyzed AST
	if refl != nil {
		*refl = *reflection.Extract(prog, macros, reflection.Options{
			AutoBinding: opts.AutoBinding,
		})
	}

	return generated && !c.failed
}

func (c *compiler) generate(prog *ast.Program, out *ShaderOutput, opts Options, mangling NameMangling, sink io.Writer) bool {
	var code string
	var err error

	if out.Version.IsHLSL() {
		code, err = hlsl.Generate(prog, hlsl.WriterOptions{
			Formatting: hlsl.Formatting{
				Indent:             out.Formatting.Indent,
				LineMarks:          out.Formatting.LineMarks,
				CompactWrappers:    out.Formatting.CompactWrappers,
				AlwaysBracedScopes: out.Formatting.AlwaysBracedScopes,
			},
			PreserveComments: opts.PreserveComments,
		})
	} else {
		code, err = glsl.Generate(prog, glsl.Options{
			Version: out.Version,
			Formatting: glsl.Formatting{
				Indent:             out.Formatting.Indent,
				LineMarks:          out.Formatting.LineMarks,
				CompactWrappers:    out.Formatting.CompactWrappers,
				AlwaysBracedScopes: out.Formatting.AlwaysBracedScopes,
			},
			PreserveComments:  opts.PreserveComments,
			AllowExtensions:   opts.AllowExtensions,
			ExplicitBinding:   opts.ExplicitBinding,
			AutoBinding:       opts.AutoBinding,
			RowMajorAlignment: opts.RowMajorAlignment,
			SeparateShaders:   opts.SeparateShaders,
			TempPrefix:        mangling.TemporaryPrefix,
			SemanticLocations: semanticLocations(prog.Target, out),
		})
	}

	if err != nil {
		c.submit(report.Report{
			Kind:    report.Error,
			Code:    report.CodeTarget,
			Message: err.Error(),
		})
		return false
	}

	if _, werr := io.WriteString(sink, code); werr != nil {
		c.submit(report.Report{
			Kind:    report.Error,
			Code:    report.CodeArgument,
			Message: errors.Wrap(werr, "writing output stream").Error(),
		})
		return false
	}
	return true
}

// semanticLocations builds the pinned-location table for the stage
// from the explicit semantic binding tables of the output descriptor.
func semanticLocations(target ast.ShaderTarget, out *ShaderOutput) map[string]int {
	var bindings []SemanticBinding
	switch target {
	case ast.TargetVertex:
		bindings = out.VertexSemantics
	case ast.TargetFragment:
		bindings = out.FragmentSemantics
	}
	if len(bindings) == 0 {
		return nil
	}
	locs := make(map[string]int, len(bindings))
	for _, b := range bindings {
		locs[b.Semantic] = b.Location
	}
	return locs
}

// validateArguments checks the descriptors before any stage runs.
func (c *compiler) validateArguments(in *ShaderInput, out *ShaderOutput) bool {
	if in == nil || out == nil {
		return c.argumentError("input and output descriptors must not be null")
	}
	if in.SourceCode == nil {
		return c.argumentError("input stream must not be null")
	}
	if out.SourceCode == nil && !out.Options.ValidateOnly {
		return c.argumentError("output stream must not be null")
	}
	if in.Target == ast.TargetUndefined && !out.Options.PreprocessOnly {
		return c.argumentError("shader target is undefined")
	}

	m := out.NameMangling
	if m == (NameMangling{}) {
		return true
	}
	if m.ReservedWordPrefix == "" {
		return c.argumentError("name-mangling prefix for reserved words must not be empty")
	}
	if m.TemporaryPrefix == "" {
		return c.argumentError("name-mangling prefix for temporaries must not be empty")
	}
	overlapping := m.InputPrefix == m.OutputPrefix ||
		m.ReservedWordPrefix == m.InputPrefix ||
		m.ReservedWordPrefix == m.OutputPrefix ||
		m.ReservedWordPrefix == m.TemporaryPrefix ||
		m.TemporaryPrefix == m.InputPrefix ||
		m.TemporaryPrefix == m.OutputPrefix
	if !overlapping && m.NamespacePrefix != "" {
		overlapping = m.NamespacePrefix == m.InputPrefix ||
			m.NamespacePrefix == m.OutputPrefix ||
			m.NamespacePrefix == m.ReservedWordPrefix ||
			m.NamespacePrefix == m.TemporaryPrefix
	}
	if overlapping {
		return c.argumentError("overlapping name-mangling prefixes")
	}
	return true
}

func (c *compiler) argumentError(format string, args ...any) bool {
	c.submit(report.Report{
		Kind:    report.Error,
		Code:    report.CodeArgument,
		Message: fmt.Sprintf(format, args...),
	})
	return false
}

func (c *compiler) submit(r report.Report) {
	if r.Kind == report.Error {
		c.failed = true
	}
	if c.log != nil {
		c.log.Submit(r)
	}
}

// OutputExtension returns the conventional file extension for a shader
// target ("vert", "frag", ...; "glsl" when the target is undefined).
func OutputExtension(target ast.ShaderTarget) string {
	switch target {
	case ast.TargetVertex:
		return "vert"
	case ast.TargetTessControl:
		return "tesc"
	case ast.TargetTessEvaluation:
		return "tese"
	case ast.TargetGeometry:
		return "geom"
	case ast.TargetFragment:
		return "frag"
	case ast.TargetCompute:
		return "comp"
	}
	return "glsl"
}
