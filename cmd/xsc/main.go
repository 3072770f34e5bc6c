// Command xsc is the xshade shader cross-compiler CLI.
//
// Usage:
//
//	xsc [options] <file> [<file>...]
//
// Examples:
//
//	xsc -T frag -E main shader.hlsl            # HLSL -> GLSL 4.50
//	xsc -T vert -V ESSL310 -o out.vert in.hlsl # explicit output file
//	xsc --validate shader.hlsl                 # validate only
//
// Flags may carry their value in the same argument (--flag=value) or
// as the next argument. Tokens not recognized as flags are input
// filenames; each input is compiled with the current option state, and
// the per-file state (output filename, entry point) resets afterwards.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/gogpu/xshade"
	"github.com/gogpu/xshade/ast"
	"github.com/gogpu/xshade/reflection"
	"github.com/gogpu/xshade/report"
	"github.com/gogpu/xshade/source"
)

const version = "0.1.0-dev"

// shellState is the mutable option state of the shell. outputFilename
// and entryPoint reset after each compiled file.
type shellState struct {
	entryPoint     string
	secondaryEntry string
	outputFilename string

	target        ast.ShaderTarget
	outputVersion ast.OutputVersion

	opts        xshade.Options
	warnings    xshade.Warnings
	includeDirs []string
	showRefl    bool

	compiled int
	failed   bool
}

// command is one registered shell flag.
type command struct {
	names      []string
	takesValue bool
	help       string
	run        func(s *shellState, value string) error
}

// registry routes flag tokens to commands. It replaces a global
// command factory: the dispatcher receives it explicitly.
type registry struct {
	commands []*command
	byName   map[string]*command
}

func newRegistry() *registry {
	return &registry{byName: make(map[string]*command)}
}

func (r *registry) add(c *command) {
	r.commands = append(r.commands, c)
	for _, n := range c.names {
		r.byName[n] = c
	}
}

func (r *registry) lookup(name string) *command {
	return r.byName[name]
}

func main() {
	state := &shellState{
		entryPoint:    "main",
		target:        ast.TargetUndefined,
		outputVersion: ast.OutputGLSL450,
	}
	reg := buildRegistry()

	args := os.Args[1:]
	if len(args) == 0 {
		usage(reg)
		os.Exit(1)
	}

	for i := 0; i < len(args); i++ {
		tok := args[i]

		if strings.HasPrefix(tok, "-") {
			name, value, hasValue := strings.Cut(tok, "=")
			if cmd := reg.lookup(name); cmd != nil {
				if cmd.takesValue && !hasValue {
					if i+1 >= len(args) {
						fmt.Fprintf(os.Stderr, "xsc: flag %s expects a value\n", name)
						os.Exit(1)
					}
					i++
					value = args[i]
				}
				if err := cmd.run(state, value); err != nil {
					fmt.Fprintf(os.Stderr, "xsc: %v\n", err)
					os.Exit(1)
				}
				continue
			}
		}

		// unknown tokens are input filenames
		compileFile(state, tok)

		// per-file state reset
		state.outputFilename = ""
		state.entryPoint = "main"
	}

	if state.failed {
		os.Exit(1)
	}
}

func compileFile(s *shellState, filename string) {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xsc: %v\n", errors.Wrapf(err, "reading %q", filename))
		s.failed = true
		return
	}

	outName := s.outputFilename
	if outName == "" {
		outName = defaultOutputFilename(filename, s.entryPoint, s.target)
	}

	var sink *os.File
	if !s.opts.ValidateOnly {
		sink, err = os.Create(outName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "xsc: %v\n", errors.Wrapf(err, "creating %q", outName))
			s.failed = true
			return
		}
		defer sink.Close()
	}

	log := report.NewStdLog(os.Stderr)

	in := &xshade.ShaderInput{
		Filename:            filename,
		SourceCode:          strings.NewReader(string(data)),
		EntryPoint:          s.entryPoint,
		SecondaryEntryPoint: s.secondaryEntry,
		Target:              s.target,
		Version:             ast.InputHLSL5,
		Warnings:            s.warnings,
		IncludeHandler: &source.FileIncludeHandler{
			Base:        filepath.Dir(filename),
			SearchPaths: s.includeDirs,
		},
	}
	out := &xshade.ShaderOutput{
		Version:      s.outputVersion,
		Options:      s.opts,
		NameMangling: xshade.DefaultNameMangling(),
	}
	if sink != nil {
		out.SourceCode = sink
	}

	var refl *reflection.Data
	if s.showRefl {
		refl = &reflection.Data{}
	}

	if !xshade.CompileShader(in, out, log, refl) {
		s.failed = true
		if sink != nil {
			os.Remove(outName)
		}
		return
	}

	s.compiled++
	if refl != nil {
		refl.Print(os.Stdout)
	}
	if !s.opts.ValidateOnly {
		fmt.Printf("compiled %s -> %s\n", filename, outName)
	}
}

// defaultOutputFilename derives "<stem>.<entry>.<ext>" from the input
// name, entry point and stage.
func defaultOutputFilename(input, entry string, target ast.ShaderTarget) string {
	stem := strings.TrimSuffix(input, filepath.Ext(input))
	return fmt.Sprintf("%s.%s.%s", stem, entry, xshade.OutputExtension(target))
}

func buildRegistry() *registry {
	reg := newRegistry()

	reg.add(&command{
		names: []string{"-h", "--help"}, help: "print this help",
		run: func(s *shellState, _ string) error {
			usage(reg)
			os.Exit(0)
			return nil
		},
	})
	reg.add(&command{
		names: []string{"--version"}, help: "print the version",
		run: func(s *shellState, _ string) error {
			fmt.Printf("xsc version %s\n", version)
			os.Exit(0)
			return nil
		},
	})
	reg.add(&command{
		names: []string{"-T", "--target"}, takesValue: true,
		help: "shader target: vert, tesc, tese, geom, frag, comp",
		run: func(s *shellState, v string) error {
			t, err := parseTarget(v)
			if err != nil {
				return err
			}
			s.target = t
			return nil
		},
	})
	reg.add(&command{
		names: []string{"-V", "--version-out"}, takesValue: true,
		help: "output version: GLSL330..GLSL450, ESSL100..ESSL320, VKSL450, HLSL5",
		run: func(s *shellState, v string) error {
			ver, err := parseOutputVersion(v)
			if err != nil {
				return err
			}
			s.outputVersion = ver
			return nil
		},
	})
	reg.add(&command{
		names: []string{"-E", "--entry"}, takesValue: true,
		help: "entry point function (default: main)",
		run: func(s *shellState, v string) error {
			s.entryPoint = v
			return nil
		},
	})
	reg.add(&command{
		names: []string{"-E2", "--entry2"}, takesValue: true,
		help: "secondary entry point function",
		run: func(s *shellState, v string) error {
			s.secondaryEntry = v
			return nil
		},
	})
	reg.add(&command{
		names: []string{"-o", "--output"}, takesValue: true,
		help: "output filename (default: <stem>.<entry>.<ext>)",
		run: func(s *shellState, v string) error {
			s.outputFilename = v
			return nil
		},
	})
	reg.add(&command{
		names: []string{"-I", "--include"}, takesValue: true,
		help: "add an include search path",
		run: func(s *shellState, v string) error {
			s.includeDirs = append(s.includeDirs, v)
			return nil
		},
	})
	reg.add(&command{
		names: []string{"-P", "--preprocess"}, help: "preprocess only",
		run: func(s *shellState, _ string) error {
			s.opts.PreprocessOnly = true
			return nil
		},
	})
	reg.add(&command{
		names: []string{"--validate"}, help: "validate only, no output",
		run: func(s *shellState, _ string) error {
			s.opts.ValidateOnly = true
			return nil
		},
	})
	reg.add(&command{
		names: []string{"-O", "--optimize"}, help: "enable trivial optimizations",
		run: func(s *shellState, _ string) error {
			s.opts.Optimize = true
			return nil
		},
	})
	reg.add(&command{
		names: []string{"--comments"}, help: "preserve comments",
		run: func(s *shellState, _ string) error {
			s.opts.PreserveComments = true
			return nil
		},
	})
	reg.add(&command{
		names: []string{"--extensions"}, help: "allow GL extensions",
		run: func(s *shellState, _ string) error {
			s.opts.AllowExtensions = true
			return nil
		},
	})
	reg.add(&command{
		names: []string{"--auto-binding"}, help: "auto-assign binding slots (implies explicit binding)",
		run: func(s *shellState, _ string) error {
			s.opts.AutoBinding = true
			return nil
		},
	})
	reg.add(&command{
		names: []string{"--explicit-binding"}, help: "emit explicit layout qualifiers",
		run: func(s *shellState, _ string) error {
			s.opts.ExplicitBinding = true
			return nil
		},
	})
	reg.add(&command{
		names: []string{"--row-major"}, help: "row-major matrix alignment",
		run: func(s *shellState, _ string) error {
			s.opts.RowMajorAlignment = true
			return nil
		},
	})
	reg.add(&command{
		names: []string{"--show-ast"}, help: "dump the decorated AST",
		run: func(s *shellState, _ string) error {
			s.opts.ShowAST = true
			return nil
		},
	})
	reg.add(&command{
		names: []string{"-R", "--reflect"}, help: "print code reflection",
		run: func(s *shellState, _ string) error {
			s.showRefl = true
			return nil
		},
	})
	reg.add(&command{
		names: []string{"-W", "--warnings"}, help: "enable all warnings",
		run: func(s *shellState, _ string) error {
			s.warnings = xshade.WarnAll
			return nil
		},
	})

	return reg
}

func parseTarget(v string) (ast.ShaderTarget, error) {
	switch strings.ToLower(v) {
	case "vert", "vertex":
		return ast.TargetVertex, nil
	case "tesc":
		return ast.TargetTessControl, nil
	case "tese":
		return ast.TargetTessEvaluation, nil
	case "geom", "geometry":
		return ast.TargetGeometry, nil
	case "frag", "fragment", "pixel":
		return ast.TargetFragment, nil
	case "comp", "compute":
		return ast.TargetCompute, nil
	}
	return ast.TargetUndefined, errors.Errorf("unknown shader target %q", v)
}

func parseOutputVersion(v string) (ast.OutputVersion, error) {
	versions := map[string]ast.OutputVersion{
		"GLSL330": ast.OutputGLSL330,
		"GLSL400": ast.OutputGLSL400,
		"GLSL410": ast.OutputGLSL410,
		"GLSL420": ast.OutputGLSL420,
		"GLSL430": ast.OutputGLSL430,
		"GLSL440": ast.OutputGLSL440,
		"GLSL450": ast.OutputGLSL450,
		"ESSL100": ast.OutputESSL100,
		"ESSL300": ast.OutputESSL300,
		"ESSL310": ast.OutputESSL310,
		"ESSL320": ast.OutputESSL320,
		"VKSL450": ast.OutputVKSL450,
		"HLSL5":   ast.OutputHLSL5,
	}
	if ver, ok := versions[strings.ToUpper(v)]; ok {
		return ver, nil
	}
	return 0, errors.Errorf("unknown output version %q", v)
}

func usage(reg *registry) {
	fmt.Fprintf(os.Stderr, "Usage: xsc [options] <file> [<file>...]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	for _, c := range reg.commands {
		fmt.Fprintf(os.Stderr, "  %-28s %s\n", strings.Join(c.names, ", "), c.help)
	}
}
