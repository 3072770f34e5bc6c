// Package report defines the diagnostic model of the compiler.
//
// Every stage reports through a Log sink. A failed compilation returns
// false from the compile entry point and leaves all diagnostics in the
// log; errors never travel across the public API as panics.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/gogpu/xshade/source"
)

// Kind classifies a report.
type Kind int

const (
	Info Kind = iota
	Warning
	Error
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "unknown"
}

// Code identifies which stage (or failure class) produced a report.
type Code int

const (
	CodeNone Code = iota
	CodeArgument
	CodeLex
	CodePreprocess
	CodeSyntax
	CodeSemantic
	CodeTarget
	CodeInternal
)

// String returns a short tag for the code.
func (c Code) String() string {
	switch c {
	case CodeArgument:
		return "argument"
	case CodeLex:
		return "lexical"
	case CodePreprocess:
		return "preprocessor"
	case CodeSyntax:
		return "syntax"
	case CodeSemantic:
		return "semantic"
	case CodeTarget:
		return "target"
	case CodeInternal:
		return "internal"
	}
	return ""
}

// Report is a single diagnostic.
type Report struct {
	Kind    Kind
	Code    Code
	Message string
	Span    source.Span
	Context string // source line with caret, if available
	Hints   []string
}

// String formats the report as "kind (code): pos: message".
func (r Report) String() string {
	var sb strings.Builder
	sb.WriteString(r.Kind.String())
	if tag := r.Code.String(); tag != "" {
		fmt.Fprintf(&sb, " (%s)", tag)
	}
	sb.WriteString(": ")
	if r.Span.Start.IsValid() {
		sb.WriteString(r.Span.Start.String())
		sb.WriteString(": ")
	}
	sb.WriteString(r.Message)
	return sb.String()
}

// Log is the sink all stages report into.
type Log interface {
	Submit(r Report)
}

// StdLog writes formatted reports to an io.Writer.
type StdLog struct {
	Out io.Writer

	errors   int
	warnings int
}

// NewStdLog creates a StdLog writing to w.
func NewStdLog(w io.Writer) *StdLog {
	return &StdLog{Out: w}
}

// Submit implements Log.
func (l *StdLog) Submit(r Report) {
	switch r.Kind {
	case Error:
		l.errors++
	case Warning:
		l.warnings++
	}
	fmt.Fprintln(l.Out, r.String())
	if r.Context != "" {
		fmt.Fprintln(l.Out, r.Context)
	}
	for _, h := range r.Hints {
		fmt.Fprintf(l.Out, "  hint: %s\n", h)
	}
}

// Errors returns the number of error reports submitted.
func (l *StdLog) Errors() int { return l.errors }

// Warnings returns the number of warning reports submitted.
func (l *StdLog) Warnings() int { return l.warnings }

// Collector gathers reports in memory.
type Collector struct {
	Reports []Report
}

// Submit implements Log.
func (c *Collector) Submit(r Report) {
	c.Reports = append(c.Reports, r)
}

// HasErrors reports whether any error was collected.
func (c *Collector) HasErrors() bool {
	return c.Errors() > 0
}

// Errors returns the number of collected error reports.
func (c *Collector) Errors() int {
	n := 0
	for _, r := range c.Reports {
		if r.Kind == Error {
			n++
		}
	}
	return n
}

// ContextString renders the source line containing pos with a caret
// below the offending column:
//
//	  3| float4 main() {
//	   |        ^
func ContextString(src string, pos source.Position) string {
	if !pos.IsValid() {
		return ""
	}
	lines := strings.Split(src, "\n")
	if pos.Line < 1 || pos.Line > len(lines) {
		return ""
	}
	line := strings.TrimRight(lines[pos.Line-1], "\r")
	col := pos.Column
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%3d| %s\n", pos.Line, line)
	fmt.Fprintf(&sb, "   | %s^", strings.Repeat(" ", col-1))
	return sb.String()
}

// Reportf builds a report with a formatted message.
func Reportf(kind Kind, code Code, span source.Span, format string, args ...any) Report {
	return Report{
		Kind:    kind,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	}
}
