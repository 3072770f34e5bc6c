// Package reflection summarizes the bindings, textures, constant
// buffers, samplers and entry-point layout of a compiled shader.
package reflection

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gogpu/xshade/ast"
)

// Binding is one named resource binding. Slot is -1 when the source
// carries no register decorator and auto-assignment is off.
type Binding struct {
	Name string
	Slot int
}

// ConstantBuffer describes a cbuffer/tbuffer binding and its members.
type ConstantBuffer struct {
	Binding
	Members []string
}

// Data is the reflection summary of one compilation.
type Data struct {
	// Macros holds every macro identifier the preprocessor ever
	// defined.
	Macros []string

	Textures        []Binding
	ConstantBuffers []ConstantBuffer
	Samplers        []Binding

	// Targets lists fragment output bindings.
	Targets []Binding

	// NumThreads is the compute-stage work-group size.
	NumThreads [3]int

	TessControl    ast.TessControlLayout
	TessEvaluation ast.TessEvaluationLayout
	Geometry       ast.GeometryLayout
	Fragment       ast.FragmentLayout
}

// Options configures the extraction.
type Options struct {
	// AutoBinding assigns sequential slots to resources that carry no
	// explicit register decorator.
	AutoBinding bool
}

// Extract walks the reachable declarations of a decorated program and
// produces the reflection summary.
func Extract(prog *ast.Program, macros []string, opts Options) *Data {
	data := &Data{
		Macros:         macros,
		NumThreads:     prog.Compute.NumThreads,
		TessControl:    prog.TessControl,
		TessEvaluation: prog.TessEvaluation,
		Geometry:       prog.Geometry,
		Fragment:       prog.Fragment,
	}

	nextTex, nextBuf, nextSamp := 0, 0, 0
	slotOf := func(reg *ast.Register, next *int) int {
		if reg != nil {
			if reg.Slot >= *next {
				*next = reg.Slot + 1
			}
			return reg.Slot
		}
		if !opts.AutoBinding {
			return -1
		}
		slot := *next
		*next++
		return slot
	}

	for _, d := range prog.Decls {
		if !d.DeclFlags().Has(ast.FlagReachable) {
			continue
		}
		switch x := d.(type) {
		case *ast.BufferDecl:
			data.Textures = append(data.Textures, Binding{
				Name: x.Name,
				Slot: slotOf(x.Register, &nextTex),
			})

		case *ast.SamplerDecl:
			data.Samplers = append(data.Samplers, Binding{
				Name: x.Name,
				Slot: slotOf(x.Register, &nextSamp),
			})

		case *ast.UniformBufferDecl:
			cb := ConstantBuffer{
				Binding: Binding{Name: x.Name, Slot: slotOf(x.Register, &nextBuf)},
			}
			for _, m := range x.Members {
				for _, v := range m.Vars {
					cb.Members = append(cb.Members, v.Name)
				}
			}
			data.ConstantBuffers = append(data.ConstantBuffers, cb)
		}
	}

	// fragment target bindings from the flattened outputs
	if prog.Target == ast.TargetFragment {
		for _, v := range prog.Outputs {
			base, index := v.Semantic.Base()
			if strings.EqualFold(base, "SV_Target") {
				data.Targets = append(data.Targets, Binding{Name: v.Name, Slot: index})
			}
		}
		sort.Slice(data.Targets, func(i, j int) bool {
			return data.Targets[i].Slot < data.Targets[j].Slot
		})
	}

	return data
}

// Print writes a human-readable summary to w.
func (d *Data) Print(w io.Writer) {
	section := func(title string) {
		fmt.Fprintf(w, "%s:\n", title)
	}
	bindings := func(bs []Binding) {
		if len(bs) == 0 {
			fmt.Fprintln(w, "  < none >")
			return
		}
		for _, b := range bs {
			if b.Slot >= 0 {
				fmt.Fprintf(w, "  %s (slot %d)\n", b.Name, b.Slot)
			} else {
				fmt.Fprintf(w, "  %s\n", b.Name)
			}
		}
	}

	section("Macros")
	if len(d.Macros) == 0 {
		fmt.Fprintln(w, "  < none >")
	}
	for _, m := range d.Macros {
		fmt.Fprintf(w, "  %s\n", m)
	}

	section("Textures")
	bindings(d.Textures)

	section("Constant Buffers")
	if len(d.ConstantBuffers) == 0 {
		fmt.Fprintln(w, "  < none >")
	}
	for _, cb := range d.ConstantBuffers {
		if cb.Slot >= 0 {
			fmt.Fprintf(w, "  %s (slot %d): %s\n", cb.Name, cb.Slot, strings.Join(cb.Members, ", "))
		} else {
			fmt.Fprintf(w, "  %s: %s\n", cb.Name, strings.Join(cb.Members, ", "))
		}
	}

	section("Samplers")
	bindings(d.Samplers)

	section("Fragment Targets")
	bindings(d.Targets)

	if d.NumThreads != [3]int{} {
		fmt.Fprintf(w, "NumThreads: %d, %d, %d\n", d.NumThreads[0], d.NumThreads[1], d.NumThreads[2])
	}
}
