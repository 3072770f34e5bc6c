// Package sema implements the semantic analyzer: symbol tables, name
// binding, type denoter computation, overload resolution, entry-point
// processing and target legality checks.
package sema

import (
	"fmt"

	"github.com/gogpu/xshade/ast"
)

// ScopeKind marks what construct opened a scope.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeFunction
	ScopeStruct
	ScopeBlock
	ScopeForInit
)

// OnOverride decides whether re-declaring a name in the same scope is
// accepted. It receives the previous and the new binding; a non-nil
// error rejects the registration.
type OnOverride func(prev, next ast.Decl) error

type scope struct {
	kind    ScopeKind
	symbols map[string][]ast.Decl
}

// SymbolTable is an ordered stack of scopes; inner scopes shadow outer
// ones.
type SymbolTable struct {
	scopes []*scope
}

// NewSymbolTable creates a table with the global scope open.
func NewSymbolTable() *SymbolTable {
	t := &SymbolTable{}
	t.Open(ScopeGlobal)
	return t
}

// Open pushes a new scope of the given kind.
func (t *SymbolTable) Open(kind ScopeKind) {
	t.scopes = append(t.scopes, &scope{
		kind:    kind,
		symbols: make(map[string][]ast.Decl),
	})
}

// Close pops the innermost scope.
func (t *SymbolTable) Close() {
	if len(t.scopes) > 1 {
		t.scopes = t.scopes[:len(t.scopes)-1]
	}
}

// Register binds name to decl in the current scope. When the name is
// already bound there, onOverride (or the default policy: only function
// overloads may share a name) decides.
func (t *SymbolTable) Register(name string, decl ast.Decl, onOverride OnOverride) error {
	if name == "" {
		return nil
	}
	cur := t.scopes[len(t.scopes)-1]
	if prev, ok := cur.symbols[name]; ok && len(prev) > 0 {
		if onOverride == nil {
			onOverride = defaultOverride
		}
		if err := onOverride(prev[len(prev)-1], decl); err != nil {
			return err
		}
	}
	cur.symbols[name] = append(cur.symbols[name], decl)
	return nil
}

func defaultOverride(prev, next ast.Decl) error {
	_, prevFn := prev.(*ast.FunctionDecl)
	_, nextFn := next.(*ast.FunctionDecl)
	if prevFn && nextFn {
		return nil
	}
	return fmt.Errorf("identifier %q already declared in this scope", next.DeclName())
}

// Find returns the innermost binding of name and the scope depth it
// was found at (0 = global). The second result is -1 when unbound.
func (t *SymbolTable) Find(name string) (ast.Decl, int) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if ds, ok := t.scopes[i].symbols[name]; ok && len(ds) > 0 {
			return ds[len(ds)-1], i
		}
	}
	return nil, -1
}

// FindInCurrent returns the binding of name in the current scope only.
func (t *SymbolTable) FindInCurrent(name string) ast.Decl {
	cur := t.scopes[len(t.scopes)-1]
	if ds, ok := cur.symbols[name]; ok && len(ds) > 0 {
		return ds[len(ds)-1]
	}
	return nil
}

// FindAll returns every binding of name in the innermost scope that
// contains it — the overload set for functions.
func (t *SymbolTable) FindAll(name string) []ast.Decl {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if ds, ok := t.scopes[i].symbols[name]; ok && len(ds) > 0 {
			return ds
		}
	}
	return nil
}

// Depth returns the number of open scopes.
func (t *SymbolTable) Depth() int {
	return len(t.scopes)
}

// CurrentKind returns the kind of the innermost scope.
func (t *SymbolTable) CurrentKind() ScopeKind {
	return t.scopes[len(t.scopes)-1].kind
}
