package sema

import (
	"fmt"
	"testing"

	"github.com/gogpu/xshade/ast"
)

func varDecl(name string) *ast.VarDecl {
	return &ast.VarDecl{Name: name}
}

func fnDecl(name string) *ast.FunctionDecl {
	return &ast.FunctionDecl{Name: name}
}

func TestScopeShadowing(t *testing.T) {
	tab := NewSymbolTable()
	outer := varDecl("x")
	if err := tab.Register("x", outer, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	tab.Open(ScopeBlock)
	inner := varDecl("x")
	if err := tab.Register("x", inner, nil); err != nil {
		t.Fatalf("register inner: %v", err)
	}

	d, depth := tab.Find("x")
	if d != inner || depth != 1 {
		t.Errorf("Find = %v at depth %d, want inner at 1", d, depth)
	}

	tab.Close()
	d, depth = tab.Find("x")
	if d != outer || depth != 0 {
		t.Errorf("after close Find = %v at depth %d, want outer at 0", d, depth)
	}
}

func TestFindInCurrentScopeOnly(t *testing.T) {
	tab := NewSymbolTable()
	tab.Register("x", varDecl("x"), nil)
	tab.Open(ScopeFunction)

	if tab.FindInCurrent("x") != nil {
		t.Error("FindInCurrent leaked into outer scope")
	}
	if d, _ := tab.Find("x"); d == nil {
		t.Error("Find should see outer scope")
	}
}

func TestDefaultOverridePolicy(t *testing.T) {
	tab := NewSymbolTable()
	if err := tab.Register("v", varDecl("v"), nil); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := tab.Register("v", varDecl("v"), nil); err == nil {
		t.Error("duplicate variable not rejected")
	}

	// function overloads may share a name
	if err := tab.Register("f", fnDecl("f"), nil); err != nil {
		t.Fatalf("register f: %v", err)
	}
	if err := tab.Register("f", fnDecl("f"), nil); err != nil {
		t.Errorf("function overload rejected: %v", err)
	}
}

func TestOnOverrideCallback(t *testing.T) {
	tab := NewSymbolTable()
	tab.Register("x", varDecl("x"), nil)

	called := false
	err := tab.Register("x", varDecl("x"), func(prev, next ast.Decl) error {
		called = true
		return fmt.Errorf("rejected")
	})
	if !called {
		t.Fatal("override callback not invoked")
	}
	if err == nil {
		t.Fatal("override rejection ignored")
	}

	// accepting override
	if err := tab.Register("x", varDecl("x"), func(prev, next ast.Decl) error { return nil }); err != nil {
		t.Errorf("accepting override failed: %v", err)
	}
}

func TestFindAllOverloadSet(t *testing.T) {
	tab := NewSymbolTable()
	tab.Register("f", fnDecl("f"), nil)
	tab.Register("f", fnDecl("f"), nil)
	tab.Register("f", fnDecl("f"), nil)

	if got := len(tab.FindAll("f")); got != 3 {
		t.Errorf("overload set size = %d, want 3", got)
	}

	// inner scope with same name hides the outer set
	tab.Open(ScopeFunction)
	tab.Register("f", varDecl("f"), nil)
	if got := len(tab.FindAll("f")); got != 1 {
		t.Errorf("inner set size = %d, want 1", got)
	}
}

func TestScopeKinds(t *testing.T) {
	tab := NewSymbolTable()
	if tab.CurrentKind() != ScopeGlobal {
		t.Error("base scope is not global")
	}
	tab.Open(ScopeForInit)
	if tab.CurrentKind() != ScopeForInit {
		t.Error("for-init scope kind lost")
	}
	tab.Close()
	// the global scope cannot be closed
	tab.Close()
	if tab.Depth() != 1 {
		t.Errorf("depth = %d, want 1", tab.Depth())
	}
}
