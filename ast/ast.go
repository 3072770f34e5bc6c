// Package ast defines the abstract syntax tree of the compiler.
//
// The Program owns all nodes; cross-references between nodes (such as a
// call expression pointing at its resolved function declaration) are
// plain non-owning pointers whose targets live as long as the Program.
// After parsing every identifier use-site carries only its textual name;
// the semantic analyzer binds the back-references and computes type
// denoters.
package ast

import (
	"strings"

	"github.com/gogpu/xshade/source"
)

// Flags is a small bitset carried by every AST node.
type Flags uint32

const (
	// FlagReachable marks declarations transitively used from the
	// entry point. Unmarked declarations are skipped during emission.
	FlagReachable Flags = 1 << iota

	// FlagGenerated marks nodes synthesized by the compiler rather
	// than parsed from source.
	FlagGenerated

	// FlagEntryPoint marks the resolved entry-point function.
	FlagEntryPoint

	// FlagSecondaryEntryPoint marks the secondary entry point.
	FlagSecondaryEntryPoint

	// FlagHasNonReturnPath marks functions with at least one control
	// path that does not end in a return statement.
	FlagHasNonReturnPath

	// FlagImmutable marks declarations that must not be written to.
	FlagImmutable

	// FlagSystemValue marks variables bound to an SV_* semantic.
	FlagSystemValue

	// FlagShaderInput and FlagShaderOutput mark flattened entry-point
	// IO variables.
	FlagShaderInput
	FlagShaderOutput

	// FlagNominalStruct marks structs used for purposes other than
	// entry-point IO; only those survive as nominal types in the
	// output.
	FlagNominalStruct
)

// Set sets the given bits.
func (f *Flags) Set(bits Flags) { *f |= bits }

// Clear clears the given bits.
func (f *Flags) Clear(bits Flags) { *f &^= bits }

// Has reports whether all given bits are set.
func (f Flags) Has(bits Flags) bool { return f&bits == bits }

// Node is the base interface of all AST nodes.
type Node interface {
	Pos() source.Span
}

// Decl is a declaration node.
type Decl interface {
	Node
	declNode()
	// DeclName returns the declared identifier ("" for anonymous).
	DeclName() string
	// DeclFlags gives access to the node's flag set.
	DeclFlags() *Flags
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node. Every expression caches its computed
// type denoter after analysis.
type Expr interface {
	Node
	exprNode()
	// TypeDen returns the computed type denoter (nil before analysis).
	TypeDen() TypeDenoter
}

// Semantic is an HLSL semantic identifier such as SV_Target or
// TEXCOORD0.
type Semantic string

// IsSystemValue reports whether the semantic is a system value (SV_*).
func (s Semantic) IsSystemValue() bool {
	return len(s) > 3 && strings.EqualFold(string(s[:3]), "SV_")
}

// Base returns the semantic name without a trailing index, and the
// index itself ("TEXCOORD3" -> "TEXCOORD", 3).
func (s Semantic) Base() (string, int) {
	name := string(s)
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	index := 0
	for _, c := range name[i:] {
		index = index*10 + int(c-'0')
	}
	return name[:i], index
}

// Register is an explicit binding decorator: register(t0), register(b2).
type Register struct {
	Span source.Span
	Class rune // b, t, s, u, c
	Slot  int
}

// Attribute is a bracketed declaration attribute such as
// [numthreads(8, 8, 1)] or [maxvertexcount(3)].
type Attribute struct {
	Span source.Span
	Name string
	Args []Expr
}

// ArrayDimension is one dimension of an array declarator. Size is
// resolved by the analyzer (-1 when dynamic or not yet evaluated).
type ArrayDimension struct {
	Span source.Span
	Expr Expr
	Size int
}

// TypeSpecifier is the full type part of a declaration, including
// storage classes and modifiers.
type TypeSpecifier struct {
	Span source.Span

	StorageClasses  []string // extern, precise, static, groupshared, ...
	InterpModifiers []string // linear, centroid, nointerpolation, ...
	TypeModifiers   []string // const, row_major, column_major, ...
	InputModifier   string   // in, out, inout, uniform ("" if absent)

	// Name holds the spelling of a named (struct or alias) type; it is
	// resolved by the analyzer. Built-in types have Den set directly by
	// the parser.
	Name string

	// StructDecl holds an inline struct declaration used as a type.
	StructDecl *StructDecl

	// Den is the resolved type denoter.
	Den TypeDenoter
}

// Pos implements Node.
func (t *TypeSpecifier) Pos() source.Span { return t.Span }

// IsConst reports whether the specifier carries the const modifier.
func (t *TypeSpecifier) IsConst() bool {
	for _, m := range t.TypeModifiers {
		if m == "const" {
			return true
		}
	}
	return false
}

// HasStorageClass reports whether the given storage class is present.
func (t *TypeSpecifier) HasStorageClass(name string) bool {
	for _, s := range t.StorageClasses {
		if s == name {
			return true
		}
	}
	return false
}

/* ----- Declarations ----- */

// FunctionDecl is a function declaration or definition. Overloads share
// a name; the analyzer resolves call sites to one declaration.
type FunctionDecl struct {
	Span  source.Span
	Flags Flags

	// Comment is a preserved source comment attached to the
	// declaration (empty unless comment preservation is on).
	Comment string

	Name       string
	ReturnType *TypeSpecifier
	Semantic   Semantic
	Params     []*VarDecl
	Body       *CodeBlock // nil for prototypes
	Attribs    []*Attribute

	// Definition points a prototype at its later definition.
	Definition *FunctionDecl
}

func (d *FunctionDecl) Pos() source.Span  { return d.Span }
func (d *FunctionDecl) declNode()         {}
func (d *FunctionDecl) DeclName() string  { return d.Name }
func (d *FunctionDecl) DeclFlags() *Flags { return &d.Flags }

// IsPrototype reports whether this is a bodyless forward declaration.
func (d *FunctionDecl) IsPrototype() bool { return d.Body == nil }

// VarDecl is one declared variable (or function parameter).
type VarDecl struct {
	Span  source.Span
	Flags Flags

	Name       string
	ArrayDims  []*ArrayDimension
	Semantic   Semantic
	PackOffset string
	Register   *Register
	Init       Expr

	// DeclStmt points back at the owning declaration statement
	// (nil for parameters).
	DeclStmt *VarDeclStmt

	// Param holds the type specifier for parameters, which have no
	// owning VarDeclStmt.
	Param *TypeSpecifier
}

func (d *VarDecl) Pos() source.Span  { return d.Span }
func (d *VarDecl) declNode()         {}
func (d *VarDecl) DeclName() string  { return d.Name }
func (d *VarDecl) DeclFlags() *Flags { return &d.Flags }

// TypeSpec returns the variable's type specifier, from either the
// owning declaration statement or the parameter itself.
func (d *VarDecl) TypeSpec() *TypeSpecifier {
	if d.Param != nil {
		return d.Param
	}
	if d.DeclStmt != nil {
		return d.DeclStmt.Type
	}
	return nil
}

// Den returns the variable's resolved type denoter, wrapped in an
// ArrayType when the declarator has array dimensions.
func (d *VarDecl) Den() TypeDenoter {
	ts := d.TypeSpec()
	if ts == nil || ts.Den == nil {
		return nil
	}
	if len(d.ArrayDims) == 0 {
		return ts.Den
	}
	dims := make([]int, len(d.ArrayDims))
	for i, ad := range d.ArrayDims {
		dims[i] = ad.Size
	}
	return &ArrayType{Base: ts.Den, Dims: dims}
}

// VarDeclStmt declares one or more variables of a common type. It
// appears both as a global declaration and as a local statement.
type VarDeclStmt struct {
	Span  source.Span
	Flags Flags

	// Comment is a preserved source comment attached to the
	// declaration (empty unless comment preservation is on).
	Comment string

	Type *TypeSpecifier
	Vars []*VarDecl
}

func (d *VarDeclStmt) Pos() source.Span  { return d.Span }
func (d *VarDeclStmt) declNode()         {}
func (d *VarDeclStmt) stmtNode()         {}
func (d *VarDeclStmt) DeclName() string  { return "" }
func (d *VarDeclStmt) DeclFlags() *Flags { return &d.Flags }

// StructDecl is a struct declaration. It can appear at global scope,
// as a local statement, or inline inside a type specifier.
type StructDecl struct {
	Span  source.Span
	Flags Flags

	// Comment is a preserved source comment attached to the
	// declaration (empty unless comment preservation is on).
	Comment string

	Name    string // "" for anonymous structs
	Members []*VarDeclStmt

	den *StructType
}

func (d *StructDecl) Pos() source.Span  { return d.Span }
func (d *StructDecl) declNode()         {}
func (d *StructDecl) stmtNode()         {}
func (d *StructDecl) DeclName() string  { return d.Name }
func (d *StructDecl) DeclFlags() *Flags { return &d.Flags }

// Den returns the shared struct type denoter for this declaration.
func (d *StructDecl) Den() *StructType {
	if d.den == nil {
		d.den = &StructType{Ref: d}
	}
	return d.den
}

// FindMember returns the member variable with the given name.
func (d *StructDecl) FindMember(name string) *VarDecl {
	for _, m := range d.Members {
		for _, v := range m.Vars {
			if v.Name == name {
				return v
			}
		}
	}
	return nil
}

// AliasDecl is a typedef declaration.
type AliasDecl struct {
	Span  source.Span
	Flags Flags

	Name string
	Type *TypeSpecifier
}

func (d *AliasDecl) Pos() source.Span  { return d.Span }
func (d *AliasDecl) declNode()         {}
func (d *AliasDecl) stmtNode()         {}
func (d *AliasDecl) DeclName() string  { return d.Name }
func (d *AliasDecl) DeclFlags() *Flags { return &d.Flags }

// BufferDecl declares a texture or buffer object, e.g.
// "Texture2D<float4> tex : register(t0);".
type BufferDecl struct {
	Span  source.Span
	Flags Flags

	// Comment is a preserved source comment attached to the
	// declaration (empty unless comment preservation is on).
	Comment string

	Name      string
	Type      *BufferType
	ArrayDims []*ArrayDimension
	Register  *Register
}

func (d *BufferDecl) Pos() source.Span  { return d.Span }
func (d *BufferDecl) declNode()         {}
func (d *BufferDecl) DeclName() string  { return d.Name }
func (d *BufferDecl) DeclFlags() *Flags { return &d.Flags }

// SamplerDecl declares a sampler state object. StateValues carries the
// body of a legacy sampler_state block verbatim.
type SamplerDecl struct {
	Span  source.Span
	Flags Flags

	// Comment is a preserved source comment attached to the
	// declaration (empty unless comment preservation is on).
	Comment string

	Name        string
	Type        *SamplerType
	Register    *Register
	StateValues []string
}

func (d *SamplerDecl) Pos() source.Span  { return d.Span }
func (d *SamplerDecl) declNode()         {}
func (d *SamplerDecl) DeclName() string  { return d.Name }
func (d *SamplerDecl) DeclFlags() *Flags { return &d.Flags }

// UniformBufferDecl is a cbuffer/tbuffer declaration.
type UniformBufferDecl struct {
	Span  source.Span
	Flags Flags

	// Comment is a preserved source comment attached to the
	// declaration (empty unless comment preservation is on).
	Comment string

	Keyword  string // cbuffer or tbuffer
	Name     string
	Register *Register
	Members  []*VarDeclStmt
}

func (d *UniformBufferDecl) Pos() source.Span  { return d.Span }
func (d *UniformBufferDecl) declNode()         {}
func (d *UniformBufferDecl) DeclName() string  { return d.Name }
func (d *UniformBufferDecl) DeclFlags() *Flags { return &d.Flags }

// FindMember returns the member variable with the given name.
func (d *UniformBufferDecl) FindMember(name string) *VarDecl {
	for _, m := range d.Members {
		for _, v := range m.Vars {
			if v.Name == name {
				return v
			}
		}
	}
	return nil
}

/* ----- Statements ----- */

// CodeBlock is a braced statement list.
type CodeBlock struct {
	Span  source.Span
	Stmts []Stmt
}

func (s *CodeBlock) Pos() source.Span { return s.Span }
func (s *CodeBlock) stmtNode()        {}

// ForStmt is a for loop. Init is either a VarDeclStmt or an ExprStmt.
type ForStmt struct {
	Span source.Span
	Init Stmt
	Cond Expr
	Iter Expr
	Body Stmt
}

func (s *ForStmt) Pos() source.Span { return s.Span }
func (s *ForStmt) stmtNode()        {}

// WhileStmt is a while loop.
type WhileStmt struct {
	Span source.Span
	Cond Expr
	Body Stmt
}

func (s *WhileStmt) Pos() source.Span { return s.Span }
func (s *WhileStmt) stmtNode()        {}

// DoWhileStmt is a do-while loop.
type DoWhileStmt struct {
	Span source.Span
	Body Stmt
	Cond Expr
}

func (s *DoWhileStmt) Pos() source.Span { return s.Span }
func (s *DoWhileStmt) stmtNode()        {}

// IfStmt is an if statement; Else is nil, a *CodeBlock, or another
// *IfStmt.
type IfStmt struct {
	Span source.Span
	Cond Expr
	Then Stmt
	Else Stmt
}

func (s *IfStmt) Pos() source.Span { return s.Span }
func (s *IfStmt) stmtNode()        {}

// SwitchCase is one case (or default) clause of a switch.
type SwitchCase struct {
	Span  source.Span
	Exprs []Expr // nil for default
	Stmts []Stmt
}

// IsDefault reports whether this is the default clause.
func (c *SwitchCase) IsDefault() bool { return len(c.Exprs) == 0 }

// SwitchStmt is a switch statement.
type SwitchStmt struct {
	Span     source.Span
	Selector Expr
	Cases    []*SwitchCase
}

func (s *SwitchStmt) Pos() source.Span { return s.Span }
func (s *SwitchStmt) stmtNode()        {}

// ReturnStmt is a return statement (Expr may be nil).
type ReturnStmt struct {
	Span source.Span
	Expr Expr
}

func (s *ReturnStmt) Pos() source.Span { return s.Span }
func (s *ReturnStmt) stmtNode()        {}

// CtrlTransferStmt is break, continue or discard.
type CtrlTransferStmt struct {
	Span     source.Span
	Transfer string
}

func (s *CtrlTransferStmt) Pos() source.Span { return s.Span }
func (s *CtrlTransferStmt) stmtNode()        {}

// ExprStmt is an expression used as a statement.
type ExprStmt struct {
	Span source.Span
	Expr Expr
}

func (s *ExprStmt) Pos() source.Span { return s.Span }
func (s *ExprStmt) stmtNode()        {}

// NullStmt is a lone semicolon.
type NullStmt struct {
	Span source.Span
}

func (s *NullStmt) Pos() source.Span { return s.Span }
func (s *NullStmt) stmtNode()        {}

/* ----- Expressions ----- */

// LiteralKind classifies literal expressions.
type LiteralKind int

const (
	LiteralBool LiteralKind = iota
	LiteralInt
	LiteralFloat
	LiteralString
	LiteralChar
)

// LiteralExpr is a literal. Value keeps the source spelling.
type LiteralExpr struct {
	Span source.Span
	Kind LiteralKind
	Value string

	Den TypeDenoter
}

func (e *LiteralExpr) Pos() source.Span     { return e.Span }
func (e *LiteralExpr) exprNode()            {}
func (e *LiteralExpr) TypeDen() TypeDenoter { return e.Den }

// SequenceExpr is a comma-separated expression sequence.
type SequenceExpr struct {
	Span  source.Span
	Exprs []Expr

	Den TypeDenoter
}

func (e *SequenceExpr) Pos() source.Span     { return e.Span }
func (e *SequenceExpr) exprNode()            {}
func (e *SequenceExpr) TypeDen() TypeDenoter { return e.Den }

// BinaryExpr is a binary operation. Op keeps the HLSL spelling.
type BinaryExpr struct {
	Span  source.Span
	Left  Expr
	Op    string
	Right Expr

	Den TypeDenoter
}

func (e *BinaryExpr) Pos() source.Span     { return e.Span }
func (e *BinaryExpr) exprNode()            {}
func (e *BinaryExpr) TypeDen() TypeDenoter { return e.Den }

// UnaryExpr is a prefix unary operation.
type UnaryExpr struct {
	Span source.Span
	Op   string
	Expr Expr

	Den TypeDenoter
}

func (e *UnaryExpr) Pos() source.Span     { return e.Span }
func (e *UnaryExpr) exprNode()            {}
func (e *UnaryExpr) TypeDen() TypeDenoter { return e.Den }

// PostUnaryExpr is a postfix ++ or --.
type PostUnaryExpr struct {
	Span source.Span
	Expr Expr
	Op   string

	Den TypeDenoter
}

func (e *PostUnaryExpr) Pos() source.Span     { return e.Span }
func (e *PostUnaryExpr) exprNode()            {}
func (e *PostUnaryExpr) TypeDen() TypeDenoter { return e.Den }

// TernaryExpr is a conditional expression.
type TernaryExpr struct {
	Span source.Span
	Cond Expr
	Then Expr
	Else Expr

	Den TypeDenoter
}

func (e *TernaryExpr) Pos() source.Span     { return e.Span }
func (e *TernaryExpr) exprNode()            {}
func (e *TernaryExpr) TypeDen() TypeDenoter { return e.Den }

// CallExpr is a function, intrinsic, method or type-constructor call.
// Exactly one of FuncRef, Intrinsic and TypeCtor is set after analysis.
type CallExpr struct {
	Span   source.Span
	Prefix Expr // method-call receiver, e.g. tex in tex.Sample(...)
	Name   string
	Args   []Expr

	FuncRef   *FunctionDecl
	Intrinsic string
	TypeCtor  TypeDenoter

	Den TypeDenoter
}

func (e *CallExpr) Pos() source.Span     { return e.Span }
func (e *CallExpr) exprNode()            {}
func (e *CallExpr) TypeDen() TypeDenoter { return e.Den }

// BracketExpr is a parenthesized expression.
type BracketExpr struct {
	Span source.Span
	Expr Expr
}

func (e *BracketExpr) Pos() source.Span     { return e.Span }
func (e *BracketExpr) exprNode()            {}
func (e *BracketExpr) TypeDen() TypeDenoter {
	if e.Expr == nil {
		return nil
	}
	return e.Expr.TypeDen()
}

// ObjectExpr is a name access, optionally qualified by a prefix
// expression: "x", "a.b", "v.xyz".
type ObjectExpr struct {
	Span   source.Span
	Prefix Expr
	Name   string

	// SymbolRef is the bound declaration (nil for swizzles).
	SymbolRef Decl

	Den TypeDenoter
}

func (e *ObjectExpr) Pos() source.Span     { return e.Span }
func (e *ObjectExpr) exprNode()            {}
func (e *ObjectExpr) TypeDen() TypeDenoter { return e.Den }

// ArrayExpr is an array (or matrix) index access.
type ArrayExpr struct {
	Span    source.Span
	Prefix  Expr
	Indices []Expr

	Den TypeDenoter
}

func (e *ArrayExpr) Pos() source.Span     { return e.Span }
func (e *ArrayExpr) exprNode()            {}
func (e *ArrayExpr) TypeDen() TypeDenoter { return e.Den }

// CastExpr is an explicit type cast.
type CastExpr struct {
	Span source.Span
	Type *TypeSpecifier
	Expr Expr
}

func (e *CastExpr) Pos() source.Span { return e.Span }
func (e *CastExpr) exprNode()        {}
func (e *CastExpr) TypeDen() TypeDenoter {
	if e.Type == nil {
		return nil
	}
	return e.Type.Den
}

// AssignExpr is an assignment (possibly compound).
type AssignExpr struct {
	Span   source.Span
	LValue Expr
	Op     string // =, +=, -=, ...
	Value  Expr

	Den TypeDenoter
}

func (e *AssignExpr) Pos() source.Span     { return e.Span }
func (e *AssignExpr) exprNode()            {}
func (e *AssignExpr) TypeDen() TypeDenoter { return e.Den }

// InitializerExpr is a braced initializer list.
type InitializerExpr struct {
	Span  source.Span
	Exprs []Expr

	Den TypeDenoter
}

func (e *InitializerExpr) Pos() source.Span     { return e.Span }
func (e *InitializerExpr) exprNode()            {}
func (e *InitializerExpr) TypeDen() TypeDenoter { return e.Den }
