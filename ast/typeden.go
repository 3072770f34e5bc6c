package ast

import (
	"fmt"
	"strings"
)

// TypeDenoter is a structural representation of a type. Denoters are
// shared by pointer across many expressions and are immutable after
// analysis. Aliased denoters form a thin forward chain that must be
// followed with Aliased before structural inspection.
type TypeDenoter interface {
	typeDenoter()
	String() string
}

// ScalarKind enumerates the scalar base types.
type ScalarKind int

const (
	ScalarBool ScalarKind = iota
	ScalarInt
	ScalarUInt
	ScalarHalf
	ScalarFloat
	ScalarDouble
)

// String returns the HLSL spelling of the scalar kind.
func (k ScalarKind) String() string {
	switch k {
	case ScalarBool:
		return "bool"
	case ScalarInt:
		return "int"
	case ScalarUInt:
		return "uint"
	case ScalarHalf:
		return "half"
	case ScalarFloat:
		return "float"
	case ScalarDouble:
		return "double"
	}
	return "unknown"
}

// IsInteger reports whether the kind is an integer type.
func (k ScalarKind) IsInteger() bool {
	return k == ScalarInt || k == ScalarUInt
}

// IsReal reports whether the kind is a floating-point type.
func (k ScalarKind) IsReal() bool {
	return k == ScalarHalf || k == ScalarFloat || k == ScalarDouble
}

// VoidType denotes the void type.
type VoidType struct{}

func (*VoidType) typeDenoter()   {}
func (*VoidType) String() string { return "void" }

// BaseType denotes scalar, vector and matrix types.
//
// Scalars have Rows == 0 and Cols == 0. Vectors have Rows == 0 and
// Cols == size. Matrices have both Rows and Cols set.
type BaseType struct {
	Scalar ScalarKind
	Rows   int
	Cols   int
}

func (*BaseType) typeDenoter() {}

func (t *BaseType) String() string {
	switch {
	case t.IsMatrix():
		return fmt.Sprintf("%s%dx%d", t.Scalar, t.Rows, t.Cols)
	case t.IsVector():
		return fmt.Sprintf("%s%d", t.Scalar, t.Cols)
	default:
		return t.Scalar.String()
	}
}

// IsScalar reports whether the type is a scalar.
func (t *BaseType) IsScalar() bool { return t.Rows == 0 && t.Cols == 0 }

// IsVector reports whether the type is a vector.
func (t *BaseType) IsVector() bool { return t.Rows == 0 && t.Cols > 0 }

// IsMatrix reports whether the type is a matrix.
func (t *BaseType) IsMatrix() bool { return t.Rows > 0 }

// VectorSize returns the vector dimension (1 for scalars).
func (t *BaseType) VectorSize() int {
	if t.Cols == 0 {
		return 1
	}
	return t.Cols
}

// Scalar returns a scalar base type of the given kind.
func Scalar(kind ScalarKind) *BaseType {
	return &BaseType{Scalar: kind}
}

// Vector returns a vector base type.
func Vector(kind ScalarKind, size int) *BaseType {
	return &BaseType{Scalar: kind, Cols: size}
}

// Matrix returns a matrix base type.
func Matrix(kind ScalarKind, rows, cols int) *BaseType {
	return &BaseType{Scalar: kind, Rows: rows, Cols: cols}
}

// BufferType denotes texture and buffer object types. Generic is the
// sub type denoter of Texture2D<float4> and friends (nil defaults to
// float4).
type BufferType struct {
	Kind    string // the HLSL type name, e.g. "Texture2D"
	Generic TypeDenoter
}

func (*BufferType) typeDenoter() {}

func (t *BufferType) String() string {
	if t.Generic != nil {
		return fmt.Sprintf("%s<%s>", t.Kind, t.Generic)
	}
	return t.Kind
}

// IsTexture reports whether the buffer is a texture object.
func (t *BufferType) IsTexture() bool {
	return strings.Contains(t.Kind, "Texture") || t.Kind == "texture"
}

// IsRW reports whether the buffer is writable (RW* / Append / Consume).
func (t *BufferType) IsRW() bool {
	return strings.HasPrefix(t.Kind, "RW") ||
		strings.HasPrefix(t.Kind, "Append") ||
		strings.HasPrefix(t.Kind, "Consume")
}

// SamplerType denotes sampler state types.
type SamplerType struct {
	Name       string // the HLSL type name, e.g. "SamplerState"
	Comparison bool
}

func (*SamplerType) typeDenoter()     {}
func (t *SamplerType) String() string { return t.Name }

// StructType denotes a (named or anonymous) struct type. Ref is the
// non-owning back-reference to the declaration.
type StructType struct {
	Ref *StructDecl
}

func (*StructType) typeDenoter() {}

func (t *StructType) String() string {
	if t.Ref != nil && t.Ref.Name != "" {
		return t.Ref.Name
	}
	return "struct"
}

// ArrayType denotes an array type. A dimension of -1 is dynamic.
type ArrayType struct {
	Base TypeDenoter
	Dims []int
}

func (*ArrayType) typeDenoter() {}

func (t *ArrayType) String() string {
	var sb strings.Builder
	sb.WriteString(t.Base.String())
	for _, d := range t.Dims {
		if d < 0 {
			sb.WriteString("[]")
		} else {
			fmt.Fprintf(&sb, "[%d]", d)
		}
	}
	return sb.String()
}

// AliasType denotes a typedef reference. Ref is bound by the analyzer.
type AliasType struct {
	Name string
	Ref  *AliasDecl
}

func (*AliasType) typeDenoter()     {}
func (t *AliasType) String() string { return t.Name }

// Aliased follows alias chains and returns the underlying denoter.
// Structural inspection must always go through Aliased first.
func Aliased(t TypeDenoter) TypeDenoter {
	for {
		a, ok := t.(*AliasType)
		if !ok || a.Ref == nil || a.Ref.Type == nil || a.Ref.Type.Den == nil {
			return t
		}
		t = a.Ref.Type.Den
	}
}

// TypesEqual reports structural equality of two (aliased) denoters.
func TypesEqual(a, b TypeDenoter) bool {
	a, b = Aliased(a), Aliased(b)
	switch x := a.(type) {
	case *VoidType:
		_, ok := b.(*VoidType)
		return ok
	case *BaseType:
		y, ok := b.(*BaseType)
		return ok && *x == *y
	case *BufferType:
		y, ok := b.(*BufferType)
		if !ok || x.Kind != y.Kind {
			return false
		}
		if x.Generic == nil || y.Generic == nil {
			return x.Generic == y.Generic
		}
		return TypesEqual(x.Generic, y.Generic)
	case *SamplerType:
		y, ok := b.(*SamplerType)
		return ok && x.Name == y.Name
	case *StructType:
		y, ok := b.(*StructType)
		return ok && x.Ref == y.Ref
	case *ArrayType:
		y, ok := b.(*ArrayType)
		if !ok || len(x.Dims) != len(y.Dims) {
			return false
		}
		for i := range x.Dims {
			if x.Dims[i] != y.Dims[i] {
				return false
			}
		}
		return TypesEqual(x.Base, y.Base)
	case *AliasType:
		// unresolved alias: compare by name
		y, ok := b.(*AliasType)
		return ok && x.Name == y.Name
	}
	return false
}

// CastableTo reports whether a value of type from can be implicitly or
// explicitly converted to type to.
func CastableTo(from, to TypeDenoter) bool {
	from, to = Aliased(from), Aliased(to)
	if TypesEqual(from, to) {
		return true
	}
	f, okF := from.(*BaseType)
	t, okT := to.(*BaseType)
	if !okF || !okT {
		return false
	}
	switch {
	case f.IsScalar():
		// scalars convert to any base type (splat for vectors/matrices)
		return true
	case f.IsVector() && t.IsVector():
		// same size, or truncation to a smaller vector
		return t.Cols <= f.Cols
	case f.IsVector() && t.IsScalar():
		return true
	case f.IsMatrix() && t.IsMatrix():
		return t.Rows <= f.Rows && t.Cols <= f.Cols
	}
	return false
}
