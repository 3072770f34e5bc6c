package sema

import "github.com/gogpu/xshade/ast"

// typingRule determines an intrinsic's result type from its arguments.
type typingRule int

const (
	typeSameAsArg0 typingRule = iota
	typeScalarOfArg0
	typeBoolOfArg0
	typeFloat3
	typeFloat4
	typeVoid
	typeSpecial // handled in code: mul, transpose, ...
)

type intrinsic struct {
	minArgs int
	maxArgs int
	rule    typingRule
}

// intrinsics is the HLSL intrinsic function table.
var intrinsics = map[string]intrinsic{
	"abs":         {1, 1, typeSameAsArg0},
	"acos":        {1, 1, typeSameAsArg0},
	"all":         {1, 1, typeBoolOfArg0},
	"any":         {1, 1, typeBoolOfArg0},
	"asin":        {1, 1, typeSameAsArg0},
	"atan":        {1, 1, typeSameAsArg0},
	"atan2":       {2, 2, typeSameAsArg0},
	"ceil":        {1, 1, typeSameAsArg0},
	"clamp":       {3, 3, typeSameAsArg0},
	"clip":        {1, 1, typeVoid},
	"cos":         {1, 1, typeSameAsArg0},
	"cosh":        {1, 1, typeSameAsArg0},
	"cross":       {2, 2, typeFloat3},
	"ddx":         {1, 1, typeSameAsArg0},
	"ddy":         {1, 1, typeSameAsArg0},
	"degrees":     {1, 1, typeSameAsArg0},
	"determinant": {1, 1, typeScalarOfArg0},
	"distance":    {2, 2, typeScalarOfArg0},
	"dot":         {2, 2, typeScalarOfArg0},
	"exp":         {1, 1, typeSameAsArg0},
	"exp2":        {1, 1, typeSameAsArg0},
	"faceforward": {3, 3, typeSameAsArg0},
	"floor":       {1, 1, typeSameAsArg0},
	"fmod":        {2, 2, typeSameAsArg0},
	"frac":        {1, 1, typeSameAsArg0},
	"isinf":       {1, 1, typeBoolOfArg0},
	"isnan":       {1, 1, typeBoolOfArg0},
	"ldexp":       {2, 2, typeSameAsArg0},
	"length":      {1, 1, typeScalarOfArg0},
	"lerp":        {3, 3, typeSameAsArg0},
	"log":         {1, 1, typeSameAsArg0},
	"log10":       {1, 1, typeSameAsArg0},
	"log2":        {1, 1, typeSameAsArg0},
	"mad":         {3, 3, typeSameAsArg0},
	"max":         {2, 2, typeSameAsArg0},
	"min":         {2, 2, typeSameAsArg0},
	"mul":         {2, 2, typeSpecial},
	"normalize":   {1, 1, typeSameAsArg0},
	"pow":         {2, 2, typeSameAsArg0},
	"radians":     {1, 1, typeSameAsArg0},
	"rcp":         {1, 1, typeSameAsArg0},
	"reflect":     {2, 2, typeSameAsArg0},
	"refract":     {3, 3, typeSameAsArg0},
	"round":       {1, 1, typeSameAsArg0},
	"rsqrt":       {1, 1, typeSameAsArg0},
	"saturate":    {1, 1, typeSameAsArg0},
	"sign":        {1, 1, typeSameAsArg0},
	"sin":         {1, 1, typeSameAsArg0},
	"sincos":      {3, 3, typeVoid},
	"sinh":        {1, 1, typeSameAsArg0},
	"smoothstep":  {3, 3, typeSameAsArg0},
	"sqrt":        {1, 1, typeSameAsArg0},
	"step":        {2, 2, typeSameAsArg0},
	"tan":         {1, 1, typeSameAsArg0},
	"tanh":        {1, 1, typeSameAsArg0},
	"transpose":   {1, 1, typeSpecial},
	"trunc":       {1, 1, typeSameAsArg0},

	// legacy sampling
	"tex1D":   {2, 2, typeFloat4},
	"tex2D":   {2, 2, typeFloat4},
	"tex3D":   {2, 2, typeFloat4},
	"texCUBE": {2, 2, typeFloat4},
}

// bufferMethods are the method intrinsics on texture and buffer
// objects. The result of sampling methods is the object's generic sub
// type (float4 when omitted).
var bufferMethods = map[string]bool{
	"Sample":        true,
	"SampleBias":    true,
	"SampleCmp":     true,
	"SampleGrad":    true,
	"SampleLevel":   true,
	"Load":          true,
	"Gather":        true,
	"GetDimensions": true,
	"Append":        true,
	"Consume":       true,
}

// IsIntrinsic reports whether name is a known intrinsic function.
func IsIntrinsic(name string) bool {
	_, ok := intrinsics[name]
	return ok
}

func float4Den() ast.TypeDenoter {
	return ast.Vector(ast.ScalarFloat, 4)
}
