// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"strings"

	"github.com/gogpu/xshade/ast"
)

// TypeName maps a type denoter to its GLSL spelling.
func TypeName(den ast.TypeDenoter) string {
	switch t := ast.Aliased(den).(type) {
	case *ast.VoidType:
		return "void"
	case *ast.BaseType:
		return baseTypeName(t)
	case *ast.StructType:
		if t.Ref != nil {
			return t.Ref.Name
		}
		return "struct"
	case *ast.BufferType:
		return textureTypeName(t)
	case *ast.SamplerType:
		return "sampler"
	case *ast.ArrayType:
		return TypeName(t.Base)
	}
	return "void"
}

func baseTypeName(t *ast.BaseType) string {
	if t.IsScalar() {
		switch t.Scalar {
		case ast.ScalarBool:
			return "bool"
		case ast.ScalarInt:
			return "int"
		case ast.ScalarUInt:
			return "uint"
		case ast.ScalarHalf, ast.ScalarFloat:
			return "float"
		case ast.ScalarDouble:
			return "double"
		}
	}
	if t.IsVector() {
		prefix := ""
		switch t.Scalar {
		case ast.ScalarBool:
			prefix = "b"
		case ast.ScalarInt:
			prefix = "i"
		case ast.ScalarUInt:
			prefix = "u"
		case ast.ScalarDouble:
			prefix = "d"
		}
		return prefix + "vec" + digit(t.Cols)
	}
	// HLSL floatRxC maps onto matR (square) or matRxC
	if t.Rows == t.Cols {
		return "mat" + digit(t.Rows)
	}
	return "mat" + digit(t.Rows) + "x" + digit(t.Cols)
}

func digit(n int) string {
	return string(rune('0' + n))
}

// textureTypeName maps HLSL texture/buffer object types to the GLSL
// combined-sampler (or image) type.
func textureTypeName(t *ast.BufferType) string {
	prefix := ""
	if g, ok := ast.Aliased(t.Generic).(*ast.BaseType); ok {
		switch g.Scalar {
		case ast.ScalarInt:
			prefix = "i"
		case ast.ScalarUInt:
			prefix = "u"
		}
	}
	switch t.Kind {
	case "Texture1D", "texture":
		return prefix + "sampler1D"
	case "Texture1DArray":
		return prefix + "sampler1DArray"
	case "Texture2D":
		return prefix + "sampler2D"
	case "Texture2DArray":
		return prefix + "sampler2DArray"
	case "Texture2DMS":
		return prefix + "sampler2DMS"
	case "Texture2DMSArray":
		return prefix + "sampler2DMSArray"
	case "Texture3D":
		return prefix + "sampler3D"
	case "TextureCube":
		return prefix + "samplerCube"
	case "TextureCubeArray":
		return prefix + "samplerCubeArray"
	case "RWTexture1D":
		return prefix + "image1D"
	case "RWTexture1DArray":
		return prefix + "image1DArray"
	case "RWTexture2D":
		return prefix + "image2D"
	case "RWTexture2DArray":
		return prefix + "image2DArray"
	case "RWTexture3D":
		return prefix + "image3D"
	}
	return prefix + "sampler2D"
}

// intrinsicNames maps HLSL intrinsic spellings to their GLSL
// counterparts. Intrinsics absent here keep their name.
var intrinsicNames = map[string]string{
	"atan2":   "atan",
	"ddx":     "dFdx",
	"ddy":     "dFdy",
	"fmod":    "mod",
	"frac":    "fract",
	"lerp":    "mix",
	"mad":     "fma",
	"rsqrt":   "inversesqrt",
	"tex1D":   "texture",
	"tex2D":   "texture",
	"tex3D":   "texture",
	"texCUBE": "texture",
}

// IntrinsicName returns the GLSL spelling of an HLSL intrinsic.
func IntrinsicName(name string) string {
	if glsl, ok := intrinsicNames[name]; ok {
		return glsl
	}
	return name
}

// builtinName maps a system-value semantic to the GLSL built-in
// variable for the given stage and direction, or "" when the semantic
// needs an ordinary IO variable.
func builtinName(sem ast.Semantic, target ast.ShaderTarget, output bool) string {
	base, _ := sem.Base()
	switch strings.ToLower(base) {
	case "sv_position":
		if target == ast.TargetFragment && !output {
			return "gl_FragCoord"
		}
		if output {
			return "gl_Position"
		}
		return ""
	case "sv_depth":
		return "gl_FragDepth"
	case "sv_vertexid":
		return "gl_VertexID"
	case "sv_instanceid":
		return "gl_InstanceID"
	case "sv_isfrontface":
		return "gl_FrontFacing"
	case "sv_dispatchthreadid":
		return "gl_GlobalInvocationID"
	case "sv_groupid":
		return "gl_WorkGroupID"
	case "sv_groupthreadid":
		return "gl_LocalInvocationID"
	case "sv_groupindex":
		return "gl_LocalInvocationIndex"
	case "sv_primitiveid":
		return "gl_PrimitiveID"
	}
	return ""
}

// ReservedWords is the set of GLSL keywords and built-ins that HLSL
// identifiers must not collide with; colliding names are renamed with
// the reserved-word prefix.
var ReservedWords = map[string]bool{
	"active": true, "asm": true, "attribute": true, "buffer": true,
	"cast": true, "centroid": true, "coherent": true, "common": true,
	"discard": true, "dmat2": true, "dmat3": true, "dmat4": true,
	"dvec2": true, "dvec3": true, "dvec4": true, "filter": true,
	"fixed": true, "flat": true, "fvec2": true, "fvec3": true,
	"fvec4": true, "highp": true, "hvec2": true, "hvec3": true,
	"hvec4": true, "input": true, "invariant": true, "layout": true,
	"lowp": true, "mat2": true, "mat3": true, "mat4": true,
	"mediump": true, "namespace": true, "noperspective": true,
	"output": true, "partition": true, "patch": true, "precision": true,
	"readonly": true, "restrict": true, "sampler1D": true,
	"sampler2D": true, "sampler3D": true, "samplerCube": true,
	"smooth": true, "subroutine": true, "superp": true, "texture": true,
	"union": true, "uniform": true, "varying": true, "vec2": true,
	"vec3": true, "vec4": true, "volatile": true, "writeonly": true,
}
