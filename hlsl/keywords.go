package hlsl

import "fmt"

// KeywordSet maps identifier spellings to token kinds for one input
// dialect.
type KeywordSet map[string]TokenKind

var hlslKeywords = makeHLSLKeywords()

// Keywords returns the HLSL (Shader Model 3-5) keyword set.
func Keywords() KeywordSet {
	return hlslKeywords
}

func makeHLSLKeywords() KeywordSet {
	ks := KeywordSet{
		"true":  TokenBoolLiteral,
		"false": TokenBoolLiteral,

		"void":   TokenVoid,
		"vector": TokenVectorGeneric,
		"matrix": TokenMatrixGeneric,
		"string": TokenStringType,

		"do":         TokenDo,
		"while":      TokenWhile,
		"for":        TokenFor,
		"if":         TokenIf,
		"else":       TokenElse,
		"switch":     TokenSwitch,
		"case":       TokenCase,
		"default":    TokenDefault,
		"typedef":    TokenTypedef,
		"struct":     TokenStruct,
		"register":   TokenRegister,
		"packoffset": TokenPackOffset,
		"return":     TokenReturn,
		"inline":     TokenInline,

		"break":    TokenCtrlTransfer,
		"continue": TokenCtrlTransfer,
		"discard":  TokenCtrlTransfer,

		"in":      TokenInputModifier,
		"out":     TokenInputModifier,
		"inout":   TokenInputModifier,
		"uniform": TokenInputModifier,

		"linear":          TokenInterpModifier,
		"centroid":        TokenInterpModifier,
		"nointerpolation": TokenInterpModifier,
		"noperspective":   TokenInterpModifier,
		"sample":          TokenInterpModifier,

		"const":        TokenTypeModifier,
		"row_major":    TokenTypeModifier,
		"column_major": TokenTypeModifier,
		"snorm":        TokenTypeModifier,
		"unorm":        TokenTypeModifier,

		"extern":      TokenStorageClass,
		"precise":     TokenStorageClass,
		"shared":      TokenStorageClass,
		"groupshared": TokenStorageClass,
		"static":      TokenStorageClass,
		"volatile":    TokenStorageClass,

		"cbuffer": TokenUniformBuffer,
		"tbuffer": TokenUniformBuffer,

		"sampler":                TokenSamplerType,
		"sampler1D":              TokenSamplerType,
		"sampler2D":              TokenSamplerType,
		"sampler3D":              TokenSamplerType,
		"samplerCUBE":            TokenSamplerType,
		"sampler_state":          TokenSamplerType,
		"SamplerState":           TokenSamplerType,
		"SamplerComparisonState": TokenSamplerType,

		"auto":             TokenReserved,
		"catch":            TokenReserved,
		"char":             TokenReserved,
		"const_cast":       TokenReserved,
		"delete":           TokenReserved,
		"dynamic_cast":     TokenReserved,
		"enum":             TokenReserved,
		"explicit":         TokenReserved,
		"friend":           TokenReserved,
		"goto":             TokenReserved,
		"long":             TokenReserved,
		"mutable":          TokenReserved,
		"new":              TokenReserved,
		"operator":         TokenReserved,
		"private":          TokenReserved,
		"protected":        TokenReserved,
		"public":           TokenReserved,
		"reinterpret_cast": TokenReserved,
		"short":            TokenReserved,
		"signed":           TokenReserved,
		"sizeof":           TokenReserved,
		"static_cast":      TokenReserved,
		"template":         TokenReserved,
		"this":             TokenReserved,
		"throw":            TokenReserved,
		"try":              TokenReserved,
		"typename":         TokenReserved,
		"union":            TokenReserved,
		"unsigned":         TokenReserved,
		"using":            TokenReserved,
		"virtual":          TokenReserved,

		"interface": TokenUnsupported,
		"class":     TokenUnsupported,
	}

	// Scalar, vector and matrix type names are generated: every scalar
	// type expands to <name>1..<name>4 and <name>NxM for N,M in 1..4.
	scalars := []string{"bool", "int", "uint", "dword", "half", "float", "double"}
	for _, s := range scalars {
		ks[s] = TokenScalarType
		for n := 1; n <= 4; n++ {
			ks[fmt.Sprintf("%s%d", s, n)] = TokenVectorType
			for m := 1; m <= 4; m++ {
				ks[fmt.Sprintf("%s%dx%d", s, n, m)] = TokenMatrixType
			}
		}
	}

	buffers := []string{
		"Buffer", "RWBuffer",
		"ByteAddressBuffer", "RWByteAddressBuffer",
		"StructuredBuffer", "RWStructuredBuffer",
		"AppendStructuredBuffer", "ConsumeStructuredBuffer",
		"Texture1D", "Texture1DArray",
		"Texture2D", "Texture2DArray", "Texture2DMS", "Texture2DMSArray",
		"Texture3D", "TextureCube", "TextureCubeArray",
		"RWTexture1D", "RWTexture1DArray",
		"RWTexture2D", "RWTexture2DArray", "RWTexture3D",
		"texture",
	}
	for _, b := range buffers {
		ks[b] = TokenBufferType
	}

	return ks
}
