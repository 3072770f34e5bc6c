// Package hlsl implements the HLSL frontend and backend of the
// compiler: the token model and dialect keyword table, the lexer, the
// recursive-descent parser producing the shared AST, and the writer
// that re-emits HLSL from a decorated program.
//
// The lexer and parser accept Shader Model 3-5 input. Preprocessing
// happens before parsing (see the pp package); the parser expects a
// directive-free character stream.
package hlsl
