// Package source provides source buffers and position tracking for the
// xshade compiler front end.
//
// A SourceCode wraps a UTF-8 character stream with single-rune lookahead,
// push-back of arbitrary substrings (used for token unget during macro
// scanning) and a nested include stack. Pushing an include file saves the
// containing position; popping restores it.
package source

import (
	"fmt"
	"unicode/utf8"
)

// Position identifies a location in a source file.
type Position struct {
	File   string
	Line   int
	Column int
}

// String returns the position in "file:line:col" form.
func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// IsValid reports whether the position refers to an actual source location.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Span is a source range from Start to End.
type Span struct {
	Start Position
	End   Position
}

// At returns a zero-length span at the given position.
func At(pos Position) Span {
	return Span{Start: pos, End: pos}
}

// frame is one entry of the buffer stack: either the main file, an
// included file, or pushed-back text that is re-read in place.
type frame struct {
	text     string
	pos      int
	name     string
	line     int
	column   int
	pushback bool // pushed-back text keeps the surrounding position
}

// SourceCode is a character stream with lookahead, push-back and
// nested includes.
type SourceCode struct {
	frames []*frame

	// #line adjustment: logical line = physical line + lineDelta,
	// logical file = fileOverride (if set).
	lineDelta    int
	fileOverride string
}

// New creates a source buffer over the given text.
func New(name, text string) *SourceCode {
	return &SourceCode{
		frames: []*frame{{text: text, name: name, line: 1, column: 1}},
	}
}

func (s *SourceCode) top() *frame {
	return s.frames[len(s.frames)-1]
}

// Pos returns the logical position of the next rune to be read,
// honoring any #line adjustment.
func (s *SourceCode) Pos() Position {
	f := s.topReadable()
	name := f.name
	line := f.line
	if !f.pushback {
		line += s.lineDelta
		if s.fileOverride != "" {
			name = s.fileOverride
		}
	}
	return Position{File: name, Line: line, Column: f.column}
}

// PhysicalPos returns the position ignoring #line adjustment.
func (s *SourceCode) PhysicalPos() Position {
	f := s.topReadable()
	return Position{File: f.name, Line: f.line, Column: f.column}
}

// topReadable returns the topmost frame that still has input, without
// popping exhausted frames (so Pos stays stable at frame boundaries
// until the next read).
func (s *SourceCode) topReadable() *frame {
	for i := len(s.frames) - 1; i > 0; i-- {
		if s.frames[i].pos < len(s.frames[i].text) {
			return s.frames[i]
		}
	}
	return s.frames[0]
}

// SetLine applies a #line directive. The stream must be positioned at
// the start of the line following the directive; that line is reported
// as the given logical line, optionally in the given file.
func (s *SourceCode) SetLine(line int, file string) {
	f := s.top()
	s.lineDelta = line - f.line
	s.fileOverride = file
}

// Name returns the name of the buffer currently being read.
func (s *SourceCode) Name() string {
	return s.topReadable().name
}

// Next reads and consumes the next rune. It returns 0 at end of input.
func (s *SourceCode) Next() rune {
	for len(s.frames) > 1 && s.top().pos >= len(s.top().text) {
		s.frames = s.frames[:len(s.frames)-1]
	}
	f := s.top()
	if f.pos >= len(f.text) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(f.text[f.pos:])
	f.pos += size
	if r == '\n' {
		f.line++
		f.column = 1
	} else {
		f.column++
	}
	return r
}

// Peek returns the next rune without consuming it.
func (s *SourceCode) Peek() rune {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if f.pos < len(f.text) {
			r, _ := utf8.DecodeRuneInString(f.text[f.pos:])
			return r
		}
	}
	return 0
}

// PeekNext returns the rune after the next one without consuming input.
func (s *SourceCode) PeekNext() rune {
	skipped := false
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		p := f.pos
		for p < len(f.text) {
			r, size := utf8.DecodeRuneInString(f.text[p:])
			if skipped {
				return r
			}
			skipped = true
			p += size
		}
	}
	return 0
}

// Eof reports whether the entire stream (all frames) is exhausted.
func (s *SourceCode) Eof() bool {
	for _, f := range s.frames {
		if f.pos < len(f.text) {
			return false
		}
	}
	return true
}

// PushBack re-inserts text so that it is read before the remaining
// input. The surrounding position is kept, so pushed-back text does not
// disturb line/column bookkeeping of the underlying file.
func (s *SourceCode) PushBack(text string) {
	if text == "" {
		return
	}
	cur := s.top()
	s.frames = append(s.frames, &frame{
		text:     text,
		name:     cur.name,
		line:     cur.line,
		column:   cur.column,
		pushback: true,
	})
}

// PushInclude enters an included file. The containing position is saved
// and restored when the include is exhausted.
func (s *SourceCode) PushInclude(name, text string) {
	s.frames = append(s.frames, &frame{text: text, name: name, line: 1, column: 1})
}

// Text returns the complete text of the root buffer.
func (s *SourceCode) Text() string {
	return s.frames[0].text
}

// IncludeDepth returns the number of active include frames.
func (s *SourceCode) IncludeDepth() int {
	n := 0
	for _, f := range s.frames[1:] {
		if !f.pushback {
			n++
		}
	}
	return n
}
