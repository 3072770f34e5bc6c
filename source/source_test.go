package source

import (
	"testing"
)

func readAll(s *SourceCode) string {
	var out []rune
	for {
		r := s.Next()
		if r == 0 {
			return string(out)
		}
		out = append(out, r)
	}
}

func TestPositionTracking(t *testing.T) {
	s := New("test.hlsl", "ab\ncd")

	if got := s.Pos(); got.Line != 1 || got.Column != 1 {
		t.Fatalf("start position = %v, want 1:1", got)
	}
	s.Next() // a
	s.Next() // b
	if got := s.Pos(); got.Line != 1 || got.Column != 3 {
		t.Fatalf("position after 'ab' = %v, want 1:3", got)
	}
	s.Next() // newline
	if got := s.Pos(); got.Line != 2 || got.Column != 1 {
		t.Fatalf("position after newline = %v, want 2:1", got)
	}
	if got := s.Pos().File; got != "test.hlsl" {
		t.Errorf("file = %q, want test.hlsl", got)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	s := New("t", "xy")
	if s.Peek() != 'x' || s.Peek() != 'x' {
		t.Fatal("Peek consumed input")
	}
	if s.PeekNext() != 'y' {
		t.Fatal("PeekNext wrong")
	}
	if s.Next() != 'x' {
		t.Fatal("Next out of order after peeks")
	}
}

func TestPushBack(t *testing.T) {
	s := New("t", "world")
	s.Next() // w
	s.PushBack("XY")
	if got := readAll(s); got != "XYorld" {
		t.Fatalf("read %q, want XYorld", got)
	}
}

func TestPushBackKeepsPosition(t *testing.T) {
	s := New("t", "ab\ncd")
	s.Next()
	s.Next()
	s.Next() // consumed "ab\n", now at 2:1
	s.PushBack("zz")
	if got := s.Pos(); got.Line != 2 || got.Column != 1 {
		t.Fatalf("pushback position = %v, want 2:1", got)
	}
	s.Next()
	s.Next() // consume "zz"
	if got := s.Pos(); got.Line != 2 || got.Column != 1 {
		t.Fatalf("position after pushback drained = %v, want 2:1", got)
	}
}

func TestIncludePushPop(t *testing.T) {
	s := New("main.hlsl", "AB")
	s.Next() // A
	s.PushInclude("inc.hlsl", "12")

	if got := s.Pos(); got.File != "inc.hlsl" || got.Line != 1 {
		t.Fatalf("include position = %v, want inc.hlsl:1", got)
	}
	if s.IncludeDepth() != 1 {
		t.Fatalf("include depth = %d, want 1", s.IncludeDepth())
	}

	if got := readAll(s); got != "12B" {
		t.Fatalf("read %q, want 12B", got)
	}
}

func TestIncludeRestoresPosition(t *testing.T) {
	s := New("main.hlsl", "A\nB")
	s.Next() // A
	s.Next() // newline: now at 2:1
	s.PushInclude("inc.hlsl", "x")
	s.Next() // x
	// include exhausted; next read comes from main again
	if r := s.Next(); r != 'B' {
		t.Fatalf("read %q after include, want B", r)
	}
	if got := s.Pos(); got.File != "main.hlsl" || got.Line != 2 {
		t.Fatalf("restored position = %v, want main.hlsl:2", got)
	}
}

func TestSetLine(t *testing.T) {
	s := New("main.hlsl", "a\nb\nc")
	s.Next()
	s.Next() // at start of line 2
	s.SetLine(100, "other.hlsl")
	if got := s.Pos(); got.Line != 100 || got.File != "other.hlsl" {
		t.Fatalf("position after SetLine = %v, want other.hlsl:100", got)
	}
	s.Next()
	s.Next() // consume "b\n"
	if got := s.Pos(); got.Line != 101 {
		t.Fatalf("line after newline = %d, want 101", got.Line)
	}
}

func TestMapIncludeHandler(t *testing.T) {
	h := MapIncludeHandler{"common.hlsl": "float x;"}

	inc, err := h.Resolve("common.hlsl", false)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if inc.Name() != "common.hlsl" || inc.Text() != "float x;" {
		t.Errorf("resolved %q %q", inc.Name(), inc.Text())
	}

	if _, err := h.Resolve("missing.hlsl", false); err == nil {
		t.Error("expected not-found error")
	}
}

func TestEof(t *testing.T) {
	s := New("t", "a")
	if s.Eof() {
		t.Fatal("Eof before reading")
	}
	s.Next()
	if !s.Eof() {
		t.Fatal("no Eof after reading everything")
	}
	if s.Next() != 0 {
		t.Fatal("Next past end should return 0")
	}
}
