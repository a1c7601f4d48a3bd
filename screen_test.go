package letui

import (
	"bytes"
	"strings"
	"testing"
)

// newTestScreen builds a screen with a fixed size writing to out,
// bypassing terminal detection.
func newTestScreen(width, height int, out *bytes.Buffer) *Screen {
	s := NewScreen(out)
	s.width = width
	s.height = height
	return s
}

// countUpdates counts emitted cell update sequences; every changed cell
// produces exactly one truecolor foreground command.
func countUpdates(out string) int {
	return strings.Count(out, "\x1b[38;2;")
}

func TestFlush(t *testing.T) {
	t.Run("Scenario 3x1 red A", func(t *testing.T) {
		var out bytes.Buffer
		s := newTestScreen(3, 1, &out)
		if err := s.AllocateBuffer(); err != nil {
			t.Fatal(err)
		}

		s.SetCell(0, Cell{Codepoint: 'A', FG: 0xFF0000, BG: 0})
		if err := s.Flush(); err != nil {
			t.Fatal(err)
		}

		got := out.String()
		want := "\x1b[1;1H\x1b[38;2;255;0;0m\x1b[48;2;0;0;0mA"
		if !strings.Contains(got, want) {
			t.Errorf("flush output %q missing %q", got, want)
		}
		if n := countUpdates(got); n != 1 {
			t.Errorf("update count = %d, want 1", n)
		}

		// Second flush with no writes emits nothing.
		out.Reset()
		if err := s.Flush(); err != nil {
			t.Fatal(err)
		}
		if out.Len() != 0 {
			t.Errorf("second flush emitted %q, want nothing", out.String())
		}
	})

	t.Run("DiffMinimality", func(t *testing.T) {
		var out bytes.Buffer
		s := newTestScreen(4, 2, &out)
		if err := s.AllocateBuffer(); err != nil {
			t.Fatal(err)
		}

		// First frame: establish a baseline.
		for i := 0; i < 8; i++ {
			s.SetCell(i, Cell{Codepoint: '.', FG: 0xAAAAAA, BG: 0})
		}
		if err := s.Flush(); err != nil {
			t.Fatal(err)
		}

		// Second frame differs in exactly 3 cells.
		out.Reset()
		s.SetCell(1, Cell{Codepoint: 'x', FG: 0xAAAAAA, BG: 0})
		s.SetCell(4, Cell{Codepoint: '.', FG: 0xAAAAAA, BG: 0x010101}) // bg-only change
		s.SetCell(7, Cell{Codepoint: '.', FG: 0xBBBBBB, BG: 0})        // fg-only change
		if err := s.Flush(); err != nil {
			t.Fatal(err)
		}
		if n := countUpdates(out.String()); n != 3 {
			t.Errorf("update count = %d, want 3", n)
		}
	})

	t.Run("IdempotentFlush", func(t *testing.T) {
		var out bytes.Buffer
		s := newTestScreen(5, 5, &out)
		if err := s.AllocateBuffer(); err != nil {
			t.Fatal(err)
		}
		s.SetCell(12, Cell{Codepoint: '#', FG: 0x00FF00, BG: 0})
		if err := s.Flush(); err != nil {
			t.Fatal(err)
		}

		out.Reset()
		if err := s.Flush(); err != nil {
			t.Fatal(err)
		}
		if n := countUpdates(out.String()); n != 0 {
			t.Errorf("second flush emitted %d updates, want 0", n)
		}
	})

	t.Run("WriteVisibilityOrdering", func(t *testing.T) {
		var out bytes.Buffer
		s := newTestScreen(3, 1, &out)
		if err := s.AllocateBuffer(); err != nil {
			t.Fatal(err)
		}

		s.SetCell(0, Cell{Codepoint: 'A', FG: 1, BG: 0})
		if err := s.Flush(); err != nil {
			t.Fatal(err)
		}

		// A write after a completed flush must be the only diff in the
		// next flush; the copy-back must not swallow it.
		out.Reset()
		s.SetCell(2, Cell{Codepoint: 'B', FG: 1, BG: 0})
		if err := s.Flush(); err != nil {
			t.Fatal(err)
		}
		got := out.String()
		if n := countUpdates(got); n != 1 {
			t.Errorf("update count = %d, want 1", n)
		}
		if !strings.Contains(got, "\x1b[1;3H") {
			t.Errorf("output %q missing move to (2,0)", got)
		}
	})

	t.Run("InvalidCodepointSkipped", func(t *testing.T) {
		var out bytes.Buffer
		s := newTestScreen(3, 1, &out)
		if err := s.AllocateBuffer(); err != nil {
			t.Fatal(err)
		}

		s.SetCell(0, Cell{Codepoint: 0xD800, FG: 1, BG: 0}) // surrogate
		s.SetCell(1, Cell{Codepoint: 'B', FG: 1, BG: 0})
		if err := s.Flush(); err != nil {
			t.Fatalf("flush with invalid codepoint should succeed, got %v", err)
		}

		got := out.String()
		if n := countUpdates(got); n != 1 {
			t.Errorf("update count = %d, want 1 (bad cell skipped)", n)
		}
		if !strings.Contains(got, "B") {
			t.Errorf("valid neighbor not rendered: %q", got)
		}

		// The skipped cell was still promoted; no retry next frame.
		out.Reset()
		if err := s.Flush(); err != nil {
			t.Fatal(err)
		}
		if n := countUpdates(out.String()); n != 0 {
			t.Errorf("skipped cell re-emitted: %d updates", n)
		}
	})

	t.Run("EmptyCellRendersSpace", func(t *testing.T) {
		var out bytes.Buffer
		s := newTestScreen(2, 1, &out)
		if err := s.AllocateBuffer(); err != nil {
			t.Fatal(err)
		}
		s.SetCell(0, Cell{Codepoint: 'A', FG: 1, BG: 0})
		if err := s.Flush(); err != nil {
			t.Fatal(err)
		}

		out.Reset()
		s.SetCell(0, Cell{}) // cleared back to empty
		if err := s.Flush(); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), "\x1b[48;2;0;0;0m ") {
			t.Errorf("cleared cell output %q, want trailing space", out.String())
		}
	})

	t.Run("FlushBeforeAllocate", func(t *testing.T) {
		var out bytes.Buffer
		s := newTestScreen(3, 1, &out)
		if err := s.Flush(); err != nil {
			t.Errorf("flush before allocate should be a no-op, got %v", err)
		}
		if out.Len() != 0 {
			t.Errorf("no-op flush wrote %q", out.String())
		}
	})
}

func TestAllocateBuffer(t *testing.T) {
	t.Run("FirstFlushIsNoop", func(t *testing.T) {
		var out bytes.Buffer
		s := newTestScreen(10, 4, &out)
		if err := s.AllocateBuffer(); err != nil {
			t.Fatal(err)
		}
		if err := s.Flush(); err != nil {
			t.Fatal(err)
		}
		if out.Len() != 0 {
			t.Errorf("flush right after allocate emitted %q", out.String())
		}
	})

	t.Run("CapacityExceeded", func(t *testing.T) {
		var out bytes.Buffer
		s := newTestScreen(2000, 1000, &out)
		if err := s.AllocateBuffer(); err == nil {
			t.Error("expected capacity error")
		}
	})

	t.Run("CurrentWords", func(t *testing.T) {
		var out bytes.Buffer
		s := newTestScreen(3, 1, &out)
		if s.CurrentWords() != nil {
			t.Error("words non-nil before allocate")
		}
		if err := s.AllocateBuffer(); err != nil {
			t.Fatal(err)
		}
		words := s.CurrentWords()
		if len(words) != MaxBufferWords {
			t.Errorf("words len = %d, want %d", len(words), MaxBufferWords)
		}

		// Raw word writes are what the boundary caller does.
		words[0] = 'Q'
		words[1] = PackRGB(1, 2, 3)
		words[2] = PackRGB(4, 5, 6)
		if err := s.Flush(); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), "\x1b[38;2;1;2;3m\x1b[48;2;4;5;6mQ") {
			t.Errorf("raw word write not rendered: %q", out.String())
		}
	})
}

func TestRelease(t *testing.T) {
	var out bytes.Buffer
	s := newTestScreen(3, 1, &out)
	if err := s.AllocateBuffer(); err != nil {
		t.Fatal(err)
	}
	if err := s.Release(); err != nil {
		t.Fatal(err)
	}

	got := out.String()
	for _, seq := range []string{"\x1b[39m", "\x1b[49m", "\x1b[2J"} {
		if !strings.Contains(got, seq) {
			t.Errorf("release output %q missing %q", got, seq)
		}
	}
	if s.CurrentWords() != nil {
		t.Error("words still available after release")
	}
	// Flush after release degrades to a no-op.
	out.Reset()
	if err := s.Flush(); err != nil {
		t.Errorf("flush after release: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("flush after release wrote %q", out.String())
	}
}
