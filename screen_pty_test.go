package letui

import (
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
)

type ptyChunk struct {
	s   string
	err error
}

// startReader spawns the single goroutine that reads from the pty
// master for the whole test. One shared reader keeps successive
// readUntil calls from racing each other for bytes.
func startReader(r interface{ Read([]byte) (int, error) }) <-chan ptyChunk {
	ch := make(chan ptyChunk, 16)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := r.Read(buf)
			ch <- ptyChunk{s: string(buf[:n]), err: err}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

// readUntil drains the reader channel until the wanted sequence shows
// up, with a timeout so a broken screen can't hang the test.
func readUntil(t *testing.T, ch <-chan ptyChunk, want string) string {
	t.Helper()

	var got strings.Builder
	deadline := time.After(2 * time.Second)
	for {
		select {
		case c := <-ch:
			got.WriteString(c.s)
			if strings.Contains(got.String(), want) {
				return got.String()
			}
			if c.err != nil {
				t.Fatalf("pty read failed after %q: %v", got.String(), c.err)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q, got %q", want, got.String())
		}
	}
}

// TestScreenLifecyclePty drives the full lifecycle against a real pty:
// raw mode on, alternate screen entered, a cell flushed, terminal
// restored on the way out.
func TestScreenLifecyclePty(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	s := NewScreen(tty)
	s.fd = int(tty.Fd())
	s.width = 10
	s.height = 3

	if err := s.EnterScreen(); err != nil {
		t.Fatalf("enter screen: %v", err)
	}
	out := startReader(ptmx)
	readUntil(t, out, "\x1b[?1049h")

	if err := s.AllocateBuffer(); err != nil {
		t.Fatal(err)
	}
	s.SetCell(0, Cell{Codepoint: 'A', FG: 0xFF0000, BG: 0})
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	readUntil(t, out, "\x1b[38;2;255;0;0m\x1b[48;2;0;0;0mA")

	if err := s.LeaveScreen(); err != nil {
		t.Fatalf("leave screen: %v", err)
	}
	readUntil(t, out, "\x1b[?1049l")

	// Leaving twice stays a no-op.
	if err := s.LeaveScreen(); err != nil {
		t.Errorf("second leave: %v", err)
	}
}
