package letui

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// renderLog carries diagnostics for the render path. It writes to
// stderr: stdout is the render stream and must only ever receive cell
// updates.
var renderLog = log.NewWithOptions(os.Stderr, log.Options{Prefix: "letui"})

// Screen manages the terminal with a double-buffered cell grid pair and
// diff-based flushing. The current grid is written by the caller (in
// process or through the boundary adapter); the previous grid holds the
// last flushed frame and is never exposed.
type Screen struct {
	current  *Grid
	previous *Grid
	writer   io.Writer
	fd       int

	width  int
	height int

	origTermios *unix.Termios
	inRawMode   bool

	buf bytes.Buffer // reusable output buffer, one write per flush

	// Guards the grid pair, the size, and flush's copy-back step. A
	// reader must never observe the previous grid mid-promotion.
	mu sync.Mutex
}

// NewScreen creates a screen writing to the given writer. Pass nil to
// use os.Stdout. The terminal size is detected from stdout; when stdout
// is not a terminal the standard 80x24 fallback applies.
func NewScreen(w io.Writer) *Screen {
	if w == nil {
		w = os.Stdout
	}

	fd := int(os.Stdout.Fd())
	width, height := 80, 24
	if term.IsTerminal(fd) {
		if tw, th, err := getTerminalSize(fd); err == nil {
			width, height = tw, th
		}
	}

	return &Screen{
		writer: w,
		fd:     fd,
		width:  width,
		height: height,
	}
}

// getTerminalSize returns the current terminal dimensions.
func getTerminalSize(fd int) (int, int, error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, err
	}
	return int(ws.Col), int(ws.Row), nil
}

// Width returns the terminal width in cells.
func (s *Screen) Width() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width
}

// Height returns the terminal height in cells.
func (s *Screen) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

// RefreshSize re-queries the terminal size. The grids keep their
// capacity; only the logical dimensions change.
func (s *Screen) RefreshSize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	width, height, err := getTerminalSize(s.fd)
	if err != nil {
		return fmt.Errorf("terminal size query failed: %w", err)
	}
	if width*height*WordsPerCell > MaxBufferWords {
		return ErrCapacity
	}
	s.width = width
	s.height = height
	if s.current != nil {
		// Contents survive a resize; only the populated window moves.
		if err := s.current.Reshape(width, height); err != nil {
			return err
		}
		if err := s.previous.Reshape(width, height); err != nil {
			return err
		}
	}
	return nil
}

// AllocateBuffer sizes the grid pair to the current terminal size with
// internally owned backing memory. The current grid is zero-filled and
// snapshotted into the previous grid, so the first flush is a no-op
// unless cells are written first.
func (s *Screen) AllocateBuffer() error {
	return s.allocate(nil)
}

// AllocateBufferWords is AllocateBuffer with caller-provided backing
// memory for the current grid. The boundary adapter passes C-allocated
// memory here so the grid pointer may cross the FFI boundary.
func (s *Screen) AllocateBufferWords(words []uint64) error {
	return s.allocate(words)
}

func (s *Screen) allocate(words []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.width*s.height*WordsPerCell > MaxBufferWords {
		return ErrCapacity
	}

	var current *Grid
	if words != nil {
		g, err := NewGridWords(words)
		if err != nil {
			return err
		}
		current = g
	} else {
		current = NewGrid()
	}
	if err := current.Resize(s.width, s.height); err != nil {
		return err
	}

	previous := NewGrid()
	previous.CopyFrom(current)

	s.current = current
	s.previous = previous
	return nil
}

// Allocated reports whether the grid pair exists.
func (s *Screen) Allocated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// CurrentWords returns the current grid's full backing store, or nil
// before allocation. The slice stays valid until Release.
func (s *Screen) CurrentWords() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.Words()
}

// SetCell writes one cell of the current grid. In-process convenience
// mirroring the raw word writes the boundary permits.
func (s *Screen) SetCell(index int, c Cell) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return
	}
	s.current.Set(index, c)
}

// EnterScreen switches to the alternate screen, clears it, hides the
// cursor, enables mouse reporting, and puts the terminal in raw mode.
func (s *Screen) EnterScreen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inRawMode {
		return nil
	}

	termios, err := unix.IoctlGetTermios(s.fd, ioctlGetTermios)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}
	s.origTermios = termios

	raw := *termios
	// Input flags: disable break, CR to NL, parity, strip, flow control
	raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	// Output flags: disable post processing
	raw.Oflag &^= unix.OPOST
	// Control flags: set 8 bit chars
	raw.Cflag |= unix.CS8
	// Local flags: disable echo, canonical mode, signals, extended input
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG | unix.IEXTEN
	// Control chars: min bytes = 1, timeout = 0
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(s.fd, ioctlSetTermios, &raw); err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	s.inRawMode = true

	s.buf.Reset()
	s.buf.WriteString("\x1b[?1049h") // enter alternate screen
	s.buf.WriteString("\x1b[2J")     // clear
	s.buf.WriteString("\x1b[H")      // home
	s.buf.WriteString("\x1b[?25l")   // hide cursor
	s.buf.WriteString("\x1b[?1003h") // mouse reporting (any motion)
	s.buf.WriteString("\x1b[?1006h") // SGR mouse encoding
	if _, err := s.writer.Write(s.buf.Bytes()); err != nil {
		return fmt.Errorf("terminal write failed: %w", err)
	}
	return nil
}

// LeaveScreen restores the terminal: mouse reporting off, cursor shown,
// alternate screen left, original termios reinstated.
func (s *Screen) LeaveScreen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inRawMode {
		return nil
	}

	s.buf.Reset()
	s.buf.WriteString("\x1b[?1006l")
	s.buf.WriteString("\x1b[?1003l")
	s.buf.WriteString("\x1b[?25h")
	s.buf.WriteString("\x1b[?1049l")
	if _, err := s.writer.Write(s.buf.Bytes()); err != nil {
		return fmt.Errorf("terminal write failed: %w", err)
	}

	if s.origTermios != nil {
		if err := unix.IoctlSetTermios(s.fd, ioctlSetTermios, s.origTermios); err != nil {
			return fmt.Errorf("failed to restore termios: %w", err)
		}
	}
	s.inRawMode = false
	return nil
}

// Flush diff-renders the current grid against the previous grid. Each
// changed cell gets a cursor move, a truecolor foreground, a truecolor
// background, and the cell's character; the whole sequence is written
// in one call. Afterwards the previous grid is overwritten with the
// current grid so the next flush diffs against this frame.
//
// Flush before AllocateBuffer is a no-op: callers poll defensively and
// an absent grid is a state, not an error. A cell whose codepoint does
// not decode to a character is skipped with a diagnostic; the terminal
// must never see it.
func (s *Screen) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}

	s.buf.Reset()
	cur := s.current.Words()
	prev := s.previous.Words()
	cells := s.width * s.height

	changed := 0
	for i := 0; i < cells; i++ {
		w := i * WordsPerCell
		if cur[w] == prev[w] && cur[w+1] == prev[w+1] && cur[w+2] == prev[w+2] {
			continue
		}
		cp := cur[w]
		if !ValidCodepoint(cp) {
			renderLog.Warn("skipping invalid codepoint", "index", i, "codepoint", cp)
			continue
		}
		s.writeCell(i%s.width, i/s.width, cp, cur[w+1], cur[w+2])
		changed++
	}

	if changed > 0 {
		s.buf.WriteString("\x1b[0m")
	}
	if s.buf.Len() > 0 {
		if _, err := s.writer.Write(s.buf.Bytes()); err != nil {
			return fmt.Errorf("terminal write failed: %w", err)
		}
	}

	// Promote current->previous. Full copy under the lock: a write
	// issued after Flush returns must diff against this frame, never
	// against a half-promoted one.
	s.previous.CopyFrom(s.current)
	return nil
}

// writeCell emits the update sequence for one cell.
func (s *Screen) writeCell(x, y int, cp, fg, bg uint64) {
	// Cursor position: \x1b[row;colH (1-indexed)
	s.buf.WriteString("\x1b[")
	s.writeIntToBuf(y + 1)
	s.buf.WriteByte(';')
	s.writeIntToBuf(x + 1)
	s.buf.WriteByte('H')

	r, g, b := UnpackRGB(fg)
	s.buf.WriteString("\x1b[38;2;")
	s.writeIntToBuf(int(r))
	s.buf.WriteByte(';')
	s.writeIntToBuf(int(g))
	s.buf.WriteByte(';')
	s.writeIntToBuf(int(b))
	s.buf.WriteByte('m')

	r, g, b = UnpackRGB(bg)
	s.buf.WriteString("\x1b[48;2;")
	s.writeIntToBuf(int(r))
	s.buf.WriteByte(';')
	s.writeIntToBuf(int(g))
	s.buf.WriteByte(';')
	s.writeIntToBuf(int(b))
	s.buf.WriteByte('m')

	s.buf.WriteRune(CellRune(cp))
}

// writeIntToBuf writes an integer to the buffer without allocation.
func (s *Screen) writeIntToBuf(n int) {
	if n == 0 {
		s.buf.WriteByte('0')
		return
	}
	if n < 0 {
		s.buf.WriteByte('-')
		n = -n
	}

	var scratch [10]byte
	i := len(scratch)
	for n > 0 {
		i--
		scratch[i] = byte('0' + n%10)
		n /= 10
	}
	s.buf.Write(scratch[i:])
}

// Release drops the grid pair and resets the terminal's visual state:
// default colors, full clear. Safe to call before allocation.
func (s *Screen) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.previous = nil

	s.buf.Reset()
	s.buf.WriteString("\x1b[39m") // default foreground
	s.buf.WriteString("\x1b[49m") // default background
	s.buf.WriteString("\x1b[2J")  // clear
	if _, err := s.writer.Write(s.buf.Bytes()); err != nil {
		return fmt.Errorf("terminal write failed: %w", err)
	}
	return nil
}
