package letui

import (
	"io"
	"sync"
)

// Session owns the process-wide rendering state: the screen with its
// grid pair, and the most recent flattened frame list. The original
// backend kept these as bare globals behind individual mutexes; a
// session object keeps the same cross-call visibility contract while
// letting tests hold independent instances.
//
// Locking is per resource: the screen serializes grid access itself,
// the session guards the frame list.
type Session struct {
	screen *Screen

	framesMu sync.Mutex
	frames   []float32
}

// NewSession creates a session rendering to the given writer (nil for
// os.Stdout).
func NewSession(w io.Writer) *Session {
	return &Session{screen: NewScreen(w)}
}

// Screen returns the session's screen.
func (s *Session) Screen() *Screen { return s.screen }

// AllocateBuffer sizes the grid pair to the terminal.
func (s *Session) AllocateBuffer() error { return s.screen.AllocateBuffer() }

// AllocateBufferWords is AllocateBuffer over caller-provided backing
// memory for the current grid.
func (s *Session) AllocateBufferWords(words []uint64) error {
	return s.screen.AllocateBufferWords(words)
}

// EnterScreen starts the alternate-screen/raw-mode lifecycle.
func (s *Session) EnterScreen() error { return s.screen.EnterScreen() }

// LeaveScreen ends it.
func (s *Session) LeaveScreen() error { return s.screen.LeaveScreen() }

// Width returns the terminal width in cells.
func (s *Session) Width() int { return s.screen.Width() }

// Height returns the terminal height in cells.
func (s *Session) Height() int { return s.screen.Height() }

// RefreshSize re-queries the terminal size.
func (s *Session) RefreshSize() error { return s.screen.RefreshSize() }

// Flush diff-renders and promotes the buffers.
func (s *Session) Flush() error { return s.screen.Flush() }

// BufferWords returns the current grid's backing words, nil before
// allocation.
func (s *Session) BufferWords() []uint64 { return s.screen.CurrentWords() }

// BufferLen returns the word count of the current grid's backing store,
// 0 before allocation.
func (s *Session) BufferLen() int {
	if !s.screen.Allocated() {
		return 0
	}
	return MaxBufferWords
}

// ReleaseBuffer frees the grid pair and resets the terminal's colors.
// The frame list is dropped with it: teardown resets all singleton
// state.
func (s *Session) ReleaseBuffer() error {
	s.framesMu.Lock()
	s.frames = nil
	s.framesMu.Unlock()
	return s.screen.Release()
}

// ComputeLayout parses a serialized layout request, solves it, and
// replaces the frame list. A failed request leaves the previous frame
// list untouched.
func (s *Session) ComputeLayout(payload []byte) error {
	tree, err := ParseLayoutRequest(payload)
	if err != nil {
		renderLog.Debug("layout request rejected", "err", err)
		return err
	}
	frames := tree.Solve()

	s.framesMu.Lock()
	s.frames = frames
	s.framesMu.Unlock()
	return nil
}

// Frames returns the most recent flattened frame list, nil before the
// first successful ComputeLayout. Valid until the next ComputeLayout or
// ReleaseBuffer.
func (s *Session) Frames() []float32 {
	s.framesMu.Lock()
	defer s.framesMu.Unlock()
	return s.frames
}

// FramesLen returns the element count of the frame list.
func (s *Session) FramesLen() int {
	s.framesMu.Lock()
	defer s.framesMu.Unlock()
	return len(s.frames)
}
