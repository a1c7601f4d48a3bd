// Package letui is the native rendering core of the letui terminal UI
// toolkit: a double-buffered cell grid with diff-based flushing, and a
// flexbox-style layout solver, both consumed by a host runtime across a
// C foreign-function boundary.
package letui

import "unicode/utf8"

// WordsPerCell is the number of consecutive 64-bit words that encode one
// cell on the wire: codepoint, packed foreground, packed background.
const WordsPerCell = 3

// Cell is one terminal character position: a codepoint plus two packed
// 24-bit RGB colors.
type Cell struct {
	Codepoint uint64
	FG        uint64
	BG        uint64
}

// PackRGB packs 8-bit channels into a 24-bit color word.
func PackRGB(r, g, b uint8) uint64 {
	return uint64(r)<<16 | uint64(g)<<8 | uint64(b)
}

// UnpackRGB splits a packed 24-bit color word into 8-bit channels.
func UnpackRGB(v uint64) (r, g, b uint8) {
	return uint8(v >> 16 & 0xFF), uint8(v >> 8 & 0xFF), uint8(v & 0xFF)
}

// ValidCodepoint reports whether cp decodes to a character we can hand
// to the terminal. Codepoint 0 means "empty" and is valid; surrogates
// and values past the Unicode range are not.
func ValidCodepoint(cp uint64) bool {
	if cp == 0 {
		return true
	}
	if cp > utf8.MaxRune {
		return false
	}
	return utf8.ValidRune(rune(cp))
}

// CellRune returns the rune to draw for a codepoint. Empty cells render
// as spaces; terminals disagree about NUL.
func CellRune(cp uint64) rune {
	if cp == 0 {
		return ' '
	}
	return rune(cp)
}
