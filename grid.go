package letui

import "fmt"

// MaxBufferWords is the fixed word capacity of a grid. It is sized for
// terminals far larger than anything realistic (~666k cells) so that a
// resize never forces a reallocation mid-session; the pointer handed
// across the foreign boundary stays stable for the grid's lifetime.
const MaxBufferWords = 2_000_000

// ErrCapacity is returned when a terminal size would need more cells
// than the fixed buffer capacity holds.
var ErrCapacity = fmt.Errorf("terminal size exceeds buffer capacity (%d words)", MaxBufferWords)

// Grid is a fixed-capacity sequence of cell records indexed
// row*width+col. Only the first width*height cells are meaningful.
type Grid struct {
	words  []uint64
	width  int
	height int
}

// NewGrid creates a grid backed by internally owned memory.
func NewGrid() *Grid {
	return &Grid{words: make([]uint64, MaxBufferWords)}
}

// NewGridWords creates a grid over caller-provided backing memory. The
// FFI layer uses this to keep the current grid in C-allocated memory so
// its pointer may legally cross the boundary. The slice must hold at
// least MaxBufferWords words.
func NewGridWords(words []uint64) (*Grid, error) {
	if len(words) < MaxBufferWords {
		return nil, fmt.Errorf("backing store too small: %d words, need %d", len(words), MaxBufferWords)
	}
	return &Grid{words: words[:MaxBufferWords]}, nil
}

// Resize sets the logical dimensions and zero-fills the populated
// region. Fails with ErrCapacity when width*height does not fit.
func (g *Grid) Resize(width, height int) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("invalid grid size %dx%d", width, height)
	}
	if width*height*WordsPerCell > MaxBufferWords {
		return ErrCapacity
	}
	g.width = width
	g.height = height
	used := g.words[:width*height*WordsPerCell]
	for i := range used {
		used[i] = 0
	}
	return nil
}

// Reshape changes the logical dimensions without touching cell
// contents, for terminal resizes mid-session. Fails with ErrCapacity
// when the new size does not fit.
func (g *Grid) Reshape(width, height int) error {
	if width*height*WordsPerCell > MaxBufferWords {
		return ErrCapacity
	}
	g.width = width
	g.height = height
	return nil
}

// Width returns the logical width in cells.
func (g *Grid) Width() int { return g.width }

// Height returns the logical height in cells.
func (g *Grid) Height() int { return g.height }

// Cells returns the number of populated cells.
func (g *Grid) Cells() int { return g.width * g.height }

// Words returns the full backing store, capacity included.
func (g *Grid) Words() []uint64 { return g.words }

// Used returns the populated region of the backing store.
func (g *Grid) Used() []uint64 {
	return g.words[:g.Cells()*WordsPerCell]
}

// Set writes a cell record at the given cell index. The caller is
// responsible for staying inside width*height; like the raw pointer
// writes the boundary permits, only capacity is enforced.
func (g *Grid) Set(index int, c Cell) {
	w := index * WordsPerCell
	g.words[w] = c.Codepoint
	g.words[w+1] = c.FG
	g.words[w+2] = c.BG
}

// Get reads the cell record at the given cell index.
func (g *Grid) Get(index int) Cell {
	w := index * WordsPerCell
	return Cell{Codepoint: g.words[w], FG: g.words[w+1], BG: g.words[w+2]}
}

// CopyFrom overwrites this grid's populated region and dimensions from
// another grid. Used for the previous<-current promotion after a flush.
func (g *Grid) CopyFrom(other *Grid) {
	g.width = other.width
	g.height = other.height
	copy(g.words[:other.Cells()*WordsPerCell], other.Used())
}
