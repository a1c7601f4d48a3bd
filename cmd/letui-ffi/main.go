// Command letui-ffi builds the rendering core as a C shared library
// (go build -buildmode=c-shared) consumed by the letui TypeScript
// runtime through Bun's FFI module.
//
// Buffers handed across the boundary live in C-allocated memory, never
// the Go heap: cgo forbids returning Go pointers, and C memory keeps
// the addresses stable for the documented validity windows. The caller
// reads and writes through the pointers but must never free them;
// free_buffer is the only teardown path.
package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"sync"
	"unsafe"

	"letui"
)

var (
	// mu serializes boundary calls that swap the C allocations
	// against the pointer/length queries.
	mu   sync.Mutex
	sess = letui.NewSession(nil)

	cellMem   unsafe.Pointer // current grid backing words
	frameMem  unsafe.Pointer // flattened frame list
	framevals int
)

// init_buffer sizes the current and previous grids to the terminal and
// snapshots them so the first flush is a no-op. Returns 1 on success.
//
//export init_buffer
func init_buffer() C.int {
	mu.Lock()
	defer mu.Unlock()

	// Best effort: when stdout is not a terminal the screen keeps its
	// 80x24 fallback rather than failing outright.
	_ = sess.RefreshSize()

	if cellMem == nil {
		cellMem = C.calloc(letui.MaxBufferWords, C.size_t(unsafe.Sizeof(C.uint64_t(0))))
		if cellMem == nil {
			return 0
		}
	}
	words := unsafe.Slice((*uint64)(cellMem), letui.MaxBufferWords)
	if err := sess.AllocateBufferWords(words); err != nil {
		return 0
	}
	return 1
}

// init_letui enters the alternate screen and raw mode.
//
//export init_letui
func init_letui() C.int {
	mu.Lock()
	defer mu.Unlock()
	if err := sess.EnterScreen(); err != nil {
		return 0
	}
	return 1
}

// deinit_letui leaves the alternate screen and restores the terminal.
//
//export deinit_letui
func deinit_letui() C.int {
	mu.Lock()
	defer mu.Unlock()
	if err := sess.LeaveScreen(); err != nil {
		return 0
	}
	return 1
}

//export get_width
func get_width() C.uint16_t {
	mu.Lock()
	defer mu.Unlock()
	return C.uint16_t(sess.Width())
}

//export get_height
func get_height() C.uint16_t {
	mu.Lock()
	defer mu.Unlock()
	return C.uint16_t(sess.Height())
}

// update_terminal_size re-queries the terminal dimensions.
//
//export update_terminal_size
func update_terminal_size() C.int {
	mu.Lock()
	defer mu.Unlock()
	if err := sess.RefreshSize(); err != nil {
		return 0
	}
	return 1
}

// flush diff-renders the current grid to the terminal and promotes it
// to the previous grid. Flush before init_buffer is a successful no-op.
//
//export flush
func flush() C.int {
	mu.Lock()
	defer mu.Unlock()
	if err := sess.Flush(); err != nil {
		return 0
	}
	return 1
}

// get_buffer_ptr returns the current grid's word buffer, NULL before
// init_buffer or after free_buffer. Valid until the next init_buffer or
// free_buffer call.
//
//export get_buffer_ptr
func get_buffer_ptr() *C.uint64_t {
	mu.Lock()
	defer mu.Unlock()
	if sess.BufferWords() == nil {
		return nil
	}
	return (*C.uint64_t)(cellMem)
}

// get_buffer_len returns the buffer's word count, 0 when unallocated.
//
//export get_buffer_len
func get_buffer_len() C.uint64_t {
	mu.Lock()
	defer mu.Unlock()
	return C.uint64_t(sess.BufferLen())
}

// free_buffer releases both grids and the frame list and resets the
// terminal to default colors with a full clear.
//
//export free_buffer
func free_buffer() C.int {
	mu.Lock()
	defer mu.Unlock()

	err := sess.ReleaseBuffer()
	if cellMem != nil {
		C.free(cellMem)
		cellMem = nil
	}
	if frameMem != nil {
		C.free(frameMem)
		frameMem = nil
		framevals = 0
	}
	if err != nil {
		return 0
	}
	return 1
}

// calculate_layout solves the layout request at (p, l) and replaces the
// frame list. A rejected request returns 0 and keeps the previous frame
// list valid.
//
//export calculate_layout
func calculate_layout(p *C.uint8_t, l C.uint32_t) C.int {
	mu.Lock()
	defer mu.Unlock()

	if p == nil || l == 0 {
		return 0
	}
	payload := C.GoBytes(unsafe.Pointer(p), C.int(l))
	if err := sess.ComputeLayout(payload); err != nil {
		return 0
	}

	frames := sess.Frames()
	mem := C.malloc(C.size_t(len(frames)) * C.size_t(unsafe.Sizeof(C.float(0))))
	if mem == nil {
		return 0
	}
	copy(unsafe.Slice((*float32)(mem), len(frames)), frames)

	if frameMem != nil {
		C.free(frameMem)
	}
	frameMem = mem
	framevals = len(frames)
	return 1
}

// get_frames_ptr returns the flattened frame list: 4 floats per node,
// pre-order. NULL before the first calculate_layout. Valid until the
// next calculate_layout or free_buffer call.
//
//export get_frames_ptr
func get_frames_ptr() *C.float {
	mu.Lock()
	defer mu.Unlock()
	return (*C.float)(frameMem)
}

// get_frames_len returns the float count of the frame list.
//
//export get_frames_len
func get_frames_len() C.uint64_t {
	mu.Lock()
	defer mu.Unlock()
	return C.uint64_t(framevals)
}

// debug_buffer returns the word at idx of the current grid, 0 when out
// of range or unallocated.
//
//export debug_buffer
func debug_buffer(idx C.uint64_t) C.uint64_t {
	mu.Lock()
	defer mu.Unlock()
	words := sess.BufferWords()
	if words == nil || int(idx) >= len(words) {
		return 0
	}
	return C.uint64_t(words[idx])
}

func main() {}
