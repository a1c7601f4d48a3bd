package letui

import "github.com/mattn/go-runewidth"

// Box layout in three passes over the arena:
//
// Measure (bottom-up): content sizes from text intrinsics and child sums.
// Arrange (top-down): forced root size, cross-axis stretch, grow
// distribution or proportional shrink, absolute positions accumulated
// parent-to-child.
// Flatten: one (x,y,w,h) frame per node in arena order, which is
// pre-order by construction.

// frame is a node's resolved absolute position and size.
type frame struct {
	x, y float32
	w, h float32
}

// Solve computes the layout under the tree's own root constraint and
// returns the flattened frame list: 4 float32 per node, pre-order.
func (t *Tree) Solve() []float32 {
	return t.SolveSize(t.width, t.height)
}

// SolveSize computes the layout with the root forced to the given size.
// Solving is pure: identical inputs produce bit-identical output.
func (t *Tree) SolveSize(width, height float32) []float32 {
	if len(t.nodes) == 0 {
		return nil
	}

	frames := make([]frame, len(t.nodes))
	t.measure(0, frames)

	// The root is sized exactly to the constraint, children or not.
	frames[0].w = width
	frames[0].h = height
	t.arrange(0, 0, 0, frames)

	out := make([]float32, 0, len(frames)*4)
	for i := range frames {
		out = append(out, frames[i].x, frames[i].y, frames[i].w, frames[i].h)
	}
	return out
}

// measure fills frames with content-derived sizes, post-order. A text
// or button leaf measures as (character count, 1); containers sum
// children along the main axis and take the max across it. Gap counts
// between siblings only; padding and border expand both axes.
func (t *Tree) measure(i int16, frames []frame) {
	n := &t.nodes[i]

	var w, h float32
	if n.FirstChild < 0 {
		if n.Kind == NodeText || n.Kind == NodeButton {
			w = float32(runewidth.StringWidth(n.Text))
			h = 1
		}
	} else {
		horizontal := n.Kind != NodeColumn
		var main, cross float32
		count := 0
		for c := n.FirstChild; c >= 0; c = t.nodes[c].NextSib {
			t.measure(c, frames)
			cm, cc := frames[c].w, frames[c].h
			if !horizontal {
				cm, cc = frames[c].h, frames[c].w
			}
			main += cm
			if cc > cross {
				cross = cc
			}
			count++
		}
		if count > 1 {
			main += n.Gap * float32(count-1)
		}
		if horizontal {
			w, h = main, cross
		} else {
			w, h = cross, main
		}
		// Text content still sets a minimum when a text/button node
		// carries children.
		if n.Kind == NodeText || n.Kind == NodeButton {
			if tw := float32(runewidth.StringWidth(n.Text)); tw > w {
				w = tw
			}
			if h < 1 {
				h = 1
			}
		}
	}

	frames[i].w = w + 2*(n.PadX+n.Border)
	frames[i].h = h + 2*(n.PadY+n.Border)
}

// arrange assigns the node's absolute position and finalizes its
// children's sizes and positions, pre-order. Row/Column containers
// stretch children across the cross axis, split positive leftover
// main-axis space by grow factor, and shrink children proportionally
// to their main sizes (floored at zero) when content overflows the
// inner box; other kinds keep measured child sizes and lay them out
// row-wise.
func (t *Tree) arrange(i int16, x, y float32, frames []frame) {
	n := &t.nodes[i]
	frames[i].x = x
	frames[i].y = y

	if n.FirstChild < 0 {
		return
	}

	inX := x + n.Border + n.PadX
	inY := y + n.Border + n.PadY
	inW := frames[i].w - 2*(n.Border+n.PadX)
	inH := frames[i].h - 2*(n.Border+n.PadY)
	if inW < 0 {
		inW = 0
	}
	if inH < 0 {
		inH = 0
	}

	horizontal := n.Kind != NodeColumn
	flex := n.Kind == NodeRow || n.Kind == NodeColumn

	var sumMain, totalGrow float32
	count := 0
	for c := n.FirstChild; c >= 0; c = t.nodes[c].NextSib {
		if horizontal {
			sumMain += frames[c].w
		} else {
			sumMain += frames[c].h
		}
		totalGrow += t.nodes[c].Grow
		count++
	}
	if count > 1 {
		sumMain += n.Gap * float32(count-1)
	}

	innerMain := inW
	if !horizontal {
		innerMain = inH
	}
	leftover := innerMain - sumMain
	// Gaps are not shrinkable; overflow is absorbed by the children
	// alone, in proportion to their main sizes.
	childMainTotal := sumMain
	if count > 1 {
		childMainTotal -= n.Gap * float32(count-1)
	}

	var cursor float32
	for c := n.FirstChild; c >= 0; c = t.nodes[c].NextSib {
		cw, ch := frames[c].w, frames[c].h
		if flex {
			if leftover > 0 && totalGrow > 0 {
				extra := leftover * t.nodes[c].Grow / totalGrow
				if horizontal {
					cw += extra
				} else {
					ch += extra
				}
			} else if leftover < 0 && childMainTotal > 0 {
				main := cw
				if !horizontal {
					main = ch
				}
				shrink := -leftover * main / childMainTotal
				if shrink > main {
					shrink = main
				}
				if horizontal {
					cw -= shrink
				} else {
					ch -= shrink
				}
			}
			// Forced stretch on the cross axis.
			if horizontal {
				ch = inH
			} else {
				cw = inW
			}
		}
		frames[c].w, frames[c].h = cw, ch

		if horizontal {
			t.arrange(c, inX+cursor, inY, frames)
			cursor += cw + n.Gap
		} else {
			t.arrange(c, inX, inY+cursor, frames)
			cursor += ch + n.Gap
		}
	}
}
