package letui

import (
	"encoding/json"
	"fmt"
	"math"
)

// NodeKind identifies the layout behavior of a node. Kind strings from
// the wire are resolved once at build time; everything downstream
// switches on the closed enum.
type NodeKind uint8

const (
	NodeGeneric NodeKind = iota
	NodeRow
	NodeColumn
	NodeText
	NodeButton
)

func kindOf(s string) NodeKind {
	switch s {
	case "row":
		return NodeRow
	case "column":
		return NodeColumn
	case "text":
		return NodeText
	case "button":
		return NodeButton
	default:
		return NodeGeneric
	}
}

// maxTreeNodes bounds the arena so indices fit in int16 links.
const maxTreeNodes = 1<<15 - 1

// StyleNode is one node of the layout tree, stored in a flat arena and
// addressed by index. Sibling order is kept with a FirstChild/LastChild/
// NextSib chain; -1 means none.
type StyleNode struct {
	Kind   NodeKind
	Gap    float32 // between siblings, main axis only
	PadX   float32 // symmetric left/right padding
	PadY   float32 // symmetric top/bottom padding
	Border float32 // symmetric on all four sides
	Grow   float32 // share of leftover main-axis space
	Text   string  // content, used by text/button kinds

	Parent     int16
	FirstChild int16
	LastChild  int16
	NextSib    int16
}

// Tree is an immutable layout tree plus its root constraint. Nodes are
// arena-ordered pre-order: a node always precedes its descendants, and
// children keep declaration order.
type Tree struct {
	nodes  []StyleNode
	width  float32
	height float32
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// wire structs mirror the boundary's JSON document.
type wireNode struct {
	Type     string     `json:"type"`
	Gap      float64    `json:"gap"`
	PaddingX float64    `json:"paddingX"`
	PaddingY float64    `json:"paddingY"`
	Border   float64    `json:"border"`
	Grow     float64    `json:"grow"`
	Text     string     `json:"text"`
	Children []wireNode `json:"children"`
}

type wireRequest struct {
	Node   wireNode `json:"node"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
}

// checkLength rejects negative or non-finite style lengths.
func checkLength(name string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid %s %g", name, v)
	}
	return nil
}

// ParseLayoutRequest deserializes a layout request into a node arena.
// It fails on malformed JSON, negative lengths, a non-positive root
// constraint, or a tree too large for the arena; a failed parse leaves
// no partial state behind.
func ParseLayoutRequest(payload []byte) (*Tree, error) {
	var req wireRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("malformed layout request: %w", err)
	}
	if !(req.Width > 0) || !(req.Height > 0) {
		return nil, fmt.Errorf("invalid root constraint %gx%g", req.Width, req.Height)
	}

	t := &Tree{
		nodes:  make([]StyleNode, 0, 16),
		width:  float32(req.Width),
		height: float32(req.Height),
	}
	if _, err := t.addNode(&req.Node, -1); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) addNode(w *wireNode, parent int16) (int16, error) {
	if len(t.nodes) >= maxTreeNodes {
		return -1, fmt.Errorf("layout tree exceeds %d nodes", maxTreeNodes)
	}
	if err := checkLength("gap", w.Gap); err != nil {
		return -1, err
	}
	if err := checkLength("paddingX", w.PaddingX); err != nil {
		return -1, err
	}
	if err := checkLength("paddingY", w.PaddingY); err != nil {
		return -1, err
	}
	if err := checkLength("border", w.Border); err != nil {
		return -1, err
	}
	if err := checkLength("grow", w.Grow); err != nil {
		return -1, err
	}

	idx := int16(len(t.nodes))
	t.nodes = append(t.nodes, StyleNode{
		Kind:       kindOf(w.Type),
		Gap:        float32(w.Gap),
		PadX:       float32(w.PaddingX),
		PadY:       float32(w.PaddingY),
		Border:     float32(w.Border),
		Grow:       float32(w.Grow),
		Text:       w.Text,
		Parent:     parent,
		FirstChild: -1,
		LastChild:  -1,
		NextSib:    -1,
	})

	for i := range w.Children {
		child, err := t.addNode(&w.Children[i], idx)
		if err != nil {
			return -1, err
		}
		if t.nodes[idx].FirstChild < 0 {
			t.nodes[idx].FirstChild = child
		} else {
			t.nodes[t.nodes[idx].LastChild].NextSib = child
		}
		t.nodes[idx].LastChild = child
	}
	return idx, nil
}
