// Package inspect renders the box structure of a buffer as a tree, without
// interpreting any box's payload. It drives the generic reader the same way
// a demuxer would: probe a top-level box, then descend into the container
// types whose bodies are themselves box sequences.
package inspect

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/lz9168/shaka-packager/pkg/mp4"
)

// Node is one box in an inspection tree.
type Node struct {
	Type       string  `json:"type"`
	Offset     int64   `json:"offset"`
	Size       uint64  `json:"size"`
	HeaderOnly bool    `json:"header_only,omitempty"`
	Children   []*Node `json:"children,omitempty"`
}

// Container box types whose bodies are a flat sequence of child boxes.
var containers = map[mp4.FourCC]bool{
	mp4.FourCCMOOV: true,
	mp4.FourCCTRAK: true,
	mp4.FourCCEDTS: true,
	mp4.FourCCMDIA: true,
	mp4.FourCCMINF: true,
	mp4.FourCCDINF: true,
	mp4.FourCCSTBL: true,
	mp4.FourCCMVEX: true,
	mp4.FourCCMOOF: true,
	mp4.FourCCTRAF: true,
	mp4.FourCCMFRA: true,
	mp4.FourCCUDTA: true,
	mp4.FourCCSINF: true,
	mp4.FourCCSCHI: true,
}

// TopLevel lists the top-level boxes of data without descending into them.
// A trailing mdat whose payload is not buffered is reported header-only;
// any other truncation or inconsistency returns the nodes walked so far
// alongside the error.
func TopLevel(data []byte) ([]*Node, error) {
	var nodes []*Node
	var offset int64
	rest := data
	for len(rest) > 0 {
		typ, size, err := mp4.StartTopLevelBox(rest)
		if err != nil {
			return nodes, fmt.Errorf("top-level box at offset %d: %w", offset, err)
		}
		node := &Node{Type: typ.String(), Offset: offset, Size: size}
		nodes = append(nodes, node)
		if size > uint64(len(rest)) {
			if typ == mp4.FourCCMDAT {
				node.HeaderOnly = true
				break
			}
			return nodes, fmt.Errorf("box %s at offset %d: %w", typ, offset, mp4.ErrNotEnoughData)
		}
		rest = rest[size:]
		offset += int64(size)
	}
	return nodes, nil
}

// Tree walks every top-level box of data, recursing into containers. As
// with TopLevel, nodes walked before a failure are returned with the error.
func Tree(data []byte) ([]*Node, error) {
	var nodes []*Node
	var offset int64
	rest := data
	for len(rest) > 0 {
		r, err := mp4.ReadTopLevelBox(rest)
		if err != nil {
			return nodes, fmt.Errorf("top-level box at offset %d: %w", offset, err)
		}
		node := &Node{Type: r.Type().String(), Offset: offset, Size: r.BoxSize()}
		headerLen := r.Pos()
		if containers[r.Type()] {
			var kids []rawNode
			if err := mp4.ReadAllChildren[rawNode](r, &kids); err != nil {
				return nodes, fmt.Errorf("inside %s at offset %d: %w", node.Type, offset, err)
			}
			cur := offset + int64(headerLen)
			for i := range kids {
				node.Children = append(node.Children, kids[i].finalize(cur))
				cur += int64(kids[i].node.Size)
			}
		}
		nodes = append(nodes, node)
		if r.BoxSize() > uint64(r.Size()) {
			// Header-only mdat tail: nothing follows in this buffer.
			node.HeaderOnly = true
			break
		}
		rest = rest[r.BoxSize():]
		offset += int64(r.BoxSize())
	}
	return nodes, nil
}

// rawNode captures any child box and recurses into known containers.
type rawNode struct {
	node      *Node
	headerLen int
	kids      []rawNode
}

// BoxType is unused: rawNode is consumed positionally via ReadAllChildren,
// never looked up by type.
func (*rawNode) BoxType() mp4.FourCC { return 0 }

func (n *rawNode) Parse(r *mp4.BoxReader) error {
	n.node = &Node{Type: r.Type().String(), Size: r.BoxSize()}
	n.headerLen = r.Pos()
	if containers[r.Type()] {
		return mp4.ReadAllChildren[rawNode](r, &n.kids)
	}
	return nil
}

// finalize assigns absolute offsets now that the subtree's extents are
// known: children sit back to back after their parent's header.
func (n *rawNode) finalize(base int64) *Node {
	n.node.Offset = base
	cur := base + int64(n.headerLen)
	for i := range n.kids {
		n.node.Children = append(n.node.Children, n.kids[i].finalize(cur))
		cur += int64(n.kids[i].node.Size)
	}
	return n.node
}

// EncodeJSON renders a tree as indented JSON.
func EncodeJSON(nodes []*Node) ([]byte, error) {
	return json.MarshalIndent(nodes, "", "  ")
}

// WriteText renders a tree in the two-space-indented text form the CLI
// prints.
func WriteText(w io.Writer, nodes []*Node) {
	for _, n := range nodes {
		writeNode(w, n, 0)
	}
}

func writeNode(w io.Writer, n *Node, depth int) {
	fmt.Fprintf(w, "%s%s offset=%d size=%d", strings.Repeat("  ", depth), n.Type, n.Offset, n.Size)
	if n.HeaderOnly {
		fmt.Fprint(w, " (payload not buffered)")
	}
	fmt.Fprintln(w)
	for _, c := range n.Children {
		writeNode(w, c, depth+1)
	}
}
