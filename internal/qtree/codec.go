// Public domain.

package qtree

import (
	"bytes"
	"io"

	"github.com/goccy/go-json"

	"github.com/soniakeys/apass/internal/sphere"
)

// wireNode is a node as written.  A leaf's payload is marshaled on its own
// and its fields are merged into the same JSON object.
type wireNode struct {
	Rect     sphere.Rect       `json:"rect"`
	Depth    int               `json:"depth"`
	Children []json.RawMessage `json:"children"`
}

// Encode writes t as nested JSON objects.  Parent links are not written.
// L must marshal to a JSON object.
func (t *Tree[L]) Encode(w io.Writer) error {
	b, err := t.marshalNode(0)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return Error.Wrap(err)
}

func (t *Tree[L]) marshalNode(n int) ([]byte, error) {
	nd := &t.Nodes[n]
	wn := wireNode{Rect: nd.Rect, Depth: nd.Depth, Children: []json.RawMessage{}}
	for _, c := range nd.Children {
		b, err := t.marshalNode(c)
		if err != nil {
			return nil, err
		}
		wn.Children = append(wn.Children, b)
	}
	b, err := json.Marshal(wn)
	if err != nil || !nd.IsLeaf() {
		return b, Error.Wrap(err)
	}
	lb, err := json.Marshal(nd.Leaf)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	lb = bytes.TrimSpace(lb)
	if len(lb) < 2 || lb[0] != '{' {
		return nil, Error.New("leaf payload %s is not an object", lb)
	}
	if len(bytes.TrimSpace(lb[1:len(lb)-1])) == 0 {
		return b, nil
	}
	merged := append(b[:len(b)-1:len(b)-1], ',')
	return append(merged, lb[1:]...), nil
}

// Decode reads a tree written by Encode.  Leaf payloads are unmarshaled
// from the same objects that hold the node fields, so L should not use the
// keys rect, depth or children.
func Decode[L any](r io.Reader) (*Tree[L], error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	t := &Tree[L]{Nodes: []Node[L]{{}}}
	if err := t.unmarshalNode(0, b); err != nil {
		return nil, err
	}
	if t.Nodes[0].Depth != 0 {
		return nil, Error.New("root depth %d", t.Nodes[0].Depth)
	}
	t.link()
	return t, nil
}

func (t *Tree[L]) unmarshalNode(n int, b []byte) error {
	var wn wireNode
	if err := json.Unmarshal(b, &wn); err != nil {
		return Error.Wrap(err)
	}
	t.Nodes[n].Rect = wn.Rect
	t.Nodes[n].Depth = wn.Depth
	switch len(wn.Children) {
	case 0:
		return Error.Wrap(json.Unmarshal(b, &t.Nodes[n].Leaf))
	case 4:
	default:
		return Error.New("node at depth %d has %d children", wn.Depth, len(wn.Children))
	}
	first := len(t.Nodes)
	t.Nodes = append(t.Nodes, make([]Node[L], 4)...)
	t.Nodes[n].Children = []int{first, first + 1, first + 2, first + 3}
	for i, cb := range wn.Children {
		if err := t.unmarshalNode(first+i, cb); err != nil {
			return err
		}
		if d := t.Nodes[first+i].Depth; d != wn.Depth+1 {
			return Error.New("child depth %d under depth %d", d, wn.Depth)
		}
	}
	return nil
}
