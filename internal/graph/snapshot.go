package graph

import (
	"fmt"

	"graft/internal/kinds"
)

// snapshotSchemaVersion is bumped whenever the snapshot layout changes.
const snapshotSchemaVersion uint16 = 1

// ValueSnap is the serializable form of a boxed constant.
type ValueSnap struct {
	Kind  uint8
	Bool  bool
	Int   int64
	Uint  uint64
	Float float64
	Elem  uint8
	Elems []ValueSnap
}

// NodeSnap is the serializable form of one arena slot. Cleared slots are
// preserved so NodeIDs survive a round trip unchanged.
type NodeSnap struct {
	Kind  uint8
	In    []int32
	Next  int32
	Succ  []int32
	Op    uint8
	Index int32
	Name  string
	State int32
	Flags uint8
	Out   uint8
	Val   ValueSnap
}

// Snapshot is a msgpack-friendly rendering of a whole graph.
type Snapshot struct {
	Schema uint16
	Name   string
	Nodes  []NodeSnap
}

// Snap converts the graph into its serializable form.
func Snap(g *Graph) *Snapshot {
	if g == nil {
		return nil
	}
	out := &Snapshot{Schema: snapshotSchemaVersion, Name: g.Name, Nodes: make([]NodeSnap, g.Len())}
	for i := range g.nodes {
		n := &g.nodes[i]
		ns := NodeSnap{
			Kind:  uint8(n.Kind),
			Next:  int32(n.Next),
			Op:    uint8(n.Op),
			Index: n.Index,
			Name:  n.Name,
			State: n.State,
			Flags: uint8(n.Flags),
			Out:   uint8(n.Out),
			Val:   snapValue(n.Val),
		}
		if len(n.In) > 0 {
			ns.In = make([]int32, len(n.In))
			for j, in := range n.In {
				ns.In[j] = int32(in)
			}
		}
		if len(n.Succ) > 0 {
			ns.Succ = make([]int32, len(n.Succ))
			for j, s := range n.Succ {
				ns.Succ[j] = int32(s)
			}
		}
		out.Nodes[i] = ns
	}
	return out
}

// Restore rebuilds a graph from its serializable form.
func Restore(s *Snapshot) (*Graph, error) {
	if s == nil {
		return nil, fmt.Errorf("graph: nil snapshot")
	}
	if s.Schema != snapshotSchemaVersion {
		return nil, fmt.Errorf("graph: snapshot schema %d, want %d", s.Schema, snapshotSchemaVersion)
	}
	g := &Graph{Name: s.Name, nodes: make([]Node, len(s.Nodes))}
	for i := range s.Nodes {
		ns := &s.Nodes[i]
		n := Node{
			Kind:  NodeKind(ns.Kind),
			Next:  NodeID(ns.Next),
			Op:    OpKind(ns.Op),
			Index: ns.Index,
			Name:  ns.Name,
			State: ns.State,
			Flags: NodeFlags(ns.Flags),
			Out:   kinds.Kind(ns.Out),
			Val:   restoreValue(ns.Val),
		}
		if len(ns.In) > 0 {
			n.In = make([]NodeID, len(ns.In))
			for j, in := range ns.In {
				n.In[j] = NodeID(in)
			}
		}
		if len(ns.Succ) > 0 {
			n.Succ = make([]NodeID, len(ns.Succ))
			for j, su := range ns.Succ {
				n.Succ[j] = NodeID(su)
			}
		}
		g.nodes[i] = n
	}
	return g, nil
}

func snapValue(v kinds.Value) ValueSnap {
	out := ValueSnap{
		Kind:  uint8(v.Kind),
		Bool:  v.BoolValue,
		Int:   v.IntValue,
		Uint:  v.UintValue,
		Float: v.FloatValue,
		Elem:  uint8(v.Elem),
	}
	if len(v.Elems) > 0 {
		out.Elems = make([]ValueSnap, len(v.Elems))
		for i, e := range v.Elems {
			out.Elems[i] = snapValue(e)
		}
	}
	return out
}

func restoreValue(s ValueSnap) kinds.Value {
	out := kinds.Value{
		Kind:       kinds.Kind(s.Kind),
		BoolValue:  s.Bool,
		IntValue:   s.Int,
		UintValue:  s.Uint,
		FloatValue: s.Float,
		Elem:       kinds.Kind(s.Elem),
	}
	if len(s.Elems) > 0 {
		out.Elems = make([]kinds.Value, len(s.Elems))
		for i, e := range s.Elems {
			out.Elems[i] = restoreValue(e)
		}
	}
	return out
}
