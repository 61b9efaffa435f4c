package graph

import (
	"fmt"
	"maps"
	"slices"
)

// CopyInto duplicates the retained nodes of src into dst in a single batch.
// seed pre-maps src IDs to existing dst nodes; any retained node that
// references a seeded ID resolves to the seeded replacement instead of a
// duplicate. The returned map covers the seed plus every duplicated node.
//
// Every edge out of a retained node must land on another retained node or on
// a seeded ID; a dangling edge is an error and dst is left untouched in that
// case (allocation happens only after the check passes).
func CopyInto(dst, src *Graph, retained []NodeID, seed map[NodeID]NodeID) (map[NodeID]NodeID, error) {
	out := make(map[NodeID]NodeID, len(seed)+len(retained))
	maps.Copy(out, seed)

	toCopy := make([]NodeID, 0, len(retained))
	for _, id := range retained {
		if _, seeded := out[id]; seeded {
			continue
		}
		if !src.Live(id) {
			return nil, fmt.Errorf("graph: retained node %d is not live in %s", id, src.Name)
		}
		toCopy = append(toCopy, id)
	}

	copySet := make(map[NodeID]struct{}, len(toCopy))
	for _, id := range toCopy {
		copySet[id] = struct{}{}
	}
	resolvable := func(id NodeID) bool {
		if id == NoNodeID {
			return true
		}
		if _, ok := out[id]; ok {
			return true
		}
		_, ok := copySet[id]
		return ok
	}
	for _, id := range toCopy {
		n := src.Node(id)
		for _, in := range n.In {
			if !resolvable(in) {
				return nil, fmt.Errorf("graph: node %d (%s) input %d escapes the retained set", id, n.Kind, in)
			}
		}
		if !resolvable(n.Next) {
			return nil, fmt.Errorf("graph: node %d (%s) successor %d escapes the retained set", id, n.Kind, n.Next)
		}
		for _, s := range n.Succ {
			if !resolvable(s) {
				return nil, fmt.Errorf("graph: node %d (%s) branch successor %d escapes the retained set", id, n.Kind, s)
			}
		}
	}

	// Allocate all slots first so forward references remap cleanly.
	for _, id := range toCopy {
		out[id] = dst.Add(Node{Kind: NodeNop, Next: NoNodeID, State: NoState})
	}

	remap := func(id NodeID) NodeID {
		if id == NoNodeID {
			return NoNodeID
		}
		return out[id]
	}
	for _, id := range toCopy {
		orig := src.Node(id)
		dup := *orig
		dup.In = make([]NodeID, len(orig.In))
		for i, in := range orig.In {
			dup.In[i] = remap(in)
		}
		dup.Next = remap(orig.Next)
		dup.Succ = make([]NodeID, len(orig.Succ))
		for i, s := range orig.Succ {
			dup.Succ[i] = remap(s)
		}
		dup.Val = orig.Val
		dup.Val.Elems = slices.Clone(orig.Val.Elems)
		*dst.Node(out[id]) = dup
	}
	return out, nil
}
