package graph

import (
	"slices"

	"graft/internal/kinds"
)

// Graph is an arena of nodes addressed by stable NodeIDs. Nodes reference
// each other only through IDs; cross-graph references are never created.
//
// Convention: the Start node occupies slot 0, so a zero Next field can be
// normalized to NoNodeID on insertion (no control edge ever targets Start).
type Graph struct {
	Name  string
	nodes []Node
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{Name: name, nodes: make([]Node, 0, 16)}
}

// Add appends a node and returns its ID.
func (g *Graph) Add(n Node) NodeID {
	if n.Next == 0 {
		n.Next = NoNodeID
	}
	if n.State == 0 {
		n.State = NoState
	}
	g.nodes = append(g.nodes, n)
	return NodeID(len(g.nodes) - 1) //nolint:gosec // G115: arena length bounded
}

// Node returns a mutable pointer to the node, or nil for invalid IDs.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return &g.nodes[id]
}

// Len returns the arena size including cleared slots.
func (g *Graph) Len() int { return len(g.nodes) }

// Kind returns the node kind, or NodeNop for invalid IDs.
func (g *Graph) Kind(id NodeID) NodeKind {
	n := g.Node(id)
	if n == nil {
		return NodeNop
	}
	return n.Kind
}

// Remove clears a node slot. The ID is never reused.
func (g *Graph) Remove(id NodeID) {
	n := g.Node(id)
	if n == nil {
		return
	}
	*n = Node{Kind: NodeNop, Next: NoNodeID, State: NoState}
}

// Live reports whether the slot holds a node.
func (g *Graph) Live(id NodeID) bool { return g.Kind(id) != NodeNop }

// NodeIDs returns the IDs of all live nodes in arena order.
func (g *Graph) NodeIDs() []NodeID {
	out := make([]NodeID, 0, len(g.nodes))
	for i := range g.nodes {
		if g.nodes[i].Kind != NodeNop {
			out = append(out, NodeID(i)) //nolint:gosec // G115: arena length bounded
		}
	}
	return out
}

// Start returns the unique NodeStart, or NoNodeID.
func (g *Graph) Start() NodeID {
	for i := range g.nodes {
		if g.nodes[i].Kind == NodeStart {
			return NodeID(i) //nolint:gosec // G115: arena length bounded
		}
	}
	return NoNodeID
}

// Uses returns every live node whose value inputs include id.
// Control edges (Next/Succ) do not count as uses.
func (g *Graph) Uses(id NodeID) []NodeID {
	var out []NodeID
	for i := range g.nodes {
		n := &g.nodes[i]
		if n.Kind == NodeNop {
			continue
		}
		if slices.Contains(n.In, id) {
			out = append(out, NodeID(i)) //nolint:gosec // G115: arena length bounded
		}
	}
	return out
}

// ReplaceUses rewrites every value input referencing old to new.
func (g *Graph) ReplaceUses(old, new NodeID) {
	for i := range g.nodes {
		n := &g.nodes[i]
		if n.Kind == NodeNop {
			continue
		}
		for j := range n.In {
			if n.In[j] == old {
				n.In[j] = new
			}
		}
	}
}

// CtrlPreds returns the control predecessors of a fixed node: every live node
// whose Next or Succ entries point at id.
func (g *Graph) CtrlPreds(id NodeID) []NodeID {
	var out []NodeID
	for i := range g.nodes {
		n := &g.nodes[i]
		if !n.Kind.IsFixed() {
			continue
		}
		if n.Next == id || slices.Contains(n.Succ, id) {
			out = append(out, NodeID(i)) //nolint:gosec // G115: arena length bounded
		}
	}
	return out
}

// RedirectCtrl rewrites pred's control edges targeting from so they target to.
func (g *Graph) RedirectCtrl(pred, from, to NodeID) {
	n := g.Node(pred)
	if n == nil {
		return
	}
	if n.Next == from {
		n.Next = to
	}
	for i := range n.Succ {
		if n.Succ[i] == from {
			n.Succ[i] = to
		}
	}
}

// SpliceOut removes a non-branch fixed node from the control chain,
// reconnecting its predecessors to its successor, then clears the slot.
func (g *Graph) SpliceOut(id NodeID) {
	n := g.Node(id)
	if n == nil || !n.Kind.IsFixed() || n.Kind.IsBranch() {
		return
	}
	next := n.Next
	for _, p := range g.CtrlPreds(id) {
		g.RedirectCtrl(p, id, next)
	}
	g.Remove(id)
}

// Constructors. Snippet bodies and tests build graphs through these.

// AddStart appends the entry node.
func (g *Graph) AddStart() NodeID {
	return g.Add(Node{Kind: NodeStart})
}

// AddConst appends a boxed constant node.
func (g *Graph) AddConst(v kinds.Value) NodeID {
	return g.Add(Node{Kind: NodeConst, Val: v, Out: v.Kind})
}

// AddIntConst boxes n as int64 and appends it. Panics on box failure, which
// cannot happen for int64.
func (g *Graph) AddIntConst(n int64) NodeID {
	v, err := kinds.Box(kinds.KindInt64, n)
	if err != nil {
		panic(err)
	}
	return g.AddConst(v)
}

// AddBoolConst appends a boolean constant node.
func (g *Graph) AddBoolConst(b bool) NodeID {
	v, err := kinds.Box(kinds.KindBool, b)
	if err != nil {
		panic(err)
	}
	return g.AddConst(v)
}

// AddParam appends a named placeholder of the given kind.
func (g *Graph) AddParam(name string, kind kinds.Kind) NodeID {
	return g.Add(Node{Kind: NodeParam, Name: name, Out: kind})
}

// AddBinOp appends a pure binary operation.
func (g *Graph) AddBinOp(op OpKind, left, right NodeID, out kinds.Kind) NodeID {
	if op.IsCompare() {
		out = kinds.KindBool
	}
	return g.Add(Node{Kind: NodeBinOp, Op: op, In: []NodeID{left, right}, Out: out})
}

// AddReturn appends a return terminal. Pass NoNodeID for a void return.
func (g *Graph) AddReturn(value NodeID) NodeID {
	n := Node{Kind: NodeReturn}
	if value != NoNodeID {
		n.In = []NodeID{value}
	}
	return g.Add(n)
}

// AddExitJump appends a multi-exit terminal tagged with a successor index.
func (g *Graph) AddExitJump(index int32) NodeID {
	return g.Add(Node{Kind: NodeExitJump, Index: index})
}

// AddIf appends a two-way branch. Successors are wired afterwards.
func (g *Graph) AddIf(cond NodeID, then, els NodeID) NodeID {
	return g.Add(Node{Kind: NodeIf, In: []NodeID{cond}, Succ: []NodeID{then, els}})
}

// AddEnd appends an End edge feeding the given merge. Pass NoNodeID when the
// merge is built afterwards via AddMerge or AddLoopBegin.
func (g *Graph) AddEnd(merge NodeID) NodeID {
	return g.Add(Node{Kind: NodeEnd, Next: merge})
}

// AddMerge appends a merge over the given End predecessors, in phi order,
// and points each of them at the new merge.
func (g *Graph) AddMerge(ends ...NodeID) NodeID {
	id := g.Add(Node{Kind: NodeMerge, In: slices.Clone(ends)})
	for _, e := range ends {
		if n := g.Node(e); n != nil {
			n.Next = id
		}
	}
	return id
}

// AddLoopBegin appends a loop header over a forward and a back edge End,
// pointing both at the new header.
func (g *Graph) AddLoopBegin(fwd, back NodeID) NodeID {
	id := g.Add(Node{Kind: NodeLoopBegin, In: []NodeID{fwd, back}})
	for _, e := range []NodeID{fwd, back} {
		if n := g.Node(e); n != nil {
			n.Next = id
		}
	}
	return id
}

// AddPhi appends a phi over the merge's predecessors.
func (g *Graph) AddPhi(merge NodeID, out kinds.Kind, values ...NodeID) NodeID {
	in := append([]NodeID{merge}, values...)
	return g.Add(Node{Kind: NodePhi, In: in, Out: out})
}

// AddArrayLoad appends an indexed load against an array-valued input.
func (g *Graph) AddArrayLoad(array, index NodeID, out kinds.Kind) NodeID {
	return g.Add(Node{Kind: NodeArrayLoad, In: []NodeID{array, index}, Out: out})
}

// AddUnrollMarker appends an unroll request on the control chain.
func (g *Graph) AddUnrollMarker() NodeID {
	return g.Add(Node{Kind: NodeUnrollMarker})
}

// AddInvoke appends a call to a named snippet method.
func (g *Graph) AddInvoke(callee string, out kinds.Kind, args ...NodeID) NodeID {
	return g.Add(Node{Kind: NodeInvoke, Name: callee, In: slices.Clone(args), Out: out})
}

// Chain wires a sequence of non-branch fixed nodes through Next.
func (g *Graph) Chain(ids ...NodeID) {
	for i := 0; i+1 < len(ids); i++ {
		n := g.Node(ids[i])
		if n != nil {
			n.Next = ids[i+1]
		}
	}
}
