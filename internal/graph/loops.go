package graph

import (
	"fmt"
)

// unrollCap bounds the number of peeled iterations. Hitting the cap means
// the trip count never folded to false, which is an authoring bug.
const unrollCap = 1024

// Loop describes a discovered natural loop governed by an unroll marker.
type Loop struct {
	Marker  NodeID
	Header  NodeID // NodeLoopBegin
	Fwd     NodeID // forward End feeding the header
	Back    NodeID // back-edge End feeding the header
	ExitIf  NodeID // the header's exit check
	BodyIdx int    // which ExitIf successor continues the loop
}

// DiscoverLoop locates the loop governing an unroll marker. The loop must be
// a single-entry, single-back-edge natural loop whose header immediately
// performs the exit check; anything else is an error.
func DiscoverLoop(g *Graph, marker NodeID) (Loop, error) {
	m := g.Node(marker)
	if m == nil || m.Kind != NodeUnrollMarker {
		return Loop{}, fmt.Errorf("graph: node %d is not an unroll marker", marker)
	}

	// Walk the control chain upwards until the governing header appears.
	cur := marker
	header := NoNodeID
	for step := 0; step < g.Len(); step++ {
		preds := g.CtrlPreds(cur)
		if len(preds) != 1 {
			return Loop{}, fmt.Errorf("graph: unroll marker %d is not governed by a natural loop", marker)
		}
		p := preds[0]
		if g.Kind(p) == NodeLoopBegin {
			header = p
			break
		}
		if g.Kind(p) == NodeMerge {
			return Loop{}, fmt.Errorf("graph: unroll marker %d sits behind a merge, not a loop header", marker)
		}
		cur = p
	}
	if header == NoNodeID || g.Kind(header) != NodeLoopBegin {
		return Loop{}, fmt.Errorf("graph: no loop header above unroll marker %d", marker)
	}

	h := g.Node(header)
	if len(h.In) != 2 {
		return Loop{}, fmt.Errorf("graph: loop header %d has %d edges, want 2", header, len(h.In))
	}

	inside := reachableFromHeader(g, header)
	var fwd, back NodeID = NoNodeID, NoNodeID
	for _, end := range h.In {
		if inside[end] {
			if back != NoNodeID {
				return Loop{}, fmt.Errorf("graph: loop header %d has more than one back edge", header)
			}
			back = end
		} else {
			if fwd != NoNodeID {
				return Loop{}, fmt.Errorf("graph: loop header %d has more than one entry", header)
			}
			fwd = end
		}
	}
	if fwd == NoNodeID || back == NoNodeID {
		return Loop{}, fmt.Errorf("graph: loop header %d is not a single-entry single-back-edge loop", header)
	}

	exitIf := h.Next
	if g.Kind(exitIf) != NodeIf {
		return Loop{}, fmt.Errorf("graph: loop header %d does not start with an exit check", header)
	}
	bodyIdx := -1
	for i, s := range g.Node(exitIf).Succ {
		if reachesBackEdge(g, s, back, header) {
			bodyIdx = i
			break
		}
	}
	if bodyIdx < 0 {
		return Loop{}, fmt.Errorf("graph: exit check of loop %d never reaches the back edge", header)
	}

	return Loop{
		Marker:  marker,
		Header:  header,
		Fwd:     fwd,
		Back:    back,
		ExitIf:  exitIf,
		BodyIdx: bodyIdx,
	}, nil
}

// FullyUnroll peels a counted loop completely. The exit condition must fold
// to a constant for every iteration once the loop phis are substituted with
// their running values; loop bodies must be effect-free (only the unroll
// marker may sit on the body's control chain).
func FullyUnroll(g *Graph, loop Loop) error {
	h := g.Node(loop.Header)

	// Straight-line body walk: collect fixed nodes between the exit check's
	// body successor and the back edge.
	var bodyFixed []NodeID
	cur := g.Node(loop.ExitIf).Succ[loop.BodyIdx]
	for cur != loop.Back {
		n := g.Node(cur)
		if n == nil {
			return fmt.Errorf("graph: loop %d body chain broken at %d", loop.Header, cur)
		}
		if n.Kind != NodeUnrollMarker {
			return fmt.Errorf("graph: loop %d body contains fixed node %s; unrollable bodies must be effect-free", loop.Header, n.Kind)
		}
		bodyFixed = append(bodyFixed, cur)
		cur = n.Next
	}

	// Collect the loop phis and their init/back values.
	var phis []NodeID
	for _, use := range g.Uses(loop.Header) {
		if n := g.Node(use); n.Kind == NodePhi && n.In[0] == loop.Header {
			phis = append(phis, use)
		}
	}
	initIdx, backIdx := phiInputIndexes(h, loop.Fwd, loop.Back)

	cond := g.Node(loop.ExitIf).In[0]
	curVals := make(map[NodeID]NodeID, len(phis))
	for _, p := range phis {
		curVals[p] = g.Node(p).In[1+initIdx]
	}

	for iter := 0; ; iter++ {
		if iter > unrollCap {
			return fmt.Errorf("graph: loop %d exceeded the unroll cap of %d iterations", loop.Header, unrollCap)
		}
		condID, err := evalValue(g, cond, curVals, make(map[NodeID]NodeID))
		if err != nil {
			return fmt.Errorf("graph: loop %d: %w", loop.Header, err)
		}
		cn := g.Node(condID)
		if cn.Kind != NodeConst {
			return fmt.Errorf("graph: loop %d trip count is not a constant", loop.Header)
		}
		stay := cn.Val.BoolValue == (loop.BodyIdx == 0)
		if !stay {
			break
		}
		next := make(map[NodeID]NodeID, len(phis))
		for _, p := range phis {
			v, err := evalValue(g, g.Node(p).In[1+backIdx], curVals, make(map[NodeID]NodeID))
			if err != nil {
				return fmt.Errorf("graph: loop %d: %w", loop.Header, err)
			}
			next[p] = v
		}
		curVals = next
	}

	// Splice the loop out: final phi values flow to the exit region, control
	// skips straight from the loop's entry to the exit successor.
	exitTarget := g.Node(loop.ExitIf).Succ[1-loop.BodyIdx]
	for _, p := range phis {
		g.ReplaceUses(p, curVals[p])
		g.Remove(p)
	}
	for _, pred := range g.CtrlPreds(loop.Fwd) {
		g.RedirectCtrl(pred, loop.Fwd, exitTarget)
	}
	g.Remove(loop.Fwd)
	g.Remove(loop.Back)
	g.Remove(loop.ExitIf)
	g.Remove(loop.Header)
	for _, id := range bodyFixed {
		g.Remove(id)
	}
	return nil
}

// UnrollMarkers returns all live unroll markers in arena order.
func UnrollMarkers(g *Graph) []NodeID {
	var out []NodeID
	for _, id := range g.NodeIDs() {
		if g.Kind(id) == NodeUnrollMarker {
			out = append(out, id)
		}
	}
	return out
}

// MarkLoopBackEdgesPollFree flags every loop back edge as not requiring a
// safepoint poll. A pure optimization marker with no structural effect.
func MarkLoopBackEdgesPollFree(g *Graph) {
	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		if n.Kind != NodeLoopBegin {
			continue
		}
		inside := reachableFromHeader(g, id)
		for _, end := range n.In {
			if inside[end] {
				g.Node(end).Flags |= FlagNoPoll
			}
		}
	}
}

// phiInputIndexes maps the header's forward/back edges to phi input slots.
func phiInputIndexes(h *Node, fwd, back NodeID) (initIdx, backIdx int) {
	for i, end := range h.In {
		switch end {
		case fwd:
			initIdx = i
		case back:
			backIdx = i
		}
	}
	return initIdx, backIdx
}

// reachableFromHeader marks every fixed node reachable from the header's
// successors without re-entering the header.
func reachableFromHeader(g *Graph, header NodeID) map[NodeID]bool {
	reachable := map[NodeID]bool{header: true}
	var visit func(id NodeID)
	visit = func(id NodeID) {
		if id == NoNodeID || reachable[id] {
			return
		}
		n := g.Node(id)
		if n == nil || !n.Kind.IsFixed() {
			return
		}
		reachable[id] = true
		visit(n.Next)
		for _, s := range n.Succ {
			visit(s)
		}
	}
	h := g.Node(header)
	visit(h.Next)
	for _, s := range h.Succ {
		visit(s)
	}
	delete(reachable, header)
	return reachable
}

// reachesBackEdge reports whether the control chain from id reaches the back
// edge End without passing through the header.
func reachesBackEdge(g *Graph, id, back, header NodeID) bool {
	seen := make(map[NodeID]bool)
	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		if id == back {
			return true
		}
		if id == NoNodeID || id == header || seen[id] {
			return false
		}
		seen[id] = true
		n := g.Node(id)
		if n == nil || !n.Kind.IsFixed() {
			return false
		}
		if visit(n.Next) {
			return true
		}
		for _, s := range n.Succ {
			if visit(s) {
				return true
			}
		}
		return false
	}
	return visit(id)
}

// evalValue clones the value computation rooted at id with the given
// substitution applied, folding constants as it goes. Nodes untouched by the
// substitution are returned as-is rather than duplicated.
func evalValue(g *Graph, id NodeID, subst map[NodeID]NodeID, memo map[NodeID]NodeID) (NodeID, error) {
	if sub, ok := subst[id]; ok {
		return sub, nil
	}
	if m, ok := memo[id]; ok {
		return m, nil
	}
	n := g.Node(id)
	if n == nil {
		return NoNodeID, fmt.Errorf("value %d vanished during unrolling", id)
	}
	var out NodeID
	switch n.Kind {
	case NodeConst, NodeParam:
		out = id

	case NodeBinOp:
		l, err := evalValue(g, n.In[0], subst, memo)
		if err != nil {
			return NoNodeID, err
		}
		r, err := evalValue(g, n.In[1], subst, memo)
		if err != nil {
			return NoNodeID, err
		}
		if l == n.In[0] && r == n.In[1] {
			out = id
			break
		}
		ln, rn := g.Node(l), g.Node(r)
		if ln.Kind == NodeConst && rn.Kind == NodeConst {
			if v, ok := evalBinOp(n.Op, ln.Val, rn.Val); ok {
				out = g.AddConst(v)
				break
			}
		}
		out = g.AddBinOp(n.Op, l, r, n.Out)

	case NodeGather:
		idx, err := evalValue(g, n.In[0], subst, memo)
		if err != nil {
			return NoNodeID, err
		}
		if in := g.Node(idx); in.Kind == NodeConst {
			i, err := in.Val.AsInt64()
			if err == nil && i >= 0 && int(i) < len(n.In)-1 {
				return evalValue(g, n.In[1+int(i)], subst, memo)
			}
		}
		if idx == n.In[0] {
			out = id
			break
		}
		in := append([]NodeID{idx}, n.In[1:]...)
		out = g.Add(Node{Kind: NodeGather, In: in, Out: n.Out})

	case NodeArrayLoad:
		arr, err := evalValue(g, n.In[0], subst, memo)
		if err != nil {
			return NoNodeID, err
		}
		idx, err := evalValue(g, n.In[1], subst, memo)
		if err != nil {
			return NoNodeID, err
		}
		if arr == n.In[0] && idx == n.In[1] {
			out = id
			break
		}
		out = g.AddArrayLoad(arr, idx, n.Out)

	default:
		return NoNodeID, fmt.Errorf("unsupported %s node in unrollable loop body", n.Kind)
	}
	memo[id] = out
	return out, nil
}
