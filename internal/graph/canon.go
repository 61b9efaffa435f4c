package graph

import (
	"graft/internal/kinds"
)

// canonMaxRounds bounds the fixpoint iteration. A graph that does not settle
// within this many rounds indicates a rewrite that undoes itself.
const canonMaxRounds = 100

// Canonicalize rewrites the graph to a normal form:
//  1. binary operations over constants fold to constants
//  2. gathers with a constant index fold to the selected element
//  3. branches on a constant condition fold to the taken successor
//  4. merges lose predecessors that became unreachable; single-predecessor
//     merges collapse, and their phis dissolve into the surviving value
//  5. phis whose value inputs all agree dissolve
//
// The passes run to a fixpoint. Unreachable fixed nodes are left for
// EliminateDeadCode; only merge bookkeeping is adjusted here.
func Canonicalize(g *Graph) {
	if g == nil {
		return
	}
	for round := 0; round < canonMaxRounds; round++ {
		changed := foldValues(g)
		changed = foldBranches(g) || changed
		changed = pruneMerges(g) || changed
		changed = simplifyPhis(g) || changed
		if !changed {
			return
		}
	}
}

func foldValues(g *Graph) bool {
	changed := false
	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		switch n.Kind {
		case NodeBinOp:
			l, r := g.Node(n.In[0]), g.Node(n.In[1])
			if l == nil || r == nil || l.Kind != NodeConst || r.Kind != NodeConst {
				continue
			}
			v, ok := evalBinOp(n.Op, l.Val, r.Val)
			if !ok {
				continue
			}
			// Morph in place so existing uses stay valid.
			*n = Node{Kind: NodeConst, Val: v, Out: v.Kind, Next: NoNodeID, State: NoState}
			changed = true
		case NodeGather:
			idx := g.Node(n.In[0])
			if idx == nil || idx.Kind != NodeConst {
				continue
			}
			i, err := idx.Val.AsInt64()
			if err != nil || i < 0 || int(i) >= len(n.In)-1 {
				continue
			}
			g.ReplaceUses(id, n.In[1+int(i)])
			g.Remove(id)
			changed = true
		}
	}
	return changed
}

func foldBranches(g *Graph) bool {
	changed := false
	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		if n.Kind != NodeIf {
			continue
		}
		cond := g.Node(n.In[0])
		if cond == nil || cond.Kind != NodeConst || cond.Val.Kind != kinds.KindBool {
			continue
		}
		taken := n.Succ[0]
		if !cond.Val.BoolValue {
			taken = n.Succ[1]
		}
		for _, p := range g.CtrlPreds(id) {
			g.RedirectCtrl(p, id, taken)
		}
		g.Remove(id)
		changed = true
	}
	return changed
}

// pruneMerges drops unreachable End predecessors from merges and collapses
// merges left with a single predecessor.
func pruneMerges(g *Graph) bool {
	start := g.Start()
	if start == NoNodeID {
		return false
	}
	reachable := reachableFixed(g, start)

	changed := false
	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		if !n.Kind.IsMergeLike() {
			continue
		}
		if !reachable[id] {
			continue
		}
		kept := make([]int, 0, len(n.In))
		for i, end := range n.In {
			if reachable[end] {
				kept = append(kept, i)
			}
		}
		if len(kept) < len(n.In) {
			newIn := make([]NodeID, len(kept))
			for i, k := range kept {
				newIn[i] = n.In[k]
			}
			for _, phiID := range g.Uses(id) {
				phi := g.Node(phiID)
				if phi.Kind != NodePhi || phi.In[0] != id {
					continue
				}
				vals := make([]NodeID, 0, len(kept)+1)
				vals = append(vals, id)
				for _, k := range kept {
					vals = append(vals, phi.In[1+k])
				}
				phi.In = vals
			}
			n.In = newIn
			changed = true
		}
		if len(n.In) == 1 {
			collapseMerge(g, id)
			changed = true
		}
	}
	return changed
}

// collapseMerge dissolves a single-predecessor merge: each phi becomes its
// only value, the End predecessor is spliced out, and control flows straight
// through to the merge's successor.
func collapseMerge(g *Graph, id NodeID) {
	n := g.Node(id)
	end := n.In[0]
	next := n.Next

	for _, phiID := range g.Uses(id) {
		phi := g.Node(phiID)
		if phi.Kind != NodePhi || phi.In[0] != id {
			continue
		}
		g.ReplaceUses(phiID, phi.In[1])
		g.Remove(phiID)
	}
	for _, p := range g.CtrlPreds(end) {
		g.RedirectCtrl(p, end, next)
	}
	g.Remove(end)
	g.Remove(id)
}

func simplifyPhis(g *Graph) bool {
	changed := false
	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		if n.Kind != NodePhi || len(n.In) < 2 {
			continue
		}
		same := true
		for _, v := range n.In[2:] {
			if v != n.In[1] {
				same = false
				break
			}
		}
		if !same {
			continue
		}
		g.ReplaceUses(id, n.In[1])
		g.Remove(id)
		changed = true
	}
	return changed
}

// reachableFixed walks the control chain from start and marks every fixed
// node it reaches.
func reachableFixed(g *Graph, start NodeID) map[NodeID]bool {
	reachable := make(map[NodeID]bool)
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
	visit(start)
	return reachable
}

// evalBinOp folds a binary operation over two boxed constants. Integer
// arithmetic wraps at the operand width, matching machine semantics.
func evalBinOp(op OpKind, a, b kinds.Value) (kinds.Value, bool) {
	if a.Kind != b.Kind {
		return kinds.Value{}, false
	}
	switch {
	case a.Kind.IsSigned():
		return evalSigned(op, a, b)
	case a.Kind.IsInteger():
		return evalUnsigned(op, a, b)
	case a.Kind == kinds.KindBool:
		return evalBool(op, a, b)
	}
	return kinds.Value{}, false
}

func evalSigned(op OpKind, a, b kinds.Value) (kinds.Value, bool) {
	x, y := a.IntValue, b.IntValue
	switch op {
	case OpAdd:
		return truncSigned(a.Kind, x+y), true
	case OpSub:
		return truncSigned(a.Kind, x-y), true
	case OpMul:
		return truncSigned(a.Kind, x*y), true
	case OpAnd:
		return truncSigned(a.Kind, x&y), true
	case OpOr:
		return truncSigned(a.Kind, x|y), true
	case OpXor:
		return truncSigned(a.Kind, x^y), true
	case OpShl:
		if y < 0 || y >= 64 {
			return kinds.Value{}, false
		}
		return truncSigned(a.Kind, x<<uint(y)), true
	case OpShr:
		if y < 0 || y >= 64 {
			return kinds.Value{}, false
		}
		return truncSigned(a.Kind, x>>uint(y)), true
	case OpLt:
		return boolValue(x < y), true
	case OpLe:
		return boolValue(x <= y), true
	case OpEq:
		return boolValue(x == y), true
	case OpNe:
		return boolValue(x != y), true
	}
	return kinds.Value{}, false
}

func evalUnsigned(op OpKind, a, b kinds.Value) (kinds.Value, bool) {
	x, y := a.UintValue, b.UintValue
	switch op {
	case OpAdd:
		return truncUnsigned(a.Kind, x+y), true
	case OpSub:
		return truncUnsigned(a.Kind, x-y), true
	case OpMul:
		return truncUnsigned(a.Kind, x*y), true
	case OpAnd:
		return truncUnsigned(a.Kind, x&y), true
	case OpOr:
		return truncUnsigned(a.Kind, x|y), true
	case OpXor:
		return truncUnsigned(a.Kind, x^y), true
	case OpShl:
		if y >= 64 {
			return kinds.Value{}, false
		}
		return truncUnsigned(a.Kind, x<<y), true
	case OpShr:
		if y >= 64 {
			return kinds.Value{}, false
		}
		return truncUnsigned(a.Kind, x>>y), true
	case OpLt:
		return boolValue(x < y), true
	case OpLe:
		return boolValue(x <= y), true
	case OpEq:
		return boolValue(x == y), true
	case OpNe:
		return boolValue(x != y), true
	}
	return kinds.Value{}, false
}

func evalBool(op OpKind, a, b kinds.Value) (kinds.Value, bool) {
	switch op {
	case OpAnd:
		return boolValue(a.BoolValue && b.BoolValue), true
	case OpOr:
		return boolValue(a.BoolValue || b.BoolValue), true
	case OpXor, OpNe:
		return boolValue(a.BoolValue != b.BoolValue), true
	case OpEq:
		return boolValue(a.BoolValue == b.BoolValue), true
	}
	return kinds.Value{}, false
}

func boolValue(b bool) kinds.Value {
	return kinds.Value{Kind: kinds.KindBool, BoolValue: b}
}

// truncSigned wraps a 64-bit result to the two's-complement range of kind.
func truncSigned(kind kinds.Kind, v int64) kinds.Value {
	if bits := kind.Bits(); bits < 64 {
		shift := uint(64 - bits)
		v = v << shift >> shift
	}
	return kinds.Value{Kind: kind, IntValue: v}
}

// truncUnsigned wraps a 64-bit result to the width of kind.
func truncUnsigned(kind kinds.Kind, v uint64) kinds.Value {
	if bits := kind.Bits(); bits < 64 {
		v &= (uint64(1) << bits) - 1
	}
	return kinds.Value{Kind: kind, UintValue: v}
}
