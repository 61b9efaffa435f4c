package snippet

import (
	"graft/internal/diag"
	"graft/internal/graph"
)

// inlineInvoke replaces an invoke node in g with a duplicate of the callee's
// method graph. Callees must be single-exit; the invoke's operands substitute
// for the callee's parameter placeholders by position, so the duplicate never
// re-copies the shared callee graph state.
func inlineInvoke(g *graph.Graph, invokeID graph.NodeID, src *graph.Graph, callee *Method) error {
	inv := g.Node(invokeID)

	ret := graph.NoNodeID
	for _, id := range src.NodeIDs() {
		switch src.Kind(id) {
		case graph.NodeReturn:
			if ret != graph.NoNodeID {
				return faultf(diag.TplInlineNotEligible, callee.Name(), "", "callee has multiple returns")
			}
			ret = id
		case graph.NodeExitJump:
			return faultf(diag.TplInlineNotEligible, callee.Name(), "", "multi-exit callee cannot be inlined")
		}
	}
	if ret == graph.NoNodeID {
		return faultf(diag.TplInlineNotEligible, callee.Name(), "", "callee has no return")
	}

	seed := make(map[graph.NodeID]graph.NodeID)
	for i, p := range callee.Params() {
		ph := findParamNode(src, p.Name)
		if ph == graph.NoNodeID {
			continue
		}
		if i >= len(inv.In) {
			return faultf(diag.TplInlineNotEligible, callee.Name(), p.Name, "call passes %d operands for parameter %d", len(inv.In), i)
		}
		seed[ph] = inv.In[i]
	}

	start := src.Start()
	retained := make([]graph.NodeID, 0, len(src.NodeIDs()))
	for _, id := range src.NodeIDs() {
		if id != start {
			retained = append(retained, id)
		}
	}
	dup, err := graph.CopyInto(g, src, retained, seed)
	if err != nil {
		return faultf(diag.TplInlineNotEligible, callee.Name(), "", "duplicating callee: %v", err)
	}
	entryDup := dup[src.Node(start).Next]
	retDup := dup[ret]

	retVal := graph.NoNodeID
	if rn := src.Node(ret); len(rn.In) > 0 {
		retVal = dup[rn.In[0]]
	}
	if retVal == graph.NoNodeID && len(g.Uses(invokeID)) > 0 {
		return faultf(diag.TplInlineNotEligible, callee.Name(), "", "void callee but call result is used")
	}
	g.ReplaceUses(invokeID, retVal)

	next := inv.Next
	for _, p := range g.CtrlPreds(invokeID) {
		g.RedirectCtrl(p, invokeID, entryDup)
	}
	for _, p := range g.CtrlPreds(retDup) {
		g.RedirectCtrl(p, retDup, next)
	}
	g.Remove(retDup)
	g.Remove(invokeID)
	return nil
}
