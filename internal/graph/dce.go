package graph

// EliminateDeadCode removes fixed nodes that are unreachable from Start and
// value nodes that no live node consumes. Placeholder params with no
// remaining uses are removed like any other value node; callers that track
// placeholders must tolerate their disappearance.
func EliminateDeadCode(g *Graph) {
	if g == nil {
		return
	}
	start := g.Start()
	if start == NoNodeID {
		return
	}
	fixedLive := reachableFixed(g, start)

	valueLive := make(map[NodeID]bool)
	var markValue func(id NodeID)
	markValue = func(id NodeID) {
		if id == NoNodeID || valueLive[id] {
			return
		}
		n := g.Node(id)
		if n == nil || n.Kind == NodeNop || n.Kind.IsFixed() {
			return
		}
		valueLive[id] = true
		for _, in := range n.In {
			markValue(in)
		}
	}
	for id, live := range fixedLive {
		if !live {
			continue
		}
		for _, in := range g.Node(id).In {
			markValue(in)
		}
	}

	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		if n.Kind.IsFixed() {
			if !fixedLive[id] {
				g.Remove(id)
			}
			continue
		}
		if !valueLive[id] {
			g.Remove(id)
		}
	}
}
