package graph

import (
	"errors"
	"fmt"
)

// Verify checks arena invariants. Returns a joined error listing every
// violation found, or nil.
func Verify(g *Graph) error {
	if g == nil {
		return nil
	}
	var errs []error

	starts := 0
	for _, id := range g.NodeIDs() {
		if g.Kind(id) == NodeStart {
			starts++
		}
	}
	if starts != 1 {
		errs = append(errs, fmt.Errorf("graph %s: %d start nodes, want 1", g.Name, starts))
	}

	valid := func(id NodeID) bool { return g.Live(id) }

	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		for _, in := range n.In {
			if !valid(in) {
				errs = append(errs, fmt.Errorf("node %d (%s): dangling input %d", id, n.Kind, in))
			}
		}

		switch {
		case n.Kind.IsTerminal():
			if n.Next != NoNodeID {
				errs = append(errs, fmt.Errorf("node %d (%s): terminal with a control successor", id, n.Kind))
			}
		case n.Kind.IsBranch():
			if len(n.Succ) != 2 {
				errs = append(errs, fmt.Errorf("node %d (%s): %d successors, want 2", id, n.Kind, len(n.Succ)))
			}
			for _, s := range n.Succ {
				if !valid(s) || !g.Kind(s).IsFixed() {
					errs = append(errs, fmt.Errorf("node %d (%s): bad branch successor %d", id, n.Kind, s))
				}
			}
		case n.Kind.IsFixed():
			if n.Next == NoNodeID {
				errs = append(errs, fmt.Errorf("node %d (%s): unterminated control chain", id, n.Kind))
			} else if !valid(n.Next) || !g.Kind(n.Next).IsFixed() {
				errs = append(errs, fmt.Errorf("node %d (%s): bad control successor %d", id, n.Kind, n.Next))
			}
		}

		switch n.Kind {
		case NodeEnd:
			if !g.Kind(n.Next).IsMergeLike() {
				errs = append(errs, fmt.Errorf("node %d: end does not feed a merge", id))
			}
		case NodeMerge, NodeLoopBegin:
			for _, end := range n.In {
				e := g.Node(end)
				if e == nil || e.Kind != NodeEnd {
					errs = append(errs, fmt.Errorf("node %d (%s): predecessor %d is not an end", id, n.Kind, end))
				} else if e.Next != id {
					errs = append(errs, fmt.Errorf("node %d (%s): end %d feeds a different merge", id, n.Kind, end))
				}
			}
		case NodePhi:
			if len(n.In) < 1 || !g.Kind(n.In[0]).IsMergeLike() {
				errs = append(errs, fmt.Errorf("node %d: phi not anchored at a merge", id))
			} else if m := g.Node(n.In[0]); len(n.In) != 1+len(m.In) {
				errs = append(errs, fmt.Errorf("node %d: phi has %d values for %d predecessors", id, len(n.In)-1, len(m.In)))
			}
		case NodeBinOp:
			if len(n.In) != 2 {
				errs = append(errs, fmt.Errorf("node %d: binop with %d inputs", id, len(n.In)))
			}
		case NodeIf:
			if len(n.In) != 1 {
				errs = append(errs, fmt.Errorf("node %d: if with %d inputs", id, len(n.In)))
			}
		case NodeParam:
			if n.Name == "" {
				errs = append(errs, fmt.Errorf("node %d: unnamed param", id))
			}
		}
	}

	return errors.Join(errs...)
}
