package graph

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a deterministic, human-readable rendering of the graph.
// One line per live node in arena order.
func Dump(w io.Writer, g *Graph) error {
	if w == nil || g == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "graph %s: nodes=%d\n", g.Name, len(g.NodeIDs())); err != nil {
		return err
	}
	for _, id := range g.NodeIDs() {
		if _, err := fmt.Fprintf(w, "  %s\n", FormatNode(g, id)); err != nil {
			return err
		}
	}
	return nil
}

// FormatNode renders one node as a single line.
func FormatNode(g *Graph, id NodeID) string {
	n := g.Node(id)
	if n == nil || n.Kind == NodeNop {
		return fmt.Sprintf("n%d: <cleared>", id)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "n%d: %s", id, n.Kind)

	switch n.Kind {
	case NodeConst:
		fmt.Fprintf(&b, " %s", n.Val)
	case NodeParam:
		fmt.Fprintf(&b, " %q %s", n.Name, n.Out)
	case NodeBinOp:
		fmt.Fprintf(&b, " %s", n.Op)
	case NodeInvoke:
		fmt.Fprintf(&b, " %q", n.Name)
	case NodeExitJump:
		fmt.Fprintf(&b, " idx=%d", n.Index)
	}

	if len(n.In) > 0 {
		b.WriteString(" in=[")
		for i, in := range n.In {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "n%d", in)
		}
		b.WriteByte(']')
	}
	if n.Next != NoNodeID {
		fmt.Fprintf(&b, " next=n%d", n.Next)
	}
	if len(n.Succ) > 0 {
		b.WriteString(" succ=[")
		for i, s := range n.Succ {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "n%d", s)
		}
		b.WriteByte(']')
	}
	if n.State != NoState {
		fmt.Fprintf(&b, " state=%d", n.State)
	}
	if n.Flags&FlagSideEffect != 0 {
		b.WriteString(" !side_effect")
	}
	if n.Flags&FlagStamp != 0 {
		b.WriteString(" !stamp")
	}
	if n.Flags&FlagNoPoll != 0 {
		b.WriteString(" !no_poll")
	}
	return b.String()
}
