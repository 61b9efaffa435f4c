package snippet

import (
	"graft/internal/graph"
)

// SiteKind selects the splicing protocol used at a replacement site.
type SiteKind uint8

const (
	// SiteFixed replaces a fixed node on the control chain with the
	// template's control and value content.
	SiteFixed SiteKind = iota
	// SiteAnchored replaces a floating value node, inserting the template's
	// control content after an explicit anchor node.
	SiteAnchored
	// SiteControlSplit replaces a branch node with a multi-exit template,
	// wiring exit jumps to the branch's logical successors.
	SiteControlSplit
)

func (k SiteKind) String() string {
	switch k {
	case SiteFixed:
		return "fixed"
	case SiteAnchored:
		return "anchored"
	case SiteControlSplit:
		return "control-split"
	}
	return "invalid"
}

// Site names the target-graph location a template instantiation replaces.
type Site struct {
	Kind   SiteKind
	Target *graph.Graph
	// Node is the replacee: a fixed node, a floating value, or a branch,
	// depending on Kind.
	Node graph.NodeID
	// Anchor is the fixed node the template body is inserted after.
	// SiteAnchored only.
	Anchor graph.NodeID
}

// FixedSite replaces the fixed node id in g.
func FixedSite(g *graph.Graph, id graph.NodeID) Site {
	return Site{Kind: SiteFixed, Target: g, Node: id}
}

// AnchoredSite replaces the floating node id in g, anchoring the template's
// control content after anchor.
func AnchoredSite(g *graph.Graph, id, anchor graph.NodeID) Site {
	return Site{Kind: SiteAnchored, Target: g, Node: id, Anchor: anchor}
}

// ControlSplitSite replaces the branch node id in g. The template's exit
// indices select among the branch's successors.
func ControlSplitSite(g *graph.Graph, id graph.NodeID) Site {
	return Site{Kind: SiteControlSplit, Target: g, Node: id}
}
