package snippet

import (
	"fmt"
	"sort"
	"strings"

	"graft/internal/graph"
)

// ParamSlot locates the placeholder(s) of one runtime parameter inside a
// template graph. Either Single or Vararg is populated. A NoNodeID entry
// means the placeholder was eliminated as dead during specialization; the
// corresponding argument is accepted and ignored at instantiation.
type ParamSlot struct {
	IsVararg bool
	Single   graph.NodeID
	Vararg   []graph.NodeID
}

// Template is the specialization result: an immutable, duplicable graph
// fragment. The entry scaffolding (Start) is removed; Entry points at the
// first retained fixed node. Once published into the cache a template is
// shared read-only across threads and never mutated.
type Template struct {
	Name  string
	Graph *graph.Graph
	Entry graph.NodeID

	// Params maps runtime parameter names to their placeholders.
	Params map[string]ParamSlot

	// Single-exit structure. Terminal is the retained Return node whose
	// duplicate is spliced out at instantiation; ReturnProducer is its
	// operand, NoNodeID for templates with no return value.
	Terminal       graph.NodeID
	ReturnProducer graph.NodeID

	// At most one of each; NoNodeID when absent. Mutually exclusive with
	// ExitJumps per the exit-structure invariant.
	SideEffect graph.NodeID
	Stamp      graph.NodeID

	// Multi-exit structure: jump nodes grouped by logical successor index.
	ExitJumps map[int32][]graph.NodeID
}

// MultiExit reports whether the template terminates through exit jumps.
func (t *Template) MultiExit() bool { return len(t.ExitJumps) > 0 }

// Retained returns the duplicable node set.
func (t *Template) Retained() []graph.NodeID { return t.Graph.NodeIDs() }

// Signature summarizes the parameter-role table and exit structure in a
// stable textual form. Two templates specialized from equal keys always
// have equal signatures, whichever build won the cache race.
func (t *Template) Signature() string {
	var b strings.Builder
	b.WriteString(t.Name)

	names := make([]string, 0, len(t.Params))
	for name := range t.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		slot := t.Params[name]
		if slot.IsVararg {
			fmt.Fprintf(&b, "#%s:vararg/%d", name, len(slot.Vararg))
		} else {
			fmt.Fprintf(&b, "#%s:value", name)
		}
	}

	if t.MultiExit() {
		idxs := make([]int32, 0, len(t.ExitJumps))
		for idx := range t.ExitJumps {
			idxs = append(idxs, idx)
		}
		sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })
		for _, idx := range idxs {
			fmt.Fprintf(&b, "#exit%d*%d", idx, len(t.ExitJumps[idx]))
		}
	} else {
		b.WriteString("#single")
		if t.ReturnProducer != graph.NoNodeID {
			b.WriteString("+value")
		}
	}
	return b.String()
}
