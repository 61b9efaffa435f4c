package snippet

import (
	"sort"

	"graft/internal/diag"
	"graft/internal/graph"
	"graft/internal/kinds"
)

type argKind uint8

const (
	argValue argKind = iota
	argLiteral
	argVararg
)

// Arg is one instantiation argument: an existing target-graph value, a
// literal to materialize as a constant, or a vararg element sequence.
type Arg struct {
	kind  argKind
	node  graph.NodeID
	lit   any
	elems []graph.NodeID
}

// ValueArg passes an existing node of the target graph.
func ValueArg(id graph.NodeID) Arg { return Arg{kind: argValue, node: id} }

// LiteralArg passes a literal, boxed to the placeholder's kind on the fly.
func LiteralArg(v any) Arg { return Arg{kind: argLiteral, lit: v} }

// VarargArg passes one target-graph value per expanded index.
func VarargArg(elems ...graph.NodeID) Arg { return Arg{kind: argVararg, elems: elems} }

// Arguments binds template parameter names to instantiation arguments.
type Arguments map[string]Arg

// Instantiate splices a duplicate of the template into the target graph at
// the site, replacing the site node. It returns the duplicated return
// producer (NoNodeID for templates without one). The whole call validates
// before it mutates: a returned fault leaves the target graph's live node
// set unchanged.
func Instantiate(t *Template, args Arguments, site Site) (graph.NodeID, error) {
	if err := checkSite(t, site); err != nil {
		return graph.NoNodeID, err
	}
	plan, err := planBindings(t, args, site.Target)
	if err != nil {
		return graph.NoNodeID, err
	}

	g := site.Target
	seed := make(map[graph.NodeID]graph.NodeID, len(plan))
	var minted []graph.NodeID
	for _, b := range plan {
		target := b.node
		if b.arg.kind == argLiteral {
			target = g.AddConst(b.val)
			minted = append(minted, target)
		}
		if b.placeholder != graph.NoNodeID {
			seed[b.placeholder] = target
		}
	}

	dup, err := graph.CopyInto(g, t.Graph, t.Retained(), seed)
	if err != nil {
		// CopyInto allocates nothing on failure; removing the minted
		// literal constants restores the live node set.
		for _, id := range minted {
			g.Remove(id)
		}
		return graph.NoNodeID, faultf(diag.TplSiteMismatch, t.Name, "", "duplicating template: %v", err)
	}

	switch site.Kind {
	case SiteFixed:
		return spliceFixed(t, g, site.Node, dup), nil
	case SiteAnchored:
		return spliceAnchored(t, g, site.Node, site.Anchor, dup), nil
	default:
		spliceControlSplit(t, g, site.Node, dup)
		return graph.NoNodeID, nil
	}
}

// checkSite validates the protocol against the template's exit structure and
// the shape of the site node.
func checkSite(t *Template, site Site) error {
	g := site.Target
	n := g.Node(site.Node)
	if n == nil || n.Kind == graph.NodeNop {
		return faultf(diag.TplSiteMismatch, t.Name, "", "site node %d is not live", site.Node)
	}

	switch site.Kind {
	case SiteFixed:
		if t.MultiExit() {
			return faultf(diag.TplSiteMismatch, t.Name, "", "multi-exit template at a fixed site")
		}
		if !n.Kind.IsFixed() || n.Kind.IsBranch() {
			return faultf(diag.TplSiteMismatch, t.Name, "", "fixed site node %d is %s", site.Node, n.Kind)
		}
	case SiteAnchored:
		if t.MultiExit() {
			return faultf(diag.TplSiteMismatch, t.Name, "", "multi-exit template at an anchored site")
		}
		if n.Kind.IsFixed() {
			return faultf(diag.TplSiteMismatch, t.Name, "", "anchored site node %d is fixed %s", site.Node, n.Kind)
		}
		a := g.Node(site.Anchor)
		if a == nil || !a.Kind.IsFixed() || a.Kind.IsBranch() || a.Kind.IsTerminal() {
			return faultf(diag.TplSiteMismatch, t.Name, "", "anchor %d cannot carry an inserted chain", site.Anchor)
		}
	case SiteControlSplit:
		if !t.MultiExit() {
			return faultf(diag.TplSiteMismatch, t.Name, "", "single-exit template at a control-split site")
		}
		if t.SideEffect != graph.NoNodeID {
			return faultf(diag.TplAnchorForbidden, t.Name, "", "control-split template carries a side-effect node")
		}
		if t.Stamp != graph.NoNodeID {
			return faultf(diag.TplAnchorForbidden, t.Name, "", "control-split template carries a stamp node")
		}
		if !n.Kind.IsBranch() {
			return faultf(diag.TplSiteMismatch, t.Name, "", "control-split site node %d is %s", site.Node, n.Kind)
		}
		for idx := range t.ExitJumps {
			if int(idx) >= len(n.Succ) {
				return faultf(diag.TplSiteMismatch, t.Name, "", "exit index %d but site has %d successors", idx, len(n.Succ))
			}
		}
	default:
		return faultf(diag.TplSiteMismatch, t.Name, "", "invalid site kind")
	}
	return nil
}

type binding struct {
	placeholder graph.NodeID
	arg         Arg
	node        graph.NodeID
	val         kinds.Value
}

// planBindings resolves every argument against the template's parameter
// slots without touching the target graph. Literals are boxed here so kind
// mismatches fault before any mutation.
func planBindings(t *Template, args Arguments, g *graph.Graph) ([]binding, error) {
	for name := range args {
		if _, ok := t.Params[name]; !ok {
			return nil, faultf(diag.TplUnknownParam, t.Name, name, "argument for undeclared parameter")
		}
	}

	var plan []binding
	for name, slot := range t.Params {
		arg, ok := args[name]
		if !ok {
			return nil, faultf(diag.TplArgMissing, t.Name, name, "no argument bound")
		}
		if slot.IsVararg {
			if arg.kind != argVararg {
				return nil, faultf(diag.TplArgKindMismatch, t.Name, name, "vararg parameter needs a vararg argument")
			}
			if len(arg.elems) != len(slot.Vararg) {
				return nil, faultf(diag.TplVarargLenMismatch, t.Name, name, "%d elements, template specialized for %d", len(arg.elems), len(slot.Vararg))
			}
			for i, ph := range slot.Vararg {
				if err := checkValueKind(t, name, g, arg.elems[i], ph); err != nil {
					return nil, err
				}
				plan = append(plan, binding{placeholder: ph, arg: Arg{kind: argValue}, node: arg.elems[i]})
			}
			continue
		}
		switch arg.kind {
		case argValue:
			if err := checkValueKind(t, name, g, arg.node, slot.Single); err != nil {
				return nil, err
			}
			plan = append(plan, binding{placeholder: slot.Single, arg: arg, node: arg.node})
		case argLiteral:
			if slot.Single == graph.NoNodeID {
				continue // placeholder eliminated as dead, argument ignored
			}
			want := t.Graph.Node(slot.Single).Out
			v, err := kinds.Box(want, arg.lit)
			if err != nil {
				return nil, faultf(diag.TplArgKindMismatch, t.Name, name, "%v", err)
			}
			plan = append(plan, binding{placeholder: slot.Single, arg: arg, val: v})
		default:
			return nil, faultf(diag.TplArgKindMismatch, t.Name, name, "vararg argument for scalar parameter")
		}
	}
	return plan, nil
}

func checkValueKind(t *Template, name string, g *graph.Graph, value, placeholder graph.NodeID) error {
	vn := g.Node(value)
	if vn == nil || vn.Kind == graph.NodeNop {
		return faultf(diag.TplArgKindMismatch, t.Name, name, "argument node %d is not live in the target graph", value)
	}
	if placeholder == graph.NoNodeID {
		return nil
	}
	want := t.Graph.Node(placeholder).Out
	if vn.Out != kinds.KindNone && want != kinds.KindNone && vn.Out != want {
		return faultf(diag.TplArgKindMismatch, t.Name, name, "argument kind %s, placeholder kind %s", vn.Out, want)
	}
	return nil
}

// spliceFixed implements the fixed-node replacement protocol: the replacee's
// control predecessors flow into the template entry, the duplicated terminal
// splices out to the replacee's successor, anchors inherit the replacee's
// state and stamp, and uses of the replacee see the return producer.
func spliceFixed(t *Template, g *graph.Graph, s graph.NodeID, dup map[graph.NodeID]graph.NodeID) graph.NodeID {
	sn := g.Node(s)
	next := sn.Next
	state := sn.State
	out := sn.Out

	entry := dup[t.Entry]
	term := dup[t.Terminal]
	for _, p := range g.CtrlPreds(s) {
		g.RedirectCtrl(p, s, entry)
	}
	g.Node(term).Next = next
	g.SpliceOut(term)

	propagateAnchors(t, g, dup, state, out)

	ret := graph.NoNodeID
	if t.ReturnProducer != graph.NoNodeID {
		ret = dup[t.ReturnProducer]
	}
	g.ReplaceUses(s, ret)
	g.Remove(s)
	return ret
}

// spliceAnchored implements the anchored floating-value protocol: the
// template's control content is inserted between the anchor and its
// successor, while the floating replacee is substituted by the return
// producer everywhere.
func spliceAnchored(t *Template, g *graph.Graph, s, anchor graph.NodeID, dup map[graph.NodeID]graph.NodeID) graph.NodeID {
	sn := g.Node(s)
	state := sn.State
	out := sn.Out

	an := g.Node(anchor)
	after := an.Next
	entry := dup[t.Entry]
	term := dup[t.Terminal]
	an.Next = entry
	g.Node(term).Next = after
	g.SpliceOut(term)

	propagateAnchors(t, g, dup, state, out)

	ret := graph.NoNodeID
	if t.ReturnProducer != graph.NoNodeID {
		ret = dup[t.ReturnProducer]
	}
	g.ReplaceUses(s, ret)
	g.Remove(s)
	return ret
}

// spliceControlSplit implements the control-split protocol: exit jumps are
// wired to the branch's logical successors, with a merge synthesized for any
// index reached by more than one jump, and the branch's predecessors flow
// into the template entry.
func spliceControlSplit(t *Template, g *graph.Graph, s graph.NodeID, dup map[graph.NodeID]graph.NodeID) {
	sn := g.Node(s)

	idxs := make([]int32, 0, len(t.ExitJumps))
	for idx := range t.ExitJumps {
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })

	for _, idx := range idxs {
		jumps := t.ExitJumps[idx]
		target := sn.Succ[idx]
		if len(jumps) == 1 {
			j := dup[jumps[0]]
			for _, p := range g.CtrlPreds(j) {
				g.RedirectCtrl(p, j, target)
			}
			g.Remove(j)
			continue
		}
		ends := make([]graph.NodeID, len(jumps))
		for i, jump := range jumps {
			j := dup[jump]
			e := g.AddEnd(graph.NoNodeID)
			for _, p := range g.CtrlPreds(j) {
				g.RedirectCtrl(p, j, e)
			}
			g.Remove(j)
			ends[i] = e
		}
		merge := g.AddMerge(ends...)
		g.Node(merge).Next = target
	}

	entry := dup[t.Entry]
	for _, p := range g.CtrlPreds(s) {
		g.RedirectCtrl(p, s, entry)
	}
	g.Remove(s)
}

// propagateAnchors transfers the replacee's recovery state onto the
// duplicated side-effect node and its result kind onto the stamp node.
func propagateAnchors(t *Template, g *graph.Graph, dup map[graph.NodeID]graph.NodeID, state int32, out kinds.Kind) {
	if t.SideEffect != graph.NoNodeID {
		g.Node(dup[t.SideEffect]).State = state
	}
	if t.Stamp != graph.NoNodeID && out != kinds.KindNone {
		g.Node(dup[t.Stamp]).Out = out
	}
}
