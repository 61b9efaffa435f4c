package snippet

import (
	"fmt"

	"graft/internal/diag"
	"graft/internal/graph"
	"graft/internal/kinds"
)

// Passes are the external graph-to-graph rewrites the builder drives.
// Nil members are skipped.
type Passes struct {
	// RewriteLowLevelTypes normalizes raw-memory and word operations.
	RewriteLowLevelTypes func(*graph.Graph)
	// Intrinsify replaces recognized calls with primitive graph operations.
	Intrinsify func(*graph.Graph)
}

// Options configures a Builder.
type Options struct {
	Passes Passes
	// MaxInlineRounds bounds repeated inlining sweeps per method build.
	// Zero means the default.
	MaxInlineRounds int
}

const defaultMaxInlineRounds = 16

// Builder turns template methods into specialized Templates. The method
// registry is populated once at startup and read-only afterwards, so a
// single Builder is safe for concurrent Specialize calls.
type Builder struct {
	passes          Passes
	maxInlineRounds int
	methods         map[string]*Method
}

// NewBuilder creates a builder with the given options.
func NewBuilder(opts Options) *Builder {
	rounds := opts.MaxInlineRounds
	if rounds <= 0 {
		rounds = defaultMaxInlineRounds
	}
	return &Builder{
		passes:          opts.Passes,
		maxInlineRounds: rounds,
		methods:         make(map[string]*Method),
	}
}

// Register adds a template method to the inlining registry.
func (b *Builder) Register(m *Method) error {
	if _, ok := b.methods[m.Name()]; ok {
		return faultf(diag.TplDuplicateMethod, m.Name(), "", "template method registered twice")
	}
	b.methods[m.Name()] = m
	return nil
}

// Lookup resolves a registered template method by name.
func (b *Builder) Lookup(name string) (*Method, bool) {
	m, ok := b.methods[name]
	return m, ok
}

// Build produces the normalized, unspecialized method graph.
func (b *Builder) Build(m *Method) (*graph.Graph, error) {
	return b.buildGraph(m, make(map[string]*graph.Graph), nil)
}

// buildGraph parses, intrinsifies, and recursively inlines a method graph.
// memo is scoped to one top-level build; stack carries the inlining chain
// for cycle detection.
func (b *Builder) buildGraph(m *Method, memo map[string]*graph.Graph, stack []string) (*graph.Graph, error) {
	if g, ok := memo[m.Name()]; ok {
		return g, nil
	}
	for _, name := range stack {
		if name == m.Name() {
			return nil, faultf(diag.TplInlineCycle, m.Name(), "", "template inlining cycle: %v", append(stack, m.Name()))
		}
	}
	stack = append(stack, m.Name())

	g, err := m.parse()
	if err != nil {
		return nil, fmt.Errorf("snippet %s: parse: %w", m.Name(), err)
	}
	if g == nil {
		return nil, fmt.Errorf("snippet %s: parser returned no graph", m.Name())
	}

	if b.passes.RewriteLowLevelTypes != nil {
		b.passes.RewriteLowLevelTypes(g)
	}
	if b.passes.Intrinsify != nil {
		b.passes.Intrinsify(g)
	}

	for round := 0; ; round++ {
		if round >= b.maxInlineRounds {
			return nil, faultf(diag.TplInlineCycle, m.Name(), "", "inlining did not settle after %d rounds", b.maxInlineRounds)
		}
		inlined := false
		for _, id := range g.NodeIDs() {
			n := g.Node(id)
			if n == nil || n.Kind != graph.NodeInvoke {
				continue
			}
			callee, ok := b.methods[n.Name]
			if !ok {
				// Not eligible for inlining; left for later lowering.
				continue
			}
			cg, err := b.buildGraph(callee, memo, stack)
			if err != nil {
				return nil, err
			}
			if err := inlineInvoke(g, id, cg, callee); err != nil {
				return nil, err
			}
			inlined = true
		}
		if !inlined {
			break
		}
		if b.passes.Intrinsify != nil {
			b.passes.Intrinsify(g)
		}
		graph.Canonicalize(g)
	}

	if b.passes.Intrinsify != nil {
		b.passes.Intrinsify(g)
	}
	if b.passes.RewriteLowLevelTypes != nil {
		b.passes.RewriteLowLevelTypes(g)
	}
	graph.EliminateDeadCode(g)
	graph.Canonicalize(g)
	graph.MarkLoopBackEdgesPollFree(g)

	if err := graph.Verify(g); err != nil {
		return nil, fmt.Errorf("snippet %s: malformed method graph: %w", m.Name(), err)
	}
	memo[m.Name()] = g
	return g, nil
}

// Specialize builds the Template for a key: constants bound, varargs
// expanded, marked loops fully unrolled, anchors scanned, and the result
// verified and packaged. The shared method graph is never mutated; all
// rewriting happens on a private duplicate.
func (b *Builder) Specialize(key *Key) (*Template, error) {
	m := key.Method()

	mg, err := b.buildGraph(m, make(map[string]*graph.Graph), nil)
	if err != nil {
		return nil, err
	}

	g := graph.New(m.Name())
	if _, err := graph.CopyInto(g, mg, mg.NodeIDs(), nil); err != nil {
		return nil, fmt.Errorf("snippet %s: duplicating method graph: %w", m.Name(), err)
	}

	if err := checkKeyBindings(m, key); err != nil {
		return nil, err
	}

	varargLens := make(map[string]int)
	for i, p := range m.Params() {
		switch m.Roles()[i] {
		case RoleConstant:
			if err := bindConstant(g, m, key, p); err != nil {
				return nil, err
			}
		case RoleVarargs:
			n, err := expandVararg(g, m, key, p)
			if err != nil {
				return nil, err
			}
			varargLens[p.Name] = n
		}
	}

	if b.passes.Intrinsify != nil {
		b.passes.Intrinsify(g)
	}
	graph.Canonicalize(g)

	for {
		markers := graph.UnrollMarkers(g)
		if len(markers) == 0 {
			break
		}
		loop, err := graph.DiscoverLoop(g, markers[0])
		if err != nil {
			return nil, faultf(diag.TplUnrollNotNatural, m.Name(), "", "%v", err)
		}
		if err := graph.FullyUnroll(g, loop); err != nil {
			return nil, faultf(diag.TplUnrollNonConstant, m.Name(), "", "%v", err)
		}
		graph.Canonicalize(g)
	}

	side, stamp, err := scanAnchors(g, m.Name())
	if err != nil {
		return nil, err
	}
	for _, id := range g.NodeIDs() {
		if n := g.Node(id); id != side && n.State != graph.NoState {
			n.State = graph.NoState
		}
	}

	graph.EliminateDeadCode(g)

	if err := graph.Verify(g); err != nil {
		return nil, fmt.Errorf("snippet %s: malformed template graph: %w", m.Name(), err)
	}
	return packageTemplate(g, m, key, varargLens, side, stamp)
}

func checkKeyBindings(m *Method, key *Key) error {
	for i, p := range m.Params() {
		role := m.Roles()[i]
		_, bound := key.Lookup(p.Name)
		switch {
		case bound && role == RoleValue:
			return faultf(diag.TplUnknownParam, m.Name(), p.Name, "key binds a runtime-value parameter")
		case !bound && (role == RoleConstant || role == RoleVarargs):
			return faultf(diag.TplArgMissing, m.Name(), p.Name, "key supplies no %s assignment", role)
		}
	}
	for name := range key.consts {
		if _, _, ok := m.Param(name); !ok {
			return faultf(diag.TplUnknownParam, m.Name(), name, "key binds an undeclared parameter")
		}
	}
	return nil
}

func bindConstant(g *graph.Graph, m *Method, key *Key, p ParamDecl) error {
	v, _ := key.Lookup(p.Name)
	if v.Kind != p.Kind {
		return faultf(diag.TplConstKindMismatch, m.Name(), p.Name, "bound %s, declared %s", v.Kind, p.Kind)
	}
	ph := findParamNode(g, p.Name)
	if ph == graph.NoNodeID {
		return nil // parameter unused by the body
	}
	c := g.AddConst(v)
	g.ReplaceUses(ph, c)
	g.Remove(ph)
	return nil
}

// expandVararg synthesizes per-index placeholders for an array parameter and
// rewrites every indexed load against the formal placeholder into a gather
// over the sequence. Returns the declared length baked into the key.
func expandVararg(g *graph.Graph, m *Method, key *Key, p ParamDecl) (int, error) {
	v, _ := key.Lookup(p.Name)
	if v.Kind != kinds.KindArray {
		return 0, faultf(diag.TplVarargShape, m.Name(), p.Name, "key binds %s, want an array", v.Kind)
	}
	if v.Elem != p.Elem {
		return 0, faultf(diag.TplVarargShape, m.Name(), p.Name, "element kind %s, declared %s", v.Elem, p.Elem)
	}
	n := len(v.Elems)

	ph := findParamNode(g, p.Name)
	if ph == graph.NoNodeID {
		return n, nil
	}
	seq := make([]graph.NodeID, n)
	for j := 0; j < n; j++ {
		seq[j] = g.AddParam(varargName(p.Name, j), p.Elem)
	}
	for _, use := range g.Uses(ph) {
		un := g.Node(use)
		if un.Kind != graph.NodeArrayLoad || un.In[0] != ph {
			continue
		}
		in := append([]graph.NodeID{un.In[1]}, seq...)
		*un = graph.Node{Kind: graph.NodeGather, In: in, Out: un.Out, Next: graph.NoNodeID, State: graph.NoState}
	}
	return n, nil
}

func scanAnchors(g *graph.Graph, template string) (side, stamp graph.NodeID, err error) {
	side, stamp = graph.NoNodeID, graph.NoNodeID
	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		if n.Flags&graph.FlagSideEffect != 0 {
			if side != graph.NoNodeID {
				return graph.NoNodeID, graph.NoNodeID,
					faultf(diag.TplDuplicateSideEffect, template, "", "nodes %d and %d both marked side-effecting", side, id)
			}
			side = id
		}
		if n.Flags&graph.FlagStamp != 0 {
			if stamp != graph.NoNodeID {
				return graph.NoNodeID, graph.NoNodeID,
					faultf(diag.TplDuplicateStamp, template, "", "nodes %d and %d both marked stamp-inheriting", stamp, id)
			}
			stamp = id
		}
	}
	return side, stamp, nil
}

func packageTemplate(g *graph.Graph, m *Method, key *Key, varargLens map[string]int, side, stamp graph.NodeID) (*Template, error) {
	// Every vararg access must have resolved to a per-index placeholder.
	for name := range varargLens {
		if findParamNode(g, name) != graph.NoNodeID {
			return nil, faultf(diag.TplVarargLeftover, m.Name(), name, "array placeholder survived specialization")
		}
	}
	for _, id := range g.NodeIDs() {
		if g.Kind(id) == graph.NodeGather {
			return nil, faultf(diag.TplVarargLeftover, m.Name(), "", "unresolved gather node %d", id)
		}
	}

	var returns, jumps []graph.NodeID
	for _, id := range g.NodeIDs() {
		switch g.Kind(id) {
		case graph.NodeReturn:
			returns = append(returns, id)
		case graph.NodeExitJump:
			jumps = append(jumps, id)
		}
	}
	if len(jumps) > 0 {
		if len(returns) > 0 {
			return nil, faultf(diag.TplExitStructure, m.Name(), "", "multi-exit template also has a return")
		}
		if side != graph.NoNodeID {
			return nil, faultf(diag.TplExitStructure, m.Name(), "", "multi-exit template carries a side-effect node")
		}
	} else if len(returns) != 1 {
		return nil, faultf(diag.TplExitStructure, m.Name(), "", "%d returns, want exactly 1", len(returns))
	}

	start := g.Start()
	entry := g.Node(start).Next
	g.Remove(start)

	params := make(map[string]ParamSlot)
	for i, p := range m.Params() {
		switch m.Roles()[i] {
		case RoleValue:
			params[p.Name] = ParamSlot{Single: findParamNode(g, p.Name)}
		case RoleVarargs:
			n := varargLens[p.Name]
			seq := make([]graph.NodeID, n)
			for j := 0; j < n; j++ {
				seq[j] = findParamNode(g, varargName(p.Name, j))
			}
			params[p.Name] = ParamSlot{IsVararg: true, Vararg: seq}
		}
	}

	tpl := &Template{
		Name:           key.String(),
		Graph:          g,
		Entry:          entry,
		Params:         params,
		Terminal:       graph.NoNodeID,
		ReturnProducer: graph.NoNodeID,
		SideEffect:     side,
		Stamp:          stamp,
	}
	if len(jumps) > 0 {
		tpl.ExitJumps = make(map[int32][]graph.NodeID)
		for _, id := range jumps {
			idx := g.Node(id).Index
			tpl.ExitJumps[idx] = append(tpl.ExitJumps[idx], id)
		}
	} else {
		tpl.Terminal = returns[0]
		if rn := g.Node(returns[0]); len(rn.In) > 0 {
			tpl.ReturnProducer = rn.In[0]
		}
	}
	return tpl, nil
}

func findParamNode(g *graph.Graph, name string) graph.NodeID {
	for _, id := range g.NodeIDs() {
		if n := g.Node(id); n.Kind == graph.NodeParam && n.Name == name {
			return id
		}
	}
	return graph.NoNodeID
}

func varargName(name string, i int) string {
	return fmt.Sprintf("%s[%d]", name, i)
}
