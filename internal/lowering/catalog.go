package lowering

import (
	"graft/internal/graph"
	"graft/internal/kinds"
	"graft/internal/snippet"
)

// Callee names left in lowered graphs for the backend runtime.
const (
	RawDivCallee  = "runtime.rawDiv"
	TrapDivCallee = "runtime.trapDivZero"
	// SumCallee marks call sites the lowerer expands into an unrolled
	// element-wise sum.
	SumCallee = "vector.sum"
)

// Catalog bundles the built-in lowering snippets with a shared builder and
// template cache. One Catalog serves all graphs of a compilation.
type Catalog struct {
	builder *snippet.Builder
	cache   *snippet.Cache

	divChecked *snippet.Method
	satAdd     *snippet.Method
	parity     *snippet.Method
	sum        *snippet.Method
}

// NewCatalog registers the built-in snippets with default engine options.
func NewCatalog() (*Catalog, error) {
	return NewCatalogWith(snippet.Options{})
}

// NewCatalogWith registers the built-in snippets over a builder configured by
// the caller, e.g. with manifest-supplied engine limits.
func NewCatalogWith(opts snippet.Options) (*Catalog, error) {
	c := &Catalog{builder: snippet.NewBuilder(opts)}
	c.cache = snippet.NewCache(c.builder)

	var err error
	c.divChecked, err = snippet.NewMethod("lower.divChecked",
		[]snippet.ParamDecl{
			{Name: "x", Kind: kinds.KindInt64, Roles: []snippet.Role{snippet.RoleValue}},
			{Name: "y", Kind: kinds.KindInt64, Roles: []snippet.Role{snippet.RoleValue}},
		}, divCheckedGraph)
	if err != nil {
		return nil, err
	}
	c.satAdd, err = snippet.NewMethod("lower.satAdd",
		[]snippet.ParamDecl{
			{Name: "x", Kind: kinds.KindInt64, Roles: []snippet.Role{snippet.RoleValue}},
			{Name: "y", Kind: kinds.KindInt64, Roles: []snippet.Role{snippet.RoleValue}},
		}, satAddGraph)
	if err != nil {
		return nil, err
	}
	c.parity, err = snippet.NewMethod("lower.parityBranch",
		[]snippet.ParamDecl{
			{Name: "x", Kind: kinds.KindInt64, Roles: []snippet.Role{snippet.RoleValue}},
		}, parityGraph)
	if err != nil {
		return nil, err
	}
	c.sum, err = snippet.NewMethod("lower.sum",
		[]snippet.ParamDecl{
			{Name: "vals", Kind: kinds.KindArray, Elem: kinds.KindInt64, Roles: []snippet.Role{snippet.RoleVarargs}},
			{Name: "n", Kind: kinds.KindInt64, Roles: []snippet.Role{snippet.RoleConstant}},
		}, sumGraph)
	if err != nil {
		return nil, err
	}

	for _, m := range []*snippet.Method{c.divChecked, c.satAdd, c.parity, c.sum} {
		if err := c.builder.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Cache exposes the shared template cache.
func (c *Catalog) Cache() *snippet.Cache { return c.cache }

// Builder exposes the shared builder.
func (c *Catalog) Builder() *snippet.Builder { return c.builder }

// SumKey builds the specialization key for an n-element sum.
func (c *Catalog) SumKey(n int) (*snippet.Key, error) {
	zeros := make([]any, n)
	for i := range zeros {
		zeros[i] = int64(0)
	}
	shape, err := kinds.BoxArray(kinds.KindInt64, zeros)
	if err != nil {
		return nil, err
	}
	count, err := kinds.Box(kinds.KindInt64, int64(n))
	if err != nil {
		return nil, err
	}
	return snippet.NewKey(c.sum).Bind("vals", shape).Bind("n", count), nil
}

// Keys enumerates the specialization keys the catalog can serve: one per
// scalar snippet plus one sum key per requested length.
func (c *Catalog) Keys(sumLengths []int) ([]*snippet.Key, error) {
	keys := []*snippet.Key{
		snippet.NewKey(c.divChecked),
		snippet.NewKey(c.satAdd),
		snippet.NewKey(c.parity),
	}
	for _, n := range sumLengths {
		k, err := c.SumKey(n)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// divCheckedGraph guards a division against a zero divisor: the zero path
// traps (the single side-effect anchor, inheriting the replacee's recovery
// state) and yields zero, the live path calls the raw division primitive.
func divCheckedGraph() (*graph.Graph, error) {
	g := graph.New("lower.divChecked")
	start := g.AddStart()
	x := g.AddParam("x", kinds.KindInt64)
	y := g.AddParam("y", kinds.KindInt64)
	zero := g.AddIntConst(0)

	isZero := g.AddBinOp(graph.OpEq, y, zero, kinds.KindBool)
	trap := g.AddInvoke(TrapDivCallee, kinds.KindVoid)
	g.Node(trap).Flags |= graph.FlagSideEffect
	div := g.AddInvoke(RawDivCallee, kinds.KindInt64, x, y)
	g.Node(div).Flags |= graph.FlagStamp

	br := g.AddIf(isZero, trap, div)
	endTrap := g.AddEnd(graph.NoNodeID)
	endDiv := g.AddEnd(graph.NoNodeID)
	merge := g.AddMerge(endTrap, endDiv)

	phi := g.AddPhi(merge, kinds.KindInt64, zero, div)
	ret := g.AddReturn(phi)
	g.Chain(start, br)
	g.Chain(trap, endTrap)
	g.Chain(div, endDiv)
	g.Chain(merge, ret)
	return g, nil
}

// satAddGraph clamps a signed 64-bit addition on overflow. Pure value
// computation around one diamond, no anchors.
func satAddGraph() (*graph.Graph, error) {
	g := graph.New("lower.satAdd")
	start := g.AddStart()
	x := g.AddParam("x", kinds.KindInt64)
	y := g.AddParam("y", kinds.KindInt64)
	zero := g.AddIntConst(0)

	sum := g.AddBinOp(graph.OpAdd, x, y, kinds.KindInt64)
	dx := g.AddBinOp(graph.OpXor, x, sum, kinds.KindInt64)
	dy := g.AddBinOp(graph.OpXor, y, sum, kinds.KindInt64)
	both := g.AddBinOp(graph.OpAnd, dx, dy, kinds.KindInt64)
	overflow := g.AddBinOp(graph.OpLt, both, zero, kinds.KindBool)

	// Sign of x selects which bound the sum saturates to.
	shift := g.AddIntConst(63)
	sign := g.AddBinOp(graph.OpShr, x, shift, kinds.KindInt64)
	maxC := g.AddIntConst(int64(^uint64(0) >> 1))
	sat := g.AddBinOp(graph.OpXor, sign, maxC, kinds.KindInt64)

	endSat := g.AddEnd(graph.NoNodeID)
	endOK := g.AddEnd(graph.NoNodeID)
	merge := g.AddMerge(endSat, endOK)
	br := g.AddIf(overflow, endSat, endOK)

	phi := g.AddPhi(merge, kinds.KindInt64, sat, sum)
	ret := g.AddReturn(phi)
	g.Chain(start, br)
	g.Chain(merge, ret)
	return g, nil
}

// parityGraph dispatches on an integer's parity: exit 0 for even (zero
// included, through its own jump), exit 1 for odd. Two jumps share exit 0,
// so instantiation synthesizes a merge there.
func parityGraph() (*graph.Graph, error) {
	g := graph.New("lower.parityBranch")
	start := g.AddStart()
	x := g.AddParam("x", kinds.KindInt64)
	zero := g.AddIntConst(0)
	one := g.AddIntConst(1)

	jumpZero := g.AddExitJump(0)
	jumpEven := g.AddExitJump(0)
	jumpOdd := g.AddExitJump(1)

	isZero := g.AddBinOp(graph.OpEq, x, zero, kinds.KindBool)
	low := g.AddBinOp(graph.OpAnd, x, one, kinds.KindInt64)
	isEven := g.AddBinOp(graph.OpEq, low, zero, kinds.KindBool)

	brEven := g.AddIf(isEven, jumpEven, jumpOdd)
	brZero := g.AddIf(isZero, jumpZero, brEven)
	g.Chain(start, brZero)
	return g, nil
}

// sumGraph adds up a vararg sequence with a counted loop. The trip count is
// the bound constant n, so the unroll marker peels the loop completely and
// the indexed loads resolve to per-index placeholders.
func sumGraph() (*graph.Graph, error) {
	g := graph.New("lower.sum")
	start := g.AddStart()
	vals := g.AddParam("vals", kinds.KindArray)
	n := g.AddParam("n", kinds.KindInt64)
	zero := g.AddIntConst(0)
	one := g.AddIntConst(1)

	fwd := g.AddEnd(graph.NoNodeID)
	back := g.AddEnd(graph.NoNodeID)
	header := g.AddLoopBegin(fwd, back)

	iPhi := g.AddPhi(header, kinds.KindInt64, zero, graph.NoNodeID)
	accPhi := g.AddPhi(header, kinds.KindInt64, zero, graph.NoNodeID)

	elem := g.AddArrayLoad(vals, iPhi, kinds.KindInt64)
	iNext := g.AddBinOp(graph.OpAdd, iPhi, one, kinds.KindInt64)
	accNext := g.AddBinOp(graph.OpAdd, accPhi, elem, kinds.KindInt64)
	g.Node(iPhi).In[2] = iNext
	g.Node(accPhi).In[2] = accNext

	marker := g.AddUnrollMarker()
	ret := g.AddReturn(accPhi)
	stay := g.AddBinOp(graph.OpLt, iPhi, n, kinds.KindBool)
	br := g.AddIf(stay, marker, ret)

	g.Chain(start, fwd)
	g.Chain(header, br)
	g.Chain(marker, back)
	return g, nil
}
