package snippet

import (
	"errors"
	"testing"

	"graft/internal/diag"
	"graft/internal/graph"
	"graft/internal/kinds"
)

func mustMethod(t *testing.T, name string, params []ParamDecl, fn GraphFn) *Method {
	t.Helper()
	m, err := NewMethod(name, params, fn)
	if err != nil {
		t.Fatalf("NewMethod(%s): %v", name, err)
	}
	return m
}

func wantFault(t *testing.T, err error, code diag.Code) *Fault {
	t.Helper()
	if err == nil {
		t.Fatalf("want fault %s, got nil error", code)
	}
	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("want *Fault, got %T: %v", err, err)
	}
	if fault.Code != code {
		t.Fatalf("fault code = %s, want %s (%v)", fault.Code, code, err)
	}
	return fault
}

func constDecl(name string) ParamDecl {
	return ParamDecl{Name: name, Kind: kinds.KindInt64, Roles: []Role{RoleConstant}}
}

func valueDecl(name string) ParamDecl {
	return ParamDecl{Name: name, Kind: kinds.KindInt64, Roles: []Role{RoleValue}}
}

func varargDecl(name string) ParamDecl {
	return ParamDecl{Name: name, Kind: kinds.KindArray, Elem: kinds.KindInt64, Roles: []Role{RoleVarargs}}
}

func int64Value(t *testing.T, n int64) kinds.Value {
	t.Helper()
	v, err := kinds.Box(kinds.KindInt64, n)
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	return v
}

func arrayValue(t *testing.T, elems ...int64) kinds.Value {
	t.Helper()
	lits := make([]any, len(elems))
	for i, e := range elems {
		lits[i] = e
	}
	v, err := kinds.BoxArray(kinds.KindInt64, lits)
	if err != nil {
		t.Fatalf("BoxArray: %v", err)
	}
	return v
}

// addConstGraph returns: return a + b, with a meant to be constant-bound.
func addConstGraph() (*graph.Graph, error) {
	g := graph.New("addConst")
	start := g.AddStart()
	a := g.AddParam("a", kinds.KindInt64)
	b := g.AddParam("b", kinds.KindInt64)
	sum := g.AddBinOp(graph.OpAdd, a, b, kinds.KindInt64)
	ret := g.AddReturn(sum)
	g.Chain(start, ret)
	return g, nil
}

// addOneGraph returns: return a + 1, with a constant-bound.
func addOneGraph() (*graph.Graph, error) {
	g := graph.New("addOne")
	start := g.AddStart()
	a := g.AddParam("a", kinds.KindInt64)
	one := g.AddIntConst(1)
	sum := g.AddBinOp(graph.OpAdd, a, one, kinds.KindInt64)
	ret := g.AddReturn(sum)
	g.Chain(start, ret)
	return g, nil
}

// sumThreeGraph returns: return v[0] + v[1] + v[2] over a vararg parameter.
func sumThreeGraph() (*graph.Graph, error) {
	g := graph.New("sumThree")
	start := g.AddStart()
	v := g.AddParam("v", kinds.KindArray)
	l0 := g.AddArrayLoad(v, g.AddIntConst(0), kinds.KindInt64)
	l1 := g.AddArrayLoad(v, g.AddIntConst(1), kinds.KindInt64)
	l2 := g.AddArrayLoad(v, g.AddIntConst(2), kinds.KindInt64)
	s1 := g.AddBinOp(graph.OpAdd, l0, l1, kinds.KindInt64)
	s2 := g.AddBinOp(graph.OpAdd, s1, l2, kinds.KindInt64)
	ret := g.AddReturn(s2)
	g.Chain(start, ret)
	return g, nil
}

// identityGraph returns its runtime parameter unchanged: return b.
func identityGraph() (*graph.Graph, error) {
	g := graph.New("identity")
	start := g.AddStart()
	b := g.AddParam("b", kinds.KindInt64)
	ret := g.AddReturn(b)
	g.Chain(start, ret)
	return g, nil
}

// doubleGraph returns: return b * 2.
func doubleGraph() (*graph.Graph, error) {
	g := graph.New("double")
	start := g.AddStart()
	b := g.AddParam("b", kinds.KindInt64)
	two := g.AddIntConst(2)
	mul := g.AddBinOp(graph.OpMul, b, two, kinds.KindInt64)
	ret := g.AddReturn(mul)
	g.Chain(start, ret)
	return g, nil
}

// guardedGraph returns a single-exit diamond with a side-effecting trap on
// the zero path: if b == 0 { trap(); 0 } else { rawOp(b) }.
func guardedGraph() (*graph.Graph, error) {
	g := graph.New("guarded")
	start := g.AddStart()
	b := g.AddParam("b", kinds.KindInt64)
	zero := g.AddIntConst(0)
	isZero := g.AddBinOp(graph.OpEq, b, zero, kinds.KindBool)

	trap := g.AddInvoke("runtime.trap", kinds.KindVoid)
	g.Node(trap).Flags |= graph.FlagSideEffect
	op := g.AddInvoke("runtime.rawOp", kinds.KindInt64, b)
	g.Node(op).Flags |= graph.FlagStamp

	br := g.AddIf(isZero, trap, op)
	endT := g.AddEnd(graph.NoNodeID)
	endO := g.AddEnd(graph.NoNodeID)
	merge := g.AddMerge(endT, endO)
	phi := g.AddPhi(merge, kinds.KindInt64, zero, op)
	ret := g.AddReturn(phi)
	g.Chain(start, br)
	g.Chain(trap, endT)
	g.Chain(op, endO)
	g.Chain(merge, ret)
	return g, nil
}

// twoWayExitGraph is a multi-exit body: zero and even values leave through
// exit 0 (two separate jumps), odd values through exit 1.
func twoWayExitGraph() (*graph.Graph, error) {
	g := graph.New("twoWayExit")
	start := g.AddStart()
	b := g.AddParam("b", kinds.KindInt64)
	zero := g.AddIntConst(0)
	one := g.AddIntConst(1)

	jumpZero := g.AddExitJump(0)
	jumpEven := g.AddExitJump(0)
	jumpOdd := g.AddExitJump(1)

	isZero := g.AddBinOp(graph.OpEq, b, zero, kinds.KindBool)
	low := g.AddBinOp(graph.OpAnd, b, one, kinds.KindInt64)
	isEven := g.AddBinOp(graph.OpEq, low, zero, kinds.KindBool)

	brEven := g.AddIf(isEven, jumpEven, jumpOdd)
	brZero := g.AddIf(isZero, jumpZero, brEven)
	g.Chain(start, brZero)
	return g, nil
}

func specialize(t *testing.T, b *Builder, key *Key) *Template {
	t.Helper()
	tpl, err := b.Specialize(key)
	if err != nil {
		t.Fatalf("Specialize(%s): %v", key.String(), err)
	}
	return tpl
}
