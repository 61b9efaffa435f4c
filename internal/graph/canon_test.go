package graph

import (
	"testing"

	"graft/internal/kinds"
)

func TestCanonicalizeFoldsConstBinOp(t *testing.T) {
	g := New("fold")
	start := g.AddStart()
	c5 := g.AddIntConst(5)
	c1 := g.AddIntConst(1)
	add := g.AddBinOp(OpAdd, c5, c1, kinds.KindInt64)
	ret := g.AddReturn(add)
	g.Chain(start, ret)

	Canonicalize(g)

	n := g.Node(add)
	if n.Kind != NodeConst {
		t.Fatalf("add node kind = %s, want const", n.Kind)
	}
	if n.Val.IntValue != 6 {
		t.Fatalf("folded value = %d, want 6", n.Val.IntValue)
	}
	if got := g.Node(ret).In[0]; got != add {
		t.Fatalf("return producer moved to %d, want %d (in-place morph)", got, add)
	}
}

func TestCanonicalizeFoldsCompareAndWraps(t *testing.T) {
	tests := []struct {
		name string
		op   OpKind
		kind kinds.Kind
		a, b int64
		want kinds.Value
	}{
		{"lt true", OpLt, kinds.KindInt64, 3, 5, kinds.Value{Kind: kinds.KindBool, BoolValue: true}},
		{"eq false", OpEq, kinds.KindInt64, 3, 5, kinds.Value{Kind: kinds.KindBool, BoolValue: false}},
		{"i8 wraps", OpAdd, kinds.KindInt8, 127, 1, kinds.Value{Kind: kinds.KindInt8, IntValue: -128}},
		{"mul", OpMul, kinds.KindInt64, 6, 7, kinds.Value{Kind: kinds.KindInt64, IntValue: 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.name)
			start := g.AddStart()
			a := g.AddConst(kinds.Value{Kind: tt.kind, IntValue: tt.a})
			b := g.AddConst(kinds.Value{Kind: tt.kind, IntValue: tt.b})
			op := g.AddBinOp(tt.op, a, b, tt.kind)
			ret := g.AddReturn(op)
			g.Chain(start, ret)

			Canonicalize(g)

			n := g.Node(op)
			if n.Kind != NodeConst {
				t.Fatalf("op kind = %s, want const", n.Kind)
			}
			if !n.Val.Equal(tt.want) {
				t.Fatalf("folded value = %s, want %s", n.Val, tt.want)
			}
		})
	}
}

func TestCanonicalizeFoldsConstBranch(t *testing.T) {
	g := New("branch")
	start := g.AddStart()
	cond := g.AddBoolConst(true)
	a := g.AddIntConst(10)
	b := g.AddIntConst(20)

	merge := g.Add(Node{Kind: NodeMerge})
	endA := g.AddEnd(merge)
	endB := g.AddEnd(merge)
	g.Node(merge).In = []NodeID{endA, endB}
	br := g.AddIf(cond, endA, endB)
	phi := g.AddPhi(merge, kinds.KindInt64, a, b)
	ret := g.AddReturn(phi)
	g.Chain(start, br)
	g.Chain(merge, ret)

	Canonicalize(g)

	if g.Live(br) {
		t.Fatalf("constant branch survived canonicalization")
	}
	if g.Live(merge) {
		t.Fatalf("single-predecessor merge survived canonicalization")
	}
	if got := g.Node(ret).In[0]; got != a {
		t.Fatalf("return producer = %d, want taken-side const %d", got, a)
	}
	if got := g.Node(start).Next; got != ret {
		t.Fatalf("start.Next = %d, want %d after the diamond dissolved", got, ret)
	}
}

func TestCanonicalizeSimplifiesAgreeingPhi(t *testing.T) {
	g := New("phi")
	start := g.AddStart()
	cond := g.AddParam("c", kinds.KindBool)
	v := g.AddIntConst(7)

	merge := g.Add(Node{Kind: NodeMerge})
	endA := g.AddEnd(merge)
	endB := g.AddEnd(merge)
	g.Node(merge).In = []NodeID{endA, endB}
	br := g.AddIf(cond, endA, endB)
	phi := g.AddPhi(merge, kinds.KindInt64, v, v)
	ret := g.AddReturn(phi)
	g.Chain(start, br)
	g.Chain(merge, ret)

	Canonicalize(g)

	if g.Live(phi) {
		t.Fatalf("phi with agreeing inputs survived")
	}
	if got := g.Node(ret).In[0]; got != v {
		t.Fatalf("return producer = %d, want %d", got, v)
	}
	// The branch is not constant, so the diamond itself must stay.
	if !g.Live(br) || !g.Live(merge) {
		t.Fatalf("non-constant diamond was removed")
	}
}

func TestCanonicalizeFoldsGatherWithConstIndex(t *testing.T) {
	g := New("gather")
	start := g.AddStart()
	p0 := g.AddParam("v[0]", kinds.KindInt64)
	p1 := g.AddParam("v[1]", kinds.KindInt64)
	idx := g.AddIntConst(1)
	gather := g.Add(Node{Kind: NodeGather, In: []NodeID{idx, p0, p1}, Out: kinds.KindInt64})
	ret := g.AddReturn(gather)
	g.Chain(start, ret)

	Canonicalize(g)

	if g.Live(gather) {
		t.Fatalf("gather with constant index survived")
	}
	if got := g.Node(ret).In[0]; got != p1 {
		t.Fatalf("return producer = %d, want selected element %d", got, p1)
	}
}
