package graph

import (
	"graft/internal/kinds"
)

// NodeID addresses a node slot inside one Graph's arena. IDs are stable for
// the lifetime of the graph; removed nodes leave cleared slots behind.
type NodeID int32

// NoNodeID marks an absent node reference.
const NoNodeID NodeID = -1

// NoState marks an absent recovery/deopt state attachment.
const NoState int32 = -1

// NodeKind enumerates node kinds in the graph IR.
type NodeKind uint8

const (
	// NodeNop is a cleared arena slot.
	NodeNop NodeKind = iota
	// NodeStart is the entry scaffolding node of a method graph.
	NodeStart
	// NodeReturn terminates a single-exit graph, optionally producing a value.
	NodeReturn
	// NodeExitJump terminates one path of a multi-exit graph, tagged with a
	// logical successor index.
	NodeExitJump
	// NodeIf is a two-way branch on a boolean input.
	NodeIf
	// NodeEnd is an unconditional edge into a merge point.
	NodeEnd
	// NodeMerge joins several End edges back into one control flow.
	NodeMerge
	// NodeLoopBegin is a loop header: a merge with a forward and a back edge.
	NodeLoopBegin
	// NodePhi selects a value per merge predecessor.
	NodePhi
	// NodeParam is a placeholder for a not-yet-bound snippet parameter.
	NodeParam
	// NodeConst is a boxed constant value.
	NodeConst
	// NodeBinOp is a pure binary operation.
	NodeBinOp
	// NodeArrayLoad is an indexed load against an array-valued input.
	NodeArrayLoad
	// NodeGather selects one of a fixed placeholder sequence by index.
	NodeGather
	// NodeUnrollMarker requests full unrolling of its enclosing loop.
	NodeUnrollMarker
	// NodeInvoke is a call to a named snippet method, inlined during build.
	NodeInvoke
	// NodeDivChecked is a fixed checked division; lowered via snippet.
	NodeDivChecked
	// NodeSatAdd is a floating saturating add; lowered via snippet.
	NodeSatAdd
	// NodeParityBranch branches on the parity of an integer input;
	// lowered via a multi-exit snippet.
	NodeParityBranch
)

func (k NodeKind) String() string {
	switch k {
	case NodeNop:
		return "nop"
	case NodeStart:
		return "start"
	case NodeReturn:
		return "return"
	case NodeExitJump:
		return "exit_jump"
	case NodeIf:
		return "if"
	case NodeEnd:
		return "end"
	case NodeMerge:
		return "merge"
	case NodeLoopBegin:
		return "loop_begin"
	case NodePhi:
		return "phi"
	case NodeParam:
		return "param"
	case NodeConst:
		return "const"
	case NodeBinOp:
		return "binop"
	case NodeArrayLoad:
		return "array_load"
	case NodeGather:
		return "gather"
	case NodeUnrollMarker:
		return "unroll_marker"
	case NodeInvoke:
		return "invoke"
	case NodeDivChecked:
		return "div_checked"
	case NodeSatAdd:
		return "sat_add"
	case NodeParityBranch:
		return "parity_branch"
	}
	return "unknown"
}

// IsFixed reports whether nodes of this kind sit on the control chain.
func (k NodeKind) IsFixed() bool {
	switch k {
	case NodeStart, NodeReturn, NodeExitJump, NodeIf, NodeEnd, NodeMerge,
		NodeLoopBegin, NodeUnrollMarker, NodeInvoke, NodeDivChecked,
		NodeParityBranch:
		return true
	}
	return false
}

// IsTerminal reports whether nodes of this kind end a control path.
func (k NodeKind) IsTerminal() bool {
	return k == NodeReturn || k == NodeExitJump
}

// IsBranch reports whether nodes of this kind have multiple control successors.
func (k NodeKind) IsBranch() bool {
	return k == NodeIf || k == NodeParityBranch
}

// IsMergeLike reports whether nodes of this kind collect End predecessors.
func (k NodeKind) IsMergeLike() bool {
	return k == NodeMerge || k == NodeLoopBegin
}

// OpKind enumerates binary operators.
type OpKind uint8

const (
	// OpAdd is integer addition.
	OpAdd OpKind = iota
	// OpSub is integer subtraction.
	OpSub
	// OpMul is integer multiplication.
	OpMul
	// OpAnd is bitwise and.
	OpAnd
	// OpOr is bitwise or.
	OpOr
	// OpXor is bitwise xor.
	OpXor
	// OpShl is a left shift.
	OpShl
	// OpShr is a right shift.
	OpShr
	// OpLt is a signed less-than comparison.
	OpLt
	// OpLe is a signed less-or-equal comparison.
	OpLe
	// OpEq is an equality comparison.
	OpEq
	// OpNe is an inequality comparison.
	OpNe
)

func (op OpKind) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpShl:
		return "shl"
	case OpShr:
		return "shr"
	case OpLt:
		return "lt"
	case OpLe:
		return "le"
	case OpEq:
		return "eq"
	case OpNe:
		return "ne"
	}
	return "unknown"
}

// IsCompare reports whether the operator produces a boolean.
func (op OpKind) IsCompare() bool {
	return op >= OpLt
}

// NodeFlags carries boolean node markers.
type NodeFlags uint8

const (
	// FlagSideEffect marks the template's single atomicity anchor.
	FlagSideEffect NodeFlags = 1 << iota
	// FlagStamp marks the template's single type-inheriting anchor.
	FlagStamp
	// FlagNoPoll marks a loop back-edge as not requiring a safepoint poll.
	FlagNoPoll
)

// Node is one arena slot. Which fields are meaningful depends on Kind:
// In holds value inputs (for Merge and LoopBegin: the End predecessors, in
// phi order; for Phi: the merge followed by one value per predecessor),
// Next is the control successor of non-branch fixed nodes (for End nodes it
// points at the merge they feed), Succ holds branch successors.
type Node struct {
	Kind NodeKind

	In   []NodeID
	Next NodeID
	Succ []NodeID

	Op    OpKind
	Val   kinds.Value
	Out   kinds.Kind // produced kind (the node's stamp)
	Name  string     // param name; invoke callee
	Index int32      // exit_jump successor index

	State int32 // attached recovery state payload, NoState if none
	Flags NodeFlags
}
