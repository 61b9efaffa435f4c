package diag

import (
	"fmt"
)

// Code identifies a diagnostic category.
type Code uint16

const (
	// UnknownCode is the catch-all for uncategorized faults.
	UnknownCode Code = 0

	// Parameter classification faults.
	TplInfo           Code = 3000
	TplRoleMissing    Code = 3001
	TplRoleConflict   Code = 3002
	TplVarargNotArray Code = 3003
	TplDuplicateParam Code = 3004
	TplUnknownParam   Code = 3005

	// Registry faults.
	TplDuplicateMethod Code = 3010

	// Specialization faults.
	TplConstKindMismatch Code = 3100
	TplVarargLeftover    Code = 3101
	TplVarargShape       Code = 3102
	TplUnrollNotNatural  Code = 3103
	TplUnrollNonConstant Code = 3104
	TplInlineCycle       Code = 3105
	TplInlineNotEligible Code = 3106

	// Anchor and exit-structure faults.
	TplDuplicateSideEffect Code = 3200
	TplDuplicateStamp      Code = 3201
	TplExitStructure       Code = 3202

	// Instantiation faults.
	TplArgMissing        Code = 3300
	TplArgKindMismatch   Code = 3301
	TplVarargLenMismatch Code = 3302
	TplSiteMismatch      Code = 3303
	TplAnchorForbidden   Code = 3304

	// Driver/IO faults.
	IOSnapshotError Code = 3900
)

func (c Code) String() string {
	return fmt.Sprintf("T%04d", uint16(c))
}
