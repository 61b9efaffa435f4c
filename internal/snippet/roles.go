package snippet

import (
	"graft/internal/diag"
	"graft/internal/kinds"
)

// Role classifies a template method parameter.
type Role uint8

const (
	// RoleUnset marks a parameter with no role marker.
	RoleUnset Role = iota
	// RoleConstant binds the parameter to a constant at specialization time.
	RoleConstant
	// RoleVarargs expands the parameter into per-index placeholders whose
	// count is baked into the specialization key.
	RoleVarargs
	// RoleValue leaves the parameter as a placeholder bound at instantiation.
	RoleValue
)

func (r Role) String() string {
	switch r {
	case RoleConstant:
		return "constant"
	case RoleVarargs:
		return "varargs"
	case RoleValue:
		return "value"
	}
	return "unset"
}

// ParamDecl declares one formal parameter of a template method. Roles holds
// the declared role markers; the classifier requires exactly one. Elem is
// the element kind for array-typed parameters.
type ParamDecl struct {
	Name  string
	Kind  kinds.Kind
	Elem  kinds.Kind
	Roles []Role
}

// ClassifyParams validates the declared role markers and produces the stable
// index-to-role table consumed by the builder. Pure validation over the
// declarations; no side effects.
func ClassifyParams(template string, params []ParamDecl) ([]Role, error) {
	roles := make([]Role, len(params))
	seen := make(map[string]bool, len(params))
	for i, p := range params {
		if p.Name == "" {
			return nil, faultf(diag.TplRoleMissing, template, "", "parameter %d has no name", i)
		}
		if seen[p.Name] {
			return nil, faultf(diag.TplDuplicateParam, template, p.Name, "duplicate parameter name")
		}
		seen[p.Name] = true

		switch len(p.Roles) {
		case 0:
			return nil, faultf(diag.TplRoleMissing, template, p.Name, "no role marker")
		case 1:
		default:
			return nil, faultf(diag.TplRoleConflict, template, p.Name, "%d role markers, want exactly 1", len(p.Roles))
		}
		role := p.Roles[0]
		if role == RoleUnset {
			return nil, faultf(diag.TplRoleMissing, template, p.Name, "role marker is unset")
		}
		if role == RoleVarargs && p.Kind != kinds.KindArray {
			return nil, faultf(diag.TplVarargNotArray, template, p.Name, "varargs marker on non-array kind %s", p.Kind)
		}
		roles[i] = role
	}
	return roles, nil
}
