package snippet

import (
	"graft/internal/graph"
)

// GraphFn produces the initial graph of a template method. It stands in for
// the bytecode parser: registration supplies an explicit graph constructor
// instead of annotation scanning, and the builder treats it as opaque.
type GraphFn func() (*graph.Graph, error)

// Method is an opaque handle to a parsed template method plus its classified
// parameter roles. Immutable once created.
type Method struct {
	name   string
	params []ParamDecl
	roles  []Role
	parse  GraphFn
}

// NewMethod classifies the declared parameters and returns the method
// handle. Classification faults are returned as *Fault.
func NewMethod(name string, params []ParamDecl, parse GraphFn) (*Method, error) {
	roles, err := ClassifyParams(name, params)
	if err != nil {
		return nil, err
	}
	return &Method{name: name, params: params, roles: roles, parse: parse}, nil
}

// Name returns the template method's identity.
func (m *Method) Name() string { return m.name }

// Params returns the declared formal parameters in order.
func (m *Method) Params() []ParamDecl { return m.params }

// Roles returns the classified index-to-role table.
func (m *Method) Roles() []Role { return m.roles }

// Param looks a parameter up by name.
func (m *Method) Param(name string) (ParamDecl, Role, bool) {
	for i, p := range m.params {
		if p.Name == name {
			return p, m.roles[i], true
		}
	}
	return ParamDecl{}, RoleUnset, false
}
