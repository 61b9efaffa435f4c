package snippet

import (
	"sort"
	"strings"

	"graft/internal/kinds"
)

// Key identifies one specialization: a template method plus an assignment of
// constant values to its bound-constant and vararg parameters. Two keys are
// equal iff they name the same method and carry an equal assignment (value
// and kind both count); vararg array lengths are part of the shape.
type Key struct {
	method *Method
	consts map[string]kinds.Value
}

// NewKey starts an empty assignment for the method.
func NewKey(m *Method) *Key {
	return &Key{method: m, consts: make(map[string]kinds.Value)}
}

// Bind records a constant assignment and returns the key for chaining.
// Unknown names are caught during specialization, not here.
func (k *Key) Bind(name string, v kinds.Value) *Key {
	k.consts[name] = v
	return k
}

// Method returns the template identity.
func (k *Key) Method() *Method { return k.method }

// Lookup returns the assignment for a parameter name.
func (k *Key) Lookup(name string) (kinds.Value, bool) {
	v, ok := k.consts[name]
	return v, ok
}

// String renders the canonical form used for cache lookups and equality:
// the method name followed by the sorted assignment. Equal keys always
// render identically.
func (k *Key) String() string {
	names := make([]string, 0, len(k.consts))
	for name := range k.consts {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(k.method.Name())
	for _, name := range names {
		b.WriteByte('#')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(k.consts[name].String())
	}
	return b.String()
}

// Equal reports key equality consistent with String.
func (k *Key) Equal(o *Key) bool {
	if k.method != o.method || len(k.consts) != len(o.consts) {
		return false
	}
	for name, v := range k.consts {
		ov, ok := o.consts[name]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
