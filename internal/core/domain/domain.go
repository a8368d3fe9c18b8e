// Package domain implements the Domain Manager (spec §4.1): a Domain is a
// mapping from identifier to Value (spec §3), and a Manager is the scope
// stack of record sets paired with domains that the evaluator, optimizer,
// and bytecode generator all consult for declaration and lookup.
//
// Grounded on cuelang.org/go/internal/core/compile/compile.go's
// frame/stack/pushScope/popScope/insertAlias/lookupAlias shape, generalized
// from alias-only scoping (CUE's `let` clauses) to general variable and
// record-set scoping.
package domain

import (
	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/internal/core/value"
)

// Binding is one slot in a Domain: a value plus the protected bit spec §3
// describes ("a binding whose reference cell refuses assignment").
type Binding struct {
	Value     value.Value
	Protected bool
}

// Domain is a mapping from identifier to Value with unique keys
// (spec §3). Domains are shared by reference; a struct instance or
// namespace owns its domain and keeps it alive past the scope that
// created it.
type Domain struct {
	slots map[string]*Binding
}

// New creates an empty Domain.
func New() *Domain { return &Domain{slots: map[string]*Binding{}} }

// Get implements value.Domain, used by Struct/Namespace/TypeDescriptor.
func (d *Domain) Get(name string) (value.Value, bool) {
	b, ok := d.slots[name]
	if !ok {
		return nil, false
	}
	return b.Value, true
}

// Set implements value.Domain: assigns into an existing, unprotected slot.
// Returns false if the name doesn't exist or the slot is protected.
func (d *Domain) Set(name string, v value.Value) bool {
	b, ok := d.slots[name]
	if !ok || b.Protected {
		return false
	}
	b.Value = v
	return true
}

// Names implements value.Domain.
func (d *Domain) Names() []string {
	out := make([]string, 0, len(d.slots))
	for n := range d.slots {
		out = append(out, n)
	}
	return out
}

// Binding returns the raw binding cell for name, so assignment can check
// the protected bit without a separate lookup (spec §4.3 "=" contract).
func (d *Domain) Binding(name string) (*Binding, bool) {
	b, ok := d.slots[name]
	return b, ok
}

// Declare binds name to v for the first time in this domain. Fails with
// AlreadyBound if name already exists (spec §4.1 add_var).
func (d *Domain) Declare(name string, v value.Value, protected bool) error {
	if _, ok := d.slots[name]; ok {
		return cserrors.New(cserrors.AlreadyBound, "%q is already bound in this domain", name)
	}
	d.slots[name] = &Binding{Value: v, Protected: protected}
	return nil
}

// Involve merges other's bindings into d, failing per-name on collision
// (spec §4.1 involve_domain).
func (d *Domain) Involve(other *Domain) error {
	for name, b := range other.slots {
		if _, ok := d.slots[name]; ok {
			return cserrors.New(cserrors.AlreadyBound, "%q collides when merging domains", name)
		}
		d.slots[name] = &Binding{Value: b.Value, Protected: b.Protected}
	}
	return nil
}

var _ value.Domain = (*Domain)(nil)
