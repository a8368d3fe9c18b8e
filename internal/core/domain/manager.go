package domain

import (
	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/internal/core/value"
)

// structMarker is the reserved record-set marker name spec §3 calls
// `__PRAGMA_CS_STRUCT_DEFINITION__`, identifying a struct-definition scope.
const structMarker = "__PRAGMA_CS_STRUCT_DEFINITION__"

// recordSet is the set of names declared in one lexical region, used only
// to detect duplicate declarations (spec §3 "Record set").
type recordSet struct {
	names map[string]bool
}

func newRecordSet() *recordSet { return &recordSet{names: map[string]bool{}} }

func (r *recordSet) declare(name string) bool {
	if r.names[name] {
		return false
	}
	r.names[name] = true
	return true
}

// Manager is the Domain Manager (spec §4.1): two parallel stacks, a record
// set stack and a domain stack, pushed/popped together by convention but
// independently sized per scope (the optimizer pushes additional record
// sets without new domains to hoist declarations, per spec §4.1).
//
// Both stacks are stored innermost-last; index 0 is always the global
// scope and is never popped (spec §3 invariant (d)).
type Manager struct {
	sets    []*recordSet
	domains []*Domain
}

// NewManager creates a Manager with a single global scope already pushed.
func NewManager() *Manager {
	m := &Manager{}
	m.sets = append(m.sets, newRecordSet())
	m.domains = append(m.domains, New())
	return m
}

// Global returns the outermost, never-popped domain.
func (m *Manager) Global() *Domain { return m.domains[0] }

// Current returns the innermost domain.
func (m *Manager) Current() *Domain { return m.domains[len(m.domains)-1] }

// AddSet pushes a fresh record set (spec §4.1 add_set).
func (m *Manager) AddSet() { m.sets = append(m.sets, newRecordSet()) }

// RemoveSet pops the innermost record set (spec §4.1 remove_set).
func (m *Manager) RemoveSet() {
	if len(m.sets) <= 1 {
		return
	}
	m.sets = m.sets[:len(m.sets)-1]
}

// AddDomain pushes a fresh domain (spec §4.1 add_domain).
func (m *Manager) AddDomain() { m.domains = append(m.domains, New()) }

// AddDomainValue pushes an existing domain (used when entering a struct
// instantiation or a closure's captured context, spec §4.3's "captured
// context reference").
func (m *Manager) AddDomainValue(d *Domain) { m.domains = append(m.domains, d) }

// RemoveDomain pops the innermost domain. The global domain (index 0) is
// never popped (spec §3 invariant (d)).
func (m *Manager) RemoveDomain() {
	if len(m.domains) <= 1 {
		return
	}
	m.domains = m.domains[:len(m.domains)-1]
}

// Depth reports the current domain-stack depth, used by property tests to
// confirm scope discipline (spec §8 property 2).
func (m *Manager) Depth() int { return len(m.domains) }

// AddRecord declares name in the innermost record set. Fails with
// Redefinition if already present there (spec §4.1 add_record,
// §8 property 3).
func (m *Manager) AddRecord(name string) error {
	if !m.sets[len(m.sets)-1].declare(name) {
		return cserrors.New(cserrors.Redefinition, "%q is already declared in this scope", name)
	}
	return nil
}

// AddVar binds name in the innermost domain (spec §4.1 add_var).
func (m *Manager) AddVar(name string, v value.Value) error {
	return m.Current().Declare(name, v, false)
}

// AddVarProtected binds a protected slot (used for constant-folded
// identifiers and lambda literals, spec §4.4).
func (m *Manager) AddVarProtected(name string, v value.Value) error {
	return m.Current().Declare(name, v, true)
}

// AddVarGlobal binds name in the global domain (spec §4.1 add_var_global).
func (m *Manager) AddVarGlobal(name string, v value.Value) error {
	return m.Global().Declare(name, v, false)
}

// VarExist reports whether name is bound anywhere from innermost to global
// (spec §4.1 var_exist).
func (m *Manager) VarExist(name string) bool {
	_, ok := m.lookup(name)
	return ok
}

// VarExistCurrent reports whether name is bound in the innermost domain.
func (m *Manager) VarExistCurrent(name string) bool {
	_, ok := m.Current().Get(name)
	return ok
}

// VarExistGlobal reports whether name is bound in the global domain.
func (m *Manager) VarExistGlobal(name string) bool {
	_, ok := m.Global().Get(name)
	return ok
}

// lookup walks from innermost to global, returning the first hit
// (spec §3 invariant (c), §8 property 4).
func (m *Manager) lookup(name string) (value.Value, bool) {
	for i := len(m.domains) - 1; i >= 0; i-- {
		if v, ok := m.domains[i].Get(name); ok {
			return v, true
		}
	}
	return nil, false
}

// GetVar looks up name from innermost to global. Fails with Undefined if
// unbound anywhere (spec §4.1 get_var).
func (m *Manager) GetVar(name string) (value.Value, error) {
	if v, ok := m.lookup(name); ok {
		return v, nil
	}
	return nil, cserrors.New(cserrors.Undefined, "undefined identifier %q", name)
}

// GetVarCurrent looks up name only in the innermost domain (spec §4.1
// get_var_current; the scoped variant of Undefined).
func (m *Manager) GetVarCurrent(name string) (value.Value, error) {
	if v, ok := m.Current().Get(name); ok {
		return v, nil
	}
	return nil, cserrors.New(cserrors.Undefined, "undefined identifier %q in current scope", name)
}

// GetVarGlobal looks up name only in the global domain (spec §4.1
// get_var_global).
func (m *Manager) GetVarGlobal(name string) (value.Value, error) {
	if v, ok := m.Global().Get(name); ok {
		return v, nil
	}
	return nil, cserrors.New(cserrors.Undefined, "undefined identifier %q in global scope", name)
}

// Assign writes through an existing binding from innermost to global,
// failing if the slot is protected (spec §3 "Protected slot") or the name
// is unbound.
func (m *Manager) Assign(name string, v value.Value) error {
	for i := len(m.domains) - 1; i >= 0; i-- {
		if b, ok := m.domains[i].Binding(name); ok {
			if b.Protected {
				return cserrors.New(cserrors.Unsupported, "cannot assign to protected identifier %q", name)
			}
			b.Value = v
			return nil
		}
	}
	return cserrors.New(cserrors.Undefined, "undefined identifier %q", name)
}

// IsProtected reports whether name resolves to a protected binding
// anywhere in the domain stack (spec §4.4 identifier folding: "if name is
// protected anywhere up the domain stack, inline it").
func (m *Manager) IsProtected(name string) bool {
	for i := len(m.domains) - 1; i >= 0; i-- {
		if b, ok := m.domains[i].Binding(name); ok {
			return b.Protected
		}
	}
	return false
}

// MarkSetAsStruct tags the innermost record set as a struct-definition
// region (spec §4.1 mark_set_as_struct).
func (m *Manager) MarkSetAsStruct() {
	m.sets[len(m.sets)-1].declare(structMarker)
}

// InStructDefinition reports whether the innermost record set was tagged
// by MarkSetAsStruct (consulted by the optimizer, spec §4.4).
func (m *Manager) InStructDefinition() bool {
	return m.sets[len(m.sets)-1].names[structMarker]
}

// InvolveDomain merges d's bindings into the innermost domain
// (spec §4.1 involve_domain).
func (m *Manager) InvolveDomain(d *Domain) error {
	return m.Current().Involve(d)
}
