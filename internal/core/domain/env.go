package domain

// Env is a persisted chain of domains captured at function- or
// lambda-definition time, so a closure can resolve identifiers from its
// enclosing scopes even after the defining call has returned (spec §3
// "Function": "a captured context reference (enabling recursion and
// closure over enclosing declarations)"). Up points toward the enclosing
// scope; the root Env always has Up == nil and Dom == the global domain,
// mirroring internal/core/adt.Environment's Up-chasing shape.
type Env struct {
	Up  *Env
	Dom *Domain
}

// Capture snapshots m's current domain stack as an Env chain.
func (m *Manager) Capture() *Env {
	var env *Env
	for _, d := range m.domains {
		env = &Env{Up: env, Dom: d}
	}
	return env
}

// EnterCall temporarily replaces the Manager's domain stack with env's
// chain plus a fresh call domain on top, returning a restore func that
// must be deferred by the caller so the scope-stack depth is unconditionally
// restored on every exit path (spec §8 property 2), including a thrown
// language error (spec §5).
func (m *Manager) EnterCall(env *Env, callDomain *Domain) (restore func()) {
	savedDomains, savedSets := m.domains, m.sets

	var chain []*Domain
	for e := env; e != nil; e = e.Up {
		chain = append(chain, e.Dom)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	m.domains = append(chain, callDomain)
	m.sets = []*recordSet{newRecordSet()}

	return func() {
		m.domains = savedDomains
		m.sets = savedSets
	}
}
