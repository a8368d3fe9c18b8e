// Package extension implements the Extension Registry (spec §4.2): named,
// shared domains that back member lookup on primitive and user types, and
// the dot/arrow resolution algorithm itself.
//
// Grounded on pkg/internal/context.go's CallCtxt/Builtin calling
// convention and pkg/math/pkg.go's `internal.Register("math", pkg)`
// registration idiom, generalized from CUE's fixed stdlib packages to a
// registry keyed by both built-in Kind and arbitrary type name.
package extension

import (
	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/internal/core/domain"
	"covscript.dev/go/internal/core/fn"
	"covscript.dev/go/internal/core/value"
)

// Registry holds one shared Domain per built-in Kind (the "per-type
// extension" spec §4.2 step 5 refers to) plus any number of named domains
// for namespaces and registered types (spec §4.2's "plug point for
// namespaces and types").
type Registry struct {
	byKind map[value.Kind]*domain.Domain
	named  map[string]*domain.Domain
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{byKind: map[value.Kind]*domain.Domain{}, named: map[string]*domain.Domain{}}
}

// ExtensionFor returns the shared domain backing member lookup on kind k,
// creating it on first use so registration order doesn't matter.
func (r *Registry) ExtensionFor(k value.Kind) *domain.Domain {
	d, ok := r.byKind[k]
	if !ok {
		d = domain.New()
		r.byKind[k] = d
	}
	return d
}

// Register exposes a domain under name (spec §6 "Extension protocol":
// add_var/get_var plus "a fixed set of per-type hooks registered at
// process init"), the way pkg/math/pkg.go calls internal.Register("math",
// pkg) at init time.
func (r *Registry) Register(name string, d *domain.Domain) {
	r.named[name] = d
}

// Lookup returns a previously Register-ed named domain (a namespace or a
// registered type's own extension domain).
func (r *Registry) Lookup(name string) (*domain.Domain, bool) {
	d, ok := r.named[name]
	return d, ok
}

// Storage is the subset of *domain.Manager the dot-resolution algorithm
// needs for the `global`/`current` sentinel cases (spec §4.2 steps 1-2).
type Storage interface {
	GetVarGlobal(name string) (value.Value, error)
	GetVarCurrent(name string) (value.Value, error)
}

// Resolve implements `x.name` (spec §4.2). Arrow (`->`) is sugar for dot on
// a dereferenced pointer and is implemented by the evaluator, which derefs
// before calling Resolve.
func (r *Registry) Resolve(storage Storage, x value.Value, name string) (value.Value, error) {
	switch v := x.(type) {
	case value.Sentinel:
		if v.Which == value.GlobalSentinel {
			return storage.GetVarGlobal(name)
		}
		return storage.GetVarCurrent(name)

	case *value.TypeDescriptor:
		return r.lookupDomain(v.Dom, name)

	case *value.Namespace:
		return r.lookupDomain(v.Dom, name)

	case *value.Struct:
		val, err := r.lookupDomain(v.Dom, name)
		if err != nil {
			return nil, err
		}
		if c, ok := val.(*fn.Callable); ok && c.CallKind == fn.MemberFn {
			return &fn.ObjectMethod{Receiver: x, Callable: c, Constant: c.Constant}, nil
		}
		return val, nil

	default:
		ext := r.byKind[x.Kind()]
		if ext == nil {
			return nil, cserrors.New(cserrors.Unsupported, "type %s has no extension", x.Kind())
		}
		val, err := r.lookupDomain(ext, name)
		if err != nil {
			return nil, err
		}
		if c, ok := val.(*fn.Callable); ok {
			return &fn.ObjectMethod{Receiver: x, Callable: c, Constant: c.Constant}, nil
		}
		return val, nil
	}
}

func (r *Registry) lookupDomain(d value.Domain, name string) (value.Value, error) {
	if d == nil {
		return nil, cserrors.New(cserrors.Undefined, "undefined member %q", name)
	}
	v, ok := d.Get(name)
	if !ok {
		return nil, cserrors.New(cserrors.Undefined, "undefined member %q", name)
	}
	return v, nil
}
