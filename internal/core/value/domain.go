package value

// Domain is the minimal view of a domain (spec §3 "Domain", §4.1) that the
// value package needs: enough to back a struct instance's own fields or a
// namespace's exports without value importing internal/core/domain (which
// itself depends on Value for bindings). internal/core/domain.Domain
// implements this interface structurally.
type Domain interface {
	Get(name string) (Value, bool)
	Set(name string, v Value) bool
	Names() []string
}

// Struct is a named bag of fields backed by its own Domain (spec §3
// "struct instance"). Every struct definition mints one TypeID shared by
// all its instances (original_source/instance.cpp's per-definition type
// identity); instances of different struct definitions never compare
// typeid-equal.
type Struct struct {
	TypeName string
	ID       int64 // shared by every instance of this struct definition
	Dom      Domain
}

func (s *Struct) Kind() Kind    { return StructKind }
func (s *Struct) TypeID() int64 { return s.ID }

// Copy is a shallow, reference-counted copy (spec §5): struct instances
// are shared by reference like namespaces, not deep-copied field by field.
func (s *Struct) Copy() Value { return s }

func (s *Struct) Equal(o Value) bool {
	os, ok := o.(*Struct)
	return ok && os.Dom == s.Dom
}

func (s *Struct) Hash() uint64 {
	// Hashes the type name only: two struct instances are only == if they
	// share the same domain, and such instances share a type name, so the
	// hash agrees with Equal (spec §8 property 1 still holds since copy()
	// is reference-preserving).
	return hashString(s.TypeName) ^ uint64(uintptr(0))
}

func (s *Struct) String() (string, error) { return "", ErrNoStringRepr }

// Namespace is a domain exported by name (spec §3 "namespace holder").
type Namespace struct {
	Name string
	ID   int64
	Dom  Domain
}

func (n *Namespace) Kind() Kind    { return NamespaceKind }
func (n *Namespace) TypeID() int64 { return n.ID }
func (n *Namespace) Copy() Value   { return n }
func (n *Namespace) Equal(o Value) bool {
	on, ok := o.(*Namespace)
	return ok && on.Dom == n.Dom
}
func (n *Namespace) Hash() uint64            { return hashString(n.Name) }
func (n *Namespace) String() (string, error) { return "", ErrNoStringRepr }

// TypeDescriptor is a first-class reference to a type (builtin or
// user-defined), the operand `new T`/`gcnew T` and extension-registry
// lookups key off (spec §3 "type descriptor", §4.2).
type TypeDescriptor struct {
	Name string
	ID   int64
	Dom  Domain // the type's own extension domain, if any; may be nil
}

func (t *TypeDescriptor) Kind() Kind    { return TypeKind }
func (t *TypeDescriptor) TypeID() int64 { return t.ID }
func (t *TypeDescriptor) Copy() Value   { return t }
func (t *TypeDescriptor) Equal(o Value) bool {
	ot, ok := o.(*TypeDescriptor)
	return ok && ot.ID == t.ID
}
func (t *TypeDescriptor) Hash() uint64            { return uint64(t.ID) }
func (t *TypeDescriptor) String() (string, error) { return t.Name, nil }
