package value

// Pointer is a nullable shared handle to another Value (spec §3). `new T`
// returns an instance directly; `gcnew T` wraps the instance in a Pointer
// (spec §4.3). Dereferencing a nil Pointer is Unsupported (spec §7,
// §8 scenario S7).
type Pointer struct {
	Target *Value // nil means a null pointer
}

func NewPointer(v Value) *Pointer { return &Pointer{Target: &v} }
func NullPointer() *Pointer       { return &Pointer{Target: nil} }

func (p *Pointer) Kind() Kind    { return PointerKind }
func (p *Pointer) TypeID() int64 { return builtinTypeID(PointerKind) }

// Copy is a shallow, reference-incrementing copy (spec §5): both copies
// alias the same target cell, so mutating through one pointer is visible
// through the other.
func (p *Pointer) Copy() Value { return p }

func (p *Pointer) Equal(o Value) bool {
	op, ok := o.(*Pointer)
	if !ok {
		return false
	}
	if p.Target == nil || op.Target == nil {
		return p.Target == op.Target
	}
	return p.Target == op.Target || (*p.Target).Equal(*op.Target)
}

func (p *Pointer) Hash() uint64 {
	if p.Target == nil {
		return 0
	}
	return (*p.Target).Hash() ^ 0x5151515151515151
}

func (p *Pointer) String() (string, error) { return "", ErrNoStringRepr }

// IsNull reports whether the pointer targets nothing.
func (p *Pointer) IsNull() bool { return p.Target == nil }

// Deref returns the pointee, or errDerefNull if the pointer is null.
func (p *Pointer) Deref() (Value, error) {
	if p.Target == nil {
		return nil, errDerefNull
	}
	return *p.Target, nil
}

// Set assigns through the pointer, growing the target cell if needed is
// not applicable here: assignment through a null pointer is also a
// dereference and fails the same way.
func (p *Pointer) Set(v Value) error {
	if p.Target == nil {
		return errDerefNull
	}
	*p.Target = v
	return nil
}
