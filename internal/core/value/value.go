package value

import (
	"errors"
	"hash/fnv"
	"math"
)

// ErrNoStringRepr is the specific error code spec §7's REPL mode swallows:
// the value has no to_string form (namespace, type descriptor, bare
// pointer/struct without a to_string extension method, ...).
var ErrNoStringRepr = errors.New("value has no string representation")

// Value is the common interface every CS runtime value satisfies. Grounded
// on adt.Value / adt.Expr's "interface implemented by many concrete node
// types" shape in internal/core/adt.
type Value interface {
	// Kind identifies the dynamic type.
	Kind() Kind

	// TypeID is the integer identity spec §4.3's `typeid` operator reports;
	// stable for the lifetime of the process (spec §8 property 1).
	TypeID() int64

	// Hash is a cheap hash derived from the concrete payload, stable
	// whenever Equal holds (spec §3(iv), §8 property 1).
	Hash() uint64

	// Equal implements the `==`/`!=` operator contract (spec §4.3).
	Equal(other Value) bool

	// Copy implements assignment semantics (spec §5): deep copy for
	// containers (array, hash_map, string, pair), reference/shallow copy
	// otherwise.
	Copy() Value

	// String renders a to_string form, or ErrNoStringRepr if this kind has
	// none by itself (struct/pointer/namespace to_string is resolved by the
	// evaluator via extension dispatch, not here).
	String() (string, error)
}

func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// Bool is the boolean value kind.
type Bool bool

func (b Bool) Kind() Kind       { return BoolKind }
func (b Bool) TypeID() int64    { return builtinTypeID(BoolKind) }
func (b Bool) Copy() Value      { return b }
func (b Bool) Equal(o Value) bool {
	ob, ok := o.(Bool)
	return ok && ob == b
}
func (b Bool) Hash() uint64 {
	if b {
		return 1
	}
	return 0
}
func (b Bool) String() (string, error) {
	if b {
		return "true", nil
	}
	return "false", nil
}

// Int is the 64-bit integer value kind.
type Int int64

func (i Int) Kind() Kind    { return IntKind }
func (i Int) TypeID() int64 { return builtinTypeID(IntKind) }
func (i Int) Copy() Value   { return i }
func (i Int) Equal(o Value) bool {
	switch ov := o.(type) {
	case Int:
		return ov == i
	case Float:
		return float64(ov) == float64(i)
	default:
		return false
	}
}
func (i Int) Hash() uint64 { return uint64(i) }
func (i Int) String() (string, error) {
	return formatInt(int64(i)), nil
}

// Float is the floating-point value kind.
type Float float64

func (f Float) Kind() Kind    { return FloatKind }
func (f Float) TypeID() int64 { return builtinTypeID(FloatKind) }
func (f Float) Copy() Value   { return f }
func (f Float) Equal(o Value) bool {
	switch ov := o.(type) {
	case Float:
		return float64(ov) == float64(f)
	case Int:
		return float64(ov) == float64(f)
	default:
		return false
	}
}

// Hash hashes the IEEE-754 bit pattern, including for NaN (SPEC_FULL.md's
// Open Question resolution: stable, not claimed equal-to-self under ==).
func (f Float) Hash() uint64 { return math.Float64bits(float64(f)) }

// String renders via the canonical decimal formatter (see decimal.go),
// grounded on the teacher's own use of apd.Decimal for canonical number
// display (pkg/internal/context.go's (*CallCtxt).Decimal).
func (f Float) String() (string, error) {
	return formatFloat(float64(f)), nil
}

// Char is a single Unicode code point.
type Char rune

func (c Char) Kind() Kind    { return CharKind }
func (c Char) TypeID() int64 { return builtinTypeID(CharKind) }
func (c Char) Copy() Value   { return c }
func (c Char) Equal(o Value) bool {
	oc, ok := o.(Char)
	return ok && oc == c
}
func (c Char) Hash() uint64           { return uint64(c) }
func (c Char) String() (string, error) { return string(rune(c)), nil }

// Str is an owned, UTF-8-agnostic byte string (spec §3). Deep-copied on
// assignment (spec §5) even though Go strings are immutable, to keep the
// interpreter's copy-on-assign contract uniform across container kinds —
// a copy of Str is simply itself, since nothing can mutate it in place.
type Str struct {
	S string
}

func NewString(s string) *Str  { return &Str{S: s} }
func (s *Str) Kind() Kind       { return StringKind }
func (s *Str) TypeID() int64    { return builtinTypeID(StringKind) }
func (s *Str) Copy() Value      { return &Str{S: s.S} }
func (s *Str) Equal(o Value) bool {
	os, ok := o.(*Str)
	return ok && os.S == s.S
}
func (s *Str) Hash() uint64            { return hashString(s.S) }
func (s *Str) String() (string, error) { return s.S, nil }

// Len returns the number of bytes in the string (spec §4.3 index contract).
func (s *Str) Len() int { return len(s.S) }
