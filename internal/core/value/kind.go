// Package value implements the CS runtime value model (spec §3): a tagged
// dynamic value plus type descriptor, with identity-like comparison,
// hashing, copy semantics, and a protected flag. Grounded on
// cuelang.org/go/internal/core/adt's tagged-sum-of-concrete-types style
// (adt.Value implemented by Num, String, Vertex, ...) and cue/kind.go's
// bitmask Kind.
package value

// Kind is a bitmask identifying the dynamic type of a Value. A single bit
// per concrete kind mirrors cue/kind.go, though CS has no need for the
// union/disjunction bits CUE's unification evaluator requires.
type Kind uint32

const (
	BoolKind Kind = 1 << iota
	IntKind
	FloatKind
	CharKind
	StringKind
	ArrayKind
	PairKind
	MapKind
	PointerKind
	CallableKind
	ObjectMethodKind
	TypeKind
	StructKind
	NamespaceKind
	LangErrorKind
	SentinelKind
)

// NumKind is the union of the two numeric kinds, used by operator contracts
// that accept either (spec §4.3's "(num,num)" rows).
const NumKind = IntKind | FloatKind

func (k Kind) String() string {
	switch k {
	case BoolKind:
		return "boolean"
	case IntKind:
		return "integer"
	case FloatKind:
		return "float"
	case CharKind:
		return "char"
	case StringKind:
		return "string"
	case ArrayKind:
		return "array"
	case PairKind:
		return "pair"
	case MapKind:
		return "hashmap"
	case PointerKind:
		return "pointer"
	case CallableKind:
		return "callable"
	case ObjectMethodKind:
		return "object_method"
	case TypeKind:
		return "type"
	case StructKind:
		return "struct"
	case NamespaceKind:
		return "namespace"
	case LangErrorKind:
		return "lang_error"
	case SentinelKind:
		return "const_values"
	default:
		return "unknown"
	}
}

// Is reports whether v's kind has all the bits of want set.
func Is(v Value, want Kind) bool { return v != nil && v.Kind()&want == v.Kind() }
