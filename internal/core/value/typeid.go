package value

import "sync/atomic"

// Built-in kinds get a fixed, low type id so `typeid(1) == typeid(2)` for
// two values of the same built-in kind without needing a registry lookup.
// Struct/type/namespace identities are not one-per-kind though — every
// distinct struct definition or registered type needs its own id, handed
// out from a process-wide counter the way original_source's
// include/covscript/unique_id.hpp mints ids at registration time (a
// monotonic counter, not a content hash — see SPEC_FULL.md §"Supplemented
// features" #2).
const (
	builtinTypeIDBool Kind = iota + 1
	builtinTypeIDInt
	builtinTypeIDFloat
	builtinTypeIDChar
	builtinTypeIDString
	builtinTypeIDArray
	builtinTypeIDPair
	builtinTypeIDMap
	builtinTypeIDPointer
	builtinTypeIDCallable
	builtinTypeIDObjectMethod
	builtinTypeIDLangError
	builtinTypeIDSentinel
)

var nextDynamicTypeID int64 = 1 << 16

// NewTypeID hands out a fresh, process-unique type id for a struct
// definition, namespace, or registered extension type.
func NewTypeID() int64 {
	return atomic.AddInt64(&nextDynamicTypeID, 1)
}

// BuiltinTypeID returns the fixed type id for a built-in kind, for use by
// packages (like internal/core/fn) that define concrete Value
// implementations outside this package.
func BuiltinTypeID(k Kind) int64 { return builtinTypeID(k) }

func builtinTypeID(k Kind) int64 {
	switch k {
	case BoolKind:
		return int64(builtinTypeIDBool)
	case IntKind:
		return int64(builtinTypeIDInt)
	case FloatKind:
		return int64(builtinTypeIDFloat)
	case CharKind:
		return int64(builtinTypeIDChar)
	case StringKind:
		return int64(builtinTypeIDString)
	case ArrayKind:
		return int64(builtinTypeIDArray)
	case PairKind:
		return int64(builtinTypeIDPair)
	case MapKind:
		return int64(builtinTypeIDMap)
	case PointerKind:
		return int64(builtinTypeIDPointer)
	case CallableKind:
		return int64(builtinTypeIDCallable)
	case ObjectMethodKind:
		return int64(builtinTypeIDObjectMethod)
	case LangErrorKind:
		return int64(builtinTypeIDLangError)
	case SentinelKind:
		return int64(builtinTypeIDSentinel)
	default:
		return 0
	}
}
