package value

// LangError is the only throwable value kind (spec §4.6, §7): `throw` of
// anything else raises Syntax (spec §8 property 10).
type LangError struct {
	Msg     string
	Payload Value // optional structured payload beyond the message
}

func NewLangError(msg string) *LangError { return &LangError{Msg: msg} }

func (e *LangError) Kind() Kind    { return LangErrorKind }
func (e *LangError) TypeID() int64 { return builtinTypeID(LangErrorKind) }
func (e *LangError) Copy() Value   { return &LangError{Msg: e.Msg, Payload: e.Payload} }
func (e *LangError) Equal(o Value) bool {
	oe, ok := o.(*LangError)
	return ok && oe.Msg == e.Msg
}
func (e *LangError) Hash() uint64            { return hashString(e.Msg) }
func (e *LangError) String() (string, error) { return e.Msg, nil }

// What implements the `.what()` member scenario S6 exercises.
func (e *LangError) What() string { return e.Msg }

// SentinelKindValue distinguishes the two constant-values sentinels.
type SentinelKindValue int

const (
	GlobalSentinel SentinelKindValue = iota
	CurrentSentinel
)

// Sentinel implements the `global`/`current` constant-values kind (spec
// §3) the Extension Registry's dot-resolution special-cases (spec §4.2).
type Sentinel struct {
	Which SentinelKindValue
}

func (s Sentinel) Kind() Kind    { return SentinelKind }
func (s Sentinel) TypeID() int64 { return builtinTypeID(SentinelKind) }
func (s Sentinel) Copy() Value   { return s }
func (s Sentinel) Equal(o Value) bool {
	os, ok := o.(Sentinel)
	return ok && os.Which == s.Which
}
func (s Sentinel) Hash() uint64            { return uint64(s.Which) + 7 }
func (s Sentinel) String() (string, error) { return "", ErrNoStringRepr }
