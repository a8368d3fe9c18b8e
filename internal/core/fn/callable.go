// Package fn implements the first-class callable values (spec §3
// "Function", "callable", "object-method"): user-defined functions/lambdas
// with captured lexical context, native extension functions, and the
// bound receiver+callable pair dot-resolution materializes (spec §4.2).
//
// Kept separate from internal/core/value because a Function's body is a
// sequence of cs/ast.Stmt and its captured context is an
// internal/core/domain.Env — value.Value must stay free of both so the
// leaf value kinds don't import the AST or the scope manager.
package fn

import (
	"unsafe"

	"covscript.dev/go/cs/ast"
	"covscript.dev/go/internal/core/domain"
	"covscript.dev/go/internal/core/value"
)

// Caller is the minimal surface a native extension function needs to
// invoke a callable value back (e.g. `list.map(f)`-style higher-order
// natives), threaded explicitly per call rather than through a thread-local
// (spec §9 design note: "in a rewrite, thread the runtime handle explicitly
// through the extension-call signature").
type Caller interface {
	CallValue(callee value.Value, args []value.Value) (value.Value, error)
}

// CallableKind distinguishes a free function from a struct member function
// (spec §3 "a kind ∈ {free, member_fn}").
type CallableKind int

const (
	Free CallableKind = iota
	MemberFn
)

// Function is the immutable triple spec §3 describes: formal-argument
// names, a body, and a captured context enabling recursion and closures.
type Function struct {
	Name    string // empty for an anonymous lambda
	Params  []string
	Body    []ast.Stmt
	Context *domain.Env
}

// NativeFunc is a builtin implemented in Go, receiving the already-bound
// argument values and a Caller for any higher-order dispatch it needs.
type NativeFunc func(c Caller, args []value.Value) (value.Value, error)

// Callable wraps a user-defined Function or a NativeFunc (spec §3). The
// constant bit marks it safe to constant-fold at call sites (spec §4.4
// "Call folding"); the protected bit follows it when bound into a domain
// slot directly (e.g. a lambda literal, spec §4.4 "Lambda rewrite").
type Callable struct {
	CallKind  CallableKind
	Fn        *Function
	Native    NativeFunc
	Arity     int // only meaningful when Native != nil; negative means variadic (no arity check)
	Constant  bool
	Protected bool
}

func (c *Callable) Kind() value.Kind { return value.CallableKind }
func (c *Callable) TypeID() int64    { return value.BuiltinTypeID(value.CallableKind) }
func (c *Callable) Copy() value.Value { return c }
func (c *Callable) Equal(o value.Value) bool {
	oc, ok := o.(*Callable)
	return ok && oc == c
}
func (c *Callable) Hash() uint64            { return uint64(uintptr(unsafe.Pointer(c))) }
func (c *Callable) String() (string, error) { return "", value.ErrNoStringRepr }

// ParamCount returns the formal argument count, used for the
// ArgumentCountMismatch check (spec §4.3).
func (c *Callable) ParamCount() int {
	if c.Fn != nil {
		return len(c.Fn.Params)
	}
	return c.Arity
}

// ObjectMethod is a callable pre-bound to a receiver, materialized at the
// point of dot-resolution (spec §3 "object-method", §4.2 step 4/5).
type ObjectMethod struct {
	Receiver value.Value
	Callable *Callable
	Constant bool
}

func (m *ObjectMethod) Kind() value.Kind  { return value.ObjectMethodKind }
func (m *ObjectMethod) TypeID() int64     { return value.BuiltinTypeID(value.ObjectMethodKind) }
func (m *ObjectMethod) Copy() value.Value { return m }
func (m *ObjectMethod) Equal(o value.Value) bool {
	om, ok := o.(*ObjectMethod)
	return ok && om == m
}
func (m *ObjectMethod) Hash() uint64            { return uint64(uintptr(unsafe.Pointer(m))) }
func (m *ObjectMethod) String() (string, error) { return "", value.ErrNoStringRepr }
