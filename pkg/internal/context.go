// Package internal implements the shared native-builtin calling
// convention (spec §6 "Extension protocol") reused by extension packages
// that register Kind- or type-scoped functions into the Extension
// Registry. It is kept as its own package, not folded into
// internal/core/eval, because the actual math/runtime/system extensions
// that bind against it are a deliberately excluded external surface (spec
// §1) — this package is only the protocol those extensions would target.
//
// Grounded on pkg/internal/context.go's CallCtxt: one accessor method per
// argument type, an error sink (Err) an accessor sets instead of panicking,
// and a Do() gate a builtin body checks before doing any work.
package internal

import (
	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/internal/core/fn"
	"covscript.dev/go/internal/core/value"
)

// CallCtxt is passed to a Builtin's Func. Each typed accessor records a
// type-mismatch error in Err rather than panicking, so a builtin body can
// pull every argument it needs and check Do() once at the end.
type CallCtxt struct {
	Caller fn.Caller
	Name   string
	Err    error

	args []value.Value
}

// Do reports whether the call should proceed (no argument accessor has
// failed yet).
func (c *CallCtxt) Do() bool { return c.Err == nil }

func (c *CallCtxt) invalidArgType(i int, want string, got value.Value) {
	if c.Err == nil {
		c.Err = cserrors.New(cserrors.Unsupported,
			"%s: argument %d: want %s, got %s", c.Name, i, want, got.Kind())
	}
}

// Value returns the raw argument value, unchecked.
func (c *CallCtxt) Value(i int) value.Value { return c.args[i] }

func (c *CallCtxt) Int(i int) int64 {
	v, ok := c.args[i].(value.Int)
	if !ok {
		c.invalidArgType(i, "integer", c.args[i])
		return 0
	}
	return int64(v)
}

func (c *CallCtxt) Float(i int) float64 {
	switch v := c.args[i].(type) {
	case value.Float:
		return float64(v)
	case value.Int:
		return float64(v)
	}
	c.invalidArgType(i, "float", c.args[i])
	return 0
}

func (c *CallCtxt) Str(i int) string {
	v, ok := c.args[i].(*value.Str)
	if !ok {
		c.invalidArgType(i, "string", c.args[i])
		return ""
	}
	return v.S
}

func (c *CallCtxt) Char(i int) byte {
	v, ok := c.args[i].(value.Char)
	if !ok {
		c.invalidArgType(i, "char", c.args[i])
		return 0
	}
	return byte(v)
}

func (c *CallCtxt) Bool(i int) bool {
	v, ok := c.args[i].(value.Bool)
	if !ok {
		c.invalidArgType(i, "boolean", c.args[i])
		return false
	}
	return bool(v)
}

func (c *CallCtxt) Array(i int) *value.Array {
	v, ok := c.args[i].(*value.Array)
	if !ok {
		c.invalidArgType(i, "array", c.args[i])
		return nil
	}
	return v
}

func (c *CallCtxt) Map(i int) *value.Map {
	v, ok := c.args[i].(*value.Map)
	if !ok {
		c.invalidArgType(i, "hashmap", c.args[i])
		return nil
	}
	return v
}

func (c *CallCtxt) Callable(i int) value.Value {
	switch c.args[i].(type) {
	case *fn.Callable, *fn.ObjectMethod:
		return c.args[i]
	}
	c.invalidArgType(i, "callable", c.args[i])
	return nil
}

// Builtin is a named, fixed- or variable-arity native function (spec §6
// "Extension protocol"). Arity < 0 means variadic, mirroring
// fn.Callable.Arity's convention.
type Builtin struct {
	Name  string
	Arity int
	Func  func(c *CallCtxt) value.Value
}

// Callable builds the fn.Callable the Extension Registry stores, wiring
// this Builtin's Func through the CallCtxt protocol.
func (b *Builtin) Callable() *fn.Callable {
	return &fn.Callable{
		CallKind: fn.Free,
		Arity: b.Arity,
		Native: func(caller fn.Caller, args []value.Value) (value.Value, error) {
			c := &CallCtxt{Caller: caller, Name: b.Name, args: args}
			v := b.Func(c)
			if c.Err != nil {
				return nil, c.Err
			}
			return v, nil
		},
	}
}
