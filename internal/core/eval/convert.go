package eval

import "covscript.dev/go/internal/core/value"

// toDisplayString implements the `to_string(rhs)` half of the `(string,
// any)` row of spec §4.3's `+` contract. Kinds with no direct textual form
// (struct, pointer, namespace, type, callable) delegate to a `to_string`
// extension method if one is registered, the same dot-resolution path
// member access uses (spec §4.2); REPL mode's "swallow only
// ErrNoStringRepr" policy (spec §7) lives at the statement-runner layer,
// not here.
func (c *Context) toDisplayString(v value.Value) (string, error) {
	s, err := v.String()
	if err == nil {
		return s, nil
	}
	if err != value.ErrNoStringRepr {
		return "", err
	}
	method, rerr := c.Extensions.Resolve(c.Storage, v, "to_string")
	if rerr != nil {
		return "", err
	}
	result, cerr := c.CallValue(method, nil)
	if cerr != nil {
		return "", cerr
	}
	rs, ok := result.(*value.Str)
	if !ok {
		return "", err
	}
	return rs.S, nil
}
