package eval

import (
	"covscript.dev/go/cs/ast"
	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/cs/token"
	"covscript.dev/go/internal/core/value"
)

// evalAssign implements `=` (spec §4.3 "lvalue, any → copy-assign"):
// evaluates rhs, copy-assigns it into the lvalue denoted by n.Left, and
// returns the assigned value.
func (c *Context) evalAssign(n *ast.Node) (value.Value, error) {
	rhs, err := c.Eval(n.Right)
	if err != nil {
		return nil, err
	}
	copied := rhs.Copy()
	if err := c.assignTo(n.Left, copied); err != nil {
		return nil, err
	}
	return copied, nil
}

// evalCompoundAssign implements `+=`, `-=`, etc. (spec §4.3, §4.5 "modify
// in place"): read the current value, combine with rhs via the plain
// arithmetic op (string-concat for `+=` on a string, per addOrArith), write
// back, return the new value.
func (c *Context) evalCompoundAssign(n *ast.Node) (value.Value, error) {
	cur, err := c.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	rhs, err := c.Eval(n.Right)
	if err != nil {
		return nil, err
	}
	next, err := c.addOrArith(n.Op.ArithFor(), cur, rhs)
	if err != nil {
		return nil, err
	}
	if err := c.assignTo(n.Left, next); err != nil {
		return nil, err
	}
	return next, nil
}

// evalIncDec implements `++`/`--` (spec §4.3): prefix if the operand is on
// the right (returns the new value), postfix if on the left (returns the
// old value); both sides present is a grammar error the optimizer's unary
// fix-up would normally have already rejected.
func (c *Context) evalIncDec(n *ast.Node) (value.Value, error) {
	var operand *ast.Node
	prefix := false
	switch {
	case n.Left != nil && n.Right == nil:
		operand = n.Left
	case n.Right != nil && n.Left == nil:
		operand = n.Right
		prefix = true
	default:
		return nil, cserrors.New(cserrors.Grammar, "%s requires exactly one operand", n.Op)
	}

	old, err := c.Eval(operand)
	if err != nil {
		return nil, err
	}
	delta := token.ADD
	if n.Op == token.DEC {
		delta = token.SUB
	}
	next, err := arith(delta, old, value.Int(1))
	if err != nil {
		return nil, err
	}
	if err := c.assignTo(operand, next); err != nil {
		return nil, err
	}
	if prefix {
		return next, nil
	}
	return old, nil
}

// assignTo writes v into the lvalue denoted by n, covering the three forms
// spec §1 names: local (identifier), array element, and field (struct
// member via dot/arrow).
func (c *Context) assignTo(n *ast.Node, v value.Value) error {
	if n == nil {
		return cserrors.New(cserrors.Internal, "assignment to a nil lvalue")
	}
	switch {
	case n.Kind == ast.KindID:
		return c.Storage.Assign(n.Name, v)

	case n.Kind == ast.KindSignal && n.Op == token.ACCESS:
		target, err := c.Eval(n.Left)
		if err != nil {
			return err
		}
		idx, err := c.Eval(n.Right)
		if err != nil {
			return err
		}
		return indexSet(target, idx, v)

	case n.Kind == ast.KindSignal && (n.Op == token.DOT || n.Op == token.ARROW):
		obj, err := c.Eval(n.Left)
		if err != nil {
			return err
		}
		if n.Op == token.ARROW {
			p, ok := obj.(*value.Pointer)
			if !ok {
				return cserrors.New(cserrors.Unsupported, "-> requires a pointer operand")
			}
			obj, err = p.Deref()
			if err != nil {
				return err
			}
		}
		if n.Right == nil || n.Right.Kind != ast.KindID {
			return cserrors.New(cserrors.Grammar, "malformed field assignment")
		}
		return fieldSet(obj, n.Right.Name, v)

	default:
		return cserrors.New(cserrors.Internal, "%s is not an assignable expression", n.Kind)
	}
}

func indexSet(target, idx, v value.Value) error {
	switch t := target.(type) {
	case *value.Array:
		i, ok := idx.(value.Int)
		if !ok {
			return cserrors.New(cserrors.Unsupported, "array index must be a number")
		}
		return t.Set(int(i), v)
	case *value.Map:
		t.Put(idx, v)
		return nil
	case *value.Str:
		// Open Question resolution (SPEC_FULL.md): string index assignment
		// is unsupported; strings are read-only via index.
		return cserrors.New(cserrors.Unsupported, "string elements are not assignable")
	default:
		return cserrors.New(cserrors.Unsupported, "%s is not indexable", target.Kind())
	}
}

func fieldSet(obj value.Value, name string, v value.Value) error {
	switch o := obj.(type) {
	case *value.Struct:
		if !o.Dom.Set(name, v) {
			return cserrors.New(cserrors.Undefined, "undefined or protected member %q", name)
		}
		return nil
	case *value.Namespace:
		if !o.Dom.Set(name, v) {
			return cserrors.New(cserrors.Undefined, "undefined or protected member %q", name)
		}
		return nil
	default:
		return cserrors.New(cserrors.Unsupported, "%s has no assignable fields", obj.Kind())
	}
}
