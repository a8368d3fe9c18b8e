package eval

import (
	"covscript.dev/go/cs/ast"
	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/internal/core/domain"
	"covscript.dev/go/internal/core/fn"
	"covscript.dev/go/internal/core/value"
)

// CallValue implements fn.Caller so native functions can invoke a callable
// value back (spec §9 "Thread-local active runtime" design note: the
// runtime handle is threaded explicitly through this signature rather than
// fetched from a global). It also backs the `f(args)` row of spec §4.3's
// operator table.
func (c *Context) CallValue(callee value.Value, args []value.Value) (value.Value, error) {
	if om, ok := callee.(*fn.ObjectMethod); ok {
		full := make([]value.Value, 0, len(args)+1)
		full = append(full, om.Receiver)
		full = append(full, args...)
		return c.callCallable(om.Callable, full)
	}
	cl, ok := callee.(*fn.Callable)
	if !ok {
		return nil, cserrors.New(cserrors.Unsupported, "%s is not callable", callee.Kind())
	}
	return c.callCallable(cl, args)
}

func (c *Context) callCallable(cl *fn.Callable, args []value.Value) (value.Value, error) {
	if cl.Native != nil {
		if cl.Arity >= 0 && len(args) != cl.Arity {
			return nil, cserrors.New(cserrors.ArgumentCountMismatch,
				"expected %d argument(s), got %d", cl.Arity, len(args))
		}
		return cl.Native(c, args)
	}
	if cl.Fn == nil {
		return nil, cserrors.New(cserrors.Internal, "callable has neither a native nor a user function body")
	}
	if len(args) != len(cl.Fn.Params) {
		return nil, cserrors.New(cserrors.ArgumentCountMismatch,
			"expected %d argument(s), got %d", len(cl.Fn.Params), len(args))
	}

	c.callDepth++
	if c.callDepth > c.MaxCallDepth {
		c.callDepth--
		return nil, errCallDepthExceeded
	}
	defer func() { c.callDepth-- }()

	callDomain := domain.New()
	for i, p := range cl.Fn.Params {
		if err := callDomain.Declare(p, args[i], false); err != nil {
			return nil, err
		}
	}
	restore := c.Storage.EnterCall(cl.Fn.Context, callDomain)
	defer restore()

	savedReturn, savedReturnVal := c.returnRequested, c.returnValue
	savedBreak, savedContinue := c.breakRequested, c.continueRequested
	c.returnRequested, c.returnValue = false, nil
	c.breakRequested, c.continueRequested = false, false
	defer func() {
		c.returnRequested, c.returnValue = savedReturn, savedReturnVal
		c.breakRequested, c.continueRequested = savedBreak, savedContinue
	}()

	if err := c.Run(cl.Fn.Body); err != nil {
		return nil, err
	}
	if c.returnValue != nil {
		return c.returnValue, nil
	}
	return value.Int(0), nil
}

func (c *Context) evalCall(n *ast.Node) (value.Value, error) {
	callee, err := c.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	var args []value.Value
	if n.Right != nil {
		if n.Right.Kind != ast.KindArgList {
			return nil, cserrors.New(cserrors.Grammar, "malformed call argument list")
		}
		args = make([]value.Value, len(n.Right.Elems))
		for i, a := range n.Right.Elems {
			v, err := c.Eval(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
	}
	return c.CallValue(callee, args)
}
