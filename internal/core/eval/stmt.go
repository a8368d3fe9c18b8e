package eval

import (
	"covscript.dev/go/cs/ast"
	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/cs/token"
	"covscript.dev/go/internal/core/domain"
	"covscript.dev/go/internal/core/fn"
	"covscript.dev/go/internal/core/value"
)

// thrown carries a user-thrown lang_error value through the normal Go
// error-return channel (spec §4.6 "throw"/"try"/"catch"), so try/catch can
// distinguish it from a structured *cserrors.Error or a generic failure.
type thrown struct{ Value *value.LangError }

func (t *thrown) Error() string { return t.Value.Msg }

// Run executes a statement sequence (spec §4.6), stopping early once a
// return/break/continue is requested or a statement errors.
func (c *Context) Run(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := c.runStmt(s); err != nil {
			return err
		}
		if c.unwindRequested() {
			return nil
		}
	}
	return nil
}

// runStmt executes one statement and, on a generic (non-language-error)
// failure, wraps it with file/line/raw-source context exactly once (spec
// §7's propagation policy; cserrors.Wrap is itself idempotent on an
// already-wrapped *Error).
func (c *Context) runStmt(s ast.Stmt) error {
	err := c.execStmt(s)
	if err == nil {
		return nil
	}
	if _, ok := err.(*thrown); ok {
		return err
	}
	pos := s.Position()
	return cserrors.Wrap(err, pos.File, pos.Line, pos.Raw)
}

func (c *Context) execStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.ExprStmt:
		_, err := c.Eval(st.Expr)
		return err

	case *ast.VarDef:
		v, err := c.Eval(st.Init)
		if err != nil {
			return err
		}
		if err := c.Storage.AddRecord(st.Name); err != nil {
			return err
		}
		return c.Storage.AddVar(st.Name, v)

	case *ast.ReturnStmt:
		v := value.Value(value.Int(0))
		if st.Value != nil {
			rv, err := c.Eval(st.Value)
			if err != nil {
				return err
			}
			v = rv
		}
		c.returnValue = v
		c.returnRequested = true
		return nil

	case *ast.BreakStmt:
		c.breakRequested = true
		return nil

	case *ast.ContinueStmt:
		c.continueRequested = true
		return nil

	case *ast.Block:
		return c.runScoped(st.Body)

	case *ast.NamespaceDef:
		return c.execNamespaceDef(st)

	case *ast.If:
		return c.execIf(st.Cond, st.Then, nil)

	case *ast.IfElse:
		return c.execIf(st.Cond, st.Then, st.Else)

	case *ast.Switch:
		return c.execSwitch(st)

	case *ast.While:
		return c.execWhile(st)

	case *ast.Loop:
		return c.execLoop(st)

	case *ast.For:
		return c.execFor(st)

	case *ast.Foreach:
		return c.execForeach(st)

	case *ast.Try:
		return c.execTry(st)

	case *ast.Throw:
		return c.execThrow(st)

	case *ast.FunctionDef:
		return c.execFunctionDef(st)

	case *ast.StructDef:
		return c.execStructDef(st)

	default:
		return cserrors.New(cserrors.Internal, "unhandled statement kind %T", s)
	}
}

// runScoped pushes a fresh record set and domain, runs body, and pops both
// unconditionally (spec §8 property 2: scope depth is restored after any
// statement, including one that errors or throws).
func (c *Context) runScoped(body []ast.Stmt) error {
	c.Storage.AddSet()
	c.Storage.AddDomain()
	err := c.Run(body)
	c.Storage.RemoveDomain()
	c.Storage.RemoveSet()
	return err
}

func (c *Context) execNamespaceDef(st *ast.NamespaceDef) error {
	c.Storage.AddSet()
	d := domain.New()
	c.Storage.AddDomainValue(d)
	err := c.Run(st.Body)
	c.Storage.RemoveDomain()
	c.Storage.RemoveSet()
	if err != nil {
		return err
	}
	ns := &value.Namespace{Name: st.Name, ID: value.NewTypeID(), Dom: d}
	if err := c.Storage.AddRecord(st.Name); err != nil {
		return err
	}
	return c.Storage.AddVar(st.Name, ns)
}

func (c *Context) execIf(cond *ast.Node, then, els []ast.Stmt) error {
	cv, err := c.Eval(cond)
	if err != nil {
		return err
	}
	b, ok := cv.(value.Bool)
	if !ok {
		return cserrors.New(cserrors.Unsupported, "if condition must be boolean")
	}
	if b {
		return c.runScoped(then)
	}
	if els != nil {
		return c.runScoped(els)
	}
	return nil
}

func (c *Context) execSwitch(st *ast.Switch) error {
	subject, err := c.Eval(st.Subject)
	if err != nil {
		return err
	}
	var defaultCase *ast.SwitchCase
	for i := range st.Cases {
		cs := &st.Cases[i]
		if cs.Value == nil {
			defaultCase = cs
			continue
		}
		cv, err := c.Eval(cs.Value)
		if err != nil {
			return err
		}
		if subject.Equal(cv) {
			return c.runScoped(cs.Body)
		}
	}
	if defaultCase != nil {
		return c.runScoped(defaultCase.Body)
	}
	return nil
}

// runLoopBody executes one loop iteration's body in a fresh scope and
// reports whether the loop should stop (a return or break was requested).
func (c *Context) runLoopBody(body []ast.Stmt) (stop bool, err error) {
	c.Storage.AddSet()
	c.Storage.AddDomain()
	err = c.Run(body)
	c.Storage.RemoveDomain()
	c.Storage.RemoveSet()
	if err != nil {
		return true, err
	}
	if c.returnRequested {
		return true, nil
	}
	if c.breakRequested {
		c.clearLoopFlags()
		return true, nil
	}
	if c.continueRequested {
		c.clearLoopFlags()
	}
	return false, nil
}

func requireBool(v value.Value, what string) (bool, error) {
	b, ok := v.(value.Bool)
	if !ok {
		return false, cserrors.New(cserrors.Unsupported, "%s must be boolean", what)
	}
	return bool(b), nil
}

func (c *Context) execWhile(st *ast.While) error {
	for {
		cv, err := c.Eval(st.Cond)
		if err != nil {
			return err
		}
		b, err := requireBool(cv, "while condition")
		if err != nil {
			return err
		}
		if !b {
			return nil
		}
		stop, err := c.runLoopBody(st.Body)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// execLoop implements `loop ... until cond` (spec §4.6): the body runs at
// least once before the condition is first checked.
func (c *Context) execLoop(st *ast.Loop) error {
	for {
		stop, err := c.runLoopBody(st.Body)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
		cv, err := c.Eval(st.Cond)
		if err != nil {
			return err
		}
		b, err := requireBool(cv, "loop condition")
		if err != nil {
			return err
		}
		if b {
			return nil
		}
	}
}

func (c *Context) execFor(st *ast.For) error {
	from, err := c.Eval(st.From)
	if err != nil {
		return err
	}
	to, err := c.Eval(st.To)
	if err != nil {
		return err
	}
	step := value.Value(value.Int(1))
	if st.Step != nil {
		step, err = c.Eval(st.Step)
		if err != nil {
			return err
		}
	}
	stepF, _, ok := asNumber(step)
	if !ok {
		return errNotNumeric
	}
	descending := stepF < 0

	cur := from
	for {
		curF, _, ok := asNumber(cur)
		if !ok {
			return errNotNumeric
		}
		toF, _, ok := asNumber(to)
		if !ok {
			return errNotNumeric
		}
		if descending {
			if curF < toF {
				return nil
			}
		} else if curF > toF {
			return nil
		}

		c.Storage.AddSet()
		c.Storage.AddDomain()
		if err := c.Storage.AddVar(st.Var, cur); err != nil {
			c.Storage.RemoveDomain()
			c.Storage.RemoveSet()
			return err
		}
		err := c.Run(st.Body)
		c.Storage.RemoveDomain()
		c.Storage.RemoveSet()
		if err != nil {
			return err
		}
		if c.returnRequested {
			return nil
		}
		if c.breakRequested {
			c.clearLoopFlags()
			return nil
		}
		if c.continueRequested {
			c.clearLoopFlags()
		}

		cur, err = arith(token.ADD, cur, step)
		if err != nil {
			return err
		}
	}
}

func (c *Context) execForeach(st *ast.Foreach) error {
	iter, err := c.Eval(st.Iter)
	if err != nil {
		return err
	}
	var items []value.Value
	switch it := iter.(type) {
	case *value.Str:
		for i := 0; i < len(it.S); i++ {
			items = append(items, value.Char(it.S[i]))
		}
	case *value.Array:
		items = append(items, it.Elems...)
	case *value.Map:
		for _, k := range it.Keys() {
			v, _ := it.Lookup(k)
			items = append(items, value.NewPair(k, v))
		}
	default:
		return cserrors.New(cserrors.Unsupported, "foreach requires a string, array, or hash-map, got %s", iter.Kind())
	}

	for _, item := range items {
		c.Storage.AddSet()
		c.Storage.AddDomain()
		if err := c.Storage.AddVar(st.Var, item); err != nil {
			c.Storage.RemoveDomain()
			c.Storage.RemoveSet()
			return err
		}
		err := c.Run(st.Body)
		c.Storage.RemoveDomain()
		c.Storage.RemoveSet()
		if err != nil {
			return err
		}
		if c.returnRequested {
			return nil
		}
		if c.breakRequested {
			c.clearLoopFlags()
			return nil
		}
		if c.continueRequested {
			c.clearLoopFlags()
		}
	}
	return nil
}

func (c *Context) execTry(st *ast.Try) error {
	err := c.runScoped(st.Body)
	th, ok := err.(*thrown)
	if !ok {
		return err
	}
	c.Storage.AddSet()
	c.Storage.AddDomain()
	if derr := c.Storage.AddVar(st.CatchName, th.Value); derr != nil {
		c.Storage.RemoveDomain()
		c.Storage.RemoveSet()
		return derr
	}
	cerr := c.Run(st.Catch)
	c.Storage.RemoveDomain()
	c.Storage.RemoveSet()
	return cerr
}

// execThrow implements `throw` (spec §4.6, §8 property 10): only a
// lang_error value is throwable; anything else raises Syntax.
func (c *Context) execThrow(st *ast.Throw) error {
	v, err := c.Eval(st.Value)
	if err != nil {
		return err
	}
	le, ok := v.(*value.LangError)
	if !ok {
		return cserrors.New(cserrors.Syntax, "throw requires a lang_error value, got %s", v.Kind())
	}
	return &thrown{Value: le}
}

func (c *Context) execFunctionDef(st *ast.FunctionDef) error {
	kind := fn.Free
	if c.Storage.InStructDefinition() {
		kind = fn.MemberFn
	}
	callable := &fn.Callable{
		CallKind: kind,
		Fn: &fn.Function{
			Name:    st.Name,
			Params:  st.Params,
			Body:    st.Body,
			Context: c.Storage.Capture(),
		},
	}
	if err := c.Storage.AddRecord(st.Name); err != nil {
		return err
	}
	return c.Storage.AddVar(st.Name, callable)
}

func (c *Context) execStructDef(st *ast.StructDef) error {
	sb := &structBuilder{
		name:    st.Name,
		id:      value.NewTypeID(),
		body:    st.Body,
		context: c.Storage.Capture(),
	}
	if st.Extends != "" {
		parent, ok := c.Structs[st.Extends]
		if !ok {
			return cserrors.New(cserrors.Undefined, "undefined parent struct %q", st.Extends)
		}
		sb.extends = parent
	}
	c.Structs[st.Name] = sb

	td := &value.TypeDescriptor{Name: st.Name, ID: sb.id}
	if err := c.Storage.AddRecord(st.Name); err != nil {
		return err
	}
	return c.Storage.AddVar(st.Name, td)
}
