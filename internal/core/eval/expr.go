package eval

import (
	"covscript.dev/go/cs/ast"
	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/cs/token"
	"covscript.dev/go/internal/core/fn"
	"covscript.dev/go/internal/core/value"
)

// Eval evaluates n and returns its Value (spec §4.3). This is the single
// recursive entry point every statement runner and native callback goes
// through.
func (c *Context) Eval(n *ast.Node) (value.Value, error) {
	if n == nil {
		return value.Int(0), nil
	}
	switch n.Kind {
	case ast.KindValue:
		return n.Lit, nil
	case ast.KindID:
		return c.Storage.GetVar(n.Name)
	case ast.KindExpr:
		return c.Eval(n.Sub)
	case ast.KindArray:
		return c.evalArrayLit(n)
	case ast.KindSignal:
		return c.evalSignal(n)
	case ast.KindEndLine:
		return value.Int(0), nil
	default:
		return nil, cserrors.New(cserrors.Internal, "eval: unexpected node kind %s", n.Kind)
	}
}

// evalArrayLit builds an array literal at runtime, promoting to a Map if
// every element is a Pair (spec §4.4 "Array literal folding", §8 property
// 8: this promotion is a general evaluation-time rule, not just an
// optimizer shortcut, since not every array literal is foldable at compile
// time). EMB-marked elements splice another array/map's contents in place
// of a single element (spec §6 "emb").
func (c *Context) evalArrayLit(n *ast.Node) (value.Value, error) {
	var elems []value.Value
	allPairs := len(n.Elems) > 0
	for _, e := range n.Elems {
		if e.Kind == ast.KindSignal && e.Op == token.EMB {
			embedded, err := c.Eval(e.Left)
			if err != nil {
				return nil, err
			}
			switch ev := embedded.(type) {
			case *value.Array:
				elems = append(elems, ev.Elems...)
				allPairs = false
			case *value.Map:
				for _, k := range ev.Keys() {
					v, _ := ev.Lookup(k)
					elems = append(elems, value.NewPair(k, v))
				}
			default:
				return nil, cserrors.New(cserrors.Unsupported, "cannot embed a %s into an array literal", embedded.Kind())
			}
			continue
		}
		v, err := c.Eval(e)
		if err != nil {
			return nil, err
		}
		if _, ok := v.(*value.Pair); !ok {
			allPairs = false
		}
		elems = append(elems, v)
	}
	if allPairs {
		m := value.NewMap()
		for _, e := range elems {
			p := e.(*value.Pair)
			m.Put(p.Key, p.Val)
		}
		return m, nil
	}
	return value.NewArray(elems...), nil
}

func (c *Context) evalSignal(n *ast.Node) (value.Value, error) {
	switch n.Op {
	case token.ADD:
		return c.evalAdd(n)
	case token.SUB, token.MUL, token.DIV, token.MOD, token.POW:
		return c.evalArith(n)
	case token.MINUS:
		return c.evalUnaryMinus(n)
	case token.ESCAPE:
		return c.evalDeref(n)
	case token.UND, token.ABO, token.UEQ, token.AEQ:
		return c.evalCompare(n)
	case token.EQU, token.NEQ:
		return c.evalEquality(n)
	case token.AND, token.OR:
		return c.evalLogical(n)
	case token.NOT:
		return c.evalNot(n)
	case token.INC, token.DEC:
		return c.evalIncDec(n)
	case token.ASI:
		return c.evalAssign(n)
	case token.ADDASI, token.SUBASI, token.MULASI, token.DIVASI, token.MODASI, token.POWASI:
		return c.evalCompoundAssign(n)
	case token.CHOICE:
		return c.evalChoice(n)
	case token.PAIR:
		return c.evalPair(n)
	case token.DOT, token.ARROW:
		return c.evalMember(n)
	case token.TYPEID:
		return c.evalTypeID(n)
	case token.NEW, token.GCNEW:
		return c.evalNew(n)
	case token.ACCESS:
		return c.evalIndex(n)
	case token.FCALL:
		return c.evalCall(n)
	case token.LAMBDA:
		return c.evalLambda(n)
	default:
		return nil, cserrors.New(cserrors.Grammar, "unexpected operator %s in expression position", n.Op)
	}
}

func (c *Context) evalAdd(n *ast.Node) (value.Value, error) {
	l, err := c.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	r, err := c.Eval(n.Right)
	if err != nil {
		return nil, err
	}
	return c.addOrArith(token.ADD, l, r)
}

// addOrArith implements the `+` row of spec §4.3: `(string, any) → concat`
// when the left operand is a string, plain numeric addition otherwise. It
// is shared by `evalAdd` and `evalCompoundAssign` so `s += x` goes through
// the same string-concat path as `s + x`.
func (c *Context) addOrArith(op token.Op, l, r value.Value) (value.Value, error) {
	if ls, ok := l.(*value.Str); ok && op == token.ADD {
		rs, err := c.toDisplayString(r)
		if err != nil {
			return nil, err
		}
		return value.NewString(ls.S + rs), nil
	}
	return arith(op, l, r)
}

func (c *Context) evalArith(n *ast.Node) (value.Value, error) {
	l, err := c.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	r, err := c.Eval(n.Right)
	if err != nil {
		return nil, err
	}
	return arith(n.Op, l, r)
}

func (c *Context) evalUnaryMinus(n *ast.Node) (value.Value, error) {
	v, err := c.Eval(n.Right)
	if n.Right == nil {
		v, err = c.Eval(n.Left)
	}
	if err != nil {
		return nil, err
	}
	switch nv := v.(type) {
	case value.Int:
		return -nv, nil
	case value.Float:
		return -nv, nil
	default:
		return nil, errNotNumeric
	}
}

func (c *Context) evalDeref(n *ast.Node) (value.Value, error) {
	operand := n.Right
	if operand == nil {
		operand = n.Left
	}
	v, err := c.Eval(operand)
	if err != nil {
		return nil, err
	}
	p, ok := v.(*value.Pointer)
	if !ok {
		return nil, cserrors.New(cserrors.Unsupported, "unary * on non-pointer value")
	}
	return p.Deref()
}

func (c *Context) evalCompare(n *ast.Node) (value.Value, error) {
	l, err := c.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	r, err := c.Eval(n.Right)
	if err != nil {
		return nil, err
	}
	res, err := compare(n.Op, l, r)
	if err != nil {
		return nil, err
	}
	return value.Bool(res), nil
}

func (c *Context) evalEquality(n *ast.Node) (value.Value, error) {
	l, err := c.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	r, err := c.Eval(n.Right)
	if err != nil {
		return nil, err
	}
	eq := l.Equal(r)
	if n.Op == token.NEQ {
		eq = !eq
	}
	return value.Bool(eq), nil
}

func (c *Context) evalLogical(n *ast.Node) (value.Value, error) {
	l, err := c.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	lb, ok := l.(value.Bool)
	if !ok {
		return nil, cserrors.New(cserrors.Unsupported, "%s requires boolean operands", n.Op)
	}
	// Short-circuit: && stops on false, || stops on true.
	if n.Op == token.AND && !bool(lb) {
		return value.Bool(false), nil
	}
	if n.Op == token.OR && bool(lb) {
		return value.Bool(true), nil
	}
	r, err := c.Eval(n.Right)
	if err != nil {
		return nil, err
	}
	rb, ok := r.(value.Bool)
	if !ok {
		return nil, cserrors.New(cserrors.Unsupported, "%s requires boolean operands", n.Op)
	}
	return rb, nil
}

func (c *Context) evalNot(n *ast.Node) (value.Value, error) {
	operand := n.Right
	if operand == nil {
		operand = n.Left
	}
	v, err := c.Eval(operand)
	if err != nil {
		return nil, err
	}
	b, ok := v.(value.Bool)
	if !ok {
		return nil, cserrors.New(cserrors.Unsupported, "! requires a boolean operand")
	}
	return !b, nil
}

// evalChoice implements `cond ? then : else` (spec §4.3 "?:"): lazy,
// evaluating only the chosen branch. The AST represents the (then, else)
// pair as a nested PAIR-shaped signal node on the right so the tree stays
// strictly binary (spec §3).
func (c *Context) evalChoice(n *ast.Node) (value.Value, error) {
	cond, err := c.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	b, ok := cond.(value.Bool)
	if !ok {
		return nil, cserrors.New(cserrors.Unsupported, "?: condition must be boolean")
	}
	branches := n.Right
	if branches == nil || branches.Kind != ast.KindSignal || branches.Op != token.PAIR {
		return nil, cserrors.New(cserrors.Grammar, "malformed ?: node")
	}
	if b {
		return c.Eval(branches.Left)
	}
	return c.Eval(branches.Right)
}

func (c *Context) evalPair(n *ast.Node) (value.Value, error) {
	k, err := c.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	v, err := c.Eval(n.Right)
	if err != nil {
		return nil, err
	}
	if _, ok := k.(*value.Pair); ok {
		return nil, cserrors.New(cserrors.Unsupported, "%s: a pair's key cannot itself be a pair", n.Op)
	}
	if _, ok := v.(*value.Pair); ok {
		return nil, cserrors.New(cserrors.Unsupported, "%s: a pair's value cannot itself be a pair", n.Op)
	}
	return value.NewPair(k, v), nil
}

func (c *Context) evalMember(n *ast.Node) (value.Value, error) {
	obj, err := c.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	if n.Op == token.ARROW {
		p, ok := obj.(*value.Pointer)
		if !ok {
			return nil, cserrors.New(cserrors.Unsupported, "-> requires a pointer operand")
		}
		obj, err = p.Deref()
		if err != nil {
			return nil, err
		}
	}
	if n.Right == nil || n.Right.Kind != ast.KindID {
		return nil, cserrors.New(cserrors.Grammar, "malformed member access")
	}
	return c.Extensions.Resolve(c.Storage, obj, n.Right.Name)
}

func (c *Context) evalTypeID(n *ast.Node) (value.Value, error) {
	operand := n.Right
	if operand == nil {
		operand = n.Left
	}
	v, err := c.Eval(operand)
	if err != nil {
		return nil, err
	}
	return value.Int(v.TypeID()), nil
}

func (c *Context) evalIndex(n *ast.Node) (value.Value, error) {
	target, err := c.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	idx, err := c.Eval(n.Right)
	if err != nil {
		return nil, err
	}
	return indexGet(target, idx)
}

func indexGet(target, idx value.Value) (value.Value, error) {
	switch t := target.(type) {
	case *value.Array:
		i, ok := idx.(value.Int)
		if !ok {
			return nil, cserrors.New(cserrors.Unsupported, "array index must be a number")
		}
		return t.Get(int(i))
	case *value.Map:
		return t.Get(idx), nil
	case *value.Str:
		i, ok := idx.(value.Int)
		if !ok {
			return nil, cserrors.New(cserrors.Unsupported, "string index must be a number")
		}
		if i < 0 || int(i) >= len(t.S) {
			return nil, cserrors.New(cserrors.Unsupported, "string index out of range")
		}
		return value.Char(t.S[i]), nil
	default:
		return nil, cserrors.New(cserrors.Unsupported, "%s is not indexable", target.Kind())
	}
}

func (c *Context) evalLambda(n *ast.Node) (value.Value, error) {
	if n.Left == nil || n.Left.Kind != ast.KindArgList {
		return nil, cserrors.New(cserrors.Grammar, "malformed lambda argument list")
	}
	params := make([]string, len(n.Left.Elems))
	for i, p := range n.Left.Elems {
		if p.Kind != ast.KindID {
			return nil, cserrors.New(cserrors.Grammar, "lambda parameters must be identifiers")
		}
		params[i] = p.Name
	}
	body := []ast.Stmt{&ast.ReturnStmt{Pos: n.Pos, Value: n.Right}}
	callable := &fn.Callable{
		CallKind: fn.Free,
		Fn: &fn.Function{
			Params:  params,
			Body:    body,
			Context: c.Storage.Capture(),
		},
	}
	return callable, nil
}
