// Package optimize implements the AST Optimizer (spec §4.4): a single
// in-place walk that folds constants, disambiguates unary operators,
// rewrites `var x` pseudo-ops, and turns lambda literals into protected
// constant callables ahead of bytecode generation.
//
// Grounded on internal/core/compile/compile.go's in-place tree rewriting
// (the compiler mutates *ast.Node wholesale the same way a folded CS node
// is overwritten in place here) and internal/core/eval/disjunct.go's
// "only fold when both operands are already concrete" idiom, generalized
// from CUE's unify-and-simplify disjunction folding to CS's eager
// constant folding.
package optimize

import (
	"covscript.dev/go/cs/ast"
	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/cs/token"
	"covscript.dev/go/internal/core/domain"
	"covscript.dev/go/internal/core/eval"
	"covscript.dev/go/internal/core/extension"
	"covscript.dev/go/internal/core/fn"
	"covscript.dev/go/internal/core/value"
)

// foldableOps is the subset of signal ops sub-expression folding applies
// to: pure operators with no side effect and no special compile-time
// meaning of their own (assignment, call, member, index, new/gcnew, inc/
// dec, and vardef/lambda are excluded; the latter two have their own
// dedicated rules below).
var foldableOps = map[token.Op]bool{
	token.ADD: true, token.SUB: true, token.MUL: true, token.DIV: true,
	token.MOD: true, token.POW: true, token.MINUS: true,
	token.UND: true, token.ABO: true, token.UEQ: true, token.AEQ: true,
	token.EQU: true, token.NEQ: true, token.AND: true, token.OR: true,
	token.NOT: true, token.PAIR: true, token.CHOICE: true,
}

// Optimizer walks and rewrites an AST in place against a live scope stack,
// so identifier folding can see exactly what a tree-walk evaluation would
// see at that point in the program (spec §4.4).
type Optimizer struct {
	Storage *domain.Manager
	eval    *eval.Context
}

// New creates an Optimizer sharing storage and ext with an eval.Context it
// uses internally to evaluate foldable subtrees.
func New(storage *domain.Manager, ext *extension.Registry) *Optimizer {
	return &Optimizer{Storage: storage, eval: eval.NewContext(storage, ext)}
}

// OptimizeExpr folds n in place. Returns the (possibly identical) node and
// an error if n is grammatically malformed.
func (o *Optimizer) OptimizeExpr(n *ast.Node) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case ast.KindValue, ast.KindID, ast.KindEndLine:
		return o.foldIdent(n)
	case ast.KindExpr:
		return o.OptimizeExpr(n.Sub)
	case ast.KindArray:
		return o.optimizeArray(n)
	case ast.KindArgList:
		for _, e := range n.Elems {
			if err := o.OptimizeExpr(e); err != nil {
				return err
			}
		}
		return nil
	case ast.KindSignal:
		return o.optimizeSignal(n)
	default:
		return nil
	}
}

func (o *Optimizer) foldIdent(n *ast.Node) error {
	if n.Kind != ast.KindID {
		return nil
	}
	if o.Storage.IsProtected(n.Name) {
		if v, err := o.Storage.GetVar(n.Name); err == nil {
			*n = *ast.Lit(v, n.Pos)
		}
		return nil
	}
	// "declared in the current record stack and currently bound": model
	// this as "already bound in the innermost domain", the narrowest safe
	// reading of "current" (spec §4.4) — an outer-scope binding may still
	// be reassigned by code this optimizer pass hasn't looked at yet.
	if o.Storage.VarExistCurrent(n.Name) {
		v, err := o.Storage.GetVarCurrent(n.Name)
		if err == nil {
			*n = *ast.Lit(v, n.Pos)
		}
	}
	return nil
}

func (o *Optimizer) optimizeArray(n *ast.Node) error {
	allFold := true
	allPairs := len(n.Elems) > 0
	for _, e := range n.Elems {
		if e.Kind == ast.KindSignal && e.Op == token.EMB {
			if err := o.OptimizeExpr(e.Left); err != nil {
				return err
			}
			allFold = false
			allPairs = false
			continue
		}
		if err := o.OptimizeExpr(e); err != nil {
			return err
		}
		if e.Kind != ast.KindValue {
			allFold = false
		}
		if !(e.Kind == ast.KindValue && isPairValue(e.Lit)) {
			allPairs = false
		}
	}
	if !allFold {
		return nil
	}
	if allPairs {
		m := value.NewMap()
		for _, e := range n.Elems {
			p := e.Lit.(*value.Pair)
			m.Put(p.Key, p.Val)
		}
		*n = *ast.Lit(m, n.Pos)
		return nil
	}
	elems := make([]value.Value, len(n.Elems))
	for i, e := range n.Elems {
		elems[i] = e.Lit
	}
	*n = *ast.Lit(value.NewArray(elems...), n.Pos)
	return nil
}

func isPairValue(v value.Value) bool {
	_, ok := v.(*value.Pair)
	return ok
}

func (o *Optimizer) optimizeSignal(n *ast.Node) error {
	switch n.Op {
	case token.SUB:
		if n.Left == nil {
			n.Op = token.MINUS
		}
	case token.MUL:
		if n.Left == nil {
			n.Op = token.ESCAPE
		}
	}

	switch n.Op {
	case token.VARDEF:
		return o.rewriteVardef(n)
	case token.LAMBDA:
		return o.rewriteLambda(n)
	case token.FCALL:
		return o.optimizeCall(n)
	}

	if err := o.checkShape(n); err != nil {
		return err
	}

	if err := o.OptimizeExpr(n.Left); err != nil {
		return err
	}
	if err := o.OptimizeExpr(n.Right); err != nil {
		return err
	}

	if !foldableOps[n.Op] {
		return nil
	}
	if n.Op == token.CHOICE {
		// Only fold once the condition is concrete; branches keep their
		// own laziness even when literal, since evaluating the untaken
		// branch at compile time could have no valid value at all.
		if n.Left == nil || n.Left.Kind != ast.KindValue {
			return nil
		}
	} else {
		if n.Left != nil && n.Left.Kind != ast.KindValue {
			return nil
		}
		if n.Right != nil && n.Right.Kind != ast.KindValue {
			return nil
		}
	}

	v, err := o.eval.Eval(n)
	if err != nil {
		// Leave the node as-is; a folding attempt that would fail at run
		// time anyway is not this pass's job to report.
		return nil
	}
	*n = *ast.Lit(v, n.Pos)
	return nil
}

// checkShape raises Grammar for parse-time-ambiguous shapes the unary
// fix-up above didn't resolve into something consistent (spec §4.4's
// final bullet).
func (o *Optimizer) checkShape(n *ast.Node) error {
	switch n.Op {
	case token.NEW, token.GCNEW:
		if n.Left != nil {
			return cserrors.New(cserrors.Grammar, "%s takes no left operand", n.Op)
		}
	case token.MINUS, token.ESCAPE, token.NOT, token.TYPEID:
		if n.Left != nil && n.Right != nil {
			return cserrors.New(cserrors.Grammar, "%s is unary but has two operands", n.Op)
		}
	case token.INC, token.DEC:
		if (n.Left == nil) == (n.Right == nil) {
			return cserrors.New(cserrors.Grammar, "%s requires exactly one operand (prefix xor postfix)", n.Op)
		}
	}
	return nil
}

// rewriteVardef handles the `var x` pseudo-op (spec §4.4): record x in the
// current record set and replace the node with the bare identifier.
func (o *Optimizer) rewriteVardef(n *ast.Node) error {
	if n.Left == nil || n.Left.Kind != ast.KindID {
		return cserrors.New(cserrors.Grammar, "malformed vardef node")
	}
	name := n.Left.Name
	if err := o.Storage.AddRecord(name); err != nil {
		return err
	}
	*n = *ast.ID(name, n.Pos)
	return nil
}

// rewriteLambda validates the argument list and emits a protected,
// constant callable literal (spec §4.4 "Lambda rewrite").
func (o *Optimizer) rewriteLambda(n *ast.Node) error {
	if n.Left == nil || n.Left.Kind != ast.KindArgList {
		return cserrors.New(cserrors.Grammar, "malformed lambda argument list")
	}
	seen := map[string]bool{}
	params := make([]string, len(n.Left.Elems))
	for i, p := range n.Left.Elems {
		if p.Kind != ast.KindID {
			return cserrors.New(cserrors.Grammar, "lambda parameters must be identifiers")
		}
		if seen[p.Name] {
			return cserrors.New(cserrors.Redefinition, "duplicate lambda parameter %q", p.Name)
		}
		seen[p.Name] = true
		params[i] = p.Name
	}
	body := []ast.Stmt{&ast.ReturnStmt{Pos: n.Pos, Value: n.Right}}
	cl := &fn.Callable{
		CallKind: fn.Free,
		Fn: &fn.Function{
			Params:  params,
			Body:    body,
			Context: o.Storage.Capture(),
		},
		Constant:  true,
		Protected: true,
	}
	*n = *ast.Lit(cl, n.Pos)
	return nil
}

// optimizeCall folds the callee and arguments, then evaluates the call at
// compile time if the callee folded to a constant callable and every
// argument folded too (spec §4.4 "Call folding").
func (o *Optimizer) optimizeCall(n *ast.Node) error {
	if err := o.OptimizeExpr(n.Left); err != nil {
		return err
	}
	if n.Right != nil {
		if n.Right.Kind != ast.KindArgList {
			return cserrors.New(cserrors.Grammar, "malformed call argument list")
		}
		for _, a := range n.Right.Elems {
			if err := o.OptimizeExpr(a); err != nil {
				return err
			}
		}
	}
	if n.Left == nil || n.Left.Kind != ast.KindValue {
		return nil
	}
	cl, ok := n.Left.Lit.(*fn.Callable)
	if !ok || !cl.Constant {
		return nil
	}
	var args []value.Value
	if n.Right != nil {
		for _, a := range n.Right.Elems {
			if a.Kind != ast.KindValue {
				return nil
			}
			args = append(args, a.Lit)
		}
	}
	v, err := o.eval.CallValue(cl, args)
	if err != nil {
		return nil
	}
	*n = *ast.Lit(v, n.Pos)
	return nil
}
