package optimize

import (
	"covscript.dev/go/cs/ast"
)

// OptimizeStmts walks stmts in place, folding every embedded expression
// tree and descending into nested bodies with the same scope discipline
// the tree-walk evaluator uses, so identifier folding observes the same
// record-set/domain state a run would (spec §4.4, §8 property 2).
func (o *Optimizer) OptimizeStmts(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := o.optimizeStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (o *Optimizer) scoped(body []ast.Stmt) error {
	o.Storage.AddSet()
	o.Storage.AddDomain()
	err := o.OptimizeStmts(body)
	o.Storage.RemoveDomain()
	o.Storage.RemoveSet()
	return err
}

func (o *Optimizer) optimizeStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.ExprStmt:
		return o.OptimizeExpr(st.Expr)
	case *ast.VarDef:
		if err := o.OptimizeExpr(st.Init); err != nil {
			return err
		}
		if err := o.Storage.AddRecord(st.Name); err != nil {
			return err
		}
		// Bind the folded value so later statements in this same scope can
		// fold references to it too (spec §4.4 identifier folding looks at
		// "the current record stack", which this scope's own domain is).
		if st.Init != nil && st.Init.Kind == ast.KindValue {
			return o.Storage.AddVar(st.Name, st.Init.Lit)
		}
		return nil
	case *ast.ReturnStmt:
		return o.OptimizeExpr(st.Value)
	case *ast.BreakStmt, *ast.ContinueStmt:
		return nil
	case *ast.Block:
		return o.scoped(st.Body)
	case *ast.NamespaceDef:
		return o.scoped(st.Body)
	case *ast.If:
		if err := o.OptimizeExpr(st.Cond); err != nil {
			return err
		}
		return o.scoped(st.Then)
	case *ast.IfElse:
		if err := o.OptimizeExpr(st.Cond); err != nil {
			return err
		}
		if err := o.scoped(st.Then); err != nil {
			return err
		}
		return o.scoped(st.Else)
	case *ast.Switch:
		if err := o.OptimizeExpr(st.Subject); err != nil {
			return err
		}
		for _, c := range st.Cases {
			if err := o.OptimizeExpr(c.Value); err != nil {
				return err
			}
			if err := o.scoped(c.Body); err != nil {
				return err
			}
		}
		return nil
	case *ast.While:
		if err := o.OptimizeExpr(st.Cond); err != nil {
			return err
		}
		return o.scoped(st.Body)
	case *ast.Loop:
		if err := o.scoped(st.Body); err != nil {
			return err
		}
		return o.OptimizeExpr(st.Cond)
	case *ast.For:
		if err := o.OptimizeExpr(st.From); err != nil {
			return err
		}
		if err := o.OptimizeExpr(st.To); err != nil {
			return err
		}
		if err := o.OptimizeExpr(st.Step); err != nil {
			return err
		}
		o.Storage.AddSet()
		o.Storage.AddDomain()
		_ = o.Storage.AddRecord(st.Var)
		err := o.OptimizeStmts(st.Body)
		o.Storage.RemoveDomain()
		o.Storage.RemoveSet()
		return err
	case *ast.Foreach:
		if err := o.OptimizeExpr(st.Iter); err != nil {
			return err
		}
		o.Storage.AddSet()
		o.Storage.AddDomain()
		_ = o.Storage.AddRecord(st.Var)
		err := o.OptimizeStmts(st.Body)
		o.Storage.RemoveDomain()
		o.Storage.RemoveSet()
		return err
	case *ast.Try:
		if err := o.scoped(st.Body); err != nil {
			return err
		}
		o.Storage.AddSet()
		o.Storage.AddDomain()
		_ = o.Storage.AddRecord(st.CatchName)
		err := o.OptimizeStmts(st.Catch)
		o.Storage.RemoveDomain()
		o.Storage.RemoveSet()
		return err
	case *ast.Throw:
		return o.OptimizeExpr(st.Value)
	case *ast.FunctionDef:
		if err := o.Storage.AddRecord(st.Name); err != nil {
			return err
		}
		return o.optimizeFunctionBody(st.Params, st.Body)
	case *ast.StructDef:
		if err := o.Storage.AddRecord(st.Name); err != nil {
			return err
		}
		o.Storage.AddSet()
		o.Storage.AddDomain()
		o.Storage.MarkSetAsStruct()
		err := o.OptimizeStmts(st.Body)
		o.Storage.RemoveDomain()
		o.Storage.RemoveSet()
		return err
	default:
		return nil
	}
}

// optimizeFunctionBody folds a function body in its own fresh scope with
// the formal arguments pre-declared, mirroring the domain a call would
// actually push (internal/core/eval/call.go's callCallable).
func (o *Optimizer) optimizeFunctionBody(params []string, body []ast.Stmt) error {
	o.Storage.AddSet()
	// A fresh, empty domain: parameters are deliberately left unbound here
	// (unlike a real call frame) so identifier folding never inlines a
	// parameter reference as if it were a compile-time constant.
	o.Storage.AddDomain()
	for _, p := range params {
		_ = o.Storage.AddRecord(p)
	}
	err := o.OptimizeStmts(body)
	o.Storage.RemoveDomain()
	o.Storage.RemoveSet()
	return err
}
