package optimize

import (
	"testing"

	"covscript.dev/go/cs/ast"
	"covscript.dev/go/cs/token"
	"covscript.dev/go/internal/core/domain"
	"covscript.dev/go/internal/core/extension"
	"covscript.dev/go/internal/core/value"
)

func newOptimizer() *Optimizer {
	return New(domain.NewManager(), extension.New())
}

func TestSubExpressionFolding(t *testing.T) {
	o := newOptimizer()
	n := ast.Signal(token.ADD, ast.Lit(value.Int(2), ast.Pos{}), ast.Lit(value.Int(3), ast.Pos{}), ast.Pos{})
	if err := o.OptimizeExpr(n); err != nil {
		t.Fatal(err)
	}
	if n.Kind != ast.KindValue || n.Lit.(value.Int) != 5 {
		t.Fatalf("got %+v, want folded value 5", n)
	}
}

func TestUnaryFixup(t *testing.T) {
	o := newOptimizer()
	n := ast.Signal(token.SUB, nil, ast.Lit(value.Int(4), ast.Pos{}), ast.Pos{})
	if err := o.OptimizeExpr(n); err != nil {
		t.Fatal(err)
	}
	if n.Kind != ast.KindValue || n.Lit.(value.Int) != -4 {
		t.Fatalf("got %+v, want folded value -4", n)
	}
}

func TestArrayLiteralFoldingToMap(t *testing.T) {
	o := newOptimizer()
	pair := ast.Signal(token.PAIR, ast.Lit(value.NewString("a"), ast.Pos{}), ast.Lit(value.Int(1), ast.Pos{}), ast.Pos{})
	arr := ast.ArrayLit([]*ast.Node{pair}, ast.Pos{})
	if err := o.OptimizeExpr(arr); err != nil {
		t.Fatal(err)
	}
	m, ok := arr.Lit.(*value.Map)
	if !ok {
		t.Fatalf("got %T, want *value.Map", arr.Lit)
	}
	if v, _ := m.Lookup(value.NewString("a")); v.(value.Int) != 1 {
		t.Fatalf("got %v, want 1", v)
	}
}

func TestVardefRewrite(t *testing.T) {
	o := newOptimizer()
	n := ast.Signal(token.VARDEF, ast.ID("x", ast.Pos{}), nil, ast.Pos{})
	if err := o.OptimizeExpr(n); err != nil {
		t.Fatal(err)
	}
	if n.Kind != ast.KindID || n.Name != "x" {
		t.Fatalf("got %+v, want bare identifier x", n)
	}
}

func TestLambdaRewrite(t *testing.T) {
	o := newOptimizer()
	args := ast.ArgList([]*ast.Node{ast.ID("x", ast.Pos{})}, ast.Pos{})
	body := ast.Signal(token.ADD, ast.ID("x", ast.Pos{}), ast.Lit(value.Int(1), ast.Pos{}), ast.Pos{})
	n := ast.Signal(token.LAMBDA, args, body, ast.Pos{})
	if err := o.OptimizeExpr(n); err != nil {
		t.Fatal(err)
	}
	if n.Kind != ast.KindValue {
		t.Fatalf("got %+v, want folded lambda literal", n)
	}
}

func TestIdentifierFoldingProtected(t *testing.T) {
	o := newOptimizer()
	if err := o.Storage.AddVarProtected("pi", value.Float(3.5)); err != nil {
		t.Fatal(err)
	}
	n := ast.ID("pi", ast.Pos{})
	if err := o.OptimizeExpr(n); err != nil {
		t.Fatal(err)
	}
	if n.Kind != ast.KindValue || n.Lit.(value.Float) != 3.5 {
		t.Fatalf("got %+v, want folded protected value", n)
	}
}
