package eval

import (
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covscript.dev/go/cs/ast"
	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/cs/token"
	"covscript.dev/go/internal/core/domain"
	"covscript.dev/go/internal/core/extension"
	"covscript.dev/go/internal/core/value"
)

var pos = ast.Pos{}

func newCtx() *Context {
	return NewContext(domain.NewManager(), extension.New())
}

func intLit(v int64) *ast.Node { return ast.Lit(value.Int(v), pos) }
func id(name string) *ast.Node { return ast.ID(name, pos) }
func bin(op token.Op, l, r *ast.Node) *ast.Node {
	return ast.Signal(op, l, r, pos)
}

// requireValueEqual prints a %#v-quality structural diff on mismatch, for
// the cases where testify's default failure message is too shallow to show
// what actually differs inside a *value.Struct/*value.Array tree.
func requireValueEqual(t *testing.T, want, got value.Value) {
	t.Helper()
	if !want.Equal(got) {
		t.Fatalf("values not equal:\n%s", strings.Join(pretty.Diff(want, got), "\n"))
	}
}

func TestEvalArithPromotesIntAndFloat(t *testing.T) {
	c := newCtx()
	v, err := c.Eval(bin(token.ADD, intLit(1), ast.Lit(value.Float(2.5), pos)))
	require.NoError(t, err)
	assert.Equal(t, value.Float(3.5), v, "int+float promotes to float")
}

func TestEvalIntDivisionStaysInteger(t *testing.T) {
	c := newCtx()
	v, err := c.Eval(bin(token.DIV, intLit(7), intLit(2)))
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), v)
}

func TestEvalDivisionByZeroErrors(t *testing.T) {
	c := newCtx()
	_, err := c.Eval(bin(token.DIV, intLit(1), intLit(0)))
	require.Error(t, err)
}

func TestEvalStringConcatenationCoercesRHS(t *testing.T) {
	c := newCtx()
	v, err := c.Eval(bin(token.ADD, ast.Lit(value.NewString("n="), pos), intLit(5)))
	require.NoError(t, err)
	s, ok := v.(*value.Str)
	require.True(t, ok)
	assert.Equal(t, "n=5", s.S)
}

func TestEvalLogicalShortCircuitsAnd(t *testing.T) {
	c := newCtx()
	// The right side, if evaluated, would be an undefined identifier and
	// error; short-circuit must prevent that.
	v, err := c.Eval(bin(token.AND, ast.Lit(value.Bool(false), pos), id("undefined")))
	require.NoError(t, err)
	assert.Equal(t, value.Bool(false), v)
}

func TestEvalLogicalShortCircuitsOr(t *testing.T) {
	c := newCtx()
	v, err := c.Eval(bin(token.OR, ast.Lit(value.Bool(true), pos), id("undefined")))
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), v)
}

func TestEvalChoiceOnlyEvaluatesChosenBranch(t *testing.T) {
	c := newCtx()
	choice := ast.Signal(token.CHOICE,
		ast.Lit(value.Bool(true), pos),
		ast.Signal(token.PAIR, intLit(1), id("undefined"), pos),
		pos)
	v, err := c.Eval(choice)
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), v)
}

func TestEvalArrayLiteralOfPairsPromotesToMap(t *testing.T) {
	c := newCtx()
	pair := ast.Signal(token.PAIR, ast.Lit(value.NewString("k"), pos), intLit(1), pos)
	v, err := c.Eval(ast.ArrayLit([]*ast.Node{pair}, pos))
	require.NoError(t, err)
	m, ok := v.(*value.Map)
	require.True(t, ok, "an array literal of all pairs must promote to a hashmap")
	got, found := m.Lookup(value.NewString("k"))
	require.True(t, found)
	assert.Equal(t, value.Int(1), got)
}

func TestEvalArrayLiteralMixedStaysArray(t *testing.T) {
	c := newCtx()
	v, err := c.Eval(ast.ArrayLit([]*ast.Node{intLit(1), intLit(2)}, pos))
	require.NoError(t, err)
	_, ok := v.(*value.Array)
	assert.True(t, ok)
}

func TestEvalIndexOnArray(t *testing.T) {
	c := newCtx()
	arr := ast.ArrayLit([]*ast.Node{intLit(10), intLit(20)}, pos)
	v, err := c.Eval(bin(token.ACCESS, arr, intLit(1)))
	require.NoError(t, err)
	assert.Equal(t, value.Int(20), v)
}

func TestEvalIndexOnString(t *testing.T) {
	c := newCtx()
	v, err := c.Eval(bin(token.ACCESS, ast.Lit(value.NewString("hi"), pos), intLit(1)))
	require.NoError(t, err)
	assert.Equal(t, value.Char('i'), v)
}

func TestRunVarDefThenIdentifierLookup(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.VarDef{Name: "x", Init: intLit(5)},
		&ast.ReturnStmt{Value: id("x")},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Int(5), c.returnValue)
}

func TestRunVarDefDuplicateInSameScopeFails(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.VarDef{Name: "x", Init: intLit(1)},
		&ast.VarDef{Name: "x", Init: intLit(2)},
	})
	require.Error(t, err)
}

func TestRunIfElseTakesCorrectBranch(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.IfElse{
			Cond: ast.Lit(value.Bool(false), pos),
			Then: []ast.Stmt{&ast.ReturnStmt{Value: intLit(1)}},
			Else: []ast.Stmt{&ast.ReturnStmt{Value: intLit(2)}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), c.returnValue)
}

func TestRunWhileLoopBreak(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.VarDef{Name: "i", Init: intLit(0)},
		&ast.While{
			Cond: ast.Lit(value.Bool(true), pos),
			Body: []ast.Stmt{
				&ast.ExprStmt{Expr: bin(token.ADDASI, id("i"), intLit(1))},
				&ast.IfElse{
					Cond: bin(token.AEQ, id("i"), intLit(3)),
					Then: []ast.Stmt{&ast.BreakStmt{}},
					Else: nil,
				},
			},
		},
		&ast.ReturnStmt{Value: id("i")},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), c.returnValue)
}

func TestRunLoopUntilRunsBodyAtLeastOnce(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.VarDef{Name: "i", Init: intLit(0)},
		&ast.Loop{
			Body: []ast.Stmt{
				&ast.ExprStmt{Expr: bin(token.ADDASI, id("i"), intLit(1))},
			},
			Cond: ast.Lit(value.Bool(true), pos),
		},
		&ast.ReturnStmt{Value: id("i")},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), c.returnValue)
}

func TestRunForLoopAscending(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.VarDef{Name: "sum", Init: intLit(0)},
		&ast.For{
			Var:  "i",
			From: intLit(1),
			To:   intLit(3),
			Body: []ast.Stmt{
				&ast.ExprStmt{Expr: bin(token.ADDASI, id("sum"), id("i"))},
			},
		},
		&ast.ReturnStmt{Value: id("sum")},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Int(6), c.returnValue, "1+2+3")
}

func TestRunForeachOverArray(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.VarDef{Name: "sum", Init: intLit(0)},
		&ast.Foreach{
			Var:  "x",
			Iter: ast.ArrayLit([]*ast.Node{intLit(1), intLit(2), intLit(3)}, pos),
			Body: []ast.Stmt{
				&ast.ExprStmt{Expr: bin(token.ADDASI, id("sum"), id("x"))},
			},
		},
		&ast.ReturnStmt{Value: id("sum")},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Int(6), c.returnValue)
}

func TestRunTryCatchCatchesThrow(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.Try{
			Body: []ast.Stmt{
				&ast.Throw{Value: ast.Lit(value.NewLangError("boom"), pos)},
			},
			CatchName: "e",
			Catch: []ast.Stmt{
				&ast.ReturnStmt{Value: id("e")},
			},
		},
	})
	require.NoError(t, err, "a caught throw must not escape as an error")
	le, ok := c.returnValue.(*value.LangError)
	require.True(t, ok, "the catch binding must hold the thrown lang_error")
	assert.Equal(t, "boom", le.Msg)
}

func TestThrowOfNonLangErrorRaisesSyntax(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.Throw{Value: intLit(1)},
	})
	require.Error(t, err)
	var ce *cserrors.Error
	require.True(t, cserrors.As(err, &ce))
	assert.Equal(t, cserrors.Syntax, ce.Code)
}

func TestFunctionDefAndCallRoundTrip(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.FunctionDef{
			Name:   "add",
			Params: []string{"a", "b"},
			Body: []ast.Stmt{
				&ast.ReturnStmt{Value: bin(token.ADD, id("a"), id("b"))},
			},
		},
		&ast.VarDef{Name: "result", Init: bin(token.FCALL, id("add"), ast.ArgList([]*ast.Node{intLit(2), intLit(3)}, pos))},
		&ast.ReturnStmt{Value: id("result")},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Int(5), c.returnValue)
}

func TestCallArgumentCountMismatchFails(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.FunctionDef{Name: "f", Params: []string{"a"}, Body: []ast.Stmt{&ast.ReturnStmt{Value: id("a")}}},
		&ast.ExprStmt{Expr: bin(token.FCALL, id("f"), ast.ArgList(nil, pos))},
	})
	require.Error(t, err)
}

func TestRecursiveFunctionCallsSelfViaCapturedContext(t *testing.T) {
	c := newCtx()
	// fact(n) = n <= 1 ? 1 : n * fact(n-1)
	factCall := func(arg *ast.Node) *ast.Node {
		return bin(token.FCALL, id("fact"), ast.ArgList([]*ast.Node{arg}, pos))
	}
	err := c.Run([]ast.Stmt{
		&ast.FunctionDef{
			Name:   "fact",
			Params: []string{"n"},
			Body: []ast.Stmt{
				&ast.IfElse{
					Cond: bin(token.UEQ, id("n"), intLit(1)),
					Then: []ast.Stmt{&ast.ReturnStmt{Value: intLit(1)}},
					Else: []ast.Stmt{
						&ast.ReturnStmt{Value: bin(token.MUL, id("n"), factCall(bin(token.SUB, id("n"), intLit(1))))},
					},
				},
			},
		},
		&ast.VarDef{Name: "r", Init: factCall(intLit(5))},
		&ast.ReturnStmt{Value: id("r")},
	})
	require.NoError(t, err)
	requireValueEqual(t, value.Int(120), c.returnValue)
}

func TestStructDefInstantiateAndFieldAccess(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.StructDef{
			Name: "Point",
			Body: []ast.Stmt{
				&ast.VarDef{Name: "x", Init: intLit(0)},
			},
		},
		&ast.VarDef{Name: "p", Init: bin(token.NEW, nil, id("Point"))},
		&ast.ExprStmt{Expr: bin(token.ASI, bin(token.DOT, id("p"), id("x")), intLit(7))},
		&ast.ReturnStmt{Value: bin(token.DOT, id("p"), id("x"))},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Int(7), c.returnValue)
}

func TestNamespaceDefExportsMembers(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.NamespaceDef{
			Name: "ns",
			Body: []ast.Stmt{
				&ast.VarDef{Name: "v", Init: intLit(42)},
			},
		},
		&ast.ReturnStmt{Value: bin(token.DOT, id("ns"), id("v"))},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Int(42), c.returnValue)
}

func TestMaxCallDepthGuardRaisesFatal(t *testing.T) {
	c := newCtx()
	c.MaxCallDepth = 4
	err := c.Run([]ast.Stmt{
		&ast.FunctionDef{
			Name:   "loop",
			Params: nil,
			Body: []ast.Stmt{
				&ast.ReturnStmt{Value: bin(token.FCALL, id("loop"), ast.ArgList(nil, pos))},
			},
		},
		&ast.ExprStmt{Expr: bin(token.FCALL, id("loop"), ast.ArgList(nil, pos))},
	})
	require.Error(t, err)
	var ce *cserrors.Error
	require.True(t, cserrors.As(err, &ce))
	assert.Equal(t, cserrors.Fatal, ce.Code)
}

func TestLambdaCapturesEnclosingScope(t *testing.T) {
	c := newCtx()
	lambda := ast.Signal(token.LAMBDA, ast.ArgList([]*ast.Node{id("y")}, pos), bin(token.ADD, id("x"), id("y")), pos)
	err := c.Run([]ast.Stmt{
		&ast.VarDef{Name: "x", Init: intLit(10)},
		&ast.VarDef{Name: "f", Init: lambda},
		&ast.ReturnStmt{Value: bin(token.FCALL, id("f"), ast.ArgList([]*ast.Node{intLit(5)}, pos))},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Int(15), c.returnValue)
}

func TestIncDecPrefixAndPostfix(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.VarDef{Name: "x", Init: intLit(1)},
		&ast.VarDef{Name: "pre", Init: ast.Signal(token.INC, nil, id("x"), pos)},
		&ast.VarDef{Name: "post", Init: ast.Signal(token.INC, id("x"), nil, pos)},
		&ast.ReturnStmt{Value: id("x")},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), c.returnValue)

	pre, err := c.Storage.GetVar("pre")
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), pre, "prefix ++x yields the new value")

	post, err := c.Storage.GetVar("post")
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), post, "postfix x++ yields the old value")
}

func TestCompoundAssignOnArrayElement(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.VarDef{Name: "a", Init: ast.ArrayLit([]*ast.Node{intLit(1), intLit(2)}, pos)},
		&ast.ExprStmt{Expr: bin(token.ADDASI, bin(token.ACCESS, id("a"), intLit(0)), intLit(10))},
		&ast.ReturnStmt{Value: bin(token.ACCESS, id("a"), intLit(0))},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Int(11), c.returnValue)
}

func TestAssignToStringIndexIsUnsupported(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.VarDef{Name: "s", Init: ast.Lit(value.NewString("hi"), pos)},
		&ast.ExprStmt{Expr: bin(token.ASI, bin(token.ACCESS, id("s"), intLit(0)), ast.Lit(value.Char('x'), pos))},
	})
	require.Error(t, err)
}

func TestPointerDerefAndArrowMember(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.StructDef{
			Name: "Box",
			Body: []ast.Stmt{
				&ast.VarDef{Name: "v", Init: intLit(1)},
			},
		},
		&ast.VarDef{Name: "p", Init: bin(token.GCNEW, nil, id("Box"))},
		&ast.ExprStmt{Expr: bin(token.ASI, bin(token.ARROW, id("p"), id("v")), intLit(9))},
		&ast.ReturnStmt{Value: bin(token.ARROW, id("p"), id("v"))},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Int(9), c.returnValue)
}

// TestCallDoesNotLeakBreakContinueToCaller is a regression test for a bug
// where a bare `break` inside a function body, outside any loop of the
// function's own, left breakRequested set after the call returned — so a
// loop in the *caller* stopped early even though it was the function body,
// not the loop itself, that asked to break (spec §8 property 9: "break and
// continue... never escape the function call boundary").
func TestCallDoesNotLeakBreakContinueToCaller(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.FunctionDef{Name: "f", Body: []ast.Stmt{&ast.BreakStmt{}}},
		&ast.VarDef{Name: "i", Init: intLit(0)},
		&ast.While{
			Cond: bin(token.UND, id("i"), intLit(3)),
			Body: []ast.Stmt{
				&ast.ExprStmt{Expr: bin(token.FCALL, id("f"), ast.ArgList(nil, pos))},
				&ast.ExprStmt{Expr: bin(token.ADDASI, id("i"), intLit(1))},
			},
		},
		&ast.ReturnStmt{Value: id("i")},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), c.returnValue, "the while loop must run to completion despite f's internal break")
}

// TestCompoundAssignConcatenatesStrings is a regression test: `s += x` on a
// *value.Str must concatenate (spec §4.3's `+` row: (string, any) ->
// concat), not route through the numeric-only arith path.
func TestCompoundAssignConcatenatesStrings(t *testing.T) {
	c := newCtx()
	err := c.Run([]ast.Stmt{
		&ast.VarDef{Name: "s", Init: ast.Lit(value.NewString("n="), pos)},
		&ast.ExprStmt{Expr: bin(token.ADDASI, id("s"), intLit(5))},
		&ast.ReturnStmt{Value: id("s")},
	})
	require.NoError(t, err)
	s, ok := c.returnValue.(*value.Str)
	require.True(t, ok)
	assert.Equal(t, "n=5", s.S)
}

func TestEvalPairRejectsNestedPair(t *testing.T) {
	c := newCtx()
	nested := ast.Signal(token.PAIR, intLit(1), intLit(2), pos)
	_, err := c.Eval(ast.Signal(token.PAIR, nested, intLit(3), pos))
	require.Error(t, err)
	var ce *cserrors.Error
	require.True(t, cserrors.As(err, &ce))
	assert.Equal(t, cserrors.Unsupported, ce.Code)
}
