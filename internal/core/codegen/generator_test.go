package codegen

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"covscript.dev/go/cs/ast"
	"covscript.dev/go/cs/token"
	"covscript.dev/go/internal/core/value"
)

var pos = ast.Pos{}

func intLit(v int64) *ast.Node  { return ast.Lit(value.Int(v), pos) }
func id(name string) *ast.Node  { return ast.ID(name, pos) }
func bin(op token.Op, l, r *ast.Node) *ast.Node {
	return ast.Signal(op, l, r, pos)
}

func opsOf(fb *FunctionBuilder, block int) []Op {
	var out []Op
	for _, ins := range fb.Blocks[block].Code {
		out = append(out, ins.Op)
	}
	return out
}

func TestBuildSimpleReturnEvaluatesRightBeforeLeft(t *testing.T) {
	g := New(nil)
	body := []ast.Stmt{
		&ast.ReturnStmt{Value: bin(token.ADD, intLit(1), intLit(2))},
	}
	fb, err := g.Build("add", nil, body)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// block 1 is the body block.
	got := opsOf(fb, 1)
	want := []Op{OpLoadInt, OpLoadInt, OpAdd, OpReturn}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected ops (-want +got):\n%s", diff)
	}
	// Right (2) must be pushed before left (1): first LoadInt carries 2.
	if fb.Blocks[1].Code[0].I64 != 2 {
		t.Fatalf("expected right operand 2 emitted first, got %d", fb.Blocks[1].Code[0].I64)
	}
	if fb.Blocks[1].Code[1].I64 != 1 {
		t.Fatalf("expected left operand 1 emitted second, got %d", fb.Blocks[1].Code[1].I64)
	}
}

func TestBuildPrologueInitsLocalsAndCopiesArguments(t *testing.T) {
	g := New(nil)
	body := []ast.Stmt{
		&ast.ReturnStmt{Value: id("x")},
	}
	fb, err := g.Build("identity", []string{"x"}, body)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	prologue := fb.Blocks[0].Code
	want := []Op{OpInitLocal, OpGetArgument, OpSetLocal, OpBranch}
	got := make([]Op, len(prologue))
	for i, ins := range prologue {
		got[i] = ins.Op
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected prologue (-want +got):\n%s", diff)
	}
	if prologue[1].I64 != 0 {
		t.Fatalf("expected GetArgument 0, got %d", prologue[1].I64)
	}
}

func TestAssignmentRewritesGetLocalToSetLocal(t *testing.T) {
	g := New(nil)
	body := []ast.Stmt{
		&ast.VarDef{Name: "x", Init: intLit(0)},
		&ast.ExprStmt{Expr: bin(token.ASI, id("x"), intLit(5))},
	}
	fb, err := g.Build("f", nil, body)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ops := opsOf(fb, 1)
	foundSet := false
	for _, op := range ops {
		if op == OpSetLocal {
			foundSet = true
		}
		if op == OpGetLocal {
			t.Fatalf("assignment target should never surface as a bare GetLocal, got ops %v", ops)
		}
	}
	if !foundSet {
		t.Fatalf("expected a SetLocal in %v", ops)
	}
}

func TestIfElseBranchesToDistinctBlocksAndRejoins(t *testing.T) {
	g := New(nil)
	body := []ast.Stmt{
		&ast.IfElse{
			Cond: id("x"),
			Then: []ast.Stmt{&ast.ReturnStmt{Value: intLit(1)}},
			Else: []ast.Stmt{&ast.ReturnStmt{Value: intLit(2)}},
		},
	}
	fb, err := g.Build("f", []string{"x"}, body)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	bodyBlock := fb.Blocks[1]
	last := bodyBlock.Code[len(bodyBlock.Code)-1]
	if last.Op != OpConditionalBranch {
		t.Fatalf("expected body block to end in ConditionalBranch, got %s", last.Op)
	}
	if last.Then == last.Else {
		t.Fatalf("then/else branches must target distinct blocks, got %d/%d", last.Then, last.Else)
	}
	thenOps := opsOf(fb, last.Then)
	if thenOps[len(thenOps)-1] != OpReturn {
		t.Fatalf("then block should end in Return, got %v", thenOps)
	}
	elseOps := opsOf(fb, last.Else)
	if elseOps[len(elseOps)-1] != OpReturn {
		t.Fatalf("else block should end in Return, got %v", elseOps)
	}
}

func TestWhileLoopBreakAndContinueTargetLoopBlocks(t *testing.T) {
	g := New(nil)
	body := []ast.Stmt{
		&ast.While{
			Cond: id("x"),
			Body: []ast.Stmt{
				&ast.If{Cond: id("x"), Then: []ast.Stmt{&ast.BreakStmt{}}},
				&ast.ContinueStmt{},
			},
		},
	}
	fb, err := g.Build("f", []string{"x"}, body)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// The loop's unconditional Branches target either the "check" block
	// re-evaluating the loop condition (it ends in ConditionalBranch) or,
	// for break, the block after the loop (here it holds only the implicit
	// `LoadInt 0; Return` Build appends). Two Branches land on the
	// check-shaped block: the entry into the loop and the continue.
	checkTargets := 0
	foundBreakTarget := false
	for _, b := range fb.Blocks {
		for _, ins := range b.Code {
			if ins.Op != OpBranch {
				continue
			}
			target := opsOf(fb, ins.Then)
			if len(target) > 0 && target[len(target)-1] == OpConditionalBranch {
				checkTargets++
			}
			if len(target) > 0 && target[len(target)-1] == OpReturn {
				foundBreakTarget = true
			}
		}
	}
	if checkTargets < 2 {
		t.Fatalf("expected loop entry and continue to Branch to the condition-check block, got %d such Branches in %+v", checkTargets, fb.Blocks)
	}
	if !foundBreakTarget {
		t.Fatalf("expected break's Branch to target the block after the loop in %+v", fb.Blocks)
	}
}

func TestArrayLiteralUsesFactoryAndPushBack(t *testing.T) {
	g := New(nil)
	body := []ast.Stmt{
		&ast.ExprStmt{Expr: ast.ArrayLit([]*ast.Node{intLit(1), intLit(2)}, pos)},
	}
	fb, err := g.Build("f", nil, body)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ops := opsOf(fb, 1)
	wantPrefix := []Op{OpLoadThis, OpLoadString, OpGetField, OpCallField}
	if diff := cmp.Diff(wantPrefix, ops[:len(wantPrefix)]); diff != "" {
		t.Fatalf("unexpected array-literal prefix (-want +got):\n%s", diff)
	}
	callCount := 0
	for _, ins := range fb.Blocks[1].Code {
		if ins.Op == OpCallField && ins.String == "push_back" {
			callCount++
		}
	}
	if callCount != 2 {
		t.Fatalf("expected 2 push_back calls, got %d", callCount)
	}
}

func TestLambdaCompilesToChildBuilder(t *testing.T) {
	g := New(nil)
	lambda := ast.Signal(token.LAMBDA, ast.ArgList([]*ast.Node{id("n")}, pos), bin(token.ADD, id("n"), intLit(1)), pos)
	body := []ast.Stmt{&ast.ExprStmt{Expr: lambda}}
	fb, err := g.Build("f", nil, body)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(fb.Children) != 1 {
		t.Fatalf("expected exactly one child builder, got %d", len(fb.Children))
	}
	for name, child := range fb.Children {
		if len(child.Params) != 1 || child.Params[0] != "n" {
			t.Fatalf("lambda child %s has wrong params %v", name, child.Params)
		}
	}
	ops := opsOf(fb, 1)
	// The fetch is followed by the ExprStmt's Pop and Build's implicit
	// `LoadInt 0; Return`.
	fetch := ops[len(ops)-8 : len(ops)-3]
	want := []Op{OpLoadThis, OpLoadString, OpGetField, OpLoadString, OpGetField}
	if diff := cmp.Diff(want, fetch); diff != "" {
		t.Fatalf("unexpected closure fetch sequence (-want +got):\n%s", diff)
	}
}

func TestIncDecPostfixDropsNewValue(t *testing.T) {
	g := New(nil)
	body := []ast.Stmt{
		&ast.VarDef{Name: "x", Init: intLit(0)},
		&ast.ExprStmt{Expr: ast.Signal(token.INC, id("x"), nil, pos)},
	}
	fb, err := g.Build("f", nil, body)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ops := opsOf(fb, 1)
	popCount := 0
	for _, op := range ops {
		if op == OpPop {
			popCount++
		}
	}
	// VarDef's own Pop, plus the final ExprStmt Pop, plus the postfix
	// old-value-retention Pop.
	if popCount < 3 {
		t.Fatalf("expected at least 3 Pops for a postfix inc statement, got %d in %v", popCount, ops)
	}
}

func TestToJSONEmitsWireExactOpcodeNames(t *testing.T) {
	g := New(nil)
	fb, err := g.Build("f", nil, []ast.Stmt{&ast.ReturnStmt{Value: intLit(7)}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out, err := fb.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !cmp.Equal(true, len(out) > 0) {
		t.Fatalf("expected non-empty JSON output")
	}
	if !strings.Contains(string(out), `"op": "LoadInt"`) {
		t.Fatalf("expected wire-exact opcode name LoadInt in output:\n%s", out)
	}
	if !strings.Contains(string(out), `"op": "Return"`) {
		t.Fatalf("expected wire-exact opcode name Return in output:\n%s", out)
	}
}

func TestToYAMLEmitsOpcodeNames(t *testing.T) {
	g := New(nil)
	fb, err := g.Build("f", nil, []ast.Stmt{&ast.ReturnStmt{Value: intLit(7)}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out, err := fb.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML: %v", err)
	}
	if !strings.Contains(string(out), "op: LoadInt") {
		t.Fatalf("expected YAML dump to contain op: LoadInt, got:\n%s", out)
	}
}

func TestSwitchLowersToTestEqChainWithDefaultFallthrough(t *testing.T) {
	g := New(nil)
	body := []ast.Stmt{
		&ast.Switch{
			Subject: id("x"),
			Cases: []ast.SwitchCase{
				{Value: intLit(1), Body: []ast.Stmt{&ast.ReturnStmt{Value: intLit(100)}}},
				{Value: intLit(2), Body: []ast.Stmt{&ast.ReturnStmt{Value: intLit(200)}}},
				{Value: nil, Body: []ast.Stmt{&ast.ReturnStmt{Value: intLit(999)}}},
			},
		},
	}
	fb, err := g.Build("f", []string{"x"}, body)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var testEqCount, returnCount int
	for _, b := range fb.Blocks {
		for _, ins := range b.Code {
			switch ins.Op {
			case OpTestEq:
				testEqCount++
			case OpReturn:
				returnCount++
			}
		}
	}
	if testEqCount != 2 {
		t.Fatalf("expected one TestEq per non-default case, got %d", testEqCount)
	}
	if returnCount != 3 {
		t.Fatalf("expected every case (including default) to keep its own Return, got %d", returnCount)
	}
}
