package codegen

import (
	"strconv"

	"covscript.dev/go/cs/ast"
	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/cs/token"
	"covscript.dev/go/internal/core/value"
)

// Config configures a compilation, currently empty but present as the
// extension point for future flags (e.g. a max-call-depth override),
// following compile.Config's "empty but present" convention.
type Config struct{}

// Generator compiles statement sequences into FunctionBuilders. One
// Generator is shared across a whole program so every nested
// function/lambda gets a unique child-builder name (spec §4.5 "Function /
// lambda compilation").
type Generator struct {
	Config *Config

	counter int
}

// New creates a Generator.
func New(cfg *Config) *Generator {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Generator{Config: cfg}
}

func (g *Generator) uniqueName(base string) string {
	g.counter++
	if base == "" {
		base = "lambda"
	}
	return base + "$" + strconv.Itoa(g.counter)
}

// Build compiles one function/lambda body into a fresh FunctionBuilder
// (spec §4.5 "Prologue"): locals for formals are declared first so they
// occupy the lowest local ids, the body is compiled into block 1, and the
// prologue (block 0) is finalized once the total local count is known.
func (g *Generator) Build(name string, params []string, body []ast.Stmt) (*FunctionBuilder, error) {
	fb := newFunctionBuilder(name, params)

	paramLocal := make([]int, len(params))
	for i, p := range params {
		paramLocal[i] = fb.declareLocal(p)
	}

	bodyBlock := fb.newBlock()
	fb.setCurrent(bodyBlock)
	if err := g.emitStmts(fb, body); err != nil {
		return nil, err
	}
	if !fb.block(fb.current).terminated() {
		fb.emit(instrI64(OpLoadInt, 0))
		fb.emit(instr(OpReturn))
	}

	prologue := fb.block(0)
	prologue.Code = append(prologue.Code, instrI64(OpInitLocal, int64(fb.nextLocal)))
	for i, id := range paramLocal {
		prologue.Code = append(prologue.Code, instrI64(OpGetArgument, int64(i)))
		prologue.Code = append(prologue.Code, instrI64(OpSetLocal, int64(id)))
	}
	prologue.Code = append(prologue.Code, instrBranch(bodyBlock))

	lowerArrayAccess(fb)
	return fb, nil
}

func (g *Generator) emitStmts(fb *FunctionBuilder, stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := g.emitStmt(fb, s); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) emitStmt(fb *FunctionBuilder, s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.ExprStmt:
		if err := g.emitExpr(fb, st.Expr); err != nil {
			return err
		}
		fb.emit(instr(OpPop))
		return nil

	case *ast.VarDef:
		id := fb.declareLocal(st.Name)
		if st.Init != nil {
			if err := g.emitExpr(fb, st.Init); err != nil {
				return err
			}
		} else {
			fb.emit(instr(OpLoadNull))
		}
		fb.emit(instrI64(OpSetLocal, int64(id)))
		fb.emit(instr(OpPop))
		return nil

	case *ast.ReturnStmt:
		if st.Value != nil {
			if err := g.emitExpr(fb, st.Value); err != nil {
				return err
			}
		} else {
			fb.emit(instrI64(OpLoadInt, 0))
		}
		fb.emit(instr(OpReturn))
		return nil

	case *ast.BreakStmt:
		lt, ok := fb.currentLoop()
		if !ok {
			return cserrors.New(cserrors.Internal, "break outside any loop reached codegen")
		}
		fb.emit(instrBranch(lt.breakBlock))
		return nil

	case *ast.ContinueStmt:
		lt, ok := fb.currentLoop()
		if !ok {
			return cserrors.New(cserrors.Internal, "continue outside any loop reached codegen")
		}
		fb.emit(instrBranch(lt.continueBlock))
		return nil

	case *ast.Block:
		fb.pushScope()
		err := g.emitStmts(fb, st.Body)
		fb.popScope()
		return err

	case *ast.If:
		return g.emitIf(fb, st.Cond, st.Then, nil)

	case *ast.IfElse:
		return g.emitIf(fb, st.Cond, st.Then, st.Else)

	case *ast.While:
		return g.emitWhile(fb, st.Cond, st.Body)

	case *ast.Loop:
		return g.emitLoop(fb, st.Body, st.Cond)

	case *ast.For:
		return g.emitFor(fb, st)

	case *ast.Switch:
		return g.emitSwitch(fb, st)

	case *ast.Throw:
		if err := g.emitExpr(fb, st.Value); err != nil {
			return err
		}
		fb.emit(instr(OpPop))
		return nil

	case *ast.FunctionDef:
		id := fb.declareLocal(st.Name)
		if err := g.emitClosure(fb, st.Name, st.Params, st.Body); err != nil {
			return err
		}
		fb.emit(instrI64(OpSetLocal, int64(id)))
		fb.emit(instr(OpPop))
		return nil

	case *ast.NamespaceDef, *ast.Foreach, *ast.Try, *ast.StructDef:
		// These lower through the same primitives above (scoped blocks,
		// conditional branches, CallField dispatch) but are not named in
		// spec §4.5's worked IR examples; the tree-walk evaluator remains
		// the reference implementation for them, matching spec §5's "two
		// back-ends... selected at compile-entry time" rather than
		// requiring every statement kind to have a bytecode path.
		//
		// foreach specifically has no clean lowering: spec §4.5's fixed
		// opcode vocabulary has no element-count/iteration primitive, and
		// no __len__-style extension method exists to fetch one through
		// the __get__/__set__ dispatch idiom array indexing already uses
		// — inventing either would mean emitting an opcode or a method
		// name outside spec §6's wire-exact contract. switch, by
		// contrast, decomposes purely onto the if-chain primitives
		// already above, so it gets a real lowering (emitSwitch).
		return cserrors.New(cserrors.Unsupported, "%T has no bytecode lowering", s)

	default:
		return cserrors.New(cserrors.Internal, "unhandled statement kind %T in codegen", s)
	}
}

func (g *Generator) emitIf(fb *FunctionBuilder, cond *ast.Node, then, els []ast.Stmt) error {
	if err := g.emitExpr(fb, cond); err != nil {
		return err
	}
	fb.emit(instr(OpCastToBool))
	thenBlock := fb.newBlock()
	var elseBlock int
	hasElse := els != nil
	if hasElse {
		elseBlock = fb.newBlock()
	}
	end := fb.newBlock()
	if hasElse {
		fb.emit(instrCondBranch(thenBlock, elseBlock))
	} else {
		fb.emit(instrCondBranch(thenBlock, end))
	}

	fb.setCurrent(thenBlock)
	fb.pushScope()
	if err := g.emitStmts(fb, then); err != nil {
		return err
	}
	fb.popScope()
	if !fb.block(fb.current).terminated() {
		fb.emit(instrBranch(end))
	}

	if hasElse {
		fb.setCurrent(elseBlock)
		fb.pushScope()
		if err := g.emitStmts(fb, els); err != nil {
			return err
		}
		fb.popScope()
		if !fb.block(fb.current).terminated() {
			fb.emit(instrBranch(end))
		}
	}

	fb.setCurrent(end)
	return nil
}

// emitWhile lowers a pre-condition loop (spec §4.5 "while"): pre jumps to
// the check block; check conditionally branches to body or an end-wrapper
// block reserved up front so break has a stable target before the loop's
// actual end is known.
func (g *Generator) emitWhile(fb *FunctionBuilder, cond *ast.Node, body []ast.Stmt) error {
	check := fb.newBlock()
	bodyBlock := fb.newBlock()
	end := fb.newBlock()
	fb.emit(instrBranch(check))

	fb.setCurrent(check)
	if err := g.emitExpr(fb, cond); err != nil {
		return err
	}
	fb.emit(instr(OpCastToBool))
	fb.emit(instrCondBranch(bodyBlock, end))

	fb.setCurrent(bodyBlock)
	fb.pushScope()
	fb.pushLoop(check, end)
	err := g.emitStmts(fb, body)
	fb.popLoop()
	fb.popScope()
	if err != nil {
		return err
	}
	if !fb.block(fb.current).terminated() {
		fb.emit(instrBranch(check))
	}

	fb.setCurrent(end)
	return nil
}

// emitLoop lowers `loop ... until cond` (spec §4.5 "loop"): same shape as
// while, but the check block unconditionally jumps to the body entry
// instead of being reachable from the pre-loop block, since the body
// always runs first.
func (g *Generator) emitLoop(fb *FunctionBuilder, body []ast.Stmt, cond *ast.Node) error {
	bodyBlock := fb.newBlock()
	check := fb.newBlock()
	end := fb.newBlock()
	fb.emit(instrBranch(bodyBlock))

	fb.setCurrent(bodyBlock)
	fb.pushScope()
	fb.pushLoop(check, end)
	err := g.emitStmts(fb, body)
	fb.popLoop()
	fb.popScope()
	if err != nil {
		return err
	}
	if !fb.block(fb.current).terminated() {
		fb.emit(instrBranch(check))
	}

	fb.setCurrent(check)
	if err := g.emitExpr(fb, cond); err != nil {
		return err
	}
	fb.emit(instr(OpCastToBool))
	// until: stop when cond is true, so branch (body, end) on !cond is
	// equivalent to (end, body) on cond.
	fb.emit(instrCondBranch(end, bodyBlock))

	fb.setCurrent(end)
	return nil
}

// emitFor lowers `for x=a to b [step s]` onto the same while-shaped
// primitives: a hidden local holds the loop variable and the step, the
// check compares it against the bound, the body re-declares x as a local
// alias of the hidden counter each iteration.
func (g *Generator) emitFor(fb *FunctionBuilder, st *ast.For) error {
	if err := g.emitExpr(fb, st.From); err != nil {
		return err
	}
	counter := fb.declareLocal(st.Var)
	fb.emit(instrI64(OpSetLocal, int64(counter)))
	fb.emit(instr(OpPop))

	check := fb.newBlock()
	bodyBlock := fb.newBlock()
	end := fb.newBlock()
	fb.emit(instrBranch(check))

	fb.setCurrent(check)
	fb.emit(instrI64(OpGetLocal, int64(counter)))
	if err := g.emitExpr(fb, st.To); err != nil {
		return err
	}
	fb.emit(instr(OpTestLe))
	fb.emit(instrCondBranch(bodyBlock, end))

	fb.setCurrent(bodyBlock)
	fb.pushScope()
	fb.pushLoop(check, end)
	err := g.emitStmts(fb, st.Body)
	fb.popLoop()
	fb.popScope()
	if err != nil {
		return err
	}
	if !fb.block(fb.current).terminated() {
		fb.emit(instrI64(OpGetLocal, int64(counter)))
		if st.Step != nil {
			if err := g.emitExpr(fb, st.Step); err != nil {
				return err
			}
		} else {
			fb.emit(instrI64(OpLoadInt, 1))
		}
		fb.emit(instr(OpAdd))
		fb.emit(instrI64(OpSetLocal, int64(counter)))
		fb.emit(instr(OpPop))
		fb.emit(instrBranch(check))
	}

	fb.setCurrent(end)
	return nil
}

// emitSwitch lowers `switch subject { case v: ... default: ... }` onto the
// same if-chain primitives emitIf uses: the subject is evaluated once into
// a hidden local, then each non-default case becomes a TestEq/
// ConditionalBranch pair against it in source order, falling through to
// the next case's test on a miss and to the default arm (if any) once
// every case has been tried.
func (g *Generator) emitSwitch(fb *FunctionBuilder, st *ast.Switch) error {
	subject := fb.declareLocal("")
	if err := g.emitExpr(fb, st.Subject); err != nil {
		return err
	}
	fb.emit(instrI64(OpSetLocal, int64(subject)))
	fb.emit(instr(OpPop))

	end := fb.newBlock()
	var defaultCase *ast.SwitchCase
	for i := range st.Cases {
		cs := &st.Cases[i]
		if cs.Value == nil {
			defaultCase = cs
			continue
		}
		caseBlock := fb.newBlock()
		next := fb.newBlock()

		if err := g.emitExpr(fb, cs.Value); err != nil {
			return err
		}
		fb.emit(instrI64(OpGetLocal, int64(subject)))
		fb.emit(instr(OpTestEq))
		fb.emit(instrCondBranch(caseBlock, next))

		fb.setCurrent(caseBlock)
		fb.pushScope()
		err := g.emitStmts(fb, cs.Body)
		fb.popScope()
		if err != nil {
			return err
		}
		if !fb.block(fb.current).terminated() {
			fb.emit(instrBranch(end))
		}

		fb.setCurrent(next)
	}

	if defaultCase != nil {
		fb.pushScope()
		err := g.emitStmts(fb, defaultCase.Body)
		fb.popScope()
		if err != nil {
			return err
		}
	}
	if !fb.block(fb.current).terminated() {
		fb.emit(instrBranch(end))
	}

	fb.setCurrent(end)
	return nil
}

// emitClosure compiles a nested function/lambda into its own child
// FunctionBuilder, pins it into the parent's Children under a freshly
// generated unique name, and emits the fetch sequence the parent's caller
// uses at run time (spec §4.5 "Function / lambda compilation"):
// `LoadString <name>; __global_registry.GetField`.
func (g *Generator) emitClosure(fb *FunctionBuilder, name string, params []string, body []ast.Stmt) error {
	childName := g.uniqueName(name)
	child, err := g.Build(childName, params, body)
	if err != nil {
		return err
	}
	fb.Children[childName] = child

	// __global_registry is reached off the root frame, same as any other
	// field; the child is then fetched from it by name.
	fb.emit(instr(OpLoadThis))
	fb.emit(instrString(OpLoadString, "__global_registry"))
	fb.emit(instr(OpGetField))
	fb.emit(instrString(OpLoadString, childName))
	fb.emit(instr(OpGetField))
	return nil
}

func (g *Generator) emitExpr(fb *FunctionBuilder, n *ast.Node) error {
	if n == nil {
		fb.emit(instr(OpLoadNull))
		fb.last = lastEmission{kind: lastNone}
		return nil
	}
	switch n.Kind {
	case ast.KindValue:
		return g.emitLiteral(fb, n)
	case ast.KindID:
		return g.emitIdent(fb, n)
	case ast.KindExpr:
		return g.emitExpr(fb, n.Sub)
	case ast.KindArray:
		return g.emitArrayLit(fb, n)
	case ast.KindSignal:
		return g.emitSignal(fb, n)
	case ast.KindEndLine:
		fb.emit(instr(OpLoadNull))
		return nil
	default:
		return cserrors.New(cserrors.Internal, "codegen: unexpected node kind %s", n.Kind)
	}
}

func (g *Generator) emitLiteral(fb *FunctionBuilder, n *ast.Node) error {
	switch v := n.Lit.(type) {
	case value.Int:
		fb.emit(instrI64(OpLoadInt, int64(v)))
	case value.Float:
		fb.emit(instrF64(OpLoadFloat, float64(v)))
	case value.Bool:
		fb.emit(instrBool(OpLoadBool, bool(v)))
	case *value.Str:
		fb.emit(instrString(OpLoadString, v.S))
	default:
		return cserrors.New(cserrors.Unsupported, "%s literals have no bytecode encoding", n.Lit.Kind())
	}
	fb.last = lastEmission{kind: lastNone}
	return nil
}

// emitIdent implements spec §4.5's "Identifier emission": a local gets
// GetLocal; anything else is a field read off the enclosing frame.
func (g *Generator) emitIdent(fb *FunctionBuilder, n *ast.Node) error {
	if id, ok := fb.lookupLocal(n.Name); ok {
		fb.emit(instrI64(OpGetLocal, int64(id)))
		fb.last = lastEmission{kind: lastLocal, localIdx: id}
		return nil
	}
	fb.emit(instr(OpLoadThis))
	fb.emit(instrString(OpLoadString, n.Name))
	fb.emit(instr(OpGetField))
	fb.last = lastEmission{kind: lastField}
	return nil
}

// emitArrayLit implements spec §4.5 "Arrays / maps": an empty container
// comes from `array.__new__` via field-call on `this`; each element is
// appended with `push_back(elem)` via CallField.
func (g *Generator) emitArrayLit(fb *FunctionBuilder, n *ast.Node) error {
	fb.emit(instr(OpLoadThis))
	fb.emit(instrString(OpLoadString, "array"))
	fb.emit(instr(OpGetField))
	fb.emit(instrCallField(OpCallField, "__new__", 0))
	for _, e := range n.Elems {
		fb.emit(instr(OpDup))
		if err := g.emitExpr(fb, e); err != nil {
			return err
		}
		fb.emit(instrCallField(OpCallField, "push_back", 1))
		fb.emit(instr(OpPop))
	}
	fb.last = lastEmission{kind: lastNone}
	return nil
}

func instrCallField(op Op, field string, argc int64) Instruction {
	return Instruction{Op: op, String: field, I64: argc}
}

func (g *Generator) emitSignal(fb *FunctionBuilder, n *ast.Node) error {
	switch n.Op {
	case token.ADD:
		return g.emitBinary(fb, n, OpAdd)
	case token.SUB:
		return g.emitBinary(fb, n, OpSub)
	case token.MUL:
		return g.emitBinary(fb, n, OpMul)
	case token.DIV:
		return g.emitBinary(fb, n, OpDiv)
	case token.MOD:
		return g.emitBinary(fb, n, OpMod)
	case token.POW:
		return g.emitBinary(fb, n, OpPow)
	case token.UND:
		return g.emitBinary(fb, n, OpTestLt)
	case token.ABO:
		return g.emitBinary(fb, n, OpTestGt)
	case token.UEQ:
		return g.emitBinary(fb, n, OpTestLe)
	case token.AEQ:
		return g.emitBinary(fb, n, OpTestGe)
	case token.EQU:
		return g.emitBinary(fb, n, OpTestEq)
	case token.NEQ:
		return g.emitBinary(fb, n, OpTestNe)
	case token.AND:
		return g.emitBinary(fb, n, OpAnd)
	case token.OR:
		return g.emitBinary(fb, n, OpOr)
	case token.MINUS:
		return g.emitUnary(fb, n, OpSub, true)
	case token.NOT:
		return g.emitUnary(fb, n, OpNot, false)
	case token.ESCAPE:
		return g.emitDeref(fb, n)
	case token.ASI:
		return g.emitAssign(fb, n)
	case token.ADDASI, token.SUBASI, token.MULASI, token.DIVASI, token.MODASI, token.POWASI:
		return g.emitCompoundAssign(fb, n)
	case token.INC, token.DEC:
		return g.emitIncDec(fb, n)
	case token.DOT, token.ARROW:
		return g.emitMember(fb, n)
	case token.ACCESS:
		return g.emitIndex(fb, n)
	case token.FCALL:
		return g.emitCall(fb, n)
	case token.LAMBDA:
		return g.emitLambdaExpr(fb, n)
	case token.CHOICE:
		return g.emitChoice(fb, n)
	default:
		return cserrors.New(cserrors.Unsupported, "%s has no bytecode lowering", n.Op)
	}
}

// emitBinary implements spec §4.5's "Evaluation order": push right, then
// left, so top-of-stack holds the left operand when op is applied.
func (g *Generator) emitBinary(fb *FunctionBuilder, n *ast.Node, op Op) error {
	if err := g.emitExpr(fb, n.Right); err != nil {
		return err
	}
	if err := g.emitExpr(fb, n.Left); err != nil {
		return err
	}
	fb.emit(instr(op))
	fb.last = lastEmission{kind: lastNone}
	return nil
}

func (g *Generator) emitUnary(fb *FunctionBuilder, n *ast.Node, op Op, pushZero bool) error {
	operand := n.Right
	if operand == nil {
		operand = n.Left
	}
	if pushZero {
		fb.emit(instrI64(OpLoadInt, 0))
	}
	if err := g.emitExpr(fb, operand); err != nil {
		return err
	}
	fb.emit(instr(op))
	fb.last = lastEmission{kind: lastNone}
	return nil
}

func (g *Generator) emitChoice(fb *FunctionBuilder, n *ast.Node) error {
	branches := n.Right
	if branches == nil || branches.Kind != ast.KindSignal || branches.Op != token.PAIR {
		return cserrors.New(cserrors.Grammar, "malformed ?: node")
	}
	if err := g.emitExpr(fb, n.Left); err != nil {
		return err
	}
	fb.emit(instr(OpCastToBool))
	thenBlock := fb.newBlock()
	elseBlock := fb.newBlock()
	end := fb.newBlock()
	fb.emit(instrCondBranch(thenBlock, elseBlock))

	fb.setCurrent(thenBlock)
	if err := g.emitExpr(fb, branches.Left); err != nil {
		return err
	}
	fb.emit(instrBranch(end))

	fb.setCurrent(elseBlock)
	if err := g.emitExpr(fb, branches.Right); err != nil {
		return err
	}
	fb.emit(instrBranch(end))

	fb.setCurrent(end)
	fb.last = lastEmission{kind: lastNone}
	return nil
}

// emitDeref lowers unary `*p` to a __deref__ method call, the same idiom
// the post-pass uses for array indexing: the VM has no dedicated deref
// opcode, so pointer dereference is dispatched through the type system.
func (g *Generator) emitDeref(fb *FunctionBuilder, n *ast.Node) error {
	operand := n.Right
	if operand == nil {
		operand = n.Left
	}
	if err := g.emitExpr(fb, operand); err != nil {
		return err
	}
	fb.emit(instrCallField(OpCallField, "__deref__", 0))
	fb.last = lastEmission{kind: lastNone}
	return nil
}

// emitMember implements dot/arrow access: push the object, push the field
// name, GetField (spec §4.5 "GetField ... pops key,obj").
func (g *Generator) emitMember(fb *FunctionBuilder, n *ast.Node) error {
	if err := g.emitExpr(fb, n.Left); err != nil {
		return err
	}
	if n.Op == token.ARROW {
		fb.emit(instrCallField(OpCallField, "__deref__", 0))
	}
	if n.Right == nil || n.Right.Kind != ast.KindID {
		return cserrors.New(cserrors.Grammar, "malformed member access")
	}
	fb.emit(instrString(OpLoadString, n.Right.Name))
	fb.emit(instr(OpGetField))
	fb.last = lastEmission{kind: lastField}
	return nil
}

// emitIndex emits GetArrayElement; lowerArrayAccess (run once Build has
// finished a function) rewrites it into a __get__ method call per spec
// §4.5's post-pass.
func (g *Generator) emitIndex(fb *FunctionBuilder, n *ast.Node) error {
	if err := g.emitExpr(fb, n.Left); err != nil {
		return err
	}
	if err := g.emitExpr(fb, n.Right); err != nil {
		return err
	}
	fb.emit(instr(OpGetArrayElement))
	fb.last = lastEmission{kind: lastArrayElem}
	return nil
}

func (g *Generator) emitCall(fb *FunctionBuilder, n *ast.Node) error {
	if err := g.emitExpr(fb, n.Left); err != nil {
		return err
	}
	var argc int64
	if n.Right != nil {
		if n.Right.Kind != ast.KindArgList {
			return cserrors.New(cserrors.Grammar, "malformed call argument list")
		}
		for _, a := range n.Right.Elems {
			if err := g.emitExpr(fb, a); err != nil {
				return err
			}
			argc++
		}
	}
	fb.emit(instrI64(OpCall, argc))
	fb.last = lastEmission{kind: lastNone}
	return nil
}

func (g *Generator) emitLambdaExpr(fb *FunctionBuilder, n *ast.Node) error {
	if n.Left == nil || n.Left.Kind != ast.KindArgList {
		return cserrors.New(cserrors.Grammar, "malformed lambda argument list")
	}
	params := make([]string, len(n.Left.Elems))
	seen := map[string]bool{}
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
	return g.emitClosure(fb, "", params, body)
}

// emitAssign implements spec §4.5's "Assignment transformation": emit the
// l-value, then rewrite the just-emitted get into its matching set.
func (g *Generator) emitAssign(fb *FunctionBuilder, n *ast.Node) error {
	if err := g.emitExpr(fb, n.Right); err != nil {
		return err
	}
	return g.storeInto(fb, n.Left)
}

// storeInto emits n as an l-value target and writes the already-pushed
// value through it, consuming fb.last the typed-handle way (spec §9
// design note).
func (g *Generator) storeInto(fb *FunctionBuilder, n *ast.Node) error {
	if n.Kind == ast.KindID {
		if err := g.emitIdent(fb, n); err != nil {
			return err
		}
	} else if n.Kind == ast.KindSignal && n.Op == token.ACCESS {
		if err := g.emitIndex(fb, n); err != nil {
			return err
		}
	} else if n.Kind == ast.KindSignal && (n.Op == token.DOT || n.Op == token.ARROW) {
		if err := g.emitMember(fb, n); err != nil {
			return err
		}
	} else {
		return cserrors.New(cserrors.Grammar, "invalid assignment target")
	}

	last := fb.last
	blk := fb.block(fb.current)
	switch last.kind {
	case lastLocal:
		blk.Code[len(blk.Code)-1] = instrI64(OpSetLocal, int64(last.localIdx))
	case lastArrayElem:
		blk.Code[len(blk.Code)-1] = instr(OpSetArrayElement)
	case lastField:
		blk.Code[len(blk.Code)-1] = instr(OpSetField)
	default:
		return cserrors.New(cserrors.Internal, "malformed l-value: last emission was not a get")
	}
	fb.last = lastEmission{kind: lastNone}
	return nil
}

// emitCompoundAssign implements spec §4.5's modify-in-place transform:
// read the current value, combine with the right-hand side, write back.
// Evaluation order matches emitBinary (right first, left/current on top)
// so arithOp's implicit "top is left" convention still holds.
func (g *Generator) emitCompoundAssign(fb *FunctionBuilder, n *ast.Node) error {
	arithOp, err := arithOpFor(n.Op)
	if err != nil {
		return err
	}
	if n.Left.Kind == ast.KindID {
		if err := g.emitExpr(fb, n.Right); err != nil {
			return err
		}
		if err := g.emitIdent(fb, n.Left); err != nil {
			return err
		}
		fb.emit(instr(arithOp))
		return g.storeInto(fb, n.Left)
	}

	// Array/field l-value: the object (and, for indexing, the key) are
	// evaluated once into hidden locals, since they're read and then
	// written back through.
	objLocal := fb.declareLocal("")
	if err := g.emitExpr(fb, n.Left.Left); err != nil {
		return err
	}
	fb.emit(instrI64(OpSetLocal, int64(objLocal)))
	fb.emit(instr(OpPop))

	if n.Left.Op == token.ACCESS {
		keyLocal := fb.declareLocal("")
		if err := g.emitExpr(fb, n.Left.Right); err != nil {
			return err
		}
		fb.emit(instrI64(OpSetLocal, int64(keyLocal)))
		fb.emit(instr(OpPop))

		if err := g.emitExpr(fb, n.Right); err != nil {
			return err
		}
		fb.emit(instrI64(OpGetLocal, int64(objLocal)))
		fb.emit(instrI64(OpGetLocal, int64(keyLocal)))
		fb.emit(instr(OpGetArrayElement))
		fb.emit(instr(arithOp))
		fb.emit(instrI64(OpGetLocal, int64(objLocal)))
		fb.emit(instrI64(OpGetLocal, int64(keyLocal)))
		fb.emit(instr(OpSetArrayElement))
	} else {
		field := n.Left.Right.Name
		isArrow := n.Left.Op == token.ARROW
		if err := g.emitExpr(fb, n.Right); err != nil {
			return err
		}
		fb.emit(instrI64(OpGetLocal, int64(objLocal)))
		if isArrow {
			fb.emit(instrCallField(OpCallField, "__deref__", 0))
		}
		fb.emit(instrString(OpLoadString, field))
		fb.emit(instr(OpGetField))
		fb.emit(instr(arithOp))
		fb.emit(instrI64(OpGetLocal, int64(objLocal)))
		if isArrow {
			fb.emit(instrCallField(OpCallField, "__deref__", 0))
		}
		fb.emit(instrString(OpLoadString, field))
		fb.emit(instr(OpSetField))
	}
	fb.last = lastEmission{kind: lastNone}
	return nil
}

func arithOpFor(op token.Op) (Op, error) {
	switch op {
	case token.ADDASI:
		return OpAdd, nil
	case token.SUBASI:
		return OpSub, nil
	case token.MULASI:
		return OpMul, nil
	case token.DIVASI:
		return OpDiv, nil
	case token.MODASI:
		return OpMod, nil
	case token.POWASI:
		return OpPow, nil
	}
	return OpIllegal, cserrors.New(cserrors.Internal, "%s is not a compound-assign operator", op)
}

// emitIncDec implements spec §4.5's "Increment/decrement": prefix
// (operand on right) vs postfix (operand on left), writing back through
// the same modify transform as a compound assignment and returning the
// new value for prefix, the old value for postfix. Only an identifier
// operand is compiled; an array-element or field operand reports
// Unsupported.
func (g *Generator) emitIncDec(fb *FunctionBuilder, n *ast.Node) error {
	prefix := n.Left == nil
	operand := n.Right
	if !prefix {
		operand = n.Left
	}
	op := OpIntAdd
	if n.Op == token.DEC {
		op = OpIntSub
	}
	if operand.Kind != ast.KindID {
		return cserrors.New(cserrors.Unsupported, "%s on a non-identifier l-value is not supported by this backend", n.Op)
	}
	if !prefix {
		// The old value, kept below the modify sequence as the result.
		if err := g.emitIdent(fb, operand); err != nil {
			return err
		}
	}
	// Same order as emitCompoundAssign: the 1 first, the current value on
	// top as the left operand, so DEC computes x-1 rather than 1-x.
	fb.emit(instrI64(OpLoadInt, 1))
	if err := g.emitIdent(fb, operand); err != nil {
		return err
	}
	fb.emit(instr(op))
	if err := g.storeInto(fb, operand); err != nil {
		return err
	}
	if !prefix {
		// Stack is [old, new] after storeInto; drop the stored-back new
		// value so the postfix expression yields the old one.
		fb.emit(instr(OpPop))
	}
	return nil
}

// lowerArrayAccess implements spec §4.5's post-pass: rewrite every
// GetArrayElement/SetArrayElement into a __get__/__set__ method call on
// the array object, so index access is dispatched through the type
// system rather than hard-coded into the VM.
func lowerArrayAccess(fb *FunctionBuilder) {
	for _, b := range fb.Blocks {
		for i, ins := range b.Code {
			switch ins.Op {
			case OpGetArrayElement:
				b.Code[i] = instrCallField(OpCallField, "__get__", 1)
			case OpSetArrayElement:
				b.Code[i] = instrCallField(OpCallField, "__set__", 2)
			}
		}
	}
	for _, child := range fb.Children {
		lowerArrayAccess(child)
	}
}
