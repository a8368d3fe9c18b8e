// Package runtime implements the per-interpreter Runtime handle (spec §5's
// "active runtime" concept, §6's `build`/`solve`/`dynamic_import` surface)
// and the process-wide global closure registry the bytecode backend
// surfaces compiled children and captured externals through (spec §4.5).
//
// Grounded on internal/core/runtime/runtime.go's minimal Runtime holder
// (an index plus a Loaded map), generalized from "one shared build index"
// to "one scope stack + extension registry + closure registry per
// interpreter instance".
package runtime

import (
	"covscript.dev/go/cs/ast"
	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/internal/core/domain"
	"covscript.dev/go/internal/core/eval"
	"covscript.dev/go/internal/core/extension"
	"covscript.dev/go/internal/core/value"
)

// builtinTypeNames are the identifiers `new`/`gcnew` resolve against for
// the built-in value kinds (spec §4.3's `new T` row), bound read-only in
// every fresh Runtime's global scope.
var builtinTypeNames = []string{
	"integer", "float", "char", "string", "boolean", "array", "hashmap", "pointer",
}

// Runtime is one interpreter instance: its scope stack, its extension
// registry, and the global registry the bytecode backend pins compiled
// closures into (spec §4.5 "Function / lambda compilation").
type Runtime struct {
	Storage    *domain.Manager
	Extensions *extension.Registry

	registry *value.Map
}

// New creates a Runtime with a fresh scope stack, an empty extension
// registry, and the built-in type descriptors bound as protected globals.
func New() *Runtime {
	r := &Runtime{
		Storage:    domain.NewManager(),
		Extensions: extension.New(),
		registry:   value.NewMap(),
	}
	for _, name := range builtinTypeNames {
		td := &value.TypeDescriptor{Name: name, ID: value.NewTypeID()}
		_ = r.Storage.AddVarProtected(name, td)
	}
	_ = r.Storage.AddVarProtected("global", value.Sentinel{Which: value.GlobalSentinel})
	_ = r.Storage.AddVarProtected("current", value.Sentinel{Which: value.CurrentSentinel})
	return r
}

// NewContext creates an eval.Context sharing this Runtime's scope stack and
// extension registry (spec §5: "evaluator, optimizer, and generator share a
// per-interpreter context").
func (r *Runtime) NewContext() *eval.Context {
	return eval.NewContext(r.Storage, r.Extensions)
}

// GlobalRegistry returns the shared map the bytecode backend surfaces
// compiled child functions and captured external values through at
// runtime (spec §4.5 "Global registry", GLOSSARY).
func (r *Runtime) GlobalRegistry() *value.Map { return r.registry }

// RegisterClosure pins v into the global registry under name, the
// bytecode generator's `LoadString <name>; __global_registry.GetField`
// contract (spec §4.5) reads back out at run time.
func (r *Runtime) RegisterClosure(name string, v value.Value) {
	r.registry.Put(value.NewString(name), v)
}

// activeStack is the thread-local stack of "active runtimes" spec §5
// describes: native extension code (e.g. the runtime.* extension's
// `build`/`solve`) recovers the current Runtime from here when it has no
// other way to reach it. Execution is single-threaded cooperative (spec
// §5), so a package-level stack (not a per-goroutine one) is sufficient.
var activeStack []*Runtime

// ActiveGuard is the balanced push/pop guard spec §5 requires ("pushing
// and popping is scoped to a guard object and must be balanced").
type ActiveGuard struct{ r *Runtime }

// PushActive makes r the current active runtime until the returned guard's
// Pop is called.
func (r *Runtime) PushActive() *ActiveGuard {
	activeStack = append(activeStack, r)
	return &ActiveGuard{r: r}
}

// Pop restores the previously active runtime. Callers must defer this
// immediately after PushActive (spec §5's balance requirement).
func (g *ActiveGuard) Pop() {
	if len(activeStack) == 0 || activeStack[len(activeStack)-1] != g.r {
		return
	}
	activeStack = activeStack[:len(activeStack)-1]
}

// Active returns the innermost pushed runtime, or nil if none is active.
func Active() *Runtime {
	if len(activeStack) == 0 {
		return nil
	}
	return activeStack[len(activeStack)-1]
}

// Solve implements the `solve(ctx, tree)` extension hook (spec §6):
// evaluate an already-built expression tree against this Runtime's current
// context.
func (r *Runtime) Solve(n *ast.Node) (value.Value, error) {
	return r.NewContext().Eval(n)
}

// Build implements the `build(ctx, src)` extension hook (spec §6): parse a
// source string into an expression tree. The lexer/parser is a
// deliberately excluded external collaborator (spec §1), so this always
// fails; a host embedding this core wires its own parser in and calls
// Solve directly with the resulting tree.
func (r *Runtime) Build(src string) (*ast.Node, error) {
	return nil, cserrors.New(cserrors.Unsupported, "build: no parser is wired into this core (spec §1 excludes the lexer/parser)")
}

// DynamicImport implements the `dynamic_import(ctx, path, name)` extension
// hook (spec §6). File I/O is a deliberately excluded external
// collaborator (spec §1), so this always fails; a host wires its own
// module loader in and populates the global registry / namespaces
// directly.
func (r *Runtime) DynamicImport(path, name string) (value.Value, error) {
	return nil, cserrors.New(cserrors.Unsupported, "dynamic_import: no file I/O is wired into this core (spec §1)")
}
