// Package eval implements the Expression Evaluator (spec §4.3) and the
// Statement runner (spec §4.6): recursive tree-walk interpretation of the
// AST the optimizer has (optionally) already folded.
//
// Grounded structurally on internal/core/eval/eval.go's "a context object
// plus a recursive Evaluate" shape, generalized from CUE's lazy
// unification evaluator to CS's eager tree walker, since CS has no
// incremental/closedness evaluation to thread through.
package eval

import (
	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/internal/core/domain"
	"covscript.dev/go/internal/core/extension"
	"covscript.dev/go/internal/core/value"
)

// DefaultMaxCallDepth mirrors original_source/sources/runtime.cpp's fixed
// recursion guard (SPEC_FULL.md supplemented feature #4): past this depth a
// call raises Fatal instead of exhausting the host goroutine stack.
const DefaultMaxCallDepth = 1024

// Context is the per-evaluation state threaded through every Eval/Run
// call: the scope stack, the extension registry, the call-depth guard, and
// the break/continue/return unwind flags the statement runner consults
// (spec §4.6).
type Context struct {
	Storage    *domain.Manager
	Extensions *extension.Registry

	// Structs maps a struct type name to its builder, populated by the
	// StructDef statement runner (spec §3 "Struct builder").
	Structs map[string]*structBuilder

	MaxCallDepth int
	callDepth    int

	returnRequested   bool
	returnValue       value.Value
	breakRequested    bool
	continueRequested bool
}

// NewContext creates a Context over an already-initialized Manager and
// Registry (both own process-lifetime state a caller sets up once per
// interpreter, spec §5).
func NewContext(storage *domain.Manager, ext *extension.Registry) *Context {
	return &Context{
		Storage:      storage,
		Extensions:   ext,
		Structs:      map[string]*structBuilder{},
		MaxCallDepth: DefaultMaxCallDepth,
	}
}

// unwindRequested reports whether a return/break/continue is currently
// propagating, used by block/loop runners to stop executing further
// statements in the current list (spec §4.6).
func (c *Context) unwindRequested() bool {
	return c.returnRequested || c.breakRequested || c.continueRequested
}

func (c *Context) clearLoopFlags() {
	c.breakRequested = false
	c.continueRequested = false
}

var errCallDepthExceeded = cserrors.New(cserrors.Fatal, "maximum call depth exceeded")
