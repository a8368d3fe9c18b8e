package eval

import (
	"covscript.dev/go/cs/ast"
	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/cs/token"
	"covscript.dev/go/internal/core/domain"
	"covscript.dev/go/internal/core/value"
)

// structBuilder is spec §3's "Struct builder": a name, a hash identity, and
// a recorded sequence of definition statements. Extends supports the
// instance.cpp-derived inheritance supplement (SPEC_FULL.md supplemented
// feature #3): the parent's domain is merged into the child's before the
// child's own body runs, so parent fields are visible and child fields
// shadow same-named parent fields.
type structBuilder struct {
	name    string
	id      int64
	body    []ast.Stmt
	extends *structBuilder
	context *domain.Env
}

// evalNew implements `new T` / `gcnew T` (spec §4.3): invoke the type's
// constructor and, for gcnew, wrap the result in a Pointer.
func (c *Context) evalNew(n *ast.Node) (value.Value, error) {
	if n.Left != nil {
		return nil, cserrors.New(cserrors.Grammar, "%s takes no left operand", n.Op)
	}
	tv, err := c.Eval(n.Right)
	if err != nil {
		return nil, err
	}
	td, ok := tv.(*value.TypeDescriptor)
	if !ok {
		return nil, cserrors.New(cserrors.Unsupported, "%s requires a type operand", n.Op)
	}
	inst, err := c.Instantiate(td)
	if err != nil {
		return nil, err
	}
	if n.Op == token.GCNEW {
		return value.NewPointer(inst), nil
	}
	return inst, nil
}

// Instantiate builds a fresh value of the type td describes: a builtin
// zero value, or a struct instance built by running its builder's body in
// a fresh domain (spec §3 "Struct builder": "invoking the builder runs the
// statements inside a fresh scope, returning a struct instance whose
// domain is the scope's resulting bindings").
func (c *Context) Instantiate(td *value.TypeDescriptor) (value.Value, error) {
	if zero, ok := builtinZero(td.Name); ok {
		return zero, nil
	}
	sb, ok := c.Structs[td.Name]
	if !ok {
		return nil, cserrors.New(cserrors.Undefined, "undefined type %q", td.Name)
	}
	return c.buildStruct(sb)
}

func builtinZero(name string) (value.Value, bool) {
	switch name {
	case "integer", "number":
		return value.Int(0), true
	case "float":
		return value.Float(0), true
	case "string":
		return value.NewString(""), true
	case "char":
		return value.Char(0), true
	case "boolean":
		return value.Bool(false), true
	case "array", "list":
		return value.NewArray(), true
	case "hashmap", "map":
		return value.NewMap(), true
	}
	return nil, false
}

func (c *Context) buildStruct(sb *structBuilder) (*value.Struct, error) {
	inst := domain.New()
	if sb.extends != nil {
		parent, err := c.buildStruct(sb.extends)
		if err != nil {
			return nil, err
		}
		if parentDom, ok := parent.Dom.(*domain.Domain); ok {
			if err := inst.Involve(parentDom); err != nil {
				return nil, err
			}
		}
	}

	restore := c.Storage.EnterCall(sb.context, inst)
	c.Storage.MarkSetAsStruct()
	err := c.Run(sb.body)
	restore()
	if err != nil {
		return nil, err
	}

	return &value.Struct{TypeName: sb.name, ID: sb.id, Dom: inst}, nil
}
