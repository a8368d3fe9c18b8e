package internal

import (
	"testing"

	"covscript.dev/go/internal/core/value"
)

func TestBuiltinCallable(t *testing.T) {
	b := &Builtin{
		Name:  "add",
		Arity: 2,
		Func: func(c *CallCtxt) value.Value {
			return value.Int(c.Int(0) + c.Int(1))
		},
	}
	cl := b.Callable()
	v, err := cl.Native(nil, []value.Value{value.Int(3), value.Int(4)})
	if err != nil {
		t.Fatal(err)
	}
	if v.(value.Int) != 7 {
		t.Fatalf("got %v, want 7", v)
	}
}

func TestBuiltinArgTypeError(t *testing.T) {
	b := &Builtin{
		Name:  "add",
		Arity: 2,
		Func: func(c *CallCtxt) value.Value {
			x := c.Int(0)
			y := c.Int(1)
			if !c.Do() {
				return nil
			}
			return value.Int(x + y)
		},
	}
	cl := b.Callable()
	_, err := cl.Native(nil, []value.Value{value.NewString("nope"), value.Int(4)})
	if err == nil {
		t.Fatal("expected a type-mismatch error")
	}
}
