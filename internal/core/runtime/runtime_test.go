package runtime

import (
	"testing"

	"covscript.dev/go/internal/core/value"
)

func TestNewBindsBuiltinTypes(t *testing.T) {
	r := New()
	for _, name := range builtinTypeNames {
		v, err := r.Storage.GetVarGlobal(name)
		if err != nil {
			t.Fatalf("GetVarGlobal(%q): %v", name, err)
		}
		if _, ok := v.(*value.TypeDescriptor); !ok {
			t.Fatalf("%q is bound to a %T, want *value.TypeDescriptor", name, v)
		}
	}
	if err := r.Storage.Assign("integer", value.Int(1)); err == nil {
		t.Fatal("expected assigning to the protected \"integer\" binding to fail")
	}
}

func TestNewContextSharesStorage(t *testing.T) {
	r := New()
	if err := r.Storage.AddVarGlobal("x", value.Int(42)); err != nil {
		t.Fatal(err)
	}
	ctx := r.NewContext()
	v, err := ctx.Storage.GetVar("x")
	if err != nil {
		t.Fatal(err)
	}
	if v.(value.Int) != 42 {
		t.Fatalf("got %v, want 42", v)
	}
}

func TestGlobalRegistry(t *testing.T) {
	r := New()
	r.RegisterClosure("foo", value.Int(7))
	got := r.GlobalRegistry().Get(value.NewString("foo"))
	if got == nil || got.(value.Int) != 7 {
		t.Fatalf("got %v, want 7", got)
	}
}

func TestActiveRuntimeStack(t *testing.T) {
	if Active() != nil {
		t.Fatal("expected no active runtime initially")
	}
	r1 := New()
	g1 := r1.PushActive()
	if Active() != r1 {
		t.Fatal("expected r1 to be active")
	}
	r2 := New()
	g2 := r2.PushActive()
	if Active() != r2 {
		t.Fatal("expected r2 to be active")
	}
	g2.Pop()
	if Active() != r1 {
		t.Fatal("expected r1 to be active again after popping r2")
	}
	g1.Pop()
	if Active() != nil {
		t.Fatal("expected no active runtime after popping both")
	}
}

func TestBuildAndDynamicImportAreUnsupportedStubs(t *testing.T) {
	r := New()
	if _, err := r.Build("1 + 1"); err == nil {
		t.Fatal("expected Build to report unsupported without a wired parser")
	}
	if _, err := r.DynamicImport("foo.csc", "foo"); err == nil {
		t.Fatal("expected DynamicImport to report unsupported without wired file I/O")
	}
}
