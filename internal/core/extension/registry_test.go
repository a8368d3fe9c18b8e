package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/internal/core/domain"
	"covscript.dev/go/internal/core/fn"
	"covscript.dev/go/internal/core/value"
)

type fakeStorage struct {
	global  map[string]value.Value
	current map[string]value.Value
}

func (s *fakeStorage) GetVarGlobal(name string) (value.Value, error) {
	if v, ok := s.global[name]; ok {
		return v, nil
	}
	return nil, cserrors.New(cserrors.Undefined, "undefined %q", name)
}

func (s *fakeStorage) GetVarCurrent(name string) (value.Value, error) {
	if v, ok := s.current[name]; ok {
		return v, nil
	}
	return nil, cserrors.New(cserrors.Undefined, "undefined %q", name)
}

func TestExtensionForCreatesDomainLazily(t *testing.T) {
	r := New()
	d1 := r.ExtensionFor(value.IntKind)
	d2 := r.ExtensionFor(value.IntKind)
	assert.Same(t, d1, d2, "repeated lookups of the same kind must return the same shared domain")
}

func TestResolveBuiltinKindMember(t *testing.T) {
	r := New()
	ext := r.ExtensionFor(value.IntKind)
	require.NoError(t, ext.Declare("to_string", &fn.Callable{CallKind: fn.MemberFn}, false))

	v, err := r.Resolve(&fakeStorage{}, value.Int(1), "to_string")
	require.NoError(t, err)
	m, ok := v.(*fn.ObjectMethod)
	require.True(t, ok, "a member-fn lookup on a primitive receiver must bind an ObjectMethod")
	assert.Equal(t, value.Int(1), m.Receiver)
}

func TestResolveBuiltinKindWithoutExtensionFails(t *testing.T) {
	r := New()
	_, err := r.Resolve(&fakeStorage{}, value.Bool(true), "nope")
	require.Error(t, err)
}

func TestResolveSentinelDispatchesToStorage(t *testing.T) {
	r := New()
	storage := &fakeStorage{global: map[string]value.Value{"g": value.Int(1)}, current: map[string]value.Value{"c": value.Int(2)}}

	v, err := r.Resolve(storage, value.Sentinel{Which: value.GlobalSentinel}, "g")
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), v)

	v, err = r.Resolve(storage, value.Sentinel{Which: value.CurrentSentinel}, "c")
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), v)
}

func TestResolveNamespaceMember(t *testing.T) {
	r := New()
	dom := domain.New()
	require.NoError(t, dom.Declare("pi", value.Float(3.14), true))
	ns := &value.Namespace{Name: "math", ID: 1, Dom: dom}

	v, err := r.Resolve(&fakeStorage{}, ns, "pi")
	require.NoError(t, err)
	assert.Equal(t, value.Float(3.14), v)
}

func TestResolveStructMemberBindsReceiver(t *testing.T) {
	r := New()
	dom := domain.New()
	require.NoError(t, dom.Declare("area", &fn.Callable{CallKind: fn.MemberFn}, false))
	require.NoError(t, dom.Declare("x", value.Int(5), false))
	inst := &value.Struct{TypeName: "Rect", ID: 7, Dom: dom}

	v, err := r.Resolve(&fakeStorage{}, inst, "x")
	require.NoError(t, err)
	assert.Equal(t, value.Int(5), v, "plain fields resolve to their raw value")

	v, err = r.Resolve(&fakeStorage{}, inst, "area")
	require.NoError(t, err)
	m, ok := v.(*fn.ObjectMethod)
	require.True(t, ok, "struct member functions must bind to an ObjectMethod")
	assert.Same(t, inst, m.Receiver.(*value.Struct))
}

func TestResolveUndefinedMemberFails(t *testing.T) {
	r := New()
	dom := domain.New()
	ns := &value.Namespace{Name: "empty", ID: 1, Dom: dom}
	_, err := r.Resolve(&fakeStorage{}, ns, "nope")
	require.Error(t, err)
	var ce *cserrors.Error
	require.True(t, cserrors.As(err, &ce))
	assert.Equal(t, cserrors.Undefined, ce.Code)
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	d := domain.New()
	r.Register("math", d)
	got, ok := r.Lookup("math")
	require.True(t, ok)
	assert.Same(t, d, got)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}
