package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAssignsMonotonicIDs(t *testing.T) {
	a := New(1, 8, Hooks{})
	b := New(2, 8, Hooks{})
	require.Greater(t, b.ID, a.ID)
}

func TestCopyProducesNewIDAndIndependentPayload(t *testing.T) {
	type box struct{ v int }

	hooks := Hooks{
		Copy: func(p any) any {
			src := p.(*box)
			return &box{v: src.v}
		},
	}

	orig := New(&box{v: 42}, 8, hooks)
	dup := orig.Copy()

	require.NotEqual(t, orig.ID, dup.ID)
	require.NotSame(t, orig.Payload.(*box), dup.Payload.(*box))
	require.Equal(t, orig.Payload.(*box).v, dup.Payload.(*box).v)
}

func TestCopyWithoutHookSharesPayload(t *testing.T) {
	orig := New("immutable", 9, Hooks{})
	dup := orig.Copy()

	require.NotEqual(t, orig.ID, dup.ID)
	require.Equal(t, orig.Payload, dup.Payload)
}

func TestDestroyInvokesHookUnlessShallow(t *testing.T) {
	var destroyed int
	hooks := Hooks{Destroy: func(any) { destroyed++ }}

	m := New(1, 1, hooks)
	m.Destroy(true)
	require.Equal(t, 0, destroyed)

	m.Destroy(false)
	require.Equal(t, 1, destroyed)
}

func TestUnpackDefaultsToPayload(t *testing.T) {
	m := New(7, 1, Hooks{})
	require.Equal(t, 7, m.Unpack())

	m2 := New(7, 1, Hooks{Unpack: func(p any) any { return p.(int) * 2 }})
	require.Equal(t, 14, m2.Unpack())
}

func TestDestroyNilMessageIsNoop(t *testing.T) {
	var m *Message
	require.NotPanics(t, func() { m.Destroy(false) })
}
