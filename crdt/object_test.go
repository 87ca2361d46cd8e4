package crdt

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestObjectSetGet(t *testing.T) {
	actor := uuid.New()
	obj := NewObject(InitialTicket)
	t1 := Ticket{Lamport: 1, ActorID: actor}
	obj.Set("name", NewString("alice", t1))

	v, ok := obj.Get("name")
	require.True(t, ok)
	require.Equal(t, "alice", v.(*Primitive).Value())
	require.Equal(t, 1, obj.Len())
}

// TestObjectConcurrentSetSameKey covers spec.md §4.4's displacement
// rule: when two actors concurrently Set the same key, the element
// with the newer CreatedAt wins visibility regardless of apply order,
// and the loser is kept (not dropped) rather than deleted outright.
func TestObjectConcurrentSetSameKey(t *testing.T) {
	siteA := uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	siteB := uuid.MustParse("00000000-0000-0000-0000-0000000000bb")
	tA := Ticket{Lamport: 1, ActorID: siteA}
	tB := Ticket{Lamport: 2, ActorID: siteB}
	require.True(t, tB.After(tA))

	run := func(applyAFirst bool) string {
		obj := NewObject(InitialTicket)
		applyA := func() { obj.Set("status", NewString("A", tA)) }
		applyB := func() { obj.Set("status", NewString("B", tB)) }
		if applyAFirst {
			applyA()
			applyB()
		} else {
			applyB()
			applyA()
		}
		v, ok := obj.Get("status")
		require.True(t, ok)
		return v.(*Primitive).Value().(string)
	}

	require.Equal(t, "B", run(true))
	require.Equal(t, "B", run(false), "newer CreatedAt must win regardless of apply order")
}

func TestObjectDelete(t *testing.T) {
	actor := uuid.New()
	obj := NewObject(InitialTicket)
	t1 := Ticket{Lamport: 1, ActorID: actor}
	t2 := Ticket{Lamport: 2, ActorID: actor}
	obj.Set("k", NewString("v", t1))

	_, ok := obj.Delete("k", t2)
	require.True(t, ok)
	require.Equal(t, 0, obj.Len())
	_, ok = obj.Get("k")
	require.False(t, ok)
}

func TestObjectDeepCopyIndependence(t *testing.T) {
	actor := uuid.New()
	obj := NewObject(InitialTicket)
	t1 := Ticket{Lamport: 1, ActorID: actor}
	obj.Set("k", NewString("v", t1))

	cp := obj.DeepCopy().(*Object)
	t2 := Ticket{Lamport: 2, ActorID: actor}
	cp.Set("k2", NewString("v2", t2))

	require.Equal(t, 1, obj.Len())
	require.Equal(t, 2, cp.Len())
}
