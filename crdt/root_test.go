package crdt

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRootCreatePath(t *testing.T) {
	actor := uuid.New()
	gen := NewTicketGenerator(actor)
	root := NewRoot(gen.Next())

	name := NewString("alice", gen.Next())
	root.Object().Set("name", name)
	root.RegisterElement(name, root.Object().CreatedAt(), "name")

	path, err := root.CreatePath(name.CreatedAt())
	require.NoError(t, err)
	require.Equal(t, "$.name", path)
}

func TestRootCreatePathEscaping(t *testing.T) {
	actor := uuid.New()
	gen := NewTicketGenerator(actor)
	root := NewRoot(gen.Next())

	v := NewString("x", gen.Next())
	root.Object().Set("a.b", v)
	root.RegisterElement(v, root.Object().CreatedAt(), "a.b")

	path, err := root.CreatePath(v.CreatedAt())
	require.NoError(t, err)
	require.Equal(t, `$.a\.b`, path)
}

// TestGCSafety covers spec.md §8 S5: with min_synced_vv = {A:10, B:8}, a
// tombstone from ticket (9, A) is purged, while one from (9, B) is
// retained (B's tombstone is causally ahead of what min_synced_vv has
// observed for B).
func TestGCSafety(t *testing.T) {
	siteA := uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	siteB := uuid.MustParse("00000000-0000-0000-0000-0000000000bb")

	root := NewRoot(Ticket{Lamport: 1, ActorID: siteA})

	elemA := NewString("from-a", Ticket{Lamport: 2, ActorID: siteA})
	root.RegisterElement(elemA, root.Object().CreatedAt(), "a")
	elemA.Remove(Ticket{Lamport: 9, ActorID: siteA})
	root.RegisterRemovedElement(elemA)

	elemB := NewString("from-b", Ticket{Lamport: 2, ActorID: siteB})
	root.RegisterElement(elemB, root.Object().CreatedAt(), "b")
	elemB.Remove(Ticket{Lamport: 9, ActorID: siteB})
	root.RegisterRemovedElement(elemB)

	vv := NewVersionVector()
	vv.Set(siteA, 10)
	vv.Set(siteB, 8)

	purged := root.GarbageCollect(vv)
	require.Equal(t, 1, purged)

	_, stillThere := root.FindElement(elemA.CreatedAt())
	require.False(t, stillThere, "A's tombstone at lamport 9 must be purged: vv observed A up to 10")

	_, stillThereB := root.FindElement(elemB.CreatedAt())
	require.True(t, stillThereB, "B's tombstone at lamport 9 must be retained: vv only observed B up to 8")
}

// TestDocSizeInvariant covers spec.md §8 invariant 6: Live+GC bucket sums
// stay in balance across register/remove/garbage-collect, and GC is
// fully zeroed for a purged element.
func TestDocSizeInvariant(t *testing.T) {
	actor := uuid.New()
	gen := NewTicketGenerator(actor)
	root := NewRoot(gen.Next())

	elem := NewString("payload", gen.Next())
	root.RegisterElement(elem, root.Object().CreatedAt(), "k")

	sizeBefore := root.Size()
	require.Greater(t, sizeBefore.Live.Data+sizeBefore.Live.Meta, 0)

	removedAt := gen.Next()
	elem.Remove(removedAt)
	root.RegisterRemovedElement(elem)

	sizeAfterRemove := root.Size()
	require.Equal(t, sizeBefore.Live.Data, sizeAfterRemove.GC.Data, "data moves from live to gc, not lost")
	require.Greater(t, sizeAfterRemove.GC.Data+sizeAfterRemove.GC.Meta, 0)

	vv := NewVersionVector()
	vv.Set(actor, removedAt.Lamport)
	purged := root.GarbageCollect(vv)
	require.Equal(t, 1, purged)

	sizeAfterGC := root.Size()
	require.Equal(t, 0, sizeAfterGC.GC.Data)
	require.Equal(t, 0, sizeAfterGC.GC.Meta)
}

func TestRunLocalMintsAndRegisters(t *testing.T) {
	actor := uuid.New()
	root := NewRoot(Ticket{Lamport: 1, ActorID: actor})

	change, err := root.RunLocal(actor, func(ctx *ChangeContext) error {
		v := NewString("hi", ctx.NextTicket())
		ctx.Root().Object().Set("greeting", v)
		ctx.RegisterElement(v, ctx.Root().Object().CreatedAt(), "greeting")
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, actor, change.Actor)
	require.Len(t, change.Touched, 1)

	got, ok := root.Object().Get("greeting")
	require.True(t, ok)
	require.Equal(t, "hi", got.(*Primitive).Value())
}

func TestRootDeepCopyIndependence(t *testing.T) {
	actor := uuid.New()
	gen := NewTicketGenerator(actor)
	root := NewRoot(gen.Next())

	v := NewString("orig", gen.Next())
	root.Object().Set("k", v)
	root.RegisterElement(v, root.Object().CreatedAt(), "k")

	cp := root.DeepCopy()
	v2 := NewString("only-in-copy", gen.Next())
	cp.Object().Set("k2", v2)
	cp.RegisterElement(v2, cp.Object().CreatedAt(), "k2")

	require.Equal(t, 1, root.Object().Len())
	require.Equal(t, 2, cp.Object().Len())

	path, err := cp.CreatePath(v.CreatedAt())
	require.NoError(t, err)
	require.Equal(t, "$.k", path)
}
