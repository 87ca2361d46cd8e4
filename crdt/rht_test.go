package crdt

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func mustTicket(lamport uint64, actor uuid.UUID) Ticket {
	return Ticket{Lamport: lamport, ActorID: actor}
}

func TestRHTLastWriterWins(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	h := newRHT()

	prev, cur := h.Set("bold", "true", mustTicket(5, a))
	require.Nil(t, prev)
	require.Equal(t, "true", cur.value)

	// Concurrent set from b at a later ticket wins.
	prev, cur = h.Set("bold", "false", mustTicket(6, b))
	require.NotNil(t, prev)
	require.Equal(t, "true", prev.value)
	require.Equal(t, "false", cur.value)

	val, ok := h.Get("bold")
	require.True(t, ok)
	require.Equal(t, "false", val)
}

func TestRHTSetRejectsOlderTicket(t *testing.T) {
	a := uuid.New()
	h := newRHT()
	h.Set("k", "v1", mustTicket(10, a))
	prev, cur := h.Set("k", "v2", mustTicket(5, a))
	require.Nil(t, prev)
	require.Equal(t, "v1", cur.value) // rejected set returns the still-current node
	val, _ := h.Get("k")
	require.Equal(t, "v1", val)
}

func TestRHTRemoveTombstones(t *testing.T) {
	a := uuid.New()
	h := newRHT()
	h.Set("k", "v", mustTicket(1, a))
	removed := h.Remove("k", mustTicket(2, a))
	require.NotNil(t, removed)
	require.False(t, h.Has("k"))
	_, ok := h.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, h.Size())
}

func TestRHTSortedKeys(t *testing.T) {
	a := uuid.New()
	h := newRHT()
	h.Set("zebra", "1", mustTicket(1, a))
	h.Set("apple", "2", mustTicket(2, a))
	h.Set("mango", "3", mustTicket(3, a))
	require.Equal(t, []string{"apple", "mango", "zebra"}, h.sortedKeys())
}
