package splay_test

import (
	"testing"

	"github.com/brunokim/doccrdt/splay"
	"github.com/stretchr/testify/require"
)

// charNode is a minimal Embedder: one character, possibly tombstoned.
type charNode struct {
	splay.Node
	ch      rune
	deleted bool
}

func (n *charNode) SplayNode() *splay.Node { return &n.Node }
func (n *charNode) Length() int {
	if n.deleted {
		return 0
	}
	return 1
}

func newTreeFromString(s string) (*splay.Tree, []*charNode) {
	t := splay.New()
	var nodes []*charNode
	var prev *charNode
	for _, ch := range s {
		n := &charNode{ch: ch}
		if prev == nil {
			t.InsertAfter(nil, n)
		} else {
			t.InsertAfter(prev, n)
		}
		nodes = append(nodes, n)
		prev = n
	}
	return t, nodes
}

func readAll(t *splay.Tree, n int) string {
	var sb []rune
	for i := 0; i < n; i++ {
		e, off, ok := t.Find(i)
		if !ok {
			break
		}
		cn := e.(*charNode)
		_ = off
		sb = append(sb, cn.ch)
	}
	return string(sb)
}

func TestInsertAndFind(t *testing.T) {
	tr, _ := newTreeFromString("hello")
	require.Equal(t, 5, tr.Len())
	require.Equal(t, "hello", readAll(tr, 5))
}

func TestIndexOf(t *testing.T) {
	tr, nodes := newTreeFromString("abcde")
	for i, n := range nodes {
		require.Equal(t, i, tr.IndexOf(n), "char %c", n.ch)
	}
}

func TestTombstoneSkipped(t *testing.T) {
	tr, nodes := newTreeFromString("abcde")
	nodes[1].deleted = true // tombstone 'b'
	tr.Touch(nodes[1])
	require.Equal(t, 4, tr.Len())
	require.Equal(t, "acde", readAll(tr, 4))
	require.Equal(t, 2, tr.IndexOf(nodes[3])) // 'd' is now at logical index 2
}

func TestDelete(t *testing.T) {
	tr, nodes := newTreeFromString("abcde")
	tr.Delete(nodes[2]) // physically remove 'c'
	require.Equal(t, 4, tr.Len())
	require.Equal(t, "abde", readAll(tr, 4))
}

func TestInsertAfterMiddle(t *testing.T) {
	tr, nodes := newTreeFromString("ace")
	n := &charNode{ch: 'b'}
	tr.InsertAfter(nodes[0], n)
	require.Equal(t, "abce", readAll(tr, 4))
}

func TestFindOutOfRange(t *testing.T) {
	tr, _ := newTreeFromString("ab")
	_, _, ok := tr.Find(5)
	require.False(t, ok)
}
