package crdt

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestToSortedJSONDeterministic(t *testing.T) {
	actor := uuid.New()
	gen := NewTicketGenerator(actor)
	root := NewRoot(gen.Next())

	root.Object().Set("z", NewString("last", gen.Next()))
	root.Object().Set("a", NewString("first", gen.Next()))

	require.Equal(t, `{"a":"first","z":"last"}`, ToSortedJSON(root))
}

func TestCreatePathNested(t *testing.T) {
	actor := uuid.New()
	gen := NewTicketGenerator(actor)
	root := NewRoot(gen.Next())

	child := NewObject(gen.Next())
	root.Object().Set("inner", child)
	root.RegisterElement(child, root.Object().CreatedAt(), "inner")

	grandchild := NewString("v", gen.Next())
	child.Set("leaf", grandchild)
	root.RegisterElement(grandchild, child.CreatedAt(), "leaf")

	path, err := root.CreatePath(grandchild.CreatedAt())
	require.NoError(t, err)
	require.Equal(t, "$.inner.leaf", path)
}
