package crdt

import (
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"
)

// arrayModel drives an Array through random InsertAfter/RemoveByIndex
// calls and checks it against a plain slice, the same state-machine
// shape the teacher uses for CausalTree (crdt/ctree_property_test.go):
// here the model is a sequence of opaque values rather than runes,
// since Array holds Elements rather than characters.
type arrayModel struct {
	gen  *TicketGenerator
	arr  *Array
	want []string
}

func (m *arrayModel) Init(t *rapid.T) {
	m.gen = NewTicketGenerator(uuid.New())
	m.arr = NewArray(m.gen.Next())
	m.want = nil
}

func (m *arrayModel) InsertAt(t *rapid.T) {
	v := rapid.StringN(1, 8, -1).Draw(t, "v").(string)
	i := rapid.IntRange(-1, len(m.want)-1).Draw(t, "i").(int)

	var after Ticket
	if i >= 0 {
		elem, ok := m.arr.Get(i)
		if !ok {
			t.Fatal("model index out of sync with array")
		}
		after = elem.CreatedAt()
	}
	elem := NewString(v, m.gen.Next())
	if !m.arr.InsertAfter(elem, after) {
		t.Fatal("InsertAfter: anchor not found")
	}

	m.want = append(m.want[:i+1], append([]string{v}, m.want[i+1:]...)...)
}

func (m *arrayModel) RemoveAt(t *rapid.T) {
	if len(m.want) == 0 {
		t.Skip("empty array")
	}
	i := rapid.IntRange(0, len(m.want)-1).Draw(t, "i").(int)

	if _, ok := m.arr.RemoveByIndex(i, m.gen.Next()); !ok {
		t.Fatal("RemoveByIndex: index not found")
	}

	copy(m.want[i:], m.want[i+1:])
	m.want = m.want[:len(m.want)-1]
}

func (m *arrayModel) Check(t *rapid.T) {
	if m.arr.Len() != len(m.want) {
		t.Fatalf("length mismatch: want %d got %d", len(m.want), m.arr.Len())
	}
	for i, want := range m.want {
		elem, ok := m.arr.Get(i)
		if !ok {
			t.Fatalf("index %d: missing element", i)
		}
		prim, ok := elem.(*Primitive)
		if !ok || prim.MarshalJSONValue(false) != `"`+want+`"` {
			t.Fatalf("index %d: want %q got %v", i, want, elem.MarshalJSONValue(false))
		}
	}
}

func TestArrayProperty(t *testing.T) {
	rapid.Check(t, rapid.Run(&arrayModel{}))
}
