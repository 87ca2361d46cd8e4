package crdt

import (
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"
)

// textModel drives a Text through random index-addressed insertions and
// deletions and checks convergence against a plain rune slice, the same
// state-machine shape the teacher uses for CausalTree's InsertCharAt/
// DeleteAt (crdt/ctree_property_test.go), adapted to the splittable
// -block rgaTreeSplit's from/to splitNodeID addressing.
type textModel struct {
	gen   *TicketGenerator
	text  *Text
	chars []rune
}

func (m *textModel) Init(t *rapid.T) {
	m.gen = NewTicketGenerator(uuid.New())
	m.text = NewText(m.gen.Next())
	m.chars = nil
}

func (m *textModel) InsertAt(t *rapid.T) {
	ch := rapid.RuneFrom([]rune("abcXYZ123")).Draw(t, "ch").(rune)
	i := rapid.IntRange(0, len(m.chars)).Draw(t, "i").(int)

	pos, err := m.text.IndexToPos(i)
	if err != nil {
		t.Fatal("IndexToPos:", err)
	}
	_, _, _, err = m.text.Edit(pos, pos, m.gen.Next(), string(ch), nil, true, nil, nil)
	if err != nil {
		t.Fatal("Edit (insert):", err)
	}

	m.chars = append(m.chars[:i], append([]rune{ch}, m.chars[i:]...)...)
}

func (m *textModel) DeleteAt(t *rapid.T) {
	if len(m.chars) == 0 {
		t.Skip("empty text")
	}
	i := rapid.IntRange(0, len(m.chars)-1).Draw(t, "i").(int)

	from, err := m.text.IndexToPos(i)
	if err != nil {
		t.Fatal("IndexToPos(from):", err)
	}
	to, err := m.text.IndexToPos(i + 1)
	if err != nil {
		t.Fatal("IndexToPos(to):", err)
	}
	_, _, _, err = m.text.Edit(from, to, m.gen.Next(), "", nil, true, nil, nil)
	if err != nil {
		t.Fatal("Edit (delete):", err)
	}

	copy(m.chars[i:], m.chars[i+1:])
	m.chars = m.chars[:len(m.chars)-1]
}

func (m *textModel) Check(t *rapid.T) {
	got := m.text.String()
	want := string(m.chars)
	if got != want {
		t.Fatalf("content mismatch: want %q got %q", want, got)
	}
}

func TestTextProperty(t *testing.T) {
	rapid.Check(t, rapid.Run(&textModel{}))
}
