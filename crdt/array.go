package crdt

import (
	"strings"

	"github.com/brunokim/doccrdt/splay"
)

// arrayNode is one element of a rgaTreeList: a doubly linked node
// carrying a value, indexed by a splay tree for O(log n) position
// lookups and tombstoned in place rather than physically unlinked.
type arrayNode struct {
	splay.Node
	value Element
	// originCreatedAt is the created_at of the node this one was
	// inserted after; used to group "sibling" concurrent insertions so
	// the RGA tiebreak only compares nodes actually competing for the
	// same slot.
	originCreatedAt Ticket
	prev, next      *arrayNode
}

func (n *arrayNode) SplayNode() *splay.Node { return &n.Node }

func (n *arrayNode) Length() int {
	if n.value.IsRemoved() {
		return 0
	}
	return 1
}

// rgaTreeList is a replicated growable array: a doubly linked list of
// nodes under a dummy head, augmented by a splay tree indexed by live
// count and a map created_at -> node (spec.md §4.5).
//
// Grounded directly on the teacher's RList (crdt/rlist.go): identical RGA
// tiebreak logic (insertAtomAtCursor/walkCausalBlock/isDeleted), but
// reimplemented over a linked list + splay index instead of a flat
// []Atom weave, because the spec requires O(log n) index_of/find, which
// the teacher's own docs admit a flat array re-slice does not provide.
type rgaTreeList struct {
	dummyHead *arrayNode
	last      *arrayNode
	index     *splay.Tree
	byCreated map[Ticket]*arrayNode
}

func newRGATreeList() *rgaTreeList {
	head := &arrayNode{value: NewNull(InitialTicket)}
	l := &rgaTreeList{
		dummyHead: head,
		last:      head,
		index:     splay.New(),
		byCreated: make(map[Ticket]*arrayNode),
	}
	return l
}

func (l *rgaTreeList) nodeByCreatedAt(createdAt Ticket) (*arrayNode, bool) {
	if createdAt.IsInitial() {
		return l.dummyHead, true
	}
	n, ok := l.byCreated[createdAt]
	return n, ok
}

// Insert splices value's node into the list immediately after
// afterCreatedAt, skipping forward past any sibling already inserted
// there whose ticket is newer than value's (spec.md §4.5: "newer-by
// -ticket wins the earlier slot").
func (l *rgaTreeList) Insert(value Element, afterCreatedAt Ticket) (*arrayNode, bool) {
	predecessor, ok := l.nodeByCreatedAt(afterCreatedAt)
	if !ok {
		return nil, false
	}
	cur := predecessor
	for cur.next != nil && cur.next.originCreatedAt == afterCreatedAt && cur.next.value.CreatedAt().After(value.CreatedAt()) {
		cur = cur.next
	}
	newNode := &arrayNode{value: value, originCreatedAt: afterCreatedAt}
	newNode.next = cur.next
	if cur.next != nil {
		cur.next.prev = newNode
	} else {
		l.last = newNode
	}
	cur.next = newNode
	newNode.prev = cur

	if cur == l.dummyHead {
		l.index.InsertAfter(nil, newNode)
	} else {
		l.index.InsertAfter(cur, newNode)
	}
	l.byCreated[value.CreatedAt()] = newNode
	return newNode, true
}

// Move unlinks the node created at createdAt and reinserts it after
// afterCreatedAt, applying spec.md §4.5's move-admission rule: only
// applied if the node has never moved, or executedAt is after its
// current MovedAt.
func (l *rgaTreeList) Move(createdAt, afterCreatedAt, executedAt Ticket) bool {
	n, ok := l.byCreated[createdAt]
	if !ok {
		return false
	}
	if !n.value.SetMovedAt(executedAt) {
		return false
	}
	l.unlink(n)
	predecessor, ok := l.nodeByCreatedAt(afterCreatedAt)
	if !ok {
		predecessor = l.dummyHead
	}
	cur := predecessor
	for cur.next != nil && cur.next.originCreatedAt == afterCreatedAt && cur.next.value.CreatedAt().After(createdAt) {
		cur = cur.next
	}
	n.originCreatedAt = afterCreatedAt
	n.next = cur.next
	if cur.next != nil {
		cur.next.prev = n
	} else {
		l.last = n
	}
	cur.next = n
	n.prev = cur
	if cur == l.dummyHead {
		l.index.InsertAfter(nil, n)
	} else {
		l.index.InsertAfter(cur, n)
	}
	return true
}

func (l *rgaTreeList) unlink(n *arrayNode) {
	l.index.Delete(n)
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.last = n.prev
	}
	n.prev, n.next = nil, nil
}

// Remove tombstones the node created at createdAt, if executedAt admits
// the removal (spec.md §3.4). Returns the removed element and whether
// the removal applied.
func (l *rgaTreeList) Remove(createdAt, executedAt Ticket) (Element, bool) {
	n, ok := l.byCreated[createdAt]
	if !ok {
		return nil, false
	}
	if !n.value.Remove(executedAt) {
		return nil, false
	}
	l.index.Touch(n)
	return n.value, true
}

// RemoveByIndex tombstones the index-th live element.
func (l *rgaTreeList) RemoveByIndex(index int, executedAt Ticket) (Element, bool) {
	e, _, ok := l.index.Find(index)
	if !ok {
		return nil, false
	}
	n := e.(*arrayNode)
	if !n.value.Remove(executedAt) {
		return nil, false
	}
	l.index.Touch(n)
	return n.value, true
}

// GetPreviousCreatedAt scans backward from createdAt, skipping
// tombstones, and returns the created_at of the nearest live (or
// dummy-head, i.e. initial) predecessor.
func (l *rgaTreeList) GetPreviousCreatedAt(createdAt Ticket) (Ticket, bool) {
	n, ok := l.nodeByCreatedAt(createdAt)
	if !ok {
		return Ticket{}, false
	}
	for cur := n.prev; cur != nil; cur = cur.prev {
		if cur == l.dummyHead || !cur.value.IsRemoved() {
			return cur.value.CreatedAt(), true
		}
	}
	return InitialTicket, true
}

// Get returns the element at logical index.
func (l *rgaTreeList) Get(index int) (Element, bool) {
	e, _, ok := l.index.Find(index)
	if !ok {
		return nil, false
	}
	return e.(*arrayNode).value, true
}

// Len returns the number of live elements.
func (l *rgaTreeList) Len() int { return l.index.Len() }

// Each walks every live element in logical order.
func (l *rgaTreeList) Each(f func(Element) bool) {
	for n := l.dummyHead.next; n != nil; n = n.next {
		if n.value.IsRemoved() {
			continue
		}
		if !f(n.value) {
			return
		}
	}
}

// DeepCopy returns an independent rgaTreeList, preserving every node's
// created_at identity and physical order (including tombstones still
// linked, per spec.md §9 on deep-copy semantics).
func (l *rgaTreeList) DeepCopy() *rgaTreeList {
	out := newRGATreeList()
	var prevOut *arrayNode = out.dummyHead
	for n := l.dummyHead.next; n != nil; n = n.next {
		cp := &arrayNode{value: n.value.DeepCopy(), originCreatedAt: n.originCreatedAt}
		prevOut.next = cp
		cp.prev = prevOut
		if prevOut == out.dummyHead {
			out.index.InsertAfter(nil, cp)
		} else {
			out.index.InsertAfter(prevOut, cp)
		}
		out.byCreated[cp.value.CreatedAt()] = cp
		prevOut = cp
	}
	out.last = prevOut
	return out
}

// Array is the CRDT ordered sequence element (spec.md §3.3), backed by
// rgaTreeList.
type Array struct {
	elementHeader
	list *rgaTreeList
}

// NewArray creates an empty array.
func NewArray(createdAt Ticket) *Array {
	return &Array{elementHeader: newElementHeader(createdAt), list: newRGATreeList()}
}

// InsertAfter inserts value after afterCreatedAt (InitialTicket for the
// front of the array).
func (a *Array) InsertAfter(value Element, afterCreatedAt Ticket) bool {
	_, ok := a.list.Insert(value, afterCreatedAt)
	return ok
}

// Move relocates the element created at createdAt to just after
// afterCreatedAt.
func (a *Array) Move(createdAt, afterCreatedAt, executedAt Ticket) bool {
	return a.list.Move(createdAt, afterCreatedAt, executedAt)
}

// RemoveByCreatedAt tombstones the element identified by createdAt.
func (a *Array) RemoveByCreatedAt(createdAt, executedAt Ticket) (Element, bool) {
	return a.list.Remove(createdAt, executedAt)
}

// RemoveByIndex tombstones the index-th live element.
func (a *Array) RemoveByIndex(index int, executedAt Ticket) (Element, bool) {
	return a.list.RemoveByIndex(index, executedAt)
}

// Get returns the element at the given logical index.
func (a *Array) Get(index int) (Element, bool) { return a.list.Get(index) }

// Len returns the number of live elements.
func (a *Array) Len() int { return a.list.Len() }

// Each walks every live element in order.
func (a *Array) Each(f func(Element) bool) { a.list.Each(f) }

func (a *Array) Remove(executedAt Ticket) bool {
	return a.elementHeader.Remove(executedAt)
}

func (a *Array) DeepCopy() Element {
	return &Array{elementHeader: a.elementHeader, list: a.list.DeepCopy()}
}

func (a *Array) MarshalJSONValue(sorted bool) string {
	var sb strings.Builder
	sb.WriteByte('[')
	first := true
	a.list.Each(func(e Element) bool {
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteString(e.MarshalJSONValue(sorted))
		return true
	})
	sb.WriteByte(']')
	return sb.String()
}
