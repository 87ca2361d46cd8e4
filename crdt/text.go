package crdt

import (
	"strings"
	"unicode/utf16"

	"github.com/brunokim/doccrdt/llrb"
	"github.com/brunokim/doccrdt/splay"
)

// splitNodeID identifies a position within the logical stream of
// characters ever created by a single edit: the ticket of the node
// originally created, and an offset from the start of that original
// node. Splitting a node never changes a code unit's id — the left half
// keeps the original id, and the right half's id has the same CreatedAt
// with Offset advanced by the split point — so ids survive splits and
// remain valid floor-lookup keys (spec.md §4.6).
type splitNodeID struct {
	CreatedAt Ticket
	Offset    int
}

func lessSplitNodeID(a, b splitNodeID) bool {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c < 0
	}
	return a.Offset < b.Offset
}

// splitNode is one contiguous run of text carrying the same origin
// ticket. Nodes form a doubly linked list in document order; a splay
// tree indexes them by live content length, and an llrb.Tree indexes
// them by splitNodeID for floor lookups. insPrev/insNext additionally
// chain a node to the half it was split from/into, so a lookup that
// lands inside an already-purged node's former span can still walk
// across the split (spec.md §4.6, "find_floor_node_prefer_to_left").
type splitNode struct {
	splay.Node
	id        splitNodeID
	content   string
	removedAt Ticket
	originID  splitNodeID // id of the node this was inserted after

	prev, next       *splitNode
	insPrev, insNext *splitNode

	attrs *rht // per-segment attributes, used by CRDTText
}

func (n *splitNode) SplayNode() *splay.Node { return &n.Node }

func utf16Len(s string) int { return len(utf16.Encode([]rune(s))) }

func (n *splitNode) contentLength() int { return utf16Len(n.content) }

func (n *splitNode) Length() int {
	if !n.removedAt.IsInitial() {
		return 0
	}
	return n.contentLength()
}

func (n *splitNode) isRemoved() bool { return !n.removedAt.IsInitial() }

// substring returns the code-unit range [from, to) of n's content, in
// rune terms (code points); callers work in UTF-16 offsets but content
// is stored as Go strings, so this re-encodes through utf16 to slice
// precisely at code-unit boundaries.
func substring(content string, from, to int) string {
	units := utf16.Encode([]rune(content))
	return string(utf16.Decode(units[from:to]))
}

// rgaTreeSplit is a block-RGA of splittable runs, used by CRDTText
// (spec.md §4.6). Grounded on the teacher's per-char RGA atoms
// (InsertChar, crdt/rlist.go), generalized from single runes to
// splittable runs of UTF-16 code units.
type rgaTreeSplit struct {
	dummyHead *splitNode
	last      *splitNode
	index     *splay.Tree
	byID      *llrb.Tree[splitNodeID, *splitNode]
}

func newRGATreeSplit() *rgaTreeSplit {
	head := &splitNode{id: splitNodeID{CreatedAt: InitialTicket}}
	s := &rgaTreeSplit{
		dummyHead: head,
		last:      head,
		index:     splay.New(),
		byID:      llrb.New[splitNodeID, *splitNode](lessSplitNodeID),
	}
	return s
}

// splitAt physically splits n at the given in-node code-unit offset,
// returning the right half. offset==0 returns n itself; offset==n's
// full content length returns n.next (possibly nil). The right half
// keeps n's removedAt (a split of a tombstoned node stays tombstoned)
// and a copy of n's attributes.
func (s *rgaTreeSplit) splitAt(n *splitNode, offset int) *splitNode {
	if n == s.dummyHead || offset == 0 {
		return n
	}
	length := n.contentLength()
	if offset == length {
		return n.next
	}
	right := &splitNode{
		id:        splitNodeID{CreatedAt: n.id.CreatedAt, Offset: n.id.Offset + offset},
		content:   substring(n.content, offset, length),
		removedAt: n.removedAt,
		originID:  n.id,
	}
	if n.attrs != nil {
		right.attrs = n.attrs.DeepCopy()
	}
	n.content = substring(n.content, 0, offset)

	right.next = n.next
	if n.next != nil {
		n.next.prev = right
	} else {
		s.last = right
	}
	n.next = right
	right.prev = n

	right.insNext = n.insNext
	if right.insNext != nil {
		right.insNext.insPrev = right
	}
	n.insNext = right
	right.insPrev = n

	s.byID.Put(right.id, right)
	s.index.InsertAfter(n, right)
	return right
}

// findFloorNode returns the node whose id is the greatest id <= target,
// per spec.md §4.2/§4.6.
func (s *rgaTreeSplit) findFloorNode(target splitNodeID) (*splitNode, bool) {
	_, n, ok := s.byID.Floor(target)
	return n, ok
}

// findNodeWithSplit locates the node starting exactly at the stable
// logical position pos, splitting its owner if pos falls in its
// interior. Because pos identifies content by original creation
// identity rather than by current physical neighbor, this resolves to
// the same node on every replica regardless of what concurrent inserts
// have since been spliced in around it.
func (s *rgaTreeSplit) findNodeWithSplit(pos splitNodeID) (*splitNode, error) {
	if pos.CreatedAt.IsInitial() {
		// pos addresses the very start of the document, before any node.
		return s.dummyHead.next, nil
	}
	owner, ok := s.findFloorNode(pos)
	if !ok || owner.id.CreatedAt != pos.CreatedAt {
		return nil, ErrInvalidArgument
	}
	localOffset := pos.Offset - owner.id.Offset
	if localOffset < 0 || localOffset > owner.contentLength() {
		return nil, ErrUnexpected
	}
	// boundary falls after the very last node: nothing starts here.
	return s.splitAt(owner, localOffset), nil
}

// insertBefore splices a freshly created node immediately before anchor
// (anchor == nil means at the physical tail), grouped under the stable
// groupKey all concurrent insertions at this exact logical position
// share. Because groupKey is the caller-supplied splitNodeID position
// rather than whatever node happens to physically precede the anchor at
// call time, two replicas applying the same concurrent inserts in
// different orders walk backward from the same anchor and converge on
// the same physical order (newer ticket ends up closer to anchor),
// regardless of what either has already spliced in at this slot.
func (s *rgaTreeSplit) insertBefore(anchor *splitNode, groupKey splitNodeID, content string, createdAt Ticket, attrs *rht) *splitNode {
	newNode := &splitNode{
		id:       splitNodeID{CreatedAt: createdAt},
		content:  content,
		originID: groupKey,
		attrs:    attrs,
	}
	var before *splitNode
	if anchor != nil {
		before = anchor.prev
	} else {
		before = s.last
	}
	for before != nil && before.originID == groupKey && before.id.CreatedAt.After(createdAt) {
		anchor = before
		before = before.prev
	}

	newNode.prev = before
	newNode.next = anchor
	if before != nil {
		before.next = newNode
	}
	if anchor != nil {
		anchor.prev = newNode
	} else {
		s.last = newNode
	}

	s.byID.Put(newNode.id, newNode)
	if before == nil || before == s.dummyHead {
		s.index.InsertAfter(nil, newNode)
	} else {
		s.index.InsertAfter(before, newNode)
	}
	return newNode
}

// TextChange describes one emitted content or attribute change from an
// edit, for the caller (façade) to turn into an observable diff.
type TextChange struct {
	FromIndex, ToIndex int
	Content            string
	Attributes         map[string]string
}

// GCPair is a (parent, child) handle letting the root physically purge a
// tombstoned child independently of its container's own traversal
// (spec.md §4.9). Parent/Child are opaque identifiers resolved by the
// container that produced the pair; Purge is called by Root.GarbageCollect.
type GCPair struct {
	ParentKey string
	ChildKey  string
	RemovedAt Ticket
	Purge     func()
}

// Edit deletes [from, to) and optionally inserts content with the given
// attributes at the resulting caret, per spec.md §4.6's edit algorithm.
// isLocal selects the causal-admission rule: local edits may delete
// anything in range; remote edits gate deletion on vv/legacy.
func (s *rgaTreeSplit) Edit(
	from, to splitNodeID,
	editedAt Ticket,
	content string,
	attrs *rht,
	isLocal bool,
	vv *VersionVector,
	legacy MaxCreatedAtMapByActor,
) (caret splitNodeID, gcPairs []GCPair, changes []TextChange, err error) {
	toRight, err := s.findNodeWithSplit(to)
	if err != nil {
		return splitNodeID{}, nil, nil, err
	}
	fromRight, err := s.findNodeWithSplit(from)
	if err != nil {
		return splitNodeID{}, nil, nil, err
	}

	var removed []*splitNode
	for n := fromRight; n != nil && n != toRight; n = n.next {
		if n.isRemoved() {
			continue
		}
		if canDelete(n.id.CreatedAt, n.removedAt, editedAt, isLocal, vv, legacy) {
			removed = append(removed, n)
		}
	}

	if len(removed) > 0 {
		fromIdx := s.indexOf(removed[0])
		toIdx := fromIdx
		for _, n := range removed {
			toIdx += n.contentLength()
			n.removedAt = editedAt
			s.index.Touch(n)
			gcPairs = append(gcPairs, GCPair{
				ChildKey:  n.id.CreatedAt.String(),
				RemovedAt: editedAt,
			})
		}
		changes = append(changes, TextChange{FromIndex: fromIdx, ToIndex: toIdx})
	}

	if content != "" {
		inserted := s.insertBefore(fromRight, from, content, editedAt, attrs)
		idx := s.indexOf(inserted)
		attrMap := map[string]string{}
		if attrs != nil {
			attrs.Each(func(k, v string) { attrMap[k] = v })
		}
		changes = append(changes, TextChange{
			FromIndex:  idx,
			ToIndex:    idx + inserted.contentLength(),
			Content:    content,
			Attributes: attrMap,
		})
		return inserted.id, gcPairs, changes, nil
	}
	return from, gcPairs, changes, nil
}

// indexOf returns n's logical (tombstone-free) start position.
func (s *rgaTreeSplit) indexOf(n *splitNode) int {
	if n == s.dummyHead {
		return 0
	}
	return s.index.IndexOf(n)
}

// PosToIndex converts a splitNodeID position into a logical index. With
// preferToLeft, a position falling exactly at the start of a node that
// was split off another is resolved against the end of the left half
// instead, whether or not either half is tombstoned.
func (s *rgaTreeSplit) PosToIndex(pos splitNodeID, preferToLeft bool) (int, error) {
	owner, ok := s.findFloorNode(pos)
	if !ok {
		return 0, ErrInvalidArgument
	}
	localOffset := pos.Offset - owner.id.Offset
	if preferToLeft && localOffset == 0 && owner.insPrev != nil {
		owner = owner.insPrev
		localOffset = owner.contentLength()
	}
	base := s.indexOf(owner)
	if owner.isRemoved() {
		return base, nil
	}
	return base + localOffset, nil
}

// IndexToPos converts a logical index into a splitNodeID position.
func (s *rgaTreeSplit) IndexToPos(index int) (splitNodeID, error) {
	if index == 0 {
		return s.dummyHead.id, nil
	}
	e, offset, ok := s.index.Find(index - 1)
	if !ok {
		return splitNodeID{}, ErrInvalidArgument
	}
	n := e.(*splitNode)
	return splitNodeID{CreatedAt: n.id.CreatedAt, Offset: n.id.Offset + offset + 1}, nil
}

// Length returns the total live code-unit length.
func (s *rgaTreeSplit) Length() int { return s.index.Len() }

// String renders the live content in document order.
func (s *rgaTreeSplit) String() string {
	var sb strings.Builder
	for n := s.dummyHead.next; n != nil; n = n.next {
		if !n.isRemoved() {
			sb.WriteString(n.content)
		}
	}
	return sb.String()
}

// setStyle applies attrs to every live node strictly within [from, to),
// returning displaced attribute nodes as GC pairs and the emitted
// style changes (spec.md §4.7).
func (s *rgaTreeSplit) setStyle(
	from, to splitNodeID,
	attrs map[string]string,
	editedAt Ticket,
	isLocal bool,
	vv *VersionVector,
	legacy MaxCreatedAtMapByActor,
) (gcPairs []GCPair, changes []TextChange, err error) {
	toRight, err := s.findNodeWithSplit(to)
	if err != nil {
		return nil, nil, err
	}
	fromRight, err := s.findNodeWithSplit(from)
	if err != nil {
		return nil, nil, err
	}
	for n := fromRight; n != nil && n != toRight; n = n.next {
		if n.isRemoved() {
			continue
		}
		if !CanStyle(n.id.CreatedAt, isLocal, vv, legacy) {
			continue
		}
		if n.attrs == nil {
			n.attrs = newRHT()
		}
		applied := map[string]string{}
		for k, v := range attrs {
			prev, cur := n.attrs.Set(k, v, editedAt)
			if prev != nil {
				gcPairs = append(gcPairs, GCPair{ChildKey: k, RemovedAt: editedAt})
			}
			applied[k] = cur.value
		}
		fromIdx := s.indexOf(n)
		changes = append(changes, TextChange{
			FromIndex:  fromIdx,
			ToIndex:    fromIdx + n.contentLength(),
			Attributes: applied,
		})
	}
	return gcPairs, changes, nil
}

// Text is the CRDT rich-text element: an rgaTreeSplit of segments, each
// carrying its own attribute RHT (spec.md §3.3, §4.7).
type Text struct {
	elementHeader
	split *rgaTreeSplit
}

// NewText creates an empty text element.
func NewText(createdAt Ticket) *Text {
	return &Text{elementHeader: newElementHeader(createdAt), split: newRGATreeSplit()}
}

// Edit deletes [from, to) and inserts content with attrs at the
// resulting caret. Pass attrs=nil for no attributes.
func (t *Text) Edit(from, to splitNodeID, editedAt Ticket, content string, attrs map[string]string, isLocal bool, vv *VersionVector, legacy MaxCreatedAtMapByActor) (splitNodeID, []GCPair, []TextChange, error) {
	var attrRHT *rht
	if attrs != nil {
		attrRHT = newRHT()
		for k, v := range attrs {
			attrRHT.Set(k, v, editedAt)
		}
	}
	return t.split.Edit(from, to, editedAt, content, attrRHT, isLocal, vv, legacy)
}

// SetStyle applies attrs to every live segment in [from, to).
func (t *Text) SetStyle(from, to splitNodeID, attrs map[string]string, editedAt Ticket, isLocal bool, vv *VersionVector, legacy MaxCreatedAtMapByActor) ([]GCPair, []TextChange, error) {
	return t.split.setStyle(from, to, attrs, editedAt, isLocal, vv, legacy)
}

// String renders the live text content.
func (t *Text) String() string { return t.split.String() }

// Len returns the live UTF-16 code-unit length.
func (t *Text) Len() int { return t.split.Length() }

func (t *Text) PosToIndex(pos splitNodeID, preferToLeft bool) (int, error) {
	return t.split.PosToIndex(pos, preferToLeft)
}

func (t *Text) IndexToPos(index int) (splitNodeID, error) { return t.split.IndexToPos(index) }

func (t *Text) Remove(executedAt Ticket) bool {
	return t.elementHeader.Remove(executedAt)
}

func (t *Text) DeepCopy() Element {
	out := NewText(t.createdAt)
	out.movedAt = t.movedAt
	out.removedAt = t.removedAt
	var prev *splitNode = out.split.dummyHead
	for n := t.split.dummyHead.next; n != nil; n = n.next {
		cp := &splitNode{id: n.id, content: n.content, removedAt: n.removedAt, originID: n.originID}
		if n.attrs != nil {
			cp.attrs = n.attrs.DeepCopy()
		}
		prev.next = cp
		cp.prev = prev
		out.split.byID.Put(cp.id, cp)
		if prev == out.split.dummyHead {
			out.split.index.InsertAfter(nil, cp)
		} else {
			out.split.index.InsertAfter(prev, cp)
		}
		prev = cp
	}
	out.split.last = prev
	return out
}

func (t *Text) MarshalJSONValue(sorted bool) string {
	var sb strings.Builder
	sb.WriteByte('[')
	first := true
	for n := t.split.dummyHead.next; n != nil; n = n.next {
		if n.isRemoved() || n.content == "" {
			continue
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteByte('{')
		if n.attrs != nil && n.attrs.Size() > 0 {
			sb.WriteString(`"attrs":{`)
			keys := n.attrs.sortedKeys()
			for i, k := range keys {
				if i > 0 {
					sb.WriteByte(',')
				}
				v, _ := n.attrs.Get(k)
				sb.WriteString(encodeJSONString(k))
				sb.WriteByte(':')
				sb.WriteString(encodeJSONString(v))
			}
			sb.WriteString("},")
		}
		sb.WriteString(`"val":`)
		sb.WriteString(encodeJSONString(n.content))
		sb.WriteByte('}')
	}
	sb.WriteByte(']')
	return sb.String()
}
