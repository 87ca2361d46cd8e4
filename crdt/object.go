package crdt

import (
	"sort"
	"strings"
)

// elementRHTNode is one member binding of an object: a key paired with
// the CRDT element created for it. Several nodes may share a key when
// two actors concurrently Set the same key; all are kept (none are
// physically dropped), and the one with the newest CreatedAt is the
// live, visible member (spec.md §4.4).
type elementRHTNode struct {
	key   string
	value Element
}

// elementRHT is an object's member map: unlike rht (a register per key),
// each key here maps to a small max-heap of concurrently created
// elements, because object members are full CRDT elements with their
// own lifecycle (an Array, a Text, ...), not last-writer-wins scalars.
// Displacement rule: Setting an existing key doesn't overwrite the old
// element, it adds a new, newer-created one; the newest CreatedAt per
// key wins visibility, and the displaced older element becomes a
// GC-eligible tombstone once superseded AND itself removed.
//
// Grounded on the teacher's rht.go LWW shape, generalized from
// single-register "last ticket wins" to "keep every concurrent creation,
// newest wins visibility" per spec.md §4.4.
type elementRHT struct {
	members      map[string]*ticketPQ
	nodeByCreate map[Ticket]*elementRHTNode
}

func newElementRHT() *elementRHT {
	return &elementRHT{
		members:      make(map[string]*ticketPQ),
		nodeByCreate: make(map[Ticket]*elementRHTNode),
	}
}

// Set inserts value under key, keyed additionally by value.CreatedAt()
// so a later concurrent Set for the same key never clobbers this one.
// When value becomes the new winner for key, returns the element that
// was the live member for key before this call, for the caller to hand
// to GC once it is also removed. Returns nil if key was new, had no live
// member, or value is older than the current winner.
func (h *elementRHT) Set(key string, value Element) (displaced Element) {
	pq, ok := h.members[key]
	if !ok {
		pq = newTicketPQ()
		h.members[key] = pq
	}
	prevWinner := pq.peek()
	var prevLive Element
	if prevWinner != nil && !prevWinner.value.IsRemoved() {
		prevLive = prevWinner.value
	}
	node := &elementRHTNode{key: key, value: value}
	pq.push(node)
	h.nodeByCreate[value.CreatedAt()] = node
	newWinner := pq.peek()
	if newWinner == node && prevLive != nil {
		return prevLive
	}
	return nil
}

// Get returns the currently live member for key, i.e. the value of the
// newest-created node for key, if that node is not tombstoned. Older
// nodes under the same key are not consulted.
func (h *elementRHT) Get(key string) (Element, bool) {
	pq, ok := h.members[key]
	if !ok {
		return nil, false
	}
	top := pq.peek()
	if top == nil || top.value.IsRemoved() {
		return nil, false
	}
	return top.value, true
}

// Has reports whether key currently has a live member.
func (h *elementRHT) Has(key string) bool {
	_, ok := h.Get(key)
	return ok
}

// Delete tombstones the live member for key at executedAt, applying
// spec.md §3.4's removal-admission rule. Returns the removed element
// and whether the removal applied.
func (h *elementRHT) Delete(key string, executedAt Ticket) (Element, bool) {
	pq, ok := h.members[key]
	if !ok {
		return nil, false
	}
	top := pq.peek()
	if top == nil {
		return nil, false
	}
	if !top.value.Remove(executedAt) {
		return nil, false
	}
	return top.value, true
}

// DeleteByCreatedAt tombstones the specific node created at createdAt,
// regardless of whether it is the currently winning member for its key
// (used when applying a remote delete that targets an element the
// local replica may already consider displaced).
func (h *elementRHT) DeleteByCreatedAt(createdAt, executedAt Ticket) (Element, bool) {
	n, ok := h.nodeByCreate[createdAt]
	if !ok {
		return nil, false
	}
	if !n.value.Remove(executedAt) {
		return nil, false
	}
	return n.value, true
}

// Size returns the number of keys with a currently live (winning,
// non-removed) member.
func (h *elementRHT) Size() int {
	n := 0
	for _, pq := range h.members {
		if top := pq.peek(); top != nil && !top.value.IsRemoved() {
			n++
		}
	}
	return n
}

// Each invokes f for every live member, in arbitrary order.
func (h *elementRHT) Each(f func(key string, value Element)) {
	for key, pq := range h.members {
		top := pq.peek()
		if top != nil && !top.value.IsRemoved() {
			f(key, top.value)
		}
	}
}

// sortedKeys returns the live keys in ascending order.
func (h *elementRHT) sortedKeys() []string {
	keys := make([]string, 0, h.Size())
	h.Each(func(k string, _ Element) { keys = append(keys, k) })
	sort.Strings(keys)
	return keys
}

// DeepCopy returns an independent elementRHT, preserving every node
// (live, displaced, and tombstoned) and their relative priority.
func (h *elementRHT) DeepCopy() *elementRHT {
	out := newElementRHT()
	for key, pq := range h.members {
		cp := newTicketPQ()
		out.members[key] = cp
		for _, n := range *pq {
			cpValue := n.value.DeepCopy()
			cpNode := &elementRHTNode{key: key, value: cpValue}
			cp.push(cpNode)
			out.nodeByCreate[cpValue.CreatedAt()] = cpNode
		}
	}
	return out
}

// Object is the CRDT map element (spec.md §3.3, §4.4), backed by
// elementRHT.
type Object struct {
	elementHeader
	members *elementRHT
}

// NewObject creates an empty object.
func NewObject(createdAt Ticket) *Object {
	return &Object{elementHeader: newElementHeader(createdAt), members: newElementRHT()}
}

// Set binds key to value, per the displacement rule in spec.md §4.4.
// Returns the element this set displaces from visibility, if any.
func (o *Object) Set(key string, value Element) Element { return o.members.Set(key, value) }

// Get returns the currently live member bound to key.
func (o *Object) Get(key string) (Element, bool) { return o.members.Get(key) }

// Has reports whether key currently has a live member.
func (o *Object) Has(key string) bool { return o.members.Has(key) }

// Delete tombstones the live member bound to key.
func (o *Object) Delete(key string, executedAt Ticket) (Element, bool) {
	return o.members.Delete(key, executedAt)
}

// DeleteByCreatedAt tombstones a specific member by its creation ticket.
func (o *Object) DeleteByCreatedAt(createdAt, executedAt Ticket) (Element, bool) {
	return o.members.DeleteByCreatedAt(createdAt, executedAt)
}

// Len returns the number of live members.
func (o *Object) Len() int { return o.members.Size() }

// Each invokes f for every live member, in arbitrary order.
func (o *Object) Each(f func(key string, value Element)) { o.members.Each(f) }

func (o *Object) Remove(executedAt Ticket) bool {
	return o.elementHeader.Remove(executedAt)
}

func (o *Object) DeepCopy() Element {
	return &Object{elementHeader: o.elementHeader, members: o.members.DeepCopy()}
}

func (o *Object) MarshalJSONValue(sorted bool) string {
	var sb strings.Builder
	sb.WriteByte('{')
	keys := make([]string, 0, o.Len())
	if sorted {
		keys = o.members.sortedKeys()
	} else {
		o.Each(func(k string, _ Element) { keys = append(keys, k) })
	}
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		v, _ := o.Get(k)
		sb.WriteString(encodeJSONString(k))
		sb.WriteByte(':')
		sb.WriteString(v.MarshalJSONValue(sorted))
	}
	sb.WriteByte('}')
	return sb.String()
}
