package crdt

// Element is the common interface implemented by every CRDT value kind:
// Primitive, Counter, Object, Array, Text and Tree. Spec.md §9 models
// this as a tagged variant with a shared header; in Go, that shared
// header is the embedded elementHeader struct, and the variant dispatch
// is the usual type switch over the concrete pointer types.
type Element interface {
	// CreatedAt is the element's immutable identity ticket.
	CreatedAt() Ticket
	// MovedAt returns the ticket of the last move operation that
	// relocated this element within its parent container, or the zero
	// ticket if it has never moved.
	MovedAt() Ticket
	// SetMovedAt records a move, if executedAt is causally after any
	// previous move. Returns whether the move was applied.
	SetMovedAt(executedAt Ticket) bool
	// RemovedAt returns the ticket of the operation that tombstoned this
	// element, or the zero ticket if it is still live.
	RemovedAt() Ticket
	// IsRemoved reports whether the element has been tombstoned.
	IsRemoved() bool
	// Remove tombstones the element at executedAt if causally valid:
	// executedAt must be after CreatedAt, and after any existing
	// RemovedAt. Returns whether the removal was applied; a false return
	// is not an error (spec.md §7).
	Remove(executedAt Ticket) bool
	// DeepCopy returns a fully independent copy preserving all CreatedAt
	// identities, so that remote operations addressed to the original's
	// tickets still resolve against the copy.
	DeepCopy() Element
	// MarshalJSONValue renders the element's JSON representation. sorted
	// controls whether object keys and map-like structures are emitted in
	// sorted order (ToSortedJSON) or arbitrary map order (ToJSON).
	MarshalJSONValue(sorted bool) string
}

// elementHeader is embedded by every concrete element kind to provide the
// identity/removal/move bookkeeping common to all of them.
type elementHeader struct {
	createdAt Ticket
	movedAt   Ticket
	removedAt Ticket
}

func newElementHeader(createdAt Ticket) elementHeader {
	return elementHeader{createdAt: createdAt}
}

func (h *elementHeader) CreatedAt() Ticket { return h.createdAt }
func (h *elementHeader) MovedAt() Ticket   { return h.movedAt }
func (h *elementHeader) RemovedAt() Ticket { return h.removedAt }
func (h *elementHeader) IsRemoved() bool   { return !h.removedAt.IsInitial() }

// Remove applies spec.md §3.4's removal admission rule. Concrete element
// types call this from their own Remove method; none of them tombstones
// its internal structure (an Object's members, an Array's nodes) when
// the removal applies.
func (h *elementHeader) Remove(executedAt Ticket) bool {
	if !executedAt.After(h.createdAt) {
		return false
	}
	if !h.removedAt.IsInitial() && !executedAt.After(h.removedAt) {
		return false
	}
	h.removedAt = executedAt
	return true
}

func (h *elementHeader) SetMovedAt(executedAt Ticket) bool {
	if !h.movedAt.IsInitial() && !executedAt.After(h.movedAt) {
		return false
	}
	h.movedAt = executedAt
	return true
}
