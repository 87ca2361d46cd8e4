package crdt

// SizeBucket is a (data, meta) pair of byte counts: data is the
// element's own payload (a string's bytes, a primitive's encoded
// value, ...), meta is the bookkeeping overhead (tombstone marker,
// ticket fields) spec.md §4.9 charges separately so "how much of the
// document is dead weight waiting on GC" can be reported without
// walking every element.
type SizeBucket struct {
	Data int
	Meta int
}

func (b *SizeBucket) add(other SizeBucket) {
	b.Data += other.Data
	b.Meta += other.Meta
}

func (b *SizeBucket) sub(other SizeBucket) {
	b.Data -= other.Data
	b.Meta -= other.Meta
}

// DocSize is the live/gc × data/meta accounting spec.md §4.9 and
// invariant 6 require: Live.Data + Live.Meta + GC.Data + GC.Meta always
// equals the sum of every registered element's reported size, and a
// register_removed_element followed by a successful garbage_collect
// zeroes that element's contribution to GC entirely.
type DocSize struct {
	Live SizeBucket
	GC   SizeBucket
}

// elementSize estimates an element's (data, meta) footprint. Ticket
// fields (created_at/removed_at/moved_at) are charged as meta; an
// element's own rendered payload is charged as data. This is a size
// estimate, not a wire-exact byte count: spec.md only requires the
// bucket arithmetic to balance, not a specific encoding.
const ticketSize = 24 // actor (16) + lamport (8); a Ticket's delimiter is not charged

func elementSize(e Element) SizeBucket {
	meta := ticketSize
	if !e.RemovedAt().IsInitial() {
		meta += ticketSize
	}
	if !e.MovedAt().IsInitial() {
		meta += ticketSize
	}
	data := 0
	switch v := e.(type) {
	case *Primitive:
		data = len(v.MarshalJSONValue(false))
	case *Counter:
		data = len(v.MarshalJSONValue(false))
	case *Text:
		data = v.Len()
	case *Array:
		data = v.Len() * ticketSize
	case *Object:
		data = v.Len() * ticketSize
	case *Tree:
		data = len(v.ToXML(false))
	}
	return SizeBucket{Data: data, Meta: meta}
}
