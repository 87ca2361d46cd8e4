package crdt

import (
	"github.com/google/uuid"
)

// rootEntry is one registered element plus the structural facts Root
// needs to answer create_path without walking back into the container
// that owns it: which parent it was registered under, and the path
// segment that parent's own addressing convention assigns it (an
// object key, an array index, ...).
type rootEntry struct {
	element         Element
	parentCreatedAt Ticket
	pathSegment     string
	// size is the SizeBucket last credited to Live or GC on e's behalf,
	// captured at registration/removal time rather than recomputed from
	// the live element later: elementSize(e) changes once e.RemovedAt()
	// is set, so a later recomputation would charge the tombstone-ticket
	// cost a second time instead of just moving the original charge from
	// Live to GC.
	size SizeBucket
}

// Root is the document registry (spec.md §4.9, CRDTRoot): it locates
// every registered element by creation ticket, tracks which have been
// logically removed but not yet physically purged, and accounts for
// how much of the document is live versus garbage.
//
// Grounded on the teacher's single-struct-owns-everything style
// (CausalTree owning Weave/Yarns/Sitemap as its sole strong references,
// crdt/ctree.go:117-144), generalized from one flat weave to an element
// registry plus the GC-pair and doc-size-accounting registries spec.md
// §4.9 names explicitly.
type Root struct {
	object     *Object
	elements   map[Ticket]*rootEntry
	gcElements map[Ticket]struct{}
	gcPairs    map[string]GCPair
	size       DocSize
	generators map[uuid.UUID]*TicketGenerator
}

// NewRoot creates a document root whose top-level value is an empty
// object, registered as the tree's own root entry ("$").
func NewRoot(createdAt Ticket) *Root {
	obj := NewObject(createdAt)
	r := &Root{
		object:     obj,
		elements:   make(map[Ticket]*rootEntry),
		gcElements: make(map[Ticket]struct{}),
		gcPairs:    make(map[string]GCPair),
		generators: make(map[uuid.UUID]*TicketGenerator),
	}
	sz := elementSize(obj)
	r.elements[obj.CreatedAt()] = &rootEntry{element: obj, parentCreatedAt: InitialTicket, pathSegment: "$", size: sz}
	r.size.Live.add(sz)
	// Seed the creating actor's clock with the root's own ticket, so
	// RunLocal for that actor never re-mints it.
	gen := NewTicketGenerator(createdAt.ActorID)
	gen.Sync(createdAt.Lamport)
	r.generators[createdAt.ActorID] = gen
	return r
}

// Object returns the document's top-level object.
func (r *Root) Object() *Object { return r.object }

// Size returns the current live/gc byte accounting.
func (r *Root) Size() DocSize { return r.size }

// FindElement looks up a registered element by its creation ticket.
func (r *Root) FindElement(createdAt Ticket) (Element, bool) {
	entry, ok := r.elements[createdAt]
	if !ok {
		return nil, false
	}
	return entry.element, true
}

// RegisterElement records e as a child of parent, addressed within it
// by pathSegment (e.g. an object key or an array index rendered as a
// string), and credits its size to Live. Re-registering an already
// -registered createdAt is a no-op, matching the idempotent registration
// spec.md describes for resurrection via register_gc_pair.
func (r *Root) RegisterElement(e Element, parent Ticket, pathSegment string) {
	if _, exists := r.elements[e.CreatedAt()]; exists {
		return
	}
	sz := elementSize(e)
	r.elements[e.CreatedAt()] = &rootEntry{element: e, parentCreatedAt: parent, pathSegment: pathSegment, size: sz}
	r.size.Live.add(sz)
}

// RegisterRemovedElement moves e's size from Live to GC (recharging the
// tombstone-ticket cost elementSize now includes once e.RemovedAt() is
// set) and marks it pending physical purge.
func (r *Root) RegisterRemovedElement(e Element) {
	entry, ok := r.elements[e.CreatedAt()]
	if !ok {
		return
	}
	if _, already := r.gcElements[e.CreatedAt()]; already {
		return
	}
	r.size.Live.sub(entry.size)
	sz := elementSize(e)
	r.size.GC.add(sz)
	entry.size = sz
	r.gcElements[e.CreatedAt()] = struct{}{}
}

// RegisterGCPair records a fine-grained tombstone (a split-block node,
// an RHT attribute node, a tree token) that isn't itself a registered
// top-level Element. Idempotent in the resurrection sense spec.md
// describes: registering the same ChildKey twice treats the second call
// as "this child came back to life" and drops the pending pair instead
// of re-inserting it.
func (r *Root) RegisterGCPair(pair GCPair) {
	if _, exists := r.gcPairs[pair.ChildKey]; exists {
		delete(r.gcPairs, pair.ChildKey)
		r.size.GC.Meta -= ticketSize
		r.size.Live.Meta += ticketSize
		return
	}
	r.gcPairs[pair.ChildKey] = pair
	r.size.Live.Meta -= ticketSize
	r.size.GC.Meta += ticketSize
}

// GarbageCollect drops every registered tombstone (whole elements and
// fine-grained GC pairs alike) whose removal time minSyncedVV has
// observed from every actor, per spec.md §4.9's purge-on-safe-frontier
// rule, and debits its size from GC. Returns the number of items
// dropped. A whole element is only deregistered: it stays linked in its
// parent container. A GC pair's Purge is called when it is non-nil; the
// pairs Text produces carry none, so their nodes stay linked as well.
//
// The teacher never physically purges (Delete atoms stay in the weave
// until filterDeleted re-renders around them); full purge-on-safe
// -frontier here follows spec.md §3.4/§4.9 directly rather than the
// teacher's render-time filtering, since garbage_collect is an explicit
// named operation spec.md requires.
func (r *Root) GarbageCollect(minSyncedVV *VersionVector) int {
	purged := 0
	for createdAt := range r.gcElements {
		entry, ok := r.elements[createdAt]
		if !ok {
			delete(r.gcElements, createdAt)
			continue
		}
		if !minSyncedVV.AfterOrEqual(entry.element.RemovedAt()) {
			continue
		}
		r.size.GC.sub(entry.size)
		delete(r.elements, createdAt)
		delete(r.gcElements, createdAt)
		purged++
	}
	for key, pair := range r.gcPairs {
		if !minSyncedVV.AfterOrEqual(pair.RemovedAt) {
			continue
		}
		if pair.Purge != nil {
			pair.Purge()
		}
		r.size.GC.Meta -= ticketSize
		delete(r.gcPairs, key)
		purged++
	}
	return purged
}

func (r *Root) ticketGeneratorFor(actor uuid.UUID) *TicketGenerator {
	gen, ok := r.generators[actor]
	if !ok {
		gen = NewTicketGenerator(actor)
		r.generators[actor] = gen
	}
	return gen
}

// Change is the observable record of a completed RunLocal scope:
// spec.md §3's "a local mutation ... produces (a) an observable
// change". Change-log wire serialization is out of scope (spec.md §1);
// this is the in-memory summary a transport layer would serialize.
type Change struct {
	Actor   uuid.UUID
	Lamport uint64
	Touched []Ticket
}

// ChangeContext is the single-threaded "update scope" handed to the
// function passed to Root.RunLocal: the only way application code mints
// tickets or registers new/removed elements and GC pairs, so that every
// mutation within one RunLocal call is attributed to the same actor and
// the same observable Change.
type ChangeContext struct {
	root    *Root
	gen     *TicketGenerator
	touched []Ticket
}

// Root returns the document root this scope mutates.
func (c *ChangeContext) Root() *Root { return c.root }

// NextTicket mints the next ticket for this scope's actor.
func (c *ChangeContext) NextTicket() Ticket { return c.gen.Next() }

// RegisterElement registers e and records it as touched by this change.
func (c *ChangeContext) RegisterElement(e Element, parent Ticket, pathSegment string) {
	c.root.RegisterElement(e, parent, pathSegment)
	c.touched = append(c.touched, e.CreatedAt())
}

// RegisterRemovedElement forwards to Root.RegisterRemovedElement.
func (c *ChangeContext) RegisterRemovedElement(e Element) {
	c.root.RegisterRemovedElement(e)
	c.touched = append(c.touched, e.CreatedAt())
}

// RegisterGCPairs forwards each pair to Root.RegisterGCPair.
func (c *ChangeContext) RegisterGCPairs(pairs []GCPair) {
	for _, p := range pairs {
		c.root.RegisterGCPair(p)
	}
}

// RunLocal is the CRDT core's single exported "update scope" entry
// point (spec.md §5): every document mutation is serialized through
// exactly one RunLocal call, which mints tickets from actor's own
// monotonic clock and returns the resulting Change once fn completes
// without error. fn returning an error tears the scope down without
// committing a Change, though any registry mutations fn already made
// through its ChangeContext are not rolled back — callers should
// perform registry-mutating calls only after validating an operation
// will succeed, the same discipline the teacher's own high-level
// mutators (InsertChar, DeleteChar) apply around addAtom.
//
// Grounded on the teacher's pattern of a high-level mutator calling
// addAtom exactly once per logical edit, generalized so a single call
// can batch several element mutations (an object Set plus an array
// Insert) into one Change, the way a real façade issues one change per
// keystroke-group rather than one per CRDT primitive.
func (r *Root) RunLocal(actor uuid.UUID, fn func(*ChangeContext) error) (*Change, error) {
	gen := r.ticketGeneratorFor(actor)
	ctx := &ChangeContext{root: r, gen: gen}
	if err := fn(ctx); err != nil {
		return nil, err
	}
	return &Change{Actor: actor, Lamport: gen.Current(), Touched: ctx.touched}, nil
}

// DeepCopy returns an independent Root: its own object tree (preserving
// every CreatedAt identity, so remote operations still resolve against
// the copy) and its own registry, GC-pair and size-accounting state.
func (r *Root) DeepCopy() *Root {
	cpObj := r.object.DeepCopy().(*Object)
	out := &Root{
		object:     cpObj,
		elements:   make(map[Ticket]*rootEntry, len(r.elements)),
		gcElements: make(map[Ticket]struct{}, len(r.gcElements)),
		gcPairs:    make(map[string]GCPair, len(r.gcPairs)),
		generators: make(map[uuid.UUID]*TicketGenerator),
		size:       r.size,
	}
	var walk func(e Element)
	walk = func(e Element) {
		orig, ok := r.elements[e.CreatedAt()]
		parent, seg, sz := InitialTicket, "$", elementSize(e)
		if ok {
			parent, seg, sz = orig.parentCreatedAt, orig.pathSegment, orig.size
		}
		out.elements[e.CreatedAt()] = &rootEntry{element: e, parentCreatedAt: parent, pathSegment: seg, size: sz}
		switch v := e.(type) {
		case *Object:
			v.Each(func(_ string, child Element) { walk(child) })
		case *Array:
			v.Each(func(child Element) bool { walk(child); return true })
		}
	}
	walk(cpObj)
	for createdAt := range r.gcElements {
		out.gcElements[createdAt] = struct{}{}
	}
	for key, pair := range r.gcPairs {
		out.gcPairs[key] = pair
	}
	return out
}
