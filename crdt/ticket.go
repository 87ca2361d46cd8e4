// Package crdt implements the in-memory CRDT core of a real-time
// collaborative document: a hybrid logical clock, six CRDT element kinds,
// the document root registry, and the sequence engines behind arrays
// (an RGA list), text (a splittable block RGA) and structured trees (a
// hierarchical node tree).
//
// The package is single-threaded and lock-free by design: every exported
// mutator runs to completion without yielding, and it is the caller's
// responsibility to serialize access to a single Root from one goroutine
// at a time (see Root.RunLocal).
package crdt

import (
	"fmt"

	"github.com/google/uuid"
)

// Ticket is a hybrid logical clock value: a total order over operations
// issued by any actor. Tickets are immutable and compare lexicographically
// on (Lamport, ActorID, Delimiter).
type Ticket struct {
	Lamport   uint64
	ActorID   uuid.UUID
	Delimiter uint32
}

// InitialTicket is the zero ticket, used as a sentinel "before everything"
// value (e.g. the afterCreatedAt of an insertion at the front of a
// sequence).
var InitialTicket = Ticket{}

// IsInitial reports whether t is the sentinel zero ticket.
func (t Ticket) IsInitial() bool {
	return t == InitialTicket
}

// Compare returns -1, 0 or +1 if t sorts before, equal to, or after other.
func (t Ticket) Compare(other Ticket) int {
	if t.Lamport != other.Lamport {
		if t.Lamport < other.Lamport {
			return -1
		}
		return +1
	}
	if c := compareUUID(t.ActorID, other.ActorID); c != 0 {
		return c
	}
	if t.Delimiter != other.Delimiter {
		if t.Delimiter < other.Delimiter {
			return -1
		}
		return +1
	}
	return 0
}

func compareUUID(a, b uuid.UUID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return +1
		}
	}
	return 0
}

// After reports whether t sorts strictly after other.
func (t Ticket) After(other Ticket) bool {
	return t.Compare(other) > 0
}

// AfterOrEqual reports whether t sorts at or after other.
func (t Ticket) AfterOrEqual(other Ticket) bool {
	return t.Compare(other) >= 0
}

func (t Ticket) String() string {
	return fmt.Sprintf("%d@%s#%d", t.Lamport, t.ActorID.String()[:8], t.Delimiter)
}

// TicketGenerator mints a monotonically increasing stream of tickets for
// a single actor. It is the sole writer of its actor's lamport counter;
// remote tickets observed on merge are folded in via Sync so that
// subsequently minted local tickets stay causally after anything seen.
type TicketGenerator struct {
	actorID uuid.UUID
	lamport uint64
}

// NewTicketGenerator creates a generator for the given actor, starting its
// lamport clock at 0 (the first minted ticket has Lamport 1).
func NewTicketGenerator(actorID uuid.UUID) *TicketGenerator {
	return &TicketGenerator{actorID: actorID}
}

// ActorID returns the generator's actor identity.
func (g *TicketGenerator) ActorID() uuid.UUID { return g.actorID }

// Next mints a new ticket with delimiter 0.
func (g *TicketGenerator) Next() Ticket {
	g.lamport++
	return Ticket{Lamport: g.lamport, ActorID: g.actorID}
}

// Current returns the generator's most recently minted lamport value.
func (g *TicketGenerator) Current() uint64 { return g.lamport }

// Sync advances the generator's lamport clock so it stays strictly ahead
// of any observed remote lamport value, the way a Lamport clock must be
// bumped on message receipt.
func (g *TicketGenerator) Sync(observedLamport uint64) {
	if observedLamport > g.lamport {
		g.lamport = observedLamport
	}
}
