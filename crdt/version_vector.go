package crdt

import "github.com/google/uuid"

// VersionVector maps actor id to the maximum lamport value observed from
// that actor. It is the causal frontier used both for GC (has every peer
// observed this removal?) and for filtering concurrent edits during
// remote application.
//
// Grounded on the teacher's Weft (crdt/ctree.go), generalized from a
// positional []uint32 keyed by sitemap index to a map keyed directly by
// actor id, and narrowed to the single AfterOrEqual predicate the spec
// needs.
type VersionVector struct {
	lamports map[uuid.UUID]uint64
}

// NewVersionVector creates an empty version vector.
func NewVersionVector() *VersionVector {
	return &VersionVector{lamports: make(map[uuid.UUID]uint64)}
}

// Set records the maximum lamport observed for actor.
func (vv *VersionVector) Set(actor uuid.UUID, lamport uint64) {
	if vv.lamports == nil {
		vv.lamports = make(map[uuid.UUID]uint64)
	}
	if cur, ok := vv.lamports[actor]; !ok || lamport > cur {
		vv.lamports[actor] = lamport
	}
}

// Get returns the max observed lamport for actor, or 0 if never seen.
func (vv *VersionVector) Get(actor uuid.UUID) uint64 {
	if vv == nil {
		return 0
	}
	return vv.lamports[actor]
}

// Size returns the number of actors tracked.
func (vv *VersionVector) Size() int {
	if vv == nil {
		return 0
	}
	return len(vv.lamports)
}

// AfterOrEqual reports whether vv has observed at least t.Lamport from
// t.ActorID, i.e. vv[t.actor] >= t.lamport.
func (vv *VersionVector) AfterOrEqual(t Ticket) bool {
	return vv.Get(t.ActorID) >= t.Lamport
}

// Merge folds other's observations into vv, taking the max per actor.
func (vv *VersionVector) Merge(other *VersionVector) {
	if other == nil {
		return
	}
	for actor, lamport := range other.lamports {
		vv.Set(actor, lamport)
	}
}

// Clone returns a deep copy of vv.
func (vv *VersionVector) Clone() *VersionVector {
	out := NewVersionVector()
	for actor, lamport := range vv.lamports {
		out.lamports[actor] = lamport
	}
	return out
}

// MaxCreatedAtMapByActor is the legacy causal-admission structure: actor
// id -> the latest created_at lamport that actor's editor is known to
// have observed. Kept alongside VersionVector for protocol compatibility
// per spec.md's Open Question; CanDelete/CanStyle prefer the version
// vector form when supplied and fall back to this map otherwise.
type MaxCreatedAtMapByActor map[uuid.UUID]uint64

// AfterOrEqual reports whether m records an observation of t's actor at
// least as new as t.
func (m MaxCreatedAtMapByActor) AfterOrEqual(t Ticket) bool {
	if m == nil {
		return false
	}
	return m[t.ActorID] >= t.Lamport
}
