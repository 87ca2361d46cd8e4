package crdt

// CanDelete and CanStyle implement spec.md §5's admission rule shared by
// every container's remove/style path: a local operation is always
// admitted; a remote one is admitted only if the editor's own recorded
// view of the target already causally covers the target's creation
// (version_vector[actor] >= node.lamport, or the legacy
// max_created_at_map_by_actor form), and then only if editedAt is
// actually after the target's current tombstone/value ticket.
//
// Factored out of rgaTreeSplit's canDelete/inline canStyle closure so
// CRDTTree's own Style/RemoveStyle (crdt/tree.go) apply the identical
// rule rather than re-deriving it.

// CanDelete reports whether a remove targeting an element created at
// nodeCreatedAt, currently tombstoned at nodeRemovedAt (zero if live),
// may be applied at editedAt.
func CanDelete(nodeCreatedAt, nodeRemovedAt, editedAt Ticket, isLocal bool, vv *VersionVector, legacy MaxCreatedAtMapByActor) bool {
	if isLocal {
		return true
	}
	if !causallyAdmitted(nodeCreatedAt, vv, legacy) {
		return false
	}
	return nodeRemovedAt.IsInitial() || editedAt.After(nodeRemovedAt)
}

// CanStyle reports whether a style operation targeting an element
// created at nodeCreatedAt may be applied at editedAt.
func CanStyle(nodeCreatedAt Ticket, isLocal bool, vv *VersionVector, legacy MaxCreatedAtMapByActor) bool {
	if isLocal {
		return true
	}
	return causallyAdmitted(nodeCreatedAt, vv, legacy)
}

func causallyAdmitted(nodeCreatedAt Ticket, vv *VersionVector, legacy MaxCreatedAtMapByActor) bool {
	if vv != nil {
		return vv.AfterOrEqual(nodeCreatedAt)
	}
	return legacy.AfterOrEqual(nodeCreatedAt)
}

// canDelete keeps rgaTreeSplit's original unexported call sites working
// unchanged; it is a thin forward to the shared CanDelete.
func canDelete(nodeCreatedAt, nodeRemovedAt, editedAt Ticket, isLocal bool, vv *VersionVector, legacy MaxCreatedAtMapByActor) bool {
	return CanDelete(nodeCreatedAt, nodeRemovedAt, editedAt, isLocal, vv, legacy)
}
