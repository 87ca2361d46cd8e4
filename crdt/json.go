package crdt

// ToJSON and ToSortedJSON are the document-level entry points for
// spec.md §6's external JSON interface: every concrete element already
// knows how to render itself (MarshalJSONValue), dispatched per
// variant arm the way spec.md §9 describes; these two functions just
// anchor that dispatch at the document root.
//
// Grounded on the teacher's ToJSON (crdt/ctree.go), which walks a
// filtered, tombstone-free view of the weave and hand-builds a
// []interface{} before calling json.MarshalIndent: generalized here to
// the six element kinds, with the sorted-key variant spec.md requires
// for convergence comparisons (to_sorted_json) exposed as its own
// function rather than a boolean the caller might forget to set.

// ToJSON renders the document in arbitrary (map-order) key ordering.
func ToJSON(root *Root) string {
	return root.Object().MarshalJSONValue(false)
}

// ToSortedJSON renders the document with every object's keys sorted, so
// two replicas that have converged to the same logical state also
// produce byte-identical output (spec.md §8 property 1, convergence).
func ToSortedJSON(root *Root) string {
	return root.Object().MarshalJSONValue(true)
}
