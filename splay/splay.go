// Package splay implements an augmented splay tree over a sequence of
// weighted nodes, as used by RGA-style sequence CRDTs to translate between
// a logical position (ignoring tombstones) and the node that owns it.
//
// Each node reports its own Length(): 1 for a live element, 0 for a
// tombstone, or a content length for a splittable text block. The tree
// keeps a subtree-weight sum so Find and IndexOf run in amortized
// O(log n).
package splay

// Node is embedded by callers into their own node type to link it into a
// splay tree. Callers must not mutate the splay-owned fields directly.
type Node struct {
	parent, left, right *Node
	weight              int // sum of Length() in this subtree
	self                Weighted
}

// Weighted is implemented by a caller's node type to report its own
// length, i.e. how many logical (non-tombstone) positions it occupies.
type Weighted interface {
	Length() int
}

// Embedder is a caller value that can be passed to tree operations: its
// SplayNode method returns the splay.Node part of the value. Caller node
// types should embed Node and implement SplayNode by returning a pointer
// to that field.
type Embedder interface {
	Weighted
	SplayNode() *Node
}

// Tree is a splay tree over nodes reachable via the Embedder interface.
type Tree struct {
	root *Node
}

// New creates an empty tree.
func New() *Tree { return &Tree{} }

func nodeOf(e Embedder) *Node {
	n := e.SplayNode()
	n.self = e
	return n
}

func weight(n *Node) int {
	if n == nil {
		return 0
	}
	return n.weight
}

// UpdateWeight recomputes n's own subtree weight from its current
// Length() plus its children's cached weights. This is only correct for
// a node with no parent (the tree root): updating a non-root node's
// weight in place would leave every ancestor's cached weight stale.
// Callers that change a node's Length() after it is already linked into
// the tree should call Touch instead, which splays the node to the root
// (recomputing every ancestor's weight along the way, using the node's
// already-updated Length()) before fixing up its own weight.
func UpdateWeight(e Embedder) {
	n := nodeOf(e)
	n.weight = weight(n.left) + e.Length() + weight(n.right)
}

// Touch splays e to the root and recomputes its weight, the correct way
// to propagate a Length() change (e.g. tombstoning a node) up through
// the whole ancestor chain. Call this after mutating e's Length(),
// instead of UpdateWeight, unless e is already known to be the root.
func (t *Tree) Touch(e Embedder) {
	n := nodeOf(e)
	t.splay(n)
	n.weight = weight(n.left) + e.Length() + weight(n.right)
}

func rotateLeft(n *Node) *Node {
	r := n.right
	n.right = r.left
	if r.left != nil {
		r.left.parent = n
	}
	r.parent = n.parent
	if n.parent != nil {
		if n.parent.left == n {
			n.parent.left = r
		} else {
			n.parent.right = r
		}
	}
	r.left = n
	n.parent = r
	r.weight = n.weight
	n.weight = weight(n.left) + n.self.Length() + weight(n.right)
	return r
}

func rotateRight(n *Node) *Node {
	l := n.left
	n.left = l.right
	if l.right != nil {
		l.right.parent = n
	}
	l.parent = n.parent
	if n.parent != nil {
		if n.parent.left == n {
			n.parent.left = l
		} else {
			n.parent.right = l
		}
	}
	l.right = n
	n.parent = l
	l.weight = n.weight
	n.weight = weight(n.left) + n.self.Length() + weight(n.right)
	return l
}

// splay moves n to the root of the tree via zig/zig-zig/zig-zag steps.
func (t *Tree) splay(n *Node) {
	for n.parent != nil {
		p := n.parent
		g := p.parent
		if g == nil {
			if p.left == n {
				rotateRight(p)
			} else {
				rotateLeft(p)
			}
			continue
		}
		pIsLeft := g.left == p
		nIsLeft := p.left == n
		if pIsLeft && nIsLeft {
			rotateRight(g)
			rotateRight(p)
		} else if !pIsLeft && !nIsLeft {
			rotateLeft(g)
			rotateLeft(p)
		} else if pIsLeft && !nIsLeft {
			rotateLeft(p)
			rotateRight(g)
		} else {
			rotateRight(p)
			rotateLeft(g)
		}
	}
	t.root = n
}

// Splay brings e's node to the root. Exposed so callers can cheaply
// re-splay after mutating Length() out-of-band and calling UpdateWeight
// up the old parent chain is inconvenient.
func (t *Tree) Splay(e Embedder) {
	n := nodeOf(e)
	t.splay(n)
}

// InsertAfter links newNode immediately after prev in sequence order. If
// prev is nil, newNode becomes the first element.
func (t *Tree) InsertAfter(prev, newNode Embedder) {
	nn := nodeOf(newNode)
	nn.left, nn.right, nn.parent = nil, nil, nil
	nn.weight = newNode.Length()
	if prev == nil {
		if t.root == nil {
			t.root = nn
			return
		}
		t.splay(minNode(t.root))
		nn.right = t.root
		t.root.parent = nn
		nn.left = nil
		nn.weight = newNode.Length() + weight(nn.right)
		t.root = nn
		return
	}
	pn := nodeOf(prev)
	t.splay(pn)
	// pn is root; newNode takes pn's right subtree.
	nn.right = pn.right
	if nn.right != nil {
		nn.right.parent = nn
	}
	pn.right = nn
	nn.parent = pn
	nn.weight = newNode.Length() + weight(nn.right)
	pn.weight = weight(pn.left) + prev.Length() + nn.weight
	t.root = pn
}

func minNode(n *Node) *Node {
	for n.left != nil {
		n = n.left
	}
	return n
}

// Delete detaches e's node from the tree. The node's Length() should
// already reflect its post-delete state (typically 0, for a tombstone)
// if it is to remain logically in the structure; Delete physically
// unlinks it, which is appropriate for splitless sequences. Splittable
// sequences usually prefer zeroing Length() and calling Touch instead of
// Delete, to keep the physical link for later split lookups.
func (t *Tree) Delete(e Embedder) {
	n := nodeOf(e)
	t.splay(n)
	if n.left == nil {
		t.root = n.right
		if t.root != nil {
			t.root.parent = nil
		}
	} else {
		left := n.left
		left.parent = nil
		t.splay(maxNode(left))
		t.root.right = n.right
		if n.right != nil {
			n.right.parent = t.root
		}
		t.root.weight = weight(t.root.left) + leftSelf(t.root) + weight(t.root.right)
	}
	n.left, n.right, n.parent = nil, nil, nil
}

func leftSelf(n *Node) int {
	if n.self != nil {
		return n.self.Length()
	}
	return 0
}

func maxNode(n *Node) *Node {
	for n.right != nil {
		n = n.right
	}
	return n
}

// Find translates a 0-based logical position into the node that owns it
// and the offset within that node, skipping tombstoned (Length()==0)
// nodes entirely. Returns ok=false if pos is out of range.
func (t *Tree) Find(pos int) (e Embedder, offset int, ok bool) {
	n := t.root
	for n != nil {
		lw := weight(n.left)
		switch {
		case pos < lw:
			n = n.left
		case pos < lw+n.self.Length():
			t.splay(n)
			return n.self, pos - lw, true
		default:
			pos -= lw + n.self.Length()
			n = n.right
		}
	}
	return nil, 0, false
}

// IndexOf returns the logical position of the start of e's node, i.e.
// the sum of Length() over all nodes strictly to its left.
func (t *Tree) IndexOf(e Embedder) int {
	n := nodeOf(e)
	t.splay(n)
	return weight(n.left)
}

// Len returns the total live weight of the tree.
func (t *Tree) Len() int {
	return weight(t.root)
}

// CutOffRange propagates the weights of the given nodes without
// physically unlinking them (so later split-aware lookups can still
// traverse the chain). Callers should have already set each such node's
// own Length() to 0; CutOffRange then calls Touch on every node in
// turn, splaying each one to the root, so a caller can recompute
// weights for a whole batch of tombstoned nodes in one call.
func (t *Tree) CutOffRange(nodes []Embedder) {
	for _, e := range nodes {
		t.Touch(e)
	}
}
