package interval

import "iter"

// Tree is a red-black interval tree. The zero value is an empty tree.
//
// Tree is not safe for concurrent mutation. Concurrent readers are safe only
// while no writer is active.
type Tree struct {
	root *Node
	size int
}

// color represents the red-black tree node color.
type color bool

// Red-black tree color constants.
const (
	red   color = false
	black color = true
)

// NewTree creates an empty interval tree.
func NewTree() *Tree {
	return &Tree{}
}

// Build creates a tree holding all of the given intervals.
func Build(intervals ...Interval) *Tree {
	t := NewTree()

	for _, iv := range intervals {
		t.Insert(iv)
	}

	return t
}

// Len returns the number of intervals in the tree.
func (t *Tree) Len() int {
	return t.size
}

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() *Node {
	return t.root
}

// All yields the stored intervals in (Start, End) order.
func (t *Tree) All() iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		var stack []*Node

		n := t.root
		for n != nil || len(stack) > 0 {
			for n != nil {
				stack = append(stack, n)
				n = n.left
			}

			n = stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !yield(n.interval) {
				return
			}

			n = n.right
		}
	}
}

// Insert adds iv to the tree. Equal intervals may be stored more than once.
func (t *Tree) Insert(iv Interval) {
	n := &Node{
		interval: iv,
		maxEnd:   iv.End,
		color:    red,
	}

	t.bstInsert(n)
	t.insertFixup(n)
	t.size++
}

// Delete removes one interval equal to iv. It reports whether one was found.
func (t *Tree) Delete(iv Interval) bool {
	n := t.find(iv)
	if n == nil {
		return false
	}

	t.deleteNode(n)
	t.size--

	return true
}

// FindAllOverlapping returns every stored interval overlapping target.
func (t *Tree) FindAllOverlapping(target Interval) []Interval {
	return FindAllOverlapping(t.root, target)
}

// FindAnyOverlapping returns some stored interval overlapping target.
func (t *Tree) FindAnyOverlapping(target Interval) (Interval, bool) {
	return FindAnyOverlapping(t.root, target)
}

// FindAllContaining returns every stored interval containing point.
func (t *Tree) FindAllContaining(point int) []Interval {
	return FindAllContaining(t.root, point)
}

// FindAnyContaining returns some stored interval containing point.
func (t *Tree) FindAnyContaining(point int) (Interval, bool) {
	return FindAnyContaining(t.root, point)
}

// bstInsert performs standard BST insertion by Start (then End for ties),
// raising maxEnd along the descent path.
func (t *Tree) bstInsert(n *Node) {
	if t.root == nil {
		t.root = n

		return
	}

	current := t.root

	for {
		current.maxEnd = max(current.maxEnd, n.interval.End)

		if n.interval.Compare(current.interval) < 0 {
			if current.left == nil {
				current.left = n
				n.parent = current

				return
			}

			current = current.left
		} else {
			if current.right == nil {
				current.right = n
				n.parent = current

				return
			}

			current = current.right
		}
	}
}

// find locates a node holding an interval equal to iv.
func (t *Tree) find(iv Interval) *Node {
	n := t.root

	for n != nil {
		switch c := iv.Compare(n.interval); {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return n
		}
	}

	return nil
}

// deleteNode unlinks n and restores the red-black and maxEnd invariants.
func (t *Tree) deleteNode(n *Node) {
	// With two children, take over the in-order successor's interval and
	// remove the successor instead; it has no left child.
	if n.left != nil && n.right != nil {
		succ := minimum(n.right)
		n.interval = succ.interval
		n = succ
	}

	replacement := n.left
	if replacement == nil {
		replacement = n.right
	}

	if replacement != nil {
		t.transplant(n, replacement)
		t.propagateMaxEnd(replacement.parent)

		if n.color == black {
			t.deleteFixup(replacement)
		}

		return
	}

	if n.parent == nil {
		t.root = nil

		return
	}

	// Leaf: run the fixup while n still stands in for the missing child.
	if n.color == black {
		t.deleteFixup(n)
	}

	parent := n.parent
	t.transplant(n, nil)
	t.propagateMaxEnd(parent)
}

// transplant replaces node u with node v in the tree.
func (t *Tree) transplant(u, v *Node) {
	switch {
	case u.parent == nil:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}

	if v != nil {
		v.parent = u.parent
	}

	u.parent = nil
}

// insertFixup restores red-black properties after insertion.
func (t *Tree) insertFixup(n *Node) {
	for n != t.root && nodeColor(n.parent) == red {
		parent := n.parent

		grandparent := parent.parent
		if grandparent == nil {
			break
		}

		isLeft := parent == grandparent.left
		n = t.insertFixupCase(n, parent, grandparent, isLeft)
	}

	t.root.color = black
}

// insertFixupCase handles one side of the insert fixup.
// When leftCase is true, parent is grandparent.left; otherwise parent is grandparent.right.
func (t *Tree) insertFixupCase(n, parent, grandparent *Node, leftCase bool) *Node {
	uncle := childOf(grandparent, !leftCase)

	if nodeColor(uncle) == red {
		parent.color = black
		uncle.color = black
		grandparent.color = red

		return grandparent
	}

	// Inner child: rotate it to the outside first.
	if n == childOf(parent, !leftCase) {
		t.rotate(parent, leftCase)
		n, parent = parent, n
	}

	parent.color = black
	grandparent.color = red
	t.rotate(grandparent, !leftCase)

	return n
}

// deleteFixup restores red-black properties after removing a black node.
// x carries the extra black; it is never nil.
func (t *Tree) deleteFixup(x *Node) {
	for x != t.root && nodeColor(x) == black {
		isLeft := x == x.parent.left
		x = t.deleteFixupCase(x, isLeft)
	}

	setColor(x, black)
}

// deleteFixupCase runs one iteration of the delete fixup and returns the
// node that carries the extra black next.
func (t *Tree) deleteFixupCase(x *Node, isLeft bool) *Node {
	parent := x.parent
	sibling := childOf(parent, !isLeft)

	if nodeColor(sibling) == red {
		setColor(sibling, black)
		parent.color = red
		t.rotate(parent, isLeft)

		sibling = childOf(parent, !isLeft)
	}

	outerChild := childOf(sibling, !isLeft)
	innerChild := childOf(sibling, isLeft)

	if nodeColor(innerChild) == black && nodeColor(outerChild) == black {
		setColor(sibling, red)

		return parent
	}

	if nodeColor(outerChild) == black {
		setColor(innerChild, black)
		setColor(sibling, red)
		t.rotate(sibling, !isLeft)

		sibling = childOf(parent, !isLeft)
	}

	setColor(sibling, parent.color)
	parent.color = black
	setColor(childOf(sibling, !isLeft), black)
	t.rotate(parent, isLeft)

	return t.root
}

// rotate performs a rotation at node n. When left is true, rotates left;
// otherwise rotates right. Maintains the maxEnd augmentation.
func (t *Tree) rotate(n *Node, left bool) {
	var pivot *Node

	if left {
		pivot = n.right
		n.right = pivot.left

		if pivot.left != nil {
			pivot.left.parent = n
		}

		pivot.left = n
	} else {
		pivot = n.left
		n.left = pivot.right

		if pivot.right != nil {
			pivot.right.parent = n
		}

		pivot.right = n
	}

	pivot.parent = n.parent

	switch {
	case n.parent == nil:
		t.root = pivot
	case n == n.parent.left:
		n.parent.left = pivot
	default:
		n.parent.right = pivot
	}

	n.parent = pivot

	// n is now below pivot, so it goes first.
	recalcMaxEnd(n)
	recalcMaxEnd(pivot)
}

// propagateMaxEnd recalculates maxEnd from the given node up to the root.
func (t *Tree) propagateMaxEnd(n *Node) {
	for n != nil {
		recalcMaxEnd(n)
		n = n.parent
	}
}

// recalcMaxEnd recalculates a node's maxEnd from its interval and children.
func recalcMaxEnd(n *Node) {
	m := n.interval.End

	if n.left != nil && n.left.maxEnd > m {
		m = n.left.maxEnd
	}

	if n.right != nil && n.right.maxEnd > m {
		m = n.right.maxEnd
	}

	n.maxEnd = m
}

// nodeColor returns the color of a node, treating nil as black.
func nodeColor(n *Node) color {
	if n == nil {
		return black
	}

	return n.color
}

// setColor sets a node's color if it is non-nil.
func setColor(n *Node, c color) {
	if n != nil {
		n.color = c
	}
}

// childOf returns the left or right child of a node.
// When left is true, returns n.left; otherwise n.right.
func childOf(n *Node, left bool) *Node {
	if n == nil {
		return nil
	}

	if left {
		return n.left
	}

	return n.right
}

// minimum returns the leftmost node in the subtree rooted at n.
func minimum(n *Node) *Node {
	for n.left != nil {
		n = n.left
	}

	return n
}
