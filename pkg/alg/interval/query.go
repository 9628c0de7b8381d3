package interval

// Node is a read-only view of one tree node. A nil *Node is an empty tree.
type Node struct {
	interval    Interval
	maxEnd      int
	left, right *Node
	parent      *Node
	color       color
}

// NewNode assembles a node over the given children and computes its maxEnd.
// It lets callers hand-build trees (balanced or not) for the query functions
// below. The children must already satisfy the ordering invariant relative
// to iv; NewNode does not check it.
func NewNode(iv Interval, left, right *Node) *Node {
	n := &Node{interval: iv, left: left, right: right, color: black}
	recalcMaxEnd(n)

	return n
}

// Interval returns the interval stored at the node.
func (n *Node) Interval() Interval { return n.interval }

// MaxEnd returns the largest End in the subtree rooted at the node.
func (n *Node) MaxEnd() int { return n.maxEnd }

// Left returns the left child, or nil.
func (n *Node) Left() *Node { return n.left }

// Right returns the right child, or nil.
func (n *Node) Right() *Node { return n.right }

// FindAllOverlapping returns every interval in the tree rooted at root that
// overlaps target. The result is in tree order and is nil when nothing
// overlaps.
func FindAllOverlapping(root *Node, target Interval) []Interval {
	var results []Interval

	collectOverlapping(root, target, &results)

	return results
}

// FindAnyOverlapping returns some interval overlapping target. The boolean
// is false when no stored interval overlaps.
func FindAnyOverlapping(root *Node, target Interval) (Interval, bool) {
	n := findAny(root, target)
	if n == nil {
		return Interval{}, false
	}

	return n.interval, true
}

// FindAllContaining returns every interval containing point.
func FindAllContaining(root *Node, point int) []Interval {
	return FindAllOverlapping(root, Point(point))
}

// FindAnyContaining returns some interval containing point.
func FindAnyContaining(root *Node, point int) (Interval, bool) {
	return FindAnyOverlapping(root, Point(point))
}

// collectOverlapping appends the subtree's intervals overlapping target.
func collectOverlapping(n *Node, target Interval, results *[]Interval) {
	// Every End below n is <= maxEnd, so nothing here reaches target.
	if n == nil || target.Start > n.maxEnd {
		return
	}

	// Left starts are ordered but their ends are not; only maxEnd can prune it.
	collectOverlapping(n.left, target, results)

	if n.interval.Overlaps(target) {
		*results = append(*results, n.interval)
	}

	// Right subtree starts at or after n.interval.Start.
	if target.End < n.interval.Start {
		return
	}

	collectOverlapping(n.right, target, results)
}

// findAny returns the first node found whose interval overlaps target.
func findAny(n *Node, target Interval) *Node {
	for n != nil && target.Start <= n.maxEnd {
		if n.interval.Overlaps(target) {
			return n
		}

		if found := findAny(n.left, target); found != nil {
			return found
		}

		if target.End < n.interval.Start {
			return nil
		}

		n = n.right
	}

	return nil
}
