package interval

import (
	"errors"
	"fmt"
)

var (
	errOrder     = errors.New("bst order violated")
	errMaxEnd    = errors.New("maxEnd augmentation violated")
	errParent    = errors.New("parent link broken")
	errRedRed    = errors.New("red node has red child")
	errBlackH    = errors.New("black height mismatch")
	errRootColor = errors.New("root is red")
)

// CheckInvariants verifies BST ordering, the maxEnd augmentation, parent
// links and the red-black properties of the tree.
func (t *Tree) CheckInvariants() error {
	if t.root == nil {
		return nil
	}

	if t.root.color != black {
		return errRootColor
	}

	_, err := checkNode(t.root)

	return err
}

// CheckAugmentation verifies ordering and maxEnd only, for hand-built trees.
func CheckAugmentation(n *Node) error {
	if n == nil {
		return nil
	}

	for _, child := range []*Node{n.left, n.right} {
		if err := CheckAugmentation(child); err != nil {
			return err
		}
	}

	return checkLocal(n)
}

func checkNode(n *Node) (blackHeight int, err error) {
	if n == nil {
		return 1, nil
	}

	for _, child := range []*Node{n.left, n.right} {
		if child == nil {
			continue
		}

		if child.parent != n {
			return 0, fmt.Errorf("%w at %s", errParent, child.interval)
		}

		if n.color == red && child.color == red {
			return 0, fmt.Errorf("%w at %s", errRedRed, n.interval)
		}
	}

	if err = checkLocal(n); err != nil {
		return 0, err
	}

	lh, err := checkNode(n.left)
	if err != nil {
		return 0, err
	}

	rh, err := checkNode(n.right)
	if err != nil {
		return 0, err
	}

	if lh != rh {
		return 0, fmt.Errorf("%w at %s: %d vs %d", errBlackH, n.interval, lh, rh)
	}

	if n.color == black {
		lh++
	}

	return lh, nil
}

// checkLocal verifies n against its direct children.
func checkLocal(n *Node) error {
	want := n.interval.End

	if n.left != nil {
		if n.left.interval.Compare(n.interval) > 0 {
			return fmt.Errorf("%w: %s left of %s", errOrder, n.left.interval, n.interval)
		}

		want = max(want, n.left.maxEnd)
	}

	if n.right != nil {
		if n.right.interval.Compare(n.interval) < 0 {
			return fmt.Errorf("%w: %s right of %s", errOrder, n.right.interval, n.interval)
		}

		want = max(want, n.right.maxEnd)
	}

	if n.maxEnd != want {
		return fmt.Errorf("%w at %s: have %d, want %d", errMaxEnd, n.interval, n.maxEnd, want)
	}

	return nil
}

// Height returns the number of nodes on the longest root-to-leaf path.
func (t *Tree) Height() int {
	return height(t.root)
}

func height(n *Node) int {
	if n == nil {
		return 0
	}

	return 1 + max(height(n.left), height(n.right))
}
