// Package segtree provides a generic segment tree: associative range
// aggregation with point updates over a fixed-size domain.
//
// The tree is built once from a non-empty slice and never changes shape.
// Range [lo, hi] splits at mid = lo + (hi-lo)/2 into [lo, mid] and
// [mid+1, hi]; leaves hold one domain value and every internal node caches
// the combination of its two children. Nodes live in a flat slice, with the
// children of node i at 2i+1 and 2i+2.
//
// A Tree is not safe for concurrent use. Serialize Update against all other
// calls.
package segtree

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrInvalidArgument is returned when a tree is built from no values.
	ErrInvalidArgument = errors.New("segtree: invalid argument")
	// ErrOutOfBounds is returned for an index or range outside the domain.
	ErrOutOfBounds = errors.New("segtree: out of bounds")
)

// arenaFactor bounds the node count of a midpoint-split tree over n leaves.
const arenaFactor = 4

// Tree is a segment tree over elements of type E.
type Tree[E any] struct {
	nodes  []E
	size   int
	monoid Monoid[E]
}

// New builds a tree over values using m. The values slice is copied into the
// tree and may be reused by the caller. Build cost is O(n).
func New[E any](values []E, m Monoid[E]) (*Tree[E], error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty domain", ErrInvalidArgument)
	}

	if m.Combine == nil {
		return nil, fmt.Errorf("%w: nil combine function", ErrInvalidArgument)
	}

	t := &Tree[E]{
		nodes:  make([]E, arenaFactor*len(values)),
		size:   len(values),
		monoid: m,
	}

	t.build(values, 0, 0, t.size-1)

	return t, nil
}

// Len returns the domain size.
func (t *Tree[E]) Len() int {
	return t.size
}

// Query returns the combination of the values at positions start..end
// inclusive. It runs in O(log n).
func (t *Tree[E]) Query(start, end int) (E, error) {
	if start < 0 || end >= t.size || start > end {
		var zero E

		return zero, fmt.Errorf("%w: range [%d, %d] in domain of %d", ErrOutOfBounds, start, end, t.size)
	}

	return t.query(0, 0, t.size-1, start, end), nil
}

// Update replaces the value at index with fn(value) and recombines its
// ancestors. On a bounds error the tree is left untouched.
func (t *Tree[E]) Update(index int, fn func(E) E) error {
	if err := t.checkIndex(index); err != nil {
		return err
	}

	t.update(0, 0, t.size-1, index, fn)

	return nil
}

// Get returns the value at index.
func (t *Tree[E]) Get(index int) (E, error) {
	if err := t.checkIndex(index); err != nil {
		var zero E

		return zero, err
	}

	return t.query(0, 0, t.size-1, index, index), nil
}

// Set stores v at index.
func (t *Tree[E]) Set(index int, v E) error {
	return t.Update(index, func(E) E { return v })
}

// Values returns a copy of the domain in index order.
func (t *Tree[E]) Values() []E {
	out := make([]E, 0, t.size)

	return t.leaves(0, 0, t.size-1, out)
}

func (t *Tree[E]) checkIndex(index int) error {
	if index < 0 || index >= t.size {
		return fmt.Errorf("%w: index %d in domain of %d", ErrOutOfBounds, index, t.size)
	}

	return nil
}

func (t *Tree[E]) build(values []E, node, lo, hi int) {
	if lo == hi {
		t.nodes[node] = values[lo]

		return
	}

	mid := lo + (hi-lo)/2
	left, right := 2*node+1, 2*node+2

	t.build(values, left, lo, mid)
	t.build(values, right, mid+1, hi)

	t.nodes[node] = t.monoid.Combine(t.nodes[left], t.nodes[right])
}

func (t *Tree[E]) query(node, lo, hi, start, end int) E {
	if start > hi || end < lo {
		return t.monoid.Identity
	}

	if start <= lo && hi <= end {
		return t.nodes[node]
	}

	mid := lo + (hi-lo)/2

	return t.monoid.Combine(
		t.query(2*node+1, lo, mid, start, end),
		t.query(2*node+2, mid+1, hi, start, end),
	)
}

func (t *Tree[E]) update(node, lo, hi, index int, fn func(E) E) {
	if lo == hi {
		t.nodes[node] = fn(t.nodes[node])

		return
	}

	mid := lo + (hi-lo)/2
	left, right := 2*node+1, 2*node+2

	if index <= mid {
		t.update(left, lo, mid, index, fn)
	} else {
		t.update(right, mid+1, hi, index, fn)
	}

	t.nodes[node] = t.monoid.Combine(t.nodes[left], t.nodes[right])
}

func (t *Tree[E]) leaves(node, lo, hi int, out []E) []E {
	if lo == hi {
		return append(out, t.nodes[node])
	}

	mid := lo + (hi-lo)/2
	out = t.leaves(2*node+1, lo, mid, out)

	return t.leaves(2*node+2, mid+1, hi, out)
}
