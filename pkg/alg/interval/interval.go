// Package interval provides closed integer intervals and an augmented
// interval tree for overlap and containment queries.
//
// The tree is a red-black tree ordered by (Start, End) where every node
// stores the maximum End found in its subtree (maxEnd). Queries use maxEnd
// to skip subtrees that cannot hold a match, giving O(log N) any-match
// lookups and O(log N + k) full overlap scans, where k is the number of
// matching intervals.
package interval

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidInterval is returned when an interval's start is after its end.
var ErrInvalidInterval = errors.New("interval start is after end")

// Interval is a closed range [Start, End]. Both bounds are inclusive.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// New returns the interval [start, end].
func New(start, end int) (Interval, error) {
	if start > end {
		return Interval{}, fmt.Errorf("%w: [%d, %d]", ErrInvalidInterval, start, end)
	}

	return Interval{Start: start, End: end}, nil
}

// Point returns the single-point interval [p, p].
func Point(p int) Interval {
	return Interval{Start: p, End: p}
}

// Overlaps reports whether the two intervals share at least one point.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start <= other.End && other.Start <= iv.End
}

// Contains reports whether p lies within the interval.
func (iv Interval) Contains(p int) bool {
	return iv.Start <= p && p <= iv.End
}

// Compare orders intervals by Start, then by End.
// It returns -1, 0 or +1.
func (iv Interval) Compare(other Interval) int {
	switch {
	case iv.Start < other.Start:
		return -1
	case iv.Start > other.Start:
		return 1
	case iv.End < other.End:
		return -1
	case iv.End > other.End:
		return 1
	default:
		return 0
	}
}

// Len returns the number of integer points covered by the interval.
func (iv Interval) Len() int {
	return iv.End - iv.Start + 1
}

func (iv Interval) String() string {
	return "[" + strconv.Itoa(iv.Start) + ", " + strconv.Itoa(iv.End) + "]"
}
