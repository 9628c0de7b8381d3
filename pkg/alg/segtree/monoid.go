package segtree

import (
	"cmp"
	"math"
)

// Monoid pairs an associative Combine with its identity element.
//
// The caller guarantees that Combine is associative and that Identity is a
// two-sided identity for it. Neither property is checked; violating them
// yields wrong aggregates, not errors.
type Monoid[E any] struct {
	Combine  func(a, b E) E
	Identity E
}

// Number is the set of types the arithmetic monoids accept.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Sum returns the addition monoid with identity 0.
func Sum[N Number]() Monoid[N] {
	return Monoid[N]{
		Combine:  func(a, b N) N { return a + b },
		Identity: 0,
	}
}

// Product returns the multiplication monoid with identity 1.
func Product[N Number]() Monoid[N] {
	return Monoid[N]{
		Combine:  func(a, b N) N { return a * b },
		Identity: 1,
	}
}

// Min returns the minimum monoid. top must be no smaller than any value the
// tree will hold, such as math.MaxInt for ints.
func Min[N cmp.Ordered](top N) Monoid[N] {
	return Monoid[N]{
		Combine:  func(a, b N) N { return min(a, b) },
		Identity: top,
	}
}

// Max returns the maximum monoid. bottom must be no larger than any value the
// tree will hold.
func Max[N cmp.Ordered](bottom N) Monoid[N] {
	return Monoid[N]{
		Combine:  func(a, b N) N { return max(a, b) },
		Identity: bottom,
	}
}

// MinInt64 returns Min with identity math.MaxInt64.
func MinInt64() Monoid[int64] { return Min[int64](math.MaxInt64) }

// MaxInt64 returns Max with identity math.MinInt64.
func MaxInt64() Monoid[int64] { return Max[int64](math.MinInt64) }

// MinFloat64 returns Min with identity +Inf.
func MinFloat64() Monoid[float64] { return Min(math.Inf(1)) }

// MaxFloat64 returns Max with identity -Inf.
func MaxFloat64() Monoid[float64] { return Max(math.Inf(-1)) }
