package interval

import (
	"testing"
)

// Benchmark constants.
const (
	benchIntervalCount = 10000
	benchSpacing       = 10
	benchWidth         = 5
	benchQueryLow      = 500
	benchQueryHigh     = 1500
)

func benchIntervals() []Interval {
	intervals := make([]Interval, benchIntervalCount)

	for i := range benchIntervalCount {
		start := i * benchSpacing
		intervals[i] = Interval{Start: start, End: start + benchWidth}
	}

	return intervals
}

// BenchmarkInsert benchmarks inserting intervals.
func BenchmarkInsert(b *testing.B) {
	intervals := benchIntervals()

	for range b.N {
		tree := NewTree()

		for _, iv := range intervals {
			tree.Insert(iv)
		}
	}
}

// BenchmarkFindAllOverlapping benchmarks overlap queries.
func BenchmarkFindAllOverlapping(b *testing.B) {
	tree := Build(benchIntervals()...)
	target := Interval{Start: benchQueryLow, End: benchQueryHigh}

	b.ResetTimer()

	for range b.N {
		tree.FindAllOverlapping(target)
	}
}

// BenchmarkFindAnyOverlapping benchmarks single-result overlap queries.
func BenchmarkFindAnyOverlapping(b *testing.B) {
	tree := Build(benchIntervals()...)
	target := Interval{Start: benchQueryLow, End: benchQueryHigh}

	b.ResetTimer()

	for range b.N {
		tree.FindAnyOverlapping(target)
	}
}

// BenchmarkFindAllContaining benchmarks point queries.
func BenchmarkFindAllContaining(b *testing.B) {
	tree := Build(benchIntervals()...)

	b.ResetTimer()

	for range b.N {
		tree.FindAllContaining(benchQueryLow)
	}
}

// BenchmarkDelete benchmarks deleting all intervals.
func BenchmarkDelete(b *testing.B) {
	intervals := benchIntervals()

	b.ResetTimer()

	for range b.N {
		b.StopTimer()

		tree := Build(intervals...)

		b.StartTimer()

		for _, iv := range intervals {
			tree.Delete(iv)
		}
	}
}
