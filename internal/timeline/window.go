// Package timeline keeps independently timed entries in step with a playback
// clock. Speech clips are mutually exclusive; subtitle lines are not.
package timeline

import (
	"iter"
	"sort"
)

// Tolerance widens every window on both sides to absorb clock jitter.
const Tolerance = 0.1

// None marks the absence of an index.
const None = -1

// Span is anything with a [start, end] window in seconds.
type Span interface {
	Bounds() (start, end float64)
}

// Contains reports whether pos falls inside the widened window of s.
func Contains(s Span, pos float64) bool {
	start, end := s.Bounds()
	return pos >= start-Tolerance && pos <= end+Tolerance
}

// Window yields, in order, every entry whose widened window contains pos.
// entries must be sorted ascending by start.
func Window[E Span](entries []E, pos float64) iter.Seq2[int, E] {
	return func(yield func(int, E) bool) {
		for i, e := range entries {
			start, _ := e.Bounds()
			if start-Tolerance > pos {
				return
			}
			if Contains(e, pos) && !yield(i, e) {
				return
			}
		}
	}
}

// Upcoming returns the index of the first entry starting at or after pos, or None.
func Upcoming[E Span](entries []E, pos float64) int {
	i := sort.Search(len(entries), func(i int) bool {
		start, _ := entries[i].Bounds()
		return start >= pos
	})
	if i == len(entries) {
		return None
	}
	return i
}
