// Package batch partitions ordered sequences into fixed-size groups.
package batch

import "iter"

// Chunks yields groups of up to size elements, preserving input order.
// The sequence is lazy: it never buffers more than one group, and an
// empty input yields no groups at all. size must be positive.
func Chunks[T any](seq iter.Seq[T], size int) iter.Seq[[]T] {
	if size <= 0 {
		panic("batch: chunk size must be positive")
	}
	return func(yield func([]T) bool) {
		group := make([]T, 0, size)
		for v := range seq {
			group = append(group, v)
			if len(group) == size {
				if !yield(group) {
					return
				}
				group = make([]T, 0, size)
			}
		}
		if len(group) > 0 {
			yield(group)
		}
	}
}
