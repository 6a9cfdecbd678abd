package sortutil

import "sort"

// StablePathSort returns a new slice containing the input paths sorted
// lexicographically. The original slice is not modified.
func StablePathSort(paths []string) []string {
	out := make([]string, len(paths))
	copy(out, paths)
	sort.Strings(out)
	return out
}

// SortedCopy returns a new slice containing items sorted by less, leaving
// the input untouched. Used wherever a caller needs StablePathSort's
// copy-then-sort discipline over something other than strings — e.g. a
// Delta tree sorting its children by identifier.
func SortedCopy[T any](items []T, less func(a, b T) bool) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
