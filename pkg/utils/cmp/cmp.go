// Package cmp holds the small comparison helpers the tests lean on.
package cmp

// SliceEq reports whether two slices have the same elements in the same
// order.
func SliceEq[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SliceContentEq reports whether two slices have the same elements,
// ignoring order. Duplicates count: {x, x, y} and {x, y, y} differ.
func SliceContentEq[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	count := map[T]int{}
	for _, x := range a {
		count[x]++
	}
	for _, x := range b {
		count[x]--
		if count[x] < 0 {
			return false
		}
	}
	return true
}

// SliceContentEqWith is SliceContentEq under a caller-supplied equality.
func SliceContentEqWith[T any](a, b []T, eq func(T, T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	matched := make([]bool, len(b))
next:
	for _, x := range a {
		for i, y := range b {
			if !matched[i] && eq(x, y) {
				matched[i] = true
				continue next
			}
		}
		return false
	}
	return true
}

// MapEq reports whether two maps hold exactly the same key/value pairs.
func MapEq[K, V comparable](a, b map[K]V) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || av != bv {
			return false
		}
	}
	return true
}

// MapGeq reports whether a contains every key/value pair of b.
func MapGeq[K, V comparable](a, b map[K]V) bool {
	for k, bv := range b {
		av, ok := a[k]
		if !ok || av != bv {
			return false
		}
	}
	return true
}
