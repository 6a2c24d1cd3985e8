package collections

import "golang.org/x/exp/constraints"

// Apply applies the applicator function to each item in the input slice.
func Apply[T, V any](items []T, applicator func(T) V) []V {
	result := make([]V, len(items))
	for i, item := range items {
		result[i] = applicator(item)
	}
	return result
}

func ApplyVariadic[T, V any](applicator func(T) V, items ...T) []V {
	return Apply(items, applicator)
}

// SliceFromVariadic creates a slice from variadic arguments.
func SliceFromVariadic[T any](items ...T) []T {
	return items
}

// MaxOf returns the largest value produced by the applicator across items,
// or the zero value of N for an empty slice.
func MaxOf[T any, N constraints.Ordered](items []T, applicator func(T) N) N {
	var max N
	for i, item := range items {
		if v := applicator(item); i == 0 || v > max {
			max = v
		}
	}
	return max
}
