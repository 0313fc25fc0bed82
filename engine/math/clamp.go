package math

import "golang.org/x/exp/constraints"

// Clamp bounds v to [lo, hi]. Extents and bar fractions both go through it.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

// ClampExtent bounds both sides of a width x height pair independently.
func ClampExtent[T constraints.Integer](w, h, minW, minH, maxW, maxH T) (T, T) {
	return Clamp(w, minW, maxW), Clamp(h, minH, maxH)
}
