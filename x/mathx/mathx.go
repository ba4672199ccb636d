package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Min/Max for convenience.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// AlignUp rounds v up to the nearest multiple of align. align==0 returns v.
func AlignUp[T constraints.Unsigned](v, align T) T {
	if align == 0 {
		return v
	}
	r := v % align
	if r == 0 {
		return v
	}
	return v + (align - r)
}

// AlignDown rounds v down to the nearest multiple of align. align==0 returns v.
func AlignDown[T constraints.Unsigned](v, align T) T {
	if align == 0 {
		return v
	}
	return v - v%align
}
