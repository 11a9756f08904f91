package sample

func Clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func Count(xs []int) (n int) {
	for _, x := range xs {
		if x != 0 {
			n++
		}
	}
	return n
}
