package kdtree

import "github.com/go-sod/spindex/internal/geom"

const nilNode int32 = -1

// node is either a leaf holding one point or an internal node whose point is
// only the split value. Internal nodes always have both children.
type node[T any] struct {
	point  geom.Point[T]
	left   int32
	right  int32
	erased bool
}

func (n *node[T]) leaf() bool {
	return n.left == nilNode
}

// partition reorders points so that [0, mid) holds values below the median on
// the depth axis and points[mid] carries the median value. The left side is
// never empty.
func partition[T any](points []geom.Point[T], depth int) int {
	n2 := len(points) / 2
	selectNth(points, n2, depth)
	median := points[n2].Axis(depth)

	// after selection everything below the median sits in [0, n2)
	mid := 0
	for i := 0; i < n2; i++ {
		if points[i].Axis(depth) < median {
			points[i], points[mid] = points[mid], points[i]
			mid++
		}
	}
	if mid == 0 {
		mid++
	}
	return mid
}

// selectNth moves the element of rank nth on the depth axis to points[nth],
// with smaller-or-equal values before it and greater-or-equal after.
func selectNth[T any](points []geom.Point[T], nth int, depth int) {
	lo, hi := 0, len(points)-1
	for lo < hi {
		lt, gt := pivot(points, lo, hi, depth)
		switch {
		case nth < lt:
			hi = lt - 1
		case nth > gt:
			lo = gt + 1
		default:
			return
		}
	}
}

// pivot does a three-way partition of points[lo:hi+1] around a
// median-of-three value. On return [lt, gt] holds the values equal to it.
func pivot[T any](points []geom.Point[T], lo, hi int, depth int) (int, int) {
	mid := lo + (hi-lo)/2
	a, b, c := points[lo].Axis(depth), points[mid].Axis(depth), points[hi].Axis(depth)
	var value float64
	switch {
	case (a <= b) == (b <= c):
		value = b
	case (b <= a) == (a <= c):
		value = a
	default:
		value = c
	}

	lt, i, gt := lo, lo, hi
	for i <= gt {
		v := points[i].Axis(depth)
		switch {
		case v < value:
			points[lt], points[i] = points[i], points[lt]
			lt++
			i++
		case v > value:
			points[i], points[gt] = points[gt], points[i]
			gt--
		default:
			i++
		}
	}
	return lt, gt
}
