package geom

import "math"

// SqDist is the squared euclidean distance, the score used by the index.
func SqDist(a, b XY) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

func EuclideanDistance(a, b XY) float64 {
	return math.Sqrt(SqDist(a, b))
}
