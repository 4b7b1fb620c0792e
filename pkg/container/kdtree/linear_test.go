package kdtree

import (
	"sort"

	"github.com/go-sod/spindex/internal/geom"
	"github.com/go-sod/spindex/pkg/container/topk"
	"github.com/valyala/fastrand"
)

// linearScan scores every live point, the reference the tree is checked against.
type linearScan[T any] struct {
	points []geom.Point[T]
	erased []bool
}

func newLinearScan[T any](points []geom.Point[T]) *linearScan[T] {
	return &linearScan[T]{points: points, erased: make([]bool, len(points))}
}

func (l *linearScan[T]) nearest(q geom.XY) (geom.Point[T], float64, bool) {
	queue := topk.New[int, float64](1)
	for i := range l.points {
		if !l.erased[i] {
			queue.Offer(i, geom.SqDist(l.points[i].XY, q))
		}
	}
	idx, ok := queue.Best()
	if !ok {
		return geom.Point[T]{}, 0, false
	}
	score, _ := queue.BestScore()
	return l.points[idx], score, true
}

// scores returns the squared distances of all live points, ascending.
func (l *linearScan[T]) scores(q geom.XY) []float64 {
	var scores []float64
	for i := range l.points {
		if !l.erased[i] {
			scores = append(scores, geom.SqDist(l.points[i].XY, q))
		}
	}
	sort.Float64s(scores)
	return scores
}

func randomPoints(rng *fastrand.RNG, n int, span uint32) []geom.Point[int] {
	points := make([]geom.Point[int], n)
	for i := range points {
		points[i] = geom.NewPoint(randomCoord(rng, span), randomCoord(rng, span), i)
	}
	return points
}

func randomCoord(rng *fastrand.RNG, span uint32) float64 {
	return float64(rng.Uint32n(span*16)) / 16
}

func randomQuery(rng *fastrand.RNG, span uint32) geom.XY {
	return geom.NewXY(randomCoord(rng, span+span/4)-float64(span)/8, randomCoord(rng, span+span/4)-float64(span)/8)
}

func newRNG(seed uint32) *fastrand.RNG {
	var rng fastrand.RNG
	rng.Seed(seed)
	return &rng
}
