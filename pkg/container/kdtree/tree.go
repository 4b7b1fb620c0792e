/*
 * Copyright 2020 Dennis Kuhnert
 * Copyright 2020 Ivanov Nikita
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

// Package kdtree implements a static two-dimensional tree answering exact
// nearest and k-nearest neighbour queries, with lazy deletion of points.
//
// The tree is built once from a point set. Points are only ever removed by
// tombstoning their leaf; the shape of the tree never changes after Build.
// Queries may run concurrently with each other, Erase must be serialized by
// the caller against everything else.
package kdtree

import (
	"fmt"
	"math"

	"github.com/go-sod/spindex/internal/geom"
	"github.com/go-sod/spindex/pkg/container/topk"
)

var (
	ErrEmptyBuild             = fmt.Errorf("kdtree: build from an empty point set")
	ErrTooManyPoints          = fmt.Errorf("kdtree: point set exceeds the node arena")
	ErrInvalidPoint           = fmt.Errorf("kdtree: point coordinate is NaN")
	ErrInvalidK               = fmt.Errorf("kdtree: k must be positive")
	ErrInsufficientLivePoints = fmt.Errorf("kdtree: fewer live points than requested neighbours")
	ErrNotFound               = fmt.Errorf("kdtree: no live point")
	ErrStaleHandle            = fmt.Errorf("kdtree: iterator does not belong to this tree")
)

const maxPoints = math.MaxInt32 / 2

type Tree[T any] struct {
	nodes []node[T]
	root  int32
	live  int
	size  int
	depth int
}

// Build copies points and partitions them into a tree: x is the split axis on
// even depths and y on odd ones. Many points sharing a coordinate can skew the
// tree, which only costs query time.
func Build[T any](points []geom.Point[T]) (*Tree[T], error) {
	if len(points) == 0 {
		return nil, ErrEmptyBuild
	}
	if len(points) > maxPoints {
		return nil, fmt.Errorf("%w: %d points", ErrTooManyPoints, len(points))
	}
	for i := range points {
		if math.IsNaN(points[i].X) || math.IsNaN(points[i].Y) {
			return nil, fmt.Errorf("%w: point %d", ErrInvalidPoint, i)
		}
	}

	buf := make([]geom.Point[T], len(points))
	copy(buf, points)
	t := &Tree[T]{
		nodes: make([]node[T], 0, 2*len(points)-1),
		live:  len(points),
		size:  len(points),
	}
	t.root = t.build(buf, 0)
	return t, nil
}

func (t *Tree[T]) build(points []geom.Point[T], depth int) int32 {
	if depth >= t.depth {
		t.depth = depth + 1
	}
	idx := int32(len(t.nodes))
	if len(points) == 1 {
		t.nodes = append(t.nodes, node[T]{point: points[0], left: nilNode, right: nilNode})
		return idx
	}

	mid := partition(points, depth)
	t.nodes = append(t.nodes, node[T]{point: points[mid]})
	left := t.build(points[:mid], depth+1)
	right := t.build(points[mid:], depth+1)
	t.nodes[idx].left, t.nodes[idx].right = left, right
	return idx
}

// Len returns the number of live points.
func (t *Tree[T]) Len() int {
	return t.live
}

// Size returns the number of points the tree was built from, erased included.
func (t *Tree[T]) Size() int {
	return t.size
}

// Nodes returns the number of tree nodes, 2*Size()-1.
func (t *Tree[T]) Nodes() int {
	return len(t.nodes)
}

func (t *Tree[T]) Depth() int {
	return t.depth
}

// Nearest returns an iterator positioned on the live point closest to q and
// its squared distance. ErrNotFound is returned when every point is erased.
func (t *Tree[T]) Nearest(q geom.XY) (*Iterator[T], float64, error) {
	if t.live == 0 {
		return nil, 0, ErrNotFound
	}
	queue := topk.New[int32, float64](1)
	t.search(t.root, q, queue, 0)

	idx, ok := queue.Best()
	if !ok {
		return nil, 0, ErrNotFound
	}
	score, _ := queue.BestScore()
	return t.at(idx), score, nil
}

// KNearest returns iterators on the k live points closest to q with their
// squared distances, both ordered from nearest to farthest.
func (t *Tree[T]) KNearest(q geom.XY, k int) ([]*Iterator[T], []float64, error) {
	if k < 1 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidK, k)
	}
	if t.live == 0 {
		return nil, nil, ErrNotFound
	}
	if k > t.live {
		return nil, nil, fmt.Errorf("%w: requested %d, live %d", ErrInsufficientLivePoints, k, t.live)
	}

	queue := topk.New[int32, float64](k)
	t.search(t.root, q, queue, 0)

	leaves := queue.BestK()
	its := make([]*Iterator[T], len(leaves))
	for i, idx := range leaves {
		its[i] = t.at(idx)
	}
	return its, queue.Scores(), nil
}

// search descends the side of each split holding q first. The far side can
// only hold a better candidate when its half-plane is within the current
// bound, which is +Inf until the queue is full.
func (t *Tree[T]) search(idx int32, q geom.XY, queue *topk.Queue[int32, float64], depth int) {
	n := &t.nodes[idx]
	if n.leaf() {
		if !n.erased {
			queue.Offer(idx, geom.SqDist(n.point.XY, q))
		}
		return
	}

	delta := q.Axis(depth) - n.point.Axis(depth)
	near, far := n.left, n.right
	if delta >= 0 {
		near, far = n.right, n.left
	}
	t.search(near, q, queue, depth+1)
	if delta*delta <= queue.Bound(math.Inf(1)) {
		t.search(far, q, queue, depth+1)
	}
}

// Erase tombstones the point the iterator is positioned on. Erasing an
// exhausted iterator or an already erased point does nothing and reports
// false. The tree is never restructured, so other iterators stay usable.
func (t *Tree[T]) Erase(it *Iterator[T]) (bool, error) {
	if it == nil || !it.Valid() {
		return false, nil
	}
	if it.tree != t {
		return false, ErrStaleHandle
	}
	n := &t.nodes[it.top()]
	if n.erased {
		return false, nil
	}
	n.erased = true
	t.live--
	return true, nil
}
