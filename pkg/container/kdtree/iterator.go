package kdtree

import (
	"iter"

	"github.com/go-sod/spindex/internal/geom"
)

// Iterator walks live points left to right. It keeps the path of nodes whose
// left subtree is being visited, so advancing never rewalks the tree.
//
// Iterators returned by queries are positioned on a single leaf and become
// invalid after one Next. An iterator parked on a point that gets erased keeps
// returning that point until Next is called.
type Iterator[T any] struct {
	tree  *Tree[T]
	stack []int32
}

// Begin returns an iterator on the first live point. Call Begin again to
// restart the walk.
func (t *Tree[T]) Begin() *Iterator[T] {
	it := &Iterator[T]{tree: t}
	it.descend(t.root)
	if it.Valid() && t.nodes[it.top()].erased {
		it.Next()
	}
	return it
}

// All yields every live point in iteration order.
func (t *Tree[T]) All() iter.Seq[geom.Point[T]] {
	return func(yield func(geom.Point[T]) bool) {
		for it := t.Begin(); it.Valid(); it.Next() {
			if !yield(it.Point()) {
				return
			}
		}
	}
}

func (t *Tree[T]) at(idx int32) *Iterator[T] {
	return &Iterator[T]{tree: t, stack: []int32{idx}}
}

func (it *Iterator[T]) Valid() bool {
	return len(it.stack) > 0
}

// Point returns the current point. It must only be called while Valid.
func (it *Iterator[T]) Point() geom.Point[T] {
	return it.tree.nodes[it.top()].point
}

// Erased reports whether the current point has been erased since the
// iterator reached it.
func (it *Iterator[T]) Erased() bool {
	return it.Valid() && it.tree.nodes[it.top()].erased
}

func (it *Iterator[T]) Next() {
	for len(it.stack) > 0 {
		it.pop()
		if len(it.stack) == 0 {
			return
		}
		it.descend(it.tree.nodes[it.pop()].right)
		if !it.tree.nodes[it.top()].erased {
			return
		}
	}
}

// Handle returns an iterator positioned only on the current point, suitable
// for keeping around and passing to Erase later.
func (it *Iterator[T]) Handle() *Iterator[T] {
	if !it.Valid() {
		return &Iterator[T]{tree: it.tree}
	}
	return it.tree.at(it.top())
}

func (it *Iterator[T]) Clone() *Iterator[T] {
	stack := make([]int32, len(it.stack))
	copy(stack, it.stack)
	return &Iterator[T]{tree: it.tree, stack: stack}
}

func (it *Iterator[T]) descend(idx int32) {
	for idx != nilNode {
		it.stack = append(it.stack, idx)
		idx = it.tree.nodes[idx].left
	}
}

func (it *Iterator[T]) top() int32 {
	return it.stack[len(it.stack)-1]
}

func (it *Iterator[T]) pop() int32 {
	idx := it.top()
	it.stack = it.stack[:len(it.stack)-1]
	return idx
}
