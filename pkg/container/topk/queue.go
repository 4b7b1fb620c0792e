package topk

import (
	"cmp"
	"sort"
)

func WithOrderAsc() Option {
	return func(o *options) {
		o.order = orderAsc
	}
}

// WithOrderDesc keeps the k highest scores instead of the k lowest.
func WithOrderDesc() Option {
	return func(o *options) {
		o.order = orderDesc
	}
}

type Option func(*options)

type order uint8

const (
	orderAsc order = iota
	orderDesc
)

type options struct {
	order order
}

type item[V any, S any] struct {
	value V
	score S
}

// New returns a queue keeping the k best values by ascending score.
func New[V any, S cmp.Ordered](k int, opts ...Option) *Queue[V, S] {
	return NewFunc[V, S](k, cmp.Less[S], opts...)
}

// NewFunc returns a queue ordered by less, which must be a strict total order.
// It panics if k < 1.
func NewFunc[V any, S any](k int, less func(a, b S) bool, opts ...Option) *Queue[V, S] {
	if k < 1 {
		panic("topk: capacity must be positive")
	}
	o := options{order: orderAsc}
	for _, opt := range opts {
		opt(&o)
	}
	q := &Queue[V, S]{cap: k, items: make([]item[V, S], 0, k)}
	if o.order == orderDesc {
		q.less = func(a, b S) bool { return less(b, a) }
	} else {
		q.less = less
	}
	return q
}

// Queue is a bounded selector of the k best (value, score) pairs offered so
// far, kept sorted from best to worst. It is not safe for concurrent use.
type Queue[V any, S any] struct {
	cap   int
	less  func(a, b S) bool
	items []item[V, S]
}

// Offer keeps the pair if the queue has room or score beats the worst kept
// score. Ties with the worst score are rejected once the queue is full.
func (q *Queue[V, S]) Offer(value V, score S) bool {
	if q.Full() && !q.less(score, q.items[len(q.items)-1].score) {
		return false
	}
	idx := sort.Search(len(q.items), func(i int) bool {
		return q.less(score, q.items[i].score)
	})
	if q.Full() {
		// drop the worst before shifting so the backing array never grows
		q.items = q.items[:len(q.items)-1]
	}
	q.items = append(q.items, item[V, S]{})
	copy(q.items[idx+1:], q.items[idx:])
	q.items[idx] = item[V, S]{value: value, score: score}
	return true
}

func (q *Queue[V, S]) Best() (V, bool) {
	if len(q.items) == 0 {
		var zero V
		return zero, false
	}
	return q.items[0].value, true
}

func (q *Queue[V, S]) BestScore() (S, bool) {
	if len(q.items) == 0 {
		var zero S
		return zero, false
	}
	return q.items[0].score, true
}

// Worst returns the k-th best score, available only once the queue is full.
func (q *Queue[V, S]) Worst() (S, bool) {
	if !q.Full() {
		var zero S
		return zero, false
	}
	return q.items[len(q.items)-1].score, true
}

// Bound is the score a new candidate has to beat: the worst kept score when
// the queue is full, def otherwise.
func (q *Queue[V, S]) Bound(def S) S {
	if s, ok := q.Worst(); ok {
		return s
	}
	return def
}

func (q *Queue[V, S]) BestK() []V {
	values := make([]V, len(q.items))
	for i := range q.items {
		values[i] = q.items[i].value
	}
	return values
}

func (q *Queue[V, S]) Scores() []S {
	scores := make([]S, len(q.items))
	for i := range q.items {
		scores[i] = q.items[i].score
	}
	return scores
}

func (q *Queue[V, S]) Seek(idx int) (V, S) {
	it := q.items[idx]
	return it.value, it.score
}

func (q *Queue[V, S]) Reset() { q.items = q.items[:0] }

func (q *Queue[V, S]) Full() bool { return len(q.items) == q.cap }

func (q *Queue[V, S]) Cap() int { return q.cap }

func (q *Queue[V, S]) Len() int { return len(q.items) }
