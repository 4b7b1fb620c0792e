package index

import (
	"sync"
	"time"

	"github.com/go-sod/spindex/internal/geom"
	"github.com/go-sod/spindex/internal/place/model"
	"github.com/go-sod/spindex/pkg/container/kdtree"
	"github.com/google/uuid"
)

type placeTree = kdtree.Tree[model.Place]

type handle = *kdtree.Iterator[model.Place]

// layer is the searchable index of one layer. Queries hold the read lock,
// erase and swap hold the write lock. Trees are built off-lock and installed
// by swap.
type layer struct {
	mtx     sync.RWMutex
	name    string
	tree    *placeTree
	handles map[uuid.UUID]handle
	// erased since the current tree was built, applied again on swap
	erased  map[uuid.UUID]struct{}
	builtAt time.Time
}

func newLayer(name string) *layer {
	return &layer{
		name:    name,
		handles: map[uuid.UUID]handle{},
		erased:  map[uuid.UUID]struct{}{},
	}
}

// buildTree indexes places and returns the tree with a handle per place id.
func buildTree(places []model.Place) (*placeTree, map[uuid.UUID]handle, error) {
	points := make([]geom.Point[model.Place], len(places))
	for i := range places {
		points[i] = places[i].Point()
	}
	tree, err := kdtree.Build(points)
	if err != nil {
		return nil, nil, err
	}
	handles := make(map[uuid.UUID]handle, len(places))
	for it := tree.Begin(); it.Valid(); it.Next() {
		handles[it.Point().Payload.ID] = it.Handle()
	}
	return tree, handles, nil
}

// swap installs a freshly built tree. Places erased while it was being built
// may have been read from storage before their deletion, so they are
// tombstoned again.
func (l *layer) swap(tree *placeTree, handles map[uuid.UUID]handle) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	for id := range l.erased {
		if h, ok := handles[id]; ok {
			_, _ = tree.Erase(h)
		}
	}
	l.erased = map[uuid.UUID]struct{}{}
	l.handles = handles
	l.tree = tree
	l.builtAt = time.Now()
}

func (l *layer) nearest(q geom.XY) (Neighbour, error) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	tree := l.tree
	if tree == nil {
		return Neighbour{}, kdtree.ErrNotFound
	}
	it, score, err := tree.Nearest(q)
	if err != nil {
		return Neighbour{}, err
	}
	return Neighbour{Place: it.Point().Payload, SqDist: score}, nil
}

func (l *layer) kNearest(q geom.XY, k int) ([]Neighbour, error) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	tree := l.tree
	if tree == nil {
		return nil, kdtree.ErrNotFound
	}
	its, scores, err := tree.KNearest(q, k)
	if err != nil {
		return nil, err
	}
	out := make([]Neighbour, len(its))
	for i := range its {
		out[i] = Neighbour{Place: its[i].Point().Payload, SqDist: scores[i]}
	}
	return out, nil
}

// live reports whether the place is indexed and not erased yet.
func (l *layer) live(id uuid.UUID) (bool, error) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	h, ok := l.handles[id]
	if l.tree == nil || !ok {
		return false, ErrPlaceNotFound
	}
	return !h.Erased(), nil
}

// erase tombstones the place and reports whether it was live.
func (l *layer) erase(id uuid.UUID) (bool, int, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	tree := l.tree
	h, ok := l.handles[id]
	if tree == nil || !ok {
		return false, 0, ErrPlaceNotFound
	}
	erased, err := tree.Erase(h)
	if err != nil {
		return false, tree.Len(), err
	}
	if erased {
		l.erased[id] = struct{}{}
	}
	return erased, tree.Len(), nil
}

func (l *layer) stats() Stats {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	s := Stats{Layer: l.name, BuiltAt: l.builtAt}
	if tree := l.tree; tree != nil {
		s.Live = tree.Len()
		s.Size = tree.Size()
		s.Nodes = tree.Nodes()
		s.Depth = tree.Depth()
	}
	return s
}
