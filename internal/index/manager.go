// Package index keeps one spatial index per layer of stored places.
//
// Trees are static, so collected places are first written to storage and
// become searchable once their layer is rebuilt. Erased places disappear from
// queries at once.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/go-sod/spindex/internal/database"
	"github.com/go-sod/spindex/internal/geom"
	"github.com/go-sod/spindex/internal/logging"
	"github.com/go-sod/spindex/internal/metrics"
	"github.com/go-sod/spindex/internal/notify"
	placeDb "github.com/go-sod/spindex/internal/place/database"
	"github.com/go-sod/spindex/internal/place/model"
	"github.com/google/uuid"
)

var (
	ErrLayerNotFound = errors.New("layer not found")
	// The place is unknown to the current index of its layer. Places
	// collected after the last rebuild are not indexed yet.
	ErrPlaceNotFound = errors.New("place not found")
	ErrInvalidPlace  = errors.New("invalid place")
	ErrShuttingDown  = errors.New("index manager is shutting down")
)

type ProvideFn func(notify.Notifier, chan<- error) (Manager, error)

type Manager interface {
	Collector
	Querier
	Eraser
	// Run loads every stored layer and starts the background jobs
	Run(context.Context) error
	Stop()
	// Sync flushes collected places and rebuilds the layers they belong to
	Sync(context.Context) error
	Layers() []string
	Stats(layer string) (Stats, error)
}

type Collector interface {
	Collect(ctx context.Context, in ...model.Place) error
}

type Querier interface {
	Nearest(ctx context.Context, layer string, q geom.XY) (Neighbour, error)
	KNearest(ctx context.Context, layer string, q geom.XY, k int) ([]Neighbour, error)
}

type Eraser interface {
	Erase(ctx context.Context, layer string, id uuid.UUID) (bool, error)
}

// Neighbour is a query answer with its squared euclidean distance.
type Neighbour struct {
	Place  model.Place
	SqDist float64
}

func (n Neighbour) Distance() float64 {
	return math.Sqrt(n.SqDist)
}

type Stats struct {
	Layer   string    `json:"layer"`
	Live    int       `json:"live"`
	Size    int       `json:"size"`
	Nodes   int       `json:"nodes"`
	Depth   int       `json:"depth"`
	BuiltAt time.Time `json:"builtAt"`
}

type (
	fetchPlacesFn        func(context.Context, placeDb.FilterFn) ([]model.Place, error)
	fetchPlacesByLayerFn func(string, placeDb.FilterFn) ([]model.Place, error)
	deletePlaceFn        func(context.Context, string, uuid.UUID) error
	deletePlacesFn       func(context.Context, []model.Place) error
	appendPlacesFn       func(context.Context, []model.Place) error
	fetchKeysFn          func() ([]string, error)
	countByLayerFn       func(string) (int, error)
)

type pullDependencies struct {
	fetchPlaces        fetchPlacesFn
	fetchPlacesByLayer fetchPlacesByLayerFn
	deletePlace        deletePlaceFn
	deletePlaces       deletePlacesFn
	appendPlaces       appendPlacesFn
	fetchKeys          fetchKeysFn
	countByLayer       countByLayerFn
}

func depsFor(db *placeDb.DB) pullDependencies {
	return pullDependencies{
		fetchPlaces:        db.FindAll,
		fetchPlacesByLayer: db.FindByLayer,
		deletePlace:        db.Delete,
		deletePlaces:       db.DeleteMany,
		appendPlaces:       db.AppendMany,
		fetchKeys:          db.Keys,
		countByLayer:       db.CountByLayer,
	}
}

type Options struct {
	maxItemsStored     int
	maxStorageTime     time.Duration
	dbFlushTime        time.Duration
	dbFlushSize        int
	rebuildDBTime      time.Duration
	rebuildTime        time.Duration
	rebuildConcurrency int
}

type Option func(*manager)

func WithDBFlushTime(t time.Duration) Option {
	return func(o *manager) {
		o.opts.dbFlushTime = t
	}
}

func WithDBFlushSize(n int) Option {
	return func(o *manager) {
		o.opts.dbFlushSize = n
	}
}

func WithRebuildDBTime(t time.Duration) Option {
	return func(o *manager) {
		o.opts.rebuildDBTime = t
	}
}

func WithRebuildTime(t time.Duration) Option {
	return func(o *manager) {
		o.opts.rebuildTime = t
	}
}

func WithRebuildConcurrency(n int) Option {
	return func(o *manager) {
		o.opts.rebuildConcurrency = n
	}
}

func WithMaxItemsStored(n int) Option {
	return func(o *manager) {
		o.opts.maxItemsStored = n
	}
}

func WithMaxStorageTime(t time.Duration) Option {
	return func(o *manager) {
		o.opts.maxStorageTime = t
	}
}

func New(db *database.DB, notifier notify.Notifier, shutdownCh chan<- error, opts ...Option) (*manager, error) {
	if db == nil {
		return nil, fmt.Errorf("database instance is not created")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier instance is not created")
	}
	return newManager(depsFor(placeDb.New(db)), notifier, shutdownCh, opts...), nil
}

func newManager(deps pullDependencies, notifier notify.Notifier, shutdownCh chan<- error, opts ...Option) *manager {
	d := &manager{
		deps:       deps,
		notifier:   notifier,
		shutdownCh: shutdownCh,
		layers:     map[string]*layer{},
		opts: Options{
			dbFlushTime:        time.Second,
			dbFlushSize:        128,
			rebuildDBTime:      15 * time.Second,
			rebuildTime:        2 * time.Second,
			rebuildConcurrency: 4,
		},
	}
	for _, f := range opts {
		f(d)
	}

	d.dbScheduler = newDBScheduler(dbSchedulerConfig{
		deps:               deps,
		maxItemsStored:     d.opts.maxItemsStored,
		maxStorageTime:     d.opts.maxStorageTime,
		rebuildDBTime:      d.opts.rebuildDBTime,
		rebuildTime:        d.opts.rebuildTime,
		rebuildConcurrency: d.opts.rebuildConcurrency,
		rebuild:            d.rebuildLayer,
	})
	d.dbTxExecutor = newDBTxExecutor(dbTxExecutorOptions{
		deps:      deps,
		flushSize: d.opts.dbFlushSize,
		flushTime: d.opts.dbFlushTime,
		flushed: func(places []model.Place) {
			for i := range places {
				d.dbScheduler.markDirty(places[i].Layer)
			}
		},
	})

	return d
}

type manager struct {
	mtx sync.RWMutex

	opts     Options
	deps     pullDependencies
	notifier notify.Notifier
	// buffered writes of collected places
	dbTxExecutor *dbTxExecutor
	// trimming and rebuilding of layers
	dbScheduler *dbScheduler

	layers     map[string]*layer
	shutdownCh chan<- error
	closed     bool
	cancel     func()
}

func (d *manager) Run(ctx context.Context) error {
	if err := d.bulkLoad(ctx); err != nil {
		return fmt.Errorf("can not start index manager: %w", err)
	}
	if err := d.notifier.Run(ctx); err != nil {
		return fmt.Errorf("notifier.Run: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.dbScheduler.schedule(ctx)
	go func() {
		d.dbTxExecutor.flusher(ctx)
		d.mtx.Lock()
		d.closed = true
		d.mtx.Unlock()
		err := d.dbTxExecutor.shutdown()
		d.notifier.Stop()
		if d.shutdownCh != nil {
			d.shutdownCh <- err
		}
	}()

	return nil
}

func (d *manager) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}

// bulkLoad builds the index of every stored layer.
func (d *manager) bulkLoad(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	keys, err := d.deps.fetchKeys()
	if err != nil {
		return fmt.Errorf("error fetching layers: %w", err)
	}
	for _, key := range keys {
		if err := d.rebuildLayer(ctx, key); err != nil {
			return err
		}
	}
	logger.Infof("loaded %d layers", len(keys))
	return nil
}

// rebuildLayer reads the stored places of a layer, builds a new tree outside
// of any lock and swaps it in. A layer without places is dropped.
func (d *manager) rebuildLayer(ctx context.Context, name string) error {
	logger := logging.FromContext(ctx)
	places, err := d.deps.fetchPlacesByLayer(name, nil)
	if err != nil {
		metrics.RecordRebuild(ctx, name, 0, err)
		return fmt.Errorf("fetch places of layer %s: %w", name, err)
	}

	if len(places) == 0 {
		d.mtx.Lock()
		delete(d.layers, name)
		d.mtx.Unlock()
		logger.Infof("layer %s is empty, dropped", name)
		return nil
	}

	started := time.Now()
	tree, handles, err := buildTree(places)
	if err != nil {
		metrics.RecordRebuild(ctx, name, 0, err)
		return fmt.Errorf("build layer %s: %w", name, err)
	}

	d.mtx.Lock()
	l, ok := d.layers[name]
	if !ok {
		l = newLayer(name)
		d.layers[name] = l
	}
	d.mtx.Unlock()

	l.swap(tree, handles)
	live := tree.Len()
	metrics.RecordRebuild(ctx, name, live, nil)
	d.notifier.Notify(notify.Event{Type: notify.EventRebuilt, Layer: name, Live: live, Time: time.Now()})
	logger.Debugf("layer %s rebuilt with %d places in %v", name, len(places), time.Since(started))
	return nil
}

func (d *manager) layer(name string) (*layer, error) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	l, ok := d.layers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLayerNotFound, name)
	}
	return l, nil
}

// Collect validates places and queues them for storage.
func (d *manager) Collect(ctx context.Context, data ...model.Place) error {
	for i := range data {
		if data[i].Layer == "" {
			return fmt.Errorf("%w: place %s has no layer", ErrInvalidPlace, data[i].ID)
		}
		if math.IsNaN(data[i].X) || math.IsNaN(data[i].Y) {
			return fmt.Errorf("%w: place %s has a NaN coordinate", ErrInvalidPlace, data[i].ID)
		}
	}

	d.mtx.RLock()
	defer d.mtx.RUnlock()
	if d.closed {
		return ErrShuttingDown
	}
	d.dbTxExecutor.append(ctx, data...)
	return nil
}

func (d *manager) Nearest(ctx context.Context, name string, q geom.XY) (Neighbour, error) {
	started := time.Now()
	l, err := d.layer(name)
	if err != nil {
		return Neighbour{}, err
	}
	n, err := l.nearest(q)
	metrics.RecordQuery(ctx, metrics.OpNearest, name, started, err)
	return n, err
}

func (d *manager) KNearest(ctx context.Context, name string, q geom.XY, k int) ([]Neighbour, error) {
	started := time.Now()
	l, err := d.layer(name)
	if err != nil {
		return nil, err
	}
	list, err := l.kNearest(q, k)
	metrics.RecordQuery(ctx, metrics.OpKNearest, name, started, err)
	return list, err
}

// Erase removes a place from storage and then from the index of its layer.
// It reports false when the place was already erased. A failed delete leaves
// the place live so the erase can be retried.
func (d *manager) Erase(ctx context.Context, name string, id uuid.UUID) (bool, error) {
	l, err := d.layer(name)
	if err != nil {
		return false, err
	}
	if ok, err := l.live(id); err != nil || !ok {
		return false, err
	}

	if err := d.deps.deletePlace(ctx, name, id); err != nil {
		return false, fmt.Errorf("delete place %s: %w", id, err)
	}
	erased, live, err := l.erase(id)
	switch {
	case errors.Is(err, ErrPlaceNotFound):
		// a rebuild swapped in a tree read after the delete
		erased, live = true, l.stats().Live
	case err != nil || !erased:
		return false, err
	}
	metrics.RecordErase(ctx, name, live)
	d.notifier.Notify(notify.Event{
		Type:  notify.EventErased,
		Layer: name,
		ID:    id.String(),
		Live:  live,
		Time:  time.Now(),
	})
	return true, nil
}

func (d *manager) Sync(ctx context.Context) error {
	if err := d.dbTxExecutor.bulkAppend(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return d.dbScheduler.rebuildDirty(ctx)
}

func (d *manager) Layers() []string {
	d.mtx.RLock()
	names := make([]string, 0, len(d.layers))
	for name := range d.layers {
		names = append(names, name)
	}
	d.mtx.RUnlock()
	sort.Strings(names)
	return names
}

func (d *manager) Stats(name string) (Stats, error) {
	l, err := d.layer(name)
	if err != nil {
		return Stats{}, err
	}
	return l.stats(), nil
}
