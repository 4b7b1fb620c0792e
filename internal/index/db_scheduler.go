package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-sod/spindex/internal/logging"
	"github.com/go-sod/spindex/internal/place/model"
	"github.com/go-sod/spindex/pkg/rworker"
)

type dbSchedulerConfig struct {
	deps               pullDependencies
	maxItemsStored     int
	maxStorageTime     time.Duration
	rebuildDBTime      time.Duration
	rebuildTime        time.Duration
	rebuildConcurrency int
	// rebuilds the index of one layer from storage
	rebuild func(ctx context.Context, layer string) error
}

func newDBScheduler(config dbSchedulerConfig) *dbScheduler {
	return &dbScheduler{opts: config, dirty: map[string]struct{}{}}
}

// dbScheduler trims layers in the DB and rebuilds the indexes of layers whose
// stored places changed.
type dbScheduler struct {
	mtx   sync.Mutex
	opts  dbSchedulerConfig
	dirty map[string]struct{}
}

func (s *dbScheduler) markDirty(layers ...string) {
	s.mtx.Lock()
	for _, l := range layers {
		s.dirty[l] = struct{}{}
	}
	s.mtx.Unlock()
}

func (s *dbScheduler) takeDirty() []string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if len(s.dirty) == 0 {
		return nil
	}
	layers := make([]string, 0, len(s.dirty))
	for l := range s.dirty {
		layers = append(layers, l)
	}
	s.dirty = map[string]struct{}{}
	sort.Strings(layers)
	return layers
}

// rebuildDirty rebuilds every layer marked dirty. A layer that fails is
// marked dirty again.
func (s *dbScheduler) rebuildDirty(ctx context.Context) error {
	layers := s.takeDirty()
	if len(layers) == 0 {
		return nil
	}
	pool := rworker.New(s.opts.rebuildConcurrency)
	for _, name := range layers {
		name := name
		pool.Job(func() error {
			if err := s.opts.rebuild(ctx, name); err != nil {
				s.markDirty(name)
				return fmt.Errorf("rebuild layer %s: %w", name, err)
			}
			return nil
		})
	}
	return pool.Wait()
}

// processOutdatedPlaces deletes the places of a layer older than maxStorageTime.
func (s *dbScheduler) processOutdatedPlaces(ctx context.Context, layer string) (int, error) {
	places, err := s.opts.deps.fetchPlacesByLayer(layer, func(place model.Place) bool {
		return time.Since(place.CreatedAt) > s.opts.maxStorageTime
	})
	if err != nil {
		return 0, fmt.Errorf("unable find places by layer %s: %w", layer, err)
	}
	if len(places) == 0 {
		return 0, nil
	}
	if err := s.opts.deps.deletePlaces(ctx, places); err != nil {
		return 0, fmt.Errorf("unable delete outdated places of layer %s: %w", layer, err)
	}
	return len(places), nil
}

// processOverSizePlaces keeps the maxItemsStored newest places of a layer.
func (s *dbScheduler) processOverSizePlaces(ctx context.Context, layer string) (int, error) {
	places, err := s.opts.deps.fetchPlacesByLayer(layer, nil)
	if err != nil {
		return 0, fmt.Errorf("unable find places by layer %s: %w", layer, err)
	}
	if len(places) <= s.opts.maxItemsStored {
		return 0, nil
	}

	sort.Slice(places, func(i, j int) bool {
		return places[i].CreatedAt.Before(places[j].CreatedAt)
	})

	oldest := places[:len(places)-s.opts.maxItemsStored]
	if err := s.opts.deps.deletePlaces(ctx, oldest); err != nil {
		return 0, fmt.Errorf("unable delete oversize places of layer %s: %w", layer, err)
	}
	return len(oldest), nil
}

func (s *dbScheduler) rebuildOutdated(ctx context.Context) error {
	keys, err := s.opts.deps.fetchKeys()
	if err != nil {
		return fmt.Errorf("unable to fetch layer keys: %w", err)
	}
	for _, key := range keys {
		n, err := s.processOutdatedPlaces(ctx, key)
		if err != nil {
			return err
		}
		if n > 0 {
			s.markDirty(key)
		}
	}
	return nil
}

func (s *dbScheduler) rebuildSize(ctx context.Context) error {
	keys, err := s.opts.deps.fetchKeys()
	if err != nil {
		return fmt.Errorf("unable fetch keys: %w", err)
	}
	for _, key := range keys {
		length, err := s.opts.deps.countByLayer(key)
		if err != nil {
			return fmt.Errorf("unable count by layer %s: %w", key, err)
		}
		if length <= s.opts.maxItemsStored {
			continue
		}
		n, err := s.processOverSizePlaces(ctx, key)
		if err != nil {
			return err
		}
		if n > 0 {
			s.markDirty(key)
		}
	}
	return nil
}

func (s *dbScheduler) trim(ctx context.Context) {
	logger := logging.FromContext(ctx)
	if s.opts.maxItemsStored > 0 {
		if err := s.rebuildSize(ctx); err != nil {
			logger.Errorf("unable db rebuild size: %v", err)
		}
	}
	if s.opts.maxStorageTime > 0 {
		if err := s.rebuildOutdated(ctx); err != nil {
			logger.Errorf("unable db rebuild outdated: %v", err)
		}
	}
}

func (s *dbScheduler) schedule(ctx context.Context) {
	logger := logging.FromContext(ctx)
	dbTicker := time.NewTicker(s.opts.rebuildDBTime)
	rebuildTicker := time.NewTicker(s.opts.rebuildTime)
	defer dbTicker.Stop()
	defer rebuildTicker.Stop()
	for {
		select {
		case <-dbTicker.C:
			s.trim(ctx)
		case <-rebuildTicker.C:
			if err := s.rebuildDirty(ctx); err != nil {
				logger.Errorf("unable rebuild indexes: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
