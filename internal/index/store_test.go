package index

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/go-sod/spindex/internal/geom"
	placeDb "github.com/go-sod/spindex/internal/place/database"
	"github.com/go-sod/spindex/internal/place/model"
	"github.com/google/uuid"
)

// memStore is an in-memory place storage for tests.
type memStore struct {
	mtx    sync.Mutex
	layers map[string]map[uuid.UUID]model.Place
	// returned by appendMany when set
	appendErr error
	// returned by delete when set
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{layers: map[string]map[uuid.UUID]model.Place{}}
}

func (s *memStore) deps() pullDependencies {
	return pullDependencies{
		fetchPlaces:        s.findAll,
		fetchPlacesByLayer: s.findByLayer,
		deletePlace:        s.delete,
		deletePlaces:       s.deleteMany,
		appendPlaces:       s.appendMany,
		fetchKeys:          s.keys,
		countByLayer:       s.count,
	}
}

func (s *memStore) appendMany(_ context.Context, places []model.Place) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	for _, p := range places {
		if _, ok := s.layers[p.Layer]; !ok {
			s.layers[p.Layer] = map[uuid.UUID]model.Place{}
		}
		s.layers[p.Layer][p.ID] = p
	}
	return nil
}

func (s *memStore) findAll(_ context.Context, filter placeDb.FilterFn) ([]model.Place, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	var out []model.Place
	for _, l := range s.layers {
		for _, p := range l {
			if filter == nil || filter(p) {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (s *memStore) findByLayer(layer string, filter placeDb.FilterFn) ([]model.Place, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	var out []model.Place
	for _, p := range s.layers[layer] {
		if filter == nil || filter(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) delete(_ context.Context, layer string, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.layers[layer], id)
	return nil
}

func (s *memStore) deleteMany(_ context.Context, places []model.Place) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, p := range places {
		delete(s.layers[p.Layer], p.ID)
	}
	return nil
}

func (s *memStore) keys() ([]string, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	var out []string
	for k := range s.layers {
		out = append(out, k)
	}
	return out, nil
}

func (s *memStore) failDelete(err error) {
	s.mtx.Lock()
	s.deleteErr = err
	s.mtx.Unlock()
}

func (s *memStore) count(layer string) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.layers[layer]), nil
}

func newPlace(layer string, x, y float64) model.Place {
	return model.NewPlace(layer, geom.NewXY(x, y), time.Now(), json.RawMessage(`{}`))
}

func newPlaceAt(layer string, x, y float64, createdAt time.Time) model.Place {
	return model.NewPlace(layer, geom.NewXY(x, y), createdAt, nil)
}

func nan() float64 {
	return math.NaN()
}
