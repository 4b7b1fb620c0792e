package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sod/spindex/internal/database"
	"github.com/go-sod/spindex/internal/place/model"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

const (
	layerKeys = "layer:keys:"
	prefix    = "place:"
)

// ErrPlaceNotFound is returned by Get for an unknown layer or id.
var ErrPlaceNotFound = errors.New("place not found")

type FilterFn func(place model.Place) bool

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

// DB stores places in one bucket per layer, keyed by the raw place id.
// The layer names are kept in a separate bucket.
type DB struct {
	sDB *database.DB
}

func (db *DB) extractKey(key string) string {
	return strings.TrimPrefix(key, prefix)
}

func bucketName(layer string) []byte {
	return []byte(prefix + layer)
}

// Keys returns the names of all layers that have ever been stored.
func (db *DB) Keys() ([]string, error) {
	var keys []string
	err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(layerKeys))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, db.extractKey(string(k)))
		}
		return nil
	})

	return keys, err
}

func put(tx *bolt.Tx, place model.Place) error {
	b, err := tx.CreateBucketIfNotExists(bucketName(place.Layer))
	if err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	encoded, err := model.Encode(place)
	if err != nil {
		return err
	}
	if err := b.Put(place.ID[:], encoded); err != nil {
		return fmt.Errorf("put to bucket error: %w", err)
	}
	keys, err := tx.CreateBucketIfNotExists([]byte(layerKeys))
	if err != nil {
		return fmt.Errorf("unable create layers bucket: %w", err)
	}
	if err := keys.Put(bucketName(place.Layer), []byte{0x0}); err != nil {
		return fmt.Errorf("unable put to layers bucket: %w", err)
	}
	return nil
}

func (db *DB) Store(_ context.Context, place model.Place) error {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		return put(tx, place)
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

// AppendMany writes places through bolt's batch so concurrent callers share commits.
func (db *DB) AppendMany(_ context.Context, places []model.Place) error {
	if len(places) == 0 {
		return nil
	}
	if err := db.sDB.DB.Batch(func(tx *bolt.Tx) error {
		for _, place := range places {
			if err := put(tx, place); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("batch transaction error: %w", err)
	}

	return nil
}

func (db *DB) DeleteMany(_ context.Context, places []model.Place) error {
	if len(places) == 0 {
		return nil
	}
	if err := db.sDB.DB.Batch(func(tx *bolt.Tx) error {
		for _, place := range places {
			b := tx.Bucket(bucketName(place.Layer))
			if b == nil {
				continue
			}
			if err := b.Delete(place.ID[:]); err != nil {
				return fmt.Errorf("unable delete: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("batch transaction error: %w", err)
	}

	return nil
}

func (db *DB) Delete(_ context.Context, layer string, id uuid.UUID) error {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(layer))
		if b == nil {
			return nil
		}

		return b.Delete(id[:])
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

func (db *DB) Get(layer string, id uuid.UUID) (model.Place, error) {
	var place model.Place
	err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(layer))
		if b == nil {
			return ErrPlaceNotFound
		}
		v := b.Get(id[:])
		if v == nil {
			return ErrPlaceNotFound
		}
		decoded, err := model.Decode(v)
		if err != nil {
			return err
		}
		place = decoded
		return nil
	})

	return place, err
}

func scan(b *bolt.Bucket, filter FilterFn, list []model.Place) ([]model.Place, error) {
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		place, err := model.Decode(v)
		if err != nil {
			return nil, fmt.Errorf("key %x: %w", k, err)
		}
		if filter == nil || filter(place) {
			list = append(list, place)
		}
	}
	return list, nil
}

// FindAll returns the places of every layer accepted by filter.
func (db *DB) FindAll(_ context.Context, filter FilterFn) ([]model.Place, error) {
	var list []model.Place
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		keys := tx.Bucket([]byte(layerKeys))
		if keys == nil {
			return nil
		}
		return keys.ForEach(func(k, _ []byte) error {
			b := tx.Bucket(k)
			if b == nil {
				return nil
			}
			var err error
			list, err = scan(b, filter, list)
			return err
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}

func (db *DB) FindByLayer(layer string, filter FilterFn) ([]model.Place, error) {
	var list []model.Place
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(layer))
		if b == nil {
			return nil
		}
		var err error
		list, err = scan(b, filter, list)
		return err
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}

func (db *DB) CountByLayer(layer string) (int, error) {
	var length int
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(layer))
		if b == nil {
			return nil
		}
		length = b.Stats().KeyN
		return nil
	}); err != nil {
		return 0, fmt.Errorf("view transaction error: %w", err)
	}

	return length, nil
}
