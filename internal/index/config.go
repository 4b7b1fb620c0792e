package index

import (
	"time"
)

type Config struct {
	// Timer for trimming layers in the DB
	RebuildDBTime time.Duration `envconfig:"SPINDEX_REBUILD_DB_TIME" default:"15s"`
	// Timer for rebuilding the indexes of layers changed since the last build
	RebuildTime time.Duration `envconfig:"SPINDEX_REBUILD_TIME" default:"2s"`
	// Layers rebuilt at the same time
	RebuildConcurrency int `envconfig:"SPINDEX_REBUILD_CONCURRENCY" default:"4"`
	// Maximum number of places kept for each layer, 0 keeps everything
	MaxItemsStored int `envconfig:"SPINDEX_MAX_ITEMS_STORED" default:"0"`
	// Maximum retention period of places, 0 keeps everything
	MaxStorageTime time.Duration `envconfig:"SPINDEX_MAX_STORAGE_TIME" default:"0s"`
	// Buffer size in dbTxExecutor after which places are flushed to disk
	DBFlushSize int `envconfig:"SPINDEX_DB_FLUSH_SIZE" default:"128"`
	// Maximum time a place waits in the dbTxExecutor buffer
	DBFlushTime time.Duration `envconfig:"SPINDEX_DB_FLUSH_TIME" default:"1s"`
}
