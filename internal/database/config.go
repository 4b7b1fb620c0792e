package database

import "time"

type Config struct {
	FileName string `envconfig:"SPINDEX_DB_FILE" default:"spindex.db"`
	// How long to wait for the file lock held by another process
	OpenTimeout time.Duration `envconfig:"SPINDEX_DB_OPEN_TIMEOUT" default:"5s"`
	NoSync      bool          `envconfig:"SPINDEX_DB_NO_SYNC" default:"false"`
}
