package erase

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"SPINDEX_ERASE_REQUEST_TIMEOUT" default:"30s"`
	MaxIDsLen      int           `envconfig:"SPINDEX_ERASE_MAX_IDS_LEN" default:"1000"`
}
