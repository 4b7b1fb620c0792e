package query

import "time"

type Config struct {
	RequestTimeout  time.Duration `envconfig:"SPINDEX_QUERY_REQUEST_TIMEOUT" default:"30s"`
	MaxDataItemsLen int           `envconfig:"SPINDEX_QUERY_MAX_DATA_ITEMS_LEN" default:"100"`
	MaxK            int           `envconfig:"SPINDEX_QUERY_MAX_K" default:"1000"`
	// Queries of one request evaluated at the same time
	Concurrency int `envconfig:"SPINDEX_QUERY_CONCURRENCY" default:"8"`
}
