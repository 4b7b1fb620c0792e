package main

type Config struct {
	Points  int    `envconfig:"SPINDEX_BENCH_POINTS" default:"100000"`
	Queries int    `envconfig:"SPINDEX_BENCH_QUERIES" default:"10000"`
	K       int    `envconfig:"SPINDEX_BENCH_K" default:"8"`
	Span    uint32 `envconfig:"SPINDEX_BENCH_SPAN" default:"10000"`
	Seed    uint32 `envconfig:"SPINDEX_BENCH_SEED" default:"1"`
	Threads int    `envconfig:"SPINDEX_BENCH_THREADS" default:"1"`
	// Every n-th point is erased before querying, 0 erases nothing
	EraseEvery int `envconfig:"SPINDEX_BENCH_ERASE_EVERY" default:"0"`
	// Compare every answer with a linear scan
	Verify   bool   `envconfig:"SPINDEX_BENCH_VERIFY" default:"true"`
	Progress bool   `envconfig:"SPINDEX_BENCH_PROGRESS" default:"true"`
	LogLevel string `envconfig:"SPINDEX_BENCH_LOG_LEVEL" default:"info"`
}
