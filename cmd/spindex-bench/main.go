// Command spindex-bench builds a random tree in process and measures query
// latency. It runs standalone with console logging from zerolog; the server
// and its packages log through zap in internal/logging.
package main

import (
	"fmt"
	"os"

	"github.com/go-sod/spindex/internal/buildinfo"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("error loading environment variables")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msgf("unknown log level %q", cfg.LogLevel)
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msgf("benchmarking %d points, %d queries, k=%d, %d threads", cfg.Points, cfg.Queries, cfg.K, cfg.Threads)
	r, err := bench(cfg, os.Stderr)
	_, _ = fmt.Fprintln(os.Stdout, r)
	if err != nil {
		log.Fatal().Err(err).Msg("benchmark failed")
	}
	log.Debug().Msgf("tree depth %d after %s build", r.Depth, r.BuildTime)
}
