package config

import (
	"github.com/go-sod/spindex/internal/collect"
	"github.com/go-sod/spindex/internal/database"
	"github.com/go-sod/spindex/internal/erase"
	"github.com/go-sod/spindex/internal/index"
	"github.com/go-sod/spindex/internal/logging"
	"github.com/go-sod/spindex/internal/notify"
	"github.com/go-sod/spindex/internal/query"
	"github.com/go-sod/spindex/internal/scrape"
	"github.com/go-sod/spindex/internal/setup"
)

var (
	_ setup.DatabaseConfigProvider = (*Config)(nil)
	_ setup.NotifierConfigProvider = (*Config)(nil)
	_ setup.IndexConfigProvider    = (*Config)(nil)
	_ setup.LoggingConfigProvider  = (*Config)(nil)
	_ setup.ScrapeConfigProvider   = (*Config)(nil)
)

type Config struct {
	SrvAddr  string `envconfig:"SPINDEX_ADDR" default:":8787"`
	GRPCAddr string `envconfig:"SPINDEX_GRPC_ADDR" default:":8788"`
	// Simultaneous http connections, 0 is unlimited
	MaxConns int `envconfig:"SPINDEX_MAX_CONNS" default:"0"`
	// Bearer token required by the api endpoints, empty disables the check
	AuthToken        string `envconfig:"SPINDEX_AUTH_TOKEN" default:""`
	MetricsNamespace string `envconfig:"SPINDEX_METRICS_NAMESPACE" default:"spindex"`
	// pprof listener, empty disables it
	DebugAddr string `envconfig:"SPINDEX_DEBUG_ADDR" default:""`

	Log      logging.Config
	Index    index.Config
	Collect  collect.Config
	Query    query.Config
	Erase    erase.Config
	Database database.Config
	Notify   notify.Config
	Scrape   scrape.Config
}

func (c *Config) LoggingConfig() *logging.Config {
	return &c.Log
}

func (c *Config) IndexConfig() *index.Config {
	return &c.Index
}

func (c *Config) NotifyConfig() *notify.Config {
	return &c.Notify
}

func (c *Config) DatabaseConfig() *database.Config {
	return &c.Database
}

func (c *Config) ScrapeConfig() *scrape.Config {
	return &c.Scrape
}
