package setup

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-sod/spindex/internal/database"
	"github.com/go-sod/spindex/internal/index"
	"github.com/go-sod/spindex/internal/logging"
	"github.com/go-sod/spindex/internal/notify"
	"github.com/go-sod/spindex/internal/scrape"
	"github.com/go-sod/spindex/internal/srvenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigFileEnv names an optional toml file whose keys are environment
// variable names. Variables already set in the environment win.
const ConfigFileEnv = "SPINDEX_CONFIG_FILE"

type LoggingConfigProvider interface {
	LoggingConfig() *logging.Config
}

type IndexConfigProvider interface {
	IndexConfig() *index.Config
}

type NotifierConfigProvider interface {
	NotifyConfig() *notify.Config
}

type ScrapeConfigProvider interface {
	ScrapeConfig() *scrape.Config
}

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

// Setup fills config from the environment and prepares the providers the
// config asks for. The returned context carries the configured logger.
func Setup(ctx context.Context, config interface{}) (context.Context, *srvenv.SrvEnv, error) {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := LoadFile(path); err != nil {
			return ctx, nil, fmt.Errorf("error loading config file: %w", err)
		}
	}
	if err := envconfig.Process("", config); err != nil {
		return ctx, nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	if logConfigProvider, ok := config.(LoggingConfigProvider); ok {
		cfg := logConfigProvider.LoggingConfig()
		ctx = logging.WithLogger(ctx, logging.NewLogger(cfg.Level, cfg.Development))
	}
	logger := logging.FromContext(ctx)

	var (
		serverEnvOpts []srvenv.Option
		db            *database.DB
	)
	if dbConfigProvider, ok := config.(DatabaseConfigProvider); ok {
		logger.Info("Configuring db")
		dbFromEnv, err := database.NewFromEnv(ctx, dbConfigProvider.DatabaseConfig())
		if err != nil {
			return ctx, nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		db = dbFromEnv
		serverEnvOpts = append(serverEnvOpts, srvenv.WithDatabase(db))
	}

	if notifyConfigProvider, ok := config.(NotifierConfigProvider); ok {
		logger.Info("Configuring notifier")
		serverEnvOpts = append(serverEnvOpts, srvenv.WithNotifier(ProvideNotifierFor(notifyConfigProvider)))
	}

	if indexConfigProvider, ok := config.(IndexConfigProvider); ok {
		logger.Info("Configuring index")
		if db == nil {
			return ctx, nil, fmt.Errorf("index requires a database config")
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithIndex(ProvideIndexFor(indexConfigProvider, db)))
	}

	if scrapeConfigProvider, ok := config.(ScrapeConfigProvider); ok && len(scrapeConfigProvider.ScrapeConfig().Targets) > 0 {
		logger.Info("Configuring scrapper")
		serverEnvOpts = append(serverEnvOpts, srvenv.WithScrapper(ProvideScrapperFor(scrapeConfigProvider)))
	}

	return ctx, srvenv.New(serverEnvOpts...), nil
}

// LoadFile exports the keys of a toml file as environment variables unless
// they are already set.
func LoadFile(path string) error {
	var values map[string]interface{}
	if _, err := toml.DecodeFile(path, &values); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	for k, v := range values {
		key := strings.ToUpper(k)
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		value, err := envValue(v)
		if err != nil {
			return fmt.Errorf("key %s: %w", k, err)
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func envValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int64, float64, bool:
		return fmt.Sprint(val), nil
	case time.Time:
		return val.Format(time.RFC3339), nil
	case []interface{}:
		items := make([]string, len(val))
		for i := range val {
			item, err := envValue(val[i])
			if err != nil {
				return "", err
			}
			items[i] = item
		}
		return strings.Join(items, ","), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

func ProvideScrapperFor(provider ScrapeConfigProvider) scrape.ProvideFn {
	cfg := provider.ScrapeConfig()
	return func(collector index.Collector, shutdownCh chan<- error) (scrape.Manager, error) {
		return scrape.New(
			collector,
			shutdownCh,
			scrape.WithInterval(cfg.Interval),
			scrape.WithMaxConcurrentRequest(cfg.MaxConcurrentRequest),
			scrape.WithRequestTimeout(cfg.RequestTimeout),
			scrape.WithTargets(cfg.Targets),
		)
	}
}

func ProvideNotifierFor(provider NotifierConfigProvider) notify.ProvideFn {
	cfg := provider.NotifyConfig()
	return func() (notify.Notifier, error) {
		return notify.New(cfg)
	}
}

func ProvideIndexFor(provider IndexConfigProvider, db *database.DB) index.ProvideFn {
	cfg := provider.IndexConfig()
	return func(notifier notify.Notifier, shutdownCh chan<- error) (index.Manager, error) {
		return index.New(
			db,
			notifier,
			shutdownCh,
			index.WithRebuildDBTime(cfg.RebuildDBTime),
			index.WithRebuildTime(cfg.RebuildTime),
			index.WithRebuildConcurrency(cfg.RebuildConcurrency),
			index.WithMaxItemsStored(cfg.MaxItemsStored),
			index.WithMaxStorageTime(cfg.MaxStorageTime),
			index.WithDBFlushSize(cfg.DBFlushSize),
			index.WithDBFlushTime(cfg.DBFlushTime),
		)
	}
}
