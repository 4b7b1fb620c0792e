package scrape

import (
	"encoding/json"
	"time"

	"github.com/go-sod/spindex/internal/httputil"
)

type Config struct {
	// Json list of targets, empty disables scraping
	Targets              Targets       `envconfig:"SPINDEX_SCRAPE_TARGETS"`
	MaxConcurrentRequest int           `envconfig:"SPINDEX_SCRAPE_MAX_CONCURRENT_REQUEST" default:"16"`
	Interval             time.Duration `envconfig:"SPINDEX_SCRAPE_INTERVAL" default:"10s"`
	RequestTimeout       time.Duration `envconfig:"SPINDEX_SCRAPE_REQUEST_TIMEOUT" default:"10s"`
}

type Targets []Target

func (ts *Targets) Decode(value string) error {
	targets := []Target{}
	if err := json.Unmarshal([]byte(value), &targets); err != nil {
		return err
	}
	*ts = targets
	return nil
}

// Target is polled for places of a single layer.
type Target struct {
	URL        string                `json:"url"`
	Layer      string                `json:"layer"`
	HTTPConfig httputil.ClientConfig `json:"httpConfig"`
}
