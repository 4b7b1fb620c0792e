package notify

import (
	"encoding/json"
	"time"

	"github.com/go-sod/spindex/internal/httputil"
)

type Config struct {
	// Empty address disables publishing
	RedisAddr      string        `envconfig:"SPINDEX_REDIS_ADDR" default:""`
	RedisPassword  string        `envconfig:"SPINDEX_REDIS_PASSWORD" default:""`
	RedisDB        int           `envconfig:"SPINDEX_REDIS_DB" default:"0"`
	Channel        string        `envconfig:"SPINDEX_REDIS_CHANNEL" default:"spindex:events"`
	PublishTimeout time.Duration `envconfig:"SPINDEX_REDIS_PUBLISH_TIMEOUT" default:"2s"`

	// Json list of webhook targets, empty disables webhooks
	Targets              Targets       `envconfig:"SPINDEX_WEBHOOK_TARGETS"`
	Interval             time.Duration `envconfig:"SPINDEX_WEBHOOK_INTERVAL" default:"5s"`
	MaxConcurrentRequest int           `envconfig:"SPINDEX_WEBHOOK_MAX_CONCURRENT_REQUEST" default:"16"`
	RequestTimeout       time.Duration `envconfig:"SPINDEX_WEBHOOK_REQUEST_TIMEOUT" default:"10s"`
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

// Target receives the events of the listed layers, or of every layer when
// the list is empty.
type Target struct {
	URL        string                `json:"url"`
	Layers     []string              `json:"layers"`
	HTTPConfig httputil.ClientConfig `json:"httpConfig"`
}

func (t Target) wants(layer string) bool {
	if len(t.Layers) == 0 {
		return true
	}
	for _, l := range t.Layers {
		if l == layer {
			return true
		}
	}
	return false
}
