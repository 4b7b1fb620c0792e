// Package notify publishes index events to subscribers outside the process.
package notify

import (
	"context"
	"fmt"
	"time"
)

type EventType string

const (
	EventErased  EventType = "erased"
	EventRebuilt EventType = "rebuilt"
)

type Event struct {
	Type  EventType `json:"type"`
	Layer string    `json:"layer"`
	// Place id, set for erase events only
	ID   string    `json:"id,omitempty"`
	Live int       `json:"live"`
	Time time.Time `json:"time"`
}

type ProvideFn func() (Notifier, error)

type Notifier interface {
	Run(context.Context) error
	Notify(events ...Event)
	// Stop delivers what is still queued and releases the connection.
	Stop()
}

// New returns the notifiers the config enables: a redis publisher, webhooks
// or both. Without either every event is dropped.
func New(cfg *Config) (Notifier, error) {
	var notifiers []Notifier
	if cfg.RedisAddr != "" {
		notifiers = append(notifiers, NewRedis(cfg))
	}
	if len(cfg.Targets) > 0 {
		webhook, err := NewWebhook(cfg)
		if err != nil {
			return nil, fmt.Errorf("webhook notifier: %w", err)
		}
		notifiers = append(notifiers, webhook)
	}
	switch len(notifiers) {
	case 0:
		return Nop(), nil
	case 1:
		return notifiers[0], nil
	default:
		return fanout(notifiers), nil
	}
}

// fanout hands every event to all of its notifiers.
type fanout []Notifier

func (f fanout) Run(ctx context.Context) error {
	for i, n := range f {
		if err := n.Run(ctx); err != nil {
			for _, started := range f[:i] {
				started.Stop()
			}
			return err
		}
	}
	return nil
}

func (f fanout) Notify(events ...Event) {
	for _, n := range f {
		n.Notify(events...)
	}
}

func (f fanout) Stop() {
	for _, n := range f {
		n.Stop()
	}
}

type nop struct{}

func Nop() Notifier {
	return nop{}
}

func (nop) Run(context.Context) error { return nil }

func (nop) Notify(...Event) {}

func (nop) Stop() {}
