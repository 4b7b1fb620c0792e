package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/go-sod/spindex/internal/logging"
	"github.com/go-sod/spindex/pkg/iqueue"
)

func NewRedis(cfg *Config) *redisNotifier {
	return &redisNotifier{
		cfg: cfg,
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}),
		queue: iqueue.New[Event](),
		done:  make(chan struct{}),
	}
}

// redisNotifier publishes json encoded events on a redis channel. Events are
// buffered in an unbounded queue so that callers never wait for redis.
type redisNotifier struct {
	mtx     sync.RWMutex
	cfg     *Config
	client  *redis.Client
	queue   *iqueue.Queue[Event]
	running bool
	closed  bool
	done    chan struct{}
}

func (n *redisNotifier) Run(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, n.cfg.PublishTimeout)
	defer cancel()
	if err := n.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", n.cfg.RedisAddr, err)
	}

	n.mtx.Lock()
	n.running = true
	n.mtx.Unlock()

	go n.queue.Loop()
	go n.publisher(ctx)
	return nil
}

func (n *redisNotifier) Notify(events ...Event) {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	if n.closed || !n.running {
		return
	}
	for i := range events {
		n.queue.Send(events[i])
	}
}

func (n *redisNotifier) Stop() {
	n.mtx.Lock()
	if n.closed {
		n.mtx.Unlock()
		return
	}
	n.closed = true
	running := n.running
	n.mtx.Unlock()

	if running {
		n.queue.Close()
		<-n.done
	}
	_ = n.client.Close()
}

func (n *redisNotifier) publisher(ctx context.Context) {
	logger := logging.FromContext(ctx)
	defer close(n.done)
	for event := range n.queue.Receive() {
		if err := n.publish(event); err != nil {
			logger.Errorf("notify: %v", err)
		}
	}
}

// publish is not bound to the run context: events queued before Stop are
// still delivered during shutdown.
func (n *redisNotifier) publish(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.cfg.PublishTimeout)
	defer cancel()
	if err := n.client.Publish(ctx, n.cfg.Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s event for layer %s: %w", event.Type, event.Layer, err)
	}
	return nil
}
