package notify

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-sod/spindex/internal/httputil"
	"github.com/go-sod/spindex/internal/logging"
	"github.com/go-sod/spindex/pkg/rworker"
)

const UserAgent = "spindex/0.1"

type webhookRequest struct {
	Events []Event `json:"events"`
}

func NewWebhook(cfg *Config) (*webhookNotifier, error) {
	n := &webhookNotifier{
		cfg:     cfg,
		clients: make([]*http.Client, len(cfg.Targets)),
		done:    make(chan struct{}),
	}
	for i, target := range cfg.Targets {
		if _, err := url.Parse(target.URL); err != nil {
			return nil, fmt.Errorf("target %d: url parsing error: %w", i, err)
		}
		client, err := httputil.NewClientFromConfig(target.HTTPConfig, true)
		if err != nil {
			return nil, fmt.Errorf("unable create client for target %s: %w", target.URL, err)
		}
		n.clients[i] = client
	}
	return n, nil
}

// webhookNotifier posts the events gathered during an interval to every
// target interested in their layers.
type webhookNotifier struct {
	mtx     sync.Mutex
	cfg     *Config
	clients []*http.Client
	pending []Event
	running bool
	closed  bool
	cancel  func()
	done    chan struct{}
}

func (n *webhookNotifier) Run(ctx context.Context) error {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if n.running || n.closed {
		return fmt.Errorf("webhook notifier already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.running = true
	go n.notifier(ctx)
	return nil
}

func (n *webhookNotifier) Notify(events ...Event) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if n.closed {
		return
	}
	n.pending = append(n.pending, events...)
}

// Stop sends what is pending and waits for the delivery.
func (n *webhookNotifier) Stop() {
	n.mtx.Lock()
	if n.closed {
		n.mtx.Unlock()
		return
	}
	n.closed = true
	running := n.running
	n.mtx.Unlock()

	if running {
		n.cancel()
		<-n.done
	}
}

func (n *webhookNotifier) take() []Event {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	events := n.pending
	n.pending = nil
	return events
}

func (n *webhookNotifier) notifier(ctx context.Context) {
	logger := logging.FromContext(ctx)
	defer close(n.done)
	ticker := time.NewTicker(n.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := n.deliver(n.take()); err != nil {
				logger.Errorf("webhook: %v", err)
			}
		case <-ctx.Done():
			if err := n.deliver(n.take()); err != nil {
				logger.Errorf("webhook: %v", err)
			}
			return
		}
	}
}

// deliver is not bound to the run context so the last batch still goes out
// during shutdown.
func (n *webhookNotifier) deliver(events []Event) error {
	if len(events) == 0 {
		return nil
	}
	pool := rworker.New(n.cfg.MaxConcurrentRequest)
	for i := range n.cfg.Targets {
		target, client := n.cfg.Targets[i], n.clients[i]
		var batch []Event
		for _, e := range events {
			if target.wants(e.Layer) {
				batch = append(batch, e)
			}
		}
		if len(batch) == 0 {
			continue
		}
		pool.Job(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), n.cfg.RequestTimeout)
			defer cancel()
			if err := n.do(ctx, client, target, webhookRequest{Events: batch}); err != nil {
				return fmt.Errorf("target %s: %w", target.URL, err)
			}
			return nil
		})
	}
	return pool.Wait()
}

func (n *webhookNotifier) do(ctx context.Context, client *http.Client, target Target, request webhookRequest) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("unable encode json data: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request error: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request error: %w", err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("unable create gzip.NewReader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}
	respBody, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("response was %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
