// Package scrape polls http targets for places and collects them into the
// index.
package scrape

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/go-sod/spindex/internal/geom"
	"github.com/go-sod/spindex/internal/httputil"
	"github.com/go-sod/spindex/internal/index"
	"github.com/go-sod/spindex/internal/logging"
	"github.com/go-sod/spindex/internal/place/model"
	"github.com/go-sod/spindex/pkg/rworker"
)

type response struct {
	Data []struct {
		X         *float64        `json:"x"`
		Y         *float64        `json:"y"`
		Payload   json.RawMessage `json:"payload"`
		CreatedAt time.Time       `json:"createdAt"`
	} `json:"data"`
}

type Manager interface {
	Run(context.Context) error
	Stop()
}

type ProvideFn = func(index.Collector, chan<- error) (Manager, error)

const UserAgent = "spindex/0.1"

type Options struct {
	maxConcurrentRequest int
	requestTimeout       time.Duration
	scrapeInterval       time.Duration
}

type Option func(*manager)

func WithMaxConcurrentRequest(n int) Option {
	return func(o *manager) {
		o.opts.maxConcurrentRequest = n
	}
}

func WithInterval(t time.Duration) Option {
	return func(o *manager) {
		o.opts.scrapeInterval = t
	}
}

func WithRequestTimeout(t time.Duration) Option {
	return func(o *manager) {
		o.opts.requestTimeout = t
	}
}

func WithTargets(m Targets) Option {
	return func(o *manager) {
		o.targets = m
	}
}

func New(collector index.Collector, shutdownCh chan<- error, opts ...Option) (*manager, error) {
	if collector == nil {
		return nil, fmt.Errorf("collector instance is not defined")
	}
	m := &manager{
		collector:  collector,
		shutdownCh: shutdownCh,
		opts: Options{
			maxConcurrentRequest: 16,
			requestTimeout:       10 * time.Second,
			scrapeInterval:       10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.clients = make([]*http.Client, len(m.targets))
	for i, target := range m.targets {
		if target.Layer == "" {
			return nil, fmt.Errorf("target %s has no layer", target.URL)
		}
		if _, err := url.Parse(target.URL); err != nil {
			return nil, fmt.Errorf("target %d: url parsing error: %w", i, err)
		}
		client, err := httputil.NewClientFromConfig(target.HTTPConfig, false)
		if err != nil {
			return nil, fmt.Errorf("unable create client for target %s: %w", target.URL, err)
		}
		m.clients[i] = client
	}
	return m, nil
}

type manager struct {
	opts       Options
	targets    Targets
	clients    []*http.Client
	collector  index.Collector
	shutdownCh chan<- error
	cancel     func()
}

func (s *manager) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() {
		defer func() {
			if s.shutdownCh != nil {
				s.shutdownCh <- nil
			}
		}()
		logger := logging.FromContext(ctx)
		ticker := time.NewTicker(s.opts.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.scrapping(ctx); err != nil {
					logger.Errorf("scrape manager error: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (s *manager) scrape(ctx context.Context, client *http.Client, target Target) (response, error) {
	var response response
	ctx, cancel := context.WithTimeout(ctx, s.opts.requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return response, fmt.Errorf("creating request error: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := client.Do(req)
	if err != nil {
		return response, fmt.Errorf("sending request error: %w", err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return response, fmt.Errorf("unable create gzip.NewReader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return response, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return response, fmt.Errorf("response was not 200 OK: %s", body)
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return response, fmt.Errorf("decoding response error: %w", err)
	}
	return response, nil
}

// scrapping polls every target once and collects what they return.
func (s *manager) scrapping(ctx context.Context) error {
	pool := rworker.New(s.opts.maxConcurrentRequest)
	for i := range s.targets {
		target, client := s.targets[i], s.clients[i]
		pool.Job(func() error {
			resp, err := s.scrape(ctx, client, target)
			if err != nil {
				return fmt.Errorf("scrape %s: %w", target.URL, err)
			}
			sort.SliceStable(resp.Data, func(i, j int) bool {
				return resp.Data[i].CreatedAt.Before(resp.Data[j].CreatedAt)
			})
			places := make([]model.Place, 0, len(resp.Data))
			for _, dat := range resp.Data {
				if dat.X == nil || dat.Y == nil {
					continue
				}
				places = append(places, model.NewPlace(target.Layer, geom.NewXY(*dat.X, *dat.Y), dat.CreatedAt, dat.Payload))
			}
			if len(places) == 0 {
				return nil
			}
			if err := s.collector.Collect(ctx, places...); err != nil {
				return fmt.Errorf("send to collect error: %w", err)
			}
			return nil
		})
	}
	return pool.Wait()
}
