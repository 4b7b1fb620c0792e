// Package integration is an http client of the service api.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-sod/spindex/internal/httputil"
)

type prefixRoundTripper struct {
	addr string
	rt   http.RoundTripper
}

func (p *prefixRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	u := r.URL
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	if u.Host == "" {
		u.Host = p.addr
	}

	return p.rt.RoundTrip(r)
}

// NewClient returns a client of the service listening on addr.
func NewClient(addr string, cfg httputil.ClientConfig) (*Client, error) {
	rt, err := httputil.NewRoundTripperFromConfig(cfg, false)
	if err != nil {
		return nil, fmt.Errorf("create round tripper: %w", err)
	}
	return &Client{client: &http.Client{
		Transport: &prefixRoundTripper{addr: addr, rt: rt},
		Timeout:   cfg.Timeout,
	}}, nil
}

type Client struct {
	client *http.Client
}

func (c *Client) Collect(ctx context.Context, r CollectRequest) (*CollectResponse, error) {
	var resp CollectResponse
	if err := c.post(ctx, "/collect", r, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Nearest(ctx context.Context, r NearestRequest) (*NearestResponse, error) {
	var resp NearestResponse
	if err := c.post(ctx, "/nearest", r, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Erase(ctx context.Context, r EraseRequest) (*EraseResponse, error) {
	var resp EraseResponse
	if err := c.post(ctx, "/erase", r, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Layers returns the statistics of every layer, or of the given one.
func (c *Client) Layers(ctx context.Context, layer string) ([]LayerStats, error) {
	path := "/layers"
	if layer != "" {
		path += "?layer=" + url.QueryEscape(layer)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("create new request: %w", err)
	}
	var stats []LayerStats
	if err := c.do(req, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return fmt.Errorf("create new request: %w", err)
	}
	return c.do(req, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("unable marshal %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error with sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unable unmarshal %s response: %w", req.URL.Path, err)
	}
	return nil
}
