// Package api assembles the http routes of the service.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-sod/spindex/internal/collect"
	"github.com/go-sod/spindex/internal/erase"
	"github.com/go-sod/spindex/internal/httputil"
	"github.com/go-sod/spindex/internal/index"
	"github.com/go-sod/spindex/internal/query"
	"github.com/go-sod/spindex/internal/server"
)

type Config struct {
	// Bearer token of the api endpoints, empty disables the check
	AuthToken string
	Collect   *collect.Config
	Query     *query.Config
	Erase     *erase.Config
	// Served on /metrics when set
	Metrics http.Handler
}

// NewMux routes the api endpoints to manager. /health and /metrics are
// served without authorization.
func NewMux(ctx context.Context, cfg Config, manager index.Manager) (*http.ServeMux, error) {
	collectHandler, err := collect.NewHandler(cfg.Collect, manager)
	if err != nil {
		return nil, fmt.Errorf("collect.NewHandler: %w", err)
	}
	queryHandler, err := query.NewHandler(cfg.Query, manager)
	if err != nil {
		return nil, fmt.Errorf("query.NewHandler: %w", err)
	}
	eraseHandler, err := erase.NewHandler(cfg.Erase, manager)
	if err != nil {
		return nil, fmt.Errorf("erase.NewHandler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/collect", httputil.RequireBearer(cfg.AuthToken, collectHandler))
	mux.Handle("/nearest", httputil.RequireBearer(cfg.AuthToken, queryHandler))
	mux.Handle("/erase", httputil.RequireBearer(cfg.AuthToken, eraseHandler))
	mux.Handle("/layers", httputil.RequireBearer(cfg.AuthToken, query.NewLayersHandler(manager)))
	mux.Handle("/health", server.HandleHealth(ctx))
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	return mux, nil
}
