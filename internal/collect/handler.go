package collect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-sod/spindex/internal/geom"
	"github.com/go-sod/spindex/internal/httputil"
	"github.com/go-sod/spindex/internal/index"
	"github.com/go-sod/spindex/internal/logging"
	"github.com/go-sod/spindex/internal/place/model"
)

type item struct {
	X         *float64        `json:"x"`
	Y         *float64        `json:"y"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

type request struct {
	Layer string `json:"layer"`
	Data  []item `json:"data"`
}

type response struct {
	Status string   `json:"status"`
	Layer  string   `json:"layer"`
	IDs    []string `json:"ids"`
}

func NewHandler(cfg *Config, collector index.Collector) (http.Handler, error) {
	return &handler{
		collector: collector,
		cfg:       cfg,
	}, nil
}

type handler struct {
	collector index.Collector
	cfg       *Config
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	if !httputil.DecodeJSONPost(ctx, w, r, &req) {
		return
	}

	if req.Layer == "" {
		httputil.RespBadRequest(ctx, w, "layer must not be empty")
		return
	}
	if len(req.Data) == 0 {
		httputil.RespBadRequest(ctx, w, "data must not be empty")
		return
	}
	if len(req.Data) > h.cfg.MaxDataItemsLen {
		httputil.RespBadRequest(ctx, w, "data items is too large, max allowed len is %d", h.cfg.MaxDataItemsLen)
		return
	}

	sort.SliceStable(req.Data, func(i, j int) bool {
		return req.Data[i].CreatedAt.Before(req.Data[j].CreatedAt)
	})
	places := make([]model.Place, len(req.Data))
	ids := make([]string, len(req.Data))
	for i, dat := range req.Data {
		if dat.X == nil || dat.Y == nil {
			httputil.RespBadRequest(ctx, w, "data item %d has no x or y", i)
			return
		}
		places[i] = model.NewPlace(req.Layer, geom.NewXY(*dat.X, *dat.Y), dat.CreatedAt, dat.Payload)
		ids[i] = places[i].ID.String()
	}

	if err := h.collector.Collect(ctx, places...); err != nil {
		switch {
		case errors.Is(err, index.ErrInvalidPlace):
			httputil.RespBadRequest(ctx, w, "%v", err)
		case errors.Is(err, index.ErrShuttingDown):
			httputil.RespError(ctx, w, http.StatusServiceUnavailable, "%v", err)
		default:
			httputil.RespInternalError(ctx, w, "collect: %v", err)
		}
		return
	}

	logger.Debugf("collected %d places for layer %s", len(places), req.Layer)
	httputil.RespJSON(ctx, w, http.StatusAccepted, response{Status: "ok", Layer: req.Layer, IDs: ids})
}
