package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-sod/spindex/internal/geom"
	"github.com/go-sod/spindex/internal/httputil"
	"github.com/go-sod/spindex/internal/index"
	"github.com/go-sod/spindex/pkg/container/kdtree"
	"golang.org/x/sync/errgroup"
)

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type request struct {
	Layer string  `json:"layer"`
	K     int     `json:"k"`
	Data  []point `json:"data"`
}

type neighbour struct {
	ID       string          `json:"id"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Distance float64         `json:"distance"`
}

type answer struct {
	Query      point       `json:"query"`
	Neighbours []neighbour `json:"neighbours"`
}

type response struct {
	Layer string   `json:"layer"`
	Data  []answer `json:"data"`
}

func NewHandler(cfg *Config, querier index.Querier) (http.Handler, error) {
	return &handler{
		cfg:     cfg,
		querier: querier,
	}, nil
}

type handler struct {
	querier index.Querier
	cfg     *Config
}

func toNeighbour(n index.Neighbour) neighbour {
	return neighbour{
		ID:       n.Place.ID.String(),
		X:        n.Place.X,
		Y:        n.Place.Y,
		Payload:  n.Place.Payload,
		Distance: n.Distance(),
	}
}

func (h *handler) query(ctx context.Context, layer string, q geom.XY, k int) ([]neighbour, error) {
	if k == 1 {
		n, err := h.querier.Nearest(ctx, layer, q)
		if err != nil {
			return nil, err
		}
		return []neighbour{toNeighbour(n)}, nil
	}
	list, err := h.querier.KNearest(ctx, layer, q, k)
	if err != nil {
		return nil, err
	}
	out := make([]neighbour, len(list))
	for i := range list {
		out[i] = toNeighbour(list[i])
	}
	return out, nil
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if !httputil.DecodeJSONPost(ctx, w, r, &req) {
		return
	}

	if req.K == 0 {
		req.K = 1
	}
	if req.K < 0 || req.K > h.cfg.MaxK {
		httputil.RespBadRequest(ctx, w, "k must be between 1 and %d", h.cfg.MaxK)
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

	answers := make([]answer, len(req.Data))
	errGrp, gctx := errgroup.WithContext(ctx)
	if h.cfg.Concurrency > 0 {
		errGrp.SetLimit(h.cfg.Concurrency)
	}
	for i, dat := range req.Data {
		i, dat := i, dat
		errGrp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			list, err := h.query(gctx, req.Layer, geom.NewXY(dat.X, dat.Y), req.K)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			answers[i] = answer{Query: dat, Neighbours: list}
			return nil
		})
	}
	if err := errGrp.Wait(); err != nil {
		RespQueryErr(ctx, w, err)
		return
	}

	httputil.RespJSON(ctx, w, http.StatusOK, response{Layer: req.Layer, Data: answers})
}

// RespQueryErr maps index errors to http statuses.
func RespQueryErr(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, index.ErrLayerNotFound), errors.Is(err, kdtree.ErrNotFound):
		httputil.RespError(ctx, w, http.StatusNotFound, "%v", err)
	case errors.Is(err, kdtree.ErrInsufficientLivePoints):
		httputil.RespError(ctx, w, http.StatusUnprocessableEntity, "%v", err)
	case errors.Is(err, kdtree.ErrInvalidK):
		httputil.RespBadRequest(ctx, w, "%v", err)
	case errors.Is(err, context.DeadlineExceeded):
		httputil.RespError(ctx, w, http.StatusGatewayTimeout, "%v", err)
	default:
		httputil.RespInternalError(ctx, w, "query processing error, %v", err)
	}
}
