package erase

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-sod/spindex/internal/httputil"
	"github.com/go-sod/spindex/internal/index"
	"github.com/go-sod/spindex/internal/logging"
	"github.com/google/uuid"
)

type request struct {
	Layer string   `json:"layer"`
	IDs   []string `json:"ids"`
}

type response struct {
	Layer string `json:"layer"`
	// erased by this request
	Erased []string `json:"erased"`
	// erased before
	Skipped []string `json:"skipped"`
	// unknown to the index of the layer
	Missing []string `json:"missing"`
}

func NewHandler(cfg *Config, eraser index.Eraser) (http.Handler, error) {
	return &handler{cfg: cfg, eraser: eraser}, nil
}

type handler struct {
	eraser index.Eraser
	cfg    *Config
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	if !httputil.DecodeJSONPost(ctx, w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		httputil.RespBadRequest(ctx, w, "ids must not be empty")
		return
	}
	if len(req.IDs) > h.cfg.MaxIDsLen {
		httputil.RespBadRequest(ctx, w, "too many ids, max allowed len is %d", h.cfg.MaxIDsLen)
		return
	}

	ids := make([]uuid.UUID, len(req.IDs))
	for i, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespBadRequest(ctx, w, "invalid id %q", raw)
			return
		}
		ids[i] = id
	}

	resp := response{Layer: req.Layer, Erased: []string{}, Skipped: []string{}, Missing: []string{}}
	for i, id := range ids {
		erased, err := h.eraser.Erase(ctx, req.Layer, id)
		switch {
		case errors.Is(err, index.ErrLayerNotFound):
			httputil.RespError(ctx, w, http.StatusNotFound, "%v", err)
			return
		case errors.Is(err, index.ErrPlaceNotFound):
			resp.Missing = append(resp.Missing, req.IDs[i])
		case err != nil:
			httputil.RespInternalError(ctx, w, "erase %s: %v", id, err)
			return
		case erased:
			resp.Erased = append(resp.Erased, req.IDs[i])
		default:
			resp.Skipped = append(resp.Skipped, req.IDs[i])
		}
	}

	logger.Debugf("erased %d places of layer %s", len(resp.Erased), req.Layer)
	httputil.RespJSON(ctx, w, http.StatusOK, resp)
}
