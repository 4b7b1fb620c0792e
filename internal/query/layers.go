package query

import (
	"net/http"

	"github.com/go-sod/spindex/internal/httputil"
	"github.com/go-sod/spindex/internal/index"
)

type layerLister interface {
	Layers() []string
	Stats(layer string) (index.Stats, error)
}

// NewLayersHandler serves the index statistics of every layer, or of the one
// named by the layer query parameter.
func NewLayersHandler(lister layerLister) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if r.Method != http.MethodGet {
			httputil.RespError(ctx, w, http.StatusMethodNotAllowed, "method %v is not allowed", r.Method)
			return
		}
		names := lister.Layers()
		if name := r.URL.Query().Get("layer"); name != "" {
			names = []string{name}
		}
		out := make([]index.Stats, 0, len(names))
		for _, name := range names {
			stats, err := lister.Stats(name)
			if err != nil {
				RespQueryErr(ctx, w, err)
				return
			}
			out = append(out, stats)
		}
		httputil.RespJSON(ctx, w, http.StatusOK, out)
	})
}
