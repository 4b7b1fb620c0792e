// Package metrics declares the opencensus measures recorded by the index
// manager and exposes them in the prometheus text format.
package metrics

import (
	"context"
	"fmt"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

const (
	OpNearest  = "nearest"
	OpKNearest = "knearest"

	statusOK    = "ok"
	statusError = "error"
)

var (
	QueryCount   = stats.Int64("spindex/query_count", "Number of index queries", stats.UnitDimensionless)
	QueryLatency = stats.Float64("spindex/query_latency", "Latency of index queries", stats.UnitMilliseconds)
	EraseCount   = stats.Int64("spindex/erase_count", "Number of erased places", stats.UnitDimensionless)
	RebuildCount = stats.Int64("spindex/rebuild_count", "Number of layer rebuilds", stats.UnitDimensionless)
	LivePoints   = stats.Int64("spindex/live_points", "Live points of a layer index", stats.UnitDimensionless)

	KeyOp     = tag.MustNewKey("op")
	KeyLayer  = tag.MustNewKey("layer")
	KeyStatus = tag.MustNewKey("status")
)

var Views = []*view.View{
	{
		Name:        "spindex/query_count",
		Description: "Number of index queries by operation and status",
		Measure:     QueryCount,
		TagKeys:     []tag.Key{KeyOp, KeyLayer, KeyStatus},
		Aggregation: view.Count(),
	},
	{
		Name:        "spindex/query_latency",
		Description: "Distribution of index query latency",
		Measure:     QueryLatency,
		TagKeys:     []tag.Key{KeyOp},
		Aggregation: view.Distribution(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100),
	},
	{
		Name:        "spindex/erase_count",
		Description: "Number of erased places",
		Measure:     EraseCount,
		TagKeys:     []tag.Key{KeyLayer},
		Aggregation: view.Sum(),
	},
	{
		Name:        "spindex/rebuild_count",
		Description: "Number of layer rebuilds",
		Measure:     RebuildCount,
		TagKeys:     []tag.Key{KeyLayer, KeyStatus},
		Aggregation: view.Count(),
	},
	{
		Name:        "spindex/live_points",
		Description: "Live points of a layer index",
		Measure:     LivePoints,
		TagKeys:     []tag.Key{KeyLayer},
		Aggregation: view.LastValue(),
	},
}

// Register registers all views. It must be called once per process.
func Register() error {
	if err := view.Register(Views...); err != nil {
		return fmt.Errorf("register views: %w", err)
	}
	return nil
}

func Unregister() {
	view.Unregister(Views...)
}

// NewExporter returns an http.Handler serving the registered views.
func NewExporter(namespace string) (*prometheus.Exporter, error) {
	pe, err := prometheus.NewExporter(prometheus.Options{Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	return pe, nil
}

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusOK
}

func RecordQuery(ctx context.Context, op, layer string, started time.Time, err error) {
	_ = stats.RecordWithTags(
		ctx,
		[]tag.Mutator{tag.Upsert(KeyOp, op), tag.Upsert(KeyLayer, layer), tag.Upsert(KeyStatus, status(err))},
		QueryCount.M(1),
		QueryLatency.M(float64(time.Since(started))/float64(time.Millisecond)),
	)
}

func RecordErase(ctx context.Context, layer string, live int) {
	_ = stats.RecordWithTags(
		ctx,
		[]tag.Mutator{tag.Upsert(KeyLayer, layer)},
		EraseCount.M(1),
		LivePoints.M(int64(live)),
	)
}

func RecordRebuild(ctx context.Context, layer string, live int, err error) {
	_ = stats.RecordWithTags(
		ctx,
		[]tag.Mutator{tag.Upsert(KeyLayer, layer), tag.Upsert(KeyStatus, status(err))},
		RebuildCount.M(1),
	)
	if err == nil {
		_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(KeyLayer, layer)}, LivePoints.M(int64(live)))
	}
}
