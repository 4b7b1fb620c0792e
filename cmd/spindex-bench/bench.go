package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-sod/spindex/internal/geom"
	"github.com/go-sod/spindex/pkg/container/kdtree"
	"github.com/schollz/progressbar/v3"
	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/stat"
)

var errMismatch = errors.New("answer differs from linear scan")

type report struct {
	Points     int
	Live       int
	Depth      int
	BuildTime  time.Duration
	Queries    int
	Mismatches int
	// query latencies in microseconds
	Mean, StdDev, P50, P90, P99 float64
}

func (r report) String() string {
	return fmt.Sprintf(
		"points: %d, live: %d, depth: %d, build: %s\nqueries: %d, mismatches: %d\nlatency us: mean %.2f, stddev %.2f, p50 %.2f, p90 %.2f, p99 %.2f",
		r.Points, r.Live, r.Depth, r.BuildTime, r.Queries, r.Mismatches, r.Mean, r.StdDev, r.P50, r.P90, r.P99,
	)
}

func randomPoints(rng *fastrand.RNG, n int, span uint32) []geom.Point[int] {
	points := make([]geom.Point[int], n)
	for i := range points {
		points[i] = geom.NewPoint(randomCoord(rng, span), randomCoord(rng, span), i)
	}
	return points
}

// maxSpan keeps span*16 within uint32.
const maxSpan = math.MaxUint32 / 16

func randomCoord(rng *fastrand.RNG, span uint32) float64 {
	return float64(rng.Uint32n(span*16)) / 16
}

func bench(cfg Config, out io.Writer) (report, error) {
	if cfg.Points < 1 || cfg.Queries < 1 || cfg.Span < 1 {
		return report{}, fmt.Errorf("points, queries and span must be positive")
	}
	if cfg.Span > maxSpan {
		return report{}, fmt.Errorf("span %d exceeds %d", cfg.Span, maxSpan)
	}
	var rng fastrand.RNG
	rng.Seed(cfg.Seed)
	points := randomPoints(&rng, cfg.Points, cfg.Span)

	started := time.Now()
	tree, err := kdtree.Build(points)
	if err != nil {
		return report{}, fmt.Errorf("build: %w", err)
	}
	r := report{Points: cfg.Points, Depth: tree.Depth(), BuildTime: time.Since(started), Queries: cfg.Queries}

	erased := make([]bool, len(points))
	if cfg.EraseEvery > 0 {
		for it := tree.Begin(); it.Valid(); it.Next() {
			if id := it.Point().Payload; id%cfg.EraseEvery == 0 {
				if _, err := tree.Erase(it.Handle()); err != nil {
					return report{}, fmt.Errorf("erase %d: %w", id, err)
				}
				erased[id] = true
			}
		}
	}
	r.Live = tree.Len()
	k := cfg.K
	if k > r.Live {
		k = r.Live
	}
	if k < 1 {
		return report{}, fmt.Errorf("no live points left")
	}

	var bar *progressbar.ProgressBar
	if cfg.Progress {
		bar = progressbar.NewOptions(cfg.Queries,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("querying"),
			progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprint(out, "\n") }),
		)
	}

	queries := make([]geom.XY, cfg.Queries)
	for i := range queries {
		queries[i] = geom.NewXY(randomCoord(&rng, cfg.Span), randomCoord(&rng, cfg.Span))
	}

	threads := cfg.Threads
	if threads < 1 {
		threads = 1
	}
	var (
		wg         sync.WaitGroup
		mismatches atomic.Int64
		failOnce   sync.Once
		failed     error
		latencies  = make([]float64, cfg.Queries)
		tasks      = make(chan int, cfg.Queries)
	)
	for i := range queries {
		tasks <- i
	}
	close(tasks)

	worker := func() {
		defer wg.Done()
		for idx := range tasks {
			q := queries[idx]
			started := time.Now()
			_, scores, err := tree.KNearest(q, k)
			latencies[idx] = float64(time.Since(started).Nanoseconds()) / 1e3
			if err != nil {
				failOnce.Do(func() { failed = fmt.Errorf("query %d: %w", idx, err) })
				return
			}
			if cfg.Verify && !sameScores(scores, linearScores(points, erased, q, k)) {
				mismatches.Add(1)
			}
			if bar != nil {
				_ = bar.Add(1)
			}
		}
	}
	wg.Add(threads)
	for i := 0; i < threads; i++ {
		go worker()
	}
	wg.Wait()
	if failed != nil {
		return report{}, failed
	}
	r.Mismatches = int(mismatches.Load())

	sort.Float64s(latencies)
	r.Mean, r.StdDev = stat.MeanStdDev(latencies, nil)
	r.P50 = stat.Quantile(0.5, stat.Empirical, latencies, nil)
	r.P90 = stat.Quantile(0.9, stat.Empirical, latencies, nil)
	r.P99 = stat.Quantile(0.99, stat.Empirical, latencies, nil)

	if r.Mismatches > 0 {
		return r, fmt.Errorf("%w: %d of %d queries", errMismatch, r.Mismatches, r.Queries)
	}
	return r, nil
}

// linearScores returns the k smallest squared distances of live points to q.
func linearScores(points []geom.Point[int], erased []bool, q geom.XY, k int) []float64 {
	scores := make([]float64, 0, len(points))
	for i := range points {
		if !erased[points[i].Payload] {
			scores = append(scores, geom.SqDist(points[i].XY, q))
		}
	}
	sort.Float64s(scores)
	return scores[:k]
}

func sameScores(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
