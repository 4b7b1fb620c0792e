package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-sod/spindex/internal/logging"
	"github.com/go-sod/spindex/internal/place/model"
)

func newDBTxExecutor(opts dbTxExecutorOptions) *dbTxExecutor {
	return &dbTxExecutor{opts: opts}
}

type dbTxExecutorOptions struct {
	flushSize int
	flushTime time.Duration
	deps      pullDependencies
	// called with the places of every successful flush
	flushed func([]model.Place)
}

// dbTxExecutor accumulates collected places and inserts them in bulk into
// persistent storage.
type dbTxExecutor struct {
	mtx  sync.Mutex
	opts dbTxExecutorOptions
	buf  []model.Place
}

// shutdown inserts everything left in the buffer.
func (tx *dbTxExecutor) shutdown() error {
	if err := tx.bulkAppend(context.Background()); err != nil {
		return fmt.Errorf("txExecutor: append many operation failed: %w", err)
	}
	return nil
}

// append adds a place to the buffer and flushes it in the background once it
// reaches flushSize.
func (tx *dbTxExecutor) append(ctx context.Context, data ...model.Place) {
	tx.mtx.Lock()
	tx.buf = append(tx.buf, data...)
	bufLen := len(tx.buf)
	tx.mtx.Unlock()

	if tx.opts.flushSize > 0 && bufLen >= tx.opts.flushSize {
		// the caller's ctx usually ends with its request
		ctx := context.WithoutCancel(ctx)
		go func() {
			if err := tx.bulkAppend(ctx); err != nil {
				logging.FromContext(ctx).Errorf("txExecutor: %v", err)
			}
		}()
	}
}

func (tx *dbTxExecutor) len() int {
	tx.mtx.Lock()
	defer tx.mtx.Unlock()
	return len(tx.buf)
}

// bulkAppend moves the buffer to persistent storage. On failure the places
// are put back so the next flush retries them.
func (tx *dbTxExecutor) bulkAppend(ctx context.Context) error {
	tx.mtx.Lock()
	if len(tx.buf) == 0 {
		tx.mtx.Unlock()
		return nil
	}
	tmpBuf := tx.buf
	tx.buf = nil
	tx.mtx.Unlock()

	if err := tx.opts.deps.appendPlaces(ctx, tmpBuf); err != nil {
		tx.mtx.Lock()
		tx.buf = append(tmpBuf, tx.buf...)
		tx.mtx.Unlock()
		return fmt.Errorf("append %d places: %w", len(tmpBuf), err)
	}
	if tx.opts.flushed != nil {
		tx.opts.flushed(tmpBuf)
	}
	return nil
}

// flusher inserts the buffer every flushTime until ctx is done. What is left
// afterwards is written by shutdown.
func (tx *dbTxExecutor) flusher(ctx context.Context) {
	logger := logging.FromContext(ctx)
	ticker := time.NewTicker(tx.opts.flushTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := tx.bulkAppend(ctx); err != nil {
				logger.Errorf("txExecutor: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
