package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"BlockScreener/internal/history"
	"BlockScreener/internal/model"
)

// BatchOptions bounds request sizes and concurrency for a BatchFetcher.
type BatchOptions struct {
	QuoteChunkSize   int
	HistoryBatchSize int
	MaxWorkers       int
	TaskTimeout      time.Duration
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.QuoteChunkSize <= 0 {
		o.QuoteChunkSize = 100
	}
	if o.HistoryBatchSize <= 0 {
		o.HistoryBatchSize = 10
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = 10
	}
	if o.TaskTimeout <= 0 {
		o.TaskTimeout = 15 * time.Second
	}
	return o
}

// BatchFetcher pulls quotes in chunks and history through the cache with a
// bounded worker pool.
type BatchFetcher struct {
	provider Provider
	cache    *history.Cache
	opts     BatchOptions
}

func NewBatchFetcher(provider Provider, cache *history.Cache, opts BatchOptions) *BatchFetcher {
	return &BatchFetcher{provider: provider, cache: cache, opts: opts.withDefaults()}
}

// FetchQuotes requests symbols in chunks. A failing chunk is logged and its
// symbols are missing from the result; other chunks are unaffected.
func (b *BatchFetcher) FetchQuotes(ctx context.Context, symbols []model.Symbol) map[string]model.Quote {
	out := make(map[string]model.Quote, len(symbols))
	size := b.opts.QuoteChunkSize
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		quotes, err := b.provider.FetchQuotes(ctx, symbols[start:end])
		if err != nil {
			log.Warn().Str("provider", b.provider.Name()).Int("chunk", start/size).
				Int("size", end-start).Err(err).Msg("quote chunk failed")
			continue
		}
		for code, q := range quotes {
			out[code] = q
		}
	}
	return out
}

// FetchHistoryBatch returns a series for every symbol that has one. Symbols
// with a series valid today are served from cache. The rest are fetched in
// sub-batches of HistoryBatchSize: every symbol of a sub-batch is its own task
// on at most MaxWorkers goroutines with its own timeout, and a sub-batch
// completes before the next one starts. The second return value counts
// symbols left without a series.
func (b *BatchFetcher) FetchHistoryBatch(ctx context.Context, symbols []model.Symbol) (map[string]model.HistorySeries, int) {
	out := make(map[string]model.HistorySeries, len(symbols))
	var stale []model.Symbol
	for _, s := range symbols {
		if series, ok := b.cache.Fresh(s.Code); ok {
			out[s.Code] = series
			continue
		}
		stale = append(stale, s)
	}
	if len(stale) == 0 {
		return out, 0
	}

	var (
		mu       sync.Mutex
		failures int
	)
	for start := 0; start < len(stale); start += b.opts.HistoryBatchSize {
		end := start + b.opts.HistoryBatchSize
		if end > len(stale) {
			end = len(stale)
		}
		g := new(errgroup.Group)
		g.SetLimit(b.opts.MaxWorkers)
		for _, s := range stale[start:end] {
			g.Go(func() error {
				series, ok := b.fetchOne(ctx, s)
				mu.Lock()
				defer mu.Unlock()
				if ok {
					out[s.Code] = series
				} else {
					failures++
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	log.Debug().Int("requested", len(stale)).Int("failed", failures).Msg("history batch done")
	return out, failures
}

func (b *BatchFetcher) fetchOne(ctx context.Context, s model.Symbol) (model.HistorySeries, bool) {
	taskCtx, cancel := context.WithTimeout(ctx, b.opts.TaskTimeout)
	defer cancel()
	return b.cache.Get(taskCtx, s)
}
