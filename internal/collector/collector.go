package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"BlockScreener/internal/calculator"
	"BlockScreener/internal/model"
	"BlockScreener/internal/strategy"
	"BlockScreener/internal/universe"
)

// ErrNoQuotes means a cycle produced no quotes at all and nothing should be
// published.
var ErrNoQuotes = errors.New("no quotes fetched")

// AnnotationSource exposes the current user annotations.
type AnnotationSource interface {
	All() map[string]model.Annotation
}

// Collector runs one fetch-compute-rank pass for a block. It owns the
// per-symbol momentum windows; Collect must not run concurrently with itself.
type Collector struct {
	universe    universe.Universe
	block       string
	fetcher     *BatchFetcher
	annotations AnnotationSource
	windows     strategy.Windows
	momentumLen int

	mu       sync.Mutex
	momentum map[string]*calculator.MomentumWindow
}

// NewCollector creates a Collector. momentumLen is the number of cycles kept
// per symbol for momentum.
func NewCollector(u universe.Universe, block string, fetcher *BatchFetcher, annotations AnnotationSource, windows strategy.Windows, momentumLen int) *Collector {
	return &Collector{
		universe:    u,
		block:       block,
		fetcher:     fetcher,
		annotations: annotations,
		windows:     windows,
		momentumLen: momentumLen,
		momentum:    make(map[string]*calculator.MomentumWindow),
	}
}

// Block returns the name of the block being collected.
func (c *Collector) Block() string { return c.block }

// Collect fetches quotes and history for every block member and returns the
// ranked rows. Symbols without a quote are omitted; symbols without history
// get rows with absent metrics.
func (c *Collector) Collect(ctx context.Context) ([]model.RankedRow, model.CycleStats, error) {
	stats := model.CycleStats{Block: c.block, StartedAt: time.Now()}
	symbols, err := c.universe.MembersOf(c.block)
	if err != nil {
		stats.Elapsed = time.Since(stats.StartedAt)
		return nil, stats, fmt.Errorf("resolve block: %w", err)
	}
	stats.Symbols = len(symbols)

	quotes := c.fetcher.FetchQuotes(ctx, symbols)
	stats.Quotes = len(quotes)
	if len(quotes) == 0 {
		stats.Elapsed = time.Since(stats.StartedAt)
		return nil, stats, ErrNoQuotes
	}

	quoted := make([]model.Symbol, 0, len(quotes))
	for _, s := range symbols {
		if _, ok := quotes[s.Code]; ok {
			quoted = append(quoted, s)
		}
	}

	series, failures := c.fetcher.FetchHistoryBatch(ctx, quoted)
	stats.Histories = len(series)
	stats.HistoryFailures = failures

	var notes map[string]model.Annotation
	if c.annotations != nil {
		notes = c.annotations.All()
	}

	c.mu.Lock()
	rows := make([]model.RankedRow, 0, len(quoted))
	for _, s := range quoted {
		q := quotes[s.Code]
		w := c.window(s.Code)
		m1, m5 := calculator.CalculateMomentum(w, q.ChangePct)
		w.Push(q.ChangePct)

		rows = append(rows, strategy.BuildRow(strategy.Input{
			Symbol:     s,
			Quote:      q,
			Series:     series[s.Code],
			Momentum1:  m1,
			Momentum5:  m5,
			Annotation: notes[s.Code],
		}, c.windows))
	}
	c.mu.Unlock()

	strategy.Rank(rows)
	stats.Rows = len(rows)
	stats.Elapsed = time.Since(stats.StartedAt)

	log.Info().Str("block", c.block).Int("symbols", stats.Symbols).Int("quotes", stats.Quotes).
		Int("histories", stats.Histories).Int("history_failures", failures).
		Dur("elapsed", stats.Elapsed).Msg("cycle collected")
	return rows, stats, nil
}

func (c *Collector) window(code string) *calculator.MomentumWindow {
	w, ok := c.momentum[code]
	if !ok {
		w = calculator.NewMomentumWindow(c.momentumLen)
		c.momentum[code] = w
	}
	return w
}
