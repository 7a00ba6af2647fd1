// Package history memoizes daily bar series per symbol for the current
// trading date.
package history

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"BlockScreener/internal/model"
)

const dateLayout = "2006-01-02"

var errEmptySeries = errors.New("provider returned no bars")

// Fetcher loads depth daily bars for a symbol from an upstream provider.
type Fetcher interface {
	FetchHistory(ctx context.Context, sym model.Symbol, depth int) (model.HistorySeries, error)
}

// Entry is a cached series together with the trading date it was fetched on.
type Entry struct {
	FetchedOn string
	Series    model.HistorySeries
}

// ValidOn reports whether the entry may serve requests made on date.
func (e Entry) ValidOn(date string) bool {
	return e.FetchedOn == date
}

// Cache holds at most one Entry per symbol code. Concurrent Get calls for
// distinct symbols are safe.
type Cache struct {
	fetcher Fetcher
	depth   int
	loc     *time.Location
	now     func() time.Time
	items   *gocache.Cache
}

// Option customises a Cache.
type Option func(*Cache)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLocation sets the exchange timezone used to derive the trading date.
func WithLocation(loc *time.Location) Option {
	return func(c *Cache) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// NewCache creates a Cache fetching depth bars per symbol through fetcher.
func NewCache(fetcher Fetcher, depth int, opts ...Option) *Cache {
	if depth <= 0 {
		depth = 20
	}
	c := &Cache{
		fetcher: fetcher,
		depth:   depth,
		loc:     time.Local,
		now:     time.Now,
		items:   gocache.New(gocache.NoExpiration, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TradingDate returns the current calendar date in the exchange timezone.
func (c *Cache) TradingDate() string {
	return c.now().In(c.loc).Format(dateLayout)
}

// Fresh returns the cached series for code when it is valid today. No I/O.
func (c *Cache) Fresh(code string) (model.HistorySeries, bool) {
	e, ok := c.entry(code)
	if !ok || !e.ValidOn(c.TradingDate()) {
		return nil, false
	}
	return e.Series, true
}

// Get returns today's series for sym, fetching it at most once per trading
// date. When the fetch fails the previous series is returned if one exists.
// A false result means no series is available.
func (c *Cache) Get(ctx context.Context, sym model.Symbol) (model.HistorySeries, bool) {
	today := c.TradingDate()
	prev, hasPrev := c.entry(sym.Code)
	if hasPrev && prev.ValidOn(today) {
		return prev.Series, true
	}

	series, err := c.fetcher.FetchHistory(ctx, sym, c.depth)
	if err == nil && len(series) == 0 {
		err = errEmptySeries
	}
	if err != nil {
		log.Warn().Str("code", sym.Code).Err(err).Bool("stale", hasPrev).Msg("history fetch failed")
		if hasPrev {
			return prev.Series, true
		}
		return nil, false
	}

	if len(series) > c.depth {
		series = series[len(series)-c.depth:]
	}
	c.items.Set(sym.Code, Entry{FetchedOn: today, Series: series}, gocache.NoExpiration)
	return series, true
}

// Prune removes entries that are not valid for the current trading date and
// returns how many were dropped.
func (c *Cache) Prune() int {
	today := c.TradingDate()
	dropped := 0
	for code, item := range c.items.Items() {
		if e, ok := item.Object.(Entry); ok && e.ValidOn(today) {
			continue
		}
		c.items.Delete(code)
		dropped++
	}
	return dropped
}

// Len returns the number of cached symbols, fresh or stale.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

func (c *Cache) entry(code string) (Entry, bool) {
	v, ok := c.items.Get(code)
	if !ok {
		return Entry{}, false
	}
	e, ok := v.(Entry)
	return e, ok
}
