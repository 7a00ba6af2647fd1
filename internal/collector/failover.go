package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"BlockScreener/internal/model"
)

var errNoBars = errors.New("no bars returned")

// Failover tries Primary first and falls back to Secondary on error.
type Failover struct {
	Primary   Provider
	Secondary Provider
}

func (f *Failover) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

func (f *Failover) FetchQuotes(ctx context.Context, symbols []model.Symbol) (map[string]model.Quote, error) {
	quotes, err := f.Primary.FetchQuotes(ctx, symbols)
	if err == nil && (len(quotes) > 0 || len(symbols) == 0) {
		return quotes, nil
	}
	if err == nil {
		err = ErrNoQuotes
	}
	log.Warn().Str("primary", f.Primary.Name()).Str("fallback", f.Secondary.Name()).Err(err).
		Msg("quote fetch failed on primary, falling back")
	quotes, err2 := f.Secondary.FetchQuotes(ctx, symbols)
	if err2 != nil {
		return nil, fmt.Errorf("%s: %v; %s: %w", f.Primary.Name(), err, f.Secondary.Name(), err2)
	}
	return quotes, nil
}

func (f *Failover) FetchHistory(ctx context.Context, sym model.Symbol, depth int) (model.HistorySeries, error) {
	series, err := f.Primary.FetchHistory(ctx, sym, depth)
	if err == nil && len(series) > 0 {
		return series, nil
	}
	if err == nil {
		err = errNoBars
	}
	log.Debug().Str("code", sym.Code).Err(err).Msg("history fetch failed on primary, falling back")
	series, err2 := f.Secondary.FetchHistory(ctx, sym, depth)
	if err2 != nil {
		return nil, fmt.Errorf("%s: %v; %s: %w", f.Primary.Name(), err, f.Secondary.Name(), err2)
	}
	return series, nil
}

// NewProvider builds the named provider. A non-empty fallback wraps the
// pair in a Failover.
func NewProvider(name, fallback string, opts ClientOptions, loc *time.Location) (Provider, error) {
	primary, err := newNamedProvider(name, opts, loc)
	if err != nil {
		return nil, err
	}
	if fallback == "" || strings.EqualFold(fallback, name) {
		return primary, nil
	}
	secondary, err := newNamedProvider(fallback, opts, loc)
	if err != nil {
		return nil, err
	}
	return &Failover{Primary: primary, Secondary: secondary}, nil
}

func newNamedProvider(name string, opts ClientOptions, loc *time.Location) (Provider, error) {
	switch strings.ToLower(name) {
	case "tencent", "":
		return NewTencentProvider(opts, loc), nil
	case "sina":
		return NewSinaProvider(opts, loc), nil
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}
