package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"BlockScreener/internal/model"
)

const (
	tencentQuoteURL   = "https://qt.gtimg.cn"
	tencentHistoryURL = "https://web.ifzq.gtimg.cn/appstock/app/fqkline/get"
)

// TencentProvider implements Provider on the Tencent quote and kline endpoints.
type TencentProvider struct {
	opts    ClientOptions
	client  *resty.Client
	limiter *rate.Limiter
	loc     *time.Location
}

// NewTencentProvider creates a provider; loc is the exchange timezone used to
// interpret quote timestamps.
func NewTencentProvider(opts ClientOptions, loc *time.Location) *TencentProvider {
	opts = opts.withDefaults(tencentQuoteURL, tencentHistoryURL)
	if loc == nil {
		loc = time.Local
	}
	return &TencentProvider{
		opts:    opts,
		client:  newRestyClient(opts),
		limiter: newLimiter(opts.RatePerSec),
		loc:     loc,
	}
}

func (p *TencentProvider) Name() string { return "tencent" }

// FetchQuotes issues one bulk request for all symbols.
func (p *TencentProvider) FetchQuotes(ctx context.Context, symbols []model.Symbol) (map[string]model.Quote, error) {
	if len(symbols) == 0 {
		return map[string]model.Quote{}, nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	list := make([]string, len(symbols))
	for i, s := range symbols {
		list[i] = ProviderSymbol(s)
	}
	resp, err := p.client.R().
		SetContext(ctx).
		Get(p.opts.QuoteURL + "/q=" + strings.Join(list, ","))
	if err != nil {
		return nil, fmt.Errorf("tencent quotes: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, statusError("tencent quotes", resp.StatusCode(), resp.Body())
	}

	now := time.Now()
	quotes := make(map[string]model.Quote, len(symbols))
	for key, raw := range quoteLines(decodeGBK(resp.Body()), "v_") {
		q, ok := p.parseQuote(raw, now)
		if !ok {
			log.Debug().Str("provider", p.Name()).Str("symbol", key).Msg("skipping malformed quote")
			continue
		}
		if q.Code == "" {
			q.Code = stripPrefix(key)
		}
		quotes[q.Code] = q
	}
	return quotes, nil
}

// parseQuote reads the "~"-separated quote record. Field 1 is the name, 2 the
// code, 3 the last price, 30 the exchange timestamp and 32 the percent change.
func (p *TencentProvider) parseQuote(raw string, now time.Time) (model.Quote, bool) {
	f := strings.Split(raw, "~")
	if len(f) < 33 {
		return model.Quote{}, false
	}
	price, ok := parseNumber(f[3])
	if !ok {
		return model.Quote{}, false
	}
	pct, ok := parseNumber(f[32])
	if !ok {
		return model.Quote{}, false
	}
	at := now
	if ts, err := time.ParseInLocation("20060102150405", f[30], p.loc); err == nil {
		at = ts
	}
	return model.Quote{
		Code:      f[2],
		Name:      f[1],
		Price:     price,
		ChangePct: pct,
		FetchedAt: at,
	}, true
}

// tencentKline is the envelope of the fqkline endpoint. Each bar is
// [date, open, close, high, low, volume, ...].
type tencentKline struct {
	Code int                                   `json:"code"`
	Msg  string                                `json:"msg"`
	Data map[string]map[string]json.RawMessage `json:"data"`
}

func (p *TencentProvider) FetchHistory(ctx context.Context, sym model.Symbol, depth int) (model.HistorySeries, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ps := ProviderSymbol(sym)
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("param", fmt.Sprintf("%s,day,,,%d,qfq", ps, depth)).
		Get(p.opts.HistoryURL)
	if err != nil {
		return nil, fmt.Errorf("tencent history %s: %w", ps, err)
	}
	if !resp.IsSuccess() {
		return nil, statusError("tencent history", resp.StatusCode(), resp.Body())
	}

	var kline tencentKline
	if err := json.Unmarshal(resp.Body(), &kline); err != nil {
		return nil, fmt.Errorf("tencent history decode: %w", err)
	}
	if kline.Code != 0 {
		return nil, fmt.Errorf("tencent history api error: %s", kline.Msg)
	}
	node, ok := kline.Data[ps]
	if !ok {
		return nil, fmt.Errorf("tencent history: no data for %s", ps)
	}
	raw, ok := node["qfqday"]
	if !ok {
		raw, ok = node["day"]
	}
	if !ok {
		return nil, fmt.Errorf("tencent history: no daily bars for %s", ps)
	}
	var rows [][]interface{}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("tencent history rows: %w", err)
	}

	bars := make(model.HistorySeries, 0, len(rows))
	for _, r := range rows {
		if b, ok := p.parseBar(r); ok {
			bars = append(bars, b)
		}
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("tencent history: no usable bars for %s", ps)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	if len(bars) > depth {
		bars = bars[len(bars)-depth:]
	}
	return bars, nil
}

func (p *TencentProvider) parseBar(r []interface{}) (model.OHLCV, bool) {
	if len(r) < 6 {
		return model.OHLCV{}, false
	}
	ds, _ := r[0].(string)
	day, err := time.ParseInLocation("2006-01-02", ds, p.loc)
	if err != nil {
		return model.OHLCV{}, false
	}
	var v [5]float64
	for i := range v {
		n, ok := parseNumber(r[i+1])
		if !ok {
			return model.OHLCV{}, false
		}
		v[i] = n
	}
	return model.OHLCV{Time: day, Open: v[0], Close: v[1], High: v[2], Low: v[3], Volume: v[4]}, true
}
