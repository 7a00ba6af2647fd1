package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"BlockScreener/internal/calculator"
	"BlockScreener/internal/model"
)

const (
	sinaQuoteURL   = "https://hq.sinajs.cn"
	sinaHistoryURL = "https://money.finance.sina.com.cn/quotes_service/api/json_v2.php/CN_MarketData.getKLineData"
	sinaReferer    = "https://finance.sina.com.cn"
)

// SinaProvider implements Provider on the Sina hq and KLine endpoints.
type SinaProvider struct {
	opts    ClientOptions
	client  *resty.Client
	limiter *rate.Limiter
	loc     *time.Location
}

func NewSinaProvider(opts ClientOptions, loc *time.Location) *SinaProvider {
	opts = opts.withDefaults(sinaQuoteURL, sinaHistoryURL)
	if loc == nil {
		loc = time.Local
	}
	client := newRestyClient(opts).SetHeader("Referer", sinaReferer)
	return &SinaProvider{
		opts:    opts,
		client:  client,
		limiter: newLimiter(opts.RatePerSec),
		loc:     loc,
	}
}

func (p *SinaProvider) Name() string { return "sina" }

func (p *SinaProvider) FetchQuotes(ctx context.Context, symbols []model.Symbol) (map[string]model.Quote, error) {
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
		Get(p.opts.QuoteURL + "/list=" + strings.Join(list, ","))
	if err != nil {
		return nil, fmt.Errorf("sina quotes: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, statusError("sina quotes", resp.StatusCode(), resp.Body())
	}

	now := time.Now()
	quotes := make(map[string]model.Quote, len(symbols))
	for key, raw := range quoteLines(decodeGBK(resp.Body()), "hq_str_") {
		code := stripPrefix(key)
		q, ok := p.parseQuote(code, raw, now)
		if !ok {
			log.Debug().Str("provider", p.Name()).Str("symbol", key).Msg("skipping malformed quote")
			continue
		}
		quotes[code] = q
	}
	return quotes, nil
}

// parseQuote reads the comma separated record: name, open, previous close,
// price, high, low, ... date (30), time (31).
func (p *SinaProvider) parseQuote(code, raw string, now time.Time) (model.Quote, bool) {
	f := strings.Split(raw, ",")
	if len(f) < 6 {
		return model.Quote{}, false
	}
	prev, ok := parseNumber(f[2])
	if !ok || prev <= 0 {
		return model.Quote{}, false
	}
	price, ok := parseNumber(f[3])
	if !ok || price <= 0 {
		return model.Quote{}, false
	}
	at := now
	if len(f) > 31 {
		if ts, err := time.ParseInLocation("2006-01-02 15:04:05", f[30]+" "+f[31], p.loc); err == nil {
			at = ts
		}
	}
	return model.Quote{
		Code:      code,
		Name:      f[0],
		Price:     price,
		ChangePct: calculator.Round2((price - prev) / prev * 100),
		FetchedAt: at,
	}, true
}

type sinaBar struct {
	Day    string `json:"day"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

func (p *SinaProvider) FetchHistory(ctx context.Context, sym model.Symbol, depth int) (model.HistorySeries, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ps := ProviderSymbol(sym)
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":  ps,
			"scale":   "240",
			"ma":      "no",
			"datalen": strconv.Itoa(depth),
		}).
		Get(p.opts.HistoryURL)
	if err != nil {
		return nil, fmt.Errorf("sina history %s: %w", ps, err)
	}
	if !resp.IsSuccess() {
		return nil, statusError("sina history", resp.StatusCode(), resp.Body())
	}

	var rows []sinaBar
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("sina history decode: %w", err)
	}

	bars := make(model.HistorySeries, 0, len(rows))
	for _, r := range rows {
		day, err := time.ParseInLocation("2006-01-02", r.Day, p.loc)
		if err != nil {
			continue
		}
		o, ok1 := parseNumber(r.Open)
		h, ok2 := parseNumber(r.High)
		l, ok3 := parseNumber(r.Low)
		c, ok4 := parseNumber(r.Close)
		v, ok5 := parseNumber(r.Volume)
		if !(ok1 && ok2 && ok3 && ok4 && ok5) {
			continue
		}
		bars = append(bars, model.OHLCV{Time: day, Open: o, High: h, Low: l, Close: c, Volume: v})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("sina history: no usable bars for %s", ps)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	if len(bars) > depth {
		bars = bars[len(bars)-depth:]
	}
	return bars, nil
}
