package collector

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ClientOptions configures the HTTP side of a provider.
type ClientOptions struct {
	QuoteURL   string
	HistoryURL string
	Proxy      string
	Timeout    time.Duration
	Retries    int
	// RatePerSec caps upstream calls per second; zero disables throttling.
	RatePerSec float64
}

func (o ClientOptions) withDefaults(quoteURL, historyURL string) ClientOptions {
	if o.QuoteURL == "" {
		o.QuoteURL = quoteURL
	}
	if o.HistoryURL == "" {
		o.HistoryURL = historyURL
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

func newRestyClient(opts ClientOptions) *resty.Client {
	c := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(500 * time.Millisecond)
	if opts.Proxy != "" {
		c.SetProxy(opts.Proxy)
	}
	return c
}

func newLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSec), burst)
}

// decodeGBK converts a GBK payload (as served by the quote endpoints) to UTF-8.
// Payloads that fail to decode are returned unchanged.
func decodeGBK(body []byte) string {
	out, err := simplifiedchinese.GBK.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(out)
}

// parseNumber accepts the loosely typed numeric cells found in provider
// payloads. Empty or malformed cells are reported as not ok.
func parseNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// quoteLines splits a `var x="a,b,c";` style payload into (key, value) pairs.
func quoteLines(payload, keyPrefix string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(payload, ";") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "var ")
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimPrefix(strings.TrimSpace(line[:eq]), keyPrefix)
		val := strings.Trim(strings.TrimSpace(line[eq+1:]), `"`)
		if val == "" {
			continue
		}
		out[key] = val
	}
	return out
}

func statusError(what string, code int, body []byte) error {
	if len(body) > 200 {
		body = append(bytes.Clone(body[:200]), "..."...)
	}
	return fmt.Errorf("%s: status %d, body: %s", what, code, string(body))
}
