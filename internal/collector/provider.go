package collector

import (
	"context"
	"errors"
	"strings"

	"BlockScreener/internal/model"
)

// Provider is an upstream source of live quotes and daily history.
type Provider interface {
	// FetchQuotes returns quotes keyed by symbol code. Symbols the provider
	// has no data for are absent from the map.
	FetchQuotes(ctx context.Context, symbols []model.Symbol) (map[string]model.Quote, error)
	// FetchHistory returns up to depth daily bars in ascending date order.
	FetchHistory(ctx context.Context, sym model.Symbol, depth int) (model.HistorySeries, error)
	Name() string
}

// ErrUnknownProvider is returned by NewProvider for an unsupported name.
var ErrUnknownProvider = errors.New("unknown data provider")

// MarketPrefix returns the exchange prefix providers expect in front of a
// 6-digit code: "sh" for Shanghai, "sz" for Shenzhen, "bj" for Beijing.
// The block-file market tag wins when present.
func MarketPrefix(sym model.Symbol) string {
	switch strings.ToUpper(sym.Market) {
	case "USHA", "USHB", "SH":
		return "sh"
	case "USZA", "USZB", "SZ":
		return "sz"
	case "BJ":
		return "bj"
	}
	code := sym.Code
	if len(code) != 6 {
		return "sz"
	}
	switch code[0] {
	case '6', '5', '9':
		return "sh"
	case '4', '8':
		return "bj"
	default:
		return "sz"
	}
}

// ProviderSymbol returns the market-prefixed form, e.g. "sh600000".
func ProviderSymbol(sym model.Symbol) string {
	code := strings.ToLower(sym.Code)
	for _, p := range []string{"sh", "sz", "bj"} {
		if strings.HasPrefix(code, p) {
			return code
		}
	}
	return MarketPrefix(sym) + sym.Code
}

// stripPrefix turns "sh600000" back into "600000".
func stripPrefix(s string) string {
	if len(s) == 8 {
		switch s[:2] {
		case "sh", "sz", "bj":
			return s[2:]
		}
	}
	return s
}
