package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"BlockScreener/internal/model"
)

// MockProvider returns deterministic synthetic data for development and
// testing. Fixed Quotes / History entries take precedence over generated data.
type MockProvider struct {
	mu           sync.Mutex
	Quotes       map[string]model.Quote
	History      map[string]model.HistorySeries
	QuoteErr     error
	HistoryErr   map[string]error
	QuoteCalls   int
	HistoryCalls int
	// Generate fills in data for symbols not listed above.
	Generate bool
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Generate: true}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) FetchQuotes(_ context.Context, symbols []model.Symbol) (map[string]model.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QuoteCalls++
	if m.QuoteErr != nil {
		return nil, m.QuoteErr
	}
	out := make(map[string]model.Quote, len(symbols))
	for _, s := range symbols {
		if q, ok := m.Quotes[s.Code]; ok {
			out[s.Code] = q
			continue
		}
		if m.Generate {
			base := basePrice(s.Code)
			out[s.Code] = model.Quote{
				Code:      s.Code,
				Name:      s.Name,
				Price:     base,
				ChangePct: float64(int(base*10)%21-10) / 2,
				FetchedAt: time.Now(),
			}
		}
	}
	return out, nil
}

func (m *MockProvider) FetchHistory(_ context.Context, sym model.Symbol, depth int) (model.HistorySeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HistoryCalls++
	if err, ok := m.HistoryErr[sym.Code]; ok {
		return nil, err
	}
	if s, ok := m.History[sym.Code]; ok {
		return s, nil
	}
	if !m.Generate {
		return nil, fmt.Errorf("mock: no history for %s", sym.Code)
	}
	return generateMockBars(basePrice(sym.Code), depth), nil
}

func basePrice(code string) float64 {
	h := fnv.New32a()
	h.Write([]byte(code))
	return float64(h.Sum32()%9000)/100 + 10
}

func generateMockBars(basePrice float64, count int) model.HistorySeries {
	bars := make(model.HistorySeries, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000 + float64(i%3)*250000,
		}
	}
	return bars
}
