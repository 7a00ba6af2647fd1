package collector

import (
	"context"
	"errors"
	"testing"

	"BlockScreener/internal/history"
	"BlockScreener/internal/model"
	"BlockScreener/internal/strategy"
	"BlockScreener/internal/universe"
)

type staticNotes map[string]model.Annotation

func (s staticNotes) All() map[string]model.Annotation { return s }

func flatSeries(n int) model.HistorySeries {
	s := make(model.HistorySeries, n)
	for i := range s {
		s[i] = model.OHLCV{Open: 10, High: 11, Low: 9, Close: 10, Volume: 1000}
	}
	return s
}

func newTestCollector(mock *MockProvider, notes AnnotationSource) *Collector {
	u := universe.Static{"自选": {
		{Code: "600001", Name: "A"},
		{Code: "600002", Name: "B"},
		{Code: "600003", Name: "C"},
		{Code: "600004", Name: "D"},
	}}
	cache := history.NewCache(mock, 20)
	fetcher := NewBatchFetcher(mock, cache, BatchOptions{})
	return NewCollector(u, "自选", fetcher, notes, strategy.DefaultWindows, 5)
}

func TestCollect_RanksAndOmitsUnquoted(t *testing.T) {
	mock := &MockProvider{
		Quotes: map[string]model.Quote{
			"600001": {Code: "600001", Price: 10, ChangePct: 5.0},
			"600002": {Code: "600002", Price: 10, ChangePct: -1.0},
			"600003": {Code: "600003", Price: 10, ChangePct: 7.0},
		},
		History: map[string]model.HistorySeries{"600001": flatSeries(12)},
	}
	c := newTestCollector(mock, staticNotes{"600002": {Pinned: true, Text: "core"}})

	rows, stats, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"600002", "600003", "600001"}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, code := range want {
		if rows[i].Code != code {
			t.Errorf("row %d: expected %s, got %s", i, code, rows[i].Code)
		}
	}
	if rows[0].Annotation.Text != "core" {
		t.Errorf("annotation not merged: %+v", rows[0].Annotation)
	}
	if rows[2].MA5 == nil || *rows[2].MA5 != 10 {
		t.Errorf("expected MA5 for symbol with history, got %v", rows[2].MA5)
	}
	if rows[0].MA5 != nil || rows[1].Amplitude10d != nil {
		t.Error("symbols without history should have absent metrics")
	}
	if rows[2].Name != "A" {
		t.Errorf("expected universe name fallback, got %q", rows[2].Name)
	}
	if stats.Symbols != 4 || stats.Quotes != 3 || stats.Histories != 1 || stats.HistoryFailures != 2 || stats.Rows != 3 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestCollect_MomentumAcrossCycles(t *testing.T) {
	mock := &MockProvider{
		Quotes:  map[string]model.Quote{"600001": {Code: "600001", Price: 10, ChangePct: 1.0}},
		History: map[string]model.HistorySeries{"600001": flatSeries(12)},
	}
	c := newTestCollector(mock, nil)

	steps := []struct {
		pct    float64
		m1, m5 float64
	}{
		{1.0, 0, 0},
		{2.5, 1.5, 1.5},
		{2.0, -0.5, 1.0},
		{3.0, 1.0, 2.0},
		{3.5, 0.5, 2.5},
		{4.0, 0.5, 3.0},
		// Window now holds 2.5 .. 4.0; 1.0 was evicted.
		{4.0, 0, 1.5},
	}
	for i, s := range steps {
		mock.Quotes["600001"] = model.Quote{Code: "600001", Price: 10, ChangePct: s.pct}
		rows, _, err := c.Collect(context.Background())
		if err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		if rows[0].Momentum1 != s.m1 || rows[0].Momentum5 != s.m5 {
			t.Errorf("cycle %d: expected (%v, %v), got (%v, %v)", i, s.m1, s.m5, rows[0].Momentum1, rows[0].Momentum5)
		}
	}
	if mock.HistoryCalls != 1 {
		t.Errorf("expected one history fetch per trading date, got %d", mock.HistoryCalls)
	}
}

func TestCollect_NoQuotes(t *testing.T) {
	mock := &MockProvider{QuoteErr: errors.New("provider down")}
	c := newTestCollector(mock, nil)

	rows, stats, err := c.Collect(context.Background())
	if !errors.Is(err, ErrNoQuotes) {
		t.Fatalf("expected ErrNoQuotes, got %v", err)
	}
	if rows != nil || stats.Symbols != 4 {
		t.Errorf("unexpected result %v %+v", rows, stats)
	}
	if mock.HistoryCalls != 0 {
		t.Error("history should not be fetched without quotes")
	}
}

func TestCollect_UnknownBlock(t *testing.T) {
	mock := NewMockProvider()
	fetcher := NewBatchFetcher(mock, history.NewCache(mock, 20), BatchOptions{})
	c := NewCollector(universe.Static{}, "missing", fetcher, nil, strategy.DefaultWindows, 5)
	if _, _, err := c.Collect(context.Background()); !errors.Is(err, universe.ErrBlockNotFound) {
		t.Errorf("expected ErrBlockNotFound, got %v", err)
	}
}
