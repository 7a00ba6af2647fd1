package model

import "time"

// Symbol identifies a listed security. Code is the identity key.
type Symbol struct {
	Code   string
	Name   string
	Market string // block-file market tag, e.g. USHA / USZA
}

// OHLCV represents a single daily bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// HistorySeries is an ascending-by-date run of daily bars for one symbol.
type HistorySeries []OHLCV

// Closes returns the close prices in series order.
func (s HistorySeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, b := range s {
		closes[i] = b.Close
	}
	return closes
}

// Quote is a live snapshot for one symbol, replaced every cycle.
type Quote struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	ChangePct float64   `json:"change_pct"`
	FetchedAt time.Time `json:"fetched_at"`
}
