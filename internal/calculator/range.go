package calculator

import (
	"errors"
	"math"

	"BlockScreener/internal/model"
)

// CalculateRange scans the most recent window bars and returns the high and low.
// Bars with a non-finite or non-positive high/low are skipped.
func CalculateRange(bars model.HistorySeries, window int) (high, low float64, err error) {
	valid := make(model.HistorySeries, 0, len(bars))
	for _, b := range bars {
		if isFinite(b.High) && isFinite(b.Low) && b.High > 0 && b.Low > 0 {
			valid = append(valid, b)
		}
	}
	if window <= 0 || len(valid) < window {
		return 0, 0, ErrInsufficientData
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range valid[len(valid)-window:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}

// CalculateAmplitude returns the trailing-window high/low spread as a
// percentage of the current price, rounded to 2 decimals.
func CalculateAmplitude(bars model.HistorySeries, price float64, window int) (float64, error) {
	if price <= 0 || !isFinite(price) {
		return 0, errors.New("price must be positive")
	}
	high, low, err := CalculateRange(bars, window)
	if err != nil {
		return 0, err
	}
	return AmplitudePct(high, low, price), nil
}

// AmplitudePct is (high-low)/price*100 rounded to 2 decimals.
func AmplitudePct(high, low, price float64) float64 {
	return Round2((high - low) / price * 100)
}
