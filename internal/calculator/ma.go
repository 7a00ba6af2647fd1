package calculator

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"BlockScreener/internal/model"
)

// ErrInsufficientData is returned when a series is too short for an indicator.
var ErrInsufficientData = errors.New("not enough data")

// CalculateSMA computes the simple moving average of the trailing period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateMA returns the trailing period close average rounded to 2
// decimals. Non-positive or non-finite closes are dropped before averaging.
func CalculateMA(series model.HistorySeries, period int) (float64, error) {
	ma, err := CalculateSMA(validValues(series.Closes()), period)
	if err != nil {
		return 0, err
	}
	return Round2(ma), nil
}

// CalculateMA5 is CalculateMA over 5 bars.
func CalculateMA5(series model.HistorySeries) (float64, error) {
	return CalculateMA(series, 5)
}

// CalculateMA5Distance returns how far price sits from ma5, in percent.
func CalculateMA5Distance(price, ma5 float64) (float64, error) {
	if ma5 == 0 || !isFinite(ma5) {
		return 0, errors.New("ma5 unavailable")
	}
	if price <= 0 || !isFinite(price) {
		return 0, errors.New("price unavailable")
	}
	return Round2((price - ma5) / ma5 * 100), nil
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func validValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) && v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
