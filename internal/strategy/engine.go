package strategy

import (
	"sort"

	"BlockScreener/internal/calculator"
	"BlockScreener/internal/model"
)

// Windows sets the lookback of each history-derived metric, in bars.
type Windows struct {
	MA        int
	Volume    int
	Amplitude int
}

// DefaultWindows are the production lookbacks: MA5, 10-day volume ratio and
// 10-day amplitude.
var DefaultWindows = Windows{MA: 5, Volume: 10, Amplitude: 10}

// Input is everything one row is built from. Series is nil when no history
// is available for the symbol this cycle.
type Input struct {
	Symbol     model.Symbol
	Quote      model.Quote
	Series     model.HistorySeries
	Momentum1  float64
	Momentum5  float64
	Annotation model.Annotation
}

// BuildRow assembles a ranked row. A metric that cannot be computed is left nil.
func BuildRow(in Input, w Windows) model.RankedRow {
	name := in.Quote.Name
	if name == "" {
		name = in.Symbol.Name
	}
	row := model.RankedRow{
		Code:       in.Symbol.Code,
		Name:       name,
		Quote:      in.Quote,
		Momentum1:  in.Momentum1,
		Momentum5:  in.Momentum5,
		Annotation: in.Annotation,
	}
	if len(in.Series) == 0 {
		return row
	}

	if ma, err := calculator.CalculateMA(in.Series, w.MA); err == nil {
		row.MA5 = &ma
		if d, err := calculator.CalculateMA5Distance(in.Quote.Price, ma); err == nil {
			row.MA5Distance = &d
		}
	}
	if r, err := calculator.CalculateMaxVolumeRatio(in.Series, w.Volume); err == nil {
		row.MaxVolumeRatio10d = &r
	}
	if a, err := calculator.CalculateAmplitude(in.Series, in.Quote.Price, w.Amplitude); err == nil {
		row.Amplitude10d = &a
	}
	return row
}

// Rank orders rows in place: pinned rows first, then by percent change
// descending. Rows with equal keys keep their input order.
func Rank(rows []model.RankedRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Annotation.Pinned != b.Annotation.Pinned {
			return a.Annotation.Pinned
		}
		return a.Quote.ChangePct > b.Quote.ChangePct
	})
}
