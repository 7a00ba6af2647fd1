package calculator

import (
	"errors"
	"math"
	"testing"
	"time"

	"BlockScreener/internal/model"
)

func barsFromCloses(closes ...float64) model.HistorySeries {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bars := make(model.HistorySeries, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return bars
}

func TestCalculateMA5(t *testing.T) {
	ma, err := CalculateMA5(barsFromCloses(100, 102, 98, 101, 99))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ma != 100.0 {
		t.Errorf("expected 100.00, got %.2f", ma)
	}
}

func TestCalculateMA5_UsesTrailingBarsAndRounds(t *testing.T) {
	ma, err := CalculateMA5(barsFromCloses(1, 1, 1, 10.01, 10.02, 10.04, 10.05, 10.07))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (10.01+10.02+10.04+10.05+10.07)/5 = 10.038
	if ma != 10.04 {
		t.Errorf("expected 10.04, got %v", ma)
	}
}

func TestCalculateMA5_DropsInvalidCloses(t *testing.T) {
	bars := barsFromCloses(100, 102, math.NaN(), 98, 101)
	if _, err := CalculateMA5(bars); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData with 4 valid closes, got %v", err)
	}
	bars = append(bars, model.OHLCV{Close: 99})
	ma, err := CalculateMA5(bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ma != 100.0 {
		t.Errorf("expected 100.00, got %.2f", ma)
	}
}

func TestCalculateMA5Distance(t *testing.T) {
	d, err := CalculateMA5Distance(110, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 10.0 {
		t.Errorf("expected 10.00, got %.2f", d)
	}
	for _, price := range []float64{-5, 0, 1, 110, 1e9} {
		if _, err := CalculateMA5Distance(price, 0); err == nil {
			t.Errorf("price %v with ma5=0: expected error", price)
		}
	}
	if _, err := CalculateMA5Distance(0, 100); err == nil {
		t.Error("expected error for missing price")
	}
}

func TestMaxVolumeRatio(t *testing.T) {
	tests := []struct {
		name    string
		volumes []float64
		window  int
		want    float64
		wantErr bool
	}{
		{"four day series", []float64{100, 150, 90, 200}, 10, 2.22, false},
		{"single bar", []float64{100}, 10, 0, true},
		{"empty", nil, 10, 0, true},
		{"trailing window only", []float64{10, 100, 110, 120}, 2, 1.1, false},
		{"zero denominator skipped", []float64{0, 50, 100}, 10, 2, false},
		{"all zero", []float64{0, 0}, 10, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MaxVolumeRatio(tt.volumes, tt.window)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCalculateMaxVolumeRatio_DropsInvalidVolumes(t *testing.T) {
	bars := model.HistorySeries{{Volume: 100}, {Volume: math.NaN()}, {Volume: 150}}
	got, err := CalculateMaxVolumeRatio(bars, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1.5 {
		t.Errorf("expected 1.5, got %v", got)
	}
}

func TestAmplitudePct(t *testing.T) {
	if got := AmplitudePct(120, 100, 110); got != 18.18 {
		t.Errorf("expected 18.18, got %v", got)
	}
}

func TestCalculateAmplitude(t *testing.T) {
	var bars model.HistorySeries
	for i := 0; i < 12; i++ {
		bars = append(bars, model.OHLCV{High: 105, Low: 101, Close: 103})
	}
	// Outside the trailing 10 bars.
	bars[0].High = 500
	bars[1].Low = 1
	bars[5].High = 120
	bars[8].Low = 100

	got, err := CalculateAmplitude(bars, 110, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 18.18 {
		t.Errorf("expected 18.18, got %v", got)
	}

	if _, err := CalculateAmplitude(bars[:9], 110, 10); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for 9 bars, got %v", err)
	}
	if _, err := CalculateAmplitude(bars, 0, 10); err == nil {
		t.Error("expected error for zero price")
	}
}

func TestMomentumWindow_EvictsOldest(t *testing.T) {
	w := NewMomentumWindow(5)
	for i := 1; i <= 7; i++ {
		w.Push(float64(i))
	}
	got := w.Values()
	want := []float64{3, 4, 5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	w.Push(math.NaN())
	if w.Len() != 5 {
		t.Errorf("NaN must not be stored, len=%d", w.Len())
	}
}

func TestCalculateMomentum(t *testing.T) {
	w := NewMomentumWindow(5)
	one, five := CalculateMomentum(w, 3.5)
	if one != 0 || five != 0 {
		t.Errorf("empty window: expected 0/0, got %v/%v", one, five)
	}

	w.Push(1.0)
	w.Push(2.0)
	one, five = CalculateMomentum(w, 3.5)
	if one != 1.5 || five != 2.5 {
		t.Errorf("partial window: expected 1.5/2.5, got %v/%v", one, five)
	}

	for _, v := range []float64{2.5, 3.0, 3.2, 3.4} {
		w.Push(v)
	}
	// window now {2.0, 2.5, 3.0, 3.2, 3.4}; 3.5-3.4 is 0.10000000000000009 before rounding
	one, five = CalculateMomentum(w, 3.5)
	if one != 0.1 || five != 1.5 {
		t.Errorf("full window: expected 0.1/1.5, got %v/%v", one, five)
	}

	one, five = CalculateMomentum(w, math.Inf(1))
	if one != 0 || five != 0 {
		t.Errorf("non-finite input: expected 0/0, got %v/%v", one, five)
	}
}
