package calculator

import (
	"errors"

	"BlockScreener/internal/model"
)

// CalculateMaxVolumeRatio returns the largest bar-over-previous-bar volume
// ratio among the trailing window ratios, rounded to 2 decimals.
func CalculateMaxVolumeRatio(bars model.HistorySeries, window int) (float64, error) {
	volumes := make([]float64, 0, len(bars))
	for _, b := range bars {
		if isFinite(b.Volume) && b.Volume >= 0 {
			volumes = append(volumes, b.Volume)
		}
	}
	return MaxVolumeRatio(volumes, window)
}

// MaxVolumeRatio works on a plain volume slice; see CalculateMaxVolumeRatio.
func MaxVolumeRatio(volumes []float64, window int) (float64, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	if len(volumes) < 2 {
		return 0, ErrInsufficientData
	}
	ratios := make([]float64, 0, len(volumes)-1)
	for i := 1; i < len(volumes); i++ {
		if volumes[i-1] == 0 {
			continue
		}
		ratios = append(ratios, volumes[i]/volumes[i-1])
	}
	if len(ratios) == 0 {
		return 0, ErrInsufficientData
	}
	if len(ratios) > window {
		ratios = ratios[len(ratios)-window:]
	}
	best := ratios[0]
	for _, r := range ratios[1:] {
		if r > best {
			best = r
		}
	}
	return Round2(best), nil
}
