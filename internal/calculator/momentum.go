package calculator

// MomentumWindow keeps the most recent change_pct snapshots for one symbol,
// oldest first. It is owned by the refresh cycle and is not safe for
// concurrent use.
type MomentumWindow struct {
	values []float64
	size   int
}

// NewMomentumWindow creates a window holding at most size entries.
func NewMomentumWindow(size int) *MomentumWindow {
	if size <= 0 {
		size = 5
	}
	return &MomentumWindow{values: make([]float64, 0, size), size: size}
}

// Push appends v, evicting the oldest entry when full. Non-finite values are ignored.
func (w *MomentumWindow) Push(v float64) {
	if !isFinite(v) {
		return
	}
	if len(w.values) == w.size {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.size-1]
	}
	w.values = append(w.values, v)
}

// Len returns the number of stored snapshots.
func (w *MomentumWindow) Len() int { return len(w.values) }

// Values returns a copy of the stored snapshots, oldest first.
func (w *MomentumWindow) Values() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}

// CalculateMomentum returns the 1-cycle and n-cycle change of current against
// the window. The 1-cycle value compares with the newest entry, the n-cycle
// value with the oldest entry. Both are rounded to 2 decimals like every
// percent figure in the view, and are 0 for an empty window or a non-finite
// input.
func CalculateMomentum(w *MomentumWindow, current float64) (oneCycle, nCycle float64) {
	if w == nil || len(w.values) == 0 || !isFinite(current) {
		return 0, 0
	}
	newest := w.values[len(w.values)-1]
	oldest := w.values[0]
	return Round2(current - newest), Round2(current - oldest)
}
