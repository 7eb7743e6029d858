package geo

// DefaultThresholdMeters is the minimum movement that counts as a new location.
const DefaultThresholdMeters = 1000.0

// Debouncer filters raw location updates down to meaningfully new coordinates.
type Debouncer struct {
	threshold float64
}

// NewDebouncer returns a Debouncer for the given threshold. Non-positive
// thresholds use DefaultThresholdMeters.
func NewDebouncer(thresholdMeters float64) Debouncer {
	if thresholdMeters <= 0 {
		thresholdMeters = DefaultThresholdMeters
	}
	return Debouncer{threshold: thresholdMeters}
}

// Threshold returns the configured movement threshold in meters.
func (d Debouncer) Threshold() float64 {
	return d.threshold
}

// Accept reports whether candidate should replace previous. A nil previous
// always accepts.
func (d Debouncer) Accept(candidate Coordinate, previous *Coordinate) bool {
	if previous == nil {
		return true
	}
	return Distance(candidate, *previous) >= d.threshold
}
