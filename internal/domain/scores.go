package domain

import "math"

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

const (
	MagnitudeMin = 1.0
	MagnitudeMax = 10.0
)

var magnitudeLabels = []struct {
	threshold float64
	label     string
}{
	{9, "Seismic"},
	{7, "Profound"},
	{5, "Rising"},
	{3, "Subtle"},
	{1, "Dormant"},
}

// DescribeMagnitude maps a 1..10 magnitude to its label. Values below every
// threshold are Dormant.
func DescribeMagnitude(m float64) string {
	for _, l := range magnitudeLabels {
		if m >= l.threshold {
			return l.label
		}
	}
	return "Dormant"
}
