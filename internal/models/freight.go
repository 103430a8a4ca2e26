package models

import (
	"fmt"
	"math"
)

// OverflowBin is the catch-all bucket for ratios above 100%.
const OverflowBin = ">100%"

// FreightBin is a half-open bucket (Lower, Upper] of the freight-to-price
// ratio. The first bin also includes its lower edge.
type FreightBin struct {
	Label string
	Lower float64
	Upper float64
}

// FreightBinScheme is the ordered set of freight ratio buckets. Bins are
// mutually exclusive and together cover [0, +Inf).
type FreightBinScheme []FreightBin

func DefaultFreightBins() FreightBinScheme {
	return NewFreightBinScheme([]float64{0.1, 0.2, 0.3, 0.5, 1.0})
}

// NewFreightBinScheme builds percentage-labelled bins from ascending upper
// edges, followed by the overflow bin.
func NewFreightBinScheme(edges []float64) FreightBinScheme {
	scheme := make(FreightBinScheme, 0, len(edges)+1)
	lower := 0.0
	for _, upper := range edges {
		scheme = append(scheme, FreightBin{
			Label: fmt.Sprintf("%s-%s%%", pct(lower), pct(upper)),
			Lower: lower,
			Upper: upper,
		})
		lower = upper
	}
	scheme = append(scheme, FreightBin{Label: OverflowBin, Lower: lower, Upper: math.Inf(1)})
	return scheme
}

func pct(v float64) string {
	return fmt.Sprintf("%g", math.Round(v*1000)/10)
}

// Bin returns the label of the bucket containing ratio, or "" when the ratio
// is unknown.
func (s FreightBinScheme) Bin(ratio float64) string {
	if math.IsNaN(ratio) {
		return ""
	}
	for i, b := range s {
		if ratio <= b.Upper && (ratio > b.Lower || i == 0) {
			return b.Label
		}
	}
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1].Label
}

// Index reports the position of label in the scheme, or -1.
func (s FreightBinScheme) Index(label string) int {
	for i, b := range s {
		if b.Label == label {
			return i
		}
	}
	return -1
}

func (s FreightBinScheme) Labels() []string {
	labels := make([]string, len(s))
	for i, b := range s {
		labels[i] = b.Label
	}
	return labels
}
