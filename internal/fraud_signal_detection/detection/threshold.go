package detection

import (
	"sort"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/features"
)

// Threshold is the score at the (1-contamination) percentile of scores.
func Threshold(scores []float64, contamination float64) float64 {
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	return features.Percentile(sorted, 100*(1-contamination))
}

// Labels marks scores strictly above the contamination threshold.
func Labels(scores []float64, contamination float64) []int {
	labels := make([]int, len(scores))
	if len(scores) == 0 {
		return labels
	}
	thr := Threshold(scores, contamination)
	for i, s := range scores {
		if s > thr {
			labels[i] = 1
		}
	}
	return labels
}
