package rules

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/detection"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/features"
)

// ecod scores each point by the tail probabilities of its coordinates under
// the per-column empirical CDFs. It has no parameters and runs on raw
// values.
type ecod struct{}

func NewECOD(detection.Options) detection.Detector { return ecod{} }

func (ecod) Name() string { return "ecod" }

func (ecod) FitPredict(X [][]float64, contamination float64) ([]int, []float64, error) {
	n := len(X)
	if n < 2 {
		return make([]int, n), make([]float64, n), nil
	}

	scores := make([]float64, n)
	for j := range X[0] {
		col := features.Column(X, j)
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)

		skew := stat.Skew(col, nil)
		for i, v := range col {
			left := -math.Log(atOrBelow(sorted, v) / float64(n))
			right := -math.Log(atOrAbove(sorted, v) / float64(n))

			var tail float64
			switch {
			case skew < 0:
				tail = left
			case skew > 0:
				tail = right
			default:
				// zero or undefined skew
				tail = left + right
			}
			scores[i] += math.Max(tail, (left+right)/2)
		}
	}
	return detection.Labels(scores, contamination), scores, nil
}

func atOrBelow(sorted []float64, v float64) float64 {
	return float64(sort.Search(len(sorted), func(i int) bool { return sorted[i] > v }))
}

func atOrAbove(sorted []float64, v float64) float64 {
	return float64(len(sorted) - sort.SearchFloat64s(sorted, v))
}

func init() { detection.Register("ecod", NewECOD) }
