package features

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// RobustScale centers each column on its median and divides by the
// interquartile range. Columns with no spread are only centered.
func RobustScale(X [][]float64) [][]float64 {
	return scale(X, func(col []float64) (float64, float64) {
		center, err := stats.Median(col)
		if err != nil {
			center = 0
		}
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)
		iqr := Percentile(sorted, 75) - Percentile(sorted, 25)
		return center, iqr
	})
}

// StandardScale centers each column on its mean and divides by the
// population standard deviation.
func StandardScale(X [][]float64) [][]float64 {
	return scale(X, func(col []float64) (float64, float64) {
		return stat.PopMeanStdDev(col, nil)
	})
}

func scale(X [][]float64, params func([]float64) (float64, float64)) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		out[i] = make([]float64, len(X[i]))
	}
	if len(X) == 0 {
		return out
	}
	for j := range X[0] {
		center, spread := params(Column(X, j))
		if spread == 0 || math.IsNaN(spread) {
			spread = 1
		}
		for i := range X {
			out[i][j] = (X[i][j] - center) / spread
		}
	}
	return out
}

// Percentile returns the q-th percentile (0..100) of sorted, interpolating
// linearly between the closest ranks.
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi >= n {
		hi = n - 1
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
