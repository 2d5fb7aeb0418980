package rules

import (
	"math"
	"sort"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/detection"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/features"
)

// lof is the local outlier factor: how much sparser a point's neighbourhood
// is than its neighbours' neighbourhoods. Input is standard-scaled first.
type lof struct {
	k int
}

func NewLOF(opt detection.Options) detection.Detector {
	k := opt.Neighbors
	if k <= 0 {
		k = 20
	}
	return lof{k: k}
}

func (l lof) Name() string { return "lof" }

func (l lof) FitPredict(X [][]float64, contamination float64) ([]int, []float64, error) {
	n := len(X)
	if n < 2 {
		return make([]int, n), make([]float64, n), nil
	}
	data := features.StandardScale(X)
	k := l.k
	if k > n-1 {
		k = n - 1
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := euclidean(data[i], data[j])
			dist[i][j], dist[j][i] = d, d
		}
	}

	neighbors := make([][]int, n)
	kdist := make([]float64, n)
	for i := 0; i < n; i++ {
		order := make([]int, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				order = append(order, j)
			}
		}
		sort.SliceStable(order, func(a, b int) bool { return dist[i][order[a]] < dist[i][order[b]] })
		neighbors[i] = order[:k]
		kdist[i] = dist[i][order[k-1]]
	}

	lrd := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for _, o := range neighbors[i] {
			sum += math.Max(kdist[o], dist[i][o])
		}
		lrd[i] = 1 / (sum/float64(k) + 1e-10)
	}

	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for _, o := range neighbors[i] {
			sum += lrd[o]
		}
		scores[i] = sum / float64(k) / lrd[i]
	}
	return detection.Labels(scores, contamination), scores, nil
}

func euclidean(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

func init() { detection.Register("lof", NewLOF) }
