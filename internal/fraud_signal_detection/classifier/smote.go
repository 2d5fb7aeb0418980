package classifier

import (
	"math"
	"math/rand"
	"sort"
)

// SMOTE oversamples the positive class with synthetic points interpolated
// between a positive sample and one of its k nearest positive neighbours,
// until both classes are the same size.
func SMOTE(X [][]float64, y []int, k int, rng *rand.Rand) ([][]float64, []int) {
	var minority []int
	for i, label := range y {
		if label == 1 {
			minority = append(minority, i)
		}
	}
	need := len(y) - 2*len(minority)
	if need <= 0 || len(minority) < 2 {
		return X, y
	}
	if k > len(minority)-1 {
		k = len(minority) - 1
	}

	neighbors := make(map[int][]int, len(minority))
	for _, i := range minority {
		others := make([]int, 0, len(minority)-1)
		for _, j := range minority {
			if j != i {
				others = append(others, j)
			}
		}
		sort.SliceStable(others, func(a, b int) bool {
			return sqDist(X[i], X[others[a]]) < sqDist(X[i], X[others[b]])
		})
		neighbors[i] = others[:k]
	}

	outX := append([][]float64(nil), X...)
	outY := append([]int(nil), y...)
	for s := 0; s < need; s++ {
		i := minority[rng.Intn(len(minority))]
		nn := neighbors[i][rng.Intn(k)]
		gap := rng.Float64()
		synth := make([]float64, len(X[i]))
		for f := range synth {
			synth[f] = X[i][f] + gap*(X[nn][f]-X[i][f])
		}
		outX = append(outX, synth)
		outY = append(outY, 1)
	}
	return outX, outY
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += math.Pow(a[i]-b[i], 2)
	}
	return s
}
