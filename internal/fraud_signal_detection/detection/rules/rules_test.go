package rules

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/detection"
)

// blob returns n points around the origin plus one far outlier as the last
// row.
func blob(n int) [][]float64 {
	rng := rand.New(rand.NewSource(7))
	X := make([][]float64, 0, n+1)
	for i := 0; i < n; i++ {
		X = append(X, []float64{rng.NormFloat64(), rng.NormFloat64(), 10 + rng.NormFloat64()})
	}
	return append(X, []float64{50, 50, 200})
}

func argmax(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func TestDetectorsFlagTheObviousOutlier(t *testing.T) {
	X := blob(60)
	outlier := len(X) - 1

	for _, d := range []detection.Detector{
		NewIsolationForest(detection.DefaultOptions()),
		NewLOF(detection.DefaultOptions()),
		NewECOD(detection.DefaultOptions()),
	} {
		t.Run(d.Name(), func(t *testing.T) {
			labels, scores, err := d.FitPredict(X, 0.1)
			require.NoError(t, err)
			require.Len(t, labels, len(X))
			require.Len(t, scores, len(X))

			assert.Equal(t, 1, labels[outlier])
			assert.Equal(t, outlier, argmax(scores))

			flagged := 0
			for _, l := range labels {
				flagged += l
			}
			assert.LessOrEqual(t, flagged, 7, "about 10 percent of 61 rows")
			assert.GreaterOrEqual(t, flagged, 1)
		})
	}
}

func TestDetectors_DegenerateInput(t *testing.T) {
	for _, d := range []detection.Detector{
		NewIsolationForest(detection.Options{}),
		NewLOF(detection.Options{}),
		NewECOD(detection.Options{}),
	} {
		labels, scores, err := d.FitPredict([][]float64{{1, 2}}, 0.1)
		require.NoError(t, err, d.Name())
		assert.Equal(t, []int{0}, labels, d.Name())
		assert.Equal(t, []float64{0}, scores, d.Name())

		labels, _, err = d.FitPredict(nil, 0.1)
		require.NoError(t, err)
		assert.Empty(t, labels)
	}
}

func TestDetectors_ConstantData(t *testing.T) {
	X := make([][]float64, 10)
	for i := range X {
		X[i] = []float64{3, 3}
	}
	for _, d := range []detection.Detector{
		NewIsolationForest(detection.DefaultOptions()),
		NewLOF(detection.DefaultOptions()),
		NewECOD(detection.DefaultOptions()),
	} {
		labels, _, err := d.FitPredict(X, 0.1)
		require.NoError(t, err, d.Name())
		assert.Equal(t, make([]int, 10), labels, d.Name())
	}
}

func TestIsolationForest_SeededIsDeterministic(t *testing.T) {
	X := blob(40)
	opt := detection.DefaultOptions()
	_, a, err := NewIsolationForest(opt).FitPredict(X, 0.1)
	require.NoError(t, err)
	_, b, err := NewIsolationForest(opt).FitPredict(X, 0.1)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLOF_NeighborsClampedToPopulation(t *testing.T) {
	X := [][]float64{{0, 0}, {0, 1}, {1, 0}, {9, 9}}
	labels, scores, err := NewLOF(detection.Options{Neighbors: 20}).FitPredict(X, 0.25)
	require.NoError(t, err)
	assert.Equal(t, 3, argmax(scores))
	assert.Equal(t, 1, labels[3])
}

func TestRegistered(t *testing.T) {
	assert.Equal(t, []string{"ecod", "iforest", "lof"}, detection.Names())

	ds, err := detection.Build([]string{"lof", "ecod"}, detection.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "lof", ds[0].Name())
	assert.Equal(t, "ecod", ds[1].Name())

	_, err = detection.Build([]string{"svm"}, detection.DefaultOptions())
	assert.ErrorContains(t, err, `unknown detector "svm"`)
}
