package rules

import (
	"math"
	"math/rand"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/detection"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/features"
)

const eulerGamma = 0.5772156649015329

// iforest isolates points with random axis-aligned splits. Points that are
// isolated in few splits score close to 1. Input is robust-scaled first.
type iforest struct {
	trees   int
	samples int
	seed    int64
}

func NewIsolationForest(opt detection.Options) detection.Detector {
	f := iforest{trees: opt.Trees, samples: opt.Samples, seed: opt.Seed}
	if f.trees <= 0 {
		f.trees = 100
	}
	if f.samples <= 0 {
		f.samples = 256
	}
	return f
}

func (f iforest) Name() string { return "iforest" }

type itreeNode struct {
	feature     int
	split       float64
	left, right *itreeNode
	size        int
}

func (f iforest) FitPredict(X [][]float64, contamination float64) ([]int, []float64, error) {
	n := len(X)
	if n < 2 {
		return make([]int, n), make([]float64, n), nil
	}
	data := features.RobustScale(X)
	rng := rand.New(rand.NewSource(f.seed))

	sampleSize := f.samples
	if sampleSize > n {
		sampleSize = n
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))

	forest := make([]*itreeNode, f.trees)
	for t := range forest {
		idx := rng.Perm(n)[:sampleSize]
		forest[t] = growITree(data, idx, 0, maxDepth, rng)
	}

	norm := avgPathLength(sampleSize)
	scores := make([]float64, n)
	for i, x := range data {
		total := 0.0
		for _, tree := range forest {
			total += pathLength(tree, x, 0)
		}
		mean := total / float64(len(forest))
		scores[i] = math.Pow(2, -mean/norm)
	}
	return detection.Labels(scores, contamination), scores, nil
}

func growITree(X [][]float64, idx []int, depth, maxDepth int, rng *rand.Rand) *itreeNode {
	if depth >= maxDepth || len(idx) <= 1 {
		return &itreeNode{size: len(idx)}
	}

	// only features that still vary within this node can split it
	var candidates []int
	lows := make([]float64, len(X[0]))
	highs := make([]float64, len(X[0]))
	for j := range X[0] {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range idx {
			lo = math.Min(lo, X[i][j])
			hi = math.Max(hi, X[i][j])
		}
		lows[j], highs[j] = lo, hi
		if hi > lo {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return &itreeNode{size: len(idx)}
	}

	j := candidates[rng.Intn(len(candidates))]
	split := lows[j] + rng.Float64()*(highs[j]-lows[j])

	var left, right []int
	for _, i := range idx {
		if X[i][j] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &itreeNode{
		feature: j,
		split:   split,
		left:    growITree(X, left, depth+1, maxDepth, rng),
		right:   growITree(X, right, depth+1, maxDepth, rng),
	}
}

func pathLength(node *itreeNode, x []float64, depth int) float64 {
	if node.left == nil {
		return float64(depth) + avgPathLength(node.size)
	}
	if x[node.feature] < node.split {
		return pathLength(node.left, x, depth+1)
	}
	return pathLength(node.right, x, depth+1)
}

// avgPathLength is the expected path length of an unsuccessful search in a
// binary search tree of n points.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		h := math.Log(float64(n-1)) + eulerGamma
		return 2*h - 2*float64(n-1)/float64(n)
	}
}

func init() { detection.Register("iforest", NewIsolationForest) }
