package classifier

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Growth selects how each boosting tree is grown.
type Growth string

const (
	// GrowDepthwise splits every node of a level before the next level.
	GrowDepthwise Growth = "depthwise"
	// GrowLeafwise splits the best leaf first, bounded by MaxLeaves.
	GrowLeafwise Growth = "leafwise"
)

// BoostParams configures gradient boosting with logistic loss.
type BoostParams struct {
	Rounds          int     `json:"rounds" yaml:"rounds" toml:"rounds"`
	MaxDepth        int     `json:"max_depth" yaml:"max_depth" toml:"max_depth"`
	MaxLeaves       int     `json:"max_leaves" yaml:"max_leaves" toml:"max_leaves"`
	LearningRate    float64 `json:"learning_rate" yaml:"learning_rate" toml:"learning_rate"`
	Subsample       float64 `json:"subsample" yaml:"subsample" toml:"subsample"`
	ColsampleByTree float64 `json:"colsample_bytree" yaml:"colsample_bytree" toml:"colsample_bytree"`
	Lambda          float64 `json:"lambda" yaml:"lambda" toml:"lambda"`
	MinChildWeight  float64 `json:"min_child_weight" yaml:"min_child_weight" toml:"min_child_weight"`
	Growth          Growth  `json:"growth" yaml:"growth" toml:"growth"`
	// ScalePosWeight multiplies the gradient of positive samples. Zero means
	// it is derived from the training labels the model is fitted on.
	ScalePosWeight float64 `json:"scale_pos_weight" yaml:"scale_pos_weight" toml:"scale_pos_weight"`
	// BalancedClassWeight weights each class by n/(2*class size) and
	// ignores ScalePosWeight.
	BalancedClassWeight bool  `json:"balanced_class_weight" yaml:"balanced_class_weight" toml:"balanced_class_weight"`
	Seed                int64 `json:"seed" yaml:"seed" toml:"seed"`
}

func DefaultBoostParams() BoostParams {
	return BoostParams{
		Rounds:          200,
		MaxDepth:        6,
		MaxLeaves:       31,
		LearningRate:    0.1,
		Subsample:       0.8,
		ColsampleByTree: 0.8,
		Lambda:          1,
		MinChildWeight:  1,
		Growth:          GrowDepthwise,
		Seed:            42,
	}
}

// ClassWeights returns the gradient multipliers for negatives and positives.
func (p BoostParams) ClassWeights(y []int) (neg, pos float64) {
	n, npos := len(y), count(y)
	if p.BalancedClassWeight {
		if npos == 0 || npos == n {
			return 1, 1
		}
		return float64(n) / float64(2*(n-npos)), float64(n) / float64(2*npos)
	}
	pos = p.ScalePosWeight
	if pos <= 0 {
		pos = 1
		if npos > 0 {
			pos = float64(n) / float64(npos)
		}
	}
	return 1, pos
}

// Booster is a fitted gradient-boosted tree ensemble.
type Booster struct {
	trees        []*treeNode
	learningRate float64
	importances  []float64
}

// Fit trains a booster on X and binary labels y.
func Fit(X [][]float64, y []int, p BoostParams) (*Booster, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("empty training data")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("X and y must have same number of samples")
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		p.Subsample = 1
	}
	if p.ColsampleByTree <= 0 || p.ColsampleByTree > 1 {
		p.ColsampleByTree = 1
	}
	if p.MaxLeaves < 2 {
		p.MaxLeaves = 2
	}
	switch p.Growth {
	case "", GrowDepthwise, GrowLeafwise:
	default:
		return nil, fmt.Errorf("unknown tree growth %q", p.Growth)
	}

	n, nf := len(X), len(X[0])
	negW, posW := p.ClassWeights(y)

	rng := rand.New(rand.NewSource(p.Seed))
	b := &treeBuilder{
		maxDepth:       p.MaxDepth,
		maxLeaves:      p.MaxLeaves,
		lambda:         p.Lambda,
		minChildWeight: p.MinChildWeight,
		gains:          make([]float64, nf),
		splits:         make([]int, nf),
	}
	model := &Booster{learningRate: p.LearningRate}

	margin := make([]float64, n)
	grad := make([]float64, n)
	hess := make([]float64, n)
	sampleSize := int(math.Max(1, math.Round(p.Subsample*float64(n))))
	colSize := int(math.Max(1, math.Round(p.ColsampleByTree*float64(nf))))

	for round := 0; round < p.Rounds; round++ {
		for i := range X {
			prob := sigmoid(margin[i])
			w := negW
			if y[i] == 1 {
				w = posW
			}
			grad[i] = (prob - float64(y[i])) * w
			hess[i] = math.Max(prob*(1-prob)*w, 1e-16)
		}

		rows := rng.Perm(n)[:sampleSize]
		b.features = rng.Perm(nf)[:colSize]
		sort.Ints(b.features)

		var tree *treeNode
		if p.Growth == GrowLeafwise {
			tree = b.buildLeafwise(X, grad, hess, rows)
		} else {
			tree = b.buildDepthwise(X, grad, hess, rows, 0)
		}
		model.trees = append(model.trees, tree)
		for i := range X {
			margin[i] += p.LearningRate * tree.predict(X[i])
		}
	}

	// average gain per split, normalized to sum to 1
	model.importances = make([]float64, nf)
	for f := range b.gains {
		if b.splits[f] > 0 {
			model.importances[f] = b.gains[f] / float64(b.splits[f])
		}
	}
	if total := floats.Sum(model.importances); total > 0 {
		floats.Scale(1/total, model.importances)
	}
	return model, nil
}

// PredictProba returns the positive-class probability of x.
func (m *Booster) PredictProba(x []float64) float64 {
	margin := 0.0
	for _, t := range m.trees {
		margin += m.learningRate * t.predict(x)
	}
	return sigmoid(margin)
}

func (m *Booster) Predict(x []float64) int {
	if m.PredictProba(x) >= 0.5 {
		return 1
	}
	return 0
}

// Importances returns per-feature gain importance summing to 1, or all
// zeros when no split was made.
func (m *Booster) Importances() []float64 {
	return append([]float64(nil), m.importances...)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
