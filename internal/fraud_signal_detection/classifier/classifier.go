// Package classifier trains a supervised model on the ensemble
// pseudo-labels and reports how well the consensus can be reproduced from
// the feature matrix. It produces a quality report, not alerts.
package classifier

import (
	"fmt"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/features"
	"github.com/hippocratic-health/fraud-signal-engine/internal/logger"
)

type Config struct {
	TestSize       float64     `json:"test_size" yaml:"test_size" toml:"test_size"`
	SMOTEMinimum   int         `json:"smote_minimum" yaml:"smote_minimum" toml:"smote_minimum"`
	SMOTENeighbors int         `json:"smote_neighbors" yaml:"smote_neighbors" toml:"smote_neighbors"`
	TopFeatures    int         `json:"top_features" yaml:"top_features" toml:"top_features"`
	Boost          BoostParams `json:"boost" yaml:"boost" toml:"boost"`
	// Models lists the boosting variants trained on the same split.
	Models []Growth `json:"models" yaml:"models" toml:"models"`
}

func DefaultConfig() Config {
	return Config{
		TestSize:       0.3,
		SMOTEMinimum:   5,
		SMOTENeighbors: 5,
		TopFeatures:    10,
		Boost:          DefaultBoostParams(),
		Models:         []Growth{GrowDepthwise, GrowLeafwise},
	}
}

type FeatureImportance struct {
	Name       string  `json:"feature" yaml:"feature"`
	Importance float64 `json:"importance" yaml:"importance"`
}

// ModelReport is the held-out evaluation of one boosting variant.
type ModelReport struct {
	Model          Growth              `json:"model" yaml:"model"`
	NegativeWeight float64             `json:"negative_weight" yaml:"negative_weight"`
	PositiveWeight float64             `json:"positive_weight" yaml:"positive_weight"`
	Metrics        Metrics             `json:"metrics" yaml:"metrics"`
	TopFeatures    []FeatureImportance `json:"top_features" yaml:"top_features"`
}

type Report struct {
	Skipped        bool          `json:"skipped" yaml:"skipped"`
	Reason         string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	TrainSize      int           `json:"train_size" yaml:"train_size"`
	TestSize       int           `json:"test_size" yaml:"test_size"`
	TrainPositives int           `json:"train_positives" yaml:"train_positives"`
	TestPositives  int           `json:"test_positives" yaml:"test_positives"`
	Oversampled    bool          `json:"oversampled" yaml:"oversampled"`
	Models         []ModelReport `json:"models" yaml:"models"`
}

// Best returns the model with the highest F1, the first one on ties.
func (r *Report) Best() (ModelReport, bool) {
	if r == nil || len(r.Models) == 0 {
		return ModelReport{}, false
	}
	best := r.Models[0]
	for _, m := range r.Models[1:] {
		if m.Metrics.F1 > best.Metrics.F1 {
			best = m
		}
	}
	return best, true
}

// Train fits every configured booster variant on one stratified split of m
// and evaluates them on the held-out rows. Class weights are derived after
// oversampling. Degenerate label sets yield a skipped report, not an error.
func Train(m *features.Matrix, labels []int, cfg Config) (*Report, error) {
	if m.Rows() != len(labels) {
		return nil, fmt.Errorf("matrix has %d rows but %d labels", m.Rows(), len(labels))
	}

	pos := count(labels)
	if pos < 2 || len(labels)-pos < 2 {
		reason := fmt.Sprintf("need at least 2 samples per class, got %d positive and %d negative", pos, len(labels)-pos)
		logger.Info("classifier skipped", zap.String("reason", reason))
		return &Report{Skipped: true, Reason: reason}, nil
	}

	trainIdx, testIdx, err := StratifiedSplit(labels, cfg.TestSize, cfg.Boost.Seed)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	Xtr, ytr := gather(m.X, labels, trainIdx)
	Xte, yte := gather(m.X, labels, testIdx)

	rep := &Report{TrainSize: len(trainIdx), TestSize: len(testIdx)}
	rep.TrainPositives = count(ytr)
	rep.TestPositives = count(yte)

	if rep.TrainPositives > cfg.SMOTEMinimum {
		rng := rand.New(rand.NewSource(cfg.Boost.Seed))
		Xtr, ytr = SMOTE(Xtr, ytr, cfg.SMOTENeighbors, rng)
		rep.Oversampled = true
	}

	models := cfg.Models
	if len(models) == 0 {
		models = []Growth{GrowDepthwise}
	}
	for _, growth := range models {
		params := cfg.Boost
		params.Growth = growth
		params.BalancedClassWeight = growth == GrowLeafwise
		mr, err := fitAndEvaluate(Xtr, ytr, Xte, yte, params, cfg.TopFeatures)
		if err != nil {
			return nil, fmt.Errorf("fit %s: %w", growth, err)
		}
		rep.Models = append(rep.Models, mr)
		logger.Info("classifier trained",
			zap.String("model", string(growth)),
			zap.Int("train", len(ytr)),
			zap.Int("test", rep.TestSize),
			zap.Float64("f1", mr.Metrics.F1),
			zap.Float64("roc_auc", mr.Metrics.AUC),
		)
	}
	return rep, nil
}

func fitAndEvaluate(Xtr [][]float64, ytr []int, Xte [][]float64, yte []int, params BoostParams, top int) (ModelReport, error) {
	mr := ModelReport{Model: params.Growth}
	mr.NegativeWeight, mr.PositiveWeight = params.ClassWeights(ytr)

	model, err := Fit(Xtr, ytr, params)
	if err != nil {
		return mr, err
	}
	pred := make([]int, len(Xte))
	proba := make([]float64, len(Xte))
	for i, x := range Xte {
		proba[i] = model.PredictProba(x)
		pred[i] = model.Predict(x)
	}
	mr.Metrics = Evaluate(yte, pred)
	mr.Metrics.AUC = AUC(yte, proba)
	mr.TopFeatures = topFeatures(model.Importances(), top)
	return mr, nil
}

func gather(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	outX := make([][]float64, len(idx))
	outY := make([]int, len(idx))
	for k, i := range idx {
		outX[k] = X[i]
		outY[k] = y[i]
	}
	return outX, outY
}

func count(y []int) int {
	n := 0
	for _, v := range y {
		n += v
	}
	return n
}

func topFeatures(importances []float64, n int) []FeatureImportance {
	out := make([]FeatureImportance, 0, len(importances))
	for j, v := range importances {
		name := fmt.Sprintf("f%d", j)
		if j < len(features.Columns) {
			name = features.Columns[j]
		}
		out = append(out, FeatureImportance{Name: name, Importance: v})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
