package detection

// Detector is an unsupervised anomaly detector. FitPredict trains on X and
// labels every row: 1 for the roughly contamination share of rows with the
// highest anomaly scores, 0 otherwise. Higher scores are more anomalous.
type Detector interface {
	Name() string
	FitPredict(X [][]float64, contamination float64) (labels []int, scores []float64, err error)
}

// Options parameterize detector construction.
type Options struct {
	Seed      int64 `json:"seed" yaml:"seed" toml:"seed"`
	Trees     int   `json:"trees" yaml:"trees" toml:"trees"`
	Samples   int   `json:"samples" yaml:"samples" toml:"samples"`
	Neighbors int   `json:"neighbors" yaml:"neighbors" toml:"neighbors"`
}

func DefaultOptions() Options {
	return Options{Seed: 42, Trees: 100, Samples: 256, Neighbors: 20}
}

// Factory builds a detector from options.
type Factory func(Options) Detector
