package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/classifier"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/cluster"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/detection"
	_ "github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/detection/rules"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/features"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/ingest/mapper"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/ingest/validator"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/outlier"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/scoring"
	"github.com/hippocratic-health/fraud-signal-engine/internal/logger"
)

// Config is the engine configuration. It can be loaded from a YAML or TOML
// file; zero values are not filled in, so start from DefaultConfig.
type Config struct {
	Outlier        outlier.Config    `json:"outlier" yaml:"outlier" toml:"outlier"`
	Ensemble       detection.Config  `json:"ensemble" yaml:"ensemble" toml:"ensemble"`
	Detectors      []string          `json:"detectors" yaml:"detectors" toml:"detectors"`
	Detection      detection.Options `json:"detection" yaml:"detection" toml:"detection"`
	Classifier     classifier.Config `json:"classifier" yaml:"classifier" toml:"classifier"`
	ClusterExport  int               `json:"cluster_export" yaml:"cluster_export" toml:"cluster_export"`
	ReportClusters int               `json:"report_clusters" yaml:"report_clusters" toml:"report_clusters"`
	AlertsPerType  int               `json:"alerts_per_type" yaml:"alerts_per_type" toml:"alerts_per_type"`
}

func DefaultConfig() Config {
	return Config{
		Outlier:        outlier.DefaultConfig(),
		Ensemble:       detection.DefaultConfig(),
		Detectors:      []string{"iforest", "lof", "ecod"},
		Detection:      detection.DefaultOptions(),
		Classifier:     classifier.DefaultConfig(),
		ClusterExport:  50,
		ReportClusters: 25,
		AlertsPerType:  20,
	}
}

// SetSeed applies one seed to every randomized stage.
func (c *Config) SetSeed(seed int64) {
	c.Detection.Seed = seed
	c.Classifier.Boost.Seed = seed
}

// Structural is the output of the graph pipeline.
type Structural struct {
	Graph      *domain.Graph       `json:"-" yaml:"-"`
	Components []cluster.Component `json:"-" yaml:"-"`

	Nodes    int                 `json:"nodes" yaml:"nodes"`
	Edges    int                 `json:"edges" yaml:"edges"`
	Shared   []mapper.SharedStat `json:"shared_attributes" yaml:"shared_attributes"`
	Summary  cluster.Summary     `json:"components" yaml:"components"`
	Clusters []scoring.RiskScore `json:"clusters" yaml:"clusters"`
}

type ML struct {
	Samples    int                `json:"samples" yaml:"samples"`
	Ensemble   *detection.Result  `json:"ensemble" yaml:"ensemble"`
	Classifier *classifier.Report `json:"classifier" yaml:"classifier"`
}

// Report is everything one analysis run produces. The three families stay
// separate; nothing combines them into a single score.
type Report struct {
	RunID       string         `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	Structural  Structural     `json:"structural" yaml:"structural"`
	Outliers    outlier.Report `json:"outliers" yaml:"outliers"`
	ML          ML             `json:"ml" yaml:"ml"`
}

// Analyze runs the structural, statistical and ML pipelines over snap. It
// performs no I/O. A snapshot that fails validation is rejected with
// domain.ErrInvalidSnapshot.
func Analyze(snap *domain.Snapshot, cfg Config) (*Report, error) {
	if err := validator.Validate(snap); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}

	fin := domain.NewFinancialIndex(snap.Financials)
	for _, i := range fin.Unkeyed() {
		logger.Warn("skipping financial record without facility or license number",
			zap.Int("record", i), zap.Int("year", snap.Financials[i].Year))
	}
	rep := &Report{GeneratedAt: time.Now().UTC()}

	g, shared := mapper.ToGraph(snap.Facilities, fin)
	comps := cluster.Extract(g)
	rep.Structural = Structural{
		Graph:      g,
		Components: comps,
		Nodes:      len(g.Nodes),
		Edges:      len(g.Edges),
		Shared:     shared.Summary(),
		Summary:    cluster.Summarize(comps),
		Clusters:   scoring.ScoreClusters(g, comps),
	}

	rep.Outliers = outlier.Analyze(snap.Facilities, fin, cfg.Outlier)

	ml, err := runML(snap.Facilities, fin, cfg)
	if err != nil {
		return nil, err
	}
	rep.ML = *ml

	logger.Info("analysis complete",
		zap.Int("facilities", len(snap.Facilities)),
		zap.Int("financials", fin.Len()),
		zap.Int("components", len(comps)),
		zap.Int("clusters_surfaced", len(rep.Structural.Clusters)),
		zap.Int("revenue_per_visit_outliers", len(rep.Outliers.RevenuePerVisit)),
		zap.Int("margin_outliers", len(rep.Outliers.ProfitMargins)),
		zap.Int("revenue_iqr_outliers", rep.Outliers.RevenueIQR.OutlierCount),
		zap.Int("pseudo_label_positives", rep.ML.Ensemble.Positives),
	)
	return rep, nil
}

func runML(facilities []domain.Facility, fin *domain.FinancialIndex, cfg Config) (*ML, error) {
	m := features.Build(facilities, fin)

	detectors, err := detection.Build(cfg.Detectors, cfg.Detection)
	if err != nil {
		return nil, err
	}
	ens, err := detection.Run(m, detectors, cfg.Ensemble)
	if err != nil {
		return nil, fmt.Errorf("ensemble: %w", err)
	}

	clf, err := classifier.Train(m, ens.Labels(), cfg.Classifier)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	return &ML{Samples: m.Rows(), Ensemble: ens, Classifier: clf}, nil
}
