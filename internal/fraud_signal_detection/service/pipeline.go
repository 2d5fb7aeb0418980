package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/graph/export"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/ingest/parser"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/runs"
	"github.com/hippocratic-health/fraud-signal-engine/internal/logger"
	"github.com/hippocratic-health/fraud-signal-engine/internal/metrics"
)

// Export file names inside a run directory.
const (
	FileAnalysisJSON = "analysis.json"
	FileAnalysisYAML = "analysis.yaml"
	FileClusters     = "suspicious_clusters.json"
	FileGEXF         = "facility_network.gexf"
	FileTextReport   = "analysis_report.txt"
	FileDOT          = "graph.dot"
	FileSVG          = "graph.svg"
)

type AlertStore interface {
	ReplaceNew(ctx context.Context, alerts []domain.FraudAlert) (int, error)
}

type ReportCache interface {
	Put(ctx context.Context, runID string, report any) error
}

type SnapshotSource interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
}

// Deps are the optional collaborators of a Service. Nil members are
// skipped.
type Deps struct {
	OutDir string
	// DotBin renders graph.svg when set.
	DotBin    string
	Alerts    AlertStore
	Cache     ReportCache
	Snapshots SnapshotSource
	Neo4j     export.Neo4jClient
}

type Service struct {
	cfg  Config
	deps Deps
}

func New(cfg Config, deps Deps) *Service {
	if deps.OutDir == "" {
		deps.OutDir = "out"
	}
	return &Service{cfg: cfg, deps: deps}
}

// Result describes one completed run.
type Result struct {
	Run           *runs.Run `json:"run" yaml:"run"`
	Report        *Report   `json:"report" yaml:"report"`
	AlertsWritten int       `json:"alerts_written" yaml:"alerts_written"`
	Files         []string  `json:"files" yaml:"files"`
}

// RunFromFile analyzes a JSON or YAML snapshot file.
func (s *Service) RunFromFile(ctx context.Context, path string) (*Result, error) {
	snap, _, err := parser.ParseFile(path)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("file", "failed").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	return s.Run(ctx, snap, "file", path)
}

// RunFromStore analyzes the snapshot held in the database.
func (s *Service) RunFromStore(ctx context.Context) (*Result, error) {
	if s.deps.Snapshots == nil {
		metrics.RunsTotal.WithLabelValues("store", "failed").Inc()
		return nil, domain.ErrStoreNotConfigured
	}
	snap, err := s.deps.Snapshots.Load(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("store", "failed").Inc()
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return s.Run(ctx, snap, "store", "database")
}

// Run analyzes snap, writes every export into a fresh run directory and
// hands the results to the configured sinks. Export and alert persistence
// failures fail the run and remove its directory; cache, graph database and
// SVG failures are logged only.
func (s *Service) Run(ctx context.Context, snap *domain.Snapshot, trigger, source string) (*Result, error) {
	start := time.Now()
	res, err := s.run(ctx, snap, trigger, source)

	status := "ok"
	if err != nil {
		status = "failed"
		logger.Error("analysis run failed", zap.String("trigger", trigger), zap.Error(err))
	}
	metrics.RunsTotal.WithLabelValues(trigger, status).Inc()
	metrics.RunDuration.WithLabelValues(trigger).Observe(time.Since(start).Seconds())
	return res, err
}

func (s *Service) run(ctx context.Context, snap *domain.Snapshot, trigger, source string) (*Result, error) {
	rep, err := Analyze(snap, s.cfg)
	if err != nil {
		return nil, err
	}

	run, err := runs.Create(s.deps.OutDir, trigger, source)
	if err != nil {
		return nil, err
	}
	rep.RunID = run.RunID

	files, err := s.writeExports(ctx, run, rep)
	if err != nil {
		discard(run)
		return nil, fmt.Errorf("write exports: %w", err)
	}
	res := &Result{Run: run, Report: rep, Files: files}

	if s.deps.Alerts != nil {
		alerts := BuildAlerts(rep, s.cfg.AlertsPerType)
		n, err := s.deps.Alerts.ReplaceNew(ctx, alerts)
		if err != nil {
			discard(run)
			return nil, err
		}
		res.AlertsWritten = n
		for _, a := range alerts {
			metrics.AlertsWritten.WithLabelValues(string(a.AlertType)).Inc()
		}
	}

	if s.deps.Neo4j != nil {
		st := rep.Structural
		if err := export.PushToNeo4j(ctx, s.deps.Neo4j, st.Graph, st.Components, st.Clusters); err != nil {
			logger.Warn("neo4j export failed", zap.String("run_id", run.RunID), zap.Error(err))
		}
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Put(ctx, run.RunID, rep); err != nil {
			logger.Warn("report cache write failed", zap.String("run_id", run.RunID), zap.Error(err))
		}
	}

	observe(rep)
	logger.Info("analysis run stored",
		zap.String("run_id", run.RunID),
		zap.String("dir", run.Dir),
		zap.Int("alerts_written", res.AlertsWritten),
	)
	return res, nil
}

// discard removes the directory of a failed run so it is never served as a
// finished report.
func discard(run *runs.Run) {
	if err := os.RemoveAll(run.Dir); err != nil {
		logger.Warn("failed to remove run directory", zap.String("run_id", run.RunID), zap.Error(err))
	}
}

func (s *Service) writeExports(ctx context.Context, run *runs.Run, rep *Report) ([]string, error) {
	st := rep.Structural
	var files []string

	steps := []struct {
		name string
		fn   func(string) error
	}{
		{FileAnalysisJSON, func(p string) error { return export.WriteJSON(p, rep) }},
		{FileAnalysisYAML, func(p string) error { return export.WriteYAML(p, rep) }},
		{FileClusters, func(p string) error {
			return export.WriteJSON(p, export.SuspiciousClusters(st.Clusters, s.cfg.ClusterExport))
		}},
		{FileGEXF, func(p string) error { return export.WriteGEXF(p, st.Graph) }},
		{FileTextReport, func(p string) error {
			return export.WriteTextReport(p, st.Graph, st.Components, st.Clusters, s.cfg.ReportClusters)
		}},
		{FileDOT, func(p string) error {
			return export.WriteFile(p, export.ToDOT(st.Graph, st.Components, st.Clusters, "Suspicious facility clusters"))
		}},
	}
	for _, step := range steps {
		path := run.Path(step.name)
		if err := step.fn(path); err != nil {
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
		files = append(files, path)
	}

	if s.deps.DotBin != "" {
		svg := run.Path(FileSVG)
		if err := export.DotTo(ctx, run.Path(FileDOT), svg, "svg", s.deps.DotBin); err != nil {
			logger.Warn("graphviz render failed", zap.String("run_id", run.RunID), zap.Error(err))
		} else {
			files = append(files, svg)
		}
	}
	return files, nil
}

// LoadReport reads the analysis.json of a stored run. Unknown or malformed
// run ids return domain.ErrRunNotFound.
func (s *Service) LoadReport(runID string) (json.RawMessage, error) {
	run, err := runs.Read(s.deps.OutDir, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	b, err := os.ReadFile(run.Path(FileAnalysisJSON))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func observe(rep *Report) {
	metrics.ClustersSurfaced.Set(float64(len(rep.Structural.Clusters)))
	metrics.OutliersFlagged.WithLabelValues(string(domain.MetricRevenuePerVisit)).Set(float64(len(rep.Outliers.RevenuePerVisit)))
	metrics.OutliersFlagged.WithLabelValues(string(domain.MetricProfitMargin)).Set(float64(len(rep.Outliers.ProfitMargins)))
	if rep.ML.Ensemble != nil {
		metrics.PseudoLabelPositives.Set(float64(rep.ML.Ensemble.Positives))
	}
}
