package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/outlier"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/scoring"
)

func sharedAddressSnapshot() *domain.Snapshot {
	return &domain.Snapshot{Facilities: []domain.Facility{
		{ID: "1", Name: "One", Address: "10 Oak Ave", City: "Fresno", Zip: "93701", Phone: "5590000001"},
		{ID: "2", Name: "Two", Address: "10 oak ave", City: "FRESNO", Zip: "93701-1234", Phone: "5590000002"},
		{ID: "3", Name: "Three", Address: " 10 Oak Ave ", City: "Fresno", Zip: "93701", Phone: "5590000003"},
	}}
}

func networkSnapshot() *domain.Snapshot {
	snap := &domain.Snapshot{}
	for i := 1; i <= 4; i++ {
		id := fmt.Sprintf("N%d", i)
		snap.Facilities = append(snap.Facilities, domain.Facility{
			ID: id, Name: "Net " + id, Phone: "(213) 555-0100", Address: "500 Wilshire", City: "Los Angeles", Zip: "90010",
		})
		net := 1_000_000.0
		if i == 4 {
			net = -250_000
		}
		snap.Financials = append(snap.Financials, domain.FinancialRecord{
			FacilityNumber: id, Year: 2023,
			TotalRevenue: domain.F(15_000_000), NetIncome: domain.F(net), TotalVisits: domain.F(1000),
		})
	}
	return snap
}

func TestAnalyze_SharedAddressCluster(t *testing.T) {
	rep, err := Analyze(sharedAddressSnapshot(), DefaultConfig())
	require.NoError(t, err)

	require.Len(t, rep.Structural.Clusters, 1)
	c := rep.Structural.Clusters[0]
	assert.Equal(t, 3, c.FacilityCount)
	assert.Equal(t, 1, c.SharedTypes)
	assert.InDelta(t, 4.5, c.Score, 1e-9)

	// no financials: the ML population is empty and the classifier is skipped
	assert.Equal(t, 0, rep.ML.Samples)
	assert.True(t, rep.ML.Classifier.Skipped)
	assert.Empty(t, rep.ML.Ensemble.PseudoLabels)
}

func TestAnalyze_NothingShared(t *testing.T) {
	snap := &domain.Snapshot{Facilities: []domain.Facility{
		{ID: "a", Name: "A", Phone: "5550000001", Address: "1 A St"},
		{ID: "b", Name: "B", Phone: "5550000002", Address: "2 B St"},
	}}
	rep, err := Analyze(snap, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, rep.Structural.Clusters)
	assert.Equal(t, 2, rep.Structural.Summary.Components)
}

func TestAnalyze_HighRevenueNegativeIncomeNetwork(t *testing.T) {
	rep, err := Analyze(networkSnapshot(), DefaultConfig())
	require.NoError(t, err)

	require.Len(t, rep.Structural.Clusters, 1)
	c := rep.Structural.Clusters[0]
	assert.Equal(t, 4, c.FacilityCount)
	assert.Equal(t, 60_000_000.0, c.TotalRevenue)
	assert.True(t, c.HasNegativeIncome)
	assert.InDelta(t, 19.2, c.Score, 1e-9)
	assert.Equal(t, 4, rep.Outliers.Stats.WithFinancials)
}

func TestAnalyze_InvalidSnapshot(t *testing.T) {
	snap := &domain.Snapshot{Facilities: []domain.Facility{{ID: "x"}, {ID: "x"}}}
	_, err := Analyze(snap, DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidSnapshot))

	_, err = Analyze(nil, DefaultConfig())
	assert.True(t, errors.Is(err, domain.ErrInvalidSnapshot))
}

func TestAnalyze_UnknownDetector(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detectors = []string{"iforest", "svm"}
	_, err := Analyze(networkSnapshot(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "svm")
}

func populationSnapshot(n int) *domain.Snapshot {
	snap := &domain.Snapshot{}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("P%03d", i)
		revenue := 1_000_000 + float64(i%7)*50_000
		visits := 5_000 + float64(i%5)*200
		if i%17 == 0 {
			revenue *= 30
			visits /= 10
		}
		snap.Facilities = append(snap.Facilities, domain.Facility{ID: id, Name: "Facility " + id, Capacity: 10 + i%9})
		snap.Financials = append(snap.Financials, domain.FinancialRecord{
			FacilityNumber: id, Year: 2023,
			TotalRevenue:  domain.F(revenue),
			TotalExpenses: domain.F(revenue * 0.9),
			NetIncome:     domain.F(revenue * 0.1),
			TotalVisits:   domain.F(visits),
			TotalPatients: domain.F(visits / 4),
		})
	}
	return snap
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Classifier.Boost.Rounds = 20
	return cfg
}

func TestAnalyze_MLPipelineDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Classifier.Boost.Rounds = 20

	a, err := Analyze(populationSnapshot(80), cfg)
	require.NoError(t, err)
	b, err := Analyze(populationSnapshot(80), cfg)
	require.NoError(t, err)

	assert.Equal(t, 80, a.ML.Samples)
	require.Len(t, a.ML.Ensemble.Reports, 3)
	assert.Equal(t, a.ML.Ensemble.Labels(), b.ML.Ensemble.Labels())
	assert.Equal(t, a.ML.Classifier, b.ML.Classifier)
	assert.Greater(t, a.ML.Ensemble.Positives, 0)

	// only the planted facilities stand out on revenue per visit
	planted := map[string]bool{"P000": true, "P017": true, "P034": true, "P051": true, "P068": true}
	require.NotEmpty(t, a.Outliers.RevenuePerVisit)
	for _, o := range a.Outliers.RevenuePerVisit {
		assert.True(t, planted[o.FacilityID], o.FacilityID)
	}
}

func TestBuildAlerts(t *testing.T) {
	z := 3.5
	rep := &Report{
		Outliers: outlier.Report{
			RevenuePerVisit: []outlier.Alert{
				{FacilityID: "F1", FacilityName: "One", Value: 912.5, ZScore: &z, Severity: domain.SeverityHigh, Revenue: 9_125_000, Visits: 10_000},
			},
			ProfitMargins: []outlier.Alert{
				{FacilityID: "F2", FacilityName: "Two", Value: 0.62, Severity: domain.SeverityMedium, Revenue: 2_000_000, NetIncome: 1_240_000},
			},
		},
		Structural: Structural{Clusters: []scoring.RiskScore{
			{ClusterID: 0, Score: 19.2, FacilityCount: 2, Facilities: []domain.FacilityNode{{FacilityID: "F3", Name: "Three"}, {FacilityID: "F4"}}},
			{ClusterID: 1, Score: 4.5, FacilityCount: 3, Facilities: []domain.FacilityNode{{FacilityID: "F5"}}},
		}},
	}

	alerts := BuildAlerts(rep, 1)
	require.Len(t, alerts, 3)

	assert.Equal(t, domain.AlertHighRevenuePerVisit, alerts[0].AlertType)
	assert.Equal(t, "Revenue per visit: $912.50 (Z-score: 3.50)", alerts[0].Description)
	assert.Equal(t, 3.5, alerts[0].Metrics["z_score"])

	assert.Equal(t, domain.AlertExtremeProfitMargin, alerts[1].AlertType)
	assert.Equal(t, "Profit margin: 62.0% (Revenue: $2000000)", alerts[1].Description)

	assert.Equal(t, domain.AlertSharedIdentityCluster, alerts[2].AlertType)
	assert.Equal(t, "F3", alerts[2].FacilityID)
	assert.Equal(t, domain.SeverityHigh, alerts[2].Severity)
	assert.Equal(t, []string{"F3", "F4"}, alerts[2].Metrics["facility_ids"])
}

type fakeAlertStore struct {
	got []domain.FraudAlert
	err error
}

func (f *fakeAlertStore) ReplaceNew(_ context.Context, alerts []domain.FraudAlert) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.got = alerts
	return len(alerts), nil
}

type fakeCache struct {
	runID  string
	report any
	err    error
}

func (f *fakeCache) Put(_ context.Context, runID string, report any) error {
	f.runID, f.report = runID, report
	return f.err
}

type fakeNeo4j struct{ calls int }

func (f *fakeNeo4j) Run(context.Context, string, map[string]any) error {
	f.calls++
	return nil
}

type fakeSource struct {
	snap *domain.Snapshot
	err  error
}

func (f fakeSource) Load(context.Context) (*domain.Snapshot, error) { return f.snap, f.err }

func TestService_Run(t *testing.T) {
	out := t.TempDir()
	alerts := &fakeAlertStore{}
	cache := &fakeCache{}
	graph := &fakeNeo4j{}
	svc := New(DefaultConfig(), Deps{OutDir: out, Alerts: alerts, Cache: cache, Neo4j: graph})

	res, err := svc.Run(context.Background(), networkSnapshot(), "test", "fixture")
	require.NoError(t, err)

	assert.Equal(t, res.Run.RunID, res.Report.RunID)
	assert.Equal(t, filepath.Join(out, "runs", res.Run.RunID), res.Run.Dir)
	for _, name := range []string{FileAnalysisJSON, FileAnalysisYAML, FileClusters, FileGEXF, FileTextReport, FileDOT, "run.json"} {
		assert.FileExists(t, filepath.Join(res.Run.Dir, name))
	}
	assert.Len(t, res.Files, 6)

	require.NotEmpty(t, alerts.got)
	assert.Equal(t, len(alerts.got), res.AlertsWritten)
	assert.Equal(t, domain.AlertSharedIdentityCluster, alerts.got[0].AlertType)

	assert.Equal(t, res.Run.RunID, cache.runID)
	assert.Equal(t, 3, graph.calls)

	b, err := os.ReadFile(filepath.Join(res.Run.Dir, FileClusters))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"facility_count": 4`)
}

func TestService_LoadReport(t *testing.T) {
	svc := New(DefaultConfig(), Deps{OutDir: t.TempDir()})
	res, err := svc.Run(context.Background(), sharedAddressSnapshot(), "test", "")
	require.NoError(t, err)

	raw, err := svc.LoadReport(res.Run.RunID)
	require.NoError(t, err)
	assert.Contains(t, string(raw), res.Run.RunID)

	_, err = svc.LoadReport("not-a-uuid")
	assert.True(t, errors.Is(err, domain.ErrRunNotFound))
	_, err = svc.LoadReport("7f1c1c1e-0a4b-4b7a-9f67-2a8f3c1d9e10")
	assert.True(t, errors.Is(err, domain.ErrRunNotFound))
}

func TestService_Run_AlertSinkFailureFailsRun(t *testing.T) {
	sinkErr := fmt.Errorf("%w: commit: broken", domain.ErrAlertSink)
	svc := New(DefaultConfig(), Deps{OutDir: t.TempDir(), Alerts: &fakeAlertStore{err: sinkErr}})

	_, err := svc.Run(context.Background(), networkSnapshot(), "test", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlertSink))

	entries, err := os.ReadDir(filepath.Join(svc.deps.OutDir, "runs"))
	require.NoError(t, err)
	assert.Empty(t, entries, "a failed run leaves no run directory behind")
}

func TestService_Run_CacheFailureIsNotFatal(t *testing.T) {
	svc := New(DefaultConfig(), Deps{OutDir: t.TempDir(), Cache: &fakeCache{err: errors.New("redis down")}})

	_, err := svc.Run(context.Background(), sharedAddressSnapshot(), "test", "")
	require.NoError(t, err)
}

func TestService_RunFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
facilities:
  - id: "1"
    address: 10 Oak Ave
    city: Fresno
  - id: "2"
    address: 10 oak ave
    city: fresno
  - id: "3"
    address: 10 OAK AVE
    city: Fresno
`), 0644))

	svc := New(DefaultConfig(), Deps{OutDir: dir})
	res, err := svc.RunFromFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, res.Report.Structural.Clusters, 1)
	assert.Equal(t, path, res.Run.Source)

	_, err = svc.RunFromFile(context.Background(), filepath.Join(dir, "missing.json"))
	assert.True(t, errors.Is(err, domain.ErrInvalidSnapshot))
}

func TestService_RunFromStore(t *testing.T) {
	svc := New(DefaultConfig(), Deps{OutDir: t.TempDir()})
	_, err := svc.RunFromStore(context.Background())
	assert.True(t, errors.Is(err, domain.ErrStoreNotConfigured))

	svc = New(DefaultConfig(), Deps{OutDir: t.TempDir(), Snapshots: fakeSource{snap: networkSnapshot()}})
	res, err := svc.RunFromStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "store", res.Run.Label)

	svc = New(DefaultConfig(), Deps{OutDir: t.TempDir(), Snapshots: fakeSource{err: domain.ErrFinancialJoinUnavailable}})
	_, err = svc.RunFromStore(context.Background())
	assert.True(t, errors.Is(err, domain.ErrFinancialJoinUnavailable))
}

func TestAnalyze_UnkeyedFinancialIsSkipped(t *testing.T) {
	snap := networkSnapshot()
	snap.Financials = append(snap.Financials, domain.FinancialRecord{Year: 2023, TotalRevenue: domain.F(1)})

	rep, err := Analyze(snap, fastConfig())
	require.NoError(t, err)
	require.Len(t, rep.Structural.Clusters, 1)
	assert.InDelta(t, 19.2, rep.Structural.Clusters[0].Score, 1e-9)
	assert.Equal(t, 4, rep.Outliers.Stats.WithFinancials)
	assert.Equal(t, 60e6, rep.Outliers.Stats.TotalRevenue)
}

func TestAnalyze_RevenueIQRAndSegments(t *testing.T) {
	rep, err := Analyze(populationSnapshot(80), fastConfig())
	require.NoError(t, err)

	iqr := rep.Outliers.RevenueIQR
	assert.Equal(t, "total_revenue", iqr.Column)
	assert.Equal(t, 3.0, iqr.Multiplier)
	assert.Equal(t, 80, iqr.TotalCount)
	require.Equal(t, 5, iqr.OutlierCount)
	for _, o := range iqr.Outliers {
		assert.Contains(t, []string{"P000", "P017", "P034", "P051", "P068"}, o.FacilityID)
		assert.Greater(t, o.Value, iqr.UpperBound)
	}
	assert.NotEmpty(t, rep.Outliers.Categories)
	assert.NotEmpty(t, rep.Outliers.Counties)
}
