package http

import (
	"context"
	"encoding/json"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/service"
)

// Analyzer runs analyses and reads back stored run reports.
type Analyzer interface {
	Run(ctx context.Context, snap *domain.Snapshot, trigger, source string) (*service.Result, error)
	RunFromStore(ctx context.Context) (*service.Result, error)
	LoadReport(runID string) (json.RawMessage, error)
}

type AlertLister interface {
	ListNew(ctx context.Context, limit int) ([]domain.FraudAlert, error)
}

// ReportReader is the report cache as seen by the API.
type ReportReader interface {
	Get(ctx context.Context, runID string) (json.RawMessage, error)
	Latest(ctx context.Context) (string, json.RawMessage, error)
}

// Handler serves the fraud API. Alerts and Reports may be nil; the
// endpoints that need them then answer 503.
type Handler struct {
	analyzer Analyzer
	alerts   AlertLister
	reports  ReportReader
	maxBody  int64
}

const defaultMaxBody = 64 << 20

func New(analyzer Analyzer, alerts AlertLister, reports ReportReader) *Handler {
	return &Handler{
		analyzer: analyzer,
		alerts:   alerts,
		reports:  reports,
		maxBody:  defaultMaxBody,
	}
}

// AnalyzeResponse is the body of a successful analyze call.
type AnalyzeResponse struct {
	RunID         string          `json:"run_id"`
	Dir           string          `json:"dir"`
	AlertsWritten int             `json:"alerts_written"`
	Files         []string        `json:"files"`
	Report        *service.Report `json:"report"`
}

func toResponse(res *service.Result) AnalyzeResponse {
	return AnalyzeResponse{
		RunID:         res.Run.RunID,
		Dir:           res.Run.Dir,
		AlertsWritten: res.AlertsWritten,
		Files:         res.Files,
		Report:        res.Report,
	}
}
