package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/ingest/parser"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/repository"
	"github.com/hippocratic-health/fraud-signal-engine/internal/logger"
)

const maxAlertLimit = 1000

// Analyze runs an analysis over the snapshot in the request body. JSON is
// the default; a YAML content type switches the decoder.
func (h *Handler) Analyze(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
		return
	}

	snap, err := parser.ParseBytes(bodyFormat(c.ContentType()), body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snapshot: " + err.Error()})
		return
	}

	res, err := h.analyzer.Run(c.Request.Context(), snap, "api", "request")
	if err != nil {
		h.fail(c, "analyze", err)
		return
	}
	c.JSON(http.StatusOK, toResponse(res))
}

// AnalyzeStore runs an analysis over the snapshot held in the database.
func (h *Handler) AnalyzeStore(c *gin.Context) {
	res, err := h.analyzer.RunFromStore(c.Request.Context())
	if err != nil {
		h.fail(c, "analyze store", err)
		return
	}
	c.JSON(http.StatusOK, toResponse(res))
}

// ListAlerts returns alerts still in status "new".
func (h *Handler) ListAlerts(c *gin.Context) {
	if h.alerts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert store not configured"})
		return
	}

	limit := repository.DefaultAlertLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxAlertLimit)
	}

	alerts, err := h.alerts.ListNew(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, "list alerts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

// LatestRun returns the newest cached report.
func (h *Handler) LatestRun(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report cache not configured"})
		return
	}
	runID, report, err := h.reports.Latest(c.Request.Context())
	if err != nil {
		h.fail(c, "latest run", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "report": report})
}

// GetRun returns the report of one run, from the cache when it is still
// there and from the run directory otherwise.
func (h *Handler) GetRun(c *gin.Context) {
	runID := c.Param("id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run ID is required"})
		return
	}

	if h.reports != nil {
		report, err := h.reports.Get(c.Request.Context(), runID)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"run_id": runID, "report": report})
			return
		}
		if !errors.Is(err, domain.ErrRunNotFound) {
			logger.Warn("report cache read failed", zap.String("run_id", runID), zap.Error(err))
		}
	}

	report, err := h.analyzer.LoadReport(runID)
	if err != nil {
		h.fail(c, "get run", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "report": report})
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSnapshot):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrFinancialJoinUnavailable), errors.Is(err, domain.ErrStoreNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func bodyFormat(contentType string) string {
	if strings.Contains(contentType, "yaml") {
		return "yaml"
	}
	return "json"
}
