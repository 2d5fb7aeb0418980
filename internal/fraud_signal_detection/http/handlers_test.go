package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/repository"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/service"
)

const clusterSnapshot = `{
  "facilities": [
    {"id": "1", "name": "One", "address": "10 Oak Ave", "city": "Fresno", "phone": "5590000001"},
    {"id": "2", "name": "Two", "address": "10 oak ave", "city": "fresno", "phone": "5590000002"},
    {"id": "3", "name": "Three", "address": "10 OAK AVE", "city": "Fresno", "phone": "5590000003"}
  ]
}`

type fakeAlerts struct {
	limit int
	err   error
}

func (f *fakeAlerts) ListNew(_ context.Context, limit int) ([]domain.FraudAlert, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []domain.FraudAlert{{AlertType: domain.AlertSharedIdentityCluster, FacilityID: "1", Status: domain.AlertStatusNew}}, nil
}

type testEnv struct {
	router *gin.Engine
	alerts *fakeAlerts
	mr     *miniredis.Miniredis
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := repository.NewReportCache(client, 0)

	svc := service.New(service.DefaultConfig(), service.Deps{OutDir: t.TempDir(), Cache: cache})
	alerts := &fakeAlerts{}

	router := gin.New()
	New(svc, alerts, cache).Register(router.Group("/api/v1/fraud"))
	return &testEnv{router: router, alerts: alerts, mr: mr}
}

func (e *testEnv) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestAnalyze(t *testing.T) {
	env := setup(t)

	rr := env.do(http.MethodPost, "/api/v1/fraud/analyze", "application/json", clusterSnapshot)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		RunID  string `json:"run_id"`
		Files  []string
		Report struct {
			Structural struct {
				Clusters []struct {
					Score         float64 `json:"score"`
					FacilityCount int     `json:"facility_count"`
				} `json:"clusters"`
			} `json:"structural"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	require.Len(t, resp.Report.Structural.Clusters, 1)
	assert.InDelta(t, 4.5, resp.Report.Structural.Clusters[0].Score, 1e-9)

	t.Run("latest run comes from the cache", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/api/v1/fraud/runs/latest", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), resp.RunID)
	})

	t.Run("run by id", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/api/v1/fraud/runs/"+resp.RunID, "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"facility_count":3`)
	})

	t.Run("run by id falls back to disk when evicted", func(t *testing.T) {
		env.mr.FlushAll()
		rr := env.do(http.MethodGet, "/api/v1/fraud/runs/"+resp.RunID, "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), resp.RunID)
	})
}

func TestAnalyze_YAMLBody(t *testing.T) {
	env := setup(t)
	body := "facilities:\n  - id: a\n    phone: 555-000-1111\n  - id: b\n    phone: (555) 000-1111\n"

	rr := env.do(http.MethodPost, "/api/v1/fraud/analyze", "application/yaml", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	// two facilities, one shared phone: 2 * 1.5 = 3, not above the gate
	assert.Contains(t, rr.Body.String(), `"clusters":[]`)
}

func TestAnalyze_BadRequests(t *testing.T) {
	env := setup(t)

	rr := env.do(http.MethodPost, "/api/v1/fraud/analyze", "application/json", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	dup := `{"facilities":[{"id":"x"},{"id":"x"}]}`
	rr = env.do(http.MethodPost, "/api/v1/fraud/analyze", "application/json", dup)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid snapshot")
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(nil, nil, nil)
	h.maxBody = 8
	r := gin.New()
	h.Register(r.Group(""))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(clusterSnapshot)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestAnalyzeStore_NoStoreConfigured(t *testing.T) {
	env := setup(t)
	rr := env.do(http.MethodPost, "/api/v1/fraud/analyze/store", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "snapshot store not configured")
}

func TestListAlerts(t *testing.T) {
	env := setup(t)

	rr := env.do(http.MethodGet, "/api/v1/fraud/alerts", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, repository.DefaultAlertLimit, env.alerts.limit)
	assert.Contains(t, rr.Body.String(), `"count":1`)

	rr = env.do(http.MethodGet, "/api/v1/fraud/alerts?limit=5", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, env.alerts.limit)

	rr = env.do(http.MethodGet, "/api/v1/fraud/alerts?limit=999999", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, maxAlertLimit, env.alerts.limit)

	for _, bad := range []string{"0", "-3", "ten"} {
		rr = env.do(http.MethodGet, "/api/v1/fraud/alerts?limit="+bad, "", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, bad)
	}

	env.alerts.err = errors.New("connection refused")
	rr = env.do(http.MethodGet, "/api/v1/fraud/alerts", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRuns_NotFound(t *testing.T) {
	env := setup(t)

	rr := env.do(http.MethodGet, "/api/v1/fraud/runs/latest", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(http.MethodGet, "/api/v1/fraud/runs/9b2e4f55-3c1d-4a8e-8f0e-5d7c2b1a6e44", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(http.MethodGet, "/api/v1/fraud/runs/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUnconfiguredStores(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.New(service.DefaultConfig(), service.Deps{OutDir: t.TempDir()})
	r := gin.New()
	New(svc, nil, nil).Register(r.Group(""))

	for _, path := range []string{"/alerts", "/runs/latest"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, path)
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ErrInvalidSnapshot))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrRunNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(domain.ErrFinancialJoinUnavailable))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(domain.ErrStoreNotConfigured))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.ErrAlertSink))
}
