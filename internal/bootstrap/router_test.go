package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	fraudhttp "github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/http"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/service"
)

func TestBuildRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.New(service.DefaultConfig(), service.Deps{OutDir: t.TempDir()})

	r := BuildRouter(RouterDeps{
		ServiceName:    "fraud-test",
		Version:        "test",
		RateLimitRPS:   0.001,
		RateLimitBurst: 1,
		Fraud:          fraudhttp.New(svc, nil, nil),
	})

	get := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	assert.Equal(t, http.StatusOK, get("/health").Code)
	assert.Equal(t, http.StatusOK, get("/metrics").Code)
	assert.NotEmpty(t, get("/health").Header().Get("X-Request-Id"))
	assert.Equal(t, http.StatusServiceUnavailable, get("/api/v1/fraud/alerts").Code)

	post := func() int {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/fraud/analyze/store", nil)
		r.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.NotEqual(t, http.StatusTooManyRequests, post())
	assert.Equal(t, http.StatusTooManyRequests, post(), "analyze endpoints are rate limited")
	assert.NotEqual(t, http.StatusTooManyRequests, get("/api/v1/fraud/alerts").Code, "reads are not")
}

func TestGinMode(t *testing.T) {
	assert.Equal(t, gin.ReleaseMode, GinMode("production"))
	assert.Equal(t, gin.ReleaseMode, GinMode(" Staging "))
	assert.Equal(t, gin.TestMode, GinMode("test"))
	assert.Equal(t, gin.DebugMode, GinMode("development"))
	assert.Equal(t, gin.DebugMode, GinMode(""))
}
