package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/hippocratic-health/fraud-signal-engine/internal/api/http"
	"github.com/hippocratic-health/fraud-signal-engine/internal/api/http/middleware"
	fraudhttp "github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/http"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	Checks         map[string]httpapi.Pinger
	Fraud          *fraudhttp.Handler
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.Metrics(dep.ServiceName))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = dep.CORSOrigins
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowOrigins = []string{"*"}
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-Id"}
	r.Use(cors.New(corsCfg))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Checks)
	healthHandler.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if dep.Fraud != nil {
		fraud := r.Group("/api/v1/fraud")
		dep.Fraud.Register(fraud, middleware.RateLimit(dep.RateLimitRPS, dep.RateLimitBurst))
	}

	return r
}
