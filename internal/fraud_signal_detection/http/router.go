package http

import "github.com/gin-gonic/gin"

// Register mounts the fraud routes. Middleware passed in guards the analyze
// endpoints only.
func (h *Handler) Register(rg *gin.RouterGroup, analyzeMiddleware ...gin.HandlerFunc) {
	analyze := rg.Group("", analyzeMiddleware...)
	analyze.POST("/analyze", h.Analyze)
	analyze.POST("/analyze/store", h.AnalyzeStore)

	rg.GET("/alerts", h.ListAlerts)
	rg.GET("/runs/latest", h.LatestRun)
	rg.GET("/runs/:id", h.GetRun)
}
