package bootstrap

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// GinMode maps APP_ENV to a gin mode. Anything that is not a known
// deployed or test environment runs in debug mode.
func GinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

func SetGinMode(env string) {
	gin.SetMode(GinMode(env))
}
