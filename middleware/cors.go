package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storyfeed-api/pkg/appenv"
	"storyfeed-api/pkg/config"
)

var (
	corsMethods = "GET, POST, PATCH, DELETE, OPTIONS"
	corsHeaders = strings.Join([]string{"Origin", "Content-Type", "Authorization", RequestIDHeader, "X-Admin-Token"}, ", ")
)

// CORSMiddleware allows any origin outside production. In production (or gin
// release mode) it reflects the Origin only when listed in ALLOWED_ORIGINS,
// adding Allow-Credentials when ALLOW_CREDENTIALS=true.
func CORSMiddleware() gin.HandlerFunc {
	isProd := !appenv.AllowsDevShortcuts() || gin.Mode() == gin.ReleaseMode

	allowed := make(map[string]struct{})
	for _, o := range config.GetEnvList("ALLOWED_ORIGINS") {
		allowed[o] = struct{}{}
	}
	allowCredentials := config.GetEnvBool("ALLOW_CREDENTIALS", false)

	return func(c *gin.Context) {
		c.Header("Vary", "Origin")

		origin := c.Request.Header.Get("Origin")
		switch {
		case !isProd:
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", corsMethods)
			c.Header("Access-Control-Allow-Headers", corsHeaders)
		case origin != "":
			if _, ok := allowed[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Methods", corsMethods)
				c.Header("Access-Control-Allow-Headers", corsHeaders)
				c.Header("Access-Control-Expose-Headers", RequestIDHeader)
				if allowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
			}
		}

		// Disallowed origins still get a 204; the browser blocks them.
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
