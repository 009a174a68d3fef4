package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"audioeq-backend-go/internal/config"
)

// CORSMiddleware configures Cross-Origin Resource Sharing for the
// application. CLIENT_URL may be a comma-separated list of origins; the
// extension popup calls in from a chrome-extension:// origin, so browser
// extension origins are allowed explicitly.
func CORSMiddleware(appConfig *config.Config) gin.HandlerFunc {
	if appConfig == nil || appConfig.ClientURL == "" {
		panic("ClientURL for CORS is not configured")
	}

	origins := strings.Split(appConfig.ClientURL, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge: 12 * time.Hour,

		// The popup and content scripts run under chrome-extension:// and
		// moz-extension:// origins.
		AllowBrowserExtensions: true,
	})
}
