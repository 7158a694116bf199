package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the given origins with credentials. "*" allows any origin;
// the request origin is echoed back since browsers refuse a literal "*"
// together with credentials.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", KeyRequestID},
		ExposeHeaders:    []string{KeyRequestID, HeaderProcessTime},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	var explicit []string
	for _, o := range origins {
		if o == "*" {
			cfg.AllowOriginFunc = func(string) bool { return true }
			explicit = nil
			break
		}
		explicit = append(explicit, o)
	}
	if cfg.AllowOriginFunc == nil {
		if len(explicit) == 0 {
			cfg.AllowOriginFunc = func(string) bool { return false }
		}
		cfg.AllowOrigins = explicit
	}
	return cors.New(cfg)
}
