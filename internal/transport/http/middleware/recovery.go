package middleware

import (
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "go-gin-gorm-users/internal/transport/http/response"
)

// Recovery logs the panic with its stack and answers with a generic 500.
// Any session opened by the handler has already been rolled back by then.
func Recovery(l *zap.Logger) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(l, true, func(c *gin.Context, _ any) {
		if c.Writer.Written() {
			c.Abort()
			return
		}
		resp.Abort(c, resp.Error(resp.CodeServerError, ""))
	})
}
