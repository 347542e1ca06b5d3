// internal/middleware/recovery_middleware.go
package middleware

import (
	"net/http"

	"namy-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery converts handler panics into a clean 500. The resolved device
// identity is attached when present so crashes can be correlated with the
// device that triggered them.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				fields := []zap.Field{
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.Stack("stack"),
				}
				if id, ok := GetDeviceID(c); ok {
					fields = append(fields, zap.String("device_id", id.String()))
				}
				logger.Error("panic recovered", fields...)

				response.Error(c, http.StatusInternalServerError, "internal server error", nil)
				c.Abort()
			}
		}()
		c.Next()
	}
}
