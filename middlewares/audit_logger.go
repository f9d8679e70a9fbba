package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobooker/utils"
)

// AuditLoggerMiddleware records every staff action on the manager endpoints.
func AuditLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		userID, _ := CurrentUserID(c)
		if status := c.Writer.Status(); status < 400 {
			utils.InfoLogger.Printf("Staff %d: %s %s -> %d", userID, c.Request.Method, c.Request.URL.Path, status)
		} else {
			utils.ErrorLogger.Printf("Staff %d: %s %s failed with %d", userID, c.Request.Method, c.Request.URL.Path, status)
		}
	}
}
