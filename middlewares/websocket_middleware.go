package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/utils"
)

// WebSocketAuthMiddleware authenticates through the token query parameter, because
// browsers cannot set headers on a websocket handshake. Only staff may connect.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !models.IsStaff(claims.Role) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		c.Set(ContextRole, claims.Role)
		c.Set(ContextUserID, claims.UserID)

		c.Next()
	}
}
