package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/CampusConnect/internal/utils"
)

const contextWebSocketAuth = "ws_auth"

// WebSocketAuthContext holds authenticated WebSocket connection data
type WebSocketAuthContext struct {
	UserID string
	Role   string
}

// WebSocketAuthMiddleware authenticates WebSocket connections.
// Browsers cannot set headers on the upgrade request, so the access token
// travels in the token query parameter. Must run before the upgrade.
func WebSocketAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		claims, err := utils.ParseAccessToken(token, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(contextWebSocketAuth, &WebSocketAuthContext{
			UserID: claims.UserID,
			Role:   claims.Role,
		})
		c.Next()
	}
}

// GetWebSocketAuth retrieves authentication context from request
func GetWebSocketAuth(c *gin.Context) (*WebSocketAuthContext, error) {
	val, ok := c.Get(contextWebSocketAuth)
	if !ok {
		return nil, errors.New("websocket authentication context not found")
	}

	auth, ok := val.(*WebSocketAuthContext)
	if !ok {
		return nil, errors.New("invalid websocket authentication context type")
	}
	return auth, nil
}
