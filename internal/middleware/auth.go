package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Authentication returns a bearer-token middleware. An empty token allows
// all requests, which keeps local development friction-free.
func Authentication(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if strings.TrimPrefix(header, "Bearer ") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"code": "UNAUTHORIZED", "message": "invalid or missing token"},
			})
			return
		}
		c.Next()
	}
}
