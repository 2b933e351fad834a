package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/security"
	"github.com/medicarepro/medicare-offline-go/pkg/config"
)

// OperatorAuthMiddleware protects the admin control plane. When no
// operator password is configured the gateway runs open, matching a
// local single-user install.
func OperatorAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.OperatorPasswordHash == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		token := ""
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = authHeader[7:]
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		claims, err := security.ValidateJWT(token, config.JWTSecret)
		if err != nil || !security.IsOperatorClaims(claims) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}
