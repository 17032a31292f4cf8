package middleware

import (
	"errors"
	"strings"

	"geolatency/internal/core/services"
	apperrors "geolatency/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ProbeIDKey holds the authenticated probe ID in the gin context.
const ProbeIDKey = "probe_id"

// ProbeAuthMiddleware requires a Bearer token issued by authService.
func ProbeAuthMiddleware(authService services.ProbeAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.NewUnauthorizedError("authorization header required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithError(c, apperrors.NewUnauthorizedError("invalid authorization header format"))
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, services.ErrExpiredToken) {
				msg = "token expired"
			}
			abortWithError(c, apperrors.NewUnauthorizedError(msg))
			return
		}

		c.Set(ProbeIDKey, claims.ProbeID)
		c.Next()
	}
}

// ProbeID returns the probe authenticated by ProbeAuthMiddleware.
func ProbeID(c *gin.Context) string {
	return c.GetString(ProbeIDKey)
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
