package handlers

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/sestra24/recruitment-service/internal/config"
	"github.com/sestra24/recruitment-service/internal/utils"
)

// InitAuth configures the casdoor SDK from the service configuration. Must be
// called once before AuthMiddleware handles requests.
func InitAuth(cfg *config.Config) {
	casdoorsdk.InitConfig(
		cfg.CasdoorEndpoint,
		cfg.CasdoorClientID,
		cfg.CasdoorClientSecret,
		cfg.CasdoorCertificate,
		cfg.CasdoorOrganization,
		cfg.CasdoorApplication,
	)
}

// AuthMiddleware validates the bearer token and stores the caller's identity
// on the request context.
func AuthMiddleware(logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Missing bearer token",
			})
			return
		}

		claims, err := casdoorsdk.ParseJwtToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			logger.Warn("Token validation failed", "error", err, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			return
		}

		c.Set("user_id", claims.User.Id)
		c.Set("user_email", claims.User.Email)
		c.Set("is_admin", claims.User.IsAdmin)
		c.Next()
	}
}

// AdminMiddleware rejects callers without the admin flag. Runs after
// AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, exists := c.Get("is_admin")
		if !exists || !isAdmin.(bool) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Administrator access required",
			})
			return
		}
		c.Next()
	}
}
