package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

var middlewareTracer = otel.Tracer("auth-middleware")

// ClaimsKey is the gin context key holding *Claims
const ClaimsKey = "claims"

// RequireAuth is a Gin middleware that validates JWT tokens. A nil manager disables
// authentication, which is only meant for local development.
func RequireAuth(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtManager == nil {
			c.Next()
			return
		}
		ctx, span := middlewareTracer.Start(c.Request.Context(), "auth.require_auth")
		defer span.End()

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			span.SetAttributes(attribute.Bool("auth.token_present", false))
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: "Missing or invalid authorization header",
				Code:  models.ErrCodeUnauthorized,
			})
			return
		}
		span.SetAttributes(attribute.Bool("auth.token_present", true))

		claims, err := jwtManager.ValidateToken(ctx, token)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("auth.token_valid", false))
			telemetry.Logger.Warn("invalid_token", "path", c.FullPath(), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: "Invalid or expired token",
				Code:  models.ErrCodeUnauthorized,
			})
			return
		}

		span.SetAttributes(
			attribute.Bool("auth.token_valid", true),
			attribute.String("jwt.subject", claims.Subject),
		)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole is a Gin middleware that checks the authenticated token carries role.
// It must run after RequireAuth; with authentication disabled it lets every request through.
func RequireRole(jwtManager *JWTManager, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtManager == nil {
			c.Next()
			return
		}
		_, span := middlewareTracer.Start(c.Request.Context(), "auth.require_role")
		defer span.End()
		span.SetAttributes(attribute.String("required.role", role))

		claims, ok := ClaimsFrom(c)
		if !ok || !claims.HasRole(role) {
			span.SetAttributes(attribute.Bool("auth.role_authorized", false))
			subject := ""
			if claims != nil {
				subject = claims.Subject
			}
			telemetry.Logger.Warn("insufficient_permissions", "subject", subject, "required_role", role)
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Error: "Insufficient permissions",
				Code:  models.ErrCodeForbidden,
			})
			return
		}

		span.SetAttributes(attribute.Bool("auth.role_authorized", true))
		c.Next()
	}
}

// ClaimsFrom returns the claims attached by RequireAuth.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
