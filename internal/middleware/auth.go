package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-auth-service/internal/authz"
	"crm-auth-service/pkg/jwtutil"
	"crm-auth-service/pkg/logger"
	"crm-auth-service/prometheus"
)

// Context key under which the verified actor is stored.
const ActorKey = "actor"

// RequireAuth validates the bearer token from the Authorization header and
// seeds the echo context with the acting identity. Tokens are verified
// once per request here; authorization decisions happen in the gate.
func RequireAuth(tokens *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				prometheus.RecordAuthError("invalid_auth_format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
			}

			claims, err := tokens.VerifyAccess(parts[1])
			if err != nil {
				log.Debug("Token verification failed", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
			}

			c.Set(ActorKey, authz.ActorFromClaims(claims))
			c.Set("user_id", claims.UserID)
			c.Set("email", claims.Email)

			return next(c)
		}
	}
}

// ActorFromContext returns the actor seeded by RequireAuth.
func ActorFromContext(c echo.Context) (authz.Actor, bool) {
	actor, ok := c.Get(ActorKey).(authz.Actor)
	return actor, ok
}
