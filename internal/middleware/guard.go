package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-auth-service/internal/authz"
	"crm-auth-service/internal/httperr"
	"crm-auth-service/pkg/logger"
	"crm-auth-service/prometheus"
)

// Context key under which the gate's decision is stored.
const AuthzKey = "authz"

// Guard runs the authorization gate for a route group and stores the
// decision in the context. Denials are terminal; the handler never runs.
func Guard(gate *authz.Gate, req authz.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			actor, ok := ActorFromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
			}

			ac, err := gate.AuthorizeActor(actor, req)
			if err != nil {
				_, code := httperr.Code(err)
				prometheus.RecordAuthzDecision(string(req.Action), code)
				log.Warn("Authorization denied",
					zap.Uint("user_id", actor.UserID),
					zap.String("action", string(req.Action)),
					zap.String("feature", string(req.Feature)),
					zap.String("reason", code))
				return httperr.JSON(c, err)
			}

			if ac.Operator {
				prometheus.OperatorBypassCounter.Inc()
			}
			prometheus.RecordAuthzDecision(string(req.Action), "allow")
			c.Set(AuthzKey, ac)
			return next(c)
		}
	}
}

// AuthzFromContext returns the gate decision stored by Guard.
func AuthzFromContext(c echo.Context) (*authz.AuthorizedContext, bool) {
	ac, ok := c.Get(AuthzKey).(*authz.AuthorizedContext)
	return ac, ok
}
