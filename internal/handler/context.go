package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"crm-auth-service/internal/authz"
	"crm-auth-service/internal/middleware"
)

// tenantIDFromContext returns the tenant every lookup in the request must
// be scoped by. Normal callers get their resolved active tenant; operators
// name the tenant they are acting on via the X-Tenant-ID header.
func tenantIDFromContext(c echo.Context, resolver *authz.Resolver) (uint, error) {
	if ac, ok := middleware.AuthzFromContext(c); ok {
		if ac.TenantID != 0 {
			return ac.TenantID, nil
		}
		if ac.Operator {
			if v := c.Request().Header.Get("X-Tenant-ID"); v != "" {
				id, err := strconv.ParseUint(v, 10, 32)
				if err == nil && id != 0 {
					return uint(id), nil
				}
			}
			return 0, authz.ErrNoActiveTenant
		}
	}
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return 0, authz.ErrInvalidToken
	}
	tc, err := resolver.Resolve(actor.UserID)
	if err != nil {
		return 0, err
	}
	return tc.TenantID, nil
}
