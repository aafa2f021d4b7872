// Package httperr maps the authorization error taxonomy onto stable
// machine codes and HTTP statuses, so client UIs can branch (offer
// "upgrade plan" on feature_disabled, "contact owner" on forbidden).
package httperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"crm-auth-service/internal/authz"
)

type mapping struct {
	status int
	code   string
}

var codes = []struct {
	err error
	mapping
}{
	{authz.ErrInvalidCredentials, mapping{http.StatusUnauthorized, "invalid_credentials"}},
	{authz.ErrInvalidToken, mapping{http.StatusUnauthorized, "invalid_token"}},
	{authz.ErrNoActiveTenant, mapping{http.StatusBadRequest, "no_active_tenant"}},
	{authz.ErrNotATenantMember, mapping{http.StatusForbidden, "not_a_tenant_member"}},
	{authz.ErrForbidden, mapping{http.StatusForbidden, "forbidden"}},
	{authz.ErrFeatureDisabled, mapping{http.StatusForbidden, "feature_disabled"}},
	{authz.ErrLastOwner, mapping{http.StatusConflict, "last_owner"}},
	{authz.ErrAlreadyMember, mapping{http.StatusConflict, "already_member"}},
	{authz.ErrUserNotFound, mapping{http.StatusNotFound, "user_not_found"}},
	{authz.ErrSlugConflict, mapping{http.StatusConflict, "slug_conflict"}},
	{authz.ErrNotFound, mapping{http.StatusNotFound, "not_found"}},
}

// Code returns the HTTP status and stable machine code for an error.
func Code(err error) (int, string) {
	for _, m := range codes {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// JSON writes the mapped error response.
func JSON(c echo.Context, err error) error {
	status, code := Code(err)
	return c.JSON(status, echo.Map{"error": code})
}
