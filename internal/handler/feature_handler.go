package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-auth-service/internal/authz"
	"crm-auth-service/internal/httperr"
	"crm-auth-service/pkg/logger"
	"crm-auth-service/prometheus"
)

// FeatureHandler exposes the resolved entitlement map to the UI layer.
// This endpoint is advisory only, used to hide or disable affordances:
// every data-mutating endpoint re-checks entitlements server-side through
// the gate, so bypassing the UI gains nothing.
type FeatureHandler struct {
	entitlements *authz.Entitlements
	resolver     *authz.Resolver
}

func NewFeatureHandler(entitlements *authz.Entitlements, resolver *authz.Resolver) *FeatureHandler {
	return &FeatureHandler{entitlements: entitlements, resolver: resolver}
}

func (h *FeatureHandler) List(c echo.Context) error {
	log := logger.FromContext(c)

	tenantID, err := tenantIDFromContext(c, h.resolver)
	if err != nil {
		return httperr.JSON(c, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	features, err := h.entitlements.Features(tenantID)
	if err != nil {
		log.Error("Failed to resolve features", zap.Uint("tenant_id", tenantID), zap.Error(err))
		return httperr.JSON(c, err)
	}

	for f, enabled := range features {
		prometheus.RecordFeatureCheck(string(f), enabled)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"tenant_id": tenantID,
		"features":  features,
	})
}
