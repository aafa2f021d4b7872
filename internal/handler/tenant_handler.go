package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"crm-auth-service/internal/authz"
	"crm-auth-service/internal/httperr"
	"crm-auth-service/internal/middleware"
	"crm-auth-service/internal/model"
	"crm-auth-service/pkg/logger"
	"crm-auth-service/prometheus"
)

// TenantHandler serves workspace creation, listing, update, deletion and
// the active-tenant switch.
type TenantHandler struct {
	store    authz.Store
	resolver *authz.Resolver
}

func NewTenantHandler(store authz.Store, resolver *authz.Resolver) *TenantHandler {
	return &TenantHandler{store: store, resolver: resolver}
}

// Create makes a new workspace with the caller as its first owner and
// switches the caller's active tenant to it.
func (h *TenantHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("create")

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
	}

	var req struct {
		Name     string                 `json:"name"`
		Slug     string                 `json:"slug,omitempty"`
		Plan     string                 `json:"plan,omitempty"`
		Settings map[string]interface{} `json:"settings,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	slug := req.Slug
	if slug == "" {
		slug = slugify(req.Name)
	}
	if slug == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slug is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if _, err := h.store.FindTenantBySlug(slug); err == nil {
		log.Warn("Tenant slug conflict", zap.String("slug", slug))
		return httperr.JSON(c, authz.ErrSlugConflict)
	} else if !errors.Is(err, authz.ErrNotFound) {
		log.Error("Slug lookup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}

	tenant := model.Tenant{
		Name:     req.Name,
		Slug:     slug,
		Settings: datatypes.JSONMap(req.Settings),
		Active:   true,
	}
	if req.Plan != "" {
		plan, err := h.store.FindPlanByName(req.Plan)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown plan"})
		}
		tenant.PlanID = &plan.ID
	}

	if err := h.store.CreateTenantWithOwner(&tenant, actor.UserID); err != nil {
		log.Error("Failed to create tenant", zap.Error(err))
		prometheus.RecordAuthError("tenant_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}

	log.Info("Tenant created",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("slug", tenant.Slug),
		zap.Uint("owner_id", actor.UserID))

	return c.JSON(http.StatusCreated, echo.Map{"tenant": tenant})
}

// List returns every workspace the caller belongs to, with their role.
func (h *TenantHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("list")

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	memberships, err := h.store.ListMembershipsForUser(actor.UserID)
	if err != nil {
		log.Error("Failed to list tenants", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}

	type tenantResponse struct {
		ID       uint      `json:"id"`
		Name     string    `json:"name"`
		Slug     string    `json:"slug"`
		Role     string    `json:"role"`
		JoinedAt time.Time `json:"joined_at"`
	}
	response := make([]tenantResponse, 0, len(memberships))
	for _, m := range memberships {
		response = append(response, tenantResponse{
			ID:       m.TenantID,
			Name:     m.Tenant.Name,
			Slug:     m.Tenant.Slug,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}
	return c.JSON(http.StatusOK, response)
}

// Current returns the caller's active workspace.
func (h *TenantHandler) Current(c echo.Context) error {
	prometheus.RecordTenantOperation("access")

	tenantID, err := h.tenantIDFor(c)
	if err != nil {
		return httperr.JSON(c, err)
	}
	defer prometheus.TrackDBOperation("query")(time.Now())
	tenant, err := h.store.FindTenant(tenantID)
	if err != nil {
		return httperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// Update changes the active workspace's name or settings. Plan and
// feature-override changes are reserved for operators.
func (h *TenantHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("update")

	ac, ok := middleware.AuthzFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
	}
	tenantID, err := h.tenantIDFor(c)
	if err != nil {
		return httperr.JSON(c, err)
	}

	var req struct {
		Name             string                 `json:"name,omitempty"`
		Settings         map[string]interface{} `json:"settings,omitempty"`
		Plan             string                 `json:"plan,omitempty"`
		FeatureOverrides map[string]interface{} `json:"feature_overrides,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	tenant, err := h.store.FindTenant(tenantID)
	if err != nil {
		return httperr.JSON(c, err)
	}

	if req.Name != "" {
		tenant.Name = req.Name
	}
	if req.Settings != nil {
		tenant.Settings = datatypes.JSONMap(req.Settings)
	}
	if req.Plan != "" || req.FeatureOverrides != nil {
		if !ac.Operator {
			return httperr.JSON(c, authz.ErrForbidden)
		}
		if req.Plan != "" {
			plan, err := h.store.FindPlanByName(req.Plan)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown plan"})
			}
			tenant.PlanID = &plan.ID
		}
		if req.FeatureOverrides != nil {
			tenant.FeatureOverrides = datatypes.JSONMap(req.FeatureOverrides)
		}
	}

	if err := h.store.SaveTenant(tenant); err != nil {
		log.Error("Failed to update tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}

	log.Info("Tenant updated", zap.Uint("tenant_id", tenant.ID))
	return c.JSON(http.StatusOK, echo.Map{"tenant": tenant})
}

// Delete removes the active workspace. Owner only; memberships go with it
// and dangling active-tenant pointers are cleared.
func (h *TenantHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("delete")

	tenantID, err := h.tenantIDFor(c)
	if err != nil {
		return httperr.JSON(c, err)
	}
	defer prometheus.TrackDBOperation("delete")(time.Now())
	tenant, err := h.store.FindTenant(tenantID)
	if err != nil {
		return httperr.JSON(c, err)
	}
	if err := h.store.DeleteTenant(tenant); err != nil {
		log.Error("Failed to delete tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}

	log.Info("Tenant deleted", zap.Uint("tenant_id", tenant.ID), zap.String("slug", tenant.Slug))
	return c.JSON(http.StatusOK, echo.Map{"message": "tenant deleted"})
}

// Switch changes the caller's active workspace. A client that switches
// should carry the returned tenant id on its immediately-following
// requests rather than racing a re-read through any replication lag.
func (h *TenantHandler) Switch(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("switch")

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
	}

	var req struct {
		TenantID uint `json:"tenant_id"`
	}
	if err := c.Bind(&req); err != nil || req.TenantID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant_id is required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.resolver.SwitchActiveTenant(actor.UserID, req.TenantID); err != nil {
		log.Warn("Tenant switch denied",
			zap.Uint("user_id", actor.UserID),
			zap.Uint("tenant_id", req.TenantID))
		prometheus.RecordAuthError("tenant_access_denied")
		return httperr.JSON(c, err)
	}

	log.Info("User switched tenant",
		zap.Uint("user_id", actor.UserID),
		zap.Uint("tenant_id", req.TenantID))
	return c.JSON(http.StatusOK, echo.Map{"tenant_id": req.TenantID})
}

// tenantIDFor returns the scoping tenant for the request: the resolved
// active tenant, or for operators the X-Tenant-ID header.
func (h *TenantHandler) tenantIDFor(c echo.Context) (uint, error) {
	return tenantIDFromContext(c, h.resolver)
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
