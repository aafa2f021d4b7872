package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-auth-service/internal/authz"
	"crm-auth-service/internal/httperr"
	"crm-auth-service/internal/middleware"
	"crm-auth-service/pkg/logger"
	"crm-auth-service/prometheus"
)

// MemberHandler serves tenant member management: list, invite, role and
// capability changes, removal. Permission checks live in the membership
// service and are re-evaluated from the store on every call.
type MemberHandler struct {
	store       authz.Store
	memberships *authz.Memberships
	resolver    *authz.Resolver
}

func NewMemberHandler(store authz.Store, memberships *authz.Memberships, resolver *authz.Resolver) *MemberHandler {
	return &MemberHandler{store: store, memberships: memberships, resolver: resolver}
}

func (h *MemberHandler) List(c echo.Context) error {
	log := logger.FromContext(c)

	tenantID, err := tenantIDFromContext(c, h.resolver)
	if err != nil {
		return httperr.JSON(c, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	memberships, err := h.store.ListMembershipsForTenant(tenantID)
	if err != nil {
		log.Error("Failed to list members", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}

	type memberResponse struct {
		ID           uint                   `json:"id"`
		UserID       uint                   `json:"user_id"`
		Email        string                 `json:"email"`
		Role         string                 `json:"role"`
		Capabilities map[string]interface{} `json:"capabilities,omitempty"`
		JoinedAt     time.Time              `json:"joined_at"`
	}
	response := make([]memberResponse, 0, len(memberships))
	for _, m := range memberships {
		response = append(response, memberResponse{
			ID:           m.ID,
			UserID:       m.UserID,
			Email:        m.User.Email,
			Role:         m.Role,
			Capabilities: m.Capabilities,
			JoinedAt:     m.JoinedAt,
		})
	}
	return c.JSON(http.StatusOK, response)
}

func (h *MemberHandler) Invite(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("invite")

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
	}
	tenantID, err := tenantIDFromContext(c, h.resolver)
	if err != nil {
		return httperr.JSON(c, err)
	}

	var req struct {
		Email        string                 `json:"email"`
		Role         string                 `json:"role,omitempty"`
		Capabilities map[string]interface{} `json:"capabilities,omitempty"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	m, err := h.memberships.Invite(actor, tenantID, req.Email, req.Role, req.Capabilities)
	if err != nil {
		log.Warn("Invite rejected",
			zap.Uint("tenant_id", tenantID),
			zap.String("email", req.Email),
			zap.Error(err))
		return httperr.JSON(c, err)
	}

	log.Info("Member invited",
		zap.Uint("tenant_id", tenantID),
		zap.String("email", req.Email),
		zap.String("role", m.Role))
	return c.JSON(http.StatusCreated, echo.Map{"membership": m})
}

func (h *MemberHandler) ChangeRole(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("change_role")

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
	}
	tenantID, err := tenantIDFromContext(c, h.resolver)
	if err != nil {
		return httperr.JSON(c, err)
	}
	membershipID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.Role == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role is required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	m, err := h.memberships.ChangeRole(actor, tenantID, membershipID, req.Role)
	if err != nil {
		log.Warn("Role change rejected",
			zap.Uint("tenant_id", tenantID),
			zap.Uint("membership_id", membershipID),
			zap.Error(err))
		return httperr.JSON(c, err)
	}

	log.Info("Member role changed",
		zap.Uint("tenant_id", tenantID),
		zap.Uint("membership_id", membershipID),
		zap.String("role", m.Role))
	return c.JSON(http.StatusOK, echo.Map{"membership": m})
}

func (h *MemberHandler) UpdateCapabilities(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("update_capabilities")

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
	}
	tenantID, err := tenantIDFromContext(c, h.resolver)
	if err != nil {
		return httperr.JSON(c, err)
	}
	membershipID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}

	var req struct {
		Capabilities map[string]interface{} `json:"capabilities"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	m, err := h.memberships.UpdateCapabilities(actor, tenantID, membershipID, req.Capabilities)
	if err != nil {
		return httperr.JSON(c, err)
	}

	log.Info("Member capabilities updated",
		zap.Uint("tenant_id", tenantID),
		zap.Uint("membership_id", membershipID))
	return c.JSON(http.StatusOK, echo.Map{"membership": m})
}

func (h *MemberHandler) Remove(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("remove_member")

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
	}
	tenantID, err := tenantIDFromContext(c, h.resolver)
	if err != nil {
		return httperr.JSON(c, err)
	}
	membershipID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.memberships.Remove(actor, tenantID, membershipID); err != nil {
		log.Warn("Member removal rejected",
			zap.Uint("tenant_id", tenantID),
			zap.Uint("membership_id", membershipID),
			zap.Error(err))
		return httperr.JSON(c, err)
	}

	log.Info("Member removed",
		zap.Uint("tenant_id", tenantID),
		zap.Uint("membership_id", membershipID))
	return c.JSON(http.StatusOK, echo.Map{"message": "member removed"})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
