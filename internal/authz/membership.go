package authz

import (
	"errors"
	"time"

	"gorm.io/datatypes"

	"crm-auth-service/internal/model"
)

// Memberships is the single component permitted to mutate role and
// capability data. Every operation re-reads the acting membership from the
// store at operation time, so a concurrent role change or removal is
// honored even when the request was gate-checked moments earlier.
type Memberships struct {
	store Store
}

// NewMemberships builds the membership service over the given store.
func NewMemberships(store Store) *Memberships {
	return &Memberships{store: store}
}

// Invite adds the user with the given email to the tenant. The actor needs
// the invite capability (owner, admin, or an explicit members.invite
// grant).
func (s *Memberships) Invite(actor Actor, tenantID uint, email, role string, capabilities map[string]interface{}) (*model.Membership, error) {
	if err := s.requireAction(actor, tenantID, ActionInviteMember); err != nil {
		return nil, err
	}
	if role == "" {
		role = model.RoleMember
	}
	if !validRole(role) {
		return nil, ErrForbidden
	}
	user, err := s.store.FindUserByEmail(email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if _, err := s.store.FindMembership(tenantID, user.ID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	m := &model.Membership{
		TenantID:     tenantID,
		UserID:       user.ID,
		Role:         role,
		Capabilities: datatypes.JSONMap(capabilities),
		JoinedAt:     time.Now(),
	}
	if actor.UserID != 0 {
		invitedBy := actor.UserID
		m.InvitedBy = &invitedBy
	}
	if err := s.store.CreateMembership(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ChangeRole updates a member's role. Only owners and admins may change
// roles; the capability map does not delegate this. Demoting the sole
// owner is rejected so the tenant never ends up ownerless.
func (s *Memberships) ChangeRole(actor Actor, tenantID, membershipID uint, newRole string) (*model.Membership, error) {
	if err := s.requireAction(actor, tenantID, ActionChangeMemberRole); err != nil {
		return nil, err
	}
	if !validRole(newRole) {
		return nil, ErrForbidden
	}
	target, err := s.store.FindMembershipByID(tenantID, membershipID)
	if err != nil {
		return nil, err
	}
	if target.Role == model.RoleOwner {
		owners, err := s.store.CountOwners(tenantID)
		if err != nil {
			return nil, err
		}
		if owners <= 1 {
			return nil, ErrLastOwner
		}
	}
	target.Role = newRole
	if err := s.store.SaveMembership(target); err != nil {
		return nil, err
	}
	return target, nil
}

// Remove deletes a membership. Same capability rule as Invite, same
// last-owner protection as ChangeRole. If the removed user had this tenant
// selected as active, the pointer is repointed to another of their tenants
// or cleared.
func (s *Memberships) Remove(actor Actor, tenantID, membershipID uint) error {
	if err := s.requireAction(actor, tenantID, ActionRemoveMember); err != nil {
		return err
	}
	target, err := s.store.FindMembershipByID(tenantID, membershipID)
	if err != nil {
		return err
	}
	if target.Role == model.RoleOwner {
		owners, err := s.store.CountOwners(tenantID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return ErrLastOwner
		}
	}
	if err := s.store.DeleteMembership(target); err != nil {
		return err
	}
	return s.repointActiveTenant(target.UserID, tenantID)
}

// UpdateCapabilities replaces a member's capability grants. Gated like a
// role change.
func (s *Memberships) UpdateCapabilities(actor Actor, tenantID, membershipID uint, capabilities map[string]interface{}) (*model.Membership, error) {
	if err := s.requireAction(actor, tenantID, ActionChangeMemberRole); err != nil {
		return nil, err
	}
	target, err := s.store.FindMembershipByID(tenantID, membershipID)
	if err != nil {
		return nil, err
	}
	target.Capabilities = datatypes.JSONMap(capabilities)
	if err := s.store.SaveMembership(target); err != nil {
		return nil, err
	}
	return target, nil
}

// requireAction re-reads the acting membership and applies CanPerform.
// Operators skip the membership check entirely.
func (s *Memberships) requireAction(actor Actor, tenantID uint, action Action) error {
	if actor.Operator {
		return nil
	}
	m, err := s.store.FindMembership(tenantID, actor.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotATenantMember
		}
		return err
	}
	if !CanPerform(m, action) {
		return ErrForbidden
	}
	return nil
}

func (s *Memberships) repointActiveTenant(userID, removedTenantID uint) error {
	user, err := s.store.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if user.ActiveTenantID == nil || *user.ActiveTenantID != removedTenantID {
		return nil
	}
	remaining, err := s.store.ListMembershipsForUser(userID)
	if err != nil {
		return err
	}
	for _, m := range remaining {
		if m.TenantID != removedTenantID {
			next := m.TenantID
			return s.store.UpdateUserActiveTenant(userID, &next)
		}
	}
	return s.store.UpdateUserActiveTenant(userID, nil)
}

func validRole(role string) bool {
	switch role {
	case model.RoleOwner, model.RoleAdmin, model.RoleMember:
		return true
	}
	return false
}
