package authz

import (
	"errors"

	"crm-auth-service/internal/model"
)

// TenantContext is the per-request scoping key produced by Resolve. It is
// passed explicitly down the call chain and never cached beyond one
// request, since the active tenant pointer can change between requests.
type TenantContext struct {
	TenantID   uint
	Role       string
	Membership *model.Membership
}

// Resolver determines the active tenant for an authenticated user and
// validates current membership in it.
type Resolver struct {
	store Store
}

// NewResolver builds a tenant resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve reads the user's active tenant pointer and the matching
// membership. Invoked once per incoming request.
func (r *Resolver) Resolve(userID uint) (*TenantContext, error) {
	user, err := r.store.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.ActiveTenantID == nil {
		return nil, ErrNoActiveTenant
	}
	m, err := r.store.FindMembership(*user.ActiveTenantID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotATenantMember
		}
		return nil, err
	}
	return &TenantContext{
		TenantID:   m.TenantID,
		Role:       m.Role,
		Membership: m,
	}, nil
}

// SwitchActiveTenant points the user's active tenant at targetTenantID
// after verifying a membership exists.
func (r *Resolver) SwitchActiveTenant(userID, targetTenantID uint) error {
	if _, err := r.store.FindMembership(targetTenantID, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotATenantMember
		}
		return err
	}
	target := targetTenantID
	return r.store.UpdateUserActiveTenant(userID, &target)
}
