package authz_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"crm-auth-service/internal/authz"
	"crm-auth-service/internal/model"
)

func TestResolve(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	resolver := authz.NewResolver(w.store)

	tc, err := resolver.Resolve(w.owner.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(tc.TenantID, qt.Equals, w.tenant.ID)
	c.Assert(tc.Role, qt.Equals, model.RoleOwner)
	c.Assert(tc.Membership, qt.IsNotNil)
}

func TestResolveNoActiveTenant(t *testing.T) {
	c := qt.New(t)

	store := authz.NewMemStore()
	user := store.AddUser(&model.User{Email: "drifter@acme.test", Active: true})

	_, err := authz.NewResolver(store).Resolve(user.ID)
	c.Assert(err, qt.ErrorIs, authz.ErrNoActiveTenant)
}

func TestResolveStaleMembership(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	// The pointer survives but the membership is gone, e.g. removed
	// between requests.
	c.Assert(w.store.DeleteMembership(w.ownerM), qt.IsNil)

	_, err := authz.NewResolver(w.store).Resolve(w.owner.ID)
	c.Assert(err, qt.ErrorIs, authz.ErrNotATenantMember)
}

func TestSwitchActiveTenant(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	other := w.store.AddTenant(&model.Tenant{Name: "Other", Slug: "other"})
	w.store.AddMembership(&model.Membership{
		TenantID: other.ID,
		UserID:   w.owner.ID,
		Role:     model.RoleMember,
	})
	resolver := authz.NewResolver(w.store)

	err := resolver.SwitchActiveTenant(w.owner.ID, other.ID)
	c.Assert(err, qt.IsNil)

	tc, err := resolver.Resolve(w.owner.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(tc.TenantID, qt.Equals, other.ID)
	c.Assert(tc.Role, qt.Equals, model.RoleMember)
}

func TestSwitchActiveTenantNotAMember(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	other := w.store.AddTenant(&model.Tenant{Name: "Other", Slug: "other"})

	err := authz.NewResolver(w.store).SwitchActiveTenant(w.owner.ID, other.ID)
	c.Assert(err, qt.ErrorIs, authz.ErrNotATenantMember)

	// The pointer is unchanged.
	tc, err := authz.NewResolver(w.store).Resolve(w.owner.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(tc.TenantID, qt.Equals, w.tenant.ID)
}
