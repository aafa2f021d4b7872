package authz_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"gorm.io/datatypes"

	"crm-auth-service/internal/authz"
	"crm-auth-service/internal/model"
)

// world builds a tenant with one owner and returns the pieces tests need.
type world struct {
	store  *authz.MemStore
	tenant *model.Tenant
	owner  *model.User
	ownerM *model.Membership
}

func newWorld() *world {
	store := authz.NewMemStore()
	owner := store.AddUser(&model.User{Email: "owner@acme.test", Active: true, GlobalRole: model.GlobalRoleUser})
	tenant := store.AddTenant(&model.Tenant{Name: "Acme", Slug: "acme"})
	ownerM := store.AddMembership(&model.Membership{
		TenantID: tenant.ID,
		UserID:   owner.ID,
		Role:     model.RoleOwner,
	})
	tid := tenant.ID
	owner.ActiveTenantID = &tid
	return &world{store: store, tenant: tenant, owner: owner, ownerM: ownerM}
}

func (w *world) addMember(email, role string, caps datatypes.JSONMap) (*model.User, *model.Membership) {
	u := w.store.AddUser(&model.User{Email: email, Active: true, GlobalRole: model.GlobalRoleUser})
	m := w.store.AddMembership(&model.Membership{
		TenantID:     w.tenant.ID,
		UserID:       u.ID,
		Role:         role,
		Capabilities: caps,
	})
	return u, m
}

func actorFor(u *model.User) authz.Actor {
	return authz.Actor{UserID: u.ID, Email: u.Email, Operator: u.IsOperator()}
}

func TestInvite(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	invitee := w.store.AddUser(&model.User{Email: "new@acme.test", Active: true})
	svc := authz.NewMemberships(w.store)

	m, err := svc.Invite(actorFor(w.owner), w.tenant.ID, invitee.Email, model.RoleMember, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(m.UserID, qt.Equals, invitee.ID)
	c.Assert(m.Role, qt.Equals, model.RoleMember)
	c.Assert(*m.InvitedBy, qt.Equals, w.owner.ID)
}

func TestInviteUnknownEmail(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	svc := authz.NewMemberships(w.store)

	_, err := svc.Invite(actorFor(w.owner), w.tenant.ID, "nobody@acme.test", model.RoleMember, nil)
	c.Assert(err, qt.ErrorIs, authz.ErrUserNotFound)
}

func TestInviteAlreadyMember(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	existing, _ := w.addMember("there@acme.test", model.RoleMember, nil)
	svc := authz.NewMemberships(w.store)

	_, err := svc.Invite(actorFor(w.owner), w.tenant.ID, existing.Email, model.RoleAdmin, nil)
	c.Assert(err, qt.ErrorIs, authz.ErrAlreadyMember)
}

func TestInviteCapabilityGatedMember(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	// Two plain members, identical except for the invite grant.
	granted, _ := w.addMember("granted@acme.test", model.RoleMember, datatypes.JSONMap{"members.invite": true})
	plain, _ := w.addMember("plain@acme.test", model.RoleMember, nil)
	invitee := w.store.AddUser(&model.User{Email: "new@acme.test", Active: true})
	svc := authz.NewMemberships(w.store)

	_, err := svc.Invite(actorFor(plain), w.tenant.ID, invitee.Email, model.RoleMember, nil)
	c.Assert(err, qt.ErrorIs, authz.ErrForbidden)

	_, err = svc.Invite(actorFor(granted), w.tenant.ID, invitee.Email, model.RoleMember, nil)
	c.Assert(err, qt.IsNil)
}

func TestInviteByNonMember(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	outsider := w.store.AddUser(&model.User{Email: "outsider@other.test", Active: true})
	invitee := w.store.AddUser(&model.User{Email: "new@acme.test", Active: true})
	svc := authz.NewMemberships(w.store)

	_, err := svc.Invite(actorFor(outsider), w.tenant.ID, invitee.Email, model.RoleMember, nil)
	c.Assert(err, qt.ErrorIs, authz.ErrNotATenantMember)
}

func TestChangeRoleLastOwner(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	svc := authz.NewMemberships(w.store)

	// Sole owner cannot be demoted.
	_, err := svc.ChangeRole(actorFor(w.owner), w.tenant.ID, w.ownerM.ID, model.RoleMember)
	c.Assert(err, qt.ErrorIs, authz.ErrLastOwner)

	// With a second owner in place the demotion goes through.
	_, secondM := w.addMember("second@acme.test", model.RoleOwner, nil)
	m, err := svc.ChangeRole(actorFor(w.owner), w.tenant.ID, w.ownerM.ID, model.RoleMember)
	c.Assert(err, qt.IsNil)
	c.Assert(m.Role, qt.Equals, model.RoleMember)
	c.Assert(secondM.Role, qt.Equals, model.RoleOwner)
}

func TestChangeRoleRequiresAdmin(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	member, _ := w.addMember("member@acme.test", model.RoleMember, nil)
	_, targetM := w.addMember("target@acme.test", model.RoleMember, nil)
	svc := authz.NewMemberships(w.store)

	_, err := svc.ChangeRole(actorFor(member), w.tenant.ID, targetM.ID, model.RoleAdmin)
	c.Assert(err, qt.ErrorIs, authz.ErrForbidden)
}

func TestChangeRoleRejectsUnknownRole(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	_, targetM := w.addMember("target@acme.test", model.RoleMember, nil)
	svc := authz.NewMemberships(w.store)

	_, err := svc.ChangeRole(actorFor(w.owner), w.tenant.ID, targetM.ID, "superuser")
	c.Assert(err, qt.ErrorIs, authz.ErrForbidden)
}

func TestRemoveLastOwner(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	svc := authz.NewMemberships(w.store)

	err := svc.Remove(actorFor(w.owner), w.tenant.ID, w.ownerM.ID)
	c.Assert(err, qt.ErrorIs, authz.ErrLastOwner)

	// A second owner lifts the protection.
	w.addMember("second@acme.test", model.RoleOwner, nil)
	err = svc.Remove(actorFor(w.owner), w.tenant.ID, w.ownerM.ID)
	c.Assert(err, qt.IsNil)

	_, err = w.store.FindMembership(w.tenant.ID, w.owner.ID)
	c.Assert(err, qt.ErrorIs, authz.ErrNotFound)
}

func TestRemoveRepointsActiveTenant(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	member, memberM := w.addMember("member@acme.test", model.RoleMember, nil)

	// The member also belongs to a second tenant.
	other := w.store.AddTenant(&model.Tenant{Name: "Other", Slug: "other"})
	w.store.AddMembership(&model.Membership{TenantID: other.ID, UserID: member.ID, Role: model.RoleMember})
	tid := w.tenant.ID
	member.ActiveTenantID = &tid

	svc := authz.NewMemberships(w.store)
	err := svc.Remove(actorFor(w.owner), w.tenant.ID, memberM.ID)
	c.Assert(err, qt.IsNil)

	updated, err := w.store.FindUserByID(member.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(updated.ActiveTenantID, qt.IsNotNil)
	c.Assert(*updated.ActiveTenantID, qt.Equals, other.ID)
}

func TestRemoveClearsActiveTenantWhenNoOther(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	member, memberM := w.addMember("member@acme.test", model.RoleMember, nil)
	tid := w.tenant.ID
	member.ActiveTenantID = &tid

	svc := authz.NewMemberships(w.store)
	err := svc.Remove(actorFor(w.owner), w.tenant.ID, memberM.ID)
	c.Assert(err, qt.IsNil)

	updated, err := w.store.FindUserByID(member.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(updated.ActiveTenantID, qt.IsNil)
}

func TestRemoveCrossTenantMembershipID(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	// A membership that belongs to a different tenant.
	other := w.store.AddTenant(&model.Tenant{Name: "Other", Slug: "other"})
	stranger := w.store.AddUser(&model.User{Email: "stranger@other.test", Active: true})
	strangerM := w.store.AddMembership(&model.Membership{
		TenantID: other.ID,
		UserID:   stranger.ID,
		Role:     model.RoleOwner,
	})

	svc := authz.NewMemberships(w.store)

	// Scoped lookup: the foreign membership id presents as not found,
	// never as forbidden.
	err := svc.Remove(actorFor(w.owner), w.tenant.ID, strangerM.ID)
	c.Assert(err, qt.ErrorIs, authz.ErrNotFound)

	// The foreign membership is untouched.
	still, err := w.store.FindMembership(other.ID, stranger.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(still.Role, qt.Equals, model.RoleOwner)
}

func TestOperatorBypassesMembershipChecks(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	operator := w.store.AddUser(&model.User{
		Email:      "support@platform.test",
		Active:     true,
		GlobalRole: model.GlobalRoleAdmin,
	})
	invitee := w.store.AddUser(&model.User{Email: "new@acme.test", Active: true})
	svc := authz.NewMemberships(w.store)

	// No membership record exists for the operator, yet the invite runs.
	m, err := svc.Invite(actorFor(operator), w.tenant.ID, invitee.Email, model.RoleMember, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(m.UserID, qt.Equals, invitee.ID)
}

func TestUpdateCapabilities(t *testing.T) {
	c := qt.New(t)

	w := newWorld()
	_, targetM := w.addMember("target@acme.test", model.RoleMember, nil)
	svc := authz.NewMemberships(w.store)

	m, err := svc.UpdateCapabilities(actorFor(w.owner), w.tenant.ID, targetM.ID,
		map[string]interface{}{"members.invite": true})
	c.Assert(err, qt.IsNil)
	c.Assert(m.HasCapability("members.invite"), qt.IsTrue)
}
