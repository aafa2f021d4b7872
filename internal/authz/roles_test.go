package authz_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"gorm.io/datatypes"

	"crm-auth-service/internal/authz"
	"crm-auth-service/internal/model"
)

func TestCanPerform(t *testing.T) {
	tests := []struct {
		name         string
		role         string
		capabilities datatypes.JSONMap
		action       authz.Action
		expected     bool
	}{
		{
			name:     "owner may update tenant",
			role:     model.RoleOwner,
			action:   authz.ActionUpdateTenant,
			expected: true,
		},
		{
			name:     "owner may delete tenant",
			role:     model.RoleOwner,
			action:   authz.ActionDeleteTenant,
			expected: true,
		},
		{
			name:     "admin may invite",
			role:     model.RoleAdmin,
			action:   authz.ActionInviteMember,
			expected: true,
		},
		{
			name:     "admin may not delete tenant",
			role:     model.RoleAdmin,
			action:   authz.ActionDeleteTenant,
			expected: false,
		},
		{
			name:     "member may not invite by default",
			role:     model.RoleMember,
			action:   authz.ActionInviteMember,
			expected: false,
		},
		{
			name:         "member with invite grant may invite",
			role:         model.RoleMember,
			capabilities: datatypes.JSONMap{"members.invite": true},
			action:       authz.ActionInviteMember,
			expected:     true,
		},
		{
			name:         "invite grant does not cover removal",
			role:         model.RoleMember,
			capabilities: datatypes.JSONMap{"members.invite": true},
			action:       authz.ActionRemoveMember,
			expected:     false,
		},
		{
			name:         "explicit false grant denies",
			role:         model.RoleMember,
			capabilities: datatypes.JSONMap{"members.invite": false},
			action:       authz.ActionInviteMember,
			expected:     false,
		},
		{
			name:         "role changes cannot be delegated",
			role:         model.RoleMember,
			capabilities: datatypes.JSONMap{"members.change_role": true},
			action:       authz.ActionChangeMemberRole,
			expected:     false,
		},
		{
			name:         "member with tenant.update grant may update",
			role:         model.RoleMember,
			capabilities: datatypes.JSONMap{"tenant.update": true},
			action:       authz.ActionUpdateTenant,
			expected:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)

			m := &model.Membership{Role: tt.role, Capabilities: tt.capabilities}
			c.Assert(authz.CanPerform(m, tt.action), qt.Equals, tt.expected)
		})
	}
}

func TestCanPerformNilMembership(t *testing.T) {
	c := qt.New(t)
	c.Assert(authz.CanPerform(nil, authz.ActionInviteMember), qt.IsFalse)
}
