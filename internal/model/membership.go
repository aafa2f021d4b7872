package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tenant-level roles, ordered owner > admin > member for the built-in
// administrative actions.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Membership links a user to a tenant with a role and optional
// fine-grained capability grants. Unique per (tenant, user) pair.
type Membership struct {
	ID           uint              `json:"id" gorm:"primaryKey"`
	TenantID     uint              `json:"tenant_id" gorm:"not null;uniqueIndex:idx_tenant_user"`
	UserID       uint              `json:"user_id" gorm:"not null;uniqueIndex:idx_tenant_user"`
	Role         string            `json:"role" gorm:"type:varchar(50);not null;default:'member'"`
	Capabilities datatypes.JSONMap `json:"capabilities"` // explicit per-member grants, e.g. "members.invite": true
	InvitedBy    *uint             `json:"invited_by,omitempty"`
	JoinedAt     time.Time         `json:"joined_at"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	DeletedAt    gorm.DeletedAt    `json:"-" gorm:"index"`

	User   User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Tenant Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}

// HasCapability reports whether the membership carries an explicit grant
// for the given capability key.
func (m *Membership) HasCapability(key string) bool {
	if m.Capabilities == nil {
		return false
	}
	v, ok := m.Capabilities[key].(bool)
	return ok && v
}
