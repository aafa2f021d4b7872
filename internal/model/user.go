package model

import (
	"time"

	"gorm.io/gorm"
)

// Global roles. "admin" is an operator-level superuser flag, not a role
// inside any workspace.
const (
	GlobalRoleAdmin = "admin"
	GlobalRoleUser  = "user"
)

// User represents the user model stored in the database
type User struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	Email          string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password       string         `json:"-" gorm:"type:varchar(255)"`
	GlobalRole     string         `json:"global_role" gorm:"type:varchar(20);not null;default:'user'"`
	Active         bool           `json:"active" gorm:"default:true"`
	ActiveTenantID *uint          `json:"active_tenant_id,omitempty" gorm:"index"` // currently selected workspace
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsOperator reports whether the user carries the global admin flag.
func (u *User) IsOperator() bool {
	return u.GlobalRole == GlobalRoleAdmin
}
