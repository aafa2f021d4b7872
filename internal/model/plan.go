package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Stock plan names seeded at startup.
const (
	PlanStarter    = "starter"
	PlanGrowth     = "growth"
	PlanEnterprise = "enterprise"
)

// Plan is a named bundle of default feature entitlements and quotas.
// Many tenants may reference the same plan; tenant feature overrides are
// layered on top and never mutate the plan itself.
type Plan struct {
	ID            uint              `json:"id" gorm:"primaryKey"`
	Name          string            `json:"name" gorm:"type:varchar(50);uniqueIndex"`
	Features      datatypes.JSONMap `json:"features"` // feature key -> bool default
	LeadLimit     int64             `json:"lead_limit" gorm:"default:0"`
	QueryLimit    int64             `json:"query_limit" gorm:"default:0"`
	InstanceLimit int64             `json:"instance_limit" gorm:"default:0"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	DeletedAt     gorm.DeletedAt    `json:"-" gorm:"index"`
}

// DefaultFor returns the plan default for a feature key. Unknown keys are
// disabled.
func (p *Plan) DefaultFor(key string) bool {
	if p.Features == nil {
		return false
	}
	v, ok := p.Features[key].(bool)
	return ok && v
}
