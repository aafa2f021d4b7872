package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tenant represents a workspace, the isolation boundary for all CRM data.
// Every lead, pipeline, WhatsApp instance and AI agent belongs to exactly
// one tenant.
type Tenant struct {
	ID               uint              `json:"id" gorm:"primaryKey"`
	Name             string            `json:"name" gorm:"type:varchar(100);not null"`
	Slug             string            `json:"slug" gorm:"type:varchar(100);uniqueIndex"`
	PlanID           *uint             `json:"plan_id,omitempty" gorm:"index"`
	Settings         datatypes.JSONMap `json:"settings"`
	FeatureOverrides datatypes.JSONMap `json:"feature_overrides"` // per-tenant patch over the plan defaults
	LeadsConsumed    int64             `json:"leads_consumed" gorm:"default:0"`
	QueriesPerformed int64             `json:"queries_performed" gorm:"default:0"`
	ActiveInstances  int64             `json:"active_instances" gorm:"default:0"`
	Active           bool              `json:"active" gorm:"default:true"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	DeletedAt        gorm.DeletedAt    `json:"-" gorm:"index"`

	Plan *Plan `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
}

// OverrideFor returns the tenant-level override for a feature key, if one
// is set. Overrides can both grant and revoke relative to the plan.
func (t *Tenant) OverrideFor(key string) (value bool, ok bool) {
	if t.FeatureOverrides == nil {
		return false, false
	}
	raw, ok := t.FeatureOverrides[key]
	if !ok {
		return false, false
	}
	v, ok := raw.(bool)
	return v, ok
}
